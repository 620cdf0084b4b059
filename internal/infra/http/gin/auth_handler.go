package ginserver

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	gin "github.com/gin-gonic/gin"

	"pingme/internal/app/dto"
	identitysvc "pingme/internal/app/services/identity"
	domainuser "pingme/internal/domain/user"
)

type AuthHTTP interface {
	Register(c *gin.Context)
	Logout(c *gin.Context)
	Me(c *gin.Context)
}

type UserHTTP interface {
	Find(c *gin.Context)
	UpdateStatus(c *gin.Context)
}

type AuthHandler struct {
	Service *identitysvc.Service
	Logger  *slog.Logger
}

type registerRequest struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

type statusRequest struct {
	Online bool `json:"online"`
}

func (h AuthHandler) Register(c *gin.Context) {
	if h.Service == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "identity service unavailable"})
		return
	}
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	result, err := h.Service.Register(c.Request.Context(), identitysvc.RegisterParams{
		Email: req.Email,
		Name:  req.Name,
	})
	if err != nil {
		h.respondIdentityError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.NewAuthResponse(result.User, result.Token))
}

func (h AuthHandler) Logout(c *gin.Context) {
	if h.Service == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "identity service unavailable"})
		return
	}
	token := bearerTokenFromContext(c)
	if err := h.Service.Logout(c.Request.Context(), token); err != nil {
		if h.Logger != nil {
			h.Logger.Warn("logout failed", "error", err)
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "logout failed"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h AuthHandler) Me(c *gin.Context) {
	principal, ok := currentPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "auth required"})
		return
	}
	profile := dto.UserProfile{
		ID:        principal.ID,
		PublicID:  principal.PublicID,
		Name:      principal.Name,
		Email:     principal.Email,
		Online:    principal.Online,
		LastSeen:  principal.LastSeen,
		CreatedAt: principal.CreatedAt,
	}
	c.JSON(http.StatusOK, profile)
}

// Find looks up another user by their shareable public id.
func (h AuthHandler) Find(c *gin.Context) {
	if _, ok := requirePrincipal(c); !ok {
		return
	}
	if h.Service == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "identity service unavailable"})
		return
	}
	publicID := strings.TrimSpace(c.Query("public_id"))
	user, err := h.Service.FindByPublicID(c.Request.Context(), publicID)
	if err != nil {
		h.respondIdentityError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.MapUserProfile(user))
}

func (h AuthHandler) UpdateStatus(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}
	if h.Service == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "identity service unavailable"})
		return
	}
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	user, err := h.Service.SetOnline(c.Request.Context(), domainuser.ID(principal.ID), req.Online)
	if err != nil {
		h.respondIdentityError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.MapUserProfile(user))
}

func (h AuthHandler) respondIdentityError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domainuser.ErrEmailRequired),
		errors.Is(err, domainuser.ErrNameRequired),
		errors.Is(err, domainuser.ErrPublicIDRequired):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, domainuser.ErrEmailAlreadyUsed):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, domainuser.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
	default:
		if h.Logger != nil {
			h.Logger.Error("identity operation failed", "error", err)
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func bearerTokenFromContext(c *gin.Context) string {
	if principal, ok := currentPrincipal(c); ok && principal.Token != "" {
		return principal.Token
	}
	header := c.GetHeader("Authorization")
	return extractBearerToken(header)
}

var (
	_ AuthHTTP = (*AuthHandler)(nil)
	_ UserHTTP = (*AuthHandler)(nil)
)
