package ginserver

import (
	"errors"
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"pingme/internal/app/dto"
	chatsvc "pingme/internal/app/services/chat"
	domainconv "pingme/internal/domain/conversation"
	domainmsg "pingme/internal/domain/message"
	domainuser "pingme/internal/domain/user"
)

// ChatHTTP exposes conversation and message endpoints.
type ChatHTTP interface {
	Feed(c *gin.Context)
	StartPrivate(c *gin.Context)
	CreateGroup(c *gin.Context)
	ListMessages(c *gin.Context)
	SendMessage(c *gin.Context)
	MarkSeen(c *gin.Context)
	MessageStatus(c *gin.Context)
}

type ChatHandler struct {
	Service *chatsvc.Service
	Logger  *slog.Logger
}

type startPrivateRequest struct {
	PeerID string `json:"peer_id"`
}

type createGroupRequest struct {
	Name      string   `json:"name"`
	MemberIDs []string `json:"member_public_ids"`
}

type sendMessageRequest struct {
	Content string `json:"content"`
}

type markSeenRequest struct {
	MessageIDs []string `json:"message_ids"`
}

// Feed lists the caller's conversations, most recent activity first.
func (h ChatHandler) Feed(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}
	if h.Service == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "chat service unavailable"})
		return
	}
	entries, err := h.Service.Feed(c.Request.Context(), domainuser.ID(principal.ID))
	if err != nil {
		h.respondChatError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.MapFeed(entries))
}

// StartPrivate opens (or returns the existing) one-on-one conversation.
func (h ChatHandler) StartPrivate(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}
	if h.Service == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "chat service unavailable"})
		return
	}
	var req startPrivateRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.PeerID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "peer_id is required"})
		return
	}
	conv, err := h.Service.StartPrivate(c.Request.Context(), domainuser.ID(principal.ID), domainuser.ID(req.PeerID))
	if err != nil {
		h.respondChatError(c, err)
		return
	}
	participants, err := h.Service.Conversations.Participants(c.Request.Context(), conv.ID)
	if err != nil {
		h.respondChatError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.MapConversation(conv, participants))
}

// CreateGroup starts a group conversation with members given by public id.
func (h ChatHandler) CreateGroup(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}
	if h.Service == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "chat service unavailable"})
		return
	}
	var req createGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	conv, err := h.Service.CreateGroup(c.Request.Context(), domainuser.ID(principal.ID), req.Name, req.MemberIDs)
	if err != nil {
		h.respondChatError(c, err)
		return
	}
	participants, err := h.Service.Conversations.Participants(c.Request.Context(), conv.ID)
	if err != nil {
		h.respondChatError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.MapConversation(conv, participants))
}

// ListMessages returns a conversation's history for a participant.
func (h ChatHandler) ListMessages(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}
	if h.Service == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "chat service unavailable"})
		return
	}
	convID := c.Param("id")
	if convID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "conversation id is required"})
		return
	}
	views, err := h.Service.ListMessages(c.Request.Context(), domainconv.ID(convID), domainuser.ID(principal.ID))
	if err != nil {
		h.respondChatError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.MapMessages(views))
}

// SendMessage appends a text message to a conversation.
func (h ChatHandler) SendMessage(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}
	if h.Service == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "chat service unavailable"})
		return
	}
	convID := c.Param("id")
	if convID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "conversation id is required"})
		return
	}
	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	msg, err := h.Service.SendText(c.Request.Context(), domainconv.ID(convID), domainuser.ID(principal.ID), req.Content)
	if err != nil {
		h.respondChatError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.MapMessage(msg))
}

// MarkSeen records read receipts for a batch of messages. Unknown or
// inaccessible ids are skipped rather than failing the batch.
func (h ChatHandler) MarkSeen(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}
	if h.Service == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "chat service unavailable"})
		return
	}
	var req markSeenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if err := h.Service.MarkSeen(c.Request.Context(), req.MessageIDs, domainuser.ID(principal.ID)); err != nil {
		h.respondChatError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// MessageStatus reports aggregated delivery state for one message.
func (h ChatHandler) MessageStatus(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}
	if h.Service == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "chat service unavailable"})
		return
	}
	msgID := c.Param("id")
	if msgID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message id is required"})
		return
	}
	status, err := h.Service.Status(c.Request.Context(), domainmsg.ID(msgID), domainuser.ID(principal.ID))
	if err != nil {
		h.respondChatError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.MapStatus(domainmsg.ID(msgID), status))
}

// respondChatError maps domain errors to HTTP codes. Conversations and
// messages the caller is not part of answer exactly like missing ones.
func (h ChatHandler) respondChatError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domainconv.ErrSelfConversation),
		errors.Is(err, domainconv.ErrGroupSize),
		errors.Is(err, domainconv.ErrNameRequired),
		errors.Is(err, domainmsg.ErrContentRequired),
		errors.Is(err, domainmsg.ErrAttachmentRequired),
		errors.Is(err, domainmsg.ErrInvalidKind):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, domainuser.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
	case errors.Is(err, domainconv.ErrNotFound), errors.Is(err, domainconv.ErrNotParticipant):
		c.JSON(http.StatusNotFound, gin.H{"error": "conversation not found"})
	case errors.Is(err, domainmsg.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "message not found"})
	default:
		if h.Logger != nil {
			h.Logger.Error("chat operation failed", "error", err)
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

var _ ChatHTTP = (*ChatHandler)(nil)
