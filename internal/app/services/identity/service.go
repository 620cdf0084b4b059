package identity

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	appoutbox "pingme/internal/app/outbox"
	domainauth "pingme/internal/domain/auth"
	domainuser "pingme/internal/domain/user"
)

var ErrPublicIDExhausted = errors.New("identity: could not allocate a free public id")

// publicIDAttempts bounds the collision retry loop; with 36^8 possible ids
// hitting the bound means the random source is broken.
const publicIDAttempts = 100

type TokenGenerator interface {
	NewToken() (string, error)
}

type PublicIDGenerator interface {
	NewPublicID() (string, error)
}

type Service struct {
	Users      domainuser.Repository
	Sessions   domainauth.SessionStore
	Tokens     TokenGenerator
	PublicIDs  PublicIDGenerator
	SessionTTL time.Duration
	Outbox     appoutbox.Outbox
	Encoder    appoutbox.EventEncoder
	Logger     *slog.Logger
}

type RegisterParams struct {
	Name  string
	Email string
}

type AuthResult struct {
	User  *domainuser.User
	Token string
}

type ResolveResult struct {
	User    *domainuser.User
	Session *domainauth.Session
}

// Register creates a user with a freshly drawn public id and opens a session.
func (s *Service) Register(ctx context.Context, params RegisterParams) (*AuthResult, error) {
	if err := s.ensureDependencies(); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(params.Name)
	if name == "" {
		return nil, domainuser.ErrNameRequired
	}
	email := domainuser.NormalizeEmail(params.Email)
	if email == "" {
		return nil, domainuser.ErrEmailRequired
	}
	if _, err := s.Users.ByEmail(ctx, email); err == nil {
		return nil, domainuser.ErrEmailAlreadyUsed
	} else if !errors.Is(err, domainuser.ErrNotFound) {
		return nil, err
	}

	publicID, err := s.allocatePublicID(ctx)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	user, err := domainuser.NewUser(domainuser.CreateParams{
		ID:        domainuser.ID(uuid.NewString()),
		PublicID:  publicID,
		Name:      name,
		Email:     email,
		CreatedAt: now,
	})
	if err != nil {
		return nil, err
	}
	if err := s.Users.Save(ctx, user); err != nil {
		return nil, err
	}
	token, err := s.issueSession(ctx, user)
	if err != nil {
		return nil, err
	}
	if err := appoutbox.Record(ctx, s.Outbox, s.Encoder, domainuser.Registered{
		UserID:   user.ID,
		PublicID: user.PublicID,
		Email:    user.Email,
		At:       user.CreatedAt,
	}); err != nil && s.Logger != nil {
		s.Logger.Warn("user event not recorded", "error", err)
	}
	if s.Logger != nil {
		s.Logger.Info("user registered", "user_id", user.ID, "public_id", user.PublicID)
	}
	return &AuthResult{User: user, Token: token}, nil
}

// FindByPublicID resolves a user by the short shareable id. Input is trimmed
// and upper-cased before matching.
func (s *Service) FindByPublicID(ctx context.Context, publicID string) (*domainuser.User, error) {
	if s.Users == nil {
		return nil, errors.New("identity: user repository required")
	}
	publicID = domainuser.NormalizePublicID(publicID)
	if publicID == "" {
		return nil, domainuser.ErrPublicIDRequired
	}
	return s.Users.ByPublicID(ctx, publicID)
}

// SetOnline updates the presence flag and refreshes last-seen. Idempotent.
func (s *Service) SetOnline(ctx context.Context, userID domainuser.ID, online bool) (*domainuser.User, error) {
	if s.Users == nil {
		return nil, errors.New("identity: user repository required")
	}
	user, err := s.Users.ByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	user.SetOnline(online, time.Now())
	if err := s.Users.Save(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *Service) Logout(ctx context.Context, token string) error {
	if s.Sessions == nil {
		return errors.New("identity: session store required")
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return nil
	}
	return s.Sessions.Delete(ctx, domainauth.Token(token))
}

// ResolveToken maps a bearer token to its user. Sessions of vanished users
// are dropped on sight.
func (s *Service) ResolveToken(ctx context.Context, token string) (*ResolveResult, error) {
	if err := s.ensureDependencies(); err != nil {
		return nil, err
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, domainauth.ErrTokenRequired
	}
	session, err := s.Sessions.Get(ctx, domainauth.Token(token))
	if err != nil {
		return nil, err
	}
	user, err := s.Users.ByID(ctx, session.UserID)
	if err != nil {
		_ = s.Sessions.Delete(ctx, session.Token)
		if errors.Is(err, domainuser.ErrNotFound) {
			return nil, domainauth.ErrSessionNotFound
		}
		return nil, err
	}
	return &ResolveResult{User: user, Session: session}, nil
}

func (s *Service) allocatePublicID(ctx context.Context) (string, error) {
	for attempt := 0; attempt < publicIDAttempts; attempt++ {
		candidate, err := s.PublicIDs.NewPublicID()
		if err != nil {
			return "", err
		}
		_, err = s.Users.ByPublicID(ctx, candidate)
		if errors.Is(err, domainuser.ErrNotFound) {
			return candidate, nil
		}
		if err != nil {
			return "", err
		}
	}
	return "", ErrPublicIDExhausted
}

func (s *Service) issueSession(ctx context.Context, user *domainuser.User) (string, error) {
	token, err := s.Tokens.NewToken()
	if err != nil {
		return "", err
	}
	session, err := domainauth.NewSession(domainauth.CreateSessionParams{
		Token:  domainauth.Token(token),
		UserID: user.ID,
		TTL:    s.sessionTTL(),
		Now:    time.Now(),
	})
	if err != nil {
		return "", err
	}
	if err := s.Sessions.Save(ctx, session); err != nil {
		return "", err
	}
	return token, nil
}

func (s *Service) sessionTTL() time.Duration {
	if s.SessionTTL > 0 {
		return s.SessionTTL
	}
	return 24 * time.Hour
}

func (s *Service) ensureDependencies() error {
	switch {
	case s.Users == nil:
		return errors.New("identity: user repository required")
	case s.Sessions == nil:
		return errors.New("identity: session store required")
	case s.Tokens == nil:
		return errors.New("identity: token generator required")
	case s.PublicIDs == nil:
		return errors.New("identity: public id generator required")
	default:
		return nil
	}
}
