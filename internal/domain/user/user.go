package user

import (
	"context"
	"errors"
	"strings"
	"time"
)

var (
	ErrIDRequired       = errors.New("user: id is required")
	ErrNameRequired     = errors.New("user: display name is required")
	ErrEmailRequired    = errors.New("user: email is required")
	ErrPublicIDRequired = errors.New("user: public id is required")
	ErrPublicIDTaken    = errors.New("user: public id already taken")
	ErrEmailAlreadyUsed = errors.New("user: email already used")
	ErrNotFound         = errors.New("user: not found")
)

type ID string

// PublicIDLength is the size of the short human-shareable identifier.
const PublicIDLength = 8

// PublicIDAlphabet holds the symbols public ids are drawn from.
const PublicIDAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

type User struct {
	ID        ID
	PublicID  string
	Name      string
	Email     string
	Online    bool
	LastSeen  time.Time
	CreatedAt time.Time
}

type Repository interface {
	ByID(ctx context.Context, id ID) (*User, error)
	ByEmail(ctx context.Context, email string) (*User, error)
	ByPublicID(ctx context.Context, publicID string) (*User, error)
	Save(ctx context.Context, user *User) error
}

type CreateParams struct {
	ID        ID
	PublicID  string
	Name      string
	Email     string
	CreatedAt time.Time
}

func NewUser(params CreateParams) (*User, error) {
	id := strings.TrimSpace(string(params.ID))
	if id == "" {
		return nil, ErrIDRequired
	}
	name := strings.TrimSpace(params.Name)
	if name == "" {
		return nil, ErrNameRequired
	}
	email := NormalizeEmail(params.Email)
	if email == "" {
		return nil, ErrEmailRequired
	}
	publicID := NormalizePublicID(params.PublicID)
	if publicID == "" {
		return nil, ErrPublicIDRequired
	}

	now := params.CreatedAt
	if now.IsZero() {
		now = time.Now()
	}
	now = now.UTC()

	return &User{
		ID:        ID(id),
		PublicID:  publicID,
		Name:      name,
		Email:     email,
		Online:    false,
		LastSeen:  now,
		CreatedAt: now,
	}, nil
}

// SetOnline flips the presence flag and bumps the last-seen timestamp.
// Re-applying the current value only refreshes LastSeen.
func (u *User) SetOnline(online bool, now time.Time) {
	if now.IsZero() {
		now = time.Now()
	}
	u.Online = online
	u.LastSeen = now.UTC()
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func NormalizePublicID(publicID string) string {
	return strings.ToUpper(strings.TrimSpace(publicID))
}
