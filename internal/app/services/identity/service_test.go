package identity

import (
	"context"
	"strings"
	"testing"

	domainuser "pingme/internal/domain/user"
	"pingme/internal/infra/security"
	"pingme/internal/infra/storage/memory"
)

func newTestService() *Service {
	return &Service{
		Users:     memory.NewUserRepository(),
		Sessions:  memory.NewSessionStore(),
		Tokens:    security.RandomTokenGenerator{Size: 32},
		PublicIDs: security.PublicIDGenerator{Length: domainuser.PublicIDLength},
	}
}

func TestRegisterIssuesPublicIDAndSession(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	result, err := svc.Register(ctx, RegisterParams{Name: "Alice", Email: "Alice@Example.com "})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if result.Token == "" {
		t.Fatal("Register() returned empty token")
	}
	if result.User.Email != "alice@example.com" {
		t.Fatalf("email not normalized: %q", result.User.Email)
	}
	if len(result.User.PublicID) != domainuser.PublicIDLength {
		t.Fatalf("public id length = %d, want %d", len(result.User.PublicID), domainuser.PublicIDLength)
	}
	for _, r := range result.User.PublicID {
		if !strings.ContainsRune(domainuser.PublicIDAlphabet, r) {
			t.Fatalf("public id %q contains %q outside the alphabet", result.User.PublicID, r)
		}
	}

	resolved, err := svc.ResolveToken(ctx, result.Token)
	if err != nil {
		t.Fatalf("ResolveToken() error = %v", err)
	}
	if resolved.User.ID != result.User.ID {
		t.Fatalf("resolved user %q, want %q", resolved.User.ID, result.User.ID)
	}
}

func TestRegisterValidation(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	cases := []struct {
		name    string
		params  RegisterParams
		wantErr error
	}{
		{"missing name", RegisterParams{Email: "a@b.com"}, domainuser.ErrNameRequired},
		{"blank name", RegisterParams{Name: "   ", Email: "a@b.com"}, domainuser.ErrNameRequired},
		{"missing email", RegisterParams{Name: "Alice"}, domainuser.ErrEmailRequired},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.Register(ctx, tc.params); err != tc.wantErr {
				t.Fatalf("Register() error = %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	if _, err := svc.Register(ctx, RegisterParams{Name: "Alice", Email: "alice@example.com"}); err != nil {
		t.Fatalf("first Register() error = %v", err)
	}
	_, err := svc.Register(ctx, RegisterParams{Name: "Other", Email: "ALICE@example.com"})
	if err != domainuser.ErrEmailAlreadyUsed {
		t.Fatalf("second Register() error = %v, want %v", err, domainuser.ErrEmailAlreadyUsed)
	}
}

func TestFindByPublicIDNormalizesInput(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	result, err := svc.Register(ctx, RegisterParams{Name: "Alice", Email: "alice@example.com"})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	found, err := svc.FindByPublicID(ctx, "  "+strings.ToLower(result.User.PublicID)+" ")
	if err != nil {
		t.Fatalf("FindByPublicID() error = %v", err)
	}
	if found.ID != result.User.ID {
		t.Fatalf("found user %q, want %q", found.ID, result.User.ID)
	}

	if _, err := svc.FindByPublicID(ctx, "   "); err != domainuser.ErrPublicIDRequired {
		t.Fatalf("FindByPublicID(blank) error = %v, want %v", err, domainuser.ErrPublicIDRequired)
	}
	if _, err := svc.FindByPublicID(ctx, "NOPE0000"); err != domainuser.ErrNotFound {
		t.Fatalf("FindByPublicID(unknown) error = %v, want %v", err, domainuser.ErrNotFound)
	}
}

func TestSetOnlineUpdatesPresence(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	result, err := svc.Register(ctx, RegisterParams{Name: "Alice", Email: "alice@example.com"})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	user, err := svc.SetOnline(ctx, result.User.ID, true)
	if err != nil {
		t.Fatalf("SetOnline() error = %v", err)
	}
	if !user.Online {
		t.Fatal("user should be online")
	}
	lastSeen := user.LastSeen

	user, err = svc.SetOnline(ctx, result.User.ID, false)
	if err != nil {
		t.Fatalf("SetOnline(false) error = %v", err)
	}
	if user.Online {
		t.Fatal("user should be offline")
	}
	if user.LastSeen.Before(lastSeen) {
		t.Fatal("last seen went backwards")
	}
}

func TestLogoutInvalidatesSession(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	result, err := svc.Register(ctx, RegisterParams{Name: "Alice", Email: "alice@example.com"})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if err := svc.Logout(ctx, result.Token); err != nil {
		t.Fatalf("Logout() error = %v", err)
	}
	if _, err := svc.ResolveToken(ctx, result.Token); err == nil {
		t.Fatal("ResolveToken() should fail after logout")
	}
}

type fixedPublicIDs struct {
	ids []string
	pos int
}

func (g *fixedPublicIDs) NewPublicID() (string, error) {
	id := g.ids[g.pos%len(g.ids)]
	g.pos++
	return id, nil
}

func TestRegisterRetriesTakenPublicID(t *testing.T) {
	svc := newTestService()
	svc.PublicIDs = &fixedPublicIDs{ids: []string{"AAAAAAAA", "BBBBBBBB"}}
	ctx := context.Background()

	first, err := svc.Register(ctx, RegisterParams{Name: "Alice", Email: "alice@example.com"})
	if err != nil {
		t.Fatalf("first Register() error = %v", err)
	}
	if first.User.PublicID != "AAAAAAAA" {
		t.Fatalf("first public id = %q", first.User.PublicID)
	}

	second, err := svc.Register(ctx, RegisterParams{Name: "Bob", Email: "bob@example.com"})
	if err != nil {
		t.Fatalf("second Register() error = %v", err)
	}
	if second.User.PublicID != "BBBBBBBB" {
		t.Fatalf("second public id = %q, collision not retried", second.User.PublicID)
	}
}

func TestRegisterExhaustedPublicIDs(t *testing.T) {
	svc := newTestService()
	svc.PublicIDs = &fixedPublicIDs{ids: []string{"AAAAAAAA"}}
	ctx := context.Background()

	if _, err := svc.Register(ctx, RegisterParams{Name: "Alice", Email: "alice@example.com"}); err != nil {
		t.Fatalf("first Register() error = %v", err)
	}
	if _, err := svc.Register(ctx, RegisterParams{Name: "Bob", Email: "bob@example.com"}); err != ErrPublicIDExhausted {
		t.Fatalf("Register() error = %v, want %v", err, ErrPublicIDExhausted)
	}
}
