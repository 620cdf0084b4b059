package chat

import (
	"context"
	"testing"
	"time"

	domainuser "pingme/internal/domain/user"
	"pingme/internal/infra/storage/memory"
)

func newTestService() *Service {
	return &Service{
		Users:         memory.NewUserRepository(),
		Conversations: memory.NewConversationRepository(),
		Messages:      memory.NewMessageRepository(),
		Seen:          memory.NewSeenStore(),
	}
}

func seedUser(t *testing.T, svc *Service, id, name, publicID string) *domainuser.User {
	t.Helper()
	user, err := domainuser.NewUser(domainuser.CreateParams{
		ID:        domainuser.ID(id),
		PublicID:  publicID,
		Name:      name,
		Email:     id + "@example.com",
		CreatedAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("NewUser(%s) error = %v", id, err)
	}
	if err := svc.Users.Save(context.Background(), user); err != nil {
		t.Fatalf("Save(%s) error = %v", id, err)
	}
	return user
}
