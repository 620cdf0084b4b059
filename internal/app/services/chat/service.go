package chat

import (
	"context"
	"errors"
	"log/slog"

	appoutbox "pingme/internal/app/outbox"
	domainconv "pingme/internal/domain/conversation"
	domainmsg "pingme/internal/domain/message"
	domainuser "pingme/internal/domain/user"
	"pingme/internal/domain/shared/events"
)

// Service coordinates conversations, the message ledger, seen marks and the
// per-user feed.
type Service struct {
	Users         domainuser.Repository
	Conversations domainconv.Repository
	Messages      domainmsg.Repository
	Seen          domainmsg.SeenStore
	Outbox        appoutbox.Outbox
	Encoder       appoutbox.EventEncoder
	Logger        *slog.Logger
}

// Authorize resolves the caller's membership row. Absence of a row is an
// authorization failure; callers must not leak conversation existence.
func (s *Service) Authorize(ctx context.Context, convID domainconv.ID, userID domainuser.ID) (*domainconv.Participant, error) {
	if s.Conversations == nil {
		return nil, errDependency("conversation repository")
	}
	return s.Conversations.Participant(ctx, convID, userID)
}

// ListForUser returns every conversation the user belongs to.
func (s *Service) ListForUser(ctx context.Context, userID domainuser.ID) ([]*domainconv.Conversation, error) {
	if s.Conversations == nil {
		return nil, errDependency("conversation repository")
	}
	return s.Conversations.ForUser(ctx, userID)
}

func (s *Service) record(ctx context.Context, evs ...events.DomainEvent) {
	if err := appoutbox.Record(ctx, s.Outbox, s.Encoder, evs...); err != nil && s.Logger != nil {
		s.Logger.Warn("chat event not recorded", "error", err)
	}
}

func (s *Service) userName(ctx context.Context, cache map[domainuser.ID]*domainuser.User, id domainuser.ID) string {
	u := s.lookupUser(ctx, cache, id)
	if u == nil {
		return "Unknown"
	}
	return u.Name
}

func (s *Service) lookupUser(ctx context.Context, cache map[domainuser.ID]*domainuser.User, id domainuser.ID) *domainuser.User {
	if u, ok := cache[id]; ok {
		return u
	}
	u, err := s.Users.ByID(ctx, id)
	if err != nil {
		cache[id] = nil
		return nil
	}
	cache[id] = u
	return u
}

func errDependency(name string) error {
	return errors.New("chat: " + name + " required")
}
