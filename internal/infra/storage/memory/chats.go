package memory

import (
	"context"
	"sort"
	"sync"

	domainconv "pingme/internal/domain/conversation"
	domainmsg "pingme/internal/domain/message"
	domainuser "pingme/internal/domain/user"
)

// ConversationRepository keeps conversations and memberships in memory.
// The pair-key index is written under the same lock as the conversation,
// so concurrent private-chat creation for one pair cannot race into
// duplicates.
type ConversationRepository struct {
	mu           sync.RWMutex
	byID         map[domainconv.ID]*domainconv.Conversation
	byPairKey    map[string]domainconv.ID
	participants map[domainconv.ID][]domainconv.Participant
	byUser       map[domainuser.ID][]domainconv.ID
}

func NewConversationRepository() *ConversationRepository {
	return &ConversationRepository{
		byID:         make(map[domainconv.ID]*domainconv.Conversation),
		byPairKey:    make(map[string]domainconv.ID),
		participants: make(map[domainconv.ID][]domainconv.Participant),
		byUser:       make(map[domainuser.ID][]domainconv.ID),
	}
}

func (r *ConversationRepository) ByID(ctx context.Context, id domainconv.ID) (*domainconv.Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if conv, ok := r.byID[id]; ok {
		return cloneConversation(conv), nil
	}
	return nil, domainconv.ErrNotFound
}

func (r *ConversationRepository) ByPairKey(ctx context.Context, pairKey string) (*domainconv.Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byPairKey[pairKey]
	if !ok {
		return nil, domainconv.ErrNotFound
	}
	if conv, ok := r.byID[id]; ok {
		return cloneConversation(conv), nil
	}
	return nil, domainconv.ErrNotFound
}

func (r *ConversationRepository) CreateWithParticipants(ctx context.Context, conv *domainconv.Conversation, participants []domainconv.Participant) error {
	if conv == nil {
		return domainconv.ErrIDRequired
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if conv.PairKey != "" {
		if _, taken := r.byPairKey[conv.PairKey]; taken {
			return domainconv.ErrAlreadyExists
		}
	}
	r.byID[conv.ID] = cloneConversation(conv)
	if conv.PairKey != "" {
		r.byPairKey[conv.PairKey] = conv.ID
	}
	stored := make([]domainconv.Participant, len(participants))
	copy(stored, participants)
	r.participants[conv.ID] = stored
	for _, p := range stored {
		r.byUser[p.UserID] = append(r.byUser[p.UserID], conv.ID)
	}
	return nil
}

func (r *ConversationRepository) Participant(ctx context.Context, id domainconv.ID, userID domainuser.ID) (*domainconv.Participant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if _, ok := r.byID[id]; !ok {
		return nil, domainconv.ErrNotFound
	}
	for _, p := range r.participants[id] {
		if p.UserID == userID {
			copied := p
			return &copied, nil
		}
	}
	return nil, domainconv.ErrNotParticipant
}

func (r *ConversationRepository) Participants(ctx context.Context, id domainconv.ID) ([]domainconv.Participant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if _, ok := r.byID[id]; !ok {
		return nil, domainconv.ErrNotFound
	}
	stored := r.participants[id]
	out := make([]domainconv.Participant, len(stored))
	copy(out, stored)
	return out, nil
}

func (r *ConversationRepository) ForUser(ctx context.Context, userID domainuser.ID) ([]*domainconv.Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := r.byUser[userID]
	out := make([]*domainconv.Conversation, 0, len(ids))
	for _, id := range ids {
		if conv, ok := r.byID[id]; ok {
			out = append(out, cloneConversation(conv))
		}
	}
	return out, nil
}

func cloneConversation(c *domainconv.Conversation) *domainconv.Conversation {
	if c == nil {
		return nil
	}
	copied := *c
	return &copied
}

// MessageRepository stores the per-conversation ledgers. Append order is the
// insertion order; timestamps are clamped so they never decrease within a
// conversation.
type MessageRepository struct {
	mu             sync.RWMutex
	byID           map[domainmsg.ID]*domainmsg.Message
	byConversation map[domainconv.ID][]*domainmsg.Message
}

func NewMessageRepository() *MessageRepository {
	return &MessageRepository{
		byID:           make(map[domainmsg.ID]*domainmsg.Message),
		byConversation: make(map[domainconv.ID][]*domainmsg.Message),
	}
}

func (r *MessageRepository) Append(ctx context.Context, msg *domainmsg.Message) error {
	if msg == nil {
		return domainmsg.ErrIDRequired
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	ledger := r.byConversation[msg.ConversationID]
	if n := len(ledger); n > 0 {
		if last := ledger[n-1]; msg.Timestamp.Before(last.Timestamp) {
			msg.Timestamp = last.Timestamp
		}
	}
	msg.Seq = int64(len(ledger) + 1)
	stored := cloneMessage(msg)
	r.byID[msg.ID] = stored
	r.byConversation[msg.ConversationID] = append(ledger, stored)
	return nil
}

func (r *MessageRepository) ByID(ctx context.Context, id domainmsg.ID) (*domainmsg.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if msg, ok := r.byID[id]; ok {
		return cloneMessage(msg), nil
	}
	return nil, domainmsg.ErrNotFound
}

func (r *MessageRepository) ForConversation(ctx context.Context, convID domainconv.ID) ([]*domainmsg.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ledger := r.byConversation[convID]
	out := make([]*domainmsg.Message, 0, len(ledger))
	for _, msg := range ledger {
		out = append(out, cloneMessage(msg))
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Seq < out[j].Seq
		}
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out, nil
}

func (r *MessageRepository) LastForConversation(ctx context.Context, convID domainconv.ID) (*domainmsg.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ledger := r.byConversation[convID]
	if len(ledger) == 0 {
		return nil, domainmsg.ErrNotFound
	}
	return cloneMessage(ledger[len(ledger)-1]), nil
}

func cloneMessage(m *domainmsg.Message) *domainmsg.Message {
	if m == nil {
		return nil
	}
	copied := *m
	if m.Attachment != nil {
		attachment := *m.Attachment
		copied.Attachment = &attachment
	}
	return &copied
}

// SeenStore keeps read receipts keyed by (message, user). Mark is idempotent.
type SeenStore struct {
	mu    sync.RWMutex
	marks map[domainmsg.ID]map[domainuser.ID]domainmsg.SeenMark
}

func NewSeenStore() *SeenStore {
	return &SeenStore{
		marks: make(map[domainmsg.ID]map[domainuser.ID]domainmsg.SeenMark),
	}
}

func (s *SeenStore) Mark(ctx context.Context, mark domainmsg.SeenMark) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	byUser, ok := s.marks[mark.MessageID]
	if !ok {
		byUser = make(map[domainuser.ID]domainmsg.SeenMark)
		s.marks[mark.MessageID] = byUser
	}
	if _, seen := byUser[mark.UserID]; seen {
		return nil
	}
	byUser[mark.UserID] = mark
	return nil
}

func (s *SeenStore) CountForMessage(ctx context.Context, id domainmsg.ID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.marks[id]), nil
}

func (s *SeenStore) UsersForMessage(ctx context.Context, id domainmsg.ID) ([]domainuser.ID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	byUser := s.marks[id]
	out := make([]domainuser.ID, 0, len(byUser))
	for userID := range byUser {
		out = append(out, userID)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

var (
	_ domainconv.Repository = (*ConversationRepository)(nil)
	_ domainmsg.Repository  = (*MessageRepository)(nil)
	_ domainmsg.SeenStore   = (*SeenStore)(nil)
)
