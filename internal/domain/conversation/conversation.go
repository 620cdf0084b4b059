package conversation

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"pingme/internal/domain/user"
)

var (
	ErrIDRequired       = errors.New("conversation: id is required")
	ErrCreatorRequired  = errors.New("conversation: creator is required")
	ErrNameRequired     = errors.New("conversation: group name is required")
	ErrSelfConversation = errors.New("conversation: cannot start a chat with yourself")
	ErrGroupSize        = errors.New("conversation: group must have 2-10 members including the creator")
	ErrAlreadyExists    = errors.New("conversation: private conversation already exists for this pair")
	ErrNotFound         = errors.New("conversation: not found")
	ErrNotParticipant   = errors.New("conversation: user is not a participant")
)

type ID string

type Kind string

const (
	KindPrivate Kind = "private"
	KindGroup   Kind = "group"
)

// Group size bounds count the creator.
const (
	MinGroupMembers = 2
	MaxGroupMembers = 10
)

type Conversation struct {
	ID        ID
	Name      string
	Kind      Kind
	CreatorID user.ID
	// PairKey is the normalized unordered participant pair. Set for private
	// conversations only; the storage layer keeps it unique.
	PairKey   string
	CreatedAt time.Time
}

type Participant struct {
	ConversationID ID
	UserID         user.ID
	JoinedAt       time.Time
}

// PairKey normalizes an unordered user pair into a single comparable key.
func PairKey(a, b user.ID) string {
	ids := []string{string(a), string(b)}
	sort.Strings(ids)
	return ids[0] + "|" + ids[1]
}

type CreatePrivateParams struct {
	ID        ID
	CreatorID user.ID
	PeerID    user.ID
	PeerName  string
	Now       time.Time
}

// NewPrivate builds a private conversation together with both membership rows.
func NewPrivate(params CreatePrivateParams) (*Conversation, []Participant, error) {
	id := strings.TrimSpace(string(params.ID))
	if id == "" {
		return nil, nil, ErrIDRequired
	}
	creator := user.ID(strings.TrimSpace(string(params.CreatorID)))
	peer := user.ID(strings.TrimSpace(string(params.PeerID)))
	if creator == "" || peer == "" {
		return nil, nil, ErrCreatorRequired
	}
	if creator == peer {
		return nil, nil, ErrSelfConversation
	}
	now := params.Now
	if now.IsZero() {
		now = time.Now()
	}
	now = now.UTC()

	name := "Private chat"
	if peerName := strings.TrimSpace(params.PeerName); peerName != "" {
		name = "Private chat with " + peerName
	}
	conv := &Conversation{
		ID:        ID(id),
		Name:      name,
		Kind:      KindPrivate,
		CreatorID: creator,
		PairKey:   PairKey(creator, peer),
		CreatedAt: now,
	}
	participants := []Participant{
		{ConversationID: conv.ID, UserID: creator, JoinedAt: now},
		{ConversationID: conv.ID, UserID: peer, JoinedAt: now},
	}
	return conv, participants, nil
}

type CreateGroupParams struct {
	ID        ID
	CreatorID user.ID
	Name      string
	MemberIDs []user.ID
	Now       time.Time
}

// NewGroup builds a group conversation with the creator plus the given members.
// Members are de-duplicated and the creator never appears twice.
func NewGroup(params CreateGroupParams) (*Conversation, []Participant, error) {
	id := strings.TrimSpace(string(params.ID))
	if id == "" {
		return nil, nil, ErrIDRequired
	}
	creator := user.ID(strings.TrimSpace(string(params.CreatorID)))
	if creator == "" {
		return nil, nil, ErrCreatorRequired
	}
	name := strings.TrimSpace(params.Name)
	if name == "" {
		return nil, nil, ErrNameRequired
	}
	now := params.Now
	if now.IsZero() {
		now = time.Now()
	}
	now = now.UTC()

	members := make([]user.ID, 0, len(params.MemberIDs)+1)
	seen := map[user.ID]struct{}{creator: {}}
	members = append(members, creator)
	for _, member := range params.MemberIDs {
		member = user.ID(strings.TrimSpace(string(member)))
		if member == "" {
			continue
		}
		if _, ok := seen[member]; ok {
			continue
		}
		seen[member] = struct{}{}
		members = append(members, member)
	}
	if len(members) < MinGroupMembers || len(members) > MaxGroupMembers {
		return nil, nil, ErrGroupSize
	}

	conv := &Conversation{
		ID:        ID(id),
		Name:      name,
		Kind:      KindGroup,
		CreatorID: creator,
		CreatedAt: now,
	}
	participants := make([]Participant, 0, len(members))
	for _, member := range members {
		participants = append(participants, Participant{
			ConversationID: conv.ID,
			UserID:         member,
			JoinedAt:       now,
		})
	}
	return conv, participants, nil
}

type Repository interface {
	ByID(ctx context.Context, id ID) (*Conversation, error)
	// ByPairKey resolves the unique private conversation for a normalized pair.
	ByPairKey(ctx context.Context, pairKey string) (*Conversation, error)
	// CreateWithParticipants persists the conversation and all membership rows
	// atomically. Returns ErrAlreadyExists when the private pair key is taken.
	CreateWithParticipants(ctx context.Context, conv *Conversation, participants []Participant) error
	Participant(ctx context.Context, id ID, userID user.ID) (*Participant, error)
	Participants(ctx context.Context, id ID) ([]Participant, error)
	ForUser(ctx context.Context, userID user.ID) ([]*Conversation, error)
}
