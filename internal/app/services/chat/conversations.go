package chat

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	domainconv "pingme/internal/domain/conversation"
	domainuser "pingme/internal/domain/user"
)

// StartPrivate returns the existing private conversation for the pair or
// creates one. The pair-key uniqueness constraint in the store closes the
// race between concurrent first calls; a loser re-reads the winner's row.
func (s *Service) StartPrivate(ctx context.Context, userID, peerID domainuser.ID) (*domainconv.Conversation, error) {
	if s.Conversations == nil || s.Users == nil {
		return nil, errDependency("conversation repository")
	}
	if strings.TrimSpace(string(peerID)) == "" {
		return nil, domainconv.ErrCreatorRequired
	}
	if userID == peerID {
		return nil, domainconv.ErrSelfConversation
	}
	peer, err := s.Users.ByID(ctx, peerID)
	if err != nil {
		return nil, err
	}

	pairKey := domainconv.PairKey(userID, peerID)
	if existing, err := s.Conversations.ByPairKey(ctx, pairKey); err == nil {
		return existing, nil
	} else if !errors.Is(err, domainconv.ErrNotFound) {
		return nil, err
	}

	conv, participants, err := domainconv.NewPrivate(domainconv.CreatePrivateParams{
		ID:        domainconv.ID(uuid.NewString()),
		CreatorID: userID,
		PeerID:    peerID,
		PeerName:  peer.Name,
		Now:       time.Now(),
	})
	if err != nil {
		return nil, err
	}
	if err := s.Conversations.CreateWithParticipants(ctx, conv, participants); err != nil {
		if errors.Is(err, domainconv.ErrAlreadyExists) {
			return s.Conversations.ByPairKey(ctx, pairKey)
		}
		return nil, err
	}
	s.record(ctx, domainconv.Created{
		ConversationID: conv.ID,
		Kind:           conv.Kind,
		CreatorID:      userID,
		ParticipantIDs: participantIDs(participants),
		At:             conv.CreatedAt,
	})
	if s.Logger != nil {
		s.Logger.Info("private conversation created", "conversation_id", conv.ID, "pair_key", pairKey)
	}
	return conv, nil
}

// CreateGroup resolves member public ids and creates the group atomically.
// Resolution is all-or-nothing: one unknown id fails the whole call.
func (s *Service) CreateGroup(ctx context.Context, creatorID domainuser.ID, name string, memberPublicIDs []string) (*domainconv.Conversation, error) {
	if s.Conversations == nil || s.Users == nil {
		return nil, errDependency("conversation repository")
	}
	if strings.TrimSpace(name) == "" {
		return nil, domainconv.ErrNameRequired
	}
	if len(memberPublicIDs) < 1 || len(memberPublicIDs) > domainconv.MaxGroupMembers-1 {
		return nil, domainconv.ErrGroupSize
	}

	memberIDs := make([]domainuser.ID, 0, len(memberPublicIDs))
	for _, publicID := range memberPublicIDs {
		member, err := s.Users.ByPublicID(ctx, domainuser.NormalizePublicID(publicID))
		if err != nil {
			return nil, err
		}
		memberIDs = append(memberIDs, member.ID)
	}

	conv, participants, err := domainconv.NewGroup(domainconv.CreateGroupParams{
		ID:        domainconv.ID(uuid.NewString()),
		CreatorID: creatorID,
		Name:      name,
		MemberIDs: memberIDs,
		Now:       time.Now(),
	})
	if err != nil {
		return nil, err
	}
	if err := s.Conversations.CreateWithParticipants(ctx, conv, participants); err != nil {
		return nil, err
	}
	s.record(ctx, domainconv.Created{
		ConversationID: conv.ID,
		Kind:           conv.Kind,
		CreatorID:      creatorID,
		ParticipantIDs: participantIDs(participants),
		At:             conv.CreatedAt,
	})
	if s.Logger != nil {
		s.Logger.Info("group conversation created", "conversation_id", conv.ID, "members", len(participants))
	}
	return conv, nil
}

func participantIDs(participants []domainconv.Participant) []domainuser.ID {
	ids := make([]domainuser.ID, 0, len(participants))
	for _, p := range participants {
		ids = append(ids, p.UserID)
	}
	return ids
}
