package chat

import (
	"context"
	"errors"
	"time"

	domainconv "pingme/internal/domain/conversation"
	domainmsg "pingme/internal/domain/message"
	domainuser "pingme/internal/domain/user"
)

// MarkSeen records read receipts for the given message ids. Ids that do not
// resolve, and messages in conversations the user does not belong to, are
// skipped: clients batch ids and stale entries are expected. Re-marking an
// already seen message is a no-op.
func (s *Service) MarkSeen(ctx context.Context, messageIDs []string, userID domainuser.ID) error {
	if s.Messages == nil || s.Seen == nil {
		return errDependency("seen store")
	}
	now := time.Now().UTC()
	for _, raw := range messageIDs {
		msg, err := s.Messages.ByID(ctx, domainmsg.ID(raw))
		if err != nil {
			if errors.Is(err, domainmsg.ErrNotFound) {
				continue
			}
			return err
		}
		if _, err := s.Authorize(ctx, msg.ConversationID, userID); err != nil {
			if errors.Is(err, domainconv.ErrNotParticipant) || errors.Is(err, domainconv.ErrNotFound) {
				continue
			}
			return err
		}
		if err := s.Seen.Mark(ctx, domainmsg.SeenMark{
			MessageID: msg.ID,
			UserID:    userID,
			SeenAt:    now,
		}); err != nil {
			return err
		}
	}
	return nil
}

// Status recomputes the delivery aggregate from current seen marks.
// Recipients are the conversation participants minus the sender.
func (s *Service) Status(ctx context.Context, msgID domainmsg.ID, userID domainuser.ID) (domainmsg.DeliveryStatus, error) {
	if s.Messages == nil || s.Seen == nil {
		return domainmsg.DeliveryStatus{}, errDependency("seen store")
	}
	msg, err := s.Messages.ByID(ctx, msgID)
	if err != nil {
		return domainmsg.DeliveryStatus{}, err
	}
	if _, err := s.Authorize(ctx, msg.ConversationID, userID); err != nil {
		return domainmsg.DeliveryStatus{}, err
	}
	participants, err := s.Conversations.Participants(ctx, msg.ConversationID)
	if err != nil {
		return domainmsg.DeliveryStatus{}, err
	}
	totalRecipients := 0
	for _, p := range participants {
		if p.UserID != msg.SenderID {
			totalRecipients++
		}
	}
	seenCount, err := s.Seen.CountForMessage(ctx, msg.ID)
	if err != nil {
		return domainmsg.DeliveryStatus{}, err
	}
	return domainmsg.DeriveStatus(seenCount, totalRecipients), nil
}
