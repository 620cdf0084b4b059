package chat

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	domainconv "pingme/internal/domain/conversation"
	domainmsg "pingme/internal/domain/message"
	domainuser "pingme/internal/domain/user"
)

// MessageView is a ledger entry enriched with reader-facing context.
type MessageView struct {
	*domainmsg.Message
	SenderName string
	SeenBy     []domainuser.ID
}

// SendText appends a text message. The full message is returned so the
// sender's client can render it without a second round trip.
func (s *Service) SendText(ctx context.Context, convID domainconv.ID, senderID domainuser.ID, content string) (*domainmsg.Message, error) {
	return s.append(ctx, convID, senderID, domainmsg.KindText, content, nil)
}

// SendAttachment appends a file, audio or image message. Content defaults to
// the conventional label for the kind when the caller supplies none.
func (s *Service) SendAttachment(ctx context.Context, convID domainconv.ID, senderID domainuser.ID, kind domainmsg.Kind, content string, attachment *domainmsg.Attachment) (*domainmsg.Message, error) {
	if kind == domainmsg.KindText {
		return nil, domainmsg.ErrInvalidKind
	}
	if strings.TrimSpace(content) == "" && attachment != nil {
		content = attachmentLabel(kind, attachment.OriginalName)
	}
	return s.append(ctx, convID, senderID, kind, content, attachment)
}

func (s *Service) append(ctx context.Context, convID domainconv.ID, senderID domainuser.ID, kind domainmsg.Kind, content string, attachment *domainmsg.Attachment) (*domainmsg.Message, error) {
	if s.Messages == nil {
		return nil, errDependency("message repository")
	}
	if _, err := s.Authorize(ctx, convID, senderID); err != nil {
		return nil, err
	}
	msg, err := domainmsg.NewMessage(domainmsg.CreateParams{
		ID:             domainmsg.ID(uuid.NewString()),
		ConversationID: convID,
		SenderID:       senderID,
		Kind:           kind,
		Content:        content,
		Attachment:     attachment,
		Now:            time.Now(),
	})
	if err != nil {
		return nil, err
	}
	if err := s.Messages.Append(ctx, msg); err != nil {
		return nil, err
	}
	s.record(ctx, domainmsg.Sent{
		MessageID:      msg.ID,
		ConversationID: msg.ConversationID,
		SenderID:       msg.SenderID,
		Kind:           msg.Kind,
		At:             msg.Timestamp,
	})
	return msg, nil
}

// ListMessages returns the full ordered ledger of a conversation, enriched
// with sender names and seen-by lists. No pagination yet; a cursor parameter
// is the forward-compatible extension point.
func (s *Service) ListMessages(ctx context.Context, convID domainconv.ID, userID domainuser.ID) ([]MessageView, error) {
	if s.Messages == nil || s.Seen == nil {
		return nil, errDependency("message repository")
	}
	if _, err := s.Authorize(ctx, convID, userID); err != nil {
		return nil, err
	}
	msgs, err := s.Messages.ForConversation(ctx, convID)
	if err != nil {
		return nil, err
	}
	cache := make(map[domainuser.ID]*domainuser.User)
	views := make([]MessageView, 0, len(msgs))
	for _, msg := range msgs {
		seenBy, err := s.Seen.UsersForMessage(ctx, msg.ID)
		if err != nil {
			return nil, err
		}
		views = append(views, MessageView{
			Message:    msg,
			SenderName: s.userName(ctx, cache, msg.SenderID),
			SeenBy:     seenBy,
		})
	}
	return views, nil
}

// Attachment returns a message with payload metadata after checking the
// caller's membership in the owning conversation.
func (s *Service) Attachment(ctx context.Context, msgID domainmsg.ID, userID domainuser.ID) (*domainmsg.Message, error) {
	if s.Messages == nil {
		return nil, errDependency("message repository")
	}
	msg, err := s.Messages.ByID(ctx, msgID)
	if err != nil {
		return nil, err
	}
	if _, err := s.Authorize(ctx, msg.ConversationID, userID); err != nil {
		return nil, err
	}
	if !msg.HasAttachment() {
		return nil, domainmsg.ErrNoAttachment
	}
	return msg, nil
}

func attachmentLabel(kind domainmsg.Kind, fileName string) string {
	switch kind {
	case domainmsg.KindAudio:
		return "🎵 Voice message"
	case domainmsg.KindImage:
		if fileName == "" {
			return "📷 Image"
		}
		return "📎 " + fileName
	default:
		return "📎 " + fileName
	}
}
