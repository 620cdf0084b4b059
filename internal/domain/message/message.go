package message

import (
	"context"
	"errors"
	"strings"
	"time"

	"pingme/internal/domain/conversation"
	"pingme/internal/domain/user"
)

var (
	ErrIDRequired           = errors.New("message: id is required")
	ErrConversationRequired = errors.New("message: conversation is required")
	ErrSenderRequired       = errors.New("message: sender is required")
	ErrInvalidKind          = errors.New("message: invalid kind")
	ErrContentRequired      = errors.New("message: text content is required")
	ErrAttachmentRequired   = errors.New("message: attachment metadata is required")
	ErrNotFound             = errors.New("message: not found")
	ErrNoAttachment         = errors.New("message: no attachment")
)

type ID string

type Kind string

const (
	KindText  Kind = "text"
	KindFile  Kind = "file"
	KindAudio Kind = "audio"
	KindImage Kind = "image"
)

// Attachment carries blob metadata only; raw bytes live in the blob store.
type Attachment struct {
	BlobRef         string
	OriginalName    string
	SizeBytes       int64
	MIMEType        string
	DurationSeconds float64
}

type Message struct {
	ID             ID
	ConversationID conversation.ID
	SenderID       user.ID
	Kind           Kind
	Content        string
	Attachment     *Attachment
	Timestamp      time.Time
	// Seq is the per-conversation insertion order, assigned by the store.
	// Breaks timestamp ties.
	Seq int64
}

func (m *Message) HasAttachment() bool {
	return m.Attachment != nil && m.Attachment.BlobRef != ""
}

type CreateParams struct {
	ID             ID
	ConversationID conversation.ID
	SenderID       user.ID
	Kind           Kind
	Content        string
	Attachment     *Attachment
	Now            time.Time
}

func NewMessage(params CreateParams) (*Message, error) {
	id := strings.TrimSpace(string(params.ID))
	if id == "" {
		return nil, ErrIDRequired
	}
	if strings.TrimSpace(string(params.ConversationID)) == "" {
		return nil, ErrConversationRequired
	}
	if strings.TrimSpace(string(params.SenderID)) == "" {
		return nil, ErrSenderRequired
	}
	kind := Kind(strings.ToLower(strings.TrimSpace(string(params.Kind))))
	content := strings.TrimSpace(params.Content)
	switch kind {
	case KindText:
		if content == "" {
			return nil, ErrContentRequired
		}
	case KindFile, KindAudio, KindImage:
		if params.Attachment == nil || strings.TrimSpace(params.Attachment.BlobRef) == "" {
			return nil, ErrAttachmentRequired
		}
	default:
		return nil, ErrInvalidKind
	}

	now := params.Now
	if now.IsZero() {
		now = time.Now()
	}
	now = now.UTC()

	var attachment *Attachment
	if kind != KindText {
		copied := *params.Attachment
		attachment = &copied
	}
	return &Message{
		ID:             ID(id),
		ConversationID: params.ConversationID,
		SenderID:       params.SenderID,
		Kind:           kind,
		Content:        content,
		Attachment:     attachment,
		Timestamp:      now,
	}, nil
}

type Repository interface {
	// Append persists the message, assigns Seq and keeps timestamps
	// non-decreasing within the conversation.
	Append(ctx context.Context, msg *Message) error
	ByID(ctx context.Context, id ID) (*Message, error)
	// ForConversation returns messages ascending by timestamp, then Seq.
	ForConversation(ctx context.Context, convID conversation.ID) ([]*Message, error)
	// LastForConversation returns the newest message or ErrNotFound.
	LastForConversation(ctx context.Context, convID conversation.ID) (*Message, error)
}

// SeenMark records a read receipt for one (message, user) pair.
type SeenMark struct {
	MessageID ID
	UserID    user.ID
	SeenAt    time.Time
}

type SeenStore interface {
	// Mark inserts the seen mark when absent. Re-marking is a no-op.
	Mark(ctx context.Context, mark SeenMark) error
	CountForMessage(ctx context.Context, id ID) (int, error)
	UsersForMessage(ctx context.Context, id ID) ([]user.ID, error)
}

// Delivery status values derived from seen marks.
const (
	StatusDelivered     = "delivered"
	StatusPartiallySeen = "partially_seen"
	StatusSeen          = "seen"
)

// DeliveryStatus is a derived aggregate, recomputed on every call.
type DeliveryStatus struct {
	SeenCount       int
	TotalRecipients int
	Status          string
}

// DeriveStatus classifies a message by how many recipients saw it.
// A conversation where the sender is the only participant counts as seen.
func DeriveStatus(seenCount, totalRecipients int) DeliveryStatus {
	status := StatusPartiallySeen
	switch {
	case totalRecipients == 0:
		status = StatusSeen
	case seenCount == 0:
		status = StatusDelivered
	case seenCount >= totalRecipients:
		status = StatusSeen
	}
	return DeliveryStatus{
		SeenCount:       seenCount,
		TotalRecipients: totalRecipients,
		Status:          status,
	}
}
