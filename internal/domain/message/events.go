package message

import (
	"time"

	"pingme/internal/domain/conversation"
	"pingme/internal/domain/user"
)

type Sent struct {
	MessageID      ID
	ConversationID conversation.ID
	SenderID       user.ID
	Kind           Kind
	At             time.Time
}

func (e Sent) EventName() string     { return "message.sent" }
func (e Sent) AggregateID() string   { return string(e.MessageID) }
func (e Sent) OccurredAt() time.Time { return e.At }
