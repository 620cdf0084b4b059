package conversation

import (
	"time"

	"pingme/internal/domain/user"
)

type Created struct {
	ConversationID ID
	Kind           Kind
	CreatorID      user.ID
	ParticipantIDs []user.ID
	At             time.Time
}

func (e Created) EventName() string     { return "conversation.created" }
func (e Created) AggregateID() string   { return string(e.ConversationID) }
func (e Created) OccurredAt() time.Time { return e.At }
