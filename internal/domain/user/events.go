package user

import "time"

type Registered struct {
	UserID   ID
	PublicID string
	Email    string
	At       time.Time
}

func (e Registered) EventName() string     { return "user.registered" }
func (e Registered) AggregateID() string   { return string(e.UserID) }
func (e Registered) OccurredAt() time.Time { return e.At }
