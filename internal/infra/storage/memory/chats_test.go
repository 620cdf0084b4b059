package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	domainconv "pingme/internal/domain/conversation"
	domainmsg "pingme/internal/domain/message"
	domainuser "pingme/internal/domain/user"
)

func privateFixture(id string, a, b domainuser.ID) (*domainconv.Conversation, []domainconv.Participant) {
	now := time.Now()
	conv := &domainconv.Conversation{
		ID:        domainconv.ID(id),
		Name:      "Private chat",
		Kind:      domainconv.KindPrivate,
		CreatorID: a,
		PairKey:   domainconv.PairKey(a, b),
		CreatedAt: now,
	}
	participants := []domainconv.Participant{
		{ConversationID: conv.ID, UserID: a, JoinedAt: now},
		{ConversationID: conv.ID, UserID: b, JoinedAt: now},
	}
	return conv, participants
}

func TestCreateWithParticipantsEnforcesPairKey(t *testing.T) {
	repo := NewConversationRepository()
	ctx := context.Background()

	conv, participants := privateFixture("c1", "u-a", "u-b")
	if err := repo.CreateWithParticipants(ctx, conv, participants); err != nil {
		t.Fatalf("first create error = %v", err)
	}

	dup, dupParticipants := privateFixture("c2", "u-b", "u-a")
	if err := repo.CreateWithParticipants(ctx, dup, dupParticipants); err != domainconv.ErrAlreadyExists {
		t.Fatalf("duplicate create error = %v, want %v", err, domainconv.ErrAlreadyExists)
	}

	found, err := repo.ByPairKey(ctx, domainconv.PairKey("u-a", "u-b"))
	if err != nil {
		t.Fatalf("ByPairKey() error = %v", err)
	}
	if found.ID != conv.ID {
		t.Fatalf("pair key resolves to %q, want %q", found.ID, conv.ID)
	}
}

func TestCreateWithParticipantsConcurrentPair(t *testing.T) {
	repo := NewConversationRepository()
	ctx := context.Background()

	const writers = 32
	errs := make([]error, writers)
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			conv, participants := privateFixture(fmt.Sprintf("c-%d", i), "u-a", "u-b")
			errs[i] = repo.CreateWithParticipants(ctx, conv, participants)
		}(i)
	}
	wg.Wait()

	created := 0
	for _, err := range errs {
		switch err {
		case nil:
			created++
		case domainconv.ErrAlreadyExists:
		default:
			t.Fatalf("unexpected error = %v", err)
		}
	}
	if created != 1 {
		t.Fatalf("winners = %d, want exactly 1", created)
	}
}

func TestParticipantDistinguishesMissingAndOutsider(t *testing.T) {
	repo := NewConversationRepository()
	ctx := context.Background()
	conv, participants := privateFixture("c1", "u-a", "u-b")
	if err := repo.CreateWithParticipants(ctx, conv, participants); err != nil {
		t.Fatalf("create error = %v", err)
	}

	if _, err := repo.Participant(ctx, "no-such-conv", "u-a"); err != domainconv.ErrNotFound {
		t.Fatalf("missing conversation error = %v, want %v", err, domainconv.ErrNotFound)
	}
	if _, err := repo.Participant(ctx, conv.ID, "u-z"); err != domainconv.ErrNotParticipant {
		t.Fatalf("outsider error = %v, want %v", err, domainconv.ErrNotParticipant)
	}
	p, err := repo.Participant(ctx, conv.ID, "u-b")
	if err != nil {
		t.Fatalf("member lookup error = %v", err)
	}
	if p.UserID != "u-b" {
		t.Fatalf("participant = %+v", p)
	}
}

func TestAppendClampsTimestampsAndAssignsSeq(t *testing.T) {
	repo := NewMessageRepository()
	ctx := context.Background()
	base := time.Now()

	first := &domainmsg.Message{ID: "m1", ConversationID: "c1", SenderID: "u-a", Kind: domainmsg.KindText, Content: "one", Timestamp: base}
	if err := repo.Append(ctx, first); err != nil {
		t.Fatalf("Append(m1) error = %v", err)
	}
	// A clock that stepped backwards must not reorder the ledger.
	second := &domainmsg.Message{ID: "m2", ConversationID: "c1", SenderID: "u-b", Kind: domainmsg.KindText, Content: "two", Timestamp: base.Add(-time.Minute)}
	if err := repo.Append(ctx, second); err != nil {
		t.Fatalf("Append(m2) error = %v", err)
	}

	if second.Timestamp.Before(first.Timestamp) {
		t.Fatalf("timestamp not clamped: %v < %v", second.Timestamp, first.Timestamp)
	}
	if first.Seq != 1 || second.Seq != 2 {
		t.Fatalf("seq = %d, %d", first.Seq, second.Seq)
	}

	msgs, err := repo.ForConversation(ctx, "c1")
	if err != nil {
		t.Fatalf("ForConversation() error = %v", err)
	}
	if len(msgs) != 2 || msgs[0].ID != "m1" || msgs[1].ID != "m2" {
		t.Fatalf("ledger order = %v", []domainmsg.ID{msgs[0].ID, msgs[1].ID})
	}

	last, err := repo.LastForConversation(ctx, "c1")
	if err != nil {
		t.Fatalf("LastForConversation() error = %v", err)
	}
	if last.ID != "m2" {
		t.Fatalf("last = %q", last.ID)
	}

	if _, err := repo.LastForConversation(ctx, "empty"); err != domainmsg.ErrNotFound {
		t.Fatalf("empty conversation error = %v, want %v", err, domainmsg.ErrNotFound)
	}
}

func TestSeenStoreIdempotentMarks(t *testing.T) {
	store := NewSeenStore()
	ctx := context.Background()
	now := time.Now()

	for i := 0; i < 3; i++ {
		if err := store.Mark(ctx, domainmsg.SeenMark{MessageID: "m1", UserID: "u-a", SeenAt: now.Add(time.Duration(i) * time.Second)}); err != nil {
			t.Fatalf("Mark() round %d error = %v", i, err)
		}
	}
	if err := store.Mark(ctx, domainmsg.SeenMark{MessageID: "m1", UserID: "u-b", SeenAt: now}); err != nil {
		t.Fatalf("Mark(u-b) error = %v", err)
	}

	count, err := store.CountForMessage(ctx, "m1")
	if err != nil {
		t.Fatalf("CountForMessage() error = %v", err)
	}
	if count != 2 {
		t.Fatalf("count = %d, want 2", count)
	}

	users, err := store.UsersForMessage(ctx, "m1")
	if err != nil {
		t.Fatalf("UsersForMessage() error = %v", err)
	}
	if len(users) != 2 || users[0] != "u-a" || users[1] != "u-b" {
		t.Fatalf("users = %v", users)
	}
}
