package chat

import (
	"context"
	"testing"

	domainmsg "pingme/internal/domain/message"
)

func TestStatusAggregation(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	creator := seedUser(t, svc, "u-creator", "Creator", "CREATOR0")
	m1 := seedUser(t, svc, "u-m1", "First", "MEMBER01")
	m2 := seedUser(t, svc, "u-m2", "Second", "MEMBER02")
	m3 := seedUser(t, svc, "u-m3", "Third", "MEMBER03")

	conv, err := svc.CreateGroup(ctx, creator.ID, "Team", []string{m1.PublicID, m2.PublicID, m3.PublicID})
	if err != nil {
		t.Fatalf("CreateGroup() error = %v", err)
	}
	msg, err := svc.SendText(ctx, conv.ID, creator.ID, "standup in 5")
	if err != nil {
		t.Fatalf("SendText() error = %v", err)
	}

	status, err := svc.Status(ctx, msg.ID, creator.ID)
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if status.Status != domainmsg.StatusDelivered || status.SeenCount != 0 || status.TotalRecipients != 3 {
		t.Fatalf("initial status = %+v", status)
	}

	if err := svc.MarkSeen(ctx, []string{string(msg.ID)}, m1.ID); err != nil {
		t.Fatalf("MarkSeen(m1) error = %v", err)
	}
	status, err = svc.Status(ctx, msg.ID, creator.ID)
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if status.Status != domainmsg.StatusPartiallySeen || status.SeenCount != 1 {
		t.Fatalf("partial status = %+v", status)
	}

	if err := svc.MarkSeen(ctx, []string{string(msg.ID)}, m2.ID); err != nil {
		t.Fatalf("MarkSeen(m2) error = %v", err)
	}
	if err := svc.MarkSeen(ctx, []string{string(msg.ID)}, m3.ID); err != nil {
		t.Fatalf("MarkSeen(m3) error = %v", err)
	}
	status, err = svc.Status(ctx, msg.ID, creator.ID)
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if status.Status != domainmsg.StatusSeen || status.SeenCount != 3 {
		t.Fatalf("final status = %+v", status)
	}
}

func TestMarkSeenIsIdempotent(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	alice := seedUser(t, svc, "u-alice", "Alice", "ALICE000")
	bob := seedUser(t, svc, "u-bob", "Bob", "BOB00000")
	conv, err := svc.StartPrivate(ctx, alice.ID, bob.ID)
	if err != nil {
		t.Fatalf("StartPrivate() error = %v", err)
	}
	msg, err := svc.SendText(ctx, conv.ID, alice.ID, "hello")
	if err != nil {
		t.Fatalf("SendText() error = %v", err)
	}

	for i := 0; i < 3; i++ {
		if err := svc.MarkSeen(ctx, []string{string(msg.ID)}, bob.ID); err != nil {
			t.Fatalf("MarkSeen() round %d error = %v", i, err)
		}
	}
	status, err := svc.Status(ctx, msg.ID, alice.ID)
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if status.SeenCount != 1 || status.Status != domainmsg.StatusSeen {
		t.Fatalf("status after repeats = %+v", status)
	}
}

func TestMarkSeenSkipsInaccessibleIDs(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	alice := seedUser(t, svc, "u-alice", "Alice", "ALICE000")
	bob := seedUser(t, svc, "u-bob", "Bob", "BOB00000")
	eve := seedUser(t, svc, "u-eve", "Eve", "EVE00000")
	conv, err := svc.StartPrivate(ctx, alice.ID, bob.ID)
	if err != nil {
		t.Fatalf("StartPrivate() error = %v", err)
	}
	msg, err := svc.SendText(ctx, conv.ID, alice.ID, "hello")
	if err != nil {
		t.Fatalf("SendText() error = %v", err)
	}

	// Unknown ids and foreign conversations are skipped, valid ids still land.
	if err := svc.MarkSeen(ctx, []string{"no-such-message", string(msg.ID)}, bob.ID); err != nil {
		t.Fatalf("MarkSeen() error = %v", err)
	}
	if err := svc.MarkSeen(ctx, []string{string(msg.ID)}, eve.ID); err != nil {
		t.Fatalf("MarkSeen(outsider) error = %v", err)
	}

	status, err := svc.Status(ctx, msg.ID, alice.ID)
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if status.SeenCount != 1 {
		t.Fatalf("seen count = %d, want only bob", status.SeenCount)
	}
}

func TestStatusZeroRecipients(t *testing.T) {
	// A sender alone with their own message counts as fully seen.
	if got := domainmsg.DeriveStatus(0, 0); got.Status != domainmsg.StatusSeen {
		t.Fatalf("zero-recipient status = %q, want %q", got.Status, domainmsg.StatusSeen)
	}
}
