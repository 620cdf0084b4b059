package chat

import (
	"context"
	"testing"

	domainconv "pingme/internal/domain/conversation"
	domainmsg "pingme/internal/domain/message"
)

func TestSendTextValidation(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	alice := seedUser(t, svc, "u-alice", "Alice", "ALICE000")
	bob := seedUser(t, svc, "u-bob", "Bob", "BOB00000")
	conv, err := svc.StartPrivate(ctx, alice.ID, bob.ID)
	if err != nil {
		t.Fatalf("StartPrivate() error = %v", err)
	}

	if _, err := svc.SendText(ctx, conv.ID, alice.ID, "   "); err != domainmsg.ErrContentRequired {
		t.Fatalf("blank content error = %v, want %v", err, domainmsg.ErrContentRequired)
	}

	msg, err := svc.SendText(ctx, conv.ID, alice.ID, "hello")
	if err != nil {
		t.Fatalf("SendText() error = %v", err)
	}
	if msg.Kind != domainmsg.KindText || msg.Content != "hello" {
		t.Fatalf("message = %+v", msg)
	}
}

func TestSendTextRequiresMembership(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	alice := seedUser(t, svc, "u-alice", "Alice", "ALICE000")
	bob := seedUser(t, svc, "u-bob", "Bob", "BOB00000")
	eve := seedUser(t, svc, "u-eve", "Eve", "EVE00000")
	conv, err := svc.StartPrivate(ctx, alice.ID, bob.ID)
	if err != nil {
		t.Fatalf("StartPrivate() error = %v", err)
	}

	if _, err := svc.SendText(ctx, conv.ID, eve.ID, "hi"); err != domainconv.ErrNotParticipant {
		t.Fatalf("outsider error = %v, want %v", err, domainconv.ErrNotParticipant)
	}
	if _, err := svc.SendText(ctx, "no-such-conv", alice.ID, "hi"); err != domainconv.ErrNotFound {
		t.Fatalf("missing conversation error = %v, want %v", err, domainconv.ErrNotFound)
	}
}

func TestSendAttachmentDefaultsContent(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	alice := seedUser(t, svc, "u-alice", "Alice", "ALICE000")
	bob := seedUser(t, svc, "u-bob", "Bob", "BOB00000")
	conv, err := svc.StartPrivate(ctx, alice.ID, bob.ID)
	if err != nil {
		t.Fatalf("StartPrivate() error = %v", err)
	}

	cases := []struct {
		name        string
		kind        domainmsg.Kind
		attachment  *domainmsg.Attachment
		wantContent string
	}{
		{
			"file keeps original name",
			domainmsg.KindFile,
			&domainmsg.Attachment{BlobRef: "uploads/report.pdf", OriginalName: "report.pdf"},
			"📎 report.pdf",
		},
		{
			"audio gets voice label",
			domainmsg.KindAudio,
			&domainmsg.Attachment{BlobRef: "uploads/voice.webm", OriginalName: "voice.webm", DurationSeconds: 3.5},
			"🎵 Voice message",
		},
		{
			"image without name",
			domainmsg.KindImage,
			&domainmsg.Attachment{BlobRef: "uploads/pic"},
			"📷 Image",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			msg, err := svc.SendAttachment(ctx, conv.ID, alice.ID, tc.kind, "", tc.attachment)
			if err != nil {
				t.Fatalf("SendAttachment() error = %v", err)
			}
			if msg.Content != tc.wantContent {
				t.Fatalf("content = %q, want %q", msg.Content, tc.wantContent)
			}
		})
	}

	if _, err := svc.SendAttachment(ctx, conv.ID, alice.ID, domainmsg.KindText, "x", nil); err != domainmsg.ErrInvalidKind {
		t.Fatalf("text via attachment path error = %v, want %v", err, domainmsg.ErrInvalidKind)
	}
	if _, err := svc.SendAttachment(ctx, conv.ID, alice.ID, domainmsg.KindImage, "", nil); err != domainmsg.ErrAttachmentRequired {
		t.Fatalf("image without attachment error = %v, want %v", err, domainmsg.ErrAttachmentRequired)
	}
}

func TestListMessagesEnrichesAndOrders(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	alice := seedUser(t, svc, "u-alice", "Alice", "ALICE000")
	bob := seedUser(t, svc, "u-bob", "Bob", "BOB00000")
	conv, err := svc.StartPrivate(ctx, alice.ID, bob.ID)
	if err != nil {
		t.Fatalf("StartPrivate() error = %v", err)
	}

	first, err := svc.SendText(ctx, conv.ID, alice.ID, "hi")
	if err != nil {
		t.Fatalf("SendText() error = %v", err)
	}
	if _, err := svc.SendText(ctx, conv.ID, bob.ID, "hey"); err != nil {
		t.Fatalf("SendText() error = %v", err)
	}
	if err := svc.MarkSeen(ctx, []string{string(first.ID)}, bob.ID); err != nil {
		t.Fatalf("MarkSeen() error = %v", err)
	}

	views, err := svc.ListMessages(ctx, conv.ID, alice.ID)
	if err != nil {
		t.Fatalf("ListMessages() error = %v", err)
	}
	if len(views) != 2 {
		t.Fatalf("messages = %d, want 2", len(views))
	}
	if views[0].SenderName != "Alice" || views[1].SenderName != "Bob" {
		t.Fatalf("sender names = %q, %q", views[0].SenderName, views[1].SenderName)
	}
	if len(views[0].SeenBy) != 1 || views[0].SeenBy[0] != bob.ID {
		t.Fatalf("first message seen by = %v", views[0].SeenBy)
	}
	if len(views[1].SeenBy) != 0 {
		t.Fatalf("second message seen by = %v", views[1].SeenBy)
	}

	if _, err := svc.ListMessages(ctx, conv.ID, "u-ghost"); err != domainconv.ErrNotParticipant {
		t.Fatalf("outsider list error = %v, want %v", err, domainconv.ErrNotParticipant)
	}
}

func TestAttachmentLookupChecksMembership(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	alice := seedUser(t, svc, "u-alice", "Alice", "ALICE000")
	bob := seedUser(t, svc, "u-bob", "Bob", "BOB00000")
	eve := seedUser(t, svc, "u-eve", "Eve", "EVE00000")
	conv, err := svc.StartPrivate(ctx, alice.ID, bob.ID)
	if err != nil {
		t.Fatalf("StartPrivate() error = %v", err)
	}

	text, err := svc.SendText(ctx, conv.ID, alice.ID, "no payload here")
	if err != nil {
		t.Fatalf("SendText() error = %v", err)
	}
	withFile, err := svc.SendAttachment(ctx, conv.ID, alice.ID, domainmsg.KindFile, "", &domainmsg.Attachment{
		BlobRef:      "uploads/report.pdf",
		OriginalName: "report.pdf",
	})
	if err != nil {
		t.Fatalf("SendAttachment() error = %v", err)
	}

	if _, err := svc.Attachment(ctx, text.ID, alice.ID); err != domainmsg.ErrNoAttachment {
		t.Fatalf("text attachment error = %v, want %v", err, domainmsg.ErrNoAttachment)
	}
	if _, err := svc.Attachment(ctx, withFile.ID, eve.ID); err != domainconv.ErrNotParticipant {
		t.Fatalf("outsider attachment error = %v, want %v", err, domainconv.ErrNotParticipant)
	}
	msg, err := svc.Attachment(ctx, withFile.ID, bob.ID)
	if err != nil {
		t.Fatalf("Attachment() error = %v", err)
	}
	if msg.Attachment.BlobRef != "uploads/report.pdf" {
		t.Fatalf("blob ref = %q", msg.Attachment.BlobRef)
	}
}
