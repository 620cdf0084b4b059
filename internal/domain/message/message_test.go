package message

import (
	"testing"
	"time"
)

func TestNewMessageValidation(t *testing.T) {
	now := time.Now()
	attachment := &Attachment{BlobRef: "uploads/a.pdf", OriginalName: "a.pdf", SizeBytes: 10}

	cases := []struct {
		name       string
		kind       Kind
		content    string
		attachment *Attachment
		wantErr    error
	}{
		{"text ok", KindText, "hello", nil, nil},
		{"text empty", KindText, "   ", nil, ErrContentRequired},
		{"file ok", KindFile, "", attachment, nil},
		{"file without attachment", KindFile, "", nil, ErrAttachmentRequired},
		{"file without blob ref", KindFile, "", &Attachment{OriginalName: "a"}, ErrAttachmentRequired},
		{"image without attachment", KindImage, "", nil, ErrAttachmentRequired},
		{"unknown kind", Kind("video"), "x", attachment, ErrInvalidKind},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewMessage(CreateParams{
				ID:             "m1",
				ConversationID: "c1",
				SenderID:       "u1",
				Kind:           tc.kind,
				Content:        tc.content,
				Attachment:     tc.attachment,
				Now:            now,
			})
			if err != tc.wantErr {
				t.Fatalf("NewMessage() error = %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestDeriveStatus(t *testing.T) {
	cases := []struct {
		name            string
		seen            int
		totalRecipients int
		want            string
	}{
		{"nobody seen", 0, 3, StatusDelivered},
		{"some seen", 1, 3, StatusPartiallySeen},
		{"almost all seen", 2, 3, StatusPartiallySeen},
		{"all seen", 3, 3, StatusSeen},
		{"single recipient seen", 1, 1, StatusSeen},
		{"no recipients", 0, 0, StatusSeen},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := DeriveStatus(tc.seen, tc.totalRecipients)
			if got.Status != tc.want {
				t.Fatalf("DeriveStatus(%d, %d) = %q, want %q", tc.seen, tc.totalRecipients, got.Status, tc.want)
			}
			if got.SeenCount != tc.seen || got.TotalRecipients != tc.totalRecipients {
				t.Fatalf("DeriveStatus counts = %+v", got)
			}
		})
	}
}
