package chat

import (
	"context"
	"errors"
	"sort"
	"time"

	domainconv "pingme/internal/domain/conversation"
	domainmsg "pingme/internal/domain/message"
	domainuser "pingme/internal/domain/user"
)

// FeedEntry is one row of the per-user conversation list.
type FeedEntry struct {
	ConversationID domainconv.ID
	Name           string
	Kind           domainconv.Kind
	PeerOnline     bool
	Participants   []FeedParticipant
	LastMessage    *FeedPreview
}

type FeedParticipant struct {
	ID     domainuser.ID
	Name   string
	Online bool
}

type FeedPreview struct {
	Content    string
	Timestamp  time.Time
	SenderName string
}

// Feed composes the conversation list: private rows take the peer's name and
// presence, group rows the stored name and any-non-self-online. Sorted by
// last-message recency, conversations without messages last.
func (s *Service) Feed(ctx context.Context, userID domainuser.ID) ([]FeedEntry, error) {
	if s.Conversations == nil || s.Messages == nil || s.Users == nil {
		return nil, errDependency("conversation repository")
	}
	convs, err := s.Conversations.ForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	cache := make(map[domainuser.ID]*domainuser.User)
	entries := make([]FeedEntry, 0, len(convs))
	for _, conv := range convs {
		participants, err := s.Conversations.Participants(ctx, conv.ID)
		if err != nil {
			return nil, err
		}
		entry := FeedEntry{
			ConversationID: conv.ID,
			Kind:           conv.Kind,
			Name:           conv.Name,
			Participants:   make([]FeedParticipant, 0, len(participants)),
		}
		for _, p := range participants {
			u := s.lookupUser(ctx, cache, p.UserID)
			fp := FeedParticipant{ID: p.UserID, Name: "Unknown"}
			if u != nil {
				fp.Name = u.Name
				fp.Online = u.Online
			}
			entry.Participants = append(entry.Participants, fp)
			if p.UserID == userID {
				continue
			}
			if conv.Kind == domainconv.KindGroup && fp.Online {
				entry.PeerOnline = true
			}
		}
		if conv.Kind == domainconv.KindPrivate {
			entry.Name = "Unknown User"
			entry.PeerOnline = false
			for _, p := range participants {
				if p.UserID == userID {
					continue
				}
				if u := s.lookupUser(ctx, cache, p.UserID); u != nil {
					entry.Name = u.Name
					entry.PeerOnline = u.Online
				}
				break
			}
		}

		last, err := s.Messages.LastForConversation(ctx, conv.ID)
		switch {
		case err == nil:
			entry.LastMessage = &FeedPreview{
				Content:    previewContent(last),
				Timestamp:  last.Timestamp,
				SenderName: s.userName(ctx, cache, last.SenderID),
			}
		case errors.Is(err, domainmsg.ErrNotFound):
			// no messages yet; sorts last
		default:
			return nil, err
		}
		entries = append(entries, entry)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return lastTimestamp(entries[i]).After(lastTimestamp(entries[j]))
	})
	return entries, nil
}

func previewContent(msg *domainmsg.Message) string {
	if msg.Content != "" {
		return msg.Content
	}
	switch msg.Kind {
	case domainmsg.KindFile:
		name := ""
		if msg.Attachment != nil {
			name = msg.Attachment.OriginalName
		}
		return "📎 " + name
	case domainmsg.KindAudio:
		return "🎵 Voice message"
	case domainmsg.KindImage:
		return "📷 Image"
	default:
		return msg.Content
	}
}

func lastTimestamp(entry FeedEntry) time.Time {
	if entry.LastMessage == nil {
		// epoch minimum keeps empty conversations at the bottom
		return time.Time{}
	}
	return entry.LastMessage.Timestamp
}
