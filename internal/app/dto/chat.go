package dto

import (
	"time"

	"pingme/internal/app/services/chat"
	domainconv "pingme/internal/domain/conversation"
	domainmsg "pingme/internal/domain/message"
)

// Conversation describes chat metadata.
type Conversation struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Kind         string    `json:"kind"`
	CreatorID    string    `json:"creator_id"`
	Participants []string  `json:"participants"`
	CreatedAt    time.Time `json:"created_at"`
}

// FeedEntry is one row of the conversation list, newest activity first.
type FeedEntry struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	Kind         string            `json:"kind"`
	PeerOnline   bool              `json:"peer_online"`
	Participants []FeedParticipant `json:"participants"`
	LastMessage  *MessagePreview   `json:"last_message,omitempty"`
}

type FeedParticipant struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Online bool   `json:"online"`
}

type MessagePreview struct {
	Content    string    `json:"content"`
	Timestamp  time.Time `json:"timestamp"`
	SenderName string    `json:"sender_name"`
}

type FeedList struct {
	Items []FeedEntry `json:"items"`
}

// ChatMessage contains a single message payload.
type ChatMessage struct {
	ID              string    `json:"id"`
	ConversationID  string    `json:"conversation_id"`
	SenderID        string    `json:"sender_id"`
	SenderName      string    `json:"sender_name"`
	Kind            string    `json:"kind"`
	Content         string    `json:"content"`
	Timestamp       time.Time `json:"timestamp"`
	FileName        string    `json:"file_name,omitempty"`
	FileSize        int64     `json:"file_size,omitempty"`
	MIMEType        string    `json:"mime_type,omitempty"`
	DurationSeconds float64   `json:"duration_seconds,omitempty"`
	SeenBy          []string  `json:"seen_by"`
}

type ChatMessageList struct {
	Items []ChatMessage `json:"items"`
}

// MessageStatus reports the aggregated delivery state of a message.
type MessageStatus struct {
	MessageID       string `json:"message_id"`
	Status          string `json:"status"`
	SeenCount       int    `json:"seen_count"`
	TotalRecipients int    `json:"total_recipients"`
}

func MapConversation(conv *domainconv.Conversation, participants []domainconv.Participant) Conversation {
	if conv == nil {
		return Conversation{}
	}
	ids := make([]string, 0, len(participants))
	for _, p := range participants {
		ids = append(ids, string(p.UserID))
	}
	return Conversation{
		ID:           string(conv.ID),
		Name:         conv.Name,
		Kind:         string(conv.Kind),
		CreatorID:    string(conv.CreatorID),
		Participants: ids,
		CreatedAt:    conv.CreatedAt,
	}
}

func MapFeed(entries []chat.FeedEntry) FeedList {
	items := make([]FeedEntry, 0, len(entries))
	for _, entry := range entries {
		items = append(items, MapFeedEntry(entry))
	}
	return FeedList{Items: items}
}

func MapFeedEntry(entry chat.FeedEntry) FeedEntry {
	participants := make([]FeedParticipant, 0, len(entry.Participants))
	for _, p := range entry.Participants {
		participants = append(participants, FeedParticipant{
			ID:     string(p.ID),
			Name:   p.Name,
			Online: p.Online,
		})
	}
	out := FeedEntry{
		ID:           string(entry.ConversationID),
		Name:         entry.Name,
		Kind:         string(entry.Kind),
		PeerOnline:   entry.PeerOnline,
		Participants: participants,
	}
	if entry.LastMessage != nil {
		out.LastMessage = &MessagePreview{
			Content:    entry.LastMessage.Content,
			Timestamp:  entry.LastMessage.Timestamp,
			SenderName: entry.LastMessage.SenderName,
		}
	}
	return out
}

func MapMessages(views []chat.MessageView) ChatMessageList {
	items := make([]ChatMessage, 0, len(views))
	for _, view := range views {
		items = append(items, MapMessageView(view))
	}
	return ChatMessageList{Items: items}
}

func MapMessageView(view chat.MessageView) ChatMessage {
	msg := MapMessage(view.Message)
	msg.SenderName = view.SenderName
	msg.SeenBy = make([]string, 0, len(view.SeenBy))
	for _, id := range view.SeenBy {
		msg.SeenBy = append(msg.SeenBy, string(id))
	}
	return msg
}

func MapMessage(m *domainmsg.Message) ChatMessage {
	if m == nil {
		return ChatMessage{}
	}
	out := ChatMessage{
		ID:             string(m.ID),
		ConversationID: string(m.ConversationID),
		SenderID:       string(m.SenderID),
		Kind:           string(m.Kind),
		Content:        m.Content,
		Timestamp:      m.Timestamp,
		SeenBy:         []string{},
	}
	if m.Attachment != nil {
		out.FileName = m.Attachment.OriginalName
		out.FileSize = m.Attachment.SizeBytes
		out.MIMEType = m.Attachment.MIMEType
		out.DurationSeconds = m.Attachment.DurationSeconds
	}
	return out
}

func MapStatus(id domainmsg.ID, status domainmsg.DeliveryStatus) MessageStatus {
	return MessageStatus{
		MessageID:       string(id),
		Status:          status.Status,
		SeenCount:       status.SeenCount,
		TotalRecipients: status.TotalRecipients,
	}
}
