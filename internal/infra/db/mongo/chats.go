package mongo

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainconv "pingme/internal/domain/conversation"
	domainmsg "pingme/internal/domain/message"
	domainuser "pingme/internal/domain/user"
)

// ConversationRepository stores a conversation and its memberships as one
// document, so creation is atomic. The partial unique index on pair_key
// enforces at most one private conversation per unordered pair.
type ConversationRepository struct {
	col *mongo.Collection
}

func NewConversationRepository(db *mongo.Database) *ConversationRepository {
	col := db.Collection("conversations")
	_, _ = col.Indexes().CreateMany(context.Background(), []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "pair_key", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"pair_key": bson.M{"$type": "string"}}),
		},
		{Keys: bson.D{{Key: "participants.user_id", Value: 1}}},
	})
	return &ConversationRepository{col: col}
}

func (r *ConversationRepository) ByID(ctx context.Context, id domainconv.ID) (*domainconv.Conversation, error) {
	return r.findOne(ctx, bson.M{"_id": string(id)})
}

func (r *ConversationRepository) ByPairKey(ctx context.Context, pairKey string) (*domainconv.Conversation, error) {
	return r.findOne(ctx, bson.M{"pair_key": pairKey})
}

func (r *ConversationRepository) CreateWithParticipants(ctx context.Context, conv *domainconv.Conversation, participants []domainconv.Participant) error {
	doc := newConversationDocument(conv, participants)
	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domainconv.ErrAlreadyExists
		}
		return err
	}
	return nil
}

func (r *ConversationRepository) Participant(ctx context.Context, id domainconv.ID, userID domainuser.ID) (*domainconv.Participant, error) {
	conv, err := r.loadDocument(ctx, bson.M{"_id": string(id)})
	if err != nil {
		return nil, err
	}
	for _, p := range conv.Participants {
		if p.UserID == string(userID) {
			participant := p.toEntity(domainconv.ID(conv.ID))
			return &participant, nil
		}
	}
	return nil, domainconv.ErrNotParticipant
}

func (r *ConversationRepository) Participants(ctx context.Context, id domainconv.ID) ([]domainconv.Participant, error) {
	conv, err := r.loadDocument(ctx, bson.M{"_id": string(id)})
	if err != nil {
		return nil, err
	}
	out := make([]domainconv.Participant, 0, len(conv.Participants))
	for _, p := range conv.Participants {
		out = append(out, p.toEntity(domainconv.ID(conv.ID)))
	}
	return out, nil
}

func (r *ConversationRepository) ForUser(ctx context.Context, userID domainuser.ID) ([]*domainconv.Conversation, error) {
	cur, err := r.col.Find(ctx, bson.M{"participants.user_id": string(userID)})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []*domainconv.Conversation
	for cur.Next(ctx) {
		var doc conversationDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, doc.toEntity())
	}
	return out, cur.Err()
}

func (r *ConversationRepository) findOne(ctx context.Context, filter bson.M) (*domainconv.Conversation, error) {
	doc, err := r.loadDocument(ctx, filter)
	if err != nil {
		return nil, err
	}
	return doc.toEntity(), nil
}

func (r *ConversationRepository) loadDocument(ctx context.Context, filter bson.M) (*conversationDocument, error) {
	var doc conversationDocument
	if err := r.col.FindOne(ctx, filter).Decode(&doc); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, domainconv.ErrNotFound
		}
		return nil, err
	}
	return &doc, nil
}

type conversationDocument struct {
	ID           string                `bson:"_id"`
	Name         string                `bson:"name"`
	Kind         string                `bson:"kind"`
	CreatorID    string                `bson:"creator_id"`
	PairKey      *string               `bson:"pair_key,omitempty"`
	CreatedAt    int64                 `bson:"created_at"`
	Participants []participantDocument `bson:"participants"`
}

type participantDocument struct {
	UserID   string `bson:"user_id"`
	JoinedAt int64  `bson:"joined_at"`
}

func newConversationDocument(conv *domainconv.Conversation, participants []domainconv.Participant) conversationDocument {
	doc := conversationDocument{
		ID:        string(conv.ID),
		Name:      conv.Name,
		Kind:      string(conv.Kind),
		CreatorID: string(conv.CreatorID),
		CreatedAt: conv.CreatedAt.UnixMilli(),
	}
	if conv.PairKey != "" {
		pairKey := conv.PairKey
		doc.PairKey = &pairKey
	}
	doc.Participants = make([]participantDocument, 0, len(participants))
	for _, p := range participants {
		doc.Participants = append(doc.Participants, participantDocument{
			UserID:   string(p.UserID),
			JoinedAt: p.JoinedAt.UnixMilli(),
		})
	}
	return doc
}

func (d conversationDocument) toEntity() *domainconv.Conversation {
	conv := &domainconv.Conversation{
		ID:        domainconv.ID(d.ID),
		Name:      d.Name,
		Kind:      domainconv.Kind(d.Kind),
		CreatorID: domainuser.ID(d.CreatorID),
		CreatedAt: timestampToTime(d.CreatedAt),
	}
	if d.PairKey != nil {
		conv.PairKey = *d.PairKey
	}
	return conv
}

func (d participantDocument) toEntity(convID domainconv.ID) domainconv.Participant {
	return domainconv.Participant{
		ConversationID: convID,
		UserID:         domainuser.ID(d.UserID),
		JoinedAt:       timestampToTime(d.JoinedAt),
	}
}

// MessageRepository appends ledger entries with a per-conversation sequence
// drawn from a counters collection; Seq breaks timestamp ties.
type MessageRepository struct {
	col      *mongo.Collection
	counters *mongo.Collection
}

func NewMessageRepository(db *mongo.Database) *MessageRepository {
	col := db.Collection("messages")
	_, _ = col.Indexes().CreateOne(context.Background(), mongo.IndexModel{
		Keys: bson.D{{Key: "conversation_id", Value: 1}, {Key: "timestamp", Value: 1}, {Key: "seq", Value: 1}},
	})
	return &MessageRepository{col: col, counters: db.Collection("message_counters")}
}

func (r *MessageRepository) Append(ctx context.Context, msg *domainmsg.Message) error {
	seq, err := r.nextSeq(ctx, msg.ConversationID)
	if err != nil {
		return err
	}
	msg.Seq = seq

	// Clamp against the current newest entry so timestamps never decrease
	// within a conversation.
	if last, err := r.LastForConversation(ctx, msg.ConversationID); err == nil {
		if msg.Timestamp.Before(last.Timestamp) {
			msg.Timestamp = last.Timestamp
		}
	} else if err != domainmsg.ErrNotFound {
		return err
	}

	_, err = r.col.InsertOne(ctx, newMessageDocument(msg))
	return err
}

func (r *MessageRepository) ByID(ctx context.Context, id domainmsg.ID) (*domainmsg.Message, error) {
	var doc messageDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, domainmsg.ErrNotFound
		}
		return nil, err
	}
	return doc.toEntity(), nil
}

func (r *MessageRepository) ForConversation(ctx context.Context, convID domainconv.ID) ([]*domainmsg.Message, error) {
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: 1}, {Key: "seq", Value: 1}})
	cur, err := r.col.Find(ctx, bson.M{"conversation_id": string(convID)}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []*domainmsg.Message
	for cur.Next(ctx) {
		var doc messageDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, doc.toEntity())
	}
	return out, cur.Err()
}

func (r *MessageRepository) LastForConversation(ctx context.Context, convID domainconv.ID) (*domainmsg.Message, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "seq", Value: -1}})
	var doc messageDocument
	if err := r.col.FindOne(ctx, bson.M{"conversation_id": string(convID)}, opts).Decode(&doc); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, domainmsg.ErrNotFound
		}
		return nil, err
	}
	return doc.toEntity(), nil
}

func (r *MessageRepository) nextSeq(ctx context.Context, convID domainconv.ID) (int64, error) {
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	var counter struct {
		Seq int64 `bson:"seq"`
	}
	err := r.counters.FindOneAndUpdate(
		ctx,
		bson.M{"_id": string(convID)},
		bson.M{"$inc": bson.M{"seq": int64(1)}},
		opts,
	).Decode(&counter)
	if err != nil {
		return 0, err
	}
	return counter.Seq, nil
}

type messageDocument struct {
	ID             string              `bson:"_id"`
	ConversationID string              `bson:"conversation_id"`
	SenderID       string              `bson:"sender_id"`
	Kind           string              `bson:"kind"`
	Content        string              `bson:"content"`
	Attachment     *attachmentDocument `bson:"attachment,omitempty"`
	Timestamp      int64               `bson:"timestamp"`
	Seq            int64               `bson:"seq"`
}

type attachmentDocument struct {
	BlobRef         string  `bson:"blob_ref"`
	OriginalName    string  `bson:"original_name"`
	SizeBytes       int64   `bson:"size_bytes"`
	MIMEType        string  `bson:"mime_type"`
	DurationSeconds float64 `bson:"duration_seconds"`
}

func newMessageDocument(m *domainmsg.Message) messageDocument {
	doc := messageDocument{
		ID:             string(m.ID),
		ConversationID: string(m.ConversationID),
		SenderID:       string(m.SenderID),
		Kind:           string(m.Kind),
		Content:        m.Content,
		Timestamp:      m.Timestamp.UnixMilli(),
		Seq:            m.Seq,
	}
	if m.Attachment != nil {
		doc.Attachment = &attachmentDocument{
			BlobRef:         m.Attachment.BlobRef,
			OriginalName:    m.Attachment.OriginalName,
			SizeBytes:       m.Attachment.SizeBytes,
			MIMEType:        m.Attachment.MIMEType,
			DurationSeconds: m.Attachment.DurationSeconds,
		}
	}
	return doc
}

func (d messageDocument) toEntity() *domainmsg.Message {
	msg := &domainmsg.Message{
		ID:             domainmsg.ID(d.ID),
		ConversationID: domainconv.ID(d.ConversationID),
		SenderID:       domainuser.ID(d.SenderID),
		Kind:           domainmsg.Kind(d.Kind),
		Content:        d.Content,
		Timestamp:      timestampToTime(d.Timestamp),
		Seq:            d.Seq,
	}
	if d.Attachment != nil {
		msg.Attachment = &domainmsg.Attachment{
			BlobRef:         d.Attachment.BlobRef,
			OriginalName:    d.Attachment.OriginalName,
			SizeBytes:       d.Attachment.SizeBytes,
			MIMEType:        d.Attachment.MIMEType,
			DurationSeconds: d.Attachment.DurationSeconds,
		}
	}
	return msg
}

// SeenStore persists read receipts with a unique (message, user) index;
// upserts make Mark idempotent.
type SeenStore struct {
	col *mongo.Collection
}

func NewSeenStore(db *mongo.Database) *SeenStore {
	col := db.Collection("message_seen")
	_, _ = col.Indexes().CreateOne(context.Background(), mongo.IndexModel{
		Keys:    bson.D{{Key: "message_id", Value: 1}, {Key: "user_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return &SeenStore{col: col}
}

func (s *SeenStore) Mark(ctx context.Context, mark domainmsg.SeenMark) error {
	filter := bson.M{"message_id": string(mark.MessageID), "user_id": string(mark.UserID)}
	update := bson.M{"$setOnInsert": bson.M{
		"message_id": string(mark.MessageID),
		"user_id":    string(mark.UserID),
		"seen_at":    mark.SeenAt.UnixMilli(),
	}}
	opts := options.Update().SetUpsert(true)
	_, err := s.col.UpdateOne(ctx, filter, update, opts)
	if mongo.IsDuplicateKeyError(err) {
		return nil
	}
	return err
}

func (s *SeenStore) CountForMessage(ctx context.Context, id domainmsg.ID) (int, error) {
	count, err := s.col.CountDocuments(ctx, bson.M{"message_id": string(id)})
	return int(count), err
}

func (s *SeenStore) UsersForMessage(ctx context.Context, id domainmsg.ID) ([]domainuser.ID, error) {
	cur, err := s.col.Find(ctx, bson.M{"message_id": string(id)})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []domainuser.ID
	for cur.Next(ctx) {
		var doc struct {
			UserID string `bson:"user_id"`
		}
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, domainuser.ID(doc.UserID))
	}
	return out, cur.Err()
}

var (
	_ domainconv.Repository = (*ConversationRepository)(nil)
	_ domainmsg.Repository  = (*MessageRepository)(nil)
	_ domainmsg.SeenStore   = (*SeenStore)(nil)
)
