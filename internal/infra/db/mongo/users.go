package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainuser "pingme/internal/domain/user"
)

type UserRepository struct {
	col *mongo.Collection
}

func NewUserRepository(db *mongo.Database) *UserRepository {
	col := db.Collection("users")
	_, _ = col.Indexes().CreateMany(context.Background(), []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "public_id", Value: 1}}, Options: options.Index().SetUnique(true)},
	})
	return &UserRepository{col: col}
}

func (r *UserRepository) ByID(ctx context.Context, id domainuser.ID) (*domainuser.User, error) {
	return r.findOne(ctx, bson.M{"_id": string(id)})
}

func (r *UserRepository) ByEmail(ctx context.Context, email string) (*domainuser.User, error) {
	return r.findOne(ctx, bson.M{"email": domainuser.NormalizeEmail(email)})
}

func (r *UserRepository) ByPublicID(ctx context.Context, publicID string) (*domainuser.User, error) {
	return r.findOne(ctx, bson.M{"public_id": domainuser.NormalizePublicID(publicID)})
}

func (r *UserRepository) Save(ctx context.Context, user *domainuser.User) error {
	doc := newUserDocument(user)
	opts := options.Update().SetUpsert(true)
	_, err := r.col.UpdateOne(ctx, bson.M{"_id": doc.ID}, bson.M{"$set": doc}, opts)
	if mongo.IsDuplicateKeyError(err) {
		return domainuser.ErrEmailAlreadyUsed
	}
	return err
}

func (r *UserRepository) findOne(ctx context.Context, filter bson.M) (*domainuser.User, error) {
	var doc userDocument
	if err := r.col.FindOne(ctx, filter).Decode(&doc); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, domainuser.ErrNotFound
		}
		return nil, err
	}
	return doc.toEntity(), nil
}

type userDocument struct {
	ID        string `bson:"_id"`
	PublicID  string `bson:"public_id"`
	Name      string `bson:"name"`
	Email     string `bson:"email"`
	Online    bool   `bson:"online"`
	LastSeen  int64  `bson:"last_seen"`
	CreatedAt int64  `bson:"created_at"`
}

func newUserDocument(u *domainuser.User) userDocument {
	return userDocument{
		ID:        string(u.ID),
		PublicID:  u.PublicID,
		Name:      u.Name,
		Email:     u.Email,
		Online:    u.Online,
		LastSeen:  u.LastSeen.UnixMilli(),
		CreatedAt: u.CreatedAt.UnixMilli(),
	}
}

func (d userDocument) toEntity() *domainuser.User {
	return &domainuser.User{
		ID:        domainuser.ID(d.ID),
		PublicID:  d.PublicID,
		Name:      d.Name,
		Email:     d.Email,
		Online:    d.Online,
		LastSeen:  timestampToTime(d.LastSeen),
		CreatedAt: timestampToTime(d.CreatedAt),
	}
}

func timestampToTime(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

var _ domainuser.Repository = (*UserRepository)(nil)
