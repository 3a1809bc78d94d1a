package mongo

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/tabletap/tabletap/internal/orders"
)

type SessionRepo struct {
	collection *mongo.Collection
}

func NewSessionRepo(db *mongo.Database) *SessionRepo {
	return &SessionRepo{
		collection: db.Collection("sessions"),
	}
}

// EnsureIndexes sets up a TTL index so MongoDB reaps expired sessions on its
// own, plus a lookup index for the per-table active session query.
func (r *SessionRepo) EnsureIndexes(ctx context.Context) error {
	models := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0),
		},
		{
			Keys: bson.D{{Key: "table_id", Value: 1}},
		},
	}
	if _, err := r.collection.Indexes().CreateMany(ctx, models); err != nil {
		return fmt.Errorf("cannot create session indexes: %w", err)
	}
	return nil
}

func (r *SessionRepo) Create(ctx context.Context, session *orders.Session) error {
	if session == nil {
		return fmt.Errorf("session is nil")
	}

	if _, err := r.collection.InsertOne(ctx, session); err != nil {
		return fmt.Errorf("cannot create session: %w", err)
	}

	return nil
}

func (r *SessionRepo) Get(ctx context.Context, id string) (*orders.Session, error) {
	var session orders.Session
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&session)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, orders.ErrNotFound
		}
		return nil, fmt.Errorf("cannot get session: %w", err)
	}
	return &session, nil
}

func (r *SessionRepo) GetActiveByTable(ctx context.Context, tableID uuid.UUID, now time.Time) (*orders.Session, error) {
	filter := bson.M{
		"table_id":   tableID,
		"expires_at": bson.M{"$gt": now},
	}

	var session orders.Session
	err := r.collection.FindOne(ctx, filter).Decode(&session)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, orders.ErrNotFound
		}
		return nil, fmt.Errorf("cannot get active session: %w", err)
	}
	return &session, nil
}

func (r *SessionRepo) Save(ctx context.Context, session *orders.Session) error {
	if session == nil {
		return fmt.Errorf("session is nil")
	}

	filter := bson.M{"_id": session.ID}
	update := bson.M{"$set": session}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("cannot update session: %w", err)
	}

	if result.MatchedCount == 0 {
		return orders.ErrNotFound
	}

	return nil
}

func (r *SessionRepo) DeleteByTable(ctx context.Context, tableID uuid.UUID) error {
	if _, err := r.collection.DeleteMany(ctx, bson.M{"table_id": tableID}); err != nil {
		return fmt.Errorf("cannot delete sessions for table: %w", err)
	}
	return nil
}
