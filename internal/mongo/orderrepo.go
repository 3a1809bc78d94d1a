package mongo

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/tabletap/tabletap/internal/orders"
)

type OrderRepo struct {
	collection *mongo.Collection
}

func NewOrderRepo(db *mongo.Database) *OrderRepo {
	return &OrderRepo{
		collection: db.Collection("orders"),
	}
}

// EnsureIndexes creates the unique submission index. The index is what closes
// the race between two devices replaying the same idempotency key: the second
// insert fails with a duplicate key error no matter the interleaving.
func (r *OrderRepo) EnsureIndexes(ctx context.Context) error {
	models := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "session_id", Value: 1},
				{Key: "idempotency_key", Value: 1},
			},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{
				{Key: "table_id", Value: 1},
				{Key: "archived", Value: 1},
			},
		},
	}
	if _, err := r.collection.Indexes().CreateMany(ctx, models); err != nil {
		return fmt.Errorf("cannot create order indexes: %w", err)
	}
	return nil
}

func (r *OrderRepo) Create(ctx context.Context, o *orders.Order) error {
	if o == nil {
		return fmt.Errorf("order is nil")
	}

	if _, err := r.collection.InsertOne(ctx, o); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return orders.ErrDuplicateSubmission
		}
		return fmt.Errorf("cannot create order: %w", err)
	}

	return nil
}

func (r *OrderRepo) Get(ctx context.Context, id uuid.UUID) (*orders.Order, error) {
	var o orders.Order
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&o)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, orders.ErrNotFound
		}
		return nil, fmt.Errorf("cannot get order: %w", err)
	}
	return &o, nil
}

func (r *OrderRepo) GetBySubmission(ctx context.Context, sessionID, idempotencyKey string) (*orders.Order, error) {
	filter := bson.M{"session_id": sessionID, "idempotency_key": idempotencyKey}

	var o orders.Order
	err := r.collection.FindOne(ctx, filter).Decode(&o)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, orders.ErrNotFound
		}
		return nil, fmt.Errorf("cannot get order by submission: %w", err)
	}
	return &o, nil
}

func (r *OrderRepo) List(ctx context.Context, filter orders.OrderFilter) ([]*orders.Order, error) {
	query := bson.M{}
	if filter.RestaurantID != uuid.Nil {
		query["restaurant_id"] = filter.RestaurantID
	}
	if filter.TableID != uuid.Nil {
		query["table_id"] = filter.TableID
	}
	if filter.SessionID != "" {
		query["session_id"] = filter.SessionID
	}
	if filter.Status != "" {
		query["status"] = filter.Status
	}
	if filter.Archived != nil {
		query["archived"] = *filter.Archived
	}

	cursor, err := r.collection.Find(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("cannot list orders: %w", err)
	}
	defer cursor.Close(ctx)

	var result []*orders.Order
	if err := cursor.All(ctx, &result); err != nil {
		return nil, fmt.Errorf("cannot decode orders: %w", err)
	}

	return result, nil
}

func (r *OrderRepo) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]*orders.Order, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	cursor, err := r.collection.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, fmt.Errorf("cannot list orders by ids: %w", err)
	}
	defer cursor.Close(ctx)

	var result []*orders.Order
	if err := cursor.All(ctx, &result); err != nil {
		return nil, fmt.Errorf("cannot decode orders: %w", err)
	}

	return result, nil
}

func (r *OrderRepo) Save(ctx context.Context, o *orders.Order) error {
	if o == nil {
		return fmt.Errorf("order is nil")
	}

	o.BeforeUpdate()
	filter := bson.M{"_id": o.ID}
	update := bson.M{"$set": o}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("cannot update order: %w", err)
	}

	if result.MatchedCount == 0 {
		return orders.ErrNotFound
	}

	return nil
}
