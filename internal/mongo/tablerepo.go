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

type TableRepo struct {
	db         *mongo.Database
	collection *mongo.Collection
}

func NewTableRepo(db *mongo.Database) *TableRepo {
	return &TableRepo{
		db:         db,
		collection: db.Collection("tables"),
	}
}

// EnsureIndexes creates the unique index guarding one table per number per
// restaurant.
func (r *TableRepo) EnsureIndexes(ctx context.Context) error {
	indexModel := mongo.IndexModel{
		Keys: bson.D{
			{Key: "restaurant_id", Value: 1},
			{Key: "number", Value: 1},
		},
		Options: options.Index().SetUnique(true),
	}
	if _, err := r.collection.Indexes().CreateOne(ctx, indexModel); err != nil {
		return fmt.Errorf("cannot create table index: %w", err)
	}
	return nil
}

func (r *TableRepo) GetDatabase() *mongo.Database {
	return r.db
}

func (r *TableRepo) Create(ctx context.Context, table *orders.Table) error {
	if table == nil {
		return fmt.Errorf("table is nil")
	}

	if _, err := r.collection.InsertOne(ctx, table); err != nil {
		return fmt.Errorf("cannot create table: %w", err)
	}

	return nil
}

func (r *TableRepo) Get(ctx context.Context, id uuid.UUID) (*orders.Table, error) {
	var table orders.Table
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&table)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, orders.ErrNotFound
		}
		return nil, fmt.Errorf("cannot get table: %w", err)
	}
	return &table, nil
}

func (r *TableRepo) GetByNumber(ctx context.Context, restaurantID uuid.UUID, number string) (*orders.Table, error) {
	filter := bson.M{"restaurant_id": restaurantID, "number": number}
	var table orders.Table
	err := r.collection.FindOne(ctx, filter).Decode(&table)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, orders.ErrNotFound
		}
		return nil, fmt.Errorf("cannot get table by number: %w", err)
	}
	return &table, nil
}

func (r *TableRepo) List(ctx context.Context, restaurantID uuid.UUID) ([]*orders.Table, error) {
	filter := bson.M{}
	if restaurantID != uuid.Nil {
		filter["restaurant_id"] = restaurantID
	}

	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("cannot list tables: %w", err)
	}
	defer cursor.Close(ctx)

	var result []*orders.Table
	if err := cursor.All(ctx, &result); err != nil {
		return nil, fmt.Errorf("cannot decode tables: %w", err)
	}

	return result, nil
}

func (r *TableRepo) Save(ctx context.Context, table *orders.Table) error {
	if table == nil {
		return fmt.Errorf("table is nil")
	}

	filter := bson.M{"_id": table.ID}
	update := bson.M{"$set": table}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("cannot update table: %w", err)
	}

	if result.MatchedCount == 0 {
		return orders.ErrNotFound
	}

	return nil
}
