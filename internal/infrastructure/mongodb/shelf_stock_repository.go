package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/resobyte/ambar-hub-sub004/internal/domain"
)

// ShelfStockRepository persists the shelf ledger. Each mutation is a single
// guarded atomic update on the (shelf, product) document, so the document
// is the serialization point for concurrent writers: a guard miss means
// another writer consumed the stock first.
type ShelfStockRepository struct {
	collection *mongo.Collection
}

// NewShelfStockRepository creates the repository and its indexes
func NewShelfStockRepository(db *mongo.Database) *ShelfStockRepository {
	repo := &ShelfStockRepository{
		collection: db.Collection("shelf_stocks"),
	}
	repo.ensureIndexes(context.Background())
	return repo
}

func (r *ShelfStockRepository) ensureIndexes(ctx context.Context) {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "shelfId", Value: 1}, {Key: "productId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "productId", Value: 1}, {Key: "sortOrder", Value: 1}}},
	}
	r.collection.Indexes().CreateMany(ctx, indexes)
}

func shelfStockID(shelfID, productID string) string {
	return shelfID + ":" + productID
}

// FindByShelfAndProduct returns one non-deleted ledger row, or nil
func (r *ShelfStockRepository) FindByShelfAndProduct(ctx context.Context, shelfID, productID string) (*domain.ShelfStock, error) {
	filter := bson.M{
		"shelfId":   shelfID,
		"productId": productID,
		"deletedAt": bson.M{"$exists": false},
	}

	var stock domain.ShelfStock
	err := r.collection.FindOne(ctx, filter).Decode(&stock)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find shelf stock: %w", err)
	}
	return &stock, nil
}

// FindByProduct returns non-deleted rows ordered by sortOrder then shelfId
func (r *ShelfStockRepository) FindByProduct(ctx context.Context, productID string) ([]*domain.ShelfStock, error) {
	filter := bson.M{
		"productId": productID,
		"deletedAt": bson.M{"$exists": false},
	}
	opts := options.Find().SetSort(bson.D{{Key: "sortOrder", Value: 1}, {Key: "shelfId", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find shelf stocks: %w", err)
	}
	defer cursor.Close(ctx)

	var stocks []*domain.ShelfStock
	if err := cursor.All(ctx, &stocks); err != nil {
		return nil, fmt.Errorf("failed to decode shelf stocks: %w", err)
	}
	return stocks, nil
}

// Save upserts a ledger row by its (shelf, product) identity
func (r *ShelfStockRepository) Save(ctx context.Context, stock *domain.ShelfStock) error {
	if stock.ID == "" {
		stock.ID = shelfStockID(stock.ShelfID, stock.ProductID)
	}
	opts := options.Update().SetUpsert(true)
	filter := bson.M{"_id": stock.ID}
	update := bson.M{"$set": stock}

	_, err := r.collection.UpdateOne(ctx, filter, update, opts)
	if err != nil {
		return fmt.Errorf("failed to save shelf stock: %w", err)
	}
	return nil
}

// Reserve atomically earmarks qty units where quantity-reserved >= qty.
// The availability check lives in the filter, so two racing reservations
// for the last unit cannot both match.
func (r *ShelfStockRepository) Reserve(ctx context.Context, shelfID, productID string, qty int) (*domain.ShelfStock, error) {
	filter := bson.M{
		"shelfId":   shelfID,
		"productId": productID,
		"deletedAt": bson.M{"$exists": false},
		"$expr": bson.M{
			"$gte": bson.A{
				bson.M{"$subtract": bson.A{"$quantity", "$reservedQuantity"}},
				qty,
			},
		},
	}
	update := bson.M{
		"$inc": bson.M{"reservedQuantity": qty},
		"$set": bson.M{"updatedAt": time.Now()},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var stock domain.ShelfStock
	err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&stock)
	if err == mongo.ErrNoDocuments {
		return nil, r.classifyGuardMiss(ctx, shelfID, productID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to reserve stock: %w", err)
	}
	return &stock, nil
}

// Release atomically returns qty reserved units, zero-flooring the counter
// with a pipeline update.
func (r *ShelfStockRepository) Release(ctx context.Context, shelfID, productID string, qty int) (*domain.ShelfStock, error) {
	filter := bson.M{
		"shelfId":   shelfID,
		"productId": productID,
		"deletedAt": bson.M{"$exists": false},
	}
	update := mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			"reservedQuantity": bson.M{
				"$max": bson.A{0, bson.M{"$subtract": bson.A{"$reservedQuantity", qty}}},
			},
			"updatedAt": time.Now(),
		}}},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var stock domain.ShelfStock
	err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&stock)
	if err == mongo.ErrNoDocuments {
		return nil, domain.ErrShelfStockNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to release stock: %w", err)
	}
	return &stock, nil
}

// Decrement atomically removes qty units where quantity >= qty. The
// reservation counter follows down, zero-floored, in the same update.
func (r *ShelfStockRepository) Decrement(ctx context.Context, shelfID, productID string, qty int) (*domain.ShelfStock, error) {
	filter := bson.M{
		"shelfId":   shelfID,
		"productId": productID,
		"deletedAt": bson.M{"$exists": false},
		"quantity":  bson.M{"$gte": qty},
	}
	update := mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			"quantity": bson.M{"$subtract": bson.A{"$quantity", qty}},
			"reservedQuantity": bson.M{
				"$max": bson.A{0, bson.M{"$subtract": bson.A{"$reservedQuantity", qty}}},
			},
			"updatedAt": time.Now(),
		}}},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var stock domain.ShelfStock
	err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&stock)
	if err == mongo.ErrNoDocuments {
		return nil, r.classifyGuardMiss(ctx, shelfID, productID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decrement stock: %w", err)
	}
	return &stock, nil
}

// Increment atomically adds qty units, creating the row on first placement
func (r *ShelfStockRepository) Increment(ctx context.Context, shelfID, productID string, qty int) (*domain.ShelfStock, error) {
	now := time.Now()
	filter := bson.M{
		"shelfId":   shelfID,
		"productId": productID,
		"deletedAt": bson.M{"$exists": false},
	}
	update := bson.M{
		"$inc": bson.M{"quantity": qty},
		"$set": bson.M{"updatedAt": now},
		"$setOnInsert": bson.M{
			"_id":              shelfStockID(shelfID, productID),
			"reservedQuantity": 0,
			"sortOrder":        0,
			"createdAt":        now,
		},
	}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var stock domain.ShelfStock
	err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&stock)
	if err != nil {
		return nil, fmt.Errorf("failed to increment stock: %w", err)
	}
	return &stock, nil
}

// SoftDelete tombstones a ledger row (shelf decommissioned)
func (r *ShelfStockRepository) SoftDelete(ctx context.Context, shelfID, productID string) error {
	filter := bson.M{
		"shelfId":   shelfID,
		"productId": productID,
		"deletedAt": bson.M{"$exists": false},
	}
	update := bson.M{"$set": bson.M{"deletedAt": time.Now()}}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to soft delete shelf stock: %w", err)
	}
	if result.MatchedCount == 0 {
		return domain.ErrShelfStockNotFound
	}
	return nil
}

// classifyGuardMiss distinguishes "row does not exist" from "row exists
// but the quantity guard failed"
func (r *ShelfStockRepository) classifyGuardMiss(ctx context.Context, shelfID, productID string) error {
	count, err := r.collection.CountDocuments(ctx, bson.M{
		"shelfId":   shelfID,
		"productId": productID,
		"deletedAt": bson.M{"$exists": false},
	})
	if err != nil {
		return fmt.Errorf("failed to classify guard miss: %w", err)
	}
	if count == 0 {
		return domain.ErrShelfStockNotFound
	}
	return domain.ErrInsufficientStock
}
