package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/resobyte/ambar-hub-sub004/internal/domain"
)

// StockMovementRepository is the append-only audit log. Rows are never
// updated or deleted.
type StockMovementRepository struct {
	collection *mongo.Collection
}

// NewStockMovementRepository creates the repository and its indexes
func NewStockMovementRepository(db *mongo.Database) *StockMovementRepository {
	repo := &StockMovementRepository{
		collection: db.Collection("stock_movements"),
	}
	repo.ensureIndexes(context.Background())
	return repo
}

func (r *StockMovementRepository) ensureIndexes(ctx context.Context) {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "productId", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "shelfId", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "orderId", Value: 1}}},
	}
	r.collection.Indexes().CreateMany(ctx, indexes)
}

// Insert appends one movement row
func (r *StockMovementRepository) Insert(ctx context.Context, movement *domain.StockMovement) error {
	_, err := r.collection.InsertOne(ctx, movement)
	if err != nil {
		return fmt.Errorf("failed to insert movement: %w", err)
	}
	return nil
}

// InsertAll appends multiple movement rows (transfer pairs)
func (r *StockMovementRepository) InsertAll(ctx context.Context, movements []*domain.StockMovement) error {
	if len(movements) == 0 {
		return nil
	}
	docs := make([]interface{}, len(movements))
	for i, m := range movements {
		docs[i] = m
	}
	_, err := r.collection.InsertMany(ctx, docs)
	if err != nil {
		return fmt.Errorf("failed to insert movements: %w", err)
	}
	return nil
}

// FindByProduct pages a product's movement history, newest first
func (r *StockMovementRepository) FindByProduct(ctx context.Context, productID string, limit, offset int) ([]*domain.StockMovement, error) {
	return r.find(ctx, bson.M{"productId": productID}, limit, offset)
}

// FindByShelf pages a shelf's movement history, newest first
func (r *StockMovementRepository) FindByShelf(ctx context.Context, shelfID string, limit, offset int) ([]*domain.StockMovement, error) {
	return r.find(ctx, bson.M{"shelfId": shelfID}, limit, offset)
}

// FindByOrder returns every movement correlated with an order
func (r *StockMovementRepository) FindByOrder(ctx context.Context, orderID string) ([]*domain.StockMovement, error) {
	return r.find(ctx, bson.M{"orderId": orderID}, 0, 0)
}

func (r *StockMovementRepository) find(ctx context.Context, filter bson.M, limit, offset int) ([]*domain.StockMovement, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit)).SetSkip(int64(offset))
	}

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find movements: %w", err)
	}
	defer cursor.Close(ctx)

	var movements []*domain.StockMovement
	if err := cursor.All(ctx, &movements); err != nil {
		return nil, fmt.Errorf("failed to decode movements: %w", err)
	}
	return movements, nil
}
