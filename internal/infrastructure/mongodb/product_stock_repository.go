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

// ProductStockRepository persists the denormalized product rollup. Deltas
// arrive only from guarded ledger mutations running in the same
// transaction, which is what keeps the rollup consistent with the ledger.
type ProductStockRepository struct {
	collection *mongo.Collection
}

// NewProductStockRepository creates the repository and its indexes
func NewProductStockRepository(db *mongo.Database) *ProductStockRepository {
	repo := &ProductStockRepository{
		collection: db.Collection("product_stocks"),
	}
	repo.ensureIndexes(context.Background())
	return repo
}

func (r *ProductStockRepository) ensureIndexes(ctx context.Context) {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "productId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}
	r.collection.Indexes().CreateMany(ctx, indexes)
}

// FindByProduct returns the rollup row, or nil
func (r *ProductStockRepository) FindByProduct(ctx context.Context, productID string) (*domain.ProductStock, error) {
	var stock domain.ProductStock
	err := r.collection.FindOne(ctx, bson.M{"productId": productID}).Decode(&stock)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find product stock: %w", err)
	}
	return &stock, nil
}

// ApplyDelta atomically adjusts the product counters and, when a store is
// in scope, the store's slice. The rollup row and the store slice are both
// created on first use.
func (r *ProductStockRepository) ApplyDelta(ctx context.Context, productID, storeID string, delta domain.StockDelta) error {
	now := time.Now()

	update := bson.M{
		"$inc": bson.M{
			"stockQuantity":    delta.Stock,
			"sellableQuantity": delta.Sellable,
			"reservedQuantity": delta.Reserved,
		},
		"$set": bson.M{"updatedAt": now},
		"$setOnInsert": bson.M{
			"_id":       productID,
			"productId": productID,
		},
	}
	opts := options.Update().SetUpsert(true)
	if _, err := r.collection.UpdateOne(ctx, bson.M{"productId": productID}, update, opts); err != nil {
		return fmt.Errorf("failed to apply product delta: %w", err)
	}

	if storeID == "" {
		return nil
	}

	storeUpdate := bson.M{
		"$inc": bson.M{
			"storeStocks.$[s].sellableQuantity":   delta.Sellable,
			"storeStocks.$[s].reservableQuantity": delta.Reserved,
			"storeStocks.$[s].committedQuantity":  delta.Committed,
		},
		"$set": bson.M{"updatedAt": now},
	}
	storeOpts := options.Update().SetArrayFilters(options.ArrayFilters{
		Filters: []interface{}{bson.M{"s.storeId": storeID}},
	})
	result, err := r.collection.UpdateOne(ctx, bson.M{"productId": productID}, storeUpdate, storeOpts)
	if err != nil {
		return fmt.Errorf("failed to apply store delta: %w", err)
	}
	if result.ModifiedCount > 0 {
		return nil
	}

	// store slice does not exist yet
	push := bson.M{
		"$push": bson.M{
			"storeStocks": domain.StoreStock{
				StoreID:            storeID,
				SellableQuantity:   delta.Sellable,
				ReservableQuantity: delta.Reserved,
				CommittedQuantity:  delta.Committed,
			},
		},
		"$set": bson.M{"updatedAt": now},
	}
	filter := bson.M{
		"productId":           productID,
		"storeStocks.storeId": bson.M{"$ne": storeID},
	}
	if _, err := r.collection.UpdateOne(ctx, filter, push); err != nil {
		return fmt.Errorf("failed to create store slice: %w", err)
	}
	return nil
}

// Save upserts the full rollup row (recompute path)
func (r *ProductStockRepository) Save(ctx context.Context, stock *domain.ProductStock) error {
	if stock.ID == "" {
		stock.ID = stock.ProductID
	}
	opts := options.Update().SetUpsert(true)
	_, err := r.collection.UpdateOne(ctx, bson.M{"productId": stock.ProductID}, bson.M{"$set": stock}, opts)
	if err != nil {
		return fmt.Errorf("failed to save product stock: %w", err)
	}
	return nil
}
