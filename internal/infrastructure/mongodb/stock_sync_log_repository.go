package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/resobyte/ambar-hub-sub004/internal/domain"
)

// StockSyncLogRepository records marketplace push batch outcomes
type StockSyncLogRepository struct {
	collection *mongo.Collection
}

// NewStockSyncLogRepository creates the repository and its indexes
func NewStockSyncLogRepository(db *mongo.Database) *StockSyncLogRepository {
	repo := &StockSyncLogRepository{
		collection: db.Collection("stock_sync_logs"),
	}
	repo.ensureIndexes(context.Background())
	return repo
}

func (r *StockSyncLogRepository) ensureIndexes(ctx context.Context) {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "batchId", Value: 1}}},
		{Keys: bson.D{{Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "syncStatus", Value: 1}, {Key: "createdAt", Value: -1}}},
	}
	r.collection.Indexes().CreateMany(ctx, indexes)
}

// Save inserts a new log row
func (r *StockSyncLogRepository) Save(ctx context.Context, log *domain.StockSyncLog) error {
	_, err := r.collection.InsertOne(ctx, log)
	if err != nil {
		return fmt.Errorf("failed to save sync log: %w", err)
	}
	return nil
}

// Update replaces an existing log row with its outcome
func (r *StockSyncLogRepository) Update(ctx context.Context, log *domain.StockSyncLog) error {
	result, err := r.collection.ReplaceOne(ctx, bson.M{"_id": log.ID}, log)
	if err != nil {
		return fmt.Errorf("failed to update sync log: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("sync log %s not found", log.ID)
	}
	return nil
}

// FindByBatchID returns the newest log row for a batch, or nil
func (r *StockSyncLogRepository) FindByBatchID(ctx context.Context, batchID string) (*domain.StockSyncLog, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "createdAt", Value: -1}})

	var log domain.StockSyncLog
	err := r.collection.FindOne(ctx, bson.M{"batchId": batchID}, opts).Decode(&log)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find sync log: %w", err)
	}
	return &log, nil
}

// FindRecent returns the newest log rows
func (r *StockSyncLogRepository) FindRecent(ctx context.Context, limit int) ([]*domain.StockSyncLog, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find sync logs: %w", err)
	}
	defer cursor.Close(ctx)

	var logs []*domain.StockSyncLog
	if err := cursor.All(ctx, &logs); err != nil {
		return nil, fmt.Errorf("failed to decode sync logs: %w", err)
	}
	return logs, nil
}
