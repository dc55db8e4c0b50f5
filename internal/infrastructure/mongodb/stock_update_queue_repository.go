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

// StockUpdateQueueRepository is the durable recompute-and-push queue.
// Claiming stamps rows with a batch id in one conditional UpdateMany, so
// two workers draining at once split the rows instead of double-pushing.
type StockUpdateQueueRepository struct {
	collection *mongo.Collection
}

// NewStockUpdateQueueRepository creates the repository and its indexes
func NewStockUpdateQueueRepository(db *mongo.Database) *StockUpdateQueueRepository {
	repo := &StockUpdateQueueRepository{
		collection: db.Collection("stock_update_queue"),
	}
	repo.ensureIndexes(context.Background())
	return repo
}

func (r *StockUpdateQueueRepository) ensureIndexes(ctx context.Context) {
	indexes := []mongo.IndexModel{
		// drain order; partial index keeps tombstoned rows out of the scan
		{
			Keys: bson.D{
				{Key: "status", Value: 1},
				{Key: "priority", Value: -1},
				{Key: "createdAt", Value: 1},
			},
			Options: options.Index().SetPartialFilterExpression(bson.M{
				"deletedAt": bson.M{"$exists": false},
			}),
		},
		{Keys: bson.D{{Key: "batchId", Value: 1}}},
		{Keys: bson.D{{Key: "productId", Value: 1}, {Key: "storeId", Value: 1}}},
	}
	r.collection.Indexes().CreateMany(ctx, indexes)
}

// Enqueue inserts one pending row
func (r *StockUpdateQueueRepository) Enqueue(ctx context.Context, entry *domain.StockUpdateEntry) error {
	_, err := r.collection.InsertOne(ctx, entry)
	if err != nil {
		return fmt.Errorf("failed to enqueue stock update: %w", err)
	}
	return nil
}

// EnqueueAll inserts multiple pending rows
func (r *StockUpdateQueueRepository) EnqueueAll(ctx context.Context, entries []*domain.StockUpdateEntry) error {
	if len(entries) == 0 {
		return nil
	}
	docs := make([]interface{}, len(entries))
	for i, e := range entries {
		docs[i] = e
	}
	_, err := r.collection.InsertMany(ctx, docs)
	if err != nil {
		return fmt.Errorf("failed to enqueue stock updates: %w", err)
	}
	return nil
}

// ClaimBatch selects up to limit pending rows in drain order and stamps
// them PROCESSING with the batch id in one conditional update. Rows a
// racing worker claimed in between are lost silently; only rows actually
// stamped with this batch id are returned.
func (r *StockUpdateQueueRepository) ClaimBatch(ctx context.Context, batchID string, limit, maxAttempts int) ([]*domain.StockUpdateEntry, error) {
	pending := bson.M{
		"status":    domain.QueuePending,
		"deletedAt": bson.M{"$exists": false},
		"attempts":  bson.M{"$lt": maxAttempts},
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "priority", Value: -1}, {Key: "createdAt", Value: 1}}).
		SetLimit(int64(limit)).
		SetProjection(bson.M{"_id": 1})

	cursor, err := r.collection.Find(ctx, pending, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to scan pending rows: %w", err)
	}

	var candidates []struct {
		ID string `bson:"_id"`
	}
	if err := cursor.All(ctx, &candidates); err != nil {
		return nil, fmt.Errorf("failed to decode candidates: %w", err)
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	ids := make([]string, len(candidates))
	for i, c := range candidates {
		ids[i] = c.ID
	}

	claim := bson.M{
		"_id":    bson.M{"$in": ids},
		"status": domain.QueuePending,
	}
	update := bson.M{
		"$set": bson.M{
			"status":  domain.QueueProcessing,
			"batchId": batchID,
		},
	}
	if _, err := r.collection.UpdateMany(ctx, claim, update); err != nil {
		return nil, fmt.Errorf("failed to claim rows: %w", err)
	}

	claimedCursor, err := r.collection.Find(ctx, bson.M{"batchId": batchID},
		options.Find().SetSort(bson.D{{Key: "priority", Value: -1}, {Key: "createdAt", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to load claimed rows: %w", err)
	}
	defer claimedCursor.Close(ctx)

	var claimed []*domain.StockUpdateEntry
	if err := claimedCursor.All(ctx, &claimed); err != nil {
		return nil, fmt.Errorf("failed to decode claimed rows: %w", err)
	}
	return claimed, nil
}

// MarkProcessed stamps processedAt on a batch's given rows
func (r *StockUpdateQueueRepository) MarkProcessed(ctx context.Context, batchID string, entryIDs []string) error {
	if len(entryIDs) == 0 {
		return nil
	}
	filter := bson.M{
		"_id":     bson.M{"$in": entryIDs},
		"batchId": batchID,
	}
	update := bson.M{
		"$set": bson.M{
			"status":      domain.QueueProcessed,
			"processedAt": time.Now(),
		},
	}
	if _, err := r.collection.UpdateMany(ctx, filter, update); err != nil {
		return fmt.Errorf("failed to mark rows processed: %w", err)
	}
	return nil
}

// ReleaseBatch returns a batch's unprocessed rows to PENDING
func (r *StockUpdateQueueRepository) ReleaseBatch(ctx context.Context, batchID string, incrementAttempts bool) error {
	filter := bson.M{
		"batchId": batchID,
		"status":  domain.QueueProcessing,
	}
	return r.release(ctx, filter, incrementAttempts)
}

// ReleaseEntries returns specific rows of a batch to PENDING
func (r *StockUpdateQueueRepository) ReleaseEntries(ctx context.Context, batchID string, entryIDs []string, incrementAttempts bool) error {
	if len(entryIDs) == 0 {
		return nil
	}
	filter := bson.M{
		"_id":     bson.M{"$in": entryIDs},
		"batchId": batchID,
		"status":  domain.QueueProcessing,
	}
	return r.release(ctx, filter, incrementAttempts)
}

func (r *StockUpdateQueueRepository) release(ctx context.Context, filter bson.M, incrementAttempts bool) error {
	update := bson.M{
		"$set":   bson.M{"status": domain.QueuePending},
		"$unset": bson.M{"batchId": ""},
	}
	if incrementAttempts {
		update["$inc"] = bson.M{"attempts": 1}
	}
	if _, err := r.collection.UpdateMany(ctx, filter, update); err != nil {
		return fmt.Errorf("failed to release rows: %w", err)
	}
	return nil
}

// CountPending counts claimable rows
func (r *StockUpdateQueueRepository) CountPending(ctx context.Context) (int64, error) {
	count, err := r.collection.CountDocuments(ctx, bson.M{
		"status":    domain.QueuePending,
		"deletedAt": bson.M{"$exists": false},
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count pending rows: %w", err)
	}
	return count, nil
}

// FindStuck returns pending rows whose attempts reached maxAttempts, so
// operators can see work the batcher gave up on
func (r *StockUpdateQueueRepository) FindStuck(ctx context.Context, maxAttempts, limit int) ([]*domain.StockUpdateEntry, error) {
	filter := bson.M{
		"status":    domain.QueuePending,
		"deletedAt": bson.M{"$exists": false},
		"attempts":  bson.M{"$gte": maxAttempts},
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: 1}}).
		SetLimit(int64(limit))

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find stuck rows: %w", err)
	}
	defer cursor.Close(ctx)

	var entries []*domain.StockUpdateEntry
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode stuck rows: %w", err)
	}
	return entries, nil
}

// SoftDelete tombstones a row, keeping its history
func (r *StockUpdateQueueRepository) SoftDelete(ctx context.Context, entryID string) error {
	filter := bson.M{"_id": entryID, "deletedAt": bson.M{"$exists": false}}
	update := bson.M{"$set": bson.M{"deletedAt": time.Now()}}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to soft delete row: %w", err)
	}
	if result.MatchedCount == 0 {
		return domain.ErrNothingToClaim
	}
	return nil
}
