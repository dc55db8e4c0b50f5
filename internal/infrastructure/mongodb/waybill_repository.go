package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/resobyte/ambar-hub-sub004/internal/domain"
)

// WaybillRepository allocates waybill numbers from an atomic per-year
// counter document. The $inc on the counter is the serialization point;
// concurrent allocations always receive distinct sequences.
type WaybillRepository struct {
	waybills *mongo.Collection
	counters *mongo.Collection
}

// NewWaybillRepository creates the repository and its indexes
func NewWaybillRepository(db *mongo.Database) *WaybillRepository {
	repo := &WaybillRepository{
		waybills: db.Collection("waybills"),
		counters: db.Collection("waybill_counters"),
	}
	repo.ensureIndexes(context.Background())
	return repo
}

func (r *WaybillRepository) ensureIndexes(ctx context.Context) {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "number", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}
	r.waybills.Indexes().CreateMany(ctx, indexes)
}

// NextNumber atomically advances the year's counter and returns the
// formatted waybill number
func (r *WaybillRepository) NextNumber(ctx context.Context, year int) (string, error) {
	filter := bson.M{"_id": domain.WaybillCounterID(year)}
	update := bson.M{
		"$inc":         bson.M{"seq": 1},
		"$setOnInsert": bson.M{"year": year},
	}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var counter domain.WaybillCounter
	if err := r.counters.FindOneAndUpdate(ctx, filter, update, opts).Decode(&counter); err != nil {
		return "", fmt.Errorf("failed to advance waybill counter: %w", err)
	}
	return domain.FormatWaybillNumber(year, counter.Seq), nil
}

// Save inserts a waybill record
func (r *WaybillRepository) Save(ctx context.Context, waybill *domain.Waybill) error {
	_, err := r.waybills.InsertOne(ctx, waybill)
	if err != nil {
		return fmt.Errorf("failed to save waybill: %w", err)
	}
	return nil
}

// FindByNumber returns one waybill, or nil
func (r *WaybillRepository) FindByNumber(ctx context.Context, number string) (*domain.Waybill, error) {
	var waybill domain.Waybill
	err := r.waybills.FindOne(ctx, bson.M{"number": number}).Decode(&waybill)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find waybill: %w", err)
	}
	return &waybill, nil
}
