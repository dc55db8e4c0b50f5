package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/resobyte/ambar-hub-sub004/internal/domain"
)

// FaultyOrderRepository is the quarantine table. The unique packageId
// index is what makes re-quarantining the same marketplace package a
// detectable no-op.
type FaultyOrderRepository struct {
	collection *mongo.Collection
}

// NewFaultyOrderRepository creates the repository and its indexes
func NewFaultyOrderRepository(db *mongo.Database) *FaultyOrderRepository {
	repo := &FaultyOrderRepository{
		collection: db.Collection("faulty_orders"),
	}
	repo.ensureIndexes(context.Background())
	return repo
}

func (r *FaultyOrderRepository) ensureIndexes(ctx context.Context) {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "packageId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "createdAt", Value: -1}}},
	}
	r.collection.Indexes().CreateMany(ctx, indexes)
}

// Insert quarantines an order; a packageId collision surfaces as
// ErrDuplicatePackage
func (r *FaultyOrderRepository) Insert(ctx context.Context, faulty *domain.FaultyOrder) error {
	_, err := r.collection.InsertOne(ctx, faulty)
	if mongo.IsDuplicateKeyError(err) {
		return domain.ErrDuplicatePackage
	}
	if err != nil {
		return fmt.Errorf("failed to insert faulty order: %w", err)
	}
	return nil
}

// FindByID returns one quarantined order, or nil
func (r *FaultyOrderRepository) FindByID(ctx context.Context, id string) (*domain.FaultyOrder, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

// FindByPackageID returns the quarantined order for a marketplace package, or nil
func (r *FaultyOrderRepository) FindByPackageID(ctx context.Context, packageID string) (*domain.FaultyOrder, error) {
	return r.findOne(ctx, bson.M{"packageId": packageID})
}

func (r *FaultyOrderRepository) findOne(ctx context.Context, filter bson.M) (*domain.FaultyOrder, error) {
	var faulty domain.FaultyOrder
	err := r.collection.FindOne(ctx, filter).Decode(&faulty)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find faulty order: %w", err)
	}
	return &faulty, nil
}

// FindAll pages the quarantine, newest first
func (r *FaultyOrderRepository) FindAll(ctx context.Context, limit, offset int) ([]*domain.FaultyOrder, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(int64(limit)).
		SetSkip(int64(offset))

	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find faulty orders: %w", err)
	}
	defer cursor.Close(ctx)

	var orders []*domain.FaultyOrder
	if err := cursor.All(ctx, &orders); err != nil {
		return nil, fmt.Errorf("failed to decode faulty orders: %w", err)
	}
	return orders, nil
}

// Update replaces a quarantined order (retry bookkeeping)
func (r *FaultyOrderRepository) Update(ctx context.Context, faulty *domain.FaultyOrder) error {
	result, err := r.collection.ReplaceOne(ctx, bson.M{"_id": faulty.ID}, faulty)
	if err != nil {
		return fmt.Errorf("failed to update faulty order: %w", err)
	}
	if result.MatchedCount == 0 {
		return domain.ErrFaultyOrderNotFound
	}
	return nil
}

// Delete removes a quarantined order, releasing its packageId
func (r *FaultyOrderRepository) Delete(ctx context.Context, id string) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete faulty order: %w", err)
	}
	if result.DeletedCount == 0 {
		return domain.ErrFaultyOrderNotFound
	}
	return nil
}
