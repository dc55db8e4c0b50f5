package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/resobyte/ambar-hub-sub004/internal/domain"
)

// ProductRepository resolves marketplace identities to catalog products
type ProductRepository struct {
	collection *mongo.Collection
}

// NewProductRepository creates the repository and its indexes
func NewProductRepository(db *mongo.Database) *ProductRepository {
	repo := &ProductRepository{
		collection: db.Collection("products"),
	}
	repo.ensureIndexes(context.Background())
	return repo
}

func (r *ProductRepository) ensureIndexes(ctx context.Context) {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "barcode", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "stockCode", Value: 1}}},
	}
	r.collection.Indexes().CreateMany(ctx, indexes)
}

// FindByID returns one product, or nil
func (r *ProductRepository) FindByID(ctx context.Context, id string) (*domain.Product, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

// FindByBarcode returns the product carrying a barcode, or nil
func (r *ProductRepository) FindByBarcode(ctx context.Context, barcode string) (*domain.Product, error) {
	return r.findOne(ctx, bson.M{"barcode": barcode})
}

func (r *ProductRepository) findOne(ctx context.Context, filter bson.M) (*domain.Product, error) {
	var product domain.Product
	err := r.collection.FindOne(ctx, filter).Decode(&product)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find product: %w", err)
	}
	return &product, nil
}

// FindByBarcodes resolves a batch of barcodes in one query; absent
// barcodes are simply absent from the map.
func (r *ProductRepository) FindByBarcodes(ctx context.Context, barcodes []string) (map[string]*domain.Product, error) {
	if len(barcodes) == 0 {
		return map[string]*domain.Product{}, nil
	}

	cursor, err := r.collection.Find(ctx, bson.M{"barcode": bson.M{"$in": barcodes}})
	if err != nil {
		return nil, fmt.Errorf("failed to find products: %w", err)
	}
	defer cursor.Close(ctx)

	products := make(map[string]*domain.Product, len(barcodes))
	for cursor.Next(ctx) {
		var product domain.Product
		if err := cursor.Decode(&product); err != nil {
			return nil, fmt.Errorf("failed to decode product: %w", err)
		}
		products[product.Barcode] = &product
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate products: %w", err)
	}
	return products, nil
}

// Save upserts a product
func (r *ProductRepository) Save(ctx context.Context, product *domain.Product) error {
	opts := options.Update().SetUpsert(true)
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": product.ID}, bson.M{"$set": product}, opts)
	if err != nil {
		return fmt.Errorf("failed to save product: %w", err)
	}
	return nil
}
