package availabilityRepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"slotbook/database"
	"slotbook/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrNotFound is returned when a vendor has no schedule configured.
var ErrNotFound = errors.New("availability not found")

// MongoAvailabilityRepo implements AvailabilityRepository on MongoDB.
type MongoAvailabilityRepo struct {
	coll *mongo.Collection
}

func NewMongoAvailabilityRepo() *MongoAvailabilityRepo {
	return &MongoAvailabilityRepo{coll: database.DB().Collection("availability")}
}

// EnsureIndexes creates the unique vendor index.
func (repo *MongoAvailabilityRepo) EnsureIndexes(ctx context.Context) error {
	_, err := repo.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "vendor_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("failed to create availability indexes: %w", err)
	}
	return nil
}

func (repo *MongoAvailabilityRepo) Get(ctx context.Context, vendorID string) (*models.WeeklyAvailability, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var wa models.WeeklyAvailability
	err := repo.coll.FindOne(ctx, bson.M{"vendor_id": vendorID}).Decode(&wa)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error fetching availability for vendor %s: %w", vendorID, err)
	}
	return &wa, nil
}

func (repo *MongoAvailabilityRepo) Upsert(ctx context.Context, wa *models.WeeklyAvailability) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	wa.UpdatedAt = time.Now().UTC()
	filter := bson.M{"vendor_id": wa.VendorID}
	update := bson.M{"$set": wa}
	_, err := repo.coll.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("error upserting availability for vendor %s: %w", wa.VendorID, err)
	}
	return nil
}
