package bookingRepo

import (
	"context"
	"fmt"

	"slotbook/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// MongoBookingRepo implements BookingRepository on MongoDB.
type MongoBookingRepo struct {
	coll *mongo.Collection
}

func NewMongoBookingRepo() *MongoBookingRepo {
	return &MongoBookingRepo{coll: database.DB().Collection("bookings")}
}

// EnsureIndexes creates the lookup indexes used by slot generation and the
// reconciliation sweeps.
func (repo *MongoBookingRepo) EnsureIndexes(ctx context.Context) error {
	_, err := repo.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}},
		{Keys: bson.D{{Key: "vendor_id", Value: 1}, {Key: "start", Value: 1}}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "end", Value: 1}}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "start", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create booking indexes: %w", err)
	}
	return nil
}
