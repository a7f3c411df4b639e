package paymentRepo

import (
	"context"
	"fmt"

	"slotbook/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoPaymentRepo implements PaymentRepository on MongoDB.
type MongoPaymentRepo struct {
	coll *mongo.Collection
}

func NewMongoPaymentRepo() *MongoPaymentRepo {
	return &MongoPaymentRepo{coll: database.DB().Collection("payments")}
}

// EnsureIndexes creates the correlation and idempotency indexes. The
// idempotency key is unique but sparse: offline records without a key
// don't collide with each other.
func (repo *MongoPaymentRepo) EnsureIndexes(ctx context.Context) error {
	_, err := repo.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}},
		{
			Keys:    bson.D{{Key: "idempotency_key", Value: 1}},
			Options: options.Index().SetUnique(true).SetSparse(true),
		},
		{Keys: bson.D{{Key: "provider_session_id", Value: 1}}},
		{Keys: bson.D{{Key: "provider_payment_intent_id", Value: 1}}},
		{Keys: bson.D{{Key: "booking_id", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create payment indexes: %w", err)
	}
	return nil
}
