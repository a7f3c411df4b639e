package paymentRepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"slotbook/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// Create inserts a new ledger entry. A duplicate idempotency key surfaces
// as ErrDuplicateKey for the caller to resolve against the stored record.
func (repo *MongoPaymentRepo) Create(ctx context.Context, p *models.Payment) error {
	_, err := repo.coll.InsertOne(ctx, p)
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicateKey
	}
	if err != nil {
		return fmt.Errorf("error creating payment: %w", err)
	}
	return nil
}

func (repo *MongoPaymentRepo) GetByID(ctx context.Context, id string) (*models.Payment, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var p models.Payment
	err := repo.coll.FindOne(ctx, bson.M{"id": id}).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error fetching payment %s: %w", id, err)
	}
	return &p, nil
}

func (repo *MongoPaymentRepo) FindByIdempotencyKey(ctx context.Context, key string) (*models.Payment, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var p models.Payment
	err := repo.coll.FindOne(ctx, bson.M{"idempotency_key": key}).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error fetching payment by idempotency key: %w", err)
	}
	return &p, nil
}

// FindByProviderRef locates a payment by either gateway correlation id.
func (repo *MongoPaymentRepo) FindByProviderRef(ctx context.Context, sessionID, intentID string) (*models.Payment, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var clauses []bson.M
	if sessionID != "" {
		clauses = append(clauses, bson.M{"provider_session_id": sessionID})
	}
	if intentID != "" {
		clauses = append(clauses, bson.M{"provider_payment_intent_id": intentID})
	}
	if len(clauses) == 0 {
		return nil, ErrNotFound
	}

	var p models.Payment
	err := repo.coll.FindOne(ctx, bson.M{"$or": clauses}).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error fetching payment by provider ref: %w", err)
	}
	return &p, nil
}

// MarkPaid ratchets pending -> paid.
func (repo *MongoPaymentRepo) MarkPaid(ctx context.Context, id string, amountPaid float64) (bool, error) {
	filter := bson.M{"id": id, "status": models.PaymentStatusPending}
	update := bson.M{"$set": bson.M{
		"status":      models.PaymentStatusPaid,
		"amount_paid": amountPaid,
		"updated_at":  time.Now().UTC(),
	}}
	res, err := repo.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("error marking payment %s paid: %w", id, err)
	}
	return res.ModifiedCount > 0, nil
}

// MarkFailed ratchets pending -> failed. A payment already paid is left
// untouched, which is what makes stale failure events harmless.
func (repo *MongoPaymentRepo) MarkFailed(ctx context.Context, id, reason string) (bool, error) {
	filter := bson.M{"id": id, "status": models.PaymentStatusPending}
	update := bson.M{"$set": bson.M{
		"status":      models.PaymentStatusFailed,
		"meta.reason": reason,
		"updated_at":  time.Now().UTC(),
	}}
	res, err := repo.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("error marking payment %s failed: %w", id, err)
	}
	return res.ModifiedCount > 0, nil
}

// AttachBooking moves the reference from reservation to booking.
func (repo *MongoPaymentRepo) AttachBooking(ctx context.Context, id, bookingID string) error {
	filter := bson.M{"id": id}
	update := bson.M{
		"$set":   bson.M{"booking_id": bookingID, "updated_at": time.Now().UTC()},
		"$unset": bson.M{"reservation_id": ""},
	}
	if _, err := repo.coll.UpdateOne(ctx, filter, update); err != nil {
		return fmt.Errorf("error attaching booking to payment %s: %w", id, err)
	}
	return nil
}

func (repo *MongoPaymentRepo) SetProviderRefs(ctx context.Context, id, sessionID, intentID string) error {
	filter := bson.M{"id": id}
	update := bson.M{"$set": bson.M{
		"provider_session_id":        sessionID,
		"provider_payment_intent_id": intentID,
		"updated_at":                 time.Now().UTC(),
	}}
	if _, err := repo.coll.UpdateOne(ctx, filter, update); err != nil {
		return fmt.Errorf("error setting provider refs on payment %s: %w", id, err)
	}
	return nil
}

func (repo *MongoPaymentRepo) SetMeta(ctx context.Context, id, key, value string) error {
	filter := bson.M{"id": id}
	update := bson.M{"$set": bson.M{"meta." + key: value, "updated_at": time.Now().UTC()}}
	if _, err := repo.coll.UpdateOne(ctx, filter, update); err != nil {
		return fmt.Errorf("error setting meta on payment %s: %w", id, err)
	}
	return nil
}
