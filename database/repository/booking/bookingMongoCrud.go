package bookingRepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"slotbook/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// CreateGuarded inserts the booking after re-checking that no committed
// active booking overlaps its window. Interval overlap is half-open:
// existing.start < new.end && new.start < existing.end. The caller
// serializes concurrent writers by holding the slot's reservation key.
func (repo *MongoBookingRepo) CreateGuarded(ctx context.Context, b *models.Booking) error {
	filter := bson.M{
		"vendor_id": b.VendorID,
		"status":    bson.M{"$in": models.ActiveStatuses()},
		"start":     bson.M{"$lt": b.End},
		"end":       bson.M{"$gt": b.Start},
	}
	n, err := repo.coll.CountDocuments(ctx, filter)
	if err != nil {
		return fmt.Errorf("overlap check failed: %w", err)
	}
	if n > 0 {
		return ErrSlotTaken
	}
	if _, err := repo.coll.InsertOne(ctx, b); err != nil {
		return fmt.Errorf("insert booking failed: %w", err)
	}
	return nil
}

// GetByID retrieves a booking by its ID.
func (repo *MongoBookingRepo) GetByID(ctx context.Context, id string) (*models.Booking, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var b models.Booking
	err := repo.coll.FindOne(ctx, bson.M{"id": id}).Decode(&b)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error fetching booking %s: %w", id, err)
	}
	return &b, nil
}

// UpdateStatus conditionally transitions a booking's status.
func (repo *MongoBookingRepo) UpdateStatus(ctx context.Context, id string, from []string, to string) (bool, error) {
	filter := bson.M{"id": id, "status": bson.M{"$in": from}}
	update := bson.M{"$set": bson.M{"status": to, "updated_at": time.Now().UTC()}}
	res, err := repo.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("error updating booking %s status: %w", id, err)
	}
	return res.ModifiedCount > 0, nil
}

// UpdateSchedule moves an active booking after re-checking the target
// window against the vendor's other active bookings. An occupied target
// yields ErrSlotTaken.
func (repo *MongoBookingRepo) UpdateSchedule(ctx context.Context, id, vendorID, date string, start, end time.Time) (bool, error) {
	overlap := bson.M{
		"vendor_id": vendorID,
		"id":        bson.M{"$ne": id},
		"status":    bson.M{"$in": models.ActiveStatuses()},
		"start":     bson.M{"$lt": end},
		"end":       bson.M{"$gt": start},
	}
	n, err := repo.coll.CountDocuments(ctx, overlap)
	if err != nil {
		return false, fmt.Errorf("overlap check failed: %w", err)
	}
	if n > 0 {
		return false, ErrSlotTaken
	}
	filter := bson.M{"id": id, "status": bson.M{"$in": models.ActiveStatuses()}}
	update := bson.M{"$set": bson.M{
		"date":       date,
		"start":      start,
		"end":        end,
		"status":     models.BookingStatusRescheduled,
		"updated_at": time.Now().UTC(),
	}}
	res, err := repo.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("error rescheduling booking %s: %w", id, err)
	}
	return res.ModifiedCount > 0, nil
}

// CancelWithRefund applies a terminal cancellation along with the refund
// decision. Guarded on non-terminal status so a double cancel is a no-op.
func (repo *MongoBookingRepo) CancelWithRefund(ctx context.Context, id, toStatus string, refund models.RefundRecord, payStatus string) (bool, error) {
	nonTerminal := []string{
		models.BookingStatusPendingVerification,
		models.BookingStatusUpcoming,
		models.BookingStatusRescheduled,
		models.BookingStatusMissed,
	}
	filter := bson.M{"id": id, "status": bson.M{"$in": nonTerminal}}
	update := bson.M{"$set": bson.M{
		"status":         toStatus,
		"refund":         refund,
		"payment.status": payStatus,
		"updated_at":     time.Now().UTC(),
	}}
	res, err := repo.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("error cancelling booking %s: %w", id, err)
	}
	return res.ModifiedCount > 0, nil
}

// SetPaymentAggregate rewrites the booking money aggregate.
func (repo *MongoBookingRepo) SetPaymentAggregate(ctx context.Context, id string, paid, balance float64, status string) error {
	filter := bson.M{"id": id}
	update := bson.M{"$set": bson.M{
		"payment.paid_amount":    paid,
		"payment.balance_amount": balance,
		"payment.status":         status,
		"updated_at":             time.Now().UTC(),
	}}
	if _, err := repo.coll.UpdateOne(ctx, filter, update); err != nil {
		return fmt.Errorf("error updating booking %s payment aggregate: %w", id, err)
	}
	return nil
}
