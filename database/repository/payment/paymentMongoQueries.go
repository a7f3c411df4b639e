package paymentRepo

import (
	"context"
	"fmt"
	"time"

	"slotbook/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// SumPaidForBooking aggregates the booking's paid total minus refunds.
// Each payment contributes its captured amount net of whatever portion
// was returned, so a forfeited deposit keeps counting.
func (repo *MongoPaymentRepo) SumPaidForBooking(ctx context.Context, bookingID string) (float64, error) {
	pipeline := []bson.M{
		{"$match": bson.M{
			"booking_id": bookingID,
			"status":     bson.M{"$in": []string{models.PaymentStatusPaid, models.PaymentStatusRefunded}},
		}},
		{"$group": bson.M{
			"_id": nil,
			"total": bson.M{"$sum": bson.M{"$subtract": bson.A{
				"$amount_paid",
				bson.M{"$ifNull": bson.A{"$amount_refunded", 0}},
			}}},
		}},
	}
	cur, err := repo.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, fmt.Errorf("error aggregating payments for booking %s: %w", bookingID, err)
	}
	defer cur.Close(ctx)

	var rows []struct {
		Total float64 `bson:"total"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return 0, fmt.Errorf("error decoding payment aggregate: %w", err)
	}
	if len(rows) == 0 {
		return 0, nil
	}
	if rows[0].Total < 0 {
		return 0, nil
	}
	return rows[0].Total, nil
}

// MarkRefundedByBooking allocates the refund across the booking's paid
// payments, newest first. A payment keeps status paid while part of its
// captured amount is retained and flips to refunded only when fully
// returned, so the forfeited share of a deposit never reads as refunded.
func (repo *MongoPaymentRepo) MarkRefundedByBooking(ctx context.Context, bookingID string, amount float64) error {
	filter := bson.M{"booking_id": bookingID, "status": models.PaymentStatusPaid}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cur, err := repo.coll.Find(ctx, filter, opts)
	if err != nil {
		return fmt.Errorf("error listing payments for booking %s: %w", bookingID, err)
	}
	var payments []models.Payment
	if err := cur.All(ctx, &payments); err != nil {
		return fmt.Errorf("error decoding payments for booking %s: %w", bookingID, err)
	}

	remaining := amount
	for _, p := range payments {
		if remaining <= 0 {
			break
		}
		refundable := p.AmountPaid - p.AmountRefunded
		if refundable <= 0 {
			continue
		}
		alloc := refundable
		if remaining < alloc {
			alloc = remaining
		}
		set := bson.M{
			"amount_refunded": p.AmountRefunded + alloc,
			"updated_at":      time.Now().UTC(),
		}
		if alloc == refundable {
			set["status"] = models.PaymentStatusRefunded
		}
		if _, err := repo.coll.UpdateOne(ctx,
			bson.M{"id": p.ID, "status": models.PaymentStatusPaid},
			bson.M{"$set": set}); err != nil {
			return fmt.Errorf("error refunding payment %s: %w", p.ID, err)
		}
		remaining -= alloc
	}
	if remaining > 0 {
		return fmt.Errorf("refund %.2f for booking %s exceeds the paid ledger by %.2f", amount, bookingID, remaining)
	}
	return nil
}
