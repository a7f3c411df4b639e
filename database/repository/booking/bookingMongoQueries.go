package bookingRepo

import (
	"context"
	"fmt"
	"time"

	"slotbook/models"

	"go.mongodb.org/mongo-driver/bson"
)

// FindActiveInWindow returns upcoming/rescheduled bookings for the vendor
// intersecting [from, to).
func (repo *MongoBookingRepo) FindActiveInWindow(ctx context.Context, vendorID string, from, to time.Time) ([]models.Booking, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{
		"vendor_id": vendorID,
		"status":    bson.M{"$in": models.ActiveStatuses()},
		"start":     bson.M{"$lt": to},
		"end":       bson.M{"$gt": from},
	}
	cur, err := repo.coll.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("error querying bookings for vendor %s: %w", vendorID, err)
	}
	defer cur.Close(ctx)

	var out []models.Booking
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("error decoding bookings: %w", err)
	}
	return out, nil
}

// FindEndedActive returns still-active bookings whose window has already
// closed; candidates for the missed sweep.
func (repo *MongoBookingRepo) FindEndedActive(ctx context.Context, before time.Time) ([]models.Booking, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	filter := bson.M{
		"status": bson.M{"$in": models.ActiveStatuses()},
		"end":    bson.M{"$lt": before},
	}
	cur, err := repo.coll.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("error querying ended bookings: %w", err)
	}
	defer cur.Close(ctx)

	var out []models.Booking
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("error decoding ended bookings: %w", err)
	}
	return out, nil
}

// FindReminderDue returns active bookings whose stage flag is still unset
// and whose start falls inside (from, to].
func (repo *MongoBookingRepo) FindReminderDue(ctx context.Context, stageField string, from, to time.Time) ([]models.Booking, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	filter := bson.M{
		"status":                  bson.M{"$in": models.ActiveStatuses()},
		"reminders." + stageField: false,
		"start":                   bson.M{"$gt": from, "$lte": to},
	}
	cur, err := repo.coll.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("error querying reminder candidates: %w", err)
	}
	defer cur.Close(ctx)

	var out []models.Booking
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("error decoding reminder candidates: %w", err)
	}
	return out, nil
}

// SetReminderFlag flips the stage flag, but only if it is still false.
func (repo *MongoBookingRepo) SetReminderFlag(ctx context.Context, id, stageField string) (bool, error) {
	filter := bson.M{"id": id, "reminders." + stageField: false}
	update := bson.M{"$set": bson.M{"reminders." + stageField: true, "updated_at": time.Now().UTC()}}
	res, err := repo.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("error setting reminder flag on booking %s: %w", id, err)
	}
	return res.ModifiedCount > 0, nil
}

// FindVendorPromptDue returns non-terminal bookings long past their end
// whose vendor has not yet been prompted to resolve the status.
func (repo *MongoBookingRepo) FindVendorPromptDue(ctx context.Context, endedBefore time.Time) ([]models.Booking, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	nonTerminal := []string{
		models.BookingStatusUpcoming,
		models.BookingStatusRescheduled,
		models.BookingStatusMissed,
	}
	filter := bson.M{
		"status":             bson.M{"$in": nonTerminal},
		"vendor_prompt_sent": false,
		"end":                bson.M{"$lt": endedBefore},
	}
	cur, err := repo.coll.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("error querying vendor prompt candidates: %w", err)
	}
	defer cur.Close(ctx)

	var out []models.Booking
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("error decoding vendor prompt candidates: %w", err)
	}
	return out, nil
}

// SetVendorPromptSent flips the prompt flag, only if still false.
func (repo *MongoBookingRepo) SetVendorPromptSent(ctx context.Context, id string) (bool, error) {
	filter := bson.M{"id": id, "vendor_prompt_sent": false}
	update := bson.M{"$set": bson.M{"vendor_prompt_sent": true, "updated_at": time.Now().UTC()}}
	res, err := repo.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("error setting vendor prompt flag on booking %s: %w", id, err)
	}
	return res.ModifiedCount > 0, nil
}
