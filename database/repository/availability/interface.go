package availabilityRepo

import (
	"context"

	"slotbook/models"
)

// AvailabilityRepository stores per-vendor weekly schedules. Mutated only
// by the owning vendor; read-mostly by slot generation.
type AvailabilityRepository interface {
	Get(ctx context.Context, vendorID string) (*models.WeeklyAvailability, error)
	Upsert(ctx context.Context, wa *models.WeeklyAvailability) error
}
