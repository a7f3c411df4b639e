package serviceRepo

import (
	"context"
	"errors"

	"slotbook/models"
)

var ErrNotFound = errors.New("service not found")

// ServiceRepository is the catalog lookup the engine consumes: price,
// currency, duration, buffer and deposit rules per service.
type ServiceRepository interface {
	GetByID(ctx context.Context, id string) (*models.Service, error)
	Upsert(ctx context.Context, svc *models.Service) error
	ListByVendor(ctx context.Context, vendorID string) ([]models.Service, error)
}
