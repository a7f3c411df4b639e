package models

import "time"

// Service is a vendor's bookable offering from the catalog.
type Service struct {
	ID              string    `bson:"id" json:"id"`
	VendorID        string    `bson:"vendor_id" json:"vendorId"`
	Name            string    `bson:"name" json:"name"`
	Price           float64   `bson:"price" json:"price"`
	Currency        string    `bson:"currency" json:"currency"`
	DurationMinutes int       `bson:"duration_minutes" json:"durationMinutes"`
	BufferMinutes   int       `bson:"buffer_minutes" json:"bufferMinutes"`
	RequireDeposit  bool      `bson:"require_deposit" json:"requireDeposit"`
	DepositAmount   float64   `bson:"deposit_amount" json:"depositAmount"` // 0 means the 25% default applies
	CreatedAt       time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt       time.Time `bson:"updated_at" json:"updatedAt"`
}

// SlotMinutes is the slot step the service occupies: duration plus buffer.
func (s *Service) SlotMinutes() int {
	return s.DurationMinutes + s.BufferMinutes
}

// MinimumDeposit is the floor for a deposit charge: the configured deposit
// amount or 25% of the price, whichever is larger.
func (s *Service) MinimumDeposit() float64 {
	quarter := s.Price * 0.25
	if s.DepositAmount > quarter {
		return s.DepositAmount
	}
	return quarter
}
