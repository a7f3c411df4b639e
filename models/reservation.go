package models

import "time"

// Reservation is a time-boxed hold on a slot while a deposit payment is in
// flight. It exists only between checkout initiation and either promotion
// into a Booking (payment confirmed) or deletion (payment failed, or the
// store's TTL expired it). The full booking payload is embedded so
// promotion never needs the client again.
type Reservation struct {
	ID        string    `json:"id"`
	VendorID  string    `json:"vendorId"`
	ServiceID string    `json:"serviceId"`
	Date      string    `json:"date"` // vendor-local "YYYY-MM-DD"
	Start     time.Time `json:"start"` // absolute UTC
	End       time.Time `json:"end"`
	Timezone  string    `json:"timezone"`
	Payload   Booking   `json:"payload"`
	ExpiresAt time.Time `json:"expiresAt"`
	CreatedAt time.Time `json:"createdAt"`
}
