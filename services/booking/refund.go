package booking

import (
	"time"

	"slotbook/models"
)

// Refund reason codes, persisted on the booking with the decision.
const (
	RefundReasonVendorOrUndelivered = "vendor-initiated or undelivered"
	RefundReasonEarlyClient         = "early client cancellation"
	RefundReasonLateOrNoShow        = "late cancellation/no-show"
)

// earlyCancelWindow is how far ahead of the appointment a client must
// cancel to get everything above the deposit back.
const earlyCancelWindow = 24 * time.Hour

// Refund computes the refundable amount for a cancellation. Pure: the
// result is evaluated once at cancellation time and persisted, never
// recomputed. Rules in order: vendor-initiated or undelivered service
// refunds everything; a client cancelling at least 24h ahead forfeits
// only the deposit; anything later (or a no-show) refunds nothing.
func Refund(cancelledBy string, cancelTime, appointmentStart time.Time, depositAmount, paidAmount float64, wasDelivered bool) (float64, string) {
	if cancelledBy == models.RoleVendor || !wasDelivered {
		return paidAmount, RefundReasonVendorOrUndelivered
	}
	if appointmentStart.Sub(cancelTime) >= earlyCancelWindow {
		refundable := paidAmount - depositAmount
		if refundable < 0 {
			refundable = 0
		}
		return refundable, RefundReasonEarlyClient
	}
	return 0, RefundReasonLateOrNoShow
}
