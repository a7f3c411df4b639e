package booking

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"slotbook/models"
)

func testService(deposit bool) *models.Service {
	return &models.Service{
		ID: "s1", VendorID: "v1", Name: "Consultation",
		Price: 100, Currency: "USD",
		DurationMinutes: 60, BufferMinutes: 0,
		RequireDeposit: deposit,
	}
}

func verifiedClient() models.Caller {
	return models.Caller{ID: "c1", Role: models.RoleClient, Verified: true}
}

func vendorCaller() models.Caller {
	return models.Caller{ID: "v1", Role: models.RoleVendor, Verified: true}
}

func createRequest(start string) models.CreateBookingRequest {
	return models.CreateBookingRequest{
		VendorID:  "v1",
		ServiceID: "s1",
		Client:    models.ClientRef{ID: "c1", Name: "Ada"},
		Date:      "2026-09-07",
		StartTime: start,
	}
}

func TestCreateBookingDirectFlow(t *testing.T) {
	now := time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)
	te := newTestEngine(now, testService(false))
	setAvailability(t, te, "v1", "UTC", "2026-09-07", "09:00", "12:00")

	b, err := te.engine.CreateBooking(context.Background(), verifiedClient(), createRequest("10:00"))
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusUpcoming, b.Status)
	assert.Equal(t, models.PaymentStateUnpaid, b.Payment.Status)
	assert.Equal(t, 100.0, b.Payment.BalanceAmount)
	assert.Equal(t, "2026-09-07", b.Date)

	// The slot is gone for everyone else.
	slots, err := te.engine.GenerateSlots(context.Background(), "v1", "2026-09-07", 60)
	require.NoError(t, err)
	assert.Equal(t, []string{"09:00", "11:00"}, slots)

	_, err = te.engine.CreateBooking(context.Background(), verifiedClient(), createRequest("10:00"))
	assert.True(t, IsCode(err, CodeSlotUnavailable))
}

func TestCreateBookingRejectsDepositServices(t *testing.T) {
	now := time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)
	te := newTestEngine(now, testService(true))
	setAvailability(t, te, "v1", "UTC", "2026-09-07", "09:00", "12:00")

	_, err := te.engine.CreateBooking(context.Background(), verifiedClient(), createRequest("10:00"))
	assert.True(t, IsCode(err, CodeDepositRequired))
}

func TestUnverifiedCallerNeedsVerification(t *testing.T) {
	now := time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)
	te := newTestEngine(now, testService(false))
	setAvailability(t, te, "v1", "UTC", "2026-09-07", "09:00", "12:00")

	caller := models.Caller{ID: "c1", Role: models.RoleClient, Verified: false}
	b, err := te.engine.CreateBooking(context.Background(), caller, createRequest("10:00"))
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusPendingVerification, b.Status)

	token := te.tokens.lastToken()
	require.NotEmpty(t, token)

	verified, err := te.engine.VerifyBooking(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusUpcoming, verified.Status)

	// Single use: the same token cannot verify twice.
	_, err = te.engine.VerifyBooking(context.Background(), token)
	assert.True(t, IsCode(err, CodeNotFound))
}

func TestRescheduleMovesOnlyDateAndTime(t *testing.T) {
	now := time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)
	te := newTestEngine(now, testService(false))
	setAvailability(t, te, "v1", "UTC", "2026-09-07", "09:00", "12:00")

	b, err := te.engine.CreateBooking(context.Background(), verifiedClient(), createRequest("10:00"))
	require.NoError(t, err)

	moved, err := te.engine.Reschedule(context.Background(), verifiedClient(), models.RescheduleRequest{
		BookingID: b.ID, Date: "2026-09-07", StartTime: "11:00",
	})
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusRescheduled, moved.Status)
	wantStart, _ := ToUTC("2026-09-07", "11:00", "UTC")
	assert.True(t, moved.Start.Equal(wantStart))

	// The vacated slot is bookable again.
	slots, err := te.engine.GenerateSlots(context.Background(), "v1", "2026-09-07", 60)
	require.NoError(t, err)
	assert.Contains(t, slots, "10:00")
	assert.NotContains(t, slots, "11:00")
}

func TestRescheduleToOwnSlotTimeIsAllowed(t *testing.T) {
	now := time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)
	te := newTestEngine(now, testService(false))
	setAvailability(t, te, "v1", "UTC", "2026-09-07", "09:00", "12:00")

	b, err := te.engine.CreateBooking(context.Background(), verifiedClient(), createRequest("10:00"))
	require.NoError(t, err)

	// The booking's own window must not block its reschedule target.
	moved, err := te.engine.Reschedule(context.Background(), verifiedClient(), models.RescheduleRequest{
		BookingID: b.ID, Date: "2026-09-07", StartTime: "10:00",
	})
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusRescheduled, moved.Status)
}

func TestRescheduleAuthorization(t *testing.T) {
	now := time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)
	te := newTestEngine(now, testService(false))
	setAvailability(t, te, "v1", "UTC", "2026-09-07", "09:00", "12:00")

	b, err := te.engine.CreateBooking(context.Background(), verifiedClient(), createRequest("10:00"))
	require.NoError(t, err)

	stranger := models.Caller{ID: "c2", Role: models.RoleClient, Verified: true}
	_, err = te.engine.Reschedule(context.Background(), stranger, models.RescheduleRequest{
		BookingID: b.ID, Date: "2026-09-07", StartTime: "11:00",
	})
	assert.True(t, IsCode(err, CodeUnauthorized))
}

// seedLedger records settled payments for a booking, oldest first.
func seedLedger(t *testing.T, te *testEngine, bookingID string, created time.Time, amounts ...float64) {
	t.Helper()
	for i, amt := range amounts {
		p := &models.Payment{
			ID:             fmt.Sprintf("%s-p%d", bookingID, i+1),
			BookingID:      bookingID,
			VendorID:       "v1",
			ServiceID:      "s1",
			AmountExpected: amt,
			AmountPaid:     amt,
			Currency:       "USD",
			Method:         models.PaymentMethodOnline,
			Provider:       "stripe",
			Status:         models.PaymentStatusPaid,
			CreatedAt:      created.Add(time.Duration(i) * time.Hour),
			UpdatedAt:      created.Add(time.Duration(i) * time.Hour),
		}
		require.NoError(t, te.payments.Create(context.Background(), p))
	}
}

func TestCancelEarlyClientKeepsDeposit(t *testing.T) {
	now := time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)
	svc := testService(true)
	te := newTestEngine(now, svc)
	setAvailability(t, te, "v1", "UTC", "2026-09-07", "09:00", "12:00")

	// Seed a paid booking directly; the deposit flow has its own tests.
	start, _ := ToUTC("2026-09-07", "10:00", "UTC")
	b := &models.Booking{
		ID: "b1", VendorID: "v1", ServiceID: "s1",
		Client: models.ClientRef{ID: "c1", Name: "Ada"},
		Date:   "2026-09-07", Start: start, End: start.Add(time.Hour),
		Status: models.BookingStatusUpcoming,
		Payment: models.BookingPayment{
			Status: models.PaymentStatePaid, PaidAmount: 100, BalanceAmount: 0,
		},
	}
	require.NoError(t, te.bookings.CreateGuarded(context.Background(), b))
	// Ledger behind the aggregate: the $25 deposit first, $75 later.
	seedLedger(t, te, "b1", now.Add(-48*time.Hour), 25, 75)

	cancelled, err := te.engine.Cancel(context.Background(), verifiedClient(), models.CancelRequest{BookingID: "b1"})
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusCancelledByClient, cancelled.Status)
	require.NotNil(t, cancelled.Refund)
	// Deposit floor is max(configured, 25% of price) = 25.
	assert.Equal(t, 75.0, cancelled.Refund.Amount)
	assert.Equal(t, RefundReasonEarlyClient, cancelled.Refund.Reason)
	assert.Equal(t, models.PaymentStateRefunded, cancelled.Payment.Status)

	// The refund consumed the later payment in full; the forfeited
	// deposit still reads as paid money in the ledger.
	dep, err := te.payments.GetByID(context.Background(), "b1-p1")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPaid, dep.Status)
	assert.Equal(t, 0.0, dep.AmountRefunded)

	bal, err := te.payments.GetByID(context.Background(), "b1-p2")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusRefunded, bal.Status)
	assert.Equal(t, 75.0, bal.AmountRefunded)

	net, err := te.payments.SumPaidForBooking(context.Background(), "b1")
	require.NoError(t, err)
	assert.Equal(t, 25.0, net)
}

func TestCancelPartialRefundKeepsForfeitedShare(t *testing.T) {
	now := time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)
	te := newTestEngine(now, testService(true))
	setAvailability(t, te, "v1", "UTC", "2026-09-07", "09:00", "12:00")

	start, _ := ToUTC("2026-09-07", "10:00", "UTC")
	b := &models.Booking{
		ID: "b1", VendorID: "v1", ServiceID: "s1",
		Client: models.ClientRef{ID: "c1", Name: "Ada"},
		Date:   "2026-09-07", Start: start, End: start.Add(time.Hour),
		Status: models.BookingStatusUpcoming,
		Payment: models.BookingPayment{
			Status: models.PaymentStatePaid, PaidAmount: 100, BalanceAmount: 0,
		},
	}
	require.NoError(t, te.bookings.CreateGuarded(context.Background(), b))
	// One payment covered the whole price.
	seedLedger(t, te, "b1", now.Add(-48*time.Hour), 100)

	_, err := te.engine.Cancel(context.Background(), verifiedClient(), models.CancelRequest{BookingID: "b1"})
	require.NoError(t, err)

	// $75 back, $25 retained: the payment is partially refunded but not
	// closed, and the net paid total still shows the forfeited deposit.
	p, err := te.payments.GetByID(context.Background(), "b1-p1")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPaid, p.Status)
	assert.Equal(t, 75.0, p.AmountRefunded)

	net, err := te.payments.SumPaidForBooking(context.Background(), "b1")
	require.NoError(t, err)
	assert.Equal(t, 25.0, net)
}

func TestCancelByVendorRefundsEverything(t *testing.T) {
	now := time.Date(2026, 9, 7, 9, 30, 0, 0, time.UTC) // inside the 24h window
	te := newTestEngine(now, testService(true))
	setAvailability(t, te, "v1", "UTC", "2026-09-07", "09:00", "12:00")

	start, _ := ToUTC("2026-09-07", "10:00", "UTC")
	b := &models.Booking{
		ID: "b1", VendorID: "v1", ServiceID: "s1",
		Client: models.ClientRef{ID: "c1", Name: "Ada"},
		Date:   "2026-09-07", Start: start, End: start.Add(time.Hour),
		Status: models.BookingStatusUpcoming,
		Payment: models.BookingPayment{
			Status: models.PaymentStatePaid, PaidAmount: 100, BalanceAmount: 0,
		},
	}
	require.NoError(t, te.bookings.CreateGuarded(context.Background(), b))
	seedLedger(t, te, "b1", now.Add(-48*time.Hour), 25, 75)

	cancelled, err := te.engine.Cancel(context.Background(), vendorCaller(), models.CancelRequest{BookingID: "b1"})
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusCancelledByVendor, cancelled.Status)
	assert.Equal(t, 100.0, cancelled.Refund.Amount)
	assert.Equal(t, RefundReasonVendorOrUndelivered, cancelled.Refund.Reason)

	// Everything went back; nothing remains paid in the ledger.
	net, err := te.payments.SumPaidForBooking(context.Background(), "b1")
	require.NoError(t, err)
	assert.Equal(t, 0.0, net)
}

func TestCancelUndeliveredRefundsEvenWhenLate(t *testing.T) {
	now := time.Date(2026, 9, 7, 12, 0, 0, 0, time.UTC) // after the slot
	te := newTestEngine(now, testService(true))

	start, _ := ToUTC("2026-09-07", "10:00", "UTC")
	b := &models.Booking{
		ID: "b1", VendorID: "v1", ServiceID: "s1",
		Client: models.ClientRef{ID: "c1", Name: "Ada"},
		Date:   "2026-09-07", Start: start, End: start.Add(time.Hour),
		Status: models.BookingStatusMissed,
		Payment: models.BookingPayment{
			Status: models.PaymentStatePaid, PaidAmount: 100, BalanceAmount: 0,
		},
	}
	require.NoError(t, te.bookings.CreateGuarded(context.Background(), b))
	seedLedger(t, te, "b1", now.Add(-48*time.Hour), 100)

	cancelled, err := te.engine.Cancel(context.Background(), verifiedClient(), models.CancelRequest{
		BookingID: "b1", ServiceNotDelivered: true,
	})
	require.NoError(t, err)
	assert.Equal(t, 100.0, cancelled.Refund.Amount)
	assert.Equal(t, RefundReasonVendorOrUndelivered, cancelled.Refund.Reason)
}

func TestCreateBookingGuardsSlotAtWriteTime(t *testing.T) {
	now := time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)
	te := newTestEngine(now, testService(false))
	setAvailability(t, te, "v1", "UTC", "2026-09-07", "09:00", "12:00")

	// A competing hold lands after this request's validation read; the
	// blind wrapper keeps it out of the slot listing so only the write
	// path can catch it.
	start, _ := ToUTC("2026-09-07", "10:00", "UTC")
	hold := &models.Reservation{
		ID: "r-race", VendorID: "v1", ServiceID: "s1",
		Date: "2026-09-07", Start: start, End: start.Add(time.Hour),
		Timezone: "UTC", ExpiresAt: now.Add(10 * time.Minute), CreatedAt: now,
	}
	require.NoError(t, te.reservations.Create(context.Background(), hold, 10*time.Minute))
	te.engine.Reservations = &blindHoldRepo{te.reservations}

	_, err := te.engine.CreateBooking(context.Background(), verifiedClient(), createRequest("10:00"))
	assert.True(t, IsCode(err, CodeSlotUnavailable))

	// The insert never happened.
	from, _ := ToUTC("2026-09-07", "09:00", "UTC")
	to, _ := ToUTC("2026-09-07", "12:00", "UTC")
	bookings, err := te.bookings.FindActiveInWindow(context.Background(), "v1", from, to)
	require.NoError(t, err)
	assert.Empty(t, bookings)
}

func TestRescheduleGuardsTargetAtWriteTime(t *testing.T) {
	now := time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)
	te := newTestEngine(now, testService(false))
	setAvailability(t, te, "v1", "UTC", "2026-09-07", "09:00", "12:00")

	b, err := te.engine.CreateBooking(context.Background(), verifiedClient(), createRequest("10:00"))
	require.NoError(t, err)

	// A checkout grabs the target slot between validation and the update.
	target, _ := ToUTC("2026-09-07", "11:00", "UTC")
	hold := &models.Reservation{
		ID: "r-race", VendorID: "v1", ServiceID: "s1",
		Date: "2026-09-07", Start: target, End: target.Add(time.Hour),
		Timezone: "UTC", ExpiresAt: now.Add(10 * time.Minute), CreatedAt: now,
	}
	require.NoError(t, te.reservations.Create(context.Background(), hold, 10*time.Minute))
	te.engine.Reservations = &blindHoldRepo{te.reservations}

	_, err = te.engine.Reschedule(context.Background(), verifiedClient(), models.RescheduleRequest{
		BookingID: b.ID, Date: "2026-09-07", StartTime: "11:00",
	})
	assert.True(t, IsCode(err, CodeSlotUnavailable))

	// The booking kept its original slot and status.
	got, err := te.bookings.GetByID(context.Background(), b.ID)
	require.NoError(t, err)
	assert.True(t, got.Start.Equal(b.Start))
	assert.Equal(t, models.BookingStatusUpcoming, got.Status)
}

func TestCancelIsTerminal(t *testing.T) {
	now := time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)
	te := newTestEngine(now, testService(false))
	setAvailability(t, te, "v1", "UTC", "2026-09-07", "09:00", "12:00")

	b, err := te.engine.CreateBooking(context.Background(), verifiedClient(), createRequest("10:00"))
	require.NoError(t, err)

	_, err = te.engine.Cancel(context.Background(), verifiedClient(), models.CancelRequest{BookingID: b.ID})
	require.NoError(t, err)

	_, err = te.engine.Cancel(context.Background(), verifiedClient(), models.CancelRequest{BookingID: b.ID})
	assert.True(t, IsCode(err, CodeConflict))

	_, err = te.engine.Reschedule(context.Background(), verifiedClient(), models.RescheduleRequest{
		BookingID: b.ID, Date: "2026-09-07", StartTime: "11:00",
	})
	assert.True(t, IsCode(err, CodeConflict))
}

func TestCompleteIsVendorOnly(t *testing.T) {
	now := time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)
	te := newTestEngine(now, testService(false))
	setAvailability(t, te, "v1", "UTC", "2026-09-07", "09:00", "12:00")

	b, err := te.engine.CreateBooking(context.Background(), verifiedClient(), createRequest("10:00"))
	require.NoError(t, err)

	err = te.engine.Complete(context.Background(), verifiedClient(), b.ID)
	assert.True(t, IsCode(err, CodeUnauthorized))

	require.NoError(t, te.engine.Complete(context.Background(), vendorCaller(), b.ID))
	got, err := te.bookings.GetByID(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusCompleted, got.Status)

	// Completion is terminal; a second attempt conflicts.
	err = te.engine.Complete(context.Background(), vendorCaller(), b.ID)
	assert.True(t, IsCode(err, CodeConflict))
}

func TestCompleteResolvesMissedBookings(t *testing.T) {
	now := time.Date(2026, 9, 8, 8, 0, 0, 0, time.UTC)
	te := newTestEngine(now, testService(false))

	start, _ := ToUTC("2026-09-07", "10:00", "UTC")
	b := &models.Booking{
		ID: "b1", VendorID: "v1", ServiceID: "s1",
		Client: models.ClientRef{ID: "c1", Name: "Ada"},
		Date:   "2026-09-07", Start: start, End: start.Add(time.Hour),
		Status: models.BookingStatusMissed,
	}
	require.NoError(t, te.bookings.CreateGuarded(context.Background(), b))

	require.NoError(t, te.engine.Complete(context.Background(), vendorCaller(), "b1"))
	got, err := te.bookings.GetByID(context.Background(), "b1")
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusCompleted, got.Status)
}
