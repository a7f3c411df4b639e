package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	bookingRepo "slotbook/database/repository/booking"
	"slotbook/models"
	"slotbook/services/notification"
	"slotbook/services/tasks"
	"slotbook/utils"
)

// ReminderEnqueuer hands reminder payloads to the background queue.
type ReminderEnqueuer interface {
	EnqueueReminder(payload models.ReminderPayload, fireAt time.Time) error
}

// AsynqEnqueuer enqueues reminders on the shared asynq queue.
type AsynqEnqueuer struct {
	Client *asynq.Client
}

func (e *AsynqEnqueuer) EnqueueReminder(payload models.ReminderPayload, fireAt time.Time) error {
	task, opts, err := tasks.NewReminderTask(payload, fireAt)
	if err != nil {
		return err
	}
	_, err = e.Client.Enqueue(task, opts...)
	return err
}

// reminderStage pairs a persisted flag field with its lead time before
// the appointment start.
type reminderStage struct {
	Field string
	Lead  time.Duration
}

var reminderLadder = []reminderStage{
	{Field: "at_24h", Lead: 24 * time.Hour},
	{Field: "at_3h", Lead: 3 * time.Hour},
	{Field: "at_1h", Lead: time.Hour},
}

// Reconciler runs the periodic sweeps that keep booking state honest:
// ended-but-active bookings become missed, due reminders fire once, and
// vendors get prompted to settle ended appointments. Every sweep is safe
// to run concurrently with itself because each transition is a
// conditional write that only one runner can win.
type Reconciler struct {
	Bookings    bookingRepo.BookingRepository
	Notifier    notification.NotificationService
	Reminders   ReminderEnqueuer
	GracePeriod time.Duration

	// Now is overridable for tests; nil means wall clock.
	Now func() time.Time
}

func (r *Reconciler) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now().UTC()
}

// SweepMissed flips bookings whose window has fully passed while still
// active into missed. Failures on individual bookings are logged and
// skipped; the next sweep retries them.
func (r *Reconciler) SweepMissed(ctx context.Context) error {
	logger := utils.GetLogger()
	now := r.now()

	ended, err := r.Bookings.FindEndedActive(ctx, now)
	if err != nil {
		return fmt.Errorf("missed sweep query failed: %w", err)
	}

	flipped := 0
	for i := range ended {
		b := &ended[i]
		changed, err := r.Bookings.UpdateStatus(ctx, b.ID,
			[]string{models.BookingStatusUpcoming, models.BookingStatusRescheduled},
			models.BookingStatusMissed)
		if err != nil {
			logger.Error("failed to mark booking missed",
				zap.String("bookingID", b.ID), zap.Error(err))
			continue
		}
		if !changed {
			continue
		}
		flipped++
		r.notifyBoth(ctx, b, "booking_missed", "Appointment missed",
			"The appointment window passed without completion or cancellation.")
	}
	if flipped > 0 {
		logger.Info("missed sweep complete", zap.Int("flipped", flipped))
	}
	return nil
}

// RunReminderLadder enqueues the 24h/3h/1h reminders for bookings whose
// start has entered a stage window. The flag is claimed before the
// enqueue, so a crash between claim and enqueue drops at most one
// reminder rather than ever sending two.
func (r *Reconciler) RunReminderLadder(ctx context.Context) error {
	logger := utils.GetLogger()
	now := r.now()

	for _, stage := range reminderLadder {
		due, err := r.Bookings.FindReminderDue(ctx, stage.Field, now, now.Add(stage.Lead))
		if err != nil {
			return fmt.Errorf("reminder query for %s failed: %w", stage.Field, err)
		}
		for i := range due {
			b := &due[i]
			claimed, err := r.Bookings.SetReminderFlag(ctx, b.ID, stage.Field)
			if err != nil {
				logger.Error("failed to claim reminder flag",
					zap.String("bookingID", b.ID), zap.String("stage", stage.Field), zap.Error(err))
				continue
			}
			if !claimed {
				continue
			}
			if b.Client.ID == "" {
				continue
			}
			payload := models.ReminderPayload{
				BookingID: b.ID,
				Target:    "client",
				TargetID:  b.Client.ID,
				Stage:     stage.Field,
				Title:     "Upcoming appointment",
				Body:      fmt.Sprintf("Your appointment on %s at %s is coming up.", b.Date, b.Start.In(time.UTC).Format("15:04 MST")),
				FireDate:  now.Format(time.RFC3339),
			}
			if err := r.Reminders.EnqueueReminder(payload, now); err != nil {
				logger.Error("failed to enqueue reminder",
					zap.String("bookingID", b.ID), zap.String("stage", stage.Field), zap.Error(err))
			}
		}
	}
	return nil
}

// SweepVendorPrompts asks vendors, once per booking, to complete or
// cancel appointments that ended longer than the grace period ago and
// were never settled.
func (r *Reconciler) SweepVendorPrompts(ctx context.Context) error {
	logger := utils.GetLogger()
	cutoff := r.now().Add(-r.GracePeriod)

	due, err := r.Bookings.FindVendorPromptDue(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("vendor prompt query failed: %w", err)
	}
	for i := range due {
		b := &due[i]
		claimed, err := r.Bookings.SetVendorPromptSent(ctx, b.ID)
		if err != nil {
			logger.Error("failed to claim vendor prompt",
				zap.String("bookingID", b.ID), zap.Error(err))
			continue
		}
		if !claimed {
			continue
		}
		if err := r.Notifier.NotifyVendor(ctx, b.VendorID, "vendor_prompt",
			"Settle your appointment",
			fmt.Sprintf("The appointment on %s ended; mark it completed or cancel it.", b.Date)); err != nil {
			logger.Warn("vendor prompt notification failed",
				zap.String("bookingID", b.ID), zap.Error(err))
		}
	}
	return nil
}

func (r *Reconciler) notifyBoth(ctx context.Context, b *models.Booking, kind, subject, body string) {
	if r.Notifier == nil {
		return
	}
	if b.Client.ID != "" {
		if err := r.Notifier.NotifyClient(ctx, b.Client.ID, kind, subject, body); err != nil {
			utils.GetLogger().Warn("client notification failed",
				zap.String("bookingID", b.ID), zap.String("kind", kind), zap.Error(err))
		}
	}
	if err := r.Notifier.NotifyVendor(ctx, b.VendorID, kind, subject, body); err != nil {
		utils.GetLogger().Warn("vendor notification failed",
			zap.String("bookingID", b.ID), zap.String("kind", kind), zap.Error(err))
	}
}
