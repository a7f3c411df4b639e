package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	availabilityRepo "slotbook/database/repository/availability"
	serviceRepo "slotbook/database/repository/service"
	"slotbook/models"
)

// interval is an absolute busy window used during slot derivation.
type interval struct {
	start time.Time
	end   time.Time
}

// GenerateSlots derives the ordered bookable start-times ("HH:mm",
// vendor-local) for a date. Slot boundaries are derived per request from
// the weekly schedule, existing bookings and live checkout holds; nothing
// is stored, so correctness reduces to interval math and zone conversion.
func (se *DefaultBookingEngine) GenerateSlots(ctx context.Context, vendorID, date string, requiredMinutes int) ([]string, error) {
	return se.generateSlots(ctx, vendorID, date, requiredMinutes, "")
}

// SlotsForService resolves the service's slot step (duration + buffer)
// before generating.
func (se *DefaultBookingEngine) SlotsForService(ctx context.Context, vendorID, serviceID, date string) ([]string, error) {
	svc, err := se.getService(ctx, serviceID)
	if err != nil {
		return nil, err
	}
	return se.generateSlots(ctx, vendorID, date, svc.SlotMinutes(), "")
}

func (se *DefaultBookingEngine) generateSlots(ctx context.Context, vendorID, date string, requiredMinutes int, excludeBookingID string) ([]string, error) {
	if vendorID == "" {
		return nil, NewError(CodeValidation, "vendor id is required")
	}
	parsedDate, err := time.Parse(dateLayout, date)
	if err != nil {
		return nil, NewError(CodeValidation, "malformed date %q, want YYYY-MM-DD", date)
	}
	if requiredMinutes <= 0 {
		return nil, NewError(CodeValidation, "duration must be positive, got %d", requiredMinutes)
	}

	wa, err := se.Availability.Get(ctx, vendorID)
	if errors.Is(err, availabilityRepo.ErrNotFound) {
		return nil, NewError(CodeVendorConfigMissing, "vendor %s has no availability configured", vendorID)
	}
	if err != nil {
		return nil, fmt.Errorf("fetching availability: %w", err)
	}

	day := wa.Day(parsedDate.Weekday())
	if day == nil || !day.IsOpen {
		return nil, NewError(CodeNotAvailable, "vendor %s is closed on %s", vendorID, parsedDate.Weekday())
	}

	workStart, err := ToUTC(date, day.WorkStart, wa.Timezone)
	if err != nil {
		return nil, err
	}
	workEnd, err := ToUTC(date, day.WorkEnd, wa.Timezone)
	if err != nil {
		return nil, err
	}

	busy := make([]interval, 0, len(day.Breaks))
	for _, br := range day.Breaks {
		bs, err := ToUTC(date, br.Start, wa.Timezone)
		if err != nil {
			return nil, err
		}
		be, err := ToUTC(date, br.End, wa.Timezone)
		if err != nil {
			return nil, err
		}
		busy = append(busy, interval{start: bs, end: be})
	}

	existing, err := se.Bookings.FindActiveInWindow(ctx, vendorID, workStart, workEnd)
	if err != nil {
		return nil, fmt.Errorf("fetching bookings: %w", err)
	}
	for _, b := range existing {
		if excludeBookingID != "" && b.ID == excludeBookingID {
			continue
		}
		busy = append(busy, interval{start: b.Start, end: b.End})
	}

	holds, err := se.Reservations.ListActive(ctx, vendorID, date)
	if err != nil {
		return nil, fmt.Errorf("fetching reservations: %w", err)
	}
	for _, r := range holds {
		busy = append(busy, interval{start: r.Start, end: r.End})
	}

	dur := time.Duration(requiredMinutes) * time.Minute
	var slots []string
	for cur := workStart; !cur.Add(dur).After(workEnd); cur = cur.Add(dur) {
		if overlapsAny(cur, cur.Add(dur), busy) {
			continue
		}
		local, err := ToLocal(cur, wa.Timezone)
		if err != nil {
			return nil, err
		}
		slots = append(slots, local)
	}
	return slots, nil
}

func overlapsAny(start, end time.Time, busy []interval) bool {
	for _, iv := range busy {
		if overlaps(start, end, iv.start, iv.end) {
			return true
		}
	}
	return false
}

// validateSlot re-derives the slot list and checks the requested start is
// still on it; returns the absolute window for the requested slot. This
// is the single authoritative availability condition at write time.
func (se *DefaultBookingEngine) validateSlot(ctx context.Context, vendorID, date, startClock string, requiredMinutes int, excludeBookingID string) (time.Time, time.Time, string, error) {
	wa, err := se.Availability.Get(ctx, vendorID)
	if errors.Is(err, availabilityRepo.ErrNotFound) {
		return time.Time{}, time.Time{}, "", NewError(CodeVendorConfigMissing, "vendor %s has no availability configured", vendorID)
	}
	if err != nil {
		return time.Time{}, time.Time{}, "", fmt.Errorf("fetching availability: %w", err)
	}

	slots, err := se.generateSlots(ctx, vendorID, date, requiredMinutes, excludeBookingID)
	if err != nil {
		return time.Time{}, time.Time{}, "", err
	}
	found := false
	for _, s := range slots {
		if s == startClock {
			found = true
			break
		}
	}
	if !found {
		return time.Time{}, time.Time{}, "", NewError(CodeSlotUnavailable, "slot %s on %s is not available", startClock, date)
	}

	start, err := ToUTC(date, startClock, wa.Timezone)
	if err != nil {
		return time.Time{}, time.Time{}, "", err
	}
	return start, start.Add(time.Duration(requiredMinutes) * time.Minute), wa.Timezone, nil
}

func (se *DefaultBookingEngine) getService(ctx context.Context, serviceID string) (*models.Service, error) {
	svc, err := se.Services.GetByID(ctx, serviceID)
	if errors.Is(err, serviceRepo.ErrNotFound) {
		return nil, NewError(CodeNotFound, "service %s not found", serviceID)
	}
	if err != nil {
		return nil, fmt.Errorf("fetching service: %w", err)
	}
	return svc, nil
}
