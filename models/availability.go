package models

import (
	"fmt"
	"time"
)

// BreakWindow is a pause inside a working day, in vendor-local "HH:mm".
type BreakWindow struct {
	Start string `bson:"start" json:"start"`
	End   string `bson:"end" json:"end"`
}

// DaySchedule describes one weekday of a vendor's working week.
type DaySchedule struct {
	Weekday   time.Weekday  `bson:"weekday" json:"weekday"`     // 0 = Sunday
	IsOpen    bool          `bson:"is_open" json:"isOpen"`      // closed days generate no slots
	WorkStart string        `bson:"work_start" json:"workStart"` // vendor-local "HH:mm"
	WorkEnd   string        `bson:"work_end" json:"workEnd"`
	Breaks    []BreakWindow `bson:"breaks,omitempty" json:"breaks,omitempty"`
}

// WeeklyAvailability is a vendor's weekly schedule. All times are
// vendor-local strings; Timezone is the IANA zone they are anchored to.
type WeeklyAvailability struct {
	VendorID  string        `bson:"vendor_id" json:"vendorId"`
	Timezone  string        `bson:"timezone" json:"timezone"`
	Days      []DaySchedule `bson:"days" json:"days"`
	UpdatedAt time.Time     `bson:"updated_at" json:"updatedAt"`
}

// Day returns the schedule for the given weekday, or nil when none is set.
func (wa *WeeklyAvailability) Day(wd time.Weekday) *DaySchedule {
	for i := range wa.Days {
		if wa.Days[i].Weekday == wd {
			return &wa.Days[i]
		}
	}
	return nil
}

// Validate enforces the weekly schedule invariants: workStart < workEnd,
// every break inside the working window, breaks pairwise non-overlapping.
func (wa *WeeklyAvailability) Validate() error {
	if wa.VendorID == "" {
		return fmt.Errorf("vendor id is required")
	}
	if _, err := time.LoadLocation(wa.Timezone); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", wa.Timezone, err)
	}
	seen := map[time.Weekday]bool{}
	for _, day := range wa.Days {
		if seen[day.Weekday] {
			return fmt.Errorf("duplicate schedule for %s", day.Weekday)
		}
		seen[day.Weekday] = true
		if !day.IsOpen {
			continue
		}
		ws, err := parseClock(day.WorkStart)
		if err != nil {
			return fmt.Errorf("%s workStart: %w", day.Weekday, err)
		}
		we, err := parseClock(day.WorkEnd)
		if err != nil {
			return fmt.Errorf("%s workEnd: %w", day.Weekday, err)
		}
		if ws >= we {
			return fmt.Errorf("%s: workStart must precede workEnd", day.Weekday)
		}
		starts := make([]int, len(day.Breaks))
		ends := make([]int, len(day.Breaks))
		for i, br := range day.Breaks {
			bs, err := parseClock(br.Start)
			if err != nil {
				return fmt.Errorf("%s break %d start: %w", day.Weekday, i, err)
			}
			be, err := parseClock(br.End)
			if err != nil {
				return fmt.Errorf("%s break %d end: %w", day.Weekday, i, err)
			}
			if bs >= be {
				return fmt.Errorf("%s break %d: start must precede end", day.Weekday, i)
			}
			if bs < ws || be > we {
				return fmt.Errorf("%s break %d: outside working window", day.Weekday, i)
			}
			starts[i], ends[i] = bs, be
		}
		for i := range day.Breaks {
			for j := i + 1; j < len(day.Breaks); j++ {
				if starts[i] < ends[j] && starts[j] < ends[i] {
					return fmt.Errorf("%s: breaks %d and %d overlap", day.Weekday, i, j)
				}
			}
		}
	}
	return nil
}

// parseClock converts "HH:mm" to minutes from midnight.
func parseClock(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("malformed time %q", s)
	}
	return t.Hour()*60 + t.Minute(), nil
}
