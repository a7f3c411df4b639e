package booking

import (
	"time"
)

const (
	dateLayout  = "2006-01-02"
	clockLayout = "15:04"
)

// NowUTC returns the current instant in UTC.
func NowUTC() time.Time {
	return time.Now().UTC()
}

// ToUTC anchors a (local date, local HH:mm) pair in the given IANA zone
// and returns the absolute UTC instant. Conversion goes through the zone
// rather than a fixed offset, so DST transitions resolve correctly.
func ToUTC(date, clock, tz string) (time.Time, error) {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return time.Time{}, NewError(CodeValidation, "unknown timezone %q", tz)
	}
	d, err := time.Parse(dateLayout, date)
	if err != nil {
		return time.Time{}, NewError(CodeValidation, "malformed date %q, want YYYY-MM-DD", date)
	}
	c, err := time.Parse(clockLayout, clock)
	if err != nil {
		return time.Time{}, NewError(CodeValidation, "malformed time %q, want HH:mm", clock)
	}
	local := time.Date(d.Year(), d.Month(), d.Day(), c.Hour(), c.Minute(), 0, 0, loc)
	return local.UTC(), nil
}

// ToLocal formats an absolute instant as vendor-local "HH:mm".
func ToLocal(t time.Time, tz string) (string, error) {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return "", NewError(CodeValidation, "unknown timezone %q", tz)
	}
	return t.In(loc).Format(clockLayout), nil
}

// overlaps reports half-open interval intersection: [aStart, aEnd) and
// [bStart, bEnd) share at least one instant.
func overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}
