// Package schedule models a court's weekly operating hours and converts
// between the persisted wire form (ordered array of 7 day records,
// Sunday-first) and the keyed form used by schedule-editing screens.
package schedule

import (
	"fmt"
	"time"
)

// TimeOfDay is a wall-clock time. Only the hour and minute carry meaning.
type TimeOfDay struct {
	Hour   int `json:"hour"`
	Minute int `json:"minute"`
}

// DaySchedule is one weekday's operating window. When Open is false the
// times are ignored and the day has zero availability.
type DaySchedule struct {
	Open     bool      `json:"is_open"`
	OpensAt  TimeOfDay `json:"opens_at"`
	ClosesAt TimeOfDay `json:"closes_at"`
}

// Week is the keyed editing form: one named entry per weekday.
type Week struct {
	Sunday    DaySchedule `json:"sunday"`
	Monday    DaySchedule `json:"monday"`
	Tuesday   DaySchedule `json:"tuesday"`
	Wednesday DaySchedule `json:"wednesday"`
	Thursday  DaySchedule `json:"thursday"`
	Friday    DaySchedule `json:"friday"`
	Saturday  DaySchedule `json:"saturday"`
}

// WireDay is one entry of the persisted wire form. Opening and closing times
// are timestamps anchored to the placeholder date 1970-01-01; only the
// time-of-day component is significant and consumers must ignore the date.
type WireDay struct {
	Weekday     int       `json:"weekday"`
	IsOpen      bool      `json:"is_open"`
	OpeningTime time.Time `json:"opening_time"`
	ClosingTime time.Time `json:"closing_time"`
}

// ByWeekday returns the day entry for d (0=Sunday .. 6=Saturday, matching
// time.Weekday).
func (w Week) ByWeekday(d time.Weekday) DaySchedule {
	switch d {
	case time.Sunday:
		return w.Sunday
	case time.Monday:
		return w.Monday
	case time.Tuesday:
		return w.Tuesday
	case time.Wednesday:
		return w.Wednesday
	case time.Thursday:
		return w.Thursday
	case time.Friday:
		return w.Friday
	case time.Saturday:
		return w.Saturday
	}
	return DaySchedule{}
}

func (w *Week) setWeekday(d time.Weekday, day DaySchedule) {
	switch d {
	case time.Sunday:
		w.Sunday = day
	case time.Monday:
		w.Monday = day
	case time.Tuesday:
		w.Tuesday = day
	case time.Wednesday:
		w.Wednesday = day
	case time.Thursday:
		w.Thursday = day
	case time.Friday:
		w.Friday = day
	case time.Saturday:
		w.Saturday = day
	}
}

// Default is the schedule used when a court has none yet, and the fallback
// for malformed wire data: every day open, 08:00-22:00 on weekdays and
// 08:00-20:00 on weekends.
func Default() Week {
	weekday := DaySchedule{Open: true, OpensAt: TimeOfDay{Hour: 8}, ClosesAt: TimeOfDay{Hour: 22}}
	weekend := DaySchedule{Open: true, OpensAt: TimeOfDay{Hour: 8}, ClosesAt: TimeOfDay{Hour: 20}}
	return Week{
		Sunday:    weekend,
		Monday:    weekday,
		Tuesday:   weekday,
		Wednesday: weekday,
		Thursday:  weekday,
		Friday:    weekday,
		Saturday:  weekend,
	}
}

// ToWire converts a keyed week into the wire form: always exactly 7 records
// in fixed Sunday..Saturday order.
func ToWire(w Week) []WireDay {
	out := make([]WireDay, 0, 7)
	for d := time.Sunday; d <= time.Saturday; d++ {
		day := w.ByWeekday(d)
		out = append(out, WireDay{
			Weekday:     int(d),
			IsOpen:      day.Open,
			OpeningTime: wireTime(day.OpensAt),
			ClosingTime: wireTime(day.ClosesAt),
		})
	}
	return out
}

// FromWire converts wire records into the keyed form. Malformed input (nil,
// wrong length, a weekday missing or repeated) degrades to Default rather
// than failing: a broken stored schedule must not block the booking UI.
// Use ValidateWire to surface what was wrong.
func FromWire(records []WireDay) Week {
	if ValidateWire(records) != nil {
		return Default()
	}
	var w Week
	for _, rec := range records {
		w.setWeekday(time.Weekday(rec.Weekday), DaySchedule{
			Open:     rec.IsOpen,
			OpensAt:  TimeOfDay{Hour: rec.OpeningTime.Hour(), Minute: rec.OpeningTime.Minute()},
			ClosesAt: TimeOfDay{Hour: rec.ClosingTime.Hour(), Minute: rec.ClosingTime.Minute()},
		})
	}
	return w
}

// ValidateWire reports why a set of wire records would be rejected by
// FromWire. A nil return means FromWire will reflect the input exactly.
func ValidateWire(records []WireDay) error {
	if len(records) != 7 {
		return fmt.Errorf("schedule must have exactly 7 day records, got %d", len(records))
	}
	var seen [7]bool
	for _, rec := range records {
		if rec.Weekday < 0 || rec.Weekday > 6 {
			return fmt.Errorf("weekday %d out of range", rec.Weekday)
		}
		if seen[rec.Weekday] {
			return fmt.Errorf("weekday %d appears more than once", rec.Weekday)
		}
		seen[rec.Weekday] = true
	}
	return nil
}

// ApplyTemplate copies the open flag and both times of the template day onto
// every target day, leaving the rest of the week untouched. Used for
// "apply to all weekdays" / "apply to weekend" bulk edits.
func ApplyTemplate(w Week, template time.Weekday, targets []time.Weekday) Week {
	day := w.ByWeekday(template)
	for _, t := range targets {
		if t < time.Sunday || t > time.Saturday {
			continue
		}
		w.setWeekday(t, day)
	}
	return w
}

func wireTime(t TimeOfDay) time.Time {
	return time.Date(1970, time.January, 1, t.Hour, t.Minute, 0, 0, time.UTC)
}
