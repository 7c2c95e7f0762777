package availability

import (
	"testing"

	"github.com/arenalivre/courtbook/internal/schedule"
)

func openDay(openHour, closeHour int) schedule.DaySchedule {
	return schedule.DaySchedule{
		Open:     true,
		OpensAt:  schedule.TimeOfDay{Hour: openHour},
		ClosesAt: schedule.TimeOfDay{Hour: closeHour},
	}
}

func TestSlotGrid_FullDayNoBookings(t *testing.T) {
	grid := SlotGrid(openDay(8, 22), nil)
	if len(grid) != 14 {
		t.Fatalf("expected 14 slots, got %d", len(grid))
	}
	if grid[0].Label != "08:00 - 09:00" {
		t.Fatalf("unexpected first label: %q", grid[0].Label)
	}
	if grid[13].Label != "21:00 - 22:00" {
		t.Fatalf("unexpected last label: %q", grid[13].Label)
	}
	for i, s := range grid {
		if !s.Available {
			t.Fatalf("slot %d should be available", i)
		}
	}
}

func TestSlotGrid_MarksBookedHours(t *testing.T) {
	grid := SlotGrid(openDay(8, 12), []BookedInterval{{StartHour: 9, EndHour: 11}})
	want := []bool{true, false, false, true}
	if len(grid) != len(want) {
		t.Fatalf("expected %d slots, got %d", len(want), len(grid))
	}
	for i, avail := range want {
		if grid[i].Available != avail {
			t.Fatalf("slot %d (%s): expected available=%v", i, grid[i].Label, avail)
		}
	}
}

func TestSlotGrid_ClosedDay(t *testing.T) {
	day := openDay(8, 22)
	day.Open = false
	if grid := SlotGrid(day, nil); len(grid) != 0 {
		t.Fatalf("closed day should yield empty grid, got %d slots", len(grid))
	}
}

func TestSlotGrid_ZeroWidthWindow(t *testing.T) {
	if grid := SlotGrid(openDay(8, 8), nil); len(grid) != 0 {
		t.Fatalf("zero-width window should yield empty grid, got %d slots", len(grid))
	}
}

func TestSlotGrid_MidnightCrossing(t *testing.T) {
	grid := SlotGrid(openDay(20, 2), nil)
	if len(grid) != 6 {
		t.Fatalf("expected 6 slots for 20:00-02:00, got %d", len(grid))
	}
	labels := []string{
		"20:00 - 21:00",
		"21:00 - 22:00",
		"22:00 - 23:00",
		"23:00 - 00:00",
		"00:00 - 01:00",
		"01:00 - 02:00",
	}
	for i, want := range labels {
		if grid[i].Label != want {
			t.Fatalf("slot %d: expected label %q, got %q", i, want, grid[i].Label)
		}
	}
}

func TestSlotGrid_MidnightCrossingPostMidnightBooking(t *testing.T) {
	// A booking at 00:00-01:00 belongs to the post-midnight part of the
	// 20:00-02:00 window.
	grid := SlotGrid(openDay(20, 2), []BookedInterval{{StartHour: 0, EndHour: 1}})
	for i, s := range grid {
		wantAvail := s.Label != "00:00 - 01:00"
		if s.Available != wantAvail {
			t.Fatalf("slot %d (%s): expected available=%v", i, s.Label, wantAvail)
		}
	}
}

func TestSlotGrid_ZeroLengthIntervalIgnored(t *testing.T) {
	grid := SlotGrid(openDay(8, 10), []BookedInterval{{StartHour: 9, EndHour: 9}})
	for i, s := range grid {
		if !s.Available {
			t.Fatalf("slot %d should be available, zero-length intervals block nothing", i)
		}
	}
}

func TestSlotGrid_Idempotent(t *testing.T) {
	day := openDay(8, 22)
	booked := []BookedInterval{{StartHour: 10, EndHour: 12}}
	first := SlotGrid(day, booked)
	second := SlotGrid(day, booked)
	if len(first) != len(second) {
		t.Fatalf("grid length changed between calls: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("slot %d differs between identical calls", i)
		}
	}
}

func TestMaxDuration_NoBookings(t *testing.T) {
	if got := MaxDuration(openDay(8, 22), 8, nil); got != 14 {
		t.Fatalf("expected 14, got %d", got)
	}
	if got := MaxDuration(openDay(8, 22), 21, nil); got != 1 {
		t.Fatalf("expected 1, got %d", got)
	}
}

func TestMaxDuration_TruncatedByBooking(t *testing.T) {
	booked := []BookedInterval{{StartHour: 12, EndHour: 13}}
	if got := MaxDuration(openDay(8, 22), 10, booked); got != 2 {
		t.Fatalf("start 10 with 12:00 booked: expected 2, got %d", got)
	}
	if got := MaxDuration(openDay(8, 22), 13, booked); got != 9 {
		t.Fatalf("start 13 with 12:00 booked: expected 9, got %d", got)
	}
}

func TestMaxDuration_BackToBackBookings(t *testing.T) {
	booked := []BookedInterval{
		{StartHour: 10, EndHour: 11},
		{StartHour: 11, EndHour: 12},
	}
	// From 9 only hour 9 is free before the 10:00 booking; no false gap
	// opens between the adjacent bookings.
	if got := MaxDuration(openDay(8, 22), 9, booked); got != 1 {
		t.Fatalf("start 9: expected 1, got %d", got)
	}
	if got := MaxDuration(openDay(8, 22), 12, booked); got != 10 {
		t.Fatalf("start 12: expected 10, got %d", got)
	}
}

func TestMaxDuration_InvalidCandidates(t *testing.T) {
	day := openDay(8, 22)
	if got := MaxDuration(day, 7, nil); got != 0 {
		t.Fatalf("before opening: expected 0, got %d", got)
	}
	if got := MaxDuration(day, 22, nil); got != 0 {
		t.Fatalf("closing hour is exclusive: expected 0, got %d", got)
	}
	if got := MaxDuration(day, 23, nil); got != 0 {
		t.Fatalf("after closing: expected 0, got %d", got)
	}
	if got := MaxDuration(day, 10, []BookedInterval{{StartHour: 10, EndHour: 11}}); got != 0 {
		t.Fatalf("occupied start hour: expected 0, got %d", got)
	}
}

func TestMaxDuration_ClosedDay(t *testing.T) {
	day := openDay(8, 22)
	day.Open = false
	for h := 0; h < 24; h++ {
		if got := MaxDuration(day, h, nil); got != 0 {
			t.Fatalf("closed day, start %d: expected 0, got %d", h, got)
		}
	}
}

func TestMaxDuration_MidnightCrossing(t *testing.T) {
	day := openDay(20, 2)
	if got := MaxDuration(day, 23, nil); got != 3 {
		t.Fatalf("start 23 on 20:00-02:00: expected 3, got %d", got)
	}
	// 1 is below the opening hour, so it refers to the post-midnight stretch.
	if got := MaxDuration(day, 1, nil); got != 1 {
		t.Fatalf("start 01:00 on 20:00-02:00: expected 1, got %d", got)
	}
	if got := MaxDuration(day, 2, nil); got != 0 {
		t.Fatalf("closing hour on crossing window: expected 0, got %d", got)
	}
	if got := MaxDuration(day, 19, nil); got != 0 {
		t.Fatalf("before opening on crossing window: expected 0, got %d", got)
	}
}

func TestMaxDuration_MidnightCrossingWithBooking(t *testing.T) {
	day := openDay(20, 2)
	booked := []BookedInterval{{StartHour: 0, EndHour: 1}}
	if got := MaxDuration(day, 22, booked); got != 2 {
		t.Fatalf("start 22 with 00:00 booked: expected 2, got %d", got)
	}
	if got := MaxDuration(day, 1, booked); got != 1 {
		t.Fatalf("start 01:00 after booking ends: expected 1, got %d", got)
	}
}

func TestMaxDuration_WrappingInterval(t *testing.T) {
	// A reservation written as 23:00-01:00 wraps; its end unrolls onto the
	// virtual timeline.
	day := openDay(20, 2)
	booked := []BookedInterval{{StartHour: 23, EndHour: 1}}
	if got := MaxDuration(day, 20, booked); got != 3 {
		t.Fatalf("start 20 with 23:00-01:00 booked: expected 3, got %d", got)
	}
	if got := MaxDuration(day, 1, booked); got != 1 {
		t.Fatalf("start 01:00 with 23:00-01:00 booked: expected 1, got %d", got)
	}
}
