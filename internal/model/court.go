package model

import (
	"time"

	"github.com/arenalivre/courtbook/internal/schedule"
)

// Court is a bookable facility with its own weekly operating schedule and
// hourly price. Schedule holds the persisted wire form; read it through
// schedule.FromWire so malformed rows degrade to the default week.
type Court struct {
	ID          string
	OwnerID     string
	Name        string
	SurfaceType string
	HourlyPrice string
	Schedule    []schedule.WireDay
	CreatedAt   time.Time
}

// Booking is the local snapshot of a reservation committed by the external
// booking system: an hour-granularity span on one calendar date.
type Booking struct {
	ID        string
	CourtID   string
	Date      string // YYYY-MM-DD
	StartHour int
	EndHour   int
	Status    string
	CreatedAt time.Time
}

const (
	BookingConfirmed = "confirmed"
	BookingCancelled = "cancelled"
)
