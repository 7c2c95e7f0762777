package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/arenalivre/courtbook/internal/availability"
	"github.com/arenalivre/courtbook/internal/model"
	"github.com/arenalivre/courtbook/internal/schedule"
	"github.com/arenalivre/courtbook/internal/storage"
)

// CourtReader is the slice of the court repository the availability
// endpoints need.
type CourtReader interface {
	Get(ctx context.Context, courtID string) (model.Court, error)
}

// BookingReader supplies the confirmed reservations for one court and date.
type BookingReader interface {
	ListBookedIntervals(ctx context.Context, courtID, date string) ([]model.Booking, error)
}

type AvailabilityHandler struct {
	courts   CourtReader
	bookings BookingReader
	logger   *slog.Logger
}

func NewAvailabilityHandler(courts CourtReader, bookings BookingReader, logger *slog.Logger) *AvailabilityHandler {
	return &AvailabilityHandler{courts: courts, bookings: bookings, logger: logger}
}

type maxDurationResponse struct {
	CourtID          string `json:"court_id"`
	Date             string `json:"date"`
	StartHour        int    `json:"start_hour"`
	MaxDurationHours int    `json:"max_duration_hours"`
}

// Grid serves the hour-by-hour occupancy of a court on a date, in the order
// the storefront renders it.
func (h *AvailabilityHandler) Grid(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	day, court, ok := h.resolveDay(w, r)
	if !ok {
		return
	}

	booked, err := h.bookedIntervals(r.Context(), court.ID, r.URL.Query().Get("date"))
	if err != nil {
		http.Error(w, "failed to load booked hours", http.StatusInternalServerError)
		return
	}

	grid := availability.SlotGrid(day, booked)
	if grid == nil {
		grid = []availability.Slot{}
	}
	writeJSON(w, http.StatusOK, grid)
}

// MaxDuration serves how many contiguous hours a booking starting at
// start_hour may run, for the storefront's duration selector.
func (h *AvailabilityHandler) MaxDuration(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	startRaw := strings.TrimSpace(r.URL.Query().Get("start_hour"))
	startHour, err := strconv.Atoi(startRaw)
	if err != nil || startHour < 0 || startHour > 23 {
		http.Error(w, "start_hour must be an hour of day (0-23)", http.StatusBadRequest)
		return
	}

	day, court, ok := h.resolveDay(w, r)
	if !ok {
		return
	}

	dateStr := strings.TrimSpace(r.URL.Query().Get("date"))
	booked, err := h.bookedIntervals(r.Context(), court.ID, dateStr)
	if err != nil {
		http.Error(w, "failed to load booked hours", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, maxDurationResponse{
		CourtID:          court.ID,
		Date:             dateStr,
		StartHour:        startHour,
		MaxDurationHours: availability.MaxDuration(day, startHour, booked),
	})
}

// resolveDay loads the court and picks the schedule entry for the requested
// date's weekday. It writes the error response itself when ok is false.
func (h *AvailabilityHandler) resolveDay(w http.ResponseWriter, r *http.Request) (schedule.DaySchedule, model.Court, bool) {
	courtID := strings.TrimSpace(r.URL.Query().Get("court_id"))
	dateStr := strings.TrimSpace(r.URL.Query().Get("date"))
	if courtID == "" || dateStr == "" {
		http.Error(w, "court_id and date are required", http.StatusBadRequest)
		return schedule.DaySchedule{}, model.Court{}, false
	}

	date, err := time.Parse("2006-01-02", dateStr)
	if err != nil {
		http.Error(w, "date must be YYYY-MM-DD", http.StatusBadRequest)
		return schedule.DaySchedule{}, model.Court{}, false
	}

	court, err := h.courts.Get(r.Context(), courtID)
	if err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "court not found", http.StatusNotFound)
			return schedule.DaySchedule{}, model.Court{}, false
		}
		http.Error(w, "failed to load court", http.StatusInternalServerError)
		return schedule.DaySchedule{}, model.Court{}, false
	}

	week := h.weekFor(court)
	return week.ByWeekday(date.Weekday()), court, true
}

// weekFor decodes the court's stored schedule. Malformed data falls back to
// the default week so the storefront keeps working, but never silently: the
// validation failure is logged.
func (h *AvailabilityHandler) weekFor(court model.Court) schedule.Week {
	if err := schedule.ValidateWire(court.Schedule); err != nil {
		h.logger.Warn("stored schedule malformed; using default", "court_id", court.ID, "err", err)
	}
	return schedule.FromWire(court.Schedule)
}

func (h *AvailabilityHandler) bookedIntervals(ctx context.Context, courtID, date string) ([]availability.BookedInterval, error) {
	bookings, err := h.bookings.ListBookedIntervals(ctx, courtID, strings.TrimSpace(date))
	if err != nil {
		return nil, err
	}
	out := make([]availability.BookedInterval, 0, len(bookings))
	for _, b := range bookings {
		out = append(out, availability.BookedInterval{StartHour: b.StartHour, EndHour: b.EndHour})
	}
	return out, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		http.Error(w, "failed to build response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
