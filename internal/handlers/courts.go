package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/arenalivre/courtbook/internal/model"
	"github.com/arenalivre/courtbook/internal/outbox"
	"github.com/arenalivre/courtbook/internal/schedule"
	"github.com/arenalivre/courtbook/internal/storage"
)

// CourtStore is the slice of the court repository the admin endpoints need.
type CourtStore interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Create(ctx context.Context, ownerID, name, surfaceType, hourlyPrice string) (string, error)
	Get(ctx context.Context, courtID string) (model.Court, error)
	ListByOwner(ctx context.Context, ownerID string, limit int) ([]model.Court, error)
	ListPublic(ctx context.Context, limit int) ([]model.Court, error)
	UpdateSchedule(ctx context.Context, tx pgx.Tx, ownerID, courtID string, wire []schedule.WireDay) error
}

// OutboxStore records domain events in the same transaction as the change
// they announce.
type OutboxStore interface {
	Insert(ctx context.Context, tx pgx.Tx, evt outbox.Event) error
}

type CourtHandler struct {
	repo   CourtStore
	outbox OutboxStore
	logger *slog.Logger
}

func NewCourtHandler(repo CourtStore, outboxRepo OutboxStore, logger *slog.Logger) *CourtHandler {
	return &CourtHandler{repo: repo, outbox: outboxRepo, logger: logger}
}

func ownerIDFromHeader(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get("X-Owner-Id"))
}

type createCourtRequest struct {
	Name        string `json:"name"`
	SurfaceType string `json:"surface_type"`
	HourlyPrice string `json:"hourly_price"`
}

type courtItem struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	SurfaceType string `json:"surface_type"`
	HourlyPrice string `json:"hourly_price"`
}

// Courts dispatches the admin collection endpoint: GET lists the owner's
// courts, POST creates one with the default weekly schedule.
func (h *CourtHandler) Courts(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.list(w, r)
	case http.MethodPost:
		h.create(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *CourtHandler) create(w http.ResponseWriter, r *http.Request) {
	ownerID := ownerIDFromHeader(r)
	if ownerID == "" {
		http.Error(w, "missing X-Owner-Id", http.StatusBadRequest)
		return
	}

	var req createCourtRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.SurfaceType = strings.TrimSpace(req.SurfaceType)
	req.HourlyPrice = strings.TrimSpace(req.HourlyPrice)
	if req.Name == "" {
		http.Error(w, "name is required", http.StatusBadRequest)
		return
	}
	if req.HourlyPrice == "" {
		req.HourlyPrice = "0"
	} else if _, err := strconv.ParseFloat(req.HourlyPrice, 64); err != nil {
		http.Error(w, "invalid hourly_price", http.StatusBadRequest)
		return
	}

	id, err := h.repo.Create(r.Context(), ownerID, req.Name, req.SurfaceType, req.HourlyPrice)
	if err != nil {
		http.Error(w, "failed to create court", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"id": id})
}

func (h *CourtHandler) list(w http.ResponseWriter, r *http.Request) {
	ownerID := ownerIDFromHeader(r)
	if ownerID == "" {
		http.Error(w, "missing X-Owner-Id", http.StatusBadRequest)
		return
	}

	courts, err := h.repo.ListByOwner(r.Context(), ownerID, 100)
	if err != nil {
		http.Error(w, "failed to list courts", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, courtItems(courts))
}

// PublicCourts lists every visible court for the storefront.
func (h *CourtHandler) PublicCourts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	courts, err := h.repo.ListPublic(r.Context(), 100)
	if err != nil {
		http.Error(w, "failed to list courts", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, courtItems(courts))
}

// Schedule serves the schedule-editing endpoint: GET returns the keyed week,
// PUT replaces it with the wire-format body.
func (h *CourtHandler) Schedule(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.getSchedule(w, r)
	case http.MethodPut:
		h.putSchedule(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *CourtHandler) getSchedule(w http.ResponseWriter, r *http.Request) {
	court, ok := h.ownedCourt(w, r)
	if !ok {
		return
	}
	if err := schedule.ValidateWire(court.Schedule); err != nil {
		h.logger.Warn("stored schedule malformed; serving default", "court_id", court.ID, "err", err)
	}
	writeJSON(w, http.StatusOK, schedule.FromWire(court.Schedule))
}

func (h *CourtHandler) putSchedule(w http.ResponseWriter, r *http.Request) {
	court, ok := h.ownedCourt(w, r)
	if !ok {
		return
	}

	var wire []schedule.WireDay
	if err := json.NewDecoder(r.Body).Decode(&wire); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	if err := schedule.ValidateWire(wire); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.storeSchedule(r.Context(), court.OwnerID, court.ID, wire); err != nil {
		http.Error(w, "failed to update schedule", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type applyTemplateRequest struct {
	TemplateDay int   `json:"template_day"`
	TargetDays  []int `json:"target_days"`
}

// ApplyTemplate copies one weekday's hours onto a group of days, the bulk
// edit behind "apply to all weekdays" / "apply to weekend" buttons.
func (h *CourtHandler) ApplyTemplate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	court, ok := h.ownedCourt(w, r)
	if !ok {
		return
	}

	var req applyTemplateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	if req.TemplateDay < 0 || req.TemplateDay > 6 {
		http.Error(w, "template_day must be between 0 and 6", http.StatusBadRequest)
		return
	}
	if len(req.TargetDays) == 0 {
		http.Error(w, "target_days is required", http.StatusBadRequest)
		return
	}
	targets := make([]time.Weekday, 0, len(req.TargetDays))
	for _, d := range req.TargetDays {
		if d < 0 || d > 6 {
			http.Error(w, "target_days must be between 0 and 6", http.StatusBadRequest)
			return
		}
		targets = append(targets, time.Weekday(d))
	}

	if err := schedule.ValidateWire(court.Schedule); err != nil {
		h.logger.Warn("stored schedule malformed; template applies over default", "court_id", court.ID, "err", err)
	}
	week := schedule.ApplyTemplate(schedule.FromWire(court.Schedule), time.Weekday(req.TemplateDay), targets)

	if err := h.storeSchedule(r.Context(), court.OwnerID, court.ID, schedule.ToWire(week)); err != nil {
		http.Error(w, "failed to update schedule", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, week)
}

// ownedCourt loads the court named by court_id and checks it belongs to the
// caller. It writes the error response itself when ok is false.
func (h *CourtHandler) ownedCourt(w http.ResponseWriter, r *http.Request) (model.Court, bool) {
	ownerID := ownerIDFromHeader(r)
	if ownerID == "" {
		http.Error(w, "missing X-Owner-Id", http.StatusBadRequest)
		return model.Court{}, false
	}
	courtID := strings.TrimSpace(r.URL.Query().Get("court_id"))
	if courtID == "" {
		http.Error(w, "court_id is required", http.StatusBadRequest)
		return model.Court{}, false
	}

	court, err := h.repo.Get(r.Context(), courtID)
	if err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "court not found", http.StatusNotFound)
			return model.Court{}, false
		}
		http.Error(w, "failed to load court", http.StatusInternalServerError)
		return model.Court{}, false
	}
	if court.OwnerID != ownerID {
		http.Error(w, "court not found", http.StatusNotFound)
		return model.Court{}, false
	}
	return court, true
}

// storeSchedule commits the new schedule together with the event announcing
// it, so external booking systems can refresh their copy.
func (h *CourtHandler) storeSchedule(ctx context.Context, ownerID, courtID string, wire []schedule.WireDay) error {
	tx, err := h.repo.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := h.repo.UpdateSchedule(ctx, tx, ownerID, courtID, wire); err != nil {
		return err
	}

	payload, err := json.Marshal(map[string]any{
		"court_id":        courtID,
		"owner_id":        ownerID,
		"weekly_schedule": wire,
	})
	if err != nil {
		return err
	}
	if err := h.outbox.Insert(ctx, tx, outbox.Event{
		AggregateType: "court",
		AggregateID:   courtID,
		EventType:     "court.schedule.updated.v1",
		Payload:       payload,
	}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func courtItems(courts []model.Court) []courtItem {
	items := make([]courtItem, 0, len(courts))
	for _, c := range courts {
		items = append(items, courtItem{
			ID:          c.ID,
			Name:        c.Name,
			SurfaceType: c.SurfaceType,
			HourlyPrice: c.HourlyPrice,
		})
	}
	return items
}
