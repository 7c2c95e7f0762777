package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"

	"github.com/arenalivre/courtbook/internal/model"
	"github.com/arenalivre/courtbook/internal/outbox"
	"github.com/arenalivre/courtbook/internal/schedule"
)

// fakeTx satisfies pgx.Tx for the methods the handlers touch.
type fakeTx struct {
	pgx.Tx
}

func (fakeTx) Commit(context.Context) error   { return nil }
func (fakeTx) Rollback(context.Context) error { return nil }

type fakeCourtStore struct {
	courts       map[string]model.Court
	created      []model.Court
	storedWire   []schedule.WireDay
	storedCourt  string
	updateCalled bool
}

func (f *fakeCourtStore) Begin(context.Context) (pgx.Tx, error) {
	return fakeTx{}, nil
}

func (f *fakeCourtStore) Create(_ context.Context, ownerID, name, surfaceType, hourlyPrice string) (string, error) {
	id := "court-1"
	f.created = append(f.created, model.Court{ID: id, OwnerID: ownerID, Name: name, SurfaceType: surfaceType, HourlyPrice: hourlyPrice})
	return id, nil
}

func (f *fakeCourtStore) Get(_ context.Context, courtID string) (model.Court, error) {
	c, ok := f.courts[courtID]
	if !ok {
		return model.Court{}, pgx.ErrNoRows
	}
	return c, nil
}

func (f *fakeCourtStore) ListByOwner(_ context.Context, ownerID string, _ int) ([]model.Court, error) {
	var out []model.Court
	for _, c := range f.courts {
		if c.OwnerID == ownerID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeCourtStore) ListPublic(context.Context, int) ([]model.Court, error) {
	var out []model.Court
	for _, c := range f.courts {
		out = append(out, c)
	}
	return out, nil
}

func (f *fakeCourtStore) UpdateSchedule(_ context.Context, _ pgx.Tx, _, courtID string, wire []schedule.WireDay) error {
	f.updateCalled = true
	f.storedCourt = courtID
	f.storedWire = wire
	return nil
}

type fakeOutbox struct {
	events []outbox.Event
}

func (f *fakeOutbox) Insert(_ context.Context, _ pgx.Tx, evt outbox.Event) error {
	f.events = append(f.events, evt)
	return nil
}

func newCourtHandler(courts map[string]model.Court) (*CourtHandler, *fakeCourtStore, *fakeOutbox) {
	store := &fakeCourtStore{courts: courts}
	ob := &fakeOutbox{}
	return NewCourtHandler(store, ob, testLogger()), store, ob
}

func TestCreateCourt(t *testing.T) {
	h, store, _ := newCourtHandler(nil)

	body := `{"name":"Quadra 1","surface_type":"clay","hourly_price":"80.00"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/courts", strings.NewReader(body))
	req.Header.Set("X-Owner-Id", "o1")
	rw := httptest.NewRecorder()
	h.Courts(rw, req)
	if rw.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rw.Code, rw.Body.String())
	}
	if len(store.created) != 1 || store.created[0].Name != "Quadra 1" || store.created[0].OwnerID != "o1" {
		t.Fatalf("unexpected created court: %+v", store.created)
	}

	var resp map[string]string
	if err := json.Unmarshal(rw.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response json: %v", err)
	}
	if resp["id"] != "court-1" {
		t.Fatalf("expected created id, got %q", resp["id"])
	}
}

func TestCreateCourtValidation(t *testing.T) {
	h, _, _ := newCourtHandler(nil)

	cases := []struct {
		name    string
		ownerID string
		body    string
	}{
		{"missing owner", "", `{"name":"Quadra 1"}`},
		{"missing name", "o1", `{"surface_type":"clay"}`},
		{"bad price", "o1", `{"name":"Quadra 1","hourly_price":"cheap"}`},
		{"bad json", "o1", `{`},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/courts", strings.NewReader(tc.body))
		if tc.ownerID != "" {
			req.Header.Set("X-Owner-Id", tc.ownerID)
		}
		rw := httptest.NewRecorder()
		h.Courts(rw, req)
		if rw.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", tc.name, rw.Code)
		}
	}
}

func TestPutScheduleStoresAndPublishes(t *testing.T) {
	h, store, ob := newCourtHandler(map[string]model.Court{"c1": defaultCourt("c1", "o1")})

	wire := schedule.ToWire(schedule.Default())
	body, err := json.Marshal(wire)
	if err != nil {
		t.Fatalf("marshal wire: %v", err)
	}
	req := httptest.NewRequest(http.MethodPut, "/api/v1/courts/schedule?court_id=c1", strings.NewReader(string(body)))
	req.Header.Set("X-Owner-Id", "o1")
	rw := httptest.NewRecorder()
	h.Schedule(rw, req)
	if rw.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d: %s", rw.Code, rw.Body.String())
	}

	if !store.updateCalled || store.storedCourt != "c1" || len(store.storedWire) != 7 {
		t.Fatalf("schedule was not stored: %+v", store)
	}
	if len(ob.events) != 1 {
		t.Fatalf("expected one outbox event, got %d", len(ob.events))
	}
	evt := ob.events[0]
	if evt.EventType != "court.schedule.updated.v1" || evt.AggregateID != "c1" || evt.AggregateType != "court" {
		t.Fatalf("unexpected event: %+v", evt)
	}
	var payload struct {
		CourtID string `json:"court_id"`
		OwnerID string `json:"owner_id"`
	}
	if err := json.Unmarshal(evt.Payload, &payload); err != nil {
		t.Fatalf("invalid event payload: %v", err)
	}
	if payload.CourtID != "c1" || payload.OwnerID != "o1" {
		t.Fatalf("unexpected event payload: %+v", payload)
	}
}

func TestPutScheduleRejectsMalformedWeek(t *testing.T) {
	h, store, _ := newCourtHandler(map[string]model.Court{"c1": defaultCourt("c1", "o1")})

	wire := schedule.ToWire(schedule.Default())[:6]
	body, _ := json.Marshal(wire)
	req := httptest.NewRequest(http.MethodPut, "/api/v1/courts/schedule?court_id=c1", strings.NewReader(string(body)))
	req.Header.Set("X-Owner-Id", "o1")
	rw := httptest.NewRecorder()
	h.Schedule(rw, req)
	if rw.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rw.Code)
	}
	if store.updateCalled {
		t.Fatal("malformed schedule must not reach storage")
	}
}

func TestGetScheduleReturnsKeyedWeek(t *testing.T) {
	h, _, _ := newCourtHandler(map[string]model.Court{"c1": defaultCourt("c1", "o1")})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/courts/schedule?court_id=c1", nil)
	req.Header.Set("X-Owner-Id", "o1")
	rw := httptest.NewRecorder()
	h.Schedule(rw, req)
	if rw.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rw.Code)
	}

	var week schedule.Week
	if err := json.Unmarshal(rw.Body.Bytes(), &week); err != nil {
		t.Fatalf("invalid response json: %v", err)
	}
	if !week.Monday.Open || week.Monday.OpensAt.Hour != 8 || week.Monday.ClosesAt.Hour != 22 {
		t.Fatalf("unexpected Monday hours: %+v", week.Monday)
	}
}

func TestScheduleHiddenFromOtherOwners(t *testing.T) {
	h, _, _ := newCourtHandler(map[string]model.Court{"c1": defaultCourt("c1", "o1")})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/courts/schedule?court_id=c1", nil)
	req.Header.Set("X-Owner-Id", "o2")
	rw := httptest.NewRecorder()
	h.Schedule(rw, req)
	if rw.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for foreign owner, got %d", rw.Code)
	}
}

func TestApplyTemplate(t *testing.T) {
	court := defaultCourt("c1", "o1")
	week := schedule.FromWire(court.Schedule)
	week.Monday = schedule.DaySchedule{
		Open:     true,
		OpensAt:  schedule.TimeOfDay{Hour: 6},
		ClosesAt: schedule.TimeOfDay{Hour: 23},
	}
	court.Schedule = schedule.ToWire(week)

	h, store, ob := newCourtHandler(map[string]model.Court{"c1": court})

	body := `{"template_day":1,"target_days":[2,3,4,5]}`
	req := httptest.NewRequest(http.MethodPut, "/api/v1/courts/schedule/template?court_id=c1", strings.NewReader(body))
	req.Header.Set("X-Owner-Id", "o1")
	rw := httptest.NewRecorder()
	h.ApplyTemplate(rw, req)
	if rw.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rw.Code, rw.Body.String())
	}

	var got schedule.Week
	if err := json.Unmarshal(rw.Body.Bytes(), &got); err != nil {
		t.Fatalf("invalid response json: %v", err)
	}
	for _, day := range []schedule.DaySchedule{got.Tuesday, got.Wednesday, got.Thursday, got.Friday} {
		if !day.Open || day.OpensAt.Hour != 6 || day.ClosesAt.Hour != 23 {
			t.Fatalf("template hours not applied: %+v", day)
		}
	}
	if got.Sunday.OpensAt.Hour != 8 {
		t.Fatalf("Sunday should be untouched: %+v", got.Sunday)
	}

	if !store.updateCalled {
		t.Fatal("template result was not stored")
	}
	if len(ob.events) != 1 || ob.events[0].EventType != "court.schedule.updated.v1" {
		t.Fatalf("expected schedule update event, got %+v", ob.events)
	}
}

func TestApplyTemplateValidation(t *testing.T) {
	h, _, _ := newCourtHandler(map[string]model.Court{"c1": defaultCourt("c1", "o1")})

	cases := []struct {
		name string
		body string
	}{
		{"template day out of range", `{"template_day":7,"target_days":[1]}`},
		{"target day out of range", `{"template_day":1,"target_days":[9]}`},
		{"no targets", `{"template_day":1,"target_days":[]}`},
		{"bad json", `{`},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodPut, "/api/v1/courts/schedule/template?court_id=c1", strings.NewReader(tc.body))
		req.Header.Set("X-Owner-Id", "o1")
		rw := httptest.NewRecorder()
		h.ApplyTemplate(rw, req)
		if rw.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", tc.name, rw.Code)
		}
	}
}

func TestPublicCourtsListsAll(t *testing.T) {
	h, _, _ := newCourtHandler(map[string]model.Court{
		"c1": defaultCourt("c1", "o1"),
		"c2": defaultCourt("c2", "o2"),
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/public/courts", nil)
	rw := httptest.NewRecorder()
	h.PublicCourts(rw, req)
	if rw.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rw.Code)
	}

	var items []courtItem
	if err := json.Unmarshal(rw.Body.Bytes(), &items); err != nil {
		t.Fatalf("invalid response json: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 courts, got %d", len(items))
	}
}
