package handler

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/showcase/internal/db"
	"github.com/showcase/internal/service"
	"gorm.io/gorm"
)

type fakeCalendar struct {
	times []string
	err   error
}

func (f *fakeCalendar) BusyTimes(context.Context, time.Time) ([]string, error) {
	return f.times, f.err
}

func countQueries(t *testing.T, gdb *gorm.DB) *int32 {
	t.Helper()
	var count int32
	name := "test:count_queries_" + t.Name()
	if err := gdb.Callback().Query().Before("gorm:query").Register(name, func(*gorm.DB) {
		atomic.AddInt32(&count, 1)
	}); err != nil {
		t.Fatalf("failed to register callback: %v", err)
	}
	return &count
}

func TestGetAvailabilityRequiresDate(t *testing.T) {
	api, gdb := setupTestDB(t)
	queries := countQueries(t, gdb)

	w := performJSON(api.GetAvailability, http.MethodGet, "/api/appointments/availability", nil, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", w.Code)
	}
	if got := w.Body.String(); got != `{"error":"Date parameter is required"}` {
		t.Fatalf("unexpected body: %s", got)
	}
	if got := atomic.LoadInt32(queries); got != 0 {
		t.Fatalf("expected no queries, got %d", got)
	}

	w = performJSON(api.GetAvailability, http.MethodGet, "/api/appointments/availability?date=2024-13-40", nil, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 for invalid date, got %d", w.Code)
	}
}

func TestGetAvailabilityMergesSources(t *testing.T) {
	api, gdb := setupTestDB(t)
	api.availability = service.NewAvailabilityService(gdb, &fakeCalendar{times: []string{"10:00", "14:00"}}, time.UTC)

	seed := []db.Reservation{
		{Name: "A", Email: "a@example.com", Date: "2024-03-15", Time: "09:00", ScheduledAt: time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC), Status: db.ReservationConfirmed},
		{Name: "B", Email: "b@example.com", Date: "2024-03-15", Time: "10:00", ScheduledAt: time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC), Status: db.ReservationPending},
		{Name: "C", Email: "c@example.com", Date: "2024-03-15", Time: "11:00", ScheduledAt: time.Date(2024, 3, 15, 11, 0, 0, 0, time.UTC), Status: db.ReservationCancelled},
	}
	if err := gdb.Create(&seed).Error; err != nil {
		t.Fatalf("failed to seed reservations: %v", err)
	}

	w := performJSON(api.GetAvailability, http.MethodGet, "/api/appointments/availability?date=2024-03-15", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	want := `{"bookedTimes":["09:00","10:00","14:00"],"date":"2024-03-15","sources":{"database":2,"googleCalendar":2,"total":3},"success":true}`
	if got := w.Body.String(); got != want {
		t.Fatalf("unexpected body:\n got %s\nwant %s", got, want)
	}
}

func TestGetAvailabilitySoftFailsCalendar(t *testing.T) {
	api, gdb := setupTestDB(t)
	api.availability = service.NewAvailabilityService(gdb, &fakeCalendar{err: errors.New("boom")}, time.UTC)

	w := performJSON(api.GetAvailability, http.MethodGet, "/api/appointments/availability?date=2024-03-16", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	want := `{"bookedTimes":[],"date":"2024-03-16","sources":{"database":0,"googleCalendar":0,"total":0},"success":true}`
	if got := w.Body.String(); got != want {
		t.Fatalf("unexpected body:\n got %s\nwant %s", got, want)
	}
}

func TestCreateAppointmentRejectsDoubleBooking(t *testing.T) {
	api, _ := setupTestDB(t)

	date := time.Now().UTC().AddDate(0, 0, 7).Format("2006-01-02")
	payload := map[string]string{
		"name":  "Jane Doe",
		"email": "jane@example.com",
		"date":  date,
		"time":  "10:00",
	}

	w := performJSON(api.CreateAppointment, http.MethodPost, "/api/appointments", payload, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", w.Code, w.Body.String())
	}
	reservation := decodeBody(t, w)["reservation"].(map[string]any)
	if reservation["status"] != db.ReservationPending {
		t.Fatalf("unexpected reservation status: %v", reservation["status"])
	}

	w = performJSON(api.CreateAppointment, http.MethodPost, "/api/appointments", payload, nil)
	if w.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d", w.Code)
	}

	w = performJSON(api.GetAvailability, http.MethodGet, "/api/appointments/availability?date="+date, nil, nil)
	if got := decodeBody(t, w)["bookedTimes"].([]any); len(got) != 1 || got[0] != "10:00" {
		t.Fatalf("expected booked slot to be reported, got %v", got)
	}

	payload["time"] = "07:00"
	w = performJSON(api.CreateAppointment, http.MethodPost, "/api/appointments", payload, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 outside booking hours, got %d", w.Code)
	}
}
