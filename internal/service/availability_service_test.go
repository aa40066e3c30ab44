package service

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/showcase/internal/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeCalendar struct {
	times []string
	err   error
	calls int32
}

func (f *fakeCalendar) BusyTimes(context.Context, time.Time) ([]string, error) {
	atomic.AddInt32(&f.calls, 1)
	return f.times, f.err
}

func seedReservation(t *testing.T, gdb *gorm.DB, date, clock, status string) {
	t.Helper()
	scheduled, err := time.ParseInLocation("2006-01-02 15:04", date+" "+clock, time.UTC)
	require.NoError(t, err)
	require.NoError(t, gdb.Create(&db.Reservation{
		Name:        "Guest",
		Email:       "guest@example.com",
		Date:        date,
		Time:        clock,
		ScheduledAt: scheduled,
		Status:      status,
	}).Error)
}

func TestAvailabilityMergesSourcesAsSet(t *testing.T) {
	gdb := setupServiceTestDB(t)
	seedReservation(t, gdb, "2024-07-01", "09:00", db.ReservationConfirmed)
	seedReservation(t, gdb, "2024-07-01", "09:00", db.ReservationPending)
	seedReservation(t, gdb, "2024-07-01", "11:00", db.ReservationCancelled)
	seedReservation(t, gdb, "2024-07-02", "13:00", db.ReservationConfirmed)

	svc := NewAvailabilityService(gdb, &fakeCalendar{times: []string{"10:00", "09:00"}}, time.UTC)
	result, err := svc.Availability(context.Background(), "2024-07-01")
	require.NoError(t, err)

	assert.Equal(t, "2024-07-01", result.Date)
	assert.Equal(t, []string{"09:00", "10:00"}, result.BookedTimes)
	assert.Equal(t, SourceCounts{Database: 2, GoogleCalendar: 2, Total: 2}, result.Sources)
	assert.False(t, result.CalendarUnavailable)
	assert.True(t, result.IsBooked("10:00"))
	assert.False(t, result.IsBooked("11:00"))
}

func TestAvailabilitySoftFailsCalendar(t *testing.T) {
	gdb := setupServiceTestDB(t)
	seedReservation(t, gdb, "2024-07-01", "15:00", db.ReservationConfirmed)
	seedReservation(t, gdb, "2024-07-01", "08:30", db.ReservationPending)

	calendar := &fakeCalendar{times: []string{"12:00"}, err: errors.New("quota exceeded")}
	svc := NewAvailabilityService(gdb, calendar, time.UTC)

	result, err := svc.Availability(context.Background(), "2024-07-01")
	require.NoError(t, err)
	assert.Equal(t, []string{"08:30", "15:00"}, result.BookedTimes)
	assert.Equal(t, 0, result.Sources.GoogleCalendar)
	assert.Equal(t, 2, result.Sources.Total)
	assert.True(t, result.CalendarUnavailable)

	noCalendar := NewAvailabilityService(gdb, nil, time.UTC)
	result, err = noCalendar.Availability(context.Background(), "2024-07-01")
	require.NoError(t, err)
	assert.Equal(t, []string{"08:30", "15:00"}, result.BookedTimes)
	assert.True(t, result.CalendarUnavailable)
}

func TestAvailabilityIsIdempotent(t *testing.T) {
	gdb := setupServiceTestDB(t)
	seedReservation(t, gdb, "2024-07-01", "16:00", db.ReservationConfirmed)
	seedReservation(t, gdb, "2024-07-01", "09:00", db.ReservationConfirmed)

	svc := NewAvailabilityService(gdb, &fakeCalendar{times: []string{"13:00"}}, time.UTC)
	first, err := svc.Availability(context.Background(), "2024-07-01")
	require.NoError(t, err)
	second, err := svc.Availability(context.Background(), "2024-07-01")
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestAvailabilityValidatesDateBeforeQuerying(t *testing.T) {
	gdb := setupServiceTestDB(t)

	var queries int32
	require.NoError(t, gdb.Callback().Query().Before("gorm:query").Register("test:count_queries", func(*gorm.DB) {
		atomic.AddInt32(&queries, 1)
	}))

	calendar := &fakeCalendar{}
	svc := NewAvailabilityService(gdb, calendar, time.UTC)

	_, err := svc.Availability(context.Background(), "")
	assert.ErrorIs(t, err, ErrDateRequired)

	_, err = svc.Availability(context.Background(), "07/01/2024")
	assert.ErrorIs(t, err, ErrDateInvalid)

	assert.Equal(t, int32(0), atomic.LoadInt32(&queries))
	assert.Equal(t, int32(0), atomic.LoadInt32(&calendar.calls))
}

func TestAvailabilityUsesSiteTimezone(t *testing.T) {
	gdb := setupServiceTestDB(t)
	loc := time.FixedZone("UTC-5", -5*3600)
	require.NoError(t, gdb.Create(&db.Reservation{
		Name:        "Guest",
		Email:       "guest@example.com",
		Date:        "2024-07-01",
		Time:        "09:00",
		ScheduledAt: time.Date(2024, 7, 1, 9, 0, 0, 0, loc),
		Status:      db.ReservationConfirmed,
	}).Error)

	result, err := NewAvailabilityService(gdb, nil, loc).Availability(context.Background(), "2024-07-01")
	require.NoError(t, err)
	assert.Equal(t, []string{"09:00"}, result.BookedTimes)
}
