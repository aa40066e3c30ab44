package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/showcase/internal/db"
)

func newTestAppointmentService(t *testing.T, calendar CalendarSource) (*AppointmentService, *recordingMailer) {
	t.Helper()
	gdb := setupServiceTestDB(t)
	settings := NewSystemSettingService(gdb)
	mailer := &recordingMailer{}
	notifications := NewNotificationService(gdb, nil, mailer)
	availability := NewAvailabilityService(gdb, calendar, time.UTC)

	svc := NewAppointmentService(gdb, availability, settings, notifications).WithClock(func() time.Time {
		return time.Date(2024, 7, 1, 8, 0, 0, 0, time.UTC)
	})
	return svc, mailer
}

func TestAppointmentServiceBook(t *testing.T) {
	svc, mailer := newTestAppointmentService(t, &fakeCalendar{times: []string{"11:00"}})

	reservation, err := svc.Book(context.Background(), BookingInput{
		Name:  " Ada ",
		Email: "ada@example.com",
		Date:  "2024-07-01",
		Time:  "10:00",
	})
	if err != nil {
		t.Fatalf("Book returned error: %v", err)
	}
	if reservation.Name != "Ada" || reservation.Status != db.ReservationPending || reservation.Time != "10:00" {
		t.Fatalf("unexpected reservation: %+v", reservation)
	}
	if !reservation.ScheduledAt.Equal(time.Date(2024, 7, 1, 10, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected scheduled time: %v", reservation.ScheduledAt)
	}
	if len(mailer.to) != 1 || mailer.to[0] != "ada@example.com" {
		t.Fatalf("expected confirmation email, got %v", mailer.to)
	}

	var notifications int64
	svc.db.Model(&db.Notification{}).Count(&notifications)
	if notifications != 1 {
		t.Fatalf("expected one admin notification, got %d", notifications)
	}

	if _, err := svc.Book(context.Background(), BookingInput{Name: "Bob", Email: "bob@example.com", Date: "2024-07-01", Time: "10:00"}); !errors.Is(err, ErrSlotTaken) {
		t.Fatalf("expected ErrSlotTaken for local booking, got %v", err)
	}
	if _, err := svc.Book(context.Background(), BookingInput{Name: "Bob", Email: "bob@example.com", Date: "2024-07-01", Time: "11:00"}); !errors.Is(err, ErrSlotTaken) {
		t.Fatalf("expected ErrSlotTaken for calendar event, got %v", err)
	}
}

func TestAppointmentServiceBookValidation(t *testing.T) {
	svc, _ := newTestAppointmentService(t, nil)

	cases := []struct {
		name  string
		input BookingInput
		want  error
	}{
		{"missing name", BookingInput{Email: "a@example.com", Date: "2024-07-02", Time: "10:00"}, ErrBookingNameRequired},
		{"bad email", BookingInput{Name: "A", Email: "nope", Date: "2024-07-02", Time: "10:00"}, ErrEmailInvalid},
		{"missing date", BookingInput{Name: "A", Email: "a@example.com", Time: "10:00"}, ErrDateRequired},
		{"bad time", BookingInput{Name: "A", Email: "a@example.com", Date: "2024-07-02", Time: "10am"}, ErrBookingTimeInvalid},
		{"outside hours", BookingInput{Name: "A", Email: "a@example.com", Date: "2024-07-02", Time: "20:00"}, ErrBookingOutsideHours},
		{"in the past", BookingInput{Name: "A", Email: "a@example.com", Date: "2024-06-30", Time: "10:00"}, ErrBookingInPast},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.Book(context.Background(), tc.input); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestAppointmentServiceCancelFreesSlot(t *testing.T) {
	svc, _ := newTestAppointmentService(t, nil)

	reservation, err := svc.Book(context.Background(), BookingInput{Name: "Ada", Email: "ada@example.com", Date: "2024-07-02", Time: "09:00"})
	if err != nil {
		t.Fatalf("Book returned error: %v", err)
	}

	if _, err := svc.UpdateStatus(reservation.ID, "archived"); !errors.Is(err, ErrReservationStatusInvalid) {
		t.Fatalf("expected ErrReservationStatusInvalid, got %v", err)
	}
	cancelled, err := svc.UpdateStatus(reservation.ID, "Cancelled")
	if err != nil {
		t.Fatalf("UpdateStatus returned error: %v", err)
	}
	if cancelled.Status != db.ReservationCancelled {
		t.Fatalf("expected cancelled status, got %s", cancelled.Status)
	}

	if _, err := svc.Book(context.Background(), BookingInput{Name: "Bob", Email: "bob@example.com", Date: "2024-07-02", Time: "09:00"}); err != nil {
		t.Fatalf("expected slot to be free after cancellation, got %v", err)
	}

	list, err := svc.List("2024-07-02", "2024-07-02", "")
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 reservations, got %d", len(list))
	}

	pending, err := svc.List("", "", db.ReservationPending)
	if err != nil {
		t.Fatalf("List pending returned error: %v", err)
	}
	if len(pending) != 1 || pending[0].Name != "Bob" {
		t.Fatalf("unexpected pending reservations: %+v", pending)
	}

	if _, err := svc.UpdateStatus(9999, db.ReservationConfirmed); !errors.Is(err, ErrReservationNotFound) {
		t.Fatalf("expected ErrReservationNotFound, got %v", err)
	}
}
