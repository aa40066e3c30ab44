package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/showcase/internal/db"
	"gorm.io/gorm"
)

var (
	ErrBookingNameRequired      = errors.New("name is required")
	ErrBookingTimeInvalid       = errors.New("time must be in HH:MM format")
	ErrBookingOutsideHours      = errors.New("time is outside booking hours")
	ErrBookingInPast            = errors.New("appointment must be in the future")
	ErrSlotTaken                = errors.New("time slot already booked")
	ErrReservationNotFound      = errors.New("reservation not found")
	ErrReservationStatusInvalid = errors.New("reservation status is invalid")
)

// BookingInput 是访客提交的预约信息。
type BookingInput struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
	Date  string `json:"date"`
	Time  string `json:"time"`
	Note  string `json:"note"`
}

// AppointmentService 负责预约的创建与后台管理。
type AppointmentService struct {
	db            *gorm.DB
	availability  *AvailabilityService
	settings      settingsReader
	notifications *NotificationService
	now           func() time.Time
}

// NewAppointmentService 创建预约服务，settings 与 notifications 可以为 nil。
func NewAppointmentService(gdb *gorm.DB, availability *AvailabilityService, settings settingsReader, notifications *NotificationService) *AppointmentService {
	return &AppointmentService{
		db:            gdb,
		availability:  availability,
		settings:      settings,
		notifications: notifications,
		now:           time.Now,
	}
}

// WithClock 替换时间来源，主要用于测试。
func (s *AppointmentService) WithClock(now func() time.Time) *AppointmentService {
	if now != nil {
		s.now = now
	}
	return s
}

// Book 校验并保存预约，随后尽力通知管理员与访客。
func (s *AppointmentService) Book(ctx context.Context, input BookingInput) (*db.Reservation, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, ErrBookingNameRequired
	}
	email, err := NormalizeEmail(input.Email)
	if err != nil {
		return nil, err
	}

	day, err := s.availability.ParseDate(input.Date)
	if err != nil {
		return nil, err
	}
	clock, err := time.Parse(slotTimeLayout, strings.TrimSpace(input.Time))
	if err != nil {
		return nil, ErrBookingTimeInvalid
	}
	slot := clock.Format(slotTimeLayout)

	if err := s.checkBookingHours(slot); err != nil {
		return nil, err
	}

	scheduledAt := time.Date(day.Year(), day.Month(), day.Day(), clock.Hour(), clock.Minute(), 0, 0, day.Location())
	if !scheduledAt.After(s.now()) {
		return nil, ErrBookingInPast
	}

	availability, err := s.availability.Availability(ctx, input.Date)
	if err != nil {
		return nil, err
	}
	if availability.IsBooked(slot) {
		return nil, ErrSlotTaken
	}

	reservation := db.Reservation{
		Name:        name,
		Email:       email,
		Phone:       strings.TrimSpace(input.Phone),
		Date:        availability.Date,
		Time:        slot,
		ScheduledAt: scheduledAt,
		Status:      db.ReservationPending,
		Note:        strings.TrimSpace(input.Note),
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var taken int64
		if err := tx.Model(&db.Reservation{}).
			Where("date = ? AND time = ? AND status <> ?", reservation.Date, slot, db.ReservationCancelled).
			Count(&taken).Error; err != nil {
			return err
		}
		if taken > 0 {
			return ErrSlotTaken
		}
		return tx.Create(&reservation).Error
	})
	if err != nil {
		if errors.Is(err, ErrSlotTaken) {
			return nil, err
		}
		return nil, fmt.Errorf("create reservation: %w", err)
	}

	if s.notifications != nil {
		s.notifications.Notify(ctx, "reservation", Alert{
			Subject: fmt.Sprintf("新预约：%s %s %s", reservation.Date, reservation.Time, reservation.Name),
			Body:    fmt.Sprintf("%s <%s> %s\n%s", reservation.Name, reservation.Email, reservation.Phone, reservation.Note),
			Link:    fmt.Sprintf("/admin/appointments?date=%s", reservation.Date),
		})
		s.notifications.SendEmail(ctx, reservation.Email,
			"Your appointment request",
			fmt.Sprintf("Hi %s,\n\nWe received your appointment request for %s at %s. We will confirm shortly.", reservation.Name, reservation.Date, reservation.Time),
		)
	}

	return &reservation, nil
}

func (s *AppointmentService) checkBookingHours(slot string) error {
	if s.settings == nil {
		return nil
	}
	settings, err := s.settings.GetSettings()
	if err != nil {
		return err
	}
	slots, err := settings.BookingSlots()
	if err != nil {
		return err
	}
	for _, candidate := range slots {
		if candidate == slot {
			return nil
		}
	}
	return ErrBookingOutsideHours
}

// List 返回 [from, to] 日期区间内的预约，任一端为空表示不限。
func (s *AppointmentService) List(from, to, status string) ([]db.Reservation, error) {
	query := s.db.Model(&db.Reservation{})

	if strings.TrimSpace(from) != "" {
		day, err := s.availability.ParseDate(from)
		if err != nil {
			return nil, err
		}
		query = query.Where("date >= ?", day.Format(dateLayout))
	}
	if strings.TrimSpace(to) != "" {
		day, err := s.availability.ParseDate(to)
		if err != nil {
			return nil, err
		}
		query = query.Where("date <= ?", day.Format(dateLayout))
	}
	if status = strings.TrimSpace(status); status != "" {
		if !validReservationStatus(status) {
			return nil, ErrReservationStatusInvalid
		}
		query = query.Where("status = ?", status)
	}

	var reservations []db.Reservation
	if err := query.Order("date asc, time asc, id asc").Find(&reservations).Error; err != nil {
		return nil, err
	}
	return reservations, nil
}

// UpdateStatus 修改预约状态（确认或取消）。
func (s *AppointmentService) UpdateStatus(id uint, status string) (*db.Reservation, error) {
	status = strings.ToLower(strings.TrimSpace(status))
	if !validReservationStatus(status) {
		return nil, ErrReservationStatusInvalid
	}

	var reservation db.Reservation
	if err := s.db.First(&reservation, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrReservationNotFound
		}
		return nil, err
	}

	if err := s.db.Model(&reservation).Update("status", status).Error; err != nil {
		return nil, err
	}
	reservation.Status = status
	return &reservation, nil
}

func validReservationStatus(status string) bool {
	switch status {
	case db.ReservationPending, db.ReservationConfirmed, db.ReservationCancelled:
		return true
	default:
		return false
	}
}
