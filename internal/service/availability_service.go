package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/showcase/internal/db"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

const dateLayout = "2006-01-02"

var (
	// ErrDateRequired 表示缺少日期参数。
	ErrDateRequired = errors.New("date is required")
	// ErrDateInvalid 表示日期格式不是 YYYY-MM-DD。
	ErrDateInvalid = errors.New("date must be in YYYY-MM-DD format")
)

// ExternalResult 是外部日历查询的结果，Unavailable 表示查询失败或未配置。
type ExternalResult struct {
	Times       []string
	Unavailable bool
}

// SourceCounts 记录各来源贡献的时段数量。
type SourceCounts struct {
	Database       int `json:"database"`
	GoogleCalendar int `json:"googleCalendar"`
	Total          int `json:"total"`
}

// Availability 是某一天合并后的占用情况。
type Availability struct {
	Date                string       `json:"date"`
	BookedTimes         []string     `json:"bookedTimes"`
	Sources             SourceCounts `json:"sources"`
	CalendarUnavailable bool         `json:"-"`
}

// IsBooked 判断 HH:MM 是否已被占用。
func (a *Availability) IsBooked(clock string) bool {
	idx := sort.SearchStrings(a.BookedTimes, clock)
	return idx < len(a.BookedTimes) && a.BookedTimes[idx] == clock
}

// AvailabilityService 合并本地预约与外部日历的占用时段。
type AvailabilityService struct {
	db       *gorm.DB
	calendar CalendarSource
	loc      *time.Location
}

// NewAvailabilityService 创建服务，calendar 可以为 nil。
func NewAvailabilityService(gdb *gorm.DB, calendar CalendarSource, loc *time.Location) *AvailabilityService {
	if loc == nil {
		loc = time.UTC
	}
	return &AvailabilityService{db: gdb, calendar: calendar, loc: loc}
}

// ParseDate 校验 YYYY-MM-DD 并返回站点时区当天零点。
func (s *AvailabilityService) ParseDate(raw string) (time.Time, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return time.Time{}, ErrDateRequired
	}
	day, err := time.ParseInLocation(dateLayout, trimmed, s.loc)
	if err != nil {
		return time.Time{}, ErrDateInvalid
	}
	return day, nil
}

// Availability 返回 date 当天的占用时段，bookedTimes 按时间排序。
// 外部日历失败只会让 googleCalendar 计数为 0，不影响整体结果。
func (s *AvailabilityService) Availability(ctx context.Context, date string) (*Availability, error) {
	day, err := s.ParseDate(date)
	if err != nil {
		return nil, err
	}

	var (
		local    []string
		external ExternalResult
	)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		times, err := s.localTimes(groupCtx, day)
		if err != nil {
			return err
		}
		local = times
		return nil
	})
	group.Go(func() error {
		external = s.externalTimes(groupCtx, day)
		return nil
	})
	if err := group.Wait(); err != nil {
		return nil, err
	}

	result := &Availability{
		Date:                day.Format(dateLayout),
		BookedTimes:         mergeTimes(local, external.Times),
		CalendarUnavailable: external.Unavailable,
	}
	result.Sources = SourceCounts{
		Database:       len(local),
		GoogleCalendar: len(external.Times),
		Total:          len(result.BookedTimes),
	}
	return result, nil
}

func (s *AvailabilityService) localTimes(ctx context.Context, day time.Time) ([]string, error) {
	var reservations []db.Reservation
	if err := s.db.WithContext(ctx).
		Where("date = ? AND status <> ?", day.Format(dateLayout), db.ReservationCancelled).
		Order("scheduled_at ASC").
		Find(&reservations).Error; err != nil {
		return nil, fmt.Errorf("load reservations: %w", err)
	}

	times := make([]string, 0, len(reservations))
	for _, reservation := range reservations {
		if !reservation.ScheduledAt.IsZero() {
			times = append(times, reservation.ScheduledAt.In(s.loc).Format(slotTimeLayout))
			continue
		}
		if clock, err := time.Parse(slotTimeLayout, strings.TrimSpace(reservation.Time)); err == nil {
			times = append(times, clock.Format(slotTimeLayout))
		}
	}
	return times, nil
}

func (s *AvailabilityService) externalTimes(ctx context.Context, day time.Time) ExternalResult {
	if s.calendar == nil {
		return ExternalResult{Unavailable: true}
	}

	times, err := s.calendar.BusyTimes(ctx, day)
	if err != nil {
		logUpstreamFailure(err, "calendar", "external calendar unavailable for "+day.Format(dateLayout))
		return ExternalResult{Unavailable: true}
	}
	return ExternalResult{Times: times}
}

// mergeTimes 取并集并排序，Unavailable 的外部结果此时已折叠为空。
func mergeTimes(sources ...[]string) []string {
	seen := make(map[string]struct{})
	merged := make([]string, 0)
	for _, source := range sources {
		for _, clock := range source {
			if _, ok := seen[clock]; ok {
				continue
			}
			seen[clock] = struct{}{}
			merged = append(merged, clock)
		}
	}
	sort.Strings(merged)
	return merged
}
