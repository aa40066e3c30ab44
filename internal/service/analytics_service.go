package service

import (
	"errors"
	"strings"
	"time"

	"github.com/showcase/internal/db"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	defaultViewDedupWindow = 30 * time.Minute
	dayLayout              = "2006-01-02"
	maxTrackedPathLength   = 255
)

var ErrTrackInvalid = errors.New("invalid visitor or path")

// AnalyticsService 负责处理路径浏览相关的统计逻辑。
type AnalyticsService struct {
	db          *gorm.DB
	dedupWindow time.Duration
	loc         *time.Location
}

// NewAnalyticsService 创建 AnalyticsService，默认去重窗口为 30 分钟。
func NewAnalyticsService(gdb *gorm.DB) *AnalyticsService {
	return &AnalyticsService{db: gdb, dedupWindow: defaultViewDedupWindow, loc: time.UTC}
}

// WithDedupWindow 允许在测试或特定场景下调整去重窗口。
func (s *AnalyticsService) WithDedupWindow(d time.Duration) *AnalyticsService {
	if d <= 0 {
		return s
	}
	s.dedupWindow = d
	return s
}

// WithLocation 设置按天统计所用的时区。
func (s *AnalyticsService) WithLocation(loc *time.Location) *AnalyticsService {
	if loc != nil {
		s.loc = loc
	}
	return s
}

// NormalizeTrackedPath 去掉查询串与片段，保证以 / 开头。
func NormalizeTrackedPath(raw string) string {
	path := strings.TrimSpace(raw)
	if idx := strings.IndexAny(path, "?#"); idx >= 0 {
		path = path[:idx]
	}
	if path == "" {
		return ""
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
		if path == "" {
			path = "/"
		}
	}
	if len(path) > maxTrackedPathLength {
		path = path[:maxTrackedPathLength]
	}
	return path
}

// RecordPathView 记录访客对路径的浏览，并返回最新的统计数据。
// 同一访客在去重窗口内重复访问同一路径只计一次 PV。
func (s *AnalyticsService) RecordPathView(rawPath, visitorID, referrer string, now time.Time) (*db.PathStatistic, error) {
	path := NormalizeTrackedPath(rawPath)
	visitorID = strings.TrimSpace(visitorID)
	if visitorID == "" || path == "" {
		return nil, ErrTrackInvalid
	}
	if len(referrer) > maxTrackedPathLength {
		referrer = referrer[:maxTrackedPathLength]
	}

	var stats db.PathStatistic

	if err := s.db.Transaction(func(tx *gorm.DB) error {
		visit := db.PathVisit{
			Path:          path,
			VisitorID:     visitorID,
			Referrer:      referrer,
			LastViewedAt:  now,
			LastCountedAt: now,
		}
		insert := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "path"}, {Name: "visitor_id"}},
			DoNothing: true,
		}).Create(&visit)
		if insert.Error != nil {
			return insert.Error
		}

		isNewVisitor := insert.RowsAffected == 1
		countView := isNewVisitor
		if !isNewVisitor {
			if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				Where("path = ? AND visitor_id = ?", path, visitorID).
				First(&visit).Error; err != nil {
				return err
			}
			visit.LastViewedAt = now
			if now.Sub(visit.LastCountedAt) >= s.dedupWindow {
				visit.LastCountedAt = now
				countView = true
			}
			if err := tx.Save(&visit).Error; err != nil {
				return err
			}
		}

		statsResult := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("path = ?", path).
			First(&stats)

		switch {
		case errors.Is(statsResult.Error, gorm.ErrRecordNotFound):
			stats = db.PathStatistic{Path: path}
			if err := tx.Create(&stats).Error; err != nil {
				return err
			}
		case statsResult.Error != nil:
			return statsResult.Error
		}

		if countView {
			stats.PageViews++
		}
		if isNewVisitor {
			stats.UniqueVisitors++
		}
		stats.LastViewedAt = now

		if err := tx.Save(&stats).Error; err != nil {
			return err
		}

		if !countView {
			return nil
		}
		return s.recordDaily(tx, visitorID, now)
	}); err != nil {
		return nil, err
	}

	return &stats, nil
}

func (s *AnalyticsService) recordDaily(tx *gorm.DB, visitorID string, now time.Time) error {
	day := now.In(s.loc).Format(dayLayout)

	visitor := db.DailyVisitor{Day: day, VisitorID: visitorID}
	insert := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "day"}, {Name: "visitor_id"}},
		DoNothing: true,
	}).Create(&visitor)
	if insert.Error != nil {
		return insert.Error
	}

	traffic := db.DailyTraffic{Day: day}
	if err := tx.Where("day = ?", day).FirstOrCreate(&traffic).Error; err != nil {
		return err
	}

	updates := map[string]interface{}{"page_views": gorm.Expr("page_views + 1")}
	if insert.RowsAffected == 1 {
		updates["unique_visitors"] = gorm.Expr("unique_visitors + 1")
	}
	return tx.Model(&db.DailyTraffic{}).Where("id = ?", traffic.ID).Updates(updates).Error
}

// SiteOverview 聚合站点层面的 UV/PV 数据及热门路径。
type SiteOverview struct {
	TotalPageViews      uint64              `json:"totalPageViews"`
	TotalUniqueVisitors uint64              `json:"totalUniqueVisitors"`
	PathCount           int64               `json:"pathCount"`
	TopPaths            []TopPathStat       `json:"topPaths"`
	Daily               []DailyTrafficPoint `json:"daily"`
}

// TopPathStat 描述热门路径的统计信息。
type TopPathStat struct {
	Path           string `json:"path"`
	PageViews      uint64 `json:"pageViews"`
	UniqueVisitors uint64 `json:"uniqueVisitors"`
}

// DailyTrafficPoint 是趋势图上的一个点，缺失的日期补零。
type DailyTrafficPoint struct {
	Day            string `json:"day"`
	PageViews      uint64 `json:"pageViews"`
	UniqueVisitors uint64 `json:"uniqueVisitors"`
}

// Overview 汇总全站 UV/PV、热门路径以及最近 days 天的趋势。
func (s *AnalyticsService) Overview(limit, days int, now time.Time) (SiteOverview, error) {
	if limit <= 0 {
		limit = 5
	}
	if days <= 0 {
		days = 7
	}
	if days > 90 {
		days = 90
	}

	var overview SiteOverview

	var totals struct {
		PageViews uint64
	}
	if err := s.db.Model(&db.PathStatistic{}).
		Select("COALESCE(SUM(page_views), 0) AS page_views").
		Scan(&totals).Error; err != nil {
		return overview, err
	}
	overview.TotalPageViews = totals.PageViews

	var uniqueVisitors int64
	if err := s.db.Model(&db.PathVisit{}).Distinct("visitor_id").Count(&uniqueVisitors).Error; err != nil {
		return overview, err
	}
	overview.TotalUniqueVisitors = uint64(uniqueVisitors)

	if err := s.db.Model(&db.PathStatistic{}).Count(&overview.PathCount).Error; err != nil {
		return overview, err
	}

	var topPaths []TopPathStat
	if err := s.db.Model(&db.PathStatistic{}).
		Select("path, page_views, unique_visitors").
		Order("page_views DESC, path ASC").
		Limit(limit).
		Scan(&topPaths).Error; err != nil {
		return overview, err
	}
	overview.TopPaths = topPaths

	daily, err := s.dailyTrend(days, now)
	if err != nil {
		return overview, err
	}
	overview.Daily = daily

	return overview, nil
}

func (s *AnalyticsService) dailyTrend(days int, now time.Time) ([]DailyTrafficPoint, error) {
	end := now.In(s.loc)
	start := end.AddDate(0, 0, -(days - 1))

	var rows []db.DailyTraffic
	if err := s.db.Where("day >= ? AND day <= ?", start.Format(dayLayout), end.Format(dayLayout)).
		Find(&rows).Error; err != nil {
		return nil, err
	}

	byDay := make(map[string]db.DailyTraffic, len(rows))
	for _, row := range rows {
		byDay[row.Day] = row
	}

	points := make([]DailyTrafficPoint, 0, days)
	for i := 0; i < days; i++ {
		day := start.AddDate(0, 0, i).Format(dayLayout)
		row := byDay[day]
		points = append(points, DailyTrafficPoint{Day: day, PageViews: row.PageViews, UniqueVisitors: row.UniqueVisitors})
	}
	return points, nil
}
