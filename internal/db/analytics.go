package db

import "time"

// PathStatistic 汇总路径维度的浏览数据。
type PathStatistic struct {
	ID             uint   `gorm:"primaryKey"`
	Path           string `gorm:"size:255;uniqueIndex"`
	PageViews      uint64 `gorm:"default:0"`
	UniqueVisitors uint64 `gorm:"default:0"`
	LastViewedAt   time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// TableName 指定自定义表名，避免自动复数化导致的歧义。
func (PathStatistic) TableName() string {
	return "path_statistics"
}

// PathVisit 记录访客层面的浏览历史，用于 UV/PV 去重。
type PathVisit struct {
	ID            uint   `gorm:"primaryKey"`
	Path          string `gorm:"size:255;uniqueIndex:idx_path_visitor"`
	VisitorID     string `gorm:"size:64;uniqueIndex:idx_path_visitor"`
	Referrer      string `gorm:"size:255"`
	LastViewedAt  time.Time
	LastCountedAt time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// TableName 指定自定义表名。
func (PathVisit) TableName() string {
	return "path_visits"
}

// DailyTraffic 记录站点每天的 PV/UV 快照。
type DailyTraffic struct {
	ID             uint   `gorm:"primaryKey"`
	Day            string `gorm:"size:10;uniqueIndex"`
	PageViews      uint64 `gorm:"default:0"`
	UniqueVisitors uint64 `gorm:"default:0"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// TableName 指定自定义表名。
func (DailyTraffic) TableName() string {
	return "daily_traffic"
}

// DailyVisitor 记录每天的访客，用于 UV 去重。
type DailyVisitor struct {
	ID        uint   `gorm:"primaryKey"`
	Day       string `gorm:"size:10;uniqueIndex:idx_daily_visitor"`
	VisitorID string `gorm:"size:64;uniqueIndex:idx_daily_visitor"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName 指定自定义表名。
func (DailyVisitor) TableName() string {
	return "daily_visitors"
}
