package db

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Demo 展示作品或产品演示
type Demo struct {
	gorm.Model
	Title       string `gorm:"not null"`
	Slug        string `gorm:"size:160;uniqueIndex;not null"`
	Description string `gorm:"type:text"`
	DemoURL     string
	ImageURL    string
	Category    string `gorm:"size:80;index"`
	SortOrder   int    `gorm:"default:0"`
	Active      bool   `gorm:"index"`
}

// Package 定义价格方案
type Package struct {
	gorm.Model
	Name        string `gorm:"not null"`
	Slug        string `gorm:"size:160;uniqueIndex;not null"`
	Description string
	PriceCents  int64
	Currency    string `gorm:"size:3;default:USD"`
	Interval    string `gorm:"size:20"` // one_time, month, year
	Features    datatypes.JSONSlice[string]
	Highlighted bool
	SortOrder   int  `gorm:"default:0"`
	Active      bool `gorm:"index"`
}

// Popup 描述前台弹窗，Pages 为空时对所有路径生效
type Popup struct {
	gorm.Model
	Title        string `gorm:"not null"`
	Body         string `gorm:"type:text"`
	CTAText      string
	CTAURL       string
	Pages        datatypes.JSONSlice[string]
	DelaySeconds int
	StartsAt     *time.Time
	EndsAt       *time.Time
	Active       bool `gorm:"index"`
}

// MenuItem 描述导航菜单项，ParentID 为 0 表示顶级
type MenuItem struct {
	gorm.Model
	Menu      string `gorm:"size:20;index;not null"`
	Label     string `gorm:"not null"`
	URL       string
	ParentID  uint `gorm:"index"`
	SortOrder int  `gorm:"default:0"`
	Active    bool `gorm:"index"`
}
