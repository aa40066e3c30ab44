package db

import (
	"time"

	"gorm.io/gorm"
)

const (
	ReservationPending   = "pending"
	ReservationConfirmed = "confirmed"
	ReservationCancelled = "cancelled"
)

// Reservation 记录访客预约
// Date 使用 YYYY-MM-DD，Time 使用 24 小时制 HH:MM，ScheduledAt 为两者在站点时区下的组合
type Reservation struct {
	gorm.Model
	Name        string    `gorm:"not null"`
	Email       string    `gorm:"not null"`
	Phone       string
	Date        string    `gorm:"size:10;index;not null"`
	Time        string    `gorm:"size:5;not null"`
	ScheduledAt time.Time `gorm:"index"`
	Status      string    `gorm:"size:20;index;not null;default:pending"`
	Note        string    `gorm:"type:text"`
}
