package db

import (
	"time"

	"gorm.io/gorm"
)

const (
	MessageKindContact = "contact"
	MessageKindQuote   = "quote"

	SubscriberActive       = "subscribed"
	SubscriberUnsubscribed = "unsubscribed"
)

// ContactMessage 保存联系表单与报价表单提交
type ContactMessage struct {
	gorm.Model
	Kind     string `gorm:"size:20;index;not null"`
	Name     string `gorm:"not null"`
	Email    string `gorm:"not null"`
	Phone    string
	Company  string
	Subject  string
	Message  string `gorm:"type:text"`
	Budget   string
	Services string
	Read     bool `gorm:"index"`
}

// Notification 后台通知，Link 指向相关记录，不做外键约束
type Notification struct {
	gorm.Model
	Kind  string `gorm:"size:30;index"`
	Title string `gorm:"not null"`
	Body  string `gorm:"type:text"`
	Link  string
	Read  bool `gorm:"index"`
}

// Subscriber 新闻订阅者，Token 用于退订链接
type Subscriber struct {
	gorm.Model
	Email       string `gorm:"size:255;uniqueIndex;not null"`
	Token       string `gorm:"size:64;uniqueIndex;not null"`
	Status      string `gorm:"size:20;index;not null"`
	ConfirmedAt *time.Time
}
