package db

import "gorm.io/gorm"

// SystemSetting 存储后台可配置的系统级键值对。
type SystemSetting struct {
	gorm.Model
	Key   string `gorm:"size:100;uniqueIndex;not null"`
	Value string `gorm:"type:text"`
}

// TableName 自定义表名以保持命名一致。
func (SystemSetting) TableName() string {
	return "system_settings"
}

const (
	// SettingKeySiteName 表示站点名称。
	SettingKeySiteName = "site_name"
	// SettingKeySiteDescription 表示站点默认描述，用于 SEO。
	SettingKeySiteDescription = "site_description"
	// SettingKeySiteKeywords 表示站点默认关键词。
	SettingKeySiteKeywords = "site_keywords"
	// SettingKeyNotifyEmail 表示接收后台提醒的邮箱。
	SettingKeyNotifyEmail = "notify_email"
	// SettingKeyNotifyPhone 表示接收短信提醒的手机号。
	SettingKeyNotifyPhone = "notify_phone"
	// SettingKeyBookingOpen 表示每日最早可预约时间（HH:MM）。
	SettingKeyBookingOpen = "booking_open"
	// SettingKeyBookingClose 表示每日最晚可预约时间（HH:MM）。
	SettingKeyBookingClose = "booking_close"
	// SettingKeySlotMinutes 表示单个预约时段的分钟数。
	SettingKeySlotMinutes = "slot_minutes"
)
