package service

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/showcase/internal/db"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	defaultSiteName        = "Showcase Studio"
	defaultSiteDescription = "We design, build and grow websites for small businesses."
	defaultSiteKeywords    = "web design,development,seo"
	defaultBookingOpen     = "09:00"
	defaultBookingClose    = "17:00"
	defaultSlotMinutes     = 60
	slotTimeLayout         = "15:04"
)

// ErrBookingHoursInvalid 表示营业时间格式错误或区间无效。
var ErrBookingHoursInvalid = errors.New("booking hours are invalid")

// SystemSettings 描述后台可配置的系统信息。
type SystemSettings struct {
	SiteName        string `json:"siteName"`
	SiteDescription string `json:"siteDescription"`
	SiteKeywords    string `json:"siteKeywords"`
	NotifyEmail     string `json:"notifyEmail"`
	NotifyPhone     string `json:"notifyPhone"`
	BookingOpen     string `json:"bookingOpen"`
	BookingClose    string `json:"bookingClose"`
	SlotMinutes     int    `json:"slotMinutes"`
}

// SystemSettingsInput 用于更新系统设置。
type SystemSettingsInput struct {
	SiteName        string `json:"siteName"`
	SiteDescription string `json:"siteDescription"`
	SiteKeywords    string `json:"siteKeywords"`
	NotifyEmail     string `json:"notifyEmail"`
	NotifyPhone     string `json:"notifyPhone"`
	BookingOpen     string `json:"bookingOpen"`
	BookingClose    string `json:"bookingClose"`
	SlotMinutes     int    `json:"slotMinutes"`
}

// SystemSettingService 提供系统设置的读取与更新能力。
type SystemSettingService struct {
	db *gorm.DB
}

// NewSystemSettingService 构造 SystemSettingService。
func NewSystemSettingService(gdb *gorm.DB) *SystemSettingService {
	return &SystemSettingService{db: gdb}
}

var settingKeys = []string{
	db.SettingKeySiteName,
	db.SettingKeySiteDescription,
	db.SettingKeySiteKeywords,
	db.SettingKeyNotifyEmail,
	db.SettingKeyNotifyPhone,
	db.SettingKeyBookingOpen,
	db.SettingKeyBookingClose,
	db.SettingKeySlotMinutes,
}

func defaultSettings() SystemSettings {
	return SystemSettings{
		SiteName:        defaultSiteName,
		SiteDescription: defaultSiteDescription,
		SiteKeywords:    NormalizeKeywords(defaultSiteKeywords),
		BookingOpen:     defaultBookingOpen,
		BookingClose:    defaultBookingClose,
		SlotMinutes:     defaultSlotMinutes,
	}
}

// GetSettings 读取系统设置，如未设置将返回默认值。
func (s *SystemSettingService) GetSettings() (SystemSettings, error) {
	result := defaultSettings()

	var records []db.SystemSetting
	if err := s.db.Where("key IN ?", settingKeys).Find(&records).Error; err != nil {
		return result, fmt.Errorf("load system settings: %w", err)
	}

	for _, record := range records {
		value := strings.TrimSpace(record.Value)
		switch record.Key {
		case db.SettingKeySiteName:
			if value != "" {
				result.SiteName = value
			}
		case db.SettingKeySiteDescription:
			if value != "" {
				result.SiteDescription = value
			}
		case db.SettingKeySiteKeywords:
			if value != "" {
				result.SiteKeywords = NormalizeKeywords(value)
			}
		case db.SettingKeyNotifyEmail:
			result.NotifyEmail = value
		case db.SettingKeyNotifyPhone:
			result.NotifyPhone = value
		case db.SettingKeyBookingOpen:
			if _, err := time.Parse(slotTimeLayout, value); err == nil {
				result.BookingOpen = value
			}
		case db.SettingKeyBookingClose:
			if _, err := time.Parse(slotTimeLayout, value); err == nil {
				result.BookingClose = value
			}
		case db.SettingKeySlotMinutes:
			if minutes, err := strconv.Atoi(value); err == nil && validSlotMinutes(minutes) {
				result.SlotMinutes = minutes
			}
		}
	}

	return result, nil
}

// UpdateSettings 保存系统设置，留空的字段回退默认值。
func (s *SystemSettingService) UpdateSettings(input SystemSettingsInput) (SystemSettings, error) {
	defaults := defaultSettings()
	sanitized := SystemSettings{
		SiteName:        strings.TrimSpace(input.SiteName),
		SiteDescription: strings.TrimSpace(input.SiteDescription),
		SiteKeywords:    NormalizeKeywords(input.SiteKeywords),
		NotifyPhone:     strings.TrimSpace(input.NotifyPhone),
		BookingOpen:     strings.TrimSpace(input.BookingOpen),
		BookingClose:    strings.TrimSpace(input.BookingClose),
		SlotMinutes:     input.SlotMinutes,
	}

	if sanitized.SiteName == "" {
		sanitized.SiteName = defaults.SiteName
	}
	if sanitized.SiteDescription == "" {
		sanitized.SiteDescription = defaults.SiteDescription
	}
	if sanitized.SiteKeywords == "" {
		sanitized.SiteKeywords = defaults.SiteKeywords
	}
	if sanitized.BookingOpen == "" {
		sanitized.BookingOpen = defaults.BookingOpen
	}
	if sanitized.BookingClose == "" {
		sanitized.BookingClose = defaults.BookingClose
	}
	if sanitized.SlotMinutes == 0 {
		sanitized.SlotMinutes = defaults.SlotMinutes
	}

	if email := strings.TrimSpace(input.NotifyEmail); email != "" {
		normalized, err := NormalizeEmail(email)
		if err != nil {
			return SystemSettings{}, err
		}
		sanitized.NotifyEmail = normalized
	}

	if _, err := sanitized.BookingSlots(); err != nil {
		return SystemSettings{}, err
	}

	values := map[string]string{
		db.SettingKeySiteName:        sanitized.SiteName,
		db.SettingKeySiteDescription: sanitized.SiteDescription,
		db.SettingKeySiteKeywords:    sanitized.SiteKeywords,
		db.SettingKeyNotifyEmail:     sanitized.NotifyEmail,
		db.SettingKeyNotifyPhone:     sanitized.NotifyPhone,
		db.SettingKeyBookingOpen:     sanitized.BookingOpen,
		db.SettingKeyBookingClose:    sanitized.BookingClose,
		db.SettingKeySlotMinutes:     strconv.Itoa(sanitized.SlotMinutes),
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		for _, key := range settingKeys {
			if err := upsertSetting(tx, key, values[key]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return SystemSettings{}, fmt.Errorf("update system settings: %w", err)
	}

	return sanitized, nil
}

// BookingSlots 依据营业时间与时段长度生成当天所有可预约的 HH:MM。
func (s SystemSettings) BookingSlots() ([]string, error) {
	open, err := time.Parse(slotTimeLayout, s.BookingOpen)
	if err != nil {
		return nil, ErrBookingHoursInvalid
	}
	closing, err := time.Parse(slotTimeLayout, s.BookingClose)
	if err != nil {
		return nil, ErrBookingHoursInvalid
	}
	if !closing.After(open) || !validSlotMinutes(s.SlotMinutes) {
		return nil, ErrBookingHoursInvalid
	}

	step := time.Duration(s.SlotMinutes) * time.Minute
	var slots []string
	for t := open; !t.Add(step).After(closing); t = t.Add(step) {
		slots = append(slots, t.Format(slotTimeLayout))
	}
	if len(slots) == 0 {
		return nil, ErrBookingHoursInvalid
	}
	return slots, nil
}

func validSlotMinutes(minutes int) bool {
	return minutes >= 15 && minutes <= 240
}

// NormalizeKeywords 将中英文逗号分隔的关键词去重并统一为英文逗号。
func NormalizeKeywords(raw string) string {
	replacer := strings.NewReplacer("，", ",", "、", ",", ";", ",")
	parts := strings.Split(replacer.Replace(raw), ",")

	seen := make(map[string]struct{}, len(parts))
	keywords := make([]string, 0, len(parts))
	for _, part := range parts {
		keyword := strings.TrimSpace(part)
		if keyword == "" {
			continue
		}
		lower := strings.ToLower(keyword)
		if _, ok := seen[lower]; ok {
			continue
		}
		seen[lower] = struct{}{}
		keywords = append(keywords, keyword)
	}
	return strings.Join(keywords, ",")
}

func upsertSetting(tx *gorm.DB, key, value string) error {
	setting := db.SystemSetting{Key: key, Value: value}
	if err := tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "key"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"value":      value,
			"updated_at": gorm.Expr("CURRENT_TIMESTAMP"),
		}),
	}).Create(&setting).Error; err != nil {
		return fmt.Errorf("upsert setting %s: %w", key, err)
	}
	return nil
}
