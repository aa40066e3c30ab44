package service

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/showcase/internal/db"
	"gorm.io/gorm"
)

var ErrNotificationNotFound = errors.New("notification not found")

// NotificationListResult 是后台提醒列表的分页结果。
type NotificationListResult struct {
	Notifications []db.Notification `json:"notifications"`
	Total         int64             `json:"total"`
	Unread        int64             `json:"unread"`
	Page          int               `json:"page"`
	PerPage       int               `json:"perPage"`
	TotalPages    int               `json:"totalPages"`
}

// NotificationService 负责站内提醒的存储与对外投递。
type NotificationService struct {
	db       *gorm.DB
	notifier Notifier
	mailer   Mailer
}

// NewNotificationService 创建服务，notifier 与 mailer 均可为 nil。
func NewNotificationService(gdb *gorm.DB, notifier Notifier, mailer Mailer) *NotificationService {
	return &NotificationService{db: gdb, notifier: notifier, mailer: mailer}
}

// Notify 记录站内提醒并通知管理员，任何失败都只记录日志。
func (s *NotificationService) Notify(ctx context.Context, kind string, alert Alert) {
	record := db.Notification{
		Kind:  strings.TrimSpace(kind),
		Title: strings.TrimSpace(alert.Subject),
		Body:  strings.TrimSpace(alert.Body),
		Link:  strings.TrimSpace(alert.Link),
	}
	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		log.Warn().Err(err).Str("component", "notification").Str("kind", kind).Msg("failed to store notification")
	}

	if s.notifier == nil {
		return
	}
	// MultiNotifier 已逐个记录失败原因
	if err := s.notifier.Notify(ctx, alert); err != nil {
		if _, ok := s.notifier.(MultiNotifier); !ok {
			logUpstreamFailure(err, s.notifier.Name(), "notifier failed")
		}
	}
}

// SendEmail 给访客发送邮件，失败时返回 false。
func (s *NotificationService) SendEmail(ctx context.Context, to, subject, body string) bool {
	if s.mailer == nil {
		return false
	}
	if err := s.mailer.Send(ctx, to, subject, body); err != nil {
		logUpstreamFailure(err, "email", "failed to send visitor email")
		return false
	}
	return true
}

// List 返回提醒列表，unreadOnly 为 true 时只返回未读。
func (s *NotificationService) List(page, perPage int, unreadOnly bool) (*NotificationListResult, error) {
	result := &NotificationListResult{Page: normalizePage(page), PerPage: normalizePerPage(perPage, 20)}

	query := s.db.Model(&db.Notification{})
	if unreadOnly {
		query = query.Where("read = ?", false)
	}
	if err := query.Count(&result.Total).Error; err != nil {
		return nil, err
	}

	unread, err := s.UnreadCount()
	if err != nil {
		return nil, err
	}
	result.Unread = unread

	if err := query.Order("created_at desc, id desc").
		Limit(result.PerPage).
		Offset((result.Page - 1) * result.PerPage).
		Find(&result.Notifications).Error; err != nil {
		return nil, err
	}

	result.TotalPages = calculateTotalPages(result.Total, result.PerPage)
	return result, nil
}

// UnreadCount 返回未读提醒数量。
func (s *NotificationService) UnreadCount() (int64, error) {
	var count int64
	err := s.db.Model(&db.Notification{}).Where("read = ?", false).Count(&count).Error
	return count, err
}

// MarkRead 标记单条提醒为已读。
func (s *NotificationService) MarkRead(id uint) error {
	result := s.db.Model(&db.Notification{}).Where("id = ?", id).Update("read", true)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotificationNotFound
	}
	return nil
}

// MarkAllRead 标记全部提醒为已读，返回受影响的条数。
func (s *NotificationService) MarkAllRead() (int64, error) {
	result := s.db.Model(&db.Notification{}).Where("read = ?", false).Update("read", true)
	return result.RowsAffected, result.Error
}

// Delete 删除提醒。
func (s *NotificationService) Delete(id uint) error {
	result := s.db.Delete(&db.Notification{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotificationNotFound
	}
	return nil
}
