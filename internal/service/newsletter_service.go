package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/showcase/internal/db"
	"gorm.io/gorm"
)

var (
	ErrSubscriberNotFound = errors.New("subscriber not found")
	ErrTokenInvalid       = errors.New("unsubscribe token is invalid")
)

// SubscriberListResult 是订阅者列表的分页结果。
type SubscriberListResult struct {
	Subscribers []db.Subscriber
	Total       int64
	Active      int64
	TotalPages  int
	Page        int
	PerPage     int
}

// NewsletterService 管理邮件订阅。
type NewsletterService struct {
	db            *gorm.DB
	notifications *NotificationService
	siteBaseURL   string
	now           func() time.Time
}

// NewNewsletterService creates a NewsletterService; siteBaseURL is used in unsubscribe links.
func NewNewsletterService(gdb *gorm.DB, notifications *NotificationService, siteBaseURL string) *NewsletterService {
	return &NewsletterService{
		db:            gdb,
		notifications: notifications,
		siteBaseURL:   strings.TrimRight(strings.TrimSpace(siteBaseURL), "/"),
		now:           time.Now,
	}
}

// Subscribe 订阅邮箱。重复订阅是幂等的，已退订的邮箱会重新激活。
// 返回值 created 表示本次是否新增或重新激活。
func (s *NewsletterService) Subscribe(ctx context.Context, rawEmail string) (*db.Subscriber, bool, error) {
	email, err := NormalizeEmail(rawEmail)
	if err != nil {
		return nil, false, err
	}

	now := s.now().UTC()
	var (
		subscriber db.Subscriber
		changed    bool
	)

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		lookup := tx.Unscoped().Where("email = ?", email).First(&subscriber)
		switch {
		case errors.Is(lookup.Error, gorm.ErrRecordNotFound):
			subscriber = db.Subscriber{
				Email:       email,
				Token:       uuid.NewString(),
				Status:      db.SubscriberActive,
				ConfirmedAt: &now,
			}
			changed = true
			return tx.Create(&subscriber).Error
		case lookup.Error != nil:
			return lookup.Error
		}

		if subscriber.Status == db.SubscriberActive && !subscriber.DeletedAt.Valid {
			return nil
		}

		changed = true
		subscriber.Status = db.SubscriberActive
		subscriber.ConfirmedAt = &now
		subscriber.DeletedAt = gorm.DeletedAt{}
		return tx.Unscoped().Save(&subscriber).Error
	})
	if err != nil {
		return nil, false, fmt.Errorf("subscribe: %w", err)
	}

	if changed && s.notifications != nil {
		s.notifications.SendEmail(ctx, subscriber.Email, "Thanks for subscribing",
			fmt.Sprintf("You're on the list. To unsubscribe at any time visit %s", s.UnsubscribeURL(subscriber.Token)))
		s.notifications.Notify(ctx, "newsletter", Alert{
			Subject: fmt.Sprintf("新订阅：%s", subscriber.Email),
			Link:    "/admin/subscribers",
		})
	}

	return &subscriber, changed, nil
}

// UnsubscribeURL 生成退订链接。
func (s *NewsletterService) UnsubscribeURL(token string) string {
	return fmt.Sprintf("%s/api/newsletter/unsubscribe?token=%s", s.siteBaseURL, token)
}

// Unsubscribe 通过令牌退订。
func (s *NewsletterService) Unsubscribe(ctx context.Context, token string) (*db.Subscriber, error) {
	token = strings.TrimSpace(token)
	if _, err := uuid.Parse(token); err != nil {
		return nil, ErrTokenInvalid
	}

	var subscriber db.Subscriber
	if err := s.db.WithContext(ctx).Where("token = ?", token).First(&subscriber).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTokenInvalid
		}
		return nil, err
	}

	if subscriber.Status != db.SubscriberUnsubscribed {
		if err := s.db.Model(&subscriber).Update("status", db.SubscriberUnsubscribed).Error; err != nil {
			return nil, err
		}
		subscriber.Status = db.SubscriberUnsubscribed
	}
	return &subscriber, nil
}

// List returns subscribers for the admin.
func (s *NewsletterService) List(status string, page, perPage int) (*SubscriberListResult, error) {
	result := &SubscriberListResult{Page: normalizePage(page), PerPage: normalizePerPage(perPage, 50)}

	query := s.db.Model(&db.Subscriber{})
	if status = strings.TrimSpace(status); status != "" {
		query = query.Where("status = ?", status)
	}
	if err := query.Count(&result.Total).Error; err != nil {
		return nil, err
	}
	if err := s.db.Model(&db.Subscriber{}).Where("status = ?", db.SubscriberActive).Count(&result.Active).Error; err != nil {
		return nil, err
	}
	if err := query.Order("created_at desc, id desc").
		Limit(result.PerPage).
		Offset((result.Page - 1) * result.PerPage).
		Find(&result.Subscribers).Error; err != nil {
		return nil, err
	}

	result.TotalPages = calculateTotalPages(result.Total, result.PerPage)
	return result, nil
}

// Delete removes a subscriber.
func (s *NewsletterService) Delete(id uint) error {
	result := s.db.Delete(&db.Subscriber{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrSubscriberNotFound
	}
	return nil
}
