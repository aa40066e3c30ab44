package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/showcase/internal/db"
	"gorm.io/gorm"
)

var (
	ErrContactNameRequired    = errors.New("name is required")
	ErrContactMessageRequired = errors.New("message is required")
	ErrContactMessageTooLong  = errors.New("message is too long")
	ErrContactKindInvalid     = errors.New("message kind is invalid")
	ErrContactNotFound        = errors.New("message not found")
)

const maxContactMessageLength = 5000

// ContactInput 是联系表单与报价表单的提交内容，报价表单额外携带预算与服务。
type ContactInput struct {
	Name     string   `json:"name"`
	Email    string   `json:"email"`
	Phone    string   `json:"phone"`
	Company  string   `json:"company"`
	Subject  string   `json:"subject"`
	Message  string   `json:"message"`
	Budget   string   `json:"budget"`
	Services []string `json:"services"`
}

// ContactListResult 是后台留言列表的分页结果。
type ContactListResult struct {
	Messages   []db.ContactMessage
	Total      int64
	Unread     int64
	TotalPages int
	Page       int
	PerPage    int
}

// ContactService 保存访客留言并提醒管理员。
type ContactService struct {
	db            *gorm.DB
	notifications *NotificationService
}

// NewContactService creates a ContactService instance.
func NewContactService(gdb *gorm.DB, notifications *NotificationService) *ContactService {
	return &ContactService{db: gdb, notifications: notifications}
}

// Submit 校验并保存留言，提醒失败不影响结果。
func (s *ContactService) Submit(ctx context.Context, kind string, input ContactInput) (*db.ContactMessage, error) {
	kind = strings.ToLower(strings.TrimSpace(kind))
	if kind != db.MessageKindContact && kind != db.MessageKindQuote {
		return nil, ErrContactKindInvalid
	}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, ErrContactNameRequired
	}
	email, err := NormalizeEmail(input.Email)
	if err != nil {
		return nil, err
	}
	message := strings.TrimSpace(input.Message)
	if message == "" {
		return nil, ErrContactMessageRequired
	}
	if utf8.RuneCountInString(message) > maxContactMessageLength {
		return nil, ErrContactMessageTooLong
	}

	services := make([]string, 0, len(input.Services))
	for _, service := range input.Services {
		if trimmed := strings.TrimSpace(service); trimmed != "" {
			services = append(services, trimmed)
		}
	}

	record := db.ContactMessage{
		Kind:     kind,
		Name:     name,
		Email:    email,
		Phone:    strings.TrimSpace(input.Phone),
		Company:  strings.TrimSpace(input.Company),
		Subject:  strings.TrimSpace(input.Subject),
		Message:  message,
		Budget:   strings.TrimSpace(input.Budget),
		Services: strings.Join(services, ","),
	}
	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		return nil, fmt.Errorf("create contact message: %w", err)
	}

	if s.notifications != nil {
		title := fmt.Sprintf("新留言：%s", record.Name)
		if kind == db.MessageKindQuote {
			title = fmt.Sprintf("新报价请求：%s", record.Name)
		}
		s.notifications.Notify(ctx, kind, Alert{
			Subject: title,
			Body:    fmt.Sprintf("%s <%s>\n%s", record.Name, record.Email, summarizeText(record.Message, 280)),
			Link:    fmt.Sprintf("/admin/messages/%d", record.ID),
		})
	}

	return &record, nil
}

// List returns messages for the admin, newest first.
func (s *ContactService) List(kind string, page, perPage int) (*ContactListResult, error) {
	result := &ContactListResult{Page: normalizePage(page), PerPage: normalizePerPage(perPage, 20)}

	query := s.db.Model(&db.ContactMessage{})
	if kind = strings.TrimSpace(kind); kind != "" {
		query = query.Where("kind = ?", kind)
	}

	if err := query.Count(&result.Total).Error; err != nil {
		return nil, err
	}
	if err := s.db.Model(&db.ContactMessage{}).Where("read = ?", false).Count(&result.Unread).Error; err != nil {
		return nil, err
	}

	if err := query.Order("created_at desc, id desc").
		Limit(result.PerPage).
		Offset((result.Page - 1) * result.PerPage).
		Find(&result.Messages).Error; err != nil {
		return nil, err
	}

	result.TotalPages = calculateTotalPages(result.Total, result.PerPage)
	return result, nil
}

// Get fetches a message by id.
func (s *ContactService) Get(id uint) (*db.ContactMessage, error) {
	var message db.ContactMessage
	if err := s.db.First(&message, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrContactNotFound
		}
		return nil, err
	}
	return &message, nil
}

// MarkRead 标记留言为已读。
func (s *ContactService) MarkRead(id uint) error {
	result := s.db.Model(&db.ContactMessage{}).Where("id = ?", id).Update("read", true)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrContactNotFound
	}
	return nil
}

// Delete removes a message.
func (s *ContactService) Delete(id uint) error {
	result := s.db.Delete(&db.ContactMessage{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrContactNotFound
	}
	return nil
}
