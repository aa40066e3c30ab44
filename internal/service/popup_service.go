package service

import (
	"errors"
	"strings"
	"time"

	"github.com/showcase/internal/cache"
	"github.com/showcase/internal/db"
	"gorm.io/gorm"
)

var (
	ErrPopupNotFound      = errors.New("popup not found")
	ErrPopupTitleMissing  = errors.New("popup title is required")
	ErrPopupWindowInvalid = errors.New("popup end time must be after start time")
)

const cacheKeyActivePopups = "popups:active"

// PopupInput represents fields accepted when creating or updating a popup.
type PopupInput struct {
	Title        string     `json:"title"`
	Body         string     `json:"body"`
	CTAText      string     `json:"ctaText"`
	CTAURL       string     `json:"ctaUrl"`
	Pages        []string   `json:"pages"`
	DelaySeconds int        `json:"delaySeconds"`
	StartsAt     *time.Time `json:"startsAt"`
	EndsAt       *time.Time `json:"endsAt"`
	Active       bool       `json:"active"`
}

// PopupService manages site popups. Active popups are cached as a whole and
// filtered per request by path and time window.
type PopupService struct {
	db    *gorm.DB
	cache *cache.TTL[[]db.Popup]
}

// NewPopupService creates a PopupService instance.
func NewPopupService(gdb *gorm.DB, ttl time.Duration) *PopupService {
	return &PopupService{db: gdb, cache: cache.New[[]db.Popup](ttl)}
}

// ActiveFor returns popups that should show on path at now.
func (s *PopupService) ActiveFor(path string, now time.Time) ([]db.Popup, error) {
	popups, err := s.cache.GetOrCompute(cacheKeyActivePopups, func() ([]db.Popup, error) {
		var items []db.Popup
		if err := s.db.Where("active = ?", true).Order("id asc").Find(&items).Error; err != nil {
			return nil, err
		}
		return items, nil
	})
	if err != nil {
		return nil, err
	}

	path = NormalizeTrackedPath(path)
	if path == "" {
		path = "/"
	}

	result := make([]db.Popup, 0, len(popups))
	for _, popup := range popups {
		if popup.StartsAt != nil && now.Before(*popup.StartsAt) {
			continue
		}
		if popup.EndsAt != nil && !now.Before(*popup.EndsAt) {
			continue
		}
		if !popupMatchesPath(popup.Pages, path) {
			continue
		}
		result = append(result, popup)
	}
	return result, nil
}

// popupMatchesPath 支持精确匹配与以 /* 结尾的前缀匹配，Pages 为空时匹配全部。
func popupMatchesPath(pages []string, path string) bool {
	if len(pages) == 0 {
		return true
	}
	for _, page := range pages {
		page = strings.TrimSpace(page)
		if page == "*" {
			return true
		}
		if prefix, ok := strings.CutSuffix(page, "/*"); ok {
			if path == prefix || strings.HasPrefix(path, prefix+"/") {
				return true
			}
			continue
		}
		if NormalizeTrackedPath(page) == path {
			return true
		}
	}
	return false
}

// ListAll returns every popup for the admin.
func (s *PopupService) ListAll() ([]db.Popup, error) {
	var items []db.Popup
	if err := s.db.Order("created_at desc").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// Get fetches a popup by id.
func (s *PopupService) Get(id uint) (*db.Popup, error) {
	var item db.Popup
	if err := s.db.First(&item, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPopupNotFound
		}
		return nil, err
	}
	return &item, nil
}

// Create inserts a new popup.
func (s *PopupService) Create(input PopupInput) (*db.Popup, error) {
	item := &db.Popup{}
	if err := applyPopupInput(item, input); err != nil {
		return nil, err
	}
	if err := s.db.Create(item).Error; err != nil {
		return nil, err
	}
	s.cache.Invalidate(cacheKeyActivePopups)
	return item, nil
}

// Update modifies an existing popup.
func (s *PopupService) Update(id uint, input PopupInput) (*db.Popup, error) {
	item, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if err := applyPopupInput(item, input); err != nil {
		return nil, err
	}
	if err := s.db.Save(item).Error; err != nil {
		return nil, err
	}
	s.cache.Invalidate(cacheKeyActivePopups)
	return item, nil
}

// Delete removes a popup.
func (s *PopupService) Delete(id uint) error {
	result := s.db.Delete(&db.Popup{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrPopupNotFound
	}
	s.cache.Invalidate(cacheKeyActivePopups)
	return nil
}

func applyPopupInput(item *db.Popup, input PopupInput) error {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return ErrPopupTitleMissing
	}
	if input.StartsAt != nil && input.EndsAt != nil && !input.EndsAt.After(*input.StartsAt) {
		return ErrPopupWindowInvalid
	}

	pages := make([]string, 0, len(input.Pages))
	for _, page := range input.Pages {
		if trimmed := strings.TrimSpace(page); trimmed != "" {
			pages = append(pages, trimmed)
		}
	}

	delay := input.DelaySeconds
	if delay < 0 {
		delay = 0
	}

	item.Title = title
	item.Body = strings.TrimSpace(input.Body)
	item.CTAText = strings.TrimSpace(input.CTAText)
	item.CTAURL = strings.TrimSpace(input.CTAURL)
	item.Pages = pages
	item.DelaySeconds = delay
	item.StartsAt = input.StartsAt
	item.EndsAt = input.EndsAt
	item.Active = input.Active
	return nil
}
