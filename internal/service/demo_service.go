package service

import (
	"errors"
	"strings"

	"github.com/showcase/internal/db"
	"gorm.io/gorm"
)

var (
	ErrDemoNotFound     = errors.New("demo not found")
	ErrDemoTitleMissing = errors.New("demo title is required")
	ErrDemoSlugExists   = errors.New("demo slug already exists")
)

// DemoService handles demo CRUD.
type DemoService struct {
	db *gorm.DB
}

// DemoFilter describes filters for listing demos.
type DemoFilter struct {
	Category   string
	ActiveOnly bool
	Page       int
	PerPage    int
}

// DemoListResult aggregates paginated demo results.
type DemoListResult struct {
	Items      []db.Demo
	Total      int64
	TotalPages int
	Page       int
	PerPage    int
}

// DemoInput represents fields accepted when creating or updating a demo.
type DemoInput struct {
	Title       string `json:"title"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
	DemoURL     string `json:"demoUrl"`
	ImageURL    string `json:"imageUrl"`
	Category    string `json:"category"`
	SortOrder   int    `json:"sortOrder"`
	Active      bool   `json:"active"`
}

// NewDemoService creates a DemoService instance.
func NewDemoService(gdb *gorm.DB) *DemoService {
	return &DemoService{db: gdb}
}

// List returns demos matching the filter ordered by priority.
func (s *DemoService) List(filter DemoFilter) (DemoListResult, error) {
	result := DemoListResult{
		Page:    normalizePage(filter.Page),
		PerPage: normalizePerPage(filter.PerPage, 12),
	}

	query := s.db.Model(&db.Demo{})
	if filter.ActiveOnly {
		query = query.Where("active = ?", true)
	}
	if category := strings.TrimSpace(filter.Category); category != "" {
		query = query.Where("LOWER(category) = ?", strings.ToLower(category))
	}

	if err := query.Count(&result.Total).Error; err != nil {
		return result, err
	}

	result.TotalPages = calculateTotalPages(result.Total, result.PerPage)
	offset := (result.Page - 1) * result.PerPage

	if err := query.Order("sort_order asc").Order("created_at desc").
		Limit(result.PerPage).
		Offset(offset).
		Find(&result.Items).Error; err != nil {
		return result, err
	}

	return result, nil
}

// Get fetches a demo by id.
func (s *DemoService) Get(id uint) (*db.Demo, error) {
	var item db.Demo
	if err := s.db.First(&item, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDemoNotFound
		}
		return nil, err
	}
	return &item, nil
}

// Create inserts a new demo; a zero sort order appends it to the end.
func (s *DemoService) Create(input DemoInput) (*db.Demo, error) {
	item := &db.Demo{}
	if err := applyDemoInput(item, input); err != nil {
		return nil, err
	}
	if err := s.ensureUniqueSlug(item.Slug, 0); err != nil {
		return nil, err
	}

	if item.SortOrder == 0 {
		order, err := s.nextSortOrder()
		if err != nil {
			return nil, err
		}
		item.SortOrder = order
	}

	if err := s.db.Create(item).Error; err != nil {
		return nil, err
	}
	return item, nil
}

// Update modifies an existing demo.
func (s *DemoService) Update(id uint, input DemoInput) (*db.Demo, error) {
	item, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if err := applyDemoInput(item, input); err != nil {
		return nil, err
	}
	if err := s.ensureUniqueSlug(item.Slug, item.ID); err != nil {
		return nil, err
	}
	if err := s.db.Save(item).Error; err != nil {
		return nil, err
	}
	return item, nil
}

// Delete removes a demo.
func (s *DemoService) Delete(id uint) error {
	result := s.db.Delete(&db.Demo{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrDemoNotFound
	}
	return nil
}

// Categories returns the distinct categories of active demos.
func (s *DemoService) Categories() ([]string, error) {
	var categories []string
	if err := s.db.Model(&db.Demo{}).
		Where("active = ? AND category <> ''", true).
		Distinct().
		Order("category asc").
		Pluck("category", &categories).Error; err != nil {
		return nil, err
	}
	return categories, nil
}

func applyDemoInput(item *db.Demo, input DemoInput) error {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return ErrDemoTitleMissing
	}
	slug, err := slugOrTitle(input.Slug, title)
	if err != nil {
		return err
	}

	item.Title = title
	item.Slug = slug
	item.Description = strings.TrimSpace(input.Description)
	item.DemoURL = strings.TrimSpace(input.DemoURL)
	item.ImageURL = strings.TrimSpace(input.ImageURL)
	item.Category = strings.TrimSpace(input.Category)
	item.SortOrder = input.SortOrder
	item.Active = input.Active
	return nil
}

func (s *DemoService) ensureUniqueSlug(slug string, excludeID uint) error {
	var count int64
	query := s.db.Unscoped().Model(&db.Demo{}).Where("slug = ?", slug)
	if excludeID != 0 {
		query = query.Where("id <> ?", excludeID)
	}
	if err := query.Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return ErrDemoSlugExists
	}
	return nil
}

func (s *DemoService) nextSortOrder() (int, error) {
	var maxOrder int
	if err := s.db.Model(&db.Demo{}).Select("COALESCE(MAX(sort_order), 0)").Scan(&maxOrder).Error; err != nil {
		return 0, err
	}
	return maxOrder + 1, nil
}
