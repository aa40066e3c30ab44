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
	ErrPackageNotFound        = errors.New("package not found")
	ErrPackageNameMissing     = errors.New("package name is required")
	ErrPackageSlugExists      = errors.New("package slug already exists")
	ErrPackagePriceInvalid    = errors.New("package price is invalid")
	ErrPackageIntervalInvalid = errors.New("package interval is invalid")
)

const (
	PackageIntervalOneTime = "one_time"
	PackageIntervalMonth   = "month"
	PackageIntervalYear    = "year"

	cacheKeyActivePackages = "packages:active"
)

// PackageInput represents fields accepted when creating or updating a package.
type PackageInput struct {
	Name        string   `json:"name"`
	Slug        string   `json:"slug"`
	Description string   `json:"description"`
	PriceCents  int64    `json:"priceCents"`
	Currency    string   `json:"currency"`
	Interval    string   `json:"interval"`
	Features    []string `json:"features"`
	Highlighted bool     `json:"highlighted"`
	SortOrder   int      `json:"sortOrder"`
	Active      bool     `json:"active"`
}

// PackageService manages pricing packages; the public list is cached.
type PackageService struct {
	db    *gorm.DB
	cache *cache.TTL[[]db.Package]
}

// NewPackageService creates a PackageService instance.
func NewPackageService(gdb *gorm.DB, ttl time.Duration) *PackageService {
	return &PackageService{db: gdb, cache: cache.New[[]db.Package](ttl)}
}

// ListActive returns active packages ordered by sort order.
func (s *PackageService) ListActive() ([]db.Package, error) {
	return s.cache.GetOrCompute(cacheKeyActivePackages, func() ([]db.Package, error) {
		var items []db.Package
		if err := s.db.Where("active = ?", true).
			Order("sort_order asc").Order("price_cents asc").
			Find(&items).Error; err != nil {
			return nil, err
		}
		return items, nil
	})
}

// ListAll returns every package for the admin.
func (s *PackageService) ListAll() ([]db.Package, error) {
	var items []db.Package
	if err := s.db.Order("sort_order asc").Order("id asc").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// Get fetches a package by id.
func (s *PackageService) Get(id uint) (*db.Package, error) {
	var item db.Package
	if err := s.db.First(&item, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPackageNotFound
		}
		return nil, err
	}
	return &item, nil
}

// Create inserts a new package.
func (s *PackageService) Create(input PackageInput) (*db.Package, error) {
	item := &db.Package{}
	if err := applyPackageInput(item, input); err != nil {
		return nil, err
	}
	if err := s.ensureUniqueSlug(item.Slug, 0); err != nil {
		return nil, err
	}
	if err := s.db.Create(item).Error; err != nil {
		return nil, err
	}
	s.cache.Invalidate(cacheKeyActivePackages)
	return item, nil
}

// Update modifies an existing package.
func (s *PackageService) Update(id uint, input PackageInput) (*db.Package, error) {
	item, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if err := applyPackageInput(item, input); err != nil {
		return nil, err
	}
	if err := s.ensureUniqueSlug(item.Slug, item.ID); err != nil {
		return nil, err
	}
	if err := s.db.Save(item).Error; err != nil {
		return nil, err
	}
	s.cache.Invalidate(cacheKeyActivePackages)
	return item, nil
}

// Delete removes a package.
func (s *PackageService) Delete(id uint) error {
	result := s.db.Delete(&db.Package{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrPackageNotFound
	}
	s.cache.Invalidate(cacheKeyActivePackages)
	return nil
}

func applyPackageInput(item *db.Package, input PackageInput) error {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return ErrPackageNameMissing
	}
	slug, err := slugOrTitle(input.Slug, name)
	if err != nil {
		return err
	}
	if input.PriceCents < 0 {
		return ErrPackagePriceInvalid
	}

	currency := strings.ToUpper(strings.TrimSpace(input.Currency))
	if currency == "" {
		currency = "USD"
	}
	if len(currency) != 3 {
		return ErrPackagePriceInvalid
	}

	interval := strings.ToLower(strings.TrimSpace(input.Interval))
	switch interval {
	case "":
		interval = PackageIntervalOneTime
	case PackageIntervalOneTime, PackageIntervalMonth, PackageIntervalYear:
	default:
		return ErrPackageIntervalInvalid
	}

	features := make([]string, 0, len(input.Features))
	for _, feature := range input.Features {
		if trimmed := strings.TrimSpace(feature); trimmed != "" {
			features = append(features, trimmed)
		}
	}

	item.Name = name
	item.Slug = slug
	item.Description = strings.TrimSpace(input.Description)
	item.PriceCents = input.PriceCents
	item.Currency = currency
	item.Interval = interval
	item.Features = features
	item.Highlighted = input.Highlighted
	item.SortOrder = input.SortOrder
	item.Active = input.Active
	return nil
}

func (s *PackageService) ensureUniqueSlug(slug string, excludeID uint) error {
	var count int64
	query := s.db.Unscoped().Model(&db.Package{}).Where("slug = ?", slug)
	if excludeID != 0 {
		query = query.Where("id <> ?", excludeID)
	}
	if err := query.Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return ErrPackageSlugExists
	}
	return nil
}
