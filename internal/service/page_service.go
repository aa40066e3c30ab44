package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/showcase/internal/db"
	"github.com/showcase/internal/locale"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var (
	ErrPageTitleMissing = errors.New("page title is required")
	ErrPageSlugExists   = errors.New("page slug already exists for language")
	ErrPageBlockInvalid = errors.New("page content block is invalid")
)

// PageService provides admin access to page records.
type PageService struct {
	db *gorm.DB
}

// PageInput describes the editable fields of a page.
type PageInput struct {
	Slug            string
	Language        string
	Title           string
	MetaTitle       string
	MetaDescription string
	MetaKeywords    string
	Blocks          []db.ContentBlock
	Active          bool
}

// NewPageService returns a new PageService instance.
func NewPageService(gdb *gorm.DB) *PageService {
	return &PageService{db: gdb}
}

// List returns all pages, including retired ones, ordered by slug.
func (s *PageService) List() ([]db.Page, error) {
	var pages []db.Page
	if err := s.db.Order("slug asc").Order("language asc").Find(&pages).Error; err != nil {
		return nil, fmt.Errorf("list pages: %w", err)
	}
	return pages, nil
}

// Get fetches a page by id.
func (s *PageService) Get(id uint) (*db.Page, error) {
	var page db.Page
	if err := s.db.First(&page, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPageNotFound
		}
		return nil, err
	}
	return &page, nil
}

// GetBySlug fetches a page for a given slug and language regardless of its active flag.
func (s *PageService) GetBySlug(slug, language string) (*db.Page, error) {
	var page db.Page
	if err := s.db.Where("slug = ? AND language = ?", slug, normalizePageLanguage(language)).First(&page).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPageNotFound
		}
		return nil, err
	}
	return &page, nil
}

// Create inserts a page after validating slug, title and blocks.
func (s *PageService) Create(input PageInput) (*db.Page, error) {
	page, err := s.pageFromInput(input)
	if err != nil {
		return nil, err
	}
	if err := s.ensureUniqueSlug(page.Slug, page.Language, 0); err != nil {
		return nil, err
	}

	if err := s.db.Create(page).Error; err != nil {
		return nil, fmt.Errorf("create page: %w", err)
	}
	return page, nil
}

// Update replaces the editable fields of an existing page.
func (s *PageService) Update(id uint, input PageInput) (*db.Page, error) {
	existing, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	next, err := s.pageFromInput(input)
	if err != nil {
		return nil, err
	}
	if err := s.ensureUniqueSlug(next.Slug, next.Language, id); err != nil {
		return nil, err
	}

	existing.Slug = next.Slug
	existing.Language = next.Language
	existing.Title = next.Title
	existing.MetaTitle = next.MetaTitle
	existing.MetaDescription = next.MetaDescription
	existing.MetaKeywords = next.MetaKeywords
	existing.Blocks = next.Blocks
	existing.Active = next.Active

	if err := s.db.Save(existing).Error; err != nil {
		return nil, fmt.Errorf("update page: %w", err)
	}
	return existing, nil
}

// SetActive toggles the active flag; retired pages stay in the table.
func (s *PageService) SetActive(id uint, active bool) (*db.Page, error) {
	page, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if err := s.db.Model(page).Update("active", active).Error; err != nil {
		return nil, fmt.Errorf("set page active: %w", err)
	}
	page.Active = active
	return page, nil
}

// Delete 物理删除页面，释放 slug 供重新创建。
func (s *PageService) Delete(id uint) error {
	page, err := s.Get(id)
	if err != nil {
		return err
	}
	return s.db.Unscoped().Delete(page).Error
}

func (s *PageService) pageFromInput(input PageInput) (*db.Page, error) {
	slug, err := slugOrTitle(input.Slug, input.Title)
	if err != nil {
		return nil, err
	}
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, ErrPageTitleMissing
	}
	blocks, err := normalizeBlocks(input.Blocks)
	if err != nil {
		return nil, err
	}

	return &db.Page{
		Slug:            slug,
		Language:        normalizePageLanguage(input.Language),
		Title:           title,
		MetaTitle:       strings.TrimSpace(input.MetaTitle),
		MetaDescription: strings.TrimSpace(input.MetaDescription),
		MetaKeywords:    strings.TrimSpace(input.MetaKeywords),
		Blocks:          datatypes.JSONSlice[db.ContentBlock](blocks),
		Active:          input.Active,
	}, nil
}

func (s *PageService) ensureUniqueSlug(slug, language string, excludeID uint) error {
	var count int64
	query := s.db.Model(&db.Page{}).Where("slug = ? AND language = ?", slug, language)
	if excludeID != 0 {
		query = query.Where("id <> ?", excludeID)
	}
	if err := query.Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return ErrPageSlugExists
	}
	return nil
}

func normalizePageLanguage(language string) string {
	if lang := locale.NormalizeLanguage(language); lang != "" {
		return lang
	}
	return locale.DefaultLanguage
}

func normalizeBlocks(blocks []db.ContentBlock) ([]db.ContentBlock, error) {
	result := make([]db.ContentBlock, 0, len(blocks))
	for i, block := range blocks {
		block.Type = strings.ToLower(strings.TrimSpace(block.Type))
		block.Text = strings.TrimSpace(block.Text)
		switch block.Type {
		case db.BlockHeading:
			if block.Level < 1 || block.Level > 6 {
				block.Level = 2
			}
			if block.Text == "" {
				return nil, fmt.Errorf("%w: block %d heading text is empty", ErrPageBlockInvalid, i)
			}
		case db.BlockParagraph, db.BlockQuote:
			if block.Text == "" {
				return nil, fmt.Errorf("%w: block %d text is empty", ErrPageBlockInvalid, i)
			}
		case db.BlockList:
			items := make([]string, 0, len(block.Items))
			for _, item := range block.Items {
				if trimmed := strings.TrimSpace(item); trimmed != "" {
					items = append(items, trimmed)
				}
			}
			if len(items) == 0 {
				return nil, fmt.Errorf("%w: block %d list is empty", ErrPageBlockInvalid, i)
			}
			block.Items = items
		case db.BlockImage:
			block.URL = strings.TrimSpace(block.URL)
			if block.URL == "" {
				return nil, fmt.Errorf("%w: block %d image url is empty", ErrPageBlockInvalid, i)
			}
		default:
			return nil, fmt.Errorf("%w: block %d has unknown type %q", ErrPageBlockInvalid, i, block.Type)
		}
		result = append(result, block)
	}
	return result, nil
}
