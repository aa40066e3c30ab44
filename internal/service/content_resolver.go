package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/showcase/internal/db"
	"github.com/showcase/internal/locale"
	"gorm.io/gorm"
)

const (
	PageSourceDatabase = "database"
	PageSourceStatic   = "static"
)

var (
	ErrPageNotFound = errors.New("page not found")
	ErrSlugRequired = errors.New("slug is required")
)

// PageMeta carries the SEO fields derived from a resolved page.
type PageMeta struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Keywords    string `json:"keywords"`
}

// ResolvedPage is the outcome of a successful resolution, independent of its source.
type ResolvedPage struct {
	Slug      string            `json:"slug"`
	Language  string            `json:"language"`
	Title     string            `json:"title"`
	Meta      PageMeta          `json:"meta"`
	Blocks    []db.ContentBlock `json:"blocks"`
	Source    string            `json:"source"`
	UpdatedAt *time.Time        `json:"updatedAt,omitempty"`
}

// PageStrategy is one tier of the resolver chain.
type PageStrategy interface {
	Name() string
	TryResolve(ctx context.Context, slug, language string) (*ResolvedPage, bool)
}

// ContentResolver tries each strategy in order until one yields a page.
type ContentResolver struct {
	strategies []PageStrategy
}

// NewContentResolver builds a resolver from an ordered list of strategies.
func NewContentResolver(strategies ...PageStrategy) *ContentResolver {
	return &ContentResolver{strategies: strategies}
}

// NewDefaultContentResolver chains the database lookup with the built-in static table.
func NewDefaultContentResolver(gdb *gorm.DB) *ContentResolver {
	return NewContentResolver(NewDatabasePageStrategy(gdb), NewStaticPageStrategy(nil))
}

// Resolve returns the first page produced by the chain or ErrPageNotFound.
func (r *ContentResolver) Resolve(ctx context.Context, slug, language string) (*ResolvedPage, error) {
	slug = strings.ToLower(strings.TrimSpace(slug))
	if slug == "" {
		return nil, ErrSlugRequired
	}
	language = locale.NormalizeLanguage(language)
	if language == "" {
		language = locale.DefaultLanguage
	}

	for _, strategy := range r.strategies {
		if page, ok := strategy.TryResolve(ctx, slug, language); ok {
			return page, nil
		}
	}

	log.Debug().Str("slug", slug).Str("language", language).Msg("page not found in any source")
	return nil, ErrPageNotFound
}

// DatabasePageStrategy looks up active pages, preferring the requested language.
type DatabasePageStrategy struct {
	db *gorm.DB
}

// NewDatabasePageStrategy returns a strategy backed by the pages table.
func NewDatabasePageStrategy(gdb *gorm.DB) *DatabasePageStrategy {
	return &DatabasePageStrategy{db: gdb}
}

// Name implements PageStrategy.
func (s *DatabasePageStrategy) Name() string { return PageSourceDatabase }

// TryResolve implements PageStrategy. Storage errors are logged and reported as a miss.
func (s *DatabasePageStrategy) TryResolve(ctx context.Context, slug, language string) (*ResolvedPage, bool) {
	if s.db == nil {
		return nil, false
	}

	languages := []string{language}
	if language != locale.DefaultLanguage {
		languages = append(languages, locale.DefaultLanguage)
	}

	for _, lang := range languages {
		var page db.Page
		err := s.db.WithContext(ctx).
			Where("slug = ? AND language = ? AND active = ?", slug, lang, true).
			First(&page).Error
		if err == nil {
			return resolvedFromRecord(page), true
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Warn().Err(err).Str("slug", slug).Msg("page lookup failed, trying next source")
			return nil, false
		}
	}
	return nil, false
}

func resolvedFromRecord(page db.Page) *ResolvedPage {
	updatedAt := page.UpdatedAt
	blocks := []db.ContentBlock(page.Blocks)
	if blocks == nil {
		blocks = []db.ContentBlock{}
	}
	return &ResolvedPage{
		Slug:      page.Slug,
		Language:  page.Language,
		Title:     page.Title,
		Meta:      deriveMeta(page.Title, page.MetaTitle, page.MetaDescription, page.MetaKeywords, blocks),
		Blocks:    blocks,
		Source:    PageSourceDatabase,
		UpdatedAt: &updatedAt,
	}
}

func deriveMeta(title, metaTitle, description, keywords string, blocks []db.ContentBlock) PageMeta {
	meta := PageMeta{
		Title:       strings.TrimSpace(metaTitle),
		Description: strings.TrimSpace(description),
		Keywords:    strings.TrimSpace(keywords),
	}
	if meta.Title == "" {
		meta.Title = strings.TrimSpace(title)
	}
	if meta.Description == "" {
		for _, block := range blocks {
			if block.Type == db.BlockParagraph && strings.TrimSpace(block.Text) != "" {
				meta.Description = summarizeText(block.Text, 160)
				break
			}
		}
	}
	return meta
}

// StaticPageStrategy serves a fixed in-memory table of marketing pages.
type StaticPageStrategy struct {
	pages map[string]ResolvedPage
}

// NewStaticPageStrategy uses the given table, or the built-in one when pages is nil.
func NewStaticPageStrategy(pages map[string]ResolvedPage) *StaticPageStrategy {
	if pages == nil {
		pages = defaultStaticPages()
	}
	return &StaticPageStrategy{pages: pages}
}

// Name implements PageStrategy.
func (s *StaticPageStrategy) Name() string { return PageSourceStatic }

// TryResolve implements PageStrategy.
func (s *StaticPageStrategy) TryResolve(_ context.Context, slug, _ string) (*ResolvedPage, bool) {
	page, ok := s.pages[slug]
	if !ok {
		return nil, false
	}
	page.Slug = slug
	page.Source = PageSourceStatic
	if page.Language == "" {
		page.Language = locale.DefaultLanguage
	}
	page.Blocks = append([]db.ContentBlock(nil), page.Blocks...)
	page.Meta = deriveMeta(page.Title, page.Meta.Title, page.Meta.Description, page.Meta.Keywords, page.Blocks)
	return &page, true
}

// Slugs lists the slugs served by the static table.
func (s *StaticPageStrategy) Slugs() []string {
	slugs := make([]string, 0, len(s.pages))
	for slug := range s.pages {
		slugs = append(slugs, slug)
	}
	return slugs
}

func defaultStaticPages() map[string]ResolvedPage {
	return map[string]ResolvedPage{
		"home": {
			Title: "Websites that work as hard as you do",
			Meta: PageMeta{
				Description: "Design, development and marketing for growing businesses.",
				Keywords:    "web design, development, marketing",
			},
			Blocks: []db.ContentBlock{
				{Type: db.BlockHeading, Level: 1, Text: "Websites that work as hard as you do"},
				{Type: db.BlockParagraph, Text: "We design, build and grow websites for small and mid-sized businesses."},
			},
		},
		"about": {
			Title: "About us",
			Meta: PageMeta{
				Description: "A small studio focused on fast, accessible websites.",
				Keywords:    "about, studio, team",
			},
			Blocks: []db.ContentBlock{
				{Type: db.BlockHeading, Level: 1, Text: "About us"},
				{Type: db.BlockParagraph, Text: "We are a small studio focused on fast, accessible websites."},
			},
		},
		"services": {
			Title: "Services",
			Meta: PageMeta{
				Description: "Web design, development, SEO and ongoing care plans.",
				Keywords:    "services, web design, seo, hosting",
			},
			Blocks: []db.ContentBlock{
				{Type: db.BlockHeading, Level: 1, Text: "Services"},
				{Type: db.BlockList, Items: []string{"Web design", "Development", "SEO", "Care plans"}},
			},
		},
		"contact": {
			Title: "Contact",
			Meta: PageMeta{
				Description: "Tell us about your project or book a call.",
				Keywords:    "contact, quote, appointment",
			},
			Blocks: []db.ContentBlock{
				{Type: db.BlockHeading, Level: 1, Text: "Contact"},
				{Type: db.BlockParagraph, Text: "Tell us about your project or book a call."},
			},
		},
		"privacy": {
			Title: "Privacy policy",
			Meta: PageMeta{
				Description: "How we collect and use personal data.",
				Keywords:    "privacy, gdpr",
			},
			Blocks: []db.ContentBlock{
				{Type: db.BlockHeading, Level: 1, Text: "Privacy policy"},
				{Type: db.BlockParagraph, Text: "We only collect the data needed to answer your enquiries."},
			},
		},
	}
}
