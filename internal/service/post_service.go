package service

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/showcase/internal/cache"
	"github.com/showcase/internal/db"
	"gorm.io/gorm"
)

var (
	ErrPostNotFound      = errors.New("post not found")
	ErrPostTitleMissing  = errors.New("post title is required")
	ErrPostSlugExists    = errors.New("post slug already exists")
	ErrPostStatusInvalid = errors.New("post status is invalid")
)

const (
	cacheKeyCategories = "categories"
	cacheKeyTags       = "tags"
)

// PostService wraps post related database operations.
type PostService struct {
	db    *gorm.DB
	terms *cache.TTL[[]TermCount]
	now   func() time.Time
}

// PostFilter describes filters for listing posts.
type PostFilter struct {
	Search   string
	Status   string
	Category string
	Tag      string
	Page     int
	PerPage  int
}

// PostListResult aggregates paginated list data and counters.
type PostListResult struct {
	Posts          []db.Post
	Total          int64
	PublishedCount int64
	DraftCount     int64
	TotalPages     int
	Page           int
	PerPage        int
}

// PostInput represents fields accepted when creating or updating a post.
type PostInput struct {
	Slug        string     `json:"slug"`
	Title       string     `json:"title"`
	Summary     string     `json:"summary"`
	Content     string     `json:"content"`
	CoverURL    string     `json:"coverUrl"`
	Category    string     `json:"category"`
	Tags        []string   `json:"tags"`
	Status      string     `json:"status"`
	PublishedAt *time.Time `json:"publishedAt"`
}

// TermCount 是分类或标签及其已发布文章数。
type TermCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// NewPostService creates a PostService instance; category and tag lists are cached for ttl.
func NewPostService(gdb *gorm.DB, ttl time.Duration) *PostService {
	return &PostService{db: gdb, terms: cache.New[[]TermCount](ttl), now: time.Now}
}

// ListAll returns all posts ordered by created time descending.
func (s *PostService) ListAll() ([]db.Post, error) {
	var posts []db.Post
	if err := s.db.Order("created_at desc").Find(&posts).Error; err != nil {
		return nil, err
	}
	return posts, nil
}

// Get returns a post by id regardless of status.
func (s *PostService) Get(id uint) (*db.Post, error) {
	var post db.Post
	if err := s.db.First(&post, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPostNotFound
		}
		return nil, err
	}
	return &post, nil
}

// GetPublishedBySlug returns a published post for the public site.
func (s *PostService) GetPublishedBySlug(slug string) (*db.Post, error) {
	slug = strings.ToLower(strings.TrimSpace(slug))
	if slug == "" {
		return nil, ErrPostNotFound
	}

	var post db.Post
	if err := s.db.Where("slug = ? AND status = ?", slug, db.PostStatusPublished).First(&post).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPostNotFound
		}
		return nil, err
	}
	return &post, nil
}

// Create stores a new post.
func (s *PostService) Create(input PostInput) (*db.Post, error) {
	post := &db.Post{}
	if err := s.apply(post, input); err != nil {
		return nil, err
	}
	if err := s.ensureUniqueSlug(post.Slug, 0); err != nil {
		return nil, err
	}
	if err := s.db.Create(post).Error; err != nil {
		return nil, err
	}
	s.invalidate()
	return post, nil
}

// Update modifies an existing post.
func (s *PostService) Update(id uint, input PostInput) (*db.Post, error) {
	post, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if err := s.apply(post, input); err != nil {
		return nil, err
	}
	if err := s.ensureUniqueSlug(post.Slug, post.ID); err != nil {
		return nil, err
	}
	if err := s.db.Save(post).Error; err != nil {
		return nil, err
	}
	s.invalidate()
	return post, nil
}

// Delete removes a post.
func (s *PostService) Delete(id uint) error {
	result := s.db.Delete(&db.Post{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrPostNotFound
	}
	s.invalidate()
	return nil
}

// List provides paginated posts with aggregated counters based on filters.
func (s *PostService) List(filter PostFilter) (*PostListResult, error) {
	result := &PostListResult{Page: normalizePage(filter.Page), PerPage: normalizePerPage(filter.PerPage, 10)}

	modelQuery := s.applyFilters(s.db.Model(&db.Post{}), filter, true)
	if err := modelQuery.Count(&result.Total).Error; err != nil {
		return nil, err
	}

	orderBy := "posts.created_at desc"
	if strings.EqualFold(filter.Status, db.PostStatusPublished) {
		orderBy = "posts.published_at desc, posts.id desc"
	}

	var posts []db.Post
	dataQuery := s.applyFilters(s.db.Model(&db.Post{}), filter, true)
	if err := dataQuery.Order(orderBy).
		Limit(result.PerPage).
		Offset((result.Page - 1) * result.PerPage).
		Find(&posts).Error; err != nil {
		return nil, err
	}

	filterWithoutStatus := filter
	filterWithoutStatus.Status = ""

	publishedCounter := s.applyFilters(s.db.Model(&db.Post{}), filterWithoutStatus, false)
	if err := publishedCounter.Where("posts.status = ?", db.PostStatusPublished).Count(&result.PublishedCount).Error; err != nil {
		return nil, err
	}

	draftCounter := s.applyFilters(s.db.Model(&db.Post{}), filterWithoutStatus, false)
	if err := draftCounter.Where("posts.status = ?", db.PostStatusDraft).Count(&result.DraftCount).Error; err != nil {
		return nil, err
	}

	result.TotalPages = calculateTotalPages(result.Total, result.PerPage)
	result.Posts = posts
	return result, nil
}

// Categories returns categories of published posts, cached.
func (s *PostService) Categories() ([]TermCount, error) {
	return s.terms.GetOrCompute(cacheKeyCategories, func() ([]TermCount, error) {
		var rows []TermCount
		if err := s.db.Model(&db.Post{}).
			Select("category AS name, COUNT(*) AS count").
			Where("status = ? AND category <> ''", db.PostStatusPublished).
			Group("category").
			Order("count desc, name asc").
			Scan(&rows).Error; err != nil {
			return nil, fmt.Errorf("load categories: %w", err)
		}
		return rows, nil
	})
}

// Tags returns tags of published posts with their counts, cached.
func (s *PostService) Tags() ([]TermCount, error) {
	return s.terms.GetOrCompute(cacheKeyTags, func() ([]TermCount, error) {
		var raw []string
		if err := s.db.Model(&db.Post{}).
			Where("status = ? AND tags <> ''", db.PostStatusPublished).
			Order("id asc").
			Pluck("tags", &raw).Error; err != nil {
			return nil, fmt.Errorf("load tags: %w", err)
		}

		counts := make(map[string]*TermCount)
		for _, tags := range raw {
			for _, tag := range db.SplitTags(tags) {
				key := strings.ToLower(tag)
				if existing, ok := counts[key]; ok {
					existing.Count++
					continue
				}
				counts[key] = &TermCount{Name: tag, Count: 1}
			}
		}

		result := make([]TermCount, 0, len(counts))
		for _, term := range counts {
			result = append(result, *term)
		}
		sort.Slice(result, func(i, j int) bool {
			if result[i].Count != result[j].Count {
				return result[i].Count > result[j].Count
			}
			return result[i].Name < result[j].Name
		})
		return result, nil
	})
}

func (s *PostService) invalidate() {
	s.terms.Invalidate(cacheKeyCategories, cacheKeyTags)
}

func (s *PostService) apply(post *db.Post, input PostInput) error {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return ErrPostTitleMissing
	}
	slug, err := slugOrTitle(input.Slug, title)
	if err != nil {
		return err
	}

	status := strings.ToLower(strings.TrimSpace(input.Status))
	switch status {
	case "":
		status = db.PostStatusDraft
	case db.PostStatusDraft, db.PostStatusPublished:
	default:
		return ErrPostStatusInvalid
	}

	content := strings.TrimSpace(input.Content)
	summary := strings.TrimSpace(input.Summary)
	if summary == "" {
		summary = summarizeText(content, 160)
	}

	post.Slug = slug
	post.Title = title
	post.Summary = summary
	post.Content = content
	post.CoverURL = strings.TrimSpace(input.CoverURL)
	post.Category = strings.TrimSpace(input.Category)
	post.Tags = strings.Join(db.SplitTags(strings.Join(input.Tags, ",")), ",")
	post.Status = status
	post.ReadingTime = calculateReadingTime(content)

	switch {
	case status == db.PostStatusPublished && input.PublishedAt != nil:
		publishedAt := input.PublishedAt.UTC()
		post.PublishedAt = &publishedAt
	case status == db.PostStatusPublished && post.PublishedAt == nil:
		now := s.now().UTC()
		post.PublishedAt = &now
	case status == db.PostStatusDraft:
		post.PublishedAt = nil
	}

	return nil
}

func (s *PostService) ensureUniqueSlug(slug string, excludeID uint) error {
	var count int64
	query := s.db.Unscoped().Model(&db.Post{}).Where("slug = ?", slug)
	if excludeID != 0 {
		query = query.Where("id <> ?", excludeID)
	}
	if err := query.Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return ErrPostSlugExists
	}
	return nil
}

func (s *PostService) applyFilters(query *gorm.DB, filter PostFilter, includeStatus bool) *gorm.DB {
	if search := strings.TrimSpace(filter.Search); search != "" {
		like := "%" + search + "%"
		query = query.Where("(posts.title LIKE ? OR posts.content LIKE ? OR posts.summary LIKE ?)", like, like, like)
	}

	if includeStatus && filter.Status != "" {
		query = query.Where("posts.status = ?", strings.ToLower(filter.Status))
	}

	if category := strings.TrimSpace(filter.Category); category != "" {
		query = query.Where("LOWER(posts.category) = ?", strings.ToLower(category))
	}

	if tag := strings.TrimSpace(filter.Tag); tag != "" {
		query = query.Where("LOWER(',' || posts.tags || ',') LIKE ?", "%,"+strings.ToLower(tag)+",%")
	}

	return query
}

func calculateReadingTime(content string) int {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return 0
	}

	runes := []rune(trimmed)
	minutes := len(runes) / 400
	if len(runes)%400 != 0 {
		minutes++
	}
	if minutes < 1 {
		minutes = 1
	}
	return minutes
}
