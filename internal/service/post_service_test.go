package service

import (
	"errors"
	"testing"
	"time"

	"github.com/showcase/internal/db"
)

func createTestPost(t *testing.T, svc *PostService, input PostInput) *db.Post {
	t.Helper()
	post, err := svc.Create(input)
	if err != nil {
		t.Fatalf("failed to create post %q: %v", input.Title, err)
	}
	return post
}

func TestPostServiceCreateNormalizesInput(t *testing.T) {
	svc := NewPostService(setupServiceTestDB(t), time.Minute)
	fixed := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	post := createTestPost(t, svc, PostInput{
		Title:    "Launching Our New Site",
		Content:  "# Hello\n\nThis is **markdown** content.",
		Category: " News ",
		Tags:     []string{"Launch", "launch", " web "},
		Status:   "Published",
	})

	if post.Slug != "launching-our-new-site" {
		t.Fatalf("unexpected slug %q", post.Slug)
	}
	if post.Tags != "Launch,web" || post.Category != "News" {
		t.Fatalf("unexpected taxonomy: tags=%q category=%q", post.Tags, post.Category)
	}
	if post.Summary == "" || post.ReadingTime != 1 {
		t.Fatalf("expected derived summary and reading time, got %q / %d", post.Summary, post.ReadingTime)
	}
	if post.PublishedAt == nil || !post.PublishedAt.Equal(fixed) {
		t.Fatalf("expected publish time to default to now, got %v", post.PublishedAt)
	}

	if _, err := svc.Create(PostInput{Title: "Launching our new site"}); !errors.Is(err, ErrPostSlugExists) {
		t.Fatalf("expected ErrPostSlugExists, got %v", err)
	}
	if _, err := svc.Create(PostInput{Title: "   "}); !errors.Is(err, ErrPostTitleMissing) {
		t.Fatalf("expected ErrPostTitleMissing, got %v", err)
	}
	if _, err := svc.Create(PostInput{Title: "x", Status: "scheduled"}); !errors.Is(err, ErrPostStatusInvalid) {
		t.Fatalf("expected ErrPostStatusInvalid, got %v", err)
	}
}

func TestPostServiceListFilters(t *testing.T) {
	svc := NewPostService(setupServiceTestDB(t), time.Minute)

	createTestPost(t, svc, PostInput{Title: "Go tips", Content: "gin and gorm", Category: "Engineering", Tags: []string{"go", "backend"}, Status: db.PostStatusPublished})
	createTestPost(t, svc, PostInput{Title: "Design notes", Content: "colors", Category: "Design", Tags: []string{"ui"}, Status: db.PostStatusPublished})
	createTestPost(t, svc, PostInput{Title: "Draft idea", Content: "go later", Category: "Engineering", Tags: []string{"go"}})

	published, err := svc.List(PostFilter{Status: db.PostStatusPublished})
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if published.Total != 2 || published.PublishedCount != 2 || published.DraftCount != 1 {
		t.Fatalf("unexpected counters: %+v", published)
	}

	byCategory, err := svc.List(PostFilter{Status: db.PostStatusPublished, Category: "engineering"})
	if err != nil {
		t.Fatalf("List by category returned error: %v", err)
	}
	if byCategory.Total != 1 || byCategory.Posts[0].Title != "Go tips" {
		t.Fatalf("unexpected category result: %+v", byCategory.Posts)
	}

	byTag, err := svc.List(PostFilter{Tag: "GO"})
	if err != nil {
		t.Fatalf("List by tag returned error: %v", err)
	}
	if byTag.Total != 2 {
		t.Fatalf("expected 2 posts tagged go, got %d", byTag.Total)
	}

	partial, err := svc.List(PostFilter{Tag: "back"})
	if err != nil {
		t.Fatalf("List by partial tag returned error: %v", err)
	}
	if partial.Total != 0 {
		t.Fatalf("tag filter should match whole tags only, got %d", partial.Total)
	}

	searched, err := svc.List(PostFilter{Search: "gorm", PerPage: 1})
	if err != nil {
		t.Fatalf("List with search returned error: %v", err)
	}
	if searched.Total != 1 || searched.TotalPages != 1 {
		t.Fatalf("unexpected search result: %+v", searched)
	}
}

func TestPostServiceTermsAreCachedUntilWrite(t *testing.T) {
	svc := NewPostService(setupServiceTestDB(t), time.Hour)

	first := createTestPost(t, svc, PostInput{Title: "One", Category: "News", Tags: []string{"a", "b"}, Status: db.PostStatusPublished})
	createTestPost(t, svc, PostInput{Title: "Two", Category: "News", Tags: []string{"A"}, Status: db.PostStatusPublished})

	categories, err := svc.Categories()
	if err != nil {
		t.Fatalf("Categories returned error: %v", err)
	}
	if len(categories) != 1 || categories[0].Name != "News" || categories[0].Count != 2 {
		t.Fatalf("unexpected categories: %+v", categories)
	}

	tags, err := svc.Tags()
	if err != nil {
		t.Fatalf("Tags returned error: %v", err)
	}
	if len(tags) != 2 || tags[0].Name != "a" || tags[0].Count != 2 {
		t.Fatalf("unexpected tags: %+v", tags)
	}

	// 绕过服务直接写库，缓存应保持旧值
	if err := svc.db.Model(&db.Post{}).Where("id = ?", first.ID).Update("category", "Changed").Error; err != nil {
		t.Fatalf("failed to update post: %v", err)
	}
	cached, _ := svc.Categories()
	if len(cached) != 1 || cached[0].Name != "News" {
		t.Fatalf("expected cached categories, got %+v", cached)
	}

	if err := svc.Delete(first.ID); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	fresh, _ := svc.Categories()
	if len(fresh) != 1 || fresh[0].Count != 1 {
		t.Fatalf("expected refreshed categories after write, got %+v", fresh)
	}
}

func TestPostServicePublishedLookup(t *testing.T) {
	svc := NewPostService(setupServiceTestDB(t), time.Minute)
	draft := createTestPost(t, svc, PostInput{Title: "Hidden"})

	if _, err := svc.GetPublishedBySlug("hidden"); !errors.Is(err, ErrPostNotFound) {
		t.Fatalf("draft should not be public, got %v", err)
	}

	if _, err := svc.Update(draft.ID, PostInput{Title: "Hidden", Status: db.PostStatusPublished}); err != nil {
		t.Fatalf("Update returned error: %v", err)
	}
	post, err := svc.GetPublishedBySlug(" HIDDEN ")
	if err != nil {
		t.Fatalf("GetPublishedBySlug returned error: %v", err)
	}
	if post.PublishedAt == nil {
		t.Fatal("expected published time to be set")
	}

	unpublished, err := svc.Update(draft.ID, PostInput{Title: "Hidden", Status: db.PostStatusDraft})
	if err != nil {
		t.Fatalf("Update returned error: %v", err)
	}
	if unpublished.PublishedAt != nil {
		t.Fatal("expected draft to clear published time")
	}
}
