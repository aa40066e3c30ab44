package service

import (
	"context"
	"errors"
	"testing"

	"github.com/showcase/internal/db"
	"gorm.io/datatypes"
)

type countingStrategy struct {
	name  string
	page  *ResolvedPage
	calls int
}

func (s *countingStrategy) Name() string { return s.name }

func (s *countingStrategy) TryResolve(context.Context, string, string) (*ResolvedPage, bool) {
	s.calls++
	return s.page, s.page != nil
}

func TestContentResolverTriesStrategiesInOrder(t *testing.T) {
	first := &countingStrategy{name: "first"}
	second := &countingStrategy{name: "second", page: &ResolvedPage{Title: "from second"}}
	third := &countingStrategy{name: "third", page: &ResolvedPage{Title: "from third"}}

	resolver := NewContentResolver(first, second, third)
	page, err := resolver.Resolve(context.Background(), "pricing", "en")
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if page.Title != "from second" {
		t.Fatalf("expected second strategy to win, got %q", page.Title)
	}
	if first.calls != 1 || second.calls != 1 || third.calls != 0 {
		t.Fatalf("unexpected call counts: %d %d %d", first.calls, second.calls, third.calls)
	}
}

func TestContentResolverRejectsEmptySlug(t *testing.T) {
	strategy := &countingStrategy{name: "never"}
	_, err := NewContentResolver(strategy).Resolve(context.Background(), "  ", "en")
	if !errors.Is(err, ErrSlugRequired) {
		t.Fatalf("expected ErrSlugRequired, got %v", err)
	}
	if strategy.calls != 0 {
		t.Fatal("strategies should not run for an empty slug")
	}
}

func TestResolverPrefersDatabaseOverStaticTable(t *testing.T) {
	gdb := setupServiceTestDB(t)
	if err := gdb.Create(&db.Page{
		Slug:     "about",
		Language: "en",
		Title:    "About the studio",
		Blocks:   datatypes.JSONSlice[db.ContentBlock]{{Type: db.BlockParagraph, Text: "Database copy."}},
		Active:   true,
	}).Error; err != nil {
		t.Fatalf("failed to seed page: %v", err)
	}

	page, err := NewDefaultContentResolver(gdb).Resolve(context.Background(), "about", "en")
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if page.Source != PageSourceDatabase || page.Title != "About the studio" {
		t.Fatalf("expected database page, got %+v", page)
	}
	if page.Meta.Description != "Database copy." {
		t.Fatalf("expected description derived from first paragraph, got %q", page.Meta.Description)
	}
}

func TestResolverSkipsInactivePagesAndFallsBack(t *testing.T) {
	gdb := setupServiceTestDB(t)
	if err := gdb.Create(&db.Page{Slug: "about", Language: "en", Title: "Retired", Active: false}).Error; err != nil {
		t.Fatalf("failed to seed page: %v", err)
	}

	page, err := NewDefaultContentResolver(gdb).Resolve(context.Background(), "about", "en")
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if page.Source != PageSourceStatic {
		t.Fatalf("expected static fallback, got %s", page.Source)
	}
	if page.Title != page.Meta.Title {
		t.Fatalf("meta title %q should match body title %q", page.Meta.Title, page.Title)
	}
}

func TestResolverFallsBackToDefaultLanguage(t *testing.T) {
	gdb := setupServiceTestDB(t)
	if err := gdb.Create(&db.Page{Slug: "pricing", Language: "en", Title: "Pricing", Active: true}).Error; err != nil {
		t.Fatalf("failed to seed page: %v", err)
	}

	page, err := NewDefaultContentResolver(gdb).Resolve(context.Background(), "pricing", "zh")
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if page.Language != "en" {
		t.Fatalf("expected english fallback, got %s", page.Language)
	}
}

func TestResolverFallsBackWhenDatabaseUnavailable(t *testing.T) {
	gdb := setupServiceTestDB(t)
	sqlDB, err := gdb.DB()
	if err != nil {
		t.Fatalf("failed to get sql db: %v", err)
	}
	sqlDB.Close()

	page, err := NewDefaultContentResolver(gdb).Resolve(context.Background(), "services", "en")
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if page.Source != PageSourceStatic {
		t.Fatalf("expected static page, got %s", page.Source)
	}

	if _, err := NewDefaultContentResolver(gdb).Resolve(context.Background(), "missing", "en"); !errors.Is(err, ErrPageNotFound) {
		t.Fatalf("expected ErrPageNotFound, got %v", err)
	}
}

func TestStaticStrategyReturnsCopies(t *testing.T) {
	strategy := NewStaticPageStrategy(nil)
	page, ok := strategy.TryResolve(context.Background(), "home", "en")
	if !ok {
		t.Fatal("expected home in static table")
	}
	page.Blocks[0].Text = "mutated"

	again, _ := strategy.TryResolve(context.Background(), "home", "en")
	if again.Blocks[0].Text == "mutated" {
		t.Fatal("static table should not be mutated through a resolved page")
	}
	if len(strategy.Slugs()) != 5 {
		t.Fatalf("expected 5 static slugs, got %d", len(strategy.Slugs()))
	}
}
