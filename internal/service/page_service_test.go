package service

import (
	"errors"
	"testing"

	"github.com/showcase/internal/db"
)

func TestPageServiceCreateValidatesInput(t *testing.T) {
	svc := NewPageService(setupServiceTestDB(t))

	if _, err := svc.Create(PageInput{Slug: "about"}); !errors.Is(err, ErrPageTitleMissing) {
		t.Fatalf("expected ErrPageTitleMissing, got %v", err)
	}
	if _, err := svc.Create(PageInput{Title: "About", Blocks: []db.ContentBlock{{Type: "video"}}}); !errors.Is(err, ErrPageBlockInvalid) {
		t.Fatalf("expected ErrPageBlockInvalid, got %v", err)
	}
}

func TestPageServiceCreateDerivesSlugAndRejectsDuplicates(t *testing.T) {
	svc := NewPageService(setupServiceTestDB(t))

	page, err := svc.Create(PageInput{
		Title:  "Our Work",
		Active: true,
		Blocks: []db.ContentBlock{
			{Type: "Heading", Text: "Our work", Level: 9},
			{Type: "list", Items: []string{" one ", ""}},
		},
	})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if page.Slug != "our-work" || page.Language != "en" {
		t.Fatalf("unexpected slug/language: %s/%s", page.Slug, page.Language)
	}
	if page.Blocks[0].Level != 2 || len(page.Blocks[1].Items) != 1 {
		t.Fatalf("blocks were not normalized: %+v", page.Blocks)
	}

	if _, err := svc.Create(PageInput{Slug: "our-work", Title: "Again"}); !errors.Is(err, ErrPageSlugExists) {
		t.Fatalf("expected ErrPageSlugExists, got %v", err)
	}
	if _, err := svc.Create(PageInput{Slug: "our-work", Language: "zh", Title: "作品"}); err != nil {
		t.Fatalf("same slug in another language should be allowed: %v", err)
	}
}

func TestPageServiceUpdateAndRetire(t *testing.T) {
	svc := NewPageService(setupServiceTestDB(t))
	page, err := svc.Create(PageInput{Slug: "faq", Title: "FAQ", Active: true})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	updated, err := svc.Update(page.ID, PageInput{Slug: "faq", Title: "Questions", MetaDescription: " Answers ", Active: true})
	if err != nil {
		t.Fatalf("Update returned error: %v", err)
	}
	if updated.Title != "Questions" || updated.MetaDescription != "Answers" {
		t.Fatalf("unexpected update result: %+v", updated)
	}

	retired, err := svc.SetActive(page.ID, false)
	if err != nil {
		t.Fatalf("SetActive returned error: %v", err)
	}
	if retired.Active {
		t.Fatal("expected page to be retired")
	}

	reloaded, err := svc.GetBySlug("faq", "en")
	if err != nil {
		t.Fatalf("GetBySlug returned error: %v", err)
	}
	if reloaded.Active {
		t.Fatal("expected retired flag to persist")
	}

	if err := svc.Delete(page.ID); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	if _, err := svc.Get(page.ID); !errors.Is(err, ErrPageNotFound) {
		t.Fatalf("expected ErrPageNotFound after delete, got %v", err)
	}
}

func TestPageServiceDeleteFreesSlug(t *testing.T) {
	gdb := setupServiceTestDB(t)
	svc := NewPageService(gdb)

	page, err := svc.Create(PageInput{Slug: "promo", Title: "Promo", Active: true})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if err := svc.Delete(page.ID); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}

	var remaining int64
	if err := gdb.Unscoped().Model(&db.Page{}).Where("slug = ?", "promo").Count(&remaining).Error; err != nil {
		t.Fatalf("count pages: %v", err)
	}
	if remaining != 0 {
		t.Fatalf("expected page row to be removed, %d left", remaining)
	}

	if _, err := svc.Create(PageInput{Slug: "promo", Title: "Promo again", Active: true}); err != nil {
		t.Fatalf("recreate after delete failed: %v", err)
	}
}
