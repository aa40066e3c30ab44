package main

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/showcase/internal/config"
	"github.com/showcase/internal/db"
	"github.com/showcase/internal/service"
	"github.com/urfave/cli/v2"
	"gorm.io/gorm"
)

// seedCmd 写入演示数据，已有数据的表会被跳过。
func seedCmd(cfg *config.AppConfig) *cli.Command {
	cmd := cli.Command{
		Name:  "seed",
		Usage: "populate an empty database with demo content",
	}
	cmd.Flags = databaseFlags(cfg)

	cmd.Action = func(c *cli.Context) error {
		if err := openDatabase(*cfg); err != nil {
			return err
		}
		steps := []struct {
			name  string
			model interface{}
			run   func(*gorm.DB) (int, error)
		}{
			{name: "posts", model: &db.Post{}, run: seedPosts},
			{name: "demos", model: &db.Demo{}, run: seedDemos},
			{name: "packages", model: &db.Package{}, run: seedPackages},
			{name: "menus", model: &db.MenuItem{}, run: seedMenus},
			{name: "popups", model: &db.Popup{}, run: seedPopups},
		}

		for _, step := range steps {
			var count int64
			if err := db.DB.Model(step.model).Count(&count).Error; err != nil {
				return err
			}
			if count > 0 {
				log.Info().Str("table", step.name).Int64("rows", count).Msg("already populated, skipping")
				continue
			}
			created, err := step.run(db.DB)
			if err != nil {
				return fmt.Errorf("seed %s: %w", step.name, err)
			}
			log.Info().Str("table", step.name).Int("created", created).Msg("seeded")
		}
		return nil
	}
	return &cmd
}

func seedPosts(gdb *gorm.DB) (int, error) {
	svc := service.NewPostService(gdb, time.Minute)
	inputs := []service.PostInput{
		{
			Title:    "Five signs your website needs a refresh",
			Content:  "## Slow pages\nVisitors leave after three seconds.\n\n## Hard to update\nIf every change needs a developer, the site falls behind.",
			Category: "Guides",
			Tags:     []string{"design", "performance"},
			Status:   db.PostStatusPublished,
		},
		{
			Title:    "How we run a discovery workshop",
			Content:  "Every project starts with a two hour workshop to agree on goals, audience and scope.",
			Category: "Process",
			Tags:     []string{"process"},
			Status:   db.PostStatusPublished,
		},
		{
			Title:   "Local SEO checklist",
			Content: "Draft notes for the upcoming checklist.",
			Tags:    []string{"seo"},
		},
	}
	for _, input := range inputs {
		if _, err := svc.Create(input); err != nil {
			return 0, err
		}
	}
	return len(inputs), nil
}

func seedDemos(gdb *gorm.DB) (int, error) {
	svc := service.NewDemoService(gdb)
	inputs := []service.DemoInput{
		{Title: "Coffee roaster shop", Description: "Online store with subscriptions.", DemoURL: "https://example.com/demos/coffee", Category: "E-commerce", Active: true, SortOrder: 1},
		{Title: "Dental clinic", Description: "Booking-first landing page.", DemoURL: "https://example.com/demos/dental", Category: "Healthcare", Active: true, SortOrder: 2},
		{Title: "Architecture portfolio", Description: "Image heavy portfolio with case studies.", DemoURL: "https://example.com/demos/studio", Category: "Portfolio", Active: true, SortOrder: 3},
	}
	for _, input := range inputs {
		if _, err := svc.Create(input); err != nil {
			return 0, err
		}
	}
	return len(inputs), nil
}

func seedPackages(gdb *gorm.DB) (int, error) {
	svc := service.NewPackageService(gdb, time.Minute)
	inputs := []service.PackageInput{
		{Name: "Starter", PriceCents: 99000, Currency: "USD", Interval: service.PackageIntervalOneTime, Features: []string{"5 pages", "Contact form", "Basic SEO"}, Active: true, SortOrder: 1},
		{Name: "Growth", PriceCents: 249000, Currency: "USD", Interval: service.PackageIntervalOneTime, Features: []string{"15 pages", "Blog", "Booking", "Analytics"}, Highlighted: true, Active: true, SortOrder: 2},
		{Name: "Care plan", PriceCents: 9900, Currency: "USD", Interval: service.PackageIntervalMonth, Features: []string{"Hosting", "Backups", "Monthly updates"}, Active: true, SortOrder: 3},
	}
	for _, input := range inputs {
		if _, err := svc.Create(input); err != nil {
			return 0, err
		}
	}
	return len(inputs), nil
}

func seedMenus(gdb *gorm.DB) (int, error) {
	svc := service.NewMenuService(gdb, time.Minute)
	inputs := []service.MenuItemInput{
		{Menu: service.MenuHeader, Label: "Services", URL: "/pages/services", SortOrder: 1, Active: true},
		{Menu: service.MenuHeader, Label: "Work", URL: "/demos", SortOrder: 2, Active: true},
		{Menu: service.MenuHeader, Label: "Pricing", URL: "/packages", SortOrder: 3, Active: true},
		{Menu: service.MenuHeader, Label: "Blog", URL: "/blog", SortOrder: 4, Active: true},
		{Menu: service.MenuFooter, Label: "Privacy", URL: "/pages/privacy", SortOrder: 1, Active: true},
		{Menu: service.MenuFooter, Label: "Contact", URL: "/pages/contact", SortOrder: 2, Active: true},
	}
	for _, input := range inputs {
		if _, err := svc.Create(input); err != nil {
			return 0, err
		}
	}
	return len(inputs), nil
}

func seedPopups(gdb *gorm.DB) (int, error) {
	svc := service.NewPopupService(gdb, time.Minute)
	_, err := svc.Create(service.PopupInput{
		Title:        "Free site audit",
		Body:         "Book a 30 minute call and get a written audit of your current website.",
		CTAText:      "Book a call",
		CTAURL:       "/pages/contact",
		Pages:        []string{"/", "/pages/services"},
		DelaySeconds: 10,
		Active:       true,
	})
	if err != nil {
		return 0, err
	}
	return 1, nil
}
