package service

import (
	"errors"
	"testing"
	"time"
)

func TestPackageServiceActiveListIsCached(t *testing.T) {
	svc := NewPackageService(setupServiceTestDB(t), time.Hour)

	basic, err := svc.Create(PackageInput{Name: "Basic", PriceCents: 49900, Features: []string{" 5 pages ", ""}, SortOrder: 2, Active: true})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if basic.Currency != "USD" || basic.Interval != PackageIntervalOneTime || len(basic.Features) != 1 {
		t.Fatalf("unexpected defaults: %+v", basic)
	}
	if _, err := svc.Create(PackageInput{Name: "Pro", PriceCents: 9900, Interval: "Month", SortOrder: 1, Active: true, Highlighted: true}); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if _, err := svc.Create(PackageInput{Name: "Legacy", PriceCents: 100}); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	active, err := svc.ListActive()
	if err != nil {
		t.Fatalf("ListActive returned error: %v", err)
	}
	if len(active) != 2 || active[0].Name != "Pro" || active[1].Name != "Basic" {
		t.Fatalf("unexpected active packages: %+v", active)
	}

	// 直接写库不会刷新缓存
	if err := svc.db.Model(basic).Update("active", false).Error; err != nil {
		t.Fatalf("failed to update package: %v", err)
	}
	cached, _ := svc.ListActive()
	if len(cached) != 2 {
		t.Fatalf("expected cached list, got %d items", len(cached))
	}

	if _, err := svc.Update(basic.ID, PackageInput{Name: "Basic", PriceCents: 49900, Active: false}); err != nil {
		t.Fatalf("Update returned error: %v", err)
	}
	fresh, _ := svc.ListActive()
	if len(fresh) != 1 || fresh[0].Name != "Pro" {
		t.Fatalf("expected refreshed list after update, got %+v", fresh)
	}
}

func TestPackageServiceValidation(t *testing.T) {
	svc := NewPackageService(setupServiceTestDB(t), time.Minute)

	cases := []struct {
		input PackageInput
		want  error
	}{
		{PackageInput{}, ErrPackageNameMissing},
		{PackageInput{Name: "A", PriceCents: -1}, ErrPackagePriceInvalid},
		{PackageInput{Name: "A", Currency: "EURO"}, ErrPackagePriceInvalid},
		{PackageInput{Name: "A", Interval: "weekly"}, ErrPackageIntervalInvalid},
	}
	for _, tc := range cases {
		if _, err := svc.Create(tc.input); !errors.Is(err, tc.want) {
			t.Fatalf("Create(%+v) expected %v, got %v", tc.input, tc.want, err)
		}
	}

	if _, err := svc.Create(PackageInput{Name: "Starter"}); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if _, err := svc.Create(PackageInput{Name: "Starter"}); !errors.Is(err, ErrPackageSlugExists) {
		t.Fatalf("expected ErrPackageSlugExists, got %v", err)
	}
	if err := svc.Delete(9999); !errors.Is(err, ErrPackageNotFound) {
		t.Fatalf("expected ErrPackageNotFound, got %v", err)
	}
}
