package db

import (
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestEnsureUserCreatesAdminOnce(t *testing.T) {
	gdb, err := gorm.Open(sqlite.Open("file:ensure-user?mode=memory&cache=shared"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := gdb.AutoMigrate(&User{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	created, err := EnsureUser(gdb, " admin ", "secret")
	if err != nil {
		t.Fatalf("EnsureUser returned error: %v", err)
	}
	if !created {
		t.Fatal("expected first call to create the user")
	}

	created, err = EnsureUser(gdb, "admin", "other")
	if err != nil {
		t.Fatalf("EnsureUser returned error: %v", err)
	}
	if created {
		t.Fatal("expected second call to keep the existing user")
	}

	var user User
	if err := gdb.Where("username = ?", "admin").First(&user).Error; err != nil {
		t.Fatalf("failed to load user: %v", err)
	}
	if !user.IsAdmin() {
		t.Fatalf("expected admin role, got %q", user.Role)
	}
	if user.Password == "secret" {
		t.Fatal("password should be hashed")
	}
}

func TestEnsureUserSkipsBlankCredentials(t *testing.T) {
	created, err := EnsureUser(nil, "", "")
	if err != nil || created {
		t.Fatalf("expected no-op, got created=%v err=%v", created, err)
	}
}

func TestSplitTagsDeduplicates(t *testing.T) {
	got := SplitTags(" Go, go ,, Design ,SEO")
	want := []string{"Go", "Design", "SEO"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}
