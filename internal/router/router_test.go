package router

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/showcase/internal/config"
	"github.com/showcase/internal/db"
	"github.com/showcase/internal/handler"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestRouter(t *testing.T) (*gin.Engine, config.AppConfig) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:router-%d?mode=memory&cache=shared", time.Now().UnixNano())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	if err := gdb.AutoMigrate(db.Models()...); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			sqlDB.Close()
		}
	})

	cfg := config.AppConfig{
		SessionSecret: "test-secret",
		JWTSecret:     "test-jwt",
		UploadDir:     t.TempDir(),
		UploadURLPath: "/static/uploads",
		BackupDir:     t.TempDir(),
		SiteBaseURL:   "http://localhost",
		SiteTimezone:  "UTC",
		CacheTTL:      time.Minute,
	}
	return SetupRouter(handler.NewAPI(gdb, cfg), cfg), cfg
}

func TestSetupRouterServesUploads(t *testing.T) {
	r, cfg := newTestRouter(t)

	fileName := "example.txt"
	fileContent := []byte("hello uploads")
	if err := os.WriteFile(filepath.Join(cfg.UploadDir, fileName), fileContent, 0o644); err != nil {
		t.Fatalf("failed to write test file: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/static/uploads/"+fileName, nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
	if rr.Body.String() != string(fileContent) {
		t.Fatalf("unexpected body, got %q", rr.Body.String())
	}
}

func TestSetupRouterPublicRoutes(t *testing.T) {
	r, _ := newTestRouter(t)

	tests := []struct {
		name   string
		method string
		target string
		status int
	}{
		{name: "health", method: http.MethodGet, target: "/healthz", status: http.StatusOK},
		{name: "html page", method: http.MethodGet, target: "/pages/home", status: http.StatusOK},
		{name: "page json", method: http.MethodGet, target: "/api/pages/about", status: http.StatusOK},
		{name: "page meta", method: http.MethodGet, target: "/api/pages/about/meta", status: http.StatusOK},
		{name: "missing page", method: http.MethodGet, target: "/api/pages/missing", status: http.StatusNotFound},
		{name: "availability without date", method: http.MethodGet, target: "/api/appointments/availability", status: http.StatusBadRequest},
		{name: "blog", method: http.MethodGet, target: "/api/blog", status: http.StatusOK},
		{name: "site", method: http.MethodGet, target: "/api/site", status: http.StatusOK},
		{name: "menu", method: http.MethodGet, target: "/api/menus/header", status: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			r.ServeHTTP(rr, httptest.NewRequest(tt.method, tt.target, nil))
			if rr.Code != tt.status {
				t.Fatalf("expected status %d, got %d: %s", tt.status, rr.Code, rr.Body.String())
			}
		})
	}
}

func TestSetupRouterProtectsAdminRoutes(t *testing.T) {
	r, _ := newTestRouter(t)

	for _, target := range []string{"/api/admin/me", "/api/admin/posts", "/api/admin/backups", "/api/admin/security/rules"} {
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, target, nil))
		if rr.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected status 401, got %d", target, rr.Code)
		}
	}

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/admin/login", strings.NewReader(`{"username":"nobody","password":"x"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected unknown user login to fail, got %d", rr.Code)
	}
}
