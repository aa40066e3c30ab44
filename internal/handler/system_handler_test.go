package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/showcase/internal/db"
)

func TestHealthCheck(t *testing.T) {
	api, _ := setupTestDB(t)

	w := performJSON(api.HealthCheck, http.MethodGet, "/healthz", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	if body := decodeBody(t, w); body["status"] != "ok" {
		t.Fatalf("unexpected health payload: %v", body)
	}
}

func TestUpdateSystemSettingsAndSiteInfo(t *testing.T) {
	api, _ := setupTestDB(t)

	w := performJSON(api.UpdateSystemSettings, http.MethodPut, "/api/admin/settings", map[string]any{
		"notifyEmail": "broken",
	}, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 for invalid email, got %d", w.Code)
	}

	w = performJSON(api.UpdateSystemSettings, http.MethodPut, "/api/admin/settings", map[string]any{
		"bookingOpen":  "18:00",
		"bookingClose": "09:00",
	}, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 for inverted hours, got %d", w.Code)
	}

	w = performJSON(api.UpdateSystemSettings, http.MethodPut, "/api/admin/settings", map[string]any{
		"siteName":     "Acme Studio",
		"bookingOpen":  "10:00",
		"bookingClose": "12:00",
		"slotMinutes":  60,
	}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	w = performJSON(api.GetSiteInfo, http.MethodGet, "/api/site", nil, nil)
	var info struct {
		SiteName     string   `json:"siteName"`
		BookingSlots []string `json:"bookingSlots"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &info); err != nil {
		t.Fatalf("failed to decode site info: %v", err)
	}
	if info.SiteName != "Acme Studio" {
		t.Fatalf("unexpected site name: %s", info.SiteName)
	}
	if len(info.BookingSlots) != 2 || info.BookingSlots[0] != "10:00" || info.BookingSlots[1] != "11:00" {
		t.Fatalf("unexpected booking slots: %v", info.BookingSlots)
	}
}

func TestBackupLifecycle(t *testing.T) {
	api, gdb := setupTestDB(t)

	w := performJSON(api.CreateBackup, http.MethodPost, "/api/admin/backups", nil, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", w.Code, w.Body.String())
	}

	var backup db.Backup
	if err := gdb.First(&backup).Error; err != nil {
		t.Fatalf("failed to load backup record: %v", err)
	}
	if backup.Status != db.BackupCompleted {
		t.Fatalf("expected completed backup, got %s", backup.Status)
	}

	w = httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/admin/backups/1/download", nil)
	c.Params = idParam(backup.ID)
	api.DownloadBackup(c)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	var dump map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &dump); err != nil {
		t.Fatalf("expected json dump: %v", err)
	}
	if _, ok := dump["tables"]; !ok {
		t.Fatalf("expected tables key in dump")
	}

	_, path, err := api.backups.FilePath(backup.ID)
	if err != nil {
		t.Fatalf("failed to resolve backup path: %v", err)
	}
	w = performJSON(api.DeleteBackup, http.MethodDelete, "/api/admin/backups/1", nil, idParam(backup.ID))
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expected backup file to be removed, stat err: %v", err)
	}

	w = performJSON(api.DeleteBackup, http.MethodDelete, "/api/admin/backups/1", nil, idParam(backup.ID))
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected status 404 after deletion, got %d", w.Code)
	}
}
