package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("LISTEN_ADDR", "")
	t.Setenv("DATABASE_DRIVER", "")
	t.Setenv("SMTP_PORT", "not-a-number")
	t.Setenv("CACHE_TTL", "-1s")

	cfg := Load()
	if cfg.ListenAddr != ":9090" {
		t.Fatalf("expected listen addr derived from PORT, got %q", cfg.ListenAddr)
	}
	if cfg.DatabaseDriver != "sqlite" {
		t.Fatalf("expected sqlite driver by default, got %q", cfg.DatabaseDriver)
	}
	if cfg.SMTPPort != 587 {
		t.Fatalf("expected smtp port fallback 587, got %d", cfg.SMTPPort)
	}
	if cfg.CacheTTL != 5*time.Minute {
		t.Fatalf("expected cache ttl fallback, got %s", cfg.CacheTTL)
	}
}

func TestLoadTrimsValues(t *testing.T) {
	t.Setenv("DATABASE_DRIVER", "  Postgres ")
	t.Setenv("DATABASE_URL", " postgres://localhost/showcase ")

	cfg := Load()
	if cfg.DatabaseDriver != "postgres" {
		t.Fatalf("expected lowercased driver, got %q", cfg.DatabaseDriver)
	}
	if got := cfg.DatabaseDSN(); got != "postgres://localhost/showcase" {
		t.Fatalf("unexpected dsn %q", got)
	}
}

func TestDatabaseDSNUsesPathForSQLite(t *testing.T) {
	cfg := AppConfig{DatabaseDriver: "sqlite", DatabasePath: "site.db", DatabaseURL: "postgres://ignored"}
	if got := cfg.DatabaseDSN(); got != "site.db" {
		t.Fatalf("expected sqlite path, got %q", got)
	}
}

func TestLocationFallsBackToUTC(t *testing.T) {
	if loc := (AppConfig{SiteTimezone: "Mars/Olympus"}).Location(); loc != time.UTC {
		t.Fatalf("expected UTC fallback, got %s", loc)
	}
	if loc := (AppConfig{SiteTimezone: "UTC"}).Location(); loc.String() != "UTC" {
		t.Fatalf("expected UTC, got %s", loc)
	}
}
