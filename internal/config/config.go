package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// AppConfig 汇总运行服务所需的基础配置。
type AppConfig struct {
	ListenAddr     string
	Port           string
	DatabaseDriver string
	DatabasePath   string
	DatabaseURL    string
	SessionSecret  string
	JWTSecret      string
	GinMode        string
	UploadDir      string
	UploadURLPath  string
	BackupDir      string
	SiteBaseURL    string
	SiteTimezone   string
	CacheTTL       time.Duration

	AdminUserName string
	AdminPassword string

	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	SMTPFrom     string

	SMSAccountSID string
	SMSAuthToken  string
	SMSFrom       string

	GoogleCalendarID    string
	GoogleCalendarToken string

	UnsplashAccessKey string

	LogLevel  string
	LogFormat string
}

// Load 从环境变量读取应用配置，并为缺失项提供安全的默认值。
func Load() AppConfig {
	port := env("PORT", "8080")

	listenAddr := env("LISTEN_ADDR", "")
	if listenAddr == "" {
		listenAddr = fmt.Sprintf(":%s", port)
	}

	smtpPort, err := strconv.Atoi(env("SMTP_PORT", "587"))
	if err != nil || smtpPort <= 0 {
		smtpPort = 587
	}

	cacheTTL, err := time.ParseDuration(env("CACHE_TTL", "5m"))
	if err != nil || cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}

	return AppConfig{
		ListenAddr:     listenAddr,
		Port:           port,
		DatabaseDriver: strings.ToLower(env("DATABASE_DRIVER", "sqlite")),
		DatabasePath:   env("DATABASE_PATH", "showcase.db"),
		DatabaseURL:    env("DATABASE_URL", ""),
		SessionSecret:  env("SESSION_SECRET", "showcase-dev-secret"),
		JWTSecret:      env("JWT_SECRET", "showcase-dev-jwt-secret"),
		GinMode:        env("GIN_MODE", "release"),
		UploadDir:      env("UPLOAD_DIR", "web/static/uploads"),
		UploadURLPath:  env("UPLOAD_URL_PATH", "/static/uploads"),
		BackupDir:      env("BACKUP_DIR", "backups"),
		SiteBaseURL:    env("SITE_BASE_URL", "http://localhost:8080"),
		SiteTimezone:   env("SITE_TIMEZONE", "UTC"),
		CacheTTL:       cacheTTL,

		AdminUserName: env("ADMIN_USERNAME", ""),
		AdminPassword: env("ADMIN_PASSWORD", ""),

		SMTPHost:     env("SMTP_HOST", ""),
		SMTPPort:     smtpPort,
		SMTPUser:     env("SMTP_USER", ""),
		SMTPPassword: env("SMTP_PASSWORD", ""),
		SMTPFrom:     env("SMTP_FROM", ""),

		SMSAccountSID: env("SMS_ACCOUNT_SID", ""),
		SMSAuthToken:  env("SMS_AUTH_TOKEN", ""),
		SMSFrom:       env("SMS_FROM", ""),

		GoogleCalendarID:    env("GOOGLE_CALENDAR_ID", ""),
		GoogleCalendarToken: env("GOOGLE_CALENDAR_TOKEN", ""),

		UnsplashAccessKey: env("UNSPLASH_ACCESS_KEY", ""),

		LogLevel:  env("LOG_LEVEL", "info"),
		LogFormat: env("LOG_FORMAT", "auto"),
	}
}

// Location 解析站点时区，无法识别时回退到 UTC。
func (c AppConfig) Location() *time.Location {
	loc, err := time.LoadLocation(strings.TrimSpace(c.SiteTimezone))
	if err != nil {
		return time.UTC
	}
	return loc
}

// DatabaseDSN 根据驱动返回连接串。
func (c AppConfig) DatabaseDSN() string {
	if c.DatabaseDriver == "postgres" {
		return c.DatabaseURL
	}
	return c.DatabasePath
}

func env(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}
