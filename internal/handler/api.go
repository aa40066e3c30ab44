package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/showcase/internal/config"
	"github.com/showcase/internal/service"
	"gorm.io/gorm"
)

// API bundles shared dependencies for HTTP handlers.
type API struct {
	db            *gorm.DB
	resolver      *service.ContentResolver
	pages         *service.PageService
	posts         *service.PostService
	demos         *service.DemoService
	packages      *service.PackageService
	popups        *service.PopupService
	menus         *service.MenuService
	availability  *service.AvailabilityService
	appointments  *service.AppointmentService
	contacts      *service.ContactService
	newsletter    *service.NewsletterService
	notifications *service.NotificationService
	analytics     analyticsProvider
	system        *service.SystemSettingService
	auth          *service.AuthService
	twoFactor     *service.TwoFactorService
	security      *service.SecurityService
	backups       *service.BackupService
	images        imageSearcher
	uploadDir     string
	uploadURL     string
}

const siteSettingsContextKey = "__site_settings"

// NewAPI constructs a handler set with shared services.
func NewAPI(gdb *gorm.DB, cfg config.AppConfig) *API {
	loc := cfg.Location()
	systemService := service.NewSystemSettingService(gdb)

	mailer := service.NewGomailMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.SMTPFrom)
	sms := service.NewTwilioSMSSender(cfg.SMSAccountSID, cfg.SMSAuthToken, cfg.SMSFrom)
	notifier := service.MultiNotifier{
		service.NewMailNotifier(mailer, systemService),
		service.NewSMSNotifier(sms, systemService),
	}
	notifications := service.NewNotificationService(gdb, notifier, mailer)

	calendar := service.NewGoogleCalendarClient(cfg.GoogleCalendarID, cfg.GoogleCalendarToken)
	availability := service.NewAvailabilityService(gdb, calendar, loc)

	security := service.NewSecurityService(gdb, cfg.CacheTTL)
	twoFactor := service.NewTwoFactorService(gdb, security, "")
	tokens := service.NewTokenService(cfg.JWTSecret, 0)

	return &API{
		db:            gdb,
		resolver:      service.NewDefaultContentResolver(gdb),
		pages:         service.NewPageService(gdb),
		posts:         service.NewPostService(gdb, cfg.CacheTTL),
		demos:         service.NewDemoService(gdb),
		packages:      service.NewPackageService(gdb, cfg.CacheTTL),
		popups:        service.NewPopupService(gdb, cfg.CacheTTL),
		menus:         service.NewMenuService(gdb, cfg.CacheTTL),
		availability:  availability,
		appointments:  service.NewAppointmentService(gdb, availability, systemService, notifications),
		contacts:      service.NewContactService(gdb, notifications),
		newsletter:    service.NewNewsletterService(gdb, notifications, cfg.SiteBaseURL),
		notifications: notifications,
		analytics:     service.NewAnalyticsService(gdb).WithLocation(loc),
		system:        systemService,
		auth:          service.NewAuthService(gdb, tokens, twoFactor, security),
		twoFactor:     twoFactor,
		security:      security,
		backups:       service.NewBackupService(gdb, service.NewJSONDumper(gdb), cfg.BackupDir),
		images:        service.NewUnsplashClient(cfg.UnsplashAccessKey),
		uploadDir:     cfg.UploadDir,
		uploadURL:     cfg.UploadURLPath,
	}
}

// DB exposes the underlying gorm instance for health checks and commands.
func (a *API) DB() *gorm.DB {
	return a.db
}

// Backups 暴露备份服务，供命令行复用。
func (a *API) Backups() *service.BackupService {
	return a.backups
}

// siteSettings 每个请求只读取一次系统设置。
func (a *API) siteSettings(c *gin.Context) service.SystemSettings {
	if cached, exists := c.Get(siteSettingsContextKey); exists {
		if settings, ok := cached.(service.SystemSettings); ok {
			return settings
		}
	}

	settings, err := a.system.GetSettings()
	if err != nil {
		c.Error(err)
	}

	c.Set(siteSettingsContextKey, settings)
	return settings
}
