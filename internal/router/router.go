package router

import (
	"net/http"
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/showcase/internal/config"
	"github.com/showcase/internal/handler"
	"github.com/showcase/internal/logging"
)

const sessionName = "showcase_session"

// SetupRouter 配置 Gin 引擎和路由
func SetupRouter(api *handler.API, cfg config.AppConfig) *gin.Engine {
	r := gin.New()
	r.Use(logging.GinMiddleware(), gin.Recovery())

	// 配置会话中间件
	store := cookie.NewStore([]byte(cfg.SessionSecret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   7 * 24 * 60 * 60,
		HttpOnly: true,
		Secure:   strings.HasPrefix(cfg.SiteBaseURL, "https://"),
		SameSite: http.SameSiteLaxMode,
	})
	r.Use(sessions.Sessions(sessionName, store))
	r.Use(api.IPFilter())

	// 静态文件服务
	if cfg.UploadDir != "" && cfg.UploadURLPath != "" {
		r.Static(cfg.UploadURLPath, cfg.UploadDir)
	}

	r.GET("/healthz", api.HealthCheck)
	r.GET("/pages/:slug", api.ShowPage)

	public := r.Group("/api")
	{
		public.GET("/site", api.GetSiteInfo)

		public.GET("/pages/:slug", api.GetPage)
		public.GET("/pages/:slug/meta", api.GetPageMeta)

		public.GET("/appointments/availability", api.GetAvailability)
		public.POST("/appointments", api.CreateAppointment)

		public.GET("/blog", api.ListBlogPosts)
		public.GET("/blog/categories", api.ListBlogCategories)
		public.GET("/blog/tags", api.ListBlogTags)
		public.GET("/blog/posts/:slug", api.GetBlogPost)

		public.GET("/demos", api.ListDemos)
		public.GET("/packages", api.ListPackages)
		public.GET("/popups", api.ListActivePopups)
		public.GET("/menus/:menu", api.GetMenu)

		public.POST("/contact", api.SubmitContact)
		public.POST("/quote", api.SubmitQuote)
		public.POST("/newsletter/subscribe", api.Subscribe)
		public.GET("/newsletter/unsubscribe", api.Unsubscribe)

		public.POST("/track", api.Track)
	}

	// 后台管理路由
	admin := r.Group("/api/admin")
	{
		admin.POST("/login", api.Login)
		admin.POST("/logout", api.Logout)

		// 需要认证的后台路由
		auth := admin.Group("")
		auth.Use(api.AuthRequired())
		{
			auth.GET("/me", api.CurrentUser)
			auth.POST("/2fa/setup", api.SetupTwoFactor)
			auth.POST("/2fa/verify", api.VerifyTwoFactor)
			auth.POST("/2fa/disable", api.DisableTwoFactor)

			auth.GET("/pages", api.ListPages)
			auth.GET("/pages/:id", api.GetAdminPage)
			auth.POST("/pages", api.CreatePage)
			auth.PUT("/pages/:id", api.UpdatePage)
			auth.DELETE("/pages/:id", api.DeletePage)

			auth.GET("/posts", api.ListAdminPosts)
			auth.GET("/posts/:id", api.GetAdminPost)
			auth.POST("/posts", api.CreatePost)
			auth.PUT("/posts/:id", api.UpdatePost)
			auth.DELETE("/posts/:id", api.DeletePost)

			auth.GET("/demos", api.ListAdminDemos)
			auth.POST("/demos", api.CreateDemo)
			auth.PUT("/demos/:id", api.UpdateDemo)
			auth.DELETE("/demos/:id", api.DeleteDemo)

			auth.GET("/packages", api.ListAdminPackages)
			auth.POST("/packages", api.CreatePackage)
			auth.PUT("/packages/:id", api.UpdatePackage)
			auth.DELETE("/packages/:id", api.DeletePackage)

			auth.GET("/popups", api.ListAdminPopups)
			auth.POST("/popups", api.CreatePopup)
			auth.PUT("/popups/:id", api.UpdatePopup)
			auth.DELETE("/popups/:id", api.DeletePopup)

			auth.GET("/menus", api.ListMenuItems)
			auth.POST("/menus", api.CreateMenuItem)
			auth.PUT("/menus/reorder", api.ReorderMenuItems)
			auth.PUT("/menus/:id", api.UpdateMenuItem)
			auth.DELETE("/menus/:id", api.DeleteMenuItem)

			auth.GET("/appointments", api.ListAppointments)
			auth.PUT("/appointments/:id/status", api.UpdateAppointmentStatus)

			auth.GET("/messages", api.ListMessages)
			auth.GET("/messages/:id", api.GetMessage)
			auth.PUT("/messages/:id/read", api.MarkMessageRead)
			auth.DELETE("/messages/:id", api.DeleteMessage)

			auth.GET("/subscribers", api.ListSubscribers)
			auth.DELETE("/subscribers/:id", api.DeleteSubscriber)

			auth.GET("/notifications", api.ListNotifications)
			auth.GET("/notifications/unread-count", api.UnreadNotificationCount)
			auth.PUT("/notifications/read-all", api.MarkAllNotificationsRead)
			auth.PUT("/notifications/:id/read", api.MarkNotificationRead)
			auth.DELETE("/notifications/:id", api.DeleteNotification)

			auth.GET("/analytics", api.AnalyticsOverview)

			auth.POST("/uploads", api.UploadImage)
			auth.GET("/images/search", api.SearchImages)

			// 仅管理员
			restricted := auth.Group("")
			restricted.Use(api.AdminOnly())
			{
				restricted.GET("/settings", api.GetSystemSettings)
				restricted.PUT("/settings", api.UpdateSystemSettings)

				restricted.GET("/backups", api.ListBackups)
				restricted.POST("/backups", api.CreateBackup)
				restricted.GET("/backups/:id/download", api.DownloadBackup)
				restricted.DELETE("/backups/:id", api.DeleteBackup)

				restricted.GET("/security/logs", api.ListSecurityLogs)
				restricted.GET("/security/rules", api.ListIPRules)
				restricted.POST("/security/rules", api.CreateIPRule)
				restricted.DELETE("/security/rules/:id", api.DeleteIPRule)
			}
		}
	}

	return r
}
