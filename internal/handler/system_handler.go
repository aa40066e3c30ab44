package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/showcase/internal/service"
)

// HealthCheck 提供负载均衡与监控系统使用的健康检查端点。
func (a *API) HealthCheck(c *gin.Context) {
	sqlDB, err := a.db.DB()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"status":  "error",
			"message": "database handle unavailable",
		})
		return
	}

	if err := sqlDB.PingContext(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "error",
			"message": "database unreachable",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"database": "up",
	})
}

// GetSiteInfo 返回前台需要的站点信息与可预约时段。
func (a *API) GetSiteInfo(c *gin.Context) {
	settings := a.siteSettings(c)
	slots, err := settings.BookingSlots()
	if err != nil {
		slots = []string{}
	}
	c.JSON(http.StatusOK, gin.H{
		"siteName":     settings.SiteName,
		"description":  settings.SiteDescription,
		"keywords":     settings.SiteKeywords,
		"bookingSlots": slots,
	})
}

// GetSystemSettings 返回当前系统设置。
func (a *API) GetSystemSettings(c *gin.Context) {
	settings, err := a.system.GetSettings()
	if err != nil {
		respondError(c, http.StatusInternalServerError, "获取系统设置失败")
		return
	}

	c.JSON(http.StatusOK, gin.H{"settings": settings})
}

// UpdateSystemSettings 保存系统设置。
func (a *API) UpdateSystemSettings(c *gin.Context) {
	var payload service.SystemSettingsInput
	if !bindJSON(c, &payload, "请填写完整的系统设置") {
		return
	}

	settings, err := a.system.UpdateSettings(payload)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmailInvalid):
			respondError(c, http.StatusBadRequest, "通知邮箱格式不正确")
		case errors.Is(err, service.ErrBookingHoursInvalid):
			respondError(c, http.StatusBadRequest, "预约时段设置不正确")
		default:
			respondError(c, http.StatusInternalServerError, "保存系统设置失败")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":  "系统设置已保存",
		"settings": settings,
	})
}

// CreateBackup 同步执行一次数据导出。
func (a *API) CreateBackup(c *gin.Context) {
	backup, err := a.backups.Create(c.Request.Context())
	if err != nil {
		respondError(c, http.StatusInternalServerError, "备份失败")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "备份完成", "backup": backup})
}

func (a *API) ListBackups(c *gin.Context) {
	backups, err := a.backups.List()
	if err != nil {
		respondError(c, http.StatusInternalServerError, "获取备份列表失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{"backups": backups})
}

func (a *API) DownloadBackup(c *gin.Context) {
	id, ok := requireID(c, "无效的备份ID")
	if !ok {
		return
	}
	backup, path, err := a.backups.FilePath(id)
	if err != nil {
		handleBackupError(c, err)
		return
	}
	c.FileAttachment(path, backup.FileName)
}

func (a *API) DeleteBackup(c *gin.Context) {
	id, ok := requireID(c, "无效的备份ID")
	if !ok {
		return
	}
	if err := a.backups.Delete(id); err != nil {
		handleBackupError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "备份已删除"})
}

func handleBackupError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrBackupNotFound):
		respondError(c, http.StatusNotFound, "备份不存在")
	case errors.Is(err, service.ErrBackupNotReady):
		respondError(c, http.StatusConflict, "备份尚未完成")
	default:
		respondError(c, http.StatusInternalServerError, "操作备份失败")
	}
}
