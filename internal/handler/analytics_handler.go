package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/showcase/internal/service"
)

const (
	visitorCookieName   = "sc_visitor_id"
	visitorCookieMaxAge = 365 * 24 * 60 * 60
)

type trackRequest struct {
	Path     string `json:"path"`
	Referrer string `json:"referrer"`
}

// Track 记录一次页面浏览，访客 ID 保存在 Cookie 中。
func (a *API) Track(c *gin.Context) {
	var payload trackRequest
	if !bindJSON(c, &payload, "缺少页面路径") {
		return
	}
	if strings.TrimSpace(payload.Path) == "" {
		respondError(c, http.StatusBadRequest, "缺少页面路径")
		return
	}

	referrer := payload.Referrer
	if referrer == "" {
		referrer = c.Request.Referer()
	}

	visitorID := ensureVisitorID(c)
	stats, err := a.analytics.RecordPathView(payload.Path, visitorID, referrer, time.Now().UTC())
	if err != nil {
		if errors.Is(err, service.ErrTrackInvalid) {
			respondError(c, http.StatusBadRequest, "页面路径不正确")
			return
		}
		log.Warn().Err(err).Str("component", "analytics").Str("path", payload.Path).Msg("record page view failed")
		respondError(c, http.StatusInternalServerError, "记录访问失败")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":        true,
		"path":           stats.Path,
		"pageViews":      stats.PageViews,
		"uniqueVisitors": stats.UniqueVisitors,
	})
}

// AnalyticsOverview 后台流量概览，?days 控制趋势天数，?limit 控制热门路径数量。
func (a *API) AnalyticsOverview(c *gin.Context) {
	limit := parsePositiveInt(c.DefaultQuery("limit", "5"), 5)
	days := parsePositiveInt(c.DefaultQuery("days", "7"), 7)

	overview, err := a.analytics.Overview(limit, days, time.Now())
	if err != nil {
		respondError(c, http.StatusInternalServerError, "获取统计数据失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{"overview": overview})
}

func ensureVisitorID(c *gin.Context) string {
	if id, err := c.Cookie(visitorCookieName); err == nil && strings.TrimSpace(id) != "" {
		return id
	}

	visitorID := uuid.NewString()
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     visitorCookieName,
		Value:    visitorID,
		Path:     "/",
		HttpOnly: true,
		Secure:   c.Request.TLS != nil,
		MaxAge:   visitorCookieMaxAge,
		Expires:  time.Now().Add(365 * 24 * time.Hour),
		SameSite: http.SameSiteLaxMode,
	})

	return visitorID
}
