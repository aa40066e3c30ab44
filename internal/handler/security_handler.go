package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/showcase/internal/service"
)

// IPFilter 拦截命中 block 规则的客户端；规则读取失败时放行。
func (a *API) IPFilter() gin.HandlerFunc {
	return func(c *gin.Context) {
		blocked, err := a.security.IsBlocked(c.ClientIP())
		if err != nil {
			log.Warn().Err(err).Str("component", "security").Msg("ip rules unavailable")
			c.Next()
			return
		}
		if blocked {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "访问被拒绝"})
			return
		}
		c.Next()
	}
}

func (a *API) ListSecurityLogs(c *gin.Context) {
	result, err := a.security.ListLogs(
		c.Query("event"),
		parsePositiveInt(c.DefaultQuery("page", "1"), 1),
		parsePositiveInt(c.DefaultQuery("perPage", "50"), 50),
	)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "获取安全日志失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"logs":       result.Logs,
		"total":      result.Total,
		"page":       result.Page,
		"totalPages": result.TotalPages,
	})
}

func (a *API) ListIPRules(c *gin.Context) {
	rules, err := a.security.ListRules()
	if err != nil {
		respondError(c, http.StatusInternalServerError, "获取访问规则失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{"rules": rules})
}

type ipRuleRequest struct {
	CIDR   string `json:"cidr"`
	Action string `json:"action"`
	Note   string `json:"note"`
}

func (a *API) CreateIPRule(c *gin.Context) {
	var payload ipRuleRequest
	if !bindJSON(c, &payload, "请填写 IP 或网段") {
		return
	}

	rule, err := a.security.AddRule(payload.CIDR, payload.Action, payload.Note, currentUser(c).Username, c.ClientIP())
	if err != nil {
		switch {
		case errors.Is(err, service.ErrIPRuleInvalid):
			respondError(c, http.StatusBadRequest, "IP 或网段格式不正确")
		case errors.Is(err, service.ErrIPRuleAction):
			respondError(c, http.StatusBadRequest, "规则动作只能是 block 或 allow")
		case errors.Is(err, service.ErrIPRuleExists):
			respondError(c, http.StatusConflict, "该规则已存在")
		default:
			respondError(c, http.StatusInternalServerError, "保存访问规则失败")
		}
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "访问规则已添加", "rule": rule})
}

func (a *API) DeleteIPRule(c *gin.Context) {
	id, ok := requireID(c, "无效的规则ID")
	if !ok {
		return
	}
	if err := a.security.DeleteRule(id, currentUser(c).Username, c.ClientIP()); err != nil {
		if errors.Is(err, service.ErrIPRuleNotFound) {
			respondError(c, http.StatusNotFound, "访问规则不存在")
			return
		}
		respondError(c, http.StatusInternalServerError, "删除访问规则失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "访问规则已删除"})
}
