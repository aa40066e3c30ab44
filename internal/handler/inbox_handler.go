package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/showcase/internal/db"
	"github.com/showcase/internal/service"
)

// SubmitContact 处理联系表单。
func (a *API) SubmitContact(c *gin.Context) {
	a.submitMessage(c, db.MessageKindContact)
}

// SubmitQuote 处理报价表单。
func (a *API) SubmitQuote(c *gin.Context) {
	a.submitMessage(c, db.MessageKindQuote)
}

func (a *API) submitMessage(c *gin.Context, kind string) {
	var payload service.ContactInput
	if !bindJSON(c, &payload, "表单内容格式不正确") {
		return
	}

	message, err := a.contacts.Submit(c.Request.Context(), kind, payload)
	if err != nil {
		handleContactError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "提交成功，我们会尽快回复",
		"id":      message.ID,
	})
}

func (a *API) ListMessages(c *gin.Context) {
	result, err := a.contacts.List(
		c.Query("kind"),
		parsePositiveInt(c.DefaultQuery("page", "1"), 1),
		parsePositiveInt(c.DefaultQuery("perPage", "20"), 20),
	)
	if err != nil {
		handleContactError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"messages":   result.Messages,
		"total":      result.Total,
		"unread":     result.Unread,
		"page":       result.Page,
		"totalPages": result.TotalPages,
	})
}

func (a *API) GetMessage(c *gin.Context) {
	id, ok := requireID(c, "无效的留言ID")
	if !ok {
		return
	}
	message, err := a.contacts.Get(id)
	if err != nil {
		handleContactError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": message})
}

func (a *API) MarkMessageRead(c *gin.Context) {
	id, ok := requireID(c, "无效的留言ID")
	if !ok {
		return
	}
	if err := a.contacts.MarkRead(id); err != nil {
		handleContactError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (a *API) DeleteMessage(c *gin.Context) {
	id, ok := requireID(c, "无效的留言ID")
	if !ok {
		return
	}
	if err := a.contacts.Delete(id); err != nil {
		handleContactError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func handleContactError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrContactNameRequired):
		respondError(c, http.StatusBadRequest, "请填写姓名")
	case errors.Is(err, service.ErrEmailInvalid):
		respondError(c, http.StatusBadRequest, "邮箱格式不正确")
	case errors.Is(err, service.ErrContactMessageRequired):
		respondError(c, http.StatusBadRequest, "请填写留言内容")
	case errors.Is(err, service.ErrContactMessageTooLong):
		respondError(c, http.StatusBadRequest, "留言内容过长")
	case errors.Is(err, service.ErrContactKindInvalid):
		respondError(c, http.StatusBadRequest, "留言类型不正确")
	case errors.Is(err, service.ErrContactNotFound):
		respondError(c, http.StatusNotFound, "留言不存在")
	default:
		log.Error().Stack().Err(err).Str("component", "contact").Msg("contact request failed")
		respondError(c, http.StatusInternalServerError, "提交失败，请稍后重试")
	}
}

type subscribeRequest struct {
	Email string `json:"email"`
}

// Subscribe 订阅通讯，重复订阅返回 200。
func (a *API) Subscribe(c *gin.Context) {
	var payload subscribeRequest
	if !bindJSON(c, &payload, "请填写邮箱") {
		return
	}

	subscriber, changed, err := a.newsletter.Subscribe(c.Request.Context(), payload.Email)
	if err != nil {
		if errors.Is(err, service.ErrEmailInvalid) {
			respondError(c, http.StatusBadRequest, "邮箱格式不正确")
			return
		}
		log.Error().Stack().Err(err).Str("component", "newsletter").Msg("subscribe failed")
		respondError(c, http.StatusInternalServerError, "订阅失败，请稍后重试")
		return
	}

	status := http.StatusOK
	if changed {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{"success": true, "email": subscriber.Email, "subscribed": true})
}

// Unsubscribe 通过邮件中的链接退订。
func (a *API) Unsubscribe(c *gin.Context) {
	subscriber, err := a.newsletter.Unsubscribe(c.Request.Context(), c.Query("token"))
	if err != nil {
		if errors.Is(err, service.ErrTokenInvalid) {
			respondError(c, http.StatusBadRequest, "退订链接无效")
			return
		}
		respondError(c, http.StatusInternalServerError, "退订失败，请稍后重试")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "email": subscriber.Email, "subscribed": false})
}

func (a *API) ListSubscribers(c *gin.Context) {
	result, err := a.newsletter.List(
		strings.TrimSpace(c.Query("status")),
		parsePositiveInt(c.DefaultQuery("page", "1"), 1),
		parsePositiveInt(c.DefaultQuery("perPage", "50"), 50),
	)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "获取订阅列表失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"subscribers": result.Subscribers,
		"total":       result.Total,
		"active":      result.Active,
		"page":        result.Page,
		"totalPages":  result.TotalPages,
	})
}

func (a *API) DeleteSubscriber(c *gin.Context) {
	id, ok := requireID(c, "无效的订阅ID")
	if !ok {
		return
	}
	if err := a.newsletter.Delete(id); err != nil {
		if errors.Is(err, service.ErrSubscriberNotFound) {
			respondError(c, http.StatusNotFound, "订阅不存在")
			return
		}
		respondError(c, http.StatusInternalServerError, "删除订阅失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (a *API) ListNotifications(c *gin.Context) {
	result, err := a.notifications.List(
		parsePositiveInt(c.DefaultQuery("page", "1"), 1),
		parsePositiveInt(c.DefaultQuery("perPage", "20"), 20),
		parseBoolQuery(c, "unread"),
	)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "获取通知失败")
		return
	}
	c.JSON(http.StatusOK, result)
}

func (a *API) UnreadNotificationCount(c *gin.Context) {
	count, err := a.notifications.UnreadCount()
	if err != nil {
		respondError(c, http.StatusInternalServerError, "获取通知失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{"unread": count})
}

func (a *API) MarkNotificationRead(c *gin.Context) {
	id, ok := requireID(c, "无效的通知ID")
	if !ok {
		return
	}
	if err := a.notifications.MarkRead(id); err != nil {
		if errors.Is(err, service.ErrNotificationNotFound) {
			respondError(c, http.StatusNotFound, "通知不存在")
			return
		}
		respondError(c, http.StatusInternalServerError, "更新通知失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (a *API) MarkAllNotificationsRead(c *gin.Context) {
	updated, err := a.notifications.MarkAllRead()
	if err != nil {
		respondError(c, http.StatusInternalServerError, "更新通知失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "updated": updated})
}

func (a *API) DeleteNotification(c *gin.Context) {
	id, ok := requireID(c, "无效的通知ID")
	if !ok {
		return
	}
	if err := a.notifications.Delete(id); err != nil {
		if errors.Is(err, service.ErrNotificationNotFound) {
			respondError(c, http.StatusNotFound, "通知不存在")
			return
		}
		respondError(c, http.StatusInternalServerError, "删除通知失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
