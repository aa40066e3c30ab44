package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/showcase/internal/service"
)

// GetAvailability 合并本地预约与外部日历，返回当天已占用的时段。
func (a *API) GetAvailability(c *gin.Context) {
	result, err := a.availability.Availability(c.Request.Context(), c.Query("date"))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrDateRequired):
			respondError(c, http.StatusBadRequest, "Date parameter is required")
		case errors.Is(err, service.ErrDateInvalid):
			respondError(c, http.StatusBadRequest, "Date must be in YYYY-MM-DD format")
		default:
			log.Error().Stack().Err(err).Str("component", "availability").Str("date", c.Query("date")).Msg("availability lookup failed")
			respondError(c, http.StatusInternalServerError, "Failed to fetch availability")
		}
		return
	}

	booked := result.BookedTimes
	if booked == nil {
		booked = []string{}
	}

	c.JSON(http.StatusOK, gin.H{
		"date":        result.Date,
		"bookedTimes": booked,
		"sources":     result.Sources,
		"success":     true,
	})
}

// CreateAppointment 提交预约请求。
func (a *API) CreateAppointment(c *gin.Context) {
	var payload service.BookingInput
	if !bindJSON(c, &payload, "预约信息格式不正确") {
		return
	}

	reservation, err := a.appointments.Book(c.Request.Context(), payload)
	if err != nil {
		handleAppointmentError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "预约已提交，我们会尽快与您确认",
		"reservation": gin.H{
			"id":     reservation.ID,
			"date":   reservation.Date,
			"time":   reservation.Time,
			"status": reservation.Status,
		},
	})
}

// ListAppointments 后台按日期区间与状态筛选预约。
func (a *API) ListAppointments(c *gin.Context) {
	reservations, err := a.appointments.List(c.Query("from"), c.Query("to"), c.Query("status"))
	if err != nil {
		handleAppointmentError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reservations": reservations})
}

type appointmentStatusRequest struct {
	Status string `json:"status"`
}

func (a *API) UpdateAppointmentStatus(c *gin.Context) {
	id, ok := requireID(c, "无效的预约ID")
	if !ok {
		return
	}
	var payload appointmentStatusRequest
	if !bindJSON(c, &payload, "请提供预约状态") {
		return
	}

	reservation, err := a.appointments.UpdateStatus(id, payload.Status)
	if err != nil {
		handleAppointmentError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "预约状态已更新", "reservation": reservation})
}

func handleAppointmentError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrBookingNameRequired):
		respondError(c, http.StatusBadRequest, "请填写姓名")
	case errors.Is(err, service.ErrEmailInvalid):
		respondError(c, http.StatusBadRequest, "邮箱格式不正确")
	case errors.Is(err, service.ErrDateRequired):
		respondError(c, http.StatusBadRequest, "请选择日期")
	case errors.Is(err, service.ErrDateInvalid):
		respondError(c, http.StatusBadRequest, "日期格式应为 YYYY-MM-DD")
	case errors.Is(err, service.ErrBookingTimeInvalid):
		respondError(c, http.StatusBadRequest, "时间格式应为 HH:MM")
	case errors.Is(err, service.ErrBookingOutsideHours):
		respondError(c, http.StatusBadRequest, "所选时间不在可预约时段内")
	case errors.Is(err, service.ErrBookingInPast):
		respondError(c, http.StatusBadRequest, "不能预约过去的时间")
	case errors.Is(err, service.ErrSlotTaken):
		respondError(c, http.StatusConflict, "该时段已被预约")
	case errors.Is(err, service.ErrReservationNotFound):
		respondError(c, http.StatusNotFound, "预约不存在")
	case errors.Is(err, service.ErrReservationStatusInvalid):
		respondError(c, http.StatusBadRequest, "预约状态不正确")
	default:
		log.Error().Stack().Err(err).Str("component", "appointments").Msg("appointment request failed")
		respondError(c, http.StatusInternalServerError, "处理预约失败，请稍后再试")
	}
}
