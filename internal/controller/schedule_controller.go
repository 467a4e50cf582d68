package controller

import (
	"time"

	"github.com/gin-gonic/gin"

	"exam_prep_backend/internal/service"
	"exam_prep_backend/internal/util"
)

type ScheduleController struct {
	schedule *service.ScheduleService
}

func NewScheduleController(schedule *service.ScheduleService) *ScheduleController {
	return &ScheduleController{schedule: schedule}
}

// Events godoc
// @Summary Calendar feed of the caller's lessons, homework deadlines and holidays
// @Tags schedule
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response
// @Router /api/v1/schedule [get]
func (ctl *ScheduleController) Events(c *gin.Context) {
	claims, _ := util.GetUserFromContext(c)
	events, err := ctl.schedule.Events(claims.UserID, time.Now())
	if err != nil {
		util.Fail(c, err)
		return
	}
	util.Success(c, events)
}

// Holidays godoc
// @Summary All configured holidays
// @Tags schedule
// @Produce json
// @Success 200 {object} util.Response
// @Router /api/v1/schedule/holidays [get]
func (ctl *ScheduleController) Holidays(c *gin.Context) {
	holidays, err := ctl.schedule.Holidays()
	if err != nil {
		util.Fail(c, err)
		return
	}
	util.Success(c, holidays)
}
