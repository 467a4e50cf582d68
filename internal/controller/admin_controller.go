package controller

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"exam_prep_backend/internal/service"
	"exam_prep_backend/internal/util"
)

// AdminController is the staff authoring API.
type AdminController struct {
	content *service.ContentService
	lessons *service.LessonService
}

func NewAdminController(content *service.ContentService, lessons *service.LessonService) *AdminController {
	return &AdminController{content: content, lessons: lessons}
}

// CreateTask godoc
// @Summary Create a catalog task
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param input body service.TaskInput true "task"
// @Success 201 {object} util.Response
// @Router /api/v1/admin/tasks [post]
func (ctl *AdminController) CreateTask(c *gin.Context) {
	var input service.TaskInput
	if err := c.ShouldBindJSON(&input); err != nil {
		util.BadRequest(c, err.Error())
		return
	}
	task, err := ctl.content.CreateTask(input)
	if err != nil {
		util.Fail(c, err)
		return
	}
	util.Created(c, task)
}

func (ctl *AdminController) UpdateTask(c *gin.Context) {
	var input service.TaskInput
	if err := c.ShouldBindJSON(&input); err != nil {
		util.BadRequest(c, err.Error())
		return
	}
	task, err := ctl.content.UpdateTask(c.Param("id"), input)
	if err != nil {
		util.Fail(c, err)
		return
	}
	util.Success(c, task)
}

func (ctl *AdminController) DeleteTask(c *gin.Context) {
	if err := ctl.content.DeleteTask(c.Param("id")); err != nil {
		util.Fail(c, err)
		return
	}
	util.NoContent(c)
}

func (ctl *AdminController) ListTasks(c *gin.Context) {
	offset, limit := pagination(c)
	kim, _ := strconv.Atoi(c.Query("kimNumber"))
	complexity, _ := strconv.Atoi(c.Query("complexity"))
	tasks, total, err := ctl.content.ListTasks(kim, complexity, offset, limit)
	if err != nil {
		util.Fail(c, err)
		return
	}
	util.Success(c, gin.H{"items": tasks, "total": total})
}

// UploadTaskFile godoc
// @Summary Attach a file to a task
// @Tags admin
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param id path string true "task id"
// @Param file formData file true "attachment"
// @Success 201 {object} util.Response
// @Router /api/v1/admin/tasks/{id}/files [post]
func (ctl *AdminController) UploadTaskFile(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		util.BadRequest(c, "file is required")
		return
	}
	tf, err := ctl.content.AttachTaskFile(c.Request.Context(), c.Param("id"), file)
	if err != nil {
		util.Fail(c, err)
		return
	}
	util.Created(c, tf)
}

func (ctl *AdminController) CreateLesson(c *gin.Context) {
	var input service.LessonInput
	if err := c.ShouldBindJSON(&input); err != nil {
		util.BadRequest(c, err.Error())
		return
	}
	lesson, err := ctl.content.CreateLesson(input)
	if err != nil {
		util.Fail(c, err)
		return
	}
	util.Created(c, lesson)
}

func (ctl *AdminController) UpdateLesson(c *gin.Context) {
	var input service.LessonInput
	if err := c.ShouldBindJSON(&input); err != nil {
		util.BadRequest(c, err.Error())
		return
	}
	lesson, err := ctl.content.UpdateLesson(c.Param("id"), input)
	if err != nil {
		util.Fail(c, err)
		return
	}
	util.Success(c, lesson)
}

func (ctl *AdminController) DeleteLesson(c *gin.Context) {
	if err := ctl.content.DeleteLesson(c.Param("id")); err != nil {
		util.Fail(c, err)
		return
	}
	util.NoContent(c)
}

func (ctl *AdminController) ListLessons(c *gin.Context) {
	offset, limit := pagination(c)
	lessons, total, err := ctl.content.ListLessons(offset, limit)
	if err != nil {
		util.Fail(c, err)
		return
	}
	util.Success(c, gin.H{"items": lessons, "total": total})
}

// ReconcileLessonTasks godoc
// @Summary Backfill task progress records after a task set change
// @Tags admin
// @Security BearerAuth
// @Param id path string true "lesson id"
// @Success 200 {object} util.Response
// @Router /api/v1/admin/lessons/{id}/reconcile-tasks [post]
func (ctl *AdminController) ReconcileLessonTasks(c *gin.Context) {
	created, err := ctl.lessons.ReconcileLessonTasks(c.Param("id"))
	if err != nil {
		util.Fail(c, err)
		return
	}
	util.Success(c, gin.H{"created": created})
}

// ReconcileLessonSubscribers godoc
// @Summary Backfill progress records for plan subscribers
// @Tags admin
// @Security BearerAuth
// @Param id path string true "lesson id"
// @Success 200 {object} util.Response
// @Router /api/v1/admin/lessons/{id}/reconcile-subscribers [post]
func (ctl *AdminController) ReconcileLessonSubscribers(c *gin.Context) {
	created, err := ctl.lessons.ReconcileLessonSubscribers(c.Param("id"), time.Now())
	if err != nil {
		util.Fail(c, err)
		return
	}
	util.Success(c, gin.H{"created": created})
}

func (ctl *AdminController) CreateVariant(c *gin.Context) {
	var input service.VariantInput
	if err := c.ShouldBindJSON(&input); err != nil {
		util.BadRequest(c, err.Error())
		return
	}
	variant, err := ctl.content.CreateVariant(input)
	if err != nil {
		util.Fail(c, err)
		return
	}
	util.Created(c, variant)
}

func (ctl *AdminController) DeleteVariant(c *gin.Context) {
	if err := ctl.content.DeleteVariant(c.Param("id")); err != nil {
		util.Fail(c, err)
		return
	}
	util.NoContent(c)
}

func (ctl *AdminController) CreatePlan(c *gin.Context) {
	var input service.PlanInput
	if err := c.ShouldBindJSON(&input); err != nil {
		util.BadRequest(c, err.Error())
		return
	}
	plan, err := ctl.content.CreatePlan(input)
	if err != nil {
		util.Fail(c, err)
		return
	}
	util.Created(c, plan)
}

func (ctl *AdminController) UpdatePlan(c *gin.Context) {
	var input service.PlanInput
	if err := c.ShouldBindJSON(&input); err != nil {
		util.BadRequest(c, err.Error())
		return
	}
	plan, err := ctl.content.UpdatePlan(c.Param("id"), input)
	if err != nil {
		util.Fail(c, err)
		return
	}
	util.Success(c, plan)
}

func (ctl *AdminController) CreateHoliday(c *gin.Context) {
	var input service.HolidayInput
	if err := c.ShouldBindJSON(&input); err != nil {
		util.BadRequest(c, err.Error())
		return
	}
	h, err := ctl.content.CreateHoliday(input)
	if err != nil {
		util.Fail(c, err)
		return
	}
	util.Created(c, h)
}

func (ctl *AdminController) DeleteHoliday(c *gin.Context) {
	if err := ctl.content.DeleteHoliday(c.Param("id")); err != nil {
		util.Fail(c, err)
		return
	}
	util.NoContent(c)
}

func (ctl *AdminController) ScoreTable(c *gin.Context) {
	rows, err := ctl.content.ScoreTable()
	if err != nil {
		util.Fail(c, err)
		return
	}
	util.Success(c, rows)
}

func (ctl *AdminController) UpsertScoreRow(c *gin.Context) {
	var input service.ScoreRowInput
	if err := c.ShouldBindJSON(&input); err != nil {
		util.BadRequest(c, err.Error())
		return
	}
	if err := ctl.content.UpsertScoreRow(c.Request.Context(), input); err != nil {
		util.Fail(c, err)
		return
	}
	util.Success(c, nil)
}
