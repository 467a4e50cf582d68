package controller

import (
	"encoding/json"
	"time"

	"github.com/gin-gonic/gin"

	"exam_prep_backend/internal/service"
	"exam_prep_backend/internal/util"
)

type LessonController struct {
	lessons *service.LessonService
}

func NewLessonController(lessons *service.LessonService) *LessonController {
	return &LessonController{lessons: lessons}
}

// List godoc
// @Summary Student's lessons with progress
// @Tags lessons
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response
// @Router /api/v1/lessons [get]
func (ctl *LessonController) List(c *gin.Context) {
	claims, _ := util.GetUserFromContext(c)
	views, err := ctl.lessons.ListMine(claims.UserID, time.Now())
	if err != nil {
		util.Fail(c, err)
		return
	}
	util.Success(c, views)
}

// ListNotCompleted godoc
// @Summary Lessons the student has not completed yet
// @Tags lessons
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response
// @Router /api/v1/lessons/not-completed [get]
func (ctl *LessonController) ListNotCompleted(c *gin.Context) {
	claims, _ := util.GetUserFromContext(c)
	views, err := ctl.lessons.ListNotCompleted(claims.UserID, time.Now())
	if err != nil {
		util.Fail(c, err)
		return
	}
	util.Success(c, views)
}

// ListHomework godoc
// @Summary Lessons with an open or closed homework phase
// @Tags lessons
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response
// @Router /api/v1/lessons/homework [get]
func (ctl *LessonController) ListHomework(c *gin.Context) {
	claims, _ := util.GetUserFromContext(c)
	views, err := ctl.lessons.ListHomework(claims.UserID, time.Now())
	if err != nil {
		util.Fail(c, err)
		return
	}
	util.Success(c, views)
}

// ListHomeworkNotCompleted godoc
// @Summary Lessons with homework still open
// @Tags lessons
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response
// @Router /api/v1/lessons/homework/not-completed [get]
func (ctl *LessonController) ListHomeworkNotCompleted(c *gin.Context) {
	claims, _ := util.GetUserFromContext(c)
	views, err := ctl.lessons.ListHomeworkNotCompleted(claims.UserID, time.Now())
	if err != nil {
		util.Fail(c, err)
		return
	}
	util.Success(c, views)
}

// Get godoc
// @Summary One lesson with the student's progress
// @Tags lessons
// @Produce json
// @Security BearerAuth
// @Param id path string true "lesson id"
// @Success 200 {object} util.Response
// @Router /api/v1/lessons/{id} [get]
func (ctl *LessonController) Get(c *gin.Context) {
	claims, _ := util.GetUserFromContext(c)
	view, err := ctl.lessons.Get(claims.UserID, c.Param("id"), time.Now())
	if err != nil {
		util.Fail(c, err)
		return
	}
	util.Success(c, view)
}

// Complete godoc
// @Summary Mark a lesson completed
// @Tags lessons
// @Security BearerAuth
// @Param id path string true "lesson id"
// @Success 200 {object} util.Response
// @Router /api/v1/lessons/{id}/complete [post]
func (ctl *LessonController) Complete(c *gin.Context) {
	claims, _ := util.GetUserFromContext(c)
	if err := ctl.lessons.TryComplete(claims.UserID, c.Param("id"), time.Now()); err != nil {
		util.Fail(c, err)
		return
	}
	util.Success(c, nil)
}

// Skip godoc
// @Summary Skip a lesson
// @Tags lessons
// @Security BearerAuth
// @Param id path string true "lesson id"
// @Success 200 {object} util.Response
// @Router /api/v1/lessons/{id}/skip [post]
func (ctl *LessonController) Skip(c *gin.Context) {
	claims, _ := util.GetUserFromContext(c)
	if err := ctl.lessons.TrySkip(claims.UserID, c.Param("id"), time.Now()); err != nil {
		util.Fail(c, err)
		return
	}
	util.Success(c, nil)
}

// CompleteTasks godoc
// @Summary Close the lesson's homework and record the result
// @Tags lessons
// @Security BearerAuth
// @Param id path string true "lesson id"
// @Success 200 {object} util.Response
// @Router /api/v1/lessons/{id}/complete-tasks [post]
func (ctl *LessonController) CompleteTasks(c *gin.Context) {
	claims, _ := util.GetUserFromContext(c)
	result, err := ctl.lessons.TryCompleteTasks(claims.UserID, c.Param("id"), time.Now())
	if err != nil {
		util.Fail(c, err)
		return
	}
	util.Success(c, gin.H{"result": result})
}

// Tasks godoc
// @Summary Homework progress for a lesson
// @Tags lessons
// @Produce json
// @Security BearerAuth
// @Param id path string true "lesson id"
// @Success 200 {object} util.Response
// @Router /api/v1/lessons/{id}/tasks [get]
func (ctl *LessonController) Tasks(c *gin.Context) {
	claims, _ := util.GetUserFromContext(c)
	tasks, err := ctl.lessons.Tasks(claims.UserID, c.Param("id"), time.Now())
	if err != nil {
		util.Fail(c, err)
		return
	}
	util.Success(c, tasks)
}

type answerRequest struct {
	Answer json.RawMessage `json:"answer" binding:"required"`
}

// AnswerTask godoc
// @Summary Submit an answer to a homework task
// @Tags lessons
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "lesson id"
// @Param taskId path string true "task id"
// @Param input body answerRequest true "answer payload"
// @Success 200 {object} util.Response
// @Router /api/v1/lessons/{id}/tasks/{taskId}/answer [post]
func (ctl *LessonController) AnswerTask(c *gin.Context) {
	claims, _ := util.GetUserFromContext(c)
	var req answerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.BadRequest(c, err.Error())
		return
	}
	ut, err := ctl.lessons.AnswerTask(claims.UserID, c.Param("id"), c.Param("taskId"), req.Answer, time.Now())
	if err != nil {
		util.Fail(c, err)
		return
	}
	util.Success(c, ut)
}

// SkipTask godoc
// @Summary Skip a homework task
// @Tags lessons
// @Security BearerAuth
// @Param id path string true "lesson id"
// @Param taskId path string true "task id"
// @Success 200 {object} util.Response
// @Router /api/v1/lessons/{id}/tasks/{taskId}/skip [post]
func (ctl *LessonController) SkipTask(c *gin.Context) {
	claims, _ := util.GetUserFromContext(c)
	ut, err := ctl.lessons.SkipTask(claims.UserID, c.Param("id"), c.Param("taskId"), time.Now())
	if err != nil {
		util.Fail(c, err)
		return
	}
	util.Success(c, ut)
}
