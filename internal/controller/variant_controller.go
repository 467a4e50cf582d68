package controller

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"exam_prep_backend/internal/service"
	"exam_prep_backend/internal/util"
)

type VariantController struct {
	variants *service.VariantService
}

func NewVariantController(variants *service.VariantService) *VariantController {
	return &VariantController{variants: variants}
}

// List godoc
// @Summary Authored variants catalog
// @Tags variants
// @Produce json
// @Security BearerAuth
// @Param offset query int false "offset"
// @Param limit query int false "limit"
// @Success 200 {object} util.Response
// @Router /api/v1/variants [get]
func (ctl *VariantController) List(c *gin.Context) {
	offset, limit := pagination(c)
	variants, total, err := ctl.variants.List(offset, limit)
	if err != nil {
		util.Fail(c, err)
		return
	}
	util.Success(c, gin.H{"items": variants, "total": total})
}

// ListMine godoc
// @Summary Student's variant attempts
// @Tags variants
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response
// @Router /api/v1/variants/mine [get]
func (ctl *VariantController) ListMine(c *gin.Context) {
	claims, _ := util.GetUserFromContext(c)
	attempts, err := ctl.variants.ListMine(claims.UserID)
	if err != nil {
		util.Fail(c, err)
		return
	}
	util.Success(c, attempts)
}

// Take godoc
// @Summary Bind the student to a variant
// @Tags variants
// @Security BearerAuth
// @Param id path string true "variant id"
// @Success 200 {object} util.Response
// @Router /api/v1/variants/{id}/take [post]
func (ctl *VariantController) Take(c *gin.Context) {
	claims, _ := util.GetUserFromContext(c)
	uv, err := ctl.variants.Take(claims.UserID, c.Param("id"))
	if err != nil {
		util.Fail(c, err)
		return
	}
	util.Success(c, uv)
}

type generateRequest struct {
	Title      string `json:"title"`
	Complexity int    `json:"complexity" binding:"min=0,max=3"`
}

// Generate godoc
// @Summary Generate a personal variant
// @Tags variants
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param input body generateRequest true "generation options"
// @Success 201 {object} util.Response
// @Router /api/v1/variants/generate [post]
func (ctl *VariantController) Generate(c *gin.Context) {
	claims, _ := util.GetUserFromContext(c)
	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.BadRequest(c, err.Error())
		return
	}
	uv, err := ctl.variants.Generate(claims.UserID, req.Title, req.Complexity)
	if err != nil {
		util.Fail(c, err)
		return
	}
	util.Created(c, uv)
}

// Start godoc
// @Summary Start a variant attempt
// @Tags variants
// @Security BearerAuth
// @Param id path string true "variant id"
// @Success 200 {object} util.Response
// @Router /api/v1/variants/{id}/start [post]
func (ctl *VariantController) Start(c *gin.Context) {
	claims, _ := util.GetUserFromContext(c)
	if err := ctl.variants.Start(claims.UserID, c.Param("id"), time.Now()); err != nil {
		util.Fail(c, err)
		return
	}
	util.Success(c, nil)
}

// Complete godoc
// @Summary Finish a variant attempt and score it
// @Tags variants
// @Security BearerAuth
// @Param id path string true "variant id"
// @Success 200 {object} util.Response
// @Router /api/v1/variants/{id}/complete [post]
func (ctl *VariantController) Complete(c *gin.Context) {
	claims, _ := util.GetUserFromContext(c)
	uv, err := ctl.variants.Complete(c.Request.Context(), claims.UserID, c.Param("id"), time.Now())
	if err != nil {
		util.Fail(c, err)
		return
	}
	util.Success(c, uv)
}

// AnswerTask godoc
// @Summary Answer a variant task
// @Tags variants
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "variant id"
// @Param taskId path string true "task id"
// @Param input body answerRequest true "answer payload"
// @Success 200 {object} util.Response
// @Router /api/v1/variants/{id}/tasks/{taskId}/answer [post]
func (ctl *VariantController) AnswerTask(c *gin.Context) {
	claims, _ := util.GetUserFromContext(c)
	var req answerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.BadRequest(c, err.Error())
		return
	}
	uvt, err := ctl.variants.AnswerTask(claims.UserID, c.Param("id"), c.Param("taskId"), req.Answer)
	if err != nil {
		util.Fail(c, err)
		return
	}
	util.Success(c, uvt)
}

// SkipTask godoc
// @Summary Skip a variant task
// @Tags variants
// @Security BearerAuth
// @Param id path string true "variant id"
// @Param taskId path string true "task id"
// @Success 200 {object} util.Response
// @Router /api/v1/variants/{id}/tasks/{taskId}/skip [post]
func (ctl *VariantController) SkipTask(c *gin.Context) {
	claims, _ := util.GetUserFromContext(c)
	uvt, err := ctl.variants.SkipTask(claims.UserID, c.Param("id"), c.Param("taskId"))
	if err != nil {
		util.Fail(c, err)
		return
	}
	util.Success(c, uvt)
}

func pagination(c *gin.Context) (offset, limit int) {
	offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return offset, limit
}
