package controller

import (
	"github.com/gin-gonic/gin"

	"exam_prep_backend/internal/service"
	"exam_prep_backend/internal/util"
)

type AuthController struct {
	auth *service.AuthService
}

func NewAuthController(auth *service.AuthService) *AuthController {
	return &AuthController{auth: auth}
}

// Register godoc
// @Summary Register a new student account
// @Tags auth
// @Accept json
// @Produce json
// @Param input body service.RegisterInput true "registration payload"
// @Success 201 {object} util.Response
// @Router /api/v1/auth/register [post]
func (ctl *AuthController) Register(c *gin.Context) {
	var input service.RegisterInput
	if err := c.ShouldBindJSON(&input); err != nil {
		util.BadRequest(c, err.Error())
		return
	}
	result, err := ctl.auth.Register(input)
	if err != nil {
		util.Fail(c, err)
		return
	}
	util.Created(c, result)
}

// Login godoc
// @Summary Exchange credentials for a JWT
// @Tags auth
// @Accept json
// @Produce json
// @Param input body service.LoginInput true "credentials"
// @Success 200 {object} util.Response
// @Router /api/v1/auth/login [post]
func (ctl *AuthController) Login(c *gin.Context) {
	var input service.LoginInput
	if err := c.ShouldBindJSON(&input); err != nil {
		util.BadRequest(c, err.Error())
		return
	}
	result, err := ctl.auth.Login(input)
	if err != nil {
		util.Fail(c, err)
		return
	}
	util.Success(c, result)
}

// Profile godoc
// @Summary Current user profile
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response
// @Router /api/v1/auth/profile [get]
func (ctl *AuthController) Profile(c *gin.Context) {
	claims, ok := util.GetUserFromContext(c)
	if !ok {
		util.Unauthorized(c, "unauthorized")
		return
	}
	user, err := ctl.auth.Profile(claims.UserID)
	if err != nil {
		util.Fail(c, err)
		return
	}
	util.Success(c, user)
}
