package controller

import (
	"time"

	"github.com/gin-gonic/gin"

	"exam_prep_backend/internal/service"
	"exam_prep_backend/internal/util"
)

type SubscriptionController struct {
	subs         *service.SubscriptionService
	provisioning *service.ProvisioningService
	auth         *service.AuthService
}

func NewSubscriptionController(
	subs *service.SubscriptionService,
	provisioning *service.ProvisioningService,
	auth *service.AuthService,
) *SubscriptionController {
	return &SubscriptionController{subs: subs, provisioning: provisioning, auth: auth}
}

// ListPlans godoc
// @Summary Purchasable plans
// @Tags subscriptions
// @Produce json
// @Success 200 {object} util.Response
// @Router /api/v1/subscriptions [get]
func (ctl *SubscriptionController) ListPlans(c *gin.Context) {
	plans, err := ctl.subs.ListPlans()
	if err != nil {
		util.Fail(c, err)
		return
	}
	util.Success(c, plans)
}

// ListMine godoc
// @Summary Current user's subscription grants
// @Tags subscriptions
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response
// @Router /api/v1/subscriptions/mine [get]
func (ctl *SubscriptionController) ListMine(c *gin.Context) {
	claims, _ := util.GetUserFromContext(c)
	grants, err := ctl.subs.ListMine(claims.UserID, time.Now())
	if err != nil {
		util.Fail(c, err)
		return
	}
	util.Success(c, grants)
}

type orderRequest struct {
	SubscriptionID string `json:"subscriptionId" binding:"required"`
	ReturnURL      string `json:"returnUrl" binding:"omitempty,url"`
	Description    string `json:"description"`
}

// Order godoc
// @Summary Open a checkout session for a plan
// @Tags subscriptions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param input body orderRequest true "plan to purchase"
// @Success 201 {object} util.Response
// @Router /api/v1/subscriptions/order [post]
func (ctl *SubscriptionController) Order(c *gin.Context) {
	claims, _ := util.GetUserFromContext(c)
	var req orderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.BadRequest(c, err.Error())
		return
	}
	user, err := ctl.auth.Profile(claims.UserID)
	if err != nil {
		util.Fail(c, err)
		return
	}
	order, err := ctl.subs.Order(c.Request.Context(), user, req.SubscriptionID, req.ReturnURL, req.Description, time.Now())
	if err != nil {
		util.Fail(c, err)
		return
	}
	util.Created(c, order)
}

// ListOrders godoc
// @Summary Current user's orders
// @Tags subscriptions
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response
// @Router /api/v1/subscriptions/orders [get]
func (ctl *SubscriptionController) ListOrders(c *gin.Context) {
	claims, _ := util.GetUserFromContext(c)
	orders, err := ctl.subs.ListOrders(claims.UserID)
	if err != nil {
		util.Fail(c, err)
		return
	}
	util.Success(c, orders)
}

// Cancel godoc
// @Summary Cancel the current grant
// @Tags subscriptions
// @Security BearerAuth
// @Success 204
// @Router /api/v1/subscriptions/cancel [post]
func (ctl *SubscriptionController) Cancel(c *gin.Context) {
	claims, _ := util.GetUserFromContext(c)
	if err := ctl.subs.Cancel(claims.UserID, time.Now()); err != nil {
		util.Fail(c, err)
		return
	}
	util.NoContent(c)
}

// PaymentWebhook godoc
// @Summary Payment gateway notification endpoint
// @Tags subscriptions
// @Accept json
// @Produce json
// @Param input body service.PaymentNotification true "gateway notification"
// @Success 200 {object} util.Response
// @Router /api/v1/payments/notification [post]
func (ctl *SubscriptionController) PaymentWebhook(c *gin.Context) {
	var n service.PaymentNotification
	if err := c.ShouldBindJSON(&n); err != nil {
		util.BadRequest(c, err.Error())
		return
	}
	if err := ctl.provisioning.HandlePaymentNotification(&n, time.Now()); err != nil {
		util.Fail(c, err)
		return
	}
	util.Success(c, nil)
}
