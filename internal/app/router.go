package app

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"exam_prep_backend/internal/middleware"
	"exam_prep_backend/pkg/monitoring"
)

func (a *App) registerRoutes() {
	a.engine.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	a.engine.GET("/metrics", monitoring.PrometheusHandler())
	a.engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	v1 := a.engine.Group("/api/v1")

	// Public surface.
	v1.POST("/auth/register", a.controllers.auth.Register)
	v1.POST("/auth/login", a.controllers.auth.Login)
	v1.GET("/subscriptions", a.controllers.subs.ListPlans)
	v1.GET("/schedule/holidays", a.controllers.schedule.Holidays)
	v1.POST("/payments/notification", a.controllers.subs.PaymentWebhook)

	// Authenticated surface.
	authed := v1.Group("", middleware.Auth())
	{
		authed.GET("/auth/profile", a.controllers.auth.Profile)

		authed.GET("/lessons", a.controllers.lessons.List)
		authed.GET("/lessons/not-completed", a.controllers.lessons.ListNotCompleted)
		authed.GET("/lessons/homework", a.controllers.lessons.ListHomework)
		authed.GET("/lessons/homework/not-completed", a.controllers.lessons.ListHomeworkNotCompleted)
		authed.GET("/lessons/:id", a.controllers.lessons.Get)
		authed.POST("/lessons/:id/complete", a.controllers.lessons.Complete)
		authed.POST("/lessons/:id/skip", a.controllers.lessons.Skip)
		authed.POST("/lessons/:id/complete-tasks", a.controllers.lessons.CompleteTasks)
		authed.GET("/lessons/:id/tasks", a.controllers.lessons.Tasks)
		authed.POST("/lessons/:id/tasks/:taskId/answer", a.controllers.lessons.AnswerTask)
		authed.POST("/lessons/:id/tasks/:taskId/skip", a.controllers.lessons.SkipTask)

		authed.GET("/variants", a.controllers.variants.List)
		authed.GET("/variants/mine", a.controllers.variants.ListMine)
		authed.POST("/variants/generate", a.controllers.variants.Generate)
		authed.POST("/variants/:id/take", a.controllers.variants.Take)
		authed.POST("/variants/:id/start", a.controllers.variants.Start)
		authed.POST("/variants/:id/complete", a.controllers.variants.Complete)
		authed.POST("/variants/:id/tasks/:taskId/answer", a.controllers.variants.AnswerTask)
		authed.POST("/variants/:id/tasks/:taskId/skip", a.controllers.variants.SkipTask)

		authed.GET("/subscriptions/mine", a.controllers.subs.ListMine)
		authed.GET("/subscriptions/orders", a.controllers.subs.ListOrders)
		authed.POST("/subscriptions/order", a.controllers.subs.Order)
		authed.POST("/subscriptions/cancel", a.controllers.subs.Cancel)

		authed.GET("/schedule", a.controllers.schedule.Events)
	}

	// Staff surface.
	admin := v1.Group("/admin", middleware.Auth(), middleware.AdminOnly())
	{
		admin.GET("/tasks", a.controllers.admin.ListTasks)
		admin.POST("/tasks", a.controllers.admin.CreateTask)
		admin.PUT("/tasks/:id", a.controllers.admin.UpdateTask)
		admin.DELETE("/tasks/:id", a.controllers.admin.DeleteTask)
		admin.POST("/tasks/:id/files", a.controllers.admin.UploadTaskFile)

		admin.GET("/lessons", a.controllers.admin.ListLessons)
		admin.POST("/lessons", a.controllers.admin.CreateLesson)
		admin.PUT("/lessons/:id", a.controllers.admin.UpdateLesson)
		admin.DELETE("/lessons/:id", a.controllers.admin.DeleteLesson)
		admin.POST("/lessons/:id/reconcile-tasks", a.controllers.admin.ReconcileLessonTasks)
		admin.POST("/lessons/:id/reconcile-subscribers", a.controllers.admin.ReconcileLessonSubscribers)

		admin.POST("/variants", a.controllers.admin.CreateVariant)
		admin.DELETE("/variants/:id", a.controllers.admin.DeleteVariant)

		admin.POST("/subscriptions", a.controllers.admin.CreatePlan)
		admin.PUT("/subscriptions/:id", a.controllers.admin.UpdatePlan)

		admin.POST("/holidays", a.controllers.admin.CreateHoliday)
		admin.DELETE("/holidays/:id", a.controllers.admin.DeleteHoliday)

		admin.GET("/score-table", a.controllers.admin.ScoreTable)
		admin.PUT("/score-table", a.controllers.admin.UpsertScoreRow)
	}
}
