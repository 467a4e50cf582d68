package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"gorm.io/gorm"

	"exam_prep_backend/internal/config"
	"exam_prep_backend/internal/controller"
	"exam_prep_backend/internal/repository"
	"exam_prep_backend/internal/service"
	"exam_prep_backend/pkg/database"
	"exam_prep_backend/pkg/logger"
	"exam_prep_backend/pkg/monitoring"
	"exam_prep_backend/pkg/security"
	"exam_prep_backend/pkg/tracing"
)

type repositories struct {
	users        *repository.UserRepository
	tasks        *repository.TaskRepository
	lessons      *repository.LessonRepository
	userLessons  *repository.UserLessonRepository
	userTasks    *repository.UserTaskRepository
	variants     *repository.VariantRepository
	userVariants *repository.UserVariantRepository
	attemptTasks *repository.UserVariantTaskRepository
	subs         *repository.SubscriptionRepository
	userSubs     *repository.UserSubscriptionRepository
	orders       *repository.OrderRepository
	scoreTable   *repository.ScoreTableRepository
	holidays     *repository.HolidayRepository
}

type services struct {
	auth         *service.AuthService
	lessons      *service.LessonService
	variants     *service.VariantService
	subs         *service.SubscriptionService
	provisioning *service.ProvisioningService
	schedule     *service.ScheduleService
	content      *service.ContentService
}

type controllers struct {
	auth     *controller.AuthController
	lessons  *controller.LessonController
	variants *controller.VariantController
	subs     *controller.SubscriptionController
	schedule *controller.ScheduleController
	admin    *controller.AdminController
}

type App struct {
	cfg             *config.Config
	db              *gorm.DB
	redis           *redis.Client
	engine          *gin.Engine
	controllers     controllers
	tracingShutdown func(context.Context) error
}

func NewApp(cfg *config.Config, migrate bool) (*App, error) {
	db, err := database.InitDB(cfg.Database, migrate)
	if err != nil {
		return nil, err
	}

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			logger.Log.Warn("redis unreachable, score cache disabled", zap.Error(err))
			redisClient = nil
		}
	}

	tracingShutdown, err := tracing.InitTracer(tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		JaegerURL:   cfg.Tracing.JaegerURL,
		ServiceName: cfg.Tracing.ServiceName,
		SampleRate:  cfg.Tracing.SampleRate,
	})
	if err != nil {
		return nil, err
	}

	storage, err := service.NewStorageProvider(cfg.Storage)
	if err != nil {
		return nil, err
	}
	gateway := service.NewMidtransGateway(cfg.Payment)

	app := &App{cfg: cfg, db: db, redis: redisClient, tracingShutdown: tracingShutdown}

	repos := app.initRepositories()
	svcs := app.initServices(repos, storage, gateway)
	app.controllers = app.initControllers(svcs)

	gin.SetMode(cfg.Server.Mode)
	app.engine = gin.New()
	app.setupMiddlewares()
	app.registerRoutes()
	return app, nil
}

func (a *App) initRepositories() repositories {
	return repositories{
		users:        repository.NewUserRepository(a.db),
		tasks:        repository.NewTaskRepository(a.db),
		lessons:      repository.NewLessonRepository(a.db),
		userLessons:  repository.NewUserLessonRepository(a.db),
		userTasks:    repository.NewUserTaskRepository(a.db),
		variants:     repository.NewVariantRepository(a.db),
		userVariants: repository.NewUserVariantRepository(a.db),
		attemptTasks: repository.NewUserVariantTaskRepository(a.db),
		subs:         repository.NewSubscriptionRepository(a.db),
		userSubs:     repository.NewUserSubscriptionRepository(a.db),
		orders:       repository.NewOrderRepository(a.db),
		scoreTable:   repository.NewScoreTableRepository(a.db, a.redis),
		holidays:     repository.NewHolidayRepository(a.db),
	}
}

func (a *App) initServices(r repositories, storage service.StorageProvider, gateway service.PaymentGateway) services {
	return services{
		auth:         service.NewAuthService(r.users),
		lessons:      service.NewLessonService(a.db, r.lessons, r.userLessons, r.userTasks, r.userSubs),
		variants:     service.NewVariantService(a.db, r.variants, r.userVariants, r.attemptTasks, r.tasks, r.scoreTable),
		subs:         service.NewSubscriptionService(r.subs, r.userSubs, r.orders, gateway),
		provisioning: service.NewProvisioningService(a.db, r.orders, r.userSubs, r.lessons, r.userLessons, r.userTasks, gateway),
		schedule:     service.NewScheduleService(r.userLessons, r.holidays),
		content:      service.NewContentService(r.tasks, r.lessons, r.variants, r.subs, r.holidays, r.scoreTable, storage),
	}
}

func (a *App) initControllers(s services) controllers {
	return controllers{
		auth:     controller.NewAuthController(s.auth),
		lessons:  controller.NewLessonController(s.lessons),
		variants: controller.NewVariantController(s.variants),
		subs:     controller.NewSubscriptionController(s.subs, s.provisioning, s.auth),
		schedule: controller.NewScheduleController(s.schedule),
		admin:    controller.NewAdminController(s.content, s.lessons),
	}
}

func (a *App) setupMiddlewares() {
	a.engine.Use(gin.Recovery())
	a.engine.Use(security.CORS(a.cfg.Server.AllowedOrigins))
	a.engine.Use(security.Secure())
	a.engine.Use(security.RateLimiter(rate.Limit(20), 40))
	if a.cfg.Tracing.Enabled {
		a.engine.Use(tracing.GinMiddleware(a.cfg.Tracing.ServiceName))
	}
	a.engine.Use(monitoring.MetricsMiddleware())
}

// Run serves until ctx is canceled, then shuts down gracefully.
func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", a.cfg.Server.Port),
		Handler: a.engine,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Log.Info("server listening", zap.Int("port", a.cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	if a.tracingShutdown != nil {
		if err := a.tracingShutdown(shutdownCtx); err != nil {
			logger.Log.Warn("tracing shutdown", zap.Error(err))
		}
	}
	logger.Log.Info("server stopped")
	return nil
}

// DB exposes the handle for migration-only runs.
func (a *App) DB() *gorm.DB {
	return a.db
}
