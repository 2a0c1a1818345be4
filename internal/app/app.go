package app

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ielts_exam_backend/internal/config"
	"ielts_exam_backend/internal/controller"
	"ielts_exam_backend/internal/repository"
	"ielts_exam_backend/internal/service"
	"ielts_exam_backend/pkg/configwatcher"
	"ielts_exam_backend/pkg/database"
	"ielts_exam_backend/pkg/logger"
	"ielts_exam_backend/pkg/monitoring"
	"ielts_exam_backend/pkg/security"
	"ielts_exam_backend/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config          *config.Config
	Router          *gin.Engine
	DB              *gorm.DB
	Redis           *redis.Client
	services        *services
	configCallbacks []func(*config.Config)
}

type repositories struct {
	user        *repository.UserRepository
	test        *repository.TestRepository
	studentTest *repository.StudentTestRepository
}

type services struct {
	auth        *service.AuthService
	storage     *service.StorageService
	content     *service.TestContentService
	gate        *service.GateService
	gateCache   *service.GateCache
	studentTest *service.StudentTestService
	teacher     *service.TeacherService
}

type controllers struct {
	auth        *controller.AuthController
	test        *controller.TestController
	gate        *controller.GateController
	studentTest *controller.StudentTestController
	teacher     *controller.TeacherController
	health      *controller.HealthController
}

func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.configCallbacks = append(a.configCallbacks, callback)
}

func (a *App) initRepositories(db *gorm.DB) *repositories {
	return &repositories{
		user:        repository.NewUserRepository(db),
		test:        repository.NewTestRepository(db),
		studentTest: repository.NewStudentTestRepository(db),
	}
}

func (a *App) initServices(repos *repositories, cfg *config.Config, db *gorm.DB, rdb *redis.Client) *services {
	s := &services{}

	s.storage = service.NewStorageService(cfg)
	s.auth = service.NewAuthService(repos.user, cfg)
	s.content = service.NewTestContentService(repos.test, s.storage, rdb, cfg, db)

	s.gateCache = service.NewGateCache(cfg.Gate.CacheTTL(), service.SystemClock)
	s.gate = service.NewGateService(repos.user, repos.studentTest, s.gateCache, cfg)

	s.studentTest = service.NewStudentTestService(repos.studentTest, repos.test, s.gateCache)
	s.teacher = service.NewTeacherService(repos.user, repos.studentTest, s.gateCache)

	return s
}

func (a *App) initControllers(s *services, db *gorm.DB, rdb *redis.Client) *controllers {
	return &controllers{
		auth:        controller.NewAuthController(s.auth),
		test:        controller.NewTestController(s.content),
		gate:        controller.NewGateController(s.gate),
		studentTest: controller.NewStudentTestController(s.studentTest),
		teacher:     controller.NewTeacherController(s.teacher),
		health:      controller.NewHealthController(db, rdb),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())
	router.Use(security.RateLimiter(cfg.RateLimit.MaxRequests, time.Duration(cfg.RateLimit.WindowMinutes)*time.Minute))

	// 分布式追踪中间件
	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg)
	defer logger.Log.Sync()

	logger.Log.Info("Logger initialized successfully")

	// release 模式默认跳过迁移, 通过 --migrate 显式触发
	migrate := cfg.Server.Mode != "release" || cfg.ForceMigrate
	db, err := database.InitDB(&cfg.Database, migrate)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
		log.Fatalf("Failed to initialize database: %v", err)
	}

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		logger.Log.Fatal("Failed to initialize redis", zap.Error(err))
		log.Fatalf("Failed to initialize redis: %v", err)
	}

	app := &App{
		Config: cfg,
		DB:     db,
		Redis:  rdb,
	}

	repos := app.initRepositories(db)
	services := app.initServices(repos, cfg, db, rdb)
	app.services = services
	controllers := app.initControllers(services, db, rdb)

	// 监控初始化
	monitoring.Init()

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()
	app.Router = router

	app.setupMiddlewares(router, cfg)

	if cfg.Tracing.Enabled {
		if _, err := tracing.InitTracer("ielts-exam-backend", cfg.Tracing.CollectorEndpoint); err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
	}

	app.registerRoutes(router, controllers, cfg)

	if cfg.Storage.Type == "local" {
		router.Static("/uploads", cfg.Storage.LocalPath)
		router.Static("/api/uploads", cfg.Storage.LocalPath)
	}

	// 守卫与内容相关开关支持热更新, 服务共享同一 Config 指针
	app.RegisterConfigCallback(func(newCfg *config.Config) {
		cfg.Gate = newCfg.Gate
		cfg.Content = newCfg.Content
		logger.Log.Info("runtime config reloaded")
	})
	go configwatcher.WatchConfig("configs/config.yaml", cfg, func(raw interface{}) {
		newCfg, ok := raw.(*config.Config)
		if !ok {
			return
		}
		for _, cb := range app.configCallbacks {
			cb(newCfg)
		}
	})

	return app
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	// 启动服务器
	go func() {
		log.Printf("Server running on port %s", a.Config.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// 等待中断信号优雅地关闭服务器（设置5秒的超时时间）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exiting")
}
