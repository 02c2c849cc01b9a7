package app

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"code_quest_backend/internal/config"
	"code_quest_backend/internal/controller"
	"code_quest_backend/internal/repository"
	"code_quest_backend/internal/service"
	"code_quest_backend/internal/util"
	"code_quest_backend/pkg/configwatcher"
	"code_quest_backend/pkg/database"
	"code_quest_backend/pkg/logger"
	"code_quest_backend/pkg/monitoring"
	"code_quest_backend/pkg/security"
	"code_quest_backend/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config *config.Config
	// ConfigDir is watched for changes to config.yaml while the server runs.
	ConfigDir string
	Router    *gin.Engine
	DB        *gorm.DB
	Redis     *redis.Client

	services        *services
	limiter         *security.Limiter
	configCallbacks []func(*config.Config)
	shutdownTracer  func(context.Context) error
}

type repositories struct {
	user          *repository.UserRepository
	catalog       *repository.CatalogRepository
	progress      *repository.ProgressRepository
	potion        *repository.PotionRepository
	quest         *repository.QuestRepository
	achievement   *repository.AchievementRepository
	battleMessage *repository.BattleMessageRepository
}

type services struct {
	rules       *service.GameRules
	messages    *service.MessageCache
	hub         *service.GameHub
	effects     *service.SideEffects
	quest       *service.QuestService
	achievement *service.AchievementService
	reward      *service.RewardService
	challenge   *service.ChallengeService
	potion      *service.PotionService
}

type controllers struct {
	game          *controller.GameController
	potion        *controller.PotionController
	achievement   *controller.AchievementController
	battleMessage *controller.BattleMessageController
	realtime      *controller.RealtimeController
	health        *controller.HealthController
}

func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.configCallbacks = append(a.configCallbacks, callback)
}

func (a *App) applyConfig(cfg *config.Config) {
	for _, cb := range a.configCallbacks {
		cb(cfg)
	}
}

func (a *App) initRepositories(db *gorm.DB) *repositories {
	return &repositories{
		user:          repository.NewUserRepository(db),
		catalog:       repository.NewCatalogRepository(db),
		progress:      repository.NewProgressRepository(db),
		potion:        repository.NewPotionRepository(db),
		quest:         repository.NewQuestRepository(db),
		achievement:   repository.NewAchievementRepository(db),
		battleMessage: repository.NewBattleMessageRepository(db),
	}
}

func (a *App) initServices(repos *repositories, cfg *config.Config, db *gorm.DB, rdb *redis.Client, clock util.Clock) *services {
	s := &services{}

	s.rules = service.NewGameRules(cfg.Game)
	a.RegisterConfigCallback(func(newCfg *config.Config) {
		s.rules.Apply(newCfg.Game)
	})
	s.messages = service.NewMessageCache(repos.battleMessage, clock, cfg.Game.MessageRefresh())

	s.hub = service.NewGameHub(rdb, clock)
	s.quest = service.NewQuestService(db, repos.quest, repos.user, s.hub, clock)
	s.achievement = service.NewAchievementService(db, repos.achievement, repos.user, repos.progress, s.hub, clock)
	s.effects = service.NewSideEffects(s.quest, s.achievement, s.hub)

	s.reward = service.NewRewardService(db, repos.catalog, repos.progress, repos.user, s.effects, clock)
	s.challenge = service.NewChallengeService(db, repos.catalog, repos.progress, s.reward, s.messages, s.effects, s.rules, clock)
	s.potion = service.NewPotionService(db, repos.catalog, repos.progress, repos.potion, repos.user, s.effects, s.rules, clock)

	return s
}

func (a *App) initControllers(s *services, repos *repositories, db *gorm.DB) *controllers {
	return &controllers{
		game:          controller.NewGameController(s.challenge, s.potion, s.reward),
		potion:        controller.NewPotionController(s.potion),
		achievement:   controller.NewAchievementController(s.achievement, s.quest),
		battleMessage: controller.NewBattleMessageController(repos.battleMessage, s.messages),
		realtime:      controller.NewRealtimeController(s.hub),
		health:        controller.NewHealthController(db),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS))
	router.Use(security.Secure())
	router.Use(a.limiter.Middleware())

	// 分布式追踪中间件
	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

// New wires repositories, services, controllers and routes on an open database. It starts no
// goroutines; Run does that.
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client, clock util.Clock) *App {
	if clock == nil {
		clock = util.SystemClock{}
	}
	if cfg.Server.Mode == gin.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	}

	app := &App{
		Config:    cfg,
		ConfigDir: "configs",
		DB:        db,
		Redis:     rdb,
		limiter:   security.NewLimiter(cfg.RateLimit),
	}

	repos := app.initRepositories(db)
	app.services = app.initServices(repos, cfg, db, rdb, clock)
	controllers := app.initControllers(app.services, repos, db)

	router := gin.New()
	router.Use(gin.Recovery())
	app.Router = router

	app.setupMiddlewares(router, cfg)
	app.registerRoutes(router, controllers, repos, cfg)

	return app
}

// NewApp initialises the process-wide infrastructure (logger, database, redis, metrics,
// tracing) and wires the application on top of it.
func NewApp(cfg *config.Config) (*App, error) {
	logger.InitLogger(cfg)
	logger.Log.Info("Logger initialized successfully")

	db, err := database.InitDB(&cfg.Database)
	if err != nil {
		return nil, err
	}
	if cfg.MigrateOnly {
		return &App{Config: cfg, DB: db}, nil
	}

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		return nil, err
	}

	// 监控初始化
	monitoring.Init()

	var shutdownTracer func(context.Context) error
	if cfg.Tracing.Enabled {
		shutdownTracer, err = tracing.InitTracer("code-quest", cfg.Tracing)
		if err != nil {
			return nil, err
		}
	}

	app := New(cfg, db, rdb, util.SystemClock{})
	app.shutdownTracer = shutdownTracer
	return app, nil
}

// Run serves HTTP until SIGINT or SIGTERM, then shuts down gracefully.
func (a *App) Run() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go a.services.hub.Run()
	go a.limiter.Run(ctx)
	go func() {
		if err := configwatcher.Watch(ctx, a.ConfigDir, a.applyConfig); err != nil {
			logger.Log.Warn("Config hot reload disabled", zap.Error(err))
		}
	}()

	srv := &http.Server{
		Addr:              ":" + a.Config.Server.Port,
		Handler:           a.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// 启动服务器
	go func() {
		logger.Log.Info("Server running", zap.String("port", a.Config.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Fatal("listen failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Log.Info("Shutting down server...")

	// 清理 WebSocket连接和Redis在线状态
	a.services.hub.Stop()

	// 关闭服务（设置5秒的超时时间）
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Error("Server forced to shutdown", zap.Error(err))
	}

	if a.shutdownTracer != nil {
		if err := a.shutdownTracer(shutdownCtx); err != nil {
			logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}
	if a.Redis != nil {
		a.Redis.Close()
	}
	if sqlDB, err := a.DB.DB(); err == nil {
		sqlDB.Close()
	}

	logger.Log.Info("Server exiting")
}
