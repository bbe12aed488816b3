package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/quocanhngo/publicchat/internal/cache"
	"github.com/quocanhngo/publicchat/internal/config"
	"github.com/quocanhngo/publicchat/internal/handler"
	"github.com/quocanhngo/publicchat/internal/matching"
	"github.com/quocanhngo/publicchat/internal/middleware"
	"github.com/quocanhngo/publicchat/internal/repository"
	"github.com/quocanhngo/publicchat/internal/repository/memory"
	"github.com/quocanhngo/publicchat/internal/seed"
	"github.com/quocanhngo/publicchat/internal/service"
	"github.com/quocanhngo/publicchat/internal/ws"
	"github.com/quocanhngo/publicchat/migrations"
	"github.com/quocanhngo/publicchat/pkg/auth"
	"github.com/quocanhngo/publicchat/pkg/logger"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// @title           Public Chat Matchmaking API
// @version         1.0
// @description     Discover, join and leave time-boxed public group chats with strangers.
// @termsOfService  http://swagger.io/terms/

// @license.name  MIT
// @license.url   https://opensource.org/licenses/MIT

// @host      api.localhost
// @BasePath  /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

// backends groups the store-dependent collaborators of the matchmaking service
type backends struct {
	chats    service.ChatStore
	profiles service.ProfileSource
	users    service.UserReader
	// set in memory mode so demo data can be loaded
	demo *memory.Store
}

func main() {
	// ==================== Load Config ====================
	cfg := config.Load()

	log, err := logger.ForEnv(cfg.App.Env, cfg.App.LogLevel)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	if err := cfg.Validate(); err != nil {
		log.Fatal("❌ Invalid configuration", zap.Error(err))
	}
	log.Info("🚀 Starting Public Chat API Server",
		zap.String("env", cfg.App.Env),
		zap.String("store", cfg.App.StoreDriver),
	)

	// ==================== Redis ====================
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       0,
	})

	pingCtx, pingCancel := context.WithTimeout(context.Background(), 3*time.Second)
	if _, err := rdb.Ping(pingCtx).Result(); err != nil {
		if cfg.App.StoreDriver != config.StoreMemory {
			log.Fatal("❌ Failed to connect to Redis", zap.Error(err))
		}
		log.Warn("⚠️  Redis not available, running single-instance without cache", zap.Error(err))
		rdb.Close()
		rdb = nil
	} else {
		log.Info("✅ Connected to Redis", zap.String("addr", cfg.Redis.Addr()))
	}
	pingCancel()

	// ==================== Store ====================
	var b backends
	switch cfg.App.StoreDriver {
	case config.StoreMemory:
		store := memory.NewStore()
		b = backends{chats: store, profiles: store, users: store.Users(), demo: store}
		log.Info("📦 Using in-memory store")
	default:
		db := openDatabase(cfg, log)
		b = backends{
			chats:    repository.NewPublicChatRepository(db),
			profiles: repository.NewProfileRepository(db),
			users:    repository.NewUserRepository(db),
		}
	}

	if rdb != nil {
		b.profiles = cache.NewProfileCache(b.profiles, rdb, cfg.Redis.ProfileCacheTTL, log)
	}

	// ==================== Initialize Layers ====================
	jwtManager := auth.NewJWTManager(cfg.JWT.Secret, cfg.JWT.Expiry)

	scorer := matching.NewScorer(
		matching.WithSimilarity(matching.NewTFIDFCosine(cfg.Match.MaxFeatures)),
		matching.WithMaxDistance(cfg.Match.MaxDistanceKM),
		matching.WithWeights(cfg.Match.Weights),
		matching.WithLogger(log),
	)

	// WebSocket Hub (with Redis Pub/Sub for horizontal scaling)
	hub := ws.NewHub(rdb, log)
	hubCtx, hubCancel := context.WithCancel(context.Background())
	defer hubCancel()
	go hub.Run(hubCtx)

	svc := service.NewMatchmakingService(b.chats, b.profiles, b.users, scorer, hub, service.Options{
		DefaultMaxMembers: cfg.PublicChat.DefaultMaxMembers,
		DefaultDuration:   cfg.PublicChat.DefaultDuration,
		MaxActivePerUser:  cfg.PublicChat.MaxActivePerUser,
		EnforceActiveCap:  cfg.PublicChat.EnforceActiveCap,
	}, log)

	if b.demo != nil {
		seedDemo(b.demo, svc, jwtManager, log)
	}

	// Handlers
	publicChatHandler := handler.NewPublicChatHandler(svc, log)
	wsHandler := handler.NewWSHandler(hub, svc, jwtManager, log)

	// ==================== Gin Router ====================
	if cfg.App.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logging(log))
	router.Use(middleware.CORSMiddleware(cfg.CORS.Origins))

	// Serve swagger.json at /docs/swagger.json to avoid conflict with /swagger/* wildcard
	router.StaticFile("/docs/swagger.json", "./docs/swagger.json")
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/docs/swagger.json")))

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": "publicchat-api",
			"store":   cfg.App.StoreDriver,
			"time":    time.Now().Format(time.RFC3339),
		})
	})

	// ==================== API Routes ====================
	api := router.Group("/api/v1")
	{
		protected := api.Group("")
		protected.Use(middleware.AuthMiddleware(jwtManager, redisOrNil(rdb), log))
		protected.Use(middleware.UserRateLimit(cfg.RateLimit.Requests, cfg.RateLimit.Window))
		publicChatHandler.RegisterRoutes(protected)

		// WebSocket live room (auth via query parameter)
		api.GET("/public-chat/:id/live", wsHandler.HandleLive)
	}

	// ==================== Start Server ====================
	srv := &http.Server{
		Addr:              ":" + cfg.App.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("❌ Server failed", zap.Error(err))
		}
	}()

	log.Info("🌐 Public Chat API running", zap.String("addr", "http://0.0.0.0:"+cfg.App.Port))
	log.Info("📋 API docs", zap.String("url", "http://0.0.0.0:"+cfg.App.Port+"/swagger/index.html"))
	log.Info("🔌 Live rooms", zap.String("url", "ws://0.0.0.0:"+cfg.App.Port+"/api/v1/public-chat/<id>/live?token=<jwt>"))

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("🛑 Shutting down server...")

	// Give ongoing requests 5 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("❌ Server forced to shutdown", zap.Error(err))
	}

	hubCancel()
	if rdb != nil {
		rdb.Close()
	}
	log.Info("✅ Server exited gracefully")
}

func openDatabase(cfg *config.Config, log *logger.Logger) *gorm.DB {
	gormLogger := gormlogger.Default.LogMode(gormlogger.Info)
	if cfg.App.IsProduction() {
		gormLogger = gormlogger.Default.LogMode(gormlogger.Warn)
	}

	db, err := gorm.Open(postgres.Open(cfg.DB.DSN()), &gorm.Config{
		Logger: gormLogger,
	})
	if err != nil {
		log.Fatal("❌ Failed to connect to database", zap.Error(err))
	}
	log.Info("✅ Connected to PostgreSQL", zap.String("host", cfg.DB.Host), zap.String("db", cfg.DB.Name))

	if err := migrations.Run(cfg.DB.URL(), log); err != nil {
		log.Fatal("❌ Failed to migrate database", zap.Error(err))
	}
	return db
}

// redisOrNil keeps a nil *redis.Client from becoming a non-nil interface
func redisOrNil(rdb *redis.Client) redis.Cmdable {
	if rdb == nil {
		return nil
	}
	return rdb
}

func seedDemo(store *memory.Store, svc *service.MatchmakingService, jwtManager *auth.JWTManager, log *logger.Logger) {
	res, err := seed.Run(context.Background(), store, svc, time.Now())
	if err != nil {
		log.Fatal("❌ Failed to load demo data", zap.Error(err))
	}
	for _, u := range res.Users {
		token, err := jwtManager.GenerateToken(u.ID, u.Username)
		if err != nil {
			continue
		}
		log.Info("🌱 Demo user", zap.String("username", u.Username), zap.String("user_id", u.ID.String()), zap.String("token", token))
	}
	log.Info("🌱 Demo data loaded", zap.Int("users", len(res.Users)), zap.Int("chats", len(res.Chats)))
}
