package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fekuna/omnipos-catalog-service/config"
	"github.com/fekuna/omnipos-catalog-service/internal/database/postgres"
	"github.com/fekuna/omnipos-catalog-service/internal/lock"
	"github.com/fekuna/omnipos-catalog-service/internal/logger"
	"github.com/fekuna/omnipos-catalog-service/internal/order"
	"github.com/fekuna/omnipos-catalog-service/internal/reconcile"
	mysqlsource "github.com/fekuna/omnipos-catalog-service/internal/source/mysql"

	cartRepoPkg "github.com/fekuna/omnipos-catalog-service/internal/cart/repository"

	catH "github.com/fekuna/omnipos-catalog-service/internal/category/handler"
	catRepoPkg "github.com/fekuna/omnipos-catalog-service/internal/category/repository"
	catUCPkg "github.com/fekuna/omnipos-catalog-service/internal/category/usecase"

	invH "github.com/fekuna/omnipos-catalog-service/internal/inventory/handler"
	invRepoPkg "github.com/fekuna/omnipos-catalog-service/internal/inventory/repository"
	invUCPkg "github.com/fekuna/omnipos-catalog-service/internal/inventory/usecase"

	orderH "github.com/fekuna/omnipos-catalog-service/internal/order/handler"
	orderPubPkg "github.com/fekuna/omnipos-catalog-service/internal/order/publisher"
	orderRepoPkg "github.com/fekuna/omnipos-catalog-service/internal/order/repository"
	orderUCPkg "github.com/fekuna/omnipos-catalog-service/internal/order/usecase"

	prodH "github.com/fekuna/omnipos-catalog-service/internal/product/handler"
	prodRepoPkg "github.com/fekuna/omnipos-catalog-service/internal/product/repository"
	prodUCPkg "github.com/fekuna/omnipos-catalog-service/internal/product/usecase"

	syncH "github.com/fekuna/omnipos-catalog-service/internal/reconcile/handler"
	syncListenerPkg "github.com/fekuna/omnipos-catalog-service/internal/reconcile/listener"
	syncSchedulerPkg "github.com/fekuna/omnipos-catalog-service/internal/reconcile/scheduler"
	syncUCPkg "github.com/fekuna/omnipos-catalog-service/internal/reconcile/usecase"

	storeH "github.com/fekuna/omnipos-catalog-service/internal/store/handler"
	storeRepoPkg "github.com/fekuna/omnipos-catalog-service/internal/store/repository"
	storeUCPkg "github.com/fekuna/omnipos-catalog-service/internal/store/usecase"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

func main() {
	// 1. Load Configuration
	_ = godotenv.Load()
	cfg := config.LoadEnv()

	// 2. Initialize Logger
	logConfig := &logger.ZapLoggerConfig{
		Encoding:          cfg.Logger.Encoding,
		Level:             cfg.Logger.Level,
		DisableCaller:     cfg.Logger.DisableCaller,
		DisableStacktrace: cfg.Logger.DisableStacktrace,
	}
	if cfg.Server.AppEnv == "development" || cfg.Server.AppEnv == "dev" {
		logConfig.IsDevelopment = true
	}

	appLogger := logger.NewZapLogger(logConfig)
	defer appLogger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Telemetry
	shutdownTelemetry, err := initTelemetry(ctx, &cfg.Otel)
	if err != nil {
		appLogger.Fatal("Could not initialize telemetry", zap.Error(err))
	}
	defer func() {
		if err := shutdownTelemetry(context.Background()); err != nil {
			appLogger.Warn("Telemetry shutdown failed", zap.Error(err))
		}
	}()

	// 4. Connect to Database
	db, err := postgres.NewPostgres(ctx, &cfg.Postgres)
	if err != nil {
		appLogger.Fatal("Could not connect to database", zap.Error(err))
	}
	defer db.Close()
	appLogger.Info("Connected to PostgreSQL database", zap.String("db_name", cfg.Postgres.DBName))

	if cfg.Postgres.AutoMigrate {
		if err := postgres.Migrate(ctx, db); err != nil {
			appLogger.Fatal("Could not migrate database", zap.Error(err))
		}
	}

	// 5. Initialize Repositories
	txManager := postgres.NewTxManager(db)
	storeRepo := storeRepoPkg.NewPGRepository(db)
	catRepo := catRepoPkg.NewPGRepository(db)
	prodRepo := prodRepoPkg.NewPGRepository(db)
	invRepo := invRepoPkg.NewPGRepository(db)
	cartRepo := cartRepoPkg.NewPGRepository(db)
	orderRepo := orderRepoPkg.NewPGRepository(db)

	// 6. Initialize Redis. Without it lists are not cached and replicas do not
	// coordinate sync runs.
	var (
		listCache redis.Cmdable
		syncLock  lock.Locker
	)
	if cfg.Redis.Enabled {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()

		if err := redisClient.Ping(ctx).Err(); err != nil {
			appLogger.Warn("Redis unreachable, running without cache and sync lock", zap.Error(err))
		} else {
			listCache = redisClient
			syncLock = lock.NewRedisLocker(redisClient)
			appLogger.Info("Connected to Redis", zap.String("addr", cfg.Redis.Addr))
		}
	}

	// 7. Initialize Kafka producer
	var publisher order.Publisher
	if cfg.Kafka.Enabled {
		kafkaPublisher := orderPubPkg.NewKafkaPublisher(orderPubPkg.NewKafkaWriter(&cfg.Kafka))
		defer kafkaPublisher.Close()
		publisher = kafkaPublisher
		appLogger.Info("Kafka publisher ready", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.Topic))
	}

	// 8. Initialize UseCases
	storeUC := storeUCPkg.NewStoreUseCase(storeRepo, appLogger)
	catUC := catUCPkg.NewCategoryUseCase(catRepo, appLogger)
	prodUC := prodUCPkg.NewProductUseCase(prodRepo, catRepo, invRepo, listCache, appLogger)
	invUC := invUCPkg.NewInventoryUseCase(invRepo, appLogger)
	orderUC := orderUCPkg.NewOrderUseCase(txManager, orderRepo, cartRepo, invRepo, storeRepo, publisher, appLogger)

	syncUC := syncUCPkg.NewSyncUseCase(syncUCPkg.Deps{
		Source:     mysqlsource.NewClient(&cfg.Source, appLogger),
		Tx:         txManager,
		Stores:     storeRepo,
		Categories: catRepo,
		Products:   prodRepo,
		Stock:      invRepo,
		Locker:     syncLock,
		Cache:      prodUC,
	}, syncUCPkg.Options{
		BatchSize:           cfg.Sync.BatchSize,
		DefaultCategoryIcon: cfg.Sync.DefaultCategoryIcon,
		DefaultProductImage: cfg.Sync.DefaultProductImage,
		LockTTL:             cfg.Sync.LockTTL,
	}, appLogger)

	// 9. Background workers
	go syncSchedulerPkg.NewScheduler(syncUC, cfg.Sync.Interval, appLogger).Start(ctx)
	startSyncListener(ctx, cfg, syncUC, appLogger)

	// 10. Initialize Handlers
	if !logConfig.IsDevelopment {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), otelgin.Middleware(cfg.Otel.ServiceName))
	router.GET("/health", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api/v1")
	admin := api.Group("/admin")

	storeH.NewStoreHandler(storeUC, appLogger).RegisterRoutes(api, admin)
	catH.NewCategoryHandler(catUC, appLogger).RegisterRoutes(api, admin)
	prodH.NewProductHandler(prodUC, appLogger).RegisterRoutes(api)
	invH.NewInventoryHandler(invUC, appLogger).RegisterRoutes(api)
	orderH.NewOrderHandler(orderUC, appLogger).RegisterRoutes(api, admin)
	syncH.NewSyncHandler(syncUC, appLogger).RegisterRoutes(admin)

	httpServer := &http.Server{
		Addr:              listenAddr(cfg.Server.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// 11. Start gRPC health server
	lis, err := net.Listen("tcp", listenAddr(cfg.Server.GRPCPort))
	if err != nil {
		appLogger.Fatal("failed to listen", zap.Error(err))
	}

	grpcServer := grpc.NewServer()
	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	reflection.Register(grpcServer)
	go watchDatabase(ctx, db, healthServer, appLogger)

	go func() {
		appLogger.Info("Starting gRPC server", zap.String("port", lis.Addr().String()))
		if err := grpcServer.Serve(lis); err != nil {
			appLogger.Fatal("failed to serve grpc", zap.Error(err))
		}
	}()

	go func() {
		appLogger.Info("Starting HTTP server", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Fatal("failed to serve http", zap.Error(err))
		}
	}()

	// Graceful Shutdown
	<-ctx.Done()
	appLogger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	healthServer.Shutdown()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("HTTP shutdown failed", zap.Error(err))
	}
	grpcServer.GracefulStop()
	appLogger.Info("Server stopped")
}

func startSyncListener(ctx context.Context, cfg *config.Config, uc reconcile.UseCase, log logger.ZapLogger) {
	if !cfg.Kafka.Enabled || cfg.Kafka.SyncTopic == "" {
		return
	}

	reader := syncListenerPkg.NewKafkaReader(&cfg.Kafka)
	listener := syncListenerPkg.NewSyncListener(reader, uc, log)
	go func() {
		defer reader.Close()
		listener.Start(ctx)
	}()
	log.Info("Listening for sync requests", zap.String("topic", cfg.Kafka.SyncTopic))
}

// watchDatabase keeps the gRPC health status in step with Postgres reachability.
func watchDatabase(ctx context.Context, db *sqlx.DB, hs *health.Server, log logger.ZapLogger) {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	serving := healthpb.HealthCheckResponse_UNKNOWN
	for {
		status := healthpb.HealthCheckResponse_SERVING
		if err := db.PingContext(ctx); err != nil {
			status = healthpb.HealthCheckResponse_NOT_SERVING
			if ctx.Err() == nil {
				log.Warn("Database ping failed", zap.Error(err))
			}
		}
		if status != serving {
			hs.SetServingStatus("", status)
			serving = status
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func listenAddr(port string) string {
	if !strings.Contains(port, ":") {
		return ":" + port
	}
	return port
}
