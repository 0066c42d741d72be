// farmsim 是权威市场端：承接商品上架与下单命令，落库后回灌变更订阅源、
// 广播实时事件并向 Kafka 发布领域事件。开发环境里它就是客户端依赖的后端。
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	catalogfeed "github.com/wyfcoding/farmhub/internal/catalog/infrastructure/feed"
	"github.com/wyfcoding/farmhub/internal/farmsim/application"
	"github.com/wyfcoding/farmhub/internal/farmsim/domain"
	"github.com/wyfcoding/farmhub/internal/farmsim/infrastructure/messaging"
	"github.com/wyfcoding/farmhub/internal/farmsim/infrastructure/persistence/mysql"
	farmhttp "github.com/wyfcoding/farmhub/internal/farmsim/interfaces/http"
	"github.com/wyfcoding/farmhub/internal/farmsim/interfaces/ws"
	"github.com/wyfcoding/farmhub/pkg/cache"
	"github.com/wyfcoding/farmhub/pkg/config"
	"github.com/wyfcoding/farmhub/pkg/db"
	"github.com/wyfcoding/farmhub/pkg/logger"
	"github.com/wyfcoding/farmhub/pkg/metrics"
	"github.com/wyfcoding/farmhub/pkg/mq"
)

func main() {
	configPath := flag.String("config", "configs/farmsim.toml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Logger); err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	logger.Info(ctx, "starting farmsim",
		"service", cfg.ServiceName,
		"environment", cfg.Environment,
	)

	m := metrics.New("farmsim")

	database, err := db.Init(db.Config{
		Driver:             cfg.Database.Driver,
		DSN:                cfg.Database.DSN,
		MaxOpenConns:       cfg.Database.MaxOpenConns,
		MaxIdleConns:       cfg.Database.MaxIdleConns,
		ConnMaxLifetime:    cfg.Database.ConnMaxLifetime,
		LogEnabled:         cfg.Database.LogEnabled,
		SlowQueryThreshold: cfg.Database.SlowQueryThreshold,
	})
	if err != nil {
		logger.Error(ctx, "failed to init database", "error", err)
		os.Exit(1)
	}
	defer database.Close()

	if err := mysql.AutoMigrate(database.DB); err != nil {
		logger.Error(ctx, "failed to migrate database", "error", err)
		os.Exit(1)
	}

	redisCache, err := cache.New(cache.Config{
		Host:         cfg.Feed.Host,
		Port:         cfg.Feed.Port,
		Password:     cfg.Feed.Password,
		DB:           cfg.Feed.DB,
		MaxPoolSize:  cfg.Feed.MaxPoolSize,
		ReadTimeout:  cfg.Feed.ReadTimeout,
		WriteTimeout: cfg.Feed.WriteTimeout,
	})
	if err != nil {
		logger.Error(ctx, "failed to connect redis", "error", err)
		os.Exit(1)
	}
	defer redisCache.Close()

	feedWriter := catalogfeed.NewRedisChangeFeed(redisCache, cfg.Feed.Namespace)

	var events domain.EventPublisher
	if len(cfg.Kafka.Brokers) > 0 {
		producer, err := mq.NewProducer(mq.KafkaConfig{
			Brokers:      cfg.Kafka.Brokers,
			MaxRetries:   cfg.Kafka.MaxRetries,
			RetryBackoff: cfg.Kafka.RetryBackoff,
		})
		if err != nil {
			logger.Error(ctx, "failed to create kafka producer", "error", err)
			os.Exit(1)
		}
		defer producer.Close()
		events = messaging.NewKafkaEventPublisher(producer, cfg.Kafka.Topic)
	} else {
		logger.Warn(ctx, "kafka brokers not configured, event publishing disabled")
		events = messaging.NoopEventPublisher{}
	}

	hub := ws.NewHub()
	defer hub.Close()

	if err := os.MkdirAll(cfg.UploadDir, 0o755); err != nil {
		logger.Error(ctx, "failed to create upload dir", "dir", cfg.UploadDir, "error", err)
		os.Exit(1)
	}

	service := application.NewMarketService(
		mysql.NewProductRepository(database.DB),
		mysql.NewOrderRepository(database.DB),
		feedWriter,
		hub,
		events,
	)
	handler := farmhttp.NewHandler(service, cfg.UploadDir)

	if cfg.Environment == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	handler.RegisterRoutes(engine, hub.HandleWS, m)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      engine,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info(ctx, "http server listening", "addr", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error(ctx, "http server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info(ctx, "shutting down farmsim")
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error(ctx, "server shutdown failed", "error", err)
	}
	logger.Info(ctx, "farmsim stopped")
}
