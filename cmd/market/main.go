// market 是客户端状态同步引擎：订阅商品与订单的变更源、接收实时推送、
// 聚合通知，并通过本地控制面暴露目录视图投影、下单与商品上架能力。
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

	authapp "github.com/wyfcoding/farmhub/internal/auth/application"
	authdomain "github.com/wyfcoding/farmhub/internal/auth/domain"
	catalogapp "github.com/wyfcoding/farmhub/internal/catalog/application"
	catalogdomain "github.com/wyfcoding/farmhub/internal/catalog/domain"
	catalogfeed "github.com/wyfcoding/farmhub/internal/catalog/infrastructure/feed"
	"github.com/wyfcoding/farmhub/internal/catalog/infrastructure/upload"
	gatewayhttp "github.com/wyfcoding/farmhub/internal/gateway/http"
	notifapp "github.com/wyfcoding/farmhub/internal/notification/application"
	notifdomain "github.com/wyfcoding/farmhub/internal/notification/domain"
	"github.com/wyfcoding/farmhub/internal/notification/infrastructure/push"
	orderapp "github.com/wyfcoding/farmhub/internal/order/application"
	"github.com/wyfcoding/farmhub/internal/order/infrastructure/command"
	"github.com/wyfcoding/farmhub/pkg/cache"
	"github.com/wyfcoding/farmhub/pkg/config"
	"github.com/wyfcoding/farmhub/pkg/logger"
	"github.com/wyfcoding/farmhub/pkg/metrics"
)

func main() {
	configPath := flag.String("config", "configs/market.toml", "path to config file")
	listenAddr := flag.String("listen", ":8080", "local control plane listen address")
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
	logger.Info(ctx, "starting market engine",
		"service", cfg.ServiceName,
		"environment", cfg.Environment,
	)

	m := metrics.New("market")

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

	feed := catalogfeed.NewRedisChangeFeed(redisCache, cfg.Feed.Namespace)

	store := catalogapp.NewStore(feed, m)
	if err := store.Start(ctx); err != nil {
		logger.Error(ctx, "failed to start catalog store", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	notifier := notifapp.NewAggregator(
		notifapp.WithToastTTL(time.Duration(cfg.Toast.TTL)*time.Millisecond),
		notifapp.WithMetrics(m),
	)
	defer notifier.Close()

	// 本地快照对比发现的新商品同样进入通知流
	store.OnProductAdded(func(p catalogdomain.Product) {
		notifier.Publish(notifdomain.Event{
			Kind:      notifdomain.EventProductUploaded,
			Message:   fmt.Sprintf("New product added: %s", p.Name),
			Timestamp: time.Now().UTC(),
		})
	})

	channel := push.NewChannel(push.Config{
		URL:               cfg.Push.URL,
		ReconnectDelay:    time.Duration(cfg.Push.ReconnectDelay) * time.Millisecond,
		ReconnectMaxDelay: time.Duration(cfg.Push.ReconnectMaxDelay) * time.Millisecond,
	}, notifier.Publish, m)
	channel.Connect()
	defer channel.Close()

	session := authapp.NewSessionManager()
	session.OnChange(func(identity *authdomain.Identity) {
		uid := ""
		if identity != nil {
			uid = identity.UID
		}
		if err := store.SetBuyer(ctx, uid); err != nil {
			logger.Error(ctx, "failed to rescope order subscription", "uid", uid, "error", err)
		}
	})
	if uid := config.GetEnv("FARMHUB_UID", ""); uid != "" {
		session.SetIdentity(&authdomain.Identity{UID: uid})
	}

	commandTimeout := time.Duration(cfg.API.CommandTimeout) * time.Second
	composer := catalogapp.NewComposer(
		upload.NewClient(cfg.API.BaseURL, commandTimeout),
		session,
		m,
	)
	coordinator := orderapp.NewCoordinator(
		store,
		command.NewClient(cfg.API.BaseURL, commandTimeout),
		session,
		notifier,
		m,
		commandTimeout,
	)

	handler := gatewayhttp.NewHandler(store, composer, coordinator, notifier, session, cfg.API.BaseURL)

	if cfg.Environment == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	handler.RegisterRoutes(engine, m)

	server := &http.Server{
		Addr:         *listenAddr,
		Handler:      engine,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info(ctx, "control plane listening", "addr", *listenAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error(ctx, "control plane failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info(ctx, "shutting down market engine")
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error(ctx, "server shutdown failed", "error", err)
	}
	logger.Info(ctx, "market engine stopped")
}
