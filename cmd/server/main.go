package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/qs3c/khip_server/config"
	"github.com/qs3c/khip_server/internal/api"
	"github.com/qs3c/khip_server/internal/api/handler"
	"github.com/qs3c/khip_server/internal/database"
	"github.com/qs3c/khip_server/internal/pkg/authclient"
	"github.com/qs3c/khip_server/internal/pkg/cron"
	"github.com/qs3c/khip_server/internal/pkg/email"
	"github.com/qs3c/khip_server/internal/pkg/logger"
	"github.com/qs3c/khip_server/internal/pkg/news"
	"github.com/qs3c/khip_server/internal/pkg/oauth"
	"github.com/qs3c/khip_server/internal/pkg/oss"
	"github.com/qs3c/khip_server/internal/pkg/pubsub"
	"github.com/qs3c/khip_server/internal/pkg/queue"
	"github.com/qs3c/khip_server/internal/pkg/tokenstore"
	"github.com/qs3c/khip_server/internal/pkg/ws"
	"github.com/qs3c/khip_server/internal/repository"
	"github.com/qs3c/khip_server/internal/service"
	"github.com/qs3c/khip_server/internal/worker"
)

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}

	// 加载配置
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zlog, err := logger.New(cfg.Log.Level)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer zlog.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 初始化数据库
	db, err := database.Open(&cfg.Database)
	if err != nil {
		zlog.Fatal("failed to connect database", zap.Error(err))
	}
	zlog.Info("database connected", zap.String("driver", cfg.Database.Driver))

	// 初始化 Redis
	rdb, err := database.NewRedis(&cfg.Redis)
	if err != nil {
		zlog.Fatal("failed to connect redis", zap.Error(err))
	}
	zlog.Info("redis connected")

	// 购买记录存储
	backend, err := repository.NewBackendFromConfig(cfg.Store, db, rdb)
	if err != nil {
		zlog.Fatal("failed to init purchase store", zap.Error(err))
	}
	purchaseRepo, err := repository.NewPurchaseRepository(ctx, backend, zlog.Named("purchases"),
		repository.WithStrictTransitions(cfg.Entitlement.StrictTransitions))
	if err != nil {
		zlog.Fatal("failed to load purchases", zap.Error(err))
	}
	userRepo := repository.NewUserRepository(db)

	publisher := pubsub.NewPublisher(rdb)
	reportQueue := queue.NewQueue(rdb, cfg.Queue.ReportQueue)
	tokens := tokenstore.NewStore(rdb)

	// OSS 可选
	var uploader service.ReportUploader
	if cfg.OSS.Endpoint != "" && cfg.OSS.AccessKeyID != "" {
		ossClient, err := oss.NewClient(&cfg.OSS)
		if err != nil {
			zlog.Warn("failed to init oss client, report upload disabled", zap.Error(err))
		} else {
			uploader = ossClient
			zlog.Info("oss client initialized")
		}
	}

	var mailer email.Sender
	if cfg.Email.SMTPHost != "" {
		mailer = email.NewService(&cfg.Email)
	}

	// 初始化 Service
	entitlementService := service.NewEntitlementService(purchaseRepo, zlog.Named("entitlement"), nil)
	orderService := service.NewOrderService(
		purchaseRepo,
		entitlementService,
		publisher,
		reportQueue,
		uploader,
		cfg.Pricing,
		zlog.Named("orders"),
	)
	authService := service.NewAuthService(
		userRepo,
		authclient.NewClient(cfg.AuthBackend.BaseURL, time.Duration(cfg.AuthBackend.TimeoutSeconds)*time.Second, zlog.Named("authclient")),
		oauth.NewGoogleProfile(cfg.AuthBackend.GoogleUserinfoURL),
		tokens,
		mailer,
		entitlementService,
		cfg,
		zlog.Named("auth"),
	)

	// WebSocket 推送
	hub := ws.NewHub(zlog.Named("ws"))
	go func() {
		err := pubsub.NewSubscriber(rdb).Subscribe(ctx, func(event *pubsub.PurchaseEvent) {
			if err := hub.SendToUser(event.UserID, &ws.Message{Type: event.Type, Data: event}); err != nil {
				zlog.Warn("failed to push purchase event", zap.String("user_id", event.UserID), zap.Error(err))
			}
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			zlog.Error("purchase event subscription stopped", zap.Error(err))
		}
	}()

	// 到期提醒
	expiryNotice := cron.NewService(purchaseRepo, publisher, rdb, cfg.Entitlement.ExpiryNoticeHours, zlog.Named("cron"))
	expiryNotice.Start()
	defer expiryNotice.Stop()

	// 报告任务
	workers := worker.NewPool(reportQueue, worker.NewProcessor(orderService, zlog.Named("worker")),
		cfg.Queue.MaxWorkers, zlog.Named("worker"))
	workers.Start(ctx)
	defer workers.Stop()

	router := api.NewRouter(api.Handlers{
		Auth:        handler.NewAuthHandler(authService),
		User:        handler.NewUserHandler(service.NewUserService(userRepo, entitlementService, cfg)),
		Purchase:    handler.NewPurchaseHandler(orderService),
		Entitlement: handler.NewEntitlementHandler(entitlementService),
		Report:      handler.NewReportHandler(orderService, entitlementService),
		Admin:       handler.NewAdminHandler(orderService, cfg.Upload),
		News:        handler.NewNewsHandler(news.NewClient(cfg.Naver, nil, zlog.Named("news")), zlog.Named("news")),
		Products:    handler.NewProductsHandler(cfg.Pricing),
		WebSocket:   handler.NewWebSocketHandler(hub, cfg.JWT.Secret, tokens, zlog.Named("ws")),
	}, entitlementService, tokens, zlog.Named("http"), cfg)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router.Setup(),
	}

	go func() {
		zlog.Info("server starting", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Fatal("failed to start server", zap.Error(err))
		}
	}()

	// 监听退出信号
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	zlog.Info("received shutdown signal")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Error("server shutdown failed", zap.Error(err))
	}
	cancel()
	zlog.Info("server stopped")
}
