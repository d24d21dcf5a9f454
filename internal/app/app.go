// Package app は通知サービスを構成する部品を組み立て、HTTPサーバーとして起動する。
//
// レジストリと通知サービスはプロセスで1つだけ生成し、
// すべてのプロデューサーとトランスポートで共有する。
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hashicorp/go-multierror"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/nao1215/market/internal/market"
	"github.com/nao1215/market/internal/notification"
	"github.com/nao1215/market/internal/producer"
	"github.com/nao1215/market/internal/registry"
	"github.com/nao1215/market/internal/ws"
	"github.com/nao1215/market/pkg/config"
	"github.com/nao1215/market/pkg/httpclient"
	"github.com/nao1215/market/pkg/middleware"
)

// shutdownTimeout はグレースフルシャットダウンの待ち時間。
const shutdownTimeout = 10 * time.Second

// App は通知サービスのHTTPサーバー。
type App struct {
	cfg    config.Config
	logger *zap.Logger
	router *gin.Engine

	registry          *registry.Registry
	notificationStore *notification.SQLiteStore
	marketStore       *market.Store
}

// New は設定に従って依存を組み立て、ルーティングを設定したAppを生成する。
func New(cfg config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	notificationStore, err := notification.NewSQLiteStore(cfg.NotificationDBPath, logger.Named("notification"))
	if err != nil {
		return nil, fmt.Errorf("通知ストアの初期化に失敗: %w", err)
	}
	marketStore, err := market.NewStore(cfg.MarketDBPath, logger.Named("market"))
	if err != nil {
		notificationStore.Close()
		return nil, fmt.Errorf("マーケットストアの初期化に失敗: %w", err)
	}

	metrics := prometheus.NewRegistry()
	metrics.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	reg := registry.New(logger.Named("registry"), registry.WithMetrics(registry.NewMetrics(metrics)))
	notifications := notification.NewService(notificationStore, reg, logger.Named("notification"))

	var lookup producer.EntityLookup = marketStore
	if cfg.MarketURL != "" {
		lookup = producer.NewRemoteLookup(httpclient.New(cfg.MarketURL, httpclient.WithTimeout(5*time.Second)))
	}
	if cfg.OwnerCacheTTL > 0 {
		lookup = producer.NewCachedLookup(lookup, cfg.OwnerCacheTTL)
	}

	comments := producer.NewCommentProducer(lookup, marketStore, notifications, logger.Named("producer"))
	prices := producer.NewPriceProducer(marketStore, marketStore, notifications, logger.Named("producer"),
		producer.WithConcurrency(cfg.FanOutConcurrency))

	a := &App{
		cfg:               cfg,
		logger:            logger,
		router:            gin.New(),
		registry:          reg,
		notificationStore: notificationStore,
		marketStore:       marketStore,
	}
	a.setupRoutes(
		notification.NewHandler(notifications, logger.Named("notification")),
		market.NewHandler(marketStore, comments, prices, logger.Named("market")),
		ws.NewHandler(reg, wsConfig(cfg), logger.Named("ws")),
		metrics,
	)
	return a, nil
}

func wsConfig(cfg config.Config) ws.Config {
	return ws.Config{
		WriteWait:      cfg.WS.WriteWait,
		PongWait:       cfg.WS.PongWait,
		PingPeriod:     cfg.WS.PingPeriod,
		SendBuffer:     cfg.WS.SendBuffer,
		MaxMessageSize: cfg.WS.MaxMessageSize,
		AllowedOrigins: cfg.AllowedOrigins,
	}
}

// setupRoutes はAPIルーティングを設定する。
func (a *App) setupRoutes(notifications *notification.Handler, mk *market.Handler, socket *ws.Handler, metrics *prometheus.Registry) {
	a.router.Use(middleware.Recovery(a.logger))
	a.router.Use(middleware.RequestLogger(a.logger.Named("http")))
	a.router.Use(middleware.CORS(a.cfg.AllowedOrigins))

	auth := middleware.JWTAuth(a.cfg.JWTSecret)

	api := a.router.Group("/api/v1")
	api.Use(auth)
	notifications.RegisterRoutes(api)
	mk.RegisterRoutes(api)

	// 内部API（サービス間通信用、認証なし）
	mk.RegisterInternalRoutes(a.router)

	// リアルタイム通知の購読
	a.router.GET("/ws", auth, socket.Serve)

	a.router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(metrics, promhttp.HandlerOpts{})))

	// ヘルスチェック
	a.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":      "ok",
			"service":     "notification",
			"connections": a.registry.Len(),
		})
	})
}

// Handler はルーティング済みのHTTPハンドラを返す。
func (a *App) Handler() http.Handler {
	return a.router
}

// Run はHTTPサーバーを起動し、ctxがキャンセルされるとグレースフルシャットダウンする。
func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              ":" + a.cfg.Port,
		Handler:           a.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.logger.Info("通知サービスを起動します", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTPサーバーの起動に失敗: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		a.logger.Info("通知サービスを停止します")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// Close はデータベース接続を閉じる。
func (a *App) Close() error {
	var result *multierror.Error
	if err := a.notificationStore.Close(); err != nil {
		result = multierror.Append(result, fmt.Errorf("通知ストア: %w", err))
	}
	if err := a.marketStore.Close(); err != nil {
		result = multierror.Append(result, fmt.Errorf("マーケットストア: %w", err))
	}
	return result.ErrorOrNil()
}
