// @title        Cashflow API
// @version      1.0
// @description  收支紀錄、使用者管理與財務報表的後端 API 文件
// @host         localhost:8080
// @BasePath     /api
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name Authorization
// @securityDefinitions.oauth2.application OAuth2Application
// @tokenUrl /api/oauth/token
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cashflow/internal/cache"
	"cashflow/internal/config"
	"cashflow/internal/database"
	"cashflow/internal/events"
	"cashflow/internal/handler/auth"
	"cashflow/internal/logging"
	"cashflow/internal/metrics"
	appmw "cashflow/internal/middleware"
	"cashflow/internal/router"
	"cashflow/internal/service"
	"cashflow/internal/worker"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	_ "cashflow/docs" // 引入 swag 產出的 docs
)

const shutdownTimeout = 15 * time.Second

// CustomValidator wraps go-playground/validator for Echo
// swagger:ignore
type CustomValidator struct {
	validator *validator.Validate
}

// Validate calls the underlying validator
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}

var (
	loadConfig      = config.Load
	newPgxPool      = database.NewPgxPool
	newRedisClient  = cache.NewRedisClient
	runMigrationsFn = database.RunMigrations
	newWorkerPool   = worker.NewPool
	dialEvents      = func(url, exchange, queue string) (events.Publisher, error) {
		return events.Dial(url, exchange, queue)
	}
	startServer    = func(e *echo.Echo, addr string) error { return e.Start(addr) }
	shutdownServer = func(ctx context.Context, e *echo.Echo) error { return e.Shutdown(ctx) }
	exitFunc       = os.Exit
)

func newEcho(cfg config.Config, logger *slog.Logger, m *metrics.Metrics) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = &CustomValidator{validator: validator.New()}

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(m.Middleware())
	e.Use(logging.RequestLogger(logger, appmw.UserID))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		AllowCredentials: true,
	}))
	e.Use(middleware.Secure())
	e.Use(middleware.RateLimiter(middleware.NewRateLimiterMemoryStore(rate.Limit(cfg.RateLimit))))
	return e
}

func run(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("設定載入失敗: %w", err)
	}
	logger := logging.Setup(cfg.LogLevel)

	db, err := newPgxPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("DB 連線失敗: %w", err)
	}
	defer db.Close()

	rc, err := newRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return fmt.Errorf("Redis 連線失敗: %w", err)
	}
	defer rc.Close()

	if err := runMigrationsFn(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("Migration 執行失敗: %w", err)
	}

	wp := newWorkerPool(cfg.WorkerCount)
	defer wp.Stop()

	var publisher events.Publisher = events.NopPublisher{}
	if cfg.EventsEnabled() {
		publisher, err = dialEvents(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			return fmt.Errorf("AMQP 連線失敗: %w", err)
		}
	}
	defer publisher.Close()

	m := metrics.New()
	e := newEcho(cfg, logger, m)
	router.Setup(e, router.Deps{
		DB:       db,
		Cache:    rc,
		Provider: service.NewGitHubProvider(cfg.GitHubClientID, cfg.GitHubClientSecret, cfg.GitHubRedirectURL),
		Notifier: events.NewNotifier(rc, publisher, wp),
		Metrics:  m,
		Auth: auth.Config{
			SessionTTL:   cfg.SessionTTL,
			FrontendURL:  cfg.FrontendURL,
			DefaultRole:  cfg.DefaultRole,
			CookieSecure: cfg.CookieSecure,
		},
		ReportCacheTTL: cfg.ReportCacheTTL,
	})

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP 伺服器啟動", "addr", cfg.HTTPAddress(), "events", cfg.EventsEnabled())
		errCh <- startServer(e, cfg.HTTPAddress())
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP 伺服器錯誤: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("收到停止訊號，關閉伺服器")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := shutdownServer(shutdownCtx, e); err != nil {
		return fmt.Errorf("伺服器關閉失敗: %w", err)
	}
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx); err != nil {
		slog.Error("service exited", "error", err)
		exitFunc(1)
	}
}
