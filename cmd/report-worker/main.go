// report-worker 消費 movement 異動事件，並預先計算財務報表快取
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cashflow/internal/cache"
	"cashflow/internal/config"
	"cashflow/internal/database"
	"cashflow/internal/events"
	"cashflow/internal/logging"
	"cashflow/internal/service"
)

type consumer interface {
	Consume(ctx context.Context, handler events.Handler) error
	Close() error
}

var (
	loadConfig     = config.LoadWorker
	newPgxPool     = database.NewPgxPool
	newRedisClient = cache.NewRedisClient
	dialConsumer   = func(url, exchange, queue string) (consumer, error) {
		return events.Dial(url, exchange, queue)
	}
	warmReports = service.WarmFinancialReports
	timeNow     = time.Now
	exitFunc    = os.Exit
)

// warmHandler 每收到一個事件就重新計算預設期間的報表
func warmHandler(db database.DB, rc cache.Cache, ttl time.Duration) events.Handler {
	return func(ctx context.Context, e events.MovementEvent) error {
		start := timeNow()
		if err := warmReports(ctx, db, rc, ttl, start); err != nil {
			return err
		}
		slog.InfoContext(ctx, "報表快取已更新",
			"action", e.Action,
			"movement_id", e.MovementID,
			"elapsed_ms", timeNow().Sub(start).Milliseconds())
		return nil
	}
}

func run(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("設定載入失敗: %w", err)
	}
	logging.Setup(cfg.LogLevel)

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

	c, err := dialConsumer(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		return fmt.Errorf("AMQP 連線失敗: %w", err)
	}
	defer c.Close()

	// 啟動時先暖一次，避免第一個請求落空
	if err := warmReports(ctx, db, rc, cfg.ReportCacheTTL, timeNow()); err != nil {
		slog.WarnContext(ctx, "initial report warmup failed", "error", err)
	}

	err = c.Consume(ctx, warmHandler(db, rc, cfg.ReportCacheTTL))
	if errors.Is(err, context.Canceled) {
		slog.Info("report-worker 停止")
		return nil
	}
	return err
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx); err != nil {
		slog.Error("report-worker exited", "error", err)
		exitFunc(1)
	}
}
