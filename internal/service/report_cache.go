package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"cashflow/internal/cache"
	"cashflow/internal/database"

	"github.com/redis/go-redis/v9"
)

// reportGenKey 每次 movement 異動時遞增，舊世代的快取自然失效
const reportGenKey = "report:gen"

var (
	buildFinancialReport = BuildFinancialReport
	warmPeriods          = []string{"", "week", "month", "year"}
)

func financialReportKey(gen int64, q ReportQuery) string {
	return fmt.Sprintf("report:financial:%d:%s:%s:%s", gen, q.Period, q.StartDate, q.EndDate)
}

func reportGeneration(ctx context.Context, c cache.Cache) (int64, error) {
	gen, err := c.Get(ctx, reportGenKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

// CachedFinancialReport 先查 Redis，未命中才計算並寫回。
// Redis 出錯時直接計算，不讓快取影響回應
func CachedFinancialReport(ctx context.Context, db database.DB, c cache.Cache, q ReportQuery, ttl time.Duration, now time.Time) (*FinancialReport, error) {
	gen, err := reportGeneration(ctx, c)
	if err != nil {
		slog.WarnContext(ctx, "report cache unavailable", "error", err)
		return buildFinancialReport(ctx, db, q, now)
	}
	key := financialReportKey(gen, q)

	raw, err := c.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var report FinancialReport
		if err := jsonUnmarshal(raw, &report); err == nil {
			return &report, nil
		}
		slog.WarnContext(ctx, "discarding corrupt cached report", "key", key)
	case !errors.Is(err, redis.Nil):
		slog.WarnContext(ctx, "report cache read failed", "key", key, "error", err)
	}

	report, err := buildFinancialReport(ctx, db, q, now)
	if err != nil {
		return nil, err
	}
	if raw, err := jsonMarshal(report); err == nil {
		if err := c.Set(ctx, key, raw, ttl).Err(); err != nil {
			slog.WarnContext(ctx, "report cache write failed", "key", key, "error", err)
		}
	}
	return report, nil
}

// InvalidateReports 使所有已快取的報表失效
func InvalidateReports(ctx context.Context, c cache.Cache) error {
	if err := c.Incr(ctx, reportGenKey).Err(); err != nil {
		return fmt.Errorf("InvalidateReports: %w", err)
	}
	return nil
}

// WarmFinancialReports 預先計算預設期間的報表
func WarmFinancialReports(ctx context.Context, db database.DB, c cache.Cache, ttl time.Duration, now time.Time) error {
	for _, p := range warmPeriods {
		if _, err := CachedFinancialReport(ctx, db, c, ReportQuery{Period: p}, ttl, now); err != nil {
			return fmt.Errorf("WarmFinancialReports %q: %w", p, err)
		}
	}
	return nil
}
