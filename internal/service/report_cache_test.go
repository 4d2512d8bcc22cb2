package service

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"cashflow/internal/cache"
	"cashflow/internal/database"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

// memCache 以 map 模擬 Redis 的 Get/Set/Incr
func memCache() (*cache.FakeCache, map[string]string) {
	data := map[string]string{}
	return &cache.FakeCache{
		GetFn: func(_ context.Context, key string) *redis.StringCmd {
			v, ok := data[key]
			if !ok {
				return redis.NewStringResult("", redis.Nil)
			}
			return redis.NewStringResult(v, nil)
		},
		SetFn: func(_ context.Context, key string, value any, _ time.Duration) *redis.StatusCmd {
			data[key] = string(value.([]byte))
			return redis.NewStatusResult("OK", nil)
		},
		IncrFn: func(_ context.Context, key string) *redis.IntCmd {
			n, _ := strconv.Atoi(data[key])
			n++
			data[key] = strconv.Itoa(n)
			return redis.NewIntResult(int64(n), nil)
		},
	}, data
}

func TestCachedFinancialReport(t *testing.T) {
	t.Cleanup(restoreGlobals)
	ctx := context.Background()
	fc, data := memCache()

	builds := 0
	buildFinancialReport = func(_ context.Context, _ database.DB, q ReportQuery, now time.Time) (*FinancialReport, error) {
		builds++
		return &FinancialReport{Period: "month", Summary: ReportSummary{TotalMovements: builds}, GeneratedAt: now}, nil
	}

	q := ReportQuery{Period: "month"}
	r, err := CachedFinancialReport(ctx, nil, fc, q, time.Minute, reportNow)
	require.NoError(t, err)
	require.Equal(t, 1, r.Summary.TotalMovements)
	require.Contains(t, data, "report:financial:0:month::")

	r, err = CachedFinancialReport(ctx, nil, fc, q, time.Minute, reportNow)
	require.NoError(t, err)
	require.Equal(t, 1, builds)
	require.Equal(t, 1, r.Summary.TotalMovements)
	require.True(t, r.GeneratedAt.Equal(reportNow))

	require.NoError(t, InvalidateReports(ctx, fc))
	r, err = CachedFinancialReport(ctx, nil, fc, q, time.Minute, reportNow)
	require.NoError(t, err)
	require.Equal(t, 2, builds)
	require.Equal(t, 2, r.Summary.TotalMovements)
	require.Contains(t, data, "report:financial:1:month::")
}

func TestCachedFinancialReportDegrades(t *testing.T) {
	t.Cleanup(restoreGlobals)
	ctx := context.Background()
	down := errors.New("down")
	buildFinancialReport = func(context.Context, database.DB, ReportQuery, time.Time) (*FinancialReport, error) {
		return &FinancialReport{Period: "all"}, nil
	}

	// Redis 無法連線時直接計算
	fc := &cache.FakeCache{GetFn: func(context.Context, string) *redis.StringCmd {
		return redis.NewStringResult("", down)
	}}
	r, err := CachedFinancialReport(ctx, nil, fc, ReportQuery{}, time.Minute, reportNow)
	require.NoError(t, err)
	require.Equal(t, "all", r.Period)

	// 快取內容損毀與寫入失敗
	fc = &cache.FakeCache{
		GetFn: func(_ context.Context, key string) *redis.StringCmd {
			if key == reportGenKey {
				return redis.NewStringResult("3", nil)
			}
			return redis.NewStringResult("{broken", nil)
		},
		SetFn: func(_ context.Context, key string, _ any, _ time.Duration) *redis.StatusCmd {
			require.Equal(t, "report:financial:3:::", key)
			return redis.NewStatusResult("", down)
		},
	}
	r, err = CachedFinancialReport(ctx, nil, fc, ReportQuery{}, time.Minute, reportNow)
	require.NoError(t, err)
	require.Equal(t, "all", r.Period)

	buildFinancialReport = func(context.Context, database.DB, ReportQuery, time.Time) (*FinancialReport, error) {
		return nil, ErrInvalidDate
	}
	fc, _ = memCache()
	_, err = CachedFinancialReport(ctx, nil, fc, ReportQuery{StartDate: "x", EndDate: "y"}, time.Minute, reportNow)
	require.ErrorIs(t, err, ErrInvalidDate)
}

func TestInvalidateReportsError(t *testing.T) {
	fc := &cache.FakeCache{IncrFn: func(context.Context, string) *redis.IntCmd {
		return redis.NewIntResult(0, errors.New("down"))
	}}
	require.Error(t, InvalidateReports(context.Background(), fc))
}

func TestWarmFinancialReports(t *testing.T) {
	t.Cleanup(restoreGlobals)
	fc, data := memCache()
	var periods []string
	buildFinancialReport = func(_ context.Context, _ database.DB, q ReportQuery, _ time.Time) (*FinancialReport, error) {
		periods = append(periods, q.Period)
		return &FinancialReport{Period: q.Period}, nil
	}
	require.NoError(t, WarmFinancialReports(context.Background(), nil, fc, time.Minute, reportNow))
	require.Equal(t, []string{"", "week", "month", "year"}, periods)
	require.Len(t, data, 4)

	buildFinancialReport = func(context.Context, database.DB, ReportQuery, time.Time) (*FinancialReport, error) {
		return nil, errors.New("db")
	}
	fc, _ = memCache()
	require.Error(t, WarmFinancialReports(context.Background(), nil, fc, time.Minute, reportNow))
}
