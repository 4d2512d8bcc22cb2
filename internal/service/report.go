package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"cashflow/internal/database"
	"cashflow/internal/model"
	"cashflow/internal/store"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

const (
	topLimit       = 5
	dailyChartDays = 30
)

// 測試替換點
var (
	totalsByType = store.TotalsByType
	periodTotals = store.PeriodTotals
	topConcepts  = store.TopConcepts
	activeUsers  = store.ActiveUsers
)

// ReportQuery 為報表的期間參數；StartDate 與 EndDate 同時提供時優先於 Period
type ReportQuery struct {
	Period    string `query:"period"`
	StartDate string `query:"startDate"`
	EndDate   string `query:"endDate"`
}

// ResolveRange 將 ReportQuery 轉為日期區間，時間以 UTC 計算
func ResolveRange(q ReportQuery, now time.Time) (model.DateRange, error) {
	now = now.UTC()
	if q.StartDate != "" && q.EndDate != "" {
		from, err := ParseMovementDate(q.StartDate)
		if err != nil {
			return model.DateRange{}, fmt.Errorf("startDate: %w", err)
		}
		to, err := ParseRangeEnd(q.EndDate)
		if err != nil {
			return model.DateRange{}, fmt.Errorf("endDate: %w", err)
		}
		if to.Before(from) {
			return model.DateRange{}, fmt.Errorf("endDate before startDate: %w", ErrInvalidDate)
		}
		return model.DateRange{From: &from, To: &to}, nil
	}

	var from time.Time
	switch q.Period {
	case "week":
		from = now.Add(-7 * 24 * time.Hour)
	case "month":
		from = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	case "year":
		from = time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	default:
		return model.DateRange{}, nil
	}
	return model.DateRange{From: &from}, nil
}

type ReportSummary struct {
	TotalIncome    decimal.Decimal `json:"totalIncome" swaggertype:"string"`
	TotalExpense   decimal.Decimal `json:"totalExpense" swaggertype:"string"`
	Balance        decimal.Decimal `json:"balance" swaggertype:"string"`
	TotalMovements int             `json:"totalMovements"`
	IncomeCount    int             `json:"incomeCount"`
	ExpenseCount   int             `json:"expenseCount"`
}

type DailyPoint struct {
	Date    string          `json:"date"`
	Income  decimal.Decimal `json:"income" swaggertype:"string"`
	Expense decimal.Decimal `json:"expense" swaggertype:"string"`
}

type MonthlyPoint struct {
	Month   string          `json:"month"`
	Income  decimal.Decimal `json:"income" swaggertype:"string"`
	Expense decimal.Decimal `json:"expense" swaggertype:"string"`
}

type PieSlice struct {
	Name  string          `json:"name"`
	Value decimal.Decimal `json:"value" swaggertype:"string"`
	Count int             `json:"count"`
}

type ChartData struct {
	DailyChart      []DailyPoint   `json:"dailyChart"`
	MonthlyChart    []MonthlyPoint `json:"monthlyChart"`
	ExpensePieChart []PieSlice     `json:"expensePieChart"`
	IncomePieChart  []PieSlice     `json:"incomePieChart"`
}

type ConceptAmount struct {
	Concept string          `json:"concept"`
	Amount  decimal.Decimal `json:"amount" swaggertype:"string"`
	Count   int             `json:"count"`
}

type ActiveUserStat struct {
	User          model.Owner     `json:"user"`
	MovementCount int             `json:"movementCount"`
	TotalAmount   decimal.Decimal `json:"totalAmount" swaggertype:"string"`
}

type ReportDateRange struct {
	Start *string `json:"start"`
	End   *string `json:"end"`
}

// FinancialReport 是 /reports/financial 的回應內容
type FinancialReport struct {
	Summary     ReportSummary    `json:"summary"`
	ChartData   ChartData        `json:"chartData"`
	TopExpenses []ConceptAmount  `json:"topExpenses"`
	TopIncomes  []ConceptAmount  `json:"topIncomes"`
	ActiveUsers []ActiveUserStat `json:"activeUsers"`
	Period      string           `json:"period"`
	DateRange   ReportDateRange  `json:"dateRange"`
	GeneratedAt time.Time        `json:"generatedAt"`
}

// BuildFinancialReport 並行執行各項彙總查詢並組成報表。
// 日、月圖表固定涵蓋最近 30 天與 12 個月，不受期間參數影響
func BuildFinancialReport(ctx context.Context, db database.DB, q ReportQuery, now time.Time) (*FinancialReport, error) {
	rng, err := ResolveRange(q, now)
	if err != nil {
		return nil, err
	}
	now = now.UTC()
	dailyFrom := now.Add(-dailyChartDays * 24 * time.Hour)
	monthlyFrom := time.Date(now.Year()-1, now.Month(), 1, 0, 0, 0, 0, time.UTC)
	income, expense := model.MovementIncome, model.MovementExpense

	var (
		totals      []model.TypeTotals
		daily       []model.PeriodTotal
		monthly     []model.PeriodTotal
		topExpenses []model.ConceptTotal
		topIncomes  []model.ConceptTotal
		users       []model.ActiveUser
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		totals, err = totalsByType(gctx, db, rng)
		return err
	})
	g.Go(func() (err error) {
		daily, err = periodTotals(gctx, db, store.PeriodDay, model.DateRange{From: &dailyFrom})
		return err
	})
	g.Go(func() (err error) {
		monthly, err = periodTotals(gctx, db, store.PeriodMonth, model.DateRange{From: &monthlyFrom})
		return err
	})
	g.Go(func() (err error) {
		topExpenses, err = topConcepts(gctx, db, rng, &expense, topLimit)
		return err
	})
	g.Go(func() (err error) {
		topIncomes, err = topConcepts(gctx, db, rng, &income, topLimit)
		return err
	})
	g.Go(func() (err error) {
		users, err = activeUsers(gctx, db, rng, topLimit)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("BuildFinancialReport: %w", err)
	}

	report := &FinancialReport{
		Summary: summarize(totals),
		ChartData: ChartData{
			DailyChart:      FormatDailyChart(daily),
			MonthlyChart:    FormatMonthlyChart(monthly),
			ExpensePieChart: pieSlices(topExpenses),
			IncomePieChart:  pieSlices(topIncomes),
		},
		TopExpenses: conceptAmounts(topExpenses),
		TopIncomes:  conceptAmounts(topIncomes),
		ActiveUsers: activeUserStats(users),
		Period:      q.Period,
		GeneratedAt: now,
	}
	if report.Period == "" {
		report.Period = "all"
	}
	if q.StartDate != "" {
		s := q.StartDate
		report.DateRange.Start = &s
	}
	if q.EndDate != "" {
		e := q.EndDate
		report.DateRange.End = &e
	}
	return report, nil
}

func summarize(totals []model.TypeTotals) ReportSummary {
	s := ReportSummary{}
	for _, t := range totals {
		switch t.Type {
		case model.MovementIncome:
			s.TotalIncome = t.Sum
			s.IncomeCount = t.Count
		case model.MovementExpense:
			s.TotalExpense = t.Sum
			s.ExpenseCount = t.Count
		}
	}
	s.TotalMovements = s.IncomeCount + s.ExpenseCount
	s.Balance = s.TotalIncome.Sub(s.TotalExpense)
	return s
}

// FormatDailyChart 合併同一天的收入與支出，依日期遞增
func FormatDailyChart(rows []model.PeriodTotal) []DailyPoint {
	byDay := map[string]*DailyPoint{}
	for _, r := range rows {
		key := r.Period.UTC().Format(dateOnly)
		p, ok := byDay[key]
		if !ok {
			p = &DailyPoint{Date: key}
			byDay[key] = p
		}
		if r.Type == model.MovementIncome {
			p.Income = r.Sum
		} else {
			p.Expense = r.Sum
		}
	}
	points := make([]DailyPoint, 0, len(byDay))
	for _, p := range byDay {
		points = append(points, *p)
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Date < points[j].Date })
	return points
}

// FormatMonthlyChart 合併同一月份的收入與支出，依月份遞增
func FormatMonthlyChart(rows []model.PeriodTotal) []MonthlyPoint {
	byMonth := map[string]*MonthlyPoint{}
	for _, r := range rows {
		key := r.Period.UTC().Format("2006-01")
		p, ok := byMonth[key]
		if !ok {
			p = &MonthlyPoint{Month: key}
			byMonth[key] = p
		}
		if r.Type == model.MovementIncome {
			p.Income = r.Sum
		} else {
			p.Expense = r.Sum
		}
	}
	points := make([]MonthlyPoint, 0, len(byMonth))
	for _, p := range byMonth {
		points = append(points, *p)
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Month < points[j].Month })
	return points
}

func pieSlices(list []model.ConceptTotal) []PieSlice {
	out := make([]PieSlice, 0, len(list))
	for _, c := range list {
		out = append(out, PieSlice{Name: c.Concept, Value: c.Sum, Count: c.Count})
	}
	return out
}

func conceptAmounts(list []model.ConceptTotal) []ConceptAmount {
	out := make([]ConceptAmount, 0, len(list))
	for _, c := range list {
		out = append(out, ConceptAmount{Concept: c.Concept, Amount: c.Sum, Count: c.Count})
	}
	return out
}

func activeUserStats(list []model.ActiveUser) []ActiveUserStat {
	out := make([]ActiveUserStat, 0, len(list))
	for _, u := range list {
		out = append(out, ActiveUserStat{
			User:          model.Owner{ID: u.UserID, Name: u.Name, Email: u.Email},
			MovementCount: u.MovementCount,
			TotalAmount:   u.TotalAmount,
		})
	}
	return out
}
