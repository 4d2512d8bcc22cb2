package reports

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"cashflow/internal/api"
	"cashflow/internal/database"
	"cashflow/internal/metrics"
	"cashflow/internal/model"
	"cashflow/internal/service"
	"cashflow/internal/store"

	"github.com/labstack/echo/v4"
	"golang.org/x/sync/errgroup"
)

const (
	csvMovements = "movements"
	csvSummary   = "summary"
	csvUsers     = "users"

	summaryConceptLimit = 50
	filenameTime        = "2006-01-02T15-04-05"
)

var (
	listAllMovements   = store.ListAllMovements
	totalsByType       = store.TotalsByType
	topConcepts        = store.TopConcepts
	periodTotals       = store.PeriodTotals
	listUsersWithStats = store.ListUsersWithStats
)

var filenames = map[string]string{
	csvMovements: "financial_movements",
	csvSummary:   "financial_summary",
	csvUsers:     "users",
}

type csvQuery struct {
	service.ReportQuery
	Type        string `query:"type"`
	IncludeUser string `query:"includeUser"`
}

// buildRecords 依匯出類型查詢資料；沒有資料時 records 為 nil
func buildRecords(c echo.Context, db database.DB, q csvQuery, r model.DateRange) ([][]string, error) {
	ctx := c.Request().Context()
	switch q.Type {
	case csvMovements:
		includeUser := true
		if q.IncludeUser != "" {
			includeUser, _ = strconv.ParseBool(q.IncludeUser)
		}
		list, err := listAllMovements(ctx, db, model.MovementFilter{From: r.From, To: r.To})
		if err != nil || len(list) == 0 {
			return nil, err
		}
		return service.MovementsCSV(list, includeUser), nil

	case csvSummary:
		var (
			totals   []model.TypeTotals
			concepts []model.ConceptTotal
			monthly  []model.PeriodTotal
		)
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() (err error) {
			totals, err = totalsByType(gctx, db, r)
			return err
		})
		g.Go(func() (err error) {
			concepts, err = topConcepts(gctx, db, r, nil, summaryConceptLimit)
			return err
		})
		g.Go(func() (err error) {
			monthly, err = periodTotals(gctx, db, store.PeriodMonth, r)
			return err
		})
		// 沒有資料時仍輸出三個區段標題
		if err := g.Wait(); err != nil {
			return nil, err
		}
		return service.SummaryCSV(totals, concepts, monthly), nil

	default:
		list, err := listUsersWithStats(ctx, db)
		if err != nil || len(list) == 0 {
			return nil, err
		}
		return service.UsersCSV(list), nil
	}
}

// CSVHandler 匯出 movements、summary 或 users 的 CSV 檔案
// @Summary     Download CSV report
// @Description 檔案以 UTF-8 BOM 開頭以便 Excel 開啟 (僅限管理員)
// @Tags        reports
// @Produce     text/csv
// @Param       type        query string false "movements | summary | users" default(movements)
// @Param       period      query string false "week | month | year"
// @Param       startDate   query string false "YYYY-MM-DD"
// @Param       endDate     query string false "YYYY-MM-DD"
// @Param       includeUser query bool   false "movements 是否包含使用者欄位" default(true)
// @Success     200 {file}   file
// @Failure     400 {object} api.ErrorResponse
// @Failure     404 {object} api.ErrorResponse "沒有資料"
// @Failure     500 {object} api.ErrorResponse
// @Security    ApiKeyAuth
// @Router      /reports/csv [get]
func CSVHandler(db database.DB, m *metrics.Metrics) echo.HandlerFunc {
	return func(c echo.Context) error {
		var q csvQuery
		if err := c.Bind(&q); err != nil {
			return c.JSON(http.StatusBadRequest, api.ErrorResponse{Message: "invalid query parameters"})
		}
		if q.Type == "" {
			q.Type = csvMovements
		}
		base, ok := filenames[q.Type]
		if !ok {
			return c.JSON(http.StatusBadRequest, api.ErrorResponse{Message: "invalid report type, use: movements, summary or users"})
		}
		now := timeNow()
		r, err := service.ResolveRange(q.ReportQuery, now)
		if err != nil {
			return c.JSON(http.StatusBadRequest, api.ErrorResponse{Message: err.Error()})
		}

		records, err := buildRecords(c, db, q, r)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, api.ErrorResponse{Message: "failed to load report data"})
		}
		if records == nil {
			return c.JSON(http.StatusNotFound, api.ErrorResponse{Message: "no data found for the requested report"})
		}

		var buf bytes.Buffer
		if err := service.WriteCSV(&buf, records); err != nil {
			return c.JSON(http.StatusInternalServerError, api.ErrorResponse{Message: "failed to write csv"})
		}

		filename := fmt.Sprintf("%s_%s.csv", base, now.UTC().Format(filenameTime))
		h := c.Response().Header()
		h.Set(echo.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s"`, filename))
		h.Set("Cache-Control", "no-cache")
		m.CSVExport(q.Type)
		return c.Blob(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
	}
}
