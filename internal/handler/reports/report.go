package reports

import (
	"errors"
	"net/http"
	"time"

	"cashflow/internal/api"
	"cashflow/internal/cache"
	"cashflow/internal/database"
	"cashflow/internal/service"

	"github.com/labstack/echo/v4"
)

// 測試替換點
var (
	timeNow               = time.Now
	cachedFinancialReport = service.CachedFinancialReport
)

// FinancialReportHandler 回傳期間內的收支摘要、圖表資料與排行
// @Summary     Financial report
// @Description period 為 week、month 或 year；同時提供 startDate 與 endDate 時以兩者為準 (僅限管理員)
// @Tags        reports
// @Produce     json
// @Param       period    query string false "week | month | year"
// @Param       startDate query string false "YYYY-MM-DD"
// @Param       endDate   query string false "YYYY-MM-DD"
// @Success     200 {object} service.FinancialReport
// @Failure     400 {object} api.ErrorResponse
// @Failure     401 {object} api.ErrorResponse
// @Failure     403 {object} api.ErrorResponse
// @Failure     500 {object} api.ErrorResponse
// @Security    ApiKeyAuth
// @Router      /reports/financial [get]
func FinancialReportHandler(db database.DB, rc cache.Cache, ttl time.Duration) echo.HandlerFunc {
	return func(c echo.Context) error {
		var q service.ReportQuery
		if err := c.Bind(&q); err != nil {
			return c.JSON(http.StatusBadRequest, api.ErrorResponse{Message: "invalid query parameters"})
		}
		report, err := cachedFinancialReport(c.Request().Context(), db, rc, q, ttl, timeNow())
		if errors.Is(err, service.ErrInvalidDate) {
			return c.JSON(http.StatusBadRequest, api.ErrorResponse{Message: err.Error()})
		}
		if err != nil {
			return c.JSON(http.StatusInternalServerError, api.ErrorResponse{Message: "failed to build report"})
		}
		return c.JSON(http.StatusOK, report)
	}
}
