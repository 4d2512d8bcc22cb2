package movements

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"cashflow/internal/api"
	"cashflow/internal/database"
	"cashflow/internal/events"
	"cashflow/internal/metrics"
	"cashflow/internal/middleware"
	"cashflow/internal/model"
	"cashflow/internal/service"
	"cashflow/internal/store"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"golang.org/x/sync/errgroup"
)

// 測試替換點
var (
	listMovements      = store.ListMovements
	summarizeMovements = store.SummarizeMovements
	getMovement        = store.GetMovement
	createMovement     = store.CreateMovement
	updateMovement     = store.UpdateMovement
	deleteMovement     = store.DeleteMovement
)

// Notifier 接收 movement 異動通知
type Notifier interface {
	MovementChanged(ctx context.Context, action events.Action, movementID string, actorID int)
}

func notFound(c echo.Context) error {
	return c.JSON(http.StatusNotFound, api.ErrorResponse{Message: "movement not found"})
}

// movementID 非 UUID 的 id 不可能存在，直接視為 404
func movementID(c echo.Context) (string, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return "", false
	}
	return id.String(), true
}

// parseFilter 解析列表查詢參數；未知的 type 會被忽略
func parseFilter(c echo.Context) (model.MovementFilter, error) {
	f := model.MovementFilter{Search: strings.TrimSpace(c.QueryParam("search"))}
	if t := model.MovementType(strings.ToUpper(c.QueryParam("type"))); t.Valid() {
		f.Type = &t
	}
	if v := c.QueryParam("dateFrom"); v != "" {
		from, err := service.ParseMovementDate(v)
		if err != nil {
			return f, errors.New("invalid dateFrom")
		}
		f.From = &from
	}
	if v := c.QueryParam("dateTo"); v != "" {
		to, err := service.ParseRangeEnd(v)
		if err != nil {
			return f, errors.New("invalid dateTo")
		}
		f.To = &to
	}
	return f, nil
}

// @Summary     List movements
// @Description 依搜尋字串、類型與日期區間篩選，回傳分頁結果與整體匯總
// @Tags        movements
// @Produce     json
// @Param       search   query string false "搜尋 concept、description、使用者姓名或 Email"
// @Param       type     query string false "INCOME 或 EXPENSE"
// @Param       dateFrom query string false "起始日期 (YYYY-MM-DD 或 RFC3339)"
// @Param       dateTo   query string false "結束日期 (含當日)"
// @Param       page     query int    false "頁碼" default(1)
// @Param       limit    query int    false "每頁筆數 (最多 100)" default(10)
// @Success     200 {object} api.MovementListResponse
// @Failure     400 {object} api.ErrorResponse
// @Failure     401 {object} api.ErrorResponse
// @Failure     500 {object} api.ErrorResponse
// @Security    ApiKeyAuth
// @Router      /movements [get]
func ListMovementsHandler(db database.DB) echo.HandlerFunc {
	return func(c echo.Context) error {
		filter, err := parseFilter(c)
		if err != nil {
			return c.JSON(http.StatusBadRequest, api.ErrorResponse{Message: err.Error()})
		}
		page := model.NewPageRequest(c.QueryParam("page"), c.QueryParam("limit"))

		var (
			list    []model.Movement
			summary model.MovementSummary
		)
		g, ctx := errgroup.WithContext(c.Request().Context())
		g.Go(func() (err error) {
			list, err = listMovements(ctx, db, filter, page)
			return err
		})
		g.Go(func() (err error) {
			summary, err = summarizeMovements(ctx, db, filter)
			return err
		})
		if err := g.Wait(); err != nil {
			slog.ErrorContext(c.Request().Context(), "list movements failed", "error", err)
			return c.JSON(http.StatusInternalServerError, api.ErrorResponse{Message: "failed to list movements"})
		}

		resp := api.MovementListResponse{
			Movements:  make([]api.MovementResponse, 0, len(list)),
			Pagination: api.NewPagination(summary.Count, page.Page, page.Limit),
			Summary:    api.NewMovementSummary(summary),
		}
		for _, m := range list {
			resp.Movements = append(resp.Movements, api.NewMovementResponse(m))
		}
		return c.JSON(http.StatusOK, resp)
	}
}

// @Summary     Create a movement
// @Description 建立收入或支出紀錄，擁有者為目前使用者 (僅限管理員)
// @Tags        movements
// @Accept      json
// @Produce     json
// @Param       body body     api.CreateMovementRequest true "movement 內容"
// @Success     201  {object} api.MovementResponse
// @Failure     400  {object} api.ErrorResponse
// @Failure     401  {object} api.ErrorResponse
// @Failure     403  {object} api.ErrorResponse
// @Failure     500  {object} api.ErrorResponse
// @Security    ApiKeyAuth
// @Router      /movements [post]
func CreateMovementHandler(db database.DB, n Notifier, m *metrics.Metrics) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req api.CreateMovementRequest
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, api.ErrorResponse{Message: "invalid request payload"})
		}
		if err := c.Validate(&req); err != nil {
			return c.JSON(http.StatusBadRequest, api.ErrorResponse{Message: err.Error()})
		}

		concept, err := service.NormalizeConcept(req.Concept)
		if err != nil {
			return c.JSON(http.StatusBadRequest, api.ErrorResponse{Message: err.Error()})
		}
		amount, err := service.CheckAmount(*req.Amount)
		if err != nil {
			return c.JSON(http.StatusBadRequest, api.ErrorResponse{Message: err.Error()})
		}
		date, err := service.ParseMovementDate(req.Date)
		if err != nil {
			return c.JSON(http.StatusBadRequest, api.ErrorResponse{Message: err.Error()})
		}

		user := middleware.CurrentUser(c)
		ctx := c.Request().Context()
		created, err := createMovement(ctx, db, &model.Movement{
			Concept:     concept,
			Amount:      amount,
			Date:        date,
			Type:        model.MovementType(req.Type),
			Description: service.OptionalText(req.Description),
			Category:    service.OptionalText(req.Category),
			UserID:      user.ID,
		})
		if err != nil {
			slog.ErrorContext(c.Request().Context(), "create movement failed", "error", err)
			return c.JSON(http.StatusInternalServerError, api.ErrorResponse{Message: "failed to create movement"})
		}

		n.MovementChanged(ctx, events.ActionCreated, created.ID, user.ID)
		m.MovementOperation(string(events.ActionCreated))
		return c.JSON(http.StatusCreated, api.NewMovementResponse(*created))
	}
}

// @Summary     Get a movement by ID
// @Tags        movements
// @Produce     json
// @Param       id  path     string true "movement ID"
// @Success     200 {object} api.MovementResponse
// @Failure     401 {object} api.ErrorResponse
// @Failure     404 {object} api.ErrorResponse
// @Failure     500 {object} api.ErrorResponse
// @Security    ApiKeyAuth
// @Router      /movements/{id} [get]
func GetMovementHandler(db database.DB) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, ok := movementID(c)
		if !ok {
			return notFound(c)
		}
		mv, err := getMovement(c.Request().Context(), db, id)
		if errors.Is(err, store.ErrNotFound) {
			return notFound(c)
		}
		if err != nil {
			slog.ErrorContext(c.Request().Context(), "get movement failed", "error", err)
			return c.JSON(http.StatusInternalServerError, api.ErrorResponse{Message: "failed to load movement"})
		}
		return c.JSON(http.StatusOK, api.NewMovementResponse(*mv))
	}
}

// buildPatch 驗證有提供的欄位；description、category 傳空字串代表清除
func buildPatch(req api.UpdateMovementRequest) (model.MovementPatch, error) {
	var p model.MovementPatch
	if req.Concept != nil {
		concept, err := service.NormalizeConcept(*req.Concept)
		if err != nil {
			return p, err
		}
		p.Concept = &concept
	}
	if req.Amount != nil {
		amount, err := service.CheckAmount(*req.Amount)
		if err != nil {
			return p, err
		}
		p.Amount = &amount
	}
	if req.Date != nil {
		date, err := service.ParseMovementDate(*req.Date)
		if err != nil {
			return p, err
		}
		p.Date = &date
	}
	if req.Type != nil {
		t := model.MovementType(*req.Type)
		if !t.Valid() {
			return p, errors.New("type must be INCOME or EXPENSE")
		}
		p.Type = &t
	}
	if req.Description != nil {
		v := strings.TrimSpace(*req.Description)
		p.Description = &v
	}
	if req.Category != nil {
		v := strings.TrimSpace(*req.Category)
		p.Category = &v
	}
	return p, nil
}

// @Summary     Update a movement
// @Description 只更新有提供的欄位 (僅限管理員)
// @Tags        movements
// @Accept      json
// @Produce     json
// @Param       id   path     string                    true "movement ID"
// @Param       body body     api.UpdateMovementRequest true "要更新的欄位"
// @Success     200  {object} api.MovementResponse
// @Failure     400  {object} api.ErrorResponse
// @Failure     401  {object} api.ErrorResponse
// @Failure     403  {object} api.ErrorResponse
// @Failure     404  {object} api.ErrorResponse
// @Failure     500  {object} api.ErrorResponse
// @Security    ApiKeyAuth
// @Router      /movements/{id} [put]
func UpdateMovementHandler(db database.DB, n Notifier, m *metrics.Metrics) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, ok := movementID(c)
		if !ok {
			return notFound(c)
		}
		var req api.UpdateMovementRequest
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, api.ErrorResponse{Message: "invalid request payload"})
		}
		if err := c.Validate(&req); err != nil {
			return c.JSON(http.StatusBadRequest, api.ErrorResponse{Message: err.Error()})
		}
		patch, err := buildPatch(req)
		if err != nil {
			return c.JSON(http.StatusBadRequest, api.ErrorResponse{Message: err.Error()})
		}
		if patch.Empty() {
			return c.JSON(http.StatusBadRequest, api.ErrorResponse{Message: "no fields to update"})
		}

		ctx := c.Request().Context()
		updated, err := updateMovement(ctx, db, id, patch)
		if errors.Is(err, store.ErrNotFound) {
			return notFound(c)
		}
		if err != nil {
			slog.ErrorContext(c.Request().Context(), "update movement failed", "error", err)
			return c.JSON(http.StatusInternalServerError, api.ErrorResponse{Message: "failed to update movement"})
		}

		actor := middleware.CurrentUser(c)
		n.MovementChanged(ctx, events.ActionUpdated, updated.ID, actor.ID)
		m.MovementOperation(string(events.ActionUpdated))
		return c.JSON(http.StatusOK, api.NewMovementResponse(*updated))
	}
}

// @Summary     Delete a movement
// @Tags        movements
// @Param       id path string true "movement ID"
// @Success     204 "No Content"
// @Failure     401 {object} api.ErrorResponse
// @Failure     403 {object} api.ErrorResponse
// @Failure     404 {object} api.ErrorResponse
// @Failure     500 {object} api.ErrorResponse
// @Security    ApiKeyAuth
// @Router      /movements/{id} [delete]
func DeleteMovementHandler(db database.DB, n Notifier, m *metrics.Metrics) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, ok := movementID(c)
		if !ok {
			return notFound(c)
		}
		ctx := c.Request().Context()
		err := deleteMovement(ctx, db, id)
		if errors.Is(err, store.ErrNotFound) {
			return notFound(c)
		}
		if err != nil {
			slog.ErrorContext(c.Request().Context(), "delete movement failed", "error", err)
			return c.JSON(http.StatusInternalServerError, api.ErrorResponse{Message: "failed to delete movement"})
		}

		actor := middleware.CurrentUser(c)
		n.MovementChanged(ctx, events.ActionDeleted, id, actor.ID)
		m.MovementOperation(string(events.ActionDeleted))
		return c.NoContent(http.StatusNoContent)
	}
}
