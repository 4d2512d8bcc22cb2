package oauth

import (
	"errors"
	"log/slog"
	"net/http"

	"cashflow/internal/api"
	"cashflow/internal/database"
	"cashflow/internal/middleware"
	"cashflow/internal/model"
	"cashflow/internal/service"
	"cashflow/internal/store"

	"github.com/labstack/echo/v4"
)

var (
	listAPIClients  = store.ListAPIClients
	createAPIClient = store.CreateAPIClient
	deleteAPIClient = store.DeleteAPIClient
	generateSecret  = service.GenerateSecret
	hashSecret      = service.HashSecret
)

// ListClientsHandler 列出目前使用者擁有的 API client
// @Summary     List API clients
// @Tags        clients
// @Produce     json
// @Success     200 {array}  api.APIClientResponse
// @Failure     401 {object} api.ErrorResponse
// @Failure     403 {object} api.ErrorResponse
// @Failure     500 {object} api.ErrorResponse
// @Security    ApiKeyAuth
// @Router      /clients [get]
func ListClientsHandler(db database.DB) echo.HandlerFunc {
	return func(c echo.Context) error {
		list, err := listAPIClients(c.Request().Context(), db, middleware.CurrentUser(c).ID)
		if err != nil {
			slog.ErrorContext(c.Request().Context(), "list api clients failed", "error", err)
			return c.JSON(http.StatusInternalServerError, api.ErrorResponse{Message: "failed to list clients"})
		}
		resp := make([]api.APIClientResponse, 0, len(list))
		for _, cl := range list {
			resp = append(resp, api.NewAPIClientResponse(cl))
		}
		return c.JSON(http.StatusOK, resp)
	}
}

// CreateClientHandler 建立 API client；明文 secret 只在此回應出現一次
// @Summary     Create API client
// @Tags        clients
// @Accept      json
// @Produce     json
// @Param       body body     api.CreateAPIClientRequest true "client 名稱"
// @Success     201  {object} api.APIClientCreatedResponse
// @Failure     400  {object} api.ErrorResponse
// @Failure     401  {object} api.ErrorResponse
// @Failure     403  {object} api.ErrorResponse
// @Failure     500  {object} api.ErrorResponse
// @Security    ApiKeyAuth
// @Router      /clients [post]
func CreateClientHandler(db database.DB) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req api.CreateAPIClientRequest
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, api.ErrorResponse{Message: "invalid request payload"})
		}
		if err := c.Validate(&req); err != nil {
			return c.JSON(http.StatusBadRequest, api.ErrorResponse{Message: err.Error()})
		}

		clientID, err := generateSecret(12)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, api.ErrorResponse{Message: "failed to generate client id"})
		}
		secret, err := generateSecret(32)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, api.ErrorResponse{Message: "failed to generate secret"})
		}
		hash, err := hashSecret(secret)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, api.ErrorResponse{Message: "failed to hash secret"})
		}

		cl := &model.APIClient{
			ClientID:   "c_" + clientID,
			SecretHash: hash,
			Name:       req.Name,
			OwnerID:    middleware.CurrentUser(c).ID,
		}
		if err := createAPIClient(c.Request().Context(), db, cl); err != nil {
			slog.ErrorContext(c.Request().Context(), "create api client failed", "error", err)
			return c.JSON(http.StatusInternalServerError, api.ErrorResponse{Message: "failed to create client"})
		}
		return c.JSON(http.StatusCreated, api.APIClientCreatedResponse{
			APIClientResponse: api.NewAPIClientResponse(*cl),
			ClientSecret:      secret,
		})
	}
}

// DeleteClientHandler 刪除目前使用者的 API client
// @Summary     Delete API client
// @Tags        clients
// @Param       client_id path string true "Client ID"
// @Success     204
// @Failure     401 {object} api.ErrorResponse
// @Failure     403 {object} api.ErrorResponse
// @Failure     404 {object} api.ErrorResponse
// @Failure     500 {object} api.ErrorResponse
// @Security    ApiKeyAuth
// @Router      /clients/{client_id} [delete]
func DeleteClientHandler(db database.DB) echo.HandlerFunc {
	return func(c echo.Context) error {
		err := deleteAPIClient(c.Request().Context(), db, middleware.CurrentUser(c).ID, c.Param("client_id"))
		if errors.Is(err, store.ErrNotFound) {
			return c.JSON(http.StatusNotFound, api.ErrorResponse{Message: "client not found"})
		}
		if err != nil {
			slog.ErrorContext(c.Request().Context(), "delete api client failed", "error", err)
			return c.JSON(http.StatusInternalServerError, api.ErrorResponse{Message: "failed to delete client"})
		}
		return c.NoContent(http.StatusNoContent)
	}
}
