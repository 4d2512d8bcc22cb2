package oauth

import (
	"errors"
	"net/http"
	"time"

	"cashflow/internal/api"
	"cashflow/internal/database"
	"cashflow/internal/service"
	"cashflow/internal/store"

	"github.com/labstack/echo/v4"
)

const (
	grantClientCredentials = "client_credentials"
	clientTokenTTL         = time.Hour
)

// 測試替換點
var (
	getAPIClientByClientID = store.GetAPIClientByClientID
	getUserByID            = store.GetUserByID
	compareSecret          = service.CompareSecret
	issueClientAccessToken = service.IssueClientAccessToken
)

// TokenHandler 實作 OAuth2 token endpoint，只支援 client_credentials
// @Summary     OAuth2 obtain access token
// @Description 以 Basic base64(client_id:client_secret) 驗證 API client，發行代表擁有者的 Bearer token
// @Tags        oauth
// @Accept      application/x-www-form-urlencoded
// @Produce     json
// @Param       Authorization header   string true "Basic base64(client_id:client_secret)"
// @Param       grant_type    formData string true "client_credentials"
// @Success     200 {object} api.TokenResponse
// @Failure     400 {object} api.ErrorResponse
// @Failure     401 {object} api.ErrorResponse
// @Failure     500 {object} api.ErrorResponse
// @Router      /oauth/token [post]
func TokenHandler(db database.DB) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		var req api.TokenRequest
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, api.ErrorResponse{Message: "invalid request payload"})
		}
		if err := c.Validate(&req); err != nil {
			return c.JSON(http.StatusBadRequest, api.ErrorResponse{Message: err.Error()})
		}
		if req.GrantType != grantClientCredentials {
			return c.JSON(http.StatusBadRequest, api.ErrorResponse{Message: "unsupported_grant_type"})
		}

		// 解析 Basic 認證
		id, secret, ok := c.Request().BasicAuth()
		if !ok || id == "" {
			return c.JSON(http.StatusUnauthorized, api.ErrorResponse{Message: "invalid client credentials"})
		}
		req.ClientID, req.ClientSecret = id, secret

		client, err := getAPIClientByClientID(ctx, db, req.ClientID)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return c.JSON(http.StatusInternalServerError, api.ErrorResponse{Message: "failed to load client"})
		}
		if err != nil || compareSecret(client.SecretHash, req.ClientSecret) != nil {
			return c.JSON(http.StatusUnauthorized, api.ErrorResponse{Message: "invalid client credentials"})
		}

		owner, err := getUserByID(ctx, db, client.OwnerID)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, api.ErrorResponse{Message: "failed to retrieve client owner"})
		}
		token, err := issueClientAccessToken(*owner, *client, clientTokenTTL)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, api.ErrorResponse{Message: "failed to issue token"})
		}

		return c.JSON(http.StatusOK, api.TokenResponse{
			AccessToken: token,
			TokenType:   "Bearer",
			ExpiresIn:   int(clientTokenTTL.Seconds()),
		})
	}
}
