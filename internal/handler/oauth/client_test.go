package oauth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"cashflow/internal/database"
	"cashflow/internal/middleware"
	"cashflow/internal/model"
	"cashflow/internal/store"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
)

var owner = &model.User{ID: 9, Role: model.RoleAdmin}

func newClientCtx(method, body string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, "/api/clients", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := newEcho().NewContext(req, rec)
	c.Set(middleware.ContextUserKey, owner)
	return c, rec
}

func TestListClientsHandler(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		t.Cleanup(restoreGlobals)
		listAPIClients = func(_ context.Context, _ database.DB, ownerID int) ([]model.APIClient, error) {
			require.Equal(t, 9, ownerID)
			return []model.APIClient{{ClientID: "c_1", Name: "bot", SecretHash: "hash"}}, nil
		}
		ctx, rec := newClientCtx(http.MethodGet, "")
		require.NoError(t, ListClientsHandler(nil)(ctx))
		require.Equal(t, http.StatusOK, rec.Code)
		require.Contains(t, rec.Body.String(), `"clientId":"c_1"`)
		require.NotContains(t, rec.Body.String(), "hash")
	})

	t.Run("empty", func(t *testing.T) {
		t.Cleanup(restoreGlobals)
		listAPIClients = func(context.Context, database.DB, int) ([]model.APIClient, error) { return nil, nil }
		ctx, rec := newClientCtx(http.MethodGet, "")
		require.NoError(t, ListClientsHandler(nil)(ctx))
		require.Equal(t, "[]\n", rec.Body.String())
	})

	t.Run("error", func(t *testing.T) {
		t.Cleanup(restoreGlobals)
		listAPIClients = func(context.Context, database.DB, int) ([]model.APIClient, error) {
			return nil, errors.New("conn refused")
		}
		ctx, rec := newClientCtx(http.MethodGet, "")
		require.NoError(t, ListClientsHandler(nil)(ctx))
		require.Equal(t, http.StatusInternalServerError, rec.Code)
		require.NotContains(t, rec.Body.String(), "conn refused")
	})
}

func TestCreateClientHandler(t *testing.T) {
	t.Run("validation", func(t *testing.T) {
		t.Cleanup(restoreGlobals)
		ctx, rec := newClientCtx(http.MethodPost, `{"name":""}`)
		require.NoError(t, CreateClientHandler(nil)(ctx))
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("bad json", func(t *testing.T) {
		t.Cleanup(restoreGlobals)
		ctx, rec := newClientCtx(http.MethodPost, `{`)
		require.NoError(t, CreateClientHandler(nil)(ctx))
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("hash error", func(t *testing.T) {
		t.Cleanup(restoreGlobals)
		hashSecret = func(string) (string, error) { return "", errors.New("bcrypt") }
		ctx, rec := newClientCtx(http.MethodPost, `{"name":"bot"}`)
		require.NoError(t, CreateClientHandler(nil)(ctx))
		require.Equal(t, http.StatusInternalServerError, rec.Code)
	})

	t.Run("ok", func(t *testing.T) {
		t.Cleanup(restoreGlobals)
		n := 0
		generateSecret = func(int) (string, error) {
			n++
			if n == 1 {
				return "abc", nil
			}
			return "plain-secret", nil
		}
		hashSecret = func(s string) (string, error) { return "hashed:" + s, nil }
		var saved model.APIClient
		createAPIClient = func(_ context.Context, _ database.DB, c *model.APIClient) error {
			c.CreatedAt = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
			saved = *c
			return nil
		}
		ctx, rec := newClientCtx(http.MethodPost, `{"name":"bot"}`)
		require.NoError(t, CreateClientHandler(nil)(ctx))
		require.Equal(t, http.StatusCreated, rec.Code)
		require.Equal(t, model.APIClient{
			ClientID:   "c_abc",
			SecretHash: "hashed:plain-secret",
			Name:       "bot",
			OwnerID:    9,
			CreatedAt:  saved.CreatedAt,
		}, saved)
		require.JSONEq(t, `{"clientId":"c_abc","name":"bot","createdAt":"2024-01-01T00:00:00Z","clientSecret":"plain-secret"}`, rec.Body.String())
	})
}

func TestDeleteClientHandler(t *testing.T) {
	run := func(err error) *httptest.ResponseRecorder {
		deleteAPIClient = func(_ context.Context, _ database.DB, ownerID int, clientID string) error {
			require.Equal(t, 9, ownerID)
			require.Equal(t, "c_1", clientID)
			return err
		}
		ctx, rec := newClientCtx(http.MethodDelete, "")
		ctx.SetParamNames("client_id")
		ctx.SetParamValues("c_1")
		require.NoError(t, DeleteClientHandler(nil)(ctx))
		return rec
	}
	t.Cleanup(restoreGlobals)

	require.Equal(t, http.StatusNoContent, run(nil).Code)
	require.Equal(t, http.StatusNotFound, run(store.ErrNotFound).Code)
	require.Equal(t, http.StatusInternalServerError, run(errors.New("db")).Code)
}
