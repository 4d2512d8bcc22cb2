package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"cashflow/internal/api"
	"cashflow/internal/cache"
	"cashflow/internal/database"
	"cashflow/internal/middleware"
	"cashflow/internal/model"
	"cashflow/internal/service"
	"cashflow/internal/store"

	"github.com/labstack/echo/v4"
)

// 測試替換點
var (
	createOAuthState  = service.CreateOAuthState
	consumeOAuthState = service.ConsumeOAuthState
	upsertGitHubUser  = store.UpsertGitHubUser
	createSession     = service.CreateSession
	issueSessionToken = service.IssueSessionToken
	revokeSession     = service.RevokeSession
	authenticate      = middleware.Authenticate
)

// Config 為登入流程需要的設定
type Config struct {
	SessionTTL   time.Duration
	FrontendURL  string
	DefaultRole  model.Role
	CookieSecure bool
}

func sessionCookie(value string, maxAge int, secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// GitHubLoginHandler 產生一次性 state 並導向 GitHub 授權頁
// @Summary     Sign in with GitHub
// @Tags        auth
// @Success     302
// @Failure     500 {object} api.ErrorResponse
// @Router      /auth/github [get]
func GitHubLoginHandler(rc cache.Cache, provider service.OAuthProvider) echo.HandlerFunc {
	return func(c echo.Context) error {
		state, err := createOAuthState(c.Request().Context(), rc)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, api.ErrorResponse{Message: "failed to start sign-in"})
		}
		return c.Redirect(http.StatusFound, provider.AuthCodeURL(state))
	}
}

// GitHubCallbackHandler 完成 OAuth 流程：驗證 state、換取使用者資料、建立 session 並設定 cookie
// @Summary     GitHub OAuth callback
// @Tags        auth
// @Param       code  query string true "authorization code"
// @Param       state query string true "OAuth state"
// @Success     302
// @Failure     400 {object} api.ErrorResponse "state 無效或缺少 code"
// @Failure     409 {object} api.ErrorResponse "email 已綁定其他 GitHub 帳號"
// @Failure     502 {object} api.ErrorResponse "GitHub 驗證失敗"
// @Failure     500 {object} api.ErrorResponse
// @Router      /auth/github/callback [get]
func GitHubCallbackHandler(db database.DB, rc cache.Cache, provider service.OAuthProvider, cfg Config) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		if err := consumeOAuthState(ctx, rc, c.QueryParam("state")); err != nil {
			if errors.Is(err, service.ErrInvalidState) {
				return c.JSON(http.StatusBadRequest, api.ErrorResponse{Message: "invalid or expired state", Hint: "start again at /api/auth/github"})
			}
			return c.JSON(http.StatusInternalServerError, api.ErrorResponse{Message: "failed to verify state"})
		}
		code := c.QueryParam("code")
		if code == "" {
			return c.JSON(http.StatusBadRequest, api.ErrorResponse{Message: "missing authorization code"})
		}

		profile, err := provider.Exchange(ctx, code)
		if err != nil {
			slog.WarnContext(ctx, "github exchange failed", "error", err)
			return c.JSON(http.StatusBadGateway, api.ErrorResponse{Message: "github authentication failed"})
		}

		name := profile.Name
		if name == "" {
			name = profile.Login
		}
		user, err := upsertGitHubUser(ctx, db, store.GitHubIdentity{
			GitHubID: profile.ID,
			Name:     name,
			Email:    profile.Email,
			Image:    profile.AvatarURL,
		}, cfg.DefaultRole)
		if errors.Is(err, store.ErrGitHubAccountConflict) {
			return c.JSON(http.StatusConflict, api.ErrorResponse{
				Message: store.ErrGitHubAccountConflict.Error(),
				Hint:    "Sign in with the GitHub account already linked to this email",
			})
		}
		if err != nil {
			slog.ErrorContext(ctx, "save github user failed", "error", err)
			return c.JSON(http.StatusInternalServerError, api.ErrorResponse{Message: "failed to save user"})
		}

		sessionID, _, err := createSession(ctx, rc, user.ID, cfg.SessionTTL)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, api.ErrorResponse{Message: "failed to create session"})
		}
		token, err := issueSessionToken(*user, sessionID, cfg.SessionTTL)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, api.ErrorResponse{Message: "failed to issue token"})
		}

		c.SetCookie(sessionCookie(token, int(cfg.SessionTTL.Seconds()), cfg.CookieSecure))
		slog.InfoContext(ctx, "user signed in", "user_id", user.ID)
		return c.Redirect(http.StatusFound, cfg.FrontendURL+"/dashboard")
	}
}

// SessionHandler 回傳目前登入的使用者與到期時間
// @Summary     Current session
// @Tags        auth
// @Produce     json
// @Success     200 {object} api.SessionResponse
// @Failure     401 {object} api.ErrorResponse
// @Router      /auth/session [get]
func SessionHandler(db database.DB, rc cache.Cache) echo.HandlerFunc {
	return func(c echo.Context) error {
		user, claims, err := authenticate(c, db, rc)
		if err != nil {
			return err
		}
		resp := api.SessionResponse{User: api.NewUserResponse(*user)}
		if claims.ExpiresAt != nil {
			resp.ExpiresAt = claims.ExpiresAt.Time.UTC()
		}
		return c.JSON(http.StatusOK, resp)
	}
}

// LogoutHandler 撤銷 session 並清除 cookie
// @Summary     Sign out
// @Tags        auth
// @Success     204
// @Failure     401 {object} api.ErrorResponse
// @Failure     500 {object} api.ErrorResponse
// @Security    ApiKeyAuth
// @Router      /auth/logout [post]
func LogoutHandler(rc cache.Cache, cookieSecure bool) echo.HandlerFunc {
	return func(c echo.Context) error {
		if claims := middleware.CurrentClaims(c); claims != nil && claims.IsSession() {
			if err := revokeSession(c.Request().Context(), rc, claims.ID); err != nil {
				return c.JSON(http.StatusInternalServerError, api.ErrorResponse{Message: "failed to sign out"})
			}
		}
		c.SetCookie(sessionCookie("", -1, cookieSecure))
		return c.NoContent(http.StatusNoContent)
	}
}
