package middleware

import (
	"errors"
	"net/http"
	"strings"

	"cashflow/internal/api"
	"cashflow/internal/cache"
	"cashflow/internal/database"
	"cashflow/internal/model"
	"cashflow/internal/service"
	"cashflow/internal/store"

	"github.com/labstack/echo/v4"
)

const (
	ContextUserKey   = "user"
	ContextClaimsKey = "claims"

	// SessionCookieName 為登入後設定的 HttpOnly cookie
	SessionCookieName = "session_token"

	signInHint = "Sign in with GitHub at /api/auth/github"
)

// 測試替換點
var (
	verifyAccessToken = service.VerifyAccessToken
	lookupSession     = service.LookupSession
	getUserByID       = store.GetUserByID
)

func unauthorized(msg string) error {
	return echo.NewHTTPError(http.StatusUnauthorized, api.ErrorResponse{Message: msg, Hint: signInHint})
}

// tokenFromRequest 優先讀取 session cookie，其次是 Authorization: Bearer
func tokenFromRequest(c echo.Context) (string, error) {
	if cookie, err := c.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
		return cookie.Value, nil
	}
	authHeader := c.Request().Header.Get("Authorization")
	if authHeader == "" {
		return "", unauthorized("authentication required")
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
		return "", unauthorized("invalid authorization header format")
	}
	return parts[1], nil
}

// Authenticate 驗證 token、session 並從資料庫載入目前使用者。
// 角色以資料庫為準，管理員調整後立即生效
func Authenticate(c echo.Context, db database.DB, rc cache.Cache) (*model.User, *service.CustomClaims, error) {
	token, err := tokenFromRequest(c)
	if err != nil {
		return nil, nil, err
	}
	claims, err := verifyAccessToken(token)
	if err != nil {
		return nil, nil, unauthorized("invalid or expired token")
	}

	ctx := c.Request().Context()
	if claims.IsSession() {
		sess, err := lookupSession(ctx, rc, claims.ID)
		if errors.Is(err, service.ErrSessionNotFound) {
			return nil, nil, unauthorized("session expired")
		}
		if err != nil {
			return nil, nil, echo.NewHTTPError(http.StatusInternalServerError, "session lookup failed").SetInternal(err)
		}
		if sess.UserID != claims.UserID {
			return nil, nil, unauthorized("session does not match token")
		}
	}

	user, err := getUserByID(ctx, db, claims.UserID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil, unauthorized("user no longer exists")
	}
	if err != nil {
		return nil, nil, echo.NewHTTPError(http.StatusInternalServerError, "user lookup failed").SetInternal(err)
	}
	return user, claims, nil
}

// RequireAuth 要求已登入的使用者
func RequireAuth(db database.DB, rc cache.Cache) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user, claims, err := Authenticate(c, db, rc)
			if err != nil {
				return err
			}
			c.Set(ContextUserKey, user)
			c.Set(ContextClaimsKey, claims)
			return next(c)
		}
	}
}

// RequireAdmin 要求 ADMIN 角色，其他角色回傳 403
func RequireAdmin(db database.DB, rc cache.Cache) echo.MiddlewareFunc {
	auth := RequireAuth(db, rc)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return auth(func(c echo.Context) error {
			if u := CurrentUser(c); u == nil || !u.IsAdmin() {
				return echo.NewHTTPError(http.StatusForbidden, "admin privileges required")
			}
			return next(c)
		})
	}
}

// CurrentUser 回傳 RequireAuth 載入的使用者，未驗證時為 nil
func CurrentUser(c echo.Context) *model.User {
	u, _ := c.Get(ContextUserKey).(*model.User)
	return u
}

// CurrentClaims 回傳目前請求的 token claims
func CurrentClaims(c echo.Context) *service.CustomClaims {
	cl, _ := c.Get(ContextClaimsKey).(*service.CustomClaims)
	return cl
}

// UserID 供請求日誌使用，未驗證時為 0
func UserID(c echo.Context) int {
	if u := CurrentUser(c); u != nil {
		return u.ID
	}
	return 0
}
