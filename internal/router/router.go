package router

import (
	"time"

	"cashflow/internal/cache"
	"cashflow/internal/database"
	"cashflow/internal/handler"
	"cashflow/internal/handler/auth"
	"cashflow/internal/handler/movements"
	"cashflow/internal/handler/oauth"
	"cashflow/internal/handler/reports"
	"cashflow/internal/handler/users"
	"cashflow/internal/metrics"
	"cashflow/internal/middleware"
	"cashflow/internal/service"

	"github.com/labstack/echo/v4"
	echoSwagger "github.com/swaggo/echo-swagger"
)

// Deps 為路由需要的所有依賴
type Deps struct {
	DB             database.DB
	Cache          cache.Cache
	Provider       service.OAuthProvider
	Notifier       movements.Notifier
	Metrics        *metrics.Metrics
	Auth           auth.Config
	ReportCacheTTL time.Duration
}

// Setup 註冊所有路由與中介層
func Setup(e *echo.Echo, d Deps) {
	db, rc, m := d.DB, d.Cache, d.Metrics
	requireAuth := middleware.RequireAuth(db, rc)
	requireAdmin := middleware.RequireAdmin(db, rc)

	e.GET("/swagger/*", echoSwagger.WrapHandler)
	if m != nil {
		e.GET("/metrics", echo.WrapHandler(m.Handler()))
	}

	api := e.Group("/api")

	// 健康檢查
	api.GET("/ping", handler.PingHandler(db, rc))

	// GitHub 登入與 session
	api.GET("/auth/github", auth.GitHubLoginHandler(rc, d.Provider))
	api.GET("/auth/github/callback", auth.GitHubCallbackHandler(db, rc, d.Provider, d.Auth))
	api.GET("/auth/session", auth.SessionHandler(db, rc))
	api.POST("/auth/logout", auth.LogoutHandler(rc, d.Auth.CookieSecure), requireAuth)

	// API client 與 client_credentials
	api.POST("/oauth/token", oauth.TokenHandler(db))
	api.GET("/clients", oauth.ListClientsHandler(db), requireAdmin)
	api.POST("/clients", oauth.CreateClientHandler(db), requireAdmin)
	api.DELETE("/clients/:client_id", oauth.DeleteClientHandler(db), requireAdmin)

	// 收支紀錄：讀取需登入，異動限管理員
	api.GET("/movements", movements.ListMovementsHandler(db), requireAuth)
	api.POST("/movements", movements.CreateMovementHandler(db, d.Notifier, m), requireAdmin)
	api.GET("/movements/:id", movements.GetMovementHandler(db), requireAuth)
	api.PUT("/movements/:id", movements.UpdateMovementHandler(db, d.Notifier, m), requireAdmin)
	api.DELETE("/movements/:id", movements.DeleteMovementHandler(db, d.Notifier, m), requireAdmin)

	// 使用者
	api.GET("/users", users.ListUsersHandler(db), requireAdmin)
	api.GET("/users/me", users.GetMeHandler(), requireAuth)
	api.GET("/users/:id", users.GetUserHandler(db), requireAdmin)
	api.PUT("/users/:id", users.UpdateUserHandler(db), requireAdmin)

	// 報表
	api.GET("/reports/financial", reports.FinancialReportHandler(db, rc, d.ReportCacheTTL), requireAdmin)
	api.GET("/reports/csv", reports.CSVHandler(db, m), requireAdmin)
}
