package users

import (
	"errors"
	"log/slog"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"cashflow/internal/api"
	"cashflow/internal/database"
	"cashflow/internal/middleware"
	"cashflow/internal/model"
	"cashflow/internal/store"

	"github.com/labstack/echo/v4"
	"golang.org/x/sync/errgroup"
)

var (
	listUsers        = store.ListUsers
	countUsers       = store.CountUsers
	countUsersByRole = store.CountUsersByRole
	getUserByID      = store.GetUserByID
	updateUser       = store.UpdateUser

	phonePattern = regexp.MustCompile(`^\+?[\d\s\-()]+$`)
)

// @Summary     List users
// @Description 依姓名或 Email 搜尋、角色篩選並分頁 (僅限管理員)
// @Tags        users
// @Produce     json
// @Param       search query string false "搜尋姓名或 Email"
// @Param       role   query string false "ADMIN 或 USER"
// @Param       page   query int    false "頁碼" default(1)
// @Param       limit  query int    false "每頁筆數 (最多 100)" default(10)
// @Success     200 {object} api.UserListResponse
// @Failure     401 {object} api.ErrorResponse
// @Failure     403 {object} api.ErrorResponse
// @Failure     500 {object} api.ErrorResponse
// @Security    ApiKeyAuth
// @Router      /users [get]
func ListUsersHandler(db database.DB) echo.HandlerFunc {
	return func(c echo.Context) error {
		filter := model.UserFilter{Search: strings.TrimSpace(c.QueryParam("search"))}
		if r := model.Role(strings.ToUpper(c.QueryParam("role"))); r.Valid() {
			filter.Role = &r
		}
		page := model.NewPageRequest(c.QueryParam("page"), c.QueryParam("limit"))

		var (
			list   []model.User
			total  int
			byRole map[model.Role]int
		)
		g, ctx := errgroup.WithContext(c.Request().Context())
		g.Go(func() (err error) {
			list, err = listUsers(ctx, db, filter, page)
			return err
		})
		g.Go(func() (err error) {
			total, err = countUsers(ctx, db, filter)
			return err
		})
		g.Go(func() (err error) {
			byRole, err = countUsersByRole(ctx, db)
			return err
		})
		if err := g.Wait(); err != nil {
			slog.ErrorContext(c.Request().Context(), "list users failed", "error", err)
			return c.JSON(http.StatusInternalServerError, api.ErrorResponse{Message: "failed to list users"})
		}

		resp := api.UserListResponse{
			Users:      make([]api.UserResponse, 0, len(list)),
			Pagination: api.NewPagination(total, page.Page, page.Limit),
			Statistics: api.UserStatistics{
				TotalUsers: total,
				AdminCount: byRole[model.RoleAdmin],
				UserCount:  byRole[model.RoleUser],
			},
		}
		for _, u := range list {
			resp.Users = append(resp.Users, api.NewUserResponse(u))
		}
		return c.JSON(http.StatusOK, resp)
	}
}

// @Summary     Get current user
// @Tags        users
// @Produce     json
// @Success     200 {object} api.UserResponse
// @Failure     401 {object} api.ErrorResponse
// @Security    ApiKeyAuth
// @Router      /users/me [get]
func GetMeHandler() echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, api.NewUserResponse(*middleware.CurrentUser(c)))
	}
}

// parseUserID id 欄位為 INTEGER，超出範圍時回傳 strconv.ErrRange
func parseUserID(s string) (int, error) {
	id, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return 0, err
	}
	return int(id), nil
}

// @Summary     Get a user by ID
// @Tags        users
// @Produce     json
// @Param       id  path     int true "使用者 ID"
// @Success     200 {object} api.UserResponse
// @Failure     400 {object} api.ErrorResponse "參數錯誤"
// @Failure     404 {object} api.ErrorResponse "使用者不存在"
// @Failure     500 {object} api.ErrorResponse "伺服器錯誤"
// @Security    ApiKeyAuth
// @Router      /users/{id} [get]
func GetUserHandler(db database.DB) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := parseUserID(c.Param("id"))
		if errors.Is(err, strconv.ErrRange) {
			return c.JSON(http.StatusNotFound, api.ErrorResponse{Message: "user not found"})
		}
		if err != nil {
			return c.JSON(http.StatusBadRequest, api.ErrorResponse{Message: "invalid user ID"})
		}
		user, err := getUserByID(c.Request().Context(), db, id)
		if errors.Is(err, store.ErrNotFound) {
			return c.JSON(http.StatusNotFound, api.ErrorResponse{Message: "user not found"})
		}
		if err != nil {
			slog.ErrorContext(c.Request().Context(), "get user failed", "error", err)
			return c.JSON(http.StatusInternalServerError, api.ErrorResponse{Message: "failed to load user"})
		}
		return c.JSON(http.StatusOK, api.NewUserResponse(*user))
	}
}

// buildUserPatch 驗證有提供的欄位；管理員不可把自己降為 USER
func buildUserPatch(req api.UpdateUserRequest, targetID int, actor *model.User) (model.UserPatch, error) {
	var p model.UserPatch
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return p, errors.New("name cannot be empty")
		}
		p.Name = &name
	}
	if req.Role != nil {
		role := model.Role(*req.Role)
		if !role.Valid() {
			return p, errors.New("role must be ADMIN or USER")
		}
		if targetID == actor.ID && actor.IsAdmin() && role == model.RoleUser {
			return p, errors.New("you cannot remove your own admin role")
		}
		p.Role = &role
	}
	if req.Phone != nil {
		phone := strings.TrimSpace(*req.Phone)
		if phone != "" && !phonePattern.MatchString(phone) {
			return p, errors.New("invalid phone format")
		}
		p.Phone = &phone
	}
	return p, nil
}

// @Summary     Update a user
// @Description 更新姓名、角色或電話，至少需要一個欄位 (僅限管理員)
// @Tags        users
// @Accept      json
// @Produce     json
// @Param       id   path     int                   true "使用者 ID"
// @Param       body body     api.UpdateUserRequest true "要更新的欄位"
// @Success     200  {object} api.UserResponse
// @Failure     400  {object} api.ErrorResponse
// @Failure     401  {object} api.ErrorResponse
// @Failure     403  {object} api.ErrorResponse
// @Failure     404  {object} api.ErrorResponse
// @Failure     500  {object} api.ErrorResponse
// @Security    ApiKeyAuth
// @Router      /users/{id} [put]
func UpdateUserHandler(db database.DB) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := parseUserID(c.Param("id"))
		if errors.Is(err, strconv.ErrRange) {
			return c.JSON(http.StatusNotFound, api.ErrorResponse{Message: "user not found"})
		}
		if err != nil {
			return c.JSON(http.StatusBadRequest, api.ErrorResponse{Message: "invalid user ID"})
		}
		var req api.UpdateUserRequest
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, api.ErrorResponse{Message: "invalid request payload"})
		}
		patch, err := buildUserPatch(req, id, middleware.CurrentUser(c))
		if err != nil {
			return c.JSON(http.StatusBadRequest, api.ErrorResponse{Message: err.Error()})
		}
		if patch.Empty() {
			return c.JSON(http.StatusBadRequest, api.ErrorResponse{Message: "at least one field is required: name, role, phone"})
		}

		user, err := updateUser(c.Request().Context(), db, id, patch)
		if errors.Is(err, store.ErrNotFound) {
			return c.JSON(http.StatusNotFound, api.ErrorResponse{Message: "user not found"})
		}
		if err != nil {
			slog.ErrorContext(c.Request().Context(), "update user failed", "error", err)
			return c.JSON(http.StatusInternalServerError, api.ErrorResponse{Message: "failed to update user"})
		}
		return c.JSON(http.StatusOK, api.NewUserResponse(*user))
	}
}
