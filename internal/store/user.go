package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cashflow/internal/database"
	"cashflow/internal/model"

	"github.com/jackc/pgx/v5"
)

const userColumns = `id, github_id, name, email, phone, image, role, email_verified, created_at, updated_at`

func scanUser(row pgx.Row, u *model.User, extra ...any) error {
	dest := []any{
		&u.ID,
		&u.GitHubID,
		&u.Name,
		&u.Email,
		&u.Phone,
		&u.Image,
		&u.Role,
		&u.EmailVerified,
		&u.CreatedAt,
		&u.UpdatedAt,
	}
	return row.Scan(append(dest, extra...)...)
}

func getUser(ctx context.Context, db database.DB, op, where string, arg any) (*model.User, error) {
	u := &model.User{}
	if err := scanUser(db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE `+where, arg), u); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = ErrNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

func GetUserByID(ctx context.Context, db database.DB, userID int) (*model.User, error) {
	return getUser(ctx, db, "GetUserByID", "id = $1", userID)
}

func GetUserByEmail(ctx context.Context, db database.DB, email string) (*model.User, error) {
	return getUser(ctx, db, "GetUserByEmail", "email = $1", strings.ToLower(email))
}

// GitHubIdentity 是 OAuth 登入後取得的使用者資料
type GitHubIdentity struct {
	GitHubID string
	Name     string
	Email    string
	Image    string
}

// ErrGitHubAccountConflict 表示 email 已綁定其他 GitHub 帳號
var ErrGitHubAccountConflict = errors.New("email is linked to another GitHub account")

// UpsertGitHubUser 先以 github_id 比對既有使用者，找不到時才依 email 建立或綁定。
// 首次登入以 defaultRole 建立；之後登入只更新 email、頭像與驗證狀態，角色與已設定的姓名不變
func UpsertGitHubUser(ctx context.Context, db database.DB, id GitHubIdentity, defaultRole model.Role) (*model.User, error) {
	var image *string
	if id.Image != "" {
		image = &id.Image
	}
	email := strings.ToLower(id.Email)

	// email 已被其他列使用時保留原本的 email
	u := &model.User{}
	err := scanUser(db.QueryRow(ctx,
		`UPDATE users SET
		   email = CASE WHEN EXISTS (SELECT 1 FROM users o WHERE o.email = $2 AND o.id <> users.id)
		           THEN users.email ELSE $2 END,
		   name = CASE WHEN users.name = '' THEN $3 ELSE users.name END,
		   image = COALESCE($4, users.image),
		   email_verified = TRUE,
		   updated_at = NOW()
		 WHERE github_id = $1
		 RETURNING `+userColumns,
		id.GitHubID,
		email,
		id.Name,
		image,
	), u)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("UpsertGitHubUser: %w", err)
	}

	row := db.QueryRow(ctx,
		`INSERT INTO users (github_id, name, email, image, role, email_verified)
		 VALUES ($1, $2, $3, $4, $5, TRUE)
		 ON CONFLICT (email) DO UPDATE SET
		   github_id = EXCLUDED.github_id,
		   name = CASE WHEN users.name = '' THEN EXCLUDED.name ELSE users.name END,
		   image = COALESCE(EXCLUDED.image, users.image),
		   email_verified = TRUE,
		   updated_at = NOW()
		 WHERE users.github_id IS NULL OR users.github_id = EXCLUDED.github_id
		 RETURNING `+userColumns,
		id.GitHubID,
		id.Name,
		email,
		image,
		string(defaultRole),
	)
	if err := scanUser(row, u); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = ErrGitHubAccountConflict
		}
		return nil, fmt.Errorf("UpsertGitHubUser: %w", err)
	}
	return u, nil
}

// UpsertUser 依 email 建立或更新姓名與角色，供 seed 使用
func UpsertUser(ctx context.Context, db database.DB, name, email string, role model.Role) (*model.User, error) {
	row := db.QueryRow(ctx,
		`INSERT INTO users (name, email, role, email_verified)
		 VALUES ($1, $2, $3, TRUE)
		 ON CONFLICT (email) DO UPDATE SET name = EXCLUDED.name, role = EXCLUDED.role, updated_at = NOW()
		 RETURNING `+userColumns,
		name,
		strings.ToLower(email),
		string(role),
	)
	u := &model.User{}
	if err := scanUser(row, u); err != nil {
		return nil, fmt.Errorf("UpsertUser: %w", err)
	}
	return u, nil
}

func userWhere(f model.UserFilter) *whereBuilder {
	w := &whereBuilder{}
	if s := strings.TrimSpace(f.Search); s != "" {
		p := w.arg(containsPattern(s))
		w.and("(name ILIKE " + p + " OR email ILIKE " + p + ")")
	}
	if f.Role != nil {
		w.and("role = " + w.arg(string(*f.Role)))
	}
	return w
}

// ListUsers 依建立時間新到舊分頁列出
func ListUsers(ctx context.Context, db database.DB, f model.UserFilter, p model.PageRequest) ([]model.User, error) {
	w := userWhere(f)
	query := `SELECT ` + userColumns + ` FROM users` + w.clause() +
		` ORDER BY created_at DESC, id DESC LIMIT ` + w.arg(p.Limit) + ` OFFSET ` + w.arg(p.Offset())
	rows, err := db.Query(ctx, query, w.args...)
	if err != nil {
		return nil, fmt.Errorf("ListUsers: %w", err)
	}
	defer rows.Close()

	users := []model.User{}
	for rows.Next() {
		var u model.User
		if err := scanUser(rows, &u); err != nil {
			return nil, fmt.Errorf("ListUsers: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListUsers: %w", err)
	}
	return users, nil
}

func CountUsers(ctx context.Context, db database.DB, f model.UserFilter) (int, error) {
	w := userWhere(f)
	var n int
	if err := db.QueryRow(ctx, `SELECT COUNT(*) FROM users`+w.clause(), w.args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("CountUsers: %w", err)
	}
	return n, nil
}

// CountUsersByRole 統計所有使用者的角色分布，不受列表篩選影響
func CountUsersByRole(ctx context.Context, db database.DB) (map[model.Role]int, error) {
	rows, err := db.Query(ctx, `SELECT role, COUNT(*) FROM users GROUP BY role`)
	if err != nil {
		return nil, fmt.Errorf("CountUsersByRole: %w", err)
	}
	defer rows.Close()

	counts := map[model.Role]int{}
	for rows.Next() {
		var (
			role model.Role
			n    int
		)
		if err := rows.Scan(&role, &n); err != nil {
			return nil, fmt.Errorf("CountUsersByRole: %w", err)
		}
		counts[role] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("CountUsersByRole: %w", err)
	}
	return counts, nil
}

// UpdateUser 套用 patch；Phone 為空字串時清除
func UpdateUser(ctx context.Context, db database.DB, userID int, patch model.UserPatch) (*model.User, error) {
	var role *string
	if patch.Role != nil {
		r := string(*patch.Role)
		role = &r
	}
	row := db.QueryRow(ctx,
		`UPDATE users SET
		   name = COALESCE($2, name),
		   role = COALESCE($3, role),
		   phone = CASE WHEN $4::text IS NULL THEN phone ELSE NULLIF($4::text, '') END,
		   updated_at = NOW()
		 WHERE id = $1
		 RETURNING `+userColumns,
		userID,
		patch.Name,
		role,
		patch.Phone,
	)
	u := &model.User{}
	if err := scanUser(row, u); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = ErrNotFound
		}
		return nil, fmt.Errorf("UpdateUser: %w", err)
	}
	return u, nil
}

func SetUserRoleByEmail(ctx context.Context, db database.DB, email string, role model.Role) error {
	tag, err := db.Exec(ctx,
		`UPDATE users SET role = $1, updated_at = NOW() WHERE email = $2`,
		string(role),
		strings.ToLower(email),
	)
	if err != nil {
		return fmt.Errorf("SetUserRoleByEmail: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("SetUserRoleByEmail: %w", ErrNotFound)
	}
	return nil
}

// ListUsersWithStats 列出所有使用者及其 movement 筆數與總額
func ListUsersWithStats(ctx context.Context, db database.DB) ([]model.UserWithStats, error) {
	rows, err := db.Query(ctx,
		`SELECT u.id, u.github_id, u.name, u.email, u.phone, u.image, u.role, u.email_verified, u.created_at, u.updated_at,
		        COUNT(m.id), COALESCE(SUM(m.amount), 0)
		 FROM users u
		 LEFT JOIN movements m ON m.user_id = u.id
		 GROUP BY u.id
		 ORDER BY u.created_at DESC, u.id DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("ListUsersWithStats: %w", err)
	}
	defer rows.Close()

	var list []model.UserWithStats
	for rows.Next() {
		var s model.UserWithStats
		if err := scanUser(rows, &s.User, &s.MovementCount, &s.TotalAmount); err != nil {
			return nil, fmt.Errorf("ListUsersWithStats: %w", err)
		}
		list = append(list, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListUsersWithStats: %w", err)
	}
	return list, nil
}
