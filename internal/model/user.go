package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Role 為使用者角色
type Role string

const (
	RoleAdmin Role = "ADMIN"
	RoleUser  Role = "USER"
)

// Valid 回報 r 是否為已知角色
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleUser
}

type User struct {
	ID            int       `db:"id" json:"id"`
	GitHubID      *string   `db:"github_id" json:"-"`
	Name          string    `db:"name" json:"name"`
	Email         string    `db:"email" json:"email"`
	Phone         *string   `db:"phone" json:"phone"`
	Image         *string   `db:"image" json:"image"`
	Role          Role      `db:"role" json:"role"`
	EmailVerified bool      `db:"email_verified" json:"emailVerified"`
	CreatedAt     time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt     time.Time `db:"updated_at" json:"updatedAt"`
}

// IsAdmin 是否具管理員權限
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// UserFilter 是使用者列表的查詢條件；Search 比對姓名與 Email
type UserFilter struct {
	Search string
	Role   *Role
}

// UserPatch 只更新非 nil 欄位
type UserPatch struct {
	Name  *string
	Role  *Role
	Phone *string
}

// Empty 表示沒有任何欄位需要更新
func (p UserPatch) Empty() bool {
	return p.Name == nil && p.Role == nil && p.Phone == nil
}

// UserWithStats 用於使用者 CSV 匯出
type UserWithStats struct {
	User
	MovementCount int
	TotalAmount   decimal.Decimal
}
