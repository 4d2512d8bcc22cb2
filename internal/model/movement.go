package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// MovementType 為收支類型
type MovementType string

const (
	MovementIncome  MovementType = "INCOME"
	MovementExpense MovementType = "EXPENSE"
)

// Valid 回報 t 是否為 INCOME 或 EXPENSE
func (t MovementType) Valid() bool {
	return t == MovementIncome || t == MovementExpense
}

// Owner 是 movement 所屬使用者的摘要
type Owner struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type Movement struct {
	ID          string          `db:"id" json:"id"`
	Concept     string          `db:"concept" json:"concept"`
	Amount      decimal.Decimal `db:"amount" json:"amount"`
	Date        time.Time       `db:"date" json:"date"`
	Type        MovementType    `db:"type" json:"type"`
	Description *string         `db:"description" json:"description"`
	Category    *string         `db:"category" json:"category"`
	UserID      int             `db:"user_id" json:"userId"`
	Owner       Owner           `json:"user"`
	CreatedAt   time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time       `db:"updated_at" json:"updatedAt"`
}

// MovementPatch 只更新非 nil 欄位；Description/Category 設為空字串代表清除
type MovementPatch struct {
	Concept     *string
	Amount      *decimal.Decimal
	Date        *time.Time
	Type        *MovementType
	Description *string
	Category    *string
}

// Empty 表示沒有任何欄位需要更新
func (p MovementPatch) Empty() bool {
	return p.Concept == nil && p.Amount == nil && p.Date == nil &&
		p.Type == nil && p.Description == nil && p.Category == nil
}

// MovementFilter 為 movement 列表與匯總共用的查詢條件
type MovementFilter struct {
	Search string
	Type   *MovementType
	From   *time.Time
	To     *time.Time
}

// MovementSummary 是符合篩選條件的整體匯總
type MovementSummary struct {
	Count   int             `json:"totalMovements"`
	Total   decimal.Decimal `json:"totalAmount"`
	Income  decimal.Decimal `json:"income"`
	Expense decimal.Decimal `json:"expense"`
}

// Balance = 收入 - 支出
func (s MovementSummary) Balance() decimal.Decimal {
	return s.Income.Sub(s.Expense)
}
