package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// TypeTotals 為單一類型的筆數、總額與平均
type TypeTotals struct {
	Type    MovementType
	Count   int
	Sum     decimal.Decimal
	Average decimal.Decimal
}

// PeriodTotal 為某一時間桶 (日或月) 內單一類型的總額
type PeriodTotal struct {
	Period time.Time
	Type   MovementType
	Sum    decimal.Decimal
	Count  int
}

// ConceptTotal 為依 concept 分組的彙總
type ConceptTotal struct {
	Concept string
	Type    MovementType
	Sum     decimal.Decimal
	Count   int
}

// ActiveUser 為建立最多 movement 的使用者
type ActiveUser struct {
	UserID        int
	Name          string
	Email         string
	MovementCount int
	TotalAmount   decimal.Decimal
}
