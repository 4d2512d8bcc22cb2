package api

import (
	"time"

	"cashflow/internal/model"

	"github.com/shopspring/decimal"
)

// swagger:model api.CreateMovementRequest
type CreateMovementRequest struct {
	Concept     string           `json:"concept" validate:"required" example:"Salary"`
	Amount      *decimal.Decimal `json:"amount" validate:"required" swaggertype:"string" example:"1500.00"`
	Date        string           `json:"date" validate:"required" example:"2024-01-15"`
	Type        string           `json:"type" validate:"required,oneof=INCOME EXPENSE" example:"INCOME"`
	Description *string          `json:"description" example:"January salary"`
	Category    *string          `json:"category" example:"work"`
}

// UpdateMovementRequest 只套用有提供的欄位
// swagger:model api.UpdateMovementRequest
type UpdateMovementRequest struct {
	Concept     *string          `json:"concept" example:"Salary"`
	Amount      *decimal.Decimal `json:"amount" swaggertype:"string" example:"1600.00"`
	Date        *string          `json:"date" example:"2024-01-31"`
	Type        *string          `json:"type" validate:"omitempty,oneof=INCOME EXPENSE" example:"EXPENSE"`
	Description *string          `json:"description" example:"adjusted"`
	Category    *string          `json:"category" example:"work"`
}

// swagger:model api.MovementResponse
type MovementResponse struct {
	ID          string          `json:"id" example:"3f1c2b9e-2f43-4c1e-9a57-0d7c6b1e8a11"`
	Concept     string          `json:"concept" example:"Salary"`
	Amount      decimal.Decimal `json:"amount" swaggertype:"string" example:"1500.00"`
	Date        time.Time       `json:"date"`
	Type        string          `json:"type" example:"INCOME"`
	Description *string         `json:"description"`
	Category    *string         `json:"category"`
	UserID      int             `json:"userId" example:"1"`
	User        model.Owner     `json:"user"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

func NewMovementResponse(m model.Movement) MovementResponse {
	return MovementResponse{
		ID:          m.ID,
		Concept:     m.Concept,
		Amount:      m.Amount,
		Date:        m.Date,
		Type:        string(m.Type),
		Description: m.Description,
		Category:    m.Category,
		UserID:      m.UserID,
		User:        m.Owner,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

// swagger:model api.MovementSummary
type MovementSummary struct {
	TotalAmount    decimal.Decimal `json:"totalAmount" swaggertype:"string" example:"2300.00"`
	TotalMovements int             `json:"totalMovements" example:"12"`
	Income         decimal.Decimal `json:"income" swaggertype:"string" example:"1500.00"`
	Expense        decimal.Decimal `json:"expense" swaggertype:"string" example:"800.00"`
	Balance        decimal.Decimal `json:"balance" swaggertype:"string" example:"700.00"`
}

func NewMovementSummary(s model.MovementSummary) MovementSummary {
	return MovementSummary{
		TotalAmount:    s.Total,
		TotalMovements: s.Count,
		Income:         s.Income,
		Expense:        s.Expense,
		Balance:        s.Balance(),
	}
}

// swagger:model api.MovementListResponse
type MovementListResponse struct {
	Movements  []MovementResponse `json:"movements"`
	Pagination Pagination         `json:"pagination"`
	Summary    MovementSummary    `json:"summary"`
}
