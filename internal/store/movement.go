package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cashflow/internal/database"
	"cashflow/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const movementColumns = `m.id::text, m.concept, m.amount, m.date, m.type, m.description, m.category,
	m.user_id, u.name, u.email, m.created_at, m.updated_at`

const movementFrom = ` FROM movements m JOIN users u ON u.id = m.user_id`

// changedFrom 從寫入語句的 CTE m 讀回資料
const changedFrom = ` FROM m JOIN users u ON u.id = m.user_id`

// 搜尋字包含這些關鍵字時，也比對對應的類型
var (
	incomeKeywords  = []string{"ingreso", "income"}
	expenseKeywords = []string{"egreso", "expense", "gasto"}
)

func scanMovement(row pgx.Row, m *model.Movement) error {
	err := row.Scan(
		&m.ID,
		&m.Concept,
		&m.Amount,
		&m.Date,
		&m.Type,
		&m.Description,
		&m.Category,
		&m.UserID,
		&m.Owner.Name,
		&m.Owner.Email,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	m.Owner.ID = m.UserID
	return err
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

// movementWhere 組合搜尋、類型與日期條件；搜尋條件之間為 OR，其餘為 AND
func movementWhere(f model.MovementFilter) *whereBuilder {
	w := &whereBuilder{}
	if s := strings.TrimSpace(f.Search); s != "" {
		p := w.arg(containsPattern(s))
		ors := []string{
			"m.concept ILIKE " + p,
			"m.description ILIKE " + p,
			"u.name ILIKE " + p,
			"u.email ILIKE " + p,
		}
		lower := strings.ToLower(s)
		if containsAny(lower, incomeKeywords) {
			ors = append(ors, "m.type = 'INCOME'")
		}
		if containsAny(lower, expenseKeywords) {
			ors = append(ors, "m.type = 'EXPENSE'")
		}
		w.and("(" + strings.Join(ors, " OR ") + ")")
	}
	if f.Type != nil {
		w.and("m.type = " + w.arg(string(*f.Type)))
	}
	if f.From != nil {
		w.and("m.date >= " + w.arg(*f.From))
	}
	if f.To != nil {
		w.and("m.date <= " + w.arg(*f.To))
	}
	return w
}

func collectMovements(rows pgx.Rows, op string) ([]model.Movement, error) {
	defer rows.Close()
	list := []model.Movement{}
	for rows.Next() {
		var m model.Movement
		if err := scanMovement(rows, &m); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		list = append(list, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return list, nil
}

// ListMovements 依日期新到舊分頁列出符合條件的 movements
func ListMovements(ctx context.Context, db database.DB, f model.MovementFilter, p model.PageRequest) ([]model.Movement, error) {
	w := movementWhere(f)
	query := `SELECT ` + movementColumns + movementFrom + w.clause() +
		` ORDER BY m.date DESC, m.created_at DESC LIMIT ` + w.arg(p.Limit) + ` OFFSET ` + w.arg(p.Offset())
	rows, err := db.Query(ctx, query, w.args...)
	if err != nil {
		return nil, fmt.Errorf("ListMovements: %w", err)
	}
	return collectMovements(rows, "ListMovements")
}

// ListAllMovements 不分頁，供 CSV 匯出
func ListAllMovements(ctx context.Context, db database.DB, f model.MovementFilter) ([]model.Movement, error) {
	w := movementWhere(f)
	rows, err := db.Query(ctx,
		`SELECT `+movementColumns+movementFrom+w.clause()+` ORDER BY m.date DESC, m.created_at DESC`,
		w.args...,
	)
	if err != nil {
		return nil, fmt.Errorf("ListAllMovements: %w", err)
	}
	return collectMovements(rows, "ListAllMovements")
}

// SummarizeMovements 以單一查詢計算筆數、總額及收支小計
func SummarizeMovements(ctx context.Context, db database.DB, f model.MovementFilter) (model.MovementSummary, error) {
	w := movementWhere(f)
	var s model.MovementSummary
	err := db.QueryRow(ctx,
		`SELECT COUNT(*),
		        COALESCE(SUM(m.amount), 0),
		        COALESCE(SUM(m.amount) FILTER (WHERE m.type = 'INCOME'), 0),
		        COALESCE(SUM(m.amount) FILTER (WHERE m.type = 'EXPENSE'), 0)`+
			movementFrom+w.clause(),
		w.args...,
	).Scan(&s.Count, &s.Total, &s.Income, &s.Expense)
	if err != nil {
		return model.MovementSummary{}, fmt.Errorf("SummarizeMovements: %w", err)
	}
	return s, nil
}

func GetMovement(ctx context.Context, db database.DB, id string) (*model.Movement, error) {
	m := &model.Movement{}
	if err := scanMovement(db.QueryRow(ctx, `SELECT `+movementColumns+movementFrom+` WHERE m.id = $1::uuid`, id), m); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = ErrNotFound
		}
		return nil, fmt.Errorf("GetMovement: %w", err)
	}
	return m, nil
}

// CreateMovement 寫入新 movement 並回傳含擁有者資訊的完整資料
func CreateMovement(ctx context.Context, db database.DB, m *model.Movement) (*model.Movement, error) {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	row := db.QueryRow(ctx,
		`WITH m AS (
		   INSERT INTO movements (id, concept, amount, date, type, description, category, user_id)
		   VALUES ($1::uuid, $2, $3, $4, $5, $6, $7, $8)
		   RETURNING *
		 )
		 SELECT `+movementColumns+changedFrom,
		m.ID,
		m.Concept,
		m.Amount,
		m.Date,
		string(m.Type),
		m.Description,
		m.Category,
		m.UserID,
	)
	created := &model.Movement{}
	if err := scanMovement(row, created); err != nil {
		return nil, fmt.Errorf("CreateMovement: %w", err)
	}
	return created, nil
}

// UpdateMovement 套用 patch；Description/Category 為空字串時清除
func UpdateMovement(ctx context.Context, db database.DB, id string, patch model.MovementPatch) (*model.Movement, error) {
	var typ *string
	if patch.Type != nil {
		t := string(*patch.Type)
		typ = &t
	}
	row := db.QueryRow(ctx,
		`WITH m AS (
		   UPDATE movements SET
		     concept = COALESCE($2, concept),
		     amount = COALESCE($3, amount),
		     date = COALESCE($4, date),
		     type = COALESCE($5, type),
		     description = CASE WHEN $6::text IS NULL THEN description ELSE NULLIF($6::text, '') END,
		     category = CASE WHEN $7::text IS NULL THEN category ELSE NULLIF($7::text, '') END,
		     updated_at = NOW()
		   WHERE id = $1::uuid
		   RETURNING *
		 )
		 SELECT `+movementColumns+changedFrom,
		id,
		patch.Concept,
		patch.Amount,
		patch.Date,
		typ,
		patch.Description,
		patch.Category,
	)
	updated := &model.Movement{}
	if err := scanMovement(row, updated); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = ErrNotFound
		}
		return nil, fmt.Errorf("UpdateMovement: %w", err)
	}
	return updated, nil
}

func DeleteMovement(ctx context.Context, db database.DB, id string) error {
	tag, err := db.Exec(ctx, `DELETE FROM movements WHERE id = $1::uuid`, id)
	if err != nil {
		return fmt.Errorf("DeleteMovement: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("DeleteMovement: %w", ErrNotFound)
	}
	return nil
}
