package store

import (
	"context"
	"fmt"

	"cashflow/internal/database"
	"cashflow/internal/model"
)

// PeriodUnit 為 date_trunc 的時間單位
type PeriodUnit string

const (
	PeriodDay   PeriodUnit = "day"
	PeriodMonth PeriodUnit = "month"
)

func rangeWhere(r model.DateRange) *whereBuilder {
	return movementWhere(model.MovementFilter{From: r.From, To: r.To})
}

// TotalsByType 回傳區間內每個類型的筆數、總額與平均
func TotalsByType(ctx context.Context, db database.DB, r model.DateRange) ([]model.TypeTotals, error) {
	w := rangeWhere(r)
	rows, err := db.Query(ctx,
		`SELECT m.type, COUNT(*), COALESCE(SUM(m.amount), 0), COALESCE(AVG(m.amount), 0)`+
			movementFrom+w.clause()+` GROUP BY m.type ORDER BY m.type DESC`,
		w.args...,
	)
	if err != nil {
		return nil, fmt.Errorf("TotalsByType: %w", err)
	}
	defer rows.Close()

	var list []model.TypeTotals
	for rows.Next() {
		var t model.TypeTotals
		if err := rows.Scan(&t.Type, &t.Count, &t.Sum, &t.Average); err != nil {
			return nil, fmt.Errorf("TotalsByType: %w", err)
		}
		list = append(list, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("TotalsByType: %w", err)
	}
	return list, nil
}

// PeriodTotals 依 UTC 日或月分桶彙總，新到舊排序
func PeriodTotals(ctx context.Context, db database.DB, unit PeriodUnit, r model.DateRange) ([]model.PeriodTotal, error) {
	if unit != PeriodDay && unit != PeriodMonth {
		return nil, fmt.Errorf("PeriodTotals: unsupported unit %q", unit)
	}
	w := rangeWhere(r)
	bucket := `date_trunc('` + string(unit) + `', m.date AT TIME ZONE 'UTC')`
	rows, err := db.Query(ctx,
		`SELECT `+bucket+` AS bucket, m.type, COALESCE(SUM(m.amount), 0), COUNT(*)`+
			movementFrom+w.clause()+` GROUP BY bucket, m.type ORDER BY bucket DESC, m.type DESC`,
		w.args...,
	)
	if err != nil {
		return nil, fmt.Errorf("PeriodTotals: %w", err)
	}
	defer rows.Close()

	var list []model.PeriodTotal
	for rows.Next() {
		var p model.PeriodTotal
		if err := rows.Scan(&p.Period, &p.Type, &p.Sum, &p.Count); err != nil {
			return nil, fmt.Errorf("PeriodTotals: %w", err)
		}
		p.Period = p.Period.UTC()
		list = append(list, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("PeriodTotals: %w", err)
	}
	return list, nil
}

// TopConcepts 依總額由大到小列出 concept；typ 為 nil 時兩種類型分開計算
func TopConcepts(ctx context.Context, db database.DB, r model.DateRange, typ *model.MovementType, limit int) ([]model.ConceptTotal, error) {
	w := movementWhere(model.MovementFilter{From: r.From, To: r.To, Type: typ})
	rows, err := db.Query(ctx,
		`SELECT m.concept, m.type, COALESCE(SUM(m.amount), 0) AS total, COUNT(*)`+
			movementFrom+w.clause()+
			` GROUP BY m.concept, m.type ORDER BY total DESC, m.concept LIMIT `+w.arg(limit),
		w.args...,
	)
	if err != nil {
		return nil, fmt.Errorf("TopConcepts: %w", err)
	}
	defer rows.Close()

	var list []model.ConceptTotal
	for rows.Next() {
		var c model.ConceptTotal
		if err := rows.Scan(&c.Concept, &c.Type, &c.Sum, &c.Count); err != nil {
			return nil, fmt.Errorf("TopConcepts: %w", err)
		}
		list = append(list, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("TopConcepts: %w", err)
	}
	return list, nil
}

// ActiveUsers 依區間內 movement 筆數排序
func ActiveUsers(ctx context.Context, db database.DB, r model.DateRange, limit int) ([]model.ActiveUser, error) {
	w := rangeWhere(r)
	rows, err := db.Query(ctx,
		`SELECT u.id, u.name, u.email, COUNT(*) AS movement_count, COALESCE(SUM(m.amount), 0)`+
			movementFrom+w.clause()+
			` GROUP BY u.id, u.name, u.email ORDER BY movement_count DESC, u.id LIMIT `+w.arg(limit),
		w.args...,
	)
	if err != nil {
		return nil, fmt.Errorf("ActiveUsers: %w", err)
	}
	defer rows.Close()

	var list []model.ActiveUser
	for rows.Next() {
		var a model.ActiveUser
		if err := rows.Scan(&a.UserID, &a.Name, &a.Email, &a.MovementCount, &a.TotalAmount); err != nil {
			return nil, fmt.Errorf("ActiveUsers: %w", err)
		}
		list = append(list, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ActiveUsers: %w", err)
	}
	return list, nil
}
