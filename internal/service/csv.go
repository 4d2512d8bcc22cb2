package service

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"cashflow/internal/model"

	"github.com/shopspring/decimal"
)

// utf8BOM 讓 Excel 以 UTF-8 開啟
const utf8BOM = "\ufeff"

const notSpecified = "Not specified"

func typeLabel(t model.MovementType) string {
	if t == model.MovementIncome {
		return "Income"
	}
	return "Expense"
}

func typeLabelPlural(t model.MovementType) string {
	if t == model.MovementIncome {
		return "Income"
	}
	return "Expenses"
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

// MovementsCSV 第一列為標題；includeUser 時附上擁有者欄位
func MovementsCSV(movements []model.Movement, includeUser bool) [][]string {
	header := []string{"ID", "Concept", "Amount", "Type", "Date", "Created At"}
	if includeUser {
		header = append(header, "User ID", "User Name", "User Email")
	}
	records := [][]string{header}
	for _, m := range movements {
		rec := []string{
			m.ID,
			m.Concept,
			m.Amount.StringFixed(2),
			typeLabel(m.Type),
			m.Date.UTC().Format(dateOnly),
			m.CreatedAt.UTC().Format(time.RFC3339),
		}
		if includeUser {
			rec = append(rec, strconv.Itoa(m.Owner.ID), m.Owner.Name, m.Owner.Email)
		}
		records = append(records, rec)
	}
	return records
}

// SummaryCSV 分三段：整體、依 concept、依月份
func SummaryCSV(totals []model.TypeTotals, concepts []model.ConceptTotal, monthly []model.PeriodTotal) [][]string {
	blank := []string{"", "", "", "", "", ""}
	section := func(name string) []string { return []string{name, "", "", "", "", ""} }

	records := [][]string{
		{"Section", "Concept", "Type", "Amount", "Count", "Average"},
		section("OVERALL SUMMARY"),
	}
	for _, t := range totals {
		records = append(records, []string{
			"", "Total", typeLabelPlural(t.Type), t.Sum.StringFixed(2), strconv.Itoa(t.Count), t.Average.StringFixed(2),
		})
	}

	records = append(records, blank, section("BY CONCEPT"))
	for _, c := range concepts {
		records = append(records, []string{
			"", c.Concept, typeLabel(c.Type), c.Sum.StringFixed(2), strconv.Itoa(c.Count), "",
		})
	}

	records = append(records, blank, section("BY MONTH"))
	for _, p := range monthly {
		avg := decimal.Zero
		if p.Count > 0 {
			avg = p.Sum.Div(decimal.NewFromInt(int64(p.Count)))
		}
		records = append(records, []string{
			"", p.Period.UTC().Format("2006-01"), typeLabelPlural(p.Type), p.Sum.StringFixed(2), strconv.Itoa(p.Count), avg.StringFixed(2),
		})
	}
	return records
}

// UsersCSV 含每位使用者的 movement 統計
func UsersCSV(users []model.UserWithStats) [][]string {
	records := [][]string{{
		"ID", "Name", "Email", "Phone", "Role", "Email Verified",
		"Registered", "Last Updated", "Total Movements", "Total Movement Amount",
	}}
	for _, u := range users {
		phone := notSpecified
		if u.Phone != nil && *u.Phone != "" {
			phone = *u.Phone
		}
		records = append(records, []string{
			strconv.Itoa(u.ID),
			u.Name,
			u.Email,
			phone,
			string(u.Role),
			yesNo(u.EmailVerified),
			u.CreatedAt.UTC().Format(dateOnly),
			u.UpdatedAt.UTC().Format(dateOnly),
			strconv.Itoa(u.MovementCount),
			u.TotalAmount.StringFixed(2),
		})
	}
	return records
}

// WriteCSV 寫出 BOM 與 RFC 4180 格式內容，欄位含逗號、引號或換行時加引號
func WriteCSV(w io.Writer, records [][]string) error {
	if _, err := io.WriteString(w, utf8BOM); err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	cw.UseCRLF = true
	return cw.WriteAll(records)
}
