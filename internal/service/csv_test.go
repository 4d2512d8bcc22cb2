package service

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"cashflow/internal/model"

	"github.com/stretchr/testify/require"
)

func TestMovementsCSV(t *testing.T) {
	ms := []model.Movement{{
		ID:        "m1",
		Concept:   "Rent, March",
		Amount:    dec("1200.5"),
		Type:      model.MovementExpense,
		Date:      time.Date(2024, 3, 1, 15, 0, 0, 0, time.UTC),
		CreatedAt: time.Date(2024, 3, 2, 8, 0, 0, 0, time.UTC),
		Owner:     model.Owner{ID: 3, Name: "Ana", Email: "ana@example.com"},
	}}

	recs := MovementsCSV(ms, false)
	require.Equal(t, []string{"ID", "Concept", "Amount", "Type", "Date", "Created At"}, recs[0])
	require.Equal(t, []string{"m1", "Rent, March", "1200.50", "Expense", "2024-03-01", "2024-03-02T08:00:00Z"}, recs[1])

	recs = MovementsCSV(ms, true)
	require.Len(t, recs[0], 9)
	require.Equal(t, []string{"3", "Ana", "ana@example.com"}, recs[1][6:])

	require.Len(t, MovementsCSV(nil, true), 1)
}

func TestSummaryCSV(t *testing.T) {
	totals := []model.TypeTotals{
		{Type: model.MovementIncome, Count: 2, Sum: dec("300"), Average: dec("150")},
		{Type: model.MovementExpense, Count: 3, Sum: dec("100"), Average: dec("33.3333")},
	}
	concepts := []model.ConceptTotal{{Concept: "Salary", Type: model.MovementIncome, Sum: dec("300"), Count: 2}}
	monthly := []model.PeriodTotal{{Period: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), Type: model.MovementExpense, Sum: dec("100"), Count: 3}}

	recs := SummaryCSV(totals, concepts, monthly)
	require.Equal(t, [][]string{
		{"Section", "Concept", "Type", "Amount", "Count", "Average"},
		{"OVERALL SUMMARY", "", "", "", "", ""},
		{"", "Total", "Income", "300.00", "2", "150.00"},
		{"", "Total", "Expenses", "100.00", "3", "33.33"},
		{"", "", "", "", "", ""},
		{"BY CONCEPT", "", "", "", "", ""},
		{"", "Salary", "Income", "300.00", "2", ""},
		{"", "", "", "", "", ""},
		{"BY MONTH", "", "", "", "", ""},
		{"", "2024-02", "Expenses", "100.00", "3", "33.33"},
	}, recs)

	// 沒有資料時仍輸出各段標題
	require.Len(t, SummaryCSV(nil, nil, nil), 6)
}

func TestUsersCSV(t *testing.T) {
	phone := "+34 600"
	day := time.Date(2024, 1, 2, 3, 0, 0, 0, time.UTC)
	users := []model.UserWithStats{
		{User: model.User{ID: 1, Name: "Ana", Email: "a@x", Phone: &phone, Role: model.RoleAdmin, EmailVerified: true, CreatedAt: day, UpdatedAt: day}, MovementCount: 4, TotalAmount: dec("99.9")},
		{User: model.User{ID: 2, Name: "Bo", Email: "b@x", Role: model.RoleUser, CreatedAt: day, UpdatedAt: day}},
	}
	recs := UsersCSV(users)
	require.Len(t, recs, 3)
	require.Equal(t, []string{"1", "Ana", "a@x", "+34 600", "ADMIN", "Yes", "2024-01-02", "2024-01-02", "4", "99.90"}, recs[1])
	require.Equal(t, []string{"2", "Bo", "b@x", "Not specified", "USER", "No", "2024-01-02", "2024-01-02", "0", "0.00"}, recs[2])
}

type failWriter struct{}

func (failWriter) Write([]byte) (int, error) { return 0, errors.New("closed") }

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, [][]string{{"a", "b,c"}, {`say "hi"`, "line\nbreak"}}))
	out := buf.String()
	require.True(t, strings.HasPrefix(out, utf8BOM))
	require.Equal(t, utf8BOM+"a,\"b,c\"\r\n\"say \"\"hi\"\"\",\"line\r\nbreak\"\r\n", out)

	require.Error(t, WriteCSV(failWriter{}, [][]string{{"a"}}))
}
