package store

import (
	"context"
	"fmt"
	"reflect"
	"testing"

	"cashflow/internal/database"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

/* ---------- 假實作 ---------- */

// assign 把 values 依序寫入 Scan 的目標指標；nil 保留零值
func assign(dest, values []any) error {
	if len(dest) != len(values) {
		return fmt.Errorf("scan: %d destinations for %d values", len(dest), len(values))
	}
	for i, v := range values {
		if v == nil {
			continue
		}
		reflect.ValueOf(dest[i]).Elem().Set(reflect.ValueOf(v))
	}
	return nil
}

// fakeRow 實作 pgx.Row
type fakeRow struct {
	values []any
	err    error
}

func (r *fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	return assign(dest, r.values)
}

// fakeRows 實作 pgx.Rows
type fakeRows struct {
	data    [][]any
	idx     int
	scanErr error
	err     error
	closed  bool
}

func (r *fakeRows) Close()                                       { r.closed = true }
func (r *fakeRows) Err() error                                   { return r.err }
func (r *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *fakeRows) Next() bool                                   { return r.idx < len(r.data) }
func (r *fakeRows) Scan(dest ...any) error {
	if r.scanErr != nil {
		return r.scanErr
	}
	v := r.data[r.idx]
	r.idx++
	return assign(dest, v)
}
func (r *fakeRows) Values() ([]any, error) { return nil, nil }
func (r *fakeRows) RawValues() [][]byte    { return nil }
func (r *fakeRows) Conn() *pgx.Conn        { return nil }

// call 記錄最後一次查詢的 SQL 與參數
type call struct {
	sql  string
	args []any
}

func rowDB(c *call, row pgx.Row) *database.FakeDB {
	return &database.FakeDB{
		QueryRowFn: func(_ context.Context, sql string, args ...any) pgx.Row {
			c.sql, c.args = sql, args
			return row
		},
	}
}

func rowsDB(c *call, rows pgx.Rows, err error) *database.FakeDB {
	return &database.FakeDB{
		QueryFn: func(_ context.Context, sql string, args ...any) (pgx.Rows, error) {
			c.sql, c.args = sql, args
			if err != nil {
				return nil, err
			}
			return rows, nil
		},
	}
}

func execDB(c *call, tag string, err error) *database.FakeDB {
	return &database.FakeDB{
		ExecFn: func(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
			c.sql, c.args = sql, args
			return pgconn.NewCommandTag(tag), err
		},
	}
}

/* ---------- whereBuilder ---------- */

func TestWhereBuilder(t *testing.T) {
	w := &whereBuilder{}
	require.Equal(t, "", w.clause())

	w.and("a = " + w.arg(1))
	w.and("b = " + w.arg("x"))
	require.Equal(t, " WHERE a = $1 AND b = $2", w.clause())
	require.Equal(t, []any{1, "x"}, w.args)
}

func TestContainsPattern(t *testing.T) {
	require.Equal(t, "%rent%", containsPattern("rent"))
	require.Equal(t, `%50\%\_off\\%`, containsPattern(`50%_off\`))
}
