package store

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound 表示查詢或異動的目標不存在
var ErrNotFound = errors.New("not found")

// whereBuilder 依序累積條件與 $n 參數
type whereBuilder struct {
	conds []string
	args  []any
}

// arg 加入一個參數並回傳其 placeholder
func (w *whereBuilder) arg(v any) string {
	w.args = append(w.args, v)
	return fmt.Sprintf("$%d", len(w.args))
}

func (w *whereBuilder) and(cond string) {
	w.conds = append(w.conds, cond)
}

func (w *whereBuilder) clause() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern 產生 ILIKE 用的 %term%，跳脫萬用字元
func containsPattern(term string) string {
	return "%" + likeEscaper.Replace(term) + "%"
}
