package model

import (
	"strconv"
	"time"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
)

// PageRequest 為 1-based 分頁參數
type PageRequest struct {
	Page  int
	Limit int
}

// NewPageRequest 解析 query string；無法解析或非正數時使用預設值，limit 上限 MaxLimit
func NewPageRequest(page, limit string) PageRequest {
	p := PageRequest{Page: DefaultPage, Limit: DefaultLimit}
	if v, err := strconv.Atoi(page); err == nil && v > 0 {
		p.Page = v
	}
	if v, err := strconv.Atoi(limit); err == nil && v > 0 {
		p.Limit = min(v, MaxLimit)
	}
	return p
}

func (p PageRequest) Offset() int {
	return (p.Page - 1) * p.Limit
}

// DateRange 為選擇性的時間區間，兩端皆包含
type DateRange struct {
	From *time.Time
	To   *time.Time
}

// Bounded 表示至少有一端有設定
func (r DateRange) Bounded() bool {
	return r.From != nil || r.To != nil
}
