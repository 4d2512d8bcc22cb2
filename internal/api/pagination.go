package api

// swagger:model api.Pagination
type Pagination struct {
	Total      int  `json:"total" example:"42"`
	Page       int  `json:"page" example:"1"`
	Limit      int  `json:"limit" example:"10"`
	TotalPages int  `json:"totalPages" example:"5"`
	HasNext    bool `json:"hasNext" example:"true"`
	HasPrev    bool `json:"hasPrev" example:"false"`
}

// NewPagination 依總筆數與目前頁碼計算分頁資訊
func NewPagination(total, page, limit int) Pagination {
	totalPages := 0
	if limit > 0 {
		totalPages = (total + limit - 1) / limit
	}
	return Pagination{
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
		HasPrev:    page > 1,
	}
}
