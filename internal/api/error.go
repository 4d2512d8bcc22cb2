package api

// ErrorResponse 為所有 JSON 錯誤回應的格式
// swagger:model api.ErrorResponse
type ErrorResponse struct {
	Message string `json:"message" example:"movement not found"`
	Hint    string `json:"hint,omitempty" example:"sign in again"`
}
