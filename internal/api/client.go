package api

import (
	"time"

	"cashflow/internal/model"
)

// swagger:model api.CreateAPIClientRequest
type CreateAPIClientRequest struct {
	Name string `json:"name" validate:"required,max=100" example:"reporting-bot"`
}

// swagger:model api.APIClientResponse
type APIClientResponse struct {
	ClientID  string    `json:"clientId" example:"c_1f0c8a"`
	Name      string    `json:"name" example:"reporting-bot"`
	CreatedAt time.Time `json:"createdAt"`
}

func NewAPIClientResponse(c model.APIClient) APIClientResponse {
	return APIClientResponse{ClientID: c.ClientID, Name: c.Name, CreatedAt: c.CreatedAt}
}

// APIClientCreatedResponse 只在建立時回傳明文 secret
// swagger:model api.APIClientCreatedResponse
type APIClientCreatedResponse struct {
	APIClientResponse
	ClientSecret string `json:"clientSecret" example:"kJ8s..."`
}
