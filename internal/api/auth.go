package api

import "time"

// swagger:model api.SessionResponse
type SessionResponse struct {
	User      UserResponse `json:"user"`
	ExpiresAt time.Time    `json:"expiresAt"`
}

// swagger:model api.TokenRequest
type TokenRequest struct {
	GrantType    string `form:"grant_type" validate:"required" example:"client_credentials"`
	ClientID     string `swaggerignore:"true"`
	ClientSecret string `swaggerignore:"true"`
}

// swagger:model api.TokenResponse
type TokenResponse struct {
	AccessToken string `json:"access_token" example:"eyJhbGciOi..."`
	TokenType   string `json:"token_type" example:"Bearer"`
	ExpiresIn   int    `json:"expires_in" example:"3600"`
}
