package api

import (
	"time"

	"cashflow/internal/model"
)

// UpdateUserRequest 至少需要一個欄位
// swagger:model api.UpdateUserRequest
type UpdateUserRequest struct {
	Name  *string `json:"name" example:"Alice"`
	Role  *string `json:"role" example:"USER"`
	Phone *string `json:"phone" example:"+1 (555) 010-2030"`
}

// swagger:model api.UserResponse
type UserResponse struct {
	ID            int       `json:"id" example:"1"`
	Name          string    `json:"name" example:"Alice"`
	Email         string    `json:"email" example:"alice@example.com"`
	Phone         *string   `json:"phone"`
	Image         *string   `json:"image"`
	Role          string    `json:"role" example:"ADMIN"`
	EmailVerified bool      `json:"emailVerified"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

func NewUserResponse(u model.User) UserResponse {
	return UserResponse{
		ID:            u.ID,
		Name:          u.Name,
		Email:         u.Email,
		Phone:         u.Phone,
		Image:         u.Image,
		Role:          string(u.Role),
		EmailVerified: u.EmailVerified,
		CreatedAt:     u.CreatedAt,
		UpdatedAt:     u.UpdatedAt,
	}
}

// swagger:model api.UserStatistics
type UserStatistics struct {
	TotalUsers int `json:"totalUsers" example:"10"`
	AdminCount int `json:"adminCount" example:"2"`
	UserCount  int `json:"userCount" example:"8"`
}

// swagger:model api.UserListResponse
type UserListResponse struct {
	Users      []UserResponse `json:"users"`
	Pagination Pagination     `json:"pagination"`
	Statistics UserStatistics `json:"statistics"`
}
