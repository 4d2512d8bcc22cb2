package model

import "time"

// APIClient 是以 client_credentials 取得 token 的機器用戶端，token 代表擁有者身份
type APIClient struct {
	ID         int       `db:"id" json:"-"`
	ClientID   string    `db:"client_id" json:"clientId"`
	SecretHash string    `db:"secret_hash" json:"-"`
	Name       string    `db:"name" json:"name"`
	OwnerID    int       `db:"owner_id" json:"ownerId"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt  time.Time `db:"updated_at" json:"updatedAt"`
}
