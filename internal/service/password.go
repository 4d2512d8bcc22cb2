package service

import (
	"crypto/rand"
	"encoding/base64"

	"golang.org/x/crypto/bcrypt"
)

var (
	bcryptGenerateFromPassword   = bcrypt.GenerateFromPassword
	bcryptCompareHashAndPassword = bcrypt.CompareHashAndPassword
	randRead                     = rand.Read
)

// HashSecret 接收明文 secret，回傳 bcrypt 哈希字串
func HashSecret(secret string) (string, error) {
	hashBytes, err := bcryptGenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashBytes), nil
}

// CompareSecret 比對明文與 bcrypt 哈希，成功回傳 nil
func CompareSecret(hash, secret string) error {
	return bcryptCompareHashAndPassword([]byte(hash), []byte(secret))
}

// GenerateSecret 產生 n bytes 的隨機值，以 URL-safe base64 編碼
func GenerateSecret(n int) (string, error) {
	b := make([]byte, n)
	if _, err := randRead(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
