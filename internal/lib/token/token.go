// Package token выпускает случайные одноразовые токены приглашений.
// Клиенту отдается сам токен, в хранилище попадает только его SHA-256.
package token

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Size число случайных байт токена (256 бит).
const Size = 32

// New возвращает токен в hex и его хеш.
func New() (raw, hash string, err error) {
	b := make([]byte, Size)
	if _, err := rand.Read(b); err != nil {
		return "", "", fmt.Errorf("token.New: %w", err)
	}
	raw = hex.EncodeToString(b)
	return raw, Hash(raw), nil
}

// Hash хеш токена для хранения и поиска.
func Hash(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
