package models

import (
	"strings"
	"time"
)

// Role роль пользователя в системе.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// User модель пользователя.
type User struct {
	UUID         string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// UserSummary проекция пользователя без учетных данных для вложенных ссылок.
type UserSummary struct {
	UUID  string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Summary возвращает публичную проекцию пользователя.
func (u *User) Summary() UserSummary {
	return UserSummary{UUID: u.UUID, Name: u.Name, Email: u.Email}
}

// IsAdmin сообщает, является ли пользователь администратором.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// NormalizeEmail приводит email к каноническому виду для сравнения без учета регистра.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Identity пользователь, извлеченный из bearer-токена.
type Identity struct {
	UserUID string
	Role    Role
}

// RegisterRequest тело запроса регистрации.
type RegisterRequest struct {
	Name     string `json:"name" validate:"required,min=2,max=50"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// LoginRequest тело запроса входа.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// CreateAdminRequest тело запроса создания администратора.
type CreateAdminRequest struct {
	RegisterRequest
	AdminKey string `json:"adminKey" validate:"required"`
}

// AuthResult результат регистрации или входа.
type AuthResult struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}
