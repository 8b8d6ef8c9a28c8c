package models

import "time"

// User представляет пользователя симулятора.
// Создается при регистрации через magic-link; после создания
// изменяется только флаг администратора.
type User struct {
	ID        int64     `json:"id" db:"id"`
	Username  string    `json:"username" db:"username"`
	Email     string    `json:"email" db:"email"`
	IsAdmin   bool      `json:"is_admin" db:"is_admin"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// LoginToken - одноразовый токен для входа по magic-link.
// Секрет хранится только в виде bcrypt-хеша; ссылка содержит
// пару "id.secret" для поиска и проверки.
type LoginToken struct {
	ID        int64     `json:"id" db:"id"`
	Email     string    `json:"email" db:"email"`
	TokenHash string    `json:"-" db:"token_hash"`
	ExpiresAt time.Time `json:"expires_at" db:"expires_at"`
	Used      bool      `json:"used" db:"used"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Session - активная сессия пользователя после входа.
// Токен сессии хранится так же, как и login-токен: bcrypt-хеш,
// клиент передает "id.secret" в заголовке Authorization.
type Session struct {
	ID        int64     `json:"id" db:"id"`
	UserID    int64     `json:"user_id" db:"user_id"`
	TokenHash string    `json:"-" db:"token_hash"`
	ExpiresAt time.Time `json:"expires_at" db:"expires_at"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
