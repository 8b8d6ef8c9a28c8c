// Package crypto - генерация и проверка непрозрачных токенов
// (ссылки для входа, сессии). Наружу уходит только сам токен,
// в базе хранится его bcrypt-хэш.
package crypto

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// Ошибки работы с токенами
var (
	ErrEmptyToken     = errors.New("token cannot be empty")
	ErrTokenMismatch  = errors.New("token does not match hash")
	ErrInvalidHash    = errors.New("invalid token hash format")
	ErrMalformedToken = errors.New("malformed token")
)

// DefaultCost - стоимость bcrypt-хеширования. Токены случайные и
// длинные, перебор по словарю им не грозит, поэтому cost ниже,
// чем принято для паролей.
const DefaultCost = 10

// secretBytes - длина случайной части токена до hex-кодирования
const secretBytes = 32

// GenerateSecret возвращает криптографически случайную строку
// из 64 hex-символов
func GenerateSecret() (string, error) {
	buf := make([]byte, secretBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// HashToken хеширует токен с использованием bcrypt
func HashToken(token string) (string, error) {
	if token == "" {
		return "", ErrEmptyToken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(token), DefaultCost)
	if err != nil {
		return "", err
	}

	return string(hash), nil
}

// VerifyToken проверяет соответствие токена хэшу.
// Сравнение внутри bcrypt - constant-time.
func VerifyToken(token, hash string) error {
	if token == "" {
		return ErrEmptyToken
	}
	if hash == "" {
		return ErrInvalidHash
	}

	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(token))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrTokenMismatch
		}
		return ErrInvalidHash
	}

	return nil
}

// FormatToken собирает предъявляемый клиенту токен вида "id.secret".
// ID позволяет найти запись по индексу, не перебирая bcrypt-хэши.
func FormatToken(id int64, secret string) string {
	return strconv.FormatInt(id, 10) + "." + secret
}

// ParseToken разбирает токен вида "id.secret"
func ParseToken(token string) (int64, string, error) {
	idStr, secret, ok := strings.Cut(token, ".")
	if !ok || idStr == "" || secret == "" {
		return 0, "", ErrMalformedToken
	}

	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id <= 0 {
		return 0, "", ErrMalformedToken
	}

	return id, secret, nil
}
