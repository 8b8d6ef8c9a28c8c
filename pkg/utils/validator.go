package utils

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"unicode/utf8"
)

// Ошибки валидации входных данных
var (
	ErrInvalidEmail    = errors.New("invalid email address")
	ErrEmptyUsername   = errors.New("username cannot be empty")
	ErrUsernameTooLong = errors.New("username exceeds maximum length")
	ErrEmptyBody       = errors.New("body cannot be empty")
	ErrBodyTooLong     = errors.New("body exceeds maximum length")
)

// Предельные длины пользовательского ввода
const (
	MaxUsernameLength   = 64
	MaxSuggestionLength = 2000
)

// ValidateEmail проверяет синтаксис email-адреса.
// Адрес с display name ("Alice <a@b.c>") не принимается.
func ValidateEmail(email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return ErrInvalidEmail
	}
	return nil
}

// NormalizeEmail приводит адрес к каноничному виду для поиска в БД
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateUsername проверяет отображаемое имя пользователя
func ValidateUsername(username string) error {
	username = strings.TrimSpace(username)
	if username == "" {
		return ErrEmptyUsername
	}
	if utf8.RuneCountInString(username) > MaxUsernameLength {
		return fmt.Errorf("%w (%d runes)", ErrUsernameTooLong, MaxUsernameLength)
	}
	return nil
}

// ValidateSuggestion проверяет текст предложения
func ValidateSuggestion(body string) error {
	if strings.TrimSpace(body) == "" {
		return ErrEmptyBody
	}
	if utf8.RuneCountInString(body) > MaxSuggestionLength {
		return fmt.Errorf("%w (%d runes)", ErrBodyTooLong, MaxSuggestionLength)
	}
	return nil
}
