package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config содержит всю конфигурацию приложения
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Oracle   OracleConfig
	Auth     AuthConfig
	Limits   LimitsConfig
	Logging  LoggingConfig
}

// ServerConfig - настройки HTTP сервера
type ServerConfig struct {
	Port int
	Host string

	// ReadTimeout, WriteTimeout - таймауты http.Server
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// AllowedOrigins - origins для CORS, через запятую в
	// CORS_ALLOWED_ORIGINS
	AllowedOrigins map[string]struct{}
}

// DatabaseConfig - настройки подключения к БД
type DatabaseConfig struct {
	Host     string
	Port     int
	Name     string
	User     string
	Password string
	SSLMode  string
}

// OracleConfig - настройки оракула цен
type OracleConfig struct {
	// BaseURL - адрес внешнего API цен
	BaseURL string

	// APIKey - ключ внешнего API (пустой = без ключа)
	APIKey string

	Timeout time.Duration

	// RatePerSec, Burst - собственный лимит исходящих запросов,
	// чтобы не упереться в лимиты провайдера
	RatePerSec float64
	Burst      float64

	// DefaultBTCPriceUSD - последняя линия деградации для BTC,
	// когда нет ни живой цены, ни снапшота
	DefaultBTCPriceUSD int64

	// SnapshotMaxAge - максимальный возраст снапшота для fallback
	// (0 = без ограничения)
	SnapshotMaxAge time.Duration
}

// AuthConfig - настройки аутентификации
type AuthConfig struct {
	// LinkTTL - срок жизни одноразовой ссылки входа
	LinkTTL time.Duration

	// SessionTTL - срок жизни сессии
	SessionTTL time.Duration

	// BaseURL - адрес приложения для сборки ссылок входа
	BaseURL string

	// AdminEmails - адреса администраторов из ADMIN_EMAILS
	// (через запятую, нормализованные в нижний регистр)
	AdminEmails map[string]struct{}

	// CleanupInterval - период удаления просроченных токенов и сессий
	CleanupInterval time.Duration

	// LinksPerHour, LinkBurst - лимит выдачи ссылок входа на один email
	LinksPerHour float64
	LinkBurst    float64
}

// LimitsConfig - пользовательские лимиты
type LimitsConfig struct {
	// SuggestionsPerHour - сколько предложений пользователь может
	// отправить за час
	SuggestionsPerHour float64

	// SuggestionsBurst - допустимый всплеск подряд
	SuggestionsBurst float64
}

// LoggingConfig - настройки логирования
type LoggingConfig struct {
	Level  string
	Format string
}

// Load загружает конфигурацию из переменных окружения
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:           getEnvAsInt("SERVER_PORT", 8080),
			Host:           getEnv("SERVER_HOST", "0.0.0.0"),
			ReadTimeout:    getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:   getEnvAsDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			AllowedOrigins: getEnvAsSet("CORS_ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:5173"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			Name:     getEnv("DB_NAME", "mib"),
			User:     getEnv("DB_USER", "mib"),
			Password: getEnv("DB_PASSWORD", "mib"),
			SSLMode:  getEnv("DB_SSL_MODE", "disable"),
		},
		Oracle: OracleConfig{
			BaseURL:            getEnv("ORACLE_BASE_URL", "https://api.coingecko.com/api/v3"),
			APIKey:             getEnv("ORACLE_API_KEY", ""),
			Timeout:            getEnvAsDuration("ORACLE_TIMEOUT", 10*time.Second),
			RatePerSec:         getEnvAsFloat("ORACLE_RATE_PER_SEC", 2),
			Burst:              getEnvAsFloat("ORACLE_BURST", 5),
			DefaultBTCPriceUSD: int64(getEnvAsInt("ORACLE_DEFAULT_BTC_PRICE_USD", 115000)),
			SnapshotMaxAge:     getEnvAsDuration("ORACLE_SNAPSHOT_MAX_AGE", 24*time.Hour),
		},
		Auth: AuthConfig{
			LinkTTL:         getEnvAsDuration("AUTH_LINK_TTL", 15*time.Minute),
			SessionTTL:      getEnvAsDuration("AUTH_SESSION_TTL", 30*24*time.Hour),
			BaseURL:         getEnv("AUTH_BASE_URL", "http://localhost:8080"),
			AdminEmails:     getEnvAsEmailSet("ADMIN_EMAILS", ""),
			CleanupInterval: getEnvAsDuration("AUTH_CLEANUP_INTERVAL", time.Hour),
			LinksPerHour:    getEnvAsFloat("AUTH_LINKS_PER_HOUR", 5),
			LinkBurst:       getEnvAsFloat("AUTH_LINK_BURST", 3),
		},
		Limits: LimitsConfig{
			SuggestionsPerHour: getEnvAsFloat("SUGGESTIONS_PER_HOUR", 10),
			SuggestionsBurst:   getEnvAsFloat("SUGGESTIONS_BURST", 3),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validate проверяет диапазоны критичных параметров
func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}

	if c.Database.Port < 1 || c.Database.Port > 65535 {
		return fmt.Errorf("DB_PORT must be between 1 and 65535, got %d", c.Database.Port)
	}

	if c.Oracle.BaseURL == "" {
		return fmt.Errorf("ORACLE_BASE_URL is required")
	}

	if c.Oracle.Timeout <= 0 {
		return fmt.Errorf("ORACLE_TIMEOUT must be positive, got %v", c.Oracle.Timeout)
	}

	if c.Oracle.DefaultBTCPriceUSD <= 0 {
		return fmt.Errorf("ORACLE_DEFAULT_BTC_PRICE_USD must be positive, got %d", c.Oracle.DefaultBTCPriceUSD)
	}

	if c.Auth.LinkTTL <= 0 {
		return fmt.Errorf("AUTH_LINK_TTL must be positive, got %v", c.Auth.LinkTTL)
	}

	if c.Auth.SessionTTL < time.Minute {
		return fmt.Errorf("AUTH_SESSION_TTL must be at least a minute, got %v", c.Auth.SessionTTL)
	}

	if c.Limits.SuggestionsPerHour <= 0 {
		return fmt.Errorf("SUGGESTIONS_PER_HOUR must be positive, got %v", c.Limits.SuggestionsPerHour)
	}

	return nil
}

// DSN возвращает строку подключения к базе данных
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

// DSNWithoutPassword возвращает строку подключения без пароля (для логирования)
func (d DatabaseConfig) DSNWithoutPassword() string {
	return fmt.Sprintf("host=%s port=%d user=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Name, d.SSLMode)
}

// Вспомогательные функции для чтения переменных окружения

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsSet разбирает список через запятую в множество
func getEnvAsSet(key, defaultValue string) map[string]struct{} {
	value := getEnv(key, defaultValue)
	set := make(map[string]struct{})
	for _, item := range strings.Split(value, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			set[item] = struct{}{}
		}
	}
	return set
}

// getEnvAsEmailSet как getEnvAsSet, но нормализует адреса в нижний
// регистр
func getEnvAsEmailSet(key, defaultValue string) map[string]struct{} {
	set := make(map[string]struct{})
	for item := range getEnvAsSet(key, defaultValue) {
		set[strings.ToLower(item)] = struct{}{}
	}
	return set
}
