package repository

import (
	"context"
	"database/sql"
	"fmt"
)

// schemaStatements - DDL для всех таблиц приложения.
// Все денежные поля - BIGINT в минимальных единицах (сатоши либо
// минимальные единицы актива); цены USD - NUMERIC без потери точности.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id         BIGSERIAL PRIMARY KEY,
		username   TEXT NOT NULL,
		email      TEXT NOT NULL UNIQUE,
		is_admin   BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	`CREATE TABLE IF NOT EXISTS holdings (
		id         BIGSERIAL PRIMARY KEY,
		user_id    BIGINT NOT NULL REFERENCES users(id),
		asset      TEXT NOT NULL,
		amount     BIGINT NOT NULL DEFAULT 0 CHECK (amount >= 0),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (user_id, asset)
	)`,

	`CREATE TABLE IF NOT EXISTS purchases (
		id              BIGSERIAL PRIMARY KEY,
		user_id         BIGINT NOT NULL REFERENCES users(id),
		asset           TEXT NOT NULL,
		amount          BIGINT NOT NULL CHECK (amount > 0),
		consumed        BIGINT NOT NULL DEFAULT 0 CHECK (consumed >= 0 AND consumed <= amount),
		btc_spent       BIGINT NOT NULL CHECK (btc_spent > 0),
		btc_price_usd   NUMERIC NOT NULL,
		asset_price_usd NUMERIC NOT NULL,
		locked_until    TIMESTAMPTZ NOT NULL,
		created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_purchases_user_asset_created
		ON purchases (user_id, asset, created_at)`,

	`CREATE TABLE IF NOT EXISTS trades (
		id             BIGSERIAL PRIMARY KEY,
		user_id        BIGINT NOT NULL REFERENCES users(id),
		from_asset     TEXT NOT NULL,
		to_asset       TEXT NOT NULL,
		from_amount    BIGINT NOT NULL CHECK (from_amount > 0),
		to_amount      BIGINT NOT NULL CHECK (to_amount >= 0),
		from_price_usd NUMERIC NOT NULL,
		to_price_usd   NUMERIC NOT NULL,
		created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_trades_user_created
		ON trades (user_id, created_at)`,

	`CREATE TABLE IF NOT EXISTS price_snapshots (
		symbol     TEXT PRIMARY KEY,
		price_usd  NUMERIC NOT NULL,
		fetched_at TIMESTAMPTZ NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS login_tokens (
		id         BIGSERIAL PRIMARY KEY,
		email      TEXT NOT NULL,
		token_hash TEXT NOT NULL,
		expires_at TIMESTAMPTZ NOT NULL,
		used       BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	`CREATE TABLE IF NOT EXISTS sessions (
		id         BIGSERIAL PRIMARY KEY,
		user_id    BIGINT NOT NULL REFERENCES users(id),
		token_hash TEXT NOT NULL,
		expires_at TIMESTAMPTZ NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	`CREATE TABLE IF NOT EXISTS suggestions (
		id         BIGSERIAL PRIMARY KEY,
		user_id    BIGINT NOT NULL REFERENCES users(id),
		body       TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
}

// InitSchema создает таблицы и индексы, если их еще нет.
// Вызывается при старте сервера.
func InitSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema statement: %w", err)
		}
	}
	return nil
}
