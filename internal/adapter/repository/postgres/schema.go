package postgres

import (
	"context"
	"fmt"
)

// Schema is the table layout the repositories read
const Schema = `
CREATE TABLE IF NOT EXISTS portfolios (
	id UUID PRIMARY KEY,
	name TEXT NOT NULL,
	currency CHAR(3) NOT NULL
);
CREATE TABLE IF NOT EXISTS positions (
	id UUID PRIMARY KEY,
	portfolio_id UUID NOT NULL REFERENCES portfolios(id),
	instrument_id UUID NOT NULL,
	currency CHAR(3) NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS transactions (
	id UUID PRIMARY KEY,
	seq BIGSERIAL,
	position_id UUID NOT NULL REFERENCES positions(id),
	amount NUMERIC NOT NULL,
	price NUMERIC NOT NULL,
	time TIMESTAMPTZ NOT NULL,
	note TEXT
);
CREATE INDEX IF NOT EXISTS transactions_position_time_idx ON transactions (position_id, time);
CREATE TABLE IF NOT EXISTS prices (
	instrument_id UUID NOT NULL,
	time TIMESTAMPTZ NOT NULL,
	price NUMERIC NOT NULL,
	PRIMARY KEY (instrument_id, time)
);
CREATE TABLE IF NOT EXISTS exchange_rates (
	from_currency CHAR(3) NOT NULL,
	to_currency CHAR(3) NOT NULL,
	time TIMESTAMPTZ NOT NULL,
	rate NUMERIC NOT NULL,
	PRIMARY KEY (from_currency, to_currency, time)
);
`

// EnsureSchema creates the tables read by the repositories if they are missing
func (db *DB) EnsureSchema(ctx context.Context) error {
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}
	return nil
}
