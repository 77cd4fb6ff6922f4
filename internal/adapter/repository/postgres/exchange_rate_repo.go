package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/simaogato/wealthflow-analytics/internal/domain"
)

// exchangeRateRepository implements domain.ExchangeRateSource
type exchangeRateRepository struct {
	db *DB
}

// NewExchangeRateRepository creates a new exchange rate repository
func NewExchangeRateRepository(db *DB) domain.ExchangeRateSource {
	return &exchangeRateRepository{db: db}
}

// GetAt retrieves the latest from->to rate at or before at
func (r *exchangeRateRepository) GetAt(ctx context.Context, from, to string, at time.Time) (*domain.ExchangeRate, error) {
	query := `
		SELECT from_currency, to_currency, time, rate
		FROM exchange_rates
		WHERE from_currency = $1 AND to_currency = $2 AND time <= $3
		ORDER BY time DESC
		LIMIT 1
	`

	var rate domain.ExchangeRate
	var rateStr string

	err := r.db.QueryRowContext(ctx, query, from, to, at).Scan(&rate.From, &rate.To, &rate.Time, &rateStr)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("rate %s->%s at %s: %w", from, to, at.Format(time.RFC3339), domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get exchange rate: %w", err)
	}

	if rate.Rate, err = parseDecimal("rate", rateStr); err != nil {
		return nil, err
	}
	rate.Time = rate.Time.UTC()

	return &rate, nil
}

// ListInRange retrieves every from->to rate within [r.From, r.To], ordered by time
func (r *exchangeRateRepository) ListInRange(ctx context.Context, from, to string, dr domain.DateRange) ([]domain.ExchangeRate, error) {
	query := `
		SELECT from_currency, to_currency, time, rate
		FROM exchange_rates
		WHERE from_currency = $1 AND to_currency = $2 AND time >= $3 AND time <= $4
		ORDER BY time ASC
	`

	rows, err := r.db.QueryContext(ctx, query, from, to, dr.From, dr.To)
	if err != nil {
		return nil, fmt.Errorf("failed to query exchange rates: %w", err)
	}
	defer rows.Close()

	rates := make([]domain.ExchangeRate, 0)
	for rows.Next() {
		var rate domain.ExchangeRate
		var rateStr string

		if err := rows.Scan(&rate.From, &rate.To, &rate.Time, &rateStr); err != nil {
			return nil, fmt.Errorf("failed to scan exchange rate: %w", err)
		}
		if rate.Rate, err = parseDecimal("rate", rateStr); err != nil {
			return nil, err
		}
		rate.Time = rate.Time.UTC()

		rates = append(rates, rate)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating exchange rates: %w", err)
	}

	return rates, nil
}
