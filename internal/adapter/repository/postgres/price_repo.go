package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/simaogato/wealthflow-analytics/internal/domain"
)

// priceRepository implements domain.PriceSource
type priceRepository struct {
	db *DB
}

// NewPriceRepository creates a new price repository
func NewPriceRepository(db *DB) domain.PriceSource {
	return &priceRepository{db: db}
}

// GetAt retrieves the latest price observed at or before at
func (r *priceRepository) GetAt(ctx context.Context, instrumentID uuid.UUID, at time.Time) (*domain.PricePoint, error) {
	query := `
		SELECT instrument_id, time, price
		FROM prices
		WHERE instrument_id = $1 AND time <= $2
		ORDER BY time DESC
		LIMIT 1
	`

	var point domain.PricePoint
	var priceStr string

	err := r.db.QueryRowContext(ctx, query, instrumentID, at).Scan(&point.InstrumentID, &point.Time, &priceStr)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("price for instrument %s at %s: %w", instrumentID, at.Format(time.RFC3339), domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get price: %w", err)
	}

	if point.Price, err = parseDecimal("price", priceStr); err != nil {
		return nil, err
	}
	point.Time = point.Time.UTC()

	return &point, nil
}

// ListInRange retrieves every price of the instrument within [r.From, r.To], ordered by time
func (r *priceRepository) ListInRange(ctx context.Context, instrumentID uuid.UUID, dr domain.DateRange) ([]domain.PricePoint, error) {
	query := `
		SELECT instrument_id, time, price
		FROM prices
		WHERE instrument_id = $1 AND time >= $2 AND time <= $3
		ORDER BY time ASC
	`

	rows, err := r.db.QueryContext(ctx, query, instrumentID, dr.From, dr.To)
	if err != nil {
		return nil, fmt.Errorf("failed to query prices: %w", err)
	}
	defer rows.Close()

	points := make([]domain.PricePoint, 0)
	for rows.Next() {
		var point domain.PricePoint
		var priceStr string

		if err := rows.Scan(&point.InstrumentID, &point.Time, &priceStr); err != nil {
			return nil, fmt.Errorf("failed to scan price: %w", err)
		}
		if point.Price, err = parseDecimal("price", priceStr); err != nil {
			return nil, err
		}
		point.Time = point.Time.UTC()

		points = append(points, point)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating prices: %w", err)
	}

	return points, nil
}
