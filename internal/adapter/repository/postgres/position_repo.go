package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/simaogato/wealthflow-analytics/internal/domain"
)

// positionRepository implements domain.PositionSource
type positionRepository struct {
	db *DB
}

// NewPositionRepository creates a new position repository
func NewPositionRepository(db *DB) domain.PositionSource {
	return &positionRepository{db: db}
}

// GetByID retrieves a position with its transactions ordered by time
func (r *positionRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Position, error) {
	query := `
		SELECT id, portfolio_id, instrument_id, currency
		FROM positions
		WHERE id = $1
	`

	var p domain.Position
	err := r.db.QueryRowContext(ctx, query, id).Scan(&p.ID, &p.PortfolioID, &p.InstrumentID, &p.Currency)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("position %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get position: %w", err)
	}

	txs, err := r.transactionsOf(ctx, []uuid.UUID{p.ID})
	if err != nil {
		return nil, err
	}
	p.Transactions = txs[p.ID]

	return &p, nil
}

// ListByPortfolio retrieves every position of a portfolio, ordered by creation, with transactions
func (r *positionRepository) ListByPortfolio(ctx context.Context, portfolioID uuid.UUID) ([]*domain.Position, error) {
	query := `
		SELECT id, portfolio_id, instrument_id, currency
		FROM positions
		WHERE portfolio_id = $1
		ORDER BY created_at ASC, id ASC
	`

	rows, err := r.db.QueryContext(ctx, query, portfolioID)
	if err != nil {
		return nil, fmt.Errorf("failed to query positions: %w", err)
	}
	defer rows.Close()

	positions := make([]*domain.Position, 0)
	ids := make([]uuid.UUID, 0)
	for rows.Next() {
		var p domain.Position
		if err := rows.Scan(&p.ID, &p.PortfolioID, &p.InstrumentID, &p.Currency); err != nil {
			return nil, fmt.Errorf("failed to scan position: %w", err)
		}
		positions = append(positions, &p)
		ids = append(ids, p.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating positions: %w", err)
	}

	if len(ids) == 0 {
		return positions, nil
	}

	txs, err := r.transactionsOf(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, p := range positions {
		p.Transactions = txs[p.ID]
	}

	return positions, nil
}

// transactionsOf loads the transactions of the given positions in one query, grouped by position
func (r *positionRepository) transactionsOf(ctx context.Context, positionIDs []uuid.UUID) (map[uuid.UUID][]domain.Transaction, error) {
	query := `
		SELECT id, position_id, amount, price, time, note
		FROM transactions
		WHERE position_id = ANY($1::uuid[])
		ORDER BY time ASC, seq ASC
	`

	ids := make([]string, len(positionIDs))
	for i, id := range positionIDs {
		ids[i] = id.String()
	}

	rows, err := r.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	out := make(map[uuid.UUID][]domain.Transaction, len(positionIDs))
	for rows.Next() {
		var tx domain.Transaction
		var amountStr, priceStr string
		var note sql.NullString

		if err := rows.Scan(&tx.ID, &tx.PositionID, &amountStr, &priceStr, &tx.Time, &note); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}

		if tx.Amount, err = parseDecimal("amount", amountStr); err != nil {
			return nil, err
		}
		if tx.Price, err = parseDecimal("price", priceStr); err != nil {
			return nil, err
		}
		tx.Time = tx.Time.UTC()
		tx.Note = note.String

		out[tx.PositionID] = append(out[tx.PositionID], tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}

	return out, nil
}
