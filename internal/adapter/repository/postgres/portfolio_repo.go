package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/simaogato/wealthflow-analytics/internal/domain"
)

// portfolioRepository implements domain.PortfolioSource
type portfolioRepository struct {
	db *DB
}

// NewPortfolioRepository creates a new portfolio repository
func NewPortfolioRepository(db *DB) domain.PortfolioSource {
	return &portfolioRepository{db: db}
}

// GetByID retrieves a portfolio by its ID
func (r *portfolioRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Portfolio, error) {
	query := `
		SELECT id, name, currency
		FROM portfolios
		WHERE id = $1
	`

	var p domain.Portfolio
	err := r.db.QueryRowContext(ctx, query, id).Scan(&p.ID, &p.Name, &p.Currency)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("portfolio %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get portfolio: %w", err)
	}

	return &p, nil
}
