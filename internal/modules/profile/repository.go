// Package profile stores user investment profiles.
package profile

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/fundsentinel/internal/domain"
)

// querier is satisfied by *sql.DB and *sql.Tx
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

const profileColumns = `user_id, risk_profile, investment_horizon, budget_type, budget_amount,
expense_ratio_limit, dividend_preference, investment_goal, created_at, updated_at`

// Repository handles user_profiles database operations
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new profile repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repository", "user_profiles").Logger(),
	}
}

// Get returns the user's profile, or nil if absent
func (r *Repository) Get(ctx context.Context, userID string) (*domain.UserProfile, error) {
	return get(ctx, r.db, userID)
}

func get(ctx context.Context, q querier, userID string) (*domain.UserProfile, error) {
	var p domain.UserProfile
	var risk, budget string
	var dividend int
	var createdAt, updatedAt int64

	err := q.QueryRowContext(ctx, "SELECT "+profileColumns+" FROM user_profiles WHERE user_id = ?", userID).Scan(
		&p.UserID, &risk, &p.InvestmentHorizon, &budget, &p.BudgetAmount,
		&p.ExpenseRatioLimit, &dividend, &p.InvestmentGoal, &createdAt, &updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query profile: %w", err)
	}

	p.RiskProfile = domain.RiskProfile(risk)
	p.BudgetType = domain.BudgetType(budget)
	p.DividendPreference = dividend != 0
	p.CreatedAt = time.Unix(createdAt, 0).UTC()
	p.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	return &p, nil
}

func upsert(ctx context.Context, q querier, p *domain.UserProfile) error {
	dividend := 0
	if p.DividendPreference {
		dividend = 1
	}
	_, err := q.ExecContext(ctx, `
		INSERT INTO user_profiles (`+profileColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			risk_profile = excluded.risk_profile,
			investment_horizon = excluded.investment_horizon,
			budget_type = excluded.budget_type,
			budget_amount = excluded.budget_amount,
			expense_ratio_limit = excluded.expense_ratio_limit,
			dividend_preference = excluded.dividend_preference,
			investment_goal = excluded.investment_goal,
			updated_at = excluded.updated_at`,
		p.UserID, string(p.RiskProfile), p.InvestmentHorizon, string(p.BudgetType), p.BudgetAmount,
		p.ExpenseRatioLimit, dividend, p.InvestmentGoal, p.CreatedAt.Unix(), p.UpdatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}
	return nil
}
