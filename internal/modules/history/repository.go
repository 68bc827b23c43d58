package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/fundsentinel/internal/database"
	"github.com/aristath/fundsentinel/internal/domain"
)

// Repository reads the NAV time series
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new history repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repository", "price_history").Logger(),
	}
}

// Count returns the number of stored observations
func (r *Repository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM price_history`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count observations: %w", err)
	}
	return n, nil
}

// LatestDate returns the newest observation date, or nil when empty
func (r *Repository) LatestDate(ctx context.Context) (*time.Time, error) {
	var raw sql.NullString
	if err := r.db.QueryRowContext(ctx, `SELECT MAX(nav_date) FROM price_history`).Scan(&raw); err != nil {
		return nil, fmt.Errorf("failed to query latest observation date: %w", err)
	}
	if !raw.Valid {
		return nil, nil
	}
	d, err := time.Parse(domain.DateLayout, raw.String)
	if err != nil {
		return nil, fmt.Errorf("invalid stored date %q: %w", raw.String, err)
	}
	return &d, nil
}

// Range returns one fund's observations on or after since, oldest first
func (r *Repository) Range(ctx context.Context, fundID int64, since time.Time) ([]domain.PriceObservation, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT fund_id, nav_date, nav_value FROM price_history
		WHERE fund_id = ? AND nav_date >= ?
		ORDER BY nav_date ASC`, fundID, since.UTC().Format(domain.DateLayout))
	if err != nil {
		return nil, fmt.Errorf("failed to query observations: %w", err)
	}
	defer rows.Close()

	out := make([]domain.PriceObservation, 0)
	for rows.Next() {
		obs, err := scanObservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, obs)
	}
	return out, rows.Err()
}

// FundsWithAtLeast returns the ids of funds holding at least n observations,
// ascending
func (r *Repository) FundsWithAtLeast(ctx context.Context, n int) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT fund_id FROM price_history
		GROUP BY fund_id
		HAVING COUNT(*) >= ?
		ORDER BY fund_id ASC`, n)
	if err != nil {
		return nil, fmt.Errorf("failed to query funds with history: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan fund id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ForFunds loads the full series of every fund in ids with one query,
// newest first per fund
func (r *Repository) ForFunds(ctx context.Context, ids []int64) (map[int64][]domain.PriceObservation, error) {
	out := make(map[int64][]domain.PriceObservation, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT fund_id, nav_date, nav_value FROM price_history
		WHERE fund_id IN (`+database.Placeholders(len(ids))+`)
		ORDER BY fund_id ASC, nav_date DESC`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query batch observations: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		obs, err := scanObservation(rows)
		if err != nil {
			return nil, err
		}
		out[obs.FundID] = append(out[obs.FundID], obs)
	}
	return out, rows.Err()
}

func scanObservation(rows *sql.Rows) (domain.PriceObservation, error) {
	var obs domain.PriceObservation
	var date string
	if err := rows.Scan(&obs.FundID, &date, &obs.Value); err != nil {
		return obs, fmt.Errorf("failed to scan observation: %w", err)
	}
	d, err := time.Parse(domain.DateLayout, date)
	if err != nil {
		return obs, fmt.Errorf("invalid stored date %q: %w", date, err)
	}
	obs.Date = d
	return obs, nil
}
