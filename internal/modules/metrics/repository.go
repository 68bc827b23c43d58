package metrics

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/fundsentinel/internal/database"
	"github.com/aristath/fundsentinel/internal/domain"
)

// Repository persists metrics snapshots
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new metrics repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repository", "fund_metrics").Logger(),
	}
}

// SaveBatch writes all snapshots in one transaction. A snapshot for the
// same (fund, computed_at) is replaced.
func (r *Repository) SaveBatch(ctx context.Context, snapshots []domain.FundMetrics) error {
	if len(snapshots) == 0 {
		return nil
	}

	return database.WithTransactionContext(ctx, r.db, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO fund_metrics (fund_id, return_1m, return_3m, return_6m, return_1y, volatility, computed_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(fund_id, computed_at) DO UPDATE SET
				return_1m = excluded.return_1m,
				return_3m = excluded.return_3m,
				return_6m = excluded.return_6m,
				return_1y = excluded.return_1y,
				volatility = excluded.volatility`)
		if err != nil {
			return fmt.Errorf("failed to prepare metrics insert: %w", err)
		}
		defer stmt.Close()

		for _, m := range snapshots {
			_, err := stmt.ExecContext(ctx, m.FundID,
				nullable(m.Return1M), nullable(m.Return3M), nullable(m.Return6M), nullable(m.Return1Y),
				nullable(m.Volatility), m.ComputedAt.Unix())
			if err != nil {
				return fmt.Errorf("failed to save metrics for fund %d: %w", m.FundID, err)
			}
		}
		return nil
	})
}

// Latest returns the newest snapshot of each fund in ids that has one
func (r *Repository) Latest(ctx context.Context, ids []int64) (map[int64]domain.FundMetrics, error) {
	out := make(map[int64]domain.FundMetrics, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT m.fund_id, m.return_1m, m.return_3m, m.return_6m, m.return_1y, m.volatility, m.computed_at
		FROM fund_metrics m
		JOIN (
			SELECT fund_id, MAX(computed_at) AS computed_at FROM fund_metrics
			WHERE fund_id IN (`+database.Placeholders(len(ids))+`)
			GROUP BY fund_id
		) latest ON latest.fund_id = m.fund_id AND latest.computed_at = m.computed_at`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query latest metrics: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var m domain.FundMetrics
		var r1m, r3m, r6m, r1y, vol sql.NullFloat64
		var computedAt int64
		if err := rows.Scan(&m.FundID, &r1m, &r3m, &r6m, &r1y, &vol, &computedAt); err != nil {
			return nil, fmt.Errorf("failed to scan metrics: %w", err)
		}
		m.Return1M = fromNullable(r1m)
		m.Return3M = fromNullable(r3m)
		m.Return6M = fromNullable(r6m)
		m.Return1Y = fromNullable(r1y)
		m.Volatility = fromNullable(vol)
		m.ComputedAt = time.Unix(computedAt, 0).UTC()
		out[m.FundID] = m
	}
	return out, rows.Err()
}

func nullable(f *float64) interface{} {
	if f == nil {
		return nil
	}
	return *f
}

func fromNullable(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
