// Package recommendation ranks funds for a user profile and caches the
// ranking per profile hash.
package recommendation

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/fundsentinel/internal/database"
	"github.com/aristath/fundsentinel/internal/domain"
)

const recommendationColumns = `user_id, rank, set_id, fund_id, score, reason, profile_hash, source, created_at`

// Set is one archived ranking
type Set struct {
	CreatedAt   time.Time                   `json:"created_at"`
	SetID       string                      `json:"set_id"`
	ProfileHash string                      `json:"profile_hash"`
	Source      domain.RecommendationSource `json:"source"`
	Items       []domain.Recommendation     `json:"items"`
}

// Repository stores the current set per user and the archive of all sets
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new recommendation repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repository", "recommendations").Logger(),
	}
}

// Current returns the user's current set ordered by rank
func (r *Repository) Current(ctx context.Context, userID string) ([]domain.Recommendation, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+recommendationColumns+" FROM recommendations WHERE user_id = ? ORDER BY rank ASC", userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query recommendations: %w", err)
	}
	defer rows.Close()
	return scanRecommendations(rows)
}

// Replace swaps the user's current set for set and archives it, in one
// transaction. Concurrent readers see either the old or the new set.
func (r *Repository) Replace(ctx context.Context, userID string, set []domain.Recommendation) error {
	return database.WithTransactionContext(ctx, r.db, func(tx *sql.Tx) error {
		if err := r.InvalidateCurrent(ctx, tx, userID); err != nil {
			return err
		}

		for _, table := range []string{"recommendations", "recommendation_history"} {
			stmt, err := tx.PrepareContext(ctx,
				"INSERT INTO "+table+" ("+recommendationColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)")
			if err != nil {
				return fmt.Errorf("failed to prepare %s insert: %w", table, err)
			}
			for _, rec := range set {
				_, err := stmt.ExecContext(ctx, userID, rec.Rank, rec.SetID, rec.FundID, rec.Score,
					rec.Reason, rec.ProfileHash, string(rec.Source), rec.CreatedAt.Unix())
				if err != nil {
					_ = stmt.Close()
					return fmt.Errorf("failed to insert into %s: %w", table, err)
				}
			}
			if err := stmt.Close(); err != nil {
				return fmt.Errorf("failed to close %s insert: %w", table, err)
			}
		}
		return nil
	})
}

// InvalidateCurrent deletes the user's current set inside tx. The archive is
// kept.
func (r *Repository) InvalidateCurrent(ctx context.Context, tx *sql.Tx, userID string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM recommendations WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("failed to clear recommendations: %w", err)
	}
	return nil
}

// History returns the user's newest archived sets, newest first
func (r *Repository) History(ctx context.Context, userID string, limit int) ([]Set, error) {
	idRows, err := r.db.QueryContext(ctx, `
		SELECT set_id FROM recommendation_history
		WHERE user_id = ?
		GROUP BY set_id
		ORDER BY MAX(rowid) DESC
		LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recommendation sets: %w", err)
	}
	var setIDs []interface{}
	for idRows.Next() {
		var id string
		if err := idRows.Scan(&id); err != nil {
			idRows.Close()
			return nil, fmt.Errorf("failed to scan set id: %w", err)
		}
		setIDs = append(setIDs, id)
	}
	idRows.Close()
	if err := idRows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating set ids: %w", err)
	}
	if len(setIDs) == 0 {
		return []Set{}, nil
	}

	rows, err := r.db.QueryContext(ctx, "SELECT "+recommendationColumns+
		" FROM recommendation_history WHERE set_id IN ("+database.Placeholders(len(setIDs))+") ORDER BY rank ASC", setIDs...)
	if err != nil {
		return nil, fmt.Errorf("failed to query recommendation history: %w", err)
	}
	defer rows.Close()

	recs, err := scanRecommendations(rows)
	if err != nil {
		return nil, err
	}

	bySet := make(map[string]*Set, len(setIDs))
	for _, rec := range recs {
		s, ok := bySet[rec.SetID]
		if !ok {
			s = &Set{SetID: rec.SetID, CreatedAt: rec.CreatedAt, ProfileHash: rec.ProfileHash, Source: rec.Source}
			bySet[rec.SetID] = s
		}
		s.Items = append(s.Items, rec)
	}

	sets := make([]Set, 0, len(setIDs))
	for _, id := range setIDs {
		if s, ok := bySet[id.(string)]; ok {
			sets = append(sets, *s)
		}
	}
	return sets, nil
}

func scanRecommendations(rows *sql.Rows) ([]domain.Recommendation, error) {
	out := make([]domain.Recommendation, 0)
	for rows.Next() {
		var rec domain.Recommendation
		var source string
		var createdAt int64
		if err := rows.Scan(&rec.UserID, &rec.Rank, &rec.SetID, &rec.FundID, &rec.Score,
			&rec.Reason, &rec.ProfileHash, &source, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan recommendation: %w", err)
		}
		rec.Source = domain.RecommendationSource(source)
		rec.CreatedAt = time.Unix(createdAt, 0).UTC()
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating recommendations: %w", err)
	}
	return out, nil
}
