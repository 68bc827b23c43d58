// Package history stores the append-only NAV time series.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/fundsentinel/internal/database"
	"github.com/aristath/fundsentinel/internal/domain"
	"github.com/aristath/fundsentinel/internal/modules/feed"
)

// insertChunkRows keeps one statement under SQLite's bound-parameter limit
const insertChunkRows = 1000

// CodeIndexer resolves scheme codes to fund ids
type CodeIndexer interface {
	CodeIndex(ctx context.Context) (map[string]int64, error)
}

// WriteResult reports one Write call
type WriteResult struct {
	Candidates     int `json:"candidates"`
	Inserted       int `json:"inserted"`
	AlreadyPresent int `json:"already_present"`
	Conflicts      int `json:"conflicts"`
	UnknownFunds   int `json:"unknown_funds"`
}

// Writer appends one feed's observations to price_history
type Writer struct {
	db    *sql.DB
	codes CodeIndexer
	log   zerolog.Logger
	now   func() time.Time
}

// NewWriter creates a history writer
func NewWriter(db *sql.DB, codes CodeIndexer, log zerolog.Logger) *Writer {
	return &Writer{
		db:    db,
		codes: codes,
		log:   log.With().Str("component", "history_writer").Logger(),
		now:   time.Now,
	}
}

// Write inserts an observation for every record whose fund is in the
// catalog and has none yet for feedDate. Existence is decided with two bulk
// reads and a local set difference; the insert ignores key collisions so a
// concurrent writer only shows up as Conflicts.
func (w *Writer) Write(ctx context.Context, records []feed.Record, feedDate time.Time) (WriteResult, error) {
	result := WriteResult{Candidates: len(records)}
	if len(records) == 0 {
		return result, nil
	}
	date := feedDate.UTC().Format(domain.DateLayout)

	present, err := w.fundsWithDate(ctx, date)
	if err != nil {
		return result, err
	}

	index, err := w.codes.CodeIndex(ctx)
	if err != nil {
		return result, fmt.Errorf("failed to load fund code index: %w", err)
	}

	// Repeated codes inside one feed collapse to a single row, last value wins
	pending := make(map[int64]float64)
	order := make([]int64, 0, len(records))
	for _, rec := range records {
		id, ok := index[rec.SchemeCode]
		if !ok {
			result.UnknownFunds++
			continue
		}
		if _, ok := present[id]; ok {
			result.AlreadyPresent++
			continue
		}
		if _, queued := pending[id]; queued {
			result.AlreadyPresent++
		} else {
			order = append(order, id)
		}
		pending[id] = rec.Price
	}

	if len(order) == 0 {
		w.log.Info().Str("date", date).Msg("No new NAV records to insert")
		return result, nil
	}

	createdAt := w.now().Unix()
	for _, chunk := range database.Chunks(len(order), insertChunkRows) {
		ids := order[chunk[0]:chunk[1]]
		n, err := w.insertChunk(ctx, ids, pending, date, createdAt)
		if err != nil {
			return result, err
		}
		result.Inserted += n
		result.Conflicts += len(ids) - n
	}

	if result.Conflicts > 0 {
		w.log.Warn().
			Int("conflicts", result.Conflicts).
			Str("date", date).
			Msg("Some NAV records already existed")
	}
	w.log.Info().
		Int("inserted", result.Inserted).
		Int("already_present", result.AlreadyPresent).
		Int("unknown_funds", result.UnknownFunds).
		Str("date", date).
		Msg("NAV history written")

	return result, nil
}

func (w *Writer) fundsWithDate(ctx context.Context, date string) (map[int64]struct{}, error) {
	rows, err := w.db.QueryContext(ctx, `SELECT fund_id FROM price_history WHERE nav_date = ?`, date)
	if err != nil {
		return nil, fmt.Errorf("failed to query existing observations: %w", err)
	}
	defer rows.Close()

	present := make(map[int64]struct{})
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan fund id: %w", err)
		}
		present[id] = struct{}{}
	}
	return present, rows.Err()
}

func (w *Writer) insertChunk(ctx context.Context, ids []int64, values map[int64]float64, date string, createdAt int64) (int, error) {
	var sb strings.Builder
	sb.WriteString(`INSERT INTO price_history (fund_id, nav_date, nav_value, created_at) VALUES `)

	args := make([]interface{}, 0, len(ids)*4)
	for i, id := range ids {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("(?, ?, ?, ?)")
		args = append(args, id, date, values[id], createdAt)
	}
	sb.WriteString(` ON CONFLICT(fund_id, nav_date) DO NOTHING`)

	res, err := w.db.ExecContext(ctx, sb.String(), args...)
	if err != nil {
		return 0, fmt.Errorf("failed to insert NAV chunk: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read insert row count: %w", err)
	}
	return int(n), nil
}
