// Package universe maintains the fund catalog keyed by scheme code.
package universe

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

// upsertChunkRows keeps one multi-row statement well under SQLite's
// bound-parameter limit (5 parameters per row)
const upsertChunkRows = 500

// fundColumns is the projection shared by every fund query
// Column order must match scanFundWithMetrics
const fundColumns = `f.id, f.scheme_code, f.scheme_name, f.category, f.sub_category, f.fund_house,
f.expense_ratio, f.aum, f.risk_rating, f.is_dividend, f.is_active, f.created_at, f.updated_at,
m.return_1m, m.return_3m, m.return_6m, m.return_1y, m.volatility, m.computed_at`

// latestMetricsJoin attaches the newest snapshot of each fund, if any
const latestMetricsJoin = `LEFT JOIN fund_metrics m ON m.fund_id = f.id
AND m.computed_at = (SELECT MAX(computed_at) FROM fund_metrics WHERE fund_id = f.id)`

// FundRepository handles fund catalog database operations
type FundRepository struct {
	db  *sql.DB
	log zerolog.Logger
	now func() time.Time
}

// NewFundRepository creates a new fund repository
func NewFundRepository(db *sql.DB, log zerolog.Logger) *FundRepository {
	return &FundRepository{
		db:  db,
		log: log.With().Str("repository", "funds").Logger(),
		now: time.Now,
	}
}

// UpsertFromFeed reconciles the catalog with one parsed feed. New scheme
// codes are inserted; existing rows get name and category refreshed and are
// reactivated. Out-of-band fields are never touched. The whole pass runs in
// one transaction and is idempotent: replaying the same records reports
// zero inserts and zero updates.
func (r *FundRepository) UpsertFromFeed(ctx context.Context, records []feed.Record) (UpsertResult, error) {
	unique := dedupeByCode(records)
	if len(unique) == 0 {
		return UpsertResult{}, nil
	}

	var result UpsertResult
	err := database.WithTransactionContext(ctx, r.db, func(tx *sql.Tx) error {
		existing, err := existingCodes(ctx, tx)
		if err != nil {
			return err
		}

		inserted := 0
		for _, rec := range unique {
			if _, ok := existing[rec.SchemeCode]; !ok {
				inserted++
			}
		}

		now := r.now().Unix()
		affected := 0
		for _, chunk := range database.Chunks(len(unique), upsertChunkRows) {
			n, err := upsertChunk(ctx, tx, unique[chunk[0]:chunk[1]], now)
			if err != nil {
				return err
			}
			affected += n
		}

		result.Inserted = inserted
		result.Updated = affected - inserted
		result.Unchanged = len(unique) - affected
		return nil
	})
	if err != nil {
		return UpsertResult{Failed: len(unique)}, fmt.Errorf("failed to upsert funds: %w", err)
	}

	r.log.Info().
		Int("inserted", result.Inserted).
		Int("updated", result.Updated).
		Int("unchanged", result.Unchanged).
		Msg("Funds reconciled")

	return result, nil
}

// dedupeByCode keeps first-seen order with the last occurrence's values
func dedupeByCode(records []feed.Record) []feed.Record {
	index := make(map[string]int, len(records))
	out := make([]feed.Record, 0, len(records))
	for _, rec := range records {
		if i, ok := index[rec.SchemeCode]; ok {
			out[i] = rec
			continue
		}
		index[rec.SchemeCode] = len(out)
		out = append(out, rec)
	}
	return out
}

func existingCodes(ctx context.Context, tx *sql.Tx) (map[string]struct{}, error) {
	rows, err := tx.QueryContext(ctx, `SELECT scheme_code FROM funds`)
	if err != nil {
		return nil, fmt.Errorf("failed to query existing scheme codes: %w", err)
	}
	defer rows.Close()

	codes := make(map[string]struct{})
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, fmt.Errorf("failed to scan scheme code: %w", err)
		}
		codes[code] = struct{}{}
	}
	return codes, rows.Err()
}

func upsertChunk(ctx context.Context, tx *sql.Tx, records []feed.Record, now int64) (int, error) {
	var sb strings.Builder
	sb.WriteString(`INSERT INTO funds (scheme_code, scheme_name, category, is_active, created_at, updated_at) VALUES `)

	args := make([]interface{}, 0, len(records)*5)
	for i, rec := range records {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("(?, ?, ?, 1, ?, ?)")
		args = append(args, rec.SchemeCode, rec.SchemeName, rec.Category, now, now)
	}

	// The WHERE clause makes unchanged rows a no-op so RowsAffected
	// counts only real inserts and updates.
	sb.WriteString(` ON CONFLICT(scheme_code) DO UPDATE SET
		scheme_name = excluded.scheme_name,
		category = excluded.category,
		is_active = 1,
		updated_at = excluded.updated_at
	WHERE funds.scheme_name <> excluded.scheme_name
		OR funds.category <> excluded.category
		OR funds.is_active = 0`)

	res, err := tx.ExecContext(ctx, sb.String(), args...)
	if err != nil {
		return 0, fmt.Errorf("failed to upsert fund chunk: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read upsert row count: %w", err)
	}
	return int(n), nil
}

// CodeIndex returns the scheme_code → id mapping of the whole catalog
func (r *FundRepository) CodeIndex(ctx context.Context) (map[string]int64, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT scheme_code, id FROM funds`)
	if err != nil {
		return nil, fmt.Errorf("failed to query fund codes: %w", err)
	}
	defer rows.Close()

	index := make(map[string]int64)
	for rows.Next() {
		var code string
		var id int64
		if err := rows.Scan(&code, &id); err != nil {
			return nil, fmt.Errorf("failed to scan fund code: %w", err)
		}
		index[code] = id
	}
	return index, rows.Err()
}

// List returns one page of active funds with their latest metrics
func (r *FundRepository) List(ctx context.Context, q FundQuery) (*FundPage, error) {
	q = q.Normalize()

	where := []string{"f.is_active = 1"}
	var args []interface{}
	if q.Category != "" {
		where = append(where, "f.category = ?")
		args = append(args, q.Category)
	}
	if q.Search != "" {
		where = append(where, `f.scheme_name LIKE ? ESCAPE '\'`)
		args = append(args, "%"+escapeLike(q.Search)+"%")
	}
	whereSQL := strings.Join(where, " AND ")

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM funds f WHERE "+whereSQL, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count funds: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM funds f %s WHERE %s ORDER BY %s %s, f.id ASC LIMIT ? OFFSET ?`,
		fundColumns, latestMetricsJoin, whereSQL, sortColumns[q.SortBy], strings.ToUpper(q.Order))
	pageArgs := append(append([]interface{}{}, args...), q.Limit, (q.Page-1)*q.Limit)

	funds, err := r.queryFunds(ctx, query, pageArgs...)
	if err != nil {
		return nil, err
	}
	return &FundPage{Funds: funds, Total: total}, nil
}

// GetByID returns a fund with its latest metrics, or nil if absent
func (r *FundRepository) GetByID(ctx context.Context, id int64) (*domain.FundWithMetrics, error) {
	funds, err := r.queryFunds(ctx,
		fmt.Sprintf(`SELECT %s FROM funds f %s WHERE f.id = ?`, fundColumns, latestMetricsJoin), id)
	if err != nil {
		return nil, err
	}
	if len(funds) == 0 {
		return nil, nil
	}
	return &funds[0], nil
}

// GetByIDs returns the funds among ids that exist, in the order of ids
func (r *FundRepository) GetByIDs(ctx context.Context, ids []int64) ([]domain.FundWithMetrics, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	funds, err := r.queryFunds(ctx, fmt.Sprintf(`SELECT %s FROM funds f %s WHERE f.id IN (%s)`,
		fundColumns, latestMetricsJoin, database.Placeholders(len(ids))), args...)
	if err != nil {
		return nil, err
	}

	byID := make(map[int64]domain.FundWithMetrics, len(funds))
	for _, f := range funds {
		byID[f.ID] = f
	}
	ordered := make([]domain.FundWithMetrics, 0, len(funds))
	seen := make(map[int64]bool, len(ids))
	for _, id := range ids {
		if f, ok := byID[id]; ok && !seen[id] {
			ordered = append(ordered, f)
			seen[id] = true
		}
	}
	return ordered, nil
}

// ActiveWithMetrics loads up to limit active funds with their latest
// metrics in one query, ordered by id
func (r *FundRepository) ActiveWithMetrics(ctx context.Context, limit int) ([]domain.FundWithMetrics, error) {
	return r.queryFunds(ctx, fmt.Sprintf(`SELECT %s FROM funds f %s WHERE f.is_active = 1 ORDER BY f.id ASC LIMIT ?`,
		fundColumns, latestMetricsJoin), limit)
}

// Categories returns active fund counts per non-empty category
func (r *FundRepository) Categories(ctx context.Context) ([]CategoryCount, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT category, COUNT(*) FROM funds
		WHERE is_active = 1 AND category <> ''
		GROUP BY category
		ORDER BY category ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer rows.Close()

	categories := make([]CategoryCount, 0)
	for rows.Next() {
		var c CategoryCount
		if err := rows.Scan(&c.Category, &c.Count); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// Count returns the total number of catalog rows
func (r *FundRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM funds`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count funds: %w", err)
	}
	return n, nil
}

// SetAttributes writes the out-of-band fields of one fund. Reports false
// if the fund does not exist.
func (r *FundRepository) SetAttributes(ctx context.Context, id int64, attrs FundAttributes) (bool, error) {
	sets := []string{"updated_at = ?"}
	args := []interface{}{r.now().Unix()}

	if attrs.ExpenseRatio != nil {
		sets = append(sets, "expense_ratio = ?")
		args = append(args, *attrs.ExpenseRatio)
	}
	if attrs.AUM != nil {
		sets = append(sets, "aum = ?")
		args = append(args, *attrs.AUM)
	}
	if attrs.RiskRating != nil {
		sets = append(sets, "risk_rating = ?")
		args = append(args, *attrs.RiskRating)
	}
	if attrs.FundHouse != nil {
		sets = append(sets, "fund_house = ?")
		args = append(args, *attrs.FundHouse)
	}
	if attrs.SubCategory != nil {
		sets = append(sets, "sub_category = ?")
		args = append(args, *attrs.SubCategory)
	}
	if attrs.IsDividend != nil {
		sets = append(sets, "is_dividend = ?")
		args = append(args, boolToInt(*attrs.IsDividend))
	}
	args = append(args, id)

	res, err := r.db.ExecContext(ctx, "UPDATE funds SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	if err != nil {
		return false, fmt.Errorf("failed to update fund attributes: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read update row count: %w", err)
	}
	return n > 0, nil
}

func (r *FundRepository) queryFunds(ctx context.Context, query string, args ...interface{}) ([]domain.FundWithMetrics, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query funds: %w", err)
	}
	defer rows.Close()

	funds := make([]domain.FundWithMetrics, 0)
	for rows.Next() {
		f, err := scanFundWithMetrics(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan fund: %w", err)
		}
		funds = append(funds, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating funds: %w", err)
	}
	return funds, nil
}

func scanFundWithMetrics(rows *sql.Rows) (domain.FundWithMetrics, error) {
	var f domain.FundWithMetrics
	var expenseRatio, aum sql.NullFloat64
	var isDividend, isActive int
	var createdAt, updatedAt int64
	var r1m, r3m, r6m, r1y, vol sql.NullFloat64
	var computedAt sql.NullInt64

	err := rows.Scan(
		&f.ID, &f.SchemeCode, &f.SchemeName, &f.Category, &f.SubCategory, &f.FundHouse,
		&expenseRatio, &aum, &f.RiskRating, &isDividend, &isActive, &createdAt, &updatedAt,
		&r1m, &r3m, &r6m, &r1y, &vol, &computedAt,
	)
	if err != nil {
		return f, err
	}

	f.ExpenseRatio = floatPtr(expenseRatio)
	f.AUM = floatPtr(aum)
	f.IsDividend = isDividend != 0
	f.IsActive = isActive != 0
	f.CreatedAt = time.Unix(createdAt, 0).UTC()
	f.UpdatedAt = time.Unix(updatedAt, 0).UTC()

	if computedAt.Valid {
		f.Metrics = &domain.FundMetrics{
			FundID:     f.ID,
			Return1M:   floatPtr(r1m),
			Return3M:   floatPtr(r3m),
			Return6M:   floatPtr(r6m),
			Return1Y:   floatPtr(r1y),
			Volatility: floatPtr(vol),
			ComputedAt: time.Unix(computedAt.Int64, 0).UTC(),
		}
	}
	return f, nil
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
