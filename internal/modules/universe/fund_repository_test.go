package universe

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/fundsentinel/internal/modules/feed"
	testingpkg "github.com/aristath/fundsentinel/internal/testing"
)

func newRepo(t *testing.T) (*FundRepository, func()) {
	t.Helper()
	db, cleanup := testingpkg.NewTestDB(t)
	return NewFundRepository(db.Conn(), zerolog.Nop()), cleanup
}

func records(pairs ...string) []feed.Record {
	day := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	out := make([]feed.Record, 0, len(pairs)/3)
	for i := 0; i+2 < len(pairs); i += 3 {
		out = append(out, feed.Record{SchemeCode: pairs[i], SchemeName: pairs[i+1], Category: pairs[i+2], Price: 10, Date: day})
	}
	return out
}

func TestUpsertFromFeed_InsertThenIdempotent(t *testing.T) {
	repo, cleanup := newRepo(t)
	defer cleanup()
	ctx := context.Background()

	batch := records("A1", "Alpha", "Equity", "B1", "Beta", "Debt")

	first, err := repo.UpsertFromFeed(ctx, batch)
	require.NoError(t, err)
	assert.Equal(t, UpsertResult{Inserted: 2}, first)

	second, err := repo.UpsertFromFeed(ctx, batch)
	require.NoError(t, err)
	assert.Equal(t, UpsertResult{Unchanged: 2}, second)

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestUpsertFromFeed_UpdatesNameAndCategoryOnly(t *testing.T) {
	repo, cleanup := newRepo(t)
	defer cleanup()
	ctx := context.Background()

	_, err := repo.UpsertFromFeed(ctx, records("A1", "Alpha", "Equity"))
	require.NoError(t, err)

	index, err := repo.CodeIndex(ctx)
	require.NoError(t, err)
	id := index["A1"]

	er := 0.75
	rating := "Low"
	ok, err := repo.SetAttributes(ctx, id, FundAttributes{ExpenseRatio: &er, RiskRating: &rating})
	require.NoError(t, err)
	require.True(t, ok)

	result, err := repo.UpsertFromFeed(ctx, records("A1", "Alpha Renamed", "Hybrid", "C1", "Gamma", "Equity"))
	require.NoError(t, err)
	assert.Equal(t, UpsertResult{Inserted: 1, Updated: 1}, result)

	fund, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, fund)
	assert.Equal(t, "Alpha Renamed", fund.SchemeName)
	assert.Equal(t, "Hybrid", fund.Category)
	require.NotNil(t, fund.ExpenseRatio)
	assert.Equal(t, 0.75, *fund.ExpenseRatio)
	assert.Equal(t, "Low", fund.RiskRating)
	assert.Nil(t, fund.Metrics)
}

func TestUpsertFromFeed_ReactivatesInactiveFund(t *testing.T) {
	db, cleanup := testingpkg.NewTestDB(t)
	defer cleanup()
	repo := NewFundRepository(db.Conn(), zerolog.Nop())
	ctx := context.Background()

	id := testingpkg.InsertFund(t, db.Conn(), testingpkg.FundFixture{
		SchemeCode: "A1", SchemeName: "Alpha", Category: "Equity", Inactive: true,
	})

	result, err := repo.UpsertFromFeed(ctx, records("A1", "Alpha", "Equity"))
	require.NoError(t, err)
	assert.Equal(t, UpsertResult{Updated: 1}, result)

	fund, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.True(t, fund.IsActive)
}

func TestUpsertFromFeed_DuplicateCodeLastWins(t *testing.T) {
	repo, cleanup := newRepo(t)
	defer cleanup()
	ctx := context.Background()

	result, err := repo.UpsertFromFeed(ctx, records("A1", "Old", "Equity", "A1", "New", "Debt"))
	require.NoError(t, err)
	assert.Equal(t, 1, result.Inserted)

	page, err := repo.List(ctx, FundQuery{})
	require.NoError(t, err)
	require.Len(t, page.Funds, 1)
	assert.Equal(t, "New", page.Funds[0].SchemeName)
	assert.Equal(t, "Debt", page.Funds[0].Category)
}

func TestUpsertFromFeed_LargeFeedSpansChunks(t *testing.T) {
	repo, cleanup := newRepo(t)
	defer cleanup()
	ctx := context.Background()

	var batch []feed.Record
	for i := 0; i < upsertChunkRows*2+7; i++ {
		batch = append(batch, records(fmt.Sprintf("S%05d", i), "Fund", "Equity")...)
	}

	result, err := repo.UpsertFromFeed(ctx, batch)
	require.NoError(t, err)
	assert.Equal(t, len(batch), result.Inserted)

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(batch), n)
}

func TestList_FilterSearchSortAndPaging(t *testing.T) {
	repo, cleanup := newRepo(t)
	defer cleanup()
	ctx := context.Background()

	_, err := repo.UpsertFromFeed(ctx, records(
		"A1", "Alpha Growth", "Equity",
		"A2", "Beta Growth", "Equity",
		"A3", "Gamma Income", "Debt",
		"A4", "delta growth 100%", "Equity",
	))
	require.NoError(t, err)

	page, err := repo.List(ctx, FundQuery{Category: "Equity", Search: "GROWTH", SortBy: "scheme_name", Order: "desc"})
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)
	require.Len(t, page.Funds, 3)
	assert.Equal(t, "delta growth 100%", page.Funds[0].SchemeName)
	assert.Equal(t, "Alpha Growth", page.Funds[2].SchemeName)

	literal, err := repo.List(ctx, FundQuery{Search: "100%"})
	require.NoError(t, err)
	assert.Equal(t, 1, literal.Total)

	paged, err := repo.List(ctx, FundQuery{Page: 2, Limit: 3})
	require.NoError(t, err)
	assert.Equal(t, 4, paged.Total)
	require.Len(t, paged.Funds, 1)
	assert.Equal(t, "delta growth 100%", paged.Funds[0].SchemeName)
}

func TestFundQuery_Normalize(t *testing.T) {
	q := FundQuery{Page: -1, Limit: 1000, SortBy: "id; DROP TABLE funds", Order: "sideways"}.Normalize()
	assert.Equal(t, 1, q.Page)
	assert.Equal(t, MaxPageLimit, q.Limit)
	assert.Equal(t, "scheme_name", q.SortBy)
	assert.Equal(t, "asc", q.Order)
}

func TestCategoriesAndGetByIDs(t *testing.T) {
	db, cleanup := testingpkg.NewTestDB(t)
	defer cleanup()
	repo := NewFundRepository(db.Conn(), zerolog.Nop())
	ctx := context.Background()

	a := testingpkg.InsertFund(t, db.Conn(), testingpkg.FundFixture{SchemeCode: "A", SchemeName: "A", Category: "Equity"})
	b := testingpkg.InsertFund(t, db.Conn(), testingpkg.FundFixture{SchemeCode: "B", SchemeName: "B", Category: "Equity"})
	c := testingpkg.InsertFund(t, db.Conn(), testingpkg.FundFixture{SchemeCode: "C", SchemeName: "C", Category: "Debt"})
	testingpkg.InsertFund(t, db.Conn(), testingpkg.FundFixture{SchemeCode: "D", SchemeName: "D", Category: "Debt", Inactive: true})
	testingpkg.InsertFund(t, db.Conn(), testingpkg.FundFixture{SchemeCode: "E", SchemeName: "E"})

	categories, err := repo.Categories(ctx)
	require.NoError(t, err)
	assert.Equal(t, []CategoryCount{{Category: "Debt", Count: 1}, {Category: "Equity", Count: 2}}, categories)

	funds, err := repo.GetByIDs(ctx, []int64{c, 9999, a, c})
	require.NoError(t, err)
	require.Len(t, funds, 2)
	assert.Equal(t, c, funds[0].ID)
	assert.Equal(t, a, funds[1].ID)

	active, err := repo.ActiveWithMetrics(ctx, 2)
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, a, active[0].ID)
	assert.Equal(t, b, active[1].ID)
}

func TestGetByID_LatestMetricsAttached(t *testing.T) {
	db, cleanup := testingpkg.NewTestDB(t)
	defer cleanup()
	repo := NewFundRepository(db.Conn(), zerolog.Nop())
	ctx := context.Background()

	id := testingpkg.InsertFund(t, db.Conn(), testingpkg.FundFixture{SchemeCode: "A", SchemeName: "A"})
	_, err := db.Conn().Exec(`INSERT INTO fund_metrics (fund_id, return_1y, volatility, computed_at) VALUES (?, 0.1, 0.02, 100), (?, 0.2, NULL, 200)`, id, id)
	require.NoError(t, err)

	fund, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, fund.Metrics)
	require.NotNil(t, fund.Metrics.Return1Y)
	assert.Equal(t, 0.2, *fund.Metrics.Return1Y)
	assert.Nil(t, fund.Metrics.Volatility)
	assert.Nil(t, fund.Metrics.Return1M)
	assert.Equal(t, int64(200), fund.Metrics.ComputedAt.Unix())

	missing, err := repo.GetByID(ctx, id+100)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestSetAttributes_MissingFund(t *testing.T) {
	repo, cleanup := newRepo(t)
	defer cleanup()

	aum := 10.0
	ok, err := repo.SetAttributes(context.Background(), 42, FundAttributes{AUM: &aum})
	require.NoError(t, err)
	assert.False(t, ok)
}
