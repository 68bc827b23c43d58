package metrics

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/fundsentinel/internal/database"
	"github.com/aristath/fundsentinel/internal/domain"
)

// ObservationSource supplies candidate funds and their series
type ObservationSource interface {
	FundsWithAtLeast(ctx context.Context, n int) ([]int64, error)
	ForFunds(ctx context.Context, ids []int64) (map[int64][]domain.PriceObservation, error)
}

// SnapshotStore persists computed snapshots
type SnapshotStore interface {
	SaveBatch(ctx context.Context, snapshots []domain.FundMetrics) error
}

// Summary reports one Compute pass
type Summary struct {
	Candidates int `json:"candidates"`
	Computed   int `json:"computed"`
	Skipped    int `json:"skipped"`
	Failed     int `json:"failed"`
	Batches    int `json:"batches"`
}

// Engine computes metrics for every fund with enough history, in batches
// processed by a fixed number of workers
type Engine struct {
	source      ObservationSource
	store       SnapshotStore
	log         zerolog.Logger
	now         func() time.Time
	batchSize   int
	concurrency int
}

// NewEngine creates a metrics engine
func NewEngine(source ObservationSource, store SnapshotStore, batchSize, concurrency int, log zerolog.Logger) *Engine {
	if batchSize <= 0 {
		batchSize = 100
	}
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Engine{
		source:      source,
		store:       store,
		batchSize:   batchSize,
		concurrency: concurrency,
		log:         log.With().Str("component", "metrics_engine").Logger(),
		now:         time.Now,
	}
}

// SetClock overrides the computation time source
func (e *Engine) SetClock(now func() time.Time) {
	e.now = now
}

type batchResult struct {
	err      error
	computed int
	skipped  int
	size     int
}

// Compute runs one full pass. A failing batch is counted and logged and the
// remaining batches still run; only failing to list candidates is an error.
func (e *Engine) Compute(ctx context.Context) (Summary, error) {
	ids, err := e.source.FundsWithAtLeast(ctx, MinObservations)
	if err != nil {
		return Summary{}, fmt.Errorf("failed to list metrics candidates: %w", err)
	}

	summary := Summary{Candidates: len(ids)}
	if len(ids) == 0 {
		e.log.Info().Msg("No funds with sufficient NAV history, skipping metrics")
		return summary, nil
	}

	// One timestamp for the whole pass keys every snapshot it writes
	now := e.now().UTC().Truncate(time.Second)
	chunks := database.Chunks(len(ids), e.batchSize)
	summary.Batches = len(chunks)

	e.log.Info().
		Int("candidates", len(ids)).
		Int("batches", len(chunks)).
		Int("concurrency", e.concurrency).
		Msg("Calculating fund metrics")

	jobs := make(chan []int64, len(chunks))
	results := make(chan batchResult, len(chunks))

	workers := e.concurrency
	if len(chunks) < workers {
		workers = len(chunks)
	}

	var processed int64
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for batch := range jobs {
				res := e.processBatch(ctx, batch, now)
				done := atomic.AddInt64(&processed, int64(len(batch)))
				if res.err != nil {
					e.log.Error().Err(res.err).Int("size", len(batch)).Msg("Metrics batch failed")
				} else {
					e.log.Info().Int64("processed", done).Int("total", len(ids)).Msg("Metrics batch complete")
				}
				results <- res
			}
		}()
	}

	for _, c := range chunks {
		jobs <- ids[c[0]:c[1]]
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	for res := range results {
		if res.err != nil {
			summary.Failed += res.size
			continue
		}
		summary.Computed += res.computed
		summary.Skipped += res.skipped
	}

	e.log.Info().
		Int("computed", summary.Computed).
		Int("skipped", summary.Skipped).
		Int("failed", summary.Failed).
		Msg("Fund metrics calculation complete")

	return summary, nil
}

// processBatch is one read, a pure computation and one write
func (e *Engine) processBatch(ctx context.Context, ids []int64, now time.Time) batchResult {
	res := batchResult{size: len(ids)}
	if err := ctx.Err(); err != nil {
		res.err = err
		return res
	}

	series, err := e.source.ForFunds(ctx, ids)
	if err != nil {
		res.err = err
		return res
	}

	snapshots := make([]domain.FundMetrics, 0, len(ids))
	for _, id := range ids {
		m, ok := Calculate(series[id], now)
		if !ok {
			res.skipped++
			continue
		}
		m.FundID = id
		snapshots = append(snapshots, m)
	}

	if err := e.store.SaveBatch(ctx, snapshots); err != nil {
		res.err = err
		return res
	}
	res.computed = len(snapshots)
	return res
}
