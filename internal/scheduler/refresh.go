package scheduler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aristath/fundsentinel/internal/domain"
	"github.com/aristath/fundsentinel/internal/instrument"
	"github.com/aristath/fundsentinel/internal/modules/feed"
	"github.com/aristath/fundsentinel/internal/modules/history"
	"github.com/aristath/fundsentinel/internal/modules/metrics"
	"github.com/aristath/fundsentinel/internal/modules/universe"
)

// State is the stage a refresh is in
type State string

const (
	StateIdle             State = "idle"
	StateFetching         State = "fetching"
	StateParsing          State = "parsing"
	StateReconciling      State = "reconciling"
	StateWritingHistory   State = "writing_history"
	StateComputingMetrics State = "computing_metrics"
)

// Refresh outcomes reported to the instrumentation
const (
	outcomeSuccess = "success"
	outcomeFailure = "failure"
	outcomeSkipped = "skipped"
)

// FeedFetcher downloads the raw feed
type FeedFetcher interface {
	Fetch(ctx context.Context) (string, error)
}

// Reconciler upserts catalog entries from feed records
type Reconciler interface {
	UpsertFromFeed(ctx context.Context, records []feed.Record) (universe.UpsertResult, error)
}

// HistoryWriter appends one feed's observations
type HistoryWriter interface {
	Write(ctx context.Context, records []feed.Record, feedDate time.Time) (history.WriteResult, error)
}

// MetricsComputer recomputes every fund's snapshot
type MetricsComputer interface {
	Compute(ctx context.Context) (metrics.Summary, error)
}

// RunReport describes one refresh. Stages after a failure are zero.
type RunReport struct {
	StartedAt  time.Time             `json:"started_at"`
	FinishedAt time.Time             `json:"finished_at"`
	FeedDate   *time.Time            `json:"feed_date,omitempty"`
	RunID      string                `json:"run_id"`
	FailedAt   State                 `json:"failed_at,omitempty"`
	Error      string                `json:"error,omitempty"`
	Parse      feed.Stats            `json:"parse"`
	Catalog    universe.UpsertResult `json:"catalog"`
	History    history.WriteResult   `json:"history"`
	Metrics    metrics.Summary       `json:"metrics"`
}

// Status is a snapshot of the job for the admin API
type Status struct {
	LastRun *RunReport `json:"last_run,omitempty"`
	State   State      `json:"state"`
	Running bool       `json:"running"`
}

// RefreshJob sequences fetch, parse, reconcile, history and metrics.
// At most one run is in flight; overlapping triggers are rejected.
type RefreshJob struct {
	fetcher    FeedFetcher
	reconciler Reconciler
	writer     HistoryWriter
	engine     MetricsComputer
	metrics    *instrument.Metrics
	log        zerolog.Logger

	running atomic.Bool
	mu      sync.RWMutex
	state   State
	last    *RunReport

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewRefreshJob creates the refresh job
func NewRefreshJob(fetcher FeedFetcher, reconciler Reconciler, writer HistoryWriter, engine MetricsComputer,
	m *instrument.Metrics, log zerolog.Logger) *RefreshJob {
	ctx, cancel := context.WithCancel(context.Background())
	return &RefreshJob{
		fetcher:    fetcher,
		reconciler: reconciler,
		writer:     writer,
		engine:     engine,
		metrics:    m,
		log:        log.With().Str("job", "refresh_data").Logger(),
		state:      StateIdle,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Name returns the job name
func (j *RefreshJob) Name() string {
	return "refresh_data"
}

// Run is the timer entry point. An overlapping tick is skipped.
func (j *RefreshJob) Run() error {
	if !j.running.CompareAndSwap(false, true) {
		j.log.Warn().Msg("Refresh already running, skipping scheduled run")
		j.metrics.RefreshFinished(outcomeSkipped)
		return nil
	}
	j.wg.Add(1)
	defer j.wg.Done()
	defer j.running.Store(false)

	_, err := j.execute(j.ctx, uuid.New().String())
	return err
}

// RunSync performs a refresh and waits for it. Returns a conflict error if
// another run is in flight.
func (j *RefreshJob) RunSync(ctx context.Context) (*RunReport, error) {
	if !j.running.CompareAndSwap(false, true) {
		return nil, domain.Conflict("refresh already in progress")
	}
	j.wg.Add(1)
	defer j.wg.Done()
	defer j.running.Store(false)

	return j.execute(ctx, uuid.New().String())
}

// Trigger starts a refresh in the background and returns its run id. The
// run is detached from the caller's context.
func (j *RefreshJob) Trigger() (string, error) {
	if !j.running.CompareAndSwap(false, true) {
		return "", domain.Conflict("refresh already in progress")
	}

	runID := uuid.New().String()
	j.wg.Add(1)
	go func() {
		defer j.wg.Done()
		defer j.running.Store(false)
		_, _ = j.execute(j.ctx, runID)
	}()
	return runID, nil
}

// Status reports the current stage and the last finished run
func (j *RefreshJob) Status() Status {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return Status{State: j.state, Running: j.running.Load(), LastRun: j.last}
}

// Shutdown cancels a run in flight and waits for it to return
func (j *RefreshJob) Shutdown() {
	j.cancel()
	j.wg.Wait()
}

func (j *RefreshJob) execute(ctx context.Context, runID string) (*RunReport, error) {
	report := &RunReport{RunID: runID, StartedAt: time.Now().UTC()}
	log := j.log.With().Str("run_id", runID).Logger()
	log.Info().Msg("Refresh started")

	err := j.pipeline(ctx, report, log)

	// The report is read by Status() once published; it must be complete here
	report.FinishedAt = time.Now().UTC()
	if err != nil {
		report.Error = err.Error()
	}
	j.mu.Lock()
	j.state = StateIdle
	j.last = report
	j.mu.Unlock()

	if err != nil {
		j.metrics.RefreshFinished(outcomeFailure)
		log.Error().Err(err).Str("stage", string(report.FailedAt)).Msg("Refresh failed")
		return report, err
	}

	j.metrics.RefreshFinished(outcomeSuccess)
	log.Info().
		Dur("duration", report.FinishedAt.Sub(report.StartedAt)).
		Int("records", report.Parse.Records).
		Int("inserted_prices", report.History.Inserted).
		Int("metrics", report.Metrics.Computed).
		Msg("Refresh completed")
	return report, nil
}

func (j *RefreshJob) pipeline(ctx context.Context, report *RunReport, log zerolog.Logger) error {
	var raw string
	err := j.stage(report, StateFetching, func() (err error) {
		raw, err = j.fetcher.Fetch(ctx)
		return err
	})
	if err != nil {
		return fmt.Errorf("fetch feed: %w", err)
	}

	var parsed *feed.ParseResult
	err = j.stage(report, StateParsing, func() (err error) {
		parsed, err = feed.Parse(raw)
		return err
	})
	if err != nil {
		return fmt.Errorf("parse feed: %w", err)
	}
	report.Parse = parsed.Stats
	j.metrics.FeedDropped(parsed.Stats.Dropped)
	log.Info().
		Int("records", parsed.Stats.Records).
		Int("dropped", parsed.Stats.Dropped).
		Int("headers", parsed.Stats.Headers).
		Msg("Feed parsed")

	if len(parsed.Records) > 0 {
		feedDate := parsed.FeedDate
		report.FeedDate = &feedDate

		err = j.stage(report, StateReconciling, func() (err error) {
			report.Catalog, err = j.reconciler.UpsertFromFeed(ctx, parsed.Records)
			return err
		})
		if err != nil {
			return fmt.Errorf("reconcile catalog: %w", err)
		}

		err = j.stage(report, StateWritingHistory, func() (err error) {
			report.History, err = j.writer.Write(ctx, parsed.Records, feedDate)
			return err
		})
		if err != nil {
			return fmt.Errorf("write history: %w", err)
		}
		j.metrics.HistoryConflicts(report.History.Conflicts)
	} else {
		log.Warn().Msg("Feed contained no records, skipping catalog and history")
	}

	err = j.stage(report, StateComputingMetrics, func() (err error) {
		report.Metrics, err = j.engine.Compute(ctx)
		return err
	})
	if err != nil {
		return fmt.Errorf("compute metrics: %w", err)
	}
	return nil
}

func (j *RefreshJob) stage(report *RunReport, state State, fn func() error) error {
	j.mu.Lock()
	j.state = state
	j.mu.Unlock()

	start := time.Now()
	err := fn()
	j.metrics.StageDone(string(state), time.Since(start))
	if err != nil {
		report.FailedAt = state
	}
	return err
}
