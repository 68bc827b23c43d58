package recommendation

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aristath/fundsentinel/internal/clients/oracle"
	"github.com/aristath/fundsentinel/internal/domain"
	"github.com/aristath/fundsentinel/internal/instrument"
)

// ProfileSource loads a user's profile; nil means the user has none
type ProfileSource interface {
	Get(ctx context.Context, userID string) (*domain.UserProfile, error)
}

// FundSource reads the catalog
type FundSource interface {
	ActiveWithMetrics(ctx context.Context, limit int) ([]domain.FundWithMetrics, error)
	GetByIDs(ctx context.Context, ids []int64) ([]domain.FundWithMetrics, error)
}

// Ranker is the external scoring oracle
type Ranker interface {
	Recommend(ctx context.Context, request oracle.Request) ([]oracle.Ranked, error)
}

// Config bounds the service
type Config struct {
	Policy        ExpensePolicy
	TopK          int
	UniverseLimit int
	HistoryLimit  int
}

// Enriched is a recommendation joined with the live catalog row. Fund is
// nil when the fund is no longer in the catalog.
type Enriched struct {
	Fund   *domain.Fund `json:"fund,omitempty"`
	Reason string       `json:"reason"`
	FundID int64        `json:"fund_id"`
	Score  float64      `json:"score"`
	Rank   int          `json:"rank"`
}

// EnrichedSet is an archived set joined with the catalog
type EnrichedSet struct {
	CreatedAt   time.Time                   `json:"created_at"`
	SetID       string                      `json:"set_id"`
	ProfileHash string                      `json:"profile_hash"`
	Source      domain.RecommendationSource `json:"source"`
	Items       []Enriched                  `json:"items"`
}

// Service serves cached rankings and regenerates them when the profile
// changes
type Service struct {
	repo     *Repository
	profiles ProfileSource
	funds    FundSource
	ranker   Ranker
	metrics  *instrument.Metrics
	cfg      Config
	log      zerolog.Logger
	now      func() time.Time
}

// NewService creates a recommendation service. ranker may be nil, in which
// case every miss is served by the fallback.
func NewService(repo *Repository, profiles ProfileSource, funds FundSource, ranker Ranker,
	metrics *instrument.Metrics, cfg Config, log zerolog.Logger) *Service {
	if cfg.TopK <= 0 {
		cfg.TopK = 10
	}
	if cfg.UniverseLimit <= 0 {
		cfg.UniverseLimit = 500
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = 5
	}
	if cfg.Policy == "" {
		cfg.Policy = PolicyReward
	}
	return &Service{
		repo:     repo,
		profiles: profiles,
		funds:    funds,
		ranker:   ranker,
		metrics:  metrics,
		cfg:      cfg,
		log:      log.With().Str("service", "recommendation").Logger(),
		now:      time.Now,
	}
}

// Get returns the user's current ranking, generating a new one when the
// stored set was produced for a different profile
func (s *Service) Get(ctx context.Context, userID string) ([]Enriched, domain.RecommendationSource, error) {
	profile, err := s.profiles.Get(ctx, userID)
	if err != nil {
		if domain.KindOf(err) != domain.KindInternal {
			return nil, "", err
		}
		return nil, "", domain.Internal(err, "failed to load profile")
	}
	if profile == nil {
		return nil, "", domain.NotFound("profile not found")
	}

	hash := ProfileHash(*profile)

	current, err := s.repo.Current(ctx, userID)
	if err != nil {
		return nil, "", domain.Internal(err, "failed to load recommendations")
	}
	if len(current) > 0 && allHashed(current, hash) {
		enriched, err := s.enrich(ctx, current)
		if err != nil {
			return nil, "", err
		}
		s.metrics.RecommendationServed(string(domain.SourceCache))
		return enriched, domain.SourceCache, nil
	}

	set, source, err := s.generate(ctx, *profile, hash)
	if err != nil {
		return nil, "", err
	}
	if err := s.repo.Replace(ctx, userID, set); err != nil {
		return nil, "", domain.Internal(err, "failed to store recommendations")
	}

	s.log.Info().
		Str("user_id", userID).
		Str("source", string(source)).
		Int("count", len(set)).
		Msg("Generated recommendations")

	enriched, err := s.enrich(ctx, set)
	if err != nil {
		return nil, "", err
	}
	s.metrics.RecommendationServed(string(source))
	return enriched, source, nil
}

// History returns the user's newest archived sets, newest first
func (s *Service) History(ctx context.Context, userID string) ([]EnrichedSet, error) {
	sets, err := s.repo.History(ctx, userID, s.cfg.HistoryLimit)
	if err != nil {
		return nil, domain.Internal(err, "failed to load recommendation history")
	}

	out := make([]EnrichedSet, 0, len(sets))
	for _, set := range sets {
		items, err := s.enrich(ctx, set.Items)
		if err != nil {
			return nil, err
		}
		out = append(out, EnrichedSet{
			CreatedAt:   set.CreatedAt,
			SetID:       set.SetID,
			ProfileHash: set.ProfileHash,
			Source:      set.Source,
			Items:       items,
		})
	}
	return out, nil
}

func (s *Service) generate(ctx context.Context, profile domain.UserProfile, hash string) ([]domain.Recommendation, domain.RecommendationSource, error) {
	universe, err := s.funds.ActiveWithMetrics(ctx, s.cfg.UniverseLimit)
	if err != nil {
		return nil, "", domain.Internal(err, "failed to load fund universe")
	}
	features := BuildFeatures(universe)

	source := domain.SourceOracle
	scored, err := s.callOracle(ctx, profile, features)
	if err != nil {
		s.log.Warn().Err(err).Str("user_id", profile.UserID).Msg("Oracle unavailable, using fallback ranking")
		source = domain.SourceFallback
		scored = Fallback(features, profile, s.cfg.Policy, s.cfg.TopK)
	}

	setID := uuid.New().String()
	createdAt := s.now().UTC().Truncate(time.Second)
	set := make([]domain.Recommendation, 0, len(scored))
	for _, sc := range scored {
		set = append(set, domain.Recommendation{
			CreatedAt:   createdAt,
			UserID:      profile.UserID,
			SetID:       setID,
			Reason:      sc.Reason,
			ProfileHash: hash,
			Source:      source,
			FundID:      sc.FundID,
			Score:       sc.Score,
			Rank:        sc.Rank,
		})
	}
	return set, source, nil
}

func (s *Service) callOracle(ctx context.Context, profile domain.UserProfile, features []Features) ([]Scored, error) {
	if s.ranker == nil {
		return nil, errOracleDisabled
	}

	vectors := make([]oracle.FeatureVector, 0, len(features))
	known := make(map[int64]bool, len(features))
	for _, f := range features {
		vectors = append(vectors, f.wire())
		known[f.FundID] = true
	}

	start := time.Now()
	ranked, err := s.ranker.Recommend(ctx, oracle.Request{
		Funds: vectors,
		UserProfile: oracle.UserProfile{
			RiskProfile:        string(profile.RiskProfile),
			InvestmentGoal:     profile.InvestmentGoal,
			BudgetType:         string(profile.BudgetType),
			InvestmentHorizon:  profile.InvestmentHorizon,
			ExpenseRatioLimit:  profile.ExpenseRatioLimit,
			DividendPreference: profile.DividendPreference,
		},
		TopK: s.cfg.TopK,
	})
	s.metrics.OracleCall(time.Since(start))
	if err != nil {
		return nil, err
	}

	scored := ResolveOracle(ranked, known, s.cfg.TopK)
	if len(scored) == 0 {
		return nil, errOracleEmpty
	}
	if dropped := len(ranked) - len(scored); dropped > 0 {
		s.log.Debug().Int("dropped", dropped).Msg("Discarded oracle entries")
	}
	return scored, nil
}

// ResolveOracle keeps the oracle's order, discarding ids outside the
// universe and repeats, then truncates to topK and assigns dense ranks
func ResolveOracle(ranked []oracle.Ranked, known map[int64]bool, topK int) []Scored {
	out := make([]Scored, 0, topK)
	seen := make(map[int64]bool, len(ranked))
	for _, r := range ranked {
		if len(out) == topK {
			break
		}
		id, err := strconv.ParseInt(string(r.FundID), 10, 64)
		if err != nil || !known[id] || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, Scored{FundID: id, Score: r.Score, Reason: r.Reason, Rank: len(out) + 1})
	}
	return out
}

func (s *Service) enrich(ctx context.Context, recs []domain.Recommendation) ([]Enriched, error) {
	ids := make([]int64, 0, len(recs))
	for _, rec := range recs {
		ids = append(ids, rec.FundID)
	}
	funds, err := s.funds.GetByIDs(ctx, ids)
	if err != nil {
		return nil, domain.Internal(err, "failed to load recommended funds")
	}
	byID := make(map[int64]*domain.Fund, len(funds))
	for i := range funds {
		byID[funds[i].ID] = &funds[i].Fund
	}

	out := make([]Enriched, 0, len(recs))
	for _, rec := range recs {
		out = append(out, Enriched{
			Fund:   byID[rec.FundID],
			Reason: rec.Reason,
			FundID: rec.FundID,
			Score:  rec.Score,
			Rank:   rec.Rank,
		})
	}
	return out, nil
}

func allHashed(set []domain.Recommendation, hash string) bool {
	for _, rec := range set {
		if rec.ProfileHash != hash {
			return false
		}
	}
	return true
}
