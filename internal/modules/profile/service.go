package profile

import (
	"context"
	"database/sql"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/aristath/fundsentinel/internal/database"
	"github.com/aristath/fundsentinel/internal/domain"
	"github.com/aristath/fundsentinel/internal/validation"
)

// Invalidator drops a user's current recommendation set inside the
// transaction that changes the profile
type Invalidator interface {
	InvalidateCurrent(ctx context.Context, tx *sql.Tx, userID string) error
}

// Service creates, replaces and patches profiles
type Service struct {
	db          *sql.DB
	repo        *Repository
	invalidator Invalidator
	validate    *validator.Validate
	log         zerolog.Logger
	now         func() time.Time
}

// NewService creates a profile service
func NewService(db *sql.DB, repo *Repository, invalidator Invalidator, log zerolog.Logger) *Service {
	return &Service{
		db:          db,
		repo:        repo,
		invalidator: invalidator,
		validate:    validation.New(),
		log:         log.With().Str("service", "profile").Logger(),
		now:         time.Now,
	}
}

// Get returns the user's profile or a not-found error
func (s *Service) Get(ctx context.Context, userID string) (*domain.UserProfile, error) {
	p, err := s.repo.Get(ctx, userID)
	if err != nil {
		return nil, domain.Internal(err, "failed to load profile")
	}
	if p == nil {
		return nil, domain.NotFound("profile not found")
	}
	return p, nil
}

// Save creates or fully replaces the profile. created reports whether the
// user had none before.
func (s *Service) Save(ctx context.Context, userID string, in Input) (*domain.UserProfile, bool, error) {
	if err := validation.Check(s.validate, in, "invalid profile"); err != nil {
		return nil, false, err
	}

	var saved *domain.UserProfile
	created := false
	err := database.WithTransactionContext(ctx, s.db, func(tx *sql.Tx) error {
		existing, err := get(ctx, tx, userID)
		if err != nil {
			return err
		}

		now := s.now().UTC().Truncate(time.Second)
		p := &domain.UserProfile{UserID: userID, CreatedAt: now}
		if existing != nil {
			p.CreatedAt = existing.CreatedAt
		} else {
			created = true
		}
		in.apply(p)
		p.UpdatedAt = now

		if err := upsert(ctx, tx, p); err != nil {
			return err
		}
		saved = p
		return s.invalidator.InvalidateCurrent(ctx, tx, userID)
	})
	if err != nil {
		return nil, false, domain.Internal(err, "failed to save profile")
	}

	s.log.Info().Str("user_id", userID).Bool("created", created).Msg("Profile saved, recommendations invalidated")
	return saved, created, nil
}

// Patch applies a partial update to an existing profile
func (s *Service) Patch(ctx context.Context, userID string, patch Patch) (*domain.UserProfile, error) {
	if patch.Empty() {
		return nil, domain.BadRequest("no profile fields to update")
	}
	if err := validation.Check(s.validate, patch, "invalid profile"); err != nil {
		return nil, err
	}

	var saved *domain.UserProfile
	err := database.WithTransactionContext(ctx, s.db, func(tx *sql.Tx) error {
		p, err := get(ctx, tx, userID)
		if err != nil {
			return err
		}
		if p == nil {
			return domain.NotFound("profile not found")
		}

		patch.apply(p)
		p.UpdatedAt = s.now().UTC().Truncate(time.Second)
		if err := upsert(ctx, tx, p); err != nil {
			return err
		}
		saved = p
		return s.invalidator.InvalidateCurrent(ctx, tx, userID)
	})
	if domain.IsKind(err, domain.KindNotFound) {
		return nil, domain.NotFound("profile not found")
	}
	if err != nil {
		return nil, domain.Internal(err, "failed to update profile")
	}

	s.log.Info().Str("user_id", userID).Msg("Profile updated, recommendations invalidated")
	return saved, nil
}
