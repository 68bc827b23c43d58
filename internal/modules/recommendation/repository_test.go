package recommendation

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/fundsentinel/internal/domain"
	testingpkg "github.com/aristath/fundsentinel/internal/testing"
)

func buildSet(userID, setID, hash string, size int) []domain.Recommendation {
	createdAt := time.Date(2026, time.June, 30, 13, 0, 0, 0, time.UTC)
	set := make([]domain.Recommendation, 0, size)
	for i := 0; i < size; i++ {
		set = append(set, domain.Recommendation{
			CreatedAt:   createdAt,
			UserID:      userID,
			SetID:       setID,
			Reason:      "Matches your Balanced risk profile",
			ProfileHash: hash,
			Source:      domain.SourceFallback,
			FundID:      int64(100 + i),
			Score:       float64(90 - i),
			Rank:        i + 1,
		})
	}
	return set
}

func TestReplace_ReadersNeverSeeMixedSet(t *testing.T) {
	db, cleanup := testingpkg.NewTestDB(t)
	defer cleanup()
	repo := NewRepository(db.Conn(), zerolog.Nop())
	ctx := context.Background()

	const user = "u1"
	sets := map[string][]domain.Recommendation{
		"set-a": buildSet(user, "set-a", "hash-a", 3),
		"set-b": buildSet(user, "set-b", "hash-b", 5),
	}
	require.NoError(t, repo.Replace(ctx, user, sets["set-a"]))

	stop := make(chan struct{})
	var wg sync.WaitGroup
	var mu sync.Mutex
	var failures []string
	reads := 0

	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}

				current, err := repo.Current(ctx, user)
				msg := checkWholeSet(current, err, sets)

				mu.Lock()
				reads++
				if msg != "" {
					failures = append(failures, msg)
				}
				mu.Unlock()
			}
		}()
	}

	for i := 0; i < 100; i++ {
		next := "set-b"
		if i%2 == 1 {
			next = "set-a"
		}
		require.NoError(t, repo.Replace(ctx, user, sets[next]))
	}
	close(stop)
	wg.Wait()

	assert.Positive(t, reads)
	assert.Empty(t, failures)

	// The last replace wrote set-a
	current, err := repo.Current(ctx, user)
	require.NoError(t, err)
	assert.Empty(t, checkWholeSet(current, nil, sets))
	assert.Equal(t, "set-a", current[0].SetID)
}

// checkWholeSet returns a description of what is wrong with a read, or ""
// when it is exactly one of the known sets
func checkWholeSet(current []domain.Recommendation, err error, sets map[string][]domain.Recommendation) string {
	if err != nil {
		return err.Error()
	}
	if len(current) == 0 {
		return "empty current set"
	}
	want, ok := sets[current[0].SetID]
	if !ok {
		return fmt.Sprintf("unknown set %q", current[0].SetID)
	}
	if len(current) != len(want) {
		return fmt.Sprintf("set %s has %d rows, want %d", current[0].SetID, len(current), len(want))
	}
	for i, rec := range current {
		if rec.SetID != want[i].SetID || rec.ProfileHash != want[i].ProfileHash {
			return fmt.Sprintf("mixed rows %s/%s in set %s", rec.SetID, rec.ProfileHash, want[i].SetID)
		}
		if rec.Rank != i+1 {
			return fmt.Sprintf("rank %d at position %d", rec.Rank, i)
		}
	}
	return ""
}

func TestHistory_KeepsArchiveAfterInvalidation(t *testing.T) {
	db, cleanup := testingpkg.NewTestDB(t)
	defer cleanup()
	repo := NewRepository(db.Conn(), zerolog.Nop())
	ctx := context.Background()

	require.NoError(t, repo.Replace(ctx, "u1", buildSet("u1", "set-a", "hash-a", 2)))
	require.NoError(t, repo.Replace(ctx, "u1", buildSet("u1", "set-b", "hash-b", 3)))

	tx, err := db.Conn().BeginTx(ctx, nil)
	require.NoError(t, err)
	require.NoError(t, repo.InvalidateCurrent(ctx, tx, "u1"))
	require.NoError(t, tx.Commit())

	current, err := repo.Current(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, current)

	history, err := repo.History(ctx, "u1", 5)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "set-b", history[0].SetID)
	assert.Len(t, history[0].Items, 3)
	assert.Equal(t, "set-a", history[1].SetID)

	none, err := repo.History(ctx, "nobody", 5)
	require.NoError(t, err)
	assert.Empty(t, none)
}
