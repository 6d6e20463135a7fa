package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amajai/contentloop-ai/internal/domain"
)

var base = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func waitingSession(id string, at time.Time) *domain.Session {
	return &domain.Session{
		ID:           id,
		Topic:        "AI in healthcare",
		Length:       domain.LengthShort,
		Feedback:     []string{},
		Draft:        "draft one",
		Status:       domain.StatusWaitingFeedback,
		CreatedAt:    at,
		LastActivity: at,
		Continuation: &domain.Continuation{
			Phase:     domain.PhaseAwaitingFeedback,
			Iteration: 1,
			Topic:     "AI in healthcare",
			Length:    domain.LengthShort,
			Feedback:  []string{},
			LastDraft: "draft one",
		},
	}
}

func backends(t *testing.T) map[string]func(t *testing.T) Repository {
	t.Helper()
	all := map[string]func(t *testing.T) Repository{
		"memory": func(t *testing.T) Repository {
			return NewMemoryStore()
		},
		"sqlite": func(t *testing.T) Repository {
			repo, err := NewSQLite(filepath.Join(t.TempDir(), "data", "sessions.db"))
			require.NoError(t, err)
			t.Cleanup(func() { _ = repo.Close() })
			return repo
		},
	}
	if url := os.Getenv("REDIS_URL"); url != "" {
		all["redis"] = func(t *testing.T) Repository {
			opt, err := redis.ParseURL(url)
			require.NoError(t, err)
			client := redis.NewClient(opt)
			prefix := "contentloop:test:" + uuid.NewString() + ":"
			repo := NewRedisStore(client, WithPrefix(prefix))
			t.Cleanup(func() {
				keys, _ := client.Keys(context.Background(), prefix+"*").Result()
				if len(keys) > 0 {
					client.Del(context.Background(), keys...)
				}
				_ = repo.Close()
			})
			return repo
		}
	}
	return all
}

func TestRepositoryRoundTrip(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			repo := open(t)
			ctx := context.Background()

			in := waitingSession("s-1", base)
			in.Style = "witty"
			require.NoError(t, repo.Create(ctx, in))

			got, err := repo.Get(ctx, "s-1")
			require.NoError(t, err)
			assert.Equal(t, "AI in healthcare", got.Topic)
			assert.Equal(t, domain.LengthShort, got.Length)
			assert.Equal(t, "witty", got.Style)
			assert.Equal(t, domain.StatusWaitingFeedback, got.Status)
			assert.NotNil(t, got.Feedback)
			assert.True(t, got.CreatedAt.Equal(base))
			assert.True(t, got.LastActivity.Equal(base))
			require.NotNil(t, got.Continuation)
			assert.Equal(t, 1, got.Continuation.Iteration)
			assert.Equal(t, "draft one", got.Continuation.LastDraft)

			got.Topic = "mutated"
			again, err := repo.Get(ctx, "s-1")
			require.NoError(t, err)
			assert.Equal(t, "AI in healthcare", again.Topic, "get must return a copy")
		})
	}
}

func TestRepositoryCreateDuplicate(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			repo := open(t)
			ctx := context.Background()

			require.NoError(t, repo.Create(ctx, waitingSession("dup", base)))
			err := repo.Create(ctx, waitingSession("dup", base))
			assert.ErrorIs(t, err, ErrAlreadyExists)
		})
	}
}

func TestRepositoryUpdate(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			repo := open(t)
			ctx := context.Background()

			s := waitingSession("s-2", base)
			require.NoError(t, repo.Create(ctx, s))

			s.Feedback = []string{"done"}
			s.Status = domain.StatusCompleted
			s.Continuation = nil
			s.LastActivity = base.Add(time.Minute)
			require.NoError(t, repo.Update(ctx, s))

			got, err := repo.Get(ctx, "s-2")
			require.NoError(t, err)
			assert.Equal(t, domain.StatusCompleted, got.Status)
			assert.Nil(t, got.Continuation)
			assert.Equal(t, []string{"done"}, got.Feedback)
			assert.True(t, got.LastActivity.Equal(base.Add(time.Minute)))
		})
	}
}

func TestRepositoryUpdateDoesNotResurrect(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			repo := open(t)
			ctx := context.Background()

			s := waitingSession("gone", base)
			require.NoError(t, repo.Create(ctx, s))
			require.NoError(t, repo.Delete(ctx, "gone"))

			err := repo.Update(ctx, s)
			assert.ErrorIs(t, err, ErrNotFound)

			_, err = repo.Get(ctx, "gone")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestRepositoryRejectsInvalidSession(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			repo := open(t)
			s := waitingSession("bad", base)
			s.Continuation = nil

			err := repo.Create(context.Background(), s)
			assert.True(t, errors.Is(err, domain.ErrInvalidSession), "got %v", err)
		})
	}
}

func TestRepositoryDeleteMissing(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			err := open(t).Delete(context.Background(), "nope")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestRepositoryInactiveSweep(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			repo := open(t)
			ctx := context.Background()
			cutoff := base

			require.NoError(t, repo.Create(ctx, waitingSession("old", base.Add(-time.Second))))
			require.NoError(t, repo.Create(ctx, waitingSession("edge", base)))
			require.NoError(t, repo.Create(ctx, waitingSession("fresh", base.Add(time.Second))))

			noActivity := waitingSession("created-only", base.Add(-time.Hour))
			noActivity.LastActivity = time.Time{}
			require.NoError(t, repo.Create(ctx, noActivity))

			total, expired, err := repo.Counts(ctx, cutoff)
			require.NoError(t, err)
			assert.Equal(t, 4, total)
			assert.Equal(t, 2, expired)

			removed, err := repo.DeleteInactiveBefore(ctx, cutoff)
			require.NoError(t, err)
			sort.Strings(removed)
			assert.Equal(t, []string{"created-only", "old"}, removed)

			total, expired, err = repo.Counts(ctx, cutoff)
			require.NoError(t, err)
			assert.Equal(t, 2, total)
			assert.Equal(t, 0, expired)

			_, err = repo.Get(ctx, "edge")
			assert.NoError(t, err, "a session exactly at the cutoff is kept")
		})
	}
}

func TestRepositoryPing(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			assert.NoError(t, open(t).Ping(context.Background()))
		})
	}
}

func TestNewUnknownBackend(t *testing.T) {
	_, err := New(context.Background(), Options{Backend: "postgres"})
	assert.Error(t, err)
}

func TestNewMemoryDefault(t *testing.T) {
	repo, err := New(context.Background(), Options{})
	require.NoError(t, err)
	_, ok := repo.(*MemoryStore)
	assert.True(t, ok)
}
