package embedder

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalProvider(t *testing.T) {
	ctx := context.Background()

	t.Run("deterministic", func(t *testing.T) {
		provider, err := NewLocalProvider(nil)
		require.NoError(t, err)

		a, err := provider.GenerateEmbedding(ctx, "connection refused")
		require.NoError(t, err)
		b, err := provider.GenerateEmbedding(ctx, "connection refused")
		require.NoError(t, err)

		assert.Equal(t, a.Vector, b.Vector, "identical text must yield identical vectors")
	})

	t.Run("unit length", func(t *testing.T) {
		provider, _ := NewLocalProvider(nil)
		emb, err := provider.GenerateEmbedding(ctx, "some error text")
		require.NoError(t, err)

		var sum float64
		for _, v := range emb.Vector {
			sum += float64(v) * float64(v)
		}
		assert.InDelta(t, 1.0, math.Sqrt(sum), 1e-5)
	})

	t.Run("metadata", func(t *testing.T) {
		provider, _ := NewLocalProvider(nil)
		assert.Equal(t, ProviderLocal, provider.Provider())
		assert.Equal(t, LocalDimension, provider.Dimension())
		assert.NotEmpty(t, provider.Model())

		emb, err := provider.GenerateEmbedding(ctx, "x")
		require.NoError(t, err)
		assert.Len(t, emb.Vector, LocalDimension)
		assert.Equal(t, LocalDimension, emb.Dimension)
	})

	t.Run("empty text rejected", func(t *testing.T) {
		provider, _ := NewLocalProvider(nil)
		_, err := provider.GenerateEmbedding(ctx, "")
		assert.ErrorIs(t, err, ErrEmptyText)
	})

	t.Run("batch matches singles", func(t *testing.T) {
		provider, _ := NewLocalProvider(nil)
		texts := []string{"first error", "second error"}

		batch, err := provider.GenerateBatch(ctx, texts)
		require.NoError(t, err)
		require.Len(t, batch, 2)

		for i, text := range texts {
			single, err := provider.GenerateEmbedding(ctx, text)
			require.NoError(t, err)
			assert.Equal(t, single.Vector, batch[i].Vector)
		}
	})

	t.Run("batch validation", func(t *testing.T) {
		provider, _ := NewLocalProvider(nil)

		_, err := provider.GenerateBatch(ctx, nil)
		assert.ErrorIs(t, err, ErrInvalidInput)

		_, err = provider.GenerateBatch(ctx, []string{"ok", ""})
		assert.ErrorIs(t, err, ErrInvalidInput)
	})
}

func TestCache(t *testing.T) {
	t.Run("set and get", func(t *testing.T) {
		cache := NewCache(10)
		emb := &Embedding{Vector: []float32{1, 2}, Dimension: 2, Provider: "test", Hash: "h"}
		cache.Set("h", emb)

		got, ok := cache.Get("h")
		require.True(t, ok)
		assert.Equal(t, emb.Vector, got.Vector)
		assert.Equal(t, 1, cache.Size())
	})

	t.Run("returns copies", func(t *testing.T) {
		cache := NewCache(10)
		cache.Set("h", &Embedding{Vector: []float32{1, 2}, Dimension: 2})

		first, _ := cache.Get("h")
		first.Vector[0] = 99

		second, _ := cache.Get("h")
		assert.Equal(t, float32(1), second.Vector[0], "caller mutations must not pollute the cache")
	})

	t.Run("miss", func(t *testing.T) {
		cache := NewCache(10)
		_, ok := cache.Get("absent")
		assert.False(t, ok)
	})

	t.Run("cache hit short-circuits provider", func(t *testing.T) {
		cache := NewCache(10)
		provider, err := NewLocalProvider(cache)
		require.NoError(t, err)

		ctx := context.Background()
		_, err = provider.GenerateEmbedding(ctx, "cached text")
		require.NoError(t, err)
		assert.Equal(t, 1, cache.Size())

		_, err = provider.GenerateEmbedding(ctx, "cached text")
		require.NoError(t, err)
		assert.Equal(t, 1, cache.Size())
	})
}

func TestComputeHash(t *testing.T) {
	assert.Equal(t, ComputeHash("abc"), ComputeHash("abc"))
	assert.NotEqual(t, ComputeHash("abc"), ComputeHash("abd"))
	assert.Len(t, ComputeHash("abc"), 64)
}

func TestRetryWithBackoff(t *testing.T) {
	ctx := context.Background()
	config := RetryConfig{MaxRetries: 3, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, Multiplier: 2.0}

	t.Run("succeeds after transient failures", func(t *testing.T) {
		calls := 0
		result, err := retryWithBackoff(ctx, config, func() (string, error) {
			calls++
			if calls < 3 {
				return "", errors.New("transient")
			}
			return "ok", nil
		})
		require.NoError(t, err)
		assert.Equal(t, "ok", result)
		assert.Equal(t, 3, calls)
	})

	t.Run("exhausts retries", func(t *testing.T) {
		calls := 0
		_, err := retryWithBackoff(ctx, config, func() (string, error) {
			calls++
			return "", errors.New("persistent")
		})
		assert.EqualError(t, err, "persistent")
		assert.Equal(t, 3, calls)
	})

	t.Run("stops on cancellation", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		_, err := retryWithBackoff(cancelled, config, func() (string, error) {
			return "", errors.New("always")
		})
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestFactory(t *testing.T) {
	t.Run("explicit local", func(t *testing.T) {
		emb, err := New(Config{Provider: "local", CacheSize: 10})
		require.NoError(t, err)
		assert.Equal(t, ProviderLocal, emb.Provider())
	})

	t.Run("unknown provider", func(t *testing.T) {
		_, err := New(Config{Provider: "quantum"})
		assert.ErrorIs(t, err, ErrUnknownProvider)
	})

	t.Run("openai requires key", func(t *testing.T) {
		_, err := New(Config{Provider: "openai"})
		assert.ErrorIs(t, err, ErrNoProviderEnabled)
	})

	t.Run("env none disables embeddings", func(t *testing.T) {
		t.Setenv(EnvProvider, "none")
		emb, err := NewFromEnv()
		require.NoError(t, err)
		assert.Nil(t, emb)
	})

	t.Run("env local", func(t *testing.T) {
		t.Setenv(EnvProvider, "local")
		emb, err := NewFromEnv()
		require.NoError(t, err)
		assert.Equal(t, ProviderLocal, emb.Provider())
	})

	t.Run("env fallback without keys", func(t *testing.T) {
		t.Setenv(EnvProvider, "")
		t.Setenv(EnvOpenAIAPIKey, "")
		t.Setenv(EnvJinaAPIKey, "")
		emb, err := NewFromEnv()
		require.NoError(t, err)
		assert.Equal(t, ProviderLocal, emb.Provider())
	})
}
