package persistence

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func TestKeyCounterAllocatesDistinctNumbersUnderConcurrency(t *testing.T) {
	t.Parallel()

	if testing.Short() {
		t.Skip("skipping key counter integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("veritest"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(wait.ForListeningPort("5432/tcp").WithStartupTimeout(2*time.Minute)),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = pgContainer.Terminate(context.Background())
	})

	connString, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := NewPool(ctx, PoolConfig{ConnString: connString})
	require.NoError(t, err)
	t.Cleanup(func() { ClosePool(pool) })

	counter, err := NewKeyCounter(ctx, pool)
	require.NoError(t, err)

	const workers = 20
	numbers := make(chan int64, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n, allocErr := counter.NextNumber(ctx, "org-1", "proj-1")
			require.NoError(t, allocErr)
			numbers <- n
		}()
	}
	wg.Wait()
	close(numbers)

	seen := make(map[int64]bool, workers)
	for n := range numbers {
		require.False(t, seen[n], "number %d allocated twice", n)
		seen[n] = true
	}
	require.Len(t, seen, workers)

	// A separate project scope starts over at 1.
	n, err := counter.NextNumber(ctx, "org-1", "proj-2")
	require.NoError(t, err)
	require.Equal(t, int64(1), n)
}

func TestKeyPrefix(t *testing.T) {
	t.Parallel()

	require.Equal(t, "PROJ1", KeyPrefix("proj-1"))
	require.Equal(t, "DEF", KeyPrefix("---"))
	require.Equal(t, "ABCDEFGHIJ", KeyPrefix("abcdefghijklmno"))
}
