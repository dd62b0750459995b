package redisstore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/wonny/hawkeye/internal/store"
	"github.com/wonny/hawkeye/pkg/config"
	"github.com/wonny/hawkeye/pkg/redis"
)

// setupStore starts a Redis container and returns a store on it
func setupStore(t *testing.T, hooks ...goredis.Hook) *Store {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test")
	}

	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor: wait.ForLog("Ready to accept connections").
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err, "failed to start redis container")
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	addr, err := container.PortEndpoint(ctx, "6379/tcp", "")
	require.NoError(t, err)

	rdb := goredis.NewClient(&goredis.Options{Addr: addr})
	t.Cleanup(func() { _ = rdb.Close() })
	require.NoError(t, rdb.Ping(ctx).Err())
	for _, h := range hooks {
		rdb.AddHook(h)
	}

	s, err := New(redis.NewFromRedis(rdb, "test"))
	require.NoError(t, err)
	return s
}

func TestNew_RequiresEnabledClient(t *testing.T) {
	client, err := redis.New(context.Background(), config.RedisConfig{Enabled: false})
	require.NoError(t, err)

	_, err = New(client)
	assert.ErrorIs(t, err, store.ErrInvalidInput)

	_, err = New(nil)
	assert.ErrorIs(t, err, store.ErrInvalidInput)
}

func TestStore_OptimisticConcurrency(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	doc, err := s.Get(ctx, "funds.json")
	require.NoError(t, err)
	assert.False(t, doc.Exists())

	v1, err := s.Put(ctx, "funds.json", []byte(`{"F":{"holdings":[]}}`), "", "seed")
	require.NoError(t, err)
	assert.Equal(t, "1", v1)

	_, err = s.Put(ctx, "funds.json", []byte(`{}`), "", "second create")
	assert.ErrorIs(t, err, store.ErrVersionConflict)

	v2, err := s.Put(ctx, "funds.json", []byte(`{"F":{"holdings":[],"factor":1.1}}`), v1, "Audit Update 2024-01-15")
	require.NoError(t, err)
	assert.Equal(t, "2", v2)

	_, err = s.Put(ctx, "funds.json", []byte(`{}`), v1, "stale writer")
	assert.ErrorIs(t, err, store.ErrVersionConflict)

	doc, err = s.Get(ctx, "funds.json")
	require.NoError(t, err)
	assert.Equal(t, v2, doc.Version)
	assert.JSONEq(t, `{"F":{"holdings":[],"factor":1.1}}`, string(doc.Data))

	reason, err := s.client.Redis().HGet(ctx, s.key("funds.json"), "reason").Result()
	require.NoError(t, err)
	assert.Equal(t, "Audit Update 2024-01-15", reason)
}

func TestStore_ConcurrentWritersOneWins(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	v1, err := s.Put(ctx, "history.json", []byte(`{}`), "", "seed")
	require.NoError(t, err)

	const writers = 16
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		wins      int
		conflicts int
		others    []error
	)

	start := make(chan struct{})
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start

			body := []byte(fmt.Sprintf(`{"2024-01-15":{"F":%d}}`, i))
			_, err := s.Put(ctx, "history.json", body, v1, fmt.Sprintf("Snapshot writer %d", i))

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case errors.Is(err, store.ErrVersionConflict):
				conflicts++
			default:
				others = append(others, err)
			}
		}(i)
	}
	close(start)
	wg.Wait()

	assert.Empty(t, others)
	assert.Equal(t, 1, wins)
	assert.Equal(t, writers-1, conflicts)

	doc, err := s.Get(ctx, "history.json")
	require.NoError(t, err)
	assert.Equal(t, "2", doc.Version)
}

// interleaveHook bumps the document from another connection right before
// the first MULTI/EXEC pipeline, so the WATCHed key changes mid-transaction.
type interleaveHook struct {
	other *goredis.Client
	key   string
	once  sync.Once
}

func (h *interleaveHook) DialHook(next goredis.DialHook) goredis.DialHook { return next }

func (h *interleaveHook) ProcessHook(next goredis.ProcessHook) goredis.ProcessHook { return next }

func (h *interleaveHook) ProcessPipelineHook(next goredis.ProcessPipelineHook) goredis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []goredis.Cmder) error {
		h.once.Do(func() {
			h.other.HSet(ctx, h.key, "version", "9", "reason", "other writer")
		})
		return next(ctx, cmds)
	}
}

func TestStore_WatchedKeyChangedAbortsWrite(t *testing.T) {
	hook := &interleaveHook{}
	s := setupStore(t, hook)
	ctx := context.Background()

	// 두 번째 연결: WATCH 밖에서 쓰기
	hook.other = goredis.NewClient(s.client.Redis().Options())
	t.Cleanup(func() { _ = hook.other.Close() })
	hook.key = s.key("funds.json")

	_, err := s.Put(ctx, "funds.json", []byte(`{"F":{}}`), "", "seed")
	assert.ErrorIs(t, err, store.ErrVersionConflict)

	doc, err := s.Get(ctx, "funds.json")
	require.NoError(t, err)
	assert.Equal(t, "9", doc.Version)
	assert.Empty(t, doc.Data)

	reason, err := s.client.Redis().HGet(ctx, s.key("funds.json"), "reason").Result()
	require.NoError(t, err)
	assert.Equal(t, "other writer", reason)
}
