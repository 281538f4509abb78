package cache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/alejandroruanova/outage-analytics-service/internal/core/domain"
	"github.com/alejandroruanova/outage-analytics-service/internal/core/services/assistant"
	apperrors "github.com/alejandroruanova/outage-analytics-service/internal/pkg/errors"
	"github.com/alejandroruanova/outage-analytics-service/internal/pkg/logger"
)

// setupTestRedis starts a redis testcontainer
func setupTestRedis(t *testing.T) *RedisCache {
	if testing.Short() {
		t.Skip("skipping redis container test in short mode")
	}
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor: wait.ForLog("Ready to accept connections").
				WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("failed to start redis container: %v", err)
	}

	// Cleanup container after test
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Fatalf("failed to terminate redis container: %v", err)
		}
	})

	endpoint, err := container.Endpoint(ctx, "")
	if err != nil {
		t.Fatalf("failed to get redis endpoint: %v", err)
	}

	client := redis.NewClient(&redis.Options{Addr: endpoint})
	require.NoError(t, client.Ping(ctx).Err())

	rc := NewRedisCacheFromClient(client, logger.Discard())
	t.Cleanup(func() { _ = rc.Close() })
	return rc
}

func TestTableCache(t *testing.T) {
	rc := setupTestRedis(t)
	ctx := context.Background()
	tc := NewTableCache(rc, time.Minute, logger.Discard())

	_, ok, err := tc.Get(ctx, "abc")
	require.NoError(t, err)
	assert.False(t, ok)

	wb := &domain.Workbook{Name: "desligamentos.xlsx", Sheets: []*domain.Table{{
		Name:    "Ocorrências",
		Columns: []string{"Torre", "FT"},
		Rows:    []domain.Row{{"Torre": "Torre 05", "FT": "LT A"}},
	}}}
	require.NoError(t, tc.Put(ctx, "abc", wb))

	got, ok, err := tc.Get(ctx, "abc")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, wb, got)

	ttl, err := rc.TTL(ctx, workbookKey("abc"))
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))

	// A corrupt entry is evicted and reported as a miss.
	require.NoError(t, rc.Set(ctx, workbookKey("bad"), "{not json", time.Minute))
	_, ok, err = tc.Get(ctx, "bad")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestConversationStore(t *testing.T) {
	rc := setupTestRedis(t)
	ctx := context.Background()
	store := NewConversationStore(rc, 0)

	conv := assistant.NewConversation(assistant.ModelGPT4oMini)
	conv.History = append(conv.History, assistant.Message{Role: assistant.RoleUser, Content: "Quantos desligamentos?"})
	require.NoError(t, store.Save(ctx, conv))

	got, err := store.Get(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, conv.ID, got.ID)
	require.Len(t, got.History, 1)
	assert.Equal(t, "Quantos desligamentos?", got.History[0].Content)

	require.NoError(t, store.Delete(ctx, conv.ID))
	_, err = store.Get(ctx, conv.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeRecordNotFound))
}

func TestRedisCache_Health(t *testing.T) {
	rc := setupTestRedis(t)
	health := rc.Health(context.Background())
	assert.Equal(t, "up", health["status"])
}
