package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/alejandroruanova/outage-analytics-service/internal/core/domain"
)

// DefaultTableTTL applies when no TTL is configured
const DefaultTableTTL = 24 * time.Hour

// TableCache stores parsed workbooks keyed by content fingerprint, so an
// unchanged upload is never parsed twice.
type TableCache struct {
	redis  *RedisCache
	ttl    time.Duration
	logger *slog.Logger
}

// NewTableCache creates a workbook cache over redis
func NewTableCache(redis *RedisCache, ttl time.Duration, logger *slog.Logger) *TableCache {
	if ttl <= 0 {
		ttl = DefaultTableTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &TableCache{redis: redis, ttl: ttl, logger: logger}
}

func workbookKey(fingerprint string) string {
	return "workbook:" + fingerprint
}

// Get returns the cached workbook. A miss is (nil, false, nil).
func (c *TableCache) Get(ctx context.Context, fingerprint string) (*domain.Workbook, bool, error) {
	data, err := c.redis.GetBytes(ctx, workbookKey(fingerprint))
	if errors.Is(err, ErrCacheMiss) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read cached workbook: %w", err)
	}

	var wb domain.Workbook
	if err := json.Unmarshal(data, &wb); err != nil {
		c.logger.Warn("dropping undecodable cached workbook",
			slog.String("fingerprint", fingerprint),
			slog.Any("error", err))
		_ = c.redis.Delete(ctx, workbookKey(fingerprint))
		return nil, false, nil
	}
	return &wb, true, nil
}

// Put stores wb under fingerprint
func (c *TableCache) Put(ctx context.Context, fingerprint string, wb *domain.Workbook) error {
	data, err := json.Marshal(wb)
	if err != nil {
		return fmt.Errorf("failed to encode workbook: %w", err)
	}
	if err := c.redis.Set(ctx, workbookKey(fingerprint), data, c.ttl); err != nil {
		return fmt.Errorf("failed to cache workbook: %w", err)
	}
	return nil
}
