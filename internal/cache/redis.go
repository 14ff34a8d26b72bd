package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"gem-backend/internal/config"
	"gem-backend/internal/logger"
	"gem-backend/internal/models"
)

const (
	itemKeyFmt = "inventory:%s:%s"
	genKeyFmt  = "inventory:%s:%s:gen"
	genTTL     = 24 * time.Hour
)

// setIfCurrent stores ARGV[1] under KEYS[1] only while the generation in
// KEYS[2] still equals ARGV[2]. A missing generation counts as zero.
var setIfCurrent = redis.NewScript(`
local gen = tonumber(redis.call("GET", KEYS[2]) or "0")
if gen ~= tonumber(ARGV[2]) then
	return 0
end
redis.call("SET", KEYS[1], ARGV[1], "PX", ARGV[3])
return 1
`)

var (
	client  *redis.Client
	itemTTL = 5 * time.Minute
)

// Init connects to Redis. On failure the client stays nil and every cache
// call becomes a no-op, so the service keeps working from Postgres alone.
func Init(cfg *config.Config) error {
	if !cfg.Redis.Enabled {
		logger.Log.Info("redis cache disabled")
		return nil
	}
	if cfg.Redis.ItemTTLSeconds > 0 {
		itemTTL = time.Duration(cfg.Redis.ItemTTLSeconds) * time.Second
	}

	c := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := c.Ping(ctx).Err(); err != nil {
		c.Close()
		return err
	}
	client = c
	return nil
}

// Close releases the connection, if any.
func Close() {
	if client != nil {
		client.Close()
		client = nil
	}
}

// IsHealthy pings Redis. A disabled cache reports false.
func IsHealthy(ctx context.Context) bool {
	if client == nil {
		return false
	}
	return client.Ping(ctx).Err() == nil
}

// Enabled reports whether a live client is configured.
func Enabled() bool {
	return client != nil
}

func itemKey(ownerID, id uuid.UUID) string {
	return fmt.Sprintf(itemKeyFmt, ownerID, id)
}

func genKey(ownerID, id uuid.UUID) string {
	return fmt.Sprintf(genKeyFmt, ownerID, id)
}

// parseGeneration reads an MGET slot; a missing key is generation zero.
func parseGeneration(v interface{}) (int64, bool) {
	switch g := v.(type) {
	case nil:
		return 0, true
	case string:
		n, err := strconv.ParseInt(g, 10, 64)
		return n, err == nil
	default:
		return 0, false
	}
}

// ItemCache caches inventory items read through the inventory service.
// Every ledger mutation drops the entry and bumps the item's generation; a
// miss hands out the generation as a fill token so a copy read from
// Postgres before the mutation cannot be written back after it.
type ItemCache struct{}

// GetItem returns the cached item, or on a miss the fill token to pass to
// SetItem. A negative token disables the fill.
func (ItemCache) GetItem(ctx context.Context, ownerID, id uuid.UUID) (*models.InventoryItem, int64, bool) {
	if client == nil {
		return nil, -1, false
	}
	vals, err := client.MGet(ctx, itemKey(ownerID, id), genKey(ownerID, id)).Result()
	if err != nil || len(vals) != 2 {
		return nil, -1, false
	}
	token, ok := parseGeneration(vals[1])
	if !ok {
		token = -1
	}
	data, isString := vals[0].(string)
	if !isString {
		return nil, token, false
	}
	var item models.InventoryItem
	if err := json.Unmarshal([]byte(data), &item); err != nil {
		return nil, token, false
	}
	return &item, token, true
}

// SetItem stores the item for the configured TTL unless it was invalidated
// since the token was issued.
func (ItemCache) SetItem(ctx context.Context, item *models.InventoryItem, token int64) {
	if client == nil || item == nil || token < 0 {
		return
	}
	data, err := json.Marshal(item)
	if err != nil {
		return
	}
	keys := []string{itemKey(item.OwnerID, item.ID), genKey(item.OwnerID, item.ID)}
	if err := setIfCurrent.Run(ctx, client, keys, data, token, itemTTL.Milliseconds()).Err(); err != nil {
		logger.FromContext(ctx).Warn("cache set failed", zap.Error(err))
	}
}

// InvalidateItem drops the cached copy of an item and bumps its generation.
func (ItemCache) InvalidateItem(ctx context.Context, ownerID, id uuid.UUID) {
	if client == nil {
		return
	}
	gen := genKey(ownerID, id)
	_, err := client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, itemKey(ownerID, id))
		pipe.Incr(ctx, gen)
		pipe.Expire(ctx, gen, genTTL)
		return nil
	})
	if err != nil {
		logger.FromContext(ctx).Warn("cache invalidate failed", zap.Error(err))
	}
}
