package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"

	"github.com/tomashoffer/possible-cheaters/internal/db"
)

const defaultKeyPrefix = "possible-cheaters:bans-before"

// RedisConfig holds connection settings for the ban cache.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisClient connects to Redis and pings it.
func NewRedisClient(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return client, nil
}

// RegistryNamespace identifies a ban registry by its driver and DSN without
// putting credentials into Redis keys.
func RegistryNamespace(driver, dsn string) string {
	sum := sha256.Sum256([]byte(driver + "\x00" + dsn))
	return hex.EncodeToString(sum[:8])
}

// CachedBanRepository keeps the banned-before set of each date in Redis for
// ttl. Bans are owned by another service, so ttl bounds how stale a cached
// set can be. Redis failures fall through to the wrapped repository.
// Entries are keyed by namespace and date; registries sharing a Redis must
// use distinct namespaces.
type CachedBanRepository struct {
	next      db.BanRepository
	client    *redis.Client
	namespace string
	ttl       time.Duration
	keyPrefix string
	log       *slog.Logger
}

func NewCachedBanRepository(next db.BanRepository, client *redis.Client, namespace string, ttl time.Duration, log *slog.Logger) *CachedBanRepository {
	if log == nil {
		log = slog.Default()
	}
	return &CachedBanRepository{
		next:      next,
		client:    client,
		namespace: namespace,
		ttl:       ttl,
		keyPrefix: defaultKeyPrefix,
		log:       log,
	}
}

func (r *CachedBanRepository) key(date time.Time) string {
	return r.keyPrefix + ":" + r.namespace + ":" + date.Format("2006-01-02")
}

func (r *CachedBanRepository) BannedBefore(ctx context.Context, date time.Time) (db.PlayerSet, error) {
	key := r.key(date)

	data, err := r.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var ids []int64
		if err := json.Unmarshal(data, &ids); err == nil {
			r.log.Debug("Ban cache hit", "key", key, "players", len(ids))
			set := make(db.PlayerSet, len(ids))
			for _, id := range ids {
				set[id] = struct{}{}
			}
			return set, nil
		}
		r.log.Warn("Discarding unreadable ban cache entry", "key", key)
	case errors.Is(err, redis.Nil):
		r.log.Debug("Ban cache miss", "key", key)
	default:
		r.log.Warn("Ban cache unavailable, reading registry", "key", key, "error", err)
	}

	set, err := r.next.BannedBefore(ctx, date)
	if err != nil {
		return nil, err
	}

	ids := make([]int64, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	payload, err := json.Marshal(ids)
	if err != nil {
		r.log.Warn("Failed to encode ban cache entry", "key", key, "error", err)
		return set, nil
	}
	if err := r.client.Set(ctx, key, payload, r.ttl).Err(); err != nil {
		r.log.Warn("Failed to store ban cache entry", "key", key, "error", err)
	}
	return set, nil
}

var _ db.BanRepository = (*CachedBanRepository)(nil)
