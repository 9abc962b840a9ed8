package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/garka/garka-backend/config"
	"github.com/garka/garka-backend/pkg/logger"
	"github.com/redis/go-redis/v9"
)

var client *redis.Client

// ErrDisabled is returned by the helpers when no client has been configured.
var ErrDisabled = errors.New("redis is not configured")

// Init initializes Redis connection. An empty host leaves redis disabled.
func Init(cfg *config.RedisConfig) error {
	if cfg.Addr() == "" {
		logger.Warn("Redis host not configured; idempotency keys and token revocation are disabled")
		return nil
	}

	logger.Info("Initializing Redis connection", map[string]interface{}{
		"host": cfg.Host,
		"port": cfg.Port,
		"db":   cfg.DB,
	})

	c := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := c.Ping(ctx).Err(); err != nil {
		logger.Error("Failed to connect to Redis", err, map[string]interface{}{
			"host": cfg.Host,
			"port": cfg.Port,
		})
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	client = c
	logger.Info("Redis connection established successfully")
	return nil
}

// GetClient returns the Redis client instance, nil when disabled
func GetClient() *redis.Client {
	return client
}

// SetClient replaces the client; tests point it at miniredis.
func SetClient(c *redis.Client) {
	client = c
}

// Enabled reports whether a client is configured.
func Enabled() bool {
	return client != nil
}

// Close closes the Redis connection
func Close() error {
	if client != nil {
		logger.Info("Closing Redis connection")
		return client.Close()
	}
	return nil
}

// Get returns the value at key; redis.Nil when missing.
func Get(ctx context.Context, key string) (string, error) {
	if client == nil {
		return "", ErrDisabled
	}
	return client.Get(ctx, key).Result()
}

func Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	if client == nil {
		return ErrDisabled
	}
	return client.Set(ctx, key, value, expiration).Err()
}

// SetNX sets key only when absent and reports whether it did.
func SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error) {
	if client == nil {
		return false, ErrDisabled
	}
	return client.SetNX(ctx, key, value, expiration).Result()
}

func Del(ctx context.Context, keys ...string) error {
	if client == nil {
		return ErrDisabled
	}
	return client.Del(ctx, keys...).Err()
}

// IsNil reports whether err means the key does not exist.
func IsNil(err error) bool {
	return errors.Is(err, redis.Nil)
}

// BlacklistToken adds a token to the blacklist
func BlacklistToken(ctx context.Context, token string, expiry time.Duration) error {
	logger.Debug("Adding token to blacklist", map[string]interface{}{
		"expiry": expiry.String(),
	})

	if err := Set(ctx, blacklistKey(token), "revoked", expiry); err != nil {
		logger.Error("Failed to blacklist token", err)
		return err
	}
	return nil
}

// IsTokenBlacklisted checks if a token is in the blacklist
func IsTokenBlacklisted(ctx context.Context, token string) (bool, error) {
	val, err := Get(ctx, blacklistKey(token))
	if IsNil(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return val == "revoked", nil
}

func blacklistKey(token string) string {
	return fmt.Sprintf("blacklist:%s", token)
}
