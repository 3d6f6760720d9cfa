package lock

import (
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/matthieukhl/bakehouse/internal/config"
)

// NewLocker creates a locker based on configuration
func NewLocker(cfg *config.Config) (Locker, error) {
	switch cfg.Lock.Provider {
	case "memory":
		return NewMemory(), nil
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		return NewRedis(client, cfg.Lock.Prefix), nil
	case "none":
		return Noop{}, nil
	default:
		return nil, fmt.Errorf("unsupported lock provider: %s", cfg.Lock.Provider)
	}
}
