package goGate

import (
	"fmt"

	"github.com/MrEthical07/goGate/storage"
	"github.com/redis/go-redis/v9"
)

// openStorage creates the backend named by cfg. The returned closer is non-nil only for
// resources created here.
func openStorage(cfg StorageConfig, client redis.UniversalClient) (storage.TokenStorage, func() error, error) {
	switch cfg.Backend {
	case StorageMemory, "":
		return storage.NewMemory(), nil, nil
	case StorageFile:
		return storage.NewFile(cfg.Dir), nil, nil
	case StorageRedis:
		var closer func() error
		if client == nil {
			c := redis.NewClient(&redis.Options{
				Addr:     cfg.RedisAddr,
				Password: cfg.RedisPassword,
				DB:       cfg.RedisDB,
			})
			client, closer = c, c.Close
		}
		return storage.NewRedis(client, cfg.RedisPrefix, cfg.TTL), closer, nil
	default:
		return nil, nil, fmt.Errorf("%w: unknown storage backend %q", ErrInvalidConfig, cfg.Backend)
	}
}
