package storage

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/SmitUplenchwar2687/vmcloop/internal/errdefs"
	"github.com/SmitUplenchwar2687/vmcloop/internal/recording"
)

const (
	defaultRedisPoolSize    = 20
	defaultRedisMaxRetries  = 3
	defaultRedisDialTimeout = 5 * time.Second

	redisRecordingPrefix = "vmcloop:rec:"
	redisIndexKey        = "vmcloop:index"
)

// RedisConfig configures the Redis backend.
type RedisConfig struct {
	Host         string
	Port         int
	Password     string
	DB           int
	Cluster      bool
	ClusterNodes []string
	PoolSize     int
	MaxRetries   int
	DialTimeout  time.Duration
}

// RedisStorage keeps each recording under vmcloop:rec:<name> and the set
// of names in vmcloop:index.
type RedisStorage struct {
	client redis.UniversalClient

	closeOnce sync.Once
	closeErr  error
}

// NewRedisStorage connects and pings the server, retrying with backoff.
func NewRedisStorage(ctx context.Context, cfg *RedisConfig) (*RedisStorage, error) {
	conf, err := normalizeRedisConfig(cfg)
	if err != nil {
		return nil, err
	}

	s := &RedisStorage{client: newRedisClient(conf)}
	if err := s.pingWithRetry(ctx, conf.MaxRetries); err != nil {
		_ = s.client.Close()
		return nil, errors.Wrapf(errdefs.ErrTransport, "redis ping failed: %v", err)
	}
	return s, nil
}

func redisKey(name string) string {
	return redisRecordingPrefix + name
}

func (s *RedisStorage) Save(ctx context.Context, name string, rec *recording.Recording) error {
	if err := checkSave(name, rec); err != nil {
		return err
	}
	b, err := Encode(rec)
	if err != nil {
		return err
	}

	// Cluster mode cannot run a MULTI across slots, so the value and the
	// index are written in one pipeline instead.
	_, err = s.pipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, redisKey(name), b, 0)
		p.SAdd(ctx, redisIndexKey, name)
		return nil
	})
	return errors.Wrapf(err, "saving recording %q", name)
}

func (s *RedisStorage) Load(ctx context.Context, name string) (*recording.Recording, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	b, err := s.client.Get(ctx, redisKey(name)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, notFound(name)
	}
	if err != nil {
		return nil, errors.Wrapf(errdefs.ErrTransport, "loading recording %q: %v", name, err)
	}
	return Decode(b)
}

func (s *RedisStorage) List(ctx context.Context) ([]Info, error) {
	names, err := s.client.SMembers(ctx, redisIndexKey).Result()
	if err != nil {
		return nil, errors.Wrapf(errdefs.ErrTransport, "listing recordings: %v", err)
	}
	sort.Strings(names)

	sizes := make([]*redis.IntCmd, len(names))
	if _, err := s.client.Pipelined(ctx, func(p redis.Pipeliner) error {
		for i, name := range names {
			sizes[i] = p.StrLen(ctx, redisKey(name))
		}
		return nil
	}); err != nil {
		return nil, errors.Wrapf(errdefs.ErrTransport, "listing recordings: %v", err)
	}

	out := make([]Info, 0, len(names))
	for i, name := range names {
		n := sizes[i].Val()
		if n == 0 {
			// Index entry whose value was removed out of band.
			continue
		}
		out = append(out, Info{Name: name, Size: n})
	}
	return out, nil
}

func (s *RedisStorage) Delete(ctx context.Context, name string) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	var del *redis.IntCmd
	if _, err := s.pipelined(ctx, func(p redis.Pipeliner) error {
		del = p.Del(ctx, redisKey(name))
		p.SRem(ctx, redisIndexKey, name)
		return nil
	}); err != nil {
		return errors.Wrapf(err, "deleting recording %q", name)
	}
	if del.Val() == 0 {
		return notFound(name)
	}
	return nil
}

// Close releases Redis resources. It is idempotent.
func (s *RedisStorage) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.client.Close()
	})
	return s.closeErr
}

func (s *RedisStorage) pipelined(ctx context.Context, fn func(redis.Pipeliner) error) ([]redis.Cmder, error) {
	cmds, err := s.client.Pipelined(ctx, fn)
	if err != nil {
		return cmds, errors.Wrap(errdefs.ErrTransport, err.Error())
	}
	return cmds, nil
}

func (s *RedisStorage) pingWithRetry(ctx context.Context, maxRetries int) error {
	attempts := maxRetries + 1
	if attempts < 1 {
		attempts = 1
	}

	backoff := 100 * time.Millisecond
	var lastErr error
	for i := 0; i < attempts; i++ {
		if err := s.client.Ping(ctx).Err(); err == nil {
			return nil
		} else {
			lastErr = err
		}

		if i == attempts-1 {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}

		backoff *= 2
	}

	if lastErr == nil {
		lastErr = errors.New("ping failed with unknown error")
	}
	return lastErr
}

func normalizeRedisConfig(cfg *RedisConfig) (*RedisConfig, error) {
	if cfg == nil {
		return nil, errors.Wrap(errdefs.ErrInvalidArgument, "redis config is required")
	}

	conf := *cfg
	if conf.PoolSize <= 0 {
		conf.PoolSize = defaultRedisPoolSize
	}
	if conf.MaxRetries <= 0 {
		conf.MaxRetries = defaultRedisMaxRetries
	}
	if conf.DialTimeout <= 0 {
		conf.DialTimeout = defaultRedisDialTimeout
	}

	if conf.Cluster {
		if len(conf.ClusterNodes) == 0 {
			return nil, errors.Wrap(errdefs.ErrInvalidArgument, "cluster_nodes is required when cluster=true")
		}
	} else {
		if conf.Host == "" {
			return nil, errors.Wrap(errdefs.ErrInvalidArgument, "host is required when cluster=false")
		}
		if conf.Port <= 0 {
			return nil, errors.Wrapf(errdefs.ErrInvalidArgument, "port must be positive when cluster=false, got %d", conf.Port)
		}
	}

	return &conf, nil
}

func newRedisClient(cfg *RedisConfig) redis.UniversalClient {
	if cfg.Cluster {
		return redis.NewClusterClient(&redis.ClusterOptions{
			Addrs:       cfg.ClusterNodes,
			Password:    cfg.Password,
			PoolSize:    cfg.PoolSize,
			MaxRetries:  cfg.MaxRetries,
			DialTimeout: cfg.DialTimeout,
		})
	}

	return redis.NewClient(&redis.Options{
		Addr:        cfg.Host + ":" + strconv.Itoa(cfg.Port),
		Password:    cfg.Password,
		DB:          cfg.DB,
		PoolSize:    cfg.PoolSize,
		MaxRetries:  cfg.MaxRetries,
		DialTimeout: cfg.DialTimeout,
	})
}
