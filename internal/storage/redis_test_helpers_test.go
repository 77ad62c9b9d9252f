package storage

import (
	"context"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	testcontainers "github.com/testcontainers/testcontainers-go"
	rediscontainer "github.com/testcontainers/testcontainers-go/modules/redis"
)

const redisImage = "redis:7.2-alpine"

// newRedisStorageForTest connects a RedisStorage to a throwaway container.
// The test is skipped when no container runtime is reachable.
func newRedisStorageForTest(t *testing.T) (*RedisStorage, func()) {
	t.Helper()
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	ctr, err := rediscontainer.Run(ctx, redisImage)
	if err != nil {
		t.Skipf("redis container unavailable: %v", err)
	}
	terminate := func() { _ = ctr.Terminate(context.Background()) }
	must := func(err error, what string) {
		t.Helper()
		if err != nil {
			terminate()
			require.NoError(t, err, what)
		}
	}

	endpoint, err := ctr.Endpoint(ctx, "")
	must(err, "container endpoint")
	host, portStr, err := net.SplitHostPort(endpoint)
	must(err, "split endpoint")
	port, err := strconv.Atoi(portStr)
	must(err, "parse port")

	store, err := NewRedisStorage(ctx, &RedisConfig{
		Host:        host,
		Port:        port,
		PoolSize:    4,
		DialTimeout: 5 * time.Second,
	})
	must(err, "NewRedisStorage")

	return store, func() {
		_ = store.Close()
		terminate()
	}
}
