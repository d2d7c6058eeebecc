package infra

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	"github.com/wochuna/Sacco/internal/config"
	"github.com/wochuna/Sacco/internal/logging"
)

func TestOpenInDevWithoutBackends(t *testing.T) {
	b, err := Open(context.Background(), config.Config{AppEnv: "development"}, logging.Discard())
	require.NoError(t, err)
	require.Nil(t, b.DB)
	require.Nil(t, b.Cache)
	b.Close(logging.Discard())
}

func TestOpenRequiresBackendsOutsideDev(t *testing.T) {
	_, err := Open(context.Background(), config.Config{AppEnv: "production"}, logging.Discard())
	require.ErrorContains(t, err, "database is required")
}

func TestOpenConnectsRedis(t *testing.T) {
	mr := miniredis.RunT(t)

	b, err := Open(context.Background(), config.Config{AppEnv: "development", RedisURL: "redis://" + mr.Addr()}, logging.Discard())
	require.NoError(t, err)
	require.NotNil(t, b.Cache)
	require.NoError(t, b.Cache.Ping(context.Background()).Err())
	b.Close(logging.Discard())
}

func TestNewRedisClientRejectsBadURL(t *testing.T) {
	_, err := NewRedisClient(context.Background(), "")
	require.Error(t, err)

	_, err = NewRedisClient(context.Background(), "not a url")
	require.Error(t, err)
}

func TestNewPostgresPoolRejectsBadURL(t *testing.T) {
	_, err := NewPostgresPool(context.Background(), "")
	require.Error(t, err)

	_, err = NewPostgresPool(context.Background(), "postgres://%zz")
	require.Error(t, err)
}
