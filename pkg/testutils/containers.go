package testutils

import (
	"context"
	"testing"
	"time"

	"github.com/amirasaad/sandbank/infra"
	"github.com/amirasaad/sandbank/pkg/config"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/gorm"
)

// requireDocker skips container tests in -short mode or without a
// reachable Docker daemon.
func requireDocker(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("container tests are skipped in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)
}

// RedisClient starts a disposable Redis container and returns a client
// connected to it. The container is removed when the test ends.
func RedisClient(t *testing.T) *redis.Client {
	t.Helper()
	requireDocker(t)
	ctx := context.Background()

	container, err := tcredis.Run(ctx, "redis:7.0.5")
	testcontainers.CleanupContainer(t, container)
	require.NoError(t, err)

	url, err := container.ConnectionString(ctx)
	require.NoError(t, err)
	opt, err := redis.ParseURL(url)
	require.NoError(t, err)
	client := redis.NewClient(opt)
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.Ping(ctx).Err())
	return client
}

// NewPostgresDB starts a disposable Postgres container and returns a
// migrated connection opened the way the server opens it.
func NewPostgresDB(t *testing.T) *gorm.DB {
	t.Helper()
	requireDocker(t)
	ctx := context.Background()

	container, err := tcpostgres.Run(
		ctx,
		"postgres:15-alpine",
		tcpostgres.WithDatabase("sandbank"),
		tcpostgres.WithUsername("sandbank"),
		tcpostgres.WithPassword("sandbank"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).WithStartupTimeout(30*time.Second),
		),
	)
	testcontainers.CleanupContainer(t, container)
	require.NoError(t, err)

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	db, err := infra.NewDBConnection(&config.DB{Url: dsn}, "test")
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, infra.Migrate(db))
	return db
}
