package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/amirasaad/sandbank/pkg/config"
	"github.com/amirasaad/sandbank/pkg/domain/events"
	"github.com/amirasaad/sandbank/pkg/eventbus"
	pkgtestutils "github.com/amirasaad/sandbank/pkg/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestMain runs before any tests and applies globally for all tests in the package.
func TestMain(m *testing.M) {
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
	pkgtestutils.FastHashing()
	os.Exit(m.Run())
}

func testConfig(t *testing.T) *config.App {
	cfg := pkgtestutils.TestConfig()
	cfg.DB.Url = filepath.Join(t.TempDir(), "server.db")
	cfg.Admin = &config.Admin{Username: "root", Email: "root@example.com", Password: "password123"}
	return cfg
}

func TestBuild_SeedsAdminAndServes(t *testing.T) {
	cfg := testConfig(t)
	cfg.Scheduler.Enabled = true
	srv, err := build(context.Background(), cfg)
	require.NoError(t, err)
	require.NotNil(t, srv.scheduler)

	resp, err := srv.fiber.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	_ = resp.Body.Close()

	req := httptest.NewRequest(http.MethodPost, "/auth/login",
		strings.NewReader(`{"identity":"root","password":"password123"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err = srv.fiber.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	_ = resp.Body.Close()

	srv.scheduler.Start()
	srv.scheduler.Stop(context.Background())
	assert.NoError(t, srv.cleanup())
}

func TestBuild_InvalidSchedule(t *testing.T) {
	cfg := testConfig(t)
	cfg.Scheduler.Enabled = true
	cfg.Scheduler.WithdrawalExpirySchedule = "every tuesday"
	_, err := build(context.Background(), cfg)
	assert.Error(t, err)
}

type blockingConsumer struct {
	started chan string
	stopped chan struct{}
}

func (b *blockingConsumer) Consume(ctx context.Context, consumer string, handler eventbus.HandlerFunc) error {
	b.started <- consumer
	if err := handler(ctx, events.Event{Type: events.WalletFunded, Reference: "DEP-1"}); err != nil {
		return err
	}
	<-ctx.Done()
	close(b.stopped)
	return nil
}

func TestServer_ConsumerRunsUntilShutdown(t *testing.T) {
	cfg := testConfig(t)
	srv, err := build(context.Background(), cfg)
	require.NoError(t, err)
	assert.Nil(t, srv.consumer)

	fake := &blockingConsumer{started: make(chan string, 1), stopped: make(chan struct{})}
	srv.consumer = fake
	srv.startConsumer(context.Background())
	select {
	case name := <-fake.started:
		assert.Equal(t, cfg.Events.Consumer, name)
	case <-time.After(5 * time.Second):
		t.Fatal("consumer not started")
	}

	require.NoError(t, srv.shutdown())
	select {
	case <-fake.stopped:
	default:
		t.Fatal("consumer still running after shutdown")
	}
}
