package handoff

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	clock := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return clock }

	_, err := s.Latest(ctx, "kiosk-1")
	require.ErrorIs(t, err, ErrNotFound)

	e := Entry{Mode: "fit", ProductID: "aviator", Result: json.RawMessage(`{"shape":"Oval"}`), At: clock}
	require.NoError(t, s.Put(ctx, "kiosk-1", e))

	got, err := s.Latest(ctx, "kiosk-1")
	require.NoError(t, err)
	require.Equal(t, e, got)

	_, err = s.Latest(ctx, "kiosk-2")
	require.ErrorIs(t, err, ErrNotFound)

	clock = clock.Add(TTL + time.Second)
	_, err = s.Latest(ctx, "kiosk-1")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCreateKey(t *testing.T) {
	require.Equal(t, "facefit:result:lobby", createKey("facefit", "lobby"))
}

func TestNewRedisStoreInvalidURL(t *testing.T) {
	_, err := NewRedisStore(context.Background(), "http://not-redis", "facefit")
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid redis url")
}

func TestNewRedisStoreUnreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := NewRedisStore(ctx, "redis://invalid-redis-host-that-does-not-exist:6379/0", "facefit")
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to connect to Redis")
}

func TestRedisStoreIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { container.Terminate(ctx) })

	endpoint, err := container.Endpoint(ctx, "")
	require.NoError(t, err)

	s, err := NewRedisStore(ctx, fmt.Sprintf("redis://%s/0", endpoint), "facefit_test")
	require.NoError(t, err)
	defer s.Close()

	_, err = s.Latest(ctx, "kiosk-1")
	require.ErrorIs(t, err, ErrNotFound)

	e := Entry{Mode: "colour", ProductID: "aviator", Result: json.RawMessage(`{"top_match":{"id":"gold"}}`), At: time.Unix(1700000000, 0).UTC()}
	require.NoError(t, s.Put(ctx, "kiosk-1", e))

	got, err := s.Latest(ctx, "kiosk-1")
	require.NoError(t, err)
	require.Equal(t, e.Mode, got.Mode)
	require.Equal(t, e.ProductID, got.ProductID)
	require.JSONEq(t, string(e.Result), string(got.Result))
	require.True(t, e.At.Equal(got.At))

	ttl, err := s.client.TTL(ctx, createKey("facefit_test", "kiosk-1")).Result()
	require.NoError(t, err)
	require.Greater(t, ttl, time.Duration(0))
}
