//go:build integration

package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Sternrassler/admin-api-client/pkg/features"
	"github.com/Sternrassler/admin-api-client/pkg/navigation"
	"github.com/Sternrassler/admin-api-client/pkg/session"
	"github.com/Sternrassler/admin-api-client/pkg/store"
	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupRedisContainer creates a Redis container for integration testing.
func setupRedisContainer(t *testing.T) (*redis.Client, func()) {
	t.Helper()

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	redisContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}

	host, err := redisContainer.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := redisContainer.MappedPort(ctx, "6379")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	client := redis.NewClient(&redis.Options{
		Addr: host + ":" + port.Port(),
	})

	cleanup := func() {
		client.Close()
		redisContainer.Terminate(ctx)
	}

	return client, cleanup
}

// newRedisClient builds a client whose session and flags live in Redis.
func newRedisClient(t *testing.T, st store.Store, serverURL, location string) (*Client, *navigation.Router) {
	t.Helper()

	ctx := context.Background()
	router := navigation.NewRouter(location)
	client, err := New(DefaultConfig(serverURL), session.New(ctx, st, session.Config{}), features.New(ctx, st), router)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	return client, router
}

func TestIntegration_SessionExpirySurvivesRestart(t *testing.T) {
	redisClient, cleanup := setupRedisContainer(t)
	defer cleanup()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"code":"UNAUTHORIZED","message":"token revoked"}`))
	}))
	defer server.Close()

	ctx := context.Background()
	st := store.NewRedis(redisClient, "it", map[string]string{"profile": "default"})

	client, router := newRedisClient(t, st, server.URL, "/admin/users")
	if err := client.Session().Login(ctx, "tok", json.RawMessage(`{"id":1}`)); err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	_, err := client.Do(ctx, Request{Path: "/admin/users"})
	if !IsKind(err, KindSessionExpired) {
		t.Fatalf("err = %v, want session expired", err)
	}
	if got := router.Redirects(); len(got) != 1 || got[0] != navigation.LoginPath {
		t.Errorf("redirects = %v", got)
	}

	// A second process sharing the store sees the logged-out session and
	// the one-shot expired notice.
	restarted := session.New(ctx, st, session.Config{})
	if restarted.Token() != "" {
		t.Errorf("token = %q after expiry", restarted.Token())
	}
	if !restarted.ConsumeExpired(ctx) {
		t.Error("expired notice not persisted")
	}
	if restarted.ConsumeExpired(ctx) {
		t.Error("expired notice must be one-shot")
	}
}

func TestIntegration_OpsDisabledPersisted(t *testing.T) {
	redisClient, cleanup := setupRedisContainer(t)
	defer cleanup()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"message":"Ops monitoring is disabled"}`))
	}))
	defer server.Close()

	ctx := context.Background()
	st := store.NewRedis(redisClient, "it", nil)

	client, router := newRedisClient(t, st, server.URL, "/admin/ops/errors")

	_, err := client.Do(ctx, Request{Path: "/admin/ops/errors"})
	if !IsKind(err, KindFeatureDisabled) {
		t.Fatalf("err = %v, want feature disabled", err)
	}
	if got := router.Location(); got != navigation.OpsFallbackPath {
		t.Errorf("location = %q, want %q", got, navigation.OpsFallbackPath)
	}

	raw, err := redisClient.Get(ctx, "it:"+store.KeyOpsMonitoringEnabled).Result()
	if err != nil || raw != "false" {
		t.Errorf("redis value = %q (err %v), want false", raw, err)
	}
	if features.New(ctx, st).OpsMonitoringEnabled() {
		t.Error("fresh flags did not pick up the cached false")
	}
}
