//go:build e2e
// +build e2e

package e2e_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"household-ledger/internal/app"
	"household-ledger/internal/config"
	"household-ledger/internal/db"
	"household-ledger/pkg/logger"
)

const (
	postgresImage = "postgres:16-alpine"
	postgresPort  = "5432/tcp"
	e2ePassword   = "Secret123!"
)

type testEnv struct {
	server *httptest.Server
	app    *app.App
}

// postgresDSN returns E2E_DB_DSN or starts a throwaway postgres container.
func postgresDSN(t *testing.T) string {
	t.Helper()
	if dsn := os.Getenv("E2E_DB_DSN"); dsn != "" {
		return dsn
	}

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        postgresImage,
			ExposedPorts: []string{postgresPort},
			Env: map[string]string{
				"POSTGRES_USER":     "ledger",
				"POSTGRES_PASSWORD": "ledger",
				"POSTGRES_DB":       "ledger",
			},
			WaitingFor: wait.ForAll(
				wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
				wait.ForListeningPort(postgresPort),
			).WithDeadline(90 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Skipf("postgres container unavailable: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("terminate postgres: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, postgresPort)
	require.NoError(t, err)
	return fmt.Sprintf("postgres://ledger:ledger@%s:%s/ledger?sslmode=disable", host, port.Port())
}

func setupE2E(t *testing.T) *testEnv {
	t.Helper()

	cfg := config.Config{
		HTTPPort:       "0",
		Env:            "test",
		RequestTimeout: 10 * time.Second,
		DB: config.DBConfig{
			Driver:           config.DriverPostgres,
			DSN:              postgresDSN(t),
			StatementTimeout: 5 * time.Second,
		},
		Auth: config.AuthConfig{
			SecretKey:       "e2e-signing-key",
			Algorithm:       "HS256",
			AccessTokenTTL:  30 * time.Minute,
			RefreshTokenTTL: 24 * time.Hour,
			BcryptCost:      4,
			PasswordPolicy:  "length",
			HashWorkers:     4,
		},
		Revocation: config.RevocationConfig{
			Backend:       config.RevocationBackendMemory,
			SweepInterval: time.Minute,
		},
	}

	application, err := app.NewWithConfig(cfg, logger.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = application.Close() })

	server := httptest.NewServer(application.HTTPServer().Handler)
	t.Cleanup(server.Close)

	env := &testEnv{server: server, app: application}
	env.clean(t, cfg)
	return env
}

func (e *testEnv) clean(t *testing.T, cfg config.Config) {
	t.Helper()
	conn, err := db.Open(cfg.DB, logger.Discard())
	require.NoError(t, err)
	defer func() {
		if sqlDB, err := conn.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}()

	require.NoError(t, conn.Exec("TRUNCATE contributions, transfers, join_requests, home_members, homes, users").Error)
}

func (e *testEnv) call(t *testing.T, method, path, token string, body interface{}) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, e.server.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func (e *testEnv) login(t *testing.T, username, fullName string) string {
	t.Helper()
	resp := e.call(t, http.MethodPost, "/register", "", map[string]string{
		"username":  username,
		"email":     username + "@example.com",
		"full_name": fullName,
		"password":  e2ePassword,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = e.call(t, http.MethodPost, "/token", "", map[string]string{"username": username, "password": e2ePassword})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var token struct {
		AccessToken string `json:"access_token"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&token))
	return token.AccessToken
}

func decodeMap(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestHouseholdLifecycle(t *testing.T) {
	env := setupE2E(t)
	alice := env.login(t, "alice", "Alice")
	bob := env.login(t, "bob", "Bob")
	carol := env.login(t, "carol", "Carol")

	resp := env.call(t, http.MethodPost, "/create-home", alice, map[string]string{"name": "Maple"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = env.call(t, http.MethodPost, "/request-join-home", bob, map[string]string{"home_name": "Maple"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	requestID := decodeMap(t, resp)["id"].(string)

	resp = env.call(t, http.MethodPost, "/approve-join-request", alice, map[string]string{"request_id": requestID, "action": "approve"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp = env.call(t, http.MethodPost, "/approve-join-request", alice, map[string]string{"request_id": requestID, "action": "approve"})
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	require.Equal(t, http.StatusCreated, env.call(t, http.MethodPost, "/add-contribution", alice, map[string]interface{}{"product_name": "Groceries", "amount": "60.00"}).StatusCode)
	require.Equal(t, http.StatusCreated, env.call(t, http.MethodPost, "/add-contribution", bob, map[string]interface{}{"product_name": "Milk", "amount": "20.00"}).StatusCode)
	require.Equal(t, http.StatusCreated, env.call(t, http.MethodPost, "/transfer", alice, map[string]interface{}{"recipient_username": "bob", "amount": "20.00"}).StatusCode)

	resp = env.call(t, http.MethodGet, "/api/dashboard", bob, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	gap := decodeMap(t, resp)["gap"].(map[string]interface{})
	require.Equal(t, "0.00", gap["user_total"])
	require.Equal(t, "40.00", gap["average"])
	require.Equal(t, "40.00", gap["amount_to_reach"])

	resp = env.call(t, http.MethodGet, "/api/analytics", alice, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	report := decodeMap(t, resp)
	require.Len(t, report["by_product"], 2)
	require.Len(t, report["by_month"], 1)

	resp = env.call(t, http.MethodPost, "/delete-contribution/not-a-uuid", alice, nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	require.Equal(t, http.StatusOK, env.call(t, http.MethodPost, "/leave-home", bob, nil).StatusCode)
	require.Equal(t, http.StatusOK, env.call(t, http.MethodPost, "/leave-home", alice, nil).StatusCode)

	resp = env.call(t, http.MethodPost, "/request-join-home", carol, map[string]string{"home_name": "Maple"})
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestConcurrentTransfersKeepPairs(t *testing.T) {
	env := setupE2E(t)
	alice := env.login(t, "alice", "Alice")
	bob := env.login(t, "bob", "Bob")
	require.Equal(t, http.StatusCreated, env.call(t, http.MethodPost, "/create-home", alice, map[string]string{"name": "Birch"}).StatusCode)
	require.Equal(t, http.StatusOK, env.call(t, http.MethodPost, "/add-member", alice, map[string]string{"username": "bob"}).StatusCode)

	const rounds = 10
	var wg sync.WaitGroup
	statuses := make(chan int, rounds*2)
	for i := 0; i < rounds; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			statuses <- env.call(t, http.MethodPost, "/transfer", alice, map[string]interface{}{"recipient_username": "bob", "amount": "1.00"}).StatusCode
		}()
		go func() {
			defer wg.Done()
			statuses <- env.call(t, http.MethodPost, "/transfer", bob, map[string]interface{}{"recipient_username": "alice", "amount": "1.00"}).StatusCode
		}()
	}
	wg.Wait()
	close(statuses)
	for status := range statuses {
		require.Equal(t, http.StatusCreated, status)
	}

	resp := env.call(t, http.MethodGet, "/api/analytics", alice, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	report := decodeMap(t, resp)
	totals := report["totals"].(map[string]interface{})
	require.Equal(t, "0.00", totals["total"])
	require.EqualValues(t, rounds*4, totals["count"])
	require.Empty(t, report["by_product"])
}
