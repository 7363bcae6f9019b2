//nolint:errcheck // unchecked errors are acceptable in test files
package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/voxline/core/internal/cache"
	"github.com/voxline/core/internal/config"
	"github.com/voxline/core/internal/db"
	"github.com/voxline/core/internal/handlers"
	"github.com/voxline/core/internal/queue"
	"github.com/voxline/core/internal/service"
)

const testSigningSecret = "integration-test-secret"

// Seeded tenants with known balances. Every test starts from this state.
const (
	tenantFunded = "11111111-1111-1111-1111-111111111111" // $10,000.00
	tenantLow    = "22222222-2222-2222-2222-222222222222" // $1.00, no debt allowed
	tenantDebt   = "33333333-3333-3333-3333-333333333333" // $0.00, $10.00 debt limit
)

// TestServer wraps the HTTP test server and database for integration tests.
type TestServer struct {
	Server   *httptest.Server
	Database *db.DB
	Cache    *cache.Cache
	Config   *config.Config
	logger   *slog.Logger
	t        *testing.T
}

// SetupTest creates a new test server with a clean database state.
func SetupTest(t *testing.T) *TestServer {
	t.Helper()

	t.Setenv("WEBHOOK_SIGNING_SECRET", testSigningSecret)

	cfg, err := config.Load()
	require.NoError(t, err, "failed to load config")

	// Fast polling so queue-driven tests converge quickly.
	cfg.Webhook.PollInterval = 50 * time.Millisecond
	cfg.Webhook.BackoffBase = 100 * time.Millisecond

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	database, err := db.Connect(context.Background(), &cfg.Database, logger)
	require.NoError(t, err, "failed to connect to database")
	require.NoError(t, database.Migrate(logger), "failed to run migrations")

	mr := miniredis.RunT(t)
	dedupeCache := cache.NewWithClient(
		redis.NewClient(&redis.Options{Addr: mr.Addr()}),
		cfg.Webhook.DedupeTTL,
		logger,
	)

	resetTestData(t, database)

	router := handlers.NewRouter(database, dedupeCache, cfg, logger)
	server := httptest.NewServer(router)

	return &TestServer{
		Server:   server,
		Database: database,
		Cache:    dedupeCache,
		Config:   cfg,
		logger:   logger,
		t:        t,
	}
}

// Close shuts down the test server and database connection.
func (ts *TestServer) Close() {
	ts.Server.Close()
	_ = ts.Database.Close()
}

// URL returns the full URL for a given path.
func (ts *TestServer) URL(path string) string {
	return ts.Server.URL + path
}

// StartWorker runs the webhook queue against the test database for the
// duration of the test.
func (ts *TestServer) StartWorker(t *testing.T) {
	t.Helper()
	ts.StartWorkerWith(t, ts.newEventProcessor())
}

// StartWorkerWith runs the queue with the given processor, so tests can wrap
// the real one and inject failures.
func (ts *TestServer) StartWorkerWith(t *testing.T, processor queue.Processor) {
	t.Helper()

	worker := queue.New(ts.Database, processor, ts.Config.Webhook, ts.logger)
	worker.Start()
	t.Cleanup(worker.Stop)
}

func (ts *TestServer) newEventProcessor() *service.EventProcessor {
	notifier := service.NewLogNotifier(ts.logger)
	ledger := service.NewLedgerService(ts.Database, notifier, ts.logger)
	return service.NewEventProcessor(ts.Database, ledger, notifier,
		ts.Config.App.CallRateCentsPerMinute, ts.logger)
}

func resetTestData(t *testing.T, database *db.DB) {
	t.Helper()

	_, err := database.ExecContext(context.Background(), `
		TRUNCATE TABLE transactions CASCADE;
		TRUNCATE TABLE appointments CASCADE;
		TRUNCATE TABLE audit_entries CASCADE;
		TRUNCATE TABLE webhook_events CASCADE;
		TRUNCATE TABLE processed_event_markers CASCADE;
		TRUNCATE TABLE idempotency_keys CASCADE;
		DELETE FROM tenants;
		INSERT INTO tenants (id, name, wallet_balance_cents, debt_limit_cents) VALUES
			('`+tenantFunded+`', 'acme-dental', 1000000, 0),
			('`+tenantLow+`', 'corner-barber', 100, 0),
			('`+tenantDebt+`', 'late-night-diner', 0, 1000);
	`)
	require.NoError(t, err, "failed to reset test data")
}

func (ts *TestServer) postJSON(t *testing.T, path string, body map[string]any, headers map[string]string) *http.Response {
	t.Helper()

	jsonBody, _ := json.Marshal(body)

	req, err := http.NewRequest(http.MethodPost, ts.URL(path), bytes.NewReader(jsonBody))
	require.NoError(t, err)

	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)

	return resp
}

// Book sends a POST request to create a booking.
func (ts *TestServer) Book(t *testing.T, tenantID string, scheduledAt time.Time, name, phone string) *http.Response {
	t.Helper()

	return ts.postJSON(t, "/api/v1/bookings", map[string]any{
		"tenant_id":        tenantID,
		"scheduled_at":     scheduledAt.Format(time.RFC3339),
		"duration_minutes": 30,
		"service_type":     "consultation",
		"contact":          map[string]string{"name": name, "phone": phone},
	}, nil)
}

// Cancel sends a POST request to cancel a booking.
func (ts *TestServer) Cancel(t *testing.T, tenantID, bookingID string) *http.Response {
	t.Helper()

	return ts.postJSON(t, "/api/v1/bookings/"+bookingID+"/cancel", map[string]any{
		"tenant_id": tenantID,
	}, nil)
}

// Reschedule sends a POST request to move a booking to a new slot.
func (ts *TestServer) Reschedule(t *testing.T, tenantID, bookingID string, newTime time.Time) *http.Response {
	t.Helper()

	return ts.postJSON(t, "/api/v1/bookings/"+bookingID+"/reschedule", map[string]any{
		"tenant_id":    tenantID,
		"scheduled_at": newTime.Format(time.RFC3339),
	}, nil)
}

// AuthorizeAmount sends a POST request for a read-only balance check.
func (ts *TestServer) AuthorizeAmount(t *testing.T, tenantID string, amountCents int64) *http.Response {
	t.Helper()

	return ts.postJSON(t, "/api/v1/authorizations", map[string]any{
		"tenant_id":    tenantID,
		"amount_cents": amountCents,
	}, nil)
}

// Debit sends a POST request to debit a tenant wallet.
func (ts *TestServer) Debit(t *testing.T, tenantID string, amountCents int64, idempotencyKey string) *http.Response {
	t.Helper()

	headers := map[string]string{}
	if idempotencyKey != "" {
		headers["Idempotency-Key"] = idempotencyKey
	}
	return ts.postJSON(t, "/api/v1/wallet/debits", map[string]any{
		"tenant_id":    tenantID,
		"amount_cents": amountCents,
		"description":  "test debit",
	}, headers)
}

// Credit sends a POST request to credit a tenant wallet.
func (ts *TestServer) Credit(t *testing.T, tenantID string, amountCents int64, idempotencyKey string) *http.Response {
	t.Helper()

	headers := map[string]string{}
	if idempotencyKey != "" {
		headers["Idempotency-Key"] = idempotencyKey
	}
	return ts.postJSON(t, "/api/v1/wallet/credits", map[string]any{
		"tenant_id":    tenantID,
		"amount_cents": amountCents,
		"description":  "test credit",
	}, headers)
}

// SendWebhook signs and delivers a provider event envelope.
func (ts *TestServer) SendWebhook(t *testing.T, provider, eventID, eventType string, data map[string]any) *http.Response {
	t.Helper()

	body, _ := json.Marshal(map[string]any{
		"id":         eventID,
		"type":       eventType,
		"created_at": time.Now().UTC().Format(time.RFC3339),
		"data":       data,
	})

	req, err := http.NewRequest(http.MethodPost, ts.URL("/api/v1/webhooks/"+provider), bytes.NewReader(body))
	require.NoError(t, err)

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Webhook-Signature", service.SignBody(testSigningSecret, body))

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)

	return resp
}

// BalanceCents fetches the current wallet balance for a tenant.
func (ts *TestServer) BalanceCents(t *testing.T, tenantID string) int64 {
	t.Helper()

	resp, err := http.Get(ts.URL("/api/v1/tenants/" + tenantID + "/balance"))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return int64(body["balance_cents"].(float64))
}

func decodeResponse(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()

	defer resp.Body.Close()
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

// futureSlot returns a normalized slot comfortably in the future, offset so
// concurrent tests in the package never collide on a slot.
func futureSlot(hours int) time.Time {
	return time.Now().UTC().Add(time.Duration(hours) * time.Hour).Truncate(time.Minute)
}
