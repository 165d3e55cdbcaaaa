package influxdb_test

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/nerrad567/rentwise-core/internal/infrastructure/config"
	"github.com/nerrad567/rentwise-core/internal/infrastructure/influxdb"
)

// fakeInflux answers /ping and records line-protocol bodies posted to /api/v2/write.
type fakeInflux struct {
	mu     sync.Mutex
	writes []string
}

func (f *fakeInflux) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/ping":
		w.WriteHeader(http.StatusNoContent)
	case r.URL.Path == "/api/v2/write":
		body, _ := io.ReadAll(r.Body) //nolint:errcheck // test server
		f.mu.Lock()
		f.writes = append(f.writes, string(body))
		f.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (f *fakeInflux) body() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return strings.Join(f.writes, "\n")
}

func testConfig(url string) config.InfluxDBConfig {
	return config.InfluxDBConfig{
		Enabled:       true,
		URL:           url,
		Token:         "rentwise-dev-token",
		Org:           "rentwise",
		Bucket:        "events",
		BatchSize:     100,
		FlushInterval: 1,
	}
}

func newTestClient(t *testing.T) (*influxdb.Client, *fakeInflux) {
	t.Helper()
	fake := &fakeInflux{}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	client, err := influxdb.Connect(t.Context(), testConfig(srv.URL))
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	t.Cleanup(func() { client.Close() }) //nolint:errcheck // Test cleanup
	return client, fake
}

func TestConnect_Disabled(t *testing.T) {
	cfg := testConfig("http://127.0.0.1:8086")
	cfg.Enabled = false

	_, err := influxdb.Connect(t.Context(), cfg)
	if !errors.Is(err, influxdb.ErrDisabled) {
		t.Errorf("Connect() error = %v, want ErrDisabled", err)
	}
}

func TestConnect_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := influxdb.Connect(t.Context(), testConfig(url))
	if !errors.Is(err, influxdb.ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}

func TestConnect_HealthCheck(t *testing.T) {
	client, _ := newTestClient(t)

	if !client.IsConnected() {
		t.Fatal("IsConnected() = false after Connect()")
	}
	if err := client.HealthCheck(t.Context()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}
}

func TestWriteEvent(t *testing.T) {
	client, fake := newTestClient(t)

	client.WriteEvent("auth.login", map[string]string{"role": "OWNER", "empty": ""})
	client.Flush()

	body := fake.body()
	if !strings.Contains(body, "rentwise_events") {
		t.Fatalf("write body = %q, want rentwise_events measurement", body)
	}
	if !strings.Contains(body, "event=auth.login") {
		t.Errorf("write body = %q, want event tag", body)
	}
	if !strings.Contains(body, "role=OWNER") {
		t.Errorf("write body = %q, want role tag", body)
	}
	if strings.Contains(body, "empty=") {
		t.Errorf("write body = %q, empty tag should be dropped", body)
	}
	if !strings.Contains(body, "count=1i") {
		t.Errorf("write body = %q, want count=1i field", body)
	}
}

func TestClose_StopsWrites(t *testing.T) {
	client, _ := newTestClient(t)

	if err := client.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if client.IsConnected() {
		t.Error("IsConnected() = true after Close()")
	}
	if err := client.HealthCheck(t.Context()); !errors.Is(err, influxdb.ErrNotConnected) {
		t.Errorf("HealthCheck() after Close error = %v, want ErrNotConnected", err)
	}

	// Must not panic.
	client.WriteEvent("auth.login", nil)
	client.Flush()
}

// TestClose_Idempotent closes an already-closed client, as a deferred
// Close after an explicit one does.
func TestClose_Idempotent(t *testing.T) {
	client, _ := newTestClient(t)

	for i := range 3 {
		if err := client.Close(); err != nil {
			t.Fatalf("Close() call %d error = %v", i+1, err)
		}
	}
	if client.IsConnected() {
		t.Error("IsConnected() = true after Close()")
	}
}

func TestClose_Nil(t *testing.T) {
	var client *influxdb.Client
	if err := client.Close(); err != nil {
		t.Errorf("Close() on nil client error = %v", err)
	}
}
