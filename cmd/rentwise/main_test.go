package main

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/nerrad567/rentwise-core/internal/infrastructure/config"
)

const testJWTSecret = "test-secret-for-development-only-0123456789"

// writeConfig writes a config with every integration disabled and points
// RENTWISE_CONFIG at it.
func writeConfig(t *testing.T, dbPath string, port int) {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "test-config.yaml")

	configContent := `
database:
  path: "` + dbPath + `"
  wal_mode: true
  busy_timeout: 5

mqtt:
  enabled: false

influxdb:
  enabled: false

redis:
  enabled: false

logging:
  level: error
  format: text
  output: stdout

api:
  host: "127.0.0.1"
  port: ` + strconv.Itoa(port) + `

security:
  jwt:
    secret: "` + testJWTSecret + `"
    access_token_ttl: 15
    refresh_token_ttl: 10080
`
	if err := os.WriteFile(configPath, []byte(configContent), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	t.Setenv("RENTWISE_CONFIG", configPath)
}

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("finding a free port: %v", err)
	}
	port := l.Addr().(*net.TCPAddr).Port
	l.Close() //nolint:errcheck // Port probe
	return port
}

// TestRun_InvalidConfig verifies run fails with invalid config path.
func TestRun_InvalidConfig(t *testing.T) {
	t.Setenv("RENTWISE_CONFIG", "/nonexistent/path/config.yaml")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := run(ctx); err == nil {
		t.Fatal("run() should fail with invalid config path")
	}
}

// TestRun_MissingDatabasePath verifies run fails when database path is empty.
func TestRun_MissingDatabasePath(t *testing.T) {
	writeConfig(t, "", 8080)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := run(ctx); err == nil {
		t.Fatal("run() should fail with empty database path")
	}
}

// TestRun_StartupAndShutdown boots with every integration disabled and
// stops when the context ends.
func TestRun_StartupAndShutdown(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	writeConfig(t, dbPath, freePort(t))

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	if err := run(ctx); err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if _, err := os.Stat(dbPath); err != nil {
		t.Errorf("database file not created: %v", err)
	}
}

// TestGetConfigPath_Default verifies default config path.
func TestGetConfigPath_Default(t *testing.T) {
	t.Setenv("RENTWISE_CONFIG", "")

	if path := getConfigPath(); path != defaultConfigPath {
		t.Errorf("getConfigPath() = %q, want %q", path, defaultConfigPath)
	}
}

// TestGetConfigPath_EnvOverride verifies environment variable override.
func TestGetConfigPath_EnvOverride(t *testing.T) {
	expected := "/custom/path/config.yaml"
	t.Setenv("RENTWISE_CONFIG", expected)

	if path := getConfigPath(); path != expected {
		t.Errorf("getConfigPath() = %q, want %q", path, expected)
	}
}

func TestLoadEnvFile(t *testing.T) {
	if err := loadEnvFile(filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Errorf("loadEnvFile(missing) error = %v, want nil", err)
	}

	const key = "RENTWISE_MAIN_TEST_ENV"
	t.Cleanup(func() { os.Unsetenv(key) }) //nolint:errcheck // Test cleanup

	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte(key+"=from-dotenv\n"), 0600); err != nil {
		t.Fatalf("writing env file: %v", err)
	}
	if err := loadEnvFile(path); err != nil {
		t.Fatalf("loadEnvFile() error = %v", err)
	}
	if got := os.Getenv(key); got != "from-dotenv" {
		t.Errorf("%s = %q, want from-dotenv", key, got)
	}
}

func TestWithHubDefaults(t *testing.T) {
	got := withHubDefaults(config.WebSocketConfig{PingInterval: 5})
	if got.PingInterval != 5 || got.PongTimeout != 10 || got.MaxMessageSize != 4096 {
		t.Errorf("withHubDefaults() = %+v", got)
	}
}

// TestIntegrations_Disabled verifies disabled integrations hand out nil
// interfaces rather than typed nil pointers.
func TestIntegrations_Disabled(t *testing.T) {
	in := &integrations{}
	if in.broker() != nil {
		t.Error("broker() != nil with MQTT disabled")
	}
	if in.metrics() != nil {
		t.Error("metrics() != nil with InfluxDB disabled")
	}
	if in.tickets() != nil {
		t.Error("tickets() != nil with Redis disabled")
	}
}
