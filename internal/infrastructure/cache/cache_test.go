package cache

import (
	"errors"
	"strconv"
	"testing"

	"github.com/alicebob/miniredis/v2"

	"github.com/nerrad567/rentwise-core/internal/infrastructure/config"
)

func miniredisConfig(t *testing.T) (config.RedisConfig, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run() error = %v", err)
	}
	t.Cleanup(mr.Close)

	port, err := strconv.Atoi(mr.Port())
	if err != nil {
		t.Fatalf("parsing miniredis port: %v", err)
	}
	return config.RedisConfig{Enabled: true, Host: mr.Host(), Port: port}, mr
}

func TestConnect_Disabled(t *testing.T) {
	_, err := Connect(t.Context(), config.RedisConfig{})
	if !errors.Is(err, ErrDisabled) {
		t.Errorf("Connect() error = %v, want ErrDisabled", err)
	}
}

func TestConnect_HealthCheck(t *testing.T) {
	cfg, mr := miniredisConfig(t)

	client, err := Connect(t.Context(), cfg)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close() //nolint:errcheck // Test cleanup

	if err := client.HealthCheck(t.Context()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}

	mr.Close()
	if err := client.HealthCheck(t.Context()); err == nil {
		t.Error("HealthCheck() after server stop returned nil")
	}
}

func TestConnect_Unreachable(t *testing.T) {
	cfg, mr := miniredisConfig(t)
	mr.Close()

	if _, err := Connect(t.Context(), cfg); err == nil {
		t.Fatal("Connect() expected error for stopped server")
	}
}

func TestClose_Nil(t *testing.T) {
	var c *Client
	if err := c.Close(); err != nil {
		t.Errorf("Close() on nil client error = %v", err)
	}
}
