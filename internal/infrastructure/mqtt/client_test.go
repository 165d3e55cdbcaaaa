package mqtt

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/nerrad567/rentwise-core/internal/infrastructure/config"
)

func testConfig() config.MQTTConfig {
	return config.MQTTConfig{
		Enabled: true,
		Broker: config.MQTTBrokerConfig{
			Host:     "127.0.0.1",
			Port:     1883,
			ClientID: "rentwise-test",
		},
		QoS: 1,
		Reconnect: config.MQTTReconnectConfig{
			InitialDelay: 1,
			MaxDelay:     5,
		},
	}
}

func TestConnect_Disabled(t *testing.T) {
	cfg := testConfig()
	cfg.Enabled = false

	client, err := Connect(cfg)
	if !errors.Is(err, ErrDisabled) {
		t.Fatalf("Connect() error = %v, want ErrDisabled", err)
	}
	if client != nil {
		t.Error("Connect() returned a client while disabled")
	}
}

func TestBrokerURL(t *testing.T) {
	cfg := testConfig()
	if got := brokerURL(cfg); got != "tcp://127.0.0.1:1883" {
		t.Errorf("brokerURL() = %q, want tcp://127.0.0.1:1883", got)
	}

	cfg.Broker.TLS = true
	cfg.Broker.Port = 8883
	if got := brokerURL(cfg); got != "ssl://127.0.0.1:8883" {
		t.Errorf("brokerURL() = %q, want ssl://127.0.0.1:8883", got)
	}
}

func TestBuildClientOptions(t *testing.T) {
	cfg := testConfig()
	cfg.Auth = config.MQTTAuthConfig{Username: "core", Password: "secret"}

	opts := buildClientOptions(cfg)

	if opts.ClientID != "rentwise-test" {
		t.Errorf("ClientID = %q, want rentwise-test", opts.ClientID)
	}
	if opts.Username != "core" || opts.Password != "secret" {
		t.Errorf("credentials = %q/%q, want core/secret", opts.Username, opts.Password)
	}
	if !opts.AutoReconnect {
		t.Error("AutoReconnect = false, want true")
	}
	if len(opts.Servers) != 1 || opts.Servers[0].String() != "tcp://127.0.0.1:1883" {
		t.Errorf("Servers = %v", opts.Servers)
	}
}

func TestConfigureLWT(t *testing.T) {
	opts := buildClientOptions(testConfig())
	configureLWT(opts, "rentwise-test")

	if !opts.WillEnabled {
		t.Fatal("WillEnabled = false, want true")
	}
	if opts.WillTopic != "rentwise/system/status" {
		t.Errorf("WillTopic = %q", opts.WillTopic)
	}
	if !opts.WillRetained {
		t.Error("WillRetained = false, want true")
	}

	var body map[string]string
	if err := json.Unmarshal(opts.WillPayload, &body); err != nil {
		t.Fatalf("LWT payload is not JSON: %v", err)
	}
	if body["status"] != "offline" || body["reason"] != "unexpected_disconnect" {
		t.Errorf("LWT payload = %v", body)
	}
}

func TestStatusPayload_OmitsEmptyReason(t *testing.T) {
	payload := statusPayload("online", "core-1", "")
	if strings.Contains(payload, "reason") {
		t.Errorf("payload = %s, want no reason field", payload)
	}

	var body map[string]string
	if err := json.Unmarshal([]byte(payload), &body); err != nil {
		t.Fatalf("payload is not JSON: %v", err)
	}
	if body["client_id"] != "core-1" {
		t.Errorf("client_id = %q, want core-1", body["client_id"])
	}
}

func TestPublish_Validation(t *testing.T) {
	c := &Client{cfg: testConfig()}

	tests := []struct {
		name    string
		topic   string
		payload []byte
		qos     byte
		wantErr error
	}{
		{"empty topic", "", []byte("{}"), 1, ErrInvalidTopic},
		{"invalid qos", "rentwise/events/x", []byte("{}"), 3, ErrInvalidQoS},
		{"oversized payload", "rentwise/events/x", make([]byte, maxPayloadSize+1), 1, ErrPublishFailed},
		{"not connected", "rentwise/events/x", []byte("{}"), 1, ErrNotConnected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := c.Publish(tt.topic, tt.payload, tt.qos, false)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Publish() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestPublishJSON_NotConnected(t *testing.T) {
	c := &Client{cfg: testConfig()}

	if err := c.PublishJSON("rentwise/events/x", map[string]string{"a": "b"}); !errors.Is(err, ErrNotConnected) {
		t.Errorf("PublishJSON() error = %v, want ErrNotConnected", err)
	}
	if err := c.PublishJSON("rentwise/events/x", make(chan int)); !errors.Is(err, ErrPublishFailed) {
		t.Errorf("PublishJSON(chan) error = %v, want ErrPublishFailed", err)
	}
}

func TestHealthCheck_Unconnected(t *testing.T) {
	c := &Client{cfg: testConfig()}
	if err := c.HealthCheck(t.Context()); !errors.Is(err, ErrNotConnected) {
		t.Errorf("HealthCheck() error = %v, want ErrNotConnected", err)
	}
}

func TestClose_Nil(t *testing.T) {
	var c *Client
	if err := c.Close(); err != nil {
		t.Errorf("Close() on nil client error = %v", err)
	}
}

func TestTopicBuilders(t *testing.T) {
	topics := Topics{}
	tests := []struct {
		got  string
		want string
	}{
		{topics.Event("rent_request.created"), "rentwise/events/rent_request.created"},
		{topics.OwnerNotification("alice"), "rentwise/owners/alice/notifications"},
		{topics.SystemStatus(), "rentwise/system/status"},
		{topics.AllEvents(), "rentwise/events/#"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("topic = %q, want %q", tt.got, tt.want)
		}
	}
}
