// Package mqtt publishes Rentwise domain events to an MQTT broker.
//
// The client connects with auto-reconnect and registers a Last Will so
// subscribers see when Core goes offline unexpectedly. Events are published
// under rentwise/events/{type}; per-owner notifications go to
// rentwise/owners/{username}/notifications.
//
// Rentwise never subscribes: the broker is an outbound fan-out for
// dashboards and downstream consumers such as mail senders.
//
// TLS is required for production deployments (cfg.Broker.TLS=true).
package mqtt
