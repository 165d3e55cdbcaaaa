// Package events carries Rentwise domain events from the services that
// produce them to the sinks that fan them out.
//
// Producers (the authentication gateway and the rental state machine) only
// see the Sink interface. The Publisher in this package delivers each event
// to MQTT, InfluxDB, connected WebSocket clients and the audit log.
package events

import (
	"context"
	"sync"
	"time"
)

// Event types.
const (
	TypeLogin           = "auth.login"
	TypeLoginFailed     = "auth.login_failed"
	TypeRefreshIssued   = "auth.refresh_issued"
	TypeRenewed         = "auth.renewed"
	TypeReAuthenticated = "auth.reauthenticated"
	TypeFederatedLogin  = "auth.federated_login"
	TypeUserRegistered  = "auth.user_registered"
	TypeAdminRegistered = "auth.admin_registered"

	TypeRentRequestCreated  = "rent_request.created"
	TypeRentRequestAccepted = "rent_request.accepted"
	TypeRentRequestRejected = "rent_request.rejected"

	TypePropertyVerificationToggled = "property.verification_toggled"
)

// Event is a single domain occurrence. Zero-valued fields are omitted on the wire.
type Event struct {
	Type          string    `json:"type"`
	Actor         string    `json:"actor,omitempty"`
	Role          string    `json:"role,omitempty"`
	PropertyID    int64     `json:"propertyId,omitempty"`
	RequestID     int64     `json:"requestId,omitempty"`
	OwnerUsername string    `json:"ownerUsername,omitempty"`
	TenantID      int64     `json:"tenantId,omitempty"`
	Detail        string    `json:"detail,omitempty"`
	At            time.Time `json:"at"`
}

// Sink receives domain events. Emit must not block the caller for long
// and never fails the operation that produced the event.
type Sink interface {
	Emit(ctx context.Context, e Event)
}

// Discard drops every event.
type Discard struct{}

// Emit implements Sink.
func (Discard) Emit(context.Context, Event) {}

// Recorder keeps events in memory. It is safe for concurrent use.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// Emit implements Sink.
func (r *Recorder) Emit(_ context.Context, e Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

// Events returns a copy of everything recorded so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Types returns the recorded event types in order.
func (r *Recorder) Types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}
