package events

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/nerrad567/rentwise-core/internal/audit"
	"github.com/nerrad567/rentwise-core/internal/infrastructure/mqtt"
)

// defaultQueueSize bounds events waiting for delivery.
const defaultQueueSize = 256

// auditSource tags audit entries written by the publisher.
const auditSource = "api"

// BrokerPublisher publishes JSON messages. Satisfied by *mqtt.Client.
type BrokerPublisher interface {
	PublishJSON(topic string, v any) error
}

// MetricsWriter counts events. Satisfied by *influxdb.Client.
type MetricsWriter interface {
	WriteEvent(eventType string, tags map[string]string)
}

// Notifier pushes a message to one user's live connections.
type Notifier interface {
	NotifyUser(username, channel string, payload any)
}

// AuditWriter persists audit entries. Satisfied by *audit.SQLiteRepository.
type AuditWriter interface {
	Create(ctx context.Context, entry *audit.Entry) error
}

// PublisherDeps configures a Publisher. Any sink may be nil.
type PublisherDeps struct {
	Broker    BrokerPublisher
	Metrics   MetricsWriter
	Notifier  Notifier
	Audit     AuditWriter
	Logger    *slog.Logger
	QueueSize int
}

// Publisher is a Sink that delivers events asynchronously to MQTT,
// InfluxDB, WebSocket clients and the audit log. Emit never blocks: when
// the queue is full the event is dropped and a warning logged.
type Publisher struct {
	deps   PublisherDeps
	logger *slog.Logger
	queue  chan Event
	topics mqtt.Topics

	mu     sync.RWMutex
	closed bool
}

// NewPublisher creates a Publisher. Call Run to start delivery.
func NewPublisher(deps PublisherDeps) *Publisher {
	size := deps.QueueSize
	if size <= 0 {
		size = defaultQueueSize
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{
		deps:   deps,
		logger: logger,
		queue:  make(chan Event, size),
	}
}

// Emit implements Sink.
func (p *Publisher) Emit(_ context.Context, e Event) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return
	}

	select {
	case p.queue <- e:
	default:
		p.logger.Warn("event queue full, dropping event", "type", e.Type)
	}
}

// Run delivers queued events until ctx is cancelled, then drains what is
// left and returns.
func (p *Publisher) Run(ctx context.Context) {
	for {
		select {
		case e := <-p.queue:
			p.Deliver(ctx, e)
		case <-ctx.Done():
			p.mu.Lock()
			p.closed = true
			p.mu.Unlock()

			// Deliveries outlive the cancelled context.
			drainCtx := context.WithoutCancel(ctx)
			for {
				select {
				case e := <-p.queue:
					p.Deliver(drainCtx, e)
				default:
					return
				}
			}
		}
	}
}

// Deliver sends one event to every configured sink. Sink failures are
// logged and never stop the other sinks.
func (p *Publisher) Deliver(ctx context.Context, e Event) {
	if b := p.deps.Broker; b != nil {
		if err := b.PublishJSON(p.topics.Event(e.Type), e); err != nil {
			p.logger.Warn("publishing event to mqtt", "type", e.Type, "error", err)
		}
		if isRentRequest(e) && e.OwnerUsername != "" {
			if err := b.PublishJSON(p.topics.OwnerNotification(e.OwnerUsername), e); err != nil {
				p.logger.Warn("publishing owner notification", "type", e.Type, "error", err)
			}
		}
	}

	if m := p.deps.Metrics; m != nil {
		m.WriteEvent(e.Type, map[string]string{"role": e.Role})
	}

	if n := p.deps.Notifier; n != nil && isRentRequest(e) && e.OwnerUsername != "" {
		n.NotifyUser(e.OwnerUsername, e.Type, e)
	}

	if a := p.deps.Audit; a != nil {
		if err := a.Create(ctx, auditEntry(e)); err != nil {
			p.logger.Error("writing audit entry", "type", e.Type, "error", err)
		}
	}
}

func isRentRequest(e Event) bool {
	return strings.HasPrefix(e.Type, "rent_request.")
}

// auditEntry maps an event onto the audit trail.
func auditEntry(e Event) *audit.Entry {
	entry := &audit.Entry{
		Action:    e.Type,
		Actor:     e.Actor,
		Source:    auditSource,
		CreatedAt: e.At,
		Details:   map[string]any{},
	}

	switch {
	case isRentRequest(e):
		entry.EntityType = "rent_request"
		entry.EntityID = strconv.FormatInt(e.RequestID, 10)
		entry.Details["propertyId"] = e.PropertyID
		entry.Details["tenantId"] = e.TenantID
	case strings.HasPrefix(e.Type, "property."):
		entry.EntityType = "property"
		entry.EntityID = strconv.FormatInt(e.PropertyID, 10)
	default:
		entry.EntityType = "identity"
		entry.EntityID = e.Actor
	}

	if e.Role != "" {
		entry.Details["role"] = e.Role
	}
	if e.Detail != "" {
		entry.Details["detail"] = e.Detail
	}
	return entry
}
