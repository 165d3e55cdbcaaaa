package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// EventsMeasurement holds one point per domain event.
const EventsMeasurement = "rentwise_events"

// WriteEvent records a single occurrence of eventType.
// Tags must be low cardinality: role and outcome, never usernames.
func (c *Client) WriteEvent(eventType string, tags map[string]string) {
	merged := make(map[string]string, len(tags)+1)
	for k, v := range tags {
		if v != "" {
			merged[k] = v
		}
	}
	merged["event"] = eventType

	c.WritePoint(EventsMeasurement, merged, map[string]any{"count": 1})
}

// WritePoint writes a point stamped with the current time.
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]any) {
	c.WritePointWithTime(measurement, tags, fields, time.Now())
}

// WritePointWithTime writes a point at an explicit timestamp.
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]any, ts time.Time) {
	if c == nil {
		return
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.connected {
		return
	}
	c.writeAPI.WritePoint(write.NewPoint(measurement, tags, fields, ts))
}
