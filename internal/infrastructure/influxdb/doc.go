// Package influxdb records Rentwise activity counters in InfluxDB v2.
//
// Every authentication outcome and rent-request transition becomes a
// point in the rentwise_events measurement, tagged by event type and role,
// so dashboards can chart logins, failed logins and request throughput.
//
// Writes are non-blocking and batched according to batch_size and
// flush_interval; failures are reported through SetOnError.
//
//	client, err := influxdb.Connect(ctx, cfg.InfluxDB)
//	if errors.Is(err, influxdb.ErrDisabled) {
//	    // run without metrics
//	}
//	client.WriteEvent("auth.login", map[string]string{"role": "USER"})
package influxdb
