// Package monitoring provides Prometheus metrics for the activity manager.
//
// Metric groups:
//   - HTTP: request counts, durations
//   - Scheduler: queue depths, admissions, yield requests
//   - Activities: created/live totals
//   - Providers: broadcast counts by provider and transition kind
//   - WebSocket: subscriber connection gauge
//
// A JSON snapshot of the headline numbers is kept alongside the Prometheus
// registry for the introspection API.
package monitoring
