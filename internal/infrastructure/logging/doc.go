// Package logging provides structured logging using uber/zap.
//
// Two modes are offered:
//   - Production: JSON output for machine parsing
//   - Development: Colored console output for human readability
//
// Internal-inconsistency warnings carry the activity id, queue name, and
// operation as structured fields so self-healing events can be traced.
//
// Example Usage:
//
//	logger := logging.NewDefault()
//	logger.Info("Manager enabled", zap.String("mask", "external"))
//	logger.Warn("Activity not on queue", zap.Uint64("activity", id))
package logging
