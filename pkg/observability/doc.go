// Package observability provides logging, metrics, health checks, and
// graceful shutdown for the switchboard server.
//
// The package exposes:
//   - Logger: structured JSON logging with request-scoped fields
//   - Metrics: Prometheus metrics for HTTP dispatch, storage, and caches
//   - HealthChecker: liveness and readiness probes with dependency checks
//   - ShutdownManager: signal-driven graceful shutdown with timeouts
package observability
