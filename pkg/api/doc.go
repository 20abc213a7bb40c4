// Package api exposes the queue over HTTP for operator tooling: enqueueing
// and inspecting jobs, working the dead-letter queue, and managing alert
// thresholds. The router is a chi.Router meant to be mounted into a host
// application's mux; requests are tenant-scoped via the X-Tenant-ID header.
package api
