// Package tenant carries tenant scoping through request contexts.
//
// Jobs, dead-letter entries, and alert thresholds all carry an optional
// tenant id; this package provides the context plumbing and an HTTP
// middleware that reads the X-Tenant-ID header so operator API handlers can
// scope their queries without threading ids through every call site.
package tenant
