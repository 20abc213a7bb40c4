// Package alerts implements threshold-based monitoring of queue health.
//
// Operators configure per-tenant (or global) thresholds over metrics such
// as failure rate, dead-letter growth, and queue depth. The Monitor
// evaluates every enabled threshold against a trailing window and fans
// exceeded thresholds out to notification channels (structured log, email,
// signed webhooks, Redis pub/sub). Evaluation is observation-only and
// isolated per config: one tenant's failure never blocks the others.
package alerts
