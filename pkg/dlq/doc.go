// Package dlq implements the dead-letter queue for jobs that exhausted
// their retry budget.
//
// Entries are immutable snapshots of the failed job taken at the moment of
// escalation. Operators inspect them, re-enqueue them as brand-new jobs
// (Reprocess), or close them out (Resolve/Abandon). Reprocessing never
// resurrects the original job: the failure record stays intact for audit.
package dlq
