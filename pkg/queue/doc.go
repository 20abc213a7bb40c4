// Package queue implements the core of a multi-tenant background job queue
// with at-least-once execution, retry scheduling, and dead-letter escalation.
//
// The package is organised around three main components:
//
//   - Enqueuer: validates and persists new jobs in pending state
//   - Worker:   claims eligible jobs and dispatches them to registered Handlers
//   - Janitor:  releases claims abandoned by crashed workers
//
// Components interact only through small repository interfaces
// (EnqueuerRepository, WorkerRepository, JobRepository, AdminRepository), so
// the business logic stays decoupled from persistence. The module ships two
// implementations: storage/postgres for production and storage/memory for
// tests and local development.
//
// # Execution model
//
//  1. Jobs are immutable once persisted except for their status fields;
//     every transition is also recorded as an append-only JobLogEntry.
//  2. ClaimJob is atomic. Concurrent workers never receive the same job and
//     never block on each other's in-flight claims.
//  3. Selection is priority-first; jobs of equal priority run in
//     scheduled_for order.
//  4. A failing job is rescheduled with a backoff delay until its retry
//     budget is exhausted, then snapshotted into the dead-letter queue.
//
// # Usage
//
// Enqueue a job:
//
//	enqueuer, err := queue.NewEnqueuer(repo)
//	if err != nil {
//	    return err
//	}
//
//	jobID, err := enqueuer.Enqueue(ctx, "generate_report", "monthly cost report",
//	    reportPayload{TenantID: tenantID, Month: "2026-08"},
//	    queue.WithPriority(queue.PriorityHigh),
//	    queue.WithMaxRetries(5),
//	)
//
// Process jobs:
//
//	worker, err := queue.NewWorker(repo,
//	    queue.WithPollInterval(2*time.Second),
//	    queue.WithMaxConcurrentJobs(8),
//	)
//	if err != nil {
//	    return err
//	}
//
//	err = worker.RegisterHandler(queue.NewJobHandler("generate_report",
//	    func(ctx context.Context, p reportPayload) (json.RawMessage, error) {
//	        // handlers may report progress through the context
//	        _ = queue.ProgressFromContext(ctx).ReportProgress(ctx,
//	            queue.LogLevelInfo, "rendering", nil)
//	        return render(ctx, p)
//	    }))
//	if err != nil {
//	    return err
//	}
//
//	if err := worker.Start(ctx); err != nil {
//	    return err
//	}
//	defer worker.Stop()
//
// Worker.Run and Janitor.Run return errgroup-compatible closures for
// processes that supervise several loops together.
package queue
