// Package logger builds configured slog.Logger instances for the queue core
// and its hosting application.
//
// The factory supports JSON and text output, static attributes, and context
// extractors that inject request-scoped values into every record:
//
//	log := logger.New(
//	    logger.WithProduction("jobqueue"),
//	    logger.WithContextExtractors(tenant.LoggerExtractor()),
//	)
//	logger.SetAsDefault(log)
//
// With the tenant extractor registered, any log call made with a
// tenant-scoped context automatically carries a tenant_id attribute.
// Shared attr helpers (logger.Error, logger.JobID, logger.TenantID) keep
// attribute keys consistent across packages.
package logger
