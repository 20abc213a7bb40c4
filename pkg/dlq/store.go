package dlq

import (
	"context"

	"github.com/google/uuid"
)

// Filter controls filtering and pagination for dead-letter list queries.
type Filter struct {
	// TenantID filters by tenant. Nil means all tenants.
	TenantID *uuid.UUID
	// Status filters by entry status. Empty means all statuses.
	Status Status
	// Limit is the maximum number of entries to return. Zero means no limit.
	Limit int
	// Offset is the number of entries to skip.
	Offset int
}

// Store defines the persistence contract for dead-letter entries.
// Entry creation happens inside the job store's MoveToDLQ operation so the
// snapshot and the status stamp commit together; this interface covers the
// operator side.
type Store interface {
	// GetEntry retrieves an entry by id. Returns ErrEntryNotFound when absent.
	GetEntry(ctx context.Context, entryID uuid.UUID) (*Entry, error)

	// ListEntries returns entries matching the filter, newest first.
	ListEntries(ctx context.Context, filter Filter) ([]*Entry, error)

	// MarkReprocessing flips an entry to reprocessing and increments its
	// reprocess attempt counter.
	MarkReprocessing(ctx context.Context, entryID uuid.UUID) error

	// CloseEntry stamps an entry resolved or abandoned with operator notes.
	// Closed entries cannot be reopened.
	CloseEntry(ctx context.Context, entryID uuid.UUID, status Status, notes string) error

	// CountEntries returns the number of entries matching the filter.
	CountEntries(ctx context.Context, filter Filter) (int64, error)
}
