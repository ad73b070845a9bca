package outbox

import (
	"context"

	domain "rollbook/internal/domain/outbox"
)

// Store defines the interface for outbox entry persistence.
type Store interface {
	// Save persists an outbox entry to the database.
	// PRE: entity has been validated
	// POST: Entity is persisted (insert or update)
	Save(ctx context.Context, e domain.Entry) error

	// GetByDedupKey retrieves the entry carrying the given dedup key.
	// PRE: key is non-empty
	// POST: Returns the entry or an error if not found
	GetByDedupKey(ctx context.Context, key string) (domain.Entry, error)

	// ListPending returns entries that need to be processed (pending or retrying).
	// PRE: limit > 0
	// POST: Returns up to limit entries ordered by created_at
	ListPending(ctx context.Context, limit int) ([]domain.Entry, error)
}
