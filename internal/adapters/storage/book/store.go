package book

import (
	"context"

	"rollbook/internal/domain/attendance"
)

// Store persists one attendance Book per account, saved and loaded as a
// whole document. There is no merge on write: two sessions editing the same
// account race, and the later Save wins.
type Store interface {
	// Load returns the account's book. An account that has never saved one
	// gets an empty book, not an error.
	Load(ctx context.Context, accountID string) (*attendance.Book, error)

	// Save replaces the account's stored book with b.
	Save(ctx context.Context, accountID string, b *attendance.Book) error
}
