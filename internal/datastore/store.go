package datastore

import "github.com/lepinkainen/brickmass/internal/parts"

// Store defines the interface for exporting parts to local SQLite storage
type Store interface {
	// Connect establishes a connection to the data store
	Connect() error

	// ReplaceParts swaps the contents of the parts table for pieces
	ReplaceParts(pieces []parts.Part) error

	// Close closes the connection to the data store
	Close() error
}

var _ Store = (*SQLiteStore)(nil)
