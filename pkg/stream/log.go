package stream

import "context"

// Entry is a raw record of a stream.
type Entry struct {
	ID     ID
	Fields map[string]string
}

// Log is an append-only, server-ordered log of entries grouped in named
// streams. A stream that does not exist behaves as an empty one.
type Log interface {
	// Append adds an entry to the stream and returns the ID assigned to it.
	Append(ctx context.Context, stream string, fields map[string]string) (ID, error)

	// ReadRange returns the entries with an ID strictly greater than after,
	// in ascending order. The zero ID reads from the beginning. A count <= 0
	// returns every available entry.
	ReadRange(ctx context.Context, stream string, after ID, count int64) ([]Entry, error)

	// ReadLast returns up to count of the most recent entries, newest first.
	ReadLast(ctx context.Context, stream string, count int64) ([]Entry, error)
}
