// Package cursor persists the last delivered entry ID of each stream.
//
// MemoryStore keeps cursors for the lifetime of the process, so a restarted
// reader replays its streams from the beginning. LevelDBStore and RedisStore
// survive restarts. RedisStore can be shared by several processes reading
// under the same namespace: it implements Locker, and readers hold the
// stream lock from loading a cursor until they have advanced it.
package cursor

import (
	"context"
	"errors"
)

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("cursor store closed")

// Store maps stream names to the ID of the last entry delivered from them.
type Store interface {
	// Get returns the stored cursor; ok is false if there is none.
	Get(ctx context.Context, stream string) (id string, ok bool, err error)
	// Set replaces the cursor of the stream.
	Set(ctx context.Context, stream string, id string) error
	// Delete forgets the cursor of the stream. Deleting a missing cursor is
	// not an error.
	Delete(ctx context.Context, stream string) error
	Close() error
}

// Locker is implemented by stores shared between processes. Lock blocks
// until the stream is held by the caller, or ctx is done; unlock releases it.
type Locker interface {
	Lock(ctx context.Context, stream string) (unlock func(), err error)
}
