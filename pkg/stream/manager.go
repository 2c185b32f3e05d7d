package stream

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/SSRS-Innovation/redis-communication/pkg/codec"
	"github.com/SSRS-Innovation/redis-communication/pkg/cursor"
)

// Manager reads streams on behalf of a single consumer, tracking a cursor per
// stream.
//
// All methods are safe for concurrent use. ReadUnread calls for the same
// stream are serialized; calls for different streams run in parallel. When
// the cursor store is a cursor.Locker, the serialization extends to every
// Manager sharing that store.
type Manager struct {
	log     Log
	cursors cursor.Store
	lg      *zap.SugaredLogger

	lk    sync.Mutex
	locks map[string]*streamLock
}

// streamLock is dropped from Manager.locks once nobody holds or waits for it.
type streamLock struct {
	sync.Mutex
	refs int
}

// NewManager returns a Manager reading from l. If cursors is nil, cursors
// are kept in memory and the manager starts from the beginning of every
// stream.
func NewManager(lg *zap.SugaredLogger, l Log, cursors cursor.Store) *Manager {
	if cursors == nil {
		cursors = cursor.NewMemoryStore()
	}
	return &Manager{
		log:     l,
		cursors: cursors,
		lg:      lg,
		locks:   make(map[string]*streamLock),
	}
}

// Add encodes v, stamps it with the local time, and appends it to stream.
// A *codec.SerializationError is returned without touching the log.
func (m *Manager) Add(ctx context.Context, stream string, v interface{}) (ID, error) {
	fields, err := codec.EncodeFields(codec.Now(), v)
	if err != nil {
		return ID{}, err
	}

	id, err := m.log.Append(ctx, stream, fields)
	if err != nil {
		return ID{}, err
	}

	m.lg.Debugw("appended message to stream", "stream", stream, "id", id)
	return id, nil
}

// ReadLatest returns the newest entry of stream. ok is false when the stream
// is empty or does not exist. The cursor is neither read nor moved.
func (m *Manager) ReadLatest(ctx context.Context, stream string) (msg Message, ok bool, err error) {
	entries, err := m.log.ReadLast(ctx, stream, 1)
	if err != nil {
		return Message{}, false, err
	}
	if len(entries) == 0 {
		return Message{}, false, nil
	}

	msg = decodeEntry(entries[0])
	if msg.Failed() {
		m.lg.Warnw("failed to decode latest stream entry", "stream", stream, "id", msg.ID, "error", msg.Err)
	}
	return msg, true, nil
}

// ReadUnread returns, in append order, the entries of stream added after the
// last one this manager delivered, and moves the cursor past them.
// maxMessages caps the batch size; zero or less returns everything available.
//
// Entries that cannot be decoded are returned with Err set and still move the
// cursor. An empty result means there is nothing new. On error the cursor is
// left where it was, so the call can be retried.
func (m *Manager) ReadUnread(ctx context.Context, stream string, maxMessages int) ([]Message, error) {
	unlock, err := m.lock(ctx, stream)
	if err != nil {
		return nil, err
	}
	defer unlock()

	after, err := m.cursor(ctx, stream)
	if err != nil {
		return nil, err
	}

	entries, err := m.log.ReadRange(ctx, stream, after, int64(maxMessages))
	if err != nil {
		return nil, err
	}

	log := m.lg.With("stream", stream, "after", after)

	msgs := make([]Message, 0, len(entries))
	last := after
	for _, e := range entries {
		if !last.Less(e.ID) {
			// the log returned something at or before the cursor.
			log.Warnw("skipping out of order stream entry", "id", e.ID, "last", last)
			continue
		}
		last = e.ID

		msg := decodeEntry(e)
		if msg.Failed() {
			log.Warnw("failed to decode stream entry", "id", e.ID, "error", msg.Err)
		}
		msgs = append(msgs, msg)
	}

	if len(msgs) == 0 {
		return nil, nil
	}

	if err := m.cursors.Set(ctx, stream, last.String()); err != nil {
		return nil, fmt.Errorf("failed to advance cursor of stream %s to %s: %w", stream, last, err)
	}

	log.Debugw("delivered unread stream entries", "count", len(msgs), "cursor", last)
	return msgs, nil
}

// Cursor returns the ID of the last entry delivered from stream. ok is false
// if nothing has been delivered yet.
func (m *Manager) Cursor(ctx context.Context, stream string) (id ID, ok bool, err error) {
	id, err = m.cursor(ctx, stream)
	return id, err == nil && !id.IsZero(), err
}

// ResetCursor forgets the cursor of stream; the next ReadUnread starts over
// from the beginning.
func (m *Manager) ResetCursor(ctx context.Context, stream string) error {
	unlock, err := m.lock(ctx, stream)
	if err != nil {
		return err
	}
	defer unlock()

	return m.cursors.Delete(ctx, stream)
}

// Close releases the cursor store.
func (m *Manager) Close() error {
	return m.cursors.Close()
}

func (m *Manager) cursor(ctx context.Context, stream string) (ID, error) {
	s, ok, err := m.cursors.Get(ctx, stream)
	if err != nil {
		return ID{}, fmt.Errorf("failed to load cursor of stream %s: %w", stream, err)
	}
	if !ok {
		return ID{}, nil
	}
	id, err := ParseID(s)
	if err != nil {
		return ID{}, fmt.Errorf("corrupt cursor of stream %s: %w", stream, err)
	}
	return id, nil
}

// lock serializes the readers of stream, in this process and, through a
// cursor.Locker, across processes.
func (m *Manager) lock(ctx context.Context, stream string) (unlock func(), err error) {
	m.lk.Lock()
	lk, ok := m.locks[stream]
	if !ok {
		lk = new(streamLock)
		m.locks[stream] = lk
	}
	lk.refs++
	m.lk.Unlock()

	lk.Lock()
	release := func() {
		lk.Unlock()

		m.lk.Lock()
		if lk.refs--; lk.refs == 0 {
			delete(m.locks, stream)
		}
		m.lk.Unlock()
	}

	locker, ok := m.cursors.(cursor.Locker)
	if !ok {
		return release, nil
	}
	shared, err := locker.Lock(ctx, stream)
	if err != nil {
		release()
		return nil, fmt.Errorf("failed to lock cursor of stream %s: %w", stream, err)
	}
	return func() {
		shared()
		release()
	}, nil
}
