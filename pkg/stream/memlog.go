package stream

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryLog is an in-process Log with the ID assignment rules of Redis
// Streams.
type MemoryLog struct {
	lk      sync.RWMutex
	streams map[string][]Entry
	now     func() time.Time
}

var _ Log = (*MemoryLog)(nil)

func NewMemoryLog() *MemoryLog {
	return &MemoryLog{streams: make(map[string][]Entry), now: time.Now}
}

func (l *MemoryLog) Append(ctx context.Context, stream string, fields map[string]string) (ID, error) {
	if err := ctx.Err(); err != nil {
		return ID{}, err
	}

	l.lk.Lock()
	defer l.lk.Unlock()

	id := ID{Ms: uint64(l.now().UnixNano() / int64(time.Millisecond))}
	entries := l.streams[stream]
	if n := len(entries); n > 0 {
		if prev := entries[n-1].ID; !prev.Less(id) {
			id = prev.Next()
		}
	} else if id.IsZero() {
		id = id.Next()
	}

	cp := make(map[string]string, len(fields))
	for k, v := range fields {
		cp[k] = v
	}
	l.streams[stream] = append(entries, Entry{ID: id, Fields: cp})
	return id, nil
}

func (l *MemoryLog) ReadRange(ctx context.Context, stream string, after ID, count int64) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.lk.RLock()
	defer l.lk.RUnlock()

	entries := l.streams[stream]
	i := sort.Search(len(entries), func(i int) bool { return after.Less(entries[i].ID) })
	entries = entries[i:]
	if count > 0 && int64(len(entries)) > count {
		entries = entries[:count]
	}
	return append([]Entry(nil), entries...), nil
}

func (l *MemoryLog) ReadLast(ctx context.Context, stream string, count int64) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.lk.RLock()
	defer l.lk.RUnlock()

	if count <= 0 {
		count = 1
	}

	entries := l.streams[stream]
	out := make([]Entry, 0, count)
	for i := len(entries) - 1; i >= 0 && int64(len(out)) < count; i-- {
		out = append(out, entries[i])
	}
	return out, nil
}

// Len returns the number of entries in stream.
func (l *MemoryLog) Len(stream string) int {
	l.lk.RLock()
	defer l.lk.RUnlock()

	return len(l.streams[stream])
}
