package stream

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v7"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/SSRS-Innovation/redis-communication/pkg/codec"
	"github.com/SSRS-Innovation/redis-communication/pkg/cursor"
	"github.com/SSRS-Innovation/redis-communication/pkg/logging"
)

func newManager(t *testing.T) (*Manager, *MemoryLog) {
	t.Helper()
	l := NewMemoryLog()
	m := NewManager(logging.S(), l, nil)
	t.Cleanup(func() { _ = m.Close() })
	return m, l
}

func values(msgs []Message) []interface{} {
	out := make([]interface{}, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.Value)
	}
	return out
}

func TestReadUnreadOrdering(t *testing.T) {
	ctx := context.Background()
	m, _ := newManager(t)

	var expected []interface{}
	for i := 0; i < 25; i++ {
		_, err := m.Add(ctx, "orders", map[string]interface{}{"n": i})
		require.NoError(t, err)
		expected = append(expected, map[string]interface{}{"n": float64(i)})
	}

	msgs, err := m.ReadUnread(ctx, "orders", 0)
	require.NoError(t, err)
	require.Equal(t, expected, values(msgs))

	for i := 1; i < len(msgs); i++ {
		require.True(t, msgs[i-1].ID.Less(msgs[i].ID))
	}
}

func TestReadUnreadTwice(t *testing.T) {
	ctx := context.Background()
	m, _ := newManager(t)

	_, err := m.Add(ctx, "s", "hello")
	require.NoError(t, err)

	msgs, err := m.ReadUnread(ctx, "s", 0)
	require.NoError(t, err)
	require.Len(t, msgs, 1)

	msgs, err = m.ReadUnread(ctx, "s", 0)
	require.NoError(t, err)
	require.Empty(t, msgs)

	// new entries are picked up after the cursor.
	_, err = m.Add(ctx, "s", "world")
	require.NoError(t, err)

	msgs, err = m.ReadUnread(ctx, "s", 0)
	require.NoError(t, err)
	require.Equal(t, []interface{}{"world"}, values(msgs))
}

func TestReadUnreadBounded(t *testing.T) {
	ctx := context.Background()
	m, _ := newManager(t)

	for _, v := range []string{"a", "b", "c"} {
		_, err := m.Add(ctx, "s", v)
		require.NoError(t, err)
	}

	msgs, err := m.ReadUnread(ctx, "s", 2)
	require.NoError(t, err)
	require.Equal(t, []interface{}{"a", "b"}, values(msgs))

	msgs, err = m.ReadUnread(ctx, "s", 0)
	require.NoError(t, err)
	require.Equal(t, []interface{}{"c"}, values(msgs))
}

func TestReadUnreadPoisonedEntry(t *testing.T) {
	ctx := context.Background()
	m, l := newManager(t)

	_, err := m.Add(ctx, "s", 1)
	require.NoError(t, err)
	_, err = l.Append(ctx, "s", map[string]string{
		codec.FieldMessage:       `{"truncated":`,
		codec.FieldTimestampSec:  "1700000000",
		codec.FieldTimestampUsec: "0",
	})
	require.NoError(t, err)
	_, err = m.Add(ctx, "s", 3)
	require.NoError(t, err)

	msgs, err := m.ReadUnread(ctx, "s", 0)
	require.NoError(t, err)
	require.Len(t, msgs, 3)

	require.False(t, msgs[0].Failed())
	require.Equal(t, float64(1), msgs[0].Value)

	require.True(t, msgs[1].Failed())
	var derr *codec.DeserializationError
	require.True(t, errors.As(msgs[1].Err, &derr))
	require.Nil(t, msgs[1].Value)
	require.Equal(t, codec.Timestamp{Sec: 1700000000}, msgs[1].Timestamp)

	require.False(t, msgs[2].Failed())
	require.Equal(t, float64(3), msgs[2].Value)

	msgs, err = m.ReadUnread(ctx, "s", 0)
	require.NoError(t, err)
	require.Empty(t, msgs)
}

func TestReadUnreadEmptyStream(t *testing.T) {
	ctx := context.Background()
	m, _ := newManager(t)

	msgs, err := m.ReadUnread(ctx, "missing", 0)
	require.NoError(t, err)
	require.Empty(t, msgs)

	_, ok, err := m.Cursor(ctx, "missing")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestReadLatest(t *testing.T) {
	ctx := context.Background()
	m, _ := newManager(t)

	_, ok, err := m.ReadLatest(ctx, "s")
	require.NoError(t, err)
	require.False(t, ok)

	_, err = m.Add(ctx, "s", "first")
	require.NoError(t, err)
	id, err := m.Add(ctx, "s", "second")
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		msg, ok, err := m.ReadLatest(ctx, "s")
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, id, msg.ID)
		require.Equal(t, "second", msg.Value)
		require.False(t, msg.Timestamp.IsZero())
	}

	// peeking does not consume.
	msgs, err := m.ReadUnread(ctx, "s", 0)
	require.NoError(t, err)
	require.Equal(t, []interface{}{"first", "second"}, values(msgs))
}

func TestAddUnserializable(t *testing.T) {
	ctx := context.Background()
	m, l := newManager(t)

	_, err := m.Add(ctx, "s", map[string]interface{}{"f": func() {}})
	var serr *codec.SerializationError
	require.True(t, errors.As(err, &serr))
	require.Zero(t, l.Len("s"))
}

func TestCursorAndReset(t *testing.T) {
	ctx := context.Background()
	m, _ := newManager(t)

	_, err := m.Add(ctx, "s", "a")
	require.NoError(t, err)
	id, err := m.Add(ctx, "s", "b")
	require.NoError(t, err)

	_, err = m.ReadUnread(ctx, "s", 0)
	require.NoError(t, err)

	cur, ok, err := m.Cursor(ctx, "s")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, id, cur)

	require.NoError(t, m.ResetCursor(ctx, "s"))
	msgs, err := m.ReadUnread(ctx, "s", 0)
	require.NoError(t, err)
	require.Equal(t, []interface{}{"a", "b"}, values(msgs))
}

func TestSharedCursorStore(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLog()
	store := cursor.NewMemoryStore()

	first := NewManager(logging.S(), l, store)
	_, err := first.Add(ctx, "s", "a")
	require.NoError(t, err)
	_, err = first.ReadUnread(ctx, "s", 0)
	require.NoError(t, err)

	// a second manager over the same store resumes after "a".
	second := NewManager(logging.S(), l, store)
	_, err = second.Add(ctx, "s", "b")
	require.NoError(t, err)
	msgs, err := second.ReadUnread(ctx, "s", 0)
	require.NoError(t, err)
	require.Equal(t, []interface{}{"b"}, values(msgs))

	// a fresh in-memory manager replays everything.
	third := NewManager(logging.S(), l, nil)
	msgs, err = third.ReadUnread(ctx, "s", 0)
	require.NoError(t, err)
	require.Equal(t, []interface{}{"a", "b"}, values(msgs))
}

// faultyLog fails ReadRange while broken is set.
type faultyLog struct {
	*MemoryLog
	broken bool
}

var errUnreachable = errors.New("log unreachable")

func (f *faultyLog) ReadRange(ctx context.Context, stream string, after ID, count int64) ([]Entry, error) {
	if f.broken {
		return nil, errUnreachable
	}
	return f.MemoryLog.ReadRange(ctx, stream, after, count)
}

func TestReadUnreadLogFailureKeepsCursor(t *testing.T) {
	ctx := context.Background()
	l := &faultyLog{MemoryLog: NewMemoryLog()}
	m := NewManager(logging.S(), l, nil)

	_, err := m.Add(ctx, "s", "a")
	require.NoError(t, err)

	l.broken = true
	_, err = m.ReadUnread(ctx, "s", 0)
	require.ErrorIs(t, err, errUnreachable)

	l.broken = false
	msgs, err := m.ReadUnread(ctx, "s", 0)
	require.NoError(t, err)
	require.Equal(t, []interface{}{"a"}, values(msgs))
}

// failingStore refuses to persist cursors.
type failingStore struct {
	*cursor.MemoryStore
}

func (failingStore) Set(context.Context, string, string) error {
	return errors.New("disk full")
}

func TestReadUnreadCursorStoreFailure(t *testing.T) {
	ctx := context.Background()
	m := NewManager(logging.S(), NewMemoryLog(), failingStore{cursor.NewMemoryStore()})

	_, err := m.Add(ctx, "s", "a")
	require.NoError(t, err)

	msgs, err := m.ReadUnread(ctx, "s", 0)
	require.Error(t, err)
	require.Nil(t, msgs)
}

// reorderingLog returns entries at or before the requested position, as an
// inclusive range read would.
type reorderingLog struct {
	*MemoryLog
}

func (r reorderingLog) ReadRange(ctx context.Context, stream string, after ID, count int64) ([]Entry, error) {
	all, err := r.MemoryLog.ReadRange(ctx, stream, ID{}, 0)
	if err != nil {
		return nil, err
	}
	var out []Entry
	for _, e := range all {
		if !e.ID.Less(after) {
			out = append(out, e)
		}
	}
	return out, nil
}

func TestReadUnreadSkipsEntriesAtCursor(t *testing.T) {
	ctx := context.Background()
	m := NewManager(logging.S(), reorderingLog{NewMemoryLog()}, nil)

	_, err := m.Add(ctx, "s", "a")
	require.NoError(t, err)
	msgs, err := m.ReadUnread(ctx, "s", 0)
	require.NoError(t, err)
	require.Len(t, msgs, 1)

	msgs, err = m.ReadUnread(ctx, "s", 0)
	require.NoError(t, err)
	require.Empty(t, msgs)
}

func TestConcurrentReadUnreadSameStream(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	m, _ := newManager(t)
	const total = 10

	var (
		lk   sync.Mutex
		seen []string
		done = make(chan struct{})
	)

	consume := func() error {
		for {
			msgs, err := m.ReadUnread(ctx, "race", 3)
			if err != nil {
				return err
			}
			lk.Lock()
			for _, msg := range msgs {
				seen = append(seen, msg.Value.(string))
			}
			n := len(seen)
			lk.Unlock()

			if n >= total {
				return nil
			}
			select {
			case <-done:
				if len(msgs) == 0 {
					return nil
				}
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
		}
	}

	var eg errgroup.Group
	eg.Go(func() error {
		defer close(done)
		for i := 0; i < total; i++ {
			if _, err := m.Add(ctx, "race", fmt.Sprintf("m%02d", i)); err != nil {
				return err
			}
		}
		return nil
	})
	eg.Go(consume)
	eg.Go(consume)
	require.NoError(t, eg.Wait())

	require.Len(t, seen, total)
	sort.Strings(seen)
	for i, v := range seen {
		require.Equal(t, fmt.Sprintf("m%02d", i), v)
	}
}

func TestConcurrentReadUnreadDifferentStreams(t *testing.T) {
	ctx := context.Background()
	m, _ := newManager(t)

	streams := []string{"a", "b", "c", "d"}
	for _, s := range streams {
		for i := 0; i < 50; i++ {
			_, err := m.Add(ctx, s, i)
			require.NoError(t, err)
		}
	}

	var eg errgroup.Group
	for _, s := range streams {
		s := s
		eg.Go(func() error {
			var got int
			for {
				msgs, err := m.ReadUnread(ctx, s, 7)
				if err != nil {
					return err
				}
				if len(msgs) == 0 {
					break
				}
				for _, msg := range msgs {
					if msg.Value != float64(got) {
						return fmt.Errorf("stream %s: expected %d, got %v", s, got, msg.Value)
					}
					got++
				}
			}
			if got != 50 {
				return fmt.Errorf("stream %s: read %d entries", s, got)
			}
			return nil
		})
	}
	require.NoError(t, eg.Wait())
}

func TestStreamLocksAreReleased(t *testing.T) {
	ctx := context.Background()
	m, _ := newManager(t)

	var eg errgroup.Group
	for i := 0; i < 20; i++ {
		name := fmt.Sprintf("short-lived-%d", i%5)
		eg.Go(func() error {
			if _, err := m.Add(ctx, name, 1); err != nil {
				return err
			}
			_, err := m.ReadUnread(ctx, name, 0)
			return err
		})
	}
	require.NoError(t, eg.Wait())
	require.NoError(t, m.ResetCursor(ctx, "short-lived-0"))

	m.lk.Lock()
	defer m.lk.Unlock()
	require.Empty(t, m.locks)
}

func TestManagersSharingRedisCursors(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	mr := miniredis.RunT(t)
	l := NewMemoryLog()

	newShared := func() *Manager {
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { _ = client.Close() })
		return NewManager(logging.S(), l, cursor.NewRedisStore(client, "shared"))
	}
	readers := []*Manager{newShared(), newShared()}

	for round := 0; round < 5; round++ {
		name := fmt.Sprintf("round-%d", round)
		const total = 10

		var (
			lk   sync.Mutex
			seen = make(map[ID]int)
			done = make(chan struct{})
		)

		consume := func(m *Manager) func() error {
			return func() error {
				for {
					msgs, err := m.ReadUnread(ctx, name, 0)
					if err != nil {
						return err
					}
					lk.Lock()
					for _, msg := range msgs {
						seen[msg.ID]++
					}
					lk.Unlock()

					select {
					case <-done:
						if len(msgs) == 0 {
							return nil
						}
					case <-ctx.Done():
						return ctx.Err()
					default:
					}
				}
			}
		}

		var eg errgroup.Group
		eg.Go(func() error {
			defer close(done)
			for i := 0; i < total; i++ {
				if _, err := l.Append(ctx, name, map[string]string{
					codec.FieldMessage:       fmt.Sprint(i),
					codec.FieldTimestampSec:  "1",
					codec.FieldTimestampUsec: "0",
				}); err != nil {
					return err
				}
			}
			return nil
		})
		for _, m := range readers {
			eg.Go(consume(m))
		}
		require.NoError(t, eg.Wait())

		require.Len(t, seen, total, "round %d", round)
		for id, n := range seen {
			require.Equal(t, 1, n, "round %d: entry %s delivered %d times", round, id, n)
		}
	}

	// the shared locks are gone once every reader is done.
	for _, k := range mr.Keys() {
		require.NotContains(t, k, ":lock:")
	}
}
