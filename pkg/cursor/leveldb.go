package cursor

import (
	"context"
	"errors"
	"fmt"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/storage"
)

const leveldbPrefix = "cursor:"

// LevelDBStore is a Store persisted in a local LevelDB database.
type LevelDBStore struct {
	db *leveldb.DB

	// owned is the file storage opened by OpenLevelDBStore; leveldb does
	// not close the storage it is given.
	owned storage.Storage
}

var _ Store = (*LevelDBStore)(nil)

// OpenLevelDBStore opens, or creates, the database at path.
func OpenLevelDBStore(path string) (*LevelDBStore, error) {
	s, err := storage.OpenFile(path, false)
	if err != nil {
		return nil, fmt.Errorf("failed to open cursor database at %s: %w", path, err)
	}
	l, err := NewLevelDBStore(s)
	if err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("failed to open cursor database at %s: %w", path, err)
	}
	l.owned = s
	return l, nil
}

// NewLevelDBStore opens a store over an arbitrary leveldb storage, such as
// storage.NewMemStorage(). The storage stays owned by the caller.
func NewLevelDBStore(s storage.Storage) (*LevelDBStore, error) {
	db, err := leveldb.Open(s, nil)
	if err != nil {
		return nil, err
	}
	return &LevelDBStore{db: db}, nil
}

func (l *LevelDBStore) Get(_ context.Context, stream string) (string, bool, error) {
	v, err := l.db.Get(leveldbKey(stream), nil)
	switch {
	case errors.Is(err, leveldb.ErrNotFound):
		return "", false, nil
	case errors.Is(err, leveldb.ErrClosed):
		return "", false, ErrClosed
	case err != nil:
		return "", false, err
	}
	return string(v), true, nil
}

func (l *LevelDBStore) Set(_ context.Context, stream string, id string) error {
	err := l.db.Put(leveldbKey(stream), []byte(id), nil)
	if errors.Is(err, leveldb.ErrClosed) {
		return ErrClosed
	}
	return err
}

func (l *LevelDBStore) Delete(_ context.Context, stream string) error {
	err := l.db.Delete(leveldbKey(stream), nil)
	if errors.Is(err, leveldb.ErrClosed) {
		return ErrClosed
	}
	return err
}

func (l *LevelDBStore) Close() error {
	err := l.db.Close()
	if l.owned != nil {
		if serr := l.owned.Close(); err == nil && !errors.Is(serr, storage.ErrClosed) {
			err = serr
		}
	}
	return err
}

func leveldbKey(stream string) []byte {
	return []byte(leveldbPrefix + stream)
}
