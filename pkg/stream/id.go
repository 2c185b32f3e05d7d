package stream

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrInvalidID is returned when parsing a malformed entry ID.
var ErrInvalidID = errors.New("invalid stream entry id")

// ID identifies an entry in a stream, in the <unix_ms>-<sequence> form
// assigned by Redis. IDs of one stream are strictly increasing in append
// order. The zero ID sorts before every entry and stands for "beginning of
// stream".
type ID struct {
	Ms  uint64
	Seq uint64
}

// ParseID parses an ID in the <ms>-<seq> form. A bare <ms> is accepted, with
// sequence zero.
func ParseID(s string) (ID, error) {
	msPart, seqPart := s, "0"
	if i := strings.IndexByte(s, '-'); i >= 0 {
		msPart, seqPart = s[:i], s[i+1:]
	}

	ms, err := strconv.ParseUint(msPart, 10, 64)
	if err != nil {
		return ID{}, fmt.Errorf("%w: %q", ErrInvalidID, s)
	}
	seq, err := strconv.ParseUint(seqPart, 10, 64)
	if err != nil {
		return ID{}, fmt.Errorf("%w: %q", ErrInvalidID, s)
	}
	return ID{Ms: ms, Seq: seq}, nil
}

// MustParseID is like ParseID but panics on error.
func MustParseID(s string) ID {
	id, err := ParseID(s)
	if err != nil {
		panic(err)
	}
	return id
}

func (id ID) String() string {
	return strconv.FormatUint(id.Ms, 10) + "-" + strconv.FormatUint(id.Seq, 10)
}

// IsZero reports whether id is the beginning-of-stream sentinel.
func (id ID) IsZero() bool {
	return id.Ms == 0 && id.Seq == 0
}

// Less reports whether id sorts before other.
func (id ID) Less(other ID) bool {
	if id.Ms != other.Ms {
		return id.Ms < other.Ms
	}
	return id.Seq < other.Seq
}

// Next returns the smallest ID strictly greater than id. Range reads use it
// as an inclusive lower bound to express "after id".
func (id ID) Next() ID {
	if id.Seq == math.MaxUint64 {
		return ID{Ms: id.Ms + 1}
	}
	return ID{Ms: id.Ms, Seq: id.Seq + 1}
}
