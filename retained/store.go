package retained

import (
	"reflect"
	"runtime"
	"unsafe"
)

// Store keeps a record of type T in two reset-surviving pages.
// It is not safe for concurrent use: there is one writer and
// mutations of Scratchpad() must not overlap Commit().
type Store[T any] struct {
	p        pair
	recs     [2]*T
	recovery Recovery
}

// New creates a store over pages a and b and their meta, recovering
// the last committed record. def is used when no committed record can
// be recovered.
//
// T must be plain old data: no pointers, strings, slices, maps,
// interfaces, channels or functions, because the checksum is computed
// over the raw bytes of T.
//
// The store owns meta until Close. A store dropped without Close
// releases meta when it is garbage collected.
func New[T any](a, b *T, meta *Meta, def T, opts *Options) (*Store[T], error) {
	if a == nil || b == nil || meta == nil {
		return nil, ErrNilRegion
	}
	if err := checkPlain(reflect.TypeFor[T]()); err != nil {
		return nil, err
	}
	s := &Store[T]{
		recs: [2]*T{a, b},
	}
	rec, err := openPair(&s.p, bytesOf(a), bytesOf(b), bytesOf(&def), meta, opts)
	if err != nil {
		return nil, err
	}
	s.recovery = rec
	s.p.cleanup = runtime.AddCleanup(s, ownership.release, s.p.owner)
	return s, nil
}

// Scratchpad returns the record open for edits.
// Edits are not durable until Commit. The returned pointer changes
// after every Commit.
func (s *Store[T]) Scratchpad() *T {
	return s.recs[s.p.scratch]
}

// Commit atomically makes the scratchpad the committed record.
// The scratchpad after Commit starts as a copy of the committed record.
func (s *Store[T]) Commit() {
	s.p.commit()
}

// Recovery returns what was found when the store was created
func (s *Store[T]) Recovery() Recovery {
	return s.recovery
}

// Close releases ownership of the meta so that another store can use it.
// The pages are not modified. It's safe to call multiple times.
func (s *Store[T]) Close() {
	s.p.close()
}

func bytesOf[T any](v *T) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(v)), unsafe.Sizeof(*v))
}
