package retained

import "runtime"

// Buffer is like Store but over raw byte slices of equal length.
type Buffer struct {
	p        pair
	recs     [2][]byte
	recovery Recovery
}

// NewBuffer creates a store over byte pages a and b.
// len(a), len(b) and len(def) must be equal and non-zero.
// Like New, it owns meta until Close or until it's garbage collected.
func NewBuffer(a, b []byte, meta *Meta, def []byte, opts *Options) (*Buffer, error) {
	if a == nil || b == nil || meta == nil {
		return nil, ErrNilRegion
	}
	buf := &Buffer{
		recs: [2][]byte{a, b},
	}
	rec, err := openPair(&buf.p, a, b, def, meta, opts)
	if err != nil {
		return nil, err
	}
	buf.recovery = rec
	buf.p.cleanup = runtime.AddCleanup(buf, ownership.release, buf.p.owner)
	return buf, nil
}

// Scratchpad returns the bytes open for edits
func (b *Buffer) Scratchpad() []byte {
	return b.recs[b.p.scratch]
}

func (b *Buffer) Commit() {
	b.p.commit()
}

func (b *Buffer) Recovery() Recovery {
	return b.recovery
}

func (b *Buffer) Close() {
	b.p.close()
}
