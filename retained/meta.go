package retained

import (
	"fmt"
	"unsafe"
)

// Meta holds sequence numbers and checksums of both pages.
// It must live in memory that survives resets and must not be shared
// between stores.
type Meta struct {
	SeqNumA   uint16
	SeqNumB   uint16
	ChecksumA uint32
	ChecksumB uint32
}

// MetaSize is the size of Meta in bytes
const MetaSize = int(unsafe.Sizeof(Meta{}))

const metaAlign = int(unsafe.Alignof(Meta{}))

// MetaFromBytes returns a Meta that aliases the first MetaSize bytes of b.
// Writes to the Meta are writes to b.
func MetaFromBytes(b []byte) (*Meta, error) {
	if len(b) < MetaSize {
		return nil, fmt.Errorf("%w: meta needs %d bytes, got %d", ErrRegionTooSmall, MetaSize, len(b))
	}
	p := unsafe.Pointer(&b[0])
	if uintptr(p)%uintptr(metaAlign) != 0 {
		return nil, fmt.Errorf("%w: meta at %p", ErrMisaligned, p)
	}
	return (*Meta)(p), nil
}

func (m *Meta) page(id PageID) (*uint16, *uint32) {
	if id == PageA {
		return &m.SeqNumA, &m.ChecksumA
	}
	return &m.SeqNumB, &m.ChecksumB
}
