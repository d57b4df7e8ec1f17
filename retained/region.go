package retained

import (
	"fmt"
	"reflect"
	"unsafe"
)

// A region is a single byte slice holding everything a store needs:
//
//	header (16 bytes) | Meta | page A | page B
//
// Pages are aligned to max(8, alignment of the record).

const (
	regionMagic      = "RTA1"
	regionVersion    = 1
	regionHeaderSize = 16
	minRegionAlign   = 8
)

type regionHeader struct {
	Magic      [4]byte
	Version    uint16
	Policy     uint16
	RecordSize uint32
	Align      uint32
}

type regionLayout struct {
	recordSize int
	align      int
	metaOff    int
	aOff       int
	bOff       int
	size       int
}

func alignUp(n, align int) int {
	return (n + align - 1) / align * align
}

func layoutFor(recordSize, align int) regionLayout {
	align = max(align, minRegionAlign)
	l := regionLayout{
		recordSize: recordSize,
		align:      align,
		metaOff:    regionHeaderSize,
	}
	l.aOff = alignUp(l.metaOff+MetaSize, align)
	l.bOff = alignUp(l.aOff+recordSize, align)
	l.size = l.bOff + recordSize
	return l
}

func layoutOf[T any]() regionLayout {
	var v T
	return layoutFor(int(unsafe.Sizeof(v)), int(unsafe.Alignof(v)))
}

// RegionSize returns how many bytes NewInRegion needs for a record of type T
func RegionSize[T any]() int {
	return layoutOf[T]().size
}

func checkRegion(region []byte, l regionLayout) error {
	if len(region) < l.size {
		return fmt.Errorf("%w: need %d bytes, got %d", ErrRegionTooSmall, l.size, len(region))
	}
	p := uintptr(unsafe.Pointer(&region[0]))
	if p%uintptr(l.align) != 0 {
		return fmt.Errorf("%w: region at %#x, need alignment %d", ErrMisaligned, p, l.align)
	}
	return nil
}

func headerOf(region []byte) *regionHeader {
	return (*regionHeader)(unsafe.Pointer(&region[0]))
}

// prepareHeader writes a header to a fresh region or checks
// that an existing one matches l and policy
func prepareHeader(h *regionHeader, l regionLayout, policy ChecksumPolicy) error {
	if h.Magic == [4]byte{} {
		h.Version = regionVersion
		h.Policy = uint16(policy)
		h.RecordSize = uint32(l.recordSize)
		h.Align = uint32(l.align)
		// magic last: a reset before this leaves the region fresh
		copy(h.Magic[:], regionMagic)
		return nil
	}
	if string(h.Magic[:]) != regionMagic {
		return fmt.Errorf("%w: %q", ErrBadMagic, h.Magic[:])
	}
	if h.Version != regionVersion {
		return fmt.Errorf("%w: version %d, expected %d", ErrLayoutMismatch, h.Version, regionVersion)
	}
	if int(h.RecordSize) != l.recordSize || int(h.Align) != l.align {
		return fmt.Errorf("%w: record size %d align %d, expected %d align %d", ErrLayoutMismatch, h.RecordSize, h.Align, l.recordSize, l.align)
	}
	if ChecksumPolicy(h.Policy) != policy {
		return fmt.Errorf("%w: checksum %s, expected %s", ErrLayoutMismatch, ChecksumPolicy(h.Policy), policy)
	}
	return nil
}

// NewInRegion creates a store whose header, meta and pages live in region.
// region must be at least RegionSize[T]() bytes and 8-byte aligned (memory
// returned by mmap or make([]byte) is). A zeroed region is initialized.
func NewInRegion[T any](region []byte, def T, opts *Options) (*Store[T], error) {
	if err := checkPlain(reflect.TypeFor[T]()); err != nil {
		return nil, err
	}
	policy := opts.policy()
	if !policy.valid() {
		return nil, fmt.Errorf("%w: %d", ErrBadPolicy, uint16(policy))
	}
	l := layoutOf[T]()
	if err := checkRegion(region, l); err != nil {
		return nil, err
	}
	if err := prepareHeader(headerOf(region), l, policy); err != nil {
		return nil, err
	}
	meta := (*Meta)(unsafe.Pointer(&region[l.metaOff]))
	a := (*T)(unsafe.Pointer(&region[l.aOff]))
	b := (*T)(unsafe.Pointer(&region[l.bOff]))
	return New(a, b, meta, def, opts)
}
