package retained

import "math"

// PageID identifies one of the two pages
type PageID uint8

const (
	PageA PageID = iota
	PageB
)

func (id PageID) String() string {
	if id == PageA {
		return "A"
	}
	return "B"
}

func (id PageID) other() PageID {
	return 1 - id
}

// Page binds a record region to its sequence number and checksum.
// All three must survive resets. Page never allocates and never owns
// the memory it points to.
type Page struct {
	data     []byte
	seqNum   *uint16
	checksum *uint32
	policy   ChecksumPolicy
}

// NewPage creates a page over data, seqNum and checksum
func NewPage(data []byte, seqNum *uint16, checksum *uint32, policy ChecksumPolicy) Page {
	panicIf(seqNum == nil || checksum == nil, "seqNum and checksum must not be nil")
	return Page{
		data:     data,
		seqNum:   seqNum,
		checksum: checksum,
		policy:   policy,
	}
}

// Bytes returns the record region. It aliases the page memory.
func (p *Page) Bytes() []byte {
	return p.data
}

func (p *Page) SeqNum() uint16 {
	return *p.seqNum
}

func (p *Page) StoredChecksum() uint32 {
	return *p.checksum
}

// CalculateChecksum computes the checksum over current bytes and sequence number
func (p *Page) CalculateChecksum() uint32 {
	return p.policy.Sum(p.data, *p.seqNum)
}

// Init overwrites the record with def and sets sequence number to 1.
// It doesn't write the checksum.
func (p *Page) Init(def []byte) {
	panicIf(len(def) != len(p.data), "default has %d bytes, page has %d", len(def), len(p.data))
	copy(p.data, def)
	*p.seqNum = 1
}

// ClearChecksum invalidates the page by complementing the stored checksum
func (p *Page) ClearChecksum() {
	*p.checksum = ^*p.checksum
}

// IsValid returns true if the stored checksum matches the record
func (p *Page) IsValid() bool {
	return p.CalculateChecksum() == *p.checksum
}

// WriteChecksum stores a checksum of the current record, making the page valid
func (p *Page) WriteChecksum() {
	*p.checksum = p.CalculateChecksum()
}

// CopyFrom copies record and checksum of other to p.
// The sequence number becomes other's + 1. 0 is skipped when it wraps.
func (p *Page) CopyFrom(other *Page) {
	if p.seqNum == other.seqNum {
		// same page
		return
	}
	copy(p.data, other.data)
	*p.seqNum = nextSeqNum(*other.seqNum)
	*p.checksum = *other.checksum
}

func nextSeqNum(n uint16) uint16 {
	// zero seqNum is invalid
	if n == math.MaxUint16 {
		return 1
	}
	return n + 1
}

// newerSeqNum returns the page whose sequence number is more recent.
// ok is false if they are equal.
func newerSeqNum(seqA, seqB uint16) (id PageID, ok bool) {
	switch {
	case seqA == seqB:
		return PageA, false
	case seqA == math.MaxUint16 && seqB == 1:
		// B wrapped past A
		return PageB, true
	case seqB == math.MaxUint16 && seqA == 1:
		return PageA, true
	case seqA > seqB:
		return PageA, true
	}
	return PageB, true
}
