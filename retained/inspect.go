package retained

import (
	"fmt"
	"unsafe"
)

// PageReport describes one page as found in memory
type PageReport struct {
	Page     string `json:"page"`
	SeqNum   uint16 `json:"seq"`
	Stored   uint32 `json:"stored"`
	Computed uint32 `json:"computed"`
	Valid    bool   `json:"valid"`
	Data     []byte `json:"-"`
}

// Report is what Inspect finds. It is computed without
// modifying memory.
type Report struct {
	Policy     string     `json:"policy"`
	RecordSize int        `json:"record_size"`
	A          PageReport `json:"a"`
	B          PageReport `json:"b"`
	// what recovery would do
	Outcome string `json:"outcome"`
	// page recovery would keep, empty if it would apply the default
	Current string `json:"current,omitempty"`
}

func reportPage(pg *Page, id PageID) PageReport {
	return PageReport{
		Page:     id.String(),
		SeqNum:   pg.SeqNum(),
		Stored:   pg.StoredChecksum(),
		Computed: pg.CalculateChecksum(),
		Valid:    pg.IsValid(),
		Data:     pg.Bytes(),
	}
}

// Inspect reports the state of pages a and b
func Inspect(meta *Meta, a, b []byte, policy ChecksumPolicy) *Report {
	pa := NewPage(a, &meta.SeqNumA, &meta.ChecksumA, policy)
	pb := NewPage(b, &meta.SeqNumB, &meta.ChecksumB, policy)
	r := &Report{
		Policy:     policy.String(),
		RecordSize: len(a),
		A:          reportPage(&pa, PageA),
		B:          reportPage(&pb, PageB),
	}
	d := decide(r.A.Valid, r.B.Valid, r.A.SeqNum, r.B.SeqNum)
	r.Outcome = d.outcome.String()
	if !d.useDefault {
		r.Current = d.keep.String()
	}
	return r
}

// InspectRegion reports the state of a region laid out by NewInRegion
func InspectRegion(region []byte) (*Report, error) {
	if len(region) < regionHeaderSize {
		return nil, fmt.Errorf("%w: need at least %d bytes, got %d", ErrRegionTooSmall, regionHeaderSize, len(region))
	}
	if uintptr(unsafe.Pointer(&region[0]))%minRegionAlign != 0 {
		return nil, ErrMisaligned
	}
	h := headerOf(region)
	if string(h.Magic[:]) != regionMagic {
		return nil, fmt.Errorf("%w: %q", ErrBadMagic, h.Magic[:])
	}
	if h.Version != regionVersion {
		return nil, fmt.Errorf("%w: version %d", ErrLayoutMismatch, h.Version)
	}
	policy := ChecksumPolicy(h.Policy)
	if !policy.valid() || h.RecordSize == 0 || h.Align < minRegionAlign {
		return nil, fmt.Errorf("%w: policy %d record size %d align %d", ErrLayoutMismatch, h.Policy, h.RecordSize, h.Align)
	}
	l := layoutFor(int(h.RecordSize), int(h.Align))
	if err := checkRegion(region, l); err != nil {
		return nil, err
	}
	meta := (*Meta)(unsafe.Pointer(&region[l.metaOff]))
	a := region[l.aOff : l.aOff+l.recordSize]
	b := region[l.bOff : l.bOff+l.recordSize]
	return Inspect(meta, a, b, policy), nil
}
