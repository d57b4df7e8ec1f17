package retained

import "errors"

var (
	ErrNilRegion      = errors.New("retained: nil region or meta")
	ErrEmptyRecord    = errors.New("retained: record has zero size")
	ErrSizeMismatch   = errors.New("retained: pages and default differ in size")
	ErrNotPlain       = errors.New("retained: record type is not plain old data")
	ErrOverlap        = errors.New("retained: regions overlap")
	ErrMetaInUse      = errors.New("retained: meta is already owned by another store")
	ErrSequenceTie    = errors.New("retained: both pages valid with equal sequence numbers")
	ErrBadPolicy      = errors.New("retained: unknown checksum policy")
	ErrRegionTooSmall = errors.New("retained: region too small")
	ErrMisaligned     = errors.New("retained: region is misaligned")
	ErrBadMagic       = errors.New("retained: region has unknown magic")
	ErrLayoutMismatch = errors.New("retained: region layout doesn't match record")
)
