package retained

import (
	"sync"
	"unsafe"
)

// a Meta can only be used by one live store.
// owners maps a Meta to the id of the store that owns it.
var (
	owners      = map[*Meta]uint64{}
	lastOwnerID uint64
	ownersMu    sync.Mutex
)

type ownership struct {
	meta *Meta
	id   uint64
}

func claimMeta(m *Meta) (ownership, error) {
	ownersMu.Lock()
	defer ownersMu.Unlock()
	if _, ok := owners[m]; ok {
		return ownership{}, ErrMetaInUse
	}
	lastOwnerID++
	owners[m] = lastOwnerID
	return ownership{meta: m, id: lastOwnerID}, nil
}

// release is a no-op if the meta was already released
// and claimed by another store
func (o ownership) release() {
	ownersMu.Lock()
	if id, ok := owners[o.meta]; ok && id == o.id {
		delete(owners, o.meta)
	}
	ownersMu.Unlock()
}

func metaBytes(m *Meta) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(m)), MetaSize)
}

func overlaps(a, b []byte) bool {
	if len(a) == 0 || len(b) == 0 {
		return false
	}
	a0 := uintptr(unsafe.Pointer(unsafe.SliceData(a)))
	b0 := uintptr(unsafe.Pointer(unsafe.SliceData(b)))
	a1 := a0 + uintptr(len(a))
	b1 := b0 + uintptr(len(b))
	return a0 < b1 && b0 < a1
}

func anyOverlap(regions ...[]byte) bool {
	for i := range regions {
		for j := i + 1; j < len(regions); j++ {
			if overlaps(regions[i], regions[j]) {
				return true
			}
		}
	}
	return false
}
