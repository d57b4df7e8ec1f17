package retained

import (
	"errors"
	"math"
	"math/rand"
	"runtime"
	"testing"
	"time"
	"unsafe"

	"github.com/alecthomas/assert"
	"github.com/davecgh/go-spew/spew"
)

type settings struct {
	Volume     int32
	Brightness uint8
	Flags      [3]uint8
	Counter    uint64
}

var defaultSettings = settings{
	Volume:     5,
	Brightness: 80,
	Counter:    1,
}

// retainedMem is what would be declared in reset-surviving memory
type retainedMem struct {
	a, b settings
	meta Meta
}

func (m *retainedMem) open(t *testing.T, opts *Options) *Store[settings] {
	t.Helper()
	s, err := New(&m.a, &m.b, &m.meta, defaultSettings, opts)
	assert.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

// reopen simulates a reset: the store is discarded and a new one
// is created over the same memory
func (m *retainedMem) reopen(t *testing.T, s *Store[settings], opts *Options) *Store[settings] {
	t.Helper()
	s.Close()
	return m.open(t, opts)
}

func (m *retainedMem) dump() string {
	return spew.Sdump(m.a, m.b, m.meta)
}

func committedSeq[T any](s *Store[T]) uint16 {
	return s.p.pages[s.p.scratch.other()].SeqNum()
}

func assertOneValid[T any](t *testing.T, s *Store[T], mem *retainedMem) {
	t.Helper()
	assert.Equal(t, 1, s.p.validPages(), "pages:\n%s", mem.dump())
	assert.True(t, s.p.pages[s.p.scratch.other()].IsValid(), "saved page must be the valid one")
}

// setPage writes v to page id with a valid checksum
func setPage(mem *retainedMem, id PageID, v settings, seq uint16) {
	rec := &mem.a
	if id == PageB {
		rec = &mem.b
	}
	*rec = v
	seqNum, sum := mem.meta.page(id)
	pg := NewPage(bytesOf(rec), seqNum, sum, ByteSum)
	*seqNum = seq
	pg.WriteChecksum()
}

func TestFreshStoreUsesDefault(t *testing.T) {
	mem := &retainedMem{}
	s := mem.open(t, nil)
	assert.Equal(t, defaultSettings, *s.Scratchpad())
	rec := s.Recovery()
	assert.Equal(t, NoneValid, rec.Outcome)
	assert.True(t, rec.Defaulted)
	assert.Equal(t, PageA, rec.Current)
	assert.Equal(t, uint16(1), rec.SeqNum)
	assertOneValid(t, s, mem)
	// scratchpad is B, holding a copy of A
	assert.Equal(t, &mem.b, s.Scratchpad())
	assert.Equal(t, defaultSettings, mem.a)
}

func TestRoundTrip(t *testing.T) {
	mem := &retainedMem{}
	s := mem.open(t, nil)
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 200; i++ {
		v := settings{
			Volume:     rng.Int31(),
			Brightness: uint8(rng.Intn(256)),
			Flags:      [3]uint8{uint8(i), uint8(i >> 8), 3},
			Counter:    rng.Uint64(),
		}
		*s.Scratchpad() = v
		s.Commit()
		assertOneValid(t, s, mem)
		if i%10 == 0 {
			s = mem.reopen(t, s, nil)
			assert.Equal(t, OneValid, s.Recovery().Outcome)
			assert.False(t, s.Recovery().Defaulted)
		}
		assert.Equal(t, v, *s.Scratchpad())
	}
}

func TestUncommittedEditsAreLost(t *testing.T) {
	mem := &retainedMem{}
	s := mem.open(t, nil)
	s.Scratchpad().Volume = 11
	s.Commit()

	// reset before Commit
	s.Scratchpad().Volume = 12
	s.Scratchpad().Counter = 99
	s = mem.reopen(t, s, nil)
	assert.Equal(t, int32(11), s.Scratchpad().Volume)
	assert.Equal(t, uint64(1), s.Scratchpad().Counter)
}

func TestCommitSwapsPages(t *testing.T) {
	mem := &retainedMem{}
	s := mem.open(t, nil)
	first := s.Scratchpad()
	s.Scratchpad().Volume = 1
	s.Commit()
	second := s.Scratchpad()
	assert.True(t, first != second)
	// new scratchpad starts as a copy of the commit
	assert.Equal(t, int32(1), second.Volume)
	s.Commit()
	assert.True(t, first == s.Scratchpad())
}

func TestSequenceIncrementsPerCommit(t *testing.T) {
	mem := &retainedMem{}
	s := mem.open(t, nil)
	assert.Equal(t, uint16(1), committedSeq(s))
	for i := 2; i < 20; i++ {
		s.Commit()
		assert.Equal(t, uint16(i), committedSeq(s))
	}
}

func TestSequenceWrapsToOne(t *testing.T) {
	mem := &retainedMem{}
	v := settings{Volume: 42}
	setPage(mem, PageA, v, math.MaxUint16-1)
	mem.meta.ChecksumB = 0x5555

	s := mem.open(t, nil)
	assert.Equal(t, v, *s.Scratchpad())
	assert.Equal(t, uint16(math.MaxUint16-1), committedSeq(s))

	s.Commit()
	assert.Equal(t, uint16(math.MaxUint16), committedSeq(s))
	s.Commit()
	assert.Equal(t, uint16(1), committedSeq(s))
	assertOneValid(t, s, mem)
	s.Commit()
	assert.Equal(t, uint16(2), committedSeq(s))

	s = mem.reopen(t, s, nil)
	assert.Equal(t, v, *s.Scratchpad())
	assert.Equal(t, uint16(2), committedSeq(s))
}

func TestBothValidWrapAround(t *testing.T) {
	older := settings{Volume: 1}
	newer := settings{Volume: 2}

	// A wrapped past B
	mem := &retainedMem{}
	setPage(mem, PageB, older, math.MaxUint16)
	setPage(mem, PageA, newer, 1)
	s := mem.open(t, nil)
	assert.Equal(t, BothValid, s.Recovery().Outcome)
	assert.Equal(t, PageA, s.Recovery().Current)
	assert.Equal(t, newer, *s.Scratchpad())
	assertOneValid(t, s, mem)

	// B wrapped past A
	mem = &retainedMem{}
	setPage(mem, PageA, older, math.MaxUint16)
	setPage(mem, PageB, newer, 1)
	s = mem.open(t, nil)
	assert.Equal(t, BothValid, s.Recovery().Outcome)
	assert.Equal(t, PageB, s.Recovery().Current)
	assert.Equal(t, newer, *s.Scratchpad())
	assertOneValid(t, s, mem)
}

func TestBothValidPicksHigherSeq(t *testing.T) {
	mem := &retainedMem{}
	setPage(mem, PageA, settings{Volume: 50}, 50)
	setPage(mem, PageB, settings{Volume: 49}, 49)
	s := mem.open(t, nil)
	assert.Equal(t, BothValid, s.Recovery().Outcome)
	assert.Equal(t, PageA, s.Recovery().Current)
	assert.Equal(t, uint16(50), s.Recovery().SeqNum)
	assert.Equal(t, int32(50), s.Scratchpad().Volume)
}

func TestInterruptedCommit(t *testing.T) {
	mem := &retainedMem{}
	s := mem.open(t, nil)
	for i := 0; i < 5; i++ {
		s.Scratchpad().Counter = uint64(i)
		s.Commit()
	}
	s.Scratchpad().Counter = 100
	prevSeq := committedSeq(s)

	// reset after the scratchpad checksum was written but before
	// the saved page was invalidated
	s.p.pages[s.p.scratch].WriteChecksum()
	assert.Equal(t, 2, s.p.validPages())
	seqA, seqB := mem.meta.SeqNumA, mem.meta.SeqNumB
	assert.True(t, seqA == seqB+1 || seqB == seqA+1, "seqA: %d seqB: %d", seqA, seqB)

	s = mem.reopen(t, s, nil)
	assert.Equal(t, BothValid, s.Recovery().Outcome)
	assert.Equal(t, uint64(100), s.Scratchpad().Counter)
	assert.Equal(t, prevSeq+1, committedSeq(s))
	assertOneValid(t, s, mem)

	s.Commit()
	assertOneValid(t, s, mem)
}

func TestResetDuringCopy(t *testing.T) {
	mem := &retainedMem{}
	s := mem.open(t, nil)
	s.Scratchpad().Volume = 7
	s.Commit()
	s.Scratchpad().Volume = 8
	s.Scratchpad().Counter = 0xdeadbeef

	// reset half way through copying the scratchpad onto saved page
	scratch := &s.p.pages[s.p.scratch]
	saved := &s.p.pages[s.p.scratch.other()]
	scratch.WriteChecksum()
	copy(saved.Bytes()[:8], scratch.Bytes()[:8])

	s = mem.reopen(t, s, nil)
	assert.Equal(t, int32(8), s.Scratchpad().Volume)
	assert.Equal(t, uint64(0xdeadbeef), s.Scratchpad().Counter)
	assertOneValid(t, s, mem)
}

func TestDoubleInvalid(t *testing.T) {
	mem := &retainedMem{}
	setPage(mem, PageA, settings{Volume: 3}, 10)
	setPage(mem, PageB, settings{Volume: 4}, 11)
	mem.meta.ChecksumA ^= 0x10
	mem.meta.ChecksumB = ^mem.meta.ChecksumB

	var events []string
	opts := &Options{
		Events: EventFunc(func(name string, vals ...any) {
			events = append(events, name)
		}),
	}
	s := mem.open(t, opts)
	assert.Equal(t, defaultSettings, *s.Scratchpad())
	assert.Equal(t, NoneValid, s.Recovery().Outcome)
	assert.True(t, s.Recovery().Defaulted)
	assertOneValid(t, s, mem)
	assert.Equal(t, []string{EventPageInvalid, EventPageInvalid, EventBothInvalid, EventRecovered}, events)
}

func TestSequenceTie(t *testing.T) {
	mem := &retainedMem{}
	setPage(mem, PageA, settings{Volume: 3}, 10)
	setPage(mem, PageB, settings{Volume: 4}, 10)
	s := mem.open(t, nil)
	assert.Equal(t, SequenceTie, s.Recovery().Outcome)
	assert.True(t, s.Recovery().Defaulted)
	assert.Equal(t, defaultSettings, *s.Scratchpad())
	assertOneValid(t, s, mem)
}

func TestSequenceTieStrict(t *testing.T) {
	mem := &retainedMem{}
	setPage(mem, PageA, settings{Volume: 3}, 10)
	setPage(mem, PageB, settings{Volume: 4}, 10)
	before := *mem

	s, err := New(&mem.a, &mem.b, &mem.meta, defaultSettings, &Options{StrictSequence: true})
	assert.Nil(t, s)
	assert.True(t, errors.Is(err, ErrSequenceTie), "%v", err)
	assert.Equal(t, before, *mem)

	// meta was released
	s = mem.open(t, nil)
	assert.Equal(t, SequenceTie, s.Recovery().Outcome)
}

func TestSeqZeroIsReported(t *testing.T) {
	mem := &retainedMem{}
	setPage(mem, PageB, settings{Volume: 9}, 0)
	var got []string
	opts := &Options{
		Events: EventFunc(func(name string, vals ...any) {
			got = append(got, name)
		}),
	}
	s := mem.open(t, opts)
	assert.Equal(t, int32(9), s.Scratchpad().Volume)
	assert.Equal(t, EventSeqZero, got[0])
	assert.Equal(t, uint16(0), s.Recovery().SeqNum)
	s.Commit()
	assert.Equal(t, uint16(1), committedSeq(s))
}

func TestVerboseEvents(t *testing.T) {
	mem := &retainedMem{}
	var got []string
	opts := &Options{
		Verbose: true,
		Events: EventFunc(func(name string, vals ...any) {
			assert.True(t, len(vals)%2 == 0, "%s: odd number of values", name)
			got = append(got, name)
		}),
	}
	s := mem.open(t, opts)
	s.Commit()
	exp := []string{EventPageInvalid, EventPageInvalid, EventBothInvalid, EventCommit, EventRecovered, EventCommit}
	assert.Equal(t, exp, got)

	got = nil
	s = mem.reopen(t, s, opts)
	exp = []string{EventPageInvalid, EventCommit, EventRecovered}
	assert.Equal(t, exp, got)
}

func TestChecksumPolicyMismatch(t *testing.T) {
	mem := &retainedMem{}
	s := mem.open(t, &Options{Checksum: CRC32})
	s.Scratchpad().Volume = 77
	s.Commit()
	s = mem.reopen(t, s, &Options{Checksum: CRC32})
	assert.Equal(t, int32(77), s.Scratchpad().Volume)

	// pages written with crc32 don't validate as bytesum
	s = mem.reopen(t, s, nil)
	assert.Equal(t, NoneValid, s.Recovery().Outcome)
	assert.Equal(t, defaultSettings, *s.Scratchpad())
}

func TestMetaInUse(t *testing.T) {
	mem := &retainedMem{}
	s := mem.open(t, nil)
	var c, d settings
	_, err := New(&c, &d, &mem.meta, defaultSettings, nil)
	assert.Equal(t, ErrMetaInUse, err)

	s.Close()
	s.Close()
	s2, err := New(&c, &d, &mem.meta, defaultSettings, nil)
	assert.NoError(t, err)
	s2.Close()
}

// openAndDrop creates a store and forgets it without Close
func openAndDrop(mem *retainedMem) error {
	_, err := New(&mem.a, &mem.b, &mem.meta, defaultSettings, nil)
	return err
}

func TestDroppedStoreReleasesMeta(t *testing.T) {
	mem := &retainedMem{}
	assert.NoError(t, openAndDrop(mem))
	for i := 0; i < 200; i++ {
		runtime.GC()
		s, err := New(&mem.a, &mem.b, &mem.meta, defaultSettings, nil)
		if err == nil {
			assert.Equal(t, OneValid, s.Recovery().Outcome)
			s.Close()
			return
		}
		assert.Equal(t, ErrMetaInUse, err)
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("meta of a dropped store was never released")
}

func TestStaleReleaseKeepsNewOwner(t *testing.T) {
	var m Meta
	first, err := claimMeta(&m)
	assert.NoError(t, err)
	first.release()
	second, err := claimMeta(&m)
	assert.NoError(t, err)

	// e.g. a cleanup of an old store running late
	first.release()
	_, err = claimMeta(&m)
	assert.Equal(t, ErrMetaInUse, err)

	second.release()
	third, err := claimMeta(&m)
	assert.NoError(t, err)
	third.release()
}

func TestCommitAfterClosePanics(t *testing.T) {
	mem := &retainedMem{}
	s := mem.open(t, nil)
	s.Close()
	defer func() {
		assert.NotNil(t, recover())
	}()
	s.Commit()
}

func TestNewErrors(t *testing.T) {
	var a, b settings
	var m Meta
	_, err := New(nil, &b, &m, defaultSettings, nil)
	assert.Equal(t, ErrNilRegion, err)
	_, err = New(&a, &b, nil, defaultSettings, nil)
	assert.Equal(t, ErrNilRegion, err)

	_, err = New(&a, &a, &m, defaultSettings, nil)
	assert.Equal(t, ErrOverlap, err)

	_, err = New(&a, &b, &m, defaultSettings, &Options{Checksum: 17})
	assert.True(t, errors.Is(err, ErrBadPolicy), "%v", err)

	type withString struct {
		N    int
		Name string
	}
	var sa, sb withString
	_, err = New(&sa, &sb, &m, withString{}, nil)
	assert.True(t, errors.Is(err, ErrNotPlain), "%v", err)

	type withPtr struct {
		Vals [2]struct{ P *int }
	}
	var pa, pb withPtr
	_, err = New(&pa, &pb, &m, withPtr{}, nil)
	assert.True(t, errors.Is(err, ErrNotPlain), "%v", err)

	type empty struct{}
	var ea, eb empty
	_, err = New(&ea, &eb, &m, empty{}, nil)
	assert.True(t, errors.Is(err, ErrEmptyRecord), "%v", err)

	// none of the failures above kept the meta
	s, err := New(&a, &b, &m, defaultSettings, nil)
	assert.NoError(t, err)
	s.Close()
}

func alignedBytes(n int) []byte {
	backing := make([]uint64, (n+7)/8)
	return unsafe.Slice((*byte)(unsafe.Pointer(&backing[0])), n)
}

func TestMetaFromBytes(t *testing.T) {
	buf := alignedBytes(16)
	m, err := MetaFromBytes(buf)
	assert.NoError(t, err)
	m.SeqNumA = 0x0102
	m.ChecksumB = 0xffffffff
	assert.Equal(t, []byte{0xff, 0xff, 0xff, 0xff}, buf[8:12])

	_, err = MetaFromBytes(buf[:MetaSize-1])
	assert.True(t, errors.Is(err, ErrRegionTooSmall), "%v", err)
	_, err = MetaFromBytes(buf[1:])
	assert.True(t, errors.Is(err, ErrMisaligned), "%v", err)
}

func TestMetaOverlapsPage(t *testing.T) {
	buf := alignedBytes(32)
	m, err := MetaFromBytes(buf[16:])
	assert.NoError(t, err)
	_, err = NewBuffer(buf[:16], buf[16:], m, make([]byte, 16), nil)
	assert.Equal(t, ErrOverlap, err)
}
