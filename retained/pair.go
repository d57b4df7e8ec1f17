package retained

import (
	"fmt"
	"runtime"
)

// Outcome describes what recovery found at construction
type Outcome int

const (
	// one valid page, the normal case after a clean commit
	OneValid Outcome = iota
	// both valid: a reset interrupted a commit, the newer page won
	BothValid
	// neither valid: first use or corruption, default was applied
	NoneValid
	// both valid with equal sequence numbers, default was applied
	SequenceTie
)

func (o Outcome) String() string {
	switch o {
	case OneValid:
		return "one_valid"
	case BothValid:
		return "both_valid"
	case NoneValid:
		return "none_valid"
	case SequenceTie:
		return "seq_tie"
	}
	return fmt.Sprintf("Outcome(%d)", int(o))
}

// Recovery is the result of the recovery done at construction
type Recovery struct {
	Outcome Outcome
	// page holding the committed record after recovery
	Current PageID
	// sequence number of Current
	SeqNum uint16
	// true if the record was reset to the default value
	Defaulted bool
}

type decision struct {
	// page that becomes scratchpad before the recovery commit,
	// i.e. the page whose content is kept
	keep       PageID
	outcome    Outcome
	useDefault bool
}

func decide(aValid, bValid bool, seqA, seqB uint16) decision {
	switch {
	case aValid && bValid:
		id, ok := newerSeqNum(seqA, seqB)
		if !ok {
			return decision{keep: PageA, outcome: SequenceTie, useDefault: true}
		}
		return decision{keep: id, outcome: BothValid}
	case aValid:
		return decision{keep: PageA, outcome: OneValid}
	case bValid:
		return decision{keep: PageB, outcome: OneValid}
	}
	return decision{keep: PageA, outcome: NoneValid, useDefault: true}
}

// pair is the two pages and the index of the scratchpad.
// The other page is the saved one.
type pair struct {
	pages   [2]Page
	scratch PageID
	events  EventSink
	verbose bool
	owner   ownership
	// releases owner if the store is dropped without Close
	cleanup runtime.Cleanup
	closed  bool
}

func openPair(p *pair, a, b, def []byte, meta *Meta, opts *Options) (Recovery, error) {
	policy := opts.policy()
	if !policy.valid() {
		return Recovery{}, fmt.Errorf("%w: %d", ErrBadPolicy, uint16(policy))
	}
	if len(a) == 0 {
		return Recovery{}, ErrEmptyRecord
	}
	if len(a) != len(b) || len(a) != len(def) {
		return Recovery{}, fmt.Errorf("%w: a: %d, b: %d, default: %d", ErrSizeMismatch, len(a), len(b), len(def))
	}
	if anyOverlap(a, b, metaBytes(meta)) {
		return Recovery{}, ErrOverlap
	}
	owner, err := claimMeta(meta)
	if err != nil {
		return Recovery{}, err
	}
	p.owner = owner
	p.events = opts.events()
	p.verbose = opts.verbose()
	seqA, sumA := meta.page(PageA)
	seqB, sumB := meta.page(PageB)
	p.pages[PageA] = NewPage(a, seqA, sumA, policy)
	p.pages[PageB] = NewPage(b, seqB, sumB, policy)

	rec, err := p.recover(def, opts.strict())
	if err != nil {
		owner.release()
		p.closed = true
		return Recovery{}, err
	}
	return rec, nil
}

func (p *pair) reportInvalid(id PageID) {
	pg := &p.pages[id]
	p.events.Event(EventPageInvalid, "page", id.String(), "stored", pg.StoredChecksum(), "computed", pg.CalculateChecksum(), "seq", pg.SeqNum())
}

// recover picks the page to keep, applies def if nothing can be kept
// and commits so that exactly one page is valid again
func (p *pair) recover(def []byte, strict bool) (Recovery, error) {
	a, b := &p.pages[PageA], &p.pages[PageB]
	aValid, bValid := a.IsValid(), b.IsValid()
	seqA, seqB := a.SeqNum(), b.SeqNum()

	if aValid && seqA == 0 {
		p.events.Event(EventSeqZero, "page", "A")
	}
	if bValid && seqB == 0 {
		p.events.Event(EventSeqZero, "page", "B")
	}

	d := decide(aValid, bValid, seqA, seqB)
	switch d.outcome {
	case OneValid:
		if p.verbose {
			p.reportInvalid(d.keep.other())
		}
	case BothValid:
		p.events.Event(EventBothValid, "seqA", seqA, "seqB", seqB, "current", d.keep.String())
	case SequenceTie:
		p.events.Event(EventSeqTie, "seq", seqA, "strict", strict)
		if strict {
			return Recovery{}, fmt.Errorf("%w: %d", ErrSequenceTie, seqA)
		}
	case NoneValid:
		p.reportInvalid(PageA)
		p.reportInvalid(PageB)
		p.events.Event(EventBothInvalid)
	}

	if d.useDefault {
		p.pages[d.keep].Init(def)
	}
	p.scratch = d.keep
	p.commit()

	current := p.scratch.other()
	rec := Recovery{
		Outcome:   d.outcome,
		Current:   current,
		SeqNum:    p.pages[current].SeqNum(),
		Defaulted: d.useDefault,
	}
	p.events.Event(EventRecovered, "outcome", rec.Outcome.String(), "current", current.String(), "seq", rec.SeqNum, "defaulted", rec.Defaulted)
	return rec, nil
}

// commit makes the scratchpad the committed page and opens the other
// page for edits. The order of steps is what makes it safe to reset at
// any point:
//   - before WriteChecksum: the saved page is the only valid one
//   - after WriteChecksum, before ClearChecksum: both may be valid,
//     the scratchpad has the newer sequence number
//   - after ClearChecksum: only the new commit is valid
func (p *pair) commit() {
	panicIf(p.closed, "commit on closed store")
	scratch := &p.pages[p.scratch]
	saved := &p.pages[p.scratch.other()]

	scratch.WriteChecksum()
	saved.CopyFrom(scratch)
	saved.ClearChecksum()

	p.scratch = p.scratch.other()
	if p.verbose {
		p.events.Event(EventCommit, "page", p.scratch.other().String(), "seq", scratch.SeqNum())
	}
}

func (p *pair) close() {
	if p.closed {
		return
	}
	p.closed = true
	p.cleanup.Stop()
	p.owner.release()
}

// validPages returns how many pages currently have a valid checksum
func (p *pair) validPages() int {
	n := 0
	for i := range p.pages {
		if p.pages[i].IsValid() {
			n++
		}
	}
	return n
}
