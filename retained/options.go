package retained

// Options configures a store. nil Options means defaults.
type Options struct {
	// Checksum used for both pages. Must match what was used
	// when the pages were written, otherwise both read as invalid.
	Checksum ChecksumPolicy
	// Events receives diagnostics. nil means Discard.
	Events EventSink
	// if true, also sends trace events (e.g. on every commit)
	Verbose bool
	// if true, finding both pages valid with equal sequence numbers
	// fails construction with ErrSequenceTie instead of falling back
	// to the default record
	StrictSequence bool
}

func (o *Options) events() EventSink {
	if o == nil || o.Events == nil {
		return Discard
	}
	return o.Events
}

func (o *Options) policy() ChecksumPolicy {
	if o == nil {
		return ByteSum
	}
	return o.Checksum
}

func (o *Options) verbose() bool {
	return o != nil && o.Verbose
}

func (o *Options) strict() bool {
	return o != nil && o.StrictSequence
}
