package retained

// EventSink receives diagnostic events. vals are key/value pairs.
// Events are informational, the store never fails because of them.
type EventSink interface {
	Event(name string, vals ...any)
}

// EventFunc adapts a function to EventSink
type EventFunc func(name string, vals ...any)

func (f EventFunc) Event(name string, vals ...any) {
	f(name, vals...)
}

type discard struct{}

func (discard) Event(string, ...any) {}

// Discard is an EventSink that ignores all events
var Discard EventSink = discard{}

// names of events sent to EventSink
const (
	EventPageInvalid = "page_invalid"
	EventBothValid   = "both_valid"
	EventBothInvalid = "both_invalid"
	EventSeqTie      = "seq_tie"
	EventSeqZero     = "seq_zero"
	EventRecovered   = "recovered"
	EventCommit      = "commit"
)
