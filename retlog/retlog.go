// Package retlog writes diagnostic events of retained stores to daily files.
//
// Each event is a record with a header line and a body of key/value pairs
// encoded with toon. A *Logger can be passed as retained.Options.Events.
package retlog

import (
	"bytes"
	"fmt"
	"os"
	"reflect"
	"sync"
	"time"

	"github.com/toon-format/toon-go"
)

// name of records written by Logf
const logRecordName = "log"

type Config struct {
	// directory where event files are stored, one file per day.
	// If empty, nothing is written to files.
	Dir string
	// prefix of file names, e.g. "ret-" gives "ret-2026-01-02.txt"
	Prefix string
	// if true, Logf() and Event() also print to stdout
	Stdout bool
	// called for every record written, allows sending events
	// to other places
	OnRecord func(d []byte)
}

type Logger struct {
	// if true, Verbosef() will log messages
	Verbose bool

	config Config
	file   *dailyFile
	buf    bytes.Buffer
	mu     sync.Mutex
	// for tests
	now func() time.Time
}

// New creates a logger. config can be nil, in which case events are dropped.
func New(config *Config) (*Logger, error) {
	l := &Logger{
		now: time.Now,
	}
	if config == nil {
		return l, nil
	}
	l.config = *config
	if config.Dir != "" {
		l.file = &dailyFile{
			dir:    config.Dir,
			prefix: config.Prefix,
		}
		// fail early if we can't write to the dir
		if err := l.file.reopenIfNeeded(l.now()); err != nil {
			return nil, err
		}
	}
	return l, nil
}

// Path returns path of the current file, empty if not writing to a file
func (l *Logger) Path() string {
	if l == nil || l.file == nil {
		return ""
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.file.path
}

func (l *Logger) writeRecord(name string, d []byte) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	line := marshalLine(name, now, d, &l.buf)
	if l.file != nil {
		if err := l.file.write(line, now); err != nil {
			fmt.Fprintf(os.Stderr, "retlog: failed to write to '%s': %s\n", l.file.path, err)
		}
	}
	if l.config.OnRecord != nil {
		l.config.OnRecord(line)
	}
}

// Logf logs a message. It's safe to call on nil receiver.
func (l *Logger) Logf(s string, args ...any) {
	if l == nil {
		return
	}
	if len(args) > 0 {
		s = fmt.Sprintf(s, args...)
	}
	if l.config.Stdout {
		fmt.Print(s)
	}
	l.writeRecord(logRecordName, []byte(s))
}

func (l *Logger) Verbosef(format string, args ...any) {
	if l == nil || !l.Verbose {
		return
	}
	l.Logf(format, args...)
}

func panicIf(cond bool, args ...any) {
	if !cond {
		return
	}
	s := "condition failed"
	if len(args) > 0 {
		s = fmt.Sprintf("%s", args[0])
		if len(args) > 1 {
			s = fmt.Sprintf(s, args[1:]...)
		}
	}
	panic(s)
}

// simpleTypeToStr converts simple types to string
// panics if v is of complex type
func simpleTypeToStr(v any) string {
	rt := reflect.TypeOf(v)
	kind := rt.Kind()
	switch kind {
	case reflect.Array, reflect.Slice, reflect.Struct, reflect.Map, reflect.Chan, reflect.Interface, reflect.Pointer:
		panic(fmt.Sprintf("toStr: value is of kind %v", kind))
	case reflect.String:
		return v.(string)
	}
	return fmt.Sprintf("%v", v)
}

// Event logs an event with key/value pairs in toon format.
// It implements retained.EventSink. It's safe to call on nil receiver.
func (l *Logger) Event(name string, vals ...any) {
	if l == nil {
		return
	}
	n := len(vals)
	panicIf(n%2 != 0, "Event('%s'): needs key/value pairs, got %d values", name, n)
	var d []byte
	if n > 0 {
		m := map[string]any{}
		for i := 0; i < n; i += 2 {
			k := simpleTypeToStr(vals[i])
			m[k] = vals[i+1]
		}
		var err error
		d, err = toon.Marshal(m)
		if err != nil {
			d = []byte(fmt.Sprintf("error: %s", err))
		}
	}
	if l.config.Stdout {
		fmt.Printf("%s %s\n", name, bytes.ReplaceAll(d, []byte{'\n'}, []byte{' '}))
	}
	l.writeRecord(name, d)
}

// Sync flushes the current file to disk
func (l *Logger) Sync() error {
	if l == nil || l.file == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.file.sync()
}

// Close closes the current file. It's safe to call on nil receiver
// and multiple times.
func (l *Logger) Close() error {
	if l == nil || l.file == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.file.close()
}
