// Package report carries progress events from the export and import pipelines
// to whatever renders them. Pipelines only emit events; they never print.
package report

import (
	"sync"
	"time"
)

// Event is a progress notification. The set of events is closed.
type Event interface {
	event()
}

// Reporter receives events. Implementations must be safe for concurrent use,
// replay workers report from their own goroutines.
type Reporter interface {
	Report(Event)
}

// Func adapts a function to a Reporter.
type Func func(Event)

func (f Func) Report(ev Event) { f(ev) }

// Discard drops every event.
var Discard Reporter = Func(func(Event) {})

type tee []Reporter

func (t tee) Report(ev Event) {
	for _, r := range t {
		r.Report(ev)
	}
}

// Tee fans events out to every non-nil reporter in order.
func Tee(reporters ...Reporter) Reporter {
	var out tee
	for _, r := range reporters {
		if r != nil {
			out = append(out, r)
		}
	}
	if len(out) == 1 {
		return out[0]
	}
	return out
}

// Recorder keeps every event it receives. Useful in tests.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Report(ev Event) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Export events.

type SchemaStarted struct {
	Schema string
}

type TableStarted struct {
	Schema string
	Table  string
}

type IndexExported struct {
	Schema string
	Table  string
	Index  string
	Path   string
}

type ExportFinished struct {
	RunID   string
	Schemas int
	Tables  int
	Indexes int
	Elapsed time.Duration
}

// Import events.

type CollectFinished struct {
	Root  string
	Files int
}

type ReplayStarted struct {
	RunID   string
	Items   int
	Workers int
}

type StatementStarted struct {
	Worker int
	Label  string
}

// StatementFinished is emitted once per item that reached a terminal state.
// Err is empty on success.
type StatementFinished struct {
	Worker  int
	Label   string
	Elapsed time.Duration
	Err     string
}

// WorkerFailed is emitted when a worker stops early, e.g. it could not
// obtain a connection before the acquisition timeout.
type WorkerFailed struct {
	Worker int
	Err    string
}

type ReplayFinished struct {
	RunID          string
	Succeeded      int
	Failed         int
	Skipped        int
	WorkerFailures int
	Elapsed        time.Duration
}

func (SchemaStarted) event()     {}
func (TableStarted) event()      {}
func (IndexExported) event()     {}
func (ExportFinished) event()    {}
func (CollectFinished) event()   {}
func (ReplayStarted) event()     {}
func (StatementStarted) event()  {}
func (StatementFinished) event() {}
func (WorkerFailed) event()      {}
func (ReplayFinished) event()    {}
