// Package replay executes statement files against the target with a fixed
// number of workers sharing a connection pool.
package replay

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pgindex/pgindex/internal/errs"
	"github.com/pgindex/pgindex/internal/pool"
	"github.com/pgindex/pgindex/internal/report"
)

// WorkItem is one statement to replay. Label is only used for reporting.
type WorkItem struct {
	Label     string
	Statement string
}

// State is where an item is in its lifecycle.
type State int

const (
	Queued State = iota
	Executing
	Succeeded
	Failed
	Skipped
)

func (s State) String() string {
	switch s {
	case Queued:
		return "queued"
	case Executing:
		return "executing"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	case Skipped:
		return "skipped"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// MarshalText renders the state name in JSON summaries.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Terminal reports whether no further transition can happen.
func (s State) Terminal() bool {
	return s == Succeeded || s == Failed || s == Skipped
}

// Outcome is the result for one item.
type Outcome struct {
	Label    string        `json:"label"`
	State    State         `json:"state"`
	Worker   int           `json:"worker,omitempty"`
	Message  string        `json:"message,omitempty"`
	SQLState string        `json:"sqlstate,omitempty"`
	Elapsed  time.Duration `json:"elapsed_ns"`
	Err      error         `json:"-"`
}

// WorkerFailure records a worker that stopped before the queue drained.
type WorkerFailure struct {
	Worker  int    `json:"worker"`
	Message string `json:"message"`
}

// Summary aggregates a run. Outcomes are in submission order.
type Summary struct {
	RunID          string          `json:"run_id"`
	Workers        int             `json:"workers"`
	Succeeded      int             `json:"succeeded"`
	Failed         int             `json:"failed"`
	Skipped        int             `json:"skipped"`
	Outcomes       []Outcome       `json:"outcomes"`
	WorkerFailures []WorkerFailure `json:"worker_failures,omitempty"`
	MaxConnections int             `json:"max_connections_in_use"`
	Elapsed        time.Duration   `json:"elapsed_ns"`
}

// OK reports whether every worker ran to completion. Statement failures do
// not count against it.
func (s *Summary) OK() bool {
	return len(s.WorkerFailures) == 0
}

// Failures returns the outcomes of failed items.
func (s *Summary) Failures() []Outcome {
	var out []Outcome
	for _, o := range s.Outcomes {
		if o.State == Failed {
			out = append(out, o)
		}
	}
	return out
}

// Acquirer hands out connections. *pool.Pool satisfies it through
// PoolAcquirer.
type Acquirer interface {
	Acquire(ctx context.Context) (Conn, error)
}

// Conn is a borrowed connection.
type Conn interface {
	Exec(ctx context.Context, statement string) error
	Release()
}

// PoolAcquirer adapts a *pool.Pool to Acquirer.
type PoolAcquirer struct {
	Pool *pool.Pool
}

func (a PoolAcquirer) Acquire(ctx context.Context) (Conn, error) {
	c, err := a.Pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (a PoolAcquirer) Stats() pool.Stats { return a.Pool.Stats() }

// Options configures an Engine.
type Options struct {
	Workers int
	// QueueSize bounds the work queue. Zero sizes it to hold every item.
	QueueSize int
	// StatementTimeout bounds each statement. Zero leaves it to the target.
	StatementTimeout time.Duration
}

// Engine replays work items.
type Engine struct {
	acquirer Acquirer
	reporter report.Reporter
	opts     Options
}

// NewEngine returns an engine. A nil reporter discards events.
func NewEngine(acquirer Acquirer, reporter report.Reporter, opts Options) *Engine {
	if reporter == nil {
		reporter = report.Discard
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	return &Engine{acquirer: acquirer, reporter: reporter, opts: opts}
}

type job struct {
	index int
	item  WorkItem
}

// Run replays items and waits for every worker to finish. A statement
// failure is recorded against its item and never stops a worker. A worker
// that cannot acquire a connection stops; its peers keep draining the
// queue. Cancelling ctx stops workers at their next dequeue and the items
// left behind are reported as skipped.
func (e *Engine) Run(ctx context.Context, items []WorkItem) *Summary {
	start := time.Now()
	sum := &Summary{
		RunID:    uuid.NewString(),
		Workers:  e.opts.Workers,
		Outcomes: make([]Outcome, len(items)),
	}
	for i, it := range items {
		sum.Outcomes[i] = Outcome{Label: it.Label, State: Queued}
	}

	e.reporter.Report(report.ReplayStarted{RunID: sum.RunID, Items: len(items), Workers: e.opts.Workers})

	size := e.opts.QueueSize
	if size <= 0 || size > len(items) {
		size = len(items)
	}
	queue := make(chan job, size)

	var (
		mu       sync.Mutex
		failures []WorkerFailure
		wg       sync.WaitGroup
	)

	for w := 1; w <= e.opts.Workers; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			if err := e.work(ctx, worker, queue, sum.Outcomes); err != nil {
				mu.Lock()
				failures = append(failures, WorkerFailure{Worker: worker, Message: err.Error()})
				mu.Unlock()
				e.reporter.Report(report.WorkerFailed{Worker: worker, Err: err.Error()})
			}
		}(w)
	}

	workersDone := make(chan struct{})
	go func() {
		wg.Wait()
		close(workersDone)
	}()

	e.enqueue(ctx, queue, items, workersDone)
	<-workersDone

	for i := range sum.Outcomes {
		o := &sum.Outcomes[i]
		if !o.State.Terminal() {
			o.State = Skipped
		}
		switch o.State {
		case Succeeded:
			sum.Succeeded++
		case Failed:
			sum.Failed++
		case Skipped:
			sum.Skipped++
		}
	}
	sum.WorkerFailures = failures
	if s, ok := e.acquirer.(interface{ Stats() pool.Stats }); ok {
		sum.MaxConnections = s.Stats().MaxInUse
	}
	sum.Elapsed = time.Since(start)

	e.reporter.Report(report.ReplayFinished{
		RunID:          sum.RunID,
		Succeeded:      sum.Succeeded,
		Failed:         sum.Failed,
		Skipped:        sum.Skipped,
		WorkerFailures: len(sum.WorkerFailures),
		Elapsed:        sum.Elapsed,
	})
	return sum
}

// enqueue feeds every item and closes the queue. With a bounded queue it
// blocks while the queue is full. It gives up once ctx is done or every
// worker has exited; items never enqueued stay queued and end up skipped.
func (e *Engine) enqueue(ctx context.Context, queue chan<- job, items []WorkItem, workersDone <-chan struct{}) {
	defer close(queue)
	for i, it := range items {
		select {
		case queue <- job{index: i, item: it}:
		case <-ctx.Done():
			return
		case <-workersDone:
			return
		}
	}
}

// work drains the queue until it is closed. Only an acquisition failure
// ends it early.
func (e *Engine) work(ctx context.Context, worker int, queue <-chan job, outcomes []Outcome) error {
	for {
		if ctx.Err() != nil {
			return nil
		}

		j, ok := <-queue
		if !ok {
			return nil
		}
		if ctx.Err() != nil {
			// dequeued after cancellation, never attempted
			return nil
		}

		if err := e.execute(ctx, worker, j, &outcomes[j.index]); err != nil {
			return err
		}
	}
}

// execute runs one job and records its outcome. Each job writes only its
// own outcome slot, so no lock is needed.
func (e *Engine) execute(ctx context.Context, worker int, j job, out *Outcome) error {
	out.Worker = worker

	conn, err := e.acquirer.Acquire(ctx)
	if err != nil {
		out.State = Skipped
		if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
			out.Message = "cancelled before execution"
			return nil
		}
		out.Message = err.Error()
		out.Err = err
		return err
	}
	defer conn.Release()

	out.State = Executing
	e.reporter.Report(report.StatementStarted{Worker: worker, Label: j.item.Label})

	start := time.Now()
	execCtx := ctx
	if e.opts.StatementTimeout > 0 {
		var cancel context.CancelFunc
		execCtx, cancel = context.WithTimeout(ctx, e.opts.StatementTimeout)
		defer cancel()
	}

	err = conn.Exec(execCtx, j.item.Statement)
	out.Elapsed = time.Since(start)

	if err != nil {
		if e.opts.StatementTimeout > 0 && errors.Is(execCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			err = fmt.Errorf("statement exceeded %s: %w", e.opts.StatementTimeout, err)
		}
		out.State = Failed
		out.Message = Describe(err)
		out.SQLState = SQLState(err)
		out.Err = errs.E(errs.KindStatementExecution, j.item.Label, err)
	} else {
		out.State = Succeeded
	}

	e.reporter.Report(report.StatementFinished{
		Worker:  worker,
		Label:   j.item.Label,
		Elapsed: out.Elapsed,
		Err:     out.Message,
	})
	return nil
}
