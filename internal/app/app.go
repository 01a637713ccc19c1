// Package app runs the export, import and validate workflows. It owns the
// wiring between the pipeline packages and the progress renderers; the
// pipelines themselves never print.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"go.uber.org/zap"

	"github.com/pgindex/pgindex/internal/catalog"
	"github.com/pgindex/pgindex/internal/collect"
	"github.com/pgindex/pgindex/internal/config"
	"github.com/pgindex/pgindex/internal/errs"
	"github.com/pgindex/pgindex/internal/export"
	"github.com/pgindex/pgindex/internal/locks"
	"github.com/pgindex/pgindex/internal/pool"
	"github.com/pgindex/pgindex/internal/replay"
	"github.com/pgindex/pgindex/internal/report"
	"github.com/pgindex/pgindex/internal/validate"
)

// ProductName is shown in the banner.
const ProductName = "pgindex"

// Progress renderers
const (
	ProgressConsole = "console"
	ProgressLog     = "log"
	ProgressTUI     = "tui"
)

var (
	// ErrWorkersStopped is returned when at least one replay worker stopped
	// before the queue drained.
	ErrWorkersStopped = errors.New("replay workers stopped early")

	// ErrStatementsFailed is returned for statement failures when the caller
	// asked for them to fail the run.
	ErrStatementsFailed = errors.New("statements failed")

	// ErrInvalidStatements is returned when pre-flight validation finds errors.
	ErrInvalidStatements = errors.New("statement files failed validation")
)

// App carries what every workflow needs.
type App struct {
	Logger   *zap.Logger
	Out      io.Writer
	Verbose  bool
	Progress string
	Version  string
}

func (a *App) logger() *zap.Logger {
	if a.Logger == nil {
		return zap.NewNop()
	}
	return a.Logger
}

func (a *App) out() io.Writer {
	if a.Out == nil {
		return os.Stdout
	}
	return a.Out
}

func (a *App) console() *report.Console {
	return report.NewConsole(a.out(), a.Verbose)
}

// reporter picks the renderer. Workflows without a TUI fall back to the
// console renderer.
func (a *App) reporter(console *report.Console, allowTUI bool, onInterrupt func()) (report.Reporter, func() error, error) {
	noop := func() error { return nil }

	switch a.Progress {
	case "", ProgressConsole:
		return console, noop, nil
	case ProgressLog:
		return report.Log(a.logger()), noop, nil
	case ProgressTUI:
		if !allowTUI {
			return console, noop, nil
		}
		tui := report.NewTUI(a.out(), onInterrupt)
		tui.Start()
		return tui, tui.Stop, nil
	default:
		return nil, noop, errs.E(errs.KindConfig, "progress", fmt.Errorf("unknown progress renderer %q", a.Progress))
	}
}

// RunExport walks the catalog behind reader and writes statement files.
func (a *App) RunExport(ctx context.Context, mode config.ExportMode, reader catalog.Reader) (*export.Result, error) {
	if err := mode.Validate(); err != nil {
		return nil, errs.E(errs.KindConfig, "export", err)
	}

	console := a.console()
	rep, stop, err := a.reporter(console, false, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = stop() }()

	if a.Progress != ProgressLog {
		console.Banner(ProductName, a.Version)
		console.Settings([][2]string{
			{"Source Schema", mode.Schema},
			{"Source Table", mode.Table},
			{"Output Directory", mode.OutputDir},
		})
	}

	log := a.logger()
	log.Debug("starting export", zap.String("schema", mode.Schema), zap.String("table", mode.Table), zap.String("output", mode.OutputDir))

	res, err := export.NewWalker(reader, rep).Run(ctx, mode)
	if err != nil {
		log.Error("export failed", zap.Error(err), zap.Stringer("kind", errs.KindOf(err)))
		return res, err
	}
	return res, nil
}

// RunImport collects statement files under mode.InputDir and replays them
// against targetURL. Statement failures are reported in the summary and
// only fail the run when mode.FailOnStatementError is set.
func (a *App) RunImport(ctx context.Context, mode config.ImportMode, targetURL string) (*replay.Summary, error) {
	if err := mode.Validate(); err != nil {
		return nil, errs.E(errs.KindConfig, "import", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	log := a.logger()
	console := a.console()

	if a.Progress != ProgressLog && a.Progress != ProgressTUI {
		console.Banner(ProductName, a.Version)
		console.Settings([][2]string{
			{"Input Directory", mode.InputDir},
			{"Threads", strconv.Itoa(mode.Threads)},
			{"Timeout", fmt.Sprintf("%dh", mode.TimeoutHours)},
			{"Target", config.Redact(targetURL)},
		})
	}

	files, err := collect.Collect(mode.InputDir, mode.Extension)
	if err != nil {
		log.Error("collecting statement files failed", zap.Error(err))
		return nil, err
	}
	log.Debug("collected statement files", zap.String("root", mode.InputDir), zap.Int("files", len(files)))

	if mode.ValidateFirst {
		res := validate.Statements(files)
		a.printIssues(console, res)
		if !res.Valid() {
			return nil, fmt.Errorf("%w: %d error(s) in %d file(s)", ErrInvalidStatements, res.Errors(), res.Files)
		}
	}

	p, err := pool.Open(ctx, pool.NewConfig(targetURL, mode.Threads, mode.AcquireTimeout()))
	if err != nil {
		log.Error("opening target pool failed", zap.Error(err), zap.String("target", config.Redact(targetURL)))
		return nil, err
	}
	defer func() { _ = p.Close() }()
	log.Debug("target pool ready", zap.String("driver", p.Driver()), zap.Int("max_connections", mode.Threads))

	rep, stop, err := a.reporter(console, true, cancel)
	if err != nil {
		return nil, err
	}
	rep.Report(report.CollectFinished{Root: mode.InputDir, Files: len(files)})

	items := make([]replay.WorkItem, len(files))
	for i, f := range files {
		items[i] = replay.WorkItem{Label: f.Path, Statement: f.Content}
	}
	if mode.Concurrently {
		a.concurrently(items, p.Driver())
	}

	engine := replay.NewEngine(replay.PoolAcquirer{Pool: p}, rep, replay.Options{
		Workers:          mode.Threads,
		QueueSize:        mode.QueueSize,
		StatementTimeout: mode.StatementTimeout,
	})
	sum := engine.Run(ctx, items)

	if err := stop(); err != nil {
		log.Warn("progress display did not shut down cleanly", zap.Error(err))
	}

	if a.Progress == ProgressTUI {
		// the TUI only shows progress; failures still belong on the console
		for _, o := range sum.Failures() {
			console.Fail(fmt.Sprintf("%s: %s", o.Label, o.Message))
		}
		for _, wf := range sum.WorkerFailures {
			console.Fail(fmt.Sprintf("worker %d stopped: %s", wf.Worker, wf.Message))
		}
	}

	if mode.ReportPath != "" {
		if err := report.WriteJSON(mode.ReportPath, sum); err != nil {
			return sum, errs.Filesystem("write report", err)
		}
		log.Info("wrote summary", zap.String("path", mode.ReportPath))
	}

	switch {
	case !sum.OK():
		return sum, fmt.Errorf("%w: %d worker(s) failed, %d statement(s) skipped", ErrWorkersStopped, len(sum.WorkerFailures), sum.Skipped)
	case ctx.Err() != nil:
		return sum, fmt.Errorf("import interrupted, %d statement(s) skipped: %w", sum.Skipped, ctx.Err())
	case mode.FailOnStatementError && sum.Failed > 0:
		return sum, fmt.Errorf("%w: %d of %d", ErrStatementsFailed, sum.Failed, len(items))
	}
	return sum, nil
}

// concurrently rewrites plain index builds so they do not block writes.
// Only PostgreSQL understands CONCURRENTLY; other targets are left alone.
func (a *App) concurrently(items []replay.WorkItem, driver string) {
	log := a.logger()
	if driver != pool.DriverPostgres {
		log.Warn("concurrent index builds need a PostgreSQL target; statements left unchanged", zap.String("driver", driver))
		return
	}

	rewritten := 0
	for i := range items {
		if stmt, ok := locks.Concurrently(items[i].Statement); ok {
			items[i].Statement = stmt
			rewritten++
		}
	}
	log.Info("rewrote index builds to CONCURRENTLY", zap.Int("statements", rewritten), zap.Int("total", len(items)))
}

// RunValidate parses every statement file under dir without touching a
// database. With showLocks, statements that block writes on a PostgreSQL
// target are listed too.
func (a *App) RunValidate(dir, ext string, showLocks bool) (validate.Result, error) {
	files, err := collect.Collect(dir, ext)
	if err != nil {
		return validate.Result{}, err
	}

	res := validate.Statements(files)
	console := a.console()
	a.printIssues(console, res)

	if showLocks {
		for _, issue := range validate.Locks(files) {
			console.Warn(issue.String())
		}
	}

	if !res.Valid() {
		return res, fmt.Errorf("%w: %d error(s) in %d file(s)", ErrInvalidStatements, res.Errors(), res.Files)
	}
	console.Done(fmt.Sprintf("DONE %d statement files are valid", res.Files))
	return res, nil
}

func (a *App) printIssues(console *report.Console, res validate.Result) {
	for _, issue := range res.Issues {
		if issue.Severity == validate.SeverityError {
			console.Fail(issue.String())
		} else {
			a.logger().Warn("statement file warning",
				zap.String("file", issue.File),
				zap.Int("line", issue.Line),
				zap.String("code", issue.Code),
				zap.String("message", issue.Message))
		}
	}
}
