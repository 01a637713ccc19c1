package report

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

// Console renders events as styled lines of text.
type Console struct {
	mu      sync.Mutex
	w       io.Writer
	verbose bool
}

// NewConsole returns a console renderer writing to w. When verbose is set,
// statement start events are printed too.
func NewConsole(w io.Writer, verbose bool) *Console {
	return &Console{w: w, verbose: verbose}
}

// Banner prints the product banner framed by separators.
func (c *Console) Banner(product, version string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.separator()
	fmt.Fprintln(c.w, bannerStyle.Render(fmt.Sprintf("%s %s", product, version)))
	c.separator()
}

// Separator prints a horizontal rule.
func (c *Console) Separator() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.separator()
}

// Settings prints name/value pairs, one per line.
func (c *Console) Settings(pairs [][2]string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, p := range pairs {
		fmt.Fprintf(c.w, "%s <%s>\n", mutedStyle.Render(p[0]+":"), p[1])
	}
}

// Done prints a green completion line.
func (c *Console) Done(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.w, successStyle.Render(msg))
}

// Fail prints a red error line.
func (c *Console) Fail(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.w, errorStyle.Render(msg))
}

// Warn prints an orange advisory line.
func (c *Console) Warn(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.w, warningStyle.Render(msg))
}

func (c *Console) separator() {
	fmt.Fprintln(c.w, mutedStyle.Render(strings.Repeat("-", separatorWidth)))
}

func (c *Console) Report(ev Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch e := ev.(type) {
	case SchemaStarted:
		c.separator()
		fmt.Fprintf(c.w, "Source Schema: <%s>\n", nameStyle.Render(e.Schema))
	case TableStarted:
		c.separator()
		fmt.Fprintf(c.w, "Source Table: <%s>\n", nameStyle.Render(e.Table))
		c.separator()
	case IndexExported:
		fmt.Fprintf(c.w, "Exporting Index: <%s> to <%s>\n", nameStyle.Render(e.Index), nameStyle.Render(e.Path))
	case ExportFinished:
		c.separator()
		fmt.Fprintln(c.w, successStyle.Render(fmt.Sprintf(
			"DONE Exported %d indexes from %d tables in %d schemas (%s)",
			e.Indexes, e.Tables, e.Schemas, round(e.Elapsed))))
	case CollectFinished:
		fmt.Fprintf(c.w, "Collected %d statement files from <%s>\n", e.Files, nameStyle.Render(e.Root))
	case ReplayStarted:
		fmt.Fprintf(c.w, "Replaying %d statements with %d workers %s\n",
			e.Items, e.Workers, mutedStyle.Render("run "+e.RunID))
	case StatementStarted:
		if c.verbose {
			fmt.Fprintf(c.w, "%s executing <%s>\n", mutedStyle.Render(fmt.Sprintf("[worker %d]", e.Worker)), nameStyle.Render(e.Label))
		}
	case StatementFinished:
		if e.Err == "" {
			fmt.Fprintf(c.w, "%s %s %s\n", successStyle.Render(iconSuccess), e.Label, mutedStyle.Render(round(e.Elapsed).String()))
		} else {
			fmt.Fprintf(c.w, "%s %s %s\n  %s\n", errorStyle.Render(iconError), e.Label, mutedStyle.Render(round(e.Elapsed).String()), errorStyle.Render(e.Err))
		}
	case WorkerFailed:
		fmt.Fprintln(c.w, errorStyle.Render(fmt.Sprintf("worker %d stopped: %s", e.Worker, e.Err)))
	case ReplayFinished:
		c.separator()
		line := fmt.Sprintf("Succeeded: %d  Failed: %d", e.Succeeded, e.Failed)
		if e.Skipped > 0 {
			line += fmt.Sprintf("  Skipped: %d", e.Skipped)
		}
		line += fmt.Sprintf("  (%s)", round(e.Elapsed))
		switch {
		case e.WorkerFailures > 0:
			fmt.Fprintln(c.w, errorStyle.Render(fmt.Sprintf("%s  Worker failures: %d", line, e.WorkerFailures)))
		case e.Failed > 0:
			fmt.Fprintln(c.w, errorStyle.Render(line))
		default:
			fmt.Fprintln(c.w, successStyle.Render("DONE "+line))
		}
	}
}

func round(d time.Duration) time.Duration {
	if d >= time.Second {
		return d.Round(time.Millisecond)
	}
	return d.Round(time.Microsecond)
}
