// Package monitor prints the progress of long running harness steps, one
// colored line per node.
package monitor

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/fatih/color"
)

var (
	okColor      = color.New(color.FgGreen)
	laggingColor = color.New(color.FgYellow)
	errorColor   = color.New(color.FgRed)
	headerColor  = color.New(color.Bold)
	faintColor   = color.New(color.Faint)
)

// NodeStatus is one node's line in a progress report.
type NodeStatus struct {
	Alias  string
	Height uint64
	Tip    string
	Err    error
	// Ok marks nodes that already reached the expected state.
	Ok bool
}

// Progress writes reports for one labelled step.
type Progress struct {
	mu      sync.Mutex
	out     io.Writer
	label   string
	start   time.Time
	reports int
}

// NewProgress creates a Progress writing to out, or to stdout if out is nil.
func NewProgress(out io.Writer, label string) *Progress {
	if out == nil {
		out = os.Stdout
	}
	return &Progress{
		out:   out,
		label: label,
		start: time.Now(),
	}
}

// Label ...
func (p *Progress) Label() string {
	return p.label
}

// Reports returns the number of reports written so far.
func (p *Progress) Reports() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.reports
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}

// Report writes the status of every node.
func (p *Progress) Report(statuses []NodeStatus) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.reports++
	_, _ = headerColor.Fprintf(p.out, "[%s] %s\n", p.label, time.Since(p.start).Round(time.Millisecond))
	for _, s := range statuses {
		switch {
		case s.Err != nil:
			_, _ = errorColor.Fprintf(p.out, "  %-16s error: %v\n", s.Alias, s.Err)
		case s.Ok:
			_, _ = okColor.Fprintf(p.out, "  %-16s height %-8d tip %s\n", s.Alias, s.Height, shortHash(s.Tip))
		default:
			_, _ = laggingColor.Fprintf(p.out, "  %-16s height %-8d tip %s\n", s.Alias, s.Height, shortHash(s.Tip))
		}
	}
}

// Info writes a neutral message.
func (p *Progress) Info(format string, args ...interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, _ = faintColor.Fprintf(p.out, "[%s] %s\n", p.label, fmt.Sprintf(format, args...))
}

// Success closes the step successfully.
func (p *Progress) Success(format string, args ...interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, _ = okColor.Fprintf(p.out, "[%s] OK: %s\n", p.label, fmt.Sprintf(format, args...))
}

// Failure closes the step with an error.
func (p *Progress) Failure(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, _ = errorColor.Fprintf(p.out, "[%s] FAILED: %v\n", p.label, err)
}
