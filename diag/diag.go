// Package diag carries the observational events of the typesetting core:
// underfull, loose, tight and overfull boxes, and paragraph and page traces.
// Reporting never changes what the core does.
package diag

import (
	"fmt"

	"github.com/ByLCY/quire/node"
	"github.com/ByLCY/quire/scaled"
)

// Kind classifies an event.
type Kind int

const (
	Underfull Kind = iota
	Loose
	Tight
	Overfull
	TraceParagraph
	TracePage
	// InfiniteShrink precedes the error that ends a pass over glue that
	// can shrink infinitely.
	InfiniteShrink
)

func (k Kind) String() string {
	switch k {
	case Underfull:
		return "underfull"
	case Loose:
		return "loose"
	case Tight:
		return "tight"
	case Overfull:
		return "overfull"
	case TraceParagraph:
		return "paragraph"
	case TracePage:
		return "page"
	case InfiniteShrink:
		return "infinite shrink"
	default:
		return "unknown"
	}
}

// Event describes one diagnostic condition.
type Event struct {
	Kind Kind
	// Vertical is set for \vbox events.
	Vertical bool
	Badness  int
	// Excess is the amount by which an overfull box is too large.
	Excess scaled.Scaled
	Box    *node.Box
	// Message holds trace text.
	Message string
}

func (e Event) String() string {
	box := "\\hbox"
	if e.Vertical {
		box = "\\vbox"
	}
	switch e.Kind {
	case Overfull:
		what := "wide"
		if e.Vertical {
			what = "high"
		}
		return fmt.Sprintf("Overfull %s (%spt too %s)", box, e.Excess, what)
	case Underfull, Loose, Tight:
		label := map[Kind]string{Underfull: "Underfull", Loose: "Loose", Tight: "Tight"}[e.Kind]
		return fmt.Sprintf("%s %s (badness %d)", label, box, e.Badness)
	default:
		return e.Message
	}
}

// Reporter receives events.
type Reporter interface {
	Report(Event)
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(Event)

// Report calls f(e).
func (f ReporterFunc) Report(e Event) { f(e) }

// Discard drops every event.
var Discard Reporter = ReporterFunc(func(Event) {})

// Recorder keeps events in order; tests inspect it.
type Recorder struct {
	Events []Event
}

// Report appends e.
func (r *Recorder) Report(e Event) { r.Events = append(r.Events, e) }

// Count returns how many recorded events have kind k.
func (r *Recorder) Count(k Kind) int {
	n := 0
	for _, e := range r.Events {
		if e.Kind == k {
			n++
		}
	}
	return n
}

// ReportShrink reports err as an InfiniteShrink event and returns it.
func ReportShrink(r Reporter, vertical bool, err error) error {
	if r != nil && err != nil {
		r.Report(Event{Kind: InfiniteShrink, Vertical: vertical, Message: err.Error()})
	}
	return err
}

// Tracef reports a trace message when r is not nil.
func Tracef(r Reporter, k Kind, format string, args ...any) {
	if r == nil {
		return
	}
	r.Report(Event{Kind: k, Message: fmt.Sprintf(format, args...)})
}
