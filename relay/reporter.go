package relay

import (
	"fmt"
	"io"
	"strconv"

	"github.com/fatih/color"
)

type ReporterOpt func(*TextReporter)

// WithColor colors the node index with the given attributes,
// regardless of whether the writer is a terminal.
func WithColor(attrs ...color.Attribute) ReporterOpt {
	return func(r *TextReporter) {
		r.prefix = color.New(attrs...)
		r.prefix.EnableColor()
	}
}

// TextReporter writes lines as "<index> : <line>".
type TextReporter struct {
	w      io.Writer
	prefix *color.Color
}

func NewTextReporter(w io.Writer, opts ...ReporterOpt) *TextReporter {
	r := &TextReporter{w: w}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *TextReporter) Report(index int, line string) error {
	idx := strconv.Itoa(index)
	if r.prefix != nil {
		idx = r.prefix.Sprint(idx)
	}
	_, err := fmt.Fprintf(r.w, "%s : %s\n", idx, line)
	return err
}
