package reconcile

import (
	"context"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/pulsetrace/pulse/internal/hooks"
	"github.com/pulsetrace/pulse/internal/span"
)

// LineOp classifies a diff line.
type LineOp int

const (
	LineEqual LineOp = iota
	LineAdded
	LineRemoved
)

// DiffLine is one line of a file preview.
type DiffLine struct {
	Op   LineOp
	Text string
}

// FilePreview is one file Connect would write.
type FilePreview struct {
	Agent       span.Source
	DisplayName string
	Path        string
	Created     bool
	Lines       []DiffLine
	Err         error
}

// Changed reports whether the file would differ after install.
func (p FilePreview) Changed() bool {
	for _, l := range p.Lines {
		if l.Op != LineEqual {
			return true
		}
	}
	return false
}

// Preview computes, without writing, the line diff of every file Connect
// would touch on detected agents.
func (r *Reconciler) Preview(ctx context.Context) []FilePreview {
	var out []FilePreview
	for _, a := range r.adapters {
		if ctx.Err() != nil {
			break
		}
		pv, ok := a.(hooks.Previewer)
		if !ok || !a.Detect() {
			continue
		}
		changes, err := pv.PreviewInstall()
		if err != nil {
			out = append(out, FilePreview{Agent: a.Name(), DisplayName: a.DisplayName(), Err: err})
			continue
		}
		for _, c := range changes {
			out = append(out, FilePreview{
				Agent:       a.Name(),
				DisplayName: a.DisplayName(),
				Path:        c.Path,
				Created:     c.Before == nil,
				Lines:       LineDiff(string(c.Before), string(c.After)),
			})
		}
	}
	return out
}

// LineDiff returns a line-level diff of before and after.
func LineDiff(before, after string) []DiffLine {
	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	var out []DiffLine
	for _, d := range diffs {
		op := LineEqual
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			op = LineAdded
		case diffmatchpatch.DiffDelete:
			op = LineRemoved
		}
		for _, text := range splitLines(d.Text) {
			out = append(out, DiffLine{Op: op, Text: text})
		}
	}
	return out
}

func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(strings.TrimSuffix(s, "\n"), "\n")
}
