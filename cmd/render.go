package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/pulsetrace/pulse/internal/hooks"
	"github.com/pulsetrace/pulse/internal/reconcile"
	"github.com/pulsetrace/pulse/internal/style"
)

// nameWidth aligns agent names in listings.
const nameWidth = 12

func stateMark(st hooks.HookStatus) style.Mark {
	switch st.State() {
	case hooks.StateFull:
		if st.Outdated {
			return style.MarkPartial
		}
		return style.MarkOK
	case hooks.StatePartial:
		return style.MarkPartial
	case hooks.StateNotInstalled:
		return style.MarkMissing
	default:
		return style.MarkAbsent
	}
}

// agentLine renders one agent's state, e.g. "✓ Claude Code  installed (10/10)".
func agentLine(s *style.Styles, a reconcile.AgentStatus) string {
	name := fmt.Sprintf("%-*s", nameWidth, a.DisplayName)
	if a.Err != nil {
		return fmt.Sprintf("%s %s %s", s.Mark(style.MarkFailed), name, s.Error.Render(style.TruncateString(a.Err.Error(), 80)))
	}
	st := a.HookStatus
	text := st.State().String()
	if st.Detected {
		text += " (" + st.Summary() + ")"
	}
	line := fmt.Sprintf("%s %s %s", s.Mark(stateMark(st)), name, text)
	if st.Message != "" {
		line += " " + s.Muted.Render("- "+st.Message)
	}
	return line
}

// outcomeLine renders one Connect, Disconnect, or Repair outcome.
func outcomeLine(s *style.Styles, o reconcile.Outcome, removing bool) string {
	name := fmt.Sprintf("%-*s", nameWidth, o.DisplayName)
	switch {
	case o.Err != nil:
		return fmt.Sprintf("%s %s %s", s.Mark(style.MarkFailed), name, s.Error.Render(o.Err.Error()))
	case o.Skipped():
		return fmt.Sprintf("%s %s %s", s.Mark(style.MarkAbsent), name, s.Muted.Render("not detected, skipped"))
	}
	r := o.Result
	var parts []string
	if n := len(r.Added); n > 0 {
		parts = append(parts, fmt.Sprintf("added %s", plural(n, "hook")))
	}
	if n := len(r.Updated); n > 0 {
		parts = append(parts, fmt.Sprintf("updated %s", plural(n, "hook")))
	}
	if n := len(r.Removed); n > 0 {
		parts = append(parts, fmt.Sprintf("removed %s", plural(n, "hook")))
	}
	if len(parts) == 0 {
		if removing {
			parts = append(parts, "nothing to remove")
		} else {
			parts = append(parts, "already up to date")
		}
	}
	line := fmt.Sprintf("%s %s %s", s.Mark(style.MarkOK), name, strings.Join(parts, ", "))
	if r.Changed() && r.Path != "" {
		line += " " + s.Muted.Render("("+r.Path+")")
	}
	return line
}

func printReport(w io.Writer, s *style.Styles, report reconcile.Report, removing bool) {
	for _, o := range report.Outcomes {
		fmt.Fprintln(w, outcomeLine(s, o, removing))
	}
}

func plural(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}

// printPreview renders dry-run diffs, unchanged files as a single line.
func printPreview(w io.Writer, s *style.Styles, previews []reconcile.FilePreview) {
	for _, p := range previews {
		name := fmt.Sprintf("%-*s", nameWidth, p.DisplayName)
		switch {
		case p.Err != nil:
			fmt.Fprintf(w, "%s %s %s\n", s.Mark(style.MarkFailed), name, s.Error.Render(p.Err.Error()))
			continue
		case !p.Changed():
			fmt.Fprintf(w, "%s %s %s\n", s.Mark(style.MarkOK), name, s.Muted.Render("no changes to "+p.Path))
			continue
		}
		header := "--- " + p.Path
		if p.Created {
			header += " (new file)"
		}
		fmt.Fprintln(w, s.DiffHeader.Render(header))
		for _, l := range p.Lines {
			switch l.Op {
			case reconcile.LineAdded:
				fmt.Fprintln(w, s.DiffAdded.Render("+ "+l.Text))
			case reconcile.LineRemoved:
				fmt.Fprintln(w, s.DiffRemoved.Render("- "+l.Text))
			default:
				fmt.Fprintln(w, s.DiffEqual.Render("  "+l.Text))
			}
		}
		fmt.Fprintln(w)
	}
}
