package diagfmt

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"autoplugin/internal/diag"
	"autoplugin/internal/source"
)

type palette struct {
	err, warn, info, note, gutter, caret, bold *color.Color
}

func newPalette(enabled bool) palette {
	p := palette{
		err:    color.New(color.FgRed, color.Bold),
		warn:   color.New(color.FgYellow, color.Bold),
		info:   color.New(color.FgCyan, color.Bold),
		note:   color.New(color.FgGreen, color.Bold),
		gutter: color.New(color.FgBlue, color.Bold),
		caret:  color.New(color.FgRed),
		bold:   color.New(color.Bold),
	}
	for _, c := range []*color.Color{p.err, p.warn, p.info, p.note, p.gutter, p.caret, p.bold} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

func (p palette) severity(sev diag.Severity) *color.Color {
	switch sev {
	case diag.SevError:
		return p.err
	case diag.SevWarning:
		return p.warn
	default:
		return p.info
	}
}

// Pretty renders the diagnostics of bag in the order they are stored
// (call bag.Sort first):
//
//	error[UNT2001]: duplicate attribute
//	  --> game/a.go:4:1
//	   |
//	 4 | //autoplugin:register_type
//	   | ^^^^^^^^^^^^^^^^^^^^^^^^^^
//	   = note: first contributed here at game/a.go:3:1
func Pretty(w io.Writer, bag *diag.Bag, fs *source.FileSet, opts PrettyOpts) {
	p := newPalette(opts.Color)
	for i, d := range bag.Items() {
		if i > 0 {
			fmt.Fprintln(w)
		}
		prettyOne(w, d, fs, opts, p)
	}
}

func prettyOne(w io.Writer, d diag.Diagnostic, fs *source.FileSet, opts PrettyOpts, p palette) {
	label := fmt.Sprintf("%s[%s]", diag.SeverityLabel(d.Severity), d.Code.ID())
	fmt.Fprintf(w, "%s: %s\n", p.severity(d.Severity).Sprint(label), p.bold.Sprint(d.Message))

	if !d.HasSpan() || !knownFile(fs, d.Primary) {
		if d.Subject != "" {
			fmt.Fprintf(w, "  %s %s\n", p.gutter.Sprint("-->"), d.Subject)
		}
		writeNotes(w, d, fs, opts, p, 2)
		return
	}

	start, end := fs.Resolve(d.Primary)
	gutterWidth := len(fmt.Sprint(start.Line)) + 1
	pad := strings.Repeat(" ", gutterWidth)

	fmt.Fprintf(w, "%s%s %s:%d:%d\n", pad[1:], p.gutter.Sprint("-->"), formatPath(fs, d.Primary.File, opts.PathMode), start.Line, start.Col)
	fmt.Fprintf(w, "%s%s\n", pad, p.gutter.Sprint("|"))

	f := fs.Get(d.Primary.File)
	first := start.Line
	if opts.Context > 0 {
		ctx := uint32(opts.Context)
		if first > ctx {
			first -= ctx
		} else {
			first = 1
		}
	}
	for ln := first; ln <= start.Line; ln++ {
		num := fmt.Sprintf("%*d", gutterWidth-1, ln)
		fmt.Fprintf(w, "%s %s %s\n", p.gutter.Sprint(num), p.gutter.Sprint("|"), f.GetLine(ln))
	}

	line := f.GetLine(start.Line)
	fmt.Fprintf(w, "%s%s %s\n", pad, p.gutter.Sprint("|"), p.caret.Sprint(underline(line, start, end)))

	writeNotes(w, d, fs, opts, p, gutterWidth)
}

// underline builds the caret line under the primary span. Multi-line
// spans are underlined to the end of their first line.
func underline(line string, start, end source.LineCol) string {
	col := max(min(int(start.Col)-1, len(line)), 0)
	stop := len(line)
	if end.Line == start.Line {
		stop = max(min(int(end.Col)-1, len(line)), col)
	}
	var b strings.Builder
	for _, r := range line[:col] {
		if r == '\t' {
			b.WriteByte('\t')
			continue
		}
		b.WriteString(strings.Repeat(" ", runewidth.RuneWidth(r)))
	}
	b.WriteString(strings.Repeat("^", max(runewidth.StringWidth(line[col:stop]), 1)))
	return b.String()
}

func writeNotes(w io.Writer, d diag.Diagnostic, fs *source.FileSet, opts PrettyOpts, p palette, gutterWidth int) {
	if !opts.ShowNotes {
		return
	}
	pad := strings.Repeat(" ", gutterWidth)
	for _, note := range d.Notes {
		msg := note.Msg
		if knownFile(fs, note.Span) {
			loc, _ := diag.ResolveSpan(fs, note.Span)
			msg = fmt.Sprintf("%s at %s:%d:%d", msg, formatPath(fs, note.Span.File, opts.PathMode), loc.Line, loc.Column)
		}
		fmt.Fprintf(w, "%s%s %s %s\n", pad, p.gutter.Sprint("="), p.note.Sprint("note:"), msg)
	}
}
