package diag

import (
	"autoplugin/internal/source"
)

type Note struct {
	Span source.Span
	Msg  string
}

// Diagnostic is one finding of a pass. Primary may be the zero span when
// the finding belongs to a whole unit rather than a site; Subject then
// names the unit.
type Diagnostic struct {
	Severity Severity
	Code     Code
	Message  string
	Primary  source.Span
	Subject  string
	Notes    []Note
}

// HasSpan reports whether the diagnostic points into a loaded file.
func (d Diagnostic) HasSpan() bool {
	return d.Subject == ""
}
