package scan

import (
	"errors"
	"go/parser"
	"go/scanner"
	"go/token"

	"fortio.org/safecast"

	"autoplugin/internal/diag"
	"autoplugin/internal/source"
)

// maxSyntaxErrors bounds how many Go syntax errors one file reports.
const maxSyntaxErrors = 10

// ParseFile parses the declaration headers of a loaded file and extracts
// its markers. Function bodies are only searched for stray
// marker comments. Syntax
// errors are reported and the second result is false.
func ParseFile(f *source.File, reporter diag.Reporter) (Raw, bool) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, f.Path, f.Content, parser.ParseComments|parser.SkipObjectResolution)
	if err != nil {
		reportSyntax(f.ID, err, reporter)
		return Raw{}, false
	}
	return Extract(fset.File(file.Pos()), file), true
}

// Scan is ParseFile followed by Classify.
func Scan(f *source.File, reporter diag.Reporter) (*Result, bool) {
	raw, ok := ParseFile(f, reporter)
	if !ok {
		return nil, false
	}
	return Classify(f.ID, &raw, reporter), true
}

func reportSyntax(id source.FileID, err error, reporter diag.Reporter) {
	var list scanner.ErrorList
	if !errors.As(err, &list) {
		diag.ReportError(reporter, diag.ScanGoSyntax, source.Span{File: id}, err.Error()).Emit()
		return
	}
	for i, e := range list {
		if i == maxSyntaxErrors {
			break
		}
		off, convErr := safecast.Conv[uint32](e.Pos.Offset)
		if convErr != nil {
			off = 0
		}
		diag.ReportError(reporter, diag.ScanGoSyntax, source.Span{File: id, Start: off, End: off}, e.Msg).Emit()
	}
}

