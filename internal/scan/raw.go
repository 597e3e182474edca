package scan

// DeclKind distinguishes the declarations markers may sit on.
type DeclKind uint8

const (
	DeclType DeclKind = iota + 1
	DeclFunc
	// DeclMethod and DeclValue never accept markers. They are recorded so
	// that a marker placed on them is reported instead of lost.
	DeclMethod
	DeclValue
)

func (k DeclKind) String() string {
	switch k {
	case DeclType:
		return "type"
	case DeclFunc:
		return "func"
	case DeclMethod:
		return "method"
	case DeclValue:
		return "value"
	}
	return "unknown"
}

// noun is the kind as used in placement messages.
func (k DeclKind) noun() string {
	switch k {
	case DeclType:
		return "a type"
	case DeclFunc:
		return "a function"
	case DeclMethod:
		return "a method"
	case DeclValue:
		return "a var or const"
	}
	return "unknown"
}

// RawMarker is one marker comment line with its byte range in the file.
type RawMarker struct {
	Text  string
	Start uint32
	End   uint32
}

// RawDecl is a declaration header: enough to validate markers, nothing
// about the body. Methods are named Recv.Name.
type RawDecl struct {
	Name       string
	Kind       DeclKind
	TypeParams []string
	Start      uint32
	End        uint32
	Markers    []RawMarker
}

// Import is one entry of a file's import table. Name is the qualifier the
// file uses for the package.
type Import struct {
	Name string
	Path string
}

// Raw is everything the scanner needs from one file. It holds plain data
// only, so it can be cached between runs keyed by the file content.
type Raw struct {
	Package        string
	PackageMarkers []RawMarker
	Imports        []Import
	// Names lists every top-level identifier the file declares, marked
	// or not, methods excluded.
	Names []string
	Decls []RawDecl
	// Orphans are marker lines no declaration owns: separated from the
	// next declaration by a blank line, trailing, or inside a body.
	Orphans []RawMarker
}
