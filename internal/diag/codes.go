package diag

import (
	"fmt"
)

type Code uint16

const (
	UnknownCode Code = 0

	// marker scanning
	ScanInfo            Code = 1000
	ScanParse           Code = 1001
	ScanUnknownMarker   Code = 1002
	ScanMisplaced       Code = 1003
	ScanGenericArity    Code = 1004
	ScanGoSyntax        Code = 1005
	ScanConflictingMode Code = 1006

	// cross-invocation unit state
	UnitInfo             Code = 2000
	UnitDuplicate        Code = 2001
	UnitAlreadyFinalized Code = 2002
	UnitFinalizeTwice    Code = 2003
	UnitMissingFinalize  Code = 2004

	// code synthesis
	GenInfo         Code = 3000
	GenFormatFailed Code = 3001
	GenStale        Code = 3002
	GenConflict     Code = 3003

	IOLoadFileError  Code = 4001
	IOWriteFileError Code = 4002

	ObsInfo    Code = 6000
	ObsTimings Code = 6001
)

var (
	codeDescription = map[Code]string{
		UnknownCode:          "Unknown error",
		ScanInfo:             "Scan information",
		ScanParse:            "Malformed marker arguments",
		ScanUnknownMarker:    "Unknown autoplugin marker",
		ScanMisplaced:        "Marker not allowed on this declaration",
		ScanGenericArity:     "Generic instantiation does not match type parameters",
		ScanGoSyntax:         "Go syntax error",
		ScanConflictingMode:  "Package and file plugin entries conflict",
		UnitInfo:             "Unit information",
		UnitDuplicate:        "Duplicate target",
		UnitAlreadyFinalized: "Contribution after plugin entry",
		UnitFinalizeTwice:    "Plugin entry declared twice",
		UnitMissingFinalize:  "Missing plugin entry",
		GenInfo:              "Generation information",
		GenFormatFailed:      "Generated code failed to format",
		GenStale:             "Generated file is out of date",
		GenConflict:          "Generated routines conflict",
		IOLoadFileError:      "I/O load file error",
		IOWriteFileError:     "I/O write file error",
		ObsInfo:              "Observability information",
		ObsTimings:           "Pipeline timings",
	}
)

func (c Code) ID() string {
	switch ic := int(c); {
	case ic >= 1000 && ic < 2000:
		return fmt.Sprintf("SCN%04d", ic)
	case ic >= 2000 && ic < 3000:
		return fmt.Sprintf("UNT%04d", ic)
	case ic >= 3000 && ic < 4000:
		return fmt.Sprintf("GEN%04d", ic)
	case ic >= 4000 && ic < 5000:
		return fmt.Sprintf("IO%04d", ic)
	case ic >= 6000 && ic < 7000:
		return fmt.Sprintf("OBS%04d", ic)
	}
	return "E0000"
}

func (c Code) Title() string {
	desc, ok := codeDescription[c]
	if !ok {
		return codeDescription[UnknownCode]
	}
	return desc
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}
