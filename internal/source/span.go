package source

import (
	"fmt"
	"go/token"

	"fortio.org/safecast"
)

// Span is a half-open byte range inside one file.
type Span struct {
	File  FileID
	Start uint32 // inclusive
	End   uint32 // exclusive
}

func (s Span) Empty() bool {
	return s.Start == s.End
}

func (s Span) Len() uint32 {
	return s.End - s.Start
}

func (s Span) String() string {
	return fmt.Sprintf("%d:%d-%d", s.File, s.Start, s.End)
}

// FromToken converts go/token positions of a parsed file into a Span.
// Invalid positions collapse to an empty span at offset zero.
func FromToken(id FileID, tf *token.File, pos, end token.Pos) Span {
	if tf == nil || !pos.IsValid() {
		return Span{File: id}
	}
	if !end.IsValid() || end < pos {
		end = pos
	}
	start, err := safecast.Conv[uint32](tf.Offset(pos))
	if err != nil {
		panic(fmt.Errorf("span start overflow: %w", err))
	}
	stop, err := safecast.Conv[uint32](tf.Offset(end))
	if err != nil {
		panic(fmt.Errorf("span end overflow: %w", err))
	}
	return Span{File: id, Start: start, End: stop}
}
