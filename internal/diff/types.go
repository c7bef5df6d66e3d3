package diff

import (
	"fmt"
	"strings"

	"github.com/pstuifzand/dtsedit/internal/codec"
)

// GeneralBin is the bin ID of the synthetic bucket for changes outside the
// bin/level table
const GeneralBin = -1

// ChangeType classifies one diff entry
type ChangeType int

const (
	Unchanged ChangeType = iota
	Added
	Removed
	Modified
)

func (t ChangeType) String() string {
	switch t {
	case Added:
		return "ADDED"
	case Removed:
		return "REMOVED"
	case Modified:
		return "MODIFIED"
	default:
		return "UNCHANGED"
	}
}

// Node is one classified change. In a table bin LevelIndex is the level's
// position in the current bin (baseline bin for REMOVED) and OldIndex its
// baseline position, -1 when added. In the general bucket LevelIndex 0
// marks a bin header line, -1 a property outside the tables and a positive
// value the 1-based line of the serialized text.
type Node struct {
	Type           ChangeType
	LevelIndex     int
	OldIndex       int
	OldDescription string
	NewDescription string
}

// GUIRelevant reports whether a general entry belongs in the simplified view
func (n Node) GUIRelevant() bool {
	return n.LevelIndex <= 0
}

// Result holds the changes of one bin
type Result struct {
	BinID    int
	BinIndex int
	Changes  []Node
}

// IsGeneral reports whether r is the synthetic general bucket
func (r Result) IsGeneral() bool {
	return r.BinID < 0
}

// GUIRelevant returns the general entries shown in the simplified view
func (r Result) GUIRelevant() []Node {
	var out []Node
	for _, c := range r.Changes {
		if c.GUIRelevant() {
			out = append(out, c)
		}
	}
	return out
}

// RawOnly returns the general entries only shown in the full textual view
func (r Result) RawOnly() []Node {
	var out []Node
	for _, c := range r.Changes {
		if !c.GUIRelevant() {
			out = append(out, c)
		}
	}
	return out
}

// Alignment selects how levels of the two sides are paired
type Alignment int

const (
	// AlignAuto uses identity when both sides share level IDs, else LCS
	AlignAuto Alignment = iota
	// AlignIdentity pairs levels with the same ID
	AlignIdentity
	// AlignPosition pairs levels with the same index
	AlignPosition
	// AlignLCS anchors on identical levels and pairs the rest by position
	AlignLCS
)

func (a Alignment) String() string {
	switch a {
	case AlignIdentity:
		return "identity"
	case AlignPosition:
		return "position"
	case AlignLCS:
		return "lcs"
	default:
		return "auto"
	}
}

// ParseAlignment parses the configuration name of an alignment
func ParseAlignment(s string) (Alignment, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return AlignAuto, nil
	case "identity", "id":
		return AlignIdentity, nil
	case "position", "index":
		return AlignPosition, nil
	case "lcs":
		return AlignLCS, nil
	}
	return AlignAuto, fmt.Errorf("unknown alignment %q", s)
}

// UnmarshalText implements encoding.TextUnmarshaler
func (a *Alignment) UnmarshalText(text []byte) error {
	v, err := ParseAlignment(string(text))
	if err != nil {
		return err
	}
	*a = v
	return nil
}

// MarshalText implements encoding.TextMarshaler
func (a Alignment) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// Options control a diff run
type Options struct {
	Alignment        Alignment
	IncludeUnchanged bool
	Codec            *codec.Codec
	Levels           codec.LevelTable
}

// Summary counts changes by type
type Summary struct {
	Added     int
	Removed   int
	Modified  int
	Unchanged int
}

// Changed returns the number of entries that are not UNCHANGED
func (s Summary) Changed() int {
	return s.Added + s.Removed + s.Modified
}

// Summarize counts the changes of all results
func Summarize(results []Result) Summary {
	var s Summary
	for _, r := range results {
		for _, c := range r.Changes {
			switch c.Type {
			case Added:
				s.Added++
			case Removed:
				s.Removed++
			case Modified:
				s.Modified++
			default:
				s.Unchanged++
			}
		}
	}
	return s
}
