package model

import (
	"fmt"
	"strings"
)

const (
	// DefaultBinPattern names the nodes that hold one table of levels
	DefaultBinPattern = "qcom,gpu-pwrlevels"
	// DefaultLevelPattern names a single level node, followed by @index
	DefaultLevelPattern = "qcom,gpu-pwrlevel"
)

// Level is one frequency/voltage operating point. Lines holds the raw
// property statements of the level node, in order.
type Level struct {
	ID    string
	Lines []string
}

// Clone returns a copy that shares no memory with l
func (l Level) Clone() Level {
	return Level{ID: l.ID, Lines: append([]string(nil), l.Lines...)}
}

// Equal compares the level contents, ignoring identity
func (l Level) Equal(o Level) bool {
	if len(l.Lines) != len(o.Lines) {
		return false
	}
	for i := range l.Lines {
		if l.Lines[i] != o.Lines[i] {
			return false
		}
	}
	return true
}

// Bin is a group of levels selected by one speed-bin
type Bin struct {
	ID     int
	Header []string
	Levels []Level
}

// Clone returns a deep copy of b
func (b Bin) Clone() Bin {
	levels := make([]Level, len(b.Levels))
	for i, l := range b.Levels {
		levels[i] = l.Clone()
	}
	return Bin{
		ID:     b.ID,
		Header: append([]string(nil), b.Header...),
		Levels: levels,
	}
}

// CloneBins deep-copies a bin list
func CloneBins(bins []Bin) []Bin {
	out := make([]Bin, len(bins))
	for i, b := range bins {
		out[i] = b.Clone()
	}
	return out
}

// Snapshot is an immutable copy of the table view at a given version
type Snapshot struct {
	Version uint64
	Bins    []Bin
}

// Strategy tells how levels are grouped in a chip's tree
type Strategy int

const (
	StrategyUnknown Strategy = iota
	StrategySingleBin
	StrategyMultiBin
)

func (s Strategy) String() string {
	switch s {
	case StrategySingleBin:
		return "single-bin"
	case StrategyMultiBin:
		return "multi-bin"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler
func (s Strategy) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (s *Strategy) UnmarshalText(text []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(text))) {
	case "single-bin", "single":
		*s = StrategySingleBin
	case "multi-bin", "multi":
		*s = StrategyMultiBin
	case "unknown", "":
		*s = StrategyUnknown
	default:
		return fmt.Errorf("unknown strategy %q", text)
	}
	return nil
}

// ChipDefinition describes where a chip keeps its GPU tables
type ChipDefinition struct {
	Name             string            `yaml:"name" validate:"required"`
	Models           []string          `yaml:"models" validate:"required,min=1,dive,required"`
	MaxTableLevels   int               `yaml:"max_table_levels" validate:"gte=1"`
	IgnoreVoltTable  bool              `yaml:"ignore_volt_table"`
	MinLevelOffset   int               `yaml:"min_level_offset" validate:"gte=0"`
	VoltTablePattern string            `yaml:"volt_table_pattern,omitempty"`
	StrategyType     Strategy          `yaml:"strategy" validate:"gt=0"`
	LevelCount       int               `yaml:"level_count" validate:"gte=0"`
	Levels           map[uint64]string `yaml:"levels,omitempty"`
	BinPattern       string            `yaml:"bin_pattern,omitempty"`
	LevelPattern     string            `yaml:"level_pattern,omitempty"`
}

// WithDefaults fills in the locating patterns when they are empty
func (d ChipDefinition) WithDefaults() ChipDefinition {
	if d.BinPattern == "" {
		d.BinPattern = DefaultBinPattern
	}
	if d.LevelPattern == "" {
		d.LevelPattern = DefaultLevelPattern
	}
	return d
}

// Label looks up the human name of a voltage level code
func (d ChipDefinition) Label(code uint64) (string, bool) {
	label, ok := d.Levels[code]
	return label, ok
}

// Confidence is the ordered certainty of a scan
type Confidence int

const (
	ConfidenceNone Confidence = iota
	ConfidenceLow
	ConfidenceMedium
	ConfidenceHigh
)

func (c Confidence) String() string {
	switch c {
	case ConfidenceLow:
		return "low"
	case ConfidenceMedium:
		return "medium"
	case ConfidenceHigh:
		return "high"
	default:
		return "none"
	}
}

// ScanResult is the scanner's recommendation for an unrecognized tree.
// Empty strings stand for "not found".
type ScanResult struct {
	RecommendedStrategy Strategy
	MaxLevels           int
	VoltageTablePattern string
	DetectedModel       string
	Confidence          Confidence
	IsValid             bool
	Groups              []string
	BinPattern          string
	LevelPattern        string
}

// Definition converts the scan into a chip definition the projector accepts
func (r ScanResult) Definition() ChipDefinition {
	name := r.DetectedModel
	if name == "" {
		name = "scanned"
	}
	return ChipDefinition{
		Name:             name,
		Models:           []string{name},
		MaxTableLevels:   r.MaxLevels,
		IgnoreVoltTable:  r.VoltageTablePattern == "",
		VoltTablePattern: r.VoltageTablePattern,
		StrategyType:     r.RecommendedStrategy,
		BinPattern:       r.BinPattern,
		LevelPattern:     r.LevelPattern,
	}.WithDefaults()
}
