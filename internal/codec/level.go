package codec

import "strconv"

// LevelTable maps encoded voltage level codes to human labels. The codec
// never interprets level codes itself.
type LevelTable interface {
	Label(code uint64) (string, bool)
}

// LevelMap is a LevelTable backed by a map
type LevelMap map[uint64]string

// Label implements LevelTable
func (m LevelMap) Label(code uint64) (string, bool) {
	label, ok := m[code]
	return label, ok
}

// LevelLabel returns the label for code, or the decimal code when the table
// has no entry (or no table is given)
func LevelLabel(code uint64, table LevelTable) string {
	if table != nil {
		if label, ok := table.Label(code); ok {
			return label
		}
	}
	return strconv.FormatUint(code, 10)
}
