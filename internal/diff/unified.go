package diff

import (
	"bytes"

	"github.com/pmezard/go-difflib/difflib"
	godiff "github.com/sourcegraph/go-diff/diff"
)

// ContextLines is the number of unchanged lines around each hunk
const ContextLines = 3

// Unified renders a unified diff of two DTS texts. Equal texts give an
// empty string.
func Unified(oldName, newName, oldText, newText string) (string, error) {
	if oldText == newText {
		return "", nil
	}
	fd := &godiff.FileDiff{
		OrigName: oldName,
		NewName:  newName,
		Hunks:    Hunks(oldText, newText),
	}
	out, err := godiff.PrintFileDiff(fd)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// Hunks computes the hunks between two texts with ContextLines of context.
// Changes closer than two contexts apart share a hunk.
func Hunks(oldText, newText string) []*godiff.Hunk {
	old, cur := splitLines(oldText), splitLines(newText)
	// closing braces repeat too often for the popularity heuristic
	m := difflib.NewMatcherWithJunk(old, cur, false, nil)

	var hunks []*godiff.Hunk
	for _, group := range m.GetGroupedOpCodes(ContextLines) {
		first, last := group[0], group[len(group)-1]
		h := &godiff.Hunk{
			OrigLines: int32(last.I2 - first.I1),
			NewLines:  int32(last.J2 - first.J1),
		}
		h.OrigStartLine = int32(first.I1)
		if h.OrigLines > 0 {
			h.OrigStartLine++
		}
		h.NewStartLine = int32(first.J1)
		if h.NewLines > 0 {
			h.NewStartLine++
		}

		var body bytes.Buffer
		write := func(kind byte, lines []string) {
			for _, line := range lines {
				body.WriteByte(kind)
				body.WriteString(line)
				body.WriteByte('\n')
			}
		}
		for _, c := range group {
			if c.Tag == 'e' {
				write(' ', old[c.I1:c.I2])
				continue
			}
			// removed lines come before added ones
			write('-', old[c.I1:c.I2])
			write('+', cur[c.J1:c.J2])
		}
		h.Body = body.Bytes()
		hunks = append(hunks, h)
	}
	return hunks
}
