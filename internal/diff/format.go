package diff

import (
	"fmt"
	"strings"
)

// DiffLineType indicates the type of diff line for rendering
type DiffLineType int

const (
	DiffTypeHeader DiffLineType = iota
	DiffTypeNewItem
	DiffTypeDeletedItem
	DiffTypeModifiedItem
	DiffTypeUnchangedItem
	DiffTypeItemDetail
	DiffTypeSummary
	DiffTypeBlank
)

// DiffLine represents a rendered line in diff output
type DiffLine struct {
	Type    DiffLineType
	Content string
	Indent  int // Indentation level
}

// BuildDiffLines converts diff results into formatted display lines.
// This is suitable for both CLI and terminal output. The raw line changes
// of the general bucket are only included when verbose is set.
func BuildDiffLines(results []Result, verbose bool) []DiffLine {
	var lines []DiffLine

	for _, r := range results {
		changes := r.Changes
		if r.IsGeneral() && !verbose {
			changes = r.GUIRelevant()
		}
		if len(changes) == 0 {
			continue
		}

		// Bin header
		header := fmt.Sprintf("Bin %d (index %d):", r.BinID, r.BinIndex)
		if r.IsGeneral() {
			header = "General:"
		}
		lines = append(lines, DiffLine{Type: DiffTypeHeader, Content: header})

		for _, c := range changes {
			lines = append(lines, formatChange(r, c)...)
		}
		lines = append(lines, DiffLine{Type: DiffTypeBlank})
	}

	// Summary section
	s := Summarize(results)
	if s.Changed() > 0 {
		lines = append(lines, DiffLine{Type: DiffTypeSummary, Content: "=== Summary ==="})
		lines = append(lines, DiffLine{
			Type: DiffTypeSummary,
			Content: fmt.Sprintf("  %d modified, %d added, %d removed",
				s.Modified, s.Added, s.Removed),
		})
	}

	return lines
}

// formatChange creates display lines for one change
func formatChange(r Result, c Node) []DiffLine {
	where := fmt.Sprintf("level %d", c.LevelIndex)
	if r.IsGeneral() {
		switch {
		case c.LevelIndex == 0:
			where = "header"
		case c.LevelIndex < 0:
			where = "property"
		default:
			where = fmt.Sprintf("line %d", c.LevelIndex)
		}
	}

	switch c.Type {
	case Added:
		return []DiffLine{{
			Type:    DiffTypeNewItem,
			Content: fmt.Sprintf("+ %s: %s", where, truncateText(c.NewDescription, 60)),
			Indent:  1,
		}}
	case Removed:
		return []DiffLine{{
			Type:    DiffTypeDeletedItem,
			Content: fmt.Sprintf("- %s: %s", where, truncateText(c.OldDescription, 60)),
			Indent:  1,
		}}
	case Modified:
		lines := []DiffLine{{
			Type:    DiffTypeModifiedItem,
			Content: fmt.Sprintf("~ %s", where),
			Indent:  1,
		}}
		if !r.IsGeneral() && c.OldIndex != c.LevelIndex {
			lines = append(lines, DiffLine{
				Type:    DiffTypeItemDetail,
				Content: fmt.Sprintf("POSITION: %d → %d", c.OldIndex, c.LevelIndex),
				Indent:  2,
			})
		}
		return append(lines, DiffLine{
			Type: DiffTypeItemDetail,
			Content: fmt.Sprintf("%s → %s",
				truncateText(c.OldDescription, 40),
				truncateText(c.NewDescription, 40)),
			Indent: 2,
		})
	default:
		return []DiffLine{{
			Type:    DiffTypeUnchangedItem,
			Content: fmt.Sprintf("  %s: %s", where, truncateText(c.NewDescription, 60)),
			Indent:  1,
		}}
	}
}

// truncateText limits text length for display
func truncateText(text string, maxLen int) string {
	// Handle multi-line text
	lines := strings.Split(text, "\n")
	text = lines[0]
	if len(lines) > 1 {
		text += " ..."
	}

	if len(text) > maxLen {
		return text[:maxLen] + "..."
	}
	return text
}
