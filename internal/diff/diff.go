// Package diff compares two versions of a document's frequency tables and
// classifies every level as added, removed, modified or unchanged. Changes
// outside the tables are collected in a synthetic general bin.
package diff

import (
	"fmt"
	"strings"

	"github.com/pstuifzand/dtsedit/internal/codec"
	"github.com/pstuifzand/dtsedit/internal/dts"
	"github.com/pstuifzand/dtsedit/internal/model"
	"github.com/pstuifzand/dtsedit/internal/project"
)

// Bins diffs two bin lists. Bins are matched by ID; the result holds one
// entry per current bin in order, then one per removed bin, then the
// general bucket when it has entries.
func Bins(baseline, current []model.Bin, opts Options) []Result {
	var results []Result
	var general []Node

	used := make([]bool, len(baseline))
	for i, cur := range current {
		j := matchBin(baseline, used, cur.ID)
		var old model.Bin
		if j >= 0 {
			used[j] = true
			old = baseline[j]
		}
		results = append(results, Result{
			BinID:    cur.ID,
			BinIndex: i,
			Changes:  diffLevels(old.Levels, cur.Levels, opts),
		})
		general = append(general, diffHeader(cur.ID, old.Header, cur.Header, opts)...)
	}
	for j, old := range baseline {
		if used[j] {
			continue
		}
		results = append(results, Result{
			BinID:    old.ID,
			BinIndex: j,
			Changes:  diffLevels(old.Levels, nil, opts),
		})
		general = append(general, diffHeader(old.ID, old.Header, nil, opts)...)
	}

	if len(general) > 0 {
		results = append(results, Result{BinID: GeneralBin, BinIndex: GeneralBin, Changes: general})
	}
	return results
}

// Trees projects both trees with chip and diffs the result. Properties
// outside the table subtrees are reported in the general bucket with
// LevelIndex -1, followed by the line diff of the serialized texts.
func Trees(baseline, current *model.Tree, chip model.ChipDefinition, c *codec.Codec, opts Options) ([]Result, error) {
	if c == nil {
		c = opts.Codec
	}
	if opts.Levels == nil {
		opts.Levels = chip
	}
	if opts.Codec == nil {
		opts.Codec = c
	}

	// projecting takes ownership, the callers keep theirs
	oldDoc, err := project.Project(baseline.Clone(), chip, c)
	if err != nil {
		return nil, fmt.Errorf("project baseline: %w", err)
	}
	newDoc, err := project.Project(current.Clone(), chip, c)
	if err != nil {
		return nil, fmt.Errorf("project current: %w", err)
	}

	results := Bins(oldDoc.Bins(), newDoc.Bins(), opts)

	var general []Node
	if n := len(results); n > 0 && results[n-1].IsGeneral() {
		general = results[n-1].Changes
		results = results[:n-1]
	}
	general = append(general, diffGlobals(globals(oldDoc), globals(newDoc), opts)...)
	general = append(general, diffLines(
		dts.Serialize(oldDoc.Tree()), dts.Serialize(newDoc.Tree()), opts)...)

	if len(general) > 0 {
		results = append(results, Result{BinID: GeneralBin, BinIndex: GeneralBin, Changes: general})
	}
	return results, nil
}

func matchBin(bins []model.Bin, used []bool, id int) int {
	for i, b := range bins {
		if !used[i] && b.ID == id {
			return i
		}
	}
	return -1
}

// align pairs the levels of both sides according to the alignment mode
func align(old, cur []model.Level, mode Alignment) []pair {
	if mode == AlignAuto {
		mode = AlignLCS
		if sharesIdentity(old, cur) {
			mode = AlignIdentity
		}
	}
	switch mode {
	case AlignIdentity:
		return alignIdentity(levelIDs(old), levelIDs(cur))
	case AlignPosition:
		return alignPosition(len(old), len(cur))
	default:
		return alignKeys(levelKeys(old), levelKeys(cur))
	}
}

// sharesIdentity reports whether every level has an ID and at least one ID
// appears on both sides
func sharesIdentity(old, cur []model.Level) bool {
	ids := make(map[string]bool, len(old))
	for _, l := range old {
		if l.ID == "" {
			return false
		}
		ids[l.ID] = true
	}
	shared := false
	for _, l := range cur {
		if l.ID == "" {
			return false
		}
		if ids[l.ID] {
			shared = true
		}
	}
	return shared
}

func levelIDs(levels []model.Level) []string {
	out := make([]string, len(levels))
	for i, l := range levels {
		out[i] = l.ID
	}
	return out
}

func levelKeys(levels []model.Level) []string {
	out := make([]string, len(levels))
	for i, l := range levels {
		out[i] = strings.Join(l.Lines, "\n")
	}
	return out
}

func diffLevels(old, cur []model.Level, opts Options) []Node {
	var changes []Node
	for _, p := range align(old, cur, opts.Alignment) {
		var n Node
		switch {
		case p.old < 0:
			n = Node{
				Type:           Added,
				LevelIndex:     p.new,
				OldIndex:       -1,
				NewDescription: describe(cur[p.new], opts),
			}
		case p.new < 0:
			n = Node{
				Type:           Removed,
				LevelIndex:     p.old,
				OldIndex:       p.old,
				OldDescription: describe(old[p.old], opts),
			}
		case old[p.old].Equal(cur[p.new]):
			desc := describe(cur[p.new], opts)
			n = Node{
				Type:           Unchanged,
				LevelIndex:     p.new,
				OldIndex:       p.old,
				OldDescription: desc,
				NewDescription: desc,
			}
		default:
			removed, added := lineDelta(old[p.old].Lines, cur[p.new].Lines)
			n = Node{
				Type:           Modified,
				LevelIndex:     p.new,
				OldIndex:       p.old,
				OldDescription: withLines(describe(old[p.old], opts), removed),
				NewDescription: withLines(describe(cur[p.new], opts), added),
			}
		}
		if n.Type == Unchanged && !opts.IncludeUnchanged {
			continue
		}
		changes = append(changes, n)
	}
	return changes
}

// diffHeader reports header line changes of one bin with LevelIndex 0
func diffHeader(binID int, old, cur []string, opts Options) []Node {
	prefix := fmt.Sprintf("bin %d: ", binID)
	return classifyLines(alignKeys(old, cur), old, cur, opts, func(_ pair, line string) string {
		return prefix + line
	}, func(pair) int {
		return 0
	})
}

// diffLines reports changed lines of the serialized texts, numbered from 1
func diffLines(oldText, newText string, opts Options) []Node {
	if oldText == newText && !opts.IncludeUnchanged {
		return nil
	}
	old, cur := splitLines(oldText), splitLines(newText)
	return classifyLines(alignKeys(old, cur), old, cur, opts, func(_ pair, line string) string {
		return line
	}, func(p pair) int {
		if p.new < 0 {
			return p.old + 1
		}
		return p.new + 1
	})
}

func classifyLines(pairs []pair, old, cur []string, opts Options,
	render func(pair, string) string, index func(pair) int) []Node {
	var changes []Node
	for _, p := range pairs {
		n := Node{LevelIndex: index(p), OldIndex: p.old}
		if p.old >= 0 {
			n.OldDescription = render(p, old[p.old])
		}
		if p.new >= 0 {
			n.NewDescription = render(p, cur[p.new])
		}
		switch {
		case p.old < 0:
			n.Type = Added
		case p.new < 0:
			n.Type = Removed
		case old[p.old] == cur[p.new]:
			if !opts.IncludeUnchanged {
				continue
			}
			n.Type = Unchanged
		default:
			n.Type = Modified
		}
		changes = append(changes, n)
	}
	return changes
}

func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	return strings.Split(strings.TrimSuffix(text, "\n"), "\n")
}

// global is a property outside every bin subtree
type global struct {
	key  string // path, name and occurrence
	line string
}

func globals(doc *project.Document) []global {
	var skip []string
	for i := 0; i < doc.Len(); i++ {
		skip = append(skip, doc.BinPath(i))
	}

	tree := doc.Tree()
	var out []global
	tree.Walk(func(id model.NodeID, _ int) bool {
		path := tree.Path(id)
		for _, s := range skip {
			if path == s {
				return false
			}
		}
		seen := map[string]int{}
		for _, p := range tree.Node(id).Properties {
			seen[p.Name]++
			label := path
			if label == "" {
				label = "/"
			}
			out = append(out, global{
				key:  fmt.Sprintf("%s\x00%s\x00%d", path, p.Name, seen[p.Name]),
				line: label + ": " + p.Line(),
			})
		}
		return true
	})
	return out
}

// diffGlobals matches global properties by path and name. Current order
// comes first, removed properties follow in baseline order.
func diffGlobals(old, cur []global, opts Options) []Node {
	index := make(map[string]int, len(old))
	for i, g := range old {
		index[g.key] = i
	}
	used := make([]bool, len(old))

	var changes []Node
	for _, g := range cur {
		i, ok := index[g.key]
		if !ok {
			changes = append(changes, Node{Type: Added, LevelIndex: -1, OldIndex: -1, NewDescription: g.line})
			continue
		}
		used[i] = true
		n := Node{LevelIndex: -1, OldIndex: -1, OldDescription: old[i].line, NewDescription: g.line}
		if old[i].line == g.line {
			if !opts.IncludeUnchanged {
				continue
			}
			n.Type = Unchanged
		} else {
			n.Type = Modified
		}
		changes = append(changes, n)
	}
	for i, g := range old {
		if !used[i] {
			changes = append(changes, Node{Type: Removed, LevelIndex: -1, OldIndex: -1, OldDescription: g.line})
		}
	}
	return changes
}

// describe renders a level as "587 MHz, level 384" using the first
// gpu-freq and level properties, or the joined lines when it has neither
func describe(l model.Level, opts Options) string {
	c := opts.Codec
	if c == nil {
		c = codec.New()
	}
	var parts []string
	var freq, level bool
	for _, line := range l.Lines {
		p, err := c.Decode(line)
		if err != nil {
			continue
		}
		switch {
		case !freq && strings.HasSuffix(p.Name, "gpu-freq"):
			if v, err := codec.Uint(p); err == nil {
				parts = append(parts, codec.Frequency(v).String())
				freq = true
			}
		case !level && isLevelProperty(p.Name):
			if v, err := codec.Uint(p); err == nil {
				parts = append(parts, "level "+codec.LevelLabel(v, opts.Levels))
				level = true
			}
		}
	}
	if len(parts) == 0 {
		return strings.Join(l.Lines, " ")
	}
	return strings.Join(parts, ", ")
}

func isLevelProperty(name string) bool {
	base := name
	if i := strings.LastIndexByte(name, ','); i >= 0 {
		base = name[i+1:]
	}
	return base == "level"
}

// lineDelta returns the lines only present in old and only present in cur
func lineDelta(old, cur []string) (removed, added []string) {
	count := make(map[string]int, len(old))
	for _, l := range cur {
		count[l]++
	}
	for _, l := range old {
		if count[l] > 0 {
			count[l]--
			continue
		}
		removed = append(removed, l)
	}

	count = make(map[string]int, len(old))
	for _, l := range old {
		count[l]++
	}
	for _, l := range cur {
		if count[l] > 0 {
			count[l]--
			continue
		}
		added = append(added, l)
	}
	return removed, added
}

func withLines(desc string, lines []string) string {
	if len(lines) == 0 {
		return desc
	}
	return desc + " (" + strings.Join(lines, " ") + ")"
}
