// Package scan guesses where the GPU frequency tables of an unknown chip
// live. It is used when no chip definition matches the device.
package scan

import (
	"slices"
	"strconv"
	"strings"

	"github.com/pstuifzand/dtsedit/internal/codec"
	"github.com/pstuifzand/dtsedit/internal/model"
)

// KGSL allocates at least this many power level slots
const minLevelSlots = 16

var voltageTableMarkers = []string{"opp-table", "opp_table", "gpu-opp"}

type group struct {
	id       model.NodeID
	parent   model.NodeID
	path     string
	name     string
	levels   []model.NodeID
	marker   bool
	speedBin bool
}

// Scan inspects tree and recommends a table strategy. It never fails: an
// inconclusive scan returns StrategyUnknown with IsValid false.
func Scan(tree *model.Tree) model.ScanResult {
	result := model.ScanResult{
		DetectedModel:       detectModel(tree),
		VoltageTablePattern: findVoltageTable(tree),
	}

	groups := findGroups(tree)
	var marked []group
	for _, g := range groups {
		if g.marker {
			marked = append(marked, g)
		}
	}
	if len(marked) > 0 {
		groups = marked
	}
	if len(groups) == 0 {
		return result
	}

	result.IsValid = true
	result.RecommendedStrategy = model.StrategySingleBin
	for _, g := range groups {
		result.Groups = append(result.Groups, g.path)
		result.MaxLevels = max(result.MaxLevels, len(g.levels))
	}
	slices.Sort(result.Groups)
	result.MaxLevels = max(result.MaxLevels, minLevelSlots)

	siblings := siblingGroups(groups)
	if len(siblings) >= 2 {
		result.RecommendedStrategy = model.StrategyMultiBin
		groups = siblings
	}
	result.BinPattern = binPattern(groups)
	result.LevelPattern = tree.Node(groups[0].levels[0]).BaseName()

	switch {
	case len(marked) == 0:
		result.Confidence = model.ConfidenceLow
	case consistent(tree, groups) && result.VoltageTablePattern != "" &&
		(result.RecommendedStrategy == model.StrategySingleBin || allSpeedBins(groups)):
		result.Confidence = model.ConfidenceHigh
	default:
		result.Confidence = model.ConfidenceMedium
	}
	return result
}

// findGroups returns nodes with at least two level-shaped children, in
// pre-order
func findGroups(tree *model.Tree) []group {
	var groups []group
	tree.Walk(func(id model.NodeID, _ int) bool {
		n := tree.Node(id)
		var levels []model.NodeID
		for _, c := range n.Children {
			if isLevel(tree.Node(c)) {
				levels = append(levels, c)
			}
		}
		if len(levels) < 2 {
			return true
		}
		groups = append(groups, group{
			id:       id,
			parent:   n.Parent,
			path:     tree.Path(id),
			name:     n.Name,
			levels:   levels,
			marker:   strings.Contains(n.Name, "pwrlevel"),
			speedBin: hasSpeedBin(n),
		})
		return true
	})
	return groups
}

func isLevel(n *model.Node) bool {
	for _, p := range n.Properties {
		if strings.HasSuffix(p.Name, "gpu-freq") {
			return true
		}
	}
	return false
}

func hasSpeedBin(n *model.Node) bool {
	for _, p := range n.Properties {
		if strings.HasSuffix(p.Name, "speed-bin") {
			return true
		}
	}
	return false
}

// siblingGroups returns the first set of groups that share a parent, when
// there is more than one of them
func siblingGroups(groups []group) []group {
	for i, g := range groups {
		siblings := []group{g}
		for _, o := range groups[i+1:] {
			if o.parent == g.parent {
				siblings = append(siblings, o)
			}
		}
		if len(siblings) >= 2 {
			return siblings
		}
	}
	return nil
}

// binPattern is the common name prefix of the groups, without a trailing
// separator or unit address
func binPattern(groups []group) string {
	prefix := groups[0].name
	if i := strings.IndexByte(prefix, '@'); i >= 0 {
		prefix = prefix[:i]
	}
	for _, g := range groups[1:] {
		for !strings.HasPrefix(g.name, prefix) {
			prefix = prefix[:len(prefix)-1]
		}
	}
	return strings.TrimRight(prefix, "-_@")
}

// consistent reports whether every level node is named with the same base
// and numbered by its position
func consistent(tree *model.Tree, groups []group) bool {
	base := tree.Node(groups[0].levels[0]).BaseName()
	for _, g := range groups {
		for i, id := range g.levels {
			n := tree.Node(id)
			if n.Name != base+"@"+strconv.Itoa(i) && n.Name != base+"@"+strconv.FormatInt(int64(i), 16) {
				return false
			}
		}
	}
	return true
}

func allSpeedBins(groups []group) bool {
	for _, g := range groups {
		if !g.speedBin {
			return false
		}
	}
	return true
}

// findVoltageTable returns the base name of the first op-point table that
// holds opp-hz entries
func findVoltageTable(tree *model.Tree) string {
	found := ""
	tree.Walk(func(id model.NodeID, _ int) bool {
		if found != "" {
			return false
		}
		n := tree.Node(id)
		if !containsAny(n.Name, voltageTableMarkers) {
			return true
		}
		for _, c := range n.Children {
			if _, ok := tree.Node(c).Property("opp-hz"); ok {
				found = n.BaseName()
				return false
			}
		}
		return true
	})
	return found
}

func containsAny(s string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}

// detectModel returns the model string of the root node, else its first
// compatible string
func detectModel(tree *model.Tree) string {
	id, ok := tree.Find("/")
	if !ok {
		return ""
	}
	n := tree.Node(id)
	for _, name := range []string{"model", "compatible"} {
		if p, ok := n.Property(name); ok {
			if values := codec.Strings(p); len(values) > 0 {
				return values[0]
			}
		}
	}
	return ""
}
