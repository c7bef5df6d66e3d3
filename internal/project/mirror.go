package project

import (
	"fmt"
	"strconv"

	"github.com/pstuifzand/dtsedit/internal/codec"
	"github.com/pstuifzand/dtsedit/internal/model"
)

// header properties that hold a level index
var levelPointers = []string{
	"qcom,initial-pwrlevel",
	"qcom,ca-target-pwrlevel",
}

const minPowerLevel = "qcom,min-pwrlevel"

// shiftPointers rewrites header properties that refer to levels by index
// after the level list changed size
func (d *Document) shiftPointers(b *model.Bin, shift func(int) int) {
	for i, line := range b.Header {
		p, err := d.codec.Decode(line)
		if err != nil {
			continue
		}
		v, err := codec.Uint(p)
		if err != nil {
			continue
		}
		switch {
		case isPointer(p.Name):
			b.Header[i] = d.codec.Encode(p.Name, uint64(shift(int(v))))
		case p.Name == minPowerLevel:
			lowest := len(b.Levels) - d.chip.MinLevelOffset
			lowest = min(max(lowest, 0), len(b.Levels)-1)
			b.Header[i] = d.codec.Encode(p.Name, uint64(lowest))
		}
	}
}

func isPointer(name string) bool {
	for _, n := range levelPointers {
		if n == name {
			return true
		}
	}
	return false
}

// mirror writes the bin view back to the bin node. Header properties are
// updated in place. Each level keeps its node, renamed to LevelPattern@i
// with reg = <i>, so labels and comments inside it survive; only changed
// lines are rewritten. Levels without a node get a new one.
func (d *Document) mirror(bin int) error {
	b := &d.bins[bin]
	id := d.nodes[bin]
	if err := d.mirrorHeader(id, b.Header); err != nil {
		return fmt.Errorf("bin %d header: %w", b.ID, err)
	}

	var old []model.NodeID
	attached := make(map[model.NodeID]bool)
	for _, c := range d.tree.Node(id).Children {
		if d.tree.Node(c).BaseName() == d.chip.LevelPattern {
			old = append(old, c)
			attached[c] = true
		}
	}

	next := make([]model.NodeID, len(b.Levels))
	used := make(map[model.NodeID]bool, len(b.Levels))
	for i, level := range b.Levels {
		c, ok := d.levelNodes[level.ID]
		if !ok || used[c] || (!attached[c] && d.tree.Node(c).Parent != model.NoNode) {
			fresh := d.tree.NewNode(d.chip.LevelPattern)
			if !used[c] {
				d.levelNodes[level.ID] = fresh
			}
			c = fresh
		}
		used[c] = true
		next[i] = c
		if err := d.mirrorLevel(c, i, level); err != nil {
			return fmt.Errorf("bin %d level %d: %w", b.ID, i, err)
		}
	}
	d.tree.ArrangeChildren(id, old, next)
	return nil
}

// mirrorLevel names level node c after position i and syncs its
// properties with the level lines
func (d *Document) mirrorLevel(c model.NodeID, i int, level model.Level) error {
	props := make([]model.Property, len(level.Lines))
	for j, line := range level.Lines {
		p, err := d.codec.Decode(line)
		if err != nil {
			return err
		}
		props[j] = p
	}

	n := d.tree.Node(c)
	n.Name = d.chip.LevelPattern + "@" + strconv.Itoa(i)
	reg := d.codec.Property("reg", uint64(i))
	if r := n.PropertyIndex("reg"); r < 0 {
		d.tree.InsertProperty(c, reg)
	} else if v, err := codec.Uint(n.Properties[r]); err != nil || v != uint64(i) {
		d.tree.ReplaceProperty(c, r, reg)
	}

	var lines []int // property index per level line
	for j, p := range n.Properties {
		if p.Name != "reg" {
			lines = append(lines, j)
		}
	}
	for j, p := range props {
		switch {
		case j >= len(lines):
			d.tree.InsertProperty(c, p)
		case n.Properties[lines[j]].Line() != level.Lines[j]:
			d.tree.ReplaceProperty(c, lines[j], p)
		}
	}
	for j := len(lines) - 1; j >= len(props); j-- {
		d.tree.RemoveProperty(c, lines[j])
	}
	return nil
}

// mirrorHeader writes changed header lines back to the bin node's
// properties. Unchanged lines keep their original text.
func (d *Document) mirrorHeader(id model.NodeID, header []string) error {
	n := d.tree.Node(id)
	if len(header) == len(n.Properties) {
		for i, line := range header {
			if n.Properties[i].Line() == line {
				continue
			}
			p, err := d.codec.Decode(line)
			if err != nil {
				return err
			}
			d.tree.ReplaceProperty(id, i, p)
		}
		return nil
	}

	props := make([]model.Property, 0, len(header))
	for _, line := range header {
		p, err := d.codec.Decode(line)
		if err != nil {
			return err
		}
		props = append(props, p)
	}
	for len(n.Properties) > 0 {
		d.tree.RemoveProperty(id, len(n.Properties)-1)
	}
	for _, p := range props {
		d.tree.InsertProperty(id, p)
	}
	return nil
}
