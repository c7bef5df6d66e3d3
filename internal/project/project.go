// Package project exposes the GPU frequency tables of a device tree as
// bins and levels, and mirrors every edit of that view back into the tree.
//
// A Document owns its tree. Bins are addressed by their position in the
// document (not by speed-bin ID), levels by their position in the bin.
package project

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/pstuifzand/dtsedit/internal/codec"
	"github.com/pstuifzand/dtsedit/internal/model"
)

// Document is the editable table view of one tree
type Document struct {
	tree  *model.Tree
	chip  model.ChipDefinition
	codec *codec.Codec

	nodes []model.NodeID // bin node per bin
	bins  []model.Bin

	// level node per level ID, detached ones included so that restoring
	// a level brings its node back
	levelNodes map[string]model.NodeID

	version uint64
	snap    *model.Snapshot
}

// Project locates the frequency tables described by chip and projects them
// into bins. The document takes ownership of tree.
func Project(tree *model.Tree, chip model.ChipDefinition, c *codec.Codec) (*Document, error) {
	if c == nil {
		c = codec.New()
	}
	d := &Document{
		tree:  tree,
		chip:  chip.WithDefaults(),
		codec: c,

		levelNodes: make(map[string]model.NodeID),
	}
	if err := d.locate(); err != nil {
		return nil, err
	}
	for i := range d.nodes {
		d.bins = append(d.bins, d.project(d.nodes[i], nil))
	}
	return d, nil
}

// locate finds the bin nodes in pre-order
func (d *Document) locate() error {
	strategy := d.chip.StrategyType
	if strategy == model.StrategyMultiBin || strategy == model.StrategyUnknown {
		d.nodes = d.findBins(true)
		if len(d.nodes) > 0 || strategy == model.StrategyMultiBin {
			if len(d.nodes) == 0 {
				return fmt.Errorf("%w: no %s node with a speed-bin", ErrUnmatchedPattern, d.chip.BinPattern)
			}
			return nil
		}
	}
	single := d.findBins(false)
	if len(single) == 0 {
		return fmt.Errorf("%w: no %s node", ErrUnmatchedPattern, d.chip.BinPattern)
	}
	d.nodes = single[:1]
	return nil
}

func (d *Document) findBins(multi bool) []model.NodeID {
	var found []model.NodeID
	d.tree.Walk(func(id model.NodeID, _ int) bool {
		n := d.tree.Node(id)
		if !strings.HasPrefix(n.Name, d.chip.BinPattern) {
			return true
		}
		_, hasBin := speedBin(n)
		if multi && !hasBin {
			return true
		}
		found = append(found, id)
		return false
	})
	return found
}

// speedBin returns the value of the node's *speed-bin property
func speedBin(n *model.Node) (int, bool) {
	for i := len(n.Properties) - 1; i >= 0; i-- {
		p := n.Properties[i]
		if !strings.HasSuffix(p.Name, "speed-bin") {
			continue
		}
		v, err := codec.Uint(p)
		if err != nil {
			return 0, false
		}
		return int(v), true
	}
	return 0, false
}

func (d *Document) binID(n *model.Node) int {
	if d.chip.StrategyType == model.StrategySingleBin {
		return 0
	}
	id, _ := speedBin(n)
	return id
}

// project builds the bin view of a bin node. Level IDs are taken from prev
// by position when given.
func (d *Document) project(id model.NodeID, prev *model.Bin) model.Bin {
	n := d.tree.Node(id)
	bin := model.Bin{ID: d.binID(n)}
	for _, p := range n.Properties {
		bin.Header = append(bin.Header, p.Line())
	}
	for _, c := range n.Children {
		child := d.tree.Node(c)
		if child.BaseName() != d.chip.LevelPattern {
			continue
		}
		level := model.Level{}
		for _, p := range child.Properties {
			if p.Name == "reg" {
				continue
			}
			level.Lines = append(level.Lines, p.Line())
		}
		if prev != nil && len(bin.Levels) < len(prev.Levels) {
			level.ID = prev.Levels[len(bin.Levels)].ID
		} else {
			level.ID = uuid.NewString()
		}
		d.levelNodes[level.ID] = c
		bin.Levels = append(bin.Levels, level)
	}
	return bin
}

// Refresh re-projects every bin after the tree was edited in place.
// Level identities are kept by position.
func (d *Document) Refresh() error {
	prev := d.bins
	d.nodes = nil
	d.bins = nil
	if err := d.locate(); err != nil {
		d.bins = prev
		return err
	}
	for _, id := range d.nodes {
		var old *model.Bin
		binID := d.binID(d.tree.Node(id))
		for i := range prev {
			if prev[i].ID == binID {
				old = &prev[i]
				break
			}
		}
		d.bins = append(d.bins, d.project(id, old))
	}
	d.touch()
	return nil
}

// Tree returns the underlying tree
func (d *Document) Tree() *model.Tree {
	return d.tree
}

// Chip returns the chip definition the document was projected with
func (d *Document) Chip() model.ChipDefinition {
	return d.chip
}

// Codec returns the property codec used for edits
func (d *Document) Codec() *codec.Codec {
	return d.codec
}

// Version increases with every mutation
func (d *Document) Version() uint64 {
	return d.version
}

// Follow moves the version past v. A document that takes the place of
// another follows it, so versions keep increasing across the swap.
func (d *Document) Follow(v uint64) {
	if d.version <= v {
		d.version = v + 1
	}
}

// Len returns the number of bins
func (d *Document) Len() int {
	return len(d.bins)
}

// Bin returns a copy of the bin at index
func (d *Document) Bin(index int) (model.Bin, error) {
	if index < 0 || index >= len(d.bins) {
		return model.Bin{}, fmt.Errorf("%w: bin %d of %d", ErrInvalidIndex, index, len(d.bins))
	}
	return d.bins[index].Clone(), nil
}

// BinIndex returns the position of the bin with the given speed-bin ID
func (d *Document) BinIndex(id int) (int, bool) {
	for i, b := range d.bins {
		if b.ID == id {
			return i, true
		}
	}
	return -1, false
}

// BinPath returns the tree path of the bin node at index
func (d *Document) BinPath(index int) string {
	if index < 0 || index >= len(d.nodes) {
		return ""
	}
	return d.tree.Path(d.nodes[index])
}

// Snapshot returns the bins at the current version. Snapshots are shared
// between callers until the next mutation and must not be modified.
func (d *Document) Snapshot() model.Snapshot {
	if d.snap == nil || d.snap.Version != d.version {
		d.snap = &model.Snapshot{Version: d.version, Bins: model.CloneBins(d.bins)}
	}
	return *d.snap
}

// Bins returns a deep copy of all bins
func (d *Document) Bins() []model.Bin {
	return model.CloneBins(d.bins)
}

func (d *Document) touch() {
	d.version++
}
