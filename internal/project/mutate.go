package project

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/pstuifzand/dtsedit/internal/codec"
	"github.com/pstuifzand/dtsedit/internal/model"
)

// InsertLevel inserts level at index (0..len) of a bin. A level without an
// ID gets a fresh one.
func (d *Document) InsertLevel(bin, index int, level model.Level) error {
	b, err := d.bin(bin)
	if err != nil {
		return err
	}
	if index < 0 || index > len(b.Levels) {
		return fmt.Errorf("%w: insert at %d of %d levels", ErrInvalidIndex, index, len(b.Levels))
	}
	if err := d.checkFull(b); err != nil {
		return err
	}
	level, err = d.normalizeLevel(level)
	if err != nil {
		return err
	}

	b.Levels = insertLevel(b.Levels, index, level)
	d.shiftPointers(b, func(v int) int {
		if v >= index {
			return v + 1
		}
		return v
	})
	return d.commit(bin)
}

// AddLevelTop inserts a copy of the first level at the top of a bin
func (d *Document) AddLevelTop(bin int) error {
	return d.DuplicateLevel(bin, 0, 0)
}

// AddLevelBottom appends a copy of the last level to a bin
func (d *Document) AddLevelBottom(bin int) error {
	b, err := d.bin(bin)
	if err != nil {
		return err
	}
	n := len(b.Levels)
	return d.DuplicateLevel(bin, n-1, n)
}

// DuplicateLevel inserts a copy of level src at index dst (0..len)
func (d *Document) DuplicateLevel(bin, src, dst int) error {
	b, err := d.bin(bin)
	if err != nil {
		return err
	}
	if src < 0 || src >= len(b.Levels) {
		return fmt.Errorf("%w: level %d of %d", ErrInvalidIndex, src, len(b.Levels))
	}
	level := b.Levels[src].Clone()
	level.ID = ""
	return d.InsertLevel(bin, dst, level)
}

// DeleteLevel removes the level at index
func (d *Document) DeleteLevel(bin, index int) error {
	b, err := d.bin(bin)
	if err != nil {
		return err
	}
	if index < 0 || index >= len(b.Levels) {
		return fmt.Errorf("%w: level %d of %d", ErrInvalidIndex, index, len(b.Levels))
	}
	if len(b.Levels) == 1 {
		return ErrTableEmpty
	}

	b.Levels = append(b.Levels[:index], b.Levels[index+1:]...)
	last := len(b.Levels) - 1
	d.shiftPointers(b, func(v int) int {
		if v > index || v > last {
			v--
		}
		return max(v, 0)
	})
	return d.commit(bin)
}

// MoveLevel moves the level at from to index to, shifting the levels in
// between by one. Moving a level onto itself is a no-op.
func (d *Document) MoveLevel(bin, from, to int) error {
	b, err := d.bin(bin)
	if err != nil {
		return err
	}
	n := len(b.Levels)
	if from < 0 || from >= n || to < 0 || to >= n {
		return fmt.Errorf("%w: move %d to %d of %d levels", ErrInvalidIndex, from, to, n)
	}
	if from == to {
		return nil
	}

	level := b.Levels[from]
	b.Levels = append(b.Levels[:from], b.Levels[from+1:]...)
	b.Levels = insertLevel(b.Levels, to, level)
	return d.commit(bin)
}

// UpdateLine replaces one property line of a level. The text is validated
// and stored in canonical statement form.
func (d *Document) UpdateLine(bin, level, line int, text string) error {
	b, err := d.bin(bin)
	if err != nil {
		return err
	}
	if level < 0 || level >= len(b.Levels) {
		return fmt.Errorf("%w: level %d of %d", ErrInvalidIndex, level, len(b.Levels))
	}
	lines := b.Levels[level].Lines
	if line < 0 || line >= len(lines) {
		return fmt.Errorf("%w: line %d of %d", ErrInvalidIndex, line, len(lines))
	}
	canonical, err := d.levelLine(text)
	if err != nil {
		return err
	}
	if lines[line] == canonical {
		return nil
	}
	lines[line] = canonical
	return d.commit(bin)
}

// UpdateHeaderLine replaces one property line of the bin node itself
func (d *Document) UpdateHeaderLine(bin, line int, text string) error {
	b, err := d.bin(bin)
	if err != nil {
		return err
	}
	if line < 0 || line >= len(b.Header) {
		return fmt.Errorf("%w: header line %d of %d", ErrInvalidIndex, line, len(b.Header))
	}
	p, err := d.codec.Decode(text)
	if err != nil {
		return err
	}
	if b.Header[line] == p.Line() {
		return nil
	}
	b.Header[line] = p.Line()
	return d.commit(bin)
}

// ApplyOffset adds delta to the numeric property field of every level in a
// bin that carries it. Either every level is updated or none is.
func (d *Document) ApplyOffset(bin int, field string, delta int64) error {
	b, err := d.bin(bin)
	if err != nil {
		return err
	}

	type edit struct {
		level, line int
		text        string
	}
	var edits []edit
	for li, level := range b.Levels {
		for ln, text := range level.Lines {
			p, err := d.codec.Decode(text)
			if err != nil || p.Name != field {
				continue
			}
			v, err := codec.Uint(p)
			if err != nil {
				return fmt.Errorf("level %d: %w", li, err)
			}
			next, ok := offset(v, delta)
			if !ok {
				return fmt.Errorf("%w: level %d %s %d%+d", ErrOutOfRange, li, field, v, delta)
			}
			edits = append(edits, edit{li, ln, d.codec.Encode(field, next)})
		}
	}
	if len(edits) == 0 {
		return fmt.Errorf("%w: %s", ErrUnknownField, field)
	}
	if delta == 0 {
		return nil
	}

	for _, e := range edits {
		b.Levels[e.level].Lines[e.line] = e.text
	}
	return d.commit(bin)
}

// offset adds delta to v, reporting false when the result leaves uint64
func offset(v uint64, delta int64) (uint64, bool) {
	if delta >= 0 {
		next := v + uint64(delta)
		return next, next >= v
	}
	mag := uint64(-(delta + 1)) + 1
	return v - mag, mag <= v
}

// RestoreBin replaces a bin wholesale, identities included. History uses it
// to undo and redo bin mutations.
func (d *Document) RestoreBin(bin int, state model.Bin) error {
	if _, err := d.bin(bin); err != nil {
		return err
	}
	d.bins[bin] = state.Clone()
	return d.commit(bin)
}

func (d *Document) bin(index int) (*model.Bin, error) {
	if index < 0 || index >= len(d.bins) {
		return nil, fmt.Errorf("%w: bin %d of %d", ErrInvalidIndex, index, len(d.bins))
	}
	return &d.bins[index], nil
}

func (d *Document) checkFull(b *model.Bin) error {
	if d.chip.MaxTableLevels > 0 && len(b.Levels) >= d.chip.MaxTableLevels {
		return fmt.Errorf("%w: %d levels", ErrTableFull, d.chip.MaxTableLevels)
	}
	return nil
}

func (d *Document) normalizeLevel(level model.Level) (model.Level, error) {
	out := model.Level{ID: level.ID}
	if out.ID == "" {
		out.ID = uuid.NewString()
	}
	for _, text := range level.Lines {
		line, err := d.levelLine(text)
		if err != nil {
			return model.Level{}, err
		}
		out.Lines = append(out.Lines, line)
	}
	return out, nil
}

func (d *Document) levelLine(text string) (string, error) {
	p, err := d.codec.Decode(text)
	if err != nil {
		return "", err
	}
	if p.Name == "reg" {
		return "", ErrReservedProperty
	}
	return p.Line(), nil
}

// commit mirrors a bin into the tree and publishes a new version
func (d *Document) commit(bin int) error {
	if err := d.mirror(bin); err != nil {
		return err
	}
	d.bins[bin].ID = d.binID(d.tree.Node(d.nodes[bin]))
	d.touch()
	return nil
}

func insertLevel(levels []model.Level, i int, level model.Level) []model.Level {
	levels = append(levels, model.Level{})
	copy(levels[i+1:], levels[i:])
	levels[i] = level
	return levels
}
