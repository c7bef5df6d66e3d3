// Package app holds the editing session: one document, its undo history
// and the boot image it was loaded from.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/pstuifzand/dtsedit/internal/chips"
	"github.com/pstuifzand/dtsedit/internal/codec"
	"github.com/pstuifzand/dtsedit/internal/diff"
	"github.com/pstuifzand/dtsedit/internal/dts"
	"github.com/pstuifzand/dtsedit/internal/history"
	"github.com/pstuifzand/dtsedit/internal/logging"
	"github.com/pstuifzand/dtsedit/internal/model"
	"github.com/pstuifzand/dtsedit/internal/project"
	"github.com/pstuifzand/dtsedit/internal/scan"
)

// BootImage supplies the DTS text of a boot image and takes the edited
// text back. Implementations do the container and privilege work.
type BootImage interface {
	ReadDTS(ctx context.Context) (string, error)
	WriteDTS(ctx context.Context, text string) error
}

// Options configures a session
type Options struct {
	Image BootImage
	Chips chips.Lookup
	// Chip forces a definition instead of looking up the device identity
	Chip  *model.ChipDefinition
	Codec *codec.Codec
	Diff  diff.Options

	Logger     *slog.Logger
	MaxHistory int

	// Journal records saved edits under JournalName when set
	Journal     *history.Journal
	JournalName string
}

// Session is a single-writer editing session. All methods are safe for
// concurrent use; mutations are serialized.
type Session struct {
	mu   sync.Mutex
	opts Options
	log  *slog.Logger

	doc      *project.Document
	scan     model.ScanResult
	baseline *model.Tree // tree at the last load or save
	history  *history.Stack
	savedAt  int // history cursor at the last save, for the journal

	pendingText string
	parseErr    error
}

// NewSession creates an empty session
func NewSession(opts Options) *Session {
	if opts.Codec == nil {
		opts.Codec = codec.New()
	}
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	if opts.Diff.Codec == nil {
		opts.Diff.Codec = opts.Codec
	}
	return &Session{
		opts:    opts,
		log:     opts.Logger,
		history: history.NewStack(opts.MaxHistory),
	}
}

// Load reads the boot image and makes its text the saved baseline
func (s *Session) Load(ctx context.Context) error {
	if s.opts.Image == nil {
		return ErrNoImage
	}
	text, err := s.opts.Image.ReadDTS(ctx)
	if err != nil {
		return classify("load", err)
	}
	tree, err := dts.Parse(text)
	if err != nil {
		return fmt.Errorf("load: %w", err)
	}
	return s.Open(tree)
}

// Open replaces the document with tree and makes it the saved baseline.
// History is cleared.
func (s *Session) Open(tree *model.Tree) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, result, err := s.project(tree.Clone())
	if err != nil {
		return err
	}
	s.install(doc, result)
	s.baseline = tree.Clone()
	s.history.Clear(true)
	s.savedAt = 0
	s.pendingText = ""
	s.parseErr = nil
	s.log.Info("document opened", "chip", doc.Chip().Name, "bins", doc.Len())
	return nil
}

// project resolves the chip definition of tree and projects it
func (s *Session) project(tree *model.Tree) (*project.Document, model.ScanResult, error) {
	result := scan.Scan(tree)
	chip, err := s.resolve(result)
	if err != nil {
		return nil, result, err
	}
	doc, err := project.Project(tree, chip, s.opts.Codec)
	if err != nil {
		return nil, result, err
	}
	return doc, result, nil
}

func (s *Session) resolve(result model.ScanResult) (model.ChipDefinition, error) {
	if s.opts.Chip != nil {
		return *s.opts.Chip, nil
	}
	if s.opts.Chips != nil {
		if d, ok := s.opts.Chips.Lookup(result.DetectedModel); ok {
			return d, nil
		}
	}
	if result.IsValid {
		s.log.Info("no chip definition, using scan", "model", result.DetectedModel,
			"strategy", result.RecommendedStrategy, "confidence", result.Confidence)
		return result.Definition(), nil
	}
	return model.ChipDefinition{}, fmt.Errorf("%w: unsupported chipset %q", project.ErrUnmatchedPattern, result.DetectedModel)
}

// Save serializes the document into the boot image and makes it the new
// baseline
func (s *Session) Save(ctx context.Context) error {
	if s.opts.Image == nil {
		return ErrNoImage
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		return ErrNoDocument
	}

	text := dts.Serialize(s.doc.Tree())
	if err := s.opts.Image.WriteDTS(ctx, text); err != nil {
		return classify("save", err)
	}

	s.journal()
	s.history.MarkSaved()
	s.savedAt = s.history.Cursor()
	s.baseline = s.doc.Tree().Clone()
	s.log.Info("document saved", "bytes", len(text))
	return nil
}

// journal appends the edits applied since the last save
func (s *Session) journal() {
	if s.opts.Journal == nil || s.opts.JournalName == "" {
		return
	}
	cursor := s.history.Cursor()
	descriptions := s.history.Descriptions()
	var records []string
	switch {
	case cursor > s.savedAt:
		records = descriptions[max(s.savedAt, 0):cursor]
	case cursor < s.savedAt:
		records = []string{fmt.Sprintf("reverted %d edits", s.savedAt-cursor)}
	}
	if len(records) == 0 {
		return
	}
	if err := s.opts.Journal.Append(s.opts.JournalName, records...); err != nil {
		s.log.Warn("failed to write journal", "error", err)
	}
}

// SetText replaces the document with a full re-parse of text. When text
// does not parse, or no table can be found in it, the text is kept as
// PendingText and the current document stays in place.
func (s *Session) SetText(text string) error {
	tree, err := dts.Parse(text)
	if err != nil {
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.reject(text, err)
	}
	return s.apply(text, tree)
}

// ApplyParsed installs the result of a background parse
func (s *Session) ApplyParsed(r ParseResult) error {
	if r.Err != nil {
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.reject(r.Text, r.Err)
	}
	return s.apply(r.Text, r.Tree)
}

func (s *Session) apply(text string, tree *model.Tree) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, result, err := s.project(tree)
	if err != nil {
		return s.reject(text, err)
	}
	if s.doc == nil {
		s.install(doc, result)
		s.baseline = doc.Tree().Clone()
		s.pendingText, s.parseErr = "", nil
		return nil
	}

	prev, prevScan := s.doc, s.scan
	s.install(doc, result)
	s.pendingText, s.parseErr = "", nil
	s.history.Push(history.Entry{
		Description: "replace text",
		Undo:        func() { s.install(prev, prevScan) },
		Redo:        func() { s.install(doc, result) },
	})
	return nil
}

// install makes doc the current document. Its version follows the one it
// replaces.
func (s *Session) install(doc *project.Document, scan model.ScanResult) {
	if s.doc != nil {
		doc.Follow(s.doc.Version())
	}
	s.doc, s.scan = doc, scan
}

// reject keeps text that could not be used as the pending text
func (s *Session) reject(text string, err error) error {
	s.pendingText = text
	s.parseErr = err
	s.log.Info("text rejected, keeping last valid document", "error", err)
	return err
}

// PendingText returns text that failed to parse, or ""
func (s *Session) PendingText() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pendingText
}

// ParseError returns the error of the pending text, or nil
func (s *Session) ParseError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.parseErr
}

// ReplacePropertyLine re-encodes one property of the node at path without
// re-parsing the document
func (s *Session) ReplacePropertyLine(path string, index int, line string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		return ErrNoDocument
	}

	tree := s.doc.Tree()
	id, ok := tree.Find(path)
	if !ok {
		return s.ignoreInvalid(fmt.Errorf("%w: no node %q", project.ErrInvalidIndex, path))
	}
	node := tree.Node(id)
	if index < 0 || index >= len(node.Properties) {
		return s.ignoreInvalid(fmt.Errorf("%w: property %d of %d", project.ErrInvalidIndex, index, len(node.Properties)))
	}
	prop, err := s.opts.Codec.Decode(line)
	if err != nil {
		return err
	}
	// numeric cells are stored in the style of the property name
	if prop, err = s.opts.Codec.Decode(s.opts.Codec.Format(prop)); err != nil {
		return err
	}

	old := node.Properties[index]
	// bin edits may replace the node, so it is looked up by path each time
	swap := func(p model.Property) error {
		id, ok := s.doc.Tree().Find(path)
		if !ok {
			return fmt.Errorf("%w: no node %q", project.ErrInvalidIndex, path)
		}
		s.doc.Tree().ReplaceProperty(id, index, p)
		return s.doc.Refresh()
	}
	if err := swap(prop); err != nil {
		if rerr := swap(old); rerr != nil {
			s.log.Error("failed to restore property", "path", path, "error", rerr)
		}
		return err
	}

	s.history.Push(history.Entry{
		Description: fmt.Sprintf("set %s in %s", prop.Name, pathLabel(path)),
		Undo:        func() { s.warn(swap(old)) },
		Redo:        func() { s.warn(swap(prop)) },
	})
	return nil
}

// mutate runs an edit of one bin and records it in the history. An
// invalid index is logged and ignored.
func (s *Session) mutate(bin int, description string, edit func(d *project.Document) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		return ErrNoDocument
	}

	before, err := s.doc.Bin(bin)
	if err != nil {
		return s.ignoreInvalid(err)
	}
	version := s.doc.Version()
	if err := edit(s.doc); err != nil {
		return s.ignoreInvalid(err)
	}
	if s.doc.Version() == version {
		return nil
	}
	after, _ := s.doc.Bin(bin)

	s.history.Push(history.Entry{
		Description: description,
		Undo:        func() { s.warn(s.doc.RestoreBin(bin, before)) },
		Redo:        func() { s.warn(s.doc.RestoreBin(bin, after)) },
	})
	s.log.Debug("edit applied", "description", description, "version", s.doc.Version())
	return nil
}

// ignoreInvalid turns an invalid index into a logged no-op
func (s *Session) ignoreInvalid(err error) error {
	if errors.Is(err, project.ErrInvalidIndex) {
		s.log.Warn("ignoring edit", "error", err)
		return nil
	}
	return err
}

func (s *Session) warn(err error) {
	if err != nil {
		s.log.Warn("history step failed", "error", err)
	}
}

// InsertLevel inserts level at index of bin
func (s *Session) InsertLevel(bin, index int, level model.Level) error {
	return s.mutate(bin, fmt.Sprintf("insert level %d in bin %d", index, bin), func(d *project.Document) error {
		return d.InsertLevel(bin, index, level)
	})
}

// AddLevelTop inserts a copy of the first level at the top of bin
func (s *Session) AddLevelTop(bin int) error {
	return s.mutate(bin, fmt.Sprintf("add level at top of bin %d", bin), func(d *project.Document) error {
		return d.AddLevelTop(bin)
	})
}

// AddLevelBottom appends a copy of the last level to bin
func (s *Session) AddLevelBottom(bin int) error {
	return s.mutate(bin, fmt.Sprintf("add level at bottom of bin %d", bin), func(d *project.Document) error {
		return d.AddLevelBottom(bin)
	})
}

// DuplicateLevel inserts a copy of level src at index dst
func (s *Session) DuplicateLevel(bin, src, dst int) error {
	return s.mutate(bin, fmt.Sprintf("duplicate level %d to %d in bin %d", src, dst, bin), func(d *project.Document) error {
		return d.DuplicateLevel(bin, src, dst)
	})
}

// DeleteLevel removes a level
func (s *Session) DeleteLevel(bin, index int) error {
	return s.mutate(bin, fmt.Sprintf("delete level %d in bin %d", index, bin), func(d *project.Document) error {
		return d.DeleteLevel(bin, index)
	})
}

// MoveLevel reorders a level
func (s *Session) MoveLevel(bin, from, to int) error {
	return s.mutate(bin, fmt.Sprintf("move level %d to %d in bin %d", from, to, bin), func(d *project.Document) error {
		return d.MoveLevel(bin, from, to)
	})
}

// UpdateLine replaces a property line of a level
func (s *Session) UpdateLine(bin, level, line int, text string) error {
	return s.mutate(bin, fmt.Sprintf("edit level %d of bin %d", level, bin), func(d *project.Document) error {
		return d.UpdateLine(bin, level, line, text)
	})
}

// UpdateHeaderLine replaces a property line of a bin header
func (s *Session) UpdateHeaderLine(bin, line int, text string) error {
	return s.mutate(bin, fmt.Sprintf("edit header of bin %d", bin), func(d *project.Document) error {
		return d.UpdateHeaderLine(bin, line, text)
	})
}

// ApplyOffset adds delta to field in every level of bin
func (s *Session) ApplyOffset(bin int, field string, delta int64) error {
	return s.mutate(bin, fmt.Sprintf("offset %s by %+d in bin %d", field, delta, bin), func(d *project.Document) error {
		return d.ApplyOffset(bin, field, delta)
	})
}

// Undo reverts the last edit and returns its description
func (s *Session) Undo() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	desc := s.history.UndoDescription()
	return desc, s.history.Undo()
}

// Redo reapplies the last undone edit and returns its description
func (s *Session) Redo() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	desc := s.history.RedoDescription()
	return desc, s.history.Redo()
}

func (s *Session) CanUndo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.CanUndo()
}

func (s *Session) CanRedo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.CanRedo()
}

// IsDirty reports whether the document differs from the last save
func (s *Session) IsDirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.IsDirty()
}

// History returns the edit descriptions, oldest first, and the cursor
func (s *Session) History() ([]string, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.Descriptions(), s.history.Cursor()
}

// Text serializes the current document
func (s *Session) Text() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		return ""
	}
	return dts.Serialize(s.doc.Tree())
}

// Snapshot returns the current bins. The snapshot must not be modified.
func (s *Session) Snapshot() model.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		return model.Snapshot{}
	}
	return s.doc.Snapshot()
}

// Version increases with every change of the bins
func (s *Session) Version() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		return 0
	}
	return s.doc.Version()
}

// Chip returns the definition the document was projected with
func (s *Session) Chip() model.ChipDefinition {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		return model.ChipDefinition{}
	}
	return s.doc.Chip()
}

// Scan returns the scan of the current tree
func (s *Session) Scan() model.ScanResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scan
}

// Detached returns an independent copy of the document for read-only
// consumers such as export
func (s *Session) Detached() (*project.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		return nil, ErrNoDocument
	}
	return project.Project(s.doc.Tree().Clone(), s.doc.Chip(), s.opts.Codec)
}

// Diff compares the baseline with the current document
func (s *Session) Diff() ([]diff.Result, error) {
	s.mu.Lock()
	if s.doc == nil {
		s.mu.Unlock()
		return nil, ErrNoDocument
	}
	baseline := s.baseline
	current := s.doc.Tree().Clone()
	chip := s.doc.Chip()
	s.mu.Unlock()

	return diff.Trees(baseline, current, chip, s.opts.Codec, s.opts.Diff)
}

// Unified renders the raw text changes since the baseline
func (s *Session) Unified(name string) (string, error) {
	s.mu.Lock()
	if s.doc == nil {
		s.mu.Unlock()
		return "", ErrNoDocument
	}
	oldText := dts.Serialize(s.baseline)
	newText := dts.Serialize(s.doc.Tree())
	s.mu.Unlock()

	return diff.Unified("a/"+name, "b/"+name, oldText, newText)
}

func pathLabel(path string) string {
	if path == "" {
		return "/"
	}
	return path
}
