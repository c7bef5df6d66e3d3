// Package history implements the linear undo/redo stack of an editing
// session and a small on-disk journal of committed edits.
package history

// Entry is one committed, reversible mutation. Undo and Redo restore the
// state before and after the mutation; both must be safe to call repeatedly
// in alternation.
type Entry struct {
	Description string
	Undo        func()
	Redo        func()
}

// Stack is a linear history with a single cursor. Entries before the cursor
// are applied, entries from the cursor on are undone.
type Stack struct {
	entries []Entry
	cursor  int
	savedAt int // cursor at last save, -1 once that state is unreachable

	// MaxEntries caps the stack length; the oldest entries are dropped.
	// Zero means unlimited.
	MaxEntries int
}

// NewStack creates an empty stack whose initial state counts as saved
func NewStack(maxEntries int) *Stack {
	return &Stack{MaxEntries: maxEntries}
}

// Push records an applied mutation. Entries after the cursor are discarded.
func (s *Stack) Push(e Entry) {
	if s.savedAt > s.cursor {
		s.savedAt = -1
	}
	s.entries = append(s.entries[:s.cursor], e)
	s.cursor++

	if s.MaxEntries > 0 && len(s.entries) > s.MaxEntries {
		drop := len(s.entries) - s.MaxEntries
		s.entries = append([]Entry(nil), s.entries[drop:]...)
		s.cursor -= drop
		if s.savedAt >= 0 {
			s.savedAt -= drop
			if s.savedAt < 0 {
				s.savedAt = -1
			}
		}
	}
}

// Undo reverts the entry before the cursor
func (s *Stack) Undo() bool {
	if !s.CanUndo() {
		return false
	}
	s.cursor--
	if s.entries[s.cursor].Undo != nil {
		s.entries[s.cursor].Undo()
	}
	return true
}

// Redo reapplies the entry at the cursor
func (s *Stack) Redo() bool {
	if !s.CanRedo() {
		return false
	}
	if s.entries[s.cursor].Redo != nil {
		s.entries[s.cursor].Redo()
	}
	s.cursor++
	return true
}

func (s *Stack) CanUndo() bool {
	return s.cursor > 0
}

func (s *Stack) CanRedo() bool {
	return s.cursor < len(s.entries)
}

// IsDirty reports whether the current state differs from the last save
func (s *Stack) IsDirty() bool {
	return s.cursor != s.savedAt
}

// MarkSaved makes the current state the saved baseline
func (s *Stack) MarkSaved() {
	s.savedAt = s.cursor
}

// UndoDescription describes the entry Undo would revert
func (s *Stack) UndoDescription() string {
	if !s.CanUndo() {
		return ""
	}
	return s.entries[s.cursor-1].Description
}

// RedoDescription describes the entry Redo would reapply
func (s *Stack) RedoDescription() string {
	if !s.CanRedo() {
		return ""
	}
	return s.entries[s.cursor].Description
}

// Descriptions lists all entry descriptions, oldest first
func (s *Stack) Descriptions() []string {
	out := make([]string, len(s.entries))
	for i, e := range s.entries {
		out[i] = e.Description
	}
	return out
}

func (s *Stack) Len() int {
	return len(s.entries)
}

func (s *Stack) Cursor() int {
	return s.cursor
}

// Clear drops every entry. The current state becomes the saved baseline
// when clean is true.
func (s *Stack) Clear(clean bool) {
	dirty := s.IsDirty()
	s.entries = nil
	s.cursor = 0
	s.savedAt = 0
	if dirty && !clean {
		s.savedAt = -1
	}
}
