package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/pstuifzand/dtsedit/internal/diff"
	"github.com/pstuifzand/dtsedit/internal/model"
	"github.com/pstuifzand/dtsedit/internal/socket"
)

// Serve answers messages from srv until ctx is done. Edits arrive one at
// a time, so remote clients see the same ordering as local callers.
func (s *Session) Serve(ctx context.Context, srv *socket.Server) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg := <-srv.Messages():
			resp := s.HandleMessage(ctx, msg)
			if msg.ResponseChan != nil {
				msg.ResponseChan <- resp
			}
		}
	}
}

// HandleMessage applies one socket command to the session
func (s *Session) HandleMessage(ctx context.Context, msg socket.Message) *socket.Response {
	s.mu.Lock()
	s.log.Debug("received socket message", "command", msg.Command, "bin", msg.Bin, "level", msg.Level)
	s.mu.Unlock()

	before := s.Version()
	output, err := s.dispatch(ctx, msg)
	if err != nil {
		return &socket.Response{Success: false, Message: err.Error(), Version: s.Version()}
	}

	resp := &socket.Response{Success: true, Version: s.Version(), Output: output}
	switch {
	case isEdit(msg.Command) && resp.Version == before:
		resp.Message = "no change"
	case output != "":
		resp.Message = "ok"
	default:
		resp.Message = msg.Command + " done"
	}
	return resp
}

func (s *Session) dispatch(ctx context.Context, msg socket.Message) (string, error) {
	switch msg.Command {
	case socket.CommandInsertLevel:
		level := model.Level{Lines: splitLevel(msg.Text)}
		return "", s.InsertLevel(msg.Bin, msg.Level, level)
	case socket.CommandAddTop:
		return "", s.AddLevelTop(msg.Bin)
	case socket.CommandAddBottom:
		return "", s.AddLevelBottom(msg.Bin)
	case socket.CommandDuplicate:
		return "", s.DuplicateLevel(msg.Bin, msg.Level, msg.To)
	case socket.CommandDelete:
		return "", s.DeleteLevel(msg.Bin, msg.Level)
	case socket.CommandMove:
		return "", s.MoveLevel(msg.Bin, msg.Level, msg.To)
	case socket.CommandUpdateLine:
		return "", s.UpdateLine(msg.Bin, msg.Level, msg.Line, msg.Text)
	case socket.CommandUpdateHeader:
		return "", s.UpdateHeaderLine(msg.Bin, msg.Line, msg.Text)
	case socket.CommandOffset:
		return "", s.ApplyOffset(msg.Bin, msg.Field, msg.Delta)
	case socket.CommandSetProperty:
		return "", s.ReplacePropertyLine(msg.Path, msg.Line, msg.Text)
	case socket.CommandUndo:
		desc, ok := s.Undo()
		if !ok {
			return "", fmt.Errorf("nothing to undo")
		}
		return "undid " + desc, nil
	case socket.CommandRedo:
		desc, ok := s.Redo()
		if !ok {
			return "", fmt.Errorf("nothing to redo")
		}
		return "redid " + desc, nil
	case socket.CommandSave:
		return "", s.Save(ctx)
	case socket.CommandText:
		return s.Text(), nil
	case socket.CommandDiff:
		results, err := s.Diff()
		if err != nil {
			return "", err
		}
		var sb strings.Builder
		for _, line := range diff.BuildDiffLines(results, msg.Text == "verbose") {
			sb.WriteString(strings.Repeat("  ", line.Indent))
			sb.WriteString(line.Content)
			sb.WriteByte('\n')
		}
		return sb.String(), nil
	case socket.CommandHistory:
		descs, cursor := s.History()
		var sb strings.Builder
		for i, d := range descs {
			marker := " "
			if i < cursor {
				marker = "*"
			}
			fmt.Fprintf(&sb, "%s %d %s\n", marker, i+1, d)
		}
		return sb.String(), nil
	default:
		s.mu.Lock()
		s.log.Warn("unknown socket command", "command", msg.Command)
		s.mu.Unlock()
		return "", fmt.Errorf("unknown command %q", msg.Command)
	}
}

func isEdit(command string) bool {
	switch command {
	case socket.CommandUndo, socket.CommandRedo, socket.CommandSave,
		socket.CommandText, socket.CommandDiff, socket.CommandHistory:
		return false
	}
	return true
}

// splitLevel turns newline separated property statements into level lines
func splitLevel(text string) []string {
	var lines []string
	for _, l := range strings.Split(text, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}
