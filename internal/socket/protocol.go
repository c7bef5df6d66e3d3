package socket

// Message is an edit command sent to a running dtsedit session
type Message struct {
	Command string `json:"command"`
	Bin     int    `json:"bin,omitempty"`
	Level   int    `json:"level,omitempty"`
	To      int    `json:"to,omitempty"`
	Line    int    `json:"line,omitempty"`
	Text    string `json:"text,omitempty"`
	Field   string `json:"field,omitempty"`
	Delta   int64  `json:"delta,omitempty"`
	Path    string `json:"path,omitempty"`

	// ResponseChan receives the reply of the session. It is set by the
	// server and never sent over the wire.
	ResponseChan chan *Response `json:"-"`
}

// Response is the reply to a Message
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Version uint64 `json:"version"`
	Output  string `json:"output,omitempty"`
}

// Command types
const (
	CommandInsertLevel  = "insert"
	CommandAddTop       = "add_top"
	CommandAddBottom    = "add_bottom"
	CommandDuplicate    = "duplicate"
	CommandDelete       = "delete"
	CommandMove         = "move"
	CommandUpdateLine   = "update_line"
	CommandUpdateHeader = "update_header"
	CommandOffset       = "offset"
	CommandSetProperty  = "set_property"
	CommandUndo         = "undo"
	CommandRedo         = "redo"
	CommandSave         = "save"
	CommandText         = "text"
	CommandDiff         = "diff"
	CommandHistory      = "history"

	// CommandPing is answered by the server without reaching the session
	CommandPing = "ping"
)
