// Package socket lets a second dtsedit process send edit commands to a
// running session over a Unix socket. Messages are single JSON documents
// answered by a single JSON response.
package socket

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"time"
)

const (
	socketPrefix = "dtsedit-"
	socketSuffix = ".sock"
)

// ResponseTimeout bounds how long a connection waits for the session
const ResponseTimeout = 10 * time.Second

// Server represents a Unix socket server for accepting external commands
type Server struct {
	socketPath string
	listener   net.Listener
	msgChan    chan Message
	stopChan   chan struct{}
	logger     *slog.Logger
}

// SocketDir returns the directory holding the sockets of running sessions
func SocketDir() string {
	if xdgRuntime := os.Getenv("XDG_RUNTIME_DIR"); xdgRuntime != "" {
		return filepath.Join(xdgRuntime, "dtsedit")
	}
	return filepath.Join(os.Getenv("HOME"), ".local", "share", "dtsedit")
}

// NewServer creates a Unix socket server for the process pid in dir. An
// empty dir selects SocketDir.
func NewServer(dir string, pid int, logger *slog.Logger) (*Server, error) {
	if dir == "" {
		dir = SocketDir()
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create socket directory: %w", err)
	}

	socketPath := filepath.Join(dir, fmt.Sprintf("%s%d%s", socketPrefix, pid, socketSuffix))

	// Remove a stale socket of an earlier run with the same pid
	if err := os.RemoveAll(socketPath); err != nil {
		return nil, fmt.Errorf("failed to remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on socket: %w", err)
	}

	logger.Info("socket server listening", "path", socketPath)

	return &Server{
		socketPath: socketPath,
		listener:   listener,
		msgChan:    make(chan Message, 10),
		stopChan:   make(chan struct{}),
		logger:     logger,
	}, nil
}

// Start begins accepting connections on the socket
func (s *Server) Start() {
	go s.acceptLoop()
}

func (s *Server) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.stopChan:
				return
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return
			}
			s.logger.Warn("error accepting connection", "error", err)
			continue
		}
		go s.handleConnection(conn)
	}
}

// handleConnection passes one message to the session and writes its reply
func (s *Server) handleConnection(conn net.Conn) {
	defer conn.Close()

	decoder := json.NewDecoder(conn)
	encoder := json.NewEncoder(conn)

	var msg Message
	if err := decoder.Decode(&msg); err != nil {
		if err != io.EOF {
			s.logger.Warn("error decoding message", "error", err)
		}
		encoder.Encode(Response{
			Success: false,
			Message: fmt.Sprintf("Invalid message format: %v", err),
		})
		return
	}

	switch msg.Command {
	case "":
		encoder.Encode(Response{Success: false, Message: "Missing command field"})
		return
	case CommandPing:
		// answered here so a busy session still counts as running
		encoder.Encode(Response{Success: true, Message: "pong"})
		return
	}

	msg.ResponseChan = make(chan *Response, 1)

	select {
	case s.msgChan <- msg:
	case <-s.stopChan:
		encoder.Encode(Response{Success: false, Message: "Server is shutting down"})
		return
	}

	select {
	case response := <-msg.ResponseChan:
		encoder.Encode(response)
	case <-time.After(ResponseTimeout):
		encoder.Encode(Response{Success: false, Message: "Command timed out"})
	case <-s.stopChan:
		encoder.Encode(Response{Success: false, Message: "Server is shutting down"})
	}
}

// Messages returns the channel for receiving messages
func (s *Server) Messages() <-chan Message {
	return s.msgChan
}

// SocketPath returns the path to the Unix socket
func (s *Server) SocketPath() string {
	return s.socketPath
}

// Stop stops the server and cleans up resources
func (s *Server) Stop() {
	close(s.stopChan)
	if s.listener != nil {
		s.listener.Close()
	}
	if s.socketPath != "" {
		os.Remove(s.socketPath)
	}
	s.logger.Info("socket server stopped")
}
