package socket

import (
	"context"
	"errors"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func startServer(t *testing.T) (*Server, string) {
	t.Helper()
	dir, err := os.MkdirTemp("", "dts")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })

	server, err := NewServer(dir, os.Getpid(), nil)
	if err != nil {
		t.Fatalf("Failed to create server: %v", err)
	}
	t.Cleanup(server.Stop)
	server.Start()
	return server, dir
}

// answer replies to the next message with fn
func answer(t *testing.T, server *Server, fn func(Message) *Response) <-chan Message {
	t.Helper()
	got := make(chan Message, 1)
	go func() {
		select {
		case msg := <-server.Messages():
			got <- msg
			msg.ResponseChan <- fn(msg)
		case <-time.After(2 * time.Second):
			close(got)
		}
	}()
	return got
}

func TestServerClient(t *testing.T) {
	server, _ := startServer(t)

	client, err := NewClient(server.SocketPath())
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	got := answer(t, server, func(msg Message) *Response {
		return &Response{Success: true, Message: "moved", Version: 7}
	})

	response, err := client.Send(Message{Command: CommandMove, Bin: 1, Level: 2, To: 0})
	if err != nil {
		t.Fatalf("Failed to send message: %v", err)
	}
	if !response.Success || response.Message != "moved" || response.Version != 7 {
		t.Errorf("unexpected response: %+v", response)
	}

	msg, ok := <-got
	if !ok {
		t.Fatal("Timeout waiting for message")
	}
	if msg.Command != CommandMove || msg.Bin != 1 || msg.Level != 2 || msg.To != 0 {
		t.Errorf("unexpected message: %+v", msg)
	}
}

func TestServerRejectsMissingCommand(t *testing.T) {
	server, _ := startServer(t)
	client, err := NewClient(server.SocketPath())
	if err != nil {
		t.Fatal(err)
	}

	response, err := client.Send(Message{Text: "orphan"})
	if err != nil {
		t.Fatalf("Failed to send message: %v", err)
	}
	if response.Success || response.Message != "Missing command field" {
		t.Errorf("unexpected response: %+v", response)
	}
}

func TestFindRunningInstance(t *testing.T) {
	server, dir := startServer(t)

	socketPath, foundPid, err := FindRunningInstance(dir)
	if err != nil {
		t.Fatalf("Failed to find running instance: %v", err)
	}
	if socketPath != server.SocketPath() {
		t.Errorf("Expected socketPath=%s, got socketPath=%s", server.SocketPath(), socketPath)
	}
	if foundPid != os.Getpid() {
		t.Errorf("Expected pid=%d, got pid=%d", os.Getpid(), foundPid)
	}
}

func TestFindRunningInstanceSkipsStaleSockets(t *testing.T) {
	server, dir := startServer(t)

	// a socket file whose listener is gone, newer than the live one
	stale := filepath.Join(dir, "dtsedit-1.sock")
	l, err := net.Listen("unix", stale)
	if err != nil {
		t.Fatal(err)
	}
	l.(*net.UnixListener).SetUnlinkOnClose(false)
	l.Close()
	future := time.Now().Add(time.Minute)
	if err := os.Chtimes(stale, future, future); err != nil {
		t.Fatal(err)
	}

	socketPath, _, err := FindRunningInstance(dir)
	if err != nil {
		t.Fatalf("Failed to find running instance: %v", err)
	}
	if socketPath != server.SocketPath() {
		t.Errorf("Expected %s, got %s", server.SocketPath(), socketPath)
	}
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Errorf("stale socket should be removed, stat err=%v", err)
	}
}

func TestPingIsAnsweredByServer(t *testing.T) {
	server, _ := startServer(t)
	client, err := NewClient(server.SocketPath())
	if err != nil {
		t.Fatal(err)
	}
	// nobody reads Messages, the server answers alone
	if err := client.Ping(context.Background()); err != nil {
		t.Errorf("ping failed: %v", err)
	}
}

func TestFindRunningInstanceNone(t *testing.T) {
	_, _, err := FindRunningInstance(t.TempDir())
	if !errors.Is(err, ErrNoInstance) {
		t.Errorf("expected ErrNoInstance, got %v", err)
	}
}

func TestNewClientMissingSocket(t *testing.T) {
	if _, err := NewClient("/nonexistent/dtsedit-1.sock"); err == nil {
		t.Error("expected error for missing socket")
	}
}
