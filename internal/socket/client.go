package socket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"syscall"
	"time"
)

// ErrNoInstance is returned when no running session has a socket
var ErrNoInstance = errors.New("no running dtsedit instance found")

// probeTimeout bounds the ping used to tell live sockets from stale ones
const probeTimeout = time.Second

// Client sends messages to one session socket
type Client struct {
	socketPath string
	timeout    time.Duration
}

type candidate struct {
	path    string
	pid     int
	modTime time.Time
}

// FindRunningInstance returns the socket path and pid of the most recently
// started session in dir (SocketDir when empty). Sockets left behind by
// sessions that are gone are removed on the way.
func FindRunningInstance(dir string) (string, int, error) {
	if dir == "" {
		dir = SocketDir()
	}

	matches, err := filepath.Glob(filepath.Join(dir, socketPrefix+"*"+socketSuffix))
	if err != nil {
		return "", 0, fmt.Errorf("error scanning socket directory: %w", err)
	}

	var found []candidate
	for _, path := range matches {
		info, err := os.Stat(path)
		if err != nil || info.Mode()&os.ModeSocket == 0 {
			continue
		}
		found = append(found, candidate{path: path, pid: socketPID(path), modTime: info.ModTime()})
	}
	sort.Slice(found, func(i, j int) bool {
		return found[i].modTime.After(found[j].modTime)
	})

	for _, c := range found {
		client := &Client{socketPath: c.path, timeout: probeTimeout}
		err := client.Ping(context.Background())
		if err == nil {
			return c.path, c.pid, nil
		}
		if errors.Is(err, syscall.ECONNREFUSED) {
			// nobody listens any more
			os.Remove(c.path)
		}
	}
	return "", 0, ErrNoInstance
}

// socketPID extracts the pid from a socket name, 0 when it has none
func socketPID(path string) int {
	name := strings.TrimSuffix(strings.TrimPrefix(filepath.Base(path), socketPrefix), socketSuffix)
	pid, err := strconv.Atoi(name)
	if err != nil {
		return 0
	}
	return pid
}

// NewClient creates a client for the socket at socketPath
func NewClient(socketPath string) (*Client, error) {
	if _, err := os.Stat(socketPath); err != nil {
		return nil, fmt.Errorf("socket not found: %w", err)
	}
	return &Client{socketPath: socketPath, timeout: ResponseTimeout + 5*time.Second}, nil
}

// Ping checks that a session answers on the socket
func (c *Client) Ping(ctx context.Context) error {
	resp, err := c.SendContext(ctx, Message{Command: CommandPing})
	if err != nil {
		return err
	}
	if !resp.Success {
		return fmt.Errorf("ping failed: %s", resp.Message)
	}
	return nil
}

// Send sends a message and waits for the response
func (c *Client) Send(msg Message) (*Response, error) {
	return c.SendContext(context.Background(), msg)
}

// SendContext is Send with a context bounding the dial and the exchange
func (c *Client) SendContext(ctx context.Context, msg Message) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", c.socketPath)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to socket: %w", err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}

	if err := json.NewEncoder(conn).Encode(msg); err != nil {
		return nil, fmt.Errorf("failed to send message: %w", err)
	}

	var response Response
	if err := json.NewDecoder(conn).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to receive response: %w", err)
	}
	return &response, nil
}
