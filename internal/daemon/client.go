package daemon

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"
)

// Client talks to a running daemon over its unix socket.
type Client struct {
	conn net.Conn
}

// Dial connects to the daemon for a .seek directory. A missing socket or a
// dead daemon returns an error; callers fall back to running in-process.
func Dial(seekDir string) (*Client, error) {
	conn, err := net.DialTimeout("unix", SocketPath(seekDir), time.Second)
	if err != nil {
		return nil, fmt.Errorf("daemon not running: %w", err)
	}
	return &Client{conn: conn}, nil
}

// Close closes the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// Do sends one request and reads one response.
func (c *Client) Do(req Request) (Response, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return Response{}, err
	}
	c.conn.SetDeadline(time.Now().Add(5 * time.Minute))
	if _, err := c.conn.Write(append(data, '\n')); err != nil {
		return Response{}, fmt.Errorf("daemon request: %w", err)
	}

	reader := bufio.NewReader(c.conn)
	line, err := reader.ReadBytes('\n')
	if err != nil {
		return Response{}, fmt.Errorf("daemon response: %w", err)
	}
	var resp Response
	if err := json.Unmarshal(line, &resp); err != nil {
		return Response{}, fmt.Errorf("daemon response: %w", err)
	}
	if !resp.OK {
		return resp, decodeError(resp)
	}
	return resp, nil
}

// Running reports whether a daemon answers on the socket.
func Running(seekDir string) bool {
	c, err := Dial(seekDir)
	if err != nil {
		return false
	}
	defer c.Close()
	_, err = c.Do(Request{Op: OpPing})
	return err == nil
}

// Pid reads the daemon pid file; 0 when absent or unreadable.
func Pid(seekDir string) int {
	data, err := os.ReadFile(PidPath(seekDir))
	if err != nil {
		return 0
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0
	}
	return pid
}
