// Package ipc implements the NDJSON request/response exchange between
// hook processes and the bot daemon over a per-user Unix socket.
// Framing is one UTF-8 JSON value per line: no length prefix, no
// pipelining, exactly one request and one response per connection.
package ipc

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"strings"
	"syscall"
	"time"

	"github.com/vibereach/vibe-reachout/internal/protocol"
)

// Connect-error classes the hook maps to exit codes. SocketNotFound and
// ConnectionRefused are expected whenever the bot is down and stay
// silent; anything else is logged.
var (
	ErrSocketNotFound    = errors.New("bot not running (socket not found)")
	ErrConnectionRefused = errors.New("connection refused (socket exists but bot not responding)")
	ErrTimeout           = errors.New("timed out waiting for bot response")
)

// SendRequest connects to the bot's socket, writes the request as one
// NDJSON line, half-closes the write side, and reads exactly one
// response line bounded by timeout.
func SendRequest(socketPath string, req *protocol.IpcRequest, timeout time.Duration) (*protocol.IpcResponse, error) {
	conn, err := net.DialTimeout("unix", socketPath, timeout)
	if err != nil {
		return nil, classifyDialError(socketPath, err)
	}
	defer conn.Close()

	deadline := time.Now().Add(timeout)
	if err := conn.SetDeadline(deadline); err != nil {
		return nil, fmt.Errorf("set deadline: %w", err)
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("serialize request: %w", err)
	}
	payload = append(payload, '\n')

	if _, err := conn.Write(payload); err != nil {
		return nil, fmt.Errorf("write request: %w", err)
	}

	// Half-close so the server sees EOF on the read direction.
	if uc, ok := conn.(*net.UnixConn); ok {
		if err := uc.CloseWrite(); err != nil {
			return nil, fmt.Errorf("close write side: %w", err)
		}
	}

	line, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil {
		if isTimeoutErr(err) {
			return nil, ErrTimeout
		}
		return nil, fmt.Errorf("read response: %w", err)
	}

	line = strings.TrimSpace(line)
	if line == "" {
		return nil, fmt.Errorf("empty response from bot")
	}

	var resp protocol.IpcResponse
	if err := json.Unmarshal([]byte(line), &resp); err != nil {
		return nil, fmt.Errorf("invalid response from bot: %w", err)
	}
	return &resp, nil
}

func classifyDialError(socketPath string, err error) error {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("%w at %s", ErrSocketNotFound, socketPath)
	case errors.Is(err, syscall.ECONNREFUSED):
		return ErrConnectionRefused
	case isTimeoutErr(err):
		return ErrTimeout
	default:
		return fmt.Errorf("connect to %s: %w", socketPath, err)
	}
}

func isTimeoutErr(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
