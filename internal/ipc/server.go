package ipc

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/vibereach/vibe-reachout/internal/clog"
	"github.com/vibereach/vibe-reachout/internal/pending"
	"github.com/vibereach/vibe-reachout/internal/protocol"
)

// maxConcurrentConns bounds in-flight connections. Connections beyond
// the bound are closed immediately rather than queued.
const maxConcurrentConns = 50

// staleProbeTimeout bounds the startup liveness probe.
const staleProbeTimeout = 200 * time.Millisecond

// drainTimeout bounds how long shutdown waits for in-flight
// connections to write their responses.
const drainTimeout = 5 * time.Second

// ErrAlreadyRunning signals that another bot owns the socket.
var ErrAlreadyRunning = errors.New("bot already running")

// RequestHandler is how the server hands decoded requests to the
// Telegram side. Dispatch returns the request's resolver; Expire is
// called when the per-request timer fires so the pending entry can be
// tombstoned and its messages edited.
type RequestHandler interface {
	Dispatch(ctx context.Context, req *protocol.IpcRequest) (pending.Resolver, error)
	Expire(id uuid.UUID)
}

// Server accepts hook connections on the Unix socket and runs the
// request/response lifecycle for each.
type Server struct {
	socketPath string
	timeout    time.Duration
	handler    RequestHandler

	ln  net.Listener
	sem *semaphore.Weighted
	wg  sync.WaitGroup
}

// NewServer creates a server. timeout is the per-request resolution
// bound (config.timeout_seconds).
func NewServer(socketPath string, timeout time.Duration, handler RequestHandler) *Server {
	return &Server{
		socketPath: socketPath,
		timeout:    timeout,
		handler:    handler,
		sem:        semaphore.NewWeighted(maxConcurrentConns),
	}
}

// DetectStaleSocket probes an existing socket file before binding.
// A live listener means another bot is running; a refused or timed-out
// connect means the file is stale and is unlinked. Any other error is
// reported without touching the file. Best-effort against a racing
// second starter; the bind surfaces that race as ErrAlreadyRunning.
func DetectStaleSocket(socketPath string) error {
	if _, err := os.Stat(socketPath); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("stat socket %s: %w", socketPath, err)
	}

	conn, err := net.DialTimeout("unix", socketPath, staleProbeTimeout)
	if err == nil {
		conn.Close()
		return fmt.Errorf("%w (socket is active at %s)", ErrAlreadyRunning, socketPath)
	}

	if errors.Is(err, syscall.ECONNREFUSED) || isTimeoutErr(err) {
		clog.Info("removing stale socket at %s", socketPath)
		if err := os.Remove(socketPath); err != nil {
			return fmt.Errorf("remove stale socket: %w", err)
		}
		return nil
	}

	return fmt.Errorf("socket %s in unknown state: %w", socketPath, err)
}

// Listen binds the Unix socket with owner-only permissions.
func (s *Server) Listen() error {
	ln, err := net.Listen("unix", s.socketPath)
	if err != nil {
		if errors.Is(err, syscall.EADDRINUSE) {
			return fmt.Errorf("%w (socket is active at %s)", ErrAlreadyRunning, s.socketPath)
		}
		return fmt.Errorf("bind socket %s: %w", s.socketPath, err)
	}
	if err := os.Chmod(s.socketPath, 0600); err != nil {
		ln.Close()
		return fmt.Errorf("chmod socket: %w", err)
	}
	s.ln = ln
	return nil
}

// Serve accepts connections until ctx is cancelled, then waits
// (bounded) for in-flight connections and unlinks the socket file.
// Individual connection errors never escape the accept loop.
func (s *Server) Serve(ctx context.Context) error {
	if s.ln == nil {
		return errors.New("server not listening")
	}
	clog.Info("socket server listening on %s", s.socketPath)

	go func() {
		<-ctx.Done()
		s.ln.Close()
	}()

	for {
		conn, err := s.ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				break
			}
			clog.Error("accept failed: %v", err)
			continue
		}

		if !s.sem.TryAcquire(1) {
			clog.Warn("max concurrent connections reached, dropping connection")
			conn.Close()
			continue
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer s.sem.Release(1)
			defer conn.Close()
			s.handleConn(ctx, conn)
		}()
	}

	s.waitConnections()
	s.removeSocket()
	clog.Info("socket server stopped")
	return nil
}

// waitConnections waits for in-flight handlers, giving up after
// drainTimeout so shutdown stays bounded.
func (s *Server) waitConnections() {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(drainTimeout):
		clog.Warn("shutdown drain exceeded %s, exiting anyway", drainTimeout)
	}
}

func (s *Server) removeSocket() {
	if err := os.Remove(s.socketPath); err != nil && !os.IsNotExist(err) {
		clog.Warn("failed to remove socket file: %v", err)
	}
}

// handleConn runs one request/response lifecycle: read a line, parse,
// dispatch, await the resolver bounded by the configured timeout, and
// write the single response line.
func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	line, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil {
		clog.Warn("failed to read request line: %v", err)
		return
	}

	line = strings.TrimSpace(line)
	if line == "" {
		clog.Warn("empty request received")
		return
	}

	var req protocol.IpcRequest
	if err := json.Unmarshal([]byte(line), &req); err != nil {
		clog.Warn("malformed request: %v", err)
		return
	}
	clog.Info("received permission request %s for tool %s", req.RequestID, req.ToolName)

	resolver, err := s.handler.Dispatch(ctx, &req)
	if err != nil {
		if errors.Is(err, pending.ErrDuplicateID) {
			clog.Error("duplicate request id %s", req.RequestID)
			return
		}
		// Fan-out reached nobody: answer synchronously so the hook can
		// fall back instead of waiting out its timeout.
		clog.Warn("dispatch failed for %s: %v", req.RequestID, err)
		s.writeResponse(conn, protocol.DenyResponse(req.RequestID, "failed to reach any authorized chat"))
		return
	}

	timer := time.NewTimer(s.timeout)
	defer timer.Stop()

	var resp protocol.IpcResponse
	select {
	case resp = <-resolver:
	case <-timer.C:
		s.handler.Expire(req.RequestID)
		resp = protocol.TimeoutResponse(req.RequestID)
	case <-ctx.Done():
		s.handler.Expire(req.RequestID)
		resp = protocol.TimeoutResponse(req.RequestID)
	}

	s.writeResponse(conn, resp)
}

func (s *Server) writeResponse(conn net.Conn, resp protocol.IpcResponse) {
	data, err := json.Marshal(resp)
	if err != nil {
		clog.Error("failed to marshal response: %v", err)
		return
	}
	data = append(data, '\n')
	if _, err := conn.Write(data); err != nil {
		clog.Warn("failed to write response for %s: %v", resp.RequestID, err)
	}
}
