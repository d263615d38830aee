package daemon

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"seek/internal/errs"
	"seek/internal/search"
	"seek/internal/store"
	indexsync "seek/internal/sync"
)

const (
	socketName = "daemon.sock"
	pidName    = "daemon.pid"
)

// SocketPath returns the daemon socket path for a .seek directory.
func SocketPath(seekDir string) string {
	return filepath.Join(seekDir, socketName)
}

// PidPath returns the daemon pid file path for a .seek directory.
func PidPath(seekDir string) string {
	return filepath.Join(seekDir, pidName)
}

// Server answers find/sync/status requests over a unix socket, keeping the
// store and embedding cache warm between requests.
type Server struct {
	SeekDir string
	Engine  *search.Engine
	Syncer  *indexsync.Syncer
	Store   *store.Store

	coord    Coordinator
	listener net.Listener
	stop     chan struct{}
	stopOnce sync.Once
}

// Listen binds the unix socket and writes the pid file. A leftover socket
// from a dead daemon is replaced; a live daemon on the socket is an error.
func (s *Server) Listen() error {
	path := SocketPath(s.SeekDir)
	if conn, err := net.Dial("unix", path); err == nil {
		conn.Close()
		return fmt.Errorf("daemon already running on %s", path)
	}
	_ = os.Remove(path)

	ln, err := net.Listen("unix", path)
	if err != nil {
		return fmt.Errorf("listen %s: %w", path, err)
	}
	s.listener = ln
	s.stop = make(chan struct{})

	pid := strconv.Itoa(os.Getpid())
	if err := os.WriteFile(PidPath(s.SeekDir), []byte(pid+"\n"), 0o644); err != nil {
		ln.Close()
		return err
	}
	return nil
}

// Serve accepts connections until Shutdown or a stop request. Listen must
// have been called.
func (s *Server) Serve(ctx context.Context) error {
	defer s.cleanup()

	go func() {
		select {
		case <-ctx.Done():
		case <-s.stop:
		}
		s.listener.Close()
	}()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			case <-s.stop:
				return nil
			default:
				return err
			}
		}
		go s.handle(ctx, conn)
	}
}

// Shutdown stops the accept loop. Safe to call more than once.
func (s *Server) Shutdown() {
	s.stopOnce.Do(func() { close(s.stop) })
}

func (s *Server) cleanup() {
	os.Remove(SocketPath(s.SeekDir))
	os.Remove(PidPath(s.SeekDir))
}

func (s *Server) handle(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	enc := json.NewEncoder(conn)

	for scanner.Scan() {
		var req Request
		if err := json.Unmarshal(scanner.Bytes(), &req); err != nil {
			enc.Encode(errorResponse(fmt.Errorf("bad request: %w", err)))
			return
		}
		resp := s.dispatch(ctx, req)
		if err := enc.Encode(resp); err != nil {
			return
		}
		if req.Op == OpStop {
			return
		}
	}
}

func (s *Server) dispatch(ctx context.Context, req Request) Response {
	switch req.Op {
	case OpPing:
		return Response{OK: true}

	case OpFind:
		release := s.coord.BeginRead()
		defer release()
		filters := store.Filters{PathGlob: req.PathGlob, Language: req.Language}
		results, err := s.Engine.Search(ctx, req.Query, filters, req.K)
		if err != nil {
			return errorResponse(err)
		}
		return Response{OK: true, Results: results}

	case OpSync:
		release, err := s.coord.BeginSync()
		if err != nil {
			return errorResponse(err)
		}
		defer release()
		summary, err := s.Syncer.Run(ctx, indexsync.Options{Staged: req.Staged, Reindex: req.Reindex})
		if err != nil {
			return errorResponse(err)
		}
		return Response{OK: true, Sync: newSyncReport(summary)}

	case OpStatus:
		info, err := s.status()
		if err != nil {
			return errorResponse(err)
		}
		return Response{OK: true, Status: info}

	case OpStop:
		s.Shutdown()
		return Response{OK: true}

	default:
		return errorResponse(fmt.Errorf("unknown op %q", req.Op))
	}
}

func (s *Server) status() (*StatusInfo, error) {
	stats, err := s.Store.GetStats()
	if err != nil {
		return nil, err
	}
	state, err := s.Store.GetState()
	if err != nil {
		return nil, err
	}
	info := &StatusInfo{
		Files:          stats.Files,
		Symbols:        stats.Symbols,
		Vectors:        stats.Vectors,
		Model:          state.EmbeddingModelID,
		Dimension:      state.EmbeddingDim,
		LastSyncedTree: state.LastSyncedTree,
		SyncMode:       state.SyncMode,
		Syncing:        s.coord.Syncing(),
	}
	if p, err := s.Syncer.Plan(false); err == nil {
		info.Pending = p.Total()
	}
	return info, nil
}

func errorResponse(err error) Response {
	return Response{Error: err.Error(), Code: errs.ExitCode(err)}
}

// decodeError reconstructs a sentinel from a wire response so errors.Is
// works the same whether a command ran in-process or through the daemon.
func decodeError(resp Response) error {
	if resp.OK {
		return nil
	}
	base := errors.New(resp.Error)
	switch resp.Code {
	case errs.ExitNotInitialized:
		return fmt.Errorf("%w: %s", errs.ErrNotInitialized, resp.Error)
	case errs.ExitDimensionMismatch:
		return fmt.Errorf("%w: %s", errs.ErrDimensionMismatch, resp.Error)
	case errs.ExitInvalidOrdinal:
		return fmt.Errorf("%w: %s", errs.ErrInvalidOrdinal, resp.Error)
	case errs.ExitSyncConflict:
		return fmt.Errorf("%w: %s", errs.ErrSyncConflict, resp.Error)
	case errs.ExitBackendUnavailable:
		return fmt.Errorf("%w: %s", errs.ErrBackendUnavailable, resp.Error)
	default:
		return base
	}
}
