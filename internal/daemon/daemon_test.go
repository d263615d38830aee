package daemon

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"seek/internal/config"
	"seek/internal/embed"
	"seek/internal/errs"
	"seek/internal/extract"
	"seek/internal/extract/languages"
	"seek/internal/search"
	"seek/internal/store"
	indexsync "seek/internal/sync"
)

func TestCoordinator_SingleSyncSlot(t *testing.T) {
	var c Coordinator

	release, err := c.BeginSync()
	require.NoError(t, err)
	assert.True(t, c.Syncing())

	_, err = c.BeginSync()
	assert.True(t, errors.Is(err, errs.ErrSyncConflict))

	release()
	assert.False(t, c.Syncing())

	release2, err := c.BeginSync()
	require.NoError(t, err)
	release2()
}

func TestCoordinator_QueriesExcludedDuringSync(t *testing.T) {
	var c Coordinator

	release, err := c.BeginSync()
	require.NoError(t, err)

	acquired := make(chan struct{})
	go func() {
		r := c.BeginRead()
		close(acquired)
		r()
	}()

	select {
	case <-acquired:
		t.Fatal("read side acquired while a sync held the slot")
	case <-time.After(100 * time.Millisecond):
	}

	release()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("read side never acquired after the sync released")
	}
}

func startTestDaemon(t *testing.T) (string, *Server) {
	t.Helper()
	return startTestDaemonWith(t, embed.NewHashBackend())
}

func startTestDaemonWith(t *testing.T, backend embed.Backend) (string, *Server) {
	t.Helper()

	root := t.TempDir()
	git := func(args ...string) {
		cmd := exec.Command("git", args...)
		cmd.Dir = root
		out, err := cmd.CombinedOutput()
		require.NoError(t, err, "git %v: %s", args, out)
	}
	git("init", "-q")
	git("config", "user.email", "test@example.com")
	git("config", "user.name", "test")
	require.NoError(t, os.WriteFile(filepath.Join(root, "calc.go"),
		[]byte("package calc\n\nfunc Add(a, b int) int { return a + b }\n"), 0o644))
	git("add", "-A")
	git("commit", "-q", "-m", "initial")

	seekDir := filepath.Join(root, ".seek")
	require.NoError(t, os.MkdirAll(seekDir, 0o755))

	st, err := store.Open(filepath.Join(seekDir, "index.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	registry := extract.NewRegistry()
	languages.RegisterAll(registry)
	pipeline := embed.NewPipeline(backend, 2)

	cfg := config.Default()
	cfg.Model = "hash"

	srv := &Server{
		SeekDir: seekDir,
		Store:   st,
		Engine:  search.NewEngine(st, pipeline, search.Options{}),
		Syncer: &indexsync.Syncer{
			Root:      root,
			Store:     st,
			Pipeline:  pipeline,
			Extractor: extract.New(registry),
			Config:    cfg,
		},
	}
	require.NoError(t, srv.Listen())

	done := make(chan struct{})
	go func() {
		defer close(done)
		srv.Serve(context.Background())
	}()
	t.Cleanup(func() {
		srv.Shutdown()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Error("daemon did not shut down")
		}
	})
	return seekDir, srv
}

func TestDaemon_PingSyncFindStatus(t *testing.T) {
	seekDir, _ := startTestDaemon(t)

	assert.True(t, Running(seekDir))
	assert.Equal(t, os.Getpid(), Pid(seekDir))

	client, err := Dial(seekDir)
	require.NoError(t, err)
	defer client.Close()

	resp, err := client.Do(Request{Op: OpSync})
	require.NoError(t, err)
	require.NotNil(t, resp.Sync)
	assert.Equal(t, 1, resp.Sync.Added)

	resp, err = client.Do(Request{Op: OpFind, Query: "add", K: 5})
	require.NoError(t, err)
	require.NotEmpty(t, resp.Results)
	assert.Equal(t, "Add", resp.Results[0].Name)

	resp, err = client.Do(Request{Op: OpStatus})
	require.NoError(t, err)
	require.NotNil(t, resp.Status)
	assert.Equal(t, 1, resp.Status.Files)
	assert.Equal(t, "hash", resp.Status.Model)
	assert.Zero(t, resp.Status.Pending)
	assert.False(t, resp.Status.Syncing)
}

// blockingBackend holds its first Embed call open until released, pinning a
// sync mid-apply so tests can observe what runs alongside it.
type blockingBackend struct {
	started chan struct{}
	release chan struct{}
	calls   atomic.Int32
}

func newBlockingBackend() *blockingBackend {
	return &blockingBackend{
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
}

func (b *blockingBackend) ID() string { return "hash" }

func (b *blockingBackend) Dimension(ctx context.Context) (int, error) { return 8, nil }

func (b *blockingBackend) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if b.calls.Add(1) == 1 {
		close(b.started)
		select {
		case <-b.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	vecs := make([][]float32, len(texts))
	for i := range vecs {
		v := make([]float32, 8)
		v[0] = 1
		vecs[i] = v
	}
	return vecs, nil
}

func TestDaemon_FindWaitsForSync(t *testing.T) {
	backend := newBlockingBackend()
	seekDir, _ := startTestDaemonWith(t, backend)

	syncClient, err := Dial(seekDir)
	require.NoError(t, err)
	defer syncClient.Close()

	syncDone := make(chan error, 1)
	go func() {
		_, err := syncClient.Do(Request{Op: OpSync})
		syncDone <- err
	}()

	select {
	case <-backend.started:
	case <-time.After(5 * time.Second):
		t.Fatal("sync never reached the backend")
	}

	findClient, err := Dial(seekDir)
	require.NoError(t, err)
	defer findClient.Close()

	findDone := make(chan error, 1)
	go func() {
		_, err := findClient.Do(Request{Op: OpFind, Query: "add", K: 5})
		findDone <- err
	}()

	// The query must not complete while the sync is still applying.
	select {
	case <-findDone:
		t.Fatal("find completed while a sync was in progress")
	case <-time.After(200 * time.Millisecond):
	}

	close(backend.release)
	require.NoError(t, <-syncDone)
	require.NoError(t, <-findDone)
}

func TestDaemon_StopRemovesSocket(t *testing.T) {
	seekDir, _ := startTestDaemon(t)

	client, err := Dial(seekDir)
	require.NoError(t, err)
	_, err = client.Do(Request{Op: OpStop})
	require.NoError(t, err)
	client.Close()

	require.Eventually(t, func() bool {
		_, err := os.Stat(SocketPath(seekDir))
		return os.IsNotExist(err)
	}, 5*time.Second, 20*time.Millisecond)
	assert.False(t, Running(seekDir))
}

func TestDaemon_UnknownOp(t *testing.T) {
	seekDir, _ := startTestDaemon(t)

	client, err := Dial(seekDir)
	require.NoError(t, err)
	defer client.Close()

	_, err = client.Do(Request{Op: "bogus"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown op")
}
