// Package sync applies a computed plan to the index: extract, embed, and
// store each changed file, with per-file isolation so one bad file never
// poisons the rest of the run.
package sync

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"seek/internal/config"
	"seek/internal/embed"
	"seek/internal/errs"
	"seek/internal/extract"
	"seek/internal/gitx"
	"seek/internal/plan"
	"seek/internal/store"
)

// Options selects what a sync run compares and whether it rebuilds vectors.
type Options struct {
	// Staged syncs against the staged (index) snapshot instead of HEAD.
	Staged bool
	// Reindex drops all stored vectors and re-embeds every file. Required
	// after changing the embedding model.
	Reindex bool
}

// FileFailure is one file the run could not index. The file keeps its
// previous index state and the run continues.
type FileFailure struct {
	Path string
	Err  error
}

// Summary reports what a sync run did.
type Summary struct {
	Mode     plan.Mode
	TreeRef  string
	UpToDate bool
	Added    int
	Updated  int
	Deleted  int
	Renamed  int
	Symbols  int
	Failures []FileFailure
}

// Syncer drives sync runs for one working tree.
type Syncer struct {
	Root      string
	Store     *store.Store
	Pipeline  *embed.Pipeline
	Extractor *extract.Extractor
	Config    config.Config
}

// Plan computes the pending plan without applying it. `seek status` uses
// this to report staleness.
func (s *Syncer) Plan(staged bool) (plan.Plan, error) {
	state, err := s.Store.GetState()
	if err != nil {
		return plan.Plan{}, err
	}
	cur, _, err := s.snapshot(staged)
	if err != nil {
		return plan.Plan{}, err
	}
	prev, err := s.Store.FileStates()
	if err != nil {
		return plan.Plan{}, err
	}
	hints, _ := gitx.RenameHints(s.Root, state.LastSyncedTree, staged, s.Config.RenameThreshold)
	mode := plan.ModeCommit
	if staged {
		mode = plan.ModeStaged
	}
	return plan.Compute(prev, cur, hints, mode), nil
}

func (s *Syncer) snapshot(staged bool) (gitx.Snapshot, string, error) {
	head, err := gitx.Head(s.Root)
	if err != nil {
		return nil, "", err
	}
	if staged {
		snap, err := gitx.StagedSnapshot(s.Root)
		return snap, head, err
	}
	snap, err := gitx.TreeSnapshot(s.Root, head)
	return snap, head, err
}

// Run brings the index up to date with the selected snapshot. Files that
// fail extraction or embedding are reported in the summary and keep their
// previous state; the index state pointer only advances when every planned
// file succeeded, so the next run retries the failures.
func (s *Syncer) Run(ctx context.Context, opts Options) (*Summary, error) {
	state, err := s.Store.GetState()
	if err != nil {
		return nil, err
	}

	backendID := s.Pipeline.Backend().ID()
	if state.EmbeddingModelID != "" && state.EmbeddingModelID != backendID && !opts.Reindex {
		return nil, fmt.Errorf("%w: index was built with model %s but the configuration selects %s; re-run with --reindex to rebuild the vectors",
			errs.ErrDimensionMismatch, state.EmbeddingModelID, backendID)
	}
	// Probe the backend before touching stored vectors: a --reindex against
	// an unreachable backend must leave the index exactly as it was.
	dim, err := s.Pipeline.Dimension(ctx)
	if err != nil {
		return nil, err
	}
	if opts.Reindex {
		if err := s.Store.DropVectors(); err != nil {
			return nil, err
		}
		state.EmbeddingDim = 0
	}
	if err := s.Pipeline.CheckDimension(ctx, state.EmbeddingDim); err != nil {
		return nil, err
	}
	if err := s.Store.EnsureVectorTable(dim); err != nil {
		return nil, err
	}

	cur, head, err := s.snapshot(opts.Staged)
	if err != nil {
		return nil, err
	}
	prev, err := s.Store.FileStates()
	if err != nil {
		return nil, err
	}

	mode := plan.ModeCommit
	switch {
	case opts.Reindex:
		mode = plan.ModeFull
	case opts.Staged:
		mode = plan.ModeStaged
	}
	hints, _ := gitx.RenameHints(s.Root, state.LastSyncedTree, opts.Staged, s.Config.RenameThreshold)
	p := plan.Compute(prev, cur, hints, mode)

	// Committed content carries the commit it was synced at; staged content
	// has no commit yet.
	treeRef := head
	if opts.Staged {
		treeRef = ""
	}

	summary := &Summary{Mode: mode, TreeRef: head}
	if p.Empty() {
		summary.UpToDate = true
		// The tree pointer can move without any indexed file changing.
		if state.LastSyncedTree != head || state.SyncMode != string(mode) {
			state.SchemaVersion = store.SchemaVersion
			state.EmbeddingModelID = backendID
			state.EmbeddingDim = dim
			state.LastSyncedTree = head
			state.SyncMode = string(mode)
			if err := s.Store.SetState(state); err != nil {
				return nil, err
			}
		}
		return summary, nil
	}

	// Renames first: path-only moves that preserve symbol ids, so a
	// later update to the new path sees the moved rows.
	renames := make([]string, 0, len(p.Rename))
	for old := range p.Rename {
		renames = append(renames, old)
	}
	sort.Strings(renames)
	for _, old := range renames {
		if err := s.Store.RenameFile(old, p.Rename[old], treeRef); err != nil {
			summary.Failures = append(summary.Failures, FileFailure{Path: old, Err: err})
			continue
		}
		summary.Renamed++
	}

	if err := s.applyUpserts(ctx, p, cur, treeRef, opts.Reindex, summary); err != nil {
		return nil, err
	}

	for _, path := range p.Delete {
		if err := s.Store.DeleteFile(path); err != nil {
			summary.Failures = append(summary.Failures, FileFailure{Path: path, Err: err})
			continue
		}
		summary.Deleted++
	}

	if len(summary.Failures) == 0 {
		if err := s.Store.SetState(store.IndexState{
			SchemaVersion:    store.SchemaVersion,
			EmbeddingModelID: backendID,
			EmbeddingDim:     dim,
			LastSyncedTree:   head,
			SyncMode:         string(mode),
		}); err != nil {
			return nil, err
		}
	}
	return summary, nil
}

// applyUpserts processes added and updated files concurrently. Extraction
// and embedding failures are isolated per file; dimension mismatches and an
// unreachable backend abort the whole run.
func (s *Syncer) applyUpserts(ctx context.Context, p plan.Plan, cur gitx.Snapshot, treeRef string, reindex bool, summary *Summary) error {
	type kind int
	const (
		added kind = iota
		updated
	)
	type job struct {
		path string
		what kind
	}
	jobs := make([]job, 0, len(p.Add)+len(p.Update))
	for _, path := range p.Add {
		jobs = append(jobs, job{path, added})
	}
	for _, path := range p.Update {
		jobs = append(jobs, job{path, updated})
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers())

	for _, j := range jobs {
		g.Go(func() error {
			symbols, err := s.indexFile(gctx, j.path, cur[j.path], treeRef, reindex)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				summary.Symbols += symbols
				if j.what == added {
					summary.Added++
				} else {
					summary.Updated++
				}
				return nil
			case errors.Is(err, errs.ErrBackendUnavailable),
				errors.Is(err, errs.ErrDimensionMismatch),
				errors.Is(err, context.Canceled):
				return err
			default:
				summary.Failures = append(summary.Failures, FileFailure{Path: j.path, Err: err})
				return nil
			}
		})
	}
	return g.Wait()
}

// indexFile extracts one file's symbols, embeds the ones whose content
// changed, and replaces the file's rows in a single transaction.
func (s *Syncer) indexFile(ctx context.Context, path, blob, treeRef string, reindex bool) (int, error) {
	content, err := gitx.BlobContent(s.Root, blob)
	if err != nil {
		return 0, err
	}
	if isBinary(content) {
		// Record the file with no symbols so the plan converges; it is
		// neither searchable nor perpetually "stale".
		file := store.FileRecord{Path: path, ContentHash: blob, TreeRef: treeRef}
		return 0, s.Store.ReplaceFileSymbols(file, nil, nil)
	}

	symbols, err := s.Extractor.Extract(path, content)
	if err != nil {
		return 0, &errs.ExtractionError{Path: path, Err: err}
	}

	// Symbols whose identity and content survived the edit keep their
	// stored vector; only changed bodies hit the backend.
	var oldHashes map[string]string
	if !reindex {
		oldHashes, err = s.Store.SymbolHashes(path)
		if err != nil {
			return 0, err
		}
	}

	records := make([]store.SymbolRecord, len(symbols))
	vectors := make([][]float32, len(symbols))
	var missIdx []int
	var missTexts []string
	for i, sym := range symbols {
		records[i] = store.SymbolRecord{
			Name:        sym.Name,
			Kind:        sym.Kind,
			Language:    sym.Language,
			StartLine:   sym.StartLine,
			EndLine:     sym.EndLine,
			Content:     sym.Content,
			ContentHash: sym.ContentHash,
		}
		key := sym.Kind + "\x00" + sym.Name + "\x00" + sym.Language
		if oldHashes[key] == sym.ContentHash && oldHashes[key] != "" {
			continue // reuse stored vector
		}
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, sym.Content)
	}

	if len(missTexts) > 0 {
		fileCtx := ctx
		if s.Config.EmbedTimeoutSecs > 0 {
			var cancel context.CancelFunc
			fileCtx, cancel = context.WithTimeout(ctx, time.Duration(s.Config.EmbedTimeoutSecs)*time.Second)
			defer cancel()
		}
		vecs, err := s.Pipeline.EmbedTexts(fileCtx, missTexts)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
				return 0, fmt.Errorf("embedding timed out after %ds", s.Config.EmbedTimeoutSecs)
			}
			return 0, err
		}
		for j, vec := range vecs {
			vectors[missIdx[j]] = vec
		}
	}

	file := store.FileRecord{Path: path, ContentHash: blob, TreeRef: treeRef}
	if err := s.Store.ReplaceFileSymbols(file, records, vectors); err != nil {
		return 0, err
	}
	return len(records), nil
}

func (s *Syncer) workers() int {
	if s.Config.Workers > 0 {
		return s.Config.Workers
	}
	return 4
}

// isBinary applies git's own heuristic: a NUL byte in the first 8000 bytes.
func isBinary(content []byte) bool {
	head := content
	if len(head) > 8000 {
		head = head[:8000]
	}
	return bytes.IndexByte(head, 0) >= 0
}
