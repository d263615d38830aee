// Package plan computes the file-level update plan between the last synced
// index state and the current tree. Planning is a pure function over two
// snapshots; applying the plan is the syncer's job. That split keeps the diff
// logic testable without I/O and makes partial-failure recovery tractable.
package plan

import "sort"

// Mode selects which snapshots a sync compares.
type Mode string

const (
	// ModeCommit compares the last synced tree to the current HEAD.
	ModeCommit Mode = "commit-diff"
	// ModeStaged compares the last synced tree to the staged snapshot.
	ModeStaged Mode = "staged-diff"
	// ModeFull ignores prior state and re-indexes every tracked file.
	ModeFull Mode = "full-reindex"
)

// Plan is the file-level update set. Rename maps old path to new path for
// moves whose blob is unchanged; those are path-only updates that preserve
// symbol identities. A rename whose content also changed appears in Update
// under its new path as well.
type Plan struct {
	Add    []string
	Update []string
	Delete []string
	Rename map[string]string
}

// Empty reports whether applying the plan would be a no-op. The index is
// stale iff the plan is non-empty.
func (p Plan) Empty() bool {
	return len(p.Add) == 0 && len(p.Update) == 0 && len(p.Delete) == 0 && len(p.Rename) == 0
}

// Total returns the number of planned file operations.
func (p Plan) Total() int {
	return len(p.Add) + len(p.Update) + len(p.Delete) + len(p.Rename)
}

// Compute diffs prev against cur under the given mode. hints are candidate
// renames (old → new) from git's similarity detection; a hint is honored as
// a pure rename only when the blob id is unchanged, otherwise it degrades to
// delete+add per the sync contract. Output slices are sorted so the plan is
// deterministic for fixed inputs.
func Compute(prev, cur map[string]string, hints map[string]string, mode Mode) Plan {
	p := Plan{Rename: map[string]string{}}

	if mode == ModeFull {
		for path := range cur {
			p.Update = append(p.Update, path)
		}
		for path := range prev {
			if _, ok := cur[path]; !ok {
				p.Delete = append(p.Delete, path)
			}
		}
		sortPlan(&p)
		return p
	}

	added := map[string]bool{}
	deleted := map[string]bool{}

	for path, hash := range cur {
		prevHash, ok := prev[path]
		switch {
		case !ok:
			added[path] = true
		case prevHash != hash:
			p.Update = append(p.Update, path)
		}
	}
	for path := range prev {
		if _, ok := cur[path]; !ok {
			deleted[path] = true
		}
	}

	// Fold rename hints into path-only updates when the content moved intact.
	for old, moved := range hints {
		if !deleted[old] || !added[moved] {
			continue
		}
		if prev[old] == cur[moved] {
			p.Rename[old] = moved
			delete(deleted, old)
			delete(added, moved)
		}
	}

	for path := range added {
		p.Add = append(p.Add, path)
	}
	for path := range deleted {
		p.Delete = append(p.Delete, path)
	}
	sortPlan(&p)
	return p
}

func sortPlan(p *Plan) {
	sort.Strings(p.Add)
	sort.Strings(p.Update)
	sort.Strings(p.Delete)
}
