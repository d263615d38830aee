// Package gitx wraps the git plumbing commands seek needs: tree snapshots,
// blob content, and rename detection. All functions shell out to git so the
// index always agrees with git's own view of the tree.
package gitx

import (
	"bytes"
	"fmt"
	"os/exec"
	"strings"
)

// Snapshot maps repository-relative paths to git blob ids.
type Snapshot map[string]string

func run(root string, args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = root
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return "", fmt.Errorf("git %s: %s", args[0], msg)
	}
	return stdout.String(), nil
}

// RepoRoot returns the top-level directory of the repository containing dir.
func RepoRoot(dir string) (string, error) {
	out, err := run(dir, "rev-parse", "--show-toplevel")
	if err != nil {
		return "", fmt.Errorf("not inside a git repository: %w", err)
	}
	return strings.TrimSpace(out), nil
}

// Head returns the current HEAD commit id, or "" for a repository with no
// commits yet.
func Head(root string) (string, error) {
	out, err := run(root, "rev-parse", "--verify", "HEAD")
	if err != nil {
		// An unborn branch has no HEAD; that is not an error for sync.
		return "", nil
	}
	return strings.TrimSpace(out), nil
}

// TreeSnapshot lists every blob reachable from rev, keyed by path.
func TreeSnapshot(root, rev string) (Snapshot, error) {
	if rev == "" {
		return Snapshot{}, nil
	}
	out, err := run(root, "ls-tree", "-r", rev)
	if err != nil {
		return nil, err
	}
	snap := Snapshot{}
	for _, line := range strings.Split(out, "\n") {
		if line == "" {
			continue
		}
		// Format: "<mode> <type> <oid>\t<path>"
		meta, path, ok := strings.Cut(line, "\t")
		if !ok {
			continue
		}
		fields := strings.Fields(meta)
		if len(fields) != 3 || fields[1] != "blob" {
			continue
		}
		snap[path] = fields[2]
	}
	return snap, nil
}

// StagedSnapshot lists the staged (index) state, keyed by path. This is the
// snapshot used for querying uncommitted edits.
func StagedSnapshot(root string) (Snapshot, error) {
	out, err := run(root, "ls-files", "-s")
	if err != nil {
		return nil, err
	}
	snap := Snapshot{}
	for _, line := range strings.Split(out, "\n") {
		if line == "" {
			continue
		}
		// Format: "<mode> <oid> <stage>\t<path>"
		meta, path, ok := strings.Cut(line, "\t")
		if !ok {
			continue
		}
		fields := strings.Fields(meta)
		if len(fields) != 3 || fields[2] != "0" {
			continue
		}
		snap[path] = fields[1]
	}
	return snap, nil
}

// BlobContent returns the content of one blob.
func BlobContent(root, oid string) ([]byte, error) {
	out, err := run(root, "cat-file", "blob", oid)
	if err != nil {
		return nil, err
	}
	return []byte(out), nil
}

// RenameHints asks git to detect renames between the last synced tree and
// the target (HEAD for commit mode, the index for staged mode). threshold is
// the similarity percentage below which a move counts as delete+add. The
// result maps old path to new path.
func RenameHints(root, fromRev string, staged bool, threshold int) (map[string]string, error) {
	if fromRev == "" {
		return nil, nil
	}
	args := []string{"diff", "--name-status", fmt.Sprintf("--find-renames=%d%%", threshold)}
	if staged {
		args = append(args, "--cached", fromRev)
	} else {
		// Commit mode compares trees; without the target rev git would diff
		// against the working tree and uncommitted edits would leak in.
		args = append(args, fromRev, "HEAD")
	}
	out, err := run(root, args...)
	if err != nil {
		return nil, err
	}
	hints := map[string]string{}
	for _, line := range strings.Split(out, "\n") {
		if !strings.HasPrefix(line, "R") {
			continue
		}
		// Format: "R<score>\t<old>\t<new>"
		parts := strings.Split(line, "\t")
		if len(parts) != 3 {
			continue
		}
		hints[parts[1]] = parts[2]
	}
	return hints, nil
}
