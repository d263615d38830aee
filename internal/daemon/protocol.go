package daemon

import (
	"seek/internal/search"
	indexsync "seek/internal/sync"
)

// Request ops understood by the daemon.
const (
	OpPing   = "ping"
	OpFind   = "find"
	OpSync   = "sync"
	OpStatus = "status"
	OpStop   = "stop"
)

// Request is one newline-delimited JSON message from client to daemon.
type Request struct {
	Op       string `json:"op"`
	Query    string `json:"query,omitempty"`
	K        int    `json:"k,omitempty"`
	PathGlob string `json:"path_glob,omitempty"`
	Language string `json:"language,omitempty"`
	Staged   bool   `json:"staged,omitempty"`
	Reindex  bool   `json:"reindex,omitempty"`
}

// Response is the daemon's reply. Error carries the message and Code the
// stable exit code so clients preserve error semantics across the socket.
type Response struct {
	OK      bool            `json:"ok"`
	Error   string          `json:"error,omitempty"`
	Code    int             `json:"code,omitempty"`
	Results []search.Result `json:"results,omitempty"`
	Status  *StatusInfo     `json:"status,omitempty"`
	Sync    *SyncReport     `json:"sync,omitempty"`
}

// StatusInfo is the daemon's view of the index, returned by OpStatus.
type StatusInfo struct {
	Files          int    `json:"files"`
	Symbols        int    `json:"symbols"`
	Vectors        int    `json:"vectors"`
	Model          string `json:"model"`
	Dimension      int    `json:"dimension"`
	LastSyncedTree string `json:"last_synced_tree"`
	SyncMode       string `json:"sync_mode"`
	Pending        int    `json:"pending"`
	Syncing        bool   `json:"syncing"`
}

// SyncReport is the wire form of a sync summary.
type SyncReport struct {
	Mode     string   `json:"mode"`
	UpToDate bool     `json:"up_to_date"`
	Added    int      `json:"added"`
	Updated  int      `json:"updated"`
	Deleted  int      `json:"deleted"`
	Renamed  int      `json:"renamed"`
	Symbols  int      `json:"symbols"`
	Failures []string `json:"failures,omitempty"`
}

func newSyncReport(s *indexsync.Summary) *SyncReport {
	r := &SyncReport{
		Mode:     string(s.Mode),
		UpToDate: s.UpToDate,
		Added:    s.Added,
		Updated:  s.Updated,
		Deleted:  s.Deleted,
		Renamed:  s.Renamed,
		Symbols:  s.Symbols,
	}
	for _, f := range s.Failures {
		r.Failures = append(r.Failures, f.Path+": "+f.Err.Error())
	}
	return r
}
