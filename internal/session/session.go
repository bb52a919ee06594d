// Package session tracks extraction sessions and drives their documents to a finished report.
package session

import (
	"maps"
	"slices"
	"sync"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/costing"
)

// Key identifies a session by owner and session id.
type Key struct {
	Owner string
	ID    string
}

func (k Key) String() string { return k.Owner + "_" + k.ID }

// Snapshot is the read-only view served to status pollers.
type Snapshot struct {
	Status         constants.SessionStatus `json:"status"`
	Files          map[string]string       `json:"files"`
	FileSizes      map[string]int64        `json:"file_sizes"`
	CompletedCount int                     `json:"completed_count"`
	TotalCount     int                     `json:"total_count"`
	DownloadURL    string                  `json:"download_url,omitempty"`
	CostAnalysis   *costing.Report         `json:"cost_analysis,omitempty"`
	Error          string                  `json:"error,omitempty"`
}

// Session is the mutable state of one batch. All mutation goes through its methods.
type Session struct {
	key Key

	mu        sync.Mutex
	status    constants.SessionStatus
	files     map[string]string
	order     []string
	sizes     map[string]int64
	completed int
	resultRef string
	cost      *costing.Report
	err       string
}

func newSession(key Key, names []string, sizes map[string]int64) *Session {
	s := &Session{
		key:    key,
		status: constants.SessionProcessing,
		files:  make(map[string]string, len(names)),
		order:  slices.Clone(names),
		sizes:  maps.Clone(sizes),
	}
	if s.sizes == nil {
		s.sizes = map[string]int64{}
	}
	for _, n := range names {
		s.files[n] = constants.FileStatusPending
	}
	return s
}

func (s *Session) Key() Key { return s.key }

// Names returns the file names in submission order.
func (s *Session) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.order)
}

func (s *Session) setFileStatus(name, status string) {
	s.mu.Lock()
	s.files[name] = status
	s.mu.Unlock()
}

// resolve records a file's terminal status and counts it as completed.
func (s *Session) resolve(name, status string) {
	s.mu.Lock()
	s.files[name] = status
	s.completed++
	s.mu.Unlock()
}

func (s *Session) finish(ref string, cost *costing.Report) {
	s.mu.Lock()
	s.status = constants.SessionCompleted
	s.resultRef = ref
	s.cost = cost
	s.mu.Unlock()
}

func (s *Session) fail(msg string) {
	s.mu.Lock()
	s.status = constants.SessionFailed
	s.err = msg
	s.mu.Unlock()
}

// Snapshot deep-copies the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{
		Status:         s.status,
		Files:          maps.Clone(s.files),
		FileSizes:      maps.Clone(s.sizes),
		CompletedCount: s.completed,
		TotalCount:     len(s.order),
		DownloadURL:    s.resultRef,
		Error:          s.err,
	}
	if s.cost != nil {
		c := *s.cost
		c.Summary.CostByModel = maps.Clone(s.cost.Summary.CostByModel)
		c.Files = maps.Clone(s.cost.Files)
		snap.CostAnalysis = &c
	}
	return snap
}
