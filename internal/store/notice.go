// Package store holds the process-wide state containers the screens (here,
// the control API) render from. Only the designated mutator methods write;
// reconciliation controllers drive them from poll results and channel events.
package store

import "sync"

// NoticeType classifies a user-facing notice
type NoticeType string

const (
	NoticeSuccess NoticeType = "success"
	NoticeError   NoticeType = "error"
	NoticeInfo    NoticeType = "info"
)

// Notice is a queued user-facing message
type Notice struct {
	Type    NoticeType `json:"type"`
	Title   string     `json:"title,omitempty"`
	Message string     `json:"message"`
}

// NoticeStore queues notices until the UI consumes them
type NoticeStore struct {
	mu      sync.Mutex
	pending []Notice
}

// NewNoticeStore creates an empty notice store
func NewNoticeStore() *NoticeStore {
	return &NoticeStore{}
}

// Show queues a notice
func (s *NoticeStore) Show(t NoticeType, title, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = append(s.pending, Notice{Type: t, Title: title, Message: message})
}

// Pending returns the queued notices without consuming them
func (s *NoticeStore) Pending() []Notice {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Notice, len(s.pending))
	copy(out, s.pending)
	return out
}

// Drain returns and clears the queued notices
func (s *NoticeStore) Drain() []Notice {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.pending
	s.pending = nil
	return out
}
