package toolexecutor

import (
	"sync"
	"time"
)

// PendingApproval is a destructive action waiting for a yes/no reply
type PendingApproval struct {
	ToolName    string    `json:"tool_name"`
	TargetID    string    `json:"target_id"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// ApprovalStore holds at most one pending approval per conversation
type ApprovalStore struct {
	pending map[int64]PendingApproval
	mu      sync.Mutex
}

// NewApprovalStore creates an empty store
func NewApprovalStore() *ApprovalStore {
	return &ApprovalStore{
		pending: make(map[int64]PendingApproval),
	}
}

// Put stores an approval, replacing any previous one for the conversation.
// It reports whether an earlier approval was replaced.
func (s *ApprovalStore) Put(conversationID int64, approval PendingApproval) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, replaced := s.pending[conversationID]
	s.pending[conversationID] = approval
	return replaced
}

// Take removes and returns the approval for the conversation in one step
func (s *ApprovalStore) Take(conversationID int64) (PendingApproval, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	approval, ok := s.pending[conversationID]
	if ok {
		delete(s.pending, conversationID)
	}
	return approval, ok
}

// Pending reports whether the conversation awaits a yes/no reply
func (s *ApprovalStore) Pending(conversationID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.pending[conversationID]
	return ok
}

// Len returns the number of conversations awaiting a reply
func (s *ApprovalStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.pending)
}
