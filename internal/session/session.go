// Package session keeps per-conversation USSD navigation state between
// callbacks.
package session

import (
	"context"
	"errors"
	"time"
)

// ErrLockTimeout is returned when a session lock cannot be acquired before
// the context is done.
var ErrLockTimeout = errors.New("session lock timeout")

// Session is the state of one USSD conversation.
type Session struct {
	ID        string            `json:"id"`
	Phone     string            `json:"phone"`
	Node      string            `json:"node"`
	Stack     []string          `json:"stack,omitempty"`
	Scratch   map[string]string `json:"scratch,omitempty"`
	LoggedIn  bool              `json:"logged_in"`
	UserPhone string            `json:"user_phone,omitempty"`

	// LastText and LastResponse cache the previous callback so a gateway
	// retry with identical text is answered without re-running the step.
	LastText     string `json:"last_text"`
	LastResponse string `json:"last_response"`

	// Closed marks a session that has sent an END response. It is kept until
	// idle eviction so a replayed terminal callback cannot run again.
	Closed    bool      `json:"closed"`
	UpdatedAt time.Time `json:"updated_at"`
}

// New returns a fresh session positioned at root.
func New(id, phone, root string) *Session {
	return &Session{ID: id, Phone: phone, Node: root, Scratch: map[string]string{}}
}

// Push records node as the previous position before a forward move.
func (s *Session) Push(node string) {
	s.Stack = append(s.Stack, node)
}

// Pop removes and returns the most recent position.
func (s *Session) Pop() (string, bool) {
	if len(s.Stack) == 0 {
		return "", false
	}
	last := s.Stack[len(s.Stack)-1]
	s.Stack = s.Stack[:len(s.Stack)-1]
	return last, true
}

// Unwind truncates the stack down to and including the last occurrence of
// node. It reports whether node was on the stack.
func (s *Session) Unwind(node string) bool {
	for i := len(s.Stack) - 1; i >= 0; i-- {
		if s.Stack[i] == node {
			s.Stack = s.Stack[:i]
			return true
		}
	}
	return false
}

// Get reads a scratch value.
func (s *Session) Get(key string) string {
	return s.Scratch[key]
}

// Set writes a scratch value.
func (s *Session) Set(key, value string) {
	if s.Scratch == nil {
		s.Scratch = map[string]string{}
	}
	s.Scratch[key] = value
}

// Reset moves the session back to root and forgets navigation, scratch data
// and login state.
func (s *Session) Reset(root string) {
	s.Node = root
	s.Stack = nil
	s.Scratch = map[string]string{}
	s.LoggedIn = false
	s.UserPhone = ""
	s.Closed = false
}

// Login marks the session authenticated as phone.
func (s *Session) Login(phone string) {
	s.LoggedIn = true
	s.UserPhone = phone
}

// Close ends the conversation. Navigation and scratch data are dropped.
func (s *Session) Close() {
	s.Closed = true
	s.Stack = nil
	s.Scratch = map[string]string{}
}

// Store persists sessions. Callers must hold the lock for a session id while
// loading, mutating and saving it.
type Store interface {
	// Lock blocks until the caller owns id or ctx is done.
	Lock(ctx context.Context, id string) (unlock func(), err error)
	// Load returns the session, or false when it is unknown or expired.
	Load(ctx context.Context, id string) (*Session, bool, error)
	Save(ctx context.Context, s *Session) error
	Delete(ctx context.Context, id string) error
}
