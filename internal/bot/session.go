package bot

import "sync"

// Step is the operator's position in the announcement dialogue.
type Step int

const (
	StepNone Step = iota
	StepAwaitAnnouncementText
	StepAwaitAnnouncementPhoto
	StepAwaitAnnouncementCaption
)

type Session struct {
	Step     Step
	PhotoRef string
}

// Sessions tracks per-operator dialogue state. Updates for different
// operators arrive interleaved on the same poll loop, so access is locked.
type Sessions struct {
	mu       sync.Mutex
	sessions map[int64]*Session
}

func NewSessions() *Sessions {
	return &Sessions{sessions: make(map[int64]*Session)}
}

func (s *Sessions) Get(operatorID int64) Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	if session, ok := s.sessions[operatorID]; ok {
		return *session
	}
	return Session{Step: StepNone}
}

func (s *Sessions) Set(operatorID int64, session Session) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[operatorID] = &session
}

func (s *Sessions) Reset(operatorID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, operatorID)
}
