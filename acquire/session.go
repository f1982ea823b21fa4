package acquire

import (
	"sync"

	"github.com/google/uuid"
	"github.com/tomlinsa/andorview/camera"
)

// State is the lifecycle state of a session
type State int

const (
	// Idle means the session exists but the sensor is not armed
	Idle State = iota

	// Running means the worker loop is polling an armed sensor
	Running

	// Stopped means the operator ended the session normally
	Stopped

	// Faulted means a device error terminated the session; the operator
	// must start a new one
	Faulted
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Stopped:
		return "stopped"
	case Faulted:
		return "faulted"
	}
	return "unknown"
}

// Session is one continuous camera-armed period.  It holds the frozen
// configuration and the lifecycle state.  At most one session is active per
// camera at a time; the adapter enforces that with ErrAlreadyRunning.
type Session struct {
	// ID identifies the session in logs and status reports
	ID string

	// Config is the configuration the session was started with.  Frozen;
	// changing acquisition parameters means a new session.
	Config camera.Config

	mu    sync.Mutex
	state State
	fault error
}

// NewSession returns an Idle session for the given frozen config
func NewSession(cfg camera.Config) *Session {
	return &Session{ID: uuid.NewString(), Config: cfg, state: Idle}
}

// State returns the current lifecycle state
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Fault returns the device error that faulted the session, or nil
func (s *Session) Fault() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fault
}

func (s *Session) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

func (s *Session) setFault(err error) {
	s.mu.Lock()
	s.state = Faulted
	s.fault = err
	s.mu.Unlock()
}
