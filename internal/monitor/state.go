package monitor

import (
	"time"

	"github.com/voipcheck/voipcheck/internal/status"
)

// stateVersion is bumped when the persisted layout changes incompatibly
const stateVersion = 1

// Reachability is whether the adapter answered on the last cycle
type Reachability string

const (
	ReachabilityUnknown     Reachability = "unknown"
	ReachabilityReachable   Reachability = "reachable"
	ReachabilityUnreachable Reachability = "unreachable"
)

// State is what the engine remembers between runs
type State struct {
	Version int               `yaml:"version"`
	Adapter Reachability      `yaml:"adapter"`
	Line1   status.LineStatus `yaml:"line1"`
	Line2   status.LineStatus `yaml:"line2"`

	// Diagnostics for "voipcheck status"; never read by Decide.
	CheckedAt time.Time `yaml:"checked_at,omitempty"`
	RunID     string    `yaml:"run_id,omitempty"`
	LastError string    `yaml:"last_error,omitempty"`
}

// InitialState is the state assumed on the first run
func InitialState() State {
	return State{
		Version: stateVersion,
		Adapter: ReachabilityUnknown,
		Line1:   status.UnknownLine(),
		Line2:   status.UnknownLine(),
	}
}

// normalized replaces empty fields with their unknown values
func (s State) normalized() State {
	s.Version = stateVersion
	if s.Adapter == "" {
		s.Adapter = ReachabilityUnknown
	}
	for _, l := range []*status.LineStatus{&s.Line1, &s.Line2} {
		if l.Registration == "" {
			l.Registration = status.RegistrationUnknown
		}
		if l.Hook == "" {
			l.Hook = status.HookUnknown
		}
	}
	return s
}

// Lines returns the remembered line states in line-number order
func (s State) Lines() [2]status.LineStatus {
	return [2]status.LineStatus{s.Line1, s.Line2}
}

// BothRegistered reports whether both lines were registered
func (s State) BothRegistered() bool {
	return s.Line1.Registration == status.RegistrationRegistered &&
		s.Line2.Registration == status.RegistrationRegistered
}

// SameDecisionState reports whether two states lead to identical decisions
func (s State) SameDecisionState(o State) bool {
	a, b := s.normalized(), o.normalized()
	return a.Adapter == b.Adapter && a.Line1 == b.Line1 && a.Line2 == b.Line2
}
