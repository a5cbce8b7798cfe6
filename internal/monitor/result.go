package monitor

import (
	"time"

	"github.com/voipcheck/voipcheck/internal/status"
)

// Outcome classifies what a cycle observed
type Outcome string

const (
	OutcomeOK           Outcome = "ok"
	OutcomeUnreachable  Outcome = "unreachable"
	OutcomeUnrecognized Outcome = "unrecognized"
)

// Delivery records one attempted heartbeat
type Delivery struct {
	Action Action
	URL    string
	// Sent is false when the channel has no URL configured
	Sent bool
	Err  error
}

// Result represents the result of one check cycle
type Result struct {
	RunID      string
	Outcome    Outcome
	Status     *status.DeviceStatus
	Error      error
	Previous   State
	Next       State
	Deliveries []Delivery
	SaveError  error
	CheckedAt  time.Time
	Duration   time.Duration
}

// Failed returns the deliveries the heartbeat service did not accept
func (r Result) Failed() []Delivery {
	var failed []Delivery
	for _, d := range r.Deliveries {
		if d.Err != nil {
			failed = append(failed, d)
		}
	}
	return failed
}
