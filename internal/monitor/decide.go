package monitor

import (
	"fmt"
	"strings"

	"github.com/voipcheck/voipcheck/internal/config"
	"github.com/voipcheck/voipcheck/internal/heartbeat"
	"github.com/voipcheck/voipcheck/internal/status"
)

// Channel identifies which heartbeat check a signal is for
type Channel string

const (
	ChannelAdapter      Channel = "adapter"
	ChannelRegistration Channel = "registration"
	ChannelLine1Hook    Channel = "line1"
	ChannelLine2Hook    Channel = "line2"
)

// Channels lists every channel in the order actions are sent
var Channels = []Channel{ChannelAdapter, ChannelRegistration, ChannelLine1Hook, ChannelLine2Hook}

var hookChannels = [2]Channel{ChannelLine1Hook, ChannelLine2Hook}

// Action is one heartbeat the cycle must send
type Action struct {
	Channel Channel
	Signal  heartbeat.Signal
}

// Policy selects when success heartbeats repeat
type Policy struct {
	Adapter      config.Policy
	Registration config.Policy
}

// Observation is what one cycle learned about the adapter
type Observation struct {
	Outcome Outcome
	Status  status.DeviceStatus
	Err     error
}

// Decide compares an observation with the previous state and returns the
// next state and the heartbeats to send. It performs no I/O.
//
// Adapter failure carries the line states over unchanged. Registration is
// judged jointly across both lines; hook signals are edge-triggered per line.
func Decide(prev State, obs Observation, policy Policy) (State, []Action) {
	prev = prev.normalized()
	next := prev

	if obs.Outcome != OutcomeOK {
		next.Adapter = ReachabilityUnreachable
		return next, []Action{{Channel: ChannelAdapter, Signal: heartbeat.Failure(failureDetail(obs))}}
	}

	var actions []Action

	next.Adapter = ReachabilityReachable
	next.Line1 = obs.Status.Line1
	next.Line2 = obs.Status.Line2

	if policy.Adapter != config.PolicyOnChange || prev.Adapter != ReachabilityReachable {
		actions = append(actions, Action{Channel: ChannelAdapter, Signal: heartbeat.Success()})
	}

	if signal, ok := decideRegistration(prev, next, policy.Registration); ok {
		actions = append(actions, Action{Channel: ChannelRegistration, Signal: signal})
	}

	prevLines, lines := prev.Lines(), next.Lines()
	for i := range lines {
		if signal, ok := decideHook(i+1, prevLines[i].Hook, lines[i].Hook); ok {
			actions = append(actions, Action{Channel: hookChannels[i], Signal: signal})
		}
	}

	return next, actions
}

// decideRegistration fails on every cycle while any line is Failed and
// succeeds when both lines become registered.
func decideRegistration(prev, next State, policy config.Policy) (heartbeat.Signal, bool) {
	var failed []string
	for i, line := range next.Lines() {
		if line.Registration == status.RegistrationFailed {
			failed = append(failed, fmt.Sprintf("Line %d", i+1))
		}
	}
	if len(failed) > 0 {
		return heartbeat.Failure(strings.Join(failed, ", ") + " NOT REGISTERED."), true
	}

	if !next.BothRegistered() {
		return heartbeat.Signal{}, false
	}
	if policy == config.PolicyEveryCycle || !prev.BothRegistered() {
		return heartbeat.Success(), true
	}
	return heartbeat.Signal{}, false
}

// decideHook signals off-hook on the failure channel and recovery on success
func decideHook(line int, prev, cur status.HookState) (heartbeat.Signal, bool) {
	switch {
	case cur == status.HookOff && prev != status.HookOff:
		return heartbeat.Failure(fmt.Sprintf("Line %d off hook.", line)), true
	case cur == status.HookOn && prev == status.HookOff:
		return heartbeat.Success(), true
	default:
		return heartbeat.Signal{}, false
	}
}

func failureDetail(obs Observation) string {
	cause := "no response"
	if obs.Err != nil {
		cause = obs.Err.Error()
	}
	if obs.Outcome == OutcomeUnrecognized {
		return "Adapter status page not recognized: " + cause
	}
	return "Adapter unreachable: " + cause
}
