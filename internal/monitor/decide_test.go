package monitor

import (
	"errors"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/voipcheck/voipcheck/internal/config"
	"github.com/voipcheck/voipcheck/internal/heartbeat"
	"github.com/voipcheck/voipcheck/internal/status"
)

var defaultPolicy = Policy{Adapter: config.PolicyEveryCycle, Registration: config.PolicyOnChange}

func line(reg status.RegistrationState, hook status.HookState) status.LineStatus {
	return status.LineStatus{Registration: reg, Hook: hook}
}

func observed(l1, l2 status.LineStatus) Observation {
	return Observation{Outcome: OutcomeOK, Status: status.DeviceStatus{Line1: l1, Line2: l2}}
}

func stateWith(adapter Reachability, l1, l2 status.LineStatus) State {
	s := InitialState()
	s.Adapter = adapter
	s.Line1 = l1
	s.Line2 = l2
	return s
}

func actionsOn(actions []Action, ch Channel) []Action {
	var out []Action
	for _, a := range actions {
		if a.Channel == ch {
			out = append(out, a)
		}
	}
	return out
}

var (
	regOn    = line(status.RegistrationRegistered, status.HookOn)
	regOff   = line(status.RegistrationRegistered, status.HookOff)
	failedOn = line(status.RegistrationFailed, status.HookOn)
	unknown  = status.UnknownLine()
)

func TestDecideUnreachableCarriesLinesOver(t *testing.T) {
	prev := stateWith(ReachabilityReachable, regOff, failedOn)
	obs := Observation{Outcome: OutcomeUnreachable, Err: errors.New("connection refused")}

	next, actions := Decide(prev, obs, defaultPolicy)

	if len(actions) != 1 || actions[0].Channel != ChannelAdapter || actions[0].Signal.Kind != heartbeat.KindFailure {
		t.Fatalf("Expected a single adapter failure, got %+v", actions)
	}
	if !strings.Contains(actions[0].Signal.Detail, "connection refused") {
		t.Errorf("Expected cause in detail, got %q", actions[0].Signal.Detail)
	}
	if next.Adapter != ReachabilityUnreachable {
		t.Errorf("Expected adapter unreachable, got %s", next.Adapter)
	}
	if next.Line1 != regOff || next.Line2 != failedOn {
		t.Errorf("Expected line state carried over, got %+v %+v", next.Line1, next.Line2)
	}
}

func TestDecideUnrecognizedPageIsAdapterFailure(t *testing.T) {
	obs := Observation{Outcome: OutcomeUnrecognized, Err: &status.ParseError{Section: status.SectionLine1}}

	next, actions := Decide(InitialState(), obs, defaultPolicy)

	if len(actions) != 1 || actions[0].Channel != ChannelAdapter || actions[0].Signal.Kind != heartbeat.KindFailure {
		t.Fatalf("Expected a single adapter failure, got %+v", actions)
	}
	if !strings.Contains(actions[0].Signal.Detail, "not recognized") {
		t.Errorf("Expected parse detail, got %q", actions[0].Signal.Detail)
	}
	if next.Adapter != ReachabilityUnreachable || next.Line1 != unknown {
		t.Errorf("Unexpected next state %+v", next)
	}
}

func TestDecideFreshStateWithFailedLine(t *testing.T) {
	next, actions := Decide(InitialState(), observed(regOn, failedOn), defaultPolicy)

	if len(actions) != 2 {
		t.Fatalf("Expected 2 actions, got %+v", actions)
	}
	if actions[0].Channel != ChannelAdapter || actions[0].Signal.Kind != heartbeat.KindSuccess {
		t.Errorf("Expected adapter success first, got %+v", actions[0])
	}
	reg := actionsOn(actions, ChannelRegistration)
	if len(reg) != 1 || reg[0].Signal.Kind != heartbeat.KindFailure || reg[0].Signal.Detail != "Line 2 NOT REGISTERED." {
		t.Errorf("Expected registration failure for line 2, got %+v", reg)
	}
	if len(actionsOn(actions, ChannelLine1Hook))+len(actionsOn(actions, ChannelLine2Hook)) != 0 {
		t.Errorf("Expected no hook signals, got %+v", actions)
	}
	if next.Line2 != failedOn || next.Adapter != ReachabilityReachable {
		t.Errorf("Unexpected next state %+v", next)
	}
}

func TestDecideRegistration(t *testing.T) {
	tests := []struct {
		name     string
		prev     State
		l1, l2   status.LineStatus
		policy   Policy
		wantKind heartbeat.Kind
		wantNone bool
		detail   string
	}{
		{
			name:     "becomes both registered",
			prev:     stateWith(ReachabilityReachable, regOn, failedOn),
			l1:       regOn,
			l2:       regOn,
			policy:   defaultPolicy,
			wantKind: heartbeat.KindSuccess,
		},
		{
			name:     "already both registered",
			prev:     stateWith(ReachabilityReachable, regOn, regOn),
			l1:       regOn,
			l2:       regOn,
			policy:   defaultPolicy,
			wantNone: true,
		},
		{
			name:     "already both registered with every_cycle policy",
			prev:     stateWith(ReachabilityReachable, regOn, regOn),
			l1:       regOn,
			l2:       regOn,
			policy:   Policy{Registration: config.PolicyEveryCycle},
			wantKind: heartbeat.KindSuccess,
		},
		{
			name:     "failure repeats every cycle",
			prev:     stateWith(ReachabilityReachable, failedOn, failedOn),
			l1:       failedOn,
			l2:       failedOn,
			policy:   defaultPolicy,
			wantKind: heartbeat.KindFailure,
			detail:   "Line 1, Line 2 NOT REGISTERED.",
		},
		{
			name:     "unknown registration sends nothing",
			prev:     InitialState(),
			l1:       regOn,
			l2:       unknown,
			policy:   defaultPolicy,
			wantNone: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, actions := Decide(tt.prev, observed(tt.l1, tt.l2), tt.policy)
			reg := actionsOn(actions, ChannelRegistration)
			if tt.wantNone {
				if len(reg) != 0 {
					t.Errorf("Expected no registration signal, got %+v", reg)
				}
				return
			}
			if len(reg) != 1 || reg[0].Signal.Kind != tt.wantKind {
				t.Fatalf("Expected one %s registration signal, got %+v", tt.wantKind, reg)
			}
			if tt.detail != "" && reg[0].Signal.Detail != tt.detail {
				t.Errorf("Expected detail %q, got %q", tt.detail, reg[0].Signal.Detail)
			}
		})
	}
}

func TestDecideHookEdges(t *testing.T) {
	state := stateWith(ReachabilityReachable, regOn, regOn)

	// on -> off
	state, actions := Decide(state, observed(regOff, regOn), defaultPolicy)
	hook := actionsOn(actions, ChannelLine1Hook)
	if len(hook) != 1 || hook[0].Signal.Kind != heartbeat.KindFailure {
		t.Fatalf("Expected one off-hook signal, got %+v", hook)
	}
	if len(actionsOn(actions, ChannelLine2Hook)) != 0 {
		t.Errorf("Expected nothing for line 2, got %+v", actions)
	}

	// off -> off
	state, actions = Decide(state, observed(regOff, regOn), defaultPolicy)
	if hook := actionsOn(actions, ChannelLine1Hook); len(hook) != 0 {
		t.Errorf("Expected no signal while off hook persists, got %+v", hook)
	}

	// off -> on
	_, actions = Decide(state, observed(regOn, regOn), defaultPolicy)
	hook = actionsOn(actions, ChannelLine1Hook)
	if len(hook) != 1 || hook[0].Signal.Kind != heartbeat.KindSuccess {
		t.Errorf("Expected one recovery signal, got %+v", hook)
	}
}

func TestDecideOffHookAfterUnknown(t *testing.T) {
	_, actions := Decide(InitialState(), observed(regOn, regOff), defaultPolicy)
	hook := actionsOn(actions, ChannelLine2Hook)
	if len(hook) != 1 || hook[0].Signal.Kind != heartbeat.KindFailure || hook[0].Signal.Detail != "Line 2 off hook." {
		t.Errorf("Expected off-hook alert on first observation, got %+v", hook)
	}
}

func TestDecideAdapterPolicy(t *testing.T) {
	onChange := Policy{Adapter: config.PolicyOnChange, Registration: config.PolicyOnChange}

	_, actions := Decide(stateWith(ReachabilityReachable, regOn, regOn), observed(regOn, regOn), onChange)
	if len(actionsOn(actions, ChannelAdapter)) != 0 {
		t.Errorf("Expected no adapter success while reachable with on_change, got %+v", actions)
	}

	_, actions = Decide(stateWith(ReachabilityUnreachable, regOn, regOn), observed(regOn, regOn), onChange)
	if a := actionsOn(actions, ChannelAdapter); len(a) != 1 || a[0].Signal.Kind != heartbeat.KindSuccess {
		t.Errorf("Expected recovery success with on_change, got %+v", actions)
	}

	_, actions = Decide(stateWith(ReachabilityReachable, regOn, regOn), observed(regOn, regOn), defaultPolicy)
	if a := actionsOn(actions, ChannelAdapter); len(a) != 1 {
		t.Errorf("Expected adapter success every cycle, got %+v", actions)
	}
}

func genLine() gopter.Gen {
	return gopter.CombineGens(
		gen.OneConstOf(status.RegistrationRegistered, status.RegistrationFailed, status.RegistrationUnknown),
		gen.OneConstOf(status.HookOn, status.HookOff, status.HookUnknown),
	).Map(func(v []interface{}) status.LineStatus {
		return status.LineStatus{
			Registration: v[0].(status.RegistrationState),
			Hook:         v[1].(status.HookState),
		}
	})
}

func genReachability() gopter.Gen {
	return gen.OneConstOf(ReachabilityUnknown, ReachabilityReachable, ReachabilityUnreachable)
}

func TestPropertyDecide(t *testing.T) {
	params := gopter.DefaultTestParameters()
	params.MinSuccessfulTests = 200
	props := gopter.NewProperties(params)

	props.Property("failed observation signals only the adapter channel", prop.ForAll(
		func(adapter Reachability, l1, l2 status.LineStatus) bool {
			prev := stateWith(adapter, l1, l2)
			next, actions := Decide(prev, Observation{Outcome: OutcomeUnreachable}, defaultPolicy)
			return len(actions) == 1 &&
				actions[0].Channel == ChannelAdapter &&
				actions[0].Signal.Kind == heartbeat.KindFailure &&
				next.Line1 == l1 && next.Line2 == l2 &&
				next.Adapter == ReachabilityUnreachable
		},
		genReachability(), genLine(), genLine(),
	))

	props.Property("repeating an observation never repeats edge-triggered signals", prop.ForAll(
		func(adapter Reachability, p1, p2, l1, l2 status.LineStatus) bool {
			first, _ := Decide(stateWith(adapter, p1, p2), observed(l1, l2), defaultPolicy)
			_, actions := Decide(first, observed(l1, l2), defaultPolicy)
			for _, a := range actions {
				switch a.Channel {
				case ChannelLine1Hook, ChannelLine2Hook:
					return false
				case ChannelRegistration:
					if a.Signal.Kind == heartbeat.KindSuccess {
						return false
					}
				}
			}
			return true
		},
		genReachability(), genLine(), genLine(), genLine(), genLine(),
	))

	props.Property("at most one signal per channel", prop.ForAll(
		func(adapter Reachability, p1, p2, l1, l2 status.LineStatus) bool {
			_, actions := Decide(stateWith(adapter, p1, p2), observed(l1, l2), defaultPolicy)
			seen := map[Channel]bool{}
			for _, a := range actions {
				if seen[a.Channel] {
					return false
				}
				seen[a.Channel] = true
			}
			return true
		},
		genReachability(), genLine(), genLine(), genLine(), genLine(),
	))

	props.TestingRun(t)
}
