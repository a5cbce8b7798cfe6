package monitor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/voipcheck/voipcheck/internal/adapter"
	"github.com/voipcheck/voipcheck/internal/config"
	"github.com/voipcheck/voipcheck/internal/credentials"
	"github.com/voipcheck/voipcheck/internal/heartbeat"
	"github.com/voipcheck/voipcheck/internal/status"
)

// Targets maps each channel to its heartbeat URL. An empty URL disables the channel.
type Targets map[Channel]string

// TargetsFromConfig returns the heartbeat URLs configured in cfg
func TargetsFromConfig(cfg *config.Config) Targets {
	return Targets{
		ChannelAdapter:      cfg.AdapterPingURL,
		ChannelRegistration: cfg.RegistrationStatePingURL,
		ChannelLine1Hook:    cfg.Line1.HookStatePingURL,
		ChannelLine2Hook:    cfg.Line2.HookStatePingURL,
	}
}

// Engine runs check cycles against one adapter
type Engine struct {
	AdapterURL  string
	Credentials credentials.Credentials
	Fetcher     adapter.Fetcher
	Parse       func(content string) (status.DeviceStatus, error)
	Pinger      heartbeat.Pinger
	Store       Store
	Targets     Targets
	Policy      Policy
	Logger      zerolog.Logger

	now      func() time.Time
	newRunID func() string
}

// NewEngine creates an engine for the adapter described by cfg
func NewEngine(cfg *config.Config, creds credentials.Credentials, fetcher adapter.Fetcher, pinger heartbeat.Pinger, store Store, logger zerolog.Logger) *Engine {
	return &Engine{
		AdapterURL:  cfg.AdapterURL,
		Credentials: creds,
		Fetcher:     fetcher,
		Parse:       status.Parse,
		Pinger:      pinger,
		Store:       store,
		Targets:     TargetsFromConfig(cfg),
		Policy: Policy{
			Adapter:      cfg.AdapterPingPolicy,
			Registration: cfg.RegistrationPingPolicy,
		},
		Logger: logger,
	}
}

// Run loads the previous state, runs one cycle and saves the next state.
// It always completes; failures are reported in the Result and the log.
func (e *Engine) Run(ctx context.Context) Result {
	prev, err := e.Store.Load()
	if err != nil {
		e.Logger.Warn().Err(err).Msg("Previous state unreadable, starting fresh")
		prev = InitialState()
	}

	result := e.Cycle(ctx, prev)

	if err := e.Store.Save(result.Next); err != nil {
		result.SaveError = err
		e.Logger.Error().Err(err).Msg("Failed to save state")
	}

	return result
}

// Cycle runs one check starting from prev and returns the result, whose
// Next field is the state for the following cycle. It does not persist.
func (e *Engine) Cycle(ctx context.Context, prev State) Result {
	start := e.clock()
	runID := e.runID()
	logger := e.Logger.With().Str("run_id", runID).Logger()

	obs := e.observe(ctx)
	next, actions := Decide(prev, obs, e.Policy)

	next.CheckedAt = start
	next.RunID = runID
	next.LastError = ""
	if obs.Err != nil {
		next.LastError = obs.Err.Error()
	}

	result := Result{
		RunID:     runID,
		Outcome:   obs.Outcome,
		Error:     obs.Err,
		Previous:  prev,
		Next:      next,
		CheckedAt: start,
	}

	switch obs.Outcome {
	case OutcomeOK:
		ds := obs.Status
		result.Status = &ds
		for i, line := range ds.Lines() {
			logger.Info().
				Int("line", i+1).
				Str("hook", string(line.Hook)).
				Str("registration", string(line.Registration)).
				Msgf("Line %d Status", i+1)
		}
	case OutcomeUnrecognized:
		logger.Error().Err(obs.Err).Msg("Status page not recognized")
	default:
		logger.Error().Err(obs.Err).Msg("Adapter unreachable")
	}

	for _, action := range actions {
		result.Deliveries = append(result.Deliveries, e.deliver(ctx, logger, runID, action))
	}

	result.Duration = e.clock().Sub(start)
	return result
}

// observe fetches and parses the status page. Panics from either step are
// treated as an unreachable adapter so the cycle still completes.
func (e *Engine) observe(ctx context.Context) (obs Observation) {
	defer func() {
		if r := recover(); r != nil {
			obs = Observation{Outcome: OutcomeUnreachable, Err: fmt.Errorf("unexpected failure: %v", r)}
		}
	}()

	out := e.Fetcher.Fetch(ctx, e.AdapterURL, e.Credentials)
	if !out.OK() {
		return Observation{Outcome: OutcomeUnreachable, Err: out.Err}
	}

	parse := e.Parse
	if parse == nil {
		parse = status.Parse
	}
	ds, err := parse(out.Content)
	if err != nil {
		var perr *status.ParseError
		if !errors.As(err, &perr) {
			err = &status.ParseError{Reason: err.Error()}
		}
		return Observation{Outcome: OutcomeUnrecognized, Err: err}
	}

	return Observation{Outcome: OutcomeOK, Status: ds}
}

// deliver sends one heartbeat. Delivery errors are logged, never returned.
func (e *Engine) deliver(ctx context.Context, logger zerolog.Logger, runID string, action Action) Delivery {
	url := e.Targets[action.Channel]
	d := Delivery{Action: action, URL: url}

	event := logger.Info().
		Str("channel", string(action.Channel)).
		Str("kind", string(action.Signal.Kind))
	if action.Signal.Detail != "" {
		event = event.Str("detail", action.Signal.Detail)
	}

	if url == "" {
		event.Msg("Heartbeat disabled, no URL configured")
		return d
	}
	event.Msg("Sending heartbeat")

	signal := action.Signal
	signal.RunID = runID
	d.Sent = true
	if err := e.Pinger.Ping(ctx, url, signal); err != nil {
		d.Err = err
		logger.Warn().Err(err).Str("channel", string(action.Channel)).Msg("Heartbeat not delivered")
	}
	return d
}

func (e *Engine) clock() time.Time {
	if e.now != nil {
		return e.now()
	}
	return time.Now()
}

func (e *Engine) runID() string {
	if e.newRunID != nil {
		return e.newRunID()
	}
	return uuid.NewString()
}
