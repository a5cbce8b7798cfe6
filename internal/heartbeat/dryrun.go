package heartbeat

import (
	"context"

	"github.com/rs/zerolog"
)

// DryRun logs the signals it would send instead of delivering them
type DryRun struct {
	Logger zerolog.Logger
}

// Ping logs the signal
func (d DryRun) Ping(_ context.Context, pingURL string, signal Signal) error {
	if pingURL == "" {
		return nil
	}
	d.Logger.Info().
		Str("url", pingURL).
		Str("kind", string(signal.Kind)).
		Str("detail", signal.Detail).
		Msg("dry run: heartbeat not sent")
	return nil
}
