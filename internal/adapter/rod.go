package adapter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/rs/zerolog"

	"github.com/voipcheck/voipcheck/internal/credentials"
)

const (
	DefaultTimeout     = 90 * time.Second
	DefaultStepTimeout = 30 * time.Second
)

// RodFetcher logs in to the adapter with a headless Chromium driven by rod
type RodFetcher struct {
	Bin         string
	Headless    bool
	Timeout     time.Duration
	StepTimeout time.Duration
	Logger      zerolog.Logger
}

// NewRodFetcher creates a fetcher. An empty bin lets rod find or download Chromium.
func NewRodFetcher(bin string, headless bool, timeout, stepTimeout time.Duration, logger zerolog.Logger) *RodFetcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if stepTimeout <= 0 {
		stepTimeout = DefaultStepTimeout
	}
	return &RodFetcher{
		Bin:         bin,
		Headless:    headless,
		Timeout:     timeout,
		StepTimeout: stepTimeout,
		Logger:      logger,
	}
}

// Fetch reads the voice status content. Browser failures, including panics
// raised inside the driver, are returned as an Unreachable outcome.
func (f *RodFetcher) Fetch(ctx context.Context, adapterURL string, creds credentials.Credentials) (out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			out = Unreachable(fmt.Errorf("browser automation failed: %v", r))
		}
	}()

	content, err := f.fetch(ctx, adapterURL, creds)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("timed out: %w", err)
		}
		return Unreachable(err)
	}
	return Reachable(content)
}

func (f *RodFetcher) fetch(ctx context.Context, adapterURL string, creds credentials.Credentials) (string, error) {
	base, err := BaseURL(adapterURL)
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, f.Timeout)
	defer cancel()

	f.Logger.Info().Msg("Starting headless browser")
	l := launcher.New().Context(ctx).Headless(f.Headless)
	if f.Bin != "" {
		l = l.Bin(f.Bin)
	}
	controlURL, err := l.Launch()
	if err != nil {
		return "", fmt.Errorf("failed to launch browser: %w", err)
	}
	// Kill must precede Cleanup, which waits for the process to exit
	defer func() {
		l.Kill()
		l.Cleanup()
	}()

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		return "", fmt.Errorf("failed to connect to browser: %w", err)
	}
	defer browser.Close()

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return "", fmt.Errorf("failed to open page: %w", err)
	}

	if err := f.login(page, base, creds); err != nil {
		return "", err
	}

	return f.readStatus(page, base)
}

// login submits the credentials on the adapter's login form
func (f *RodFetcher) login(page *rod.Page, base string, creds credentials.Credentials) error {
	f.Logger.Info().Str("url", base).Msg("Opening adapter")
	if err := page.Timeout(f.StepTimeout).Navigate(base); err != nil {
		return fmt.Errorf("failed to open %s: %w", base, err)
	}

	user, err := page.Timeout(f.StepTimeout).Element(SelectorUser)
	if err != nil {
		return fmt.Errorf("login form not found: %w", err)
	}
	if err := user.Input(creds.Username); err != nil {
		return fmt.Errorf("failed to enter user name: %w", err)
	}

	pwd, err := page.Timeout(f.StepTimeout).Element(SelectorPassword)
	if err != nil {
		return fmt.Errorf("password field not found: %w", err)
	}
	if err := pwd.Input(creds.Password); err != nil {
		return fmt.Errorf("failed to enter password: %w", err)
	}

	f.Logger.Info().Str("user", creds.Username).Msg("Logging in")
	if err := pwd.Type(input.Enter); err != nil {
		return fmt.Errorf("failed to submit login form: %w", err)
	}

	_, waitErr := page.Timeout(f.StepTimeout).Element(SelectorLoggedIn)
	info, infoErr := page.Info()
	if infoErr == nil && sameURL(info.URL, base) {
		return &LoginError{Username: creds.Username}
	}
	if waitErr != nil {
		return fmt.Errorf("login did not complete: %w", waitErr)
	}

	return nil
}

// readStatus opens the voice page and returns the status element's HTML
func (f *RodFetcher) readStatus(page *rod.Page, base string) (string, error) {
	voiceURL := VoiceURL(base)
	f.Logger.Info().Str("url", voiceURL).Msg("Opening status page")
	if err := page.Timeout(f.StepTimeout).Navigate(voiceURL); err != nil {
		return "", fmt.Errorf("failed to open %s: %w", voiceURL, err)
	}

	frameEl, err := page.Timeout(f.StepTimeout).Element(SelectorFrame)
	if err != nil {
		return "", fmt.Errorf("status frame not found: %w", err)
	}
	frame, err := frameEl.Frame()
	if err != nil {
		return "", fmt.Errorf("failed to enter status frame: %w", err)
	}

	infoEl, err := frame.Timeout(f.StepTimeout).Element(SelectorStatusInfo)
	if err != nil {
		return "", fmt.Errorf("status element not found: %w", err)
	}
	html, err := infoEl.HTML()
	if err != nil {
		return "", fmt.Errorf("failed to read status element: %w", err)
	}

	f.Logger.Debug().Int("bytes", len(html)).Msg("Status page read")
	return html, nil
}
