package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/voipcheck/voipcheck/internal/monitor"
	"github.com/voipcheck/voipcheck/internal/status"
)

var (
	colorAccent    = lipgloss.Color("#04D9FF") // Neon Cyan
	colorHealthy   = lipgloss.Color("#00FF94") // Neon Green
	colorUnhealthy = lipgloss.Color("#FF0055") // Neon Red
	colorUnknown   = lipgloss.Color("#FFD700") // Gold
	colorMuted     = lipgloss.Color("#565f89") // Muted Blue
	colorSubtle    = lipgloss.Color("#24283b") // Dark Blue
	colorText      = lipgloss.Color("#c0caf5") // Light Blue/White

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorAccent)

	cardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			Padding(0, 1).
			MarginRight(1)

	labelStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorText)

	mutedStyle = lipgloss.NewStyle().
			Foreground(colorMuted)

	errorStyle = lipgloss.NewStyle().
			Foreground(colorUnhealthy)
)

// health is the traffic-light reading of one value
type health int

const (
	healthUnknown health = iota
	healthGood
	healthBad
)

func (h health) color() lipgloss.Color {
	switch h {
	case healthGood:
		return colorHealthy
	case healthBad:
		return colorUnhealthy
	default:
		return colorUnknown
	}
}

func (h health) icon() string {
	switch h {
	case healthGood:
		return "✓"
	case healthBad:
		return "✗"
	default:
		return "?"
	}
}

// Heartbeat describes one configured heartbeat channel for display
type Heartbeat struct {
	Channel monitor.Channel
	Enabled bool
}

// HeartbeatsFor lists the channels of targets in send order
func HeartbeatsFor(targets monitor.Targets) []Heartbeat {
	hbs := make([]Heartbeat, 0, len(monitor.Channels))
	for _, ch := range monitor.Channels {
		hbs = append(hbs, Heartbeat{Channel: ch, Enabled: strings.TrimSpace(targets[ch]) != ""})
	}
	return hbs
}

// StatusView renders the remembered state of the last check
type StatusView struct {
	State      monitor.State
	StatePath  string
	Heartbeats []Heartbeat
	Now        time.Time
	Width      int
}

// Render returns the view as a string ready for the terminal
func (v StatusView) Render() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("VOIPCHECK"))
	b.WriteString("\n")
	b.WriteString(mutedStyle.Render(v.checkedLine()))
	b.WriteString("\n\n")

	cardWidth := 24
	if v.Width > 0 && v.Width/3-2 > cardWidth {
		cardWidth = v.Width/3 - 2
	}

	cards := []string{
		v.adapterCard(cardWidth),
		lineCard(1, v.State.Line1, cardWidth),
		lineCard(2, v.State.Line2, cardWidth),
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, cards...))
	b.WriteString("\n")

	if v.State.LastError != "" {
		b.WriteString(errorStyle.Render("Last error: " + v.State.LastError))
		b.WriteString("\n")
	}

	if len(v.Heartbeats) > 0 {
		b.WriteString("\n")
		b.WriteString(labelStyle.Render("Heartbeats"))
		b.WriteString("\n")
		for _, hb := range v.Heartbeats {
			mark := healthyMark()
			text := "configured"
			if !hb.Enabled {
				mark = mutedStyle.Render("-")
				text = "disabled"
			}
			b.WriteString(fmt.Sprintf("  %s %-13s %s\n", mark, hb.Channel, mutedStyle.Render(text)))
		}
	}

	if v.StatePath != "" {
		b.WriteString("\n")
		b.WriteString(lipgloss.NewStyle().Foreground(colorSubtle).Render("State: " + v.StatePath))
		b.WriteString("\n")
	}

	return b.String()
}

func (v StatusView) checkedLine() string {
	if v.State.CheckedAt.IsZero() {
		return "No check has run yet"
	}
	now := v.Now
	if now.IsZero() {
		now = time.Now()
	}
	line := "Last checked " + formatAge(now.Sub(v.State.CheckedAt), v.State.CheckedAt)
	if v.State.RunID != "" {
		line += " (run " + v.State.RunID + ")"
	}
	return line
}

func (v StatusView) adapterCard(width int) string {
	h := healthUnknown
	switch v.State.Adapter {
	case monitor.ReachabilityReachable:
		h = healthGood
	case monitor.ReachabilityUnreachable:
		h = healthBad
	}
	body := fmt.Sprintf("%s %s\n%s",
		lipgloss.NewStyle().Foreground(h.color()).Bold(true).Render(h.icon()),
		labelStyle.Render("Adapter"),
		mutedStyle.Render(string(v.State.Adapter)),
	)
	return card(body, h, width)
}

func lineCard(n int, line status.LineStatus, width int) string {
	reg := registrationHealth(line.Registration)
	hook := hookHealth(line.Hook)

	overall := reg
	if hook == healthBad || (overall == healthGood && hook == healthUnknown) {
		overall = hook
	}

	body := fmt.Sprintf("%s %s\n%s %s\n%s %s",
		lipgloss.NewStyle().Foreground(overall.color()).Bold(true).Render(overall.icon()),
		labelStyle.Render(fmt.Sprintf("Line %d", n)),
		mutedStyle.Render("registration"),
		lipgloss.NewStyle().Foreground(reg.color()).Render(string(line.Registration)),
		mutedStyle.Render("hook        "),
		lipgloss.NewStyle().Foreground(hook.color()).Render(string(line.Hook)),
	)
	return card(body, overall, width)
}

func card(body string, h health, width int) string {
	border := h.color()
	if h == healthUnknown {
		border = colorSubtle
	}
	return cardStyle.Width(width).BorderForeground(border).Render(body)
}

func registrationHealth(r status.RegistrationState) health {
	switch r {
	case status.RegistrationRegistered:
		return healthGood
	case status.RegistrationFailed:
		return healthBad
	default:
		return healthUnknown
	}
}

func hookHealth(h status.HookState) health {
	switch h {
	case status.HookOn:
		return healthGood
	case status.HookOff:
		return healthBad
	default:
		return healthUnknown
	}
}

func healthyMark() string {
	return lipgloss.NewStyle().Foreground(colorHealthy).Render("●")
}

// formatAge formats how long ago t was
func formatAge(d time.Duration, t time.Time) string {
	switch {
	case d < 0:
		return t.Format(time.RFC3339)
	case d < time.Minute:
		return fmt.Sprintf("%d seconds ago", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%d minutes ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%d hours ago", int(d.Hours()))
	}
	return t.Format("2006-01-02 15:04:05")
}
