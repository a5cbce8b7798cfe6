package status

import "fmt"

// RegistrationState is the SIP registration state of a line
type RegistrationState string

const (
	RegistrationUnknown    RegistrationState = "unknown"
	RegistrationRegistered RegistrationState = "registered"
	RegistrationFailed     RegistrationState = "failed"
)

// HookState is the handset state of a line
type HookState string

const (
	HookUnknown HookState = "unknown"
	HookOn      HookState = "on_hook"
	HookOff     HookState = "off_hook"
)

// LineStatus holds the observed state of one phone line
type LineStatus struct {
	Registration RegistrationState `yaml:"registration"`
	Hook         HookState         `yaml:"hook"`
}

// DeviceStatus is a snapshot of both lines of the adapter.
// It is only built from a fully parsed status page.
type DeviceStatus struct {
	Line1 LineStatus
	Line2 LineStatus
}

// Lines returns the line statuses in line-number order
func (d DeviceStatus) Lines() [2]LineStatus {
	return [2]LineStatus{d.Line1, d.Line2}
}

// UnknownLine is the line state assumed before anything was observed
func UnknownLine() LineStatus {
	return LineStatus{Registration: RegistrationUnknown, Hook: HookUnknown}
}

// String renders a line the way the adapter labels it
func (l LineStatus) String() string {
	return fmt.Sprintf("registration=%s hook=%s", l.Registration, l.Hook)
}
