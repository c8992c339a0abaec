package supervise

import "time"

// EventType classifies notifications emitted by a launched process.
type EventType string

const (
	// EventStdoutLine carries one line of the child's standard output.
	EventStdoutLine EventType = "stdout-line"
	// EventStderrLine carries one line of the child's standard error.
	EventStderrLine EventType = "stderr-line"
	// EventExited reports that the child exited.
	EventExited EventType = "process-exited"
	// EventWaitFailed reports that the OS wait call itself failed,
	// typically because something else reaped the child.
	EventWaitFailed EventType = "process-wait-failed"
	// EventShellFallback reports that the preferred shell could not be
	// spawned and a fallback was used. The fallback may expose a
	// different PATH than the user expects, so this is surfaced to the
	// caller rather than merely logged.
	EventShellFallback EventType = "shell-fallback-used"
)

// Event is one notification from a supervised process. Token is the
// caller-supplied correlation token routing the event back to its logical
// project.
type Event struct {
	Timestamp time.Time
	Token     string
	PID       int
	Type      EventType
	Message   string
	Err       error

	// Preferred and Shell are set on EventShellFallback only.
	Preferred string
	Shell     string
}
