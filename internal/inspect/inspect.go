// Package inspect abstracts the black-box process and socket queries the
// supervisor needs: existence, parentage, children and TCP listeners.
//
// The exec-backed implementation shells out to ps, pgrep, lsof and kill and
// parses their text output. Nothing here assumes an OS API that hands back
// a live process handle's children or sockets; everything is observed from
// the outside. Tree walking, reaping and port probing are written against
// the Host interface so tests can substitute a fake and a non-POSIX port
// can supply a native equivalent.
package inspect

// Host is the capability surface for process and socket inspection.
// Implementations treat unparseable or partial output as "no data" rather
// than an error wherever a caller could degrade gracefully.
type Host interface {
	// Exists reports whether a process with the given pid is currently
	// alive.
	Exists(pid int) bool

	// ParentOf returns the parent pid of pid. The error is non-nil when
	// the process is gone or its parent cannot be determined.
	ParentOf(pid int) (int, error)

	// Children returns the direct children of pid in the order the OS
	// reports them. A process with no children yields an empty slice.
	Children(pid int) ([]int, error)

	// ListeningPorts returns the TCP ports pid is listening on.
	ListeningPorts(pid int) ([]uint16, error)

	// ListenersOnPort returns the pids of processes listening on the
	// given TCP port.
	ListenersOnPort(port uint16) ([]int, error)

	// Kill forcefully terminates pid.
	Kill(pid int) error
}
