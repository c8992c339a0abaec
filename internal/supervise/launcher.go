// Package supervise launches dev-server commands through the user's login
// shell and streams their output as correlated events.
//
// A spawn hands back a pid immediately; everything that happens afterwards
// (output lines, exit, wait errors) arrives asynchronously on the event
// channel. The returned pid is the root of a process tree: wrapper scripts
// installed by package managers routinely fork, so stopping the process
// later goes through proctree.Reaper rather than a single kill.
package supervise

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/portside/portside/internal/sanitize"
	"github.com/portside/portside/internal/shellenv"
)

// ErrSpawnFailed reports that every shell candidate failed to launch.
var ErrSpawnFailed = errors.New("spawn failed")

// Request describes one process to launch. It is consumed by a single
// Spawn call and never persisted.
type Request struct {
	// Command is the executable name, validated against the sanitize
	// whitelist.
	Command string
	// Args are the command arguments.
	Args []string
	// Dir is the working directory the command runs in.
	Dir string
	// Token correlates streamed events with the caller's project. A
	// fresh UUID is assigned when empty.
	Token string
	// Env holds extra KEY=VALUE pairs appended to the inherited
	// environment.
	Env map[string]string
}

// Launcher spawns supervised processes and emits their lifecycle events.
type Launcher struct {
	events chan<- Event
	done   chan struct{}

	producers sync.WaitGroup

	// shells is swappable in tests.
	shells func() []shellenv.Candidate
}

// NewLauncher returns a Launcher emitting on events. The channel must be
// safe for concurrent sends; every spawned process contributes two stream
// readers and one exit waiter as independent producers.
func NewLauncher(events chan<- Event) *Launcher {
	return &Launcher{
		events: events,
		done:   make(chan struct{}),
		shells: shellenv.Candidates,
	}
}

// Close releases the event side of the launcher. Reader and waiter
// goroutines treat a closed launcher as the consumer having gone away and
// wind down cleanly. Processes already spawned keep running; stopping them
// is the reaper's job.
func (l *Launcher) Close() {
	select {
	case <-l.done:
	default:
		close(l.done)
	}
}

// Wait blocks until every reader and waiter goroutine spawned so far has
// returned. After Close followed by Wait it is safe to close the event
// channel.
func (l *Launcher) Wait() {
	l.producers.Wait()
}

// Spawn validates the request, launches the command through the first
// working shell candidate and returns the child's pid without waiting for
// exit. Validation and spawn failures are synchronous; everything after a
// successful spawn is reported on the event channel.
func (l *Launcher) Spawn(req Request) (int, error) {
	if err := sanitize.Command(req.Command); err != nil {
		return 0, err
	}
	if err := sanitize.Args(req.Args); err != nil {
		return 0, err
	}
	dir, err := sanitize.Dir(req.Dir)
	if err != nil {
		return 0, err
	}
	if req.Token == "" {
		req.Token = uuid.NewString()
	}

	return l.launch(l.shells(), commandPart(dir, req.Command, req.Args), req)
}

// commandPart builds the shell fragment that enters the working directory
// and runs the command. Every interpolated value is quoted; the whitelist
// check on the command name and the quoting here are complementary
// defences, not alternatives.
func commandPart(dir, command string, args []string) string {
	var b strings.Builder
	b.WriteString("cd ")
	b.WriteString(shellenv.Quote(dir))
	b.WriteString(" && ")
	b.WriteString(shellenv.Quote(command))
	for _, arg := range args {
		b.WriteByte(' ')
		b.WriteString(shellenv.Quote(arg))
	}
	return b.String()
}

func environ(extra map[string]string) []string {
	env := os.Environ()
	for k, v := range extra {
		env = append(env, fmt.Sprintf("%s=%s", k, v))
	}
	return env
}

// launch tries each candidate shell in order. The first whose spawn call
// succeeds wins; using anything but the first candidate is a degraded mode
// reported through an EventShellFallback.
func (l *Launcher) launch(candidates []shellenv.Candidate, part string, req Request) (int, error) {
	var firstErr error
	for i, candidate := range candidates {
		script := candidate.Bootstrap + "; " + part
		cmd := exec.Command(candidate.Path, append(candidate.Flags(), script)...)
		cmd.Env = environ(req.Env)
		configureSysProcAttr(cmd)

		stdout, err := cmd.StdoutPipe()
		if err != nil {
			return 0, fmt.Errorf("stdout pipe: %w", err)
		}
		stderr, err := cmd.StderrPipe()
		if err != nil {
			return 0, fmt.Errorf("stderr pipe: %w", err)
		}

		if err := cmd.Start(); err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("spawn with %s: %w", candidate.Path, err)
			}
			continue
		}

		pid := cmd.Process.Pid
		if i > 0 {
			l.emit(Event{
				Timestamp: time.Now(),
				Token:     req.Token,
				PID:       pid,
				Type:      EventShellFallback,
				Preferred: candidates[0].Path,
				Shell:     candidate.Path,
			})
		}

		var readers sync.WaitGroup
		readers.Add(2)
		l.producers.Add(3)
		go l.streamLines(stdout, EventStdoutLine, req.Token, pid, &readers)
		go l.streamLines(stderr, EventStderrLine, req.Token, pid, &readers)
		go l.waitExit(cmd, req.Token, pid, &readers)

		return pid, nil
	}

	if firstErr == nil {
		firstErr = errors.New("no shell candidates")
	}
	return 0, fmt.Errorf("%w: %v", ErrSpawnFailed, firstErr)
}

// streamLines forwards one pipe line-by-line. A read error means the pipe
// closed; a failed emit means the consumer is gone. Both end the loop
// without being treated as application errors.
func (l *Launcher) streamLines(r io.Reader, t EventType, token string, pid int, readers *sync.WaitGroup) {
	defer l.producers.Done()
	defer readers.Done()
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		ok := l.emit(Event{
			Timestamp: time.Now(),
			Token:     token,
			PID:       pid,
			Type:      t,
			Message:   scanner.Text(),
		})
		if !ok {
			return
		}
	}
}

// waitExit emits the terminal event once the process has actually exited.
// A non-zero exit status is still a normal exit; only a failure of the
// wait call itself (for example the child was reaped elsewhere) becomes a
// wait-failed event.
func (l *Launcher) waitExit(cmd *exec.Cmd, token string, pid int, readers *sync.WaitGroup) {
	defer l.producers.Done()
	// Wait closes the pipes; let both readers drain to EOF first. Each
	// pipe still closes independently of the other.
	readers.Wait()
	err := cmd.Wait()
	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		l.emit(Event{
			Timestamp: time.Now(),
			Token:     token,
			PID:       pid,
			Type:      EventWaitFailed,
			Err:       err,
		})
		return
	}
	l.emit(Event{
		Timestamp: time.Now(),
		Token:     token,
		PID:       pid,
		Type:      EventExited,
	})
}

func (l *Launcher) emit(evt Event) bool {
	select {
	case l.events <- evt:
		return true
	case <-l.done:
		return false
	}
}
