package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"golang.org/x/term"

	"github.com/portside/portside/internal/supervise"
)

// writerIsTerminal reports whether w is an interactive terminal. Buffers
// and pipes get machine-readable output.
func writerIsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

type logRecord struct {
	Timestamp time.Time `json:"ts"`
	Token     string    `json:"token"`
	PID       int       `json:"pid"`
	Stream    string    `json:"stream"`
	Message   string    `json:"msg"`
}

func newLogRecord(evt supervise.Event) logRecord {
	record := logRecord{
		Timestamp: evt.Timestamp,
		Token:     evt.Token,
		PID:       evt.PID,
		Message:   evt.Message,
	}
	switch evt.Type {
	case supervise.EventStdoutLine:
		record.Stream = "stdout"
	case supervise.EventStderrLine:
		record.Stream = "stderr"
	default:
		record.Stream = "system"
		if record.Message == "" {
			record.Message = systemMessage(evt)
		}
	}
	if record.Timestamp.IsZero() {
		record.Timestamp = time.Now()
	}
	return record
}

func systemMessage(evt supervise.Event) string {
	switch evt.Type {
	case supervise.EventExited:
		return "process exited"
	case supervise.EventWaitFailed:
		return fmt.Sprintf("wait failed: %v", evt.Err)
	case supervise.EventShellFallback:
		return fmt.Sprintf("shell fallback: %s unavailable, using %s", evt.Preferred, evt.Shell)
	default:
		return string(evt.Type)
	}
}

func encodeLogEvent(enc *json.Encoder, stderr io.Writer, evt supervise.Event) {
	if enc == nil {
		return
	}
	record := newLogRecord(evt)
	if err := enc.Encode(&record); err != nil {
		fmt.Fprintf(stderr, "error: encode log: %v\n", err)
	}
}

func printLogEvent(w io.Writer, evt supervise.Event) {
	record := newLogRecord(evt)
	fmt.Fprintf(w, "%s [%s] %s\n",
		record.Timestamp.Format("15:04:05"), record.Stream, record.Message)
}
