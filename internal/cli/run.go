package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/portside/portside/internal/supervise"
)

// reapDrain bounds how long run waits for the exit event after reaping
// an interrupted process.
const reapDrain = 3 * time.Second

func newRunCmd(ctx *context) *cobra.Command {
	var (
		dir   string
		token string
	)
	cmd := &cobra.Command{
		Use:   "run [flags] -- command [args...]",
		Short: "Spawn a dev command and stream its output until it exits",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sup, err := ctx.supervisor()
			if err != nil {
				return err
			}
			defer sup.shutdown()

			if dir == "" {
				dir, err = os.Getwd()
				if err != nil {
					return err
				}
			}

			events, release := sup.subscribe(sup.cfg.Events.Buffer)
			defer release()

			result, err := sup.spawn(supervise.Request{
				Command: args[0],
				Args:    args[1:],
				Dir:     dir,
				Token:   token,
			})
			if err != nil {
				return err
			}

			plain := writerIsTerminal(cmd.OutOrStdout())
			var enc *json.Encoder
			if !plain {
				enc = json.NewEncoder(cmd.OutOrStdout())
			}

			runCtx := cmd.Context()
			interrupted := false
			for {
				select {
				case <-runCtx.Done():
					if interrupted {
						return runCtx.Err()
					}
					interrupted = true
					fmt.Fprintln(cmd.ErrOrStderr(), "interrupted, reaping process tree")
					if err := sup.killTree(result.PID); err != nil && !isNotFound(err) {
						return err
					}
					// Keep draining so the exit event is observed.
					drain := time.NewTimer(reapDrain)
					defer drain.Stop()
					for {
						select {
						case evt, ok := <-events:
							if !ok {
								return nil
							}
							if evt.Token != result.Token {
								continue
							}
							emitRunEvent(cmd, enc, plain, evt)
							if terminal(evt) {
								return nil
							}
						case <-drain.C:
							return nil
						}
					}
				case evt, ok := <-events:
					if !ok {
						return errors.New("event stream closed before exit")
					}
					if evt.Token != result.Token {
						continue
					}
					emitRunEvent(cmd, enc, plain, evt)
					if terminal(evt) {
						return nil
					}
				}
			}
		},
	}
	cmd.Flags().StringVarP(&dir, "dir", "d", "", "Working directory for the command (defaults to the current directory)")
	cmd.Flags().StringVar(&token, "token", "", "Correlation token (generated when empty)")
	return cmd
}

func emitRunEvent(cmd *cobra.Command, enc *json.Encoder, plain bool, evt supervise.Event) {
	if plain {
		printLogEvent(cmd.OutOrStdout(), evt)
		return
	}
	encodeLogEvent(enc, cmd.ErrOrStderr(), evt)
}

func terminal(evt supervise.Event) bool {
	return evt.Type == supervise.EventExited || evt.Type == supervise.EventWaitFailed
}
