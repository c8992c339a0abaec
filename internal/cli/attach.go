package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/portside/portside/internal/tui"
)

func newAttachCmd(ctx *context) *cobra.Command {
	var maxLogs int
	cmd := &cobra.Command{
		Use:   "attach",
		Short: "Launch the interactive process viewer",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !term.IsTerminal(int(os.Stdout.Fd())) {
				return fmt.Errorf("attach requires an interactive terminal")
			}

			sup, err := ctx.supervisor()
			if err != nil {
				return err
			}
			defer sup.shutdown()

			var opts []tui.Option
			if maxLogs > 0 {
				opts = append(opts, tui.WithMaxLogs(maxLogs))
			}
			ui := tui.New(opts...)

			events, release := sup.subscribe(sup.cfg.Events.Buffer)
			defer release()

			go func() {
				defer ui.CloseEvents()
				sink := ui.EventSink()
				for {
					select {
					case evt, ok := <-events:
						if !ok {
							return
						}
						select {
						case sink <- evt:
						case <-ui.Done():
							return
						}
					case <-ui.Done():
						return
					}
				}
			}()

			return ui.Run(cmd.Context())
		},
	}
	cmd.Flags().IntVar(&maxLogs, "max-logs", 0, "Maximum output lines retained per process")
	return cmd
}
