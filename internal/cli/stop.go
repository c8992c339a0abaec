package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/portside/portside/internal/sanitize"
)

func newStopCmd(ctx *context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stop <pid>",
		Short: "Kill a process and its descendants",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pid, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid pid %q", args[0])
			}
			if err := sanitize.PID(pid); err != nil {
				return err
			}
			sup, err := ctx.supervisor()
			if err != nil {
				return err
			}
			if err := sup.killTree(pid); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "killed process tree rooted at %d\n", pid)
			return nil
		},
	}
	return cmd
}
