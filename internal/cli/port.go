package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/portside/portside/internal/sanitize"
)

func newPortCmd(ctx *context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "port <pid>",
		Short: "Find the TCP port a process tree is listening on",
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
			result, err := sup.findPort(pid)
			if err != nil {
				return err
			}
			if result.Port == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "no listener found for pid %d\n", pid)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d\n", result.Port)
			return nil
		},
	}
	return cmd
}
