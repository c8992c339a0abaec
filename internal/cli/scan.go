package cli

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/portside/portside/internal/project"
)

func newScanCmd(ctx *context) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "scan [dir...]",
		Short: "Discover projects in the configured workspaces",
		RunE: func(cmd *cobra.Command, args []string) error {
			sup, err := ctx.supervisor()
			if err != nil {
				return err
			}

			var projects []project.Project
			if len(args) > 0 {
				for _, root := range args {
					found, err := project.Scan(root, sup.versions)
					if err != nil {
						return fmt.Errorf("scan %s: %w", root, err)
					}
					projects = append(projects, found...)
				}
			} else {
				projects, err = sup.projects()
				if err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			if asJSON || !writerIsTerminal(out) {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(projects)
			}

			tw := tabwriter.NewWriter(out, 2, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tRUNTIME\tMANAGER\tFRAMEWORK\tPORT\tPATH")
			for _, p := range projects {
				port := "-"
				if p.ExpectedPort != 0 {
					port = fmt.Sprintf("%d", p.ExpectedPort)
				}
				runtime := p.Runtime
				if p.RuntimeVersion != "" {
					runtime = fmt.Sprintf("%s %s", p.Runtime, p.RuntimeVersion)
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
					p.Name, runtime, p.PackageManager, p.Framework, port, p.Path)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON instead of a table")
	return cmd
}
