package cli

import (
	stdcontext "context"
	"errors"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	apihttp "github.com/portside/portside/internal/api/http"
)

var newAPIServer = apihttp.NewServer

func newServeCmd(ctx *context) *cobra.Command {
	var apiAddr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP control API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.loadConfig()
			if err != nil {
				return err
			}
			sup, err := ctx.supervisor()
			if err != nil {
				return err
			}
			defer sup.shutdown()

			addr := apiAddr
			if addr == "" {
				addr = cfg.API.Addr
			}
			control := NewControlAPI(ctx)
			if control == nil {
				return errors.New("control API unavailable")
			}
			server, err := newAPIServer(apihttp.Config{Addr: addr, Controller: control})
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "control API listening on %s\n", server.Addr())
			if err := server.Run(cmd.Context()); err != nil &&
				!errors.Is(err, stdcontext.Canceled) && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&apiAddr, "api", "", "Address for the HTTP control API (defaults to the manifest's api.addr)")
	return cmd
}
