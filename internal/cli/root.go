// Package cli wires the supervision backend into the portside command
// tree and the HTTP control plane.
package cli

import (
	stdcontext "context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/portside/portside/internal/config"
	"github.com/portside/portside/internal/metrics"
)

// version is stamped by the build; "dev" for local builds.
var version = "dev"

func NewRootCmd() *cobra.Command {
	root, _ := newRootCommand()
	return root
}

func newRootCommand() (*cobra.Command, *context) {
	var (
		configPath string
		logLevel   string
		logJSON    bool
	)

	root := &cobra.Command{
		Use:   "portside",
		Short: "Dev server supervisor: spawn, watch, probe and reap process trees",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			setupLogging(logLevel, logJSON)
			metrics.EmitBuildInfo()
			return nil
		},
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "portside.yaml", "Path to the portside manifest")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	root.PersistentFlags().BoolVar(&logJSON, "log-json", false, "Emit logs as JSON")

	ctx := &context{configPath: &configPath}
	root.AddCommand(newScanCmd(ctx))
	root.AddCommand(newRunCmd(ctx))
	root.AddCommand(newStopCmd(ctx))
	root.AddCommand(newPortCmd(ctx))
	root.AddCommand(newServeCmd(ctx))
	root.AddCommand(newAttachCmd(ctx))

	root.SilenceUsage = true
	root.SilenceErrors = true

	return root, ctx
}

// Execute runs the CLI entrypoint.
func Execute() {
	ctx, stop := signal.NotifyContext(stdcontext.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := NewRootCmd()
	root.SetContext(ctx)

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func setupLogging(level string, asJSON bool) {
	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		logrus.Warnf("invalid log level %q, using info", level)
		parsed = logrus.InfoLevel
	}
	logrus.SetLevel(parsed)
	if asJSON {
		logrus.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
		})
		return
	}
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
		ForceColors:     term.IsTerminal(int(os.Stderr.Fd())),
	})
}

// context carries the lazily constructed backend shared by all commands.
type context struct {
	configPath *string

	mu  sync.Mutex
	cfg *config.Config
	sup *supervisor
}

func (c *context) loadConfig() (*config.Config, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cfg != nil {
		return c.cfg, nil
	}
	cfg, err := config.Load(*c.configPath)
	if err != nil {
		return nil, err
	}
	c.cfg = cfg
	return cfg, nil
}

// supervisor returns the shared backend, constructing it on first use.
func (c *context) supervisor() (*supervisor, error) {
	cfg, err := c.loadConfig()
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sup == nil {
		c.sup = newSupervisor(cfg)
	}
	return c.sup, nil
}
