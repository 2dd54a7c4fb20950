package commands

import (
	"context"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/funvibe/polyglot/internal/config"
	"github.com/funvibe/polyglot/internal/logging"
	"github.com/funvibe/polyglot/internal/store"
)

// app carries what PersistentPreRunE resolved for the subcommands.
type app struct {
	cfg *config.Config
	log zerolog.Logger
	out *printer

	configPath string
	logLevel   string
	noColor    bool
}

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	a := &app{}
	cmd := &cobra.Command{
		Use:   "polyglot",
		Short: "Check foreign values against their declared traits",
		Long: `polyglot validates that foreign values honour the contract of the traits
they declare, and audits which host members an access policy exposes.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "Config file (default .polyglot.yaml in . or $HOME)")
	flags.StringVar(&a.logLevel, "log-level", "", "Override log level (trace|debug|info|warn|error|off)")
	flags.BoolVar(&a.noColor, "no-color", false, "Disable colored output")

	cmd.AddCommand(
		newCheckCmd(a),
		newAuditCmd(a),
		newReportsCmd(a),
		NewVersionCmd(),
	)
	return cmd
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	a.cfg = cfg
	a.log = logging.New(cfg.Log.Level, cmd.ErrOrStderr())
	a.out = newPrinter(cmd.OutOrStdout(), !a.noColor)
	return nil
}

// openStore opens the configured report database, or returns nil when
// saving is disabled.
func (a *app) openStore(ctx context.Context) (*store.Store, error) {
	if a.cfg.Store.Path == "" {
		return nil, nil
	}
	return store.Open(ctx, a.cfg.Store.Path)
}

// Execute runs the root command with os.Args and returns the exit code.
func Execute() int {
	return run(os.Args[1:], os.Stdout, os.Stderr)
}

func run(args []string, stdout, stderr io.Writer) int {
	cmd := NewRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	if err := cmd.Execute(); err != nil {
		return 1
	}
	return 0
}
