package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/funvibe/polyglot/internal/config"
	"github.com/funvibe/polyglot/internal/protovalue"
	"github.com/funvibe/polyglot/pkg/conformance"
	"github.com/funvibe/polyglot/pkg/hostaccess"
	"github.com/funvibe/polyglot/pkg/polyglot"
)

func newCheckCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Run conformance checks",
	}
	cmd.AddCommand(newCheckCorpusCmd(a), newCheckProtoCmd(a))
	return cmd
}

func newCheckCorpusCmd(a *app) *cobra.Command {
	var (
		preset string
		filter string
		save   bool
	)
	cmd := &cobra.Command{
		Use:   "corpus",
		Short: "Validate the built-in sample values",
		Long: `Validate one sample value per realizable trait combination, plus the
numeric boundary values, under the configured host access policy.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			policy, err := a.policy(preset)
			if err != nil {
				return err
			}
			pctx := polyglot.NewContext(polyglot.WithHostAccess(policy), polyglot.WithLogger(a.log))
			a.log.Info().Str("policy", policy.Name()).Str("context", pctx.ID().String()).Msg("checking corpus")

			var samples []conformance.Sample
			for _, s := range conformance.Corpus(pctx) {
				if filter == "" || strings.Contains(s.Name, filter) {
					samples = append(samples, s)
				}
			}
			v := a.validator()
			reports := make([]*conformance.Report, 0, len(samples))
			failed := 0
			for _, s := range samples {
				r := v.CheckSet(s.Value, s.Args, s.Traits)
				r.Subject = s.Name
				if !r.OK() {
					failed++
				}
				a.out.report(s.Name, r)
				reports = append(reports, r)
			}
			if save {
				if err := a.save(cmd.Context(), reports); err != nil {
					return err
				}
			}
			a.out.Printf("%d samples, %s\n", len(samples), a.out.mark(failed == 0, "all passed", fmt.Sprintf("%d failed", failed)))
			if failed > 0 {
				return fmt.Errorf("%d of %d samples failed", failed, len(samples))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&preset, "policy", "", "Policy preset (explicit|all|none), overrides the config")
	cmd.Flags().StringVar(&filter, "filter", "", "Only check samples whose name contains this text")
	cmd.Flags().BoolVar(&save, "save", false, "Store the reports in the report database")
	return cmd
}

func newCheckProtoCmd(a *app) *cobra.Command {
	var (
		message     string
		jsonPath    string
		importPaths []string
		save        bool
	)
	cmd := &cobra.Command{
		Use:   "proto FILE.proto",
		Short: "Validate a protobuf message as a foreign value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			schema, err := protovalue.Parse(args, importPaths...)
			if err != nil {
				return err
			}
			if message == "" {
				a.out.Printf("messages in %s:\n", args[0])
				for _, name := range schema.Messages() {
					a.out.Printf("  %s\n", name)
				}
				return nil
			}
			msg, err := schema.New(message)
			if err != nil {
				return err
			}
			if jsonPath != "" {
				data, err := readInput(cmd.InOrStdin(), jsonPath)
				if err != nil {
					return err
				}
				if msg, err = schema.FromJSON(message, data); err != nil {
					return err
				}
			}

			pctx := polyglot.NewContext(polyglot.WithLogger(a.log))
			r := a.validator().Check(protovalue.Wrap(pctx, msg), nil)
			r.Subject = message
			a.out.report(message, r)
			if save {
				if err := a.save(cmd.Context(), []*conformance.Report{r}); err != nil {
					return err
				}
			}
			return r.Err()
		},
	}
	cmd.Flags().StringVarP(&message, "message", "m", "", "Fully qualified message type; lists the types when empty")
	cmd.Flags().StringVar(&jsonPath, "json", "", "JSON file with the message contents, - for stdin")
	cmd.Flags().StringSliceVarP(&importPaths, "import-path", "I", nil, "Directories to resolve imports against")
	cmd.Flags().BoolVar(&save, "save", false, "Store the report in the report database")
	return cmd
}

func readInput(stdin io.Reader, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(path)
}

// policy returns the preset named on the command line, or the configured
// policy. Policy files may name the corpus host types.
func (a *app) policy(preset string) (*hostaccess.Policy, error) {
	if preset != "" {
		return config.Preset(preset)
	}
	reg := hostaccess.NewRegistry()
	reg.Register(&conformance.Point{})
	return a.cfg.BuildPolicy(reg)
}

func (a *app) validator() *conformance.Validator {
	return conformance.New(
		conformance.WithLogger(a.log),
		conformance.WithMaxDepth(a.cfg.Check.MaxDepth),
	)
}

func (a *app) save(ctx context.Context, reports []*conformance.Report) error {
	s, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if s == nil {
		return fmt.Errorf("no report database configured (store.path)")
	}
	defer s.Close()
	for _, r := range reports {
		if err := s.Save(ctx, r); err != nil {
			return err
		}
	}
	a.log.Info().Int("reports", len(reports)).Str("db", a.cfg.Store.Path).Msg("saved reports")
	return nil
}
