package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/funvibe/polyglot/internal/config"
	"github.com/funvibe/polyglot/internal/inspect"
	"github.com/funvibe/polyglot/pkg/hostaccess"
)

func newAuditCmd(a *app) *cobra.Command {
	var (
		dir    string
		preset string
		types  []string
		strict bool
	)
	cmd := &cobra.Command{
		Use:   "audit [packages...]",
		Short: "List which host members a policy exposes",
		Long: `Load Go packages (default ./...) and evaluate the host access policy
against every exported field, method and constructor, without running them.
Deny rules in a policy file may name interfaces from the loaded packages;
those exclude every implementation.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			prog, err := inspect.Load(cmd.Context(), dir, args...)
			if err != nil {
				return err
			}
			var policy *hostaccess.Policy
			if preset != "" {
				policy, err = config.Preset(preset)
			} else {
				policy, err = a.cfg.BuildPolicy(prog)
			}
			if err != nil {
				return err
			}
			audit, err := prog.Audit(policy, types...)
			if err != nil {
				return err
			}
			if err := audit.WriteTable(cmd.OutOrStdout(), func(allowed bool) string {
				return a.out.mark(allowed, "allow", "deny")
			}); err != nil {
				return err
			}
			if strict && len(audit.Allowed()) > 0 {
				return fmt.Errorf("%d members allowed", len(audit.Allowed()))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&dir, "dir", "C", ".", "Directory to load packages from")
	cmd.Flags().StringVar(&preset, "policy", "", "Policy preset (explicit|all|none), overrides the config")
	cmd.Flags().StringSliceVar(&types, "type", nil, "Only audit these type IDs (import/path.Name)")
	cmd.Flags().BoolVar(&strict, "strict", false, "Fail when any member is allowed")
	return cmd
}
