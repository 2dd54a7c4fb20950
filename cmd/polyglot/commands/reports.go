package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/funvibe/polyglot/internal/store"
)

func newReportsCmd(a *app) *cobra.Command {
	var f store.Filter
	cmd := &cobra.Command{
		Use:   "reports",
		Short: "List stored conformance reports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			if s == nil {
				return fmt.Errorf("no report database configured (store.path)")
			}
			defer s.Close()

			reports, err := s.List(cmd.Context(), f)
			if err != nil {
				return err
			}
			for _, r := range reports {
				a.out.Printf("%s ", a.out.dim.Sprint(r.Started.Format("2006-01-02 15:04:05"), " ", r.ID.String()[:8]))
				a.out.report(r.Subject, r)
			}
			a.out.Printf("%d reports\n", len(reports))
			return nil
		},
	}
	cmd.Flags().BoolVar(&f.FailedOnly, "failed", false, "Only reports with failures")
	cmd.Flags().IntVarP(&f.Limit, "limit", "n", 0, "Only the most recent N reports")
	return cmd
}
