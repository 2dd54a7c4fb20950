package commands

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/funvibe/polyglot/internal/config"
)

// NewVersionCmd creates the version command.
func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version of polyglot",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "polyglot %s %s/%s\n", config.Version, runtime.GOOS, runtime.GOARCH)
		},
	}
}
