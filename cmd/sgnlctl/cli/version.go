package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sgnl-ai/sgnl-linux-host/lib/sudopolicy"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print sgnlctl's version",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), sudopolicy.Version)
			return nil
		},
	}
}
