package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sgnl-ai/sgnl-linux-host/lib/authzclient"
)

func newCheckAccessCmd() *cobra.Command {
	var principal, asset, action string

	cmd := &cobra.Command{
		Use:   "check-access",
		Short: "Evaluate a single principal/asset/action access decision",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			client, err := authzclient.New(cfg, nil)
			if err != nil {
				return err
			}
			defer client.Close()

			result, err := client.Evaluate(cmd.Context(), authzclient.AccessQuery{
				PrincipalID: principal,
				AssetID:     asset,
				Action:      action,
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s", result.Decision)
			if result.Reason != "" {
				fmt.Fprintf(cmd.OutOrStdout(), " (%s)", result.Reason)
			}
			fmt.Fprintln(cmd.OutOrStdout())
			return nil
		},
	}

	cmd.Flags().StringVar(&principal, "principal", "", "principal identifier (required)")
	cmd.Flags().StringVar(&asset, "asset", "", "asset identifier (required)")
	cmd.Flags().StringVar(&action, "action", "execute", "action to evaluate")
	_ = cmd.MarkFlagRequired("principal")
	_ = cmd.MarkFlagRequired("asset")

	return cmd
}
