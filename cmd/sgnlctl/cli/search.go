package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sgnl-ai/sgnl-linux-host/lib/authzclient"
)

func newSearchCmd() *cobra.Command {
	var principal, action, assetType string

	cmd := &cobra.Command{
		Use:   "search",
		Short: "List the assets a principal may reach under an action",
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

			results, err := client.Search(cmd.Context(), authzclient.SearchQuery{
				PrincipalID: principal,
				Action:      action,
				AssetType:   assetType,
			})
			if err != nil {
				return err
			}

			if len(results) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no matching assets")
				return nil
			}
			for _, r := range results {
				fmt.Fprintln(cmd.OutOrStdout(), r.AssetID)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&principal, "principal", "", "principal identifier (required)")
	cmd.Flags().StringVar(&action, "action", "list", "action to evaluate")
	cmd.Flags().StringVar(&assetType, "asset-type", "", "optional asset type filter")
	_ = cmd.MarkFlagRequired("principal")

	return cmd
}
