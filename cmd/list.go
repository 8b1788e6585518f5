package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"spekt.dev/pkg/spekt/internal/domain"
)

// listCmd represents the list command.
var listCmd = newListCmd()

func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list [paths...]",
		Short: "List specs and their features",
		Long:  listLongDescription,
		RunE: func(cmd *cobra.Command, args []string) error {
			return workflow.List(cmd.Context(), domain.SelectArgs{
				Paths:   defaultPaths(parsePaths(args)),
				Exclude: viper.GetStringSlice(excludeConfigKey),
			})
		},
	}

	return cmd
}

func init() {
	rootCmd.AddCommand(listCmd)
}
