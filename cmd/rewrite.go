package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"spekt.dev/pkg/spekt/internal/domain"
)

var rewritePrintFlag bool

// rewriteCmd represents the rewrite command.
var rewriteCmd = newRewriteCmd()

func newRewriteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rewrite [paths...]",
		Short: "Check that specs rewrite cleanly",
		Long:  rewriteLongDescription,
		RunE: func(cmd *cobra.Command, args []string) error {
			return workflow.Rewrite(cmd.Context(), domain.RewriteArgs{
				SelectArgs: domain.SelectArgs{
					Paths:   defaultPaths(parsePaths(args)),
					Exclude: viper.GetStringSlice(excludeConfigKey),
				},
				Print: viper.GetBool(rewritePrintKey),
			})
		},
	}

	cmd.Flags().BoolVar(&rewritePrintFlag, rewritePrintFlagName, viper.GetBool(rewritePrintKey), "print the rewritten form of every method")
	bindFlagToConfig(cmd.Flags().Lookup(rewritePrintFlagName), rewritePrintKey)

	return cmd
}

func init() {
	rootCmd.AddCommand(rewriteCmd)
}
