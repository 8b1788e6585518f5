package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"spekt.dev/pkg/spekt/internal/domain"
	m "spekt.dev/pkg/spekt/internal/model"
)

var runParallelFlag int
var runShardFlag string
var featureTimeoutFlag int64

// runCmd represents the run command.
var runCmd = newRunCmd()

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [paths...]",
		Short: "Rewrite and run specs",
		Long:  runLongDescription,
		RunE: func(cmd *cobra.Command, args []string) error {
			shardIndex, totalShards := parseShardFlag(viper.GetString(runShardConfigKey))

			return workflow.Run(cmd.Context(), domain.RunArgs{
				SelectArgs: domain.SelectArgs{
					Paths:   defaultPaths(parsePaths(args)),
					Exclude: viper.GetStringSlice(excludeConfigKey),
				},
				Reports:         m.Path(viper.GetString(outputFlagName)),
				Threads:         viper.GetInt(runParallelConfigKey),
				ShardIndex:      shardIndex,
				TotalShardCount: totalShards,
				FeatureTimeout:  featureTimeout(),
			})
		},
	}

	configureRunFlags(cmd)

	return cmd
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func configureRunFlags(cmd *cobra.Command) {
	cmd.Flags().IntVarP(&runParallelFlag, runParallelFlagName, "p", viper.GetInt(runParallelConfigKey), "number of specs run in parallel")
	bindFlagToConfig(cmd.Flags().Lookup(runParallelFlagName), runParallelConfigKey)

	cmd.Flags().StringVarP(&runShardFlag, "shard", "s", viper.GetString(runShardConfigKey), "shard index and total shard count in the format INDEX/TOTAL (e.g., 0/3)")
	bindFlagToConfig(cmd.Flags().Lookup("shard"), runShardConfigKey)

	cmd.Flags().Int64Var(&featureTimeoutFlag, featureTimeoutFlagName, viper.GetInt64(featureTimeoutKey), "seconds a single feature may run, 0 disables the limit")
	bindFlagToConfig(cmd.Flags().Lookup(featureTimeoutFlagName), featureTimeoutKey)
}

func parseShardFlag(shard string) (int, int) {
	if shard == "" {
		return 0, 1
	}

	var index, total int

	_, err := fmt.Sscanf(shard, "%d/%d", &index, &total)
	if err != nil || total <= 0 || index < 0 || index >= total {
		return 0, 1
	}

	return index, total
}

// defaultPaths scans the working directory tree when no path was given.
func defaultPaths(paths []m.Path) []m.Path {
	if len(paths) == 0 {
		return []m.Path{"./..."}
	}

	return paths
}
