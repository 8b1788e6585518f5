// Package cmd provides the root command and CLI setup for spekt.
package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"spekt.dev/pkg/spekt/internal/adapter"
	"spekt.dev/pkg/spekt/internal/controller"
	"spekt.dev/pkg/spekt/internal/domain"
	m "spekt.dev/pkg/spekt/internal/model"
)

var sourceFSAdapter adapter.SourceFSAdapter
var specFileAdapter adapter.SpecFileAdapter
var reportStore adapter.ReportStore
var specRewriter domain.SpecRewriter
var workflow domain.Workflow
var ui controller.UI

// reportsOutputDirFlag is a root-level flag shared by commands that read/write reports.
var reportsOutputDirFlag string

// excludePatterns is a root-level flag that filters files for applicable commands.
var excludePatterns []string

var logFileFlag string
var verboseFlag bool

func init() {
	configureRootFlags(rootCmd)

	// Initialize shared dependencies.
	ui = controller.NewSimpleUI(rootCmd)
	sourceFSAdapter = adapter.NewLocalSourceFSAdapter()
	specFileAdapter = adapter.NewLocalSpecFileAdapter()
	reportStore = adapter.NewReportStore()
	specRewriter = domain.NewSpecRewriter()
	workflow = domain.NewWorkflow(
		sourceFSAdapter,
		specFileAdapter,
		reportStore,
		ui,
		specRewriter,
		domain.NewLoggingListener(nil),
		adapter.NewYAMLRenderer(),
	)
}

const pathPatternsHelp = `Supports Go-style path patterns:
  - ./...              recursively scan current directory
  - ./specs/...        recursively scan the specs directory
  - ./a ./b/x.spec.yaml  scan directories and explicit files

Spec files are recognized by the ` + m.SpecFileSuffix + ` suffix.`

const rootLongDescription = `Spekt is a behavior specification framework. Specs are written as
labelled blocks (given/when/then/expect/cleanup) of plain conditions and
mock interactions; spekt rewrites them into instrumented form, runs them,
and reports every failed condition with the values of its operands.

` + pathPatternsHelp

const runLongDescription = `Rewrite and run the specs under the given paths (default: ./...).

` + pathPatternsHelp

const rewriteLongDescription = `Statically rewrite the specs under the given paths and report
rewriting errors without running anything.

` + pathPatternsHelp

const listLongDescription = `List the specs and features under the given paths.

` + pathPatternsHelp

// rootCmd represents the base command when called without any subcommands.
var rootCmd = baseRootCmd()

func baseRootCmd() *cobra.Command {
	return &cobra.Command{
		Use:          "spekt",
		Short:        "Behavior specification framework",
		Long:         rootLongDescription,
		SilenceUsage: true,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			configureLogger(viper.GetString(logFilenameKey), viper.GetBool(logVerboseKey))
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
}

func newRootCmd() *cobra.Command {
	cmd := baseRootCmd()
	configureRootFlags(cmd)

	return cmd
}

func configureRootFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().
		StringVarP(
			&reportsOutputDirFlag, outputFlagName, "o",
			viper.GetString(outputFlagName),
			"output directory for run reports",
		)
	bindFlagToConfig(cmd.PersistentFlags().Lookup(outputFlagName), outputFlagName)

	cmd.PersistentFlags().StringArrayVarP(&excludePatterns, excludeFlagName, "x", viper.GetStringSlice(excludeConfigKey), "exclude files matching regex (can be repeated)")
	bindFlagToConfig(cmd.PersistentFlags().Lookup(excludeFlagName), excludeConfigKey)

	cmd.PersistentFlags().StringVar(&logFileFlag, "log-file", viper.GetString(logFilenameKey), "path of the rotating log file")
	bindFlagToConfig(cmd.PersistentFlags().Lookup("log-file"), logFilenameKey)

	cmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", viper.GetBool(logVerboseKey), "log at debug level")
	bindFlagToConfig(cmd.PersistentFlags().Lookup("verbose"), logVerboseKey)
}

// bindFlagToConfig wires a Cobra flag to a Viper key so config/env values feed the flag.
func bindFlagToConfig(flag *pflag.Flag, key string) {
	if flag == nil {
		cobra.CheckErr(fmt.Errorf("flag for config key %q not found", key))
		return
	}

	cobra.CheckErr(viper.BindPFlag(key, flag))
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(exitCode(err))
	}
}

// exitCode is 1 for failing tests or rewrite errors and 2 for anything that
// kept spekt from producing a result.
func exitCode(err error) int {
	if errors.Is(err, domain.ErrTestsFailed) || errors.Is(err, domain.ErrRewriteFailed) {
		return 1
	}

	return 2
}

func parsePaths(args []string) []m.Path {
	paths := make([]m.Path, 0, len(args))
	for _, arg := range args {
		paths = append(paths, m.Path(arg))
	}

	return paths
}
