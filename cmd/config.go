package cmd

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	configBaseName   = "spekt"
	configFileName   = configBaseName + ".yaml"
	configFolderPath = "."
	envPrefix        = "SPEKT"

	configVersionKey     = "version"
	currentConfigVersion = 1

	outputFlagName         = "output"
	excludeFlagName        = "exclude"
	runParallelFlagName    = "parallel"
	featureTimeoutFlagName = "feature-timeout"
	rewritePrintFlagName   = "print"

	excludeConfigKey     = "paths.exclude"
	runParallelConfigKey = "run.parallel"
	runShardConfigKey    = "run.shard"
	featureTimeoutKey    = "run.feature_timeout"
	rewritePrintKey      = "rewrite.print"

	logFilenameKey   = "log.filename"
	logLevelKey      = "log.level"
	logVerboseKey    = "log.verbose"
	logMaxSizeKey    = "log.max_size"
	logMaxBackupsKey = "log.max_backups"
	logMaxAgeKey     = "log.max_age"
	logCompressKey   = "log.compress"

	defaultReportsDir     = ".spekt-reports"
	defaultRunParallel    = 1
	defaultFeatureTimeout = 2 * time.Minute
	defaultLogFilename    = ".spekt.log"
)

// configDefaults holds the value of every key that neither spekt.yaml, the
// environment nor a flag sets.
var configDefaults = map[string]any{
	configVersionKey:     currentConfigVersion,
	outputFlagName:       defaultReportsDir,
	excludeConfigKey:     []string{},
	runParallelConfigKey: defaultRunParallel,
	runShardConfigKey:    "",
	featureTimeoutKey:    int64(defaultFeatureTimeout / time.Second),
	rewritePrintKey:      false,

	logFilenameKey:   defaultLogFilename,
	logLevelKey:      int(slog.LevelInfo),
	logVerboseKey:    false,
	logMaxSizeKey:    10,
	logMaxBackupsKey: 3,
	logMaxAgeKey:     28,
	logCompressKey:   true,
}

var globalLogger *slog.Logger

func init() {
	viper.SetConfigType("yaml")
	viper.SetConfigName(configBaseName)
	viper.AddConfigPath(configFolderPath)
	viper.SetConfigFile(filepath.Join(configFolderPath, configFileName))

	// SPEKT_RUN_FEATURE_TIMEOUT sets run.feature_timeout.
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()

	for key, value := range configDefaults {
		viper.SetDefault(key, value)
	}

	err := viper.ReadInConfig()

	var notFound viper.ConfigFileNotFoundError
	if err != nil && !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("Ignoring unreadable config file", "file", configFileName, "error", err)
	}
}

// featureTimeout is run.feature_timeout as a duration. Zero or less means
// features run without a deadline.
func featureTimeout() time.Duration {
	seconds := viper.GetInt64(featureTimeoutKey)
	if seconds <= 0 {
		return 0
	}

	return time.Duration(seconds) * time.Second
}

var slogLevelNames = map[string]slog.Level{
	"debug":   slog.LevelDebug,
	"info":    slog.LevelInfo,
	"warn":    slog.LevelWarn,
	"warning": slog.LevelWarn,
	"error":   slog.LevelError,
}

// parseSlogLevel accepts a level name or a raw slog level number such as -4.
func parseSlogLevel(value string, fallback slog.Level) slog.Level {
	name := strings.ToLower(strings.TrimSpace(value))
	if level, ok := slogLevelNames[name]; ok {
		return level
	}

	if n, err := strconv.Atoi(name); err == nil {
		return slog.Level(n)
	}

	return fallback
}

// configureLogger points the default slog logger at a rotating log file.
// verbose forces the debug level over log.level.
func configureLogger(logPath string, verbose bool) {
	for _, candidate := range []string{logPath, viper.GetString(logFilenameKey), defaultLogFilename} {
		if strings.TrimSpace(candidate) != "" {
			logPath = candidate
			break
		}
	}

	level := slog.LevelDebug
	if !verbose {
		level = parseSlogLevel(viper.GetString(logLevelKey), slog.LevelInfo)
	}

	rotation := &lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    viper.GetInt(logMaxSizeKey),
		MaxBackups: viper.GetInt(logMaxBackupsKey),
		MaxAge:     viper.GetInt(logMaxAgeKey),
		Compress:   viper.GetBool(logCompressKey),
	}

	globalLogger = slog.New(slog.NewTextHandler(rotation, &slog.HandlerOptions{
		AddSource: true,
		Level:     level,
	}))
	slog.SetDefault(globalLogger)
}
