package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/MeKo-Tech/facescan/internal/config"
	"github.com/MeKo-Tech/facescan/internal/models"
	"github.com/MeKo-Tech/facescan/internal/version"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	// Global configuration loader.
	configLoader *config.Loader
	// Global configuration.
	globalConfig *config.Config
	// Configuration file path.
	cfgFile string
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "facescan",
	Short: "Batch face attribute analysis",
	Long: `facescan estimates apparent age, gender and race for every face image in a
folder and writes the results to a table.

This tool provides:
- Attribute estimation with local ONNX models or AWS Rekognition
- Face localization with pigo (or OpenCV when built with -tags opencv)
- Optional heatmap and bounding-box images per input
- CSV, JSON and YAML output

Examples:
  facescan analyze faceimages
  facescan analyze photos -o results.json -f json
  facescan analyze faceimages --annotate`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		// --version on the root command behaves like the version subcommand
		v, _ := cmd.Flags().GetBool("version")
		if v {
			ver, commit, date := version.Info()
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "facescan version %s\n", ver)
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Commit: %s\n", commit)
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Date: %s\n", date)
			return nil
		}
		return cmd.Help()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// GetRootCommand returns the root command for testing purposes.
func GetRootCommand() *cobra.Command {
	return rootCmd
}

func init() {
	// Assigned here rather than in the literal: initConfig reads rootCmd's flags.
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if err := initConfig(); err != nil {
			return err
		}
		setupLogging(globalConfig)
		return nil
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default is search in ., $HOME, $XDG_CONFIG_HOME/facescan, /etc/facescan)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output (equivalent to --log-level=debug)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")

	// Models directory: environment variable wins over the built-in default
	defaultModelsDir := models.DefaultModelsDir
	if envDir := os.Getenv(models.EnvModelsDir); envDir != "" {
		defaultModelsDir = envDir
	}
	rootCmd.PersistentFlags().String("models-dir", defaultModelsDir,
		"directory containing attribute models and face cascades (also "+models.EnvModelsDir+")")

	rootCmd.Flags().Bool("version", false, "print version information and exit")
}

// setupLogging installs a JSON slog handler on stderr. Stdout is left for
// progress and results.
func setupLogging(cfg *config.Config) {
	// Determine log level; --verbose overrides the configured level
	var logLevel slog.Level
	if cfg.Verbose {
		logLevel = slog.LevelDebug
	} else {
		switch cfg.LogLevel {
		case "debug":
			logLevel = slog.LevelDebug
		case "warn":
			logLevel = slog.LevelWarn
		case "error":
			logLevel = slog.LevelError
		default:
			logLevel = slog.LevelInfo
		}
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)
}

// initConfig reads in config file and ENV variables if set. Each call starts
// from a fresh viper instance with the global flags bound.
func initConfig() error {
	v := viper.New()

	// Bind global flags so they override file and environment values
	flags := rootCmd.PersistentFlags()
	_ = v.BindPFlag("verbose", flags.Lookup("verbose"))
	_ = v.BindPFlag("log_level", flags.Lookup("log-level"))
	_ = v.BindPFlag("models_dir", flags.Lookup("models-dir"))
	configLoader = config.NewLoaderWithViper(v)

	var err error
	globalConfig, err = configLoader.LoadWithFile(cfgFile)
	if err != nil {
		return fmt.Errorf("error loading configuration: %w", err)
	}
	return nil
}

// GetConfig returns a copy of the global configuration.
func GetConfig() config.Config {
	if globalConfig == nil {
		if err := initConfig(); err != nil {
			slog.Error("falling back to default configuration", "error", err)
			return config.DefaultConfig()
		}
	}
	return *globalConfig
}

// GetConfigLoader returns the global configuration loader.
func GetConfigLoader() *config.Loader {
	if configLoader == nil {
		configLoader = config.NewLoader()
	}
	return configLoader
}
