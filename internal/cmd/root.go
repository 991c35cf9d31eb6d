package cmd

import (
	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/fulmenhq/gofulmen/telemetry"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/mygh/mygh/internal/config"
	"github.com/mygh/mygh/internal/observability"
)

var (
	cfgFile string
	verbose bool

	// Effective configuration, loaded by initConfig before any command runs.
	appViper  *viper.Viper
	appConfig *config.Config

	// Version info set by main package
	versionInfo struct {
		Version   string
		Commit    string
		BuildDate string
	}
)

// SetVersionInfo is called by main package to set version information
func SetVersionInfo(version, commit, buildDate string) {
	versionInfo.Version = version
	versionInfo.Commit = commit
	versionInfo.BuildDate = buildDate
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   config.AppName,
	Short: "A command-line client for the GitHub REST API",
	Long: `mygh - a command-line client for the GitHub REST API.

Authenticate with GITHUB_TOKEN, GH_TOKEN or an existing "gh auth login" session.
Use the subcommands to query users, repositories, pull requests and organizations.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command and returns the process exit code. Errors
// from every command are rendered here, in one place.
func Execute() int {
	defer shutdownMetrics()

	c, err := rootCmd.ExecuteC()
	if err == nil {
		return 0
	}
	return reportError(c, rootCmd.ErrOrStderr(), err)
}

func init() {
	// Keep gofulmen's global telemetry quiet until metrics are explicitly
	// enabled.
	if sys, err := telemetry.NewSystem(&telemetry.Config{Enabled: false}); err == nil {
		telemetry.SetGlobalSystem(sys)
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $XDG_CONFIG_HOME/mygh/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (sets log level to debug)")
	rootCmd.PersistentFlags().StringP("format", "f", "", "output format: table, json, csv or markdown (default from config)")
	rootCmd.PersistentFlags().StringP("output", "o", "", "write output to a file instead of stdout")
}

// initConfig loads the layered configuration and starts logging and,
// when enabled, the metrics exporter.
func initConfig() {
	appViper = config.NewViper(cfgFile)
	cfg, err := config.Load(appViper)
	if err != nil {
		ExitWithCodeStderr(foundry.ExitConfigInvalid, "Failed to load configuration", err)
	}
	appConfig = cfg

	observability.InitCLILogger(config.AppName, verbose, cfg.Logging.Level)
	observability.CLILogger.Debug("Configuration loaded",
		zap.String("path", appViper.ConfigFileUsed()),
		zap.String("api_url", cfg.APIURL),
	)

	if cfg.Metrics.Enabled {
		if err := observability.InitMetrics(config.AppName, cfg.Metrics.Port); err != nil {
			observability.CLILogger.Warn("Failed to start metrics exporter", zap.Error(err))
			return
		}
		observability.CLILogger.Debug("Metrics exporter started", zap.Int("port", observability.GetMetricsPort()))
	}
}

func shutdownMetrics() {
	if err := observability.ShutdownMetrics(); err != nil && observability.CLILogger != nil {
		observability.CLILogger.Warn("Failed to stop metrics exporter", zap.Error(err))
	}
}

// currentConfig returns the loaded configuration, loading defaults when a
// command runs outside cobra's initialization (tests).
func currentConfig() (*config.Config, error) {
	if appConfig != nil {
		return appConfig, nil
	}
	cfg, err := config.Load(config.NewViper(cfgFile))
	if err != nil {
		return nil, err
	}
	appConfig = cfg
	return cfg, nil
}
