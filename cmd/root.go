package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/blang/semver"
	"github.com/mattn/go-isatty"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/s0up4200/ballot/config"
	"github.com/s0up4200/ballot/polls"
)

var (
	cfgFile  string
	cfg      *config.Config
	logger   zerolog.Logger
	client   *polls.Client
	registry *prometheus.Registry

	// Persistent flags
	baseURL  string
	logLevel string

	version   = "dev"
	buildTime = "unknown"
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "ballot",
	Short: "A command-line client for the polling API",
	Long: `ballot talks to a polling API: register users, browse polls,
cast votes and follow results as they come in.`,
	PersistentPreRunE: initializeApp,
	SilenceUsage:      true,
}

// SetVersion records build information shown by the version command
func SetVersion(v, built string) {
	version = v
	buildTime = built
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().StringVar(&baseURL, "base-url", "", "polling API base URL (overrides api.base_url)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: trace, debug, info, warn, error")

	rootCmd.AddCommand(versionCmd)
}

// initializeApp initializes the configuration and client
func initializeApp(cmd *cobra.Command, args []string) error {
	// Load configuration
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Override from command line if specified
	if cmd.Flags().Changed("base-url") {
		cfg.API.BaseURL = baseURL
	}
	if cmd.Flags().Changed("log-level") {
		cfg.Logging.Level = logLevel
	}

	// Setup logger
	logger = setupLogger(cfg.Logging)

	registry = prometheus.NewRegistry()
	metrics := polls.NewMetrics(registry, "ballot")

	client, err = polls.NewClient(cfg.API.BaseURL, logger,
		polls.WithTimeout(cfg.API.Timeout),
		polls.WithUserAgent(userAgent()),
		polls.WithMetrics(metrics),
	)
	if err != nil {
		return fmt.Errorf("failed to create polls client: %w", err)
	}

	logger.Debug().Str("base_url", client.BaseURL()).Msg("Polls client ready")
	return nil
}

// setupLogger configures the zerolog logger
func setupLogger(cfg config.LoggingConfig) zerolog.Logger {
	// Set log level
	level := zerolog.InfoLevel
	switch strings.ToLower(cfg.Level) {
	case "trace":
		level = zerolog.TraceLevel
	case "debug":
		level = zerolog.DebugLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}

	zerolog.SetGlobalLevel(level)

	// Configure output format
	if cfg.Format == "json" {
		return zerolog.New(os.Stderr).With().Timestamp().Logger()
	}

	// Console format
	output := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
		NoColor:    !cfg.Color || !isatty.IsTerminal(os.Stderr.Fd()),
	}

	return zerolog.New(output).With().Timestamp().Logger()
}

// userAgent combines the configured agent with the build version
func userAgent() string {
	agent := cfg.API.UserAgent
	if agent == "" {
		agent = polls.DefaultUserAgent
	}
	if v, ok := releaseVersion(version); ok {
		return agent + "/" + v.String()
	}
	return agent
}

// releaseVersion parses a build version such as "v1.2.3"
func releaseVersion(v string) (semver.Version, bool) {
	parsed, err := semver.ParseTolerant(v)
	if err != nil {
		return semver.Version{}, false
	}
	return parsed, true
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	// No config or client is needed to print the version
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		if v, ok := releaseVersion(version); ok {
			fmt.Fprintf(out, "ballot v%s (built %s)\n", v, buildTime)
			return
		}
		fmt.Fprintf(out, "ballot %s (development build, built %s)\n", version, buildTime)
	},
}
