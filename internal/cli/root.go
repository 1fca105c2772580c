package cli

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	robloxbridge "github.com/opengovern/roblox-bridge"
	"github.com/opengovern/roblox-bridge/internal/config"
)

var (
	version   = "dev"
	buildTime = "unknown"

	configPath string
	debug      bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "roblox-bridge",
	Short: "Roblox Open Cloud tools for MCP hosts",
	Long: `roblox-bridge exposes Roblox Open Cloud operations to tool-calling hosts.

Get started:
  roblox-bridge serve           Serve the update_script tool over stdio
  roblox-bridge update-script   Update one script instance from the shell

The API key is read from ROBLOX_API_KEY (environment or .env file).`,
	Version:       fmt.Sprintf("%s (built %s)", version, buildTime),
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to an optional YAML configuration file")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Log at debug level")
}

// SetVersion sets the version info
func SetVersion(v, bt string) {
	version = v
	buildTime = bt
	rootCmd.Version = fmt.Sprintf("%s (built %s)", version, buildTime)
}

// newLogger writes to stderr; stdout belongs to the MCP transport.
func newLogger(cfg config.Log) (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetLevel(level)
	if cfg.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	return logger, nil
}

// setup loads configuration and builds the logger and the bridge shared by all commands.
func setup(opts ...robloxbridge.Option) (*config.Config, *logrus.Entry, *robloxbridge.RobloxBridge, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger, err := newLogger(cfg.Log)
	if err != nil {
		return nil, nil, nil, err
	}
	entry := logrus.NewEntry(logger)

	bridge := robloxbridge.NewRobloxBridge(cfg.Adapter(), cfg.ProviderConfig(),
		append([]robloxbridge.Option{robloxbridge.WithLogger(entry)}, opts...)...)
	if debug {
		bridge.SetDebug(true)
	}
	return cfg, entry, bridge, nil
}
