package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/corey/tagger/internal/adapters/socket"
	"github.com/corey/tagger/internal/app"
	"github.com/corey/tagger/internal/config"
	"github.com/spf13/cobra"
)

var (
	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:          "tagger",
	Short:        "tagger: dictionary phrase tagging",
	Long:         "Builds a phrase dictionary from record files and reports where its phrases occur in text.",
	SilenceUsage: true,
}

// Execute runs the root command. SIGINT and SIGTERM cancel the command
// context.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default: tagger.yaml or .tagger/config.yaml in the working directory)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log.level (debug, info, warn, error)")

	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(tagCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(daemonCmd)
	rootCmd.AddCommand(configCmd)
}

// workDir returns the working directory (cwd).
func workDir() string {
	dir, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	return dir
}

// loadConfig reads the --config file, or the one found in the working
// directory, over the defaults. The store path of a default configuration
// is made absolute so the socket path does not depend on the cwd.
func loadConfig() (*config.Config, error) {
	path := configPath
	if path == "" {
		path = config.FindFile(workDir())
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if !filepath.IsAbs(cfg.Store.Path) {
		cfg.Store.Path = filepath.Join(workDir(), cfg.Store.Path)
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// newLogger returns the configured logger writing to stderr.
func newLogger(cfg *config.Config) *slog.Logger {
	return cfg.NewLogger(os.Stderr)
}

// sockPath is the daemon socket for cfg.
func sockPath(cfg *config.Config) string {
	if cfg.Daemon.Socket != "" {
		return cfg.Daemon.Socket
	}
	return socket.SocketPath(cfg.Store.Path)
}

// daemonClient returns a client when a daemon answers on cfg's socket.
func daemonClient(cfg *config.Config) (*socket.Client, bool) {
	client := socket.NewClient(sockPath(cfg))
	return client, client.Ping()
}

// openApp opens the store and dictionary in-process. It fails with lock
// diagnostics while a daemon holds the store.
func openApp(ctx context.Context, cfg *config.Config) (*app.App, error) {
	a, err := app.New(ctx, cfg, newLogger(cfg))
	if err != nil {
		return nil, explain(cfg, err)
	}
	return a, nil
}

// configFileOrDefaults names the config file in use for display.
func configFileOrDefaults() string {
	if p := config.FindFile(workDir()); p != "" {
		return p
	}
	return "(defaults)"
}
