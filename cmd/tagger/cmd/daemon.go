package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/corey/tagger/internal/app"
	"github.com/spf13/cobra"
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Manage the tagger daemon",
}

var daemonStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the daemon in the foreground",
	Long: "Loads the dictionary, serves tag requests on a unix socket and rebuilds when a source changes. " +
		"Runs until interrupted or stopped with 'tagger daemon stop'.",
	Args: cobra.NoArgs,
	RunE: runDaemonStart,
}

var daemonStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the daemon",
	Args:  cobra.NoArgs,
	RunE:  runDaemonStop,
}

func init() {
	daemonCmd.AddCommand(daemonStartCmd)
	daemonCmd.AddCommand(daemonStopCmd)
}

func runDaemonStart(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if _, ok := daemonClient(cfg); ok {
		fmt.Println("⚡ daemon already running")
		return nil
	}

	paths := app.NewPaths(workDir())
	if err := paths.EnsureDirs(); err != nil {
		return fmt.Errorf("init: %w", err)
	}
	logFile, err := os.OpenFile(paths.DaemonLog, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("open daemon log: %w", err)
	}
	defer logFile.Close()
	log := cfg.NewLogger(io.MultiWriter(os.Stderr, logFile))

	a, err := app.New(cmd.Context(), cfg, log)
	if err != nil {
		return explain(cfg, fmt.Errorf("init: %w", err))
	}
	if err := a.Start(); err != nil {
		a.Close()
		return err
	}
	if cfg.Daemon.HTTP {
		if err := a.StartHTTP(paths.PortFile); err != nil {
			a.Stop()
			return err
		}
	}
	if err := os.WriteFile(paths.PIDFile, []byte(strconv.Itoa(os.Getpid())), 0644); err != nil {
		log.Warn("could not write pid file",
			slog.String("path", paths.PIDFile),
			slog.String("error", err.Error()))
	}
	defer paths.CleanEphemeral()

	fmt.Printf("⚡ tagger daemon started at %s\n", a.Server.Addr())
	if a.Web != nil {
		fmt.Printf("  http api:  %s\n", a.Web.URL())
	}

	select {
	case <-cmd.Context().Done():
	case <-a.Server.ShutdownCh():
	}

	fmt.Println("\n⚡ shutting down...")
	return a.Stop()
}

func runDaemonStop(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	client, ok := daemonClient(cfg)
	if !ok {
		paths := app.NewPaths(workDir())
		if pid, err := os.ReadFile(paths.PIDFile); err == nil {
			fmt.Printf("⚡ daemon is not responding, stale pid %s in %s\n",
				strings.TrimSpace(string(pid)), paths.PIDFile)
			return nil
		}
		fmt.Println("⚡ daemon is not running")
		return nil
	}

	if err := client.Shutdown(); err != nil {
		return err
	}

	fmt.Println("⚡ daemon stopped")
	return nil
}
