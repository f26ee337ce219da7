package cmd

import (
	"fmt"

	"github.com/corey/tagger/internal/adapters/socket"
	"github.com/spf13/cobra"
)

var buildForce bool

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build the dictionary from its sources",
	Long: "Builds the configured dictionary from its record files and stores it. " +
		"A stored dictionary that matches the sources and settings is kept unless --force is given. " +
		"With a daemon running, the daemon rebuilds.",
	Args: cobra.NoArgs,
	RunE: runBuild,
}

func init() {
	buildCmd.Flags().BoolVarP(&buildForce, "force", "f", false, "rebuild even when the stored dictionary is current")
}

func runBuild(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if client, ok := daemonClient(cfg); ok {
		res, err := client.Reload()
		if err != nil {
			return err
		}
		fmt.Print(formatBuild(cfg.Dictionary.Name, res))
		return nil
	}

	a, err := openApp(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	stats, built := a.LastBuild()
	if !built {
		if !buildForce {
			if _, ok := a.Service.Meta(); !ok {
				return fmt.Errorf("dictionary %s: nothing to build, no sources configured", cfg.Dictionary.Name)
			}
			fmt.Printf("⚡ dictionary %s is up to date\n", cfg.Dictionary.Name)
			return nil
		}
		if stats, err = a.Rebuild(cmd.Context()); err != nil {
			return err
		}
	}

	fmt.Print(formatBuild(cfg.Dictionary.Name, &socket.ReloadResult{
		Records:    stats.Records,
		Phrases:    stats.Phrases,
		Skipped:    stats.Skipped,
		DurationMs: stats.Duration.Milliseconds(),
	}))
	return nil
}
