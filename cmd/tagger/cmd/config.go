package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show configuration",
	Long:  "Shows the config file, store and socket paths, daemon status and the effective settings. No daemon required.",
	Args:  cobra.NoArgs,
	RunE:  runConfig,
}

func runConfig(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	file := configPath
	if file == "" {
		file = configFileOrDefaults()
	}
	_, running := daemonClient(cfg)
	daemonStatus := styleYellow.Sprint("✗ not running")
	if running {
		daemonStatus = styleGreen.Sprint("✓ running")
	}

	fmt.Println(styleBold.Sprint("⚡ tagger config"))
	fmt.Printf("  File:       %s\n", file)
	fmt.Printf("  Store:      %s\n", cfg.Store.Path)
	fmt.Printf("  Socket:     %s\n", sockPath(cfg))
	fmt.Printf("  Daemon:     %s\n", daemonStatus)
	fmt.Println()

	data, err := cfg.Marshal()
	if err != nil {
		return err
	}
	fmt.Print(string(data))
	return nil
}
