package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Describe the dictionary",
	Long:  "Shows the loaded dictionary, its sources and build count. Asks the daemon when one is running.",
	Args:  cobra.NoArgs,
	RunE:  runInfo,
}

func runInfo(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if client, ok := daemonClient(cfg); ok {
		info, err := client.Info()
		if err != nil {
			return err
		}
		fmt.Print(formatInfo(info))
		return nil
	}

	a, err := openApp(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer a.Close()
	info := a.Info()
	fmt.Print(formatInfo(&info))
	return nil
}
