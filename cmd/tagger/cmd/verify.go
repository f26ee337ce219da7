package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	verifyFile    string
	verifyJSON    bool
	verifyColor   string
	verifyNoColor bool
)

var verifyCmd = &cobra.Command{
	Use:   "verify [text]",
	Short: "Cross-check the tagger against a brute-force scan",
	Long: "Tags the text keeping every nested and overlapping match and compares the result " +
		"with an Aho-Corasick scan of the same tokens. Exits non-zero on any difference. " +
		"Runs in-process; stop a running daemon first.",
	RunE: runVerify,
}

func init() {
	verifyCmd.Flags().StringVarP(&verifyFile, "file", "F", "", "read the text from a file")
	verifyCmd.Flags().BoolVar(&verifyJSON, "json", false, "print the report as JSON")
	verifyCmd.Flags().StringVar(&verifyColor, "color", "auto", "color output: auto, always or never")
	verifyCmd.Flags().BoolVar(&verifyNoColor, "no-color", false, "disable color output")
}

func runVerify(cmd *cobra.Command, args []string) error {
	applyColor(verifyColor, verifyNoColor)
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	text, err := readInput(args, verifyFile)
	if err != nil {
		return err
	}

	a, err := openApp(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	report, err := a.Service.Verify(cmd.Context(), text)
	if err != nil {
		return err
	}
	if verifyJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return err
		}
	} else {
		fmt.Print(formatVerify(report))
	}
	if !report.OK() {
		return fmt.Errorf("verification failed: %d missing, %d extra", len(report.Missing), len(report.Extra))
	}
	return nil
}
