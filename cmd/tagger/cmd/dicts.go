package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/corey/tagger/internal/adapters/bbolt"
	"github.com/corey/tagger/internal/config"
	"github.com/corey/tagger/internal/ports"
	"github.com/spf13/cobra"
)

var removeForce bool

var dictsCmd = &cobra.Command{
	Use:   "dicts",
	Short: "List stored dictionaries",
	Long:  "Lists every dictionary in the store. Opens the store directly; stop a running daemon first.",
	Args:  cobra.NoArgs,
	RunE:  runDicts,
}

var removeCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Delete a stored dictionary",
	Long:  "Deletes one dictionary from the store. Its sources are untouched; 'tagger build' recreates it.",
	Args:  cobra.ExactArgs(1),
	RunE:  runRemove,
}

func init() {
	removeCmd.Flags().BoolVar(&removeForce, "force", false, "Skip confirmation prompt")
	rootCmd.AddCommand(dictsCmd)
	rootCmd.AddCommand(removeCmd)
}

// openStore opens the configured store without loading a dictionary.
func openStore(cfg *config.Config) (*bbolt.Store, error) {
	if _, err := os.Stat(cfg.Store.Path); os.IsNotExist(err) {
		return nil, fmt.Errorf("no store at %s: run 'tagger build' first", cfg.Store.Path)
	}
	s, err := bbolt.NewStoreWithTimeout(cfg.Store.Path, cfg.Store.Timeout)
	if err != nil {
		return nil, explain(cfg, err)
	}
	return s, nil
}

func runDicts(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	s, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	out, err := formatDicts(s, cfg.Dictionary.Name)
	if err != nil {
		return err
	}
	fmt.Print(out)
	return nil
}

// formatDicts lists the dictionaries in st, marking the configured one.
func formatDicts(st ports.Storage, current string) (string, error) {
	metas, err := st.ListDictionaries()
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	sb.WriteString(styleBold.Sprintf("⚡ %d dictionaries\n", len(metas)))
	for _, m := range metas {
		mark := " "
		if m.Name == current {
			mark = styleGreen.Sprint("*")
		}
		built := "-"
		if m.BuiltAt > 0 {
			built = time.Unix(m.BuiltAt, 0).Format(time.DateTime)
		}
		sb.WriteString(fmt.Sprintf("  %s %s  %d records  %d phrases  %s\n",
			mark, styleCyan.Sprint(m.Name), m.Records, m.Phrases, styleGray.Sprint(built)))
	}
	return sb.String(), nil
}

func runRemove(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	name := args[0]

	if !removeForce && !confirm(os.Stdin, fmt.Sprintf("Delete dictionary %s from %s? [y/N] ", name, cfg.Store.Path)) {
		fmt.Println("cancelled")
		return nil
	}

	s, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := removeDictionary(s, name); err != nil {
		return err
	}
	fmt.Printf("dictionary %s removed\n", name)
	return nil
}

// removeDictionary deletes name from st, failing when it is not stored.
func removeDictionary(st ports.Storage, name string) error {
	d, err := st.LoadDictionary(name)
	if err != nil {
		return err
	}
	if d == nil {
		return fmt.Errorf("no dictionary named %s", name)
	}
	return st.DeleteDictionary(name)
}

// confirm prints prompt and reads a yes/no answer from r.
func confirm(r io.Reader, prompt string) bool {
	fmt.Print(prompt)
	answer, _ := bufio.NewReader(r).ReadString('\n')
	answer = strings.TrimSpace(strings.ToLower(answer))
	return answer == "y" || answer == "yes"
}
