package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/corey/tagger/internal/ports"
	"github.com/spf13/cobra"
)

var (
	tagOverlaps    string
	tagLimit       int
	tagMatchText   bool
	tagMarkup      string
	tagNonTaggable []string
	tagFilter      []string
	tagRows        int
	tagFile        string
	tagJSON        bool
	tagLocal       bool
	tagColor       string
	tagNoColor     bool
)

var tagCmd = &cobra.Command{
	Use:   "tag [text]",
	Short: "Find dictionary phrases in text",
	Long: "Tags the text given as arguments, in --file, or piped on stdin. " +
		"Requests go to the daemon when one is running, otherwise the dictionary is opened in-process.",
	RunE: runTag,
}

func init() {
	f := tagCmd.Flags()
	f.StringVarP(&tagOverlaps, "overlaps", "o", "", "overlap policy: ALL, NO_SUB or LONGEST_DOMINANT_RIGHT")
	f.IntVarP(&tagLimit, "limit", "n", 0, "maximum tags to report (default from config)")
	f.BoolVar(&tagMatchText, "match-text", false, "include the matched text of every tag")
	f.StringVar(&tagMarkup, "markup", "", "move tags onto element boundaries: none, xml or html")
	f.StringSliceVar(&tagNonTaggable, "non-taggable", nil, "elements whose content is never tagged")
	f.StringSliceVar(&tagFilter, "filter", nil, "only match phrases of these record ids")
	f.IntVar(&tagRows, "rows", -1, "maximum matched record ids to list (default from config)")
	f.StringVarP(&tagFile, "file", "F", "", "read the text from a file")
	f.BoolVar(&tagJSON, "json", false, "print the response as JSON")
	f.BoolVar(&tagLocal, "local", false, "tag in-process even when a daemon is running")
	f.StringVar(&tagColor, "color", "auto", "color output: auto, always or never")
	f.BoolVar(&tagNoColor, "no-color", false, "disable color output")
}

// readInput returns the text to tag: --file, the arguments, or stdin.
func readInput(args []string, file string) (string, error) {
	switch {
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return "", err
		}
		return string(data), nil
	case len(args) > 0:
		return strings.Join(args, " "), nil
	case isStdinPipe():
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	}
	return "", fmt.Errorf("no text: pass it as arguments, with --file, or on stdin")
}

func runTag(cmd *cobra.Command, args []string) error {
	applyColor(tagColor, tagNoColor)
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	text, err := readInput(args, tagFile)
	if err != nil {
		return err
	}

	req := ports.TagRequest{
		Text:        text,
		Overlaps:    tagOverlaps,
		TagsLimit:   tagLimit,
		MatchText:   tagMatchText,
		Markup:      tagMarkup,
		NonTaggable: tagNonTaggable,
		Filter:      tagFilter,
	}
	if tagRows >= 0 {
		req.Rows = &tagRows
	}

	var resp *ports.TagResponse
	if client, ok := daemonClient(cfg); ok && !tagLocal {
		resp, err = client.Tag(req)
	} else {
		a, openErr := openApp(cmd.Context(), cfg)
		if openErr != nil {
			return openErr
		}
		defer a.Close()
		resp, err = a.Tag(cmd.Context(), req)
	}
	if err != nil {
		return err
	}

	if tagJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}
	fmt.Print(formatTags(text, resp))
	return nil
}
