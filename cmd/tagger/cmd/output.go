package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/corey/tagger/internal/adapters/socket"
	"github.com/corey/tagger/internal/app"
	"github.com/corey/tagger/internal/ports"
	"github.com/fatih/color"
)

// Terminal styles. color.NoColor turns all of them off.
var (
	styleBold   = color.New(color.Bold)
	styleCyan   = color.New(color.FgCyan)
	styleGreen  = color.New(color.FgGreen)
	styleYellow = color.New(color.FgYellow)
	styleRed    = color.New(color.FgRed)
	styleGray   = color.New(color.FgHiBlack)
)

// formatTags formats a TagResponse for terminal display.
//
//	⚡ 2 tags │ 3 records
//	  [0-14]   City of London          C1
//	  [8-30]   London Business School  B1
//	  records: C1 B1 L1
func formatTags(text string, resp *ports.TagResponse) string {
	var sb strings.Builder
	sb.WriteString(styleBold.Sprintf("⚡ %d tags", resp.TagsCount))
	sb.WriteString(fmt.Sprintf(" │ %d records\n", resp.NumRecords))

	width := 0
	for _, h := range resp.Tags {
		width = max(width, len(spanText(text, h)))
	}
	for _, h := range resp.Tags {
		pos := fmt.Sprintf("[%d-%d]", h.Start, h.End)
		sb.WriteString(fmt.Sprintf("  %s  %s  %s\n",
			styleGray.Sprintf("%-12s", pos),
			styleCyan.Sprintf("%-*s", width, spanText(text, h)),
			styleGreen.Sprint(strings.Join(h.IDs, " "))))
	}
	if len(resp.Records) > 0 {
		sb.WriteString(fmt.Sprintf("  records: %s", strings.Join(resp.Records, " ")))
		if len(resp.Records) < resp.NumRecords {
			sb.WriteString(styleGray.Sprintf(" (+%d more)", resp.NumRecords-len(resp.Records)))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// spanText is the matched text of a hit, single line.
func spanText(text string, h ports.TagHit) string {
	s := h.MatchText
	if s == "" && h.Start >= 0 && h.End <= len(text) && h.Start <= h.End {
		s = text[h.Start:h.End]
	}
	return strings.Join(strings.Fields(s), " ")
}

// formatBuild formats the result of a dictionary build.
func formatBuild(name string, r *socket.ReloadResult) string {
	var sb strings.Builder
	sb.WriteString(styleBold.Sprintf("⚡ dictionary %s built\n", name))
	sb.WriteString(fmt.Sprintf("  Records:  %d\n", r.Records))
	sb.WriteString(fmt.Sprintf("  Phrases:  %d\n", r.Phrases))
	if r.Skipped > 0 {
		sb.WriteString(fmt.Sprintf("  Skipped:  %s\n", styleYellow.Sprintf("%d names", r.Skipped)))
	}
	sb.WriteString(fmt.Sprintf("  Took:     %s\n", time.Duration(r.DurationMs)*time.Millisecond))
	return sb.String()
}

// formatHealth formats a HealthResult for terminal display.
func formatHealth(h *socket.HealthResult) string {
	var sb strings.Builder
	sb.WriteString(styleBold.Sprint("⚡ tagger daemon\n"))
	sb.WriteString(fmt.Sprintf("  Status:      %s\n", styleGreen.Sprint(h.Status)))
	dict := h.Dictionary
	if dict == "" {
		dict = styleYellow.Sprint("none loaded")
	}
	sb.WriteString(fmt.Sprintf("  Dictionary:  %s\n", dict))
	sb.WriteString(fmt.Sprintf("  Phrases:     %d\n", h.Phrases))
	sb.WriteString(fmt.Sprintf("  Uptime:      %s\n", h.Uptime))
	return sb.String()
}

// formatInfo formats an InfoResult for terminal display.
func formatInfo(info *socket.InfoResult) string {
	m := info.Dictionary
	var sb strings.Builder
	if m.Name == "" {
		sb.WriteString(styleYellow.Sprint("⚡ no dictionary loaded\n"))
	} else {
		sb.WriteString(styleBold.Sprintf("⚡ dictionary %s\n", m.Name))
		sb.WriteString(fmt.Sprintf("  Records:      %d\n", m.Records))
		sb.WriteString(fmt.Sprintf("  Words:        %d\n", m.Words))
		sb.WriteString(fmt.Sprintf("  Phrases:      %d\n", m.Phrases))
		sb.WriteString(fmt.Sprintf("  Skipped:      %d\n", m.Skipped))
		sb.WriteString(fmt.Sprintf("  Partial:      %t\n", m.PartialMatches))
		if m.BuiltAt > 0 {
			sb.WriteString(fmt.Sprintf("  Built:        %s\n", time.Unix(m.BuiltAt, 0).Format(time.RFC3339)))
		}
		sb.WriteString(fmt.Sprintf("  Fingerprint:  %s\n", m.Fingerprint))
	}
	for _, src := range info.Sources {
		sb.WriteString(fmt.Sprintf("  Source:       %s\n", styleCyan.Sprint(src)))
	}
	watching := styleGray.Sprint("off")
	if info.Watching {
		watching = styleGreen.Sprint("on")
	}
	sb.WriteString(fmt.Sprintf("  Watching:     %s\n", watching))
	sb.WriteString(fmt.Sprintf("  Builds:       %d\n", info.Builds))
	return sb.String()
}

// formatVerify formats a verification report.
func formatVerify(r *app.VerifyReport) string {
	var sb strings.Builder
	if r.OK() {
		sb.WriteString(styleGreen.Sprintf("✓ %d occurrences agree", r.Tagged))
	} else {
		sb.WriteString(styleRed.Sprintf("✗ tagger %d, scan %d", r.Tagged, r.Scanned))
	}
	sb.WriteString(fmt.Sprintf(" │ %d tokens\n", r.Tokens))
	for _, s := range r.Missing {
		sb.WriteString(fmt.Sprintf("  missing  [%d-%d]  %s\n", s.Start, s.End, styleCyan.Sprint(s.Text)))
	}
	for _, s := range r.Extra {
		sb.WriteString(fmt.Sprintf("  extra    [%d-%d]  %s\n", s.Start, s.End, styleCyan.Sprint(s.Text)))
	}
	return sb.String()
}
