// package formatter renders migration results as reports (CSV, Markdown, JSON) and console tables
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/desertthunder/tubeport/internal/models"
	"github.com/desertthunder/tubeport/internal/shared"
)

// Report formats accepted by [WriteReport].
const (
	FormatCSV      = "csv"
	FormatMarkdown = "markdown"
	FormatJSON     = "json"
)

// DefaultReportDir is used when [ReportOpts.Dir] is empty.
const DefaultReportDir = "reports"

// CSVHeaders are the report columns in order.
var CSVHeaders = []string{
	"Original YouTube Title",
	"YouTube Channel",
	"Parsed Artist",
	"Parsed Song Title",
	"Spotify Match Found",
	"Spotify Track URI",
	"Match Confidence Score",
	"Error Details",
}

// ReportOpts configures [WriteReport].
type ReportOpts struct {
	Dir      string          // Output directory, defaults to [DefaultReportDir]
	Format   string          // One of csv, markdown or json; defaults to csv
	Now      time.Time       // Timestamp used in the file name, defaults to the current time
	Source   string          // Source playlist reference shown in Markdown and JSON reports
	Playlist *models.Playlist // Created destination playlist, if any
}

// Report is the JSON report document.
type Report struct {
	Source      string                 `json:"source,omitempty"`
	Playlist    *models.Playlist       `json:"playlist,omitempty"`
	Stats       models.RunStatistics   `json:"stats"`
	SuccessRate float64                `json:"success_rate"`
	Items       []models.ProcessedItem `json:"items"`
}

// ReportToCSV renders one row per item under [CSVHeaders].
//
// Match found is Y only for accepted items. The URI is written whenever a candidate was found so
// low-confidence rejections can be reviewed.
func ReportToCSV(items []models.ProcessedItem) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write(CSVHeaders); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, item := range items {
		found := "N"
		if item.Accepted() {
			found = "Y"
		}
		record := []string{
			item.Entry.Label,
			item.Entry.Publisher,
			item.Identity.Artist,
			item.Identity.Title,
			found,
			item.ExternalID(),
			fmt.Sprintf("%.2f", item.Confidence()),
			item.FailureReason,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ReportToMarkdown renders a summary followed by accepted and unmatched sections.
func ReportToMarkdown(items []models.ProcessedItem, stats models.RunStatistics, opts ReportOpts) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString("# Migration Report\n\n")
	if opts.Source != "" {
		buf.WriteString(fmt.Sprintf("**Source**: %s\n", opts.Source))
	}
	if pl := opts.Playlist; pl != nil {
		buf.WriteString(fmt.Sprintf("**Playlist**: %s (%s, %s)\n", pl.Name, pl.ID, shared.VisibilityString(pl.Public)))
	}
	buf.WriteString(fmt.Sprintf("**Processed**: %d\n", stats.Total))
	buf.WriteString(fmt.Sprintf("**Accepted**: %d\n", stats.Accepted))
	buf.WriteString(fmt.Sprintf("**Unresolved**: %d (%d low confidence)\n", stats.Unresolved, stats.LowConfidence))
	buf.WriteString(fmt.Sprintf("**Failed**: %d\n", stats.Failed))
	buf.WriteString(fmt.Sprintf("**Success rate**: %.1f%%\n\n", stats.SuccessRate()))

	buf.WriteString("## Matched\n\n")
	n := 0
	for _, item := range items {
		if !item.Accepted() {
			continue
		}
		n++
		buf.WriteString(fmt.Sprintf("%d. %s - %s (%.2f) `%s`\n", n, item.Result.MatchedArtist, item.Result.MatchedTitle, item.Confidence(), item.ExternalID()))
	}
	if n == 0 {
		buf.WriteString("_None_\n")
	}

	buf.WriteString("\n## Not Matched\n\n")
	n = 0
	for _, item := range items {
		if item.Accepted() {
			continue
		}
		n++
		buf.WriteString(fmt.Sprintf("%d. %s: %s\n", n, escapeMarkdown(item.Entry.Label), item.FailureReason))
	}
	if n == 0 {
		buf.WriteString("_None_\n")
	}

	return buf.Bytes(), nil
}

// ReportToJSON renders the [Report] document.
func ReportToJSON(items []models.ProcessedItem, stats models.RunStatistics, opts ReportOpts) ([]byte, error) {
	if items == nil {
		items = []models.ProcessedItem{}
	}
	report := Report{
		Source:      opts.Source,
		Playlist:    opts.Playlist,
		Stats:       stats,
		SuccessRate: stats.SuccessRate(),
		Items:       items,
	}
	return shared.MarshalJSON(report, true)
}

// ReportFilename returns migration_report_YYYYMMDD_HHMMSS with the extension for format.
func ReportFilename(t time.Time, format string) string {
	ext := "csv"
	switch format {
	case FormatMarkdown:
		ext = "md"
	case FormatJSON:
		ext = "json"
	}
	return fmt.Sprintf("migration_report_%s.%s", t.Format("20060102_150405"), ext)
}

// WriteReport renders the items in the requested format and writes them to a timestamped file in the
// report directory, creating it as needed. Returns the file path.
func WriteReport(items []models.ProcessedItem, stats models.RunStatistics, opts ReportOpts) (string, error) {
	if opts.Dir == "" {
		opts.Dir = DefaultReportDir
	}
	if opts.Now.IsZero() {
		opts.Now = time.Now()
	}

	var (
		data []byte
		err  error
	)
	switch opts.Format {
	case "", FormatCSV:
		data, err = ReportToCSV(items)
	case FormatMarkdown:
		data, err = ReportToMarkdown(items, stats, opts)
	case FormatJSON:
		data, err = ReportToJSON(items, stats, opts)
	default:
		return "", fmt.Errorf("%w: unknown report format %q", shared.ErrInvalidArgument, opts.Format)
	}
	if err != nil {
		return "", fmt.Errorf("failed to generate report: %w", err)
	}

	if err := os.MkdirAll(opts.Dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create report directory: %w", err)
	}

	path := filepath.Join(opts.Dir, ReportFilename(opts.Now, opts.Format))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}

	return path, nil
}

// WriteSummary prints the end-of-run summary block.
func WriteSummary(w io.Writer, stats models.RunStatistics) error {
	rule := strings.Repeat("=", 60)
	lines := []string{
		"",
		rule,
		"MIGRATION SUMMARY",
		rule,
		fmt.Sprintf("Total songs processed: %d", stats.Total),
		fmt.Sprintf("Successfully matched: %d", stats.Accepted),
		fmt.Sprintf("Not found on Spotify: %d", stats.Unresolved),
		fmt.Sprintf("Low confidence matches: %d", stats.LowConfidence),
		fmt.Sprintf("Errors encountered: %d", stats.Failed),
		fmt.Sprintf("Success rate: %.1f%%", stats.SuccessRate()),
		fmt.Sprintf("Processing time: %.1f seconds", stats.Duration().Seconds()),
		fmt.Sprintf("Average time per song: %.2f seconds", stats.AveragePerItem().Seconds()),
		rule,
	}

	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

func escapeMarkdown(s string) string {
	return strings.NewReplacer("*", `\*`, "_", `\_`, "`", "\\`").Replace(s)
}
