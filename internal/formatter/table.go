package formatter

import (
	"fmt"
	"strconv"

	"github.com/desertthunder/tubeport/internal/models"
	"github.com/desertthunder/tubeport/internal/shared"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

const maxCellWidth = 48

// renderTable draws rows under headers with rounded borders. Rows shorter than the header are padded.
func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.Style().Format.Header = text.FormatDefault

	header := make(table.Row, columns)
	for i := range columns {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := range columns {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	columnConfigs := make([]table.ColumnConfig, 0, columns)
	for i := range columns {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		columnConfigs = append(columnConfigs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
			WidthMax:    maxCellWidth,
		})
	}
	tw.SetColumnConfigs(columnConfigs)

	return tw.Render()
}

// SummaryTable renders run statistics as a two-column table.
func SummaryTable(stats models.RunStatistics) string {
	rows := [][]string{
		{"Processed", strconv.Itoa(stats.Total)},
		{"Accepted", strconv.Itoa(stats.Accepted)},
		{"Unresolved", strconv.Itoa(stats.Unresolved)},
		{"Low confidence", strconv.Itoa(stats.LowConfidence)},
		{"Failed", strconv.Itoa(stats.Failed)},
		{"Success rate", fmt.Sprintf("%.1f%%", stats.SuccessRate())},
		{"Duration", shared.FormatDuration(stats.Duration())},
		{"Per item", shared.FormatDuration(stats.AveragePerItem())},
	}
	return renderTable([]string{"Metric", "Value"}, rows, []columnAlignment{alignLeft, alignRight})
}

// ItemsTable renders processed items in source order.
func ItemsTable(items []models.ProcessedItem) string {
	rows := make([][]string, 0, len(items))
	for i, item := range items {
		match := ""
		if item.Result != nil {
			match = item.Result.MatchedArtist + " - " + item.Result.MatchedTitle
		}
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			item.Entry.Label,
			match,
			fmt.Sprintf("%.2f", item.Confidence()),
			item.Status.String(),
			item.FailureReason,
		})
	}

	headers := []string{"#", "Label", "Match", "Confidence", "Status", "Reason"}
	aligns := []columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignLeft, alignLeft}
	return renderTable(headers, rows, aligns)
}

// RunsTable renders run history, newest first as given.
func RunsTable(runs []*models.MigrationRun) string {
	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		stats := run.Stats()
		started := ""
		if !stats.StartedAt.IsZero() {
			started = stats.StartedAt.Local().Format("2006-01-02 15:04")
		}
		rows = append(rows, []string{
			"#" + strconv.Itoa(run.Sequence()),
			started,
			run.PlaylistName(),
			run.Status(),
			strconv.Itoa(stats.Total),
			strconv.Itoa(stats.Accepted),
			fmt.Sprintf("%.1f%%", stats.SuccessRate()),
		})
	}

	headers := []string{"Run", "Started", "Playlist", "Status", "Total", "Accepted", "Rate"}
	aligns := []columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight}
	return renderTable(headers, rows, aligns)
}
