package main

import (
	"fmt"
	"strconv"

	"mtx-console/internal/console"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// renderDashboard draws one row per declared path followed by the summary line.
func renderDashboard(d console.Dashboard) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Name", "Source", "Live", "Via", "Readers", "Received", "Sent"})
	for _, p := range d.Paths {
		live := "no"
		if p.IsLive {
			live = "yes"
		}
		tw.AppendRow(table.Row{
			p.Name,
			p.Config.Source,
			live,
			p.SourceType,
			p.ReaderCount,
			formatBytes(p.BytesReceived),
			formatBytes(p.BytesSent),
		})
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Source", WidthMax: 48},
		{Name: "Readers", Align: text.AlignRight, AlignHeader: text.AlignLeft},
		{Name: "Received", Align: text.AlignRight, AlignHeader: text.AlignLeft},
		{Name: "Sent", Align: text.AlignRight, AlignHeader: text.AlignLeft},
	})
	return tw.Render() + "\n" + summaryLine(d)
}

func summaryLine(d console.Dashboard) string {
	line := fmt.Sprintf("%d paths, %d live, %d viewers", d.Summary.TotalPaths, d.Summary.ActivePaths, d.Summary.TotalReaders)
	if d.Stale {
		line += fmt.Sprintf(" (stale: %s, %d failed polls)", d.Status.LastError, d.Status.ConsecutiveFailures)
	}
	return line
}

func formatBytes(n uint64) string {
	const unit = 1024
	if n < unit {
		return strconv.FormatUint(n, 10) + " B"
	}
	div, exp := uint64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
