package main

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"gopkg.in/yaml.v3"

	"github.com/tinytelemetry/wasp/internal/model"
)

// render writes v as json or yaml. text falls back to json for values
// without a table form.
func render(w io.Writer, format string, v any) error {
	switch format {
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("encode json: %w", err)
		}
		return nil
	}
}

// decodeBody turns a raw response body into a value render can print.
// Non-JSON bodies are kept as text.
func decodeBody(raw []byte) any {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return string(raw)
	}
	return v
}

var headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
var cellStyle = lipgloss.NewStyle().Padding(0, 1)

// historyTable renders request records for text output.
func historyTable(records []model.RequestRecord, sum model.RequestSummary) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("FINISHED", "OPERATION", "URL", "STATUS", "MS", "ERROR").
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	for _, r := range records {
		t.Row(
			formatMillis(r.FinishedAt),
			r.Operation,
			r.URL,
			fmt.Sprint(r.Status),
			fmt.Sprint(r.DurationMs),
			r.Error,
		)
	}
	footer := fmt.Sprintf("%d requests, %d errors, avg %.1fms, last status %d",
		sum.Total, sum.Errors, sum.AvgMs, sum.LastStatus)
	return t.Render() + "\n" + footer + "\n"
}

func formatMillis(ms int64) string {
	if ms == 0 {
		return "-"
	}
	return time.UnixMilli(ms).Format("2006-01-02 15:04:05")
}
