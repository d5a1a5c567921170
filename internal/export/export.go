package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"usatt/internal/scrapers/usatt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatTable    Format = "table"
	FormatCSV      Format = "csv"
	FormatJSON     Format = "json"
)

var Formats = []Format{FormatMarkdown, FormatTable, FormatCSV, FormatJSON}

func ParseFormat(value string) (Format, error) {
	for _, f := range Formats {
		if strings.EqualFold(value, string(f)) {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown format %q, expected one of %v", value, Formats)
}

func newTable(header []string) table.Writer {
	style := table.StyleRounded
	// headers are column names read off of the site, keep them as they are
	style.Format.Header = text.FormatDefault
	style.Format.Footer = text.FormatDefault

	t := table.NewWriter()
	t.SetStyle(style)
	t.AppendHeader(toRow(header))
	return t
}

func toRow(values []string) table.Row {
	row := make(table.Row, len(values))
	for i, v := range values {
		row[i] = v
	}
	return row
}

// writeCSV writes RFC 4180 csv with the header as the first record.
func writeCSV(w io.Writer, header []string, rows [][]string) error {
	writer := csv.NewWriter(w)
	err := writer.Write(header)
	if err != nil {
		return err
	}
	err = writer.WriteAll(rows)
	if err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

func writeRows(w io.Writer, format Format, header []string, rows [][]string) error {
	if format == FormatCSV {
		return writeCSV(w, header, rows)
	}

	t := newTable(header)
	for _, row := range rows {
		t.AppendRow(toRow(row))
	}

	var out string
	switch format {
	case FormatMarkdown:
		out = t.RenderMarkdown()
	case FormatTable:
		out = t.Render()
	default:
		return fmt.Errorf("format %q cannot be rendered as a table", format)
	}
	_, err := fmt.Fprintln(w, out)
	return err
}

func writeJSON(w io.Writer, value any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(value)
}

// WriteRatings writes one row per rating, indexed by usatt number.
func WriteRatings(w io.Writer, format Format, ratings []usatt.Rating) error {
	if format == FormatJSON {
		return writeJSON(w, ratings)
	}

	rows := make([][]string, len(ratings))
	for i, r := range ratings {
		rows[i] = r.Values()
	}
	return writeRows(w, format, usatt.RatingColumns, rows)
}

type summaryJSON struct {
	IndexColumn string              `json:"index_column"`
	Rows        []map[string]string `json:"rows"`
}

// WriteSummary writes a summary with its index column first.
func WriteSummary(w io.Writer, format Format, summary usatt.Summary) error {
	if format == FormatJSON {
		out := summaryJSON{
			IndexColumn: summary.IndexColumn,
			Rows:        make([]map[string]string, len(summary.Rows)),
		}
		for i, row := range summary.Rows {
			values := make(map[string]string, len(summary.Columns)+1)
			values[summary.IndexColumn] = row.ID
			for j, c := range summary.Columns {
				values[c] = row.Values[j]
			}
			out.Rows[i] = values
		}
		return writeJSON(w, out)
	}

	header := append([]string{summary.IndexColumn}, summary.Columns...)
	rows := make([][]string, len(summary.Rows))
	for i, row := range summary.Rows {
		rows[i] = append([]string{row.ID}, row.Values...)
	}
	return writeRows(w, format, header, rows)
}
