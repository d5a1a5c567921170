package htmlutil

import (
	"context"
	"errors"
	"fmt"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel/attribute"
)

var ErrNoTable = errors.New("no table found")

// Table is the text content of an html <table>.
type Table struct {
	Columns []string
	Rows    [][]string
}

func cellTexts(cells *goquery.Selection) []string {
	out := make([]string, cells.Length())
	cells.Each(func(i int, cell *goquery.Selection) {
		out[i] = CleanText(cell.Text())
	})
	return out
}

// ParseTable reads the first table in `sel`.
//
// The header is taken from <thead>, or else from the first row made of <th>
// cells. Every row holding <td> cells is a data row, rows are padded or
// truncated to the width of the header.
func ParseTable(ctx context.Context, sel *goquery.Selection) (Table, error) {
	_, span := tracer.Start(ctx, "ParseTable")
	defer span.End()

	table := sel.Filter("table").First()
	if table.Length() == 0 {
		table = sel.Find("table").First()
	}
	if table.Length() == 0 {
		return Table{}, ErrNoTable
	}

	headerRow := table.Find("thead tr").First()
	if headerRow.Length() == 0 {
		headerRow = table.Find("tr").FilterFunction(func(_ int, row *goquery.Selection) bool {
			return row.ChildrenFiltered("th").Length() > 0
		}).First()
	}

	var columns []string
	if headerRow.Length() > 0 {
		columns = cellTexts(headerRow.ChildrenFiltered("th, td"))
	}
	for i, c := range columns {
		if c == "" {
			columns[i] = fmt.Sprintf("Unnamed: %d", i)
		}
	}

	var rows [][]string
	table.Find("tr").Each(func(_ int, row *goquery.Selection) {
		if row.Parent().Is("thead") {
			return
		}
		cells := row.ChildrenFiltered("td")
		if cells.Length() == 0 {
			return
		}
		values := cellTexts(cells)

		if columns == nil {
			for i := range values {
				columns = append(columns, fmt.Sprintf("Unnamed: %d", i))
			}
		}
		for len(values) < len(columns) {
			values = append(values, "")
		}
		rows = append(rows, values[:len(columns)])
	})

	span.SetAttributes(
		attribute.Int("columns", len(columns)),
		attribute.Int("rows", len(rows)),
	)

	return Table{Columns: columns, Rows: rows}, nil
}
