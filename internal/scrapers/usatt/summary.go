package usatt

import (
	"context"
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"usatt/pkg/htmlutil"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	report_client_get_summary = "client.get-summary"
	report_summary_page_count = "summary.page-count"
	report_summary_max_pages  = "summary.max-pages"
)

const (
	// PageSize is both the number of rows requested per page and the offset increment.
	PageSize = 1000
	// IndexColumn identifies a player in summary listings.
	IndexColumn = "USATT#"

	DefaultPageSlack = 2
	DefaultMaxPages  = 100

	// the listing starts with a checkbox column and a row number column
	droppedColumns = 2
)

// DefaultDisplayColumns are the columns shown by the site's own summary listing.
var DefaultDisplayColumns = []string{
	"First Name",
	"Last Name",
	IndexColumn,
	"Location",
	"Home Club",
	"Tournament Rating",
	"Last Played Tournament",
	"League Rating",
	"Last Played League",
}

// FilterParam is an extra query parameter of the search, ex. minAge=18.
type FilterParam struct {
	Key   string
	Value string
}

// ParseFilterParam parses a "key=value" pair.
func ParseFilterParam(pair string) (FilterParam, error) {
	key, value, ok := strings.Cut(pair, "=")
	key = strings.TrimSpace(key)
	if !ok || key == "" {
		return FilterParam{}, fmt.Errorf("filter %q is not of the form key=value", pair)
	}
	return FilterParam{Key: key, Value: strings.TrimSpace(value)}, nil
}

// PageProgress describes a page that has just been fetched.
type PageProgress struct {
	// Page is the 1-based number of the request, the final empty page included.
	Page int
	// ExpectedPages is the page count advertised by the pagination links,
	// -1 if there were none.
	ExpectedPages int
	Offset        int
	Rows          int
}

type SummaryRequest struct {
	// Query is the free text search, usually a name or a usatt number.
	Query  string
	Filter []FilterParam
	// DisplayColumns defaults to DefaultDisplayColumns.
	DisplayColumns []string
	// OnPage is called after every page, it can be nil.
	OnPage func(PageProgress)
}

type SummaryRow struct {
	ID     string
	Values []string
}

// Summary is the concatenation of every page of a summary listing, indexed
// by IndexColumn. Rows keep the order the site returned them in, ids are
// not guaranteed to be unique.
type Summary struct {
	IndexColumn string
	// Columns names Values of every row, the index column is not included.
	Columns []string
	Rows    []SummaryRow
}

// Value returns the value of `column` in `row`.
func (s Summary) Value(row SummaryRow, column string) (string, bool) {
	if column == s.IndexColumn {
		return row.ID, true
	}
	i := slices.Index(s.Columns, column)
	if i < 0 || i >= len(row.Values) {
		return "", false
	}
	return row.Values[i], true
}

// DuplicateIDs returns every id that occurs more than once, in order of
// first duplicate occurrence.
func (s Summary) DuplicateIDs() []string {
	seen := make(map[string]int, len(s.Rows))
	var duplicates []string
	for _, row := range s.Rows {
		seen[row.ID]++
		if seen[row.ID] == 2 {
			duplicates = append(duplicates, row.ID)
		}
	}
	return duplicates
}

func summaryParams(req SummaryRequest) url.Values {
	columns := req.DisplayColumns
	if len(columns) == 0 {
		columns = DefaultDisplayColumns
	}

	params := url.Values{}
	for _, c := range columns {
		params.Add("displayColumns", c)
	}
	params.Set("pageSize", strconv.Itoa(PageSize))
	params.Set("max", strconv.Itoa(PageSize))
	if req.Query != "" {
		params.Set("q", req.Query)
	}
	for _, f := range req.Filter {
		params.Add(f.Key, f.Value)
	}
	return params
}

// expectedPages reads the largest page number off of the pagination links.
func expectedPages(anchors []htmlutil.Anchor) int {
	pages := -1
	for _, a := range anchors {
		if !strings.Contains(a.Href, "offset") {
			continue
		}
		n, err := strconv.Atoi(a.Name)
		if err != nil {
			continue
		}
		pages = max(pages, n)
	}
	return pages
}

// GetSummary walks every page of a summary listing and concatenates them.
//
// The walk ends at the first empty page. Since that page may never come if
// the site misbehaves, it is also cut off with a warning once it runs
// PageSlack pages past the advertised page count or reaches MaxPages, the
// rows fetched so far are returned in that case.
func (c *Client) GetSummary(ctx context.Context, req SummaryRequest) (Summary, error) {
	ctx, span := tracer.Start(ctx, "GetSummary")
	defer span.End()
	span.SetAttributes(attribute.String("query", req.Query))

	fail := func(err error) (Summary, error) {
		c.tel.ReportBroken(report_client_get_summary, err, req.Query)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Summary{}, fmt.Errorf("get summary: %w", err)
	}

	params := summaryParams(req)
	expected := -1
	var columns []string
	var pages []htmlutil.Table

	for offset, requests := 0, 1; ; offset, requests = offset+PageSize, requests+1 {
		pageParams := url.Values{}
		for k, v := range params {
			pageParams[k] = v
		}
		pageParams.Set("offset", strconv.Itoa(offset))

		doc, err := c.getDocument(ctx, "/s2", pageParams)
		if err != nil {
			return fail(fmt.Errorf("offset %d: %w", offset, err))
		}
		page, err := htmlutil.ParseTable(ctx, doc.Selection)
		if err != nil {
			return fail(fmt.Errorf("%w: offset %d: %w", ErrLookup, offset, err))
		}

		if requests == 1 {
			columns = page.Columns
			expected = expectedPages(htmlutil.GetAnchors(ctx, doc.Find("a")))
			c.tel.ReportDebug("expected pages", expected)
		}
		if req.OnPage != nil {
			req.OnPage(PageProgress{
				Page:          requests,
				ExpectedPages: expected,
				Offset:        offset,
				Rows:          len(page.Rows),
			})
		}

		if len(page.Rows) == 0 {
			break
		}

		c.tel.ReportInfo(fmt.Sprintf("entries %d-%d", offset+1, offset+len(page.Rows)))
		pages = append(pages, page)

		if len(pages) > expected+c.pageSlack {
			c.tel.ReportWarning(
				report_summary_page_count,
				fmt.Sprintf("%d pages fetched when the total pages should be %d", len(pages), expected),
			)
			break
		}
		if len(pages) >= c.maxPages {
			c.tel.ReportWarning(
				report_summary_max_pages,
				fmt.Sprintf("stopped after %d pages", len(pages)),
			)
			break
		}
	}

	summary, err := concatPages(columns, pages)
	if err != nil {
		return fail(err)
	}
	c.tel.ReportCount(report_client_get_summary, int64(len(summary.Rows)))
	span.SetAttributes(attribute.Int("rows", len(summary.Rows)))

	return summary, nil
}

// concatPages joins pages sharing `columns`, drops the leading markup columns
// and indexes the rows by IndexColumn.
func concatPages(columns []string, pages []htmlutil.Table) (Summary, error) {
	for i, p := range pages {
		if !slices.Equal(p.Columns, columns) {
			return Summary{}, fmt.Errorf(
				"%w: page %d has %v, expected %v",
				ErrSchemaMismatch, i+1, p.Columns, columns,
			)
		}
	}

	if len(columns) < droppedColumns {
		return Summary{}, fmt.Errorf("%w: summary table has %d columns", ErrLookup, len(columns))
	}
	kept := columns[droppedColumns:]
	index := slices.Index(kept, IndexColumn)
	if index < 0 {
		return Summary{}, fmt.Errorf("%w: summary table has no %s column", ErrLookup, IndexColumn)
	}

	valueColumns := make([]string, 0, len(kept)-1)
	valueColumns = append(valueColumns, kept[:index]...)
	valueColumns = append(valueColumns, kept[index+1:]...)

	summary := Summary{
		IndexColumn: IndexColumn,
		Columns:     valueColumns,
	}
	for _, p := range pages {
		for _, raw := range p.Rows {
			row := raw[droppedColumns:]
			values := make([]string, 0, len(row)-1)
			values = append(values, row[:index]...)
			values = append(values, row[index+1:]...)
			summary.Rows = append(summary.Rows, SummaryRow{
				ID:     row[index],
				Values: values,
			})
		}
	}

	return summary, nil
}
