package commands

import (
	"fmt"
	"os"
	"strings"
	"usatt/internal/export"
	"usatt/internal/scrapers/usatt"

	"github.com/spf13/cobra"
)

var (
	summaryCriteria []string
	summaryFilters  []string
	summaryColumns  []string
	summaryOutfile  string
	summaryQuiet    bool
)

func init() {
	flags := summaryCmd.Flags()
	flags.StringArrayVarP(&summaryCriteria, "criteria", "c", nil, "Query criteria (repeatable), usually a name or a usatt id.")
	flags.StringArrayVarP(&summaryFilters, "filter", "f", nil, "Filter criteria (repeatable), ex. minAge=18.")
	flags.StringArrayVar(&summaryColumns, "columns", nil, "A column to fetch (repeatable), defaults to everything shown in usatt summaries.")
	flags.StringVarP(&summaryOutfile, "outfile", "o", "", "Output filename, if not specified it will be printed to stdout.")
	flags.BoolVarP(&summaryQuiet, "quiet", "q", false, "Do not show a progress bar.")
	rootCmd.AddCommand(summaryCmd)
}

func parseFilters(pairs []string) ([]usatt.FilterParam, error) {
	filters := make([]usatt.FilterParam, len(pairs))
	for i, pair := range pairs {
		f, err := usatt.ParseFilterParam(pair)
		if err != nil {
			return nil, err
		}
		filters[i] = f
	}
	return filters, nil
}

var summaryCmd = &cobra.Command{
	Use:   "summary [-c <criteria>...] [-f <key=value>...] [-o <file.csv>]",
	Short: "Get a summary of USATT ratings based on a search.",
	RunE: func(cmd *cobra.Command, args []string) error {
		filters, err := parseFilters(summaryFilters)
		if err != nil {
			return err
		}
		fallback := export.FormatMarkdown
		if summaryOutfile != "" {
			fallback = export.FormatCSV
		}
		outFormat, err := outputFormat(cmd, fallback)
		if err != nil {
			return err
		}

		e, err := newEnv(cmd.Context(), cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		defer e.Close()

		req := usatt.SummaryRequest{
			Query:          strings.Join(append(append([]string{}, summaryCriteria...), args...), " "),
			Filter:         filters,
			DisplayColumns: summaryColumns,
		}

		var bar *pageProgress
		if !summaryQuiet {
			bar = newPageProgress(cmd.ErrOrStderr())
			req.OnPage = bar.OnPage
		}
		summary, err := e.client.GetSummary(cmd.Context(), req)
		if bar != nil {
			bar.Stop(err)
		}
		if err != nil {
			return err
		}

		duplicates := summary.DuplicateIDs()
		if len(duplicates) > 0 {
			e.tel.ReportWarning("summary.duplicate-ids", len(duplicates), duplicates)
		}

		if e.store != nil {
			snapshot, err := e.store.SaveSummary(cmd.Context(), e.time.Now(), summary)
			if err != nil {
				return err
			}
			e.tel.ReportInfo("saved summary", snapshot)
		}

		if summaryOutfile == "" {
			return export.WriteSummary(cmd.OutOrStdout(), outFormat, summary)
		}

		f, err := os.Create(summaryOutfile)
		if err != nil {
			return err
		}
		err = export.WriteSummary(f, outFormat, summary)
		if err != nil {
			f.Close()
			return err
		}
		err = f.Close()
		if err != nil {
			return err
		}
		e.tel.ReportInfo(fmt.Sprintf("wrote %d rows to %s", len(summary.Rows), summaryOutfile))
		return nil
	},
}
