package commands

import (
	"fmt"
	"usatt/internal/export"

	"github.com/spf13/cobra"
)

var ratingIds []string

func init() {
	ratingsCmd.Flags().StringArrayVarP(&ratingIds, "ids", "i", nil, "USATT ids to look for.")
	rootCmd.AddCommand(ratingsCmd)
}

var ratingsCmd = &cobra.Command{
	Use:   "ratings -i <usatt#> [<usatt#>...]",
	Short: "Get the USATT ratings of the given players.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ids := append(append([]string{}, ratingIds...), args...)
		if len(ids) == 0 {
			return fmt.Errorf("at least one usatt id is required")
		}
		outFormat, err := outputFormat(cmd, export.FormatMarkdown)
		if err != nil {
			return err
		}

		e, err := newEnv(cmd.Context(), cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		defer e.Close()

		ratings, err := e.client.GetRatings(cmd.Context(), ids)
		if err != nil {
			return err
		}

		if e.store != nil {
			err = e.store.SaveRatings(cmd.Context(), e.time.Now(), ratings)
			if err != nil {
				return err
			}
		}

		return export.WriteRatings(cmd.OutOrStdout(), outFormat, ratings)
	},
}
