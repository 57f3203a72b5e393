package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/openta/adaptive/internal/engine"
	"github.com/openta/adaptive/internal/ui/theme"
)

var reviewsCmd = &cobra.Command{
	Use:   "reviews <student>",
	Short: "Show due and upcoming spaced-repetition reviews",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		days, _ := cmd.Flags().GetInt("days")

		return withEngine(cmd, func(eng *engine.Engine) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			now := time.Now()

			due, err := eng.DueReviews(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(out, theme.Title.Render("Due now"))
			if len(due) == 0 {
				fmt.Fprintln(out, "  nothing due")
			}
			for _, s := range due {
				fmt.Fprintf(out, "  %-22s  %-8s  %4.1f days overdue  (rep %d, interval %dd)\n",
					s.ItemID, theme.Status(string(s.Status(now))), s.OverdueDays(now),
					s.RepetitionCount, s.IntervalDays)
			}

			buckets, err := eng.UpcomingReviews(ctx, args[0], days)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, theme.Title.Render(fmt.Sprintf("\nNext %d days", days)))
			if len(buckets) == 0 {
				fmt.Fprintln(out, "  no reviews scheduled")
			}
			for _, b := range buckets {
				fmt.Fprintf(out, "  %s  %s\n", b.Date, strings.Join(b.ItemIDs, ", "))
			}
			return nil
		})
	},
}

func init() {
	reviewsCmd.Flags().Int("days", 7, "Number of days to look ahead")
}
