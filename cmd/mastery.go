package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/openta/adaptive/internal/engine"
	"github.com/openta/adaptive/internal/ui/components"
	"github.com/openta/adaptive/internal/ui/theme"
)

var masteryCmd = &cobra.Command{
	Use:   "mastery <student>",
	Short: "Show a student's per-topic mastery",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(cmd, func(eng *engine.Engine) error {
			ctx := cmd.Context()
			records, err := eng.MasterySnapshot(ctx, args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(records) == 0 {
				fmt.Fprintf(out, "No attempts recorded for %s.\n", args[0])
				return nil
			}

			fmt.Fprintln(out, theme.Title.Render("Mastery: "+args[0]))
			fmt.Fprintf(out, "%-20s  %-26s  %5s  %8s  %-8s  %s\n",
				"Topic", "Score", "Conf", "Attempts", "Status", "Next review")
			fmt.Fprintln(out, strings.Repeat("─", 90))

			th := eng.Thresholds()
			for _, r := range records {
				name := eng.Bank().TopicName(r.TopicID)
				if len(name) > 20 {
					name = name[:17] + "..."
				}
				status := string(r.Classify(th))
				fmt.Fprintf(out, "%-20s  %s  %5.2f  %8d  %s  %s\n",
					name,
					components.NewScoreBar(r.Score, 20, true).View(),
					r.Confidence,
					r.Attempts,
					theme.Status(status)+strings.Repeat(" ", max(0, 8-len(status))),
					r.NextReviewAt.Local().Format("2006-01-02"),
				)
			}

			sum, err := eng.MasterySummary(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "\nOverall progress: %s\n", components.NewScoreBar(sum.OverallProgress, 30, true).View())
			if len(sum.Weak) > 0 {
				fmt.Fprintln(out, theme.Weak.Render("Weak: ")+strings.Join(sum.Weak, ", "))
			}
			if len(sum.Strong) > 0 {
				fmt.Fprintln(out, theme.Strong.Render("Strong: ")+strings.Join(sum.Strong, ", "))
			}
			return nil
		})
	},
}
