package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/openta/adaptive/internal/engine"
	"github.com/openta/adaptive/internal/runway"
	"github.com/openta/adaptive/internal/ui/theme"
)

var runwayCmd = &cobra.Command{
	Use:   "runway <student> <exam-id>",
	Short: "Generate (or show with --show) an exam runway study plan",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		show, _ := cmd.Flags().GetBool("show")
		dateVal, _ := cmd.Flags().GetString("date")
		hours, _ := cmd.Flags().GetFloat64("hours")

		return withEngine(cmd, func(eng *engine.Engine) error {
			ctx := cmd.Context()
			var (
				plan *runway.Plan
				err  error
			)
			if show {
				plan, err = eng.ExamPlan(ctx, args[0], args[1])
			} else {
				var examDate time.Time
				examDate, err = parseExamDate(dateVal)
				if err != nil {
					return err
				}
				plan, err = eng.ExamRunway(ctx, runway.Request{
					StudentID:   args[0],
					ExamID:      args[1],
					ExamDate:    examDate,
					HoursPerDay: hours,
				})
			}
			if err != nil {
				return err
			}
			printPlan(cmd, eng, plan)
			return nil
		})
	},
}

func init() {
	runwayCmd.Flags().String("date", "", "Exam date (YYYY-MM-DD or RFC 3339)")
	runwayCmd.Flags().Float64("hours", 2, "Study hours per day")
	runwayCmd.Flags().Bool("show", false, "Show the stored plan instead of generating one")
}

// parseExamDate accepts a calendar date (local midnight) or an RFC 3339 time.
func parseExamDate(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, fmt.Errorf("--date is required")
	}
	if t, err := time.ParseInLocation("2006-01-02", v, time.Local); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --date %q: use YYYY-MM-DD or RFC 3339", v)
	}
	return t, nil
}

func printPlan(cmd *cobra.Command, eng *engine.Engine, p *runway.Plan) {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, theme.Title.Render(fmt.Sprintf("%s: %d day%s to go, %.1fh/day",
		p.ExamID, p.DaysUntilExam, plural(p.DaysUntilExam), p.HoursPerDay)))
	if len(p.PriorityTopics) > 0 {
		fmt.Fprintln(out, theme.Subtitle.Render("Priority: "+strings.Join(p.PriorityTopics, ", ")))
	}

	for _, d := range p.Days {
		fmt.Fprintf(out, "\nDay %d  %s  %s\n", d.DayNumber, d.Date.Format("Mon 2006-01-02"), theme.Status(string(d.Intensity)))
		for _, b := range d.TimeBlocks {
			focus := ""
			if b.Focus != "" {
				focus = eng.Bank().TopicName(b.Focus)
			}
			fmt.Fprintf(out, "  %5.2fh  %-14s %s\n", b.DurationHours, b.Label, focus)
		}
		if d.GapCheckItems > 0 {
			fmt.Fprintln(out, theme.Hint.Render(fmt.Sprintf("  gap check: %d questions", d.GapCheckItems)))
		}
		if d.OverflowHours > 0 {
			fmt.Fprintln(out, theme.Warning.Render(fmt.Sprintf("  over budget by %.2fh", d.OverflowHours)))
		}
	}
	if p.Overflow {
		fmt.Fprintln(out, theme.Warning.Render("\nThe plan needs more hours per day than you set. Consider studying longer."))
	}
}
