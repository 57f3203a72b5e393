package cmd

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/openta/adaptive/internal/engine"
	"github.com/openta/adaptive/internal/mastery"
	"github.com/openta/adaptive/internal/store"
	"github.com/openta/adaptive/internal/ui/components"
	"github.com/openta/adaptive/internal/ui/theme"
)

var attemptCmd = &cobra.Command{
	Use:   "attempt <student> <item> <option>",
	Short: "Submit a quiz answer (option is the 0-based choice index)",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		option, err := strconv.Atoi(args[2])
		if err != nil {
			return fmt.Errorf("invalid option %q: %w", args[2], err)
		}
		seconds, _ := cmd.Flags().GetFloat64("response-time")
		at, err := parseTimeFlag(cmd, "at")
		if err != nil {
			return err
		}

		return withEngine(cmd, func(eng *engine.Engine) error {
			res, err := eng.SubmitAttempt(cmd.Context(), mastery.Attempt{
				StudentID:           args[0],
				ItemID:              args[1],
				SelectedIndex:       option,
				ResponseTimeSeconds: seconds,
				Timestamp:           at,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if res.Attempt.Correct {
				fmt.Fprintln(out, theme.Strong.Render("Correct"))
			} else {
				fmt.Fprintln(out, theme.Weak.Render("Incorrect"))
			}
			topic := eng.Bank().TopicName(res.Record.TopicID)
			fmt.Fprintf(out, "%-12s %s\n", topic, components.NewScoreBar(res.Record.Score, 20, true).View())
			fmt.Fprintf(out, "Confidence:  %.2f (%d attempts, streak %d)\n",
				res.Record.Confidence, res.Record.Attempts, res.Record.Streak)
			fmt.Fprintf(out, "Next review: %s (in %d day%s)\n",
				res.Schedule.DueAt.Local().Format("2006-01-02 15:04"),
				res.Schedule.IntervalDays, plural(res.Schedule.IntervalDays))
			if res.Refresher != nil {
				fmt.Fprintln(out, theme.Warning.Render(res.Refresher.Message))
			}
			return nil
		})
	},
}

var attemptsCmd = &cobra.Command{
	Use:   "attempts <student>",
	Short: "List a student's recorded attempts",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		since, err := parseTimeFlag(cmd, "since")
		if err != nil {
			return err
		}

		return withEngine(cmd, func(eng *engine.Engine) error {
			attempts, err := eng.Attempts(cmd.Context(), args[0], store.QueryOpts{Limit: limit, From: since})
			if err != nil {
				return fmt.Errorf("query attempts: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(attempts) == 0 {
				fmt.Fprintln(out, "No attempts found.")
				return nil
			}

			// Header.
			fmt.Fprintf(out, "%-19s  %-22s  %-16s  %6s  %7s  %s\n",
				"Timestamp", "Item", "Topic", "Option", "Seconds", "OK")
			fmt.Fprintln(out, strings.Repeat("─", 86))

			for _, a := range attempts {
				ok := "✓"
				if !a.Correct {
					ok = "✗"
				}
				topic := ""
				if it, found := eng.Bank().Item(a.ItemID); found {
					topic = it.TopicID
				}
				fmt.Fprintf(out, "%-19s  %-22s  %-16s  %6d  %7.1f  %s\n",
					a.Timestamp.Local().Format("2006-01-02 15:04:05"),
					a.ItemID, topic, a.SelectedIndex, a.ResponseTimeSeconds, ok)
			}
			return nil
		})
	},
}

func init() {
	attemptCmd.Flags().Float64("response-time", 0, "Seconds the student took to answer")
	attemptCmd.Flags().String("at", "", "Attempt time (RFC 3339, default now)")

	attemptsCmd.Flags().Int("limit", 50, "Maximum number of attempts to show")
	attemptsCmd.Flags().String("since", "", "Only attempts at or after this time (RFC 3339)")
}

// parseTimeFlag parses an optional RFC 3339 flag. Empty yields the zero time.
func parseTimeFlag(cmd *cobra.Command, name string) (time.Time, error) {
	v, _ := cmd.Flags().GetString(name)
	if v == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --%s %q: %w", name, v, err)
	}
	return t, nil
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
