package cmd

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/openta/adaptive/internal/engine"
	"github.com/openta/adaptive/internal/quiz"
	"github.com/openta/adaptive/internal/ui/theme"
)

var quizCmd = &cobra.Command{
	Use:   "quiz <student>",
	Short: "Build today's quiz for a student",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		count, _ := cmd.Flags().GetInt("count")
		asJSON, _ := cmd.Flags().GetBool("json")

		return withEngine(cmd, func(eng *engine.Engine) error {
			q, err := eng.DailyQuiz(cmd.Context(), args[0], count)
			if err != nil {
				return err
			}
			return printQuiz(cmd, eng, fmt.Sprintf("Daily quiz for %s (%s)", q.StudentID, q.Date), q, asJSON)
		})
	},
}

var gapCheckCmd = &cobra.Command{
	Use:   "gapcheck <student> <exam-id> <day>",
	Short: "Serve the gap-check questions of a day of the stored exam plan",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		day, err := strconv.Atoi(args[2])
		if err != nil {
			return fmt.Errorf("invalid day %q: %w", args[2], err)
		}
		asJSON, _ := cmd.Flags().GetBool("json")

		return withEngine(cmd, func(eng *engine.Engine) error {
			q, err := eng.GapCheck(cmd.Context(), args[0], args[1], day)
			if err != nil {
				return err
			}
			return printQuiz(cmd, eng, fmt.Sprintf("Day %d gap check for %s (%s)", day, args[1], q.StudentID), q, asJSON)
		})
	},
}

func printQuiz(cmd *cobra.Command, eng *engine.Engine, title string, q *quiz.Quiz, asJSON bool) error {
	out := cmd.OutOrStdout()
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(q)
	}

	fmt.Fprintln(out, theme.Title.Render(title))
	if len(q.Items) == 0 {
		fmt.Fprintln(out, "Nothing to ask today.")
		return nil
	}
	for i, slot := range q.Items {
		it := slot.Item
		fmt.Fprintf(out, "\n%d. [%s] %s  %s\n", i+1, it.ID,
			theme.Subtitle.Render(eng.Bank().TopicName(it.TopicID)),
			theme.Hint.Render(string(slot.Category)))
		fmt.Fprintf(out, "   %s\n", it.Prompt)
		for j, opt := range it.Options {
			fmt.Fprintf(out, "     %d) %s\n", j, opt)
		}
	}
	if q.Short {
		fmt.Fprintln(out, theme.Warning.Render(
			fmt.Sprintf("\nOnly %d of %d requested questions were available.", len(q.Items), q.Requested)))
	}
	return nil
}

func init() {
	quizCmd.Flags().Int("count", 0, "Number of questions (default from config)")
	quizCmd.Flags().Bool("json", false, "Print the quiz as JSON")
	gapCheckCmd.Flags().Bool("json", false, "Print the questions as JSON")
}
