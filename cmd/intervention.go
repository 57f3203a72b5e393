package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/openta/adaptive/internal/engine"
	"github.com/openta/adaptive/internal/intervention"
	"github.com/openta/adaptive/internal/ui/theme"
)

var interventionCmd = &cobra.Command{
	Use:   "intervention",
	Short: "Inspect and resolve intervention events",
}

var interventionListCmd = &cobra.Command{
	Use:   "list <student>",
	Short: "List a student's intervention events",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		open, _ := cmd.Flags().GetBool("open")

		return withEngine(cmd, func(eng *engine.Engine) error {
			events, err := eng.Interventions(cmd.Context(), args[0], open)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(events) == 0 {
				fmt.Fprintln(out, "No interventions found.")
				return nil
			}

			fmt.Fprintf(out, "%-36s  %-19s  %-10s  %-14s  %s\n",
				"ID", "Timestamp", "Session", "Status", "Reason")
			fmt.Fprintln(out, strings.Repeat("─", 110))
			for _, ev := range events {
				fmt.Fprintf(out, "%-36s  %-19s  %-10s  %-14s  %s\n",
					ev.ID,
					ev.Timestamp.Local().Format("2006-01-02 15:04:05"),
					ev.SessionID,
					eventStatus(ev),
					ev.Reason,
				)
			}
			return nil
		})
	},
}

var interventionResolveCmd = &cobra.Command{
	Use:   "resolve <student> <event-id>",
	Short: "Record the student's answer to an intervention (--accept or --decline)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		accept, _ := cmd.Flags().GetBool("accept")
		decline, _ := cmd.Flags().GetBool("decline")
		if accept == decline {
			return fmt.Errorf("use exactly one of --accept or --decline")
		}

		return withEngine(cmd, func(eng *engine.Engine) error {
			ev, err := eng.ResolveIntervention(cmd.Context(), args[0], args[1], accept)
			if err != nil {
				return err
			}
			printEvent(cmd, ev)
			return nil
		})
	},
}

func init() {
	interventionListCmd.Flags().Bool("open", false, "Only unresolved events")
	interventionResolveCmd.Flags().Bool("accept", false, "The student accepted the suggested action")
	interventionResolveCmd.Flags().Bool("decline", false, "The student declined the suggested action")

	interventionCmd.AddCommand(interventionListCmd)
	interventionCmd.AddCommand(interventionResolveCmd)
}

func eventStatus(ev *intervention.Event) string {
	switch {
	case !ev.Resolved:
		return "open"
	case ev.Accepted:
		return "accepted"
	default:
		return "declined"
	}
}

func printEvent(cmd *cobra.Command, ev *intervention.Event) {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, theme.Warning.Render("Intervention "+ev.ID))
	fmt.Fprintf(out, "Student:   %s (session %s)\n", ev.StudentID, ev.SessionID)
	if ev.Topic != "" {
		fmt.Fprintf(out, "Topic:     %s\n", ev.Topic)
	}
	fmt.Fprintf(out, "Reason:    %s\n", ev.Reason)
	fmt.Fprintf(out, "Suggested: %s\n", ev.SuggestedAction)
	fmt.Fprintf(out, "Status:    %s\n", eventStatus(ev))
}
