package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/openta/adaptive/internal/engine"
	"github.com/openta/adaptive/internal/ui/theme"
)

var notificationsCmd = &cobra.Command{
	Use:   "notifications",
	Short: "List and acknowledge student notifications",
}

var notificationsListCmd = &cobra.Command{
	Use:   "list <student>",
	Short: "List notifications, newest first",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		unread, _ := cmd.Flags().GetBool("unread")

		return withEngine(cmd, func(eng *engine.Engine) error {
			ns, err := eng.Notifications(cmd.Context(), args[0], unread)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(ns) == 0 {
				fmt.Fprintln(out, "No notifications.")
				return nil
			}

			fmt.Fprintf(out, "%-36s  %-19s  %-12s  %s\n", "ID", "Created", "Type", "Message")
			fmt.Fprintln(out, strings.Repeat("─", 110))
			for _, n := range ns {
				msg := n.Message
				if !n.Read {
					msg = theme.Body.Bold(true).Render(msg)
				} else {
					msg = theme.Subtitle.Render(msg)
				}
				fmt.Fprintf(out, "%-36s  %-19s  %-12s  %s\n",
					n.ID, n.CreatedAt.Local().Format("2006-01-02 15:04:05"), n.Type, msg)
			}
			return nil
		})
	},
}

var notificationsAckCmd = &cobra.Command{
	Use:   "ack <student> <id>...",
	Short: "Mark notifications read",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(cmd, func(eng *engine.Engine) error {
			for _, id := range args[1:] {
				if err := eng.AckNotification(cmd.Context(), args[0], id); err != nil {
					return err
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Marked %d notification%s read.\n", len(args)-1, plural(len(args)-1))
			return nil
		})
	},
}

func init() {
	notificationsListCmd.Flags().Bool("unread", false, "Only unread notifications")

	notificationsCmd.AddCommand(notificationsListCmd)
	notificationsCmd.AddCommand(notificationsAckCmd)
}
