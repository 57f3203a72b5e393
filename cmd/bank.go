package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/openta/adaptive/internal/bank"
)

var bankCmd = &cobra.Command{
	Use:   "bank",
	Short: "Browse and validate question banks",
}

var bankListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the items of the active bank (optionally filtered by topic)",
	RunE: func(cmd *cobra.Command, args []string) error {
		topic, _ := cmd.Flags().GetString("topic")

		b, err := loadBank(cmd)
		if err != nil {
			return err
		}

		var items []bank.Item
		if topic != "" {
			if _, ok := b.Topic(topic); !ok {
				return fmt.Errorf("no topic %q in bank", topic)
			}
			items = b.ItemsByTopic(topic)
		} else {
			items = b.Items()
		}

		out := cmd.OutOrStdout()
		// Header.
		fmt.Fprintf(out, "%-22s  %-20s  %4s  %s\n", "ID", "Topic", "Diff", "Prompt")
		fmt.Fprintln(out, strings.Repeat("─", 100))

		for _, it := range items {
			prompt := it.Prompt
			if len(prompt) > 48 {
				prompt = prompt[:45] + "..."
			}
			fmt.Fprintf(out, "%-22s  %-20s  %4.2f  %s\n", it.ID, b.TopicName(it.TopicID), it.Difficulty, prompt)
		}

		fmt.Fprintf(out, "\n%d items, %d topics\n", len(items), len(b.Topics()))
		return nil
	},
}

var bankValidateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Validate a question bank file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		b, err := bank.LoadFile(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: OK (%d topics, %d items)\n", args[0], len(b.Topics()), b.Len())
		return nil
	},
}

func init() {
	bankListCmd.Flags().String("topic", "", "Only items of this topic ID")

	bankCmd.AddCommand(bankListCmd)
	bankCmd.AddCommand(bankValidateCmd)
}
