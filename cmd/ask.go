package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a question against the seeded documentation",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	b, _, err := loadBackend(cmd)
	if err != nil {
		return err
	}
	defer b.Close() //nolint:errcheck

	question := strings.TrimSpace(strings.Join(args, " "))
	if question == "" {
		return fmt.Errorf("question must not be empty")
	}

	answer, err := b.Ask(cmd.Context(), question)
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), answer.Text)

	if len(answer.Sources) > 0 {
		fmt.Fprintln(cmd.OutOrStdout())
		fmt.Fprintln(cmd.OutOrStdout(), "Sources:")
		for _, src := range answer.Sources {
			fmt.Fprintf(cmd.OutOrStdout(), "  - %s\n", src)
		}
	}
	return nil
}
