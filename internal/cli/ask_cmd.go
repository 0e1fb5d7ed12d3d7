package cli

import (
	"strings"

	"github.com/spf13/cobra"
)

func newAskCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   `ask "<consulta>"`,
		Short: "Answer a single question and exit",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			printAnswer(cmd.OutOrStdout(), app.Assistant.HandleTurn(cmd.Context(), app.SessionID, query))
			return nil
		},
	}
}
