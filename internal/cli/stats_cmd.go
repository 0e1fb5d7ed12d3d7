package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"rolplay-assistant-be/pkg/response"
)

func newStatsCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print the dataset's general statistics",
		RunE: func(cmd *cobra.Command, _ []string) error {
			env := app.Stats.GeneralStats()
			if env.Failed() {
				errorColor.Fprintln(cmd.ErrOrStderr(), env.Error)
				return errors.New(env.Error)
			}
			fmt.Fprintln(cmd.OutOrStdout(), response.Plain(env))
			return nil
		},
	}
}
