package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"rolplay-assistant-be/pkg/events"
)

func newEventsCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "events",
		Short: "Tail turn events from NATS",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if app.TailEvents == nil {
				return errors.New("NATS_URL is not set")
			}
			out := cmd.OutOrStdout()
			return app.TailEvents(cmd.Context(), func(_ context.Context, e events.Event) error {
				p := e.Payload()
				fmt.Fprintf(out, "%s  %-28v session=%v fallback=%v failed=%v %vms\n",
					e.Timestamp().Format(time.RFC3339), p["query_type"], p["session_id"],
					p["fallback"], p["failed"], p["duration_ms"])
				return nil
			})
		},
	}
}
