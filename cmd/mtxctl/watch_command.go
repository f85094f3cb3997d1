package main

import (
	"fmt"
	"io"
	"time"

	"mtx-console/internal/console"

	"github.com/spf13/cobra"
)

func newWatchCommand(ctx *commandContext) *cobra.Command {
	var once bool
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow the dashboard and playback changes until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			con, err := ctx.session(cmd)
			if err != nil {
				return err
			}
			defer con.Logout()

			out := cmd.OutOrStdout()
			tracker := con.NewPlaybackTracker()
			updates, cancel := con.Subscribe()
			defer cancel()

			d, err := con.Dashboard()
			if err != nil {
				return err
			}
			printWatchFrame(out, d, tracker)
			if once {
				return nil
			}

			runCtx := commandCtx(cmd)
			for {
				select {
				case <-runCtx.Done():
					return nil
				case snap := <-updates:
					printWatchFrame(out, con.DashboardFor(snap), tracker)
				}
			}
		},
	}
	cmd.Flags().BoolVar(&once, "once", false, "Print the current state and exit")
	return cmd
}

func printWatchFrame(out io.Writer, d console.Dashboard, tracker *console.PlaybackTracker) {
	fmt.Fprintf(out, "-- %s --\n", d.FetchedAt.Local().Format(time.TimeOnly))
	fmt.Fprintln(out, renderDashboard(d))
	for _, ev := range tracker.Sync(snapshotOf(d)) {
		fmt.Fprintf(out, "%s %s %s\n", ev.Action, ev.Name, ev.URL)
	}
}

// snapshotOf rebuilds the parts of a snapshot the tracker reads.
func snapshotOf(d console.Dashboard) console.Snapshot {
	return console.Snapshot{Paths: d.Paths, Summary: d.Summary, FetchedAt: d.FetchedAt, Stale: d.Stale}
}
