package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newPlaybackCommand(ctx *commandContext) *cobra.Command {
	var probe bool
	cmd := &cobra.Command{
		Use:   "playback NAME",
		Short: "Print the HLS URL of a path and whether it is live",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			con, err := ctx.session(cmd)
			if err != nil {
				return err
			}
			defer con.Logout()

			pb, err := con.Playback(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			state := "offline"
			if pb.Live {
				state = "live"
			}
			fmt.Fprintf(out, "%s (%s)\n", pb.URL, state)
			if !probe {
				return nil
			}
			if !pb.Live {
				return fmt.Errorf("%s is not live; nothing to probe", pb.Name)
			}

			info, err := con.ProbePlayback(commandCtx(cmd), args[0])
			if err != nil {
				return err
			}
			switch {
			case info.Variants > 0:
				fmt.Fprintf(out, "multivariant playlist, %d variants\n", info.Variants)
			default:
				fmt.Fprintf(out, "media playlist, %d segments, %.1fs, target %ds, sequence %d\n",
					info.Segments, info.TotalDuration, info.TargetDuration, info.MediaSequence)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&probe, "probe", false, "Fetch the playlist and report what it contains")
	return cmd
}
