package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var profileFlag, apiURLFlag, hlsURLFlag, userFlag string
	var verbose bool

	ctx := newCommandContext(&profileFlag, &apiURLFlag, &hlsURLFlag, &userFlag, &verbose)

	rootCmd := &cobra.Command{
		Use:           "mtxctl",
		Short:         "Operator console for a MediaMTX server",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_, err := ctx.ensureProfile()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&profileFlag, "profile", "p", "", "Profile file (TOML) with api_url, hls_url and username")
	rootCmd.PersistentFlags().StringVar(&apiURLFlag, "api-url", "", "MediaMTX API base URL (default http://localhost:9997)")
	rootCmd.PersistentFlags().StringVar(&hlsURLFlag, "hls-url", "", "MediaMTX HLS base URL (default http://localhost:8888)")
	rootCmd.PersistentFlags().StringVarP(&userFlag, "user", "u", "", "Operator user name")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log API activity to stderr")

	rootCmd.AddCommand(newLoginCommand(ctx))
	rootCmd.AddCommand(newPathsCommand(ctx))
	rootCmd.AddCommand(newWatchCommand(ctx))
	rootCmd.AddCommand(newPlaybackCommand(ctx))

	return rootCmd
}
