package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newLoginCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Check credentials against the MediaMTX API",
		Long: `Validate the operator credentials and print the current summary.

Nothing is saved: every command authenticates on its own, reading the
password from MTX_PASSWORD or prompting for it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			con, err := ctx.session(cmd)
			if err != nil {
				return err
			}
			defer con.Logout()

			d, err := con.Dashboard()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in to %s as %s\n", ctx.apiURL(), d.Principal)
			fmt.Fprintln(cmd.OutOrStdout(), summaryLine(d))
			return nil
		},
	}
}
