package main

import (
	"encoding/json"
	"fmt"

	"mtx-console/internal/mediamtx"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

func newPathsCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "paths",
		Short: "List and manage path configurations",
	}
	cmd.AddCommand(newPathsListCommand(ctx))
	cmd.AddCommand(newPathsAddCommand(ctx))
	cmd.AddCommand(newPathsPatchCommand(ctx))
	cmd.AddCommand(newPathsDeleteCommand(ctx))
	return cmd
}

func newPathsListCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "Show every configured path with its live state",
		Args:    cobra.NoArgs,
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
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(d)
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderDashboard(d))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the dashboard as JSON")
	return cmd
}

// configFlags binds the editable PathConfig fields. Only flags the operator
// actually set end up in a request.
type configFlags struct {
	source                string
	sourceFingerprint     string
	sourceOnDemand        bool
	onDemandStartTimeout  string
	onDemandCloseAfter    string
	maxReaders            int
	record                bool
	recordPath            string
	recordFormat          string
	recordPartDuration    string
	recordSegmentDuration string
	recordDeleteAfter     string
	overridePublisher     bool
}

func (f *configFlags) bind(fs *pflag.FlagSet) {
	fs.StringVar(&f.source, "source", "", `Source URL, or "publisher"`)
	fs.StringVar(&f.sourceFingerprint, "source-fingerprint", "", "TLS fingerprint of the source")
	fs.BoolVar(&f.sourceOnDemand, "on-demand", false, "Pull the source only while readers are connected")
	fs.StringVar(&f.onDemandStartTimeout, "on-demand-start-timeout", "", "On-demand start timeout (e.g. 10s)")
	fs.StringVar(&f.onDemandCloseAfter, "on-demand-close-after", "", "On-demand close delay (e.g. 10s)")
	fs.IntVar(&f.maxReaders, "max-readers", 0, "Maximum readers (0 = unlimited)")
	fs.BoolVar(&f.record, "record", false, "Record the stream")
	fs.StringVar(&f.recordPath, "record-path", "", "Recording path template")
	fs.StringVar(&f.recordFormat, "record-format", "", "Recording format (fmp4, mpegts)")
	fs.StringVar(&f.recordPartDuration, "record-part-duration", "", "Recording part duration")
	fs.StringVar(&f.recordSegmentDuration, "record-segment-duration", "", "Recording segment duration")
	fs.StringVar(&f.recordDeleteAfter, "record-delete-after", "", "Delete recordings older than this")
	fs.BoolVar(&f.overridePublisher, "override-publisher", false, "Allow a new publisher to replace the current one")
}

func (f *configFlags) config(name string, fs *pflag.FlagSet) mediamtx.PathConfig {
	cfg := mediamtx.PathConfig{
		Name:                       name,
		Source:                     f.source,
		SourceFingerprint:          f.sourceFingerprint,
		SourceOnDemandStartTimeout: f.onDemandStartTimeout,
		SourceOnDemandCloseAfter:   f.onDemandCloseAfter,
		MaxReaders:                 f.maxReaders,
		RecordPath:                 f.recordPath,
		RecordFormat:               f.recordFormat,
		RecordPartDuration:         f.recordPartDuration,
		RecordSegmentDuration:      f.recordSegmentDuration,
		RecordDeleteAfter:          f.recordDeleteAfter,
	}
	if fs.Changed("on-demand") {
		cfg.SourceOnDemand = mediamtx.Bool(f.sourceOnDemand)
	}
	if fs.Changed("record") {
		cfg.Record = mediamtx.Bool(f.record)
	}
	if fs.Changed("override-publisher") {
		cfg.OverridePublisher = mediamtx.Bool(f.overridePublisher)
	}
	return cfg
}

func (f *configFlags) patch(fs *pflag.FlagSet) mediamtx.PathConfigPatch {
	var p mediamtx.PathConfigPatch
	str := func(flag, v string) *string {
		if fs.Changed(flag) {
			return mediamtx.String(v)
		}
		return nil
	}
	p.Source = str("source", f.source)
	p.SourceFingerprint = str("source-fingerprint", f.sourceFingerprint)
	p.SourceOnDemandStartTimeout = str("on-demand-start-timeout", f.onDemandStartTimeout)
	p.SourceOnDemandCloseAfter = str("on-demand-close-after", f.onDemandCloseAfter)
	p.RecordPath = str("record-path", f.recordPath)
	p.RecordFormat = str("record-format", f.recordFormat)
	p.RecordPartDuration = str("record-part-duration", f.recordPartDuration)
	p.RecordSegmentDuration = str("record-segment-duration", f.recordSegmentDuration)
	p.RecordDeleteAfter = str("record-delete-after", f.recordDeleteAfter)
	if fs.Changed("on-demand") {
		p.SourceOnDemand = mediamtx.Bool(f.sourceOnDemand)
	}
	if fs.Changed("max-readers") {
		p.MaxReaders = mediamtx.Int(f.maxReaders)
	}
	if fs.Changed("record") {
		p.Record = mediamtx.Bool(f.record)
	}
	if fs.Changed("override-publisher") {
		p.OverridePublisher = mediamtx.Bool(f.overridePublisher)
	}
	return p
}

func newPathsAddCommand(ctx *commandContext) *cobra.Command {
	var flags configFlags
	cmd := &cobra.Command{
		Use:   "add NAME --source URL",
		Short: "Create a path configuration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := flags.config(args[0], cmd.Flags())
			if err := mediamtx.ValidateCreate(cfg); err != nil {
				return err
			}
			con, err := ctx.session(cmd)
			if err != nil {
				return err
			}
			defer con.Logout()

			if err := con.CreatePath(commandCtx(cmd), cfg); err != nil {
				return describe(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", cfg.Name)
			return nil
		},
	}
	flags.bind(cmd.Flags())
	return cmd
}

func newPathsPatchCommand(ctx *commandContext) *cobra.Command {
	var flags configFlags
	cmd := &cobra.Command{
		Use:   "patch NAME [flags]",
		Short: "Change fields of a path configuration; unset flags are left as they are",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			patch := flags.patch(cmd.Flags())
			if patch.Empty() {
				return fmt.Errorf("nothing to change: pass at least one field flag")
			}
			con, err := ctx.session(cmd)
			if err != nil {
				return err
			}
			defer con.Logout()

			if err := con.UpdatePath(commandCtx(cmd), args[0], patch); err != nil {
				return describe(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated %s\n", args[0])
			return nil
		},
	}
	flags.bind(cmd.Flags())
	return cmd
}

func newPathsDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:     "delete NAME",
		Aliases: []string{"rm"},
		Short:   "Delete a path configuration",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			con, err := ctx.session(cmd)
			if err != nil {
				return err
			}
			defer con.Logout()

			if err := con.DeletePath(commandCtx(cmd), args[0]); err != nil {
				return describe(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
			return nil
		},
	}
}
