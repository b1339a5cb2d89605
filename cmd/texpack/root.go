package main

import (
	"fmt"
	"log/slog"

	"github.com/gogpu/texpack"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	var verbose bool
	root := &cobra.Command{
		Use:           "texpack",
		Short:         "Pack image channels into one texture",
		Version:       texpack.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			level := slog.LevelWarn
			if verbose {
				level = slog.LevelDebug
			}
			texpack.SetLogger(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log pass scheduling and export")
	root.AddCommand(newPackCmd(), newFormatsCmd())
	return root
}

func newFormatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "formats",
		Short: "List output pixel formats",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := cmd.OutOrStdout()
			for _, f := range texpack.Formats() {
				kind := "8-bit"
				switch {
				case f.IsHalf():
					kind = "half"
				case f.IsFloat():
					kind = "float"
				}
				if _, err := fmt.Fprintf(w, "%-10s %d channel(s)  %-5s  .%s\n", f, f.ChannelCount(), kind, f.Extension()); err != nil {
					return err
				}
			}
			return nil
		},
	}
}
