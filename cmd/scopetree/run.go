package main

import (
	"context"
	"fmt"
	"io"

	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	scoped "github.com/pumped-fn/scoped-go"
	"github.com/pumped-fn/scoped-go/extensions"
	"github.com/pumped-fn/scoped-go/internal/logging"
	"github.com/pumped-fn/scoped-go/internal/treespec"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [file]",
		Short: "Run a tree document",
		Long:  `Parses the YAML tree document, walks it and prints every resolution as path, channel and value.`,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("file")
			if !cmd.Flags().Changed("file") && len(args) > 0 {
				path = args[0]
			}
			if path == "" {
				return fmt.Errorf("no tree document given: pass --file or a path argument")
			}

			doc, err := treespec.Load(path)
			if err != nil {
				return err
			}
			return runDocument(cmd, path, doc)
		},
	}
	cmd.Flags().StringP("file", "f", "", "Path to the YAML tree document")
	return cmd
}

func newDemoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "demo",
		Short: "Run the built-in family tree",
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := treespec.Parse(treespec.FamilyTree)
			if err != nil {
				return err
			}
			return runDocument(cmd, "demo", doc)
		},
	}
}

func runDocument(cmd *cobra.Command, source string, doc *treespec.Document) error {
	levelFlag, _ := cmd.Flags().GetString("log-level")
	level, err := logging.ParseLevel(levelFlag)
	if err != nil {
		return err
	}
	draw, _ := cmd.Flags().GetBool("draw")

	logger := logging.NewWithWriter(cmd.ErrOrStderr(), level)
	reg := scoped.NewRegistry(
		scoped.WithExtension(extensions.NewLoggingExtension(logger)),
		scoped.WithRegistryTag(treespec.SourceTag, source),
	)
	defer reg.Dispose()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	resolutions, err := treespec.NewRunner(reg, treespec.WithLogger(logger)).Run(ctx, doc)
	printResolutions(cmd.OutOrStdout(), resolutions)
	if err != nil {
		return err
	}

	if draw {
		fmt.Fprintln(cmd.OutOrStdout())
		fmt.Fprint(cmd.OutOrStdout(), extensions.DrawTrace(reg.Trace()))
	}
	return nil
}

func printResolutions(w io.Writer, resolutions []treespec.Resolution) {
	out := termenv.NewOutput(w)
	for _, r := range resolutions {
		value := out.String(fmt.Sprintf("%v", r.Value))
		if r.Bound {
			value = value.Foreground(out.Color("2")).Bold()
		} else {
			value = value.Faint()
		}
		source := "default"
		if r.Bound {
			source = "bound"
		}
		fmt.Fprintf(w, "%-28s %-10s %s (%s)\n", r.Path, r.Channel, value, source)
	}
}
