package main

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/thalesfsp/labbook"
	"github.com/thalesfsp/labbook/store"
	"github.com/thalesfsp/labbook/versions"
)

// defaultReapAge keeps the scratch directories of runs that may still be
// executing.
const defaultReapAge = time.Minute

// Output formats of the observations command.
const (
	outputYAML  = "yaml"
	outputTable = "table"
)

var errNoVersion = errors.New("no matching version")

func newRootCmd() *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:           "labbook",
		Short:         "Inspect recorded experiments",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			level := slog.LevelInfo
			if verbose {
				level = slog.LevelDebug
			}

			slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))
		},
	}

	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(
		newVersionsCmd(),
		newObservationsCmd(),
		newReapCmd(),
	)

	return root
}

func newVersionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "versions ROOT",
		Short: "List the versions of an experiment root",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			all, err := versions.All(args[0])
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "VERSION\tBACKEND\tOBSERVATIONS")

			for _, path := range all {
				backend, label, err := store.OpenHome(path)
				if err != nil {
					return err
				}

				observations, err := backend.AllObservations(cmd.Context())
				if err != nil {
					return err
				}

				fmt.Fprintf(tw, "%s\t%s\t%d\n", filepath.Base(path), label.Backend, len(observations))
			}

			return tw.Flush()
		},
	}
}

func newObservationsCmd() *cobra.Command {
	var (
		version string
		output  string
	)

	cmd := &cobra.Command{
		Use:   "observations ROOT",
		Short: "Print the observations of a version, the latest by default",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			accept := versions.Latest()
			if version != "" {
				accept = versions.Named(version)
			}

			backend, err := versions.Find(args[0], accept)
			if err != nil {
				return err
			}

			if backend == nil {
				return fmt.Errorf("%w in %s", errNoVersion, args[0])
			}

			observations, err := backend.AllObservations(cmd.Context())
			if err != nil {
				return err
			}

			switch output {
			case outputYAML:
				docs := make([]map[string]any, len(observations))
				for i, obs := range observations {
					docs[i] = obs.AsMap()
				}

				enc := yaml.NewEncoder(cmd.OutOrStdout())
				defer enc.Close()

				return enc.Encode(docs)
			case outputTable:
				table := labbook.NewTable(observations, labbook.TableOptions{IncludeID: true}, slog.Default())

				return table.Write(cmd.OutOrStdout())
			default:
				return fmt.Errorf("unknown output format %q, want %s or %s", output, outputYAML, outputTable)
			}
		},
	}

	cmd.Flags().StringVar(&version, "version", "", "version directory to read, e.g. version-2")
	cmd.Flags().StringVarP(&output, "output", "o", outputTable, "output format: yaml or table")

	return cmd
}

func newReapCmd() *cobra.Command {
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "reap ROOT",
		Short: "Remove the empty run directories left by interrupted runs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			all, err := versions.All(args[0])
			if err != nil {
				return err
			}

			total := 0

			for _, path := range all {
				backend, _, err := store.OpenHome(path)
				if err != nil {
					return err
				}

				n, err := backend.ReapEmptyRuns(olderThan)
				if err != nil {
					return err
				}

				if n > 0 {
					slog.Debug("reaped empty runs", "version", filepath.Base(path), "count", n)
				}

				total += n
			}

			fmt.Fprintf(cmd.OutOrStdout(), "removed %d empty run directories\n", total)

			return nil
		},
	}

	cmd.Flags().DurationVar(&olderThan, "older-than", defaultReapAge,
		"only remove directories not modified for this long")

	return cmd
}
