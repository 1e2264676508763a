package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/samvad-hq/samvad-debts-client/internal/app"
	"github.com/samvad-hq/samvad-debts-client/internal/config"
	"github.com/samvad-hq/samvad-debts-client/internal/export"
	"github.com/samvad-hq/samvad-debts-client/internal/logger"
	"github.com/samvad-hq/samvad-debts-client/pkg/obligations"
	"github.com/spf13/cobra"
)

type cli struct {
	app    *app.App
	output string
}

func newCLI() *cli { return &cli{} }

func (c *cli) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "debts",
		Short:         "Query and modify debts on a remote debts service",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.setup(cmd.Context(), cmd.Root())
		},
	}

	pf := root.PersistentFlags()
	pf.String("api-base-url", "", "base URL of the debts service")
	pf.String("api-token", "", "bearer token sent with every request")
	pf.Int64("api-timeout-seconds", 0, "per-request timeout in seconds")
	pf.String("summary-mode", "", "missing summary handling: strict or lenient")
	pf.String("log-level", "", "log level: debug, info, warn, error")
	pf.String("presets-file", "", "YAML/JSON file with named filter presets")
	pf.String("publishers-file", "", "YAML/JSON file with mutation event sinks")
	pf.String("journal-type", "", "mutation journal backend: bbolt or none")
	pf.String("journal-path", "", "bbolt journal file")
	pf.String("metrics-file", "", "write Prometheus metrics to this file on exit")
	pf.StringVarP(&c.output, "output", "o", export.FormatJSON, "output format: json or yaml")

	root.AddCommand(
		c.listCommand(),
		c.getCommand(),
		c.createCommand(),
		c.updateCommand(),
		c.removeCommand(),
		c.summaryCommand(),
		c.snapshotCommand(),
		c.historyCommand(),
		c.exportCommand(),
	)
	return root
}

func (c *cli) setup(ctx context.Context, root *cobra.Command) error {
	cfg, err := config.Load(root.PersistentFlags())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if _, err := logger.Init(cfg); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	c.app, err = app.New(ctx, cfg, logger.Global())
	if err != nil {
		return fmt.Errorf("init app: %w", err)
	}
	return nil
}

func (c *cli) close(ctx context.Context) error {
	err := c.app.Close(ctx)
	_ = logger.Close()
	return err
}

func (c *cli) render(w io.Writer, v any) error {
	return export.Render(w, c.output, v)
}

func (c *cli) listCommand() *cobra.Command {
	var (
		filters []string
		preset  string
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List debts matching optional filters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fs, err := c.filterSet(preset, filters)
			if err != nil {
				return err
			}
			debts, err := c.app.List(cmd.Context(), fs)
			if err != nil {
				return err
			}
			return c.render(cmd.OutOrStdout(), debts)
		},
	}
	addFilterFlags(cmd, &filters, &preset)
	return cmd
}

func (c *cli) getCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get ID",
		Short: "Fetch one debt",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			debt, err := c.app.Get(cmd.Context(), obligations.ParseID(args[0]))
			if err != nil {
				return err
			}
			return c.render(cmd.OutOrStdout(), debt)
		},
	}
}

func (c *cli) createCommand() *cobra.Command {
	var data, file string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a debt from a JSON record",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			record, err := readRecord(cmd.InOrStdin(), data, file)
			if err != nil {
				return err
			}
			created, err := c.app.Create(cmd.Context(), record)
			if err != nil {
				return err
			}
			return c.render(cmd.OutOrStdout(), created)
		},
	}
	addDataFlags(cmd, &data, &file)
	return cmd
}

func (c *cli) updateCommand() *cobra.Command {
	var data, file string
	cmd := &cobra.Command{
		Use:   "update ID",
		Short: "Apply a partial JSON record to a debt",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			record, err := readRecord(cmd.InOrStdin(), data, file)
			if err != nil {
				return err
			}
			updated, err := c.app.Update(cmd.Context(), obligations.ParseID(args[0]), record)
			if err != nil {
				return err
			}
			return c.render(cmd.OutOrStdout(), updated)
		},
	}
	addDataFlags(cmd, &data, &file)
	return cmd
}

func (c *cli) removeCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "remove ID",
		Aliases: []string{"rm", "delete"},
		Short:   "Delete a debt",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ack, err := c.app.Remove(cmd.Context(), obligations.ParseID(args[0]))
			if err != nil {
				return err
			}
			return c.render(cmd.OutOrStdout(), ack)
		},
	}
}

func (c *cli) summaryCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Fetch the aggregate summary of all debts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			report, err := c.app.Summary(cmd.Context())
			if err != nil {
				return err
			}
			return c.render(cmd.OutOrStdout(), report)
		},
	}
}

func (c *cli) snapshotCommand() *cobra.Command {
	var (
		filters []string
		preset  string
	)
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Fetch a filtered list and the summary of all debts together",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fs, err := c.filterSet(preset, filters)
			if err != nil {
				return err
			}
			snap, err := c.app.Snapshot(cmd.Context(), fs)
			if err != nil {
				return err
			}
			return c.render(cmd.OutOrStdout(), snap)
		},
	}
	addFilterFlags(cmd, &filters, &preset)
	return cmd
}

func (c *cli) historyCommand() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show mutations recorded in the local journal, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			entries, err := c.app.History(limit)
			if err != nil {
				return err
			}
			return c.render(cmd.OutOrStdout(), entries)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of entries (0 for all)")
	return cmd
}

func (c *cli) exportCommand() *cobra.Command {
	var (
		filters []string
		preset  string
		format  string
		out     string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a snapshot as xlsx, json or yaml",
		Long: `Export the debts matching --filter/--preset together with the server summary.

The summary always covers all debts, not only the filtered ones, so totals in
the Summary sheet may not match the exported rows.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			format = strings.ToLower(strings.TrimSpace(format))
			if format == "xlsx" && (out == "" || out == "-") {
				return errors.New("xlsx export requires --out")
			}
			fs, err := c.filterSet(preset, filters)
			if err != nil {
				return err
			}
			snap, err := c.app.Snapshot(cmd.Context(), fs)
			if err != nil {
				return err
			}

			write := func(w io.Writer) error {
				if format == "xlsx" {
					return export.WriteXLSX(w, snap.Debts, snap.Summary)
				}
				return export.Render(w, format, snap)
			}

			if out == "" || out == "-" {
				return write(cmd.OutOrStdout())
			}
			f, err := os.Create(out)
			if err != nil {
				return fmt.Errorf("create export file: %w", err)
			}
			return writeAndClose(f, write)
		},
	}
	addFilterFlags(cmd, &filters, &preset)
	cmd.Flags().StringVar(&format, "format", "xlsx", "export format: xlsx, json or yaml")
	cmd.Flags().StringVar(&out, "out", "", "output file (- for stdout)")
	return cmd
}

// writeAndClose runs write against wc and closes it, reporting the first error.
// A failed close means the export may be incomplete.
func writeAndClose(wc io.WriteCloser, write func(io.Writer) error) error {
	if err := write(wc); err != nil {
		_ = wc.Close()
		return err
	}
	if err := wc.Close(); err != nil {
		return fmt.Errorf("close export file: %w", err)
	}
	return nil
}

func addFilterFlags(cmd *cobra.Command, filters *[]string, preset *string) {
	cmd.Flags().StringArrayVarP(filters, "filter", "f", nil, "filter as key=value (repeatable)")
	cmd.Flags().StringVar(preset, "preset", "", "named filter preset")
}

func addDataFlags(cmd *cobra.Command, data, file *string) {
	cmd.Flags().StringVarP(data, "data", "d", "", "JSON record")
	cmd.Flags().StringVar(file, "file", "", "read the JSON record from a file (- for stdin)")
}

func (c *cli) filterSet(preset string, pairs []string) (obligations.FilterSet, error) {
	explicit, err := parseFilters(pairs)
	if err != nil {
		return nil, err
	}
	return c.app.Filters(preset, explicit)
}

// parseFilters turns key=value pairs into a FilterSet; repeated keys become lists.
func parseFilters(pairs []string) (obligations.FilterSet, error) {
	fs := obligations.FilterSet{}
	for _, p := range pairs {
		key, value, ok := strings.Cut(p, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid filter %q (expected key=value)", p)
		}
		switch prev := fs[key].(type) {
		case nil:
			fs[key] = value
		case string:
			fs[key] = []string{prev, value}
		case []string:
			fs[key] = append(prev, value)
		}
	}
	return fs, nil
}

func readRecord(stdin io.Reader, data, file string) (obligations.Obligation, error) {
	var raw []byte
	switch {
	case data != "" && file != "":
		return obligations.Obligation{}, errors.New("use either --data or --file, not both")
	case data != "":
		raw = []byte(data)
	case file == "-":
		b, err := io.ReadAll(stdin)
		if err != nil {
			return obligations.Obligation{}, fmt.Errorf("read stdin: %w", err)
		}
		raw = b
	case file != "":
		b, err := os.ReadFile(file)
		if err != nil {
			return obligations.Obligation{}, fmt.Errorf("read record file: %w", err)
		}
		raw = b
	default:
		return obligations.Obligation{}, errors.New("a JSON record is required (--data or --file)")
	}

	var record obligations.Obligation
	if err := json.Unmarshal(raw, &record); err != nil {
		return obligations.Obligation{}, fmt.Errorf("decode record: %w", err)
	}
	return record, nil
}
