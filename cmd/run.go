package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"go-grid-engine/internal/model"
	"go-grid-engine/internal/source"
)

const (
	sortFlag      = "sort"
	filterFlag    = "filter"
	groupFlag     = "group"
	highlightFlag = "highlight"
	pageFlag      = "page"
	pageSizeFlag  = "page-size"
	formatFlag    = "format"
	outFlag       = "out"
)

func newRunCommand(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run FILE",
		Short: "Load rows from a CSV or JSON file and print the processed grid",
		Long: `Load rows from a CSV or JSON file, initialize an engine session with them
and the given criteria, and print the resulting rows.

Sorts are "field" or "field:asc|desc". Filters are "field:value" (contains) or
"field:operator:value" with operator one of contains, equals, startsWith,
endsWith, greaterThan, lessThan. Flags may be repeated.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, v, args[0])
		},
	}

	flags := cmd.Flags()
	flags.StringArray(sortFlag, nil, "sort criterion, highest priority first")
	flags.StringArray(filterFlag, nil, "filter criterion; rows must match all")
	flags.StringSlice(groupFlag, nil, "group by these fields, outermost first")
	flags.StringArray(highlightFlag, nil, "highlight a cell given as row:field")
	flags.Int(pageFlag, 0, "zero-based page to print")
	flags.Int(pageSizeFlag, 0, "rows per page; overrides engine-page-size")
	flags.String(formatFlag, "", "output format: 'json' or 'csv' (default from --out, else json)")
	flags.StringP(outFlag, "o", "", "write to this file instead of stdout")
	return cmd
}

func run(cmd *cobra.Command, v *viper.Viper, path string) error {
	snapshot, err := snapshotFromFlags(cmd)
	if err != nil {
		return err
	}

	rt, err := newRuntime(v)
	if err != nil {
		return err
	}
	defer rt.close()

	ctx := cmd.Context()
	rows, err := source.LoadFile(ctx, path)
	if err != nil {
		return err
	}
	snapshot.Data = rows

	req := snapshot.InitRequest()
	pageSize := rt.cfg.Engine.PageSize
	if cmd.Flags().Changed(pageSizeFlag) {
		pageSize, _ = cmd.Flags().GetInt(pageSizeFlag)
	}
	if pageSize > 0 {
		page, _ := cmd.Flags().GetInt(pageFlag)
		req = req.WithPage(page, pageSize)
	}

	client := rt.newClient(ctx)
	defer client.Close()

	reqCtx, cancel := rt.requestContext(ctx)
	defer cancel()
	resp, err := client.Do(reqCtx, req)
	if err != nil {
		return err
	}

	rt.logger.Info("grid processed",
		zap.String("file", path),
		zap.Int("total_rows", resp.Data.TotalRows),
		zap.Int("display_rows", resp.Data.DisplayRows),
		zap.Int("returned_rows", len(resp.Data.Rows)),
		zap.Int("returned_data_rows", model.CountDataRows(resp.Data.Rows)),
		zap.Float64("processing_ms", resp.ProcessingTime),
	)
	return writeRows(cmd, resp.Data.Rows)
}

func snapshotFromFlags(cmd *cobra.Command) (model.Snapshot, error) {
	var snapshot model.Snapshot
	flags := cmd.Flags()

	sorts, _ := flags.GetStringArray(sortFlag)
	filters, _ := flags.GetStringArray(filterFlag)
	groups, _ := flags.GetStringSlice(groupFlag)
	highlights, _ := flags.GetStringArray(highlightFlag)

	var err error
	if snapshot.InitialSort, err = parseSort(sorts); err != nil {
		return snapshot, err
	}
	if snapshot.InitialFilter, err = parseFilter(filters); err != nil {
		return snapshot, err
	}
	snapshot.InitialGroup = parseGroup(groups)
	if snapshot.CellUpdates, err = parseHighlight(highlights); err != nil {
		return snapshot, err
	}
	return snapshot, nil
}

func writeRows(cmd *cobra.Command, rows []model.Row) error {
	out, _ := cmd.Flags().GetString(outFlag)
	format, _ := cmd.Flags().GetString(formatFlag)

	switch {
	case format != "":
		if f := source.Format(format); f != source.FormatJSON && f != source.FormatCSV {
			return fmt.Errorf("invalid format %q: want json or csv", format)
		}
	case out != "":
		format = string(source.DetectFormat(out))
	default:
		format = string(source.FormatJSON)
	}

	var w io.Writer = cmd.OutOrStdout()
	if out != "" {
		file, err := os.Create(out)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer file.Close()
		w = file
	}
	return source.Write(w, source.Format(format), rows)
}
