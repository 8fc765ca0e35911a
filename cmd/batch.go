package main

import (
	"fmt"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/yolwise/leadscore-cli/internal/batch"
	"github.com/yolwise/leadscore-cli/internal/metrics"
	"github.com/yolwise/leadscore-cli/internal/model"
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Score a lead sheet row by row with checkpointing",
	Long: `Scores every row of a lead sheet and writes a ranked results file.

Each row is mapped to a canonical profile, completed by the Claude
fallback when critical fields are missing, scored by the hosted Yolwise
service when one is configured and healthy (by the local engine
otherwise), and adjusted by the qualitative rule battery.

Runs are checkpointed. When the time budget runs out or the process is
interrupted, the batch suspends; invoking the same command again
continues from the saved row. Checkpoints expire after 24 hours.

Examples:
  # Score a CSV, writing leads_scored.csv next to it
  leadscore batch --input leads.csv

  # Score one worksheet of an XLSX file offline (no Claude calls)
  leadscore batch --source xlsx --input leads.xlsx --sheet "Q3 Leads" --offline

  # Score a Google Sheets range, writing results back into the sheet
  leadscore batch --source sheets --spreadsheet 1BxiMVs0XRA5 --range "Leads!A1:H500"`,
	RunE: runBatch,
}

func init() {
	f := batchCmd.Flags()
	f.String("source", "csv", "row source: csv, xlsx, or sheets")
	f.String("input", "", "input file path (csv and xlsx sources)")
	f.String("sheet", "", "worksheet name (xlsx source; defaults to the first sheet)")
	f.String("spreadsheet", "", "spreadsheet ID (sheets source)")
	f.String("range", "", "A1 range including the header row (sheets source)")
	f.String("output", "", "results CSV path (default: _scored sibling of the input)")
	f.Bool("offline", false, "skip Claude fallback and analysis, score locally")

	rootCmd.AddCommand(batchCmd)
}

func runBatch(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts, err := batchRunOptions(cmd)
	if err != nil {
		return err
	}

	log := zap.L().With(zap.String("command", "batch"))

	st, err := initStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close() //nolint:errcheck

	orch, err := buildOrchestrator(ctx, st, opts, metrics.New())
	if err != nil {
		return err
	}

	log.Info("starting batch",
		zap.String("key", batch.Key(opts)),
		zap.String("source", opts.Source),
		zap.Bool("offline", opts.Offline),
	)

	res, err := orch.Run(ctx, opts)
	if err != nil {
		return err
	}

	fmt.Print(batchSummaryText(res))
	return nil
}

// batchRunOptions validates the input-addressing flags into run options.
func batchRunOptions(cmd *cobra.Command) (model.RunOptions, error) {
	source, _ := cmd.Flags().GetString("source")
	input, _ := cmd.Flags().GetString("input")
	sheet, _ := cmd.Flags().GetString("sheet")
	spreadsheet, _ := cmd.Flags().GetString("spreadsheet")
	rng, _ := cmd.Flags().GetString("range")
	output, _ := cmd.Flags().GetString("output")
	offline, _ := cmd.Flags().GetBool("offline")

	opts := model.RunOptions{
		Source:        source,
		Path:          input,
		Sheet:         sheet,
		SpreadsheetID: spreadsheet,
		Range:         rng,
		Output:        output,
		Offline:       offline,
	}

	switch source {
	case "csv", "xlsx":
		if input == "" {
			return opts, eris.Errorf("batch: --input is required for the %s source", source)
		}
	case "sheets":
		if spreadsheet == "" || rng == "" {
			return opts, eris.New("batch: --spreadsheet and --range are required for the sheets source")
		}
	default:
		return opts, eris.Errorf("batch: --source must be csv, xlsx, or sheets (got %q)", source)
	}

	return opts, nil
}

// batchSummaryText renders the terminal summary for a finished or
// suspended run.
func batchSummaryText(res *model.BatchResult) string {
	st := res.State
	elapsed := res.Elapsed.Round(time.Millisecond)
	var sb strings.Builder

	if res.Incomplete {
		fmt.Fprintf(&sb, "Batch suspended after %s: %s\n", elapsed, res.Continuation)
		fmt.Fprintf(&sb, "  Processed: %d/%d\n", st.Processed, st.Total)
		fmt.Fprintf(&sb, "  Succeeded: %d\n", st.Succeeded)
		fmt.Fprintf(&sb, "  Failed:    %d\n", st.Failed)
		sb.WriteString("Run the same command again to continue.\n")
		return sb.String()
	}

	fmt.Fprintf(&sb, "Batch complete: %d rows in %s\n", st.Total, elapsed)
	fmt.Fprintf(&sb, "  Succeeded: %d\n", st.Succeeded)
	fmt.Fprintf(&sb, "  Failed:    %d\n", st.Failed)
	fmt.Fprintf(&sb, "  Targets:   %d\n", st.Targets())
	if st.Options.Source == "sheets" && st.Options.Output == "" {
		sb.WriteString("Results written back to the spreadsheet\n")
	} else {
		fmt.Fprintf(&sb, "Results written to %s\n", batch.OutputPath(st.Options))
	}
	return sb.String()
}
