package main

import (
	"encoding/json"
	"fmt"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/yolwise/leadscore-cli/internal/batch"
	"github.com/yolwise/leadscore-cli/internal/model"
)

var checkpointCmd = &cobra.Command{
	Use:   "checkpoint",
	Short: "Inspect or clear batch checkpoints",
	Long: `Checkpoints are keyed by the batch input, so status and clear take the
same input-addressing flags as the batch command.

Examples:
  leadscore checkpoint status --input leads.csv
  leadscore checkpoint clear --source sheets --spreadsheet 1BxiMVs0XRA5 --range "Leads!A1:H500"`,
}

var checkpointStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the saved checkpoint for a batch input",
	RunE:  runCheckpointStatus,
}

var checkpointClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete the saved checkpoint for a batch input",
	RunE:  runCheckpointClear,
}

func init() {
	for _, c := range []*cobra.Command{checkpointStatusCmd, checkpointClearCmd} {
		f := c.Flags()
		f.String("source", "csv", "row source: csv, xlsx, or sheets")
		f.String("input", "", "input file path (csv and xlsx sources)")
		f.String("spreadsheet", "", "spreadsheet ID (sheets source)")
		f.String("range", "", "A1 range (sheets source)")
		checkpointCmd.AddCommand(c)
	}
	rootCmd.AddCommand(checkpointCmd)
}

// checkpointKeyFromFlags derives the checkpoint key the batch command
// would use for the same input.
func checkpointKeyFromFlags(cmd *cobra.Command) (string, error) {
	source, _ := cmd.Flags().GetString("source")
	input, _ := cmd.Flags().GetString("input")
	spreadsheet, _ := cmd.Flags().GetString("spreadsheet")
	rng, _ := cmd.Flags().GetString("range")

	switch source {
	case "csv", "xlsx":
		if input == "" {
			return "", eris.Errorf("checkpoint: --input is required for the %s source", source)
		}
	case "sheets":
		if spreadsheet == "" || rng == "" {
			return "", eris.New("checkpoint: --spreadsheet and --range are required for the sheets source")
		}
	default:
		return "", eris.Errorf("checkpoint: --source must be csv, xlsx, or sheets (got %q)", source)
	}

	return batch.Key(model.RunOptions{
		Source:        source,
		Path:          input,
		SpreadsheetID: spreadsheet,
		Range:         rng,
	}), nil
}

func runCheckpointStatus(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	key, err := checkpointKeyFromFlags(cmd)
	if err != nil {
		return err
	}

	st, err := initStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close() //nolint:errcheck

	raw, err := st.Get(ctx, key)
	if err != nil {
		return eris.Wrapf(err, "checkpoint: read %s", key)
	}
	if raw == nil {
		fmt.Printf("No checkpoint for %s\n", key)
		return nil
	}

	var state model.BatchState
	if err := json.Unmarshal(raw, &state); err != nil {
		fmt.Printf("Checkpoint for %s is corrupt; \"checkpoint clear\" removes it\n", key)
		return nil
	}

	expiryHours := cfg.Batch.StateExpiryHours
	if expiryHours <= 0 {
		expiryHours = 24
	}
	fmt.Print(checkpointSummaryText(&state, time.Now().UTC(), time.Duration(expiryHours)*time.Hour))
	return nil
}

func runCheckpointClear(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	key, err := checkpointKeyFromFlags(cmd)
	if err != nil {
		return err
	}

	st, err := initStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close() //nolint:errcheck

	raw, err := st.Get(ctx, key)
	if err != nil {
		return eris.Wrapf(err, "checkpoint: read %s", key)
	}
	if raw == nil {
		fmt.Printf("No checkpoint for %s\n", key)
		return nil
	}

	if err := st.Delete(ctx, key); err != nil {
		return eris.Wrapf(err, "checkpoint: delete %s", key)
	}
	fmt.Printf("Cleared checkpoint for %s\n", key)
	return nil
}

// checkpointSummaryText renders one checkpoint for the terminal.
func checkpointSummaryText(state *model.BatchState, now time.Time, expiry time.Duration) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Checkpoint %s\n", state.Key)
	fmt.Fprintf(&sb, "  Run:      %s\n", state.RunID)
	fmt.Fprintf(&sb, "  Status:   %s\n", state.Status)
	fmt.Fprintf(&sb, "  Progress: %d/%d rows (%d succeeded, %d failed)\n",
		state.Processed, state.Total, state.Succeeded, state.Failed)
	fmt.Fprintf(&sb, "  Saved:    %s (%s ago)\n",
		state.SavedAt.Format(time.RFC3339), now.Sub(state.SavedAt).Round(time.Second))

	switch {
	case state.Expired(now, expiry):
		sb.WriteString("  Resume:   expired, the next run starts over\n")
	case !state.ResumeValid():
		sb.WriteString("  Resume:   not resumable, the next run starts over\n")
	default:
		fmt.Fprintf(&sb, "  Resume:   continues at row %d\n", state.Processed)
	}
	return sb.String()
}
