package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/yolwise/leadscore-cli/internal/mapper"
)

var industriesCmd = &cobra.Command{
	Use:   "industries",
	Short: "List the industry classification table",
	Long: `Prints the table the classifier scores with: tag, multiplier, match
confidence, and the keywords that trigger each row. Rows are ordered
from the strongest B2B multiplier to the weakest, which is also the
classifier's tie-break order.`,
	RunE: runIndustries,
}

func init() {
	industriesCmd.Flags().String("format", "table", "output format: table or json")
	rootCmd.AddCommand(industriesCmd)
}

func runIndustries(cmd *cobra.Command, _ []string) error {
	format, _ := cmd.Flags().GetString("format")

	classifier, err := newClassifier()
	if err != nil {
		return err
	}
	table := classifier.Table()

	switch format {
	case "json":
		out, err := json.MarshalIndent(table, "", "  ")
		if err != nil {
			return eris.Wrap(err, "industries: marshal table")
		}
		fmt.Println(string(out))
	case "table":
		fmt.Printf("%-26s %10s %-10s %s\n", "Industry", "Multiplier", "Confidence", "Keywords")
		fmt.Println(strings.Repeat("-", 100))
		for _, ind := range table {
			fmt.Printf("%-26s %10.2f %-10s %s\n",
				ind.Tag, ind.Multiplier, ind.Confidence,
				mapper.Truncate(strings.Join(ind.Keywords, ", "), 50))
		}
	default:
		return eris.Errorf("industries: --format must be table or json (got %q)", format)
	}

	return nil
}
