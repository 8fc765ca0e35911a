package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/yolwise/leadscore-cli/internal/adjust"
	"github.com/yolwise/leadscore-cli/internal/mapper"
	"github.com/yolwise/leadscore-cli/internal/model"
	"github.com/yolwise/leadscore-cli/internal/scoring"
)

var scoreCmd = &cobra.Command{
	Use:   "score [company name]",
	Short: "Score a single company locally",
	Long: `Scores one company through the local engine, the industry classifier,
and the adjustment rules, without the hosted service or a checkpoint.

Revenue and employee flags run through the same numeric extraction the
batch mapper applies to sheet cells, so "15 milyon" and "15000000" read
the same.

Examples:
  # Name only
  leadscore score "Acme Lojistik A.Ş."

  # With profile fields
  leadscore score "Acme Lojistik A.Ş." --industry lojistik --revenue "15 milyon" --employees 250 --city İstanbul

  # Human-readable breakdown instead of JSON
  leadscore score "Acme Lojistik A.Ş." --industry lojistik --format table`,
	Args: cobra.MinimumNArgs(1),
	RunE: runScore,
}

func init() {
	f := scoreCmd.Flags()
	f.String("industry", "", "industry or sector description")
	f.String("revenue", "", "annual revenue (magnitude suffixes understood)")
	f.String("employees", "", "employee count")
	f.String("city", "", "headquarters city")
	f.String("website", "", "company website")
	f.String("description", "", "free-text company description")
	f.Int("founded", 0, "founding year")
	f.String("format", "json", "output format: json or table")

	rootCmd.AddCommand(scoreCmd)
}

func runScore(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	if format != "json" && format != "table" {
		return eris.Errorf("score: --format must be json or table (got %q)", format)
	}

	p := scoreProfile(cmd, strings.Join(args, " "))

	classifier, err := newClassifier()
	if err != nil {
		return err
	}
	result := adjust.New().Apply(scoring.New(classifier).Score(p), p)

	if format == "table" {
		printScoreResult(&result)
		return nil
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return eris.Wrap(err, "score: marshal result")
	}
	fmt.Println(string(out))
	return nil
}

// scoreProfile builds the profile to score from command flags.
func scoreProfile(cmd *cobra.Command, name string) *model.Profile {
	p := model.NewProfile()
	p.Set(model.FieldCompanyName, name)

	if v, _ := cmd.Flags().GetString("industry"); v != "" {
		p.Set(model.FieldIndustry, v)
	}
	if v, _ := cmd.Flags().GetString("revenue"); v != "" {
		if n := mapper.ExtractNumber(v); n > 0 {
			p.Set(model.FieldRevenueEstimate, n)
		}
	}
	if v, _ := cmd.Flags().GetString("employees"); v != "" {
		if n := mapper.ExtractNumber(v); n > 0 {
			p.Set(model.FieldEmployeesEstimate, n)
		}
	}
	if v, _ := cmd.Flags().GetString("city"); v != "" {
		p.Set(model.FieldHeadquarters, v)
	}
	if v, _ := cmd.Flags().GetString("website"); v != "" {
		p.Set(model.FieldWebsite, v)
	}
	if v, _ := cmd.Flags().GetString("description"); v != "" {
		p.Set(model.FieldDescription, v)
	}
	if v, _ := cmd.Flags().GetInt("founded"); v > 0 {
		p.Set(model.FieldYearFounded, float64(v))
	}

	return p
}

func printScoreResult(r *model.ScoringResult) {
	fmt.Printf("Company:   %s\n", r.CompanyName)
	fmt.Printf("Industry:  %s (%s confidence)\n", r.DetectedIndustry, r.IndustryConfidence)
	fmt.Printf("Base:      %.1f\n", r.BaseScore)
	fmt.Printf("Adjusted:  %.1f (x%.2f)\n", r.IndustryAdjustedScore, r.IndustryMultiplier)
	fmt.Printf("Rules:     %+d\n", r.LLMAdjustment)
	fmt.Printf("Final:     %.1f\n", r.FinalScore)
	fmt.Printf("Priority:  %s\n", r.Priority)

	if len(r.Applied) > 0 {
		fmt.Println("\nAdjustments:")
		for _, a := range r.Applied {
			fmt.Printf("  %+4d  %s\n", a.Delta, a.Reason)
		}
	}
	fmt.Printf("\n%s\n", r.Reasoning)
}
