package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sells-group/lab-assistant/internal/model"
)

var (
	analyzeExtractOnly bool
	analyzeQuestion    string
	analyzeJSON        bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze FILE",
	Short: "Evaluate a lab report (JPG, PNG, or PDF; - reads text from stdin)",
	Example: `  lab-assistant analyze report.pdf
  lab-assistant analyze scan.jpg --extract-only > report.txt
  lab-assistant analyze - --question "How can I improve my hypothesis?" < report.txt`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		out := cmd.OutOrStdout()

		env, err := initPipeline()
		if err != nil {
			return err
		}

		var (
			text     string
			analysis model.Analysis
		)
		switch {
		case analyzeExtractOnly:
			extracted, err := readReportText(ctx, env.Pipeline, args[0], cmd.InOrStdin())
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(out, extracted)
			return err
		case args[0] == "-":
			text, err = readReportText(ctx, env.Pipeline, "-", cmd.InOrStdin())
			if err != nil {
				return err
			}
			a, err := env.Pipeline.AnalyzeText(ctx, text)
			if err != nil {
				return err
			}
			analysis = *a
		default:
			doc, err := readDocument(args[0])
			if err != nil {
				return err
			}
			da, err := env.Pipeline.AnalyzeDocument(ctx, doc)
			if err != nil {
				return err
			}
			text, analysis = da.Text, da.Analysis
		}

		var answer string
		if strings.TrimSpace(analyzeQuestion) != "" {
			answer, err = env.Pipeline.AskFollowup(ctx, text, analyzeQuestion)
			if err != nil {
				return err
			}
		}

		if analyzeJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(struct {
				model.Analysis
				Percent int             `json:"percent"`
				Band    model.ScoreBand `json:"band"`
				Answer  string          `json:"answer,omitempty"`
			}{analysis, analysis.Percent(), analysis.Band(), answer})
		}

		printAnalysis(out, analysis)
		if answer != "" {
			fmt.Fprintf(out, "\nQ: %s\n%s\n", strings.TrimSpace(analyzeQuestion), answer)
		}
		return nil
	},
}

// printAnalysis writes the score, the recovered sections, and the full reply.
func printAnalysis(w io.Writer, a model.Analysis) {
	if a.HasScore() {
		fmt.Fprintf(w, "Completeness Score: %d/10 (%d%% complete, %s)\n", *a.Score, a.Percent(), a.Band())
	} else {
		fmt.Fprintln(w, "Completeness Score: not found in the response")
	}

	for _, name := range model.SectionNames() {
		lines, ok := a.Section(name)
		if !ok || len(lines) == 0 {
			continue
		}
		fmt.Fprintf(w, "\n%s\n", name)
		for _, l := range lines {
			fmt.Fprintf(w, "  %s\n", l)
		}
	}

	fmt.Fprintf(w, "\n--- Full AI analysis ---\n%s\n", strings.TrimRight(a.Raw, "\n"))
}

func init() {
	analyzeCmd.Flags().BoolVar(&analyzeExtractOnly, "extract-only", false, "print the extracted text and stop")
	analyzeCmd.Flags().StringVarP(&analyzeQuestion, "question", "q", "", "ask a follow-up question about the report")
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "print the analysis as JSON")
	rootCmd.AddCommand(analyzeCmd)
}
