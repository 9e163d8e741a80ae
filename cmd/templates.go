package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sells-group/lab-assistant/internal/catalog"
)

var templatesJSON bool

var templatesCmd = &cobra.Command{
	Use:   "templates",
	Short: "List the starter experiments",
	RunE: func(cmd *cobra.Command, args []string) error {
		cat, err := catalog.Load()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if templatesJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(cat.List())
		}
		for _, t := range cat.List() {
			fmt.Fprintf(out, "%s\n  Hypothesis: %s\n  Concept:    %s\n\n", t.Name, t.Hypothesis, t.Concept)
		}
		return nil
	},
}

func init() {
	templatesCmd.Flags().BoolVar(&templatesJSON, "json", false, "print templates as JSON")
	rootCmd.AddCommand(templatesCmd)
}
