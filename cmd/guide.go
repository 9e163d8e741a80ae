package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/lab-assistant/internal/catalog"
	"github.com/sells-group/lab-assistant/internal/guide"
	"github.com/sells-group/lab-assistant/internal/model"
)

var (
	guideTemplate   string
	guideName       string
	guideHypothesis string
	guideMaterials  string
	guideProcedure  string
	guideOut        string
	guideNoFile     bool
	guideJSON       bool
)

var guideCmd = &cobra.Command{
	Use:   "guide",
	Short: "Generate a step-by-step guide for a science experiment",
	Example: `  lab-assistant guide --name "Plant Growth" --hypothesis "Plants grow taller with more light"
  lab-assistant guide --template "Floating Egg" --materials "egg, salt, two glasses"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initPipeline()
		if err != nil {
			return err
		}

		e, err := resolveExperiment(env.Catalog, guideTemplate, model.Experiment{
			Name:       guideName,
			Hypothesis: guideHypothesis,
			Materials:  guideMaterials,
			Procedure:  guideProcedure,
		})
		if err != nil {
			return err
		}

		g, err := env.Pipeline.GenerateGuide(cmd.Context(), e)
		if err != nil {
			return err
		}

		if !guideNoFile {
			dir := guideOut
			if dir == "" {
				dir = cfg.Guide.OutputDir
			}
			path, err := guide.Write(dir, *g, time.Now())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Guide saved to %s\n", path)
		}

		if guideJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(g)
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), g.Text)
		return err
	},
}

// resolveExperiment fills blank name and hypothesis from the named template.
// Flags always win over template values.
func resolveExperiment(cat *catalog.Catalog, template string, e model.Experiment) (model.Experiment, error) {
	if strings.TrimSpace(template) == "" {
		return e, nil
	}
	tpl, ok := cat.Find(template)
	if !ok {
		return e, eris.Errorf("unknown template %q (see `lab-assistant templates`)", template)
	}
	if strings.TrimSpace(e.Name) == "" {
		e.Name = tpl.Name
	}
	if strings.TrimSpace(e.Hypothesis) == "" {
		e.Hypothesis = tpl.Hypothesis
	}
	return e, nil
}

func init() {
	guideCmd.Flags().StringVar(&guideTemplate, "template", "", "start from a catalog template")
	guideCmd.Flags().StringVar(&guideName, "name", "", "experiment name")
	guideCmd.Flags().StringVar(&guideHypothesis, "hypothesis", "", "hypothesis to test")
	guideCmd.Flags().StringVar(&guideMaterials, "materials", "", "materials needed (optional)")
	guideCmd.Flags().StringVar(&guideProcedure, "procedure", "", "planned procedure (optional)")
	guideCmd.Flags().StringVar(&guideOut, "out", "", "directory for the HTML guide (default from config)")
	guideCmd.Flags().BoolVar(&guideNoFile, "no-file", false, "print the guide without writing the HTML file")
	guideCmd.Flags().BoolVar(&guideJSON, "json", false, "print the guide as JSON")
	rootCmd.AddCommand(guideCmd)
}
