package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var defineCmd = &cobra.Command{
	Use:     "define TERM...",
	Short:   "Explain a science term in simple words",
	Example: `  lab-assistant define photosynthesis`,
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initPipeline()
		if err != nil {
			return err
		}

		term := strings.Join(args, " ")
		def, err := env.Pipeline.DefineTerm(cmd.Context(), term)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s\n\n%s\n", term, def)
		return err
	},
}

func init() {
	rootCmd.AddCommand(defineCmd)
}
