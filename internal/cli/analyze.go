package cli

import (
	"strings"

	"github.com/siherrmann/grounder/core/policy"
	"github.com/siherrmann/grounder/model"
	"github.com/spf13/cobra"
)

var analyzeJSON bool

var analyzeCmd = &cobra.Command{
	Use:   "analyze <question>",
	Short: "Show the policy a question would be routed to",
	Long: `Show the policy a question would be routed to.

The question is scored against every retrieval policy with the configured
fallback confidence. Nothing is retrieved or generated and no database or
language model is needed.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, err := loadSettings()
		if err != nil {
			return err
		}

		selection, err := analyze(settings, strings.Join(args, " "))
		if err != nil {
			return err
		}

		if analyzeJSON {
			return printJSON(cmd.OutOrStdout(), selection)
		}
		printSelection(cmd.OutOrStdout(), selection)
		return nil
	},
}

func analyze(settings Settings, question string) (*model.PolicySelection, error) {
	query, err := model.NewQuery(question)
	if err != nil {
		return nil, err
	}
	_, selection := policy.NewSelector(settings.Engine.PolicyFallbackConfidence).Select(query, settings.Engine.HybridWeights)
	return selection, nil
}

func init() {
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "print the selection as JSON")

	rootCmd.AddCommand(analyzeCmd)
}
