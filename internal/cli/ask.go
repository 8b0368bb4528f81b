package cli

import (
	"strings"

	"github.com/siherrmann/grounder/model"
	"github.com/spf13/cobra"
)

var (
	askPolicy         string
	askTopK           int
	askThreshold      float64
	askBudget         int
	askGroundTruth    string
	askExpectedAnswer string
	askJSON           bool
	askTimeout        string
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Answer a question from the stored evidence",
	Long: `Answer a question from the stored evidence.

Without --policy the retrieval policy is selected from the question.
Per call settings override the engine configuration for this question only.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, err := loadSettings()
		if err != nil {
			return err
		}

		request := model.Request{
			Query:          strings.Join(args, " "),
			Policy:         askPolicy,
			Settings:       askSettings(cmd),
			GroundTruth:    askGroundTruth,
			ExpectedAnswer: askExpectedAnswer,
		}

		g, err := openGrounder(settings, true)
		if err != nil {
			return err
		}
		defer g.Close()

		timeout, err := parseDuration(askTimeout)
		if err != nil {
			return err
		}
		ctx, cancel := withTimeout(timeout)
		defer cancel()

		response, err := g.Answer(ctx, request)
		if err != nil {
			return err
		}

		if askJSON {
			return printJSON(cmd.OutOrStdout(), response)
		}
		printResponse(cmd.OutOrStdout(), response)
		return nil
	},
}

// askSettings returns the per call settings of the flags that were set.
func askSettings(cmd *cobra.Command) *model.Settings {
	s := &model.Settings{}
	set := false
	if cmd.Flags().Changed("top-k") {
		s.TopK = &askTopK
		set = true
	}
	if cmd.Flags().Changed("threshold") {
		s.SimilarityThreshold = &askThreshold
		set = true
	}
	if cmd.Flags().Changed("budget") {
		s.TokenBudget = &askBudget
		set = true
	}
	if !set {
		return nil
	}
	return s
}

func init() {
	askCmd.Flags().StringVarP(&askPolicy, "policy", "p", "", "retrieval policy: text, fact, graph or hybrid (default: selected from the question)")
	askCmd.Flags().IntVar(&askTopK, "top-k", 0, "number of units per retriever")
	askCmd.Flags().Float64Var(&askThreshold, "threshold", 0, "minimum text similarity")
	askCmd.Flags().IntVar(&askBudget, "budget", 0, "token budget of the fused context")
	askCmd.Flags().StringVar(&askGroundTruth, "ground-truth", "", "relevant text, enables the relevance metric")
	askCmd.Flags().StringVar(&askExpectedAnswer, "expected", "", "expected answer, enables the completeness metric")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "print the full response as JSON")
	askCmd.Flags().StringVar(&askTimeout, "timeout", "2m", "overall timeout of the question")

	rootCmd.AddCommand(askCmd)
}
