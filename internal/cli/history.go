package cli

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/siherrmann/grounder/model"
	"github.com/spf13/cobra"
)

var (
	historyPolicy string
	historyLimit  int
	historyJSON   bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List the latest answered questions",
	RunE: func(cmd *cobra.Command, args []string) error {
		var policy model.PolicyType
		if historyPolicy != "" {
			p, err := model.ParsePolicyType(historyPolicy)
			if err != nil {
				return err
			}
			policy = p
		}

		settings, err := loadSettings()
		if err != nil {
			return err
		}
		g, err := openGrounder(settings, false)
		if err != nil {
			return err
		}
		defer g.Close()

		records, err := g.History(context.Background(), policy, historyLimit)
		if err != nil {
			return err
		}

		if historyJSON {
			return printJSON(cmd.OutOrStdout(), records)
		}
		printHistory(cmd.OutOrStdout(), records)
		return nil
	},
}

var showCmd = &cobra.Command{
	Use:   "show <record-id>",
	Short: "Show one search record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rid, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid record id %q: %w", args[0], err)
		}

		settings, err := loadSettings()
		if err != nil {
			return err
		}
		g, err := openGrounder(settings, false)
		if err != nil {
			return err
		}
		defer g.Close()

		record, err := g.SearchRecord(context.Background(), rid)
		if err != nil {
			return err
		}
		return printYAML(cmd.OutOrStdout(), record)
	},
}

func init() {
	historyCmd.Flags().StringVarP(&historyPolicy, "policy", "p", "", "only records of this policy")
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "number of records")
	historyCmd.Flags().BoolVar(&historyJSON, "json", false, "print the records as JSON")

	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(showCmd)
}
