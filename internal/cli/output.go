package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/siherrmann/grounder/core/policy"
	"github.com/siherrmann/grounder/model"
	"gopkg.in/yaml.v3"
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	defer enc.Close()
	return enc.Encode(v)
}

func verdictColor(v model.Verdict) *color.Color {
	switch v {
	case model.VerdictGrounded:
		return color.New(color.FgGreen, color.Bold)
	case model.VerdictPartiallyGrounded:
		return color.New(color.FgYellow, color.Bold)
	}
	return color.New(color.FgRed, color.Bold)
}

func printResponse(w io.Writer, r *model.Response) {
	bold := color.New(color.Bold)

	fmt.Fprintln(w, r.Response)
	fmt.Fprintln(w)

	verdictColor(r.Verdict).Fprintf(w, "%s", r.Verdict)
	fmt.Fprintf(w, "  policy=%s", r.PolicyType)
	if r.PolicySelection != nil && r.PolicySelection.AutoSelected {
		fmt.Fprintf(w, " (auto, confidence %.2f)", r.PolicySelection.Confidence)
	}
	fmt.Fprintf(w, "  state=%s  record=%s\n", r.State, r.RecordRID)
	if len(r.DegradedSources) > 0 {
		sources := make([]string, len(r.DegradedSources))
		for i, s := range r.DegradedSources {
			sources[i] = string(s)
		}
		color.New(color.FgYellow).Fprintf(w, "degraded sources: %s\n", strings.Join(sources, ", "))
	}

	if len(r.Justification.Evidence) > 0 {
		fmt.Fprintln(w)
		bold.Fprintln(w, "Evidence")
		cited := map[int]bool{}
		for _, n := range r.Justification.Citations {
			cited[n] = true
		}
		for _, e := range r.Justification.Evidence {
			marker := " "
			if cited[e.Number] {
				marker = "*"
			}
			fmt.Fprintf(w, "%s[%d] %s (%.2f)\n    %s\n", marker, e.Number, e.Label, e.Score, e.Text)
		}
	}

	m := r.Metrics
	fmt.Fprintln(w)
	bold.Fprintln(w, "Metrics")
	fmt.Fprintf(w, "  search %.3fs  generation %.3fs  total %.3fs  tokens %d  cost %.5f\n", m.SearchTime, m.GenerationTime, m.TotalTime, m.TokensUsed, m.Cost)
	fmt.Fprintf(w, "  relevance %.2f  utilization %.2f  adherence %.2f  completeness %.2f\n", m.Relevance, m.Utilization, m.Adherence, m.Completeness)
}

var policyUse = map[model.PolicyType]string{
	model.PolicyText:   "descriptive questions and explanations",
	model.PolicyFact:   "concrete facts and figures",
	model.PolicyGraph:  "relations and connections between entities",
	model.PolicyHybrid: "complex questions that need several sources",
}

func printSelection(w io.Writer, s *model.PolicySelection) {
	color.New(color.Bold).Fprintf(w, "%s", s.SelectedPolicy)
	if s.AutoSelected {
		fmt.Fprintf(w, "  (auto, confidence %.2f)\n", s.Confidence)
	} else {
		fmt.Fprintln(w, "  (requested)")
	}
	fmt.Fprintln(w, s.Explanation)
	fmt.Fprintln(w)
	for _, candidate := range policy.Candidates {
		marker := " "
		if candidate == s.SelectedPolicy {
			marker = "*"
		}
		fmt.Fprintf(w, "%s%-7s %.2f  %s\n", marker, candidate, s.AllScores[candidate], policyUse[candidate])
	}
}

func printHistory(w io.Writer, records []*model.SearchRecord) {
	if len(records) == 0 {
		fmt.Fprintln(w, "No search records found")
		return
	}
	for _, r := range records {
		fmt.Fprintf(w, "%s  %s  %-7s ", r.RID, r.CreatedAt.Local().Format(time.DateTime), r.Policy.Type)
		verdictColor(r.Verdict).Fprintf(w, "%-18s", r.Verdict)
		fmt.Fprintf(w, " %s\n", r.Query)
	}
}

func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid timeout %q: %w", s, err)
	}
	return d, nil
}
