package pipeline

import (
	"fmt"
	"strings"

	"github.com/knights-analytics/hugot"
	"github.com/knights-analytics/hugot/pipelines"
	"github.com/siherrmann/grounder/helper"
)

// MinMentionScore is the NER confidence below which a span is ignored
const MinMentionScore = 0.5

// DefaultMentionExtractor creates a mention extractor using a NER model
// Uses distilbert-NER for named entity recognition
func DefaultMentionExtractor() (MentionExtractFunc, error) {
	modelName := "KnightsAnalytics/distilbert-NER"
	modelPath, err := helper.PrepareModel(modelName, "model.onnx")
	if err != nil {
		return nil, err
	}

	session, err := hugot.NewGoSession()
	if err != nil {
		return nil, fmt.Errorf("failed to create hugot session: %w", err)
	}

	config := hugot.TokenClassificationConfig{
		ModelPath: modelPath,
		Name:      "mention-pipeline",
		Options: []hugot.TokenClassificationOption{
			pipelines.WithSimpleAggregation(),
			pipelines.WithIgnoreLabels([]string{"O"}),
		},
	}
	nerPipeline, err := hugot.NewPipeline(session, config)
	if err != nil {
		if destroyErr := session.Destroy(); destroyErr != nil {
			return nil, fmt.Errorf("failed to create NER pipeline: %w (cleanup error: %v)", err, destroyErr)
		}
		return nil, fmt.Errorf("failed to create NER pipeline: %w", err)
	}

	return func(text string) ([]string, error) {
		result, err := nerPipeline.RunPipeline([]string{text})
		if err != nil {
			return nil, fmt.Errorf("failed to run NER: %w", err)
		}
		if len(result.Entities) == 0 {
			return nil, nil
		}

		var mentions []string
		for _, entity := range result.Entities[0] {
			if float64(entity.Score) < MinMentionScore {
				continue
			}
			mentions = append(mentions, strings.TrimSpace(entity.Word))
		}

		return DedupeMentions(mentions), nil
	}, nil
}

// DedupeMentions drops empty and case-insensitively repeated mentions, keeping order.
func DedupeMentions(mentions []string) []string {
	seen := make(map[string]bool, len(mentions))
	out := make([]string, 0, len(mentions))
	for _, m := range mentions {
		m = strings.TrimSpace(m)
		key := strings.ToLower(m)
		if m == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, m)
	}
	return out
}
