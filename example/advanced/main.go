package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/siherrmann/grounder"
	"github.com/siherrmann/grounder/core/llm"
	"github.com/siherrmann/grounder/database"
	"github.com/siherrmann/grounder/helper"
	"github.com/siherrmann/grounder/model"
)

const sampleContent1 = `Acme Corporation is a manufacturer of industrial sensors.

Acme Corporation is headquartered in Berlin and was founded in 1998.

In the third quarter Acme revenue grew twelve percent, driven by demand for vibration sensors.`

const sampleContent2 = `Berlin is the capital of Germany.

Many hardware companies moved to Berlin over the last decade because of its engineering talent.`

func main() {
	// Start a test PostgreSQL container
	teardown, dbPort, err := helper.MustStartPostgresContainer()
	if err != nil {
		log.Fatalf("Failed to start PostgreSQL container: %v", err)
	}
	defer teardown(context.Background())

	dbConfig := &helper.DatabaseConfiguration{
		Host:     "localhost",
		Port:     dbPort,
		Database: "database",
		Username: "user",
		Password: "password",
		Schema:   "public",
		SSLMode:  "disable",
	}

	generator, err := llm.NewOpenAIGenerator(llm.OpenAIConfig{
		APIKey:            os.Getenv("OPENAI_API_KEY"),
		RequestsPerSecond: 1,
		Burst:             2,
	}, nil)
	if err != nil {
		log.Fatalf("Failed to create generator: %v", err)
	}

	config := model.DefaultConfig()
	config.RetryOnUngrounded = true

	g, err := grounder.NewGrounder(dbConfig, generator, grounder.WithConfig(config))
	if err != nil {
		log.Fatalf("Failed to create grounder: %v", err)
	}
	defer g.Close()

	if err := g.UseDefaultPipeline(); err != nil {
		log.Fatalf("Failed to set up pipeline: %v", err)
	}

	ctx := context.Background()

	fmt.Println("=== Ingesting Evidence ===")
	doc1 := ingest(ctx, g, "Acme Company Profile", sampleContent1)
	ingest(ctx, g, "About Berlin", sampleContent2)

	revenue := &model.Fact{Subject: "Acme", Relation: "revenue growth in Q3", Object: "12 percent", Confidence: 0.92, DocumentID: &doc1.ID}
	founded := &model.Fact{Subject: "Acme Corporation", Relation: "founded in", Object: "1998", Confidence: 0.97, DocumentID: &doc1.ID}
	for _, fact := range []*model.Fact{revenue, founded} {
		if err := g.Facts.InsertFact(ctx, fact); err != nil {
			log.Fatalf("Failed to insert fact: %v", err)
		}
	}

	acme := &model.Entity{Name: "Acme Corporation", Type: "ORG", Aliases: []string{"Acme"}}
	berlin := &model.Entity{Name: "Berlin", Type: "LOC"}
	germany := &model.Entity{Name: "Germany", Type: "LOC"}
	for _, entity := range []*model.Entity{acme, berlin, germany} {
		if err := g.Entities.InsertEntity(ctx, entity); err != nil {
			log.Fatalf("Failed to insert entity: %v", err)
		}
	}
	relations := []*model.Relation{
		{SourceEntityID: acme.ID, TargetEntityID: berlin.ID, RelationType: "headquartered in", Weight: 0.9, EvidenceFactIDs: []int64{founded.ID}},
		{SourceEntityID: berlin.ID, TargetEntityID: germany.ID, RelationType: "capital of", Weight: 1.0},
	}
	for _, relation := range relations {
		if err := g.Relations.InsertRelation(ctx, relation); err != nil {
			log.Fatalf("Failed to insert relation: %v", err)
		}
	}
	fmt.Println("Inserted 2 documents, 2 facts, 3 entities and 2 relations")

	// 1. One question per policy
	questions := []struct {
		policy model.PolicyType
		query  string
	}{
		{model.PolicyText, "What does Acme manufacture?"},
		{model.PolicyFact, "What was the revenue growth of Acme in Q3?"},
		{model.PolicyGraph, "How is Acme connected to Germany?"},
	}
	for i, q := range questions {
		fmt.Printf("\n=== %d. %s policy ===\n", i+1, q.policy)
		response, err := g.Answer(ctx, model.Request{Query: q.query, Policy: string(q.policy)})
		if err != nil {
			log.Fatalf("Answer failed: %v", err)
		}
		printResponse(response)
	}

	// 2. Hybrid with custom weights and a ground truth for the relevance metric
	fmt.Println("\n=== 4. Hybrid policy (custom weights) ===")
	budget := 400
	hybrid, err := g.Answer(ctx, model.Request{
		Query:  "Where is Acme headquartered and how did its revenue develop?",
		Policy: string(model.PolicyHybrid),
		Settings: &model.Settings{
			TokenBudget:   &budget,
			HybridWeights: &model.HybridWeights{Text: 0.3, Fact: 0.4, Graph: 0.3},
		},
		GroundTruth:    "Acme Corporation is headquartered in Berlin. Acme revenue grew twelve percent.",
		ExpectedAnswer: "Berlin, and revenue grew twelve percent in Q3.",
	})
	if err != nil {
		log.Fatalf("Hybrid answer failed: %v", err)
	}
	printResponse(hybrid)
	fmt.Printf("  breakdown: %v\n", hybrid.Justification.Breakdown)
	fmt.Printf("  relevance %.2f, utilization %.2f, completeness %.2f\n",
		hybrid.Metrics.Relevance, hybrid.Metrics.Utilization, hybrid.Metrics.Completeness)

	// 3. Automatic policy selection
	fmt.Println("\n=== 5. Automatic policy selection ===")
	auto, err := g.Answer(ctx, model.Request{Query: "Who founded Acme and when?"})
	if err != nil {
		log.Fatalf("Auto answer failed: %v", err)
	}
	fmt.Printf("Selected %s with confidence %.2f: %s\n",
		auto.PolicySelection.SelectedPolicy, auto.PolicySelection.Confidence, auto.PolicySelection.Explanation)
	printResponse(auto)

	// 4. Index type switching
	fmt.Println("\n=== 6. Changing Index Type ===")
	err = g.Fragments.ChangeIndexType(ctx, database.IndexIVFFlat, database.IndexOptions{Lists: 100})
	if err != nil {
		log.Printf("Warning: Index change failed (this is okay for small datasets): %v", err)
	} else {
		fmt.Println("Successfully switched to IVFFlat index")
	}
	err = g.Fragments.ChangeIndexType(ctx, database.IndexHNSW, database.IndexOptions{M: 16, EfConstruction: 64})
	if err != nil {
		log.Printf("Warning: Index change failed: %v", err)
	} else {
		fmt.Println("Successfully switched back to HNSW index")
	}

	// 5. Search history
	g.Recorder.Flush()
	fmt.Println("\n=== 7. Search History ===")
	records, err := g.History(ctx, "", 10)
	if err != nil {
		log.Fatalf("History failed: %v", err)
	}
	for _, record := range records {
		fmt.Printf("  %s %-6s %-18s %s\n", record.RID, record.Policy.Type, record.Verdict, record.Query)
	}

	fmt.Println("\n=== Advanced Example Completed Successfully! ===")
}

func ingest(ctx context.Context, g *grounder.Grounder, title, content string) *model.Document {
	doc := &model.Document{Title: title, Source: "advanced_example"}
	if err := g.Documents.InsertDocument(ctx, doc); err != nil {
		log.Fatalf("Failed to insert document: %v", err)
	}
	paragraphs := strings.Split(content, "\n\n")
	for i, paragraph := range paragraphs {
		fragment := &model.TextFragment{DocumentID: doc.ID, Position: i, Content: paragraph}
		if err := g.InsertFragment(ctx, fragment); err != nil {
			log.Fatalf("Failed to insert fragment: %v", err)
		}
	}
	fmt.Printf("Document '%s' (RID: %s): %d fragments\n", doc.Title, doc.RID, len(paragraphs))
	return doc
}

func printResponse(r *model.Response) {
	fmt.Printf("Answer (%s, %s): %s\n", r.Verdict, r.State, r.Response)
	for i, item := range r.Justification.Evidence {
		if i >= 3 {
			break // Show only first 3
		}
		text := item.Text
		if len(text) > 80 {
			text = text[:80] + "..."
		}
		fmt.Printf("  [%d] %s %s (%.3f): %s\n", item.Number, item.Kind, item.Label, item.Score, text)
	}
	if len(r.DegradedSources) > 0 {
		fmt.Printf("  degraded: %v\n", r.DegradedSources)
	}
}
