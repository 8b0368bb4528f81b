package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/siherrmann/grounder"
	"github.com/siherrmann/grounder/core/llm"
	"github.com/siherrmann/grounder/helper"
	"github.com/siherrmann/grounder/model"
)

const sampleContent = `Graph databases are designed to store and query data with complex relationships.

They use nodes to represent entities and edges to represent relationships between them.

PostgreSQL with extensions like pgvector can be used to build retrieval systems.
The pgvector extension enables vector similarity search over embeddings.

Combining vector search with facts and graph paths allows for hybrid retrieval strategies.`

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

	generator, err := llm.NewOpenAIGenerator(llm.OpenAIConfig{APIKey: os.Getenv("OPENAI_API_KEY")}, nil)
	if err != nil {
		log.Fatalf("Failed to create generator: %v", err)
	}

	g, err := grounder.NewGrounder(dbConfig, generator)
	if err != nil {
		log.Fatalf("Failed to create grounder: %v", err)
	}
	defer g.Close()

	// Embeddings for fragments and queries
	if err := g.UseDefaultPipeline(); err != nil {
		log.Fatalf("Failed to set up pipeline: %v", err)
	}

	ctx := context.Background()
	doc := &model.Document{
		Title:  "Introduction to Graph Databases",
		Source: "basic_example",
		Metadata: model.Metadata{
			"author": "Example Author",
		},
	}
	if err := g.Documents.InsertDocument(ctx, doc); err != nil {
		log.Fatalf("Failed to insert document: %v", err)
	}

	// One fragment per paragraph
	for i, paragraph := range strings.Split(sampleContent, "\n\n") {
		fragment := &model.TextFragment{DocumentID: doc.ID, Position: i, Content: paragraph}
		if err := g.InsertFragment(ctx, fragment); err != nil {
			log.Fatalf("Failed to insert fragment: %v", err)
		}
	}
	fmt.Printf("Document inserted with ID: %s\n", doc.RID)

	queryText := "What are graph databases?"
	fmt.Printf("\nQuerying: %s\n", queryText)

	topK := 3
	response, err := g.Answer(ctx, model.Request{
		Query:    queryText,
		Policy:   string(model.PolicyText),
		Settings: &model.Settings{TopK: &topK},
	})
	if err != nil {
		log.Fatalf("Failed to answer: %v", err)
	}

	fmt.Printf("\nAnswer (%s): %s\n", response.Verdict, response.Response)
	for _, item := range response.Justification.Evidence {
		fmt.Printf("  [%d] %s (%.4f) %s\n", item.Number, item.Label, item.Score, item.Text)
	}
	fmt.Printf("\nTokens: %d, total time: %.2fs\n", response.Metrics.TokensUsed, response.Metrics.TotalTime)

	fmt.Println("\nBasic example completed successfully!")
}
