package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/siherrmann/medrag"
	"github.com/siherrmann/medrag/core/retrieval"
	"github.com/siherrmann/medrag/helper"
	"github.com/siherrmann/medrag/model"
)

const sampleContent1 = `The common cold is a viral infection of the upper respiratory tract. Symptoms include a runny nose, sore throat, cough and mild fever.

Influenza is caused by influenza viruses and usually starts suddenly with fever, muscle aches and fatigue.`

const sampleContent2 = `Vitamin K is needed for blood clotting and bone metabolism. It is found in leafy green vegetables.

Chronic pain lasts longer than three months and is often managed with a combination of medication, physical therapy and psychological support.`

func main() {
	// Start a test PostgreSQL container with pgvector
	teardown, dbPort, err := helper.MustStartPostgresContainer()
	if err != nil {
		log.Fatalf("Failed to start PostgreSQL container: %v", err)
	}
	defer teardown(context.Background())

	config, err := helper.NewConfiguration(".env")
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	config.StoreProvider = "pgvector"
	config.Policy = "two_phase"

	// The pgvector store reads its connection from the DB_* environment
	for key, value := range map[string]string{
		"DB_HOST":     "localhost",
		"DB_PORT":     dbPort,
		"DB_DATABASE": "database",
		"DB_USERNAME": "user",
		"DB_PASSWORD": "password",
		"DB_SCHEMA":   "public",
		"DB_SSLMODE":  "disable",
	} {
		if err := os.Setenv(key, value); err != nil {
			log.Fatalf("Failed to set %s: %v", key, err)
		}
	}

	m, err := medrag.New(config, nil)
	if err != nil {
		log.Fatalf("Failed to create medrag: %v", err)
	}
	defer m.Close()

	ctx := context.Background()

	fmt.Println("=== Ingesting Documents ===")
	for i, content := range []string{sampleContent1, sampleContent2} {
		doc := &model.Document{
			Title:    fmt.Sprintf("Sample %d", i+1),
			Source:   "advanced_example",
			Content:  content,
			LoadedAt: time.Now(),
		}
		result, err := m.IngestDocument(ctx, doc)
		if err != nil {
			log.Fatalf("Failed to ingest document %d: %v", i+1, err)
		}
		fmt.Printf("Document %d '%s': %d chunks, %d new\n", i+1, doc.Title, result.Chunks, result.Inserted)
	}

	queryText := "What are the symptoms of a common cold?"

	// 1. Vector-only retrieval
	fmt.Println("\n=== 1. Vector-Only Retrieval ===")
	vectorConfig := model.DefaultQueryConfig()
	vectorConfig.TopK = 3
	vectorResults, err := m.Services.Engine.Retrieve(ctx, queryText, &vectorConfig)
	if err != nil {
		log.Fatalf("Vector retrieval failed: %v", err)
	}
	printResults("Vector Retrieval", vectorResults)

	// 2. Retrieval with a distance threshold
	fmt.Println("\n=== 2. Distance Threshold Retrieval ===")
	m.Services.Engine.UseStrategy(retrieval.NewDistanceThresholdStrategy(m.Services.Engine))
	thresholdConfig := model.DefaultQueryConfig()
	thresholdConfig.TopK = 3
	thresholdConfig.MaxDistance = 0.5
	thresholdResults, err := m.Services.Engine.Retrieve(ctx, queryText, &thresholdConfig)
	if err != nil {
		log.Fatalf("Threshold retrieval failed: %v", err)
	}
	printResults("Distance Threshold Retrieval", thresholdResults)

	// 3. Two phase answers
	fmt.Println("\n=== 3. Two Phase Answers ===")
	for _, question := range []string{
		queryText,
		"What is the role of Vitamin K in human body?",
		"What is quantum physics?",
	} {
		fmt.Printf("\nUser: %s\nAssistant: %s\n", question, m.Ask(ctx, question))
	}
}

func printResults(title string, result *model.RetrievalResult) {
	fmt.Printf("%s returned %d chunks\n", title, result.Len())
	for i, chunk := range result.Chunks {
		fmt.Printf("  %d. [%.4f] %s\n", i+1, chunk.Distance, chunk.Content)
	}
}
