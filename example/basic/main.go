package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/siherrmann/medrag"
	"github.com/siherrmann/medrag/helper"
	"github.com/siherrmann/medrag/model"
)

const sampleContent = `Fever is a common symptom of infection. A body temperature above 38 degrees Celsius is usually considered a fever.

Hypertension, or high blood pressure, is a long-term condition in which the blood pressure in the arteries is persistently elevated.

Type 2 diabetes mellitus is a metabolic disorder characterised by high blood sugar and insulin resistance. Without complications it is coded as E11.9 in ICD-10.`

func main() {
	// Reads GEMINI_API_KEY from .env or the environment
	config, err := helper.NewConfiguration(".env")
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	storeDir, err := os.MkdirTemp("", "medrag-basic")
	if err != nil {
		log.Fatalf("Failed to create store directory: %v", err)
	}
	defer os.RemoveAll(storeDir)
	config.StorePath = storeDir

	m, err := medrag.New(config, nil)
	if err != nil {
		log.Fatalf("Failed to create medrag: %v", err)
	}
	defer m.Close()

	ctx := context.Background()

	doc := &model.Document{
		Title:    "Basic medical facts",
		Source:   "basic_example",
		Content:  sampleContent,
		LoadedAt: time.Now(),
	}
	result, err := m.IngestDocument(ctx, doc)
	if err != nil {
		log.Fatalf("Failed to ingest document: %v", err)
	}
	fmt.Printf("Ingested %d chunks (%d new, %d total)\n", result.Chunks, result.Inserted, result.Total)

	for _, question := range []string{
		"hello",
		"What is a normal body temperature and when is it a fever?",
		"What is the ICD-10 code for type 2 diabetes without complications?",
		"How do I bake a lasagna?",
	} {
		fmt.Printf("\nUser: %s\nAssistant: %s\n", question, m.Ask(ctx, question))
	}
}
