package main

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/moodlog/emotion-journal/internal/analysis"
	"github.com/moodlog/emotion-journal/internal/config"
	"github.com/moodlog/emotion-journal/internal/extract"
	"github.com/moodlog/emotion-journal/internal/inference"
)

const sampleEntry = "I finally finished the project, but I'm worried nobody will notice."

func main() {
	fmt.Println("🔍 Emotion Journal - Model Connectivity Test")
	fmt.Println("============================================")

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	gateway := inference.NewGateway(inference.Config{
		BaseURL:  cfg.InferenceBaseURL,
		Primary:  inference.Backend{Name: "primary", Model: cfg.PrimaryModel, APIKey: cfg.PrimaryAPIKey},
		Fallback: inference.Backend{Name: "fallback", Model: cfg.FallbackModel, APIKey: cfg.FallbackAPIKey},
		Timeout:  cfg.InferenceTimeout,
		Referer:  cfg.AppReferer,
		Title:    cfg.AppTitle,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*cfg.InferenceTimeout)
	defer cancel()

	prompt := analysis.BuildPrompt(sampleEntry)

	fmt.Println("\n📡 Testing models...")
	fmt.Println(strings.Repeat("-", 40))

	testBackend(ctx, gateway, gateway.Primary(), prompt)
	testBackend(ctx, gateway, gateway.Fallback(), prompt)

	fmt.Println("\n✅ Model connectivity test completed!")
}

func testBackend(ctx context.Context, gateway *inference.Gateway, backend inference.Backend, prompt string) {
	fmt.Printf("🔸 Testing %s (%s)... ", backend.Name, backend.Model)

	start := time.Now()
	output, err := gateway.Complete(ctx, backend, prompt)
	if err != nil {
		fmt.Printf("❌ ERROR: %v\n", err)
		return
	}

	record, degraded := extract.Parse(output)
	if degraded {
		fmt.Printf("⚠️  UNPARSEABLE (%v)\n", time.Since(start).Round(time.Millisecond))
		fmt.Printf("   📝 Raw: %q\n", record.EmotionalSummary)
		return
	}

	fmt.Printf("✅ SUCCESS (%v)\n", time.Since(start).Round(time.Millisecond))
	fmt.Printf("   📝 Dominant: %s, scores: %v\n", record.DominantEmotion, record.EmotionScores)
}
