package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/moodlog/emotion-journal/internal/extract"
	"github.com/moodlog/emotion-journal/internal/inference"
	"github.com/moodlog/emotion-journal/internal/models"
	"github.com/moodlog/emotion-journal/internal/storage"
	"github.com/sirupsen/logrus"
)

// HistoryLimit is the number of entries served by the history endpoint
const HistoryLimit = 10

// NeutralSummary is returned for blank input
const NeutralSummary = "No text provided."

const promptTemplate = `
Analyze the following journal text and detect emotions:
%s
Return JSON only:
{
  "EmotionScores": {"Joy": 0.8, "Sadness": 0.1},
  "DominantEmotion": "Joy",
  "EmotionalSummary": "You seem joyful and relaxed today."
}
`

// Service turns journal text into persisted emotion records
type Service struct {
	inferrer inference.Inferrer
	storage  storage.StorageInterface
	now      func() time.Time
	metrics  *Metrics
	mu       sync.RWMutex
}

// Metrics holds analysis counters
type Metrics struct {
	TotalAnalyses        int            `json:"total_analyses"`
	BlankInputs          int            `json:"blank_inputs"`
	DegradedExtractions  int            `json:"degraded_extractions"`
	InferenceFailures    int            `json:"inference_failures"`
	StorageFailures      int            `json:"storage_failures"`
	DominantBreakdown    map[string]int `json:"dominant_breakdown"`
	LastAnalysis         time.Time      `json:"last_analysis"`
	LastAnalysisDuration string         `json:"last_analysis_duration"`
}

// NewService creates a new analysis service
func NewService(inferrer inference.Inferrer, storage storage.StorageInterface) *Service {
	return &Service{
		inferrer: inferrer,
		storage:  storage,
		now:      time.Now,
		metrics: &Metrics{
			DominantBreakdown: make(map[string]int),
		},
	}
}

// NeutralRecord is the result for blank input
func NeutralRecord() models.EmotionRecord {
	return models.EmotionRecord{
		EmotionScores:    map[string]float64{models.EmotionNeutral: 1.0},
		DominantEmotion:  models.EmotionNeutral,
		EmotionalSummary: NeutralSummary,
	}
}

// BuildPrompt embeds the journal text in the analysis instructions
func BuildPrompt(text string) string {
	return fmt.Sprintf(promptTemplate, text)
}

// Analyze infers, extracts and persists the emotion record for text.
// Blank text short-circuits to the neutral record without inference or
// persistence. When inference fails nothing is persisted.
func (s *Service) Analyze(ctx context.Context, text string) (models.EmotionRecord, error) {
	start := s.now()

	if strings.TrimSpace(text) == "" {
		s.record(func(m *Metrics) { m.BlankInputs++ })
		logrus.Debug("Blank journal text, returning neutral record")
		return NeutralRecord(), nil
	}

	output, err := s.inferrer.Infer(ctx, BuildPrompt(text))
	if err != nil {
		s.record(func(m *Metrics) { m.InferenceFailures++ })
		logrus.Errorf("Emotion analysis failed: %v", err)
		return models.EmotionRecord{}, err
	}

	result, degraded := extract.Parse(output)
	if degraded {
		logrus.WithField("output_length", len(output)).Warn("Model output was not parseable, using degraded record")
	}

	id, err := s.storage.AppendJournalEntry(ctx, result, start)
	if err != nil {
		s.record(func(m *Metrics) { m.StorageFailures++ })
		return models.EmotionRecord{}, fmt.Errorf("failed to store journal entry: %w", err)
	}

	s.record(func(m *Metrics) {
		m.TotalAnalyses++
		if degraded {
			m.DegradedExtractions++
		}
		m.DominantBreakdown[result.DominantEmotion]++
		m.LastAnalysis = s.now()
		m.LastAnalysisDuration = m.LastAnalysis.Sub(start).String()
	})

	logrus.WithFields(logrus.Fields{
		"entry_id": id,
		"dominant": result.DominantEmotion,
		"degraded": degraded,
	}).Info("Stored journal entry")

	return result, nil
}

// History returns the most recent journal entries, newest first
func (s *Service) History(ctx context.Context) ([]models.JournalEntry, error) {
	return s.storage.ListRecentJournalEntries(ctx, HistoryLimit)
}

func (s *Service) record(update func(m *Metrics)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	update(s.metrics)
}

// GetMetrics returns current metrics as JSON
func (s *Service) GetMetrics() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, _ := json.MarshalIndent(s.metrics, "", "  ")
	return string(data)
}
