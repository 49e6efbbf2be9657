// Package extract recovers an EmotionRecord from free-form model output.
//
// Model responses are not guaranteed to be valid JSON: they may wrap the
// object in prose, use single quotes or leave trailing commas. Extract repairs
// the common cases and falls back to a sentinel record when nothing can be
// parsed, so callers always receive a well-formed value.
package extract

import (
	"encoding/json"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/moodlog/emotion-journal/internal/models"
)

// MaxSummaryLength bounds the summary of a degraded record, in runes
const MaxSummaryLength = 400

var (
	objectSpan    = regexp.MustCompile(`(?s)\{.*\}`)
	trailingComma = regexp.MustCompile(`,\s*([}\]])`)
)

// Extract returns the EmotionRecord contained in raw. It never fails.
func Extract(raw string) models.EmotionRecord {
	record, _ := Parse(raw)
	return record
}

// Parse is Extract that also reports whether the record is the degraded fallback
func Parse(raw string) (models.EmotionRecord, bool) {
	candidate := objectSpan.FindString(raw)
	if candidate == "" {
		candidate = raw
	}

	// Valid JSON is taken as is; repair would corrupt apostrophes in strings.
	var decoded interface{}
	if err := json.Unmarshal([]byte(candidate), &decoded); err != nil {
		if err := json.Unmarshal([]byte(repair(candidate)), &decoded); err != nil {
			return Degraded(raw), true
		}
	}

	fields, ok := decoded.(map[string]interface{})
	if !ok {
		return Degraded(raw), true
	}

	return coerce(fields), false
}

// Degraded builds the sentinel record for unparseable output
func Degraded(raw string) models.EmotionRecord {
	return models.EmotionRecord{
		EmotionScores:    map[string]float64{models.EmotionUnknown: 1.0},
		DominantEmotion:  models.EmotionUnknown,
		EmotionalSummary: truncate(strings.TrimSpace(raw), MaxSummaryLength),
	}
}

func repair(candidate string) string {
	repaired := strings.ReplaceAll(candidate, "'", `"`)
	return trailingComma.ReplaceAllString(repaired, "$1")
}

func coerce(fields map[string]interface{}) models.EmotionRecord {
	record := models.EmotionRecord{
		EmotionScores: make(map[string]float64),
	}

	if raw, ok := lookup(fields, "EmotionScores", "scores", "emotions"); ok {
		if scores, ok := raw.(map[string]interface{}); ok {
			for label, value := range scores {
				if score, ok := toFloat(value); ok {
					record.EmotionScores[label] = score
				}
			}
		}
	}

	if raw, ok := lookup(fields, "DominantEmotion", "dominant"); ok {
		if label, ok := raw.(string); ok {
			record.DominantEmotion = strings.TrimSpace(label)
		}
	}

	if raw, ok := lookup(fields, "EmotionalSummary", "summary"); ok {
		if summary, ok := raw.(string); ok {
			record.EmotionalSummary = summary
		}
	}

	if _, known := record.EmotionScores[record.DominantEmotion]; !known {
		record.DominantEmotion = strongest(record.EmotionScores, record.DominantEmotion)
	}

	return record
}

// lookup finds a field by its canonical key, then by normalised name
// ignoring case, '_' and '-'. Colliding keys resolve in sorted order.
func lookup(fields map[string]interface{}, canonical string, aliases ...string) (interface{}, bool) {
	if value, ok := fields[canonical]; ok {
		return value, true
	}

	keys := make([]string, 0, len(fields))
	for key := range fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, name := range append([]string{normalize(canonical)}, aliases...) {
		for _, key := range keys {
			if normalize(key) == name {
				return fields[key], true
			}
		}
	}
	return nil, false
}

func normalize(key string) string {
	key = strings.ToLower(strings.TrimSpace(key))
	return strings.NewReplacer("_", "", "-", "", " ", "").Replace(key)
}

// toFloat accepts finite numbers and numeric strings
func toFloat(value interface{}) (float64, bool) {
	var parsed float64
	switch v := value.(type) {
	case float64:
		parsed = v
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, false
		}
		parsed = f
	default:
		return 0, false
	}

	if math.IsNaN(parsed) || math.IsInf(parsed, 0) {
		return 0, false
	}
	return parsed, true
}

// strongest picks the highest scoring label; ties resolve alphabetically.
// With no scores the current label is kept, or Unknown if blank.
func strongest(scores map[string]float64, current string) string {
	if len(scores) == 0 {
		if current == "" {
			return models.EmotionUnknown
		}
		return current
	}

	best := ""
	for label, score := range scores {
		if best == "" || score > scores[best] || (score == scores[best] && label < best) {
			best = label
		}
	}
	return best
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
