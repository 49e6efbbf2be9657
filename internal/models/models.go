package models

import "time"

// Sentinel emotion labels used on degraded paths
const (
	EmotionUnknown = "Unknown"
	EmotionNeutral = "Neutral"
)

// TimestampLayout is the second-precision layout used for journal entries
const TimestampLayout = "2006-01-02 15:04:05"

// CommunityTimestampLayout is the default layout for posts and comments
const CommunityTimestampLayout = "2006-01-02 15:04"

// EmotionRecord is the structured result of analysing a journal entry
type EmotionRecord struct {
	EmotionScores    map[string]float64 `json:"EmotionScores"`
	DominantEmotion  string             `json:"DominantEmotion"`
	EmotionalSummary string             `json:"EmotionalSummary"`
}

// JournalEntry is a persisted analysis
type JournalEntry struct {
	ID        int64  `json:"id"`
	Timestamp string `json:"timestamp"`
	EmotionRecord
}

// CommunityPost represents a redacted community post with its comments
type CommunityPost struct {
	ID           int64              `json:"id"`
	Text         string             `json:"text"`
	Timestamp    string             `json:"timestamp"`
	Comments     []CommunityComment `json:"comments"`
	CommentCount int                `json:"comment_count"`
}

// CommunityComment belongs to exactly one post
type CommunityComment struct {
	ID        int64  `json:"-"`
	PostID    int64  `json:"-"`
	Text      string `json:"comment"`
	Timestamp string `json:"timestamp"`
}

// Digest summarises journal entries over a period
type Digest struct {
	GeneratedAt    time.Time          `json:"generated_at"`
	Period         string             `json:"period"` // "daily", "weekly" or "manual"
	WindowStart    time.Time          `json:"window_start"`
	TotalEntries   int                `json:"total_entries"`
	DominantCounts map[string]int     `json:"dominant_counts"`
	AverageScores  map[string]float64 `json:"average_scores"`
	TopEmotions    []string           `json:"top_emotions"`
}
