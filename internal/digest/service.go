package digest

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/moodlog/emotion-journal/internal/archive"
	"github.com/moodlog/emotion-journal/internal/models"
	"github.com/moodlog/emotion-journal/internal/notifications"
	"github.com/moodlog/emotion-journal/internal/storage"
	"github.com/sirupsen/logrus"
)

// TopEmotionCount is the number of emotions listed as strongest
const TopEmotionCount = 3

// Service builds, archives and delivers mood digests
type Service struct {
	storage  storage.StorageInterface
	archive  archive.ArchiveInterface
	notifier notifications.NotificationInterface
	now      func() time.Time
}

// NewService creates a new digest service. archive and notifier may be nil.
func NewService(storage storage.StorageInterface, archive archive.ArchiveInterface, notifier notifications.NotificationInterface) *Service {
	return &Service{
		storage:  storage,
		archive:  archive,
		notifier: notifier,
		now:      time.Now,
	}
}

// Window returns the look-back duration for a period
func Window(period string) time.Duration {
	switch period {
	case "daily":
		return 24 * time.Hour
	default:
		return 7 * 24 * time.Hour
	}
}

// Run builds the digest for period and hands it to the archive and notifier.
// Delivery errors are returned after archiving has been attempted.
func (s *Service) Run(ctx context.Context, period string) (*models.Digest, error) {
	start := s.now()
	logrus.Infof("Building %s mood digest", period)

	digest, err := s.Build(ctx, period)
	if err != nil {
		return nil, err
	}

	if s.archive != nil {
		if err := s.store(digest); err != nil {
			logrus.Errorf("Failed to archive digest: %v", err)
		}
	}

	if s.notifier != nil {
		if err := s.notifier.SendDigest(digest); err != nil {
			return digest, fmt.Errorf("failed to deliver digest: %w", err)
		}
	}

	logrus.Infof("Digest of %d entries completed in %v", digest.TotalEntries, time.Since(start))
	return digest, nil
}

// Build aggregates the journal entries in the period window
func (s *Service) Build(ctx context.Context, period string) (*models.Digest, error) {
	now := s.now()
	windowStart := now.Add(-Window(period))

	entries, err := s.storage.ListJournalEntriesSince(ctx, windowStart)
	if err != nil {
		return nil, fmt.Errorf("failed to load journal entries: %w", err)
	}

	return summarize(entries, period, now, windowStart), nil
}

func summarize(entries []models.JournalEntry, period string, now, windowStart time.Time) *models.Digest {
	digest := &models.Digest{
		GeneratedAt:    now,
		Period:         period,
		WindowStart:    windowStart,
		TotalEntries:   len(entries),
		DominantCounts: make(map[string]int),
		AverageScores:  make(map[string]float64),
		TopEmotions:    []string{},
	}

	totals := make(map[string]float64)
	counts := make(map[string]int)
	for _, entry := range entries {
		digest.DominantCounts[entry.DominantEmotion]++
		for emotion, score := range entry.EmotionScores {
			totals[emotion] += score
			counts[emotion]++
		}
	}

	for emotion, total := range totals {
		digest.AverageScores[emotion] = total / float64(counts[emotion])
	}

	emotions := make([]string, 0, len(digest.AverageScores))
	for emotion := range digest.AverageScores {
		emotions = append(emotions, emotion)
	}
	sort.Slice(emotions, func(i, j int) bool {
		a, b := digest.AverageScores[emotions[i]], digest.AverageScores[emotions[j]]
		if a != b {
			return a > b
		}
		return emotions[i] < emotions[j]
	})
	if len(emotions) > TopEmotionCount {
		emotions = emotions[:TopEmotionCount]
	}
	digest.TopEmotions = append(digest.TopEmotions, emotions...)

	return digest
}

func (s *Service) store(digest *models.Digest) error {
	data, err := json.MarshalIndent(digest, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal digest: %w", err)
	}

	filename := fmt.Sprintf("digests/digest-%s.json", digest.GeneratedAt.Format("2006-01-02-15-04-05"))
	return s.archive.Store(filename, data)
}
