package storage

import (
	"context"
	"errors"
	"time"

	"github.com/moodlog/emotion-journal/internal/models"
)

// ErrNotFound is returned when a referenced record does not exist
var ErrNotFound = errors.New("not found")

// StorageInterface defines the contract for journal and community persistence
type StorageInterface interface {
	AppendJournalEntry(ctx context.Context, record models.EmotionRecord, timestamp time.Time) (int64, error)
	ListRecentJournalEntries(ctx context.Context, limit int) ([]models.JournalEntry, error)
	ListJournalEntriesSince(ctx context.Context, since time.Time) ([]models.JournalEntry, error)

	AppendPost(ctx context.Context, text, timestamp string) (int64, error)
	ListPosts(ctx context.Context) ([]models.CommunityPost, error)
	AppendComment(ctx context.Context, postID int64, text, timestamp string) (int64, error)
	ListCommentsForPost(ctx context.Context, postID int64) ([]models.CommunityComment, error)

	Close() error
}
