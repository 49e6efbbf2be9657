package storage

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/moodlog/emotion-journal/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()
	s, err := NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func record(dominant string, score float64, summary string) models.EmotionRecord {
	return models.EmotionRecord{
		EmotionScores:    map[string]float64{dominant: score},
		DominantEmotion:  dominant,
		EmotionalSummary: summary,
	}
}

func TestNewSQLiteStorage_CreatesTables(t *testing.T) {
	s := newTestStorage(t)

	for _, table := range []string{"journal_history", "community_posts", "community_comments"} {
		var name string
		err := s.db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		assert.NoError(t, err, "table %q not found", table)
	}
}

func TestNewSQLiteStorage_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "journal.db")

	s, err := NewSQLiteStorage(path)
	require.NoError(t, err)

	_, err = s.AppendJournalEntry(context.Background(), record("Joy", 0.9, "ok"), time.Now())
	require.NoError(t, err)
	require.NoError(t, s.Close())

	reopened, err := NewSQLiteStorage(path)
	require.NoError(t, err)
	defer reopened.Close()

	entries, err := reopened.ListRecentJournalEntries(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestJournalEntries_RecentNewestFirst(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 9, 30, 15, 0, time.Local)

	var ids []int64
	for i := 0; i < 12; i++ {
		id, err := s.AppendJournalEntry(ctx, record(fmt.Sprintf("E%d", i), 0.5, "s"), base.Add(time.Duration(i)*time.Minute))
		require.NoError(t, err)
		ids = append(ids, id)
	}

	for i := 1; i < len(ids); i++ {
		assert.Greater(t, ids[i], ids[i-1])
	}

	entries, err := s.ListRecentJournalEntries(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 10)

	assert.Equal(t, "E11", entries[0].DominantEmotion)
	assert.Equal(t, "E2", entries[9].DominantEmotion)
	assert.Equal(t, "2026-03-01 09:41:15", entries[0].Timestamp)
	assert.Equal(t, map[string]float64{"E11": 0.5}, entries[0].EmotionScores)
	assert.Equal(t, "s", entries[0].EmotionalSummary)
}

func TestJournalEntries_NilScoresStoredAsEmpty(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	_, err := s.AppendJournalEntry(ctx, models.EmotionRecord{DominantEmotion: "Unknown"}, time.Now())
	require.NoError(t, err)

	entries, err := s.ListRecentJournalEntries(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.NotNil(t, entries[0].EmotionScores)
	assert.Empty(t, entries[0].EmotionScores)
}

func TestJournalEntries_Since(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.Local)

	_, err := s.AppendJournalEntry(ctx, record("Old", 1, ""), now.Add(-48*time.Hour))
	require.NoError(t, err)
	_, err = s.AppendJournalEntry(ctx, record("Recent", 1, ""), now.Add(-2*time.Hour))
	require.NoError(t, err)
	_, err = s.AppendJournalEntry(ctx, record("Now", 1, ""), now)
	require.NoError(t, err)

	entries, err := s.ListJournalEntriesSince(ctx, now.Add(-24*time.Hour))
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "Now", entries[0].DominantEmotion)
	assert.Equal(t, "Recent", entries[1].DominantEmotion)
}

func TestCommunity_PostsAndComments(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	first, err := s.AppendPost(ctx, "first post", "2026-03-01 10:00")
	require.NoError(t, err)
	second, err := s.AppendPost(ctx, "second post", "2026-03-01 11:00")
	require.NoError(t, err)

	_, err = s.AppendComment(ctx, first, "older comment", "2026-03-01 10:05")
	require.NoError(t, err)
	_, err = s.AppendComment(ctx, first, "newer comment", "2026-03-01 10:10")
	require.NoError(t, err)

	posts, err := s.ListPosts(ctx)
	require.NoError(t, err)
	require.Len(t, posts, 2)

	assert.Equal(t, second, posts[0].ID)
	assert.Equal(t, "second post", posts[0].Text)
	assert.Equal(t, 0, posts[0].CommentCount)
	assert.NotNil(t, posts[0].Comments)

	assert.Equal(t, first, posts[1].ID)
	assert.Equal(t, 2, posts[1].CommentCount)
	assert.Equal(t, "newer comment", posts[1].Comments[0].Text)
	assert.Equal(t, "older comment", posts[1].Comments[1].Text)

	comments, err := s.ListCommentsForPost(ctx, first)
	require.NoError(t, err)
	require.Len(t, comments, 2)
	assert.Equal(t, "newer comment", comments[0].Text)
	assert.Equal(t, first, comments[0].PostID)
	assert.Equal(t, "2026-03-01 10:10", comments[0].Timestamp)
}

func TestCommunity_CommentOnMissingPost(t *testing.T) {
	s := newTestStorage(t)

	_, err := s.AppendComment(context.Background(), 42, "hello", "2026-03-01 10:00")

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))

	comments, err := s.ListCommentsForPost(context.Background(), 42)
	require.NoError(t, err)
	assert.Empty(t, comments)
}

func TestConcurrentAppends(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	postID, err := s.AppendPost(ctx, "busy post", "2026-03-01 10:00")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.AppendJournalEntry(ctx, record("Joy", 0.5, ""), time.Now())
			assert.NoError(t, err)
			_, err = s.AppendComment(ctx, postID, fmt.Sprintf("comment %d", i), "2026-03-01 10:00")
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	entries, err := s.ListRecentJournalEntries(ctx, 100)
	require.NoError(t, err)
	assert.Len(t, entries, 20)

	seen := make(map[int64]bool)
	for _, e := range entries {
		assert.False(t, seen[e.ID], "duplicate id %d", e.ID)
		seen[e.ID] = true
	}

	comments, err := s.ListCommentsForPost(ctx, postID)
	require.NoError(t, err)
	assert.Len(t, comments, 20)
}
