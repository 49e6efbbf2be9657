package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/moodlog/emotion-journal/internal/models"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

// DefaultDBPath is used when no database path is configured
const DefaultDBPath = "journal_history.db"

var schema = []string{
	`CREATE TABLE IF NOT EXISTS journal_history (
		id               INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp        TEXT NOT NULL,
		dominant_emotion TEXT NOT NULL,
		emotion_scores   TEXT NOT NULL,
		summary          TEXT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS community_posts (
		id        INTEGER PRIMARY KEY AUTOINCREMENT,
		text      TEXT NOT NULL,
		timestamp TEXT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS community_comments (
		id        INTEGER PRIMARY KEY AUTOINCREMENT,
		post_id   INTEGER NOT NULL,
		comment   TEXT NOT NULL,
		timestamp TEXT NOT NULL,
		FOREIGN KEY(post_id) REFERENCES community_posts(id)
	)`,

	`CREATE INDEX IF NOT EXISTS idx_comments_post ON community_comments(post_id)`,
	`CREATE INDEX IF NOT EXISTS idx_journal_timestamp ON journal_history(timestamp)`,
}

// SQLiteStorage persists journal entries and community content in SQLite
type SQLiteStorage struct {
	db *sql.DB
}

// Ensure SQLiteStorage implements StorageInterface
var _ StorageInterface = (*SQLiteStorage)(nil)

// NewSQLiteStorage opens (creating if needed) the database at path.
// Pass ":memory:" for an in-memory database.
func NewSQLiteStorage(path string) (*SQLiteStorage, error) {
	if path == "" {
		path = DefaultDBPath
	}

	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A single connection serializes writes and keeps ":memory:" databases shared.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma %q: %w", p, err)
		}
	}

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to create schema: %w", err)
		}
	}

	logrus.Infof("Opened journal database %s", path)
	return &SQLiteStorage{db: db}, nil
}

// Close closes the underlying database
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// AppendJournalEntry stores an analysed entry and returns its id
func (s *SQLiteStorage) AppendJournalEntry(ctx context.Context, record models.EmotionRecord, timestamp time.Time) (int64, error) {
	scores := record.EmotionScores
	if scores == nil {
		scores = map[string]float64{}
	}

	encoded, err := json.Marshal(scores)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal emotion scores: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO journal_history (timestamp, dominant_emotion, emotion_scores, summary)
		VALUES (?, ?, ?, ?)`,
		timestamp.Format(models.TimestampLayout),
		record.DominantEmotion,
		string(encoded),
		record.EmotionalSummary,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert journal entry: %w", err)
	}

	return res.LastInsertId()
}

// ListRecentJournalEntries returns up to limit entries, newest first
func (s *SQLiteStorage) ListRecentJournalEntries(ctx context.Context, limit int) ([]models.JournalEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, timestamp, dominant_emotion, emotion_scores, summary
		FROM journal_history
		ORDER BY id DESC
		LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query journal entries (limit=%d): %w", limit, err)
	}
	defer rows.Close()

	return scanJournalEntries(rows)
}

// ListJournalEntriesSince returns entries created at or after since, newest first
func (s *SQLiteStorage) ListJournalEntriesSince(ctx context.Context, since time.Time) ([]models.JournalEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, timestamp, dominant_emotion, emotion_scores, summary
		FROM journal_history
		WHERE timestamp >= ?
		ORDER BY id DESC`,
		since.Format(models.TimestampLayout),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query journal entries since %s: %w", since.Format(models.TimestampLayout), err)
	}
	defer rows.Close()

	return scanJournalEntries(rows)
}

func scanJournalEntries(rows *sql.Rows) ([]models.JournalEntry, error) {
	entries := []models.JournalEntry{}
	for rows.Next() {
		var (
			entry  models.JournalEntry
			scores string
		)
		if err := rows.Scan(&entry.ID, &entry.Timestamp, &entry.DominantEmotion, &scores, &entry.EmotionalSummary); err != nil {
			return nil, fmt.Errorf("failed to scan journal entry: %w", err)
		}

		entry.EmotionScores = map[string]float64{}
		if scores != "" {
			if err := json.Unmarshal([]byte(scores), &entry.EmotionScores); err != nil {
				return nil, fmt.Errorf("failed to decode scores of entry %d: %w", entry.ID, err)
			}
		}

		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate journal entries: %w", err)
	}

	return entries, nil
}

// AppendPost stores an already redacted community post
func (s *SQLiteStorage) AppendPost(ctx context.Context, text, timestamp string) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO community_posts (text, timestamp) VALUES (?, ?)`,
		text, timestamp,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert post: %w", err)
	}

	return res.LastInsertId()
}

// ListPosts returns every post newest first, each with its comments newest first
func (s *SQLiteStorage) ListPosts(ctx context.Context) ([]models.CommunityPost, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, text, timestamp FROM community_posts ORDER BY id DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query posts: %w", err)
	}

	posts := []models.CommunityPost{}
	index := make(map[int64]int)
	for rows.Next() {
		var post models.CommunityPost
		if err := rows.Scan(&post.ID, &post.Text, &post.Timestamp); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan post: %w", err)
		}
		post.Comments = []models.CommunityComment{}
		index[post.ID] = len(posts)
		posts = append(posts, post)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("failed to iterate posts: %w", err)
	}
	rows.Close()

	// Rows must be closed before the next query: the pool holds one connection.
	comments, err := s.queryComments(ctx,
		`SELECT id, post_id, comment, timestamp FROM community_comments ORDER BY id DESC`,
	)
	if err != nil {
		return nil, err
	}

	for _, comment := range comments {
		i, ok := index[comment.PostID]
		if !ok {
			continue
		}
		posts[i].Comments = append(posts[i].Comments, comment)
	}
	for i := range posts {
		posts[i].CommentCount = len(posts[i].Comments)
	}

	return posts, nil
}

// AppendComment stores an already redacted comment on an existing post.
// Returns ErrNotFound when the post does not exist.
func (s *SQLiteStorage) AppendComment(ctx context.Context, postID int64, text, timestamp string) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM community_posts WHERE id = ?`, postID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("post %d: %w", postID, ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to look up post %d: %w", postID, err)
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO community_comments (post_id, comment, timestamp) VALUES (?, ?, ?)`,
		postID, text, timestamp,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert comment: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit comment: %w", err)
	}

	return id, nil
}

// ListCommentsForPost returns the comments of one post, newest first
func (s *SQLiteStorage) ListCommentsForPost(ctx context.Context, postID int64) ([]models.CommunityComment, error) {
	return s.queryComments(ctx,
		`SELECT id, post_id, comment, timestamp FROM community_comments WHERE post_id = ? ORDER BY id DESC`,
		postID,
	)
}

func (s *SQLiteStorage) queryComments(ctx context.Context, query string, args ...interface{}) ([]models.CommunityComment, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query comments: %w", err)
	}
	defer rows.Close()

	comments := []models.CommunityComment{}
	for rows.Next() {
		var c models.CommunityComment
		if err := rows.Scan(&c.ID, &c.PostID, &c.Text, &c.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan comment: %w", err)
		}
		comments = append(comments, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate comments: %w", err)
	}

	return comments, nil
}
