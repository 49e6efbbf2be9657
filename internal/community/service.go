package community

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/moodlog/emotion-journal/internal/models"
	"github.com/moodlog/emotion-journal/internal/redact"
	"github.com/moodlog/emotion-journal/internal/storage"
	"github.com/sirupsen/logrus"
)

var (
	// ErrEmptyPost is returned when a post has no text after trimming
	ErrEmptyPost = errors.New("Empty post")
	// ErrEmptyComment is returned when a comment has no text after trimming
	ErrEmptyComment = errors.New("Empty comment")
)

// Service handles redacted community posts and comments
type Service struct {
	storage  storage.StorageInterface
	redactor *redact.Redactor
	now      func() time.Time
}

// NewService creates a new community service
func NewService(storage storage.StorageInterface, redactor *redact.Redactor) *Service {
	if redactor == nil {
		redactor = redact.New(redact.DefaultTerms)
	}
	return &Service{
		storage:  storage,
		redactor: redactor,
		now:      time.Now,
	}
}

// CreatePost trims and redacts text, then stores it. A blank timestamp
// defaults to the current minute.
func (s *Service) CreatePost(ctx context.Context, text, timestamp string) (int64, error) {
	text = s.redactor.Redact(strings.TrimSpace(text))
	if text == "" {
		return 0, ErrEmptyPost
	}

	id, err := s.storage.AppendPost(ctx, text, s.timestamp(timestamp))
	if err != nil {
		return 0, err
	}

	logrus.WithField("post_id", id).Info("Community post added")
	return id, nil
}

// AddComment trims and redacts a comment, then attaches it to postID
func (s *Service) AddComment(ctx context.Context, postID int64, comment, timestamp string) (int64, error) {
	comment = s.redactor.Redact(strings.TrimSpace(comment))
	if comment == "" {
		return 0, ErrEmptyComment
	}

	id, err := s.storage.AppendComment(ctx, postID, comment, s.timestamp(timestamp))
	if err != nil {
		return 0, err
	}

	logrus.WithFields(logrus.Fields{"post_id": postID, "comment_id": id}).Info("Community comment added")
	return id, nil
}

// ListPosts returns every post newest first with nested comments
func (s *Service) ListPosts(ctx context.Context) ([]models.CommunityPost, error) {
	return s.storage.ListPosts(ctx)
}

func (s *Service) timestamp(supplied string) string {
	if strings.TrimSpace(supplied) != "" {
		return supplied
	}
	return s.now().Format(models.CommunityTimestampLayout)
}
