package notifications

import "github.com/moodlog/emotion-journal/internal/models"

// NotificationInterface defines the contract for digest delivery
type NotificationInterface interface {
	SendDigest(digest *models.Digest) error
}
