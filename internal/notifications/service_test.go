package notifications

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/moodlog/emotion-journal/internal/config"
	"github.com/moodlog/emotion-journal/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDigest() *models.Digest {
	return &models.Digest{
		GeneratedAt:    time.Date(2026, 3, 8, 9, 0, 0, 0, time.UTC),
		Period:         "weekly",
		WindowStart:    time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
		TotalEntries:   4,
		DominantCounts: map[string]int{"Joy": 3, "Sadness": 1},
		AverageScores:  map[string]float64{"Joy": 0.7, "Sadness": 0.4},
		TopEmotions:    []string{"Joy", "Sadness"},
	}
}

func TestService_SendDigest_Teams(t *testing.T) {
	var received TeamsMessage
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	service := NewService(&config.Config{TeamsWebhookURL: server.URL})

	require.NoError(t, service.SendDigest(sampleDigest()))
	assert.Equal(t, "MessageCard", received.Type)
	assert.Equal(t, "Mood Digest - Weekly", received.Title)
	require.Len(t, received.Sections, 2)
	assert.Contains(t, received.Sections[1].ActivityText, "**Joy** - average 0.70")
}

func TestService_SendDigest_TeamsFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	service := NewService(&config.Config{TeamsWebhookURL: server.URL})

	err := service.SendDigest(sampleDigest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Teams")
}

func TestService_SendDigest_EmailWithoutSMTP(t *testing.T) {
	service := NewService(&config.Config{NotificationEmail: "me@example.com"})

	err := service.SendDigest(sampleDigest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SMTP is not configured")
}

func TestService_Enabled(t *testing.T) {
	assert.False(t, NewService(&config.Config{}).Enabled())
	assert.True(t, NewService(&config.Config{TeamsWebhookURL: "http://hook"}).Enabled())
}

func TestBuildEmailBodies(t *testing.T) {
	html, err := buildEmailHTML(sampleDigest())
	require.NoError(t, err)
	assert.Contains(t, html, "Weekly digest generated")
	assert.Contains(t, html, "Joy (0.70)")

	text := buildEmailText(sampleDigest())
	assert.Contains(t, text, "Journal Entries: 4")
	assert.Contains(t, text, "Joy: dominant in 3")
	assert.Contains(t, text, "1. Joy (0.70)")
}
