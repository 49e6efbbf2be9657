package notifications

import (
	"bytes"
	"fmt"
	"html/template"
	"sort"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/moodlog/emotion-journal/internal/config"
	"github.com/moodlog/emotion-journal/internal/models"
	"github.com/sirupsen/logrus"
	"gopkg.in/gomail.v2"
)

// Service delivers digests via Teams webhook and email
type Service struct {
	config *config.Config
	client *resty.Client
	dialer *gomail.Dialer
}

// Ensure Service implements NotificationInterface
var _ NotificationInterface = (*Service)(nil)

// TeamsMessage represents a Microsoft Teams message card
type TeamsMessage struct {
	Type     string         `json:"@type"`
	Context  string         `json:"@context"`
	Title    string         `json:"title"`
	Text     string         `json:"text"`
	Sections []TeamsSection `json:"sections,omitempty"`
}

type TeamsSection struct {
	ActivityTitle string      `json:"activityTitle,omitempty"`
	ActivityText  string      `json:"activityText,omitempty"`
	Facts         []TeamsFact `json:"facts,omitempty"`
	Markdown      bool        `json:"markdown,omitempty"`
}

type TeamsFact struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// NewService creates a new notification service
func NewService(cfg *config.Config) *Service {
	s := &Service{
		config: cfg,
		client: resty.New().SetTimeout(30 * time.Second),
	}
	if cfg.SMTPHost != "" {
		s.dialer = gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword)
	}
	return s
}

// Enabled reports whether any delivery channel is configured
func (s *Service) Enabled() bool {
	return s.config.TeamsWebhookURL != "" || s.config.NotificationEmail != ""
}

// SendDigest sends a digest to every configured channel
func (s *Service) SendDigest(digest *models.Digest) error {
	var errors []string

	if s.config.TeamsWebhookURL != "" {
		if err := s.sendToTeams(digest); err != nil {
			logrus.Errorf("Failed to send Teams notification: %v", err)
			errors = append(errors, fmt.Sprintf("Teams: %v", err))
		} else {
			logrus.Info("Successfully sent digest to Teams")
		}
	}

	if s.config.NotificationEmail != "" {
		if err := s.sendEmail(digest); err != nil {
			logrus.Errorf("Failed to send email notification: %v", err)
			errors = append(errors, fmt.Sprintf("Email: %v", err))
		} else {
			logrus.Info("Successfully sent digest via email")
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("notification errors: %s", strings.Join(errors, "; "))
	}

	return nil
}

func (s *Service) sendToTeams(digest *models.Digest) error {
	resp, err := s.client.R().
		SetHeader("Content-Type", "application/json").
		SetBody(buildTeamsMessage(digest)).
		Post(s.config.TeamsWebhookURL)

	if err != nil {
		return fmt.Errorf("failed to send Teams message: %w", err)
	}

	if !resp.IsSuccess() {
		return fmt.Errorf("Teams webhook returned status %d: %s", resp.StatusCode(), string(resp.Body()))
	}

	return nil
}

func buildTeamsMessage(digest *models.Digest) *TeamsMessage {
	message := &TeamsMessage{
		Type:    "MessageCard",
		Context: "https://schema.org/extensions",
		Title:   fmt.Sprintf("Mood Digest - %s", titleCase(digest.Period)),
		Text:    fmt.Sprintf("%d journal entries since %s", digest.TotalEntries, digest.WindowStart.Format("Jan 2 15:04")),
	}

	facts := []TeamsFact{
		{Name: "Total Entries", Value: fmt.Sprintf("%d", digest.TotalEntries)},
		{Name: "Generated", Value: digest.GeneratedAt.Format(models.TimestampLayout)},
	}
	for _, emotion := range sortedKeys(digest.DominantCounts) {
		facts = append(facts, TeamsFact{
			Name:  fmt.Sprintf("Dominant %s", emotion),
			Value: fmt.Sprintf("%d", digest.DominantCounts[emotion]),
		})
	}

	message.Sections = append(message.Sections, TeamsSection{
		ActivityTitle: "Summary",
		Facts:         facts,
		Markdown:      true,
	})

	if len(digest.TopEmotions) > 0 {
		var lines []string
		for _, emotion := range digest.TopEmotions {
			lines = append(lines, fmt.Sprintf("**%s** - average %.2f", emotion, digest.AverageScores[emotion]))
		}
		message.Sections = append(message.Sections, TeamsSection{
			ActivityTitle: "Strongest Emotions",
			ActivityText:  strings.Join(lines, "\n\n"),
			Markdown:      true,
		})
	}

	return message
}

func (s *Service) sendEmail(digest *models.Digest) error {
	if s.dialer == nil {
		return fmt.Errorf("SMTP is not configured")
	}

	htmlBody, err := buildEmailHTML(digest)
	if err != nil {
		return fmt.Errorf("failed to build email HTML: %w", err)
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.config.SMTPUsername)
	m.SetHeader("To", s.config.NotificationEmail)
	m.SetHeader("Subject", fmt.Sprintf("Mood Digest - %s (%d entries)", titleCase(digest.Period), digest.TotalEntries))
	m.SetBody("text/plain", buildEmailText(digest))
	m.AddAlternative("text/html", htmlBody)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	return nil
}

const emailTemplate = `
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>Mood Digest</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 20px; }
        .header { background-color: #6b5b95; color: white; padding: 20px; border-radius: 5px; }
        .summary { background-color: #f5f5f5; padding: 15px; margin: 20px 0; border-radius: 5px; }
    </style>
</head>
<body>
    <div class="header">
        <h1>Mood Digest</h1>
        <p>{{.Period | title}} digest generated on {{.GeneratedAt.Format "January 2, 2006 at 3:04 PM"}}</p>
    </div>

    <div class="summary">
        <h2>Summary</h2>
        <p><strong>Journal Entries:</strong> {{.TotalEntries}}</p>
        {{range $emotion, $count := .DominantCounts}}
            <p><strong>{{$emotion}}:</strong> dominant in {{$count}}</p>
        {{end}}
    </div>

    {{if .TopEmotions}}
    <h2>Strongest Emotions</h2>
    <ol>
    {{range .TopEmotions}}
        <li>{{.}} ({{index $.AverageScores . | printf "%.2f"}})</li>
    {{end}}
    </ol>
    {{end}}
</body>
</html>
`

func buildEmailHTML(digest *models.Digest) (string, error) {
	t, err := template.New("email").Funcs(template.FuncMap{"title": titleCase}).Parse(emailTemplate)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, digest); err != nil {
		return "", err
	}

	return buf.String(), nil
}

func buildEmailText(digest *models.Digest) string {
	var text strings.Builder

	text.WriteString(fmt.Sprintf("Mood Digest - %s\n", titleCase(digest.Period)))
	text.WriteString(fmt.Sprintf("Generated: %s\n\n", digest.GeneratedAt.Format(models.TimestampLayout)))

	text.WriteString("SUMMARY\n")
	text.WriteString("=======\n")
	text.WriteString(fmt.Sprintf("Journal Entries: %d\n", digest.TotalEntries))
	for _, emotion := range sortedKeys(digest.DominantCounts) {
		text.WriteString(fmt.Sprintf("%s: dominant in %d\n", emotion, digest.DominantCounts[emotion]))
	}

	if len(digest.TopEmotions) > 0 {
		text.WriteString("\nSTRONGEST EMOTIONS\n")
		text.WriteString("==================\n")
		for i, emotion := range digest.TopEmotions {
			text.WriteString(fmt.Sprintf("%d. %s (%.2f)\n", i+1, emotion, digest.AverageScores[emotion]))
		}
	}

	return text.String()
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func sortedKeys(counts map[string]int) []string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
