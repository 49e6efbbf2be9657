package inference

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
)

// DefaultBaseURL is the OpenRouter API root
const DefaultBaseURL = "https://openrouter.ai/api/v1"

// DefaultTimeout bounds a single attempt
const DefaultTimeout = 60 * time.Second

// DefaultSystemPrompt is sent ahead of every user prompt
const DefaultSystemPrompt = "You are an expert psychologist AI that detects multiple emotions."

// Backend identifies one model endpoint and its credential
type Backend struct {
	Name   string
	Model  string
	APIKey string
}

// Config holds everything the gateway needs; there is no package-level state
type Config struct {
	BaseURL      string
	Primary      Backend
	Fallback     Backend
	Timeout      time.Duration
	Referer      string
	Title        string
	SystemPrompt string
}

// Gateway calls a primary model and retries once against a fallback model
type Gateway struct {
	config Config
	client *resty.Client
}

// Ensure Gateway implements Inferrer
var _ Inferrer = (*Gateway)(nil)

// InferenceError is returned when both backends fail. Its message is the
// fallback's error detail.
type InferenceError struct {
	Backend    string
	Model      string
	Err        error
	PrimaryErr error
}

func (e *InferenceError) Error() string {
	return e.Err.Error()
}

func (e *InferenceError) Unwrap() error {
	return e.Err
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *chatError `json:"error,omitempty"`
}

type chatError struct {
	Message string `json:"message"`
	Code    any    `json:"code"`
}

// NewGateway creates a new inference gateway
func NewGateway(cfg Config) *Gateway {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.SystemPrompt == "" {
		cfg.SystemPrompt = DefaultSystemPrompt
	}
	if cfg.Primary.Name == "" {
		cfg.Primary.Name = "primary"
	}
	if cfg.Fallback.Name == "" {
		cfg.Fallback.Name = "fallback"
	}

	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json")
	if cfg.Referer != "" {
		client.SetHeader("HTTP-Referer", cfg.Referer)
	}
	if cfg.Title != "" {
		client.SetHeader("X-Title", cfg.Title)
	}

	return &Gateway{
		config: cfg,
		client: client,
	}
}

// Primary returns the configured primary backend
func (g *Gateway) Primary() Backend {
	return g.config.Primary
}

// Fallback returns the configured fallback backend
func (g *Gateway) Fallback() Backend {
	return g.config.Fallback
}

// Infer tries the primary backend once, then the fallback once
func (g *Gateway) Infer(ctx context.Context, prompt string) (string, error) {
	primary := g.config.Primary
	text, err := g.Complete(ctx, primary, prompt)
	if err == nil {
		return text, nil
	}

	logrus.WithFields(logrus.Fields{
		"backend": primary.Name,
		"model":   primary.Model,
		"error":   err.Error(),
	}).Warn("Primary model failed, retrying with fallback")

	fallback := g.config.Fallback
	text, fallbackErr := g.Complete(ctx, fallback, prompt)
	if fallbackErr == nil {
		logrus.WithFields(logrus.Fields{
			"backend": fallback.Name,
			"model":   fallback.Model,
		}).Info("Fallback model succeeded")
		return text, nil
	}

	logrus.WithFields(logrus.Fields{
		"backend": fallback.Name,
		"model":   fallback.Model,
		"error":   fallbackErr.Error(),
	}).Error("Fallback model failed")

	return "", &InferenceError{
		Backend:    fallback.Name,
		Model:      fallback.Model,
		Err:        fallbackErr,
		PrimaryErr: err,
	}
}

// Complete performs a single chat-completion request against one backend
func (g *Gateway) Complete(ctx context.Context, backend Backend, prompt string) (string, error) {
	payload := chatRequest{
		Model: backend.Model,
		Messages: []chatMessage{
			{Role: "system", Content: g.config.SystemPrompt},
			{Role: "user", Content: prompt},
		},
	}

	resp, err := g.client.R().
		SetContext(ctx).
		SetAuthToken(backend.APIKey).
		SetBody(payload).
		Post("/chat/completions")

	if err != nil {
		return "", fmt.Errorf("request to %s failed: %w", backend.Model, err)
	}

	var result chatResponse
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		if !resp.IsSuccess() {
			return "", fmt.Errorf("model %s returned status %d", backend.Model, resp.StatusCode())
		}
		return "", fmt.Errorf("failed to parse response from %s: %w", backend.Model, err)
	}

	if result.Error != nil {
		message := result.Error.Message
		if message == "" {
			message = "Unknown error"
		}
		return "", errors.New(message)
	}

	if !resp.IsSuccess() {
		return "", fmt.Errorf("model %s returned status %d", backend.Model, resp.StatusCode())
	}

	if len(result.Choices) == 0 {
		return "", errors.New("no valid output from model")
	}

	content := result.Choices[0].Message.Content
	if strings.TrimSpace(content) == "" {
		return "", fmt.Errorf("model %s returned empty content", backend.Model)
	}

	return content, nil
}
