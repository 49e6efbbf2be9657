package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/moodlog/emotion-journal/internal/community"
	"github.com/moodlog/emotion-journal/internal/models"
	"github.com/moodlog/emotion-journal/internal/storage"
	"github.com/sirupsen/logrus"
)

// Analyzer is the emotion analysis surface used by the handlers
type Analyzer interface {
	Analyze(ctx context.Context, text string) (models.EmotionRecord, error)
	History(ctx context.Context) ([]models.JournalEntry, error)
	GetMetrics() string
}

// Community is the community posting surface used by the handlers
type Community interface {
	CreatePost(ctx context.Context, text, timestamp string) (int64, error)
	AddComment(ctx context.Context, postID int64, comment, timestamp string) (int64, error)
	ListPosts(ctx context.Context) ([]models.CommunityPost, error)
}

// DigestRunner builds and delivers a digest on demand
type DigestRunner interface {
	Run(ctx context.Context, period string) (*models.Digest, error)
}

// Server wires the HTTP routes to the services
type Server struct {
	analyzer  Analyzer
	community Community
	digest    DigestRunner
}

type analyzeRequest struct {
	Text   string            `json:"text"`
	Images []json.RawMessage `json:"images,omitempty"`
}

type postRequest struct {
	Text      string `json:"text"`
	Timestamp string `json:"timestamp"`
}

type commentRequest struct {
	Comment   string `json:"comment"`
	Timestamp string `json:"timestamp"`
}

type historyItem struct {
	Timestamp       string             `json:"timestamp"`
	DominantEmotion string             `json:"DominantEmotion"`
	EmotionScores   map[string]float64 `json:"EmotionScores"`
}

// NewServer creates a new API server
func NewServer(analyzer Analyzer, community Community, digest DigestRunner) *Server {
	return &Server{
		analyzer:  analyzer,
		community: community,
		digest:    digest,
	}
}

// Router returns the HTTP handler with all routes, CORS and request logging
func (s *Server) Router(corsOrigins []string) http.Handler {
	router := mux.NewRouter()

	router.HandleFunc("/analyze", s.handleAnalyze).Methods("POST")
	router.HandleFunc("/history", s.handleHistory).Methods("GET")
	router.HandleFunc("/community", s.handleListPosts).Methods("GET")
	router.HandleFunc("/community", s.handleCreatePost).Methods("POST")
	router.HandleFunc("/community/{postId:[0-9]+}/comments", s.handleAddComment).Methods("POST")

	router.HandleFunc("/health", healthCheckHandler).Methods("GET")
	router.HandleFunc("/metrics", s.handleMetrics).Methods("GET")
	router.HandleFunc("/digest", s.handleDigest).Methods("POST")

	router.Use(requestLogger)

	cors := handlers.CORS(
		handlers.AllowedOrigins(corsOrigins),
		handlers.AllowedMethods([]string{"GET", "POST", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Content-Type"}),
	)

	return cors(router)
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	// The analysis outlives a disconnected client so the entry is still stored.
	ctx := context.WithoutCancel(r.Context())

	result, err := s.analyzer.Analyze(ctx, req.Text)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	entries, err := s.analyzer.History(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	items := make([]historyItem, 0, len(entries))
	for _, entry := range entries {
		items = append(items, historyItem{
			Timestamp:       entry.Timestamp,
			DominantEmotion: entry.DominantEmotion,
			EmotionScores:   entry.EmotionScores,
		})
	}

	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleListPosts(w http.ResponseWriter, r *http.Request) {
	posts, err := s.community.ListPosts(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, posts)
}

func (s *Server) handleCreatePost(w http.ResponseWriter, r *http.Request) {
	var req postRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	id, err := s.community.CreatePost(r.Context(), req.Text, req.Timestamp)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"message": "Post added successfully",
		"id":      id,
	})
}

func (s *Server) handleAddComment(w http.ResponseWriter, r *http.Request) {
	postID, err := strconv.ParseInt(mux.Vars(r)["postId"], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid post id")
		return
	}

	var req commentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	id, err := s.community.AddComment(r.Context(), postID, req.Comment, req.Timestamp)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"message": "Comment added successfully",
		"id":      id,
	})
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(s.analyzer.GetMetrics()))
}

func (s *Server) handleDigest(w http.ResponseWriter, r *http.Request) {
	period := r.URL.Query().Get("period")
	switch period {
	case "":
		period = "manual"
	case "daily", "weekly":
	default:
		writeError(w, http.StatusBadRequest, "period must be daily or weekly")
		return
	}

	digest, err := s.digest.Run(r.Context(), period)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, digest)
}

func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, community.ErrEmptyPost), errors.Is(err, community.ErrEmptyComment):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, "Post not found")
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logrus.Errorf("Failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", requestID)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		logrus.WithFields(logrus.Fields{
			"request_id": requestID,
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     rec.status,
			"duration":   time.Since(start).String(),
		}).Info("Handled request")
	})
}
