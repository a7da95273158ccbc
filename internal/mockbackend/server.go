// Package mockbackend is a development stand-in for the placement-training
// backend. It serves the four endpoints prepquiz consumes from a YAML
// question bank and keeps submitted scores in memory.
package mockbackend

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/abhisek/prepquiz/internal/api"
	"github.com/abhisek/prepquiz/internal/gating"
	"github.com/abhisek/prepquiz/internal/quiz"
)

// Submission is one result received on the submit endpoint.
type Submission struct {
	UserID    string
	Topic     string
	Mode      quiz.Mode
	Score     int
	Total     int
	TimeTaken int
	At        time.Time
}

// Server represents the mock backend HTTP server.
type Server struct {
	bank   *Bank
	router *chi.Mux
	logger *slog.Logger

	mu          sync.Mutex
	served      int
	submissions []Submission
}

// NewServer creates a mock backend serving bank.
func NewServer(bank *Bank, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{bank: bank, logger: logger}
	s.setupRouter()
	return s
}

// Router returns the configured router.
func (s *Server) Router() http.Handler {
	return s.router
}

// Submissions returns a copy of every result received so far.
func (s *Server) Submissions() []Submission {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Submission(nil), s.submissions...)
}

func (s *Server) setupRouter() {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Post(api.PathQuestions, s.handleQuestions)
		r.Post(api.PathSubmit, s.handleSubmit)
		r.Post(api.PathModeStatus, s.handleModeStatus)
		r.Post(api.PathBestScore, s.handleBestScore)
	})

	s.router = r
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			s.logger.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", middleware.GetReqID(r.Context()),
			)
		}()

		next.ServeHTTP(ww, r)
	})
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// respondDetail writes an error in the backend's {"detail": "..."} shape.
func respondDetail(w http.ResponseWriter, status int, detail string) {
	respondJSON(w, status, map[string]string{"detail": detail})
}

func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid JSON body: %v", err)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

type questionsRequest struct {
	Topic      string `json:"topic"`
	Count      int    `json:"count"`
	Difficulty string `json:"difficulty"`
}

func (s *Server) handleQuestions(w http.ResponseWriter, r *http.Request) {
	var req questionsRequest
	if err := decode(r, &req); err != nil {
		respondDetail(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	mode, err := quiz.ParseMode(req.Difficulty)
	if err != nil {
		respondDetail(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if strings.TrimSpace(req.Topic) == "" {
		respondDetail(w, http.StatusUnprocessableEntity, "topic is required")
		return
	}
	if !s.bank.Has(req.Topic) {
		respondDetail(w, http.StatusNotFound, fmt.Sprintf("No questions found for topic %q", req.Topic))
		return
	}
	count := req.Count
	if count <= 0 {
		count = mode.QuestionCount()
	}

	s.mu.Lock()
	offset := s.served
	s.served += count
	s.mu.Unlock()

	respondJSON(w, http.StatusOK, s.bank.Pick(req.Topic, mode, count, offset))
}

type submitRequest struct {
	UserID    string `json:"user_id"`
	Topic     string `json:"topic"`
	Mode      string `json:"mode"`
	Score     int    `json:"score"`
	Total     int    `json:"total"`
	TimeTaken int    `json:"time_taken"`
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := decode(r, &req); err != nil {
		respondDetail(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	mode, err := quiz.ParseMode(req.Mode)
	if err != nil {
		respondDetail(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	switch {
	case req.UserID == "":
		respondDetail(w, http.StatusUnprocessableEntity, "user_id is required")
		return
	case req.Score < 0 || req.Score > req.Total:
		respondDetail(w, http.StatusUnprocessableEntity, "score must be between 0 and total")
		return
	case req.TimeTaken < 0:
		respondDetail(w, http.StatusUnprocessableEntity, "time_taken must not be negative")
		return
	}

	s.mu.Lock()
	s.submissions = append(s.submissions, Submission{
		UserID:    req.UserID,
		Topic:     req.Topic,
		Mode:      mode,
		Score:     req.Score,
		Total:     req.Total,
		TimeTaken: req.TimeTaken,
		At:        time.Now(),
	})
	s.mu.Unlock()

	respondJSON(w, http.StatusOK, map[string]string{"message": "Result saved"})
}

type modeRequest struct {
	UserID string `json:"userId"`
	Topic  string `json:"topic"`
	Mode   string `json:"mode"`
}

func (s *Server) handleModeStatus(w http.ResponseWriter, r *http.Request) {
	var req modeRequest
	if err := decode(r, &req); err != nil {
		respondDetail(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	mode, err := quiz.ParseMode(req.Mode)
	if err != nil {
		respondDetail(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	unlocked := true
	if prev, ok := mode.Previous(); ok {
		best, has := s.best(req.UserID, req.Topic, prev)
		unlocked = gating.Unlocked(mode, best, has)
	}
	respondJSON(w, http.StatusOK, map[string]bool{"unlocked": unlocked})
}

func (s *Server) handleBestScore(w http.ResponseWriter, r *http.Request) {
	var req modeRequest
	if err := decode(r, &req); err != nil {
		respondDetail(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	mode, err := quiz.ParseMode(req.Mode)
	if err != nil {
		respondDetail(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	best, ok := s.best(req.UserID, req.Topic, mode)
	if !ok {
		respondJSON(w, http.StatusOK, map[string]any{"best_score": nil})
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"best_score": best})
}

func (s *Server) best(userID, topic string, mode quiz.Mode) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	best, found := 0, false
	for _, sub := range s.submissions {
		if sub.UserID != userID || !strings.EqualFold(sub.Topic, topic) || sub.Mode != mode {
			continue
		}
		if !found || sub.Score > best {
			best, found = sub.Score, true
		}
	}
	return best, found
}
