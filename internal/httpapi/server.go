// Package httpapi exposes the transcript parser over HTTP.
package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/rs/cors"

	"github.com/mr-aminul/moneylogger/pkg/voice"
)

const (
	// DefaultMaxBatch caps the number of transcripts per batch request.
	DefaultMaxBatch = 100
	maxBodyBytes    = 1 << 20
)

// Config configures the HTTP surface.
type Config struct {
	// Categories is used when a request names none.
	Categories []string
	// Location is the zone reference dates resolve in. Defaults to time.Local.
	Location *time.Location
	// CORSOrigins lists allowed browser origins. "*" allows any.
	CORSOrigins []string
	// MaxBatch defaults to DefaultMaxBatch.
	MaxBatch int
}

// Server handles parse and validate requests.
type Server struct {
	parser *voice.Parser
	cfg    Config
	now    func() time.Time
	logger *slog.Logger
}

// New creates a Server around parser.
func New(parser *voice.Parser, cfg Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.MaxBatch <= 0 {
		cfg.MaxBatch = DefaultMaxBatch
	}
	if len(cfg.Categories) == 0 {
		cfg.Categories = voice.CoreCategories
	}
	return &Server{parser: parser, cfg: cfg, now: time.Now, logger: logger}
}

// Handler returns the routes wrapped with CORS and request logging.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/parse", s.handleParse)
	mux.HandleFunc("POST /v1/parse/batch", s.handleParseBatch)
	mux.HandleFunc("POST /v1/validate", s.handleValidate)
	mux.HandleFunc("GET /healthz", s.handleHealth)

	c := cors.New(cors.Options{
		AllowedOrigins: s.cfg.CORSOrigins,
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodOptions,
		},
		AllowedHeaders: []string{
			"Accept",
			"Content-Type",
		},
		MaxAge: 300,
	})
	return s.logRequests(c.Handler(mux))
}

type parseRequest struct {
	Transcript string   `json:"transcript"`
	Categories []string `json:"categories,omitempty"`
	// ReferenceDate (YYYY-MM-DD) anchors relative dates. Defaults to today.
	ReferenceDate string `json:"referenceDate,omitempty"`
}

type batchRequest struct {
	Transcripts   []string `json:"transcripts"`
	Categories    []string `json:"categories,omitempty"`
	ReferenceDate string   `json:"referenceDate,omitempty"`
}

// ParseResponse is a parsed expense with its validation.
type ParseResponse struct {
	voice.ParsedExpense
	Validation voice.ValidationResult `json:"validation"`
}

// BatchResponse preserves request order.
type BatchResponse struct {
	Results []ParseResponse `json:"results"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	var req parseRequest
	if !s.decode(w, r, &req) {
		return
	}
	ref, err := s.reference(req.ReferenceDate)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	s.writeJSON(w, http.StatusOK, s.parse(req.Transcript, s.categories(req.Categories), ref))
}

func (s *Server) handleParseBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if !s.decode(w, r, &req) {
		return
	}
	if len(req.Transcripts) > s.cfg.MaxBatch {
		s.writeError(w, http.StatusRequestEntityTooLarge,
			fmt.Errorf("batch of %d transcripts exceeds the limit of %d", len(req.Transcripts), s.cfg.MaxBatch))
		return
	}
	ref, err := s.reference(req.ReferenceDate)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	categories := s.categories(req.Categories)
	resp := BatchResponse{Results: make([]ParseResponse, len(req.Transcripts))}
	for i, t := range req.Transcripts {
		resp.Results[i] = s.parse(t, categories, ref)
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// handleValidate accepts a bare expense or a parse response; a validation
// block already present in the body is ignored.
func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	var req ParseResponse
	if !s.decode(w, r, &req) {
		return
	}
	s.writeJSON(w, http.StatusOK, s.parser.Validate(req.ParsedExpense))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) parse(transcript string, categories []string, ref time.Time) ParseResponse {
	parsed := s.parser.ParseAt(transcript, categories, ref)
	return ParseResponse{ParsedExpense: parsed, Validation: s.parser.Validate(parsed)}
}

func (s *Server) categories(requested []string) []string {
	if c := voice.CanonicalCategories(requested); len(c) > 0 {
		return c
	}
	return s.cfg.Categories
}

func (s *Server) reference(date string) (time.Time, error) {
	if date == "" {
		return s.now().In(s.cfg.Location), nil
	}
	ref, err := time.ParseInLocation(voice.ISODateLayout, date, s.cfg.Location)
	if err != nil {
		return time.Time{}, fmt.Errorf("referenceDate must be YYYY-MM-DD: %q", date)
	}
	return ref, nil
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		status := http.StatusBadRequest
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		s.writeError(w, status, fmt.Errorf("decoding request: %w", err))
		return false
	}
	return true
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("failed to write response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, errorResponse{Error: err.Error()})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Debug("request handled",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}
