// Package server exposes the parser and the batch generator over HTTP so
// prompt and parsing changes can be previewed without a full run.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"subjectivity_datagen/generator"
)

// BatchTimeout bounds one generation request, retries included.
const BatchTimeout = 5 * time.Minute

type Server struct {
	gen     *generator.BatchGenerator
	parsers map[string]*generator.Parser
	logger  *log.Logger
	// mu keeps model calls sequential, one in flight at a time.
	mu sync.Mutex
}

// Options configures the preview server.
type Options struct {
	MinLength int
	Logger    *log.Logger
}

func New(gen *generator.BatchGenerator, opts Options) (*Server, error) {
	if gen == nil {
		return nil, errors.New("batch generator required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	po := generator.ParseOptions{MinLength: opts.MinLength}
	return &Server{
		gen: gen,
		parsers: map[string]*generator.Parser{
			"delimited": generator.NewParser(po, generator.DelimitedStrategies()...),
			"numbered":  generator.NewParser(po, generator.NumberedStrategies()...),
		},
		logger: logger,
	}, nil
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/parse", s.handleParse)
	mux.HandleFunc("/api/batches", s.handleBatch)
	mux.HandleFunc("/api/catalog", s.handleCatalog)
	return logMiddleware(s.logger, mux)
}

// --- Handlers ---

type parseReq struct {
	Text     string `json:"text"`
	Fallback string `json:"fallback"`
	Style    string `json:"style"`
}

type batchReq struct {
	Language string   `json:"language"`
	Label    string   `json:"label"`
	Topics   []string `json:"topics"`
}

type sentencesResp struct {
	Count     int                         `json:"count"`
	Sentences []generator.LabeledSentence `json:"sentences"`
}

type catalogResp struct {
	Languages []string `json:"languages"`
	Labels    []string `json:"labels"`
	Topics    []string `json:"topics"`
}

func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req parseReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	style := req.Style
	if style == "" {
		style = "delimited"
	}
	parser, ok := s.parsers[style]
	if !ok {
		http.Error(w, "unknown style "+style, http.StatusBadRequest)
		return
	}
	var fallback generator.Label
	if req.Fallback != "" {
		l, ok := generator.ParseLabel(req.Fallback)
		if !ok {
			http.Error(w, "invalid fallback label "+req.Fallback, http.StatusBadRequest)
			return
		}
		fallback = l
	}
	pairs := parser.Parse(req.Text, fallback)
	writeJSON(w, sentencesResp{Count: len(pairs), Sentences: pairs})
}

func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req batchReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if _, err := generator.LanguageName(req.Language); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	label, ok := generator.ParseLabel(req.Label)
	if !ok {
		http.Error(w, "invalid label "+req.Label, http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	ctx, cancel := context.WithTimeout(r.Context(), BatchTimeout)
	defer cancel()
	batch := s.gen.GenerateRequest(ctx, generator.GenerationRequest{
		Language: strings.ToLower(req.Language),
		Label:    label,
		Topics:   req.Topics,
	})
	if len(batch) == 0 {
		// the caller already logged the failure; an empty batch is not an error
		batch = []generator.LabeledSentence{}
	}
	writeJSON(w, sentencesResp{Count: len(batch), Sentences: batch})
}

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	labels := make([]string, 0, 2)
	for _, l := range generator.Labels() {
		labels = append(labels, l.String())
	}
	writeJSON(w, catalogResp{Languages: generator.Languages(), Labels: labels, Topics: s.gen.Topics()})
}

// --- Helpers ---

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func logMiddleware(logger *log.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logger.Printf("[INFO] %s %s %d %s", r.Method, r.URL.Path, rec.status, time.Since(start).Round(time.Millisecond))
	})
}
