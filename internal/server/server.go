// Package server exposes the tutor over a small JSON API.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"

	"rag-tutor/internal/chromemdb"
	"rag-tutor/internal/helper"
	"rag-tutor/internal/models"
	"rag-tutor/internal/parser"
)

const maxUploadSize = 32 << 20

// Tutor is the part of the tutor the API serves.
type Tutor interface {
	Respond(ctx context.Context, question, language string) models.PromptResponse
	GenerateQuiz(ctx context.Context, topic string, history []models.ConversationTurn, difficulty, language string) string
	Count() int
}

type Ingester interface {
	IngestDocument(ctx context.Context, path string, coll *chromemdb.Collection) (int, error)
}

type APIResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

type AnswerRequest struct {
	Question string `json:"question"`
	Language string `json:"language"`
}

type AnswerResponse struct {
	Answer  string   `json:"answer"`
	Sources []string `json:"sources"`
}

type QuizRequest struct {
	Topic      string                    `json:"topic"`
	History    []models.ConversationTurn `json:"history"`
	Difficulty string                    `json:"difficulty"`
	Language   string                    `json:"language"`
}

type UploadResponse struct {
	File   string `json:"file"`
	Chunks int    `json:"chunks"`
}

type Server struct {
	tutor           Tutor
	ingester        Ingester
	corpusDir       string
	defaultLanguage string
}

func New(t Tutor, ingester Ingester, corpusDir, defaultLanguage string) *Server {
	return &Server{
		tutor:           t,
		ingester:        ingester,
		corpusDir:       corpusDir,
		defaultLanguage: defaultLanguage,
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/health", enableCORS(s.handleHealth))
	mux.HandleFunc("/api/answer", enableCORS(s.handleAnswer))
	mux.HandleFunc("/api/quiz", enableCORS(s.handleQuiz))
	mux.HandleFunc("/api/documents", enableCORS(s.handleDocuments))
	return mux
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("Starting API server")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		log.Info().Msg("Shutting down API server")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	respondWithJSON(w, map[string]any{"status": "ok", "chunks": s.tutor.Count()})
}

func (s *Server) handleAnswer(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req AnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, fmt.Sprintf("Invalid request body: %v", err), http.StatusBadRequest)
		return
	}
	if req.Question == "" {
		respondWithError(w, "question is required", http.StatusBadRequest)
		return
	}
	if req.Language == "" {
		req.Language = s.defaultLanguage
	}

	resp := s.tutor.Respond(r.Context(), req.Question, req.Language)
	sources := resp.Sources
	if sources == nil {
		sources = []string{}
	}
	respondWithJSON(w, AnswerResponse{Answer: resp.Content, Sources: sources})
}

func (s *Server) handleQuiz(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req QuizRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, fmt.Sprintf("Invalid request body: %v", err), http.StatusBadRequest)
		return
	}
	if req.Topic == "" {
		respondWithError(w, "topic is required", http.StatusBadRequest)
		return
	}
	if req.Language == "" {
		req.Language = s.defaultLanguage
	}

	out := s.tutor.GenerateQuiz(r.Context(), req.Topic, req.History, req.Difficulty, req.Language)

	var envelope struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal([]byte(out), &envelope); err == nil && envelope.Error != "" {
		writeJSON(w, http.StatusOK, APIResponse{Success: false, Data: json.RawMessage(out), Error: envelope.Error})
		return
	}
	respondWithJSON(w, json.RawMessage(out))
}

func (s *Server) handleDocuments(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	file, header, err := r.FormFile("file")
	if err != nil {
		respondWithError(w, fmt.Sprintf("Invalid upload: %v", err), http.StatusBadRequest)
		return
	}
	defer file.Close()

	name := filepath.Base(header.Filename)
	if !parser.Supported(name) {
		respondWithError(w, fmt.Sprintf("Unsupported file format: %s", filepath.Ext(name)), http.StatusBadRequest)
		return
	}

	path, err := s.save(file, name)
	if errors.Is(err, fs.ErrExist) {
		respondWithError(w, fmt.Sprintf("Document already exists: %s", name), http.StatusConflict)
		return
	}
	if err != nil {
		respondWithError(w, fmt.Sprintf("Failed to save document: %v", err), http.StatusInternalServerError)
		return
	}

	n, err := s.ingester.IngestDocument(r.Context(), path, nil)
	if err != nil {
		if rerr := os.Remove(path); rerr != nil {
			log.Warn().Err(rerr).Str("file", path).Msg("Failed to remove rejected upload")
		}
		respondWithError(w, fmt.Sprintf("Failed to ingest document: %v", err), http.StatusUnprocessableEntity)
		return
	}
	log.Info().Str("file", name).Int("chunks", n).Msg("Ingested uploaded document")
	respondWithJSON(w, UploadResponse{File: name, Chunks: n})
}

// save writes src to the corpus directory under name. It never replaces an
// existing document, since that one is already ingested.
func (s *Server) save(src io.Reader, name string) (string, error) {
	if err := helper.CreateFolder(s.corpusDir); err != nil {
		return "", err
	}
	path := filepath.Join(s.corpusDir, name)
	dst, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", err
	}
	_, err = io.Copy(dst, src)
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		return "", err
	}
	return path, nil
}

func enableCORS(handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		handler(w, r)
	}
}

func writeJSON(w http.ResponseWriter, statusCode int, response APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		log.Warn().Err(err).Msg("Failed to write response")
	}
}

func respondWithJSON(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: data})
}

func respondWithError(w http.ResponseWriter, message string, statusCode int) {
	writeJSON(w, statusCode, APIResponse{Success: false, Error: message})
}
