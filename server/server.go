package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/siherrmann/medrag/helper"
	"github.com/siherrmann/medrag/model"
)

// maxBodyBytes limits the size of a chat request body.
const maxBodyBytes = 1 << 20

// Responder answers a single chat message.
type Responder interface {
	GetResponse(ctx context.Context, text string) string
}

// ChatRequest is the body of POST /api/chat.
type ChatRequest struct {
	Message string `json:"message" validate:"required"`
}

// ChatResponse is the body of every /api/chat response.
type ChatResponse struct {
	Response string `json:"response"`
}

// Server is the HTTP front of the assistant.
type Server struct {
	addr      string
	responder Responder
	metrics   http.Handler
	validate  *validator.Validate
	log       *slog.Logger
	router    chi.Router
}

// New creates the server and its routes. metrics may be nil.
func New(addr string, responder Responder, metrics http.Handler, logger *slog.Logger) *Server {
	s := &Server{
		addr:      addr,
		responder: responder,
		metrics:   metrics,
		validate:  validator.New(),
		log:       logger,
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.recoverer)

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, ChatResponse{Response: model.MsgMethodNotAllowed})
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}

	r.Route("/api", func(r chi.Router) {
		r.Post("/chat", s.handleChat)
	})

	return r
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// handleChat handles POST /api/chat
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetReqID(r.Context())

	var req ChatRequest
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := decoder.Decode(&req); err != nil {
		s.log.Warn("Invalid chat request body", slog.String("request_id", requestID), slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadRequest, ChatResponse{Response: model.MsgInvalidJSON})
		return
	}

	req.Message = strings.TrimSpace(req.Message)
	if err := s.validate.Struct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, ChatResponse{Response: model.MsgEmptyMessage})
		return
	}

	response := s.responder.GetResponse(r.Context(), req.Message)
	writeJSON(w, http.StatusOK, ChatResponse{Response: response})
}

// recoverer turns a panic into a 500 with the generic server error message.
func (s *Server) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				s.log.Error("Recovered from panic in handler", slog.String("request_id", middleware.GetReqID(r.Context())), slog.String("panic", fmt.Sprint(rec)))
				writeJSON(w, http.StatusInternalServerError, ChatResponse{Response: model.MsgServerError})
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// ListenAndServe serves until ctx is cancelled and then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("Listening", slog.String("addr", s.addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return helper.NewError("listen and serve", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	s.log.Info("Shutting down server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return helper.NewError("shutdown", err)
	}

	return nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
