// Package http exposes the bot over a small JSON API: create and list
// sessions, read a session's messages, and post a message to run a
// turn.
package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	salesbot "github.com/w-h-a/salesbot"
	"github.com/w-h-a/salesbot/store"
)

type Server struct {
	options Options
	bot     *salesbot.Bot
	server  *http.Server
}

func (s *Server) Run() error {
	slog.InfoContext(s.options.Context, "http server listening", "address", s.options.Address)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Stop() error {
	return s.server.Shutdown(s.options.Context)
}

func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Id string `json:"id"`
	}
	// body is optional; an empty id mints a new session
	_ = json.NewDecoder(r.Body).Decode(&body)

	id, err := s.bot.NewSession(r.Context(), body.Id)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	s.respond(w, http.StatusCreated, map[string]string{"id": id})
}

func (s *Server) listSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.bot.ListSessions(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}

	s.respond(w, http.StatusOK, map[string]any{"items": sessions})
}

func (s *Server) deleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.bot.DeleteSession(r.Context(), mux.Vars(r)["id"]); err != nil {
		s.fail(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listMessages(w http.ResponseWriter, r *http.Request) {
	msgs, err := s.bot.History(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.fail(w, r, err)
		return
	}

	s.respond(w, http.StatusOK, map[string]any{"items": msgs})
}

func (s *Server) postMessage(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.respond(w, http.StatusBadRequest, map[string]string{"error": "invalid body"})
		return
	}

	reply, err := s.bot.Respond(r.Context(), mux.Vars(r)["id"], body.Content)
	if err != nil {
		if errors.Is(err, store.ErrStorage) {
			s.fail(w, r, err)
			return
		}
		s.respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	s.respond(w, http.StatusOK, map[string]string{"reply": reply})
}

func (s *Server) respond(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	slog.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "error", err)
	s.respond(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
}

func NewServer(bot *salesbot.Bot, opts ...Option) *Server {
	options := NewOptions(opts...)

	s := &Server{
		options: options,
		bot:     bot,
	}

	router := mux.NewRouter()
	router.HandleFunc("/api/v1/sessions", s.createSession).Methods(http.MethodPost)
	router.HandleFunc("/api/v1/sessions", s.listSessions).Methods(http.MethodGet)
	router.HandleFunc("/api/v1/sessions/{id}", s.deleteSession).Methods(http.MethodDelete)
	router.HandleFunc("/api/v1/sessions/{id}/messages", s.listMessages).Methods(http.MethodGet)
	router.HandleFunc("/api/v1/sessions/{id}/messages", s.postMessage).Methods(http.MethodPost)

	var handler http.Handler = router
	for i := len(options.Middlewares) - 1; i >= 0; i-- {
		handler = options.Middlewares[i](handler)
	}

	s.server = &http.Server{
		Addr:    options.Address,
		Handler: handler,
	}

	return s
}
