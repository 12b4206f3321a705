package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"trivia-quiz-service/internal/app"
	"trivia-quiz-service/internal/domain"
)

// NewRouter wires the health check, the WebSocket endpoint and the read-only owner views.
func NewRouter(service *app.QuizService, logger *slog.Logger) http.Handler {
	ws := NewWSHandler(service, logger)
	owners := &ownerHandler{service: service}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	r.Get("/ws", ws.ServeWS)
	r.Route("/owners/{owner}", func(r chi.Router) {
		r.Get("/session", owners.session)
		r.Get("/results", owners.results)
	})
	return r
}

type ownerHandler struct {
	service *app.QuizService
}

func (h *ownerHandler) session(w http.ResponseWriter, r *http.Request) {
	engine, ok := h.service.Lookup(chi.URLParam(r, "owner"))
	if !ok {
		http.Error(w, "no active session", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, engine.Snapshot())
}

func (h *ownerHandler) results(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}
	results, err := h.service.Results(r.Context(), chi.URLParam(r, "owner"), limit)
	if err != nil {
		http.Error(w, "failed to load results", http.StatusInternalServerError)
		return
	}
	if results == nil {
		results = []domain.QuizResult{}
	}
	writeJSON(w, http.StatusOK, results)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
