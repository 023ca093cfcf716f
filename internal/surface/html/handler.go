package html

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/dshills/richview/internal/surface"
)

// maxBodySize limits PUT /source bodies.
const maxBodySize = 10 << 20

// stateResp is the response body for GET /state.
type stateResp struct {
	ID       string `json:"id"`
	Version  uint64 `json:"version"`
	Theme    string `json:"theme"`
	ReadOnly bool   `json:"readOnly"`
}

// Handler serves s over HTTP:
//
//	GET /         rendered page
//	GET /source   raw buffer
//	PUT /source   replace the buffer as a user edit
//	GET /state    JSON with the page version, for polling
//	GET /healthz  liveness
func Handler(s *Surface, log zerolog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		page, err := s.Render()
		if err != nil {
			log.Error().Err(err).Str("surface", s.ID()).Msg("render failed")
			http.Error(w, "render failed", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = io.WriteString(w, page)
	})

	r.Get("/source", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = io.WriteString(w, s.GetData())
	})

	r.Put("/source", func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
		if err != nil {
			http.Error(w, "invalid body", http.StatusBadRequest)
			return
		}

		switch err := s.Edit(string(body)); {
		case errors.Is(err, surface.ErrReadOnly):
			http.Error(w, err.Error(), http.StatusForbidden)
		case errors.Is(err, surface.ErrClosed):
			http.Error(w, err.Error(), http.StatusGone)
		case err != nil:
			http.Error(w, err.Error(), http.StatusInternalServerError)
		default:
			log.Debug().Str("surface", s.ID()).Int("bytes", len(body)).Msg("edit received")
			w.WriteHeader(http.StatusNoContent)
		}
	})

	r.Get("/state", func(w http.ResponseWriter, r *http.Request) {
		s.mu.RLock()
		resp := stateResp{ID: s.id, Version: s.version, Theme: s.theme.Name, ReadOnly: s.readOnly}
		s.mu.RUnlock()
		writeJSON(w, http.StatusOK, resp, log)
	})

	return r
}

// writeJSON writes a JSON response with the given status code
func writeJSON(w http.ResponseWriter, code int, v any, log zerolog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode json response")
	}
}
