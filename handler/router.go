package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter exposes both invocation modes over HTTP.
func NewRouter(h *Handler) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/auctions", h.serve(h.Handle)).Methods(http.MethodPost)
	r.HandleFunc("/auctions/generate", h.serve(h.HandleGenerate)).Methods(http.MethodPost)
	r.HandleFunc("/healthcheck", func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("OK")); err != nil {
			h.logger.Error("[handler] Unable to write healthcheck: %v", err)
		}
	}).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	return r
}

func (h *Handler) serve(invoke func(ctx context.Context, req Request) Response) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			h.logger.Warn("[handler] Invalid request body: %v", err)
			write(w, h.respond(http.StatusBadRequest, errorBody{Error: "invalid request body: " + err.Error()}))
			return
		}
		write(w, invoke(r.Context(), req))
	}
}

func write(w http.ResponseWriter, resp Response) {
	for k, v := range resp.Headers {
		w.Header().Set(k, v)
	}
	w.WriteHeader(resp.StatusCode)
	_, _ = io.WriteString(w, resp.Body)
}
