// Package httpapi serves the admin HTTP endpoints: health, metrics and a
// manual poll trigger.
package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Trigger requests an asynchronous poll cycle.
type Trigger interface {
	Trigger()
}

// NewRouter builds the admin routes.
func NewRouter(trigger Trigger, log *slog.Logger) *mux.Router {
	router := mux.NewRouter()
	router.HandleFunc("/health", healthHandler).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	router.HandleFunc("/trigger", triggerHandler(trigger, log)).Methods(http.MethodPost)
	return router
}

// NewServer wraps handler in an http.Server with conservative timeouts.
func NewServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func triggerHandler(trigger Trigger, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Info("poll triggered over http", "remote", r.RemoteAddr)
		trigger.Trigger()
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "triggered"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
