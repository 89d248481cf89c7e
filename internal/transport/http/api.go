package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"
	"trivia-service/internal/app"
	"trivia-service/internal/domain"
	"trivia-service/internal/metrics"
)

// API serves the read-only JSON views: subjects, leaderboard and player stats.
type API struct {
	service *app.GameService
	log     *zap.Logger
	metrics *metrics.Metrics
}

func NewAPI(service *app.GameService, logger *zap.Logger, m *metrics.Metrics) *API {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &API{service: service, log: logger, metrics: m}
}

// Register mounts the endpoints on mux.
func (a *API) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /subjects", a.metrics.Instrument("/subjects", a.subjects))
	mux.HandleFunc("GET /leaderboard", a.metrics.Instrument("/leaderboard", a.leaderboard))
	mux.HandleFunc("GET /players", a.metrics.Instrument("/players", a.players))
	mux.HandleFunc("GET /players/{name}/stats", a.metrics.Instrument("/players/{name}/stats", a.playerStats))
	mux.HandleFunc("POST /pending/retry", a.metrics.Instrument("/pending/retry", a.retryPending))
}

func (a *API) subjects(w http.ResponseWriter, r *http.Request) {
	subjects, err := a.service.Subjects(r.Context())
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, subjects)
}

func (a *API) leaderboard(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	entries, err := a.service.Leaderboard(r.Context(), r.URL.Query().Get("subject"), limit)
	a.warnStale(w, err)
	writeJSON(w, http.StatusOK, entries)
}

func (a *API) players(w http.ResponseWriter, r *http.Request) {
	players, err := a.service.Players(r.Context())
	a.warnStale(w, err)
	writeJSON(w, http.StatusOK, players)
}

func (a *API) playerStats(w http.ResponseWriter, r *http.Request) {
	stats, found, err := a.service.PlayerStats(r.Context(), r.PathValue("name"))
	if err != nil && !errors.Is(err, domain.ErrPersistence) {
		a.fail(w, err)
		return
	}
	a.warnStale(w, err)
	if !found {
		http.Error(w, "no games recorded", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (a *API) retryPending(w http.ResponseWriter, r *http.Request) {
	left, err := a.service.RetryPending(r.Context())
	status := http.StatusOK
	if err != nil {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, map[string]int{"pending": left})
}

// warnStale flags a response built without the persisted log.
func (a *API) warnStale(w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	a.log.Warn("serving view without storage", zap.Error(err))
	w.Header().Set("Warning", `199 - "storage unavailable"`)
}

func (a *API) fail(w http.ResponseWriter, err error) {
	status := http.StatusBadRequest
	switch {
	case errors.Is(err, domain.ErrSubjectNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrPersistence):
		status = http.StatusServiceUnavailable
	case domain.IsBlocked(err):
		status = http.StatusConflict
	}
	http.Error(w, err.Error(), status)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
