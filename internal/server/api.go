// Package server exposes the diagnostics API over HTTP: test submission,
// result retrieval and recommendation retrieval, plus health and metrics
// endpoints.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"

	"github.com/network-diagnostics-platform/internal/database"
	"github.com/network-diagnostics-platform/internal/models"
	"github.com/network-diagnostics-platform/internal/recommend"
	"github.com/network-diagnostics-platform/internal/tracing"
)

// TestAPI is the service surface the HTTP layer needs.
type TestAPI interface {
	StartTest(ctx context.Context, req models.TestRequest) (string, error)
	GetTest(ctx context.Context, testID string) (*database.TestRecord, error)
	GetRecommendations(ctx context.Context, testID string) ([]recommend.Recommendation, error)
}

// APIConfig holds HTTP API configuration.
type APIConfig struct {
	AllowedOrigins []string
}

// API serves the diagnostics HTTP endpoints.
type API struct {
	svc TestAPI
	cfg APIConfig
	log *logrus.Logger
}

// NewAPI builds the HTTP API over the given service.
func NewAPI(svc TestAPI, cfg APIConfig, log *logrus.Logger) *API {
	return &API{svc: svc, cfg: cfg, log: log}
}

// Handler returns the fully assembled HTTP handler: routes, CORS and
// request tracing.
func (a *API) Handler() http.Handler {
	router := mux.NewRouter()

	api := router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/tests", a.handleStartTest).Methods("POST")
	api.HandleFunc("/tests/{id}", a.handleGetTest).Methods("GET")
	api.HandleFunc("/tests/{id}/recommendations", a.handleGetRecommendations).Methods("GET")

	router.HandleFunc("/health", a.handleHealth).Methods("GET")
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	corsHandler := cors.New(cors.Options{
		AllowedOrigins: a.cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
	})

	return otelhttp.NewHandler(corsHandler.Handler(router), "diagnostics-api")
}

func (a *API) handleStartTest(w http.ResponseWriter, r *http.Request) {
	req := models.DefaultTestRequest()

	// An empty body runs the default test; a JSON body overrides it.
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
	if err != nil {
		a.respondError(w, http.StatusBadRequest, "failed to read request body")
		return
	}
	if len(body) > 0 {
		req = models.TestRequest{}
		if err := json.Unmarshal(body, &req); err != nil {
			a.respondError(w, http.StatusBadRequest, "invalid JSON request body")
			return
		}
	}

	testID, err := a.svc.StartTest(r.Context(), req)
	if err != nil {
		tracing.RecordError(r.Context(), err)
		a.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	tracing.AddSpanAttributes(r.Context(), attribute.String("test.id", testID))

	a.respondJSON(w, http.StatusAccepted, map[string]interface{}{
		"test_id": testID,
		"status":  models.StatusRunning,
	})
}

func (a *API) handleGetTest(w http.ResponseWriter, r *http.Request) {
	testID := mux.Vars(r)["id"]

	record, err := a.svc.GetTest(r.Context(), testID)
	if errors.Is(err, database.ErrNotFound) {
		a.respondError(w, http.StatusNotFound, "test not found")
		return
	}
	if err != nil {
		a.log.WithError(err).Error("Failed to load test")
		a.respondError(w, http.StatusInternalServerError, "failed to load test")
		return
	}

	a.respondJSON(w, http.StatusOK, record)
}

func (a *API) handleGetRecommendations(w http.ResponseWriter, r *http.Request) {
	testID := mux.Vars(r)["id"]

	if _, err := a.svc.GetTest(r.Context(), testID); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			a.respondError(w, http.StatusNotFound, "test not found")
			return
		}
		a.log.WithError(err).Error("Failed to load test")
		a.respondError(w, http.StatusInternalServerError, "failed to load test")
		return
	}

	recs, err := a.svc.GetRecommendations(r.Context(), testID)
	if err != nil {
		a.log.WithError(err).Error("Failed to load recommendations")
		a.respondError(w, http.StatusInternalServerError, "failed to load recommendations")
		return
	}
	if recs == nil {
		recs = []recommend.Recommendation{}
	}

	a.respondJSON(w, http.StatusOK, map[string]interface{}{
		"test_id":         testID,
		"recommendations": recs,
	})
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	a.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *API) respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		a.log.WithError(err).Error("Failed to encode response")
	}
}

func (a *API) respondError(w http.ResponseWriter, status int, message string) {
	a.respondJSON(w, status, map[string]string{"error": message})
}
