package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/crop-water-service/internal/inference"
	"github.com/couchcryptid/crop-water-service/internal/observability"
	"github.com/couchcryptid/crop-water-service/internal/plants"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Device drives the pump and reads the moisture sensor.
type Device interface {
	SetPump(ctx context.Context, on bool) error
	Moisture(ctx context.Context) (float64, error)
}

// Deps are the collaborators the API routes delegate to.
type Deps struct {
	Predictor inference.Service
	Plants    plants.Store
	Device    Device
	Metrics   *observability.Metrics
}

// Server exposes the plant monitoring and crop water API together with
// health, readiness, and metrics endpoints.
type Server struct {
	httpServer *http.Server
	deps       Deps
	logger     *slog.Logger
}

// NewServer creates an HTTP server with all API routes plus /healthz, /readyz,
// and /metrics. Readiness follows the predictor: ready once a model is loaded.
func NewServer(addr string, deps Deps, logger *slog.Logger) *Server {
	router := mux.NewRouter()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      corsMiddleware(router),
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		deps:   deps,
		logger: logger,
	}

	router.HandleFunc("/", s.handleRoot).Methods(http.MethodGet)
	router.HandleFunc("/plants", s.handleListPlants).Methods(http.MethodGet)
	router.HandleFunc("/plants/{id}", s.handleUpdatePlant).Methods(http.MethodPost)
	router.HandleFunc("/control", s.handleControl).Methods(http.MethodPost)
	router.HandleFunc("/sensor-data/{id}", s.handleSensorData).Methods(http.MethodGet)
	router.HandleFunc("/api/crops", s.handleCrops).Methods(http.MethodGet)
	router.HandleFunc("/api/predict", s.handlePredict).Methods(http.MethodPost)
	router.HandleFunc("/api/model/reload", s.handleReload).Methods(http.MethodPost)

	router.HandleFunc("/healthz", sharedobs.LivenessHandler()).Methods(http.MethodGet)
	router.HandleFunc("/readyz", sharedobs.ReadinessHandler(deps.Predictor)).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

// corsMiddleware allows any origin, matching the browser dashboard's needs.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type messageResponse struct {
	Message string `json:"message"`
}

type errorResponse struct {
	Detail string `json:"detail"`
	Field  string `json:"field,omitempty"`
	Value  string `json:"value,omitempty"`
}

func writeError(w http.ResponseWriter, status int, detail string) {
	sharedobs.WriteJSON(w, status, errorResponse{Detail: detail})
}
