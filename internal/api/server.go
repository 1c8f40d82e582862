// Package api serves the analytics results over REST plus a small HTML
// dashboard. Read endpoints are backed by the redis cache with object
// storage as fallback, so the engines never run on the request path
// except for the explicit trigger endpoint.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"salesforce-analytics/internal/common/config"
	"salesforce-analytics/internal/common/logger"
	"salesforce-analytics/internal/pipeline"
	"salesforce-analytics/internal/storage"
)

// ResultReader serves the latest cached payload for an analysis type.
type ResultReader interface {
	GetLatest(ctx context.Context, analysisType string) (json.RawMessage, error)
}

// StoreReader serves the latest persisted payload when the cache misses.
type StoreReader interface {
	GetLatestResults(ctx context.Context, analysisType string) (json.RawMessage, error)
}

// HistoryReader lists recent runs.
type HistoryReader interface {
	RecentRuns(ctx context.Context, limit int) ([]storage.RunRecord, error)
}

// RunTrigger executes an analytics run on demand.
type RunTrigger interface {
	Run(ctx context.Context, action string) (*pipeline.RunResult, error)
}

type Server struct {
	cfg      config.DashboardConfig
	log      logger.Logger
	results  ResultReader
	fallback StoreReader
	history  HistoryReader
	trigger  RunTrigger
	router   *mux.Router
	http     *http.Server
}

type ServerOptions struct {
	Config   config.DashboardConfig
	Logger   logger.Logger
	Results  ResultReader // primary (cache); may be nil
	Fallback StoreReader // object storage; may be nil
	History  HistoryReader
	Trigger  RunTrigger
}

func NewServer(opts ServerOptions) *Server {
	s := &Server{
		cfg:      opts.Config,
		log:      opts.Logger,
		results:  opts.Results,
		fallback: opts.Fallback,
		history:  opts.History,
		trigger:  opts.Trigger,
	}
	s.router = s.buildRouter()
	return s
}

func (s *Server) buildRouter() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/api/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/api/leads/scores", s.latestHandler(pipeline.ActionLeadScoring)).Methods(http.MethodGet)
	r.HandleFunc("/api/pipeline/health", s.latestHandler(pipeline.ActionPipelineHealth)).Methods(http.MethodGet)
	r.HandleFunc("/api/accounts/churn", s.latestHandler(pipeline.ActionChurn)).Methods(http.MethodGet)
	r.HandleFunc("/api/results/latest/{type}", s.handleLatestByType).Methods(http.MethodGet)
	r.HandleFunc("/api/runs", s.handleRuns).Methods(http.MethodGet)
	r.HandleFunc("/api/run", s.handleTriggerRun).Methods(http.MethodPost)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/", s.handleDashboard).Methods(http.MethodGet)

	return r
}

// Handler returns the fully wired handler including CORS.
func (s *Server) Handler() http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: s.cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	})
	return c.Handler(s.router)
}

// Start blocks serving HTTP until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	s.http = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  time.Duration(s.cfg.ReadTimeout) * time.Millisecond,
		WriteTimeout: time.Duration(s.cfg.WriteTimeout) * time.Millisecond,
	}

	s.log.Info("Dashboard server listening", map[string]interface{}{
		"addr": addr,
	})
	return s.http.ListenAndServe()
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}
