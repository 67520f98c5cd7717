// Package api exposes the voting ledger over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"pob-voting/pkg/log"
	"pob-voting/service"
)

// Config is the HTTP surface configuration.
type Config struct {
	ListenAddr  string
	CORSOrigins []string
	// SubmitTimeout bounds how long POST /api/tx waits for its block.
	SubmitTimeout time.Duration
}

type Server struct {
	cfg           Config
	votingService *service.VotingService
	results       *service.ResultsService
	queue         *service.QueueProcessor
	router        *mux.Router
	httpServer    *http.Server
	logger        *zap.Logger
}

func NewServer(cfg Config, vs *service.VotingService, queue *service.QueueProcessor) *Server {
	if cfg.SubmitTimeout <= 0 {
		cfg.SubmitTimeout = 30 * time.Second
	}
	s := &Server{
		cfg:           cfg,
		votingService: vs,
		results:       service.NewResultsService(vs),
		queue:         queue,
		router:        mux.NewRouter(),
		logger:        log.Logger("api"),
	}
	s.routes()
	s.httpServer = &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) routes() {
	r := s.router.PathPrefix("/api").Subrouter()

	r.HandleFunc("/tx", s.handleSubmitTx).Methods(http.MethodPost)
	r.HandleFunc("/nonce/{address}", s.handleGetNonce).Methods(http.MethodGet)

	r.HandleFunc("/registry", s.handleGetRegistry).Methods(http.MethodGet)
	r.HandleFunc("/rounds/{iteration}", s.handleGetRounds).Methods(http.MethodGet)
	r.HandleFunc("/rounds/{iteration}/{round}", s.handleGetRound).Methods(http.MethodGet)
	r.HandleFunc("/rounds/{iteration}/{round}/results", s.handleGetResults).Methods(http.MethodGet)
	r.HandleFunc("/rounds/{iteration}/{round}/entities/{entity}/voters", s.handleGetEntityVoters).Methods(http.MethodGet)
	r.HandleFunc("/rounds/{iteration}/{round}/projects/{project}", s.handleGetProject).Methods(http.MethodGet)
	r.HandleFunc("/contracts/{address}/round", s.handleGetRoundByContract).Methods(http.MethodGet)
	r.HandleFunc("/contracts/{address}/previous", s.handleGetPreviousRounds).Methods(http.MethodGet)

	r.HandleFunc("/chain", s.handleGetChain).Methods(http.MethodGet)
	r.HandleFunc("/chain/validate", s.handleValidateChain).Methods(http.MethodGet)
	r.HandleFunc("/chain/blocks/{index}", s.handleGetBlock).Methods(http.MethodGet)
	r.HandleFunc("/metrics", s.handleGetMetrics).Methods(http.MethodGet)

	s.router.Handle("/metrics", promhttp.Handler())
	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "route not found"})
	})
	s.router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
	})
}

// Handler returns the router wrapped with CORS handling.
func (s *Server) Handler() http.Handler {
	origins := s.cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
	}).Handler(s.router)
}

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("starting voting API", zap.String("addr", s.cfg.ListenAddr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "failed to serve")
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("stopping voting API")
	return s.httpServer.Shutdown(ctx)
}
