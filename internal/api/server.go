// Package api serves index runs over HTTP.
//
// Routes:
//
//	POST /v1/index   run one index pass; the body is optional pipeline.Options JSON
//	GET  /healthz    liveness
//
// Runs are serialized: a request arriving while a run is in progress gets
// 409 Conflict instead of queueing behind it.
package api

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/xeipuuv/gojsonschema"

	"github.com/matzehuels/skillindex/pkg/buildinfo"
	"github.com/matzehuels/skillindex/pkg/errors"
	"github.com/matzehuels/skillindex/pkg/pipeline"
)

//go:embed index_request.schema.json
var requestSchema []byte

const (
	// DefaultRunTimeout bounds one run started over HTTP.
	DefaultRunTimeout = 4 * time.Minute

	maxBodyBytes = 64 << 10
)

// Runner executes one index run. *pipeline.Runner implements it.
type Runner interface {
	Execute(ctx context.Context, opts pipeline.Options) (*pipeline.Result, error)
}

// Server is the HTTP front end of a Runner.
type Server struct {
	runner     Runner
	logger     *log.Logger
	runTimeout time.Duration
	schema     *gojsonschema.Schema

	running sync.Mutex
}

// New creates a Server. runTimeout <= 0 selects DefaultRunTimeout.
func New(runner Runner, logger *log.Logger, runTimeout time.Duration) (*Server, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(requestSchema))
	if err != nil {
		return nil, fmt.Errorf("load request schema: %w", err)
	}
	if runTimeout <= 0 {
		runTimeout = DefaultRunTimeout
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Server{runner: runner, logger: logger, runTimeout: runTimeout, schema: schema}, nil
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(s.recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Post("/v1/index", s.handleIndex)
	return r
}

// ListenAndServe serves on addr until ctx is canceled, then shuts down
// gracefully, giving an in-flight run the run timeout to finish.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.logger.Info("listening", "addr", addr)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.runTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": buildinfo.Version})
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	opts, err := s.decodeOptions(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, err.Error(), "")
		return
	}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		writeError(w, http.StatusBadRequest, errors.GetCode(err), errors.UserMessage(err), "")
		return
	}

	if !s.running.TryLock() {
		writeError(w, http.StatusConflict, errors.ErrCodeConflict, "an index run is already in progress", "")
		return
	}
	defer s.running.Unlock()

	ctx, cancel := context.WithTimeout(r.Context(), s.runTimeout)
	defer cancel()

	res, err := s.runner.Execute(ctx, opts)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, res)
	case res != nil && stderrors.Is(err, context.DeadlineExceeded):
		res.Errors = append(res.Errors, "run timed out after "+s.runTimeout.String())
		writeJSON(w, http.StatusGatewayTimeout, res)
	case res != nil && stderrors.Is(err, context.Canceled):
		s.logger.Warn("run canceled by client", "run", opts.RunID)
	default:
		id := uuid.NewString()
		s.logger.Error("run failed", "correlation_id", id, "err", err)
		writeError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "internal error", id)
	}
}

// decodeOptions validates the body against the request schema and decodes
// it. An empty body selects every default.
func (s *Server) decodeOptions(r *http.Request) (pipeline.Options, error) {
	var opts pipeline.Options
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		return opts, fmt.Errorf("read body: %w", err)
	}
	if len(body) > maxBodyBytes {
		return opts, fmt.Errorf("body exceeds %d bytes", maxBodyBytes)
	}
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return opts, nil
	}

	result, err := s.schema.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return opts, fmt.Errorf("invalid JSON: %w", err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			msgs = append(msgs, desc.String())
		}
		return opts, fmt.Errorf("invalid request: %s", strings.Join(msgs, "; "))
	}

	if err := json.Unmarshal(body, &opts); err != nil {
		return opts, fmt.Errorf("invalid request: %w", err)
	}
	return opts, nil
}

// errorBody is the JSON body of every error response.
type errorBody struct {
	Error         string      `json:"error"`
	Code          errors.Code `json:"code"`
	CorrelationID string      `json:"correlation_id,omitempty"`
}

func writeError(w http.ResponseWriter, status int, code errors.Code, msg, correlationID string) {
	writeJSON(w, status, errorBody{Error: msg, Code: code, CorrelationID: correlationID})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
