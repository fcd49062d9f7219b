// Package server exposes the analysis pipeline over HTTP: multipart HAR
// uploads in, JSON results out.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ppiankov/harspectre/internal/har"
	"github.com/ppiankov/harspectre/internal/metrics"
	"github.com/ppiankov/harspectre/internal/models"
	"github.com/ppiankov/harspectre/internal/pipeline"
	"github.com/ppiankov/harspectre/pkg/config"
)

const (
	uploadField      = "har_file"
	userActionsField = "user_actions"
	requestIDHeader  = "X-Request-ID"

	multipartMemory = 8 << 20
	shutdownTimeout = 10 * time.Second
)

// Server serves the upload endpoints.
type Server struct {
	cfg      *config.Config
	pipeline *pipeline.Pipeline
	metrics  *metrics.Metrics
	mux      *http.ServeMux
}

// New wires the routes. m may be nil, in which case /metrics is not served.
func New(cfg *config.Config, p *pipeline.Pipeline, m *metrics.Metrics) *Server {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	s := &Server{
		cfg:      cfg,
		pipeline: p,
		metrics:  m,
		mux:      http.NewServeMux(),
	}

	s.mux.HandleFunc("POST /analyze", s.instrument("/analyze", s.handleAnalyze))
	s.mux.HandleFunc("POST /ai_review", s.instrument("/ai_review", s.handleReview))
	s.mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "review": p.HasGenerator()})
	})
	if m != nil {
		s.mux.Handle("GET /metrics", promhttp.HandlerFor(m.Registry(), promhttp.HandlerOpts{}))
	}
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// ListenAndServe serves on cfg.Addr until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      s.cfg.LLMTimeout + 30*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", slog.String("addr", s.cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}
	slog.Info("HTTP server stopped")
	return nil
}

type analyzeFunc func(ctx context.Context, trace io.Reader, source string, r *http.Request) (*models.AnalysisResult, error)

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	s.handleUpload(w, r, func(ctx context.Context, trace io.Reader, source string, _ *http.Request) (*models.AnalysisResult, error) {
		return s.pipeline.Analyze(ctx, trace, source)
	})
}

func (s *Server) handleReview(w http.ResponseWriter, r *http.Request) {
	if !s.pipeline.HasGenerator() {
		writeError(w, http.StatusInternalServerError, codeReviewUnavailable, pipeline.ErrNoGenerator.Error(), nil)
		return
	}
	s.handleUpload(w, r, func(ctx context.Context, trace io.Reader, source string, r *http.Request) (*models.AnalysisResult, error) {
		return s.pipeline.Review(ctx, trace, source, r.FormValue(userActionsField))
	})
}

// handleUpload stores the upload in a per-request temp file, runs fn on
// it and removes the file before returning.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request, fn analyzeFunc) {
	requestID := requestIDFrom(r.Context())
	logger := slog.With(slog.String("request_id", requestID), slog.String("path", r.URL.Path))

	if s.cfg.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	}

	path, source, err := s.saveUpload(r, requestID)
	if r.MultipartForm != nil {
		defer func() { _ = r.MultipartForm.RemoveAll() }()
	}
	if err != nil {
		s.writeUploadError(w, logger, err)
		return
	}
	defer func() {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			logger.Warn("failed to remove upload", slog.String("file", path), slog.String("error", err.Error()))
		}
	}()

	trace, err := os.Open(path)
	if err != nil {
		s.writeUploadError(w, logger, err)
		return
	}
	result, err := fn(r.Context(), trace, source, r)
	_ = trace.Close()
	if err != nil {
		s.writePipelineError(w, logger, err)
		return
	}

	if result.Review != nil {
		logger.Info("review generated", slog.String("outcome", string(result.Review.Outcome())))
	}
	writeJSON(w, http.StatusOK, result)
}

var (
	errMissingUpload = errors.New("no HAR file uploaded")
	errInvalidUpload = errors.New("malformed multipart upload")
)

// saveUpload returns the temp file path and the client's file name.
func (s *Server) saveUpload(r *http.Request, requestID string) (string, string, error) {
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.Is(err, http.ErrNotMultipart):
			return "", "", errMissingUpload
		case errors.As(err, &tooLarge):
			return "", "", err
		default:
			return "", "", fmt.Errorf("%w: %v", errInvalidUpload, err)
		}
	}

	file, header, err := r.FormFile(uploadField)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return "", "", errMissingUpload
		}
		return "", "", err
	}
	defer file.Close()

	tmp, err := os.CreateTemp(s.cfg.UploadDir, "har-"+requestID+"-*.har")
	if err != nil {
		return "", "", fmt.Errorf("failed to create upload file: %w", err)
	}
	path := tmp.Name()

	written, err := io.Copy(tmp, file)
	closeErr := tmp.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(path)
		return "", "", fmt.Errorf("failed to store upload: %w", err)
	}

	slog.Debug("upload stored",
		slog.String("request_id", requestID),
		slog.String("filename", header.Filename),
		slog.Int64("bytes", written),
	)
	source := filepath.Base(header.Filename)
	if source == "." || source == string(filepath.Separator) {
		source = "upload.har"
	}
	return path, source, nil
}

func (s *Server) writeUploadError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.Is(err, errMissingUpload):
		writeError(w, http.StatusBadRequest, codeMissingUpload, err.Error(), nil)
	case errors.As(err, &tooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, codeUploadTooLarge,
			fmt.Sprintf("upload exceeds %d bytes", tooLarge.Limit), nil)
	case errors.Is(err, errInvalidUpload):
		writeError(w, http.StatusBadRequest, codeInvalidUpload, err.Error(), nil)
	default:
		logger.Error("failed to store upload", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, codeInternal, "failed to store upload", nil)
	}
}

// writePipelineError maps core failures. An undecodable upload is the
// client's fault (422); everything else is a server error.
func (s *Server) writePipelineError(w http.ResponseWriter, logger *slog.Logger, err error) {
	logger.Error("request failed", slog.String("error", err.Error()))

	switch {
	case errors.Is(err, har.ErrDecode):
		writeError(w, http.StatusUnprocessableEntity, codeInvalidHAR, err.Error(), nil)
	case errors.Is(err, pipeline.ErrNoGenerator):
		writeError(w, http.StatusInternalServerError, codeReviewUnavailable, err.Error(), nil)
	default:
		writeError(w, http.StatusInternalServerError, codeGenerationFailed, err.Error(), nil)
	}
}

type requestIDKey struct{}

func requestIDFrom(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}
	return uuid.NewString()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// instrument assigns a request ID and counts responses by status.
func (s *Server) instrument(endpoint string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(requestIDHeader)
		if _, err := uuid.Parse(requestID); err != nil {
			requestID = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, requestID)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next(rec, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, requestID)))

		if s.metrics != nil {
			s.metrics.HTTPRequestsTotal.WithLabelValues(endpoint, strconv.Itoa(rec.status)).Inc()
		}
		slog.Debug("request served",
			slog.String("request_id", requestID),
			slog.String("endpoint", endpoint),
			slog.Int("status", rec.status),
			slog.Duration("elapsed", time.Since(start)),
		)
	}
}
