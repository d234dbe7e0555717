// Package server exposes the pipeline and the stored results over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/dtnitsch/article-analyzer/models"
	"github.com/dtnitsch/article-analyzer/pkg/augment"
	"github.com/dtnitsch/article-analyzer/pkg/collector"
	"github.com/dtnitsch/article-analyzer/pkg/metrics"
	"github.com/dtnitsch/article-analyzer/pkg/pipeline"
	"github.com/dtnitsch/article-analyzer/pkg/query"
	"github.com/dtnitsch/article-analyzer/pkg/store"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SessionHeader selects the session a request reads and writes.
const SessionHeader = "X-Session-ID"

// Error types reported in ErrorInfo.
const (
	ErrTypeEmptyInput  = "EmptyInput"
	ErrTypeInvalidURLs = "InvalidURLs"
	ErrTypeTooManyURLs = "TooManyURLs"
	ErrTypeBadRequest  = "BadRequest"
	ErrTypeNotFound    = "NotFound"
	ErrTypeUnexpected  = "UnexpectedError"
)

// Server serves the analysis API. Batches run one at a time across all requests.
type Server struct {
	echo     *echo.Echo
	pipeline *pipeline.Pipeline
	store    store.Store
	augment  *augment.Service
	cfg      models.ServerConfig
	session  string
	logger   *slog.Logger

	batchMu sync.Mutex
}

// New builds the server and registers its routes. The pipeline should save into st.
func New(cfg *models.Config, p *pipeline.Pipeline, st store.Store, logger *slog.Logger) *Server {
	s := &Server{
		echo:     echo.New(),
		pipeline: p,
		store:    st,
		augment:  augment.NewService(st, augment.WithLogger(logger)),
		cfg:      cfg.Server,
		session:  cfg.Store.Session,
		logger:   logger,
	}

	e := s.echo
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = s.errorHandler

	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		Skipper: func(c echo.Context) bool {
			path := c.Request().URL.Path
			return path == "/health" || path == "/metrics"
		},
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			ctx := c.Request().Context()
			if v.Error == nil {
				logger.InfoContext(ctx, "Request completed",
					"method", v.Method,
					"uri", v.URI,
					"status", v.Status,
					"latency_ms", v.Latency.Milliseconds())
			} else {
				logger.ErrorContext(ctx, "Request failed",
					"method", v.Method,
					"uri", v.URI,
					"status", v.Status,
					"latency_ms", v.Latency.Milliseconds(),
					"error", v.Error.Error())
			}
			return nil
		},
	}))
	e.Use(middleware.Recover())

	api := e.Group("/api")
	api.POST("/analyze", s.handleAnalyze)
	api.GET("/results", s.handleResults)
	api.POST("/results/:id/rewrite", s.handleRewrite)
	api.POST("/results/:id/questions", s.handleQuestions)

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "healthy"})
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	return s
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Run listens on the configured address until ctx is cancelled, then shuts down
// gracefully within the configured timeout.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting HTTP server", "addr", s.cfg.Addr)
		if err := s.echo.Start(s.cfg.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down server", "timeout", s.cfg.ShutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := s.echo.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	s.logger.Info("Server exited properly")
	return nil
}

func (s *Server) sessionOf(c echo.Context) string {
	if id := strings.TrimSpace(c.Request().Header.Get(SessionHeader)); id != "" {
		return id
	}
	return s.session
}

func (s *Server) handleAnalyze(c echo.Context) error {
	var req models.AnalyzeRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, models.ErrorInfo{
			Type:    ErrTypeBadRequest,
			Message: "request body must be JSON: {\"urls\": [...]}",
		})
	}

	urls, err := collector.CollectList(req.URLs)
	if errors.Is(err, collector.ErrEmptyInput) {
		return errorJSON(c, http.StatusBadRequest, models.ErrorInfo{
			Type:             ErrTypeEmptyInput,
			Message:          "Please enter at least one URL",
			SuggestedActions: []string{"Add one URL per entry in the urls array"},
		})
	}
	if s.cfg.MaxURLs > 0 && len(urls) > s.cfg.MaxURLs {
		return errorJSON(c, http.StatusBadRequest, models.ErrorInfo{
			Type:    ErrTypeTooManyURLs,
			Message: fmt.Sprintf("%d URLs submitted, the limit is %d", len(urls), s.cfg.MaxURLs),
		})
	}
	valid, invalid := collector.Validate(urls)
	if len(invalid) > 0 {
		return errorJSON(c, http.StatusBadRequest, models.ErrorInfo{
			Type:             ErrTypeInvalidURLs,
			Message:          fmt.Sprintf("%d invalid URLs", len(invalid)),
			Invalid:          invalid,
			SuggestedActions: []string{"Use absolute http or https URLs"},
		})
	}

	session := s.sessionOf(c)
	s.batchMu.Lock()
	defer s.batchMu.Unlock()

	bundle, err := s.pipeline.Process(c.Request().Context(), session, valid)
	if err != nil {
		s.logger.Error("Batch failed", "session", session, "error", err)
		return errorJSON(c, http.StatusInternalServerError, models.ErrorInfo{
			Type:    ErrTypeUnexpected,
			Message: err.Error(),
		})
	}
	return c.JSON(http.StatusOK, models.NewAnalyzeResponse(bundle))
}

// ResultsResponse is the body of GET /api/results.
type ResultsResponse struct {
	Results     []models.AnalysisResult  `json:"results"`
	Errors      []models.ProcessingError `json:"errors"`
	ProcessedAt *time.Time               `json:"processedAt,omitempty"`
	Stats       query.Stats              `json:"stats"`
}

func (s *Server) handleResults(c echo.Context) error {
	filter, err := query.ParseFilter(c.QueryParam("filter"))
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, models.ErrorInfo{Type: ErrTypeBadRequest, Message: err.Error()})
	}
	for param, dst := range map[string]*string{
		"search":     &filter.Search,
		"category":   &filter.Category,
		"sentiment":  &filter.Sentiment,
		"complexity": &filter.Complexity,
		"keyword":    &filter.Keyword,
	} {
		if v := c.QueryParam(param); v != "" {
			*dst = v
		}
	}
	if v := c.QueryParam("sort"); v != "" {
		if filter.SortBy, err = query.ParseSort(v); err != nil {
			return errorJSON(c, http.StatusBadRequest, models.ErrorInfo{Type: ErrTypeBadRequest, Message: err.Error()})
		}
	}

	resp := ResultsResponse{
		Results: []models.AnalysisResult{},
		Errors:  []models.ProcessingError{},
	}
	bundle, err := s.store.Load(c.Request().Context(), s.sessionOf(c))
	if errors.Is(err, store.ErrNotFound) {
		return c.JSON(http.StatusOK, resp)
	}
	if err != nil {
		return err
	}

	resp.Results = query.Apply(bundle.Results, filter)
	if bundle.Errors != nil {
		resp.Errors = bundle.Errors
	}
	resp.ProcessedAt = &bundle.ProcessedAt
	resp.Stats = query.Summarize(bundle, len(resp.Results))
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleRewrite(c echo.Context) error {
	var req models.RewriteRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, models.ErrorInfo{Type: ErrTypeBadRequest, Message: "request body must be JSON: {\"level\": \"...\"}"})
	}
	level, err := models.ParseDetailLevel(req.Level)
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, models.ErrorInfo{
			Type:             ErrTypeBadRequest,
			Message:          err.Error(),
			SuggestedActions: []string{"Use one of simple, normal, detailed, extra"},
		})
	}

	result, err := s.augment.RewriteSummary(c.Request().Context(), s.sessionOf(c), c.Param("id"), level)
	metrics.RecordAugment("rewrite", err)
	return s.augmentResponse(c, result, err)
}

func (s *Server) handleQuestions(c echo.Context) error {
	result, err := s.augment.GenerateMoreQuestions(c.Request().Context(), s.sessionOf(c), c.Param("id"))
	metrics.RecordAugment("questions", err)
	return s.augmentResponse(c, result, err)
}

func (s *Server) augmentResponse(c echo.Context, result *models.AnalysisResult, err error) error {
	if errors.Is(err, augment.ErrResultNotFound) || errors.Is(err, store.ErrNotFound) {
		return errorJSON(c, http.StatusNotFound, models.ErrorInfo{
			Type:    ErrTypeNotFound,
			Message: fmt.Sprintf("result %s not found", c.Param("id")),
		})
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

// errorHandler renders every unhandled error as an ErrorResponse.
func (s *Server) errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := http.StatusInternalServerError
	info := models.ErrorInfo{Type: ErrTypeUnexpected, Message: "internal server error"}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		status = he.Code
		info.Message = fmt.Sprint(he.Message)
		switch status {
		case http.StatusNotFound:
			info.Type = ErrTypeNotFound
		case http.StatusBadRequest:
			info.Type = ErrTypeBadRequest
		}
	} else {
		s.logger.Error("Unhandled error", "uri", c.Request().RequestURI, "error", err)
	}

	if err := errorJSON(c, status, info); err != nil {
		s.logger.Error("Failed to write error response", "error", err)
	}
}

func errorJSON(c echo.Context, status int, info models.ErrorInfo) error {
	return c.JSON(status, models.ErrorResponse{Error: info})
}
