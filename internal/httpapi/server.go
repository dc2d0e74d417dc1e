package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/linkrev/linkrev/internal/compare"
	"github.com/linkrev/linkrev/internal/packet"
	"github.com/linkrev/linkrev/internal/review"
	"github.com/linkrev/linkrev/internal/tabular"
)

// Config holds HTTP server configuration.
type Config struct {
	Host string
	Port int
}

// Server exposes one review session over HTTP. The session assumes a
// single actor, so every handler serializes through one mutex rather
// than inventing finer locking.
type Server struct {
	echo    *echo.Echo
	session *review.Session
	mu      sync.Mutex
	logger  *zap.Logger
	config  *Config
}

// NewServer creates an HTTP server around a session.
func NewServer(session *review.Session, logger *zap.Logger, cfg *Config) (*Server, error) {
	if session == nil {
		return nil, fmt.Errorf("session is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}
	if cfg == nil {
		cfg = &Config{
			Host: "localhost",
			Port: 8389,
		}
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Middleware
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.RateLimiter(middleware.NewRateLimiterMemoryStore(rate.Limit(50))))
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			duration := time.Since(start)

			observeRequest(c.Request().Method, c.Path(), c.Response().Status, duration)
			logger.Info("http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", duration),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			)
			return err
		}
	})

	s := &Server{
		echo:    e,
		session: session,
		logger:  logger,
		config:  cfg,
	}
	s.registerRoutes()
	return s, nil
}

// registerRoutes sets up the HTTP endpoints.
func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	v1 := s.echo.Group("/api/v1")
	v1.GET("/session", s.handleSession)
	v1.GET("/pair", s.handlePair)
	v1.GET("/pair/:index", s.handlePair)
	v1.POST("/pair/:index/label", s.handleSaveLabel)
	v1.POST("/pair/:index/note", s.handleSaveNote)
	v1.POST("/navigate", s.handleNavigate)
	v1.GET("/summary", s.handleSummary)
	v1.PUT("/labels", s.handleSetLabelChoices)
	v1.PUT("/autosave", s.handleSetAutosave)
	v1.GET("/packet/export", s.handleExportPacket)
	v1.POST("/packet/import", s.handleImportPacket)
}

// Start begins serving and blocks until shutdown.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info("http server starting", zap.String("addr", addr))
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok", Session: s.session.ID()})
}

func (s *Server) handleSession(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return c.JSON(http.StatusOK, SessionResponse{
		Ready:        s.session.Ready(),
		CurrentIndex: s.session.CurrentIndex(),
		NumPairs:     s.session.NumPairs(),
		LabelChoices: s.session.LabelChoices(),
		Autosave:     s.session.Autosave(),
	})
}

func (s *Server) handlePair(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	index := s.session.CurrentIndex()
	if param := c.Param("index"); param != "" {
		var err error
		if index, err = parseIndex(param); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
	}

	row, err := s.session.Pair(index)
	if err != nil {
		return mapError(err)
	}

	var (
		raw    review.RawPair
		groups []review.GroupView
		found  bool
	)
	switch format := c.QueryParam("format"); format {
	case "", "grouped":
		groups, found, err = s.session.GroupedPairAt(index)
	case "raw":
		raw, found, err = s.session.RawPairAt(index)
	default:
		return echo.NewHTTPError(http.StatusBadRequest,
			fmt.Sprintf("unknown format %q (want raw or grouped)", format))
	}
	if err != nil {
		return mapError(err)
	}

	PairsServed.Inc()
	return c.JSON(http.StatusOK, pairResponse(row, raw, groups, found))
}

func (s *Server) handleSaveLabel(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	index, err := parseIndex(c.Param("index"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	var req SaveRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := s.session.SaveLabelAt(index, req.Label); err != nil {
		return mapError(err)
	}
	LabelsSaved.WithLabelValues("label").Inc()
	row, err := s.session.Pair(index)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, pairResponse(row, review.RawPair{}, nil, row.Indicator != compare.IndicatorMissing))
}

func (s *Server) handleSaveNote(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	index, err := parseIndex(c.Param("index"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	var req SaveRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := s.session.SaveNoteAt(index, req.Note); err != nil {
		return mapError(err)
	}
	LabelsSaved.WithLabelValues("note").Inc()
	row, err := s.session.Pair(index)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, pairResponse(row, review.RawPair{}, nil, row.Indicator != compare.IndicatorMissing))
}

func (s *Server) handleNavigate(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var req NavigateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	var index int
	switch req.Action {
	case "advance":
		index = s.session.Advance()
	case "retreat":
		index = s.session.Retreat()
	case "next-unlabeled":
		index = s.session.AdvanceToUnlabeled()
	case "prev-unlabeled":
		index = s.session.RetreatToUnlabeled()
	case "jump":
		if err := s.session.JumpTo(req.Index); err != nil {
			return mapError(err)
		}
		index = s.session.CurrentIndex()
	default:
		return echo.NewHTTPError(http.StatusBadRequest,
			fmt.Sprintf("unknown action %q", req.Action))
	}
	NavigationOps.WithLabelValues(req.Action).Inc()
	return c.JSON(http.StatusOK, NavigateResponse{Index: index})
}

func (s *Server) handleSummary(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	counts := s.session.LabelSummary()
	total := 0
	for _, n := range counts {
		total += n
	}
	return c.JSON(http.StatusOK, SummaryResponse{Counts: counts, Total: total})
}

func (s *Server) handleSetLabelChoices(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var req LabelChoicesRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := s.session.SetLabelChoices(req.Choices); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, LabelChoicesRequest{Choices: s.session.LabelChoices()})
}

func (s *Server) handleSetAutosave(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var req AutosaveRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	enabled := s.session.SetAutosave(req.Enabled)
	return c.JSON(http.StatusOK, AutosaveResponse{Enabled: enabled})
}

func (s *Server) handleExportPacket(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := packet.Export(s.session)
	if err != nil {
		return mapError(err)
	}
	data, err := doc.Encode()
	if err != nil {
		return mapError(err)
	}
	return c.Blob(http.StatusOK, "application/yaml", data)
}

func (s *Server) handleImportPacket(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var req ImportRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Path == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "path is required")
	}
	warnings, err := packet.ImportFile(req.Path, s.session)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, ImportResponse{
		Ready:    s.session.Ready(),
		NumPairs: s.session.NumPairs(),
		Warnings: warnings,
	})
}

func parseIndex(param string) (int, error) {
	var index int
	if _, err := fmt.Sscanf(param, "%d", &index); err != nil {
		return 0, fmt.Errorf("invalid pair index %q", param)
	}
	return index, nil
}

// mapError translates engine errors to HTTP statuses: invalid input is
// 4xx, programming-invariant violations from a confused client are 404
// or 409, everything else is 500.
func mapError(err error) error {
	switch {
	case errors.Is(err, review.ErrInvalidLabel):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, compare.ErrIndexOutOfRange):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, review.ErrPrerequisiteMissing),
		errors.Is(err, compare.ErrPrerequisiteMissing),
		errors.Is(err, compare.ErrNotLoaded):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, tabular.ErrUnsupportedFormat),
		errors.Is(err, packet.ErrMissingField),
		errors.Is(err, packet.ErrNotExportable),
		errors.Is(err, compare.ErrNoDestination):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}
