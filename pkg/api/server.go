package api

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/smith3v/tutor625/pkg/ai"
	"github.com/smith3v/tutor625/pkg/config"
	"github.com/smith3v/tutor625/pkg/logger"
	"github.com/smith3v/tutor625/pkg/progress"
	"github.com/smith3v/tutor625/pkg/srs"
)

const shutdownTimeout = 10 * time.Second

type errorBody struct {
	Error string `json:"error"`
}

type dueCard struct {
	ID          uint      `json:"id"`
	Subject     string    `json:"subject"`
	Front       string    `json:"front"`
	Back        string    `json:"back"`
	EaseFactor  float64   `json:"easeFactor"`
	Repetitions int       `json:"repetitions"`
	Interval    int       `json:"interval"`
	NextReview  time.Time `json:"nextReview"`
}

type dueResponse struct {
	Count int       `json:"count"`
	Cards []dueCard `json:"cards"`
}

// Server is the JSON HTTP API.
type Server struct {
	echo      *echo.Echo
	asker     ai.Asker
	limiter   *RateLimiter
	now       func() time.Time
	batchSize int
}

func New(cfg config.HTTPConfig, asker ai.Asker, batchSize int) *Server {
	if asker == nil {
		asker = ai.Disabled{}
	}
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:      e,
		asker:     asker,
		limiter:   NewRateLimiter(cfg.RateLimit, cfg.Burst),
		now:       func() time.Time { return time.Now().UTC() },
		batchSize: batchSize,
	}

	e.Use(middleware.Recover())
	e.Use(requestLogger())

	e.GET("/healthz", s.health)
	api := e.Group("/api", tokenAuth(cfg.APIToken))
	api.POST("/ask", s.ask, s.limiter.Middleware())
	api.GET("/users/:id/due", s.due)
	api.GET("/users/:id/stats", s.stats)
	return s
}

// tokenAuth requires "Authorization: Bearer <token>". With no token
// configured every /api request is refused.
func tokenAuth(token string) echo.MiddlewareFunc {
	return middleware.KeyAuthWithConfig(middleware.KeyAuthConfig{
		KeyLookup:  "header:" + echo.HeaderAuthorization,
		AuthScheme: "Bearer",
		Validator: func(key string, _ echo.Context) (bool, error) {
			if token == "" {
				return false, nil
			}
			return subtle.ConstantTimeCompare([]byte(key), []byte(token)) == 1, nil
		},
		ErrorHandler: func(err error, c echo.Context) error {
			logger.Debug("rejected api request", "path", c.Path(), "remote_ip", c.RealIP(), "error", err)
			return c.JSON(http.StatusUnauthorized, errorBody{Error: "unauthorized"})
		},
	})
}

func (s *Server) Handler() http.Handler {
	return s.echo
}

// Run serves on addr until ctx is canceled.
func (s *Server) Run(ctx context.Context, addr string) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("http api listening", "addr", addr)
		errCh <- s.echo.Start(addr)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.echo.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) ask(c echo.Context) error {
	var req ai.Request
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody{Error: "malformed request body"})
	}

	resp, err := s.asker.Ask(c.Request().Context(), req)
	switch {
	case err == nil:
		return c.JSON(http.StatusOK, resp)
	case errors.Is(err, ai.ErrInvalidRequest):
		return c.JSON(http.StatusBadRequest, errorBody{Error: "prompt is required"})
	case errors.Is(err, ai.ErrDisabled):
		return c.JSON(http.StatusServiceUnavailable, errorBody{Error: err.Error()})
	default:
		logger.Error("ask request failed", "error", err)
		return c.JSON(http.StatusBadGateway, errorBody{Error: "the assistant is unavailable, try again later"})
	}
}

func (s *Server) due(c echo.Context) error {
	userID, ok := parseUserID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, errorBody{Error: "invalid user id"})
	}
	cards, err := srs.SelectDueCards(userID, c.QueryParam("subject"), s.now(), s.batchSize)
	if err != nil {
		logger.Error("failed to load due cards", "user_id", userID, "error", err)
		return c.JSON(http.StatusInternalServerError, errorBody{Error: "failed to load due cards"})
	}

	out := dueResponse{Count: len(cards), Cards: make([]dueCard, 0, len(cards))}
	for _, card := range cards {
		out.Cards = append(out.Cards, dueCard{
			ID:          card.ID,
			Subject:     card.Subject,
			Front:       card.Front,
			Back:        card.Back,
			EaseFactor:  card.EaseFactor,
			Repetitions: card.Repetitions,
			Interval:    card.Interval,
			NextReview:  card.NextReview,
		})
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) stats(c echo.Context) error {
	userID, ok := parseUserID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, errorBody{Error: "invalid user id"})
	}
	stats, err := progress.LoadStats(userID, s.now())
	if errors.Is(err, progress.ErrNotRegistered) {
		return c.JSON(http.StatusNotFound, errorBody{Error: "user is not registered"})
	}
	if err != nil {
		logger.Error("failed to load stats", "user_id", userID, "error", err)
		return c.JSON(http.StatusInternalServerError, errorBody{Error: "failed to load stats"})
	}
	return c.JSON(http.StatusOK, stats)
}

func parseUserID(c echo.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}

func requestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}
			logger.Debug("http request",
				"method", c.Request().Method,
				"path", c.Path(),
				"status", c.Response().Status,
				"duration", time.Since(start),
			)
			return nil
		}
	}
}
