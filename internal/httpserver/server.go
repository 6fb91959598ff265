package httpserver

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/GowthamiKadiyala/ai-interview-coach/internal/observability"
	"github.com/GowthamiKadiyala/ai-interview-coach/internal/resume"
	"github.com/GowthamiKadiyala/ai-interview-coach/internal/session"
	"github.com/GowthamiKadiyala/ai-interview-coach/internal/stt"
)

// maxUploadBytes bounds resume and audio uploads.
const maxUploadBytes = 20 << 20

// Server bundles the HTTP surface and its dependencies.
type Server struct {
	ctrl   *session.Controller
	tokens *stt.TokenIssuer
	hub    *Hub
}

// New wires the echo router. The hub must be the same instance registered
// as the session's event listeners and audio sink.
func New(ctrl *session.Controller, tokens *stt.TokenIssuer, hub *Hub) *echo.Echo {
	s := &Server{ctrl: ctrl, tokens: tokens, hub: hub}

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	api := e.Group("/api")
	api.POST("/session/start", s.handleStart)
	api.POST("/session/turn", s.handleTurn)
	api.POST("/session/end", s.handleEnd)
	api.POST("/session/score", s.handleRetryScore)
	api.GET("/session/state", s.handleState)
	api.GET("/session/events", hub.Handle)
	api.POST("/resume/parse", s.handleParseResume)
	api.GET("/speech/token", s.handleSpeechToken)

	return e
}

type startRequest struct {
	ResumeText     string `json:"resumeText"`
	JobDescription string `json:"jobDescription"`
}

func (s *Server) handleStart(c echo.Context) error {
	var req startRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errBody("invalid request body"))
	}
	ctx := requestContext(c)
	snap, err := s.ctrl.StartSession(ctx, req.ResumeText, req.JobDescription)
	if err != nil {
		observability.LoggerFromContext(ctx).Error("opening turn failed", "error", err)
		return c.JSON(http.StatusBadGateway, echo.Map{"error": err.Error(), "session": snap})
	}
	return c.JSON(http.StatusOK, snap)
}

func (s *Server) handleTurn(c echo.Context) error {
	audio, err := readUpload(c, "audio")
	if err != nil {
		return c.JSON(http.StatusBadRequest, errBody("no audio provided"))
	}
	err = s.ctrl.RequestTurn(requestContext(c), audio)
	switch {
	case err == nil:
	case errors.Is(err, session.ErrNoSession):
		return c.JSON(http.StatusNotFound, errBody(err.Error()))
	case errors.Is(err, session.ErrSessionEnded):
		return c.JSON(http.StatusGone, errBody(err.Error()))
	case errors.Is(err, session.ErrTurnInProgress):
		return c.JSON(http.StatusConflict, errBody(err.Error()))
	case errors.Is(err, session.ErrTurnTimeout):
		return c.JSON(http.StatusGatewayTimeout, errBody(err.Error()))
	case errors.Is(err, session.ErrCapture):
		return c.JSON(http.StatusUnprocessableEntity, errBody(err.Error()))
	default:
		return c.JSON(http.StatusBadGateway, errBody(err.Error()))
	}
	snap, _ := s.ctrl.Observe()
	return c.JSON(http.StatusOK, snap)
}

func (s *Server) handleEnd(c echo.Context) error {
	rep, err := s.ctrl.EndSession(requestContext(c))
	return s.respondReport(c, rep, err)
}

func (s *Server) handleRetryScore(c echo.Context) error {
	rep, err := s.ctrl.RetryScoring(requestContext(c))
	return s.respondReport(c, rep, err)
}

func (s *Server) respondReport(c echo.Context, rep session.Report, err error) error {
	switch {
	case err == nil:
		return c.JSON(http.StatusOK, rep)
	case errors.Is(err, session.ErrNoSession):
		return c.JSON(http.StatusNotFound, errBody(err.Error()))
	default:
		// the session is Ended either way; the client may retry scoring
		return c.JSON(http.StatusBadGateway, errBody(err.Error()))
	}
}

func (s *Server) handleState(c echo.Context) error {
	snap, ok := s.ctrl.Observe()
	if !ok {
		return c.JSON(http.StatusNotFound, errBody("no active session"))
	}
	return c.JSON(http.StatusOK, snap)
}

func (s *Server) handleParseResume(c echo.Context) error {
	data, err := readUpload(c, "file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, errBody("no file provided"))
	}
	text, err := resume.ExtractText(data)
	if err != nil {
		return c.JSON(http.StatusUnprocessableEntity, errBody(err.Error()))
	}
	return c.JSON(http.StatusOK, echo.Map{"text": text})
}

func (s *Server) handleSpeechToken(c echo.Context) error {
	token, region, err := s.tokens.Issue(requestContext(c))
	if err != nil {
		return c.JSON(http.StatusBadGateway, errBody(err.Error()))
	}
	return c.JSON(http.StatusOK, echo.Map{"token": token, "region": region})
}

// readUpload reads a multipart field, falling back to the raw body so
// clients can also post clips directly.
func readUpload(c echo.Context, field string) ([]byte, error) {
	if fh, err := c.FormFile(field); err == nil {
		f, err := fh.Open()
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return io.ReadAll(io.LimitReader(f, maxUploadBytes))
	}
	data, err := io.ReadAll(io.LimitReader(c.Request().Body, maxUploadBytes))
	if err != nil || len(data) == 0 {
		return nil, errors.New("empty upload")
	}
	return data, nil
}

func requestContext(c echo.Context) (ctx context.Context) {
	ctx = c.Request().Context()
	if id := c.Response().Header().Get(echo.HeaderXRequestID); id != "" {
		ctx = observability.WithRequestID(ctx, id)
	}
	return ctx
}

func errBody(msg string) echo.Map { return echo.Map{"error": msg} }
