package server

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"tracker/internal/apperr"
	"tracker/internal/auth"
	"tracker/internal/tracker"
)

// Options tunes cookie handling and health reporting.
type Options struct {
	SecureCookies bool
	// RefreshMaxAge is the refresh cookie lifetime in seconds.
	RefreshMaxAge int
	// AccessMaxAge is the access cookie lifetime in seconds.
	AccessMaxAge int
	Health       func(ctx context.Context) error
}

// Server provides HTTP handlers for the tracker API.
type Server struct {
	engine  *gin.Engine
	auth    *auth.Service
	tracker *tracker.Service
	logger  *slog.Logger
	opts    Options
}

// New constructs the HTTP server with routes and middleware configured.
func New(authSvc *auth.Service, trackerSvc *tracker.Service, logger *slog.Logger, opts Options) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(gin.LoggerWithWriter(gin.DefaultWriter, "/api/healthz"))

	srv := &Server{
		engine:  router,
		auth:    authSvc,
		tracker: trackerSvc,
		logger:  logger,
		opts:    opts,
	}

	srv.registerRoutes()
	return srv
}

// Engine exposes the underlying Gin engine.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// registerRoutes wires all API handlers together.
func (s *Server) registerRoutes() {
	api := s.engine.Group("/api")
	api.GET("/healthz", s.handleHealth)

	v1 := api.Group("/v1")
	{
		users := v1.Group("/users")
		{
			users.POST("/register", s.handleRegister)
			users.POST("/login", s.handleLogin)
			users.POST("/refresh", s.handleRefresh)
			users.POST("/logout", s.requireAuth, s.handleLogout)
			users.GET("/me", s.requireAuth, s.handleMe)
		}

		projects := v1.Group("/projects", s.requireAuth)
		{
			projects.POST("", s.handleCreateProject)
			projects.GET("", s.handleListProjects)
			projects.GET(":id", s.handleGetProject)
			projects.PUT(":id", s.handleUpdateProject)
			projects.DELETE(":id", s.handleDeleteProject)
			projects.POST(":id/add", s.handleAddCollaborator)
		}

		// :id is the project id on the collection routes and the task id
		// on the /project/:projectId routes.
		tasks := v1.Group("/tasks", s.requireAuth)
		{
			tasks.POST(":id", s.handleCreateTask)
			tasks.GET(":id", s.handleListTasks)
			tasks.GET(":id/project/:projectId", s.handleGetTask)
			tasks.PUT(":id/project/:projectId", s.handleUpdateTask)
			tasks.DELETE(":id/project/:projectId", s.handleDeleteTask)
		}
	}

	s.engine.NoRoute(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api/") {
			s.respondError(c, apperr.New(apperr.NotFound, "endpoint not found"))
			return
		}
		c.Status(http.StatusNotFound)
	})
}

// handleHealth provides a basic readiness endpoint.
func (s *Server) handleHealth(c *gin.Context) {
	if s.opts.Health != nil {
		if err := s.opts.Health(c.Request.Context()); err != nil {
			s.logger.Error("health check failed", slog.String("error", err.Error()))
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// parseID converts a path parameter to int64 with error handling.
func (s *Server) parseID(c *gin.Context, name string) (int64, bool) {
	raw := c.Param(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		s.respondError(c, apperr.Newf(apperr.Validation, "invalid %s", name))
		return 0, false
	}
	return id, true
}

// bindJSON decodes the request body into dst, answering 400 on failure.
func (s *Server) bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		s.respondError(c, apperr.Wrap(apperr.Validation, err, "invalid request body"))
		return false
	}
	return true
}

type successEnvelope struct {
	StatusCode int    `json:"statusCode"`
	Data       any    `json:"data"`
	Message    string `json:"message"`
	Success    bool   `json:"success"`
}

type errorEnvelope struct {
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
	Success    bool   `json:"success"`
}

// respondError logs the error and writes the error envelope.
func (s *Server) respondError(c *gin.Context, err error) {
	kind := apperr.KindOf(err)
	status := apperr.HTTPStatus(kind)
	if kind == apperr.Internal {
		s.logger.Error("request failed", slog.String("path", c.FullPath()), slog.String("error", err.Error()))
	} else {
		s.logger.Debug("request rejected", slog.String("path", c.FullPath()), slog.String("kind", kind.String()), slog.String("error", err.Error()))
	}
	c.AbortWithStatusJSON(status, errorEnvelope{
		StatusCode: status,
		Message:    apperr.Message(err),
		Success:    false,
	})
}

// respondSuccess wraps a payload in the success envelope.
func respondSuccess(c *gin.Context, status int, payload any, message string) {
	if payload == nil {
		payload = gin.H{}
	}
	c.JSON(status, successEnvelope{
		StatusCode: status,
		Data:       payload,
		Message:    message,
		Success:    true,
	})
}
