// Package server is the reference persistence service: the board REST API over a
// store.Backend.
package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"kanban-cli/internal/store"
)

const tracerName = "kanban-cli/server"

type errorResponse struct {
	Error string `json:"error"`
}

// New builds an echo instance with every route registered.
func New(backend store.Backend, logger *log.Logger, reg *prometheus.Registry) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = errorHandler(logger)
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, "X-API-Key", "X-Request-ID"},
	}))
	Register(e, backend, logger, reg)
	return e
}

// Register wires up all API routes on the provided Echo instance.
func Register(e *echo.Echo, backend store.Backend, logger *log.Logger, reg *prometheus.Registry) {
	if reg != nil {
		m := newHTTPMetrics(reg)
		e.Use(m.middleware())
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
	}
	e.Use(tracing())
	e.Use(requestLog(logger))

	h := handlers{b: backend}
	e.GET("/health", h.health)

	e.GET("/api/projects", h.listProjects)
	e.POST("/api/projects", h.createProject)
	e.PUT("/api/projects/reorder", h.reorderProjects)
	e.GET("/api/projects/:id", h.getProject)
	e.PUT("/api/projects/:id", h.renameProject)
	e.DELETE("/api/projects/:id", h.deleteProject)

	e.GET("/api/projects/:id/columns", h.listColumns)
	e.POST("/api/projects/:id/columns", h.createColumn)
	e.PUT("/api/projects/:id/columns/reorder", h.reorderColumns)
	e.PUT("/api/columns/:id", h.renameColumn)
	e.DELETE("/api/columns/:id", h.deleteColumn)

	e.GET("/api/projects/:id/tasks", h.listTasks)
	e.POST("/api/projects/:id/tasks", h.createTask)
	e.PUT("/api/tasks/bulk-update", h.bulkUpdateTasks)
	e.GET("/api/tasks/:id", h.getTask)
	e.PUT("/api/tasks/:id", h.updateTask)
	e.DELETE("/api/tasks/:id", h.deleteTask)

	e.GET("/api/tasks/:id/subtasks", h.listSubtasks)
	e.POST("/api/tasks/:id/subtasks", h.createSubtask)
	e.PUT("/api/subtasks/:id", h.updateSubtask)
	e.DELETE("/api/subtasks/:id", h.deleteSubtask)

	e.GET("/api/tags", h.listTags)
	e.POST("/api/tags", h.createTag)
	e.DELETE("/api/tags/:id", h.deleteTag)
}

// errorHandler renders every failure as {"error": "..."} with a status derived from the
// error type.
func errorHandler(logger *log.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		status := http.StatusInternalServerError
		msg := err.Error()

		var (
			he  *echo.HTTPError
			inv store.InvalidError
		)
		switch {
		case errors.As(err, &he):
			status = he.Code
			if m, ok := he.Message.(string); ok {
				msg = m
			} else {
				msg = http.StatusText(status)
			}
		case errors.Is(err, store.ErrNotFound):
			status = http.StatusNotFound
		case errors.As(err, &inv):
			status = http.StatusBadRequest
		}
		if status >= 500 && logger != nil {
			logger.WithError(err).WithField("path", c.Request().URL.Path).Error("request failed")
		}

		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(status)
			return
		}
		_ = c.JSON(status, errorResponse{Error: msg})
	}
}

func requestLog(logger *log.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}
			if logger != nil {
				logger.WithFields(log.Fields{
					"method":     c.Request().Method,
					"route":      c.Path(),
					"status":     c.Response().Status,
					"request_id": c.Request().Header.Get("X-Request-ID"),
					"elapsed_ms": time.Since(start).Milliseconds(),
				}).Info("request")
			}
			return nil
		}
	}
}

// tracing starts a server span per request using the global tracer provider.
func tracing() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			ctx, span := otel.Tracer(tracerName).Start(req.Context(), req.Method+" "+c.Path(),
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(
					attribute.String("http.request.method", req.Method),
					attribute.String("http.route", c.Path()),
				))
			defer span.End()
			c.SetRequest(req.WithContext(ctx))

			err := next(c)
			status := c.Response().Status
			span.SetAttributes(attribute.Int("http.response.status_code", status))
			if status >= 500 {
				span.SetStatus(codes.Error, http.StatusText(status))
			}
			return err
		}
	}
}

type httpMetrics struct {
	duration *prometheus.HistogramVec
}

func newHTTPMetrics(reg prometheus.Registerer) *httpMetrics {
	m := &httpMetrics{
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "kanban",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
		}, []string{"method", "route", "status"}),
	}
	reg.MustRegister(m.duration)
	return m
}

func (m *httpMetrics) middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			m.duration.WithLabelValues(c.Request().Method, c.Path(), strconv.Itoa(c.Response().Status)).
				Observe(time.Since(start).Seconds())
			return err
		}
	}
}
