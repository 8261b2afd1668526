package server

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	geom "github.com/peterstace/simplefeatures/geom"

	"github.com/aigeo-prime/firewatch/internal/geo"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 1000
)

func (s *Server) routes() {
	e := s.echo
	e.GET("/healthz", s.health)

	api := e.Group("/api")
	api.GET("/fire", s.getFire)
	api.GET("/telemetry", s.getTelemetry)
	api.GET("/telemetry/history", s.getHistory)
	api.GET("/assets", s.getAssets)
	api.GET("/status", s.getStatus)

	if s.deps.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(s.deps.Metrics.Handler()))
	}
	if s.deps.Hub != nil {
		e.GET("/ws", echo.WrapHandler(s.deps.Hub))
	}
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status":  "ok",
		"running": s.deps.Engine.Running(),
	})
}

func (s *Server) getFire(c echo.Context) error {
	if s.deps.Fire == nil {
		return echo.NewHTTPError(http.StatusNotFound, "fire data not available")
	}
	return c.Blob(http.StatusOK, echo.MIMEApplicationJSON, s.deps.Fire.GeoJSON())
}

func (s *Server) getTelemetry(c echo.Context) error {
	return c.JSON(http.StatusOK, s.deps.Engine.CurrentSnapshot())
}

func (s *Server) getHistory(c echo.Context) error {
	if s.deps.History == nil {
		return echo.NewHTTPError(http.StatusNotFound, "history not available")
	}

	limit := defaultHistoryLimit
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "limit must be a positive integer")
		}
		limit = min(n, maxHistoryLimit)
	}
	return c.JSON(http.StatusOK, s.deps.History.Recent(limit))
}

func (s *Server) getAssets(c echo.Context) error {
	assets := s.deps.Engine.Assets()
	fc := make(geom.GeoJSONFeatureCollection, 0, len(assets))
	for _, a := range assets {
		fc = append(fc, geom.GeoJSONFeature{
			ID:       a.ID,
			Geometry: geo.PathLineString(a.Path).AsGeometry(),
			Properties: map[string]interface{}{
				"name":            a.Name,
				"type":            string(a.Kind),
				"speed":           a.Speed,
				"batteryCapacity": a.BatteryCapacity,
				"waypoints":       len(a.Path),
			},
		})
	}
	return c.JSON(http.StatusOK, fc)
}

func (s *Server) getStatus(c echo.Context) error {
	if s.deps.Status == nil {
		return echo.NewHTTPError(http.StatusNotFound, "status not available")
	}
	return c.JSON(http.StatusOK, s.deps.Status.Status())
}
