package server

import (
	"io"
	"net/http"
	"strconv"
	"time"

	"lumen2mqtt/internal/core/domain"
	"lumen2mqtt/internal/mqtt"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

const requestTimeout = 10 * time.Second

type lightDTO struct {
	Id         string                 `json:"id"`
	Name       string                 `json:"name"`
	UniqueId   string                 `json:"unique_id"`
	ColorModes []domain.ColorMode     `json:"color_modes"`
	Available  bool                   `json:"available"`
	State      mqtt.LightStatePayload `json:"state"`
}

type historySampleDTO struct {
	Time  time.Time              `json:"time"`
	State mqtt.LightStatePayload `json:"state"`
}

func (s *Server) RegisterRoutes() http.Handler {
	e := echo.New()
	if s.httpLog {
		e.Use(middleware.Logger())
	}
	e.Use(middleware.Recover())

	e.GET("/healthcheck", s.HealthCheckHandler)

	api := e.Group("/api")
	api.GET("/lights", s.ListLightsHandler)
	api.GET("/lights/:id", s.GetLightHandler)
	api.POST("/lights/:id/turn_on", s.TurnOnHandler)
	api.POST("/lights/:id/turn_off", s.TurnOffHandler)
	api.GET("/lights/:id/history", s.LightHistoryHandler)

	return e
}

func (s *Server) HealthCheckHandler(c echo.Context) error {
	res, err := s.rootContext.RequestFuture(s.masterActor, domain.ActorHealthRequest{}, requestTimeout).Result()
	if err != nil {
		return c.String(http.StatusServiceUnavailable, "health_check: FAIL")
	}
	if response, ok := res.(domain.ActorHealthResponse); ok && response.Healthy {
		return c.String(http.StatusOK, "health_check: OK")
	}
	return c.String(http.StatusServiceUnavailable, "health_check: FAIL")
}

func (s *Server) ListLightsHandler(c echo.Context) error {
	res, err := s.rootContext.RequestFuture(s.masterActor, domain.ListLightsRequest{}, requestTimeout).Result()
	if err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	}
	response, ok := res.(domain.ListLightsResponse)
	if !ok || response.HasResponseError() {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "could not list lights")
	}
	lights := make([]lightDTO, 0, len(response.Lights))
	for _, snap := range response.Lights {
		lights = append(lights, snapshotToDTO(snap))
	}
	return c.JSON(http.StatusOK, lights)
}

func (s *Server) GetLightHandler(c echo.Context) error {
	res, err := s.rootContext.RequestFuture(s.masterActor, domain.GetLightStateRequest{
		LightId: c.Param("id"),
	}, requestTimeout).Result()
	if err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	}
	response, ok := res.(domain.GetLightStateResponse)
	if !ok {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "unexpected response")
	}
	if response.HasResponseError() || response.Info == nil || response.State == nil {
		return echo.NewHTTPError(http.StatusNotFound, "unknown light")
	}
	return c.JSON(http.StatusOK, snapshotToDTO(domain.LightSnapshot{
		Info:  *response.Info,
		State: *response.State,
	}))
}

// TurnOnHandler accepts the same JSON attributes as the MQTT set topic.
// An empty body is a plain turn_on.
func (s *Server) TurnOnHandler(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	command := domain.LightCommand{}
	if len(body) > 0 {
		envelope, err := mqtt.DecodeLightCommand(body)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		if envelope.On != nil && !*envelope.On {
			return echo.NewHTTPError(http.StatusBadRequest, "state OFF on turn_on, use turn_off")
		}
		command = envelope.Command
	}
	return s.sendCommand(c, domain.LightTurnOnRequest{
		LightId: c.Param("id"),
		Command: command,
	})
}

func (s *Server) TurnOffHandler(c echo.Context) error {
	req := domain.LightTurnOffRequest{
		LightId: c.Param("id"),
	}
	if raw := c.QueryParam("transition"); raw != "" {
		secs, err := strconv.ParseFloat(raw, 64)
		if err != nil || secs < 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid transition")
		}
		ms := uint32(secs * 1000)
		req.TransitionMs = &ms
	}
	return s.sendCommand(c, req)
}

func (s *Server) LightHistoryHandler(c echo.Context) error {
	req := domain.GetLightHistoryRequest{
		LightId: c.Param("id"),
	}
	if raw := c.QueryParam("since"); raw != "" {
		since, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid since, want RFC3339")
		}
		req.Since = since
	}
	if raw := c.QueryParam("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid limit")
		}
		req.Limit = limit
	}
	res, err := s.rootContext.RequestFuture(s.masterActor, req, requestTimeout).Result()
	if err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	}
	response, ok := res.(domain.GetLightHistoryResponse)
	if !ok {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "unexpected response")
	}
	if response.HasResponseError() {
		return echo.NewHTTPError(http.StatusServiceUnavailable, response.GetResponseError().Error())
	}
	samples := make([]historySampleDTO, 0, len(response.Samples))
	for _, sample := range response.Samples {
		samples = append(samples, historySampleDTO{
			Time:  sample.Time,
			State: mqtt.LightStateToPayload(sample.State),
		})
	}
	return c.JSON(http.StatusOK, samples)
}

func (s *Server) sendCommand(c echo.Context, req any) error {
	res, err := s.rootContext.RequestFuture(s.masterActor, req, requestTimeout).Result()
	if err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	}
	response, ok := res.(domain.LightCommandResponse)
	if !ok {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "unexpected response")
	}
	if response.HasResponseError() {
		return echo.NewHTTPError(http.StatusBadGateway, response.GetResponseError().Error())
	}
	if response.State == nil {
		return c.NoContent(http.StatusAccepted)
	}
	return c.JSON(http.StatusOK, mqtt.LightStateToPayload(*response.State))
}

func snapshotToDTO(snap domain.LightSnapshot) lightDTO {
	return lightDTO{
		Id:         snap.Info.Id,
		Name:       snap.Info.Name,
		UniqueId:   snap.Info.UniqueId,
		ColorModes: snap.Info.ColorModes,
		Available:  snap.State.Available,
		State:      mqtt.LightStateToPayload(snap.State),
	}
}
