package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/kiwidesk/kiwi/internal/apperr"
	"github.com/kiwidesk/kiwi/internal/weather"
)

// coords reads the required lat and lon query parameters.
func coords(c *gin.Context) (lat, lon float64, err error) {
	parse := func(name string, limit float64) (float64, error) {
		raw, ok := c.GetQuery(name)
		if !ok {
			return 0, apperr.Invalid(name, "is required")
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return 0, apperr.Invalid(name, "must be a number, got %q", raw)
		}
		if v < -limit || v > limit {
			return 0, apperr.Invalid(name, "must be between %g and %g", -limit, limit)
		}
		return v, nil
	}
	if lat, err = parse("lat", 90); err != nil {
		return 0, 0, err
	}
	if lon, err = parse("lon", 180); err != nil {
		return 0, 0, err
	}
	return lat, lon, nil
}

// upstreamFailed answers an outbound call failure with its mapped status.
func (h *handler) upstreamFailed(c *gin.Context, op string, err error) {
	var uerr *weather.UpstreamError
	if !errors.As(err, &uerr) {
		h.respondError(c, op, http.StatusUnprocessableEntity, err)
		return
	}
	h.log.Error(op+": upstream error", "status", uerr.Status, "err", err)
	c.JSON(uerr.Status, errorBody{Detail: uerr.Message, Type: "UpstreamError"})
}

func (h *handler) handleWeather() gin.HandlerFunc {
	return func(c *gin.Context) {
		lat, lon, err := coords(c)
		if err != nil {
			h.respondError(c, "external: weather", http.StatusUnprocessableEntity, err)
			return
		}
		cur, err := h.weather.Current(c.Request.Context(), lat, lon)
		if err != nil {
			h.upstreamFailed(c, "external: weather", err)
			return
		}
		h.log.Info("external: weather fetched", "lat", lat, "lon", lon)
		c.JSON(http.StatusOK, cur)
	}
}

func (h *handler) handleForecast() gin.HandlerFunc {
	return func(c *gin.Context) {
		lat, lon, err := coords(c)
		if err != nil {
			h.respondError(c, "external: forecast", http.StatusUnprocessableEntity, err)
			return
		}
		fc, err := h.weather.Forecast(c.Request.Context(), lat, lon)
		if err != nil {
			h.upstreamFailed(c, "external: forecast", err)
			return
		}
		h.log.Info("external: forecast fetched", "hours", len(fc.Hourly), "days", len(fc.Daily))
		c.JSON(http.StatusOK, fc)
	}
}

func (h *handler) handleReverseGeocode() gin.HandlerFunc {
	return func(c *gin.Context) {
		lat, lon, err := coords(c)
		if err != nil {
			h.respondError(c, "external: reverse geocode", http.StatusUnprocessableEntity, err)
			return
		}
		place := h.weather.ReverseGeocode(c.Request.Context(), lat, lon)
		h.log.Info("external: geocoded", "lat", lat, "lon", lon, "label", place.Label)
		c.JSON(http.StatusOK, place)
	}
}
