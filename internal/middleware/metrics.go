package middleware

import (
	"cmp"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"perflab/internal/metrics"
)

type Recorder interface {
	RecordCounter(name string, labels ...string)
	ObserveDuration(name string, seconds float64, labels ...string)
}

// Metrics records a counter and a duration sample for every request, keyed
// by method and route template. The template keeps label cardinality
// bounded; raw paths with IDs in them never become label values.
func Metrics(recorder Recorder) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)

			route := cmp.Or(c.Path(), "/")
			method := c.Request().Method

			statusCode := c.Response().Status
			if he, ok := err.(*echo.HTTPError); ok {
				statusCode = he.Code
			}

			recorder.RecordCounter(metrics.HTTPRequestsTotal, method, route, strconv.Itoa(statusCode))
			recorder.ObserveDuration(metrics.HTTPRequestDuration, time.Since(start).Seconds(), method, route)

			return err
		}
	}
}
