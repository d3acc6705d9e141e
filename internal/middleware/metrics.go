package middleware

import (
	"expvar"
	"net/http"
	"strconv"

	"github.com/felixge/httpsnoop"
	"github.com/labstack/echo/v4"
)

// Request counters exported under /debug/vars.  They are process globals
// because expvar names can be registered only once.
var (
	totalRequestsReceived           = expvar.NewInt("total_requests_received")
	totalResponsesSent              = expvar.NewInt("total_responses_sent")
	totalProcessingTimeMicroseconds = expvar.NewInt("total_processing_time_microseconds")
	totalResponsesSentByStatus      = expvar.NewMap("total_responses_sent_by_status")
)

// Metrics counts requests, responses, processing time and responses per
// status code.
func Metrics() echo.MiddlewareFunc {
	return echo.WrapMiddleware(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			totalRequestsReceived.Add(1)
			m := httpsnoop.CaptureMetrics(next, w, r)
			totalResponsesSent.Add(1)
			totalProcessingTimeMicroseconds.Add(m.Duration.Microseconds())
			totalResponsesSentByStatus.Add(strconv.Itoa(m.Code), 1)
		})
	})
}
