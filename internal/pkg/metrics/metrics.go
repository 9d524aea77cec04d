// Package metrics 定义 /metrics 暴露的 Prometheus 指标。
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequestsTotal 按方法、路由模板和状态码统计请求数。
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "todo_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "todo_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.3, 1, 3},
		},
		[]string{"method", "route"},
	)

	HTTPInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "todo_http_in_flight_requests",
			Help: "Current number of in-flight HTTP requests",
		},
	)

	// TaskOperationsTotal 按操作和结果类别统计任务服务调用。
	TaskOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "todo_task_operations_total",
			Help: "Task service operations by result",
		},
		[]string{"op", "result"},
	)

	// AuthEventsTotal 统计注册、登录和令牌校验结果。
	AuthEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "todo_auth_events_total",
			Help: "Authentication events by result",
		},
		[]string{"event", "result"},
	)
)

// ObserveRequest 记录一次已完成的 HTTP 请求。
func ObserveRequest(method, route string, status int, elapsed time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	HTTPRequestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// TaskOp 记录任务操作结果（"ok" 或错误类别）。
func TaskOp(op, result string) {
	TaskOperationsTotal.WithLabelValues(op, result).Inc()
}

// AuthEvent 记录认证事件结果。
func AuthEvent(event, result string) {
	AuthEventsTotal.WithLabelValues(event, result).Inc()
}
