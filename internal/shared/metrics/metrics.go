package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the pipeline collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	tasksStarted   *prometheus.CounterVec
	tasksCompleted *prometheus.CounterVec
	tasksFailed    *prometheus.CounterVec
	taskAttempts   *prometheus.CounterVec
	taskDuration   *prometheus.HistogramVec
	workerMessages *prometheus.CounterVec
	httpRequests   *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		tasksStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pipeline_tasks_started_total",
			Help: "Total pipeline tasks started.",
		}, []string{"task"}),
		tasksCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pipeline_tasks_completed_total",
			Help: "Total pipeline tasks completed.",
		}, []string{"task"}),
		tasksFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pipeline_tasks_failed_total",
			Help: "Total pipeline tasks that ended in permanent failure.",
		}, []string{"task", "kind"}),
		taskAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pipeline_task_attempts_total",
			Help: "Total pipeline task attempts by outcome.",
		}, []string{"task", "outcome"}),
		taskDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pipeline_task_duration_seconds",
			Help:    "Duration of a single pipeline task attempt.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
		}, []string{"task"}),
		workerMessages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "worker_messages_total",
			Help: "Total queue messages handled by the worker.",
		}, []string{"result"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests by route and status.",
		}, []string{"method", "route", "status"}),
	}

	for _, c := range []prometheus.Collector{
		m.tasksStarted, m.tasksCompleted, m.tasksFailed,
		m.taskAttempts, m.taskDuration, m.workerMessages, m.httpRequests,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// TaskStarted increments the started counter.
func (m *Metrics) TaskStarted(task string) {
	if m == nil {
		return
	}
	m.tasksStarted.WithLabelValues(task).Inc()
}

// TaskCompleted increments the completed counter.
func (m *Metrics) TaskCompleted(task string) {
	if m == nil {
		return
	}
	m.tasksCompleted.WithLabelValues(task).Inc()
}

// TaskFailed increments the permanent failure counter.
func (m *Metrics) TaskFailed(task, kind string) {
	if m == nil {
		return
	}
	m.tasksFailed.WithLabelValues(task, kind).Inc()
}

// TaskAttempt records one attempt and its duration.
func (m *Metrics) TaskAttempt(task, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.taskAttempts.WithLabelValues(task, outcome).Inc()
	m.taskDuration.WithLabelValues(task).Observe(d.Seconds())
}

// WorkerMessage counts a handled queue message.
func (m *Metrics) WorkerMessage(result string) {
	if m == nil {
		return
	}
	m.workerMessages.WithLabelValues(result).Inc()
}

// HTTPRequest counts a served request. route is the matched pattern, not the raw path.
func (m *Metrics) HTTPRequest(method, route string, status int) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
}

// Handler exposes metrics in Prometheus text format.
func Handler(g prometheus.Gatherer) gin.HandlerFunc {
	h := promhttp.HandlerFor(g, promhttp.HandlerOpts{})
	return gin.WrapH(h)
}
