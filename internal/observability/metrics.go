package observability

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type moduleMetrics struct {
	queueSize    *prometheus.GaugeVec
	enqueueTotal *prometheus.CounterVec
	dequeueTotal *prometheus.CounterVec
	taskDuration *prometheus.HistogramVec

	toolExecutionTotal    *prometheus.CounterVec
	toolExecutionDuration *prometheus.HistogramVec

	agentRunTotal       *prometheus.CounterVec
	agentRunDuration    prometheus.Histogram
	agentRunIterations  prometheus.Histogram
	completionCallTotal *prometheus.CounterVec
	completionRetries   prometheus.Counter
	tokensTotal         *prometheus.CounterVec

	confirmationsTotal *prometheus.CounterVec
	pendingApprovals   prometheus.Gauge

	webhookRequestsTotal   *prometheus.CounterVec
	webhookRequestDuration prometheus.Histogram
}

var (
	metricsOnce sync.Once
	metricsInst *moduleMetrics
)

func getMetrics() *moduleMetrics {
	metricsOnce.Do(func() {
		m := &moduleMetrics{
			queueSize: prometheus.NewGaugeVec(
				prometheus.GaugeOpts{
					Name: "ctx_queue_size",
					Help: "Tasks waiting to start by lane class.",
				},
				[]string{"lane"},
			),
			enqueueTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "ctx_enqueue_total",
					Help: "Total enqueue operations by lane class.",
				},
				[]string{"lane"},
			),
			dequeueTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "ctx_dequeue_total",
					Help: "Total completed tasks by lane class and status.",
				},
				[]string{"lane", "status"},
			),
			taskDuration: prometheus.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "ctx_task_duration_seconds",
					Help:    "Task execution duration in seconds by lane class.",
					Buckets: prometheus.DefBuckets,
				},
				[]string{"lane"},
			),
			toolExecutionTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "ctx_tool_execution_total",
					Help: "Total tool executions by tool and status.",
				},
				[]string{"tool", "status"},
			),
			toolExecutionDuration: prometheus.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "ctx_tool_execution_duration_seconds",
					Help:    "Tool execution duration in seconds by tool.",
					Buckets: prometheus.DefBuckets,
				},
				[]string{"tool"},
			),
			agentRunTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "ctx_agent_run_total",
					Help: "Total agent runs by outcome code.",
				},
				[]string{"outcome"},
			),
			agentRunDuration: prometheus.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "ctx_agent_run_duration_seconds",
					Help:    "Agent run duration in seconds.",
					Buckets: prometheus.DefBuckets,
				},
			),
			agentRunIterations: prometheus.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "ctx_agent_run_iterations",
					Help:    "Completion calls made per agent run.",
					Buckets: prometheus.LinearBuckets(1, 1, 10),
				},
			),
			completionCallTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "ctx_completion_call_total",
					Help: "Total completion endpoint calls by status.",
				},
				[]string{"status"},
			),
			completionRetries: prometheus.NewCounter(
				prometheus.CounterOpts{
					Name: "ctx_completion_retry_total",
					Help: "Total completion endpoint retries.",
				},
			),
			tokensTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "ctx_tokens_total",
					Help: "Total tokens consumed by direction.",
				},
				[]string{"direction"},
			),
			confirmationsTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "ctx_confirmations_total",
					Help: "Destructive action confirmations by event (requested, approved, cancelled, dropped).",
				},
				[]string{"event"},
			),
			pendingApprovals: prometheus.NewGauge(
				prometheus.GaugeOpts{
					Name: "ctx_pending_approvals",
					Help: "Conversations currently awaiting a yes/no reply.",
				},
			),
			webhookRequestsTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "ctx_webhook_requests_total",
					Help: "Telegram webhook requests by response code.",
				},
				[]string{"code"},
			),
			webhookRequestDuration: prometheus.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "ctx_webhook_request_duration_seconds",
					Help:    "Time from receiving a webhook request to handing the update over.",
					Buckets: prometheus.DefBuckets,
				},
			),
		}

		prometheus.MustRegister(
			m.queueSize,
			m.enqueueTotal,
			m.dequeueTotal,
			m.taskDuration,
			m.toolExecutionTotal,
			m.toolExecutionDuration,
			m.agentRunTotal,
			m.agentRunDuration,
			m.agentRunIterations,
			m.completionCallTotal,
			m.completionRetries,
			m.tokensTotal,
			m.confirmationsTotal,
			m.pendingApprovals,
			m.webhookRequestsTotal,
			m.webhookRequestDuration,
		)

		metricsInst = m
	})

	return metricsInst
}

// EnsureRegistered initializes and registers metrics the first time it is called.
func EnsureRegistered() {
	_ = getMetrics()
}

func MetricsHandler() http.Handler {
	EnsureRegistered()
	return promhttp.Handler()
}

func RecordQueueEnqueue(lane string, queueSize int) {
	m := getMetrics()
	m.enqueueTotal.WithLabelValues(lane).Inc()
	m.queueSize.WithLabelValues(lane).Set(float64(queueSize))
}

func RecordQueueCompletion(lane string, duration time.Duration, success bool, queueSize int) {
	m := getMetrics()
	status := "error"
	if success {
		status = "success"
	}
	m.dequeueTotal.WithLabelValues(lane, status).Inc()
	m.taskDuration.WithLabelValues(lane).Observe(duration.Seconds())
	m.queueSize.WithLabelValues(lane).Set(float64(queueSize))
}

// RecordToolExecution counts one tool call. status is "success",
// "confirmation_required" or the failure kind.
func RecordToolExecution(tool, status string, duration time.Duration) {
	m := getMetrics()
	m.toolExecutionTotal.WithLabelValues(tool, status).Inc()
	m.toolExecutionDuration.WithLabelValues(tool).Observe(duration.Seconds())
}

// RecordAgentRun counts one finished run. outcome is "success" or the error code.
func RecordAgentRun(outcome string, iterations int, duration time.Duration) {
	m := getMetrics()
	m.agentRunTotal.WithLabelValues(outcome).Inc()
	m.agentRunDuration.Observe(duration.Seconds())
	m.agentRunIterations.Observe(float64(iterations))
}

func RecordCompletionCall(success bool) {
	m := getMetrics()
	status := "error"
	if success {
		status = "success"
	}
	m.completionCallTotal.WithLabelValues(status).Inc()
}

func RecordCompletionRetry() {
	getMetrics().completionRetries.Inc()
}

func RecordTokens(input, output int64) {
	m := getMetrics()
	m.tokensTotal.WithLabelValues("input").Add(float64(input))
	m.tokensTotal.WithLabelValues("output").Add(float64(output))
}

// RecordConfirmation counts a confirmation lifecycle event
func RecordConfirmation(event string) {
	getMetrics().confirmationsTotal.WithLabelValues(event).Inc()
}

func SetPendingApprovals(count int) {
	getMetrics().pendingApprovals.Set(float64(count))
}

// RecordWebhookRequest counts one webhook request by its response code
func RecordWebhookRequest(code int, duration time.Duration) {
	m := getMetrics()
	m.webhookRequestsTotal.WithLabelValues(strconv.Itoa(code)).Inc()
	m.webhookRequestDuration.Observe(duration.Seconds())
}
