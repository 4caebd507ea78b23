// Package metrics collects Prometheus metrics for conversations, item writes
// and assistant calls, and serves them for scraping.
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/alexanderramin/estibot/internal/service"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector implements the conversation recorder and the service use-case
// observer on top of Prometheus collectors.
type Collector struct {
	flowsStarted   *prometheus.CounterVec
	flowsCompleted *prometheus.CounterVec
	flowsCancelled *prometheus.CounterVec
	flowsFailed    *prometheus.CounterVec
	inputRejected  *prometheus.CounterVec
	itemsAdded     *prometheus.CounterVec
	assistantCalls *prometheus.CounterVec
	assistantTime  *prometheus.HistogramVec
	useCases       *prometheus.CounterVec
	useCaseTime    *prometheus.HistogramVec
}

// NewCollector creates a Collector and registers its metrics with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		flowsStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "estibot_flows_started_total",
			Help: "Conversation flows started, by flow.",
		}, []string{"flow"}),
		flowsCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "estibot_flows_completed_total",
			Help: "Conversation flows that reached their persistence effect.",
		}, []string{"flow"}),
		flowsCancelled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "estibot_flows_cancelled_total",
			Help: "Conversation flows cancelled by the user.",
		}, []string{"flow"}),
		flowsFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "estibot_flows_failed_total",
			Help: "Conversation flows aborted by an error, by kind.",
		}, []string{"flow", "kind"}),
		inputRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "estibot_input_rejected_total",
			Help: "Field inputs rejected by validation.",
		}, []string{"flow", "field", "reason"}),
		itemsAdded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "estibot_items_added_total",
			Help: "Estimate items stored, by source.",
		}, []string{"source"}),
		assistantCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "estibot_assistant_calls_total",
			Help: "Assistant calls, by task and outcome.",
		}, []string{"task", "outcome"}),
		assistantTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "estibot_assistant_latency_seconds",
			Help:    "Assistant call latency in seconds.",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		}, []string{"task"}),
		useCases: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "estibot_use_cases_total",
			Help: "Service use cases executed, by name and success.",
		}, []string{"use_case", "success"}),
		useCaseTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "estibot_use_case_latency_seconds",
			Help:    "Service use case latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"use_case"}),
	}

	reg.MustRegister(
		c.flowsStarted,
		c.flowsCompleted,
		c.flowsCancelled,
		c.flowsFailed,
		c.inputRejected,
		c.itemsAdded,
		c.assistantCalls,
		c.assistantTime,
		c.useCases,
		c.useCaseTime,
	)
	return c
}

func (c *Collector) FlowStarted(flow string) {
	c.flowsStarted.WithLabelValues(flow).Inc()
}

func (c *Collector) FlowCompleted(flow string) {
	c.flowsCompleted.WithLabelValues(flow).Inc()
}

func (c *Collector) FlowCancelled(flow string) {
	c.flowsCancelled.WithLabelValues(flow).Inc()
}

// FlowFailed records a flow aborted by a not-found or storage error.
func (c *Collector) FlowFailed(flow, kind string) {
	c.flowsFailed.WithLabelValues(flow, kind).Inc()
}

func (c *Collector) InputRejected(flow, field, reason string) {
	c.inputRejected.WithLabelValues(flow, field, reason).Inc()
}

// ItemsAdded records n stored items. source is "manual", "template" or
// "assistant".
func (c *Collector) ItemsAdded(source string, n int) {
	if n <= 0 {
		return
	}
	c.itemsAdded.WithLabelValues(source).Add(float64(n))
}

// AssistantCall records one assistant call. outcome is "ok", "empty" or
// "error".
func (c *Collector) AssistantCall(task, outcome string, d time.Duration) {
	c.assistantCalls.WithLabelValues(task, outcome).Inc()
	c.assistantTime.WithLabelValues(task).Observe(d.Seconds())
}

// ObserveUseCase implements service.UseCaseObserver.
func (c *Collector) ObserveUseCase(_ context.Context, event service.UseCaseEvent) {
	c.useCases.WithLabelValues(event.Name, strconv.FormatBool(event.Success)).Inc()
	c.useCaseTime.WithLabelValues(event.Name).Observe(event.Duration.Seconds())
}

var _ service.UseCaseObserver = (*Collector)(nil)

// Handler returns the scrape handler for gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute returns a mux serving /metrics.
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}
