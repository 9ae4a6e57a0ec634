// Package telemetry exposes the Prometheus counters and gauges this
// client records, and the HTTP endpoint that serves them.
package telemetry

import (
	"net/http"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"github.com/go-kit/kit/metrics"
	kitprom "github.com/go-kit/kit/metrics/prometheus"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "aerc"

// Metrics holds every counter/gauge the coordinator and its workers
// update as they run.
type Metrics struct {
	CommandsSent      metrics.Counter
	ResponsesReceived metrics.Counter
	ConnectErrors     metrics.Counter
	MailboxesSelected metrics.Counter
	MessagesFetched   metrics.Counter
	ActiveAccounts    metrics.Gauge
}

// NewMetrics registers and returns the full metric set.
func NewMetrics() *Metrics {
	return &Metrics{
		CommandsSent: kitprom.NewCounterFrom(prom.CounterOpts{
			Namespace: namespace,
			Subsystem: "imap",
			Name:      "commands_sent_total",
			Help:      "Number of IMAP commands sent, by command kind.",
		}, []string{"account", "kind"}),

		ResponsesReceived: kitprom.NewCounterFrom(prom.CounterOpts{
			Namespace: namespace,
			Subsystem: "imap",
			Name:      "responses_received_total",
			Help:      "Number of tagged command completions received, by status.",
		}, []string{"account", "status"}),

		ConnectErrors: kitprom.NewCounterFrom(prom.CounterOpts{
			Namespace: namespace,
			Subsystem: "imap",
			Name:      "connect_errors_total",
			Help:      "Number of failed connection attempts, by kind.",
		}, []string{"account", "kind"}),

		MailboxesSelected: kitprom.NewCounterFrom(prom.CounterOpts{
			Namespace: namespace,
			Subsystem: "imap",
			Name:      "mailboxes_selected_total",
			Help:      "Number of successful SELECT completions.",
		}, []string{"account"}),

		MessagesFetched: kitprom.NewCounterFrom(prom.CounterOpts{
			Namespace: namespace,
			Subsystem: "imap",
			Name:      "messages_fetched_total",
			Help:      "Number of FETCH responses merged into message records.",
		}, []string{"account"}),

		ActiveAccounts: kitprom.NewGaugeFrom(prom.GaugeOpts{
			Namespace: namespace,
			Subsystem: "coordinator",
			Name:      "active_accounts",
			Help:      "Number of configured account workers started.",
		}, []string{}),
	}
}

// Serve runs the Prometheus scrape endpoint on addr until the process
// exits; call it in its own goroutine, the way the teacher runs
// runPromHTTP alongside its node's main loop.
func Serve(logger log.Logger, addr string) {

	if addr == "" {
		return
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	level.Info(logger).Log("msg", "serving metrics", "addr", addr)

	if err := http.ListenAndServe(addr, mux); err != nil {
		level.Error(logger).Log("msg", "metrics server exited", "err", err)
	}
}
