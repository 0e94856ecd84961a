package endpoint

import (
	"fmt"
	"strings"
	"time"

	"github.com/ValentinKolb/dPipe/rpc/common"
	"github.com/VictoriaMetrics/metrics"
	gometrics "github.com/rcrowley/go-metrics"
)

// Stats summarizes the exchanges of one endpoint
type Stats struct {
	Exchanges int64
	Errors    int64
	Mean      time.Duration
	P50       time.Duration
	P99       time.Duration
	Max       time.Duration
}

// String returns a formatted string representation of the statistics
func (s Stats) String() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("  %-22s: %d\n", "Exchanges", s.Exchanges))
	sb.WriteString(fmt.Sprintf("  %-22s: %d\n", "Errors", s.Errors))
	sb.WriteString(fmt.Sprintf("  %-22s: %s\n", "Mean", s.Mean))
	sb.WriteString(fmt.Sprintf("  %-22s: %s\n", "P50", s.P50))
	sb.WriteString(fmt.Sprintf("  %-22s: %s\n", "P99", s.P99))
	sb.WriteString(fmt.Sprintf("  %-22s: %s\n", "Max", s.Max))
	return sb.String()
}

const (
	exchangeMetric = "exchange"
	errorMetric    = "errors"
)

// endpointMetrics keeps the private statistics of one endpoint in its own
// go-metrics registry and feeds the process wide prometheus metrics (VictoriaMetrics)
type endpointMetrics struct {
	role     string
	registry gometrics.Registry

	exchanges *metrics.Counter
	duration  *metrics.Histogram
}

func newEndpointMetrics(role Role) *endpointMetrics {
	registry := gometrics.NewRegistry()
	gometrics.GetOrRegisterTimer(exchangeMetric, registry)
	gometrics.GetOrRegisterCounter(errorMetric, registry)

	return &endpointMetrics{
		role:      role.String(),
		registry:  registry,
		exchanges: metrics.GetOrCreateCounter(fmt.Sprintf(`dpipe_exchanges_total{role=%q}`, role.String())),
		duration:  metrics.GetOrCreateHistogram(fmt.Sprintf(`dpipe_exchange_duration_seconds{role=%q}`, role.String())),
	}
}

func (m *endpointMetrics) timer() gometrics.Timer {
	return gometrics.GetOrRegisterTimer(exchangeMetric, m.registry)
}

func (m *endpointMetrics) errors() gometrics.Counter {
	return gometrics.GetOrRegisterCounter(errorMetric, m.registry)
}

func (m *endpointMetrics) observeExchange(start time.Time) {
	m.timer().UpdateSince(start)
	m.exchanges.Inc()
	m.duration.UpdateDuration(start)
}

func (m *endpointMetrics) observeError(err *common.Error) {
	m.errors().Inc(1)
	metrics.GetOrCreateCounter(fmt.Sprintf(`dpipe_errors_total{role=%q,kind=%q}`, m.role, err.Kind.String())).Inc()
}

// snapshot reads the statistics back from the registry
func (m *endpointMetrics) snapshot() Stats {
	var stats Stats
	m.registry.Each(func(name string, metric interface{}) {
		switch v := metric.(type) {
		case gometrics.Timer:
			t := v.Snapshot()
			stats.Exchanges = t.Count()
			stats.Mean = time.Duration(t.Mean())
			stats.P50 = time.Duration(t.Percentile(0.5))
			stats.P99 = time.Duration(t.Percentile(0.99))
			stats.Max = time.Duration(t.Max())
		case gometrics.Counter:
			stats.Errors = v.Snapshot().Count()
		}
	})
	return stats
}
