package observability

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RelayCollector bundles Prometheus metrics for the relay daemon: engine
// query counters, gate-check outcomes, and link/registry gauges. It
// implements signalbus.QueryRecorder and relay.Recorder.
type RelayCollector struct {
	gatherer prometheus.Gatherer

	EngineQueries  *prometheus.CounterVec
	GateChecks     *prometheus.CounterVec
	SignalsRelayed prometheus.Counter
	UpdateDuration prometheus.Histogram

	RelayLinks        prometheus.Gauge
	RelayLinksUp      prometheus.Gauge
	RegistryPlatforms prometheus.Gauge
	RegistrySurfaces  prometheus.Gauge
	RegistryNodes     prometheus.Gauge
}

// NewRelayCollector registers relay metrics against the provided
// registerer, defaulting to the global Prometheus registry when nil.
func NewRelayCollector(reg prometheus.Registerer) (*RelayCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	queries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "signalbus_queries_total",
		Help: "Total signal bus engine queries, labeled by operation.",
	}, []string{"op"})
	queries, err := registerCounterVec(reg, queries, "signalbus_queries_total")
	if err != nil {
		return nil, err
	}

	gates := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "relay_gate_checks_total",
		Help: "Total relay eligibility gate evaluations, labeled by outcome.",
	}, []string{"outcome"})
	gates, err = registerCounterVec(reg, gates, "relay_gate_checks_total")
	if err != nil {
		return nil, err
	}

	relayed, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "relay_signals_relayed_total",
		Help: "Total distinct signals pumped across active relay links.",
	}), "relay_signals_relayed_total")
	if err != nil {
		return nil, err
	}

	duration, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "relay_update_duration_seconds",
		Help:    "Duration of one relay link table update pass.",
		Buckets: []float64{0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1},
	}), "relay_update_duration_seconds")
	if err != nil {
		return nil, err
	}

	links, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "relay_links",
		Help: "Current number of configured relay links.",
	}), "relay_links")
	if err != nil {
		return nil, err
	}
	linksUp, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "relay_links_up",
		Help: "Current number of relay links whose gate is open.",
	}), "relay_links_up")
	if err != nil {
		return nil, err
	}
	platforms, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "registry_platforms",
		Help: "Current number of platforms in the registry.",
	}), "registry_platforms")
	if err != nil {
		return nil, err
	}
	surfaces, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "registry_surfaces",
		Help: "Current number of surfaces in the registry.",
	}), "registry_surfaces")
	if err != nil {
		return nil, err
	}
	nodes, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "registry_nodes",
		Help: "Current number of circuit nodes in the registry.",
	}), "registry_nodes")
	if err != nil {
		return nil, err
	}

	return &RelayCollector{
		gatherer:          gatherer,
		EngineQueries:     queries,
		GateChecks:        gates,
		SignalsRelayed:    relayed,
		UpdateDuration:    duration,
		RelayLinks:        links,
		RelayLinksUp:      linksUp,
		RegistryPlatforms: platforms,
		RegistrySurfaces:  surfaces,
		RegistryNodes:     nodes,
	}, nil
}

// RecordQuery satisfies signalbus.QueryRecorder.
func (c *RelayCollector) RecordQuery(op string) {
	if c == nil || c.EngineQueries == nil {
		return
	}
	c.EngineQueries.WithLabelValues(op).Inc()
}

// RecordGateCheck satisfies relay.Recorder.
func (c *RelayCollector) RecordGateCheck(eligible bool) {
	if c == nil || c.GateChecks == nil {
		return
	}
	outcome := "waiting"
	if eligible {
		outcome = "eligible"
	}
	c.GateChecks.WithLabelValues(outcome).Inc()
}

// RecordSignalsRelayed satisfies relay.Recorder.
func (c *RelayCollector) RecordSignalsRelayed(count int) {
	if c == nil || c.SignalsRelayed == nil {
		return
	}
	c.SignalsRelayed.Add(float64(count))
}

// SetLinkCounts satisfies relay.Recorder.
func (c *RelayCollector) SetLinkCounts(total, up int) {
	if c == nil {
		return
	}
	if c.RelayLinks != nil {
		c.RelayLinks.Set(float64(total))
	}
	if c.RelayLinksUp != nil {
		c.RelayLinksUp.Set(float64(up))
	}
}

// ObserveUpdateDuration satisfies relay.Recorder.
func (c *RelayCollector) ObserveUpdateDuration(seconds float64) {
	if c == nil || c.UpdateDuration == nil {
		return
	}
	c.UpdateDuration.Observe(seconds)
}

// SetRegistryCounts drives the registry gauges from the daemon tick.
func (c *RelayCollector) SetRegistryCounts(platforms, surfaces, nodes int) {
	if c == nil {
		return
	}
	if c.RegistryPlatforms != nil {
		c.RegistryPlatforms.Set(float64(platforms))
	}
	if c.RegistrySurfaces != nil {
		c.RegistrySurfaces.Set(float64(surfaces))
	}
	if c.RegistryNodes != nil {
		c.RegistryNodes.Set(float64(nodes))
	}
}

// Handler exposes a ready-to-use /metrics handler.
func (c *RelayCollector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerCounter(reg prometheus.Registerer, counter prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return counter, nil
}

func registerHistogram(reg prometheus.Registerer, hist prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(hist); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return hist, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}
