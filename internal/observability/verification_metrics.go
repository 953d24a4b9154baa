package observability

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// VerificationCollector exposes detector-specific Prometheus metrics. It
// satisfies core.Recorder.
type VerificationCollector struct {
	gatherer prometheus.Gatherer

	Verifications        *prometheus.CounterVec
	Conflicts            prometheus.Counter
	SamplesEvaluated     prometheus.Counter
	VerificationDuration prometheus.Histogram
	CacheHits            prometheus.Counter
	CacheMisses          prometheus.Counter
}

// NewVerificationCollector registers detector metrics against the provided registerer.
func NewVerificationCollector(reg prometheus.Registerer) (*VerificationCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	verifications, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "deconfliction_verifications_total",
		Help: "Completed verification runs, labeled by outcome (safe, unsafe, incomplete).",
	}, []string{"status"}), "deconfliction_verifications_total")
	if err != nil {
		return nil, err
	}

	conflicts, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "deconfliction_conflicts_total",
		Help: "Conflict records produced across all verification runs.",
	}), "deconfliction_conflicts_total")
	if err != nil {
		return nil, err
	}

	samples, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "deconfliction_samples_evaluated_total",
		Help: "Mission pair samples at which a separation distance was measured.",
	}), "deconfliction_samples_evaluated_total")
	if err != nil {
		return nil, err
	}

	duration, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "deconfliction_verification_duration_seconds",
		Help:    "Wall-clock duration of verification runs.",
		Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	}), "deconfliction_verification_duration_seconds")
	if err != nil {
		return nil, err
	}

	hits, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "deconfliction_result_cache_hits_total",
		Help: "Verification requests answered from the result cache.",
	}), "deconfliction_result_cache_hits_total")
	if err != nil {
		return nil, err
	}
	misses, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "deconfliction_result_cache_misses_total",
		Help: "Verification requests that had to run the detector.",
	}), "deconfliction_result_cache_misses_total")
	if err != nil {
		return nil, err
	}

	return &VerificationCollector{
		gatherer:             gatherer,
		Verifications:        verifications,
		Conflicts:            conflicts,
		SamplesEvaluated:     samples,
		VerificationDuration: duration,
		CacheHits:            hits,
		CacheMisses:          misses,
	}, nil
}

// Gatherer returns the Prometheus gatherer associated with the collector.
func (c *VerificationCollector) Gatherer() prometheus.Gatherer {
	if c == nil {
		return nil
	}
	return c.gatherer
}

// ObserveVerification records one detector run.
func (c *VerificationCollector) ObserveVerification(status string, conflicts, evaluated int, elapsed time.Duration) {
	if c == nil {
		return
	}
	if c.Verifications != nil {
		c.Verifications.WithLabelValues(status).Inc()
	}
	if c.Conflicts != nil {
		c.Conflicts.Add(float64(conflicts))
	}
	if c.SamplesEvaluated != nil {
		c.SamplesEvaluated.Add(float64(evaluated))
	}
	if c.VerificationDuration != nil {
		c.VerificationDuration.Observe(elapsed.Seconds())
	}
}

// IncCacheHit counts a result served from cache.
func (c *VerificationCollector) IncCacheHit() {
	if c == nil || c.CacheHits == nil {
		return
	}
	c.CacheHits.Inc()
}

// IncCacheMiss counts a result computed by the detector.
func (c *VerificationCollector) IncCacheMiss() {
	if c == nil || c.CacheMisses == nil {
		return
	}
	c.CacheMisses.Inc()
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
