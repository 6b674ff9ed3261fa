// Package metrics exports per-component reliability state to Prometheus and
// over a small JSON API.
package metrics

import (
	"errors"
	"sort"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ja7ad/reliability/pkg/reliability"
)

// Component is the latest observed state of one component.
type Component struct {
	Name      string  `json:"name"`
	Mechanism string  `json:"mechanism"`
	R         float64 `json:"r"`
	Damage    float64 `json:"damage"`
	AreaHours float64 `json:"area_hours"`
	Recovery  float64 `json:"recovery_volts"`
	Updates   uint64  `json:"updates"`
}

// Metrics holds the collectors on a private registry. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	reg *prometheus.Registry

	r        *prometheus.GaugeVec
	damage   *prometheus.GaugeVec
	area     *prometheus.GaugeVec
	recovery *prometheus.GaugeVec
	updates  prometheus.Counter
	errs     *prometheus.CounterVec

	mu         sync.RWMutex
	components map[string]*Component
}

// New registers the reliability collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Metrics{
		reg: reg,
		r: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "reliability_r",
				Help: "Current reliability R(t) of the component",
			},
			[]string{"component"},
		),
		damage: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "reliability_damage",
				Help: "Accumulated wearout damage of the component",
			},
			[]string{"component"},
		),
		area: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "reliability_area_hours",
				Help: "Area under the R(t) curve in hours",
			},
			[]string{"component"},
		),
		recovery: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "reliability_recovery_volts",
				Help: "NBTI threshold voltage shift of the component",
			},
			[]string{"component"},
		),
		updates: f.NewCounter(
			prometheus.CounterOpts{
				Name: "reliability_updates_total",
				Help: "Total number of successful component updates",
			},
		),
		errs: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reliability_update_errors_total",
				Help: "Total number of rejected updates by error kind",
			},
			[]string{"kind"},
		),
		components: make(map[string]*Component),
	}
}

// Registry returns the registry backing /metrics.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.reg
}

// Observe records the current state of the named component after a
// successful update.
func (m *Metrics) Observe(name string, mdl *reliability.Model) {
	if m == nil {
		return
	}
	r, d, a, rec := mdl.R(), mdl.Damage(), mdl.Area(), mdl.RecoveryTerm()

	m.r.WithLabelValues(name).Set(r)
	m.damage.WithLabelValues(name).Set(d)
	m.area.WithLabelValues(name).Set(a)
	m.recovery.WithLabelValues(name).Set(rec)
	m.updates.Inc()

	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.components[name]
	if !ok {
		c = &Component{Name: name, Mechanism: mdl.Mechanism().String()}
		m.components[name] = c
	}
	c.R, c.Damage, c.AreaHours, c.Recovery = r, d, a, rec
	c.Updates++
}

// ObserveError counts a rejected update.
func (m *Metrics) ObserveError(err error) {
	if m == nil || err == nil {
		return
	}
	m.errs.WithLabelValues(ErrorKind(err)).Inc()
}

// ErrorKind classifies an update error for the kind label.
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, reliability.ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, reliability.ErrInvariantViolation):
		return "invariant"
	default:
		return "other"
	}
}

// Components returns a snapshot of every observed component sorted by name.
func (m *Metrics) Components() []Component {
	if m == nil {
		return nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Component, 0, len(m.components))
	for _, c := range m.components {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Component returns the latest state of one component.
func (m *Metrics) Component(name string) (Component, bool) {
	if m == nil {
		return Component{}, false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.components[name]
	if !ok {
		return Component{}, false
	}
	return *c, true
}
