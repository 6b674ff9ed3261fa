// Package sensors reads live component temperatures from the host.
package sensors

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"regexp"
	"sort"

	"github.com/shirou/gopsutil/host"
)

// ErrNoSensors indicates that no temperature sensor matched the filter.
var ErrNoSensors = errors.New("sensors: no matching temperature sensor")

// Reading is one sensor temperature.
type Reading struct {
	Key     string
	Celsius float64
}

// Reader returns the current temperature of every monitored sensor, always
// in the same order.
type Reader interface {
	Temperatures(ctx context.Context) ([]Reading, error)
}

// Host reads sensors through gopsutil (hwmon / thermal zones on Linux).
type Host struct {
	filter *regexp.Regexp
	read   func(context.Context) ([]host.TemperatureStat, error)
}

// NewHost returns a Reader over host sensors whose key matches pattern.
// An empty pattern keeps every sensor.
func NewHost(pattern string) (*Host, error) {
	h := &Host{read: host.SensorsTemperaturesWithContext}
	if pattern != "" {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("sensor filter: %w", err)
		}
		h.filter = re
	}
	return h, nil
}

func (h *Host) Temperatures(ctx context.Context) ([]Reading, error) {
	stats, err := h.read(ctx)
	if err != nil {
		if len(stats) == 0 {
			return nil, fmt.Errorf("read sensors: %w", err)
		}
		// gopsutil reports unreadable zones as warnings next to valid data
		slog.Debug("partial sensor read", "err", err)
	}
	return h.pick(stats)
}

func (h *Host) pick(stats []host.TemperatureStat) ([]Reading, error) {
	out := make([]Reading, 0, len(stats))
	for _, s := range stats {
		if h.filter != nil && !h.filter.MatchString(s.SensorKey) {
			continue
		}
		if math.IsNaN(s.Temperature) || math.IsInf(s.Temperature, 0) || s.Temperature <= 0 { // unpopulated zone
			continue
		}
		out = append(out, Reading{Key: s.SensorKey, Celsius: s.Temperature})
	}
	if len(out) == 0 {
		return nil, ErrNoSensors
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}
