package util

import (
	"context"
	"math"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/shirou/gopsutil/cpu"
	"github.com/shirou/gopsutil/host"
	"github.com/shirou/gopsutil/mem"
)

// EMA is an exponential moving average. The first sample initializes it.
type EMA struct {
	alpha, prev float64
	ok          bool
}

func NewEMA(alpha float64) *EMA { return &EMA{alpha: Clamp01(alpha)} }

func (e *EMA) Next(v float64) float64 {
	if !e.ok {
		e.prev, e.ok = v, true
		return v
	}
	e.prev = e.alpha*v + (1-e.alpha)*e.prev
	return e.prev
}

func Clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	// guard against NaN
	if math.IsNaN(x) {
		return 0
	}
	return x
}

// FmtFloat formats v in the shortest form that parses back to the same float64.
func FmtFloat(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }

// SystemSummary returns host name, kernel, logical CPU count and total
// memory for the console banner. Fields that cannot be read are "unknown".
func SystemSummary(ctx context.Context) (hostname, kernel, cpus, memory string) {
	hostname, kernel, cpus, memory = "unknown", "unknown", "unknown", "unknown"

	if info, err := host.InfoWithContext(ctx); err == nil {
		if info.Hostname != "" {
			hostname = info.Hostname
		}
		if info.KernelVersion != "" {
			kernel = info.KernelVersion
		}
	}
	if n, err := cpu.CountsWithContext(ctx, true); err == nil && n > 0 {
		cpus = strconv.Itoa(n)
	}
	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil && vm.Total > 0 {
		memory = humanize.IBytes(vm.Total)
	}
	return hostname, kernel, cpus, memory
}
