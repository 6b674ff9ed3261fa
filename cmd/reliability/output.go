package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/ja7ad/reliability/pkg/driver"
	"github.com/ja7ad/reliability/pkg/metrics"
	"github.com/ja7ad/reliability/pkg/system/util"
	"github.com/ja7ad/reliability/pkg/types"
)

// summary is the printable form of a driver.Result.
type summary struct {
	Mechanism  string             `json:"mechanism"`
	Samples    int64              `json:"samples"`
	Hours      float64            `json:"hours"`
	Years      float64            `json:"years"`
	Reached    bool               `json:"reached"`
	Weakest    string             `json:"weakest,omitempty"`
	RLimit     float64            `json:"r_limit"`
	Components []componentSummary `json:"components"`
}

type componentSummary struct {
	Name      string  `json:"name"`
	R         float64 `json:"r"`
	AreaHours float64 `json:"area_hours"`
	AreaYears float64 `json:"area_years"`
}

func newSummary(mechanism string, res driver.Result, limit float64) summary {
	s := summary{
		Mechanism:  mechanism,
		Samples:    res.Samples,
		Hours:      float64(res.Hours),
		Years:      res.Hours.Years(),
		Reached:    res.Reached,
		Weakest:    res.Weakest,
		RLimit:     limit,
		Components: make([]componentSummary, len(res.Names)),
	}
	for i, name := range res.Names {
		s.Components[i] = componentSummary{
			Name:      name,
			R:         res.R[i],
			AreaHours: float64(res.Area[i]),
			AreaYears: res.Area[i].Years(),
		}
	}
	return s
}

func printBanner(ctx context.Context, w io.Writer, what string) {
	host, kernel, cpus, mem := util.SystemSummary(ctx)
	fmt.Fprintf(w, _console, host, kernel, cpus, mem, what, time.Now().Format("2006-01-02 15:04:05"))
}

func printSummary(w io.Writer, s summary, jsonOut bool) error {
	if jsonOut {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(s)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "COMPONENT\tR\tAREA (y)")
	fmt.Fprintln(tw, "---------\t-\t--------")
	for _, c := range s.Components {
		fmt.Fprintf(tw, "%s\t%.6f\t%.4f\n", c.Name, c.R, c.AreaYears)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s over %d samples (%s simulated):\n", s.Mechanism, s.Samples, types.Hours(s.Hours).Humanized())
	if s.Reached {
		fmt.Fprintf(w, "- R <= %g reached by %s after %.4f years\n", s.RLimit, s.Weakest, s.Years)
	} else if s.Weakest != "" {
		fmt.Fprintf(w, "- R limit %g not reached, weakest component %s\n", s.RLimit, s.Weakest)
	}
	fmt.Fprintln(w)
	return nil
}

func printComponents(w io.Writer, cs []metrics.Component, jsonOut bool) error {
	if jsonOut {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(cs)
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "COMPONENT\tMECHANISM\tR\tDAMAGE\tAREA (h)\tUPDATES")
	for _, c := range cs {
		fmt.Fprintf(tw, "%s\t%s\t%.6f\t%.6g\t%.2f\t%d\n", c.Name, c.Mechanism, c.R, c.Damage, c.AreaHours, c.Updates)
	}
	return tw.Flush()
}

const _console = `Reliability - Processor Wearout Estimation Tool

* GitHub: https://github.com/ja7ad/reliability

       Host: %s
       Kernel: %s
       CPUs: %s
       Mem: %s

%s as of %s:

`
