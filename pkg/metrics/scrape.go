package metrics

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
)

// Scrape fetches url (a /metrics endpoint served by Handler) and rebuilds
// the per-component state from the exposition.
func Scrape(ctx context.Context, client *http.Client, url string) ([]Component, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", string(expfmt.NewFormat(expfmt.TypeTextPlain)))

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http get: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return ParseExposition(resp.Body)
}

// ParseExposition decodes a Prometheus text exposition into components.
func ParseExposition(r io.Reader) ([]Component, error) {
	var parser expfmt.TextParser
	mfs, err := parser.TextToMetricFamilies(r)
	if err != nil && len(mfs) == 0 {
		return nil, fmt.Errorf("parse prometheus text: %w", err)
	}

	byName := make(map[string]*Component)
	get := func(name string) *Component {
		c, ok := byName[name]
		if !ok {
			c = &Component{Name: name}
			byName[name] = c
		}
		return c
	}

	fill := func(family string, set func(c *Component, v float64)) {
		mf := mfs[family]
		if mf == nil {
			return
		}
		for _, m := range mf.GetMetric() {
			name := label(m, "component")
			if name == "" || m.Gauge == nil {
				continue
			}
			set(get(name), m.Gauge.GetValue())
		}
	}
	fill("reliability_r", func(c *Component, v float64) { c.R = v })
	fill("reliability_damage", func(c *Component, v float64) { c.Damage = v })
	fill("reliability_area_hours", func(c *Component, v float64) { c.AreaHours = v })
	fill("reliability_recovery_volts", func(c *Component, v float64) { c.Recovery = v })

	out := make([]Component, 0, len(byName))
	for _, c := range byName {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func label(m *dto.Metric, name string) string {
	for _, lp := range m.GetLabel() {
		if lp.GetName() == name {
			return lp.GetValue()
		}
	}
	return ""
}
