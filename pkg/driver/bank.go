package driver

import (
	"fmt"
	"math"

	"github.com/ja7ad/reliability/pkg/reliability"
	"github.com/ja7ad/reliability/pkg/wearout"
)

// Bank is one reliability model per named component, updated together.
type Bank struct {
	names  []string
	models []*reliability.Model
}

// NewBank creates a model per name. states restores them from a checkpoint;
// nil states means a fresh bank.
func NewBank(mech wearout.Mechanism, names []string, states []reliability.State) (*Bank, error) {
	if states != nil && len(states) != len(names) {
		return nil, fmt.Errorf("%w: %d states for %d components", ErrComponentCount, len(states), len(names))
	}
	b := &Bank{
		names:  append([]string(nil), names...),
		models: make([]*reliability.Model, len(names)),
	}
	for i, name := range names {
		var opts []reliability.Option
		if states != nil {
			opts = append(opts, reliability.WithState(states[i]))
		}
		m, err := reliability.New(mech, opts...)
		if err != nil {
			return nil, fmt.Errorf("component %s: %w", name, err)
		}
		b.models[i] = m
	}
	return b, nil
}

func (b *Bank) Len() int { return len(b.models) }

func (b *Bank) Names() []string { return b.names }

func (b *Bank) Models() []*reliability.Model { return b.models }

// R returns the current R of every component.
func (b *Bank) R() []float64 {
	out := make([]float64, len(b.models))
	for i, m := range b.models {
		out[i] = m.R()
	}
	return out
}

// MinR returns the lowest R in the bank and its index.
func (b *Bank) MinR() (float64, int) {
	lo, at := math.Inf(1), -1
	for i, m := range b.models {
		if r := m.R(); r < lo {
			lo, at = r, i
		}
	}
	return lo, at
}

// UpdateAll advances every component by dt hours, component i under
// stress[i]. Either every component is updated or none is.
func (b *Bank) UpdateAll(dt float64, stress []wearout.Stress) error {
	if len(stress) != len(b.models) {
		return fmt.Errorf("%w: %d readings for %d components", ErrComponentCount, len(stress), len(b.models))
	}
	next := make([]*reliability.Model, len(b.models))
	for i, m := range b.models {
		c := m.Clone()
		if err := c.Update(dt, stress[i]); err != nil {
			return fmt.Errorf("component %s: %w", b.names[i], err)
		}
		next[i] = c
	}
	b.models = next
	return nil
}
