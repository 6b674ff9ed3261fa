package driver

import (
	"fmt"
	"math"

	"github.com/ja7ad/reliability/pkg/recorder"
	"github.com/ja7ad/reliability/pkg/reliability"
	"github.com/ja7ad/reliability/pkg/types"
	"github.com/ja7ad/reliability/pkg/wearout"
)

// Curve samples the closed-form R(t) of a fresh device under constant
// stress every step, until R <= limit or maxPoints points were produced.
// Each point carries a single R value.
func Curve(mech wearout.Mechanism, s wearout.Stress, step types.Hours, limit float64, maxPoints int) ([]recorder.Point, error) {
	if !(step > 0) || math.IsInf(float64(step), 0) {
		return nil, fmt.Errorf("%w: step %g h", ErrBadParams, float64(step))
	}
	if maxPoints <= 0 {
		return nil, fmt.Errorf("%w: max points %d", ErrBadParams, maxPoints)
	}

	var out []recorder.Point
	for i := 1; i <= maxPoints; i++ {
		h := float64(i) * float64(step)
		r, err := reliability.SteadyState(mech, s, h)
		if err != nil {
			return nil, err
		}
		out = append(out, recorder.Point{Sample: int64(i), Hours: h, R: []float64{r}})
		if r <= limit {
			break
		}
	}
	return out, nil
}
