package checkpoint

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"math/big"
	"os"

	"github.com/ja7ad/reliability/pkg/reliability"
	"github.com/ja7ad/reliability/pkg/wearout"
)

// Files names the checkpoint files of one run.
type Files struct {
	Damage   string // accumulated damage per component
	Recovery string // NBTI threshold voltage shift per component
	RValues  string // latest R per component, written on Save
}

// Load reads the checkpoint for n components of the given kind.
//
// A missing damage file means a fresh run and yields n zero states, unless an
// R values file is already present. For NBTI the recovery file must exist
// exactly when the damage file does.
func (f Files) Load(kind wearout.Kind, n int) ([]reliability.State, error) {
	hasDamage, err := exists(f.Damage)
	if err != nil {
		return nil, err
	}
	hasRecovery := false
	if kind == wearout.NBTI {
		if hasRecovery, err = exists(f.Recovery); err != nil {
			return nil, err
		}
	}

	if !hasDamage {
		hasR, err := exists(f.RValues)
		if err != nil {
			return nil, err
		}
		if hasR {
			return nil, fmt.Errorf("%w: %s exists but %s does not", ErrInconsistent, f.RValues, f.Damage)
		}
		if hasRecovery {
			return nil, fmt.Errorf("%w: %s exists but %s does not", ErrInconsistent, f.Recovery, f.Damage)
		}
		states := make([]reliability.State, n)
		for i := range states {
			states[i].Damage = new(big.Float).SetPrec(reliability.Precision)
		}
		return states, nil
	}

	raw, err := os.ReadFile(f.Damage)
	if err != nil {
		return nil, fmt.Errorf("read damage: %w", err)
	}
	damage, err := ReadBigFloats(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", f.Damage, err)
	}
	if len(damage) != n {
		return nil, fmt.Errorf("%w: %s holds %d values for %d components", ErrCountMismatch, f.Damage, len(damage), n)
	}

	states := make([]reliability.State, n)
	for i, d := range damage {
		states[i].Damage = d
	}
	if kind != wearout.NBTI {
		return states, nil
	}

	if !hasRecovery {
		return nil, fmt.Errorf("%w: %s exists but %s does not", ErrInconsistent, f.Damage, f.Recovery)
	}
	raw, err = os.ReadFile(f.Recovery)
	if err != nil {
		return nil, fmt.Errorf("read recovery: %w", err)
	}
	rec, err := ReadFloats(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", f.Recovery, err)
	}
	if len(rec) != n {
		return nil, fmt.Errorf("%w: %s holds %d values for %d components", ErrCountMismatch, f.Recovery, len(rec), n)
	}
	for i, v := range rec {
		states[i].Recovery = v
	}
	return states, nil
}

// Save writes the damage of every model, the recovery terms when the models
// are NBTI, and the current R values when RValues is set.
func (f Files) Save(models []*reliability.Model) error {
	damage := make([]*big.Float, len(models))
	rs := make([]float64, len(models))
	var rec []float64
	for i, m := range models {
		st := m.State()
		damage[i] = st.Damage
		rs[i] = m.R()
		if m.Mechanism().Kind() == wearout.NBTI {
			if rec == nil {
				rec = make([]float64, len(models))
			}
			rec[i] = st.Recovery
		}
	}

	if rec != nil && f.Recovery == "" {
		return fmt.Errorf("%w: NBTI models need a recovery file", ErrInconsistent)
	}

	// All files are staged before any is renamed into place, so a failed
	// write leaves the previous checkpoint untouched.
	var st staged
	defer st.discard()

	if rec != nil {
		var buf bytes.Buffer
		if err := WriteFloats(&buf, rec); err != nil {
			return err
		}
		if err := st.write(f.Recovery, buf.Bytes()); err != nil {
			return fmt.Errorf("write recovery: %w", err)
		}
	}

	var buf bytes.Buffer
	if err := WriteBigFloats(&buf, damage); err != nil {
		return err
	}
	if err := st.write(f.Damage, buf.Bytes()); err != nil {
		return fmt.Errorf("write damage: %w", err)
	}

	if f.RValues != "" {
		var buf bytes.Buffer
		if err := WriteFloats(&buf, rs); err != nil {
			return err
		}
		if err := st.write(f.RValues, buf.Bytes()); err != nil {
			return fmt.Errorf("write r values: %w", err)
		}
	}

	return st.commit()
}

// LoadR reads the R values file written by the last Save.
func (f Files) LoadR() ([]float64, error) {
	raw, err := os.ReadFile(f.RValues)
	if err != nil {
		return nil, fmt.Errorf("read r values: %w", err)
	}
	rs, err := ReadFloats(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", f.RValues, err)
	}
	return rs, nil
}

func exists(path string) (bool, error) {
	if path == "" {
		return false, nil
	}
	_, err := os.Stat(path)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, fmt.Errorf("stat %s: %w", path, err)
	}
}

// staged holds temp files waiting to replace their targets.
type staged []string

func (s *staged) write(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	*s = append(*s, path)
	return nil
}

// commit renames every staged file onto its target, in staging order.
func (s *staged) commit() error {
	for len(*s) > 0 {
		path := (*s)[0]
		if err := os.Rename(path+".tmp", path); err != nil {
			return fmt.Errorf("commit %s: %w", path, err)
		}
		*s = (*s)[1:]
	}
	return nil
}

// discard removes temp files that were not committed.
func (s *staged) discard() {
	for _, path := range *s {
		_ = os.Remove(path + ".tmp")
	}
	*s = nil
}
