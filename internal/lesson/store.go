package lesson

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
)

//go:embed steps.yaml
var defaultContent []byte

// ErrOutOfRange is returned by Get for an index outside [0, Count).
var ErrOutOfRange = errors.New("step index out of range")

// Store is the ordered, immutable list of steps.
type Store struct {
	steps        []Step
	referenceMax float64
}

type contentFile struct {
	ReferenceMax float64 `yaml:"referenceMax"`
	Steps        []Step  `yaml:"steps"`
}

// Default loads the embedded lesson.
func Default() (*Store, error) {
	return Load(bytes.NewReader(defaultContent))
}

// LoadFile reads a content file from disk.
func LoadFile(path string) (*Store, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Load(f)
}

// Load decodes YAML content and validates its structure.
func Load(r io.Reader) (*Store, error) {
	var cf contentFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cf); err != nil {
		return nil, fmt.Errorf("decode lesson content: %w", err)
	}
	return New(cf.Steps, cf.ReferenceMax)
}

// New builds a store from already decoded steps. A zero referenceMax is derived from the content.
func New(steps []Step, referenceMax float64) (*Store, error) {
	if err := Validate(steps); err != nil {
		return nil, err
	}
	if referenceMax <= 0 {
		referenceMax = deriveReferenceMax(steps)
	}
	return &Store{steps: steps, referenceMax: referenceMax}, nil
}

// Get returns the step at index.
func (s *Store) Get(index int) (Step, error) {
	if index < 0 || index >= len(s.steps) {
		return Step{}, fmt.Errorf("%w: %d (count %d)", ErrOutOfRange, index, len(s.steps))
	}
	return s.steps[index], nil
}

// Count reports the number of steps.
func (s *Store) Count() int { return len(s.steps) }

// ReferenceMax is the largest tower total any step displays; tower heights scale against it.
func (s *Store) ReferenceMax() float64 { return s.referenceMax }

func deriveReferenceMax(steps []Step) float64 {
	max := 0.0
	for _, st := range steps {
		for _, p := range st.Phases {
			if p.StockTotal > max {
				max = p.StockTotal
			}
			if p.DebtTotal > max {
				max = p.DebtTotal
			}
		}
	}
	if max <= 0 {
		return 1
	}
	return max
}

// Validate checks the structural shape of authored steps. It never checks the arithmetic.
func Validate(steps []Step) error {
	if len(steps) == 0 {
		return errors.New("lesson has no steps")
	}
	var errs error
	ids := make(map[int]bool, len(steps))
	for i, st := range steps {
		where := fmt.Sprintf("step %d (id %d)", i, st.ID)
		if ids[st.ID] {
			errs = multierr.Append(errs, fmt.Errorf("%s: duplicate id", where))
		}
		ids[st.ID] = true
		if len(st.Narration) == 0 {
			errs = multierr.Append(errs, fmt.Errorf("%s: no narration lines", where))
		}
		if st.Pose == PoseUnset {
			errs = multierr.Append(errs, fmt.Errorf("%s: missing pose", where))
		}
		for k, b := range st.Buttons {
			if b.Stack == StackUnset {
				errs = multierr.Append(errs, fmt.Errorf("%s button %d: missing stack", where, k))
			}
			if b.Color == ColorUnset {
				errs = multierr.Append(errs, fmt.Errorf("%s button %d: missing color", where, k))
			}
		}
		if len(st.Phases) == 0 {
			errs = multierr.Append(errs, fmt.Errorf("%s: no phases", where))
			continue
		}
		if st.Phases[0].TriggerLine != 0 {
			errs = multierr.Append(errs, fmt.Errorf("%s: first phase triggers on line %d, want 0", where, st.Phases[0].TriggerLine))
		}
		prev := 0
		for j, p := range st.Phases {
			if p.TriggerLine < prev {
				errs = multierr.Append(errs, fmt.Errorf("%s phase %d: trigger line %d before %d", where, j, p.TriggerLine, prev))
			}
			if p.TriggerLine < 0 || (len(st.Narration) > 0 && p.TriggerLine > len(st.Narration)-1) {
				errs = multierr.Append(errs, fmt.Errorf("%s phase %d: trigger line %d outside narration", where, j, p.TriggerLine))
			}
			prev = p.TriggerLine
			seen := make(map[string]bool, len(p.Sections))
			for _, sec := range p.Sections {
				if seen[sec.ID] {
					errs = multierr.Append(errs, fmt.Errorf("%s phase %d: duplicate section %q", where, j, sec.ID))
				}
				seen[sec.ID] = true
				if sec.Stack == StackUnset {
					errs = multierr.Append(errs, fmt.Errorf("%s phase %d section %q: missing stack", where, j, sec.ID))
				}
				if sec.Color == ColorUnset {
					errs = multierr.Append(errs, fmt.Errorf("%s phase %d section %q: missing color", where, j, sec.ID))
				}
			}
		}
	}
	return errs
}
