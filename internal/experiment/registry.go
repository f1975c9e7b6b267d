package experiment

import (
	"errors"
	"fmt"
	"sort"

	"github.com/san-kum/cardiosim/internal/models"
	"github.com/san-kum/cardiosim/internal/sim"
)

var ErrUnknownModel = errors.New("experiment: unknown model")

type Registry struct {
	models map[string]func() sim.Model
}

func NewRegistry() *Registry {
	r := &Registry{
		models: make(map[string]func() sim.Model),
	}

	r.Register("beeler-reuter", func() sim.Model { return models.NewBeelerReuter() })
	r.Register("br-markov", func() sim.Model { return models.NewBRMarkov() })
	r.Register("minimal", func() sim.Model { return models.NewMinimal() })

	return r
}

// Register adds or replaces a model factory.
func (r *Registry) Register(name string, fn func() sim.Model) {
	r.models[name] = fn
}

func (r *Registry) GetModel(name string) (sim.Model, error) {
	fn, ok := r.models[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownModel, name)
	}
	return fn(), nil
}

func (r *Registry) ListModels() []string {
	names := make([]string, 0, len(r.models))
	for name := range r.models {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Info describes a registered model. Models without their own description
// get the first layout variable as voltage and the default iteration rule.
func (r *Registry) Info(name string) (models.Info, error) {
	m, err := r.GetModel(name)
	if err != nil {
		return models.Info{}, err
	}
	return describe(m), nil
}

func describe(m sim.Model) models.Info {
	if d, ok := m.(models.Describer); ok {
		return d.Info()
	}
	info := models.Info{Name: m.Name(), Rule: sim.DefaultOvershoot}
	if l := m.Layout(); l.Len() > 0 {
		info.Voltage = l.Var(0).Name
	}
	return info
}
