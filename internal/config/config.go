package config

import (
	"bytes"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/cardiosim/internal/sim"
	"github.com/san-kum/cardiosim/internal/stimulus"
)

const (
	DefaultModel   = "beeler-reuter"
	DefaultFactor  = 1.1
	DefaultWorkers = 4
)

// Iteration rule names.
const (
	RuleOvershoot = "overshoot"
	RuleExact     = "exact"
)

// Config is a run description. Unset pacing fields and parameters fall back
// to the model's defaults.
type Config struct {
	Model      string             `yaml:"model" toml:"model"`
	Pacing     PacingConfig       `yaml:"pacing,omitempty" toml:"pacing,omitempty"`
	Iterations IterationsConfig   `yaml:"iterations,omitempty" toml:"iterations,omitempty"`
	Params     map[string]float64 `yaml:"params,omitempty" toml:"params,omitempty"`
	Analyzers  []AnalyzerConfig   `yaml:"analyzers,omitempty" toml:"analyzers,omitempty"`
	Sweep      SweepConfig        `yaml:"sweep,omitempty" toml:"sweep,omitempty"`
}

type PacingConfig struct {
	S1            *float64 `yaml:"s1,omitempty" toml:"s1,omitempty"`
	NS1           *int     `yaml:"ns1,omitempty" toml:"ns1,omitempty"`
	S1Start       *float64 `yaml:"s1_start,omitempty" toml:"s1_start,omitempty"`
	S2            *float64 `yaml:"s2,omitempty" toml:"s2,omitempty"`
	StimDuration  *float64 `yaml:"stim_duration,omitempty" toml:"stim_duration,omitempty"`
	StimMagnitude *float64 `yaml:"stim_magnitude,omitempty" toml:"stim_magnitude,omitempty"`
	S2Magnitude   *float64 `yaml:"s2_magnitude,omitempty" toml:"s2_magnitude,omitempty"`
	Timestep      *float64 `yaml:"timestep,omitempty" toml:"timestep,omitempty"`
}

type IterationsConfig struct {
	Rule   string  `yaml:"rule,omitempty" toml:"rule,omitempty"`
	Factor float64 `yaml:"factor,omitempty" toml:"factor,omitempty"`
}

type AnalyzerConfig struct {
	Kind           string    `yaml:"kind" toml:"kind"`
	Name           string    `yaml:"name,omitempty" toml:"name,omitempty"`
	Vars           []string  `yaml:"vars,omitempty" toml:"vars,omitempty"`
	Every          int       `yaml:"every,omitempty" toml:"every,omitempty"`
	Threshold      *float64  `yaml:"threshold,omitempty" toml:"threshold,omitempty"`
	Repolarization float64   `yaml:"repolarization,omitempty" toml:"repolarization,omitempty"`
	FinalBeats     int       `yaml:"final_beats,omitempty" toml:"final_beats,omitempty"`
	Times          []float64 `yaml:"times,omitempty" toml:"times,omitempty"`
}

type SweepConfig struct {
	S2Values []float64 `yaml:"s2_values,omitempty" toml:"s2_values,omitempty"`
	S2From   float64   `yaml:"s2_from,omitempty" toml:"s2_from,omitempty"`
	S2To     float64   `yaml:"s2_to,omitempty" toml:"s2_to,omitempty"`
	S2Step   float64   `yaml:"s2_step,omitempty" toml:"s2_step,omitempty"`
	Workers  int       `yaml:"workers,omitempty" toml:"workers,omitempty"`
}

func DefaultConfig() *Config {
	return &Config{
		Model: DefaultModel,
		Analyzers: []AnalyzerConfig{
			{Kind: "trace", Every: 100},
			{Kind: "apd"},
		},
		Sweep: SweepConfig{Workers: DefaultWorkers},
	}
}

// Float returns a pointer to v, for filling pacing fields.
func Float(v float64) *float64 { return &v }

// Int returns a pointer to v.
func Int(v int) *int { return &v }

// Load reads a YAML or TOML config, chosen by file extension. Sections the
// file leaves out take their DefaultConfig values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if strings.ToLower(filepath.Ext(path)) == ".toml" {
		cfg := &Config{}
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return nil, fmt.Errorf("config %s: %w", path, err)
		}
		cfg.applyDefaults()
		return cfg, nil
	}
	cfg, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Decode parses a YAML config held in memory.
func Decode(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

// Encode renders cfg as YAML.
func Encode(cfg *Config) ([]byte, error) {
	return yaml.Marshal(cfg)
}

func (c *Config) applyDefaults() {
	def := DefaultConfig()
	if c.Model == "" {
		c.Model = def.Model
	}
	if c.Analyzers == nil {
		c.Analyzers = def.Analyzers
	}
	if c.Sweep.Workers == 0 {
		c.Sweep.Workers = def.Sweep.Workers
	}
}

// Save writes cfg as TOML when path ends in .toml and as YAML otherwise.
func Save(path string, cfg *Config) error {
	var (
		data []byte
		err  error
	)
	if strings.ToLower(filepath.Ext(path)) == ".toml" {
		var buf bytes.Buffer
		err = toml.NewEncoder(&buf).Encode(cfg)
		data = buf.Bytes()
	} else {
		data, err = Encode(cfg)
	}
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Overrides returns the parameters the config sets explicitly, pacing
// included, keyed by model parameter name.
func (c *Config) Overrides() sim.Params {
	p := make(sim.Params, len(c.Params)+8)
	for k, v := range c.Params {
		p[k] = v
	}
	set := func(key string, v *float64) {
		if v != nil {
			p[key] = *v
		}
	}
	set(stimulus.KeyS1, c.Pacing.S1)
	set(stimulus.KeyS1Start, c.Pacing.S1Start)
	set(stimulus.KeyS2, c.Pacing.S2)
	set(stimulus.KeyDuration, c.Pacing.StimDuration)
	set(stimulus.KeyMagnitude, c.Pacing.StimMagnitude)
	set(stimulus.KeyS2Magnitude, c.Pacing.S2Magnitude)
	set(stimulus.KeyTimestep, c.Pacing.Timestep)
	if c.Pacing.NS1 != nil {
		p[stimulus.KeyNS1] = float64(*c.Pacing.NS1)
	}
	return p
}

// IterationRule resolves the configured rule, falling back to def when no
// rule is named.
func (c *Config) IterationRule(def sim.IterationRule) (sim.IterationRule, error) {
	switch strings.ToLower(c.Iterations.Rule) {
	case "":
		if c.Iterations.Factor != 0 {
			return sim.Overshoot{Factor: c.Iterations.Factor}, nil
		}
		return def, nil
	case RuleOvershoot:
		f := c.Iterations.Factor
		if f == 0 {
			f = DefaultFactor
		}
		return sim.Overshoot{Factor: f}, nil
	case RuleExact:
		return sim.Exact{}, nil
	default:
		return nil, fmt.Errorf("config: unknown iteration rule %q (want %s or %s)", c.Iterations.Rule, RuleOvershoot, RuleExact)
	}
}

// Values expands the sweep into S2 coupling intervals. Explicit values win
// over a range.
func (s SweepConfig) Values() ([]float64, error) {
	if len(s.S2Values) > 0 {
		out := make([]float64, len(s.S2Values))
		copy(out, s.S2Values)
		return out, nil
	}
	if s.S2Step <= 0 {
		return nil, fmt.Errorf("config: sweep needs s2_values or a positive s2_step")
	}
	if s.S2To < s.S2From {
		return nil, fmt.Errorf("config: sweep range %g..%g is empty", s.S2From, s.S2To)
	}
	n := int(math.Floor((s.S2To-s.S2From)/s.S2Step+1e-9)) + 1
	out := make([]float64, n)
	for i := range out {
		out[i] = s.S2From + float64(i)*s.S2Step
	}
	return out, nil
}

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	out := *c
	out.Pacing = c.Pacing.clone()
	if c.Params != nil {
		out.Params = make(map[string]float64, len(c.Params))
		for k, v := range c.Params {
			out.Params[k] = v
		}
	}
	out.Analyzers = make([]AnalyzerConfig, len(c.Analyzers))
	for i, a := range c.Analyzers {
		a.Vars = append([]string(nil), a.Vars...)
		a.Times = append([]float64(nil), a.Times...)
		if a.Threshold != nil {
			a.Threshold = Float(*a.Threshold)
		}
		out.Analyzers[i] = a
	}
	out.Sweep.S2Values = append([]float64(nil), c.Sweep.S2Values...)
	return &out
}

func (p PacingConfig) clone() PacingConfig {
	cp := func(v *float64) *float64 {
		if v == nil {
			return nil
		}
		return Float(*v)
	}
	out := PacingConfig{
		S1:            cp(p.S1),
		S1Start:       cp(p.S1Start),
		S2:            cp(p.S2),
		StimDuration:  cp(p.StimDuration),
		StimMagnitude: cp(p.StimMagnitude),
		S2Magnitude:   cp(p.S2Magnitude),
		Timestep:      cp(p.Timestep),
	}
	if p.NS1 != nil {
		out.NS1 = Int(*p.NS1)
	}
	return out
}
