package config

import "sort"

var restitutionAnalyzers = []AnalyzerConfig{
	{Kind: "restitution", FinalBeats: 2},
	{Kind: "upstroke", FinalBeats: 2},
}

var Presets = map[string]map[string]*Config{
	"beeler-reuter": {
		"default": {
			Model:     "beeler-reuter",
			Analyzers: []AnalyzerConfig{{Kind: "trace", Every: 100}, {Kind: "apd"}},
		},
		"restitution": {
			Model:     "beeler-reuter",
			Pacing:    PacingConfig{S1: Float(1000), NS1: Int(4)},
			Analyzers: restitutionAnalyzers,
			Sweep:     SweepConfig{S2From: 300, S2To: 1000, S2Step: 50, Workers: DefaultWorkers},
		},
		"fast-pacing": {
			Model:      "beeler-reuter",
			Pacing:     PacingConfig{S1: Float(400), NS1: Int(8), S2: Float(400)},
			Iterations: IterationsConfig{Rule: RuleExact},
			Analyzers: []AnalyzerConfig{
				{Kind: "trace", Every: 50},
				{Kind: "apd", Repolarization: 0.9},
				{Kind: "extrema", Vars: []string{"V", "Cai"}},
			},
		},
	},
	"br-markov": {
		"default": {
			Model:     "br-markov",
			Analyzers: []AnalyzerConfig{{Kind: "trace", Every: 100, Vars: []string{"V", "C0", "C1", "O"}}, {Kind: "apd"}},
		},
		"restitution": {
			Model:     "br-markov",
			Pacing:    PacingConfig{S1: Float(1000), NS1: Int(4)},
			Analyzers: restitutionAnalyzers,
			Sweep:     SweepConfig{S2From: 300, S2To: 1000, S2Step: 50, Workers: DefaultWorkers},
		},
	},
	"minimal": {
		"epi": {
			Model:     "minimal",
			Analyzers: []AnalyzerConfig{{Kind: "trace", Every: 50, Vars: []string{"u", "v", "w", "s"}}, {Kind: "apd"}},
		},
		"restitution": {
			Model:     "minimal",
			Pacing:    PacingConfig{S1: Float(600), NS1: Int(6)},
			Analyzers: restitutionAnalyzers,
			Sweep:     SweepConfig{S2From: 200, S2To: 600, S2Step: 25, Workers: DefaultWorkers},
		},
	},
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(model, name string) *Config {
	if presets, ok := Presets[model]; ok {
		if cfg, ok := presets[name]; ok {
			return cfg.Clone()
		}
	}
	return nil
}

// ListPresets returns the preset names of model, sorted.
func ListPresets(model string) []string {
	presets, ok := Presets[model]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ListPresetModels returns the models that have presets, sorted.
func ListPresetModels() []string {
	names := make([]string, 0, len(Presets))
	for m := range Presets {
		names = append(names, m)
	}
	sort.Strings(names)
	return names
}
