package sim

import (
	"errors"
	"math"
	"testing"
)

func TestNewLayout(t *testing.T) {
	if _, err := NewLayout(Var{Name: "V"}, Var{Name: "V"}); err == nil {
		t.Error("duplicate names accepted")
	}
	if _, err := NewLayout(Var{Name: ""}); err == nil {
		t.Error("empty name accepted")
	}

	l := MustLayout(Var{Name: "V"}, Var{Name: "m"}, Var{Name: IionVar, Class: Current})
	idx, err := l.Lookup("m", "V")
	if err != nil || idx[0] != 1 || idx[1] != 0 {
		t.Errorf("Lookup = %v, %v", idx, err)
	}
	if _, err := l.Lookup("x"); !errors.Is(err, ErrUnknownVariable) {
		t.Errorf("unknown lookup err = %v", err)
	}
}

func TestStateAccess(t *testing.T) {
	l := MustLayout(Var{Name: "V"}, Var{Name: "Cai"}, Var{Name: "INa", Class: Current})
	st, err := SeedState(l, Params{"V": -84, "Cai": 2e-7})
	if err != nil {
		t.Fatal(err)
	}
	if st.Value("INa") != 0 {
		t.Errorf("current not zeroed: %v", st.Value("INa"))
	}
	if !math.IsNaN(st.Value("missing")) {
		t.Error("missing variable should read as NaN")
	}
	if err := st.Set("nope", 1); !errors.Is(err, ErrUnknownVariable) {
		t.Errorf("Set unknown: %v", err)
	}

	c := st.Clone()
	c.SetAt(0, 0)
	if st.At(0) != -84 {
		t.Error("Clone shares storage")
	}
	if st.Equal(c) {
		t.Error("Equal after mutation")
	}

	st.SetAt(1, math.NaN())
	if st.IsValid() {
		t.Error("NaN state reported valid")
	}
	if got := st.Invalid(); len(got) != 1 || got[0] != "Cai" {
		t.Errorf("Invalid = %v", got)
	}
}

func TestConstantsBuilder(t *testing.T) {
	b := NewConstants(Params{"Cm": 1, "gNa": 4, "Cao": 0})
	b.Copy("Cm", "gNa")
	b.Set("inv", 1/b.Param("gNa"))
	k, err := b.Build()
	if err != nil {
		t.Fatal(err)
	}
	if k.Value("inv") != 0.25 || k.Capacitance() != 1 {
		t.Errorf("constants = %v", k.Map())
	}

	b = NewConstants(Params{"Cm": 1, "Cao": 0})
	b.Copy("Cm")
	b.Set("logCao", math.Log(b.Positive("Cao")))
	_, err = b.Build()
	var ce *ConfigError
	if !errors.As(err, &ce) || ce.Param != "Cao" || !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("non-positive concentration: %v", err)
	}

	b = NewConstants(Params{"Cm": 1, "x": 0})
	b.Copy("Cm")
	b.Set("inv", 1/b.Param("x"))
	if _, err := b.Build(); !errors.Is(err, ErrNonFinite) {
		t.Errorf("infinite constant: %v", err)
	}
}

func TestParamsPacingKeys(t *testing.T) {
	keys := DefaultPacingKeys
	keys.S2 = "CI"
	p := Params{"s1": 500, "ns1": 3, "s1Start": 10, "CI": 0, "stimdur": 1, "stimmag": -50, "timestep": 0.01}

	_, err := p.Pacing(keys)
	var ce *ConfigError
	if !errors.As(err, &ce) || ce.Param != "CI" {
		t.Fatalf("err = %v, want ConfigError for CI", err)
	}

	p["CI"] = 300
	pc, err := p.Pacing(keys)
	if err != nil {
		t.Fatal(err)
	}
	if pc.S2 != 300 || pc.NS1 != 3 {
		t.Errorf("pacing = %+v", pc)
	}
	if pc.HasS2Magnitude || pc.S2Current() != -50 {
		t.Errorf("absent s2mag: %+v", pc)
	}

	p["s2mag"] = 0
	pc, err = p.Pacing(keys)
	if err != nil {
		t.Fatal(err)
	}
	if !pc.HasS2Magnitude || pc.S2Current() != 0 {
		t.Errorf("explicit zero s2mag: %+v", pc)
	}
}
