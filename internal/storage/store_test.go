package storage

import (
	"bytes"
	"context"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/san-kum/cardiosim/internal/config"
	"github.com/san-kum/cardiosim/internal/experiment"
	"github.com/san-kum/cardiosim/internal/sim"
)

func testRecord() (*Record, *Series) {
	rec := &Record{
		Model:      "beeler-reuter",
		Rule:       "overshoot(1.1)",
		Iterations: 11000,
		Elapsed:    250 * time.Millisecond,
		Params:     Values{"gK1": 0.35, "s2": 400},
		Values:     Values{"apd.last": 271.5, "apd.beat_0": math.NaN()},
		Config:     config.GetPreset("beeler-reuter", "default"),
	}
	trace := &Series{
		Columns: []string{"V", "Cai"},
		Times:   []float64{0, 0.1, 0.2},
		Rows:    [][]float64{{-84.57, 1e-7}, {-84.5, 1.0000003e-7}, {-60.25, 2e-7}},
	}
	return rec, trace
}

func TestFileStoreSaveLoad(t *testing.T) {
	ctx := context.Background()
	st := NewFileStore(t.TempDir())
	if err := st.Init(ctx); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	rec, trace := testRecord()
	id, err := st.Save(ctx, rec, trace)
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if !strings.HasPrefix(id, "beeler-reuter_") {
		t.Errorf("unexpected run id %q", id)
	}

	got, err := st.Load(ctx, id)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if got.Model != "beeler-reuter" || got.Iterations != 11000 || got.Elapsed != rec.Elapsed {
		t.Errorf("loaded %+v", got)
	}
	if got.Values["apd.last"] != 271.5 {
		t.Errorf("apd.last = %v", got.Values["apd.last"])
	}
	if !math.IsNaN(got.Values["apd.beat_0"]) {
		t.Errorf("NaN value not preserved: %v", got.Values["apd.beat_0"])
	}
	if got.Config == nil || got.Config.Model != "beeler-reuter" || len(got.Config.Analyzers) != 2 {
		t.Errorf("config = %+v", got.Config)
	}

	series, err := st.LoadTrace(ctx, id)
	if err != nil {
		t.Fatalf("load trace failed: %v", err)
	}
	if series.Len() != 3 || len(series.Columns) != 2 {
		t.Fatalf("series = %+v", series)
	}
	if series.Rows[1][1] != 1.0000003e-7 || series.Times[2] != 0.2 {
		t.Errorf("trace values not preserved exactly: %v %v", series.Rows[1], series.Times)
	}
}

func TestFileStoreList(t *testing.T) {
	ctx := context.Background()
	st := NewFileStore(t.TempDir())

	runs, err := st.List(ctx)
	if err != nil || len(runs) != 0 {
		t.Fatalf("empty store list = %v, %v", runs, err)
	}

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, model := range []string{"minimal", "beeler-reuter"} {
		rec := &Record{Model: model, Created: base.Add(-time.Duration(i) * time.Hour)}
		if _, err := st.Save(ctx, rec, nil); err != nil {
			t.Fatal(err)
		}
	}

	runs, err = st.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 || runs[0].Model != "beeler-reuter" || runs[1].Model != "minimal" {
		t.Errorf("runs not ordered oldest first: %+v", runs)
	}

	series, err := st.LoadTrace(ctx, runs[0].ID)
	if err != nil || series.Len() != 0 {
		t.Errorf("run without trace: %+v, %v", series, err)
	}
}

func TestFileStoreNotFound(t *testing.T) {
	ctx := context.Background()
	st := NewFileStore(t.TempDir())

	if _, err := st.Load(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Load err = %v", err)
	}
	if _, err := st.LoadTrace(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("LoadTrace err = %v", err)
	}
}

func TestCSV(t *testing.T) {
	_, trace := testRecord()
	var buf bytes.Buffer
	if err := WriteCSV(&buf, trace); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(buf.String(), "time,V,Cai\n0,-84.57,1e-07\n") {
		t.Errorf("unexpected csv:\n%s", buf.String())
	}

	tests := []struct {
		name string
		in   string
	}{
		{"bad header", "t,V\n0,1\n"},
		{"bad number", "time,V\n0,abc\n"},
		{"ragged row", "time,V\n0,1,2\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ReadCSV(strings.NewReader(tt.in)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestNewRecord(t *testing.T) {
	out := &experiment.Outcome{
		Result: &sim.Result{
			Model:      "minimal",
			Rule:       "exact",
			Iterations: 150500,
			Values:     map[string]float64{"apd.last": 280},
		},
		Params: sim.Params{"tau_si": 1.8875},
	}
	rec, series := NewRecord(out)
	if series != nil {
		t.Error("expected no series without traces")
	}
	if rec.Model != "minimal" || rec.Iterations != 150500 || rec.Values["apd.last"] != 280 || rec.Params["tau_si"] != 1.8875 {
		t.Errorf("record = %+v", rec)
	}
}

func TestOpen(t *testing.T) {
	st, err := Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := st.(*FileStore); !ok {
		t.Errorf("Open(dir) = %T, want *FileStore", st)
	}
}
