package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/san-kum/cardiosim/internal/config"
	"github.com/san-kum/cardiosim/internal/experiment"
)

var ErrNotFound = errors.New("storage: run not found")

// Store is a catalog of finished runs. It keeps analyzer outputs, never
// simulation state.
type Store interface {
	Init(ctx context.Context) error
	Save(ctx context.Context, rec *Record, trace *Series) (string, error)
	List(ctx context.Context) ([]Record, error)
	Load(ctx context.Context, id string) (*Record, error)
	LoadTrace(ctx context.Context, id string) (*Series, error)
	Close() error
}

// Record describes one stored run.
type Record struct {
	ID         string         `json:"id"`
	Model      string         `json:"model"`
	Created    time.Time      `json:"created"`
	Rule       string         `json:"rule"`
	Iterations int            `json:"iterations"`
	Elapsed    time.Duration  `json:"elapsed"`
	Params     Values         `json:"params"`
	Values     Values         `json:"values"`
	Config     *config.Config `json:"-"`
}

// Series is a sampled trace: one row of Columns per entry of Times.
type Series struct {
	Columns []string
	Times   []float64
	Rows    [][]float64
}

// Len returns the number of samples.
func (s *Series) Len() int { return len(s.Times) }

// Values is a scalar map whose JSON form writes NaN as null, since analyzers
// report unmeasured quantities as NaN.
type Values map[string]float64

func (v Values) MarshalJSON() ([]byte, error) {
	out := make(map[string]*float64, len(v))
	for k, x := range v {
		x := x
		if math.IsNaN(x) || math.IsInf(x, 0) {
			out[k] = nil
			continue
		}
		out[k] = &x
	}
	return json.Marshal(out)
}

func (v *Values) UnmarshalJSON(data []byte) error {
	var in map[string]*float64
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	out := make(Values, len(in))
	for k, x := range in {
		if x == nil {
			out[k] = math.NaN()
			continue
		}
		out[k] = *x
	}
	*v = out
	return nil
}

// NewRecord captures the outputs of a finished run. Its first trace, if any,
// is returned as the run's series.
func NewRecord(out *experiment.Outcome) (*Record, *Series) {
	rec := &Record{
		Model:      out.Model,
		Rule:       out.Rule,
		Iterations: out.Iterations,
		Elapsed:    out.Elapsed,
		Params:     Values(out.Params),
		Values:     Values(out.Values),
		Config:     out.Config,
	}
	if len(out.Traces) == 0 {
		return rec, nil
	}
	t := out.Traces[0]
	return rec, &Series{Columns: t.Columns(), Times: t.Times(), Rows: t.Rows()}
}

func newID(model string, at time.Time) string {
	return fmt.Sprintf("%s_%s_%s", model, at.UTC().Format("20060102T150405"), uuid.NewString()[:8])
}

// stamp fills the ID and creation time of a record about to be saved.
func stamp(rec *Record) {
	if rec.Created.IsZero() {
		rec.Created = time.Now()
	}
	if rec.ID == "" {
		rec.ID = newID(rec.Model, rec.Created)
	}
}

func notFound(id string) error {
	return fmt.Errorf("%w: %s", ErrNotFound, id)
}
