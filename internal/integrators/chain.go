package integrators

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// MaxChainStates bounds the cluster size Chain accepts.
const MaxChainStates = 7

// ErrChainSize indicates a Markov cluster outside [2, MaxChainStates].
var ErrChainSize = errors.New("integrators: unsupported markov chain size")

// Chain is a backward-Euler solver for Markov clusters too large for the
// closed-form updates. Rates are set before every step and held constant
// across it. A Chain owns scratch matrices and is not safe for concurrent use.
type Chain struct {
	n     int
	rates []float64

	a    *mat.Dense
	b, x *mat.VecDense
}

// NewChain returns a solver for an n-state cluster.
func NewChain(n int) (*Chain, error) {
	if n < 2 || n > MaxChainStates {
		return nil, fmt.Errorf("%w: %d states", ErrChainSize, n)
	}
	return &Chain{
		n:     n,
		rates: make([]float64, n*n),
		a:     mat.NewDense(n, n, nil),
		b:     mat.NewVecDense(n, nil),
		x:     mat.NewVecDense(n, nil),
	}, nil
}

// Len returns the number of states.
func (c *Chain) Len() int { return c.n }

// SetRate sets the transition rate from state from to state to.
func (c *Chain) SetRate(from, to int, k float64) {
	c.rates[from*c.n+to] = k
}

// Reset zeroes every rate.
func (c *Chain) Reset() {
	for i := range c.rates {
		c.rates[i] = 0
	}
}

// Step solves (I - dt*Q^T) p' = p in place and normalizes the result with
// closure as the conservation state.
func (c *Chain) Step(p []float64, dt float64, closure int) error {
	if len(p) != c.n {
		return fmt.Errorf("%w: got %d occupancies for %d states", ErrChainSize, len(p), c.n)
	}

	c.a.Zero()
	for i := 0; i < c.n; i++ {
		out := 0.0
		for j := 0; j < c.n; j++ {
			if i == j {
				continue
			}
			k := c.rates[i*c.n+j]
			out += k
			c.a.Set(j, i, -dt*k)
		}
		c.a.Set(i, i, 1+dt*out)
		c.b.SetVec(i, p[i])
	}

	if err := c.x.SolveVec(c.a, c.b); err != nil {
		return fmt.Errorf("integrators: markov solve: %w", err)
	}
	for i := range p {
		p[i] = c.x.AtVec(i)
	}
	Normalize(p, closure)
	return nil
}
