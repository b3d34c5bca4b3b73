// Package strategy defines the decision interface consumed by the replay
// loop and a registry for managing multiple strategy implementations.
package strategy

import (
	"sort"

	"github.com/tradeforge/backtest/internal/indicator"
	"github.com/tradeforge/backtest/internal/types"
)

// MarketView is what a strategy is allowed to see at one bar: every
// timeframe's frame truncated to the bars observed so far. The replay
// loop guarantees the view never contains a future bar.
type MarketView map[string]*indicator.Frame

// Decision is a pluggable strategy decision function. Evaluate must be a
// pure function of the view it is given so that runs are reproducible.
type Decision interface {
	// Name returns the unique identifier for this strategy.
	Name() string

	// Evaluate inspects the truncated market view and returns one of
	// BUY, SELL or HOLD.
	Evaluate(view MarketView, symbol string) (types.Signal, error)
}

// Func adapts a bare function into a Decision.
type Func struct {
	name string
	fn   func(view MarketView, symbol string) (types.Signal, error)
}

// NewFunc wraps fn as a named Decision.
func NewFunc(name string, fn func(view MarketView, symbol string) (types.Signal, error)) *Func {
	return &Func{name: name, fn: fn}
}

// Name implements Decision.
func (f *Func) Name() string {
	return f.name
}

// Evaluate implements Decision.
func (f *Func) Evaluate(view MarketView, symbol string) (types.Signal, error) {
	return f.fn(view, symbol)
}

// Registry holds a named collection of strategies for lookup and enumeration.
type Registry struct {
	strategies map[string]Decision
}

// NewRegistry creates an empty strategy Registry.
func NewRegistry() *Registry {
	return &Registry{
		strategies: make(map[string]Decision),
	}
}

// Register adds a strategy to the registry, keyed by its Name().
func (r *Registry) Register(d Decision) {
	r.strategies[d.Name()] = d
}

// Get retrieves a strategy by name. The second return value indicates
// whether the strategy was found.
func (r *Registry) Get(name string) (Decision, bool) {
	d, ok := r.strategies[name]

	return d, ok
}

// List returns a sorted slice of all registered strategy names.
func (r *Registry) List() []string {
	names := make([]string, 0, len(r.strategies))
	for name := range r.strategies {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}
