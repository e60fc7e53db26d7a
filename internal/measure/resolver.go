package measure

import (
	"scorecard/internal/formula"
	"scorecard/internal/strategy"
)

// Resolver computes measure values for a period from a snapshot. It holds
// no mutable state of its own; the optional Cache is owned by the caller.
type Resolver struct {
	snap  *strategy.Snapshot
	cache *Cache
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithCache memoizes results in c, keyed by (measure, period).
func WithCache(c *Cache) Option {
	return func(r *Resolver) {
		r.cache = c
	}
}

// NewResolver returns a resolver over snap.
func NewResolver(snap *strategy.Snapshot, opts ...Option) *Resolver {
	r := &Resolver{snap: snap}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the calculated value of a measure for period. The bool is
// false when the measure is unknown, its formula has no value, or the
// measure reads itself through a chain of measure references.
func (r *Resolver) Resolve(code, period string) (float64, bool) {
	res := r.resolve(code, period, make(map[string]struct{}), r.cache)
	return res.value, res.ok
}

// ResolveAll returns the calculated value of every measure for period.
// Measures without a value map to nil. Values may be NaN.
func (r *Resolver) ResolveAll(period string) map[string]*float64 {
	cache := r.cache
	if cache == nil {
		cache = NewCache()
	}
	out := make(map[string]*float64)
	for _, m := range r.snap.Measures() {
		res := r.resolve(m.Code, period, make(map[string]struct{}), cache)
		if !res.ok {
			out[m.Code] = nil
			continue
		}
		v := res.value
		out[m.Code] = &v
	}
	return out
}

// resolve walks the formula of code. visiting holds the measures on the
// current reference chain; meeting one again poisons the whole chain.
func (r *Resolver) resolve(code, period string, visiting map[string]struct{}, cache *Cache) entry {
	if _, onChain := visiting[code]; onChain {
		return entry{cyclic: true}
	}
	if e, hit := cache.lookup(code, period); hit {
		return e
	}
	m, found := r.snap.Measure(code)
	if !found {
		return entry{}
	}

	visiting[code] = struct{}{}
	defer delete(visiting, code)

	tokens := m.Tokens()
	resolved := make([]formula.Token, 0, len(tokens))
	cyclic := false
	for _, tok := range tokens {
		if tok.Kind != formula.KindReference {
			resolved = append(resolved, tok)
			continue
		}
		ref := r.reference(m.Code, tok.Ref, period, visiting, cache)
		if ref.cyclic {
			cyclic = true
			continue
		}
		if ref.ok {
			resolved = append(resolved, formula.Number(ref.value))
		}
	}

	var e entry
	if cyclic {
		e = entry{cyclic: true}
	} else {
		e.value, e.ok = formula.Evaluate(resolved)
	}
	cache.store(code, period, e)
	return e
}

func (r *Resolver) reference(owner string, ref formula.Reference, period string, visiting map[string]struct{}, cache *Cache) entry {
	switch ref.Type {
	case formula.RefDataPoint:
		v, ok := r.snap.ParameterValue(owner, ref.Code, period)
		return entry{value: v, ok: ok}
	case formula.RefGlobalValue:
		v, ok := r.snap.GlobalValueAt(ref.Code, period)
		return entry{value: v, ok: ok}
	case formula.RefMeasure:
		return r.resolve(ref.Code, period, visiting, cache)
	}
	return entry{}
}
