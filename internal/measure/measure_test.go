package measure

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scorecard/internal/strategy"
)

const measuresYAML = `
measures:
  - code: NET
    parameters: [revenue, cost]
    formula:
      - {type: dataPoint, code: revenue}
      - {type: operator, value: "-"}
      - {type: dataPoint, code: cost}
  - code: NET_FX
    formula:
      - {type: measure-ref, code: NET}
      - {type: operator, value: "*"}
      - {type: globalValue, code: FX}
  - code: DOUBLE
    formula:
      - {type: literal, value: 2}
      - {type: operator, value: "*"}
      - {type: measure-ref, code: NET_FX}
  - code: PARTIAL
    parameters: [a, b]
    formula:
      - {type: function, value: "SUM("}
      - {type: dataPoint, code: a}
      - {type: dataPoint, code: b}
      - {type: paren, value: ")"}
  - code: RATIO
    parameters: [a]
    formula:
      - {type: dataPoint, code: a}
      - {type: operator, value: "/"}
      - {type: literal, value: 0}
  - code: A
    formula:
      - {type: measure-ref, code: B}
      - {type: operator, value: "+"}
      - {type: literal, value: 1}
  - code: B
    formula:
      - {type: measure-ref, code: A}
      - {type: operator, value: "+"}
      - {type: literal, value: 1}
  - code: ON_CYCLE
    formula:
      - {type: measure-ref, code: A}
  - code: SELF
    formula:
      - {type: measure-ref, code: SELF}
  - code: GHOST
    formula:
      - {type: measure-ref, code: MISSING}
      - {type: literal, value: 7}
global_values:
  - code: FX
    type: currency
    values:
      "2025-01": 2
parameter_values:
  - {measure: NET, parameter: revenue, period: "2025-01", value: 200}
  - {measure: NET, parameter: cost, period: "2025-01", value: 80}
  - {measure: NET, parameter: revenue, period: "2025-02", value: 50}
  - {measure: PARTIAL, parameter: b, period: "2025-01", value: 5}
  - {measure: RATIO, parameter: a, period: "2025-01", value: 3}
`

func loadSnapshot(t *testing.T) *strategy.Snapshot {
	t.Helper()
	doc, err := strategy.ParseAndValidateDocument([]byte(measuresYAML), "measures.yml")
	require.NoError(t, err)
	snap, err := strategy.Build(doc)
	require.NoError(t, err)
	return snap
}

func TestResolve(t *testing.T) {
	r := NewResolver(loadSnapshot(t))

	tests := []struct {
		name   string
		code   string
		period string
		want   float64
		ok     bool
	}{
		{name: "parameters", code: "NET", period: "2025-01", want: 120, ok: true},
		{name: "measure and global", code: "NET_FX", period: "2025-01", want: 240, ok: true},
		{name: "nested measure refs", code: "DOUBLE", period: "2025-01", want: 480, ok: true},
		{name: "missing parameter dropped", code: "PARTIAL", period: "2025-01", want: 5, ok: true},
		{name: "missing cost dropped", code: "NET", period: "2025-02", want: 50, ok: true},
		{name: "missing global dropped", code: "NET_FX", period: "2025-02", want: 50, ok: true},
		{name: "missing measure dropped", code: "GHOST", period: "2025-01", want: 7, ok: true},
		{name: "no data at all", code: "PARTIAL", period: "2025-03", ok: false},
		{name: "unknown measure", code: "NOPE", period: "2025-01", ok: false},
		{name: "cycle A", code: "A", period: "2025-01", ok: false},
		{name: "cycle B", code: "B", period: "2025-01", ok: false},
		{name: "depends on cycle", code: "ON_CYCLE", period: "2025-01", ok: false},
		{name: "self reference", code: "SELF", period: "2025-01", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := r.Resolve(tt.code, tt.period)
			require.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.InDelta(t, tt.want, got, 1e-9)
			}
		})
	}
}

func TestResolveDivisionByZeroIsNaN(t *testing.T) {
	got, ok := NewResolver(loadSnapshot(t)).Resolve("RATIO", "2025-01")
	require.True(t, ok)
	assert.True(t, math.IsNaN(got))
}

func TestResolveCycleIndependentOfEntryWithCache(t *testing.T) {
	cache := NewCache()
	r := NewResolver(loadSnapshot(t), WithCache(cache))

	_, ok := r.Resolve("ON_CYCLE", "2025-01")
	assert.False(t, ok)
	_, ok = r.Resolve("B", "2025-01")
	assert.False(t, ok)
	_, ok = r.Resolve("A", "2025-01")
	assert.False(t, ok)
}

func TestResolveAll(t *testing.T) {
	r := NewResolver(loadSnapshot(t))
	all := r.ResolveAll("2025-01")

	require.Contains(t, all, "NET")
	require.NotNil(t, all["NET"])
	assert.Equal(t, 120.0, *all["NET"])
	assert.Nil(t, all["A"])
	assert.Nil(t, all["SELF"])
	require.NotNil(t, all["RATIO"])
	assert.True(t, math.IsNaN(*all["RATIO"]))
	assert.Len(t, all, 10)
}

func TestResolveIdempotent(t *testing.T) {
	snap := loadSnapshot(t)
	first := NewResolver(snap).ResolveAll("2025-01")
	second := NewResolver(snap, WithCache(NewCache())).ResolveAll("2025-01")
	for code, v := range first {
		if v == nil || math.IsNaN(*v) {
			continue
		}
		require.NotNil(t, second[code], code)
		assert.Equal(t, *v, *second[code], code)
	}
}

func TestCacheMemoizesAndInvalidates(t *testing.T) {
	snap := loadSnapshot(t)
	graph, _ := BuildGraph(snap)
	cache := NewCache()
	r := NewResolver(snap, WithCache(cache))

	v, ok := r.Resolve("DOUBLE", "2025-01")
	require.True(t, ok)
	assert.Equal(t, 480.0, v)

	cached, hit := cache.lookup("NET", "2025-01")
	require.True(t, hit)
	require.True(t, cached.ok)
	assert.Equal(t, 120.0, cached.value)
	assert.Equal(t, 3, cache.Len())

	_, ok = r.Resolve("NET", "2025-02")
	require.True(t, ok)
	assert.Equal(t, 4, cache.Len())

	// NET, NET_FX and DOUBLE in 2025-01 plus NET in 2025-02.
	assert.Equal(t, 4, cache.Invalidate("NET", graph))
	assert.Equal(t, 0, cache.Len())

	r.Resolve("NET", "2025-01")
	r.Resolve("NET", "2025-02")
	assert.Equal(t, 1, cache.InvalidatePeriod("2025-02"))
	assert.Equal(t, 1, cache.Len())

	cache.Reset()
	assert.Equal(t, 0, cache.Len())
}

func TestCacheConcurrentUse(t *testing.T) {
	snap := loadSnapshot(t)
	cache := NewCache()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r := NewResolver(snap, WithCache(cache))
			v, ok := r.Resolve("DOUBLE", "2025-01")
			assert.True(t, ok)
			assert.Equal(t, 480.0, v)
		}()
	}
	wg.Wait()
}

func TestNilCacheIsNoop(t *testing.T) {
	var cache *Cache
	assert.Equal(t, 0, cache.Len())
	assert.Equal(t, 0, cache.Invalidate("X", nil))
	assert.Equal(t, 0, cache.InvalidatePeriod("2025-01"))
	cache.Reset()
}

func TestBuildGraph(t *testing.T) {
	snap := loadSnapshot(t)
	graph, problems := BuildGraph(snap)

	assert.Equal(t, []string{"DOUBLE", "NET_FX"}, graph.Dependents("NET"))
	assert.Equal(t, []string{"NET", "NET_FX"}, graph.Dependencies("DOUBLE"))
	assert.Equal(t, []string{"NET_FX"}, graph.DirectDependencies("DOUBLE"))
	assert.Nil(t, graph.Dependents("NOPE"))

	var loops, unknown []string
	for _, p := range problems {
		switch {
		case errors.Is(p, ErrReferenceLoop):
			loops = append(loops, p.Measure+"->"+p.Reference)
		case errors.Is(p, ErrUnknownMeasure):
			unknown = append(unknown, p.Measure+"->"+p.Reference)
		}
	}
	// A -> B is added first, so B -> A is the edge rejected.
	assert.ElementsMatch(t, []string{"B->A", "SELF->SELF"}, loops)
	assert.Equal(t, []string{"GHOST->MISSING"}, unknown)

	order := graph.Order()
	assert.Len(t, order, len(snap.Measures()))
	pos := make(map[string]int, len(order))
	for i, code := range order {
		pos[code] = i
	}
	assert.Less(t, pos["NET"], pos["NET_FX"])
	assert.Less(t, pos["NET_FX"], pos["DOUBLE"])
	assert.Less(t, pos["B"], pos["A"])
	assert.Less(t, pos["A"], pos["ON_CYCLE"])
}

func buildSnapshot(t *testing.T, docs ...string) *strategy.Snapshot {
	t.Helper()
	parsed := make([]strategy.Document, 0, len(docs))
	for i, data := range docs {
		doc, err := strategy.ParseAndValidateDocument([]byte(data), fmt.Sprintf("doc%d.yml", i))
		require.NoError(t, err)
		parsed = append(parsed, doc)
	}
	snap, err := strategy.Build(parsed...)
	require.NoError(t, err)
	return snap
}

func warm(t *testing.T, snap *strategy.Snapshot, cache *Cache, periods ...string) {
	t.Helper()
	r := NewResolver(snap, WithCache(cache))
	for _, p := range periods {
		r.ResolveAll(p)
	}
}

func TestCacheRefresh(t *testing.T) {
	prev := loadSnapshot(t)

	t.Run("unchanged snapshot keeps everything", func(t *testing.T) {
		cache := NewCache()
		warm(t, prev, cache, "2025-01", "2025-02")
		before := cache.Len()
		graph, _ := BuildGraph(prev)

		assert.Equal(t, 0, cache.Refresh(prev, loadSnapshot(t), graph))
		assert.Equal(t, before, cache.Len())
	})

	t.Run("parameter change drops the measure and its dependents", func(t *testing.T) {
		cache := NewCache()
		warm(t, prev, cache, "2025-01", "2025-02")
		next := buildSnapshot(t, measuresYAML+`  - {measure: NET, parameter: cost, period: "2025-02", value: 10}
`)
		graph, _ := BuildGraph(next)

		assert.Positive(t, cache.Refresh(prev, next, graph))
		for _, code := range []string{"NET", "NET_FX", "DOUBLE"} {
			_, hit := cache.lookup(code, "2025-01")
			assert.False(t, hit, code)
		}
		_, hit := cache.lookup("PARTIAL", "2025-01")
		assert.True(t, hit)

		v, ok := NewResolver(next, WithCache(cache)).Resolve("NET", "2025-02")
		require.True(t, ok)
		assert.Equal(t, 40.0, v)
	})

	t.Run("global value change drops only that period", func(t *testing.T) {
		cache := NewCache()
		warm(t, prev, cache, "2025-01", "2025-02")
		next := buildSnapshot(t, measuresYAML, `
global_values:
  - code: FX2
    values:
      "2025-02": 3
`)
		graph, _ := BuildGraph(next)

		assert.Positive(t, cache.Refresh(prev, next, graph))
		_, hit := cache.lookup("PARTIAL", "2025-02")
		assert.False(t, hit)
		_, hit = cache.lookup("PARTIAL", "2025-01")
		assert.True(t, hit)
	})

	t.Run("definition change empties the cache", func(t *testing.T) {
		cache := NewCache()
		warm(t, prev, cache, "2025-01")
		next := buildSnapshot(t, measuresYAML, `
measures:
  - code: EXTRA
    formula:
      - {type: literal, value: 1}
`)
		graph, _ := BuildGraph(next)

		before := cache.Len()
		assert.Equal(t, before, cache.Refresh(prev, next, graph))
		assert.Equal(t, 0, cache.Len())
	})

	t.Run("nil previous snapshot empties the cache", func(t *testing.T) {
		cache := NewCache()
		warm(t, prev, cache, "2025-01")
		cache.Refresh(nil, prev, nil)
		assert.Equal(t, 0, cache.Len())
	})
}
