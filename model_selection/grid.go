package model_selection

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// Params is one hyperparameter configuration, keyed by parameter name.
type Params map[string]float64

// Float returns the named value, or def when it is absent.
func (p Params) Float(name string, def float64) float64 {
	if v, ok := p[name]; ok {
		return v
	}
	return def
}

// Int returns the named value rounded to an integer, or def when it is absent.
func (p Params) Int(name string, def int) int {
	if v, ok := p[name]; ok {
		return int(math.Round(v))
	}
	return def
}

// Keys returns the parameter names in sorted order.
func (p Params) Keys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// String formats the configuration as "a=1 b=0.001" in key order.
func (p Params) String() string {
	parts := make([]string, 0, len(p))
	for _, k := range p.Keys() {
		parts = append(parts, fmt.Sprintf("%s=%g", k, p[k]))
	}
	return strings.Join(parts, " ")
}

// Grid is an ordered list of configurations. Order matters: it is the final tie-break
// of GridSearch.
type Grid []Params

// RegularGrid returns the Cartesian product of the levels. Parameters are taken in
// sorted name order and the last one varies fastest, so the order is deterministic.
// An empty map gives a grid holding one empty configuration.
func RegularGrid(levels map[string][]float64) Grid {
	keys := make([]string, 0, len(levels))
	for k := range levels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	grid := Grid{Params{}}
	for _, k := range keys {
		next := make(Grid, 0, len(grid)*len(levels[k]))
		for _, base := range grid {
			for _, v := range levels[k] {
				p := make(Params, len(base)+1)
				for bk, bv := range base {
					p[bk] = bv
				}
				p[k] = v
				next = append(next, p)
			}
		}
		grid = next
	}
	return grid
}

// LogLevels returns n values evenly spaced on the log10 scale between 10^lo and 10^hi.
func LogLevels(lo, hi float64, n int) []float64 {
	if n <= 0 {
		return nil
	}
	if n == 1 {
		return []float64{math.Pow(10, lo)}
	}
	out := make([]float64, n)
	step := (hi - lo) / float64(n-1)
	for i := range out {
		out[i] = math.Pow(10, lo+float64(i)*step)
	}
	return out
}

// IntLevels returns up to n distinct integers evenly spaced between lo and hi.
func IntLevels(lo, hi, n int) []float64 {
	if n <= 0 {
		return nil
	}
	if n == 1 || lo == hi {
		return []float64{float64(lo)}
	}
	out := make([]float64, 0, n)
	step := float64(hi-lo) / float64(n-1)
	for i := 0; i < n; i++ {
		v := math.Round(float64(lo) + float64(i)*step)
		if len(out) == 0 || out[len(out)-1] != v {
			out = append(out, v)
		}
	}
	return out
}
