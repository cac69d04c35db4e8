// Package colusage implements the ColumnUsage lattice and the
// per-dataset DatasetsColumnUsage map used by expression dependency
// analysis (component B) and transform contracts (component C) to drive
// projection pushdown (component G).
//
// Carried verbatim (semantics, including the union laws) from
// vegafusion-core/src/expression/column_usage.rs, per SPEC_FULL.md
// section 12.
package colusage

import (
	"sort"

	"github.com/vegafusion/vegafusion/internal/variable"
)

// Usage describes which columns of a single dataset are touched. Unknown
// is the top of the lattice: union with Unknown is always Unknown
// (spec.md section 9 "Column-usage Unknown").
type Usage struct {
	unknown bool
	known   map[string]bool
}

func Empty() Usage { return Usage{known: map[string]bool{}} }

func Unknown() Usage { return Usage{unknown: true} }

func Known(columns ...string) Usage {
	u := Empty()
	for _, c := range columns {
		u.known[c] = true
	}
	return u
}

func (u Usage) IsUnknown() bool { return u.unknown }

// Columns returns the known columns in sorted order. Calling this on an
// Unknown usage returns nil; callers must check IsUnknown first.
func (u Usage) Columns() []string {
	if u.unknown {
		return nil
	}
	out := make([]string, 0, len(u.known))
	for c := range u.known {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// WithColumn returns the union of u with a single-column usage.
func (u Usage) WithColumn(column string) Usage {
	return u.Union(Known(column))
}

// Union combines two usages: Known ∪ Known unions their column sets;
// anything involving Unknown yields Unknown.
func (u Usage) Union(other Usage) Usage {
	if u.unknown || other.unknown {
		return Unknown()
	}
	merged := make(map[string]bool, len(u.known)+len(other.known))
	for c := range u.known {
		merged[c] = true
	}
	for c := range other.known {
		merged[c] = true
	}
	return Usage{known: merged}
}

// DatasetsUsage tracks column usage across a collection of scoped
// datasets, as accumulated while walking a chart spec's encodings,
// transforms, and expressions.
type DatasetsUsage struct {
	usages variable.Map[variable.Scoped, Usage]
}

func EmptyDatasets() DatasetsUsage {
	return DatasetsUsage{usages: variable.MakeMap[variable.Scoped, Usage]()}
}

// Add records that dataset usage column(s) are touched, unioning with any
// existing usage recorded for that dataset.
func (d DatasetsUsage) Add(dataset variable.Scoped, u Usage) {
	existing, ok := d.usages.Get(dataset)
	if !ok {
		existing = Empty()
	}
	d.usages.Set(dataset, existing.Union(u))
}

// Get returns the recorded usage for dataset, or Empty() if none was
// recorded.
func (d DatasetsUsage) Get(dataset variable.Scoped) Usage {
	u, ok := d.usages.Get(dataset)
	if !ok {
		return Empty()
	}
	return u
}

// Union returns the union of two DatasetsUsage maps: every dataset in
// either map appears in the result with the union of its usages.
func (d DatasetsUsage) Union(other DatasetsUsage) DatasetsUsage {
	result := EmptyDatasets()
	for _, k := range d.usages.Keys() {
		result.Add(k, d.Get(k))
	}
	for _, k := range other.usages.Keys() {
		result.Add(k, other.Get(k))
	}
	return result
}

// Datasets returns the set of datasets with any recorded usage.
func (d DatasetsUsage) Datasets() []variable.Scoped {
	return d.usages.Keys()
}
