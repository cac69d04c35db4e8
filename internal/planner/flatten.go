package planner

import (
	"sort"

	"github.com/vegafusion/vegafusion/internal/chartspec"
)

// dataSite is one Data definition found anywhere in a spec tree, paired
// with the scope path it was found at.
type dataSite struct {
	Scope []uint32
	Data  *chartspec.Data
}

// flattenData walks spec (and every nested group mark) collecting every
// Data definition with its scope path, in a stable order (depth-first,
// mark order) so planning is deterministic.
func flattenData(spec *chartspec.Spec, path []uint32) []dataSite {
	var out []dataSite
	for i := range spec.Data {
		out = append(out, dataSite{Scope: append([]uint32(nil), path...), Data: &spec.Data[i]})
	}
	for i, m := range spec.Marks {
		if !m.IsGroup() {
			continue
		}
		childPath := append(append([]uint32(nil), path...), uint32(i))
		childSpec := &chartspec.Spec{Signals: m.Signals, Data: m.Data, Scales: m.Scales, Marks: m.Marks}
		out = append(out, flattenData(childSpec, childPath)...)
	}
	return out
}

// sortSites orders sites by (scope, name) so that assigning synthetic
// names (e.g. shared fetch tasks) is deterministic across runs.
func sortSites(sites []dataSite) {
	sort.SliceStable(sites, func(i, j int) bool {
		a, b := sites[i], sites[j]
		n := len(a.Scope)
		if len(b.Scope) < n {
			n = len(b.Scope)
		}
		for k := 0; k < n; k++ {
			if a.Scope[k] != b.Scope[k] {
				return a.Scope[k] < b.Scope[k]
			}
		}
		if len(a.Scope) != len(b.Scope) {
			return len(a.Scope) < len(b.Scope)
		}
		return a.Data.Name < b.Data.Name
	})
}
