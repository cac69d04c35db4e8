package planner

import (
	"encoding/json"

	"github.com/zclconf/go-cty/cty"

	"github.com/vegafusion/vegafusion/internal/scope"
	"github.com/vegafusion/vegafusion/internal/task"
	"github.com/vegafusion/vegafusion/internal/transforms"
	"github.com/vegafusion/vegafusion/internal/variable"
)

// urlKey groups sites that fetch the identical resource, so buildServerTasks
// can share one fetch task between them (spec.md section 4.G step 4 "Split
// URL nodes").
type urlKey struct {
	url    string
	format string
}

// buildServerTasks emits one task.Task per extractable site (plus any
// synthetic shared fetch tasks and a placeholder Value task per
// client-to-server variable) and the scope tree needed to resolve their
// edges, ready for taskgraph.Build.
//
// Fetch-task sharing for a URL first seen on a transform-free site reuses
// that site's own task as the canonical provider, which only resolves for
// later siblings at the same scope or a descendant of it (scope
// resolution only walks outward to ancestors); a later sibling in an
// unrelated scope gets its own independent fetch instead of sharing.
func buildServerTasks(
	sites []dataSite,
	extractable map[string]bool,
	pipelines map[string]transforms.Pipeline,
	comm CommPlan,
) ([]task.Task, *scope.Tree, error) {
	tree := scope.NewTree()
	var tasks []task.Task
	fetchSeq := 0
	canonicalFetch := map[urlKey]string{}
	canonicalScope := map[urlKey][]uint32{}

	for _, s := range sites {
		key := siteKey(s)
		if !extractable[key] {
			continue
		}
		pipeline := pipelines[key]

		var t task.Task
		switch {
		case s.Data.Source != "":
			t = task.NewDataSourceTask(variable.MustData(s.Data.Name), s.Scope, task.DataSource{
				SourceName: s.Data.Source,
				Pipeline:   pipeline,
			})

		case s.Data.URL != "":
			uk := urlKey{url: s.Data.URL, format: formatType(s.Data.Format)}
			canonicalName, shared := canonicalFetch[uk]
			if shared {
				// Share only if the provider's scope is this site's scope
				// or one of its ancestors, i.e. a prefix of s.Scope.
				prefix := canonicalScope[uk]
				reachable := len(prefix) <= len(s.Scope)
				for k := 0; reachable && k < len(prefix); k++ {
					reachable = prefix[k] == s.Scope[k]
				}
				shared = reachable
			}

			if !shared && len(pipeline.Transforms) == 0 {
				// This site is the first to need this URL and has nothing
				// to run on it: it becomes the canonical fetch task itself.
				t = task.NewDataURLTask(variable.MustData(s.Data.Name), s.Scope, task.DataURL{
					URL:    s.Data.URL,
					Format: uk.format,
				})
				canonicalFetch[uk] = s.Data.Name
				canonicalScope[uk] = s.Scope
			} else {
				if !shared {
					fetchName := fetchTaskName(fetchSeq)
					fetchSeq++
					tasks = append(tasks, task.NewDataURLTask(variable.MustData(fetchName), nil, task.DataURL{
						URL:    s.Data.URL,
						Format: uk.format,
					}))
					if err := tree.GetChild(nil).DefineName(variable.DataNamespace, fetchName); err != nil {
						return nil, nil, err
					}
					canonicalFetch[uk] = fetchName
					canonicalScope[uk] = nil
					canonicalName = fetchName
				}
				t = task.NewDataSourceTask(variable.MustData(s.Data.Name), s.Scope, task.DataSource{
					SourceName: canonicalName,
					Pipeline:   pipeline,
				})
			}

		default:
			// Inline values (or an empty literal dataset left with no
			// url/source, e.g. a stub): encode Values verbatim as JSON.
			values := s.Data.Values
			if values == nil {
				values = json.RawMessage("[]")
			}
			t = task.NewDataValuesTask(variable.MustData(s.Data.Name), s.Scope, task.DataValues{
				InlineBytes: append([]byte(nil), values...),
				Format:      "json",
				Pipeline:    pipeline,
			})
		}

		tasks = append(tasks, t)
		if err := tree.GetChild(s.Scope).DefineName(variable.DataNamespace, s.Data.Name); err != nil {
			return nil, nil, err
		}
		for _, tr := range pipeline.Transforms {
			if extent, ok := tr.(transforms.Extent); ok && extent.Signal != "" {
				if err := tree.GetChild(s.Scope).DefineOutputSignal(extent.Signal, s.Data.Name); err != nil {
					return nil, nil, err
				}
			}
		}
	}

	for _, v := range comm.ClientToServer {
		tasks = append(tasks, task.NewValueTask(v.Var, v.Scope, task.NewScalar(cty.NullVal(cty.DynamicPseudoType))))
		if err := tree.GetChild(v.Scope).DefineName(v.Var.Namespace, v.Var.Name); err != nil {
			return nil, nil, err
		}
	}

	return tasks, tree, nil
}

// formatType extracts Vega's `format.type` ("json", "csv", "tsv", "arrow",
// ...), defaulting to "json" for an absent or scalar-string format field
// (Vega also allows `"format": "csv"` as shorthand).
func formatType(raw json.RawMessage) string {
	if len(raw) == 0 {
		return "json"
	}
	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil && asString != "" {
		return asString
	}
	var obj struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil && obj.Type != "" {
		return obj.Type
	}
	return "json"
}
