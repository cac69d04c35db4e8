// Package planner implements the server/client spec split, communication
// plan, and projection pushdown (spec.md section 4.G, component G).
package planner

import (
	"encoding/json"
	"fmt"

	"github.com/vegafusion/vegafusion/internal/chartspec"
	"github.com/vegafusion/vegafusion/internal/scope"
	"github.com/vegafusion/vegafusion/internal/taskgraph"
	"github.com/vegafusion/vegafusion/internal/transforms"
	"github.com/vegafusion/vegafusion/internal/variable"
	"github.com/vegafusion/vegafusion/internal/vferrors"
)

// CommPlan is the set of scoped variables that must cross each direction
// of the client/server boundary (spec.md section 3 "CommPlan").
type CommPlan struct {
	ServerToClient variable.Set[variable.Scoped]
	ClientToServer variable.Set[variable.Scoped]
}

// Plan is the result of running the planner over a spec: the client's
// remaining (stubbed) spec, the communication plan, and the server's
// fingerprinted task graph ready for the runtime driver.
type Plan struct {
	ClientSpec *chartspec.Spec
	Comm       CommPlan
	Graph      *taskgraph.Graph
}

// fetchNamePrefix names synthetic fetch tasks created by Split URL nodes
// (spec.md section 4.G step 4). The leading underscore keeps these out of
// the way of user-authored dataset names, which may not contain ':' but
// are otherwise unconstrained.
const fetchNamePrefix = "_fetch"

// Build runs the full planner pipeline over spec: extracting the
// server-computable subgraph, stubbing it out of the client spec, sharing
// fetch tasks across siblings with an identical URL, computing the
// communication plan, and appending projection-pushdown transforms before
// building and fingerprinting the server's task graph.
func Build(spec *chartspec.Spec, parseExpr chartspec.ExprParser) (*Plan, error) {
	walker := chartspec.Walker{ParseExpr: parseExpr}
	full, err := walker.Walk(spec)
	if err != nil {
		return nil, err
	}

	sites := flattenData(spec, nil)
	sortSites(sites)

	extractable, pipelines, err := classifySites(sites, full.Scope, parseExpr)
	if err != nil {
		return nil, err
	}

	clientSpec, err := cloneSpec(spec)
	if err != nil {
		return nil, err
	}
	stubExtractedData(clientSpec, nil, extractable)

	clientWalk, err := walker.Walk(clientSpec)
	if err != nil {
		return nil, err
	}

	comm, err := computeCommPlan(sites, extractable, pipelines, full.Scope, clientWalk)
	if err != nil {
		return nil, err
	}

	applyProjectionPushdown(sites, extractable, pipelines, spec, full.Scope)

	tasks, serverTree, err := buildServerTasks(sites, extractable, pipelines, comm)
	if err != nil {
		return nil, err
	}

	graph, err := taskgraph.Build(tasks, serverTree)
	if err != nil {
		return nil, err
	}

	return &Plan{ClientSpec: clientSpec, Comm: comm, Graph: graph}, nil
}

// classifySites determines, for every data site, whether its transform
// pipeline is supported() end-to-end and its source chain (if any) is
// itself extractable -- spec.md section 4.G step 1.
func classifySites(sites []dataSite, tree *scope.Tree, parseExpr chartspec.ExprParser) (map[string]bool, map[string]transforms.Pipeline, error) {
	extractable := map[string]bool{}
	pipelines := map[string]transforms.Pipeline{}
	visiting := map[string]bool{}

	byKey := map[string]dataSite{}
	for _, s := range sites {
		byKey[siteKey(s)] = s
	}

	var resolve func(s dataSite) (bool, error)
	resolve = func(s dataSite) (bool, error) {
		key := siteKey(s)
		if done, ok := extractable[key]; ok {
			return done, nil
		}
		if visiting[key] {
			return false, vferrors.Specf("dataset %q participates in a source cycle", s.Data.Name)
		}
		visiting[key] = true
		defer delete(visiting, key)

		pipeline := transforms.Pipeline{}
		for _, raw := range s.Data.Transform {
			tr, err := chartspec.Translate(raw, parseExpr)
			if err != nil {
				return false, err
			}
			pipeline.Transforms = append(pipeline.Transforms, tr)
		}
		pipelines[key] = pipeline

		ok := pipeline.Supported()
		if ok && s.Data.Source != "" {
			srcVar := variable.MustData(s.Data.Source)
			resolved, err := tree.ResolveScope(srcVar, s.Scope)
			if err != nil {
				return false, err
			}
			srcSite, found := byKey[scopedKey(variable.NewScoped(resolved.Var, resolved.Scope))]
			if !found {
				// Source isn't a plain dataset definition this planner
				// tracks (shouldn't happen for a well-formed spec); treat
				// conservatively as not extractable.
				ok = false
			} else {
				srcOK, err := resolve(srcSite)
				if err != nil {
					return false, err
				}
				ok = ok && srcOK
			}
		}
		extractable[key] = ok
		return ok, nil
	}

	for _, s := range sites {
		if _, err := resolve(s); err != nil {
			return nil, nil, err
		}
	}
	return extractable, pipelines, nil
}

func siteKey(s dataSite) string {
	return variable.NewScoped(variable.MustData(s.Data.Name), s.Scope).UniqueKey()
}

func scopedKey(v variable.Scoped) string { return v.UniqueKey() }

// cloneSpec deep-copies spec by round-tripping it through JSON, the same
// discipline Spec.MarshalJSON/UnmarshalJSON already apply to preserve
// unknown fields, so the clone is exact rather than a shallow struct copy
// that would alias nested slices.
func cloneSpec(spec *chartspec.Spec) (*chartspec.Spec, error) {
	data, err := json.Marshal(spec)
	if err != nil {
		return nil, vferrors.Wrap(vferrors.IO, err)
	}
	var clone chartspec.Spec
	if err := json.Unmarshal(data, &clone); err != nil {
		return nil, vferrors.Wrap(vferrors.IO, err)
	}
	return &clone, nil
}

// stubExtractedData replaces every extracted dataset in spec (in place)
// with a same-named, transform-free, empty-valued stub (spec.md section
// 4.G step 1 "Replace each removed node on the client side with a stub").
func stubExtractedData(spec *chartspec.Spec, path []uint32, extractable map[string]bool) {
	for i := range spec.Data {
		key := variable.NewScoped(variable.MustData(spec.Data[i].Name), path).UniqueKey()
		if extractable[key] {
			spec.Data[i] = chartspec.Data{Name: spec.Data[i].Name, Values: json.RawMessage("[]")}
		}
	}
	for i := range spec.Marks {
		if !spec.Marks[i].IsGroup() {
			continue
		}
		childPath := append(append([]uint32(nil), path...), uint32(i))
		childSpec := &chartspec.Spec{Signals: spec.Marks[i].Signals, Data: spec.Marks[i].Data, Scales: spec.Marks[i].Scales, Marks: spec.Marks[i].Marks}
		stubExtractedData(childSpec, childPath, extractable)
		spec.Marks[i].Data = childSpec.Data
	}
}

func fetchTaskName(id int) string { return fmt.Sprintf("%s/%d", fetchNamePrefix, id) }
