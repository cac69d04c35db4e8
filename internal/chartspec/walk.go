package chartspec

import (
	"encoding/json"

	"github.com/vegafusion/vegafusion/internal/exprast"
	"github.com/vegafusion/vegafusion/internal/exprdeps"
	"github.com/vegafusion/vegafusion/internal/scope"
	"github.com/vegafusion/vegafusion/internal/transforms"
	"github.com/vegafusion/vegafusion/internal/variable"
	"github.com/vegafusion/vegafusion/internal/vferrors"
)

// Walker runs the four passes of spec.md section 4.D over a Spec tree:
// MakeTaskScope, DefinitionVars, UpdateVars, and InputVars. It depends on
// an ExprParser (the expression-parser collaborator) to turn the raw
// strings found in signal updates and filter/formula transforms into
// exprast.Node trees.
type Walker struct {
	ParseExpr ExprParser
}

// Result is the union of everything the four passes produce.
type Result struct {
	Scope       *scope.Tree
	Definitions variable.Set[variable.Scoped]
	Updated     variable.Set[variable.Scoped]
	Inputs      variable.Set[variable.Scoped]
}

// Walk runs all four passes over spec and returns their combined result, or
// the first Specification error encountered (a name collision, an
// unresolvable reference).
func (w Walker) Walk(spec *Spec) (*Result, error) {
	res := &Result{
		Scope:       scope.NewTree(),
		Definitions: variable.MakeSet[variable.Scoped](),
		Updated:     variable.MakeSet[variable.Scoped](),
		Inputs:      variable.MakeSet[variable.Scoped](),
	}

	// Pass 1 + 2: MakeTaskScope and DefinitionVars are done together since
	// a name can only be added to Definitions once DefineName has
	// succeeded for it -- mirroring the original visitors.rs, which builds
	// the scope tree and the definition set in the same descent.
	if err := w.makeTaskScope(res, spec, nil); err != nil {
		return nil, err
	}

	// Pass 3: UpdateVars.
	if err := w.updateVars(res, spec, nil); err != nil {
		return nil, err
	}

	// Pass 4: InputVars.
	if err := w.inputVars(res, spec, nil); err != nil {
		return nil, err
	}

	return res, nil
}

func (w Walker) makeTaskScope(res *Result, spec *Spec, path []uint32) error {
	tree := res.Scope.GetChild(path)

	for _, sig := range spec.Signals {
		if err := tree.DefineName(variable.SignalNamespace, sig.Name); err != nil {
			return err
		}
		res.Definitions.Add(variable.NewScoped(variable.MustSignal(sig.Name), path))
	}
	for _, d := range spec.Data {
		if err := tree.DefineName(variable.DataNamespace, d.Name); err != nil {
			return err
		}
		res.Definitions.Add(variable.NewScoped(variable.MustData(d.Name), path))
		for _, raw := range d.Transform {
			if raw.Type != "extent" {
				continue
			}
			t, err := Translate(raw, w.ParseExpr)
			if err != nil {
				return err
			}
			extent, ok := t.(transforms.Extent)
			if !ok || extent.Signal == "" {
				continue
			}
			if err := tree.DefineOutputSignal(extent.Signal, d.Name); err != nil {
				return err
			}
			res.Definitions.Add(variable.NewScoped(variable.MustSignal(extent.Signal), path))
		}
	}
	for _, sc := range spec.Scales {
		if err := tree.DefineName(variable.ScaleNamespace, sc.Name); err != nil {
			return err
		}
		res.Definitions.Add(variable.NewScoped(variable.MustScale(sc.Name), path))
	}

	for i, m := range spec.Marks {
		if !m.IsGroup() {
			continue
		}
		childPath := append(append([]uint32(nil), path...), uint32(i))
		childSpec := &Spec{Signals: m.Signals, Data: m.Data, Scales: m.Scales, Marks: m.Marks}
		if err := w.makeTaskScope(res, childSpec, childPath); err != nil {
			return err
		}
	}
	return nil
}

func (w Walker) updateVars(res *Result, spec *Spec, path []uint32) error {
	tree := res.Scope.GetChild(path)
	isKnown := tree.IsKnownNameAt(path)

	for _, sig := range spec.Signals {
		if sig.Update != "" || len(sig.On) > 0 {
			res.Updated.Add(variable.NewScoped(variable.MustSignal(sig.Name), path))
		}
		for _, upd := range updateExprStrings(sig) {
			ast, err := w.parse(upd)
			if err != nil {
				return err
			}
			for _, v := range exprdeps.UpdateVars(ast, isKnown) {
				resolved, err := tree.ResolveScope(v, path)
				if err != nil {
					continue
				}
				res.Updated.Add(variable.NewScoped(resolved.Var, resolved.Scope))
			}
		}
	}

	for _, d := range spec.Data {
		if len(d.Transform) > 0 || d.Source != "" {
			res.Updated.Add(variable.NewScoped(variable.MustData(d.Name), path))
		}
		for _, raw := range d.Transform {
			tr, err := Translate(raw, w.ParseExpr)
			if err != nil {
				return err
			}
			for _, v := range tr.OutputVars() {
				res.Updated.Add(variable.NewScoped(v, path))
			}
		}
	}

	for i, m := range spec.Marks {
		if !m.IsGroup() {
			continue
		}
		childPath := append(append([]uint32(nil), path...), uint32(i))
		childSpec := &Spec{Signals: m.Signals, Data: m.Data, Scales: m.Scales, Marks: m.Marks}
		if err := w.updateVars(res, childSpec, childPath); err != nil {
			return err
		}
	}
	return nil
}

func (w Walker) inputVars(res *Result, spec *Spec, path []uint32) error {
	tree := res.Scope.GetChild(path)
	isKnown := tree.IsKnownNameAt(path)
	addInput := func(v variable.Variable) error {
		resolved, err := tree.ResolveScope(v, path)
		if err != nil {
			return err
		}
		res.Inputs.Add(variable.NewScoped(resolved.Var, resolved.Scope))
		return nil
	}

	for _, sig := range spec.Signals {
		for _, upd := range updateExprStrings(sig) {
			ast, err := w.parse(upd)
			if err != nil {
				return err
			}
			for _, iv := range exprdeps.InputVars(ast, isKnown) {
				if err := addInput(iv.Var); err != nil {
					return err
				}
			}
		}
	}

	for _, d := range spec.Data {
		if d.Source != "" {
			if err := addInput(variable.MustData(d.Source)); err != nil {
				return err
			}
		}
		for _, raw := range d.Transform {
			tr, err := Translate(raw, w.ParseExpr)
			if err != nil {
				return err
			}
			ctx := transforms.ResolveContext{IsKnownName: isKnown, ResolveDataset: tree.ResolveDatasetAt(path)}
			for _, iv := range tr.InputVars(ctx) {
				if err := addInput(iv.Var); err != nil {
					return err
				}
			}
		}
	}

	for _, sc := range spec.Scales {
		for _, name := range rawRefNames(sc.Domain) {
			if err := addInput(name.toVariable()); err != nil {
				return err
			}
		}
		for _, name := range rawRefNames(sc.Range) {
			if err := addInput(name.toVariable()); err != nil {
				return err
			}
		}
	}

	for i, m := range spec.Marks {
		if m.From != nil && m.From.Data != "" {
			if err := addInput(variable.MustData(m.From.Data)); err != nil {
				return err
			}
		}
		for _, channels := range m.Encode {
			for _, ch := range channels {
				if ch.Signal != "" {
					if err := addInput(variable.MustSignal(ch.Signal)); err != nil {
						return err
					}
				}
				if ch.Scale != "" {
					if err := addInput(variable.MustScale(ch.Scale)); err != nil {
						return err
					}
				}
			}
		}
		if m.IsGroup() {
			childPath := append(append([]uint32(nil), path...), uint32(i))
			childSpec := &Spec{Signals: m.Signals, Data: m.Data, Scales: m.Scales, Marks: m.Marks}
			if err := w.inputVars(res, childSpec, childPath); err != nil {
				return err
			}
		}
	}
	return nil
}

func (w Walker) parse(expr string) (exprast.Node, error) {
	if w.ParseExpr == nil {
		return nil, nil
	}
	node, err := w.ParseExpr(expr)
	if err != nil {
		return nil, vferrors.Wrap(vferrors.Parse, err).WithContext("parsing expression %q", expr)
	}
	return node, nil
}

func updateExprStrings(sig Signal) []string {
	var out []string
	if sig.Update != "" {
		out = append(out, sig.Update)
	}
	for _, on := range sig.On {
		if on.Update != "" {
			out = append(out, on.Update)
		}
	}
	return out
}

// ref is a generic {"signal": ...} / {"data": ..., "field": ...} reference
// object found in scale domain/range JSON.
type ref struct {
	ns   variable.Namespace
	name string
}

func (r ref) toVariable() variable.Variable {
	switch r.ns {
	case variable.DataNamespace:
		return variable.MustData(r.name)
	case variable.ScaleNamespace:
		return variable.MustScale(r.name)
	default:
		return variable.MustSignal(r.name)
	}
}

// rawRefNames scans a scale domain/range's raw JSON for {"signal": "..."}
// or {"data": "..."} references, including inside arrays (multi-domain
// scales). It does not attempt to interpret literal domain/range arrays.
func rawRefNames(raw json.RawMessage) []ref {
	if len(raw) == 0 {
		return nil
	}
	var obj struct {
		Signal string `json:"signal"`
		Data   string `json:"data"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		var out []ref
		if obj.Signal != "" {
			out = append(out, ref{ns: variable.SignalNamespace, name: obj.Signal})
		}
		if obj.Data != "" {
			out = append(out, ref{ns: variable.DataNamespace, name: obj.Data})
		}
		return out
	}
	var arr []json.RawMessage
	if err := json.Unmarshal(raw, &arr); err == nil {
		var out []ref
		for _, el := range arr {
			out = append(out, rawRefNames(el)...)
		}
		return out
	}
	return nil
}
