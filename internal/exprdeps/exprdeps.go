// Package exprdeps implements expression dependency analysis (spec.md
// section 4.B, component B): extracting input/update variables and
// per-dataset column usage from an expression AST (internal/exprast).
package exprdeps

import (
	"github.com/vegafusion/vegafusion/internal/colusage"
	"github.com/vegafusion/vegafusion/internal/exprast"
	"github.com/vegafusion/vegafusion/internal/variable"
)

// InputVariable is an identifier referenced for reading by an expression,
// tagged with whether value changes to it should propagate downstream.
// Propagate is false for variables read only through a modify(...)-style
// call, matching spec.md section 4.B.
type InputVariable struct {
	Var       variable.Variable
	Propagate bool
}

// modifyingCalls names the built-in Vega expression functions that mutate
// a signal as a side effect rather than reading it, per spec.md section
// 4.B ("variable read via modify(...)-style calls").
var modifyingCalls = map[string]bool{
	"modify": true,
}

// InputVars walks ast and returns every variable it reads, resolved as
// plain identifiers (the caller is responsible for mapping identifier
// names to Variable namespaces once it knows which scope's signal/data
// names they refer to; this package only distinguishes *how* a name was
// referenced, not which namespace it belongs to).
//
// isKnownName lets the caller restrict extraction to identifiers that are
// actually in scope (a Vega expression may reference JS globals, built-in
// functions, or local parameters that are not spec-defined variables).
func InputVars(ast exprast.Node, isKnownName func(name string) (variable.Variable, bool)) []InputVariable {
	var out []InputVariable
	seen := map[string]bool{}

	var walkPropagating func(n exprast.Node, propagate bool)
	walkPropagating = func(n exprast.Node, propagate bool) {
		switch n := n.(type) {
		case nil:
			return
		case *exprast.Identifier:
			if v, ok := isKnownName(n.Name); ok {
				key := v.UniqueKey()
				if propagate {
					key += "#p"
				} else {
					key += "#m"
				}
				if !seen[key] {
					seen[key] = true
					out = append(out, InputVariable{Var: v, Propagate: propagate})
				}
			}
			return
		case *exprast.Call:
			if ident, ok := n.Callee.(*exprast.Identifier); ok && modifyingCalls[ident.Name] {
				// The first argument to modify(...) names the signal being
				// mutated; it's a dependency edge but must not propagate
				// value changes back downstream (spec.md section 4.B). The
				// name is usually written as a string literal, which is
				// resolved like an identifier of that name.
				for i, arg := range n.Args {
					if name, ok := literalString(arg); ok && i == 0 {
						walkPropagating(&exprast.Identifier{Name: name}, false)
						continue
					}
					walkPropagating(arg, i != 0)
				}
				return
			}
			for _, child := range exprast.Children(n) {
				walkPropagating(child, propagate)
			}
			return
		default:
			for _, child := range exprast.Children(n) {
				walkPropagating(child, propagate)
			}
		}
	}
	walkPropagating(ast, true)
	return out
}

// UpdateVars returns every variable mutated by a side-effecting call
// (modify(...)) within ast, per spec.md section 4.B.
func UpdateVars(ast exprast.Node, isKnownName func(name string) (variable.Variable, bool)) []variable.Variable {
	var out []variable.Variable
	seen := map[string]bool{}
	exprast.Walk(ast, func(n exprast.Node) {
		call, ok := n.(*exprast.Call)
		if !ok {
			return
		}
		ident, ok := call.Callee.(*exprast.Identifier)
		if !ok || !modifyingCalls[ident.Name] {
			return
		}
		if len(call.Args) == 0 {
			return
		}
		litName, ok := literalString(call.Args[0])
		if !ok {
			return
		}
		v, ok := isKnownName(litName)
		if !ok {
			return
		}
		if !seen[v.UniqueKey()] {
			seen[v.UniqueKey()] = true
			out = append(out, v)
		}
	})
	return out
}

func literalString(n exprast.Node) (string, bool) {
	lit, ok := n.(*exprast.Literal)
	if !ok {
		return "", false
	}
	s, ok := lit.Value.(string)
	return s, ok
}

// datasetAccessors names the built-in Vega expression functions whose
// first argument is a literal dataset name and which read the whole
// dataset (so no column-level usage can be inferred beyond "everything"),
// matching the conservative behavior the original implementation falls
// back to for dynamic accessors.
var datasetAccessors = map[string]bool{
	"data": true,
}

// DatumMemberUsage reports that a `datum.field`-style member access was
// found while walking an expression. Resolving which dataset "datum"
// refers to requires the evaluation context the expression is compiled
// in (a mark's backing data, a transform's input); that context is only
// known to the caller (component C), so ColumnUsage reports the bare
// field name and lets the caller attribute it to the right dataset.
type DatumMemberUsage struct {
	Field string
}

// ColumnUsage computes which columns of which datasets the expression
// touches, per spec.md section 4.B. resolveDataset maps a literal string
// argument of a data(...) accessor call to the scoped dataset variable it
// names; onDatumField is invoked once per `datum.field` access found so
// the caller can attribute it to whatever dataset is contextually bound to
// `datum`. When a dataset is accessed but the exact columns used cannot be
// determined statically (a bare `data('table')` with no further field
// access), that dataset's usage is colusage.Unknown().
func ColumnUsage(
	ast exprast.Node,
	resolveDataset func(literalName string) (variable.Scoped, bool),
	onDatumField func(field string),
) colusage.DatasetsUsage {
	out := colusage.EmptyDatasets()
	exprast.Walk(ast, func(n exprast.Node) {
		switch n := n.(type) {
		case *exprast.Call:
			ident, ok := n.Callee.(*exprast.Identifier)
			if !ok || !datasetAccessors[ident.Name] || len(n.Args) == 0 {
				return
			}
			litName, ok := literalString(n.Args[0])
			if !ok || resolveDataset == nil {
				return
			}
			dataset, ok := resolveDataset(litName)
			if !ok {
				return
			}
			// A bare data('table') call with no further field-selecting
			// member access reads every column: conservatively Unknown.
			out.Add(dataset, colusage.Unknown())
		case *exprast.Member:
			obj, ok := n.Object.(*exprast.Identifier)
			if !ok || obj.Name != "datum" || n.Computed {
				return
			}
			prop, ok := n.Property.(*exprast.Identifier)
			if !ok || onDatumField == nil {
				return
			}
			onDatumField(prop.Name)
		}
	})
	return out
}
