// Package transforms implements the per-transform contracts (spec.md
// section 4.C, component C): each Vega transform kind declares its input
// and output variables, its column-usage behavior for projection
// pushdown, and whether the server-side engine supports it.
//
// Each transform kind is a Go struct implementing the Transform interface
// rather than a node in a class hierarchy (spec.md section 9 "avoid deep
// inheritance"), matching the teacher's own closed-set-of-struct-variants
// dispatch for execution-graph operations (execgraph/operation.go).
package transforms

import (
	"github.com/vegafusion/vegafusion/internal/colusage"
	"github.com/vegafusion/vegafusion/internal/exprast"
	"github.com/vegafusion/vegafusion/internal/exprdeps"
	"github.com/vegafusion/vegafusion/internal/variable"
)

// InputVariable re-exports exprdeps.InputVariable so callers of this
// package never need to import exprdeps directly.
type InputVariable = exprdeps.InputVariable

// ColumnsKind is the kind of a Transform.TransformColumns result: one of
// PassThrough, Overwrite, or Unknown, per spec.md section 4.C.
type ColumnsKind int

const (
	PassThrough ColumnsKind = iota
	Overwrite
	ColumnsUnknown
)

type TransformColumns struct {
	Kind     ColumnsKind
	Used     colusage.Usage // columns read from the upstream dataset
	Produced []string        // columns appended (PassThrough) or the complete output (Overwrite)
}

// ResolveContext bundles what a transform needs to resolve its own
// expressions' variables and dataset references while computing input
// vars or column usage; it is built by the caller that knows the current
// scope and task scope tree (the planner and taskgraph.Build).
type ResolveContext struct {
	// IsKnownName reports whether name is a defined variable in the
	// current scope and, if so, returns it.
	IsKnownName func(name string) (variable.Variable, bool)
	// ResolveDataset maps a literal dataset name referenced via data(...)
	// to its scoped variable.
	ResolveDataset func(literalName string) (variable.Scoped, bool)
	// DatumDataset is the scoped dataset that `datum` refers to in this
	// transform's expressions, if any.
	DatumDataset variable.Scoped
}

// Transform is implemented by every transform kind.
type Transform interface {
	// InputVars returns the variables this transform's expressions read,
	// resolved against ctx.
	InputVars(ctx ResolveContext) []InputVariable
	// OutputVars returns the signals this transform publishes (e.g.
	// extent's [min, max] signal). Most transforms publish none.
	OutputVars() []variable.Variable
	// TransformColumns reports how this transform affects the column set
	// of the dataset flowing through it.
	TransformColumns(ctx ResolveContext) TransformColumns
	// Supported reports whether the server engine can evaluate this
	// transform. false forces it, and everything depending on it, onto
	// the client (spec.md section 4.C).
	Supported() bool
}

// Pipeline is an ordered sequence of transforms applied to one dataset.
type Pipeline struct {
	Transforms []Transform
}

// InputVars is the union (in order, de-duplicated) of every transform's
// input vars.
func (p Pipeline) InputVars(ctx ResolveContext) []InputVariable {
	var out []InputVariable
	seen := map[string]bool{}
	for _, t := range p.Transforms {
		for _, v := range t.InputVars(ctx) {
			key := v.Var.UniqueKey()
			if !seen[key] {
				seen[key] = true
				out = append(out, v)
			}
		}
	}
	return out
}

// OutputVars is the union of every transform's output vars.
func (p Pipeline) OutputVars() []variable.Variable {
	var out []variable.Variable
	for _, t := range p.Transforms {
		out = append(out, t.OutputVars()...)
	}
	return out
}

// Supported reports whether every transform in the pipeline is supported.
func (p Pipeline) Supported() bool {
	for _, t := range p.Transforms {
		if !t.Supported() {
			return false
		}
	}
	return true
}

// DownstreamColumnUsage composes TransformColumns across the whole
// pipeline, back to front, to compute what a consumer of the pipeline's
// final output actually needs from the dataset flowing into the first
// transform. consumerUsage is the usage the pipeline's *output* must
// satisfy (e.g. the union of every downstream consumer's usage).
func (p Pipeline) DownstreamColumnUsage(ctx ResolveContext, consumerUsage colusage.Usage) colusage.Usage {
	usage := consumerUsage
	for i := len(p.Transforms) - 1; i >= 0; i-- {
		cols := p.Transforms[i].TransformColumns(ctx)
		switch cols.Kind {
		case ColumnsUnknown:
			return colusage.Unknown()
		case Overwrite:
			// Downstream only sees Produced, so whatever usage was
			// requested of the output is irrelevant to what this
			// transform itself needs from its input: it needs exactly
			// cols.Used.
			usage = cols.Used
		case PassThrough:
			// Columns usage requested from produced/passthrough columns
			// translates to needing cols.Used from the input, regardless
			// of which specific produced columns downstream wanted,
			// since PassThrough transforms don't rename upstream columns.
			// The produced columns themselves are computed here, so they
			// drop out of the demand on the input.
			if !usage.IsUnknown() && len(cols.Produced) > 0 {
				produced := map[string]bool{}
				for _, c := range cols.Produced {
					produced[c] = true
				}
				var kept []string
				for _, c := range usage.Columns() {
					if !produced[c] {
						kept = append(kept, c)
					}
				}
				usage = colusage.Known(kept...)
			}
			usage = usage.Union(cols.Used)
		}
	}
	return usage
}

// identifierArg returns the string value of n when n is a string
// exprast.Literal, and false for any other node.
func identifierArg(n exprast.Node) (string, bool) {
	lit, ok := n.(*exprast.Literal)
	if !ok {
		return "", false
	}
	s, ok := lit.Value.(string)
	return s, ok
}
