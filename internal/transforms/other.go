package transforms

import (
	"github.com/vegafusion/vegafusion/internal/colusage"
	"github.com/vegafusion/vegafusion/internal/exprast"
	"github.com/vegafusion/vegafusion/internal/exprdeps"
	"github.com/vegafusion/vegafusion/internal/variable"
)

// Bin models Vega's bin transform: it reads Field and produces two bin
// boundary fields (As[0], As[1]).
type Bin struct {
	Field string
	As    [2]string // defaults to "bin_<field>_start"/"_end" if empty
	Extent []float64 // optional fixed domain; nil means "compute from data"
}

func (b Bin) InputVars(ResolveContext) []InputVariable { return nil }
func (b Bin) OutputVars() []variable.Variable           { return nil }
func (b Bin) Supported() bool                           { return true }

func (b Bin) names() (start, end string) {
	start, end = b.As[0], b.As[1]
	if start == "" {
		start = "bin_" + b.Field + "_start"
	}
	if end == "" {
		end = "bin_" + b.Field + "_end"
	}
	return
}

func (b Bin) TransformColumns(ResolveContext) TransformColumns {
	start, end := b.names()
	return TransformColumns{
		Kind:     PassThrough,
		Used:     colusage.Known(b.Field),
		Produced: []string{start, end},
	}
}

// Extent models Vega's extent transform: it reads Field and, unlike most
// transforms, does not alter the dataset's columns at all -- it instead
// publishes an output Signal containing [min, max] (spec.md section 4.C
// "an extent transform publishes a signal").
type Extent struct {
	Field  string
	Signal string // output signal name, optional
}

func (e Extent) InputVars(ResolveContext) []InputVariable { return nil }

func (e Extent) OutputVars() []variable.Variable {
	if e.Signal == "" {
		return nil
	}
	return []variable.Variable{variable.MustSignal(e.Signal)}
}

func (e Extent) Supported() bool { return true }

func (e Extent) TransformColumns(ResolveContext) TransformColumns {
	return TransformColumns{Kind: PassThrough, Used: colusage.Known(e.Field)}
}

// Filter models Vega's filter transform: a boolean predicate expression
// evaluated per row. Column usage is whatever datum fields the predicate
// references.
type Filter struct {
	Expr exprast.Node
}

func (f Filter) InputVars(ctx ResolveContext) []InputVariable {
	if f.Expr == nil || ctx.IsKnownName == nil {
		return nil
	}
	return exprdeps.InputVars(f.Expr, ctx.IsKnownName)
}

func (f Filter) OutputVars() []variable.Variable { return nil }
func (f Filter) Supported() bool                 { return true }

func (f Filter) TransformColumns(ctx ResolveContext) TransformColumns {
	if f.Expr == nil {
		return TransformColumns{Kind: PassThrough, Used: colusage.Empty()}
	}
	used := colusage.Empty()
	// ctx.ResolveDataset is nil whenever this runs without a scope tree in
	// hand (e.g. task/encode.go's fingerprint fallback path);
	// resolveDatasetOrNoop keeps datum.field usage detection working in
	// that case while guarding against a nil function call, the same
	// defense-in-depth exprdeps.ColumnUsage itself applies.
	exprdeps.ColumnUsage(f.Expr, resolveDatasetOrNoop(ctx), func(field string) {
		used = used.WithColumn(field)
	})
	return TransformColumns{Kind: PassThrough, Used: used}
}

// Formula models Vega's formula transform: evaluates Expr per row and
// writes the result to field As, appended to the dataset.
type Formula struct {
	Expr exprast.Node
	As   string
}

func (f Formula) InputVars(ctx ResolveContext) []InputVariable {
	if f.Expr == nil || ctx.IsKnownName == nil {
		return nil
	}
	return exprdeps.InputVars(f.Expr, ctx.IsKnownName)
}

func (f Formula) OutputVars() []variable.Variable { return nil }
func (f Formula) Supported() bool                 { return true }

func (f Formula) TransformColumns(ctx ResolveContext) TransformColumns {
	used := colusage.Empty()
	if f.Expr != nil {
		exprdeps.ColumnUsage(f.Expr, resolveDatasetOrNoop(ctx), func(field string) {
			used = used.WithColumn(field)
		})
	}
	return TransformColumns{Kind: PassThrough, Used: used, Produced: []string{f.As}}
}

// resolveDatasetOrNoop returns ctx.ResolveDataset, or a function that
// always reports "not found" if ctx carries none, so a caller that builds
// a ResolveContext without a scope tree (no data(...) accessors to
// resolve) can't trigger a nil function call.
func resolveDatasetOrNoop(ctx ResolveContext) func(string) (variable.Scoped, bool) {
	if ctx.ResolveDataset != nil {
		return ctx.ResolveDataset
	}
	return func(string) (variable.Scoped, bool) { return variable.Scoped{}, false }
}

// Collect models Vega's collect transform: sorts rows by Fields, leaving
// the column set untouched.
type Collect struct {
	Fields []string
	Order  []string // "ascending"/"descending", parallel to Fields
}

func (c Collect) InputVars(ResolveContext) []InputVariable { return nil }
func (c Collect) OutputVars() []variable.Variable           { return nil }
func (c Collect) Supported() bool                            { return true }

func (c Collect) TransformColumns(ResolveContext) TransformColumns {
	used := colusage.Empty()
	for _, f := range c.Fields {
		used = used.WithColumn(f)
	}
	return TransformColumns{Kind: PassThrough, Used: used}
}

// TimeUnit models Vega's timeunit transform: buckets Field by Unit (e.g.
// "yearmonth") into output field As.
type TimeUnit struct {
	Field string
	Unit  string
	As    string
}

func (t TimeUnit) InputVars(ResolveContext) []InputVariable { return nil }
func (t TimeUnit) OutputVars() []variable.Variable           { return nil }
func (t TimeUnit) Supported() bool                            { return true }

func (t TimeUnit) TransformColumns(ResolveContext) TransformColumns {
	as := t.As
	if as == "" {
		as = t.Unit + "_" + t.Field
	}
	return TransformColumns{Kind: PassThrough, Used: colusage.Known(t.Field), Produced: []string{as}}
}

// JoinAggregate models Vega's joinaggregate transform: like aggregate, but
// the aggregated values are joined back onto every row of the original
// dataset instead of collapsing groups, so it's PassThrough rather than
// Overwrite.
type JoinAggregate struct {
	Groupby []string
	Fields  []string
	Ops     []AggregateOp
	As      []string
}

func (j JoinAggregate) InputVars(ResolveContext) []InputVariable { return nil }
func (j JoinAggregate) OutputVars() []variable.Variable           { return nil }

func (j JoinAggregate) Supported() bool {
	for _, op := range j.Ops {
		if !supportedAggregateOps[op] {
			return false
		}
	}
	return true
}

func (j JoinAggregate) TransformColumns(ResolveContext) TransformColumns {
	used := colusage.Empty()
	for _, g := range j.Groupby {
		used = used.WithColumn(g)
	}
	for i, f := range j.Fields {
		if f == "" || (i < len(j.Ops) && j.Ops[i] == OpCount) {
			continue
		}
		used = used.WithColumn(f)
	}
	produced := make([]string, 0, len(j.Ops))
	for i, op := range j.Ops {
		name := ""
		if i < len(j.As) {
			name = j.As[i]
		}
		if name == "" {
			name = string(op)
			if i < len(j.Fields) && j.Fields[i] != "" {
				name += "_" + j.Fields[i]
			}
		}
		produced = append(produced, name)
	}
	return TransformColumns{Kind: PassThrough, Used: used, Produced: produced}
}

// Window models Vega's window transform: computes a windowed aggregate
// over Fields (optionally partitioned by Groupby and ordered by Sort),
// appending one output column per op in Ops/As. Like joinaggregate, rows
// are preserved so it's PassThrough.
type Window struct {
	Groupby []string
	Sort    []string
	Fields  []string
	Ops     []string
	As      []string
}

func (w Window) InputVars(ResolveContext) []InputVariable { return nil }
func (w Window) OutputVars() []variable.Variable           { return nil }
func (w Window) Supported() bool                            { return true }

func (w Window) TransformColumns(ResolveContext) TransformColumns {
	used := colusage.Empty()
	for _, g := range w.Groupby {
		used = used.WithColumn(g)
	}
	for _, s := range w.Sort {
		used = used.WithColumn(s)
	}
	for _, f := range w.Fields {
		if f != "" {
			used = used.WithColumn(f)
		}
	}
	produced := append([]string(nil), w.As...)
	return TransformColumns{Kind: PassThrough, Used: used, Produced: produced}
}

// Project is not a Vega-authored transform: it is synthesized by the
// planner's projection-pushdown pass (spec.md section 4.G.3) and appended
// to the end of a server pipeline to select only the columns that
// downstream consumers actually use.
type Project struct {
	Fields []string
}

func (p Project) InputVars(ResolveContext) []InputVariable { return nil }
func (p Project) OutputVars() []variable.Variable           { return nil }
func (p Project) Supported() bool                            { return true }

func (p Project) TransformColumns(ResolveContext) TransformColumns {
	return TransformColumns{Kind: Overwrite, Used: colusage.Known(p.Fields...), Produced: p.Fields}
}
