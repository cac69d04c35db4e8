package chartspec

import (
	"encoding/json"

	"github.com/vegafusion/vegafusion/internal/exprast"
	"github.com/vegafusion/vegafusion/internal/transforms"
	"github.com/vegafusion/vegafusion/internal/variable"
	"github.com/vegafusion/vegafusion/internal/vferrors"
)

// ExprParser is the external expression-parser collaborator (spec.md
// section 1 "the Vega expression parser"): this package never parses
// expression strings itself, it only hands raw strings found in
// filter/formula transform params to whatever parser the caller wires in.
type ExprParser func(expr string) (exprast.Node, error)

// Translate converts one raw spec Transform into the internal
// transforms.Transform it describes, using parseExpr for any transform
// kind that embeds an expression string (filter, formula). Unrecognized
// transform types yield an unsupportedTransform, which reports
// Supported()==false so the planner correctly forces it (and its
// dependents) to the client rather than erroring out the whole spec.
func Translate(t Transform, parseExpr ExprParser) (transforms.Transform, error) {
	switch t.Type {
	case "aggregate":
		var p struct {
			Groupby []string               `json:"groupby"`
			Fields  []string               `json:"fields"`
			Ops     []transforms.AggregateOp `json:"ops"`
			As      []string               `json:"as"`
			Cross   bool                   `json:"cross"`
			Drop    *bool                  `json:"drop"`
		}
		if err := json.Unmarshal(t.Params, &p); err != nil {
			return nil, vferrors.Wrap(vferrors.Parse, err)
		}
		drop := true
		if p.Drop != nil {
			drop = *p.Drop
		}
		return transforms.Aggregate{Groupby: p.Groupby, Fields: p.Fields, Ops: p.Ops, As: p.As, Cross: p.Cross, Drop: drop}, nil

	case "bin":
		var p struct {
			Field  string    `json:"field"`
			As     [2]string `json:"as"`
			Extent []float64 `json:"extent"`
		}
		if err := json.Unmarshal(t.Params, &p); err != nil {
			return nil, vferrors.Wrap(vferrors.Parse, err)
		}
		return transforms.Bin{Field: p.Field, As: p.As, Extent: p.Extent}, nil

	case "extent":
		var p struct {
			Field  string `json:"field"`
			Signal string `json:"signal"`
		}
		if err := json.Unmarshal(t.Params, &p); err != nil {
			return nil, vferrors.Wrap(vferrors.Parse, err)
		}
		return transforms.Extent{Field: p.Field, Signal: p.Signal}, nil

	case "filter":
		var p struct {
			Expr string `json:"expr"`
		}
		if err := json.Unmarshal(t.Params, &p); err != nil {
			return nil, vferrors.Wrap(vferrors.Parse, err)
		}
		expr, err := parseExprOrNil(p.Expr, parseExpr)
		if err != nil {
			return nil, err
		}
		return transforms.Filter{Expr: expr}, nil

	case "formula":
		var p struct {
			Expr string `json:"expr"`
			As   string `json:"as"`
		}
		if err := json.Unmarshal(t.Params, &p); err != nil {
			return nil, vferrors.Wrap(vferrors.Parse, err)
		}
		expr, err := parseExprOrNil(p.Expr, parseExpr)
		if err != nil {
			return nil, err
		}
		return transforms.Formula{Expr: expr, As: p.As}, nil

	case "collect":
		var p struct {
			Sort struct {
				Field json.RawMessage `json:"field"`
				Order json.RawMessage `json:"order"`
			} `json:"sort"`
		}
		if err := json.Unmarshal(t.Params, &p); err != nil {
			return nil, vferrors.Wrap(vferrors.Parse, err)
		}
		fields, _ := decodeStringOrArray(p.Sort.Field)
		orders, _ := decodeStringOrArray(p.Sort.Order)
		return transforms.Collect{Fields: fields, Order: orders}, nil

	case "timeunit":
		var p struct {
			Field string `json:"field"`
			Units string `json:"units"`
			As    string `json:"as"`
		}
		if err := json.Unmarshal(t.Params, &p); err != nil {
			return nil, vferrors.Wrap(vferrors.Parse, err)
		}
		return transforms.TimeUnit{Field: p.Field, Unit: p.Units, As: p.As}, nil

	case "joinaggregate":
		var p struct {
			Groupby []string               `json:"groupby"`
			Fields  []string               `json:"fields"`
			Ops     []transforms.AggregateOp `json:"ops"`
			As      []string               `json:"as"`
		}
		if err := json.Unmarshal(t.Params, &p); err != nil {
			return nil, vferrors.Wrap(vferrors.Parse, err)
		}
		return transforms.JoinAggregate{Groupby: p.Groupby, Fields: p.Fields, Ops: p.Ops, As: p.As}, nil

	case "window":
		var p struct {
			Groupby []string `json:"groupby"`
			Sort    struct {
				Field json.RawMessage `json:"field"`
			} `json:"sort"`
			Fields []string `json:"field"`
			Ops    []string `json:"ops"`
			As     []string `json:"as"`
		}
		if err := json.Unmarshal(t.Params, &p); err != nil {
			return nil, vferrors.Wrap(vferrors.Parse, err)
		}
		sortFields, _ := decodeStringOrArray(p.Sort.Field)
		return transforms.Window{Groupby: p.Groupby, Sort: sortFields, Fields: p.Fields, Ops: p.Ops, As: p.As}, nil

	default:
		return unsupportedTransform{kind: t.Type}, nil
	}
}

func parseExprOrNil(expr string, parseExpr ExprParser) (exprast.Node, error) {
	if expr == "" || parseExpr == nil {
		return nil, nil
	}
	node, err := parseExpr(expr)
	if err != nil {
		return nil, vferrors.Wrap(vferrors.Parse, err).WithContext("parsing expression %q", expr)
	}
	return node, nil
}

func decodeStringOrArray(raw json.RawMessage) ([]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var one string
	if err := json.Unmarshal(raw, &one); err == nil {
		return []string{one}, nil
	}
	var many []string
	if err := json.Unmarshal(raw, &many); err != nil {
		return nil, vferrors.Wrap(vferrors.Parse, err)
	}
	return many, nil
}

// unsupportedTransform models a transform type this module doesn't
// recognize. It reports ColumnsUnknown/Supported()==false so it and
// everything downstream of it is forced to the client rather than
// silently mis-planned.
type unsupportedTransform struct{ kind string }

func (unsupportedTransform) InputVars(transforms.ResolveContext) []transforms.InputVariable {
	return nil
}
func (unsupportedTransform) OutputVars() []variable.Variable { return nil }
func (unsupportedTransform) Supported() bool                       { return false }
func (unsupportedTransform) TransformColumns(transforms.ResolveContext) transforms.TransformColumns {
	return transforms.TransformColumns{Kind: transforms.ColumnsUnknown}
}
