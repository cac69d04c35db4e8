package transforms

import (
	"fmt"

	"github.com/vegafusion/vegafusion/internal/exprast"
)

// EncodeTransform implementations give internal/task's deterministic task
// hashing (component E) a precise, field-level fingerprint of each
// transform's configuration, beyond what's observable purely through the
// Transform interface (TransformColumns/OutputVars/Supported). All of
// these are plain fmt.Sprintf over value types (strings, slices of
// strings/enums), which formats deterministically; none range over maps.

func (a Aggregate) EncodeTransform() string {
	return fmt.Sprintf("aggregate{groupby:%v fields:%v ops:%v as:%v cross:%v drop:%v}",
		a.Groupby, a.Fields, a.Ops, a.As, a.Cross, a.Drop)
}

func (b Bin) EncodeTransform() string {
	return fmt.Sprintf("bin{field:%s as:%v extent:%v}", b.Field, b.As, b.Extent)
}

func (e Extent) EncodeTransform() string {
	return fmt.Sprintf("extent{field:%s signal:%s}", e.Field, e.Signal)
}

func (f Filter) EncodeTransform() string {
	return fmt.Sprintf("filter{expr:%s}", exprSignature(f.Expr))
}

func (f Formula) EncodeTransform() string {
	return fmt.Sprintf("formula{expr:%s as:%s}", exprSignature(f.Expr), f.As)
}

func (c Collect) EncodeTransform() string {
	return fmt.Sprintf("collect{fields:%v order:%v}", c.Fields, c.Order)
}

func (t TimeUnit) EncodeTransform() string {
	return fmt.Sprintf("timeunit{field:%s unit:%s as:%s}", t.Field, t.Unit, t.As)
}

func (j JoinAggregate) EncodeTransform() string {
	return fmt.Sprintf("joinaggregate{groupby:%v fields:%v ops:%v as:%v}", j.Groupby, j.Fields, j.Ops, j.As)
}

func (w Window) EncodeTransform() string {
	return fmt.Sprintf("window{groupby:%v sort:%v fields:%v ops:%v as:%v}", w.Groupby, w.Sort, w.Fields, w.Ops, w.As)
}

func (p Project) EncodeTransform() string {
	return fmt.Sprintf("project{fields:%v}", p.Fields)
}

// exprSignature renders a deterministic structural signature of an
// expression AST, used only for hashing (not for display or
// re-parsing).
func exprSignature(n exprast.Node) string {
	switch n := n.(type) {
	case nil:
		return "nil"
	case *exprast.Identifier:
		return "id:" + n.Name
	case *exprast.Literal:
		return fmt.Sprintf("lit:%v", n.Value)
	case *exprast.Member:
		return fmt.Sprintf("member(%s.%s computed=%v)", exprSignature(n.Object), exprSignature(n.Property), n.Computed)
	case *exprast.Call:
		args := make([]string, len(n.Args))
		for i, a := range n.Args {
			args[i] = exprSignature(a)
		}
		return fmt.Sprintf("call(%s, %v)", exprSignature(n.Callee), args)
	case *exprast.Conditional:
		return fmt.Sprintf("cond(%s ? %s : %s)", exprSignature(n.Test), exprSignature(n.Consequent), exprSignature(n.Alternate))
	case *exprast.Binary:
		return fmt.Sprintf("bin(%s %s %s)", exprSignature(n.Left), n.Operator, exprSignature(n.Right))
	case *exprast.Unary:
		return fmt.Sprintf("un(%s%s)", n.Operator, exprSignature(n.Argument))
	case *exprast.Array:
		elems := make([]string, len(n.Elements))
		for i, el := range n.Elements {
			elems[i] = exprSignature(el)
		}
		return fmt.Sprintf("array%v", elems)
	case *exprast.Object:
		parts := make([]string, len(n.Keys))
		for i, k := range n.Keys {
			parts[i] = k + ":" + exprSignature(n.Values[i])
		}
		return fmt.Sprintf("object{%v}", parts)
	default:
		return "unknown"
	}
}
