package transforms

import (
	"github.com/vegafusion/vegafusion/internal/colusage"
	"github.com/vegafusion/vegafusion/internal/variable"
)

// AggregateOp is one of the aggregation operations the server engine
// recognizes, per spec.md section 4.C.
type AggregateOp string

const (
	OpCount     AggregateOp = "count"
	OpValid     AggregateOp = "valid"
	OpMissing   AggregateOp = "missing"
	OpDistinct  AggregateOp = "distinct"
	OpSum       AggregateOp = "sum"
	OpMean      AggregateOp = "mean"
	OpAverage   AggregateOp = "average"
	OpMin       AggregateOp = "min"
	OpMax       AggregateOp = "max"
	OpVariance  AggregateOp = "variance"
	OpVariancep AggregateOp = "variancep"
	OpStdev     AggregateOp = "stdev"
	OpStdevp    AggregateOp = "stdevp"
)

var supportedAggregateOps = map[AggregateOp]bool{
	OpCount: true, OpValid: true, OpMissing: true, OpDistinct: true,
	OpSum: true, OpMean: true, OpAverage: true, OpMin: true, OpMax: true,
	OpVariance: true, OpVariancep: true, OpStdev: true, OpStdevp: true,
}

// Aggregate models Vega's aggregate transform. Grounded on
// vegafusion-core/src/spec/transform/aggregate.rs.
type Aggregate struct {
	Groupby []string
	Fields  []string // parallel to Ops; "" (no field) is valid for count
	Ops     []AggregateOp
	As      []string // output field name per (field, op); "" means default name

	// Cross requests the cartesian product of groupby field values
	// (cross=true in the Vega spec); the server engine does not support
	// this (spec.md section 4.C).
	Cross bool
	// Drop controls whether empty groups are omitted; drop=false is not
	// supported by the server engine (spec.md section 4.C).
	Drop bool
}

func (a Aggregate) InputVars(ResolveContext) []InputVariable { return nil }
func (a Aggregate) OutputVars() []variable.Variable           { return nil }

func (a Aggregate) Supported() bool {
	if a.Cross || !a.Drop {
		return false
	}
	for _, op := range a.Ops {
		if !supportedAggregateOps[op] {
			return false
		}
	}
	return true
}

// TransformColumns: aggregate produces exactly groupby ++ derived output
// fields, and reads exactly groupby ++ the fields referenced by each op
// (count needs none). This is always Overwrite: downstream never sees any
// column of the input dataset that isn't named in groupby or as.
func (a Aggregate) TransformColumns(ResolveContext) TransformColumns {
	used := colusage.Empty()
	for _, g := range a.Groupby {
		used = used.WithColumn(g)
	}
	for i, f := range a.Fields {
		if f == "" {
			continue
		}
		if i < len(a.Ops) && a.Ops[i] == OpCount {
			continue
		}
		used = used.WithColumn(f)
	}

	produced := append([]string(nil), a.Groupby...)
	for i := range a.Ops {
		produced = append(produced, a.outputName(i))
	}

	return TransformColumns{Kind: Overwrite, Used: used, Produced: produced}
}

func (a Aggregate) outputName(i int) string {
	if i < len(a.As) && a.As[i] != "" {
		return a.As[i]
	}
	op := a.Ops[i]
	field := ""
	if i < len(a.Fields) {
		field = a.Fields[i]
	}
	if field == "" {
		return string(op)
	}
	return string(op) + "_" + field
}
