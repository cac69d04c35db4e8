package transforms

import (
	"testing"

	"github.com/vegafusion/vegafusion/internal/colusage"
	"github.com/vegafusion/vegafusion/internal/variable"
)

func KnownUsage(cols ...string) colusage.Usage { return colusage.Known(cols...) }

func TestAggregateSupported(t *testing.T) {
	agg := Aggregate{Ops: []AggregateOp{OpMean, OpSum}, Drop: true}
	if !agg.Supported() {
		t.Fatal("expected supported aggregate")
	}
	agg.Cross = true
	if agg.Supported() {
		t.Fatal("expected cross=true to be unsupported")
	}
}

func TestAggregateUnsupportedDropFalse(t *testing.T) {
	agg := Aggregate{Ops: []AggregateOp{OpSum}, Drop: false}
	if agg.Supported() {
		t.Fatal("expected drop=false to be unsupported")
	}
}

// TestS1AggregateOverPenguins mirrors spec.md scenario S1.
func TestS1AggregateOverPenguins(t *testing.T) {
	agg := Aggregate{
		Groupby: []string{"Species"},
		Fields:  []string{"Beak Depth (mm)"},
		Ops:     []AggregateOp{OpMean},
		Drop:    true,
	}
	cols := agg.TransformColumns(ResolveContext{})
	if cols.Kind != Overwrite {
		t.Fatalf("expected Overwrite, got %v", cols.Kind)
	}
	want := map[string]bool{"Species": true, "mean_Beak Depth (mm)": true}
	if len(cols.Produced) != 2 {
		t.Fatalf("expected 2 produced columns, got %v", cols.Produced)
	}
	for _, c := range cols.Produced {
		if !want[c] {
			t.Fatalf("unexpected produced column %q", c)
		}
	}
}

func TestPassThroughPipelineProjectionPushdown(t *testing.T) {
	// Mirrors scenario S6: projection pushdown through a bin over
	// Horsepower whose consumer reads the bin bounds and Miles_per_Gallon.
	pipeline := Pipeline{Transforms: []Transform{
		Bin{Field: "Horsepower", As: [2]string{"bin_start", "bin_end"}},
	}}
	usage := pipeline.DownstreamColumnUsage(ResolveContext{}, KnownUsage("bin_start", "bin_end", "Miles_per_Gallon"))
	if usage.IsUnknown() {
		t.Fatal("expected known usage")
	}
	cols := usage.Columns()
	want := map[string]bool{"Horsepower": true, "bin_start": true, "bin_end": true, "Miles_per_Gallon": true}
	for _, c := range cols {
		if !want[c] {
			t.Fatalf("unexpected column in pushed-down usage: %q", c)
		}
	}
}

func TestUnknownTransformDisablesPushdown(t *testing.T) {
	pipeline := Pipeline{Transforms: []Transform{unknownTransform{}}}
	usage := pipeline.DownstreamColumnUsage(ResolveContext{}, KnownUsage("a"))
	if !usage.IsUnknown() {
		t.Fatal("expected Unknown transform to disable pushdown")
	}
}

type unknownTransform struct{}

func (unknownTransform) InputVars(ResolveContext) []InputVariable { return nil }
func (unknownTransform) OutputVars() []variable.Variable          { return nil }
func (unknownTransform) Supported() bool                          { return false }
func (unknownTransform) TransformColumns(ResolveContext) TransformColumns {
	return TransformColumns{Kind: ColumnsUnknown}
}
