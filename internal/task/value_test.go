package task

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/zclconf/go-cty-debug/ctydebug"
	"github.com/zclconf/go-cty/cty"
)

// Composite cty.Value comparisons use ctydebug.CmpOptions the same way the
// teacher's own eval tests do (internal/lang/eval/config_plan_test.go):
// cty.Value carries unexported internals that reflect.DeepEqual and a bare
// cmp.Diff can't compare directly.
func TestScalarJSONRoundTripsCompositeValues(t *testing.T) {
	cases := []struct {
		name string
		in   cty.Value
	}{
		{"tuple", cty.TupleVal([]cty.Value{cty.NumberIntVal(1), cty.StringVal("a"), cty.True})},
		{"object", cty.ObjectVal(map[string]cty.Value{
			"x": cty.NumberIntVal(2),
			"y": cty.StringVal("b"),
		})},
		{"null", cty.NullVal(cty.DynamicPseudoType)},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			encoded, err := scalarToJSON(c.in)
			if err != nil {
				t.Fatalf("scalarToJSON: %v", err)
			}
			kind, payload, err := unwrapJSON(encoded)
			if err != nil {
				t.Fatalf("unwrapJSON: %v", err)
			}
			got, err := scalarFromJSON(kind, payload)
			if err != nil {
				t.Fatalf("scalarFromJSON: %v", err)
			}
			if diff := cmp.Diff(c.in, got, ctydebug.CmpOptions); diff != "" {
				t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
