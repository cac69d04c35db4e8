package chartspec

import (
	"encoding/json"
	"testing"

	"github.com/vegafusion/vegafusion/internal/exprast"
	"github.com/vegafusion/vegafusion/internal/variable"
)

// stubParseExpr treats every expression as a single identifier reference,
// enough to exercise the dependency passes without a real parser
// collaborator.
func stubParseExpr(expr string) (exprast.Node, error) {
	return &exprast.Identifier{Name: expr}, nil
}

func TestWalkPenguinsAggregate(t *testing.T) {
	raw := []byte(`{
		"signals": [{"name": "width", "value": 500}],
		"data": [
			{"name": "source", "url": "penguins.csv"},
			{"name": "grouped", "source": "source", "transform": [
				{"type": "aggregate", "groupby": ["Species"], "fields": ["Beak Depth (mm)"], "ops": ["mean"], "drop": true}
			]}
		],
		"marks": [{"type": "symbol", "from": {"data": "grouped"}}]
	}`)
	var spec Spec
	if err := json.Unmarshal(raw, &spec); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	w := Walker{ParseExpr: stubParseExpr}
	result, err := w.Walk(&spec)
	if err != nil {
		t.Fatalf("walk: %v", err)
	}

	if result.Definitions.Len() != 3 {
		t.Fatalf("expected 3 definitions (width, source, grouped), got %d", result.Definitions.Len())
	}
	if !result.Updated.Has(variable.NewScoped(variable.MustData("grouped"), nil)) {
		t.Fatal("expected grouped dataset to be in Updated (has a transform)")
	}
	if !result.Inputs.Has(variable.NewScoped(variable.MustData("source"), nil)) {
		t.Fatal("expected grouped's source dataset to be a recorded input")
	}
}

func TestSpecExtraFieldsRoundTrip(t *testing.T) {
	raw := []byte(`{"signals": [], "$schema": "https://vega.github.io/schema/vega/v5.json", "width": 400}`)
	var spec Spec
	if err := json.Unmarshal(raw, &spec); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	out, err := json.Marshal(spec)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var roundTripped map[string]json.RawMessage
	if err := json.Unmarshal(out, &roundTripped); err != nil {
		t.Fatalf("unmarshal round-tripped: %v", err)
	}
	if _, ok := roundTripped["$schema"]; !ok {
		t.Fatal("expected $schema to survive the round trip")
	}
	if _, ok := roundTripped["width"]; !ok {
		t.Fatal("expected width to survive the round trip")
	}
}
