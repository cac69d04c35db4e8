package exprdeps

import (
	"testing"

	"github.com/vegafusion/vegafusion/internal/exprast"
	"github.com/vegafusion/vegafusion/internal/variable"
)

func knownSignal(names ...string) func(string) (variable.Variable, bool) {
	set := map[string]bool{}
	for _, n := range names {
		set[n] = true
	}
	return func(name string) (variable.Variable, bool) {
		if set[name] {
			return variable.MustSignal(name), true
		}
		return variable.Variable{}, false
	}
}

// width + height
func binaryExpr() exprast.Node {
	return &exprast.Binary{
		Operator: "+",
		Left:     &exprast.Identifier{Name: "width"},
		Right:    &exprast.Identifier{Name: "height"},
	}
}

func TestInputVarsPlainRead(t *testing.T) {
	vars := InputVars(binaryExpr(), knownSignal("width", "height"))
	if len(vars) != 2 {
		t.Fatalf("expected 2 input vars, got %d", len(vars))
	}
	for _, v := range vars {
		if !v.Propagate {
			t.Fatalf("expected plain reads to propagate: %v", v)
		}
	}
}

// modify('brush', x)
func modifyCall() exprast.Node {
	return &exprast.Call{
		Callee: &exprast.Identifier{Name: "modify"},
		Args: []exprast.Node{
			&exprast.Literal{Value: "brush"},
			&exprast.Identifier{Name: "x"},
		},
	}
}

func TestInputVarsModifyDoesNotPropagateTarget(t *testing.T) {
	vars := InputVars(modifyCall(), knownSignal("brush", "x"))
	var sawBrush, sawX bool
	for _, v := range vars {
		if v.Var.Name == "brush" {
			sawBrush = true
			if v.Propagate {
				t.Fatal("expected modify target to not propagate")
			}
		}
		if v.Var.Name == "x" {
			sawX = true
			if !v.Propagate {
				t.Fatal("expected modify value argument to propagate")
			}
		}
	}
	if !sawBrush || !sawX {
		t.Fatalf("expected both brush and x in input vars: %v", vars)
	}
}

func TestUpdateVarsFindsModifyTarget(t *testing.T) {
	vars := UpdateVars(modifyCall(), knownSignal("brush", "x"))
	if len(vars) != 1 || vars[0].Name != "brush" {
		t.Fatalf("expected [brush], got %v", vars)
	}
}

func TestColumnUsageDatumField(t *testing.T) {
	// datum.a + datum.b
	ast := &exprast.Binary{
		Operator: "+",
		Left: &exprast.Member{
			Object:   &exprast.Identifier{Name: "datum"},
			Property: &exprast.Identifier{Name: "a"},
		},
		Right: &exprast.Member{
			Object:   &exprast.Identifier{Name: "datum"},
			Property: &exprast.Identifier{Name: "b"},
		},
	}
	var fields []string
	ColumnUsage(ast, func(string) (variable.Scoped, bool) { return variable.Scoped{}, false }, func(f string) {
		fields = append(fields, f)
	})
	if len(fields) != 2 {
		t.Fatalf("expected 2 datum field accesses, got %v", fields)
	}
}

func TestColumnUsageBareDataCallIsUnknown(t *testing.T) {
	// length(data('table'))
	ast := &exprast.Call{
		Callee: &exprast.Identifier{Name: "length"},
		Args: []exprast.Node{
			&exprast.Call{
				Callee: &exprast.Identifier{Name: "data"},
				Args:   []exprast.Node{&exprast.Literal{Value: "table"}},
			},
		},
	}
	tableVar := variable.NewScoped(variable.MustData("table"), nil)
	usage := ColumnUsage(ast, func(name string) (variable.Scoped, bool) {
		if name == "table" {
			return tableVar, true
		}
		return variable.Scoped{}, false
	}, nil)
	if !usage.Get(tableVar).IsUnknown() {
		t.Fatal("expected bare data('table') access to be Unknown")
	}
}
