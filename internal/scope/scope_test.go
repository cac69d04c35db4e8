package scope

import (
	"testing"

	"github.com/vegafusion/vegafusion/internal/variable"
)

// TestResolutionLocality mirrors spec.md section 8 property 1 and scenario
// S3: signal x defined at root and inside a group, data x defined at root.
func TestResolutionLocality(t *testing.T) {
	root := NewTree()
	if err := root.DefineName(variable.SignalNamespace, "x"); err != nil {
		t.Fatal(err)
	}
	if err := root.DefineName(variable.DataNamespace, "x"); err != nil {
		t.Fatal(err)
	}
	child := root.GetChild([]uint32{0})
	if err := child.DefineName(variable.SignalNamespace, "x"); err != nil {
		t.Fatal(err)
	}

	// Resolving "signal x" from the group returns the inner signal (scope [0]).
	resolved, err := root.ResolveScope(variable.MustSignal("x"), []uint32{0})
	if err != nil {
		t.Fatal(err)
	}
	if len(resolved.Scope) != 1 || resolved.Scope[0] != 0 {
		t.Fatalf("expected inner scope [0], got %v", resolved.Scope)
	}

	// Resolving "signal x" from root returns the root signal.
	resolved, err = root.ResolveScope(variable.MustSignal("x"), nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(resolved.Scope) != 0 {
		t.Fatalf("expected root scope, got %v", resolved.Scope)
	}

	// Resolving "data x" resolves to root data from both scopes.
	for _, usage := range [][]uint32{nil, {0}} {
		resolved, err = root.ResolveScope(variable.MustData("x"), usage)
		if err != nil {
			t.Fatal(err)
		}
		if len(resolved.Scope) != 0 {
			t.Fatalf("expected root scope for data x from %v, got %v", usage, resolved.Scope)
		}
	}
}

func TestResolveScopeFailsWhenUndefined(t *testing.T) {
	root := NewTree()
	if _, err := root.ResolveScope(variable.MustSignal("missing"), nil); err == nil {
		t.Fatal("expected error resolving undefined signal")
	}
}

func TestNameCollisionInSameScope(t *testing.T) {
	root := NewTree()
	if err := root.DefineName(variable.SignalNamespace, "x"); err != nil {
		t.Fatal(err)
	}
	if err := root.DefineName(variable.SignalNamespace, "x"); err == nil {
		t.Fatal("expected collision error")
	}
}

func TestOutputSignalResolution(t *testing.T) {
	root := NewTree()
	if err := root.DefineName(variable.DataNamespace, "extent_data"); err != nil {
		t.Fatal(err)
	}
	if err := root.DefineOutputSignal("extent_signal", "extent_data"); err != nil {
		t.Fatal(err)
	}
	resolved, err := root.ResolveScope(variable.MustSignal("extent_signal"), nil)
	if err != nil {
		t.Fatal(err)
	}
	if resolved.Var.Namespace != variable.DataNamespace || resolved.Var.Name != "extent_data" {
		t.Fatalf("expected underlying data variable, got %v", resolved.Var)
	}
	if resolved.OutputVar == nil || resolved.OutputVar.Name != "extent_signal" {
		t.Fatalf("expected OutputVar to name the original signal, got %v", resolved.OutputVar)
	}
}

func TestGetChildMutOutOfRange(t *testing.T) {
	root := NewTree()
	if _, err := root.GetChildMut([]uint32{5}); err == nil {
		t.Fatal("expected out-of-range error")
	}
}
