package variable

import "testing"

func TestNewRejectsColon(t *testing.T) {
	if _, err := Signal("bad:name"); err == nil {
		t.Fatal("expected error for colon in name")
	}
}

func TestOrderingByNamespaceThenName(t *testing.T) {
	a := MustData("b")
	b := MustSignal("a")
	// Signal < Data in namespace ordering (SignalNamespace=0 < DataNamespace=1),
	// so the signal variable sorts first; namespace is compared before name.
	if !b.Less(a) {
		t.Fatalf("expected signal.a < data.b, got reverse")
	}
}

func TestSetUnion(t *testing.T) {
	s1 := MakeSet(MustSignal("x"), MustSignal("y"))
	s2 := MakeSet(MustSignal("y"), MustSignal("z"))
	u := s1.Union(s2)
	if u.Len() != 3 {
		t.Fatalf("expected 3 elements, got %d", u.Len())
	}
}

func TestScopedLessOrdersByScopeThenLength(t *testing.T) {
	a := NewScoped(MustSignal("x"), []uint32{0})
	b := NewScoped(MustSignal("x"), []uint32{0, 1})
	if !a.Less(b) {
		t.Fatal("expected shorter scope to sort first when sharing a prefix")
	}
}
