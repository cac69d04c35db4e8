package colusage

import "testing"

func sameColumns(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestWithColumn(t *testing.T) {
	left := Known("one", "two")
	result := left.WithColumn("three").WithColumn("four")
	expected := Known("one", "two", "three", "four")
	if !sameColumns(result.Columns(), expected.Columns()) {
		t.Fatalf("got %v want %v", result.Columns(), expected.Columns())
	}
}

func TestUnionKnownKnown(t *testing.T) {
	left := Known("one", "two")
	right := Known("two", "three", "four")
	union := left.Union(right)
	expected := Known("one", "two", "three", "four")
	if !sameColumns(union.Columns(), expected.Columns()) {
		t.Fatalf("got %v want %v", union.Columns(), expected.Columns())
	}
}

func TestUnionKnownUnknown(t *testing.T) {
	left := Known("one", "two")
	if !left.Union(Unknown()).IsUnknown() {
		t.Fatal("expected union with Unknown to be Unknown")
	}
}

func TestUnionUnknownKnown(t *testing.T) {
	right := Known("two", "three")
	if !Unknown().Union(right).IsUnknown() {
		t.Fatal("expected union with Unknown to be Unknown")
	}
}

func TestUnionUnknownUnknown(t *testing.T) {
	if !Unknown().Union(Unknown()).IsUnknown() {
		t.Fatal("expected Unknown union Unknown to be Unknown")
	}
}
