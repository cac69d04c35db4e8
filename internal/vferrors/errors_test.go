package vferrors

import (
	"strings"
	"testing"
)

func TestWithContextAppendsOutermostLast(t *testing.T) {
	err := Specf("name %q already defined", "x")
	err = err.WithContext("while resolving scope [0]")
	err = err.WithContext("while building task graph")

	if len(err.Contexts) != 2 {
		t.Fatalf("expected 2 context lines, got %d", len(err.Contexts))
	}
	if err.Contexts[0] != "while resolving scope [0]" {
		t.Fatalf("unexpected first context: %s", err.Contexts[0])
	}
	if err.Contexts[1] != "while building task graph" {
		t.Fatalf("unexpected second context: %s", err.Contexts[1])
	}
	if !strings.Contains(err.Error(), "name \"x\" already defined") {
		t.Fatalf("message missing from Error(): %s", err.Error())
	}
}

func TestKindOf(t *testing.T) {
	err := Internalf("node index %d out of range", 3)
	kind, ok := KindOf(err)
	if !ok || kind != Internal {
		t.Fatalf("expected Internal kind, got %v (ok=%v)", kind, ok)
	}
}

func TestCombineNilWhenEmpty(t *testing.T) {
	if Combine() != nil {
		t.Fatal("expected nil for no errors")
	}
	if Combine(nil, nil) != nil {
		t.Fatal("expected nil for all-nil errors")
	}
}

func TestCombineMultiple(t *testing.T) {
	err := Combine(Specf("a"), nil, Specf("b"))
	if err == nil {
		t.Fatal("expected non-nil combined error")
	}
	msg := err.Error()
	if !strings.Contains(msg, "a") || !strings.Contains(msg, "b") {
		t.Fatalf("expected both messages in combined error: %s", msg)
	}
}
