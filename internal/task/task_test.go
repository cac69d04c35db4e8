package task

import (
	"bytes"
	"testing"

	"github.com/zclconf/go-cty/cty"

	"github.com/vegafusion/vegafusion/internal/variable"
)

func TestIdentityEncodeExcludesValuePayload(t *testing.T) {
	v := variable.MustSignal("width")
	a := NewValueTask(v, nil, NewScalar(cty.NumberIntVal(100)))
	b := NewValueTask(v, nil, NewScalar(cty.NumberIntVal(200)))

	if !bytes.Equal(a.IdentityEncode(), b.IdentityEncode()) {
		t.Fatal("expected identity encoding to ignore the current scalar value")
	}
	if bytes.Equal(a.FullEncode(), b.FullEncode()) {
		t.Fatal("expected full encoding to differ when the scalar value differs")
	}
}

func TestIdentityEncodeDiffersByScopeOrVariable(t *testing.T) {
	base := NewValueTask(variable.MustSignal("width"), []uint32{0}, NewScalar(cty.NumberIntVal(1)))
	diffScope := NewValueTask(variable.MustSignal("width"), []uint32{1}, NewScalar(cty.NumberIntVal(1)))
	diffVar := NewValueTask(variable.MustSignal("height"), []uint32{0}, NewScalar(cty.NumberIntVal(1)))

	if bytes.Equal(base.IdentityEncode(), diffScope.IdentityEncode()) {
		t.Fatal("expected different scopes to produce different identity encodings")
	}
	if bytes.Equal(base.IdentityEncode(), diffVar.IdentityEncode()) {
		t.Fatal("expected different variables to produce different identity encodings")
	}
}

func TestScalarTableIdentityTagDiffers(t *testing.T) {
	scalarTask := NewValueTask(variable.MustData("points"), nil, NewScalar(cty.StringVal("x")))
	if scalarTask.Value.identityTag() != "scalar" {
		t.Fatalf("expected scalar tag, got %q", scalarTask.Value.identityTag())
	}
	tableValue := Value{Kind: TableValue}
	if tableValue.identityTag() == scalarTask.Value.identityTag() {
		t.Fatalf("expected table and scalar identity tags to differ, both %q", tableValue.identityTag())
	}
}

func TestDataSourceEncodeIsDeterministic(t *testing.T) {
	src := NewDataSourceTask(variable.MustData("derived"), nil, DataSource{SourceName: "points"})
	first := src.FullEncode()
	second := src.FullEncode()
	if !bytes.Equal(first, second) {
		t.Fatal("expected repeated FullEncode calls to be byte-identical")
	}
}

func TestDataSourceFullEncodeDiffersBySourceName(t *testing.T) {
	a := NewDataSourceTask(variable.MustData("derived"), nil, DataSource{SourceName: "points"})
	b := NewDataSourceTask(variable.MustData("derived"), nil, DataSource{SourceName: "other"})
	if bytes.Equal(a.FullEncode(), b.FullEncode()) {
		t.Fatal("expected different source names to produce different encodings")
	}
}
