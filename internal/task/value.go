// Package task implements the Task and TaskValue data model (spec.md
// section 3, component E): tagged task variants, their deterministic
// identity hash, and the Scalar/Table value representation.
//
// Scalars are backed by github.com/zclconf/go-cty's cty.Value, which
// natively carries a type and a null marker, satisfying spec.md's "a typed
// single value with a nullable marker" without a parallel type system.
// Tables are backed by an Apache Arrow record (schema + one batch) from
// github.com/apache/arrow/go/v15, the real columnar IPC unit named in
// spec.md section 6.
package task

import (
	"bytes"
	"fmt"
	"io"
	"math/big"

	"github.com/apache/arrow/go/v15/arrow"
	"github.com/apache/arrow/go/v15/arrow/ipc"
	"github.com/zclconf/go-cty/cty"

	"github.com/vegafusion/vegafusion/internal/vferrors"
)

// ValueKind distinguishes the two TaskValue variants without forcing
// callers to type-switch on cty.Value vs *arrow.Record directly.
type ValueKind int

const (
	ScalarValue ValueKind = iota
	TableValue
)

// Value is a tagged union: either a Scalar (cty.Value) or a Table
// (*arrow.Record), matching spec.md section 3 exactly.
type Value struct {
	Kind   ValueKind
	Scalar cty.Value
	Table  *arrow.Record
}

func NewScalar(v cty.Value) Value {
	return Value{Kind: ScalarValue, Scalar: v}
}

func NewTable(rec arrow.Record) Value {
	return Value{Kind: TableValue, Table: &rec}
}

func (v Value) IsScalar() bool { return v.Kind == ScalarValue }
func (v Value) IsTable() bool  { return v.Kind == TableValue }

// WriteIPC serializes a Table value as a columnar IPC stream: schema then
// record batches (spec.md section 6 "Data batch format"). Calling this on
// a Scalar value is an Internal error.
func (v Value) WriteIPC(w io.Writer) error {
	if v.Kind != TableValue {
		return vferrors.Internalf("WriteIPC called on a non-table TaskValue")
	}
	rec := *v.Table
	writer := ipc.NewWriter(w, ipc.WithSchema(rec.Schema()))
	defer writer.Close()
	if err := writer.Write(rec); err != nil {
		return vferrors.Wrap(vferrors.Arrow, err)
	}
	return writer.Close()
}

// TableFromIPC reads a single record batch (with its leading schema) from
// an IPC stream, the inverse of WriteIPC.
func TableFromIPC(r io.Reader) (Value, error) {
	reader, err := ipc.NewReader(r)
	if err != nil {
		return Value{}, vferrors.Wrap(vferrors.Arrow, err)
	}
	defer reader.Release()
	if !reader.Next() {
		return Value{}, vferrors.Specf("IPC stream contained no record batches")
	}
	rec := reader.Record()
	rec.Retain()
	return NewTable(rec), nil
}

// ToJSON renders a Value in a canonical JSON form from which FromJSON can
// reconstruct an equal Value (spec.md section 8 property 5 "round-trip").
// Scalars round-trip through a {"type":..., "value":...} envelope;
// tables round-trip through their IPC stream, base64-encoded by the
// caller's JSON layer (encoding/json already does this for []byte).
func (v Value) ToJSON() ([]byte, error) {
	switch v.Kind {
	case ScalarValue:
		return scalarToJSON(v.Scalar)
	case TableValue:
		var buf bytes.Buffer
		if err := v.WriteIPC(&buf); err != nil {
			return nil, err
		}
		return wrapJSON("table", buf.Bytes())
	default:
		return nil, vferrors.Internalf("unknown TaskValue kind %d", v.Kind)
	}
}

// FromJSON is the inverse of ToJSON.
func FromJSON(data []byte) (Value, error) {
	kind, payload, err := unwrapJSON(data)
	if err != nil {
		return Value{}, err
	}
	switch kind {
	case "table":
		return TableFromIPC(bytes.NewReader(payload))
	default:
		v, err := scalarFromJSON(kind, payload)
		if err != nil {
			return Value{}, err
		}
		return NewScalar(v), nil
	}
}

// scalarKind returns the canonical type tag used in the JSON envelope for
// a scalar cty.Value: "null" for any null value, "string", "number" and
// "bool" for the primitive types, "array" for tuples and lists, and
// "object" for objects and maps. Any other type is an Internal error.
func scalarKind(v cty.Value) (string, error) {
	if v.IsNull() {
		return "null", nil
	}
	t := v.Type()
	switch {
	case t == cty.String:
		return "string", nil
	case t == cty.Number:
		return "number", nil
	case t == cty.Bool:
		return "bool", nil
	case t.IsTupleType() || t.IsListType():
		return "array", nil
	case t.IsObjectType() || t.IsMapType():
		return "object", nil
	default:
		return "", vferrors.Internalf("unsupported scalar type %s", t.FriendlyName())
	}
}

func scalarToJSON(v cty.Value) ([]byte, error) {
	kind, err := scalarKind(v)
	if err != nil {
		return nil, err
	}
	native, err := ctyToNative(v)
	if err != nil {
		return nil, err
	}
	payload, err := jsonMarshal(native)
	if err != nil {
		return nil, vferrors.Wrap(vferrors.IO, err)
	}
	return wrapJSON(kind, payload)
}

func scalarFromJSON(kind string, payload []byte) (cty.Value, error) {
	if kind == "null" {
		return cty.NullVal(cty.DynamicPseudoType), nil
	}
	native, err := jsonUnmarshalAny(payload)
	if err != nil {
		return cty.NilVal, vferrors.Wrap(vferrors.IO, err)
	}
	return nativeToCty(kind, native)
}

func ctyToNative(v cty.Value) (any, error) {
	if v.IsNull() {
		return nil, nil
	}
	t := v.Type()
	switch {
	case t == cty.String:
		return v.AsString(), nil
	case t == cty.Number:
		bf := v.AsBigFloat()
		f, _ := bf.Float64()
		return f, nil
	case t == cty.Bool:
		return v.True(), nil
	case t.IsTupleType() || t.IsListType():
		var out []any
		for it := v.ElementIterator(); it.Next(); {
			_, ev := it.Element()
			native, err := ctyToNative(ev)
			if err != nil {
				return nil, err
			}
			out = append(out, native)
		}
		return out, nil
	case t.IsObjectType() || t.IsMapType():
		out := map[string]any{}
		for it := v.ElementIterator(); it.Next(); {
			k, ev := it.Element()
			native, err := ctyToNative(ev)
			if err != nil {
				return nil, err
			}
			out[k.AsString()] = native
		}
		return out, nil
	default:
		return nil, vferrors.Internalf("unsupported scalar type %s", t.FriendlyName())
	}
}

func nativeToCty(kind string, native any) (cty.Value, error) {
	switch kind {
	case "string":
		s, _ := native.(string)
		return cty.StringVal(s), nil
	case "number":
		f, _ := native.(float64)
		return cty.NumberVal(new(big.Float).SetFloat64(f)), nil
	case "bool":
		b, _ := native.(bool)
		return cty.BoolVal(b), nil
	case "array":
		elems, _ := native.([]any)
		if len(elems) == 0 {
			return cty.ListValEmpty(cty.DynamicPseudoType), nil
		}
		vals := make([]cty.Value, 0, len(elems))
		for _, e := range elems {
			v, err := nativeScalarToCty(e)
			if err != nil {
				return cty.NilVal, err
			}
			vals = append(vals, v)
		}
		return cty.TupleVal(vals), nil
	case "object":
		m, _ := native.(map[string]any)
		vals := map[string]cty.Value{}
		for k, e := range m {
			v, err := nativeScalarToCty(e)
			if err != nil {
				return cty.NilVal, err
			}
			vals[k] = v
		}
		return cty.ObjectVal(vals), nil
	default:
		return cty.NilVal, vferrors.Internalf("unknown scalar kind %q", kind)
	}
}

// nativeScalarToCty infers a cty.Value for an arbitrary decoded JSON value
// (used for array/object elements, where the envelope doesn't carry a
// per-element type tag).
func nativeScalarToCty(native any) (cty.Value, error) {
	switch n := native.(type) {
	case nil:
		return cty.NullVal(cty.DynamicPseudoType), nil
	case string:
		return cty.StringVal(n), nil
	case float64:
		return cty.NumberVal(new(big.Float).SetFloat64(n)), nil
	case bool:
		return cty.BoolVal(n), nil
	case []any:
		return nativeToCty("array", n)
	case map[string]any:
		return nativeToCty("object", n)
	default:
		return cty.NilVal, vferrors.Internalf("unsupported JSON value %T", native)
	}
}

func wrapJSON(kind string, payload []byte) ([]byte, error) {
	return jsonMarshal(rawEnvelope{Type: kind, Value: payload})
}

type rawEnvelope struct {
	Type  string `json:"type"`
	Value []byte `json:"value"`
}

func unwrapJSON(data []byte) (string, []byte, error) {
	var env rawEnvelope
	if err := jsonUnmarshal(data, &env); err != nil {
		return "", nil, vferrors.Wrap(vferrors.IO, err)
	}
	return env.Type, env.Value, nil
}

func (v Value) String() string {
	switch v.Kind {
	case ScalarValue:
		return fmt.Sprintf("Scalar(%s)", v.Scalar.GoString())
	case TableValue:
		rec := *v.Table
		return fmt.Sprintf("Table(rows=%d, cols=%d)", rec.NumRows(), rec.NumCols())
	default:
		return "Value(?)"
	}
}
