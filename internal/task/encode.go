package task

import (
	"encoding/binary"

	"github.com/vegafusion/vegafusion/internal/transforms"
)

// encoder is a small deterministic binary writer: fixed field order, no
// map iteration, used as the input to xxhash for fingerprinting (spec.md
// section 9 "Deterministic hashing"). This replaces the teacher's
// protobuf-encode-then-hash pattern (vegafusion-core/src/task_graph/task.rs)
// since this module does not generate protobuf bindings -- see DESIGN.md.
type encoder struct {
	buf []byte
}

func (e *encoder) u8(b byte) { e.buf = append(e.buf, b) }

func (e *encoder) u32(v uint32) {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], v)
	e.buf = append(e.buf, tmp[:]...)
}

func (e *encoder) str(s string) {
	e.u32(uint32(len(s)))
	e.buf = append(e.buf, s...)
}

func (e *encoder) bytes(b []byte) {
	e.u32(uint32(len(b)))
	e.buf = append(e.buf, b...)
}

func (e *encoder) strs(ss []string) {
	e.u32(uint32(len(ss)))
	for _, s := range ss {
		e.str(s)
	}
}

func (e *encoder) variableScope(scope []uint32) {
	e.u32(uint32(len(scope)))
	for _, idx := range scope {
		e.u32(idx)
	}
}

// identityTag distinguishes Scalar from Table without hashing the value
// itself, matching the original's "Only hash the distinction between
// Scalar and Table, not the value itself" comment in
// init_identity_fingerprints.
func (v Value) identityTag() string {
	if v.Kind == TableValue {
		return "data"
	}
	return "scalar"
}

// IdentityEncode returns the deterministic byte encoding used for this
// task's identity fingerprint contribution. For a Value task this
// deliberately excludes the value payload (spec.md section 4.E); for every
// other kind the full task structure (including URLs, formats, pipelines)
// is its identity, since there is no separate "current value" to exclude.
func (t Task) IdentityEncode() []byte {
	e := &encoder{}
	e.str(t.Variable.Namespace.String())
	e.str(t.Variable.Name)
	e.variableScope(t.Scope)
	if t.Kind == ValueKind {
		e.str(t.Value.identityTag())
		return e.buf
	}
	t.encodeKindBody(e)
	return e.buf
}

// FullEncode returns the deterministic byte encoding of the entire task,
// including a Value task's current value. Used for state fingerprinting
// (spec.md section 3 "for Value nodes H(task_full)").
func (t Task) FullEncode() []byte {
	e := &encoder{}
	e.str(t.Variable.Namespace.String())
	e.str(t.Variable.Name)
	e.variableScope(t.Scope)
	t.encodeKindBody(e)
	return e.buf
}

func (t Task) encodeKindBody(e *encoder) {
	e.u8(byte(t.Kind))
	switch t.Kind {
	case ValueKind:
		valueBytes, err := t.Value.ToJSON()
		if err != nil {
			// Fingerprinting must be infallible for values already
			// constructed by this module; a marshal failure here means a
			// value escaped validation, which is an internal bug. We fall
			// back to hashing the kind tag plus the marshal error text
			// rather than panicking, so a bad value still produces *a*
			// deterministic (if degenerate) fingerprint instead of
			// crashing the graph builder.
			e.str("invalid:" + err.Error())
			return
		}
		e.bytes(valueBytes)
	case DataURLKind:
		e.str(t.DataURL.URL)
		e.str(t.DataURL.Format)
		e.u32(uint32(t.DataURL.BatchSize))
		encodePipeline(e, t.DataURL.Pipeline)
	case DataValuesKind:
		e.bytes(t.DataValues.InlineBytes)
		e.str(t.DataValues.Format)
		encodePipeline(e, t.DataValues.Pipeline)
	case DataSourceKind:
		e.str(t.DataSource.SourceName)
		encodePipeline(e, t.DataSource.Pipeline)
	}
}

// encodePipeline encodes enough of a pipeline's structure to distinguish
// two pipelines that would behave differently, using each transform's
// contribution to TransformColumns/OutputVars/Supported as a stable proxy
// for its full configuration. Concrete transform kinds are expected to
// additionally implement encodableTransform for field-level fidelity;
// transforms that don't are hashed only by their columns/outputs/support,
// which is coarser but still deterministic.
func encodePipeline(e *encoder, p transforms.Pipeline) {
	e.u32(uint32(len(p.Transforms)))
	for _, t := range p.Transforms {
		if et, ok := t.(encodableTransform); ok {
			e.str(et.EncodeTransform())
			continue
		}
		cols := t.TransformColumns(transforms.ResolveContext{})
		e.u8(byte(cols.Kind))
		e.strs(cols.Produced)
		for _, ov := range t.OutputVars() {
			e.str(ov.Namespace.String())
			e.str(ov.Name)
		}
	}
}

// encodableTransform is an optional refinement a transform kind can
// implement to contribute a precise deterministic encoding of its own
// configuration (field names, operator lists) to the task hash, beyond
// what's observable through the Transform interface alone.
type encodableTransform interface {
	EncodeTransform() string
}
