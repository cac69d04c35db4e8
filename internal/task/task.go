package task

import (
	"github.com/vegafusion/vegafusion/internal/transforms"
	"github.com/vegafusion/vegafusion/internal/variable"
	"github.com/vegafusion/vegafusion/internal/vferrors"
)

// Kind tags which variant of Task this is, per spec.md section 3.
type Kind int

const (
	ValueKind Kind = iota
	DataURLKind
	DataValuesKind
	DataSourceKind
)

// DataURL fetches a table from a URL in the given format and optionally
// runs it through a pipeline. BatchSize, when non-zero, requests the
// collaborator fetch/stream the URL in row batches of that size rather
// than as one blob.
type DataURL struct {
	URL       string
	Format    string // "csv", "json", "arrow", ...
	Pipeline  transforms.Pipeline
	BatchSize int
}

// DataValues wraps an inline table (encoded bytes in Format) run through a
// pipeline.
type DataValues struct {
	InlineBytes []byte
	Format      string
	Pipeline    transforms.Pipeline
}

// DataSource derives a new dataset from another named dataset by running
// it through a pipeline.
type DataSource struct {
	SourceName string
	Pipeline   transforms.Pipeline
}

// Task is (variable, scope, kind), per spec.md section 3.
type Task struct {
	Variable variable.Variable
	Scope    []uint32

	Kind       Kind
	Value      Value
	DataURL    DataURL
	DataValues DataValues
	DataSource DataSource
}

func NewValueTask(v variable.Variable, scope []uint32, value Value) Task {
	return Task{Variable: v, Scope: scope, Kind: ValueKind, Value: value}
}

func NewDataURLTask(v variable.Variable, scope []uint32, t DataURL) Task {
	return Task{Variable: v, Scope: scope, Kind: DataURLKind, DataURL: t}
}

func NewDataValuesTask(v variable.Variable, scope []uint32, t DataValues) Task {
	return Task{Variable: v, Scope: scope, Kind: DataValuesKind, DataValues: t}
}

func NewDataSourceTask(v variable.Variable, scope []uint32, t DataSource) Task {
	return Task{Variable: v, Scope: scope, Kind: DataSourceKind, DataSource: t}
}

// ToValue returns the task's literal value, failing with an Internal error
// if the task is not a Value task.
func (t Task) ToValue() (Value, error) {
	if t.Kind != ValueKind {
		return Value{}, vferrors.Internalf("task is not a Value task")
	}
	return t.Value, nil
}

// pipelineOf returns the transform pipeline belonging to this task's kind,
// or a zero Pipeline for Value tasks (which have none).
func (t Task) pipelineOf() transforms.Pipeline {
	switch t.Kind {
	case DataURLKind:
		return t.DataURL.Pipeline
	case DataValuesKind:
		return t.DataValues.Pipeline
	case DataSourceKind:
		return t.DataSource.Pipeline
	default:
		return transforms.Pipeline{}
	}
}

// InputVars returns the unscoped input variables this task's pipeline
// reads, per spec.md section 3 "a task exposes input_vars() (unscoped)".
// For a DataSource task this additionally includes the source dataset
// itself as an (always-propagating) input.
func (t Task) InputVars(ctx transforms.ResolveContext) []transforms.InputVariable {
	switch t.Kind {
	case ValueKind:
		return nil
	case DataSourceKind:
		out := t.pipelineOf().InputVars(ctx)
		if sourceVar, ok := ctx.IsKnownName(t.DataSource.SourceName); ok {
			out = append([]transforms.InputVariable{{Var: sourceVar, Propagate: true}}, out...)
		}
		return out
	default:
		return t.pipelineOf().InputVars(ctx)
	}
}

// OutputVars returns the auxiliary signals this task's pipeline publishes
// (spec.md section 3).
func (t Task) OutputVars() []variable.Variable {
	if t.Kind == ValueKind {
		return nil
	}
	return t.pipelineOf().OutputVars()
}

// Supported reports whether every transform in this task's pipeline can be
// evaluated server-side.
func (t Task) Supported() bool {
	if t.Kind == ValueKind {
		return true
	}
	return t.pipelineOf().Supported()
}
