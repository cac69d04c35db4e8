// Package wire implements the request/response message shapes that cross
// the client/server boundary (spec.md section 6, component J): a value
// request naming a task graph and the node indices wanted back, a value
// response carrying (scope, variable, value) triples or a wire error, and
// the communication-plan JSON the planner's CommPlan is rendered as.
//
// spec.md describes the transport as length-prefixed framed binary
// envelopes; that framing (and the scalar-union wire encoding for
// task.Value) is an external collaborator this module doesn't own, so
// these types model the message shapes with encoding/json tags instead --
// the teacher's own wire boundary (internal/rpcapi) does the equivalent:
// Go structs describing the message shape, with the actual transport
// (there, gRPC/protobuf; here, whatever framing the embedding application
// chooses) left to its caller.
package wire

import (
	"encoding/json"
	"errors"

	"github.com/vegafusion/vegafusion/internal/task"
	"github.com/vegafusion/vegafusion/internal/taskgraph"
	"github.com/vegafusion/vegafusion/internal/variable"
	"github.com/vegafusion/vegafusion/internal/vferrors"
)

// ValueRequest asks the runtime driver for the values at Indices within
// the task graph the server already holds for this session (spec.md
// section 6 "TaskGraphValueRequest{task_graph, indices}"). The graph
// itself is established once per session out-of-band (it is immutable
// apart from the value-update path, spec.md section 5) and kept
// server-side; TaskGraphFingerprint lets the server detect a client whose
// view of the graph has gone stale (e.g. after a rebuild) without the
// request having to carry the whole graph structure.
type ValueRequest struct {
	TaskGraphFingerprint uint64                     `json:"task_graph_fingerprint"`
	Indices              []taskgraph.NodeValueIndex `json:"indices"`
}

// ValueResponse carries either the requested values or a single Error,
// never both (spec.md section 6 "response_values|error").
type ValueResponse struct {
	Values []ResponseValue `json:"values,omitempty"`
	Error  *Error          `json:"error,omitempty"`
}

// ResponseValue is one (scope, variable, value) triple, the wire
// projection of runtime.ResponseValue once it's paired with the scoped
// variable its index names (spec.md section 6 "each response_value is
// (scope, variable, task_value)").
type ResponseValue struct {
	Namespace string          `json:"namespace"`
	Name      string          `json:"name"`
	Scope     []uint32        `json:"scope"`
	Value     json.RawMessage `json:"value"`
}

// NewResponseValue renders one scoped variable and its value into its
// wire form, encoding the value via task.Value.ToJSON.
func NewResponseValue(v variable.Scoped, value task.Value) (ResponseValue, error) {
	encoded, err := value.ToJSON()
	if err != nil {
		return ResponseValue{}, err
	}
	return ResponseValue{
		Namespace: v.Var.Namespace.String(),
		Name:      v.Var.Name,
		Scope:     append([]uint32(nil), v.Scope...),
		Value:     encoded,
	}, nil
}

// Error is the wire rendering of a *vferrors.Error (spec.md section 6
// "Errors (wire): {code, message, contexts:[string]}").
type Error struct {
	Code     string   `json:"code"`
	Message  string   `json:"message"`
	Contexts []string `json:"contexts,omitempty"`
}

// ErrorFromVF converts any error into its wire form, classifying it as
// Internal if it isn't (or doesn't wrap) a *vferrors.Error -- a defensive
// default, since an un-typed error reaching this boundary is itself a
// contract violation somewhere upstream.
func ErrorFromVF(err error) *Error {
	if err == nil {
		return nil
	}
	var vfErr *vferrors.Error
	if !errors.As(err, &vfErr) {
		return &Error{Code: vferrors.Internal.String(), Message: err.Error()}
	}
	return &Error{Code: vfErr.Kind.String(), Message: err.Error(), Contexts: vfErr.ContextLines()}
}

// CommPlanEntry is one scoped variable crossing the client/server
// boundary in the communication-plan JSON (spec.md section 6
// "{namespace,name,scope}").
type CommPlanEntry struct {
	Namespace string   `json:"namespace"`
	Name      string   `json:"name"`
	Scope     []uint32 `json:"scope"`
}

// CommPlanJSON is the wire rendering of planner.CommPlan (spec.md section
// 6 "Communication plan JSON"). Both lists are sorted by
// (namespace, name, scope) for determinism.
type CommPlanJSON struct {
	ServerToClient []CommPlanEntry `json:"server_to_client"`
	ClientToServer []CommPlanEntry `json:"client_to_server"`
}

// NewCommPlanJSON renders the two directions of a communication plan into
// their sorted wire form.
func NewCommPlanJSON(serverToClient, clientToServer variable.Set[variable.Scoped]) CommPlanJSON {
	return CommPlanJSON{
		ServerToClient: sortedEntries(serverToClient),
		ClientToServer: sortedEntries(clientToServer),
	}
}

func sortedEntries(set variable.Set[variable.Scoped]) []CommPlanEntry {
	scoped := variable.Slice(set, variable.Scoped.Less)
	entries := make([]CommPlanEntry, len(scoped))
	for i, v := range scoped {
		entries[i] = CommPlanEntry{
			Namespace: v.Var.Namespace.String(),
			Name:      v.Var.Name,
			Scope:     append([]uint32(nil), v.Scope...),
		}
	}
	return entries
}
