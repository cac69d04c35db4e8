package wire

import (
	"encoding/json"
	"testing"

	"github.com/zclconf/go-cty/cty"

	"github.com/vegafusion/vegafusion/internal/task"
	"github.com/vegafusion/vegafusion/internal/variable"
	"github.com/vegafusion/vegafusion/internal/vferrors"
)

func TestCommPlanJSONIsSortedAndRoundTrips(t *testing.T) {
	serverToClient := variable.MakeSet[variable.Scoped](
		variable.NewScoped(variable.MustData("filtered"), nil),
		variable.NewScoped(variable.MustData("aggregated"), nil),
	)
	clientToServer := variable.MakeSet[variable.Scoped](
		variable.NewScoped(variable.MustSignal("brush"), nil),
	)

	plan := NewCommPlanJSON(serverToClient, clientToServer)
	if len(plan.ServerToClient) != 2 {
		t.Fatalf("expected 2 server_to_client entries, got %d", len(plan.ServerToClient))
	}
	if plan.ServerToClient[0].Name != "aggregated" || plan.ServerToClient[1].Name != "filtered" {
		t.Fatalf("expected sorted order [aggregated, filtered], got %v", plan.ServerToClient)
	}

	data, err := json.Marshal(plan)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var decoded CommPlanJSON
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if len(decoded.ClientToServer) != 1 || decoded.ClientToServer[0].Name != "brush" {
		t.Fatalf("unexpected round-tripped client_to_server: %v", decoded.ClientToServer)
	}
}

func TestNewResponseValueRoundTrips(t *testing.T) {
	v := variable.NewScoped(variable.MustData("result"), nil)
	rv, err := NewResponseValue(v, task.NewScalar(cty.NumberIntVal(7)))
	if err != nil {
		t.Fatalf("NewResponseValue: %v", err)
	}
	decoded, err := task.FromJSON(rv.Value)
	if err != nil {
		t.Fatalf("FromJSON: %v", err)
	}
	got, _ := decoded.Scalar.AsBigFloat().Int64()
	if got != 7 {
		t.Fatalf("got %d want 7", got)
	}
}

func TestErrorFromVFPreservesKindAndContexts(t *testing.T) {
	err := vferrors.Specf("unresolvable reference").WithContext("while planning node 3")
	wireErr := ErrorFromVF(err)
	if wireErr.Code != "specification error" {
		t.Fatalf("got code %q", wireErr.Code)
	}
	if len(wireErr.Contexts) != 1 || wireErr.Contexts[0] != "while planning node 3" {
		t.Fatalf("got contexts %v", wireErr.Contexts)
	}
}

func TestErrorFromVFDefaultsUntypedErrorsToInternal(t *testing.T) {
	wireErr := ErrorFromVF(errUntyped{})
	if wireErr.Code != "internal error" {
		t.Fatalf("got code %q, want internal error", wireErr.Code)
	}
}

type errUntyped struct{}

func (errUntyped) Error() string { return "boom" }
