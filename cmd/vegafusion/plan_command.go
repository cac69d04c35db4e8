package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"
	"github.com/mitchellh/cli"

	"github.com/vegafusion/vegafusion/internal/chartspec"
	"github.com/vegafusion/vegafusion/internal/exprast"
	"github.com/vegafusion/vegafusion/internal/planner"
	"github.com/vegafusion/vegafusion/internal/wire"
)

// PlanCommand reads a Vega specification and prints the planner's
// communication plan: which scoped variables flow from the server to the
// client and vice versa, and the fingerprint of the resulting server task
// graph. It does not evaluate any values -- the transform-kernel
// collaborator that actually runs a pipeline against data is external to
// this module (spec.md section 1), so there is nothing here to execute.
type PlanCommand struct {
	Ui     cli.Ui
	Logger hclog.Logger
}

func (c *PlanCommand) Help() string {
	return strings.TrimSpace(`
Usage: vegafusion plan <spec.json>

  Plans a Vega specification: splits it into a server task graph and a
  stubbed client spec, and prints the resulting communication plan as
  JSON.
`)
}

func (c *PlanCommand) Synopsis() string { return "Plan a Vega specification" }

func (c *PlanCommand) Run(args []string) int {
	if len(args) != 1 {
		c.Ui.Error("expected exactly one argument: the path to a spec.json file")
		return 1
	}

	requestID := uuid.NewString()
	logger := c.Logger.With("request_id", requestID)

	raw, err := os.ReadFile(args[0])
	if err != nil {
		c.Ui.Error(fmt.Sprintf("reading %s: %s", args[0], err))
		return 1
	}

	var spec chartspec.Spec
	if err := json.Unmarshal(raw, &spec); err != nil {
		c.Ui.Error(fmt.Sprintf("parsing %s: %s", args[0], err))
		return 1
	}

	logger.Debug("planning spec", "path", args[0], "datasets", len(spec.Data))

	plan, err := planner.Build(&spec, identifierOnlyExprParser)
	if err != nil {
		c.Ui.Error(wire.ErrorFromVF(err).Message)
		return 1
	}

	commPlan := wire.NewCommPlanJSON(plan.Comm.ServerToClient, plan.Comm.ClientToServer)
	out, err := json.MarshalIndent(struct {
		CommPlan    wire.CommPlanJSON `json:"comm_plan"`
		GraphNodes  int               `json:"graph_nodes"`
		Fingerprint uint64            `json:"task_graph_fingerprint"`
	}{
		CommPlan:    commPlan,
		GraphNodes:  len(plan.Graph.Nodes),
		Fingerprint: plan.Graph.Fingerprint(),
	}, "", "  ")
	if err != nil {
		c.Ui.Error(fmt.Sprintf("encoding result: %s", err))
		return 1
	}

	logger.Debug("plan complete", "graph_nodes", len(plan.Graph.Nodes))
	c.Ui.Output(string(out))
	return 0
}

// identifierOnlyExprParser is a placeholder chartspec.ExprParser good
// enough to drive the plan command over specs whose expressions are bare
// identifiers or simple datum/signal references: it never actually parses,
// it only wraps the whole expression string as a single Identifier node.
// A real deployment supplies an actual Vega expression parser (spec.md
// section 1's external collaborator); this stands in for it here so the
// CLI has something to pass chartspec.Walker without depending on one.
func identifierOnlyExprParser(expr string) (exprast.Node, error) {
	return &exprast.Identifier{Name: strings.TrimSpace(expr)}, nil
}
