package planner

import (
	"github.com/vegafusion/vegafusion/internal/chartspec"
	"github.com/vegafusion/vegafusion/internal/scope"
	"github.com/vegafusion/vegafusion/internal/transforms"
	"github.com/vegafusion/vegafusion/internal/variable"
)

// computeCommPlan derives the two directions of the communication plan
// (spec.md section 4.G step 2 "Stitch"):
//
//   - client_to_server: every scoped variable a server pipeline reads that
//     the server no longer defines (a user-interactive signal, or a
//     dataset left on the client).
//   - server_to_client: every scoped variable the (now-stubbed) client
//     spec reads that resolves to a definition the server owns.
func computeCommPlan(
	sites []dataSite,
	extractable map[string]bool,
	pipelines map[string]transforms.Pipeline,
	fullTree *scope.Tree,
	clientWalk *chartspec.Result,
) (CommPlan, error) {
	comm := CommPlan{
		ServerToClient: variable.MakeSet[variable.Scoped](),
		ClientToServer: variable.MakeSet[variable.Scoped](),
	}

	for _, s := range sites {
		key := siteKey(s)
		if !extractable[key] {
			continue
		}
		isKnown := fullTree.IsKnownNameAt(s.Scope)
		ctx := transforms.ResolveContext{IsKnownName: isKnown, ResolveDataset: fullTree.ResolveDatasetAt(s.Scope)}
		pipeline := pipelines[key]

		inputs := pipeline.InputVars(ctx)
		if s.Data.Source != "" {
			inputs = append(inputs, transforms.InputVariable{Var: variable.MustData(s.Data.Source), Propagate: true})
		}
		for _, iv := range inputs {
			resolved, err := fullTree.ResolveScope(iv.Var, s.Scope)
			if err != nil {
				return CommPlan{}, err
			}
			resolvedScoped := variable.NewScoped(resolved.Var, resolved.Scope)
			if extractable[resolvedScoped.UniqueKey()] {
				continue // server already defines this input
			}
			comm.ClientToServer.Add(resolvedScoped)
		}
	}

	for _, v := range clientWalk.Inputs {
		if extractable[v.UniqueKey()] {
			comm.ServerToClient.Add(v)
		}
	}

	return comm, nil
}
