package taskgraph

import (
	"github.com/vegafusion/vegafusion/internal/task"
	"github.com/vegafusion/vegafusion/internal/vferrors"
)

// UpdateValue replaces a Value node's contents, recomputes the state
// fingerprints of that node and every node reachable from it, and returns
// the ordered list of NodeValueIndex whose fingerprint changed as a
// result (spec.md section 4.F "update_value"). Both the node's own index
// and its output slots are emitted when the node has output variables, so
// a single update can surface more than one changed addressable value.
func (g *Graph) UpdateValue(nodeIndex int, newValue task.Value) ([]NodeValueIndex, error) {
	node, err := g.Node(nodeIndex)
	if err != nil {
		return nil, err
	}
	if node.Task.Kind != task.ValueKind {
		return nil, vferrors.Internalf("UpdateValue called on non-Value node %d", nodeIndex)
	}

	g.Nodes[nodeIndex].Task.Value = newValue

	// Nodes are stored in topological order, so every node this one could
	// affect lies at a strictly greater index; recomputing every node from
	// nodeIndex forward covers the reachable set without a separate
	// reachability pass (unreachable nodes recompute to their old
	// fingerprint and so are not reported as changed).
	previous := make([]uint64, len(g.Nodes)-nodeIndex)
	for i := nodeIndex; i < len(g.Nodes); i++ {
		previous[i-nodeIndex] = g.Nodes[i].StateFingerprint
	}
	for i := nodeIndex; i < len(g.Nodes); i++ {
		g.Nodes[i].StateFingerprint = computeStateFingerprint(g.Nodes, i)
	}

	var changed []NodeValueIndex
	for i := nodeIndex; i < len(g.Nodes); i++ {
		if g.Nodes[i].StateFingerprint == previous[i-nodeIndex] {
			continue
		}
		changed = append(changed, NodeValueIndex{Node: i})
		for slot := range g.Nodes[i].Task.OutputVars() {
			s := slot
			changed = append(changed, NodeValueIndex{Node: i, OutputSlot: &s})
		}
	}
	return changed, nil
}
