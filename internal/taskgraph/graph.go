// Package taskgraph implements the task graph build, fingerprinting, and
// incremental value-update algorithm (spec.md section 4.F, component F) --
// the central component of this module.
//
// The build algorithm is a direct transcription of
// vegafusion-core/src/task_graph/graph.rs's TaskGraph::new,
// init_identity_fingerprints, update_state_fingerprints, and update_value
// into Go, with the original's petgraph::DiGraph replaced by a plain
// adjacency-list []Node built incrementally and topologically sorted once
// at the end via a hand-rolled Kahn's-algorithm pass (no generic
// topological-sort library appears anywhere in the example pack this
// module was grounded on -- see DESIGN.md).
package taskgraph

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"

	"github.com/vegafusion/vegafusion/internal/scope"
	"github.com/vegafusion/vegafusion/internal/task"
	"github.com/vegafusion/vegafusion/internal/transforms"
	"github.com/vegafusion/vegafusion/internal/variable"
	"github.com/vegafusion/vegafusion/internal/vferrors"
)

// Edge is one incoming dependency of a Node, in the order the task's
// InputVars() returned it -- the contract the runtime driver relies on
// when passing parent values as positional arguments (spec.md section
// 4.F step 5).
type Edge struct {
	Node int
	// OutputSlot is set when this edge's source variable resolved to an
	// output signal of the parent task (e.g. an extent transform's
	// published [min, max] signal) rather than the parent's primary
	// value.
	OutputSlot *int
}

// Node is a task plus its resolved edges and fingerprints.
type Node struct {
	Task     task.Task
	Incoming []Edge
	Children []int

	IDFingerprint    uint64
	StateFingerprint uint64
}

// NodeValueIndex names one addressable value in the graph: a node, and
// (for a node with multiple output vars) which output slot.
type NodeValueIndex struct {
	Node       int
	OutputSlot *int
}

// Graph is the built, topologically sorted task graph plus the mapping
// from every scoped variable the spec defines to where its value lives.
type Graph struct {
	Nodes   []Node
	mapping variable.Map[variable.Scoped, NodeValueIndex]
}

// buildTask wraps one Task discovered while walking the (server half of
// the) spec; the scope tree used to resolve its inputs is passed to Build
// separately.
type buildTask struct {
	task task.Task
}

// Build assembles a Graph from tasks, resolving each task's input
// variables against tree (the TaskScope built by the spec walker) to
// determine edges, per spec.md section 4.F steps 1-7.
func Build(tasks []task.Task, tree *scope.Tree) (*Graph, error) {
	n := len(tasks)
	built := make([]buildTask, n)
	for i, t := range tasks {
		built[i] = buildTask{task: t}
	}

	// Step 1: record scoped_var -> node index, pre-toposort.
	defSite := variable.MakeMap[variable.Scoped, int]()
	for i, bt := range built {
		key := variable.NewScoped(bt.task.Variable, bt.task.Scope)
		if _, exists := defSite.Get(key); exists {
			return nil, vferrors.Specf("duplicate task definition for %s", key)
		}
		defSite.Set(key, i)
	}

	// Step 2: resolve each input, add edges, rejecting self-edges.
	parents := make([][]Edge, n)
	children := make([][]int, n)
	for i, bt := range built {
		isKnown := tree.IsKnownNameAt(bt.task.Scope)
		ctx := transforms.ResolveContext{IsKnownName: isKnown, ResolveDataset: tree.ResolveDatasetAt(bt.task.Scope)}
		for _, iv := range bt.task.InputVars(ctx) {
			resolved, err := tree.ResolveScope(iv.Var, bt.task.Scope)
			if err != nil {
				return nil, err
			}
			parentKey := variable.NewScoped(resolved.Var, resolved.Scope)
			parentIdx, ok := defSite.Get(parentKey)
			if !ok {
				return nil, vferrors.Internalf("task input %s resolved to an undefined task", parentKey)
			}

			if parentIdx == i {
				return nil, vferrors.Specf("task %s structurally depends on its own output", parentKey)
			}

			var slot *int
			if resolved.OutputVar != nil {
				for idx, ov := range built[parentIdx].task.OutputVars() {
					if ov == *resolved.OutputVar {
						s := idx
						slot = &s
						break
					}
				}
			}
			parents[i] = append(parents[i], Edge{Node: parentIdx, OutputSlot: slot})
			children[parentIdx] = append(children[parentIdx], i)
		}
	}

	// Step 3: topological sort (Kahn's algorithm, stable tie-break on
	// original index for determinism across builds of the same spec --
	// spec.md section 8 property 3).
	order, err := toposort(n, parents)
	if err != nil {
		return nil, err
	}

	// Step 4: relabel nodes in topological order, rewriting edge indices.
	newIndexOf := make([]int, n)
	for newIdx, oldIdx := range order {
		newIndexOf[oldIdx] = newIdx
	}
	nodes := make([]Node, n)
	for newIdx, oldIdx := range order {
		remappedIncoming := make([]Edge, len(parents[oldIdx]))
		for k, e := range parents[oldIdx] {
			remappedIncoming[k] = Edge{Node: newIndexOf[e.Node], OutputSlot: e.OutputSlot}
		}
		nodes[newIdx] = Node{Task: built[oldIdx].task, Incoming: remappedIncoming}
	}
	for i := range nodes {
		for _, e := range nodes[i].Incoming {
			nodes[e.Node].Children = append(nodes[e.Node].Children, i)
		}
	}

	// Steps 6-7: fingerprints, in topological order (parents always have
	// a strictly smaller index than their children, so a single forward
	// pass suffices).
	for i := range nodes {
		nodes[i].IDFingerprint = computeIDFingerprint(nodes, i)
	}
	for i := range nodes {
		nodes[i].StateFingerprint = computeStateFingerprint(nodes, i)
	}

	mapping := variable.MakeMap[variable.Scoped, NodeValueIndex]()
	for i, node := range nodes {
		mapping.Set(variable.NewScoped(node.Task.Variable, node.Task.Scope), NodeValueIndex{Node: i})
		for slot, ov := range node.Task.OutputVars() {
			s := slot
			mapping.Set(variable.NewScoped(ov, node.Task.Scope), NodeValueIndex{Node: i, OutputSlot: &s})
		}
	}

	return &Graph{Nodes: nodes, mapping: mapping}, nil
}

func computeIDFingerprint(nodes []Node, i int) uint64 {
	h := xxhash.New()
	h.Write(nodes[i].Task.IdentityEncode())
	for _, e := range nodes[i].Incoming {
		writeUint64(h, nodes[e.Node].IDFingerprint)
	}
	return h.Sum64()
}

func computeStateFingerprint(nodes []Node, i int) uint64 {
	h := xxhash.New()
	h.Write(nodes[i].Task.FullEncode())
	for _, e := range nodes[i].Incoming {
		writeUint64(h, nodes[e.Node].StateFingerprint)
	}
	return h.Sum64()
}

func writeUint64(h *xxhash.Digest, v uint64) {
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], v)
	h.Write(tmp[:])
}

// toposort runs Kahn's algorithm over n nodes with the given incoming
// edges, breaking ties by ascending original index so the result is
// byte-identical across repeated builds of the same task list. Returns the
// old-index order; a remaining unprocessed node after the queue drains
// means a cycle, reported as an Internal error per spec.md section 4.F
// step 3 ("a cycle at this stage is an InternalError").
func toposort(n int, parents [][]Edge) ([]int, error) {
	indegree := make([]int, n)
	for i := 0; i < n; i++ {
		indegree[i] = len(parents[i])
	}
	children := make([][]int, n)
	for i := 0; i < n; i++ {
		for _, e := range parents[i] {
			children[e.Node] = append(children[e.Node], i)
		}
	}

	ready := make([]int, 0, n)
	for i := 0; i < n; i++ {
		if indegree[i] == 0 {
			ready = append(ready, i)
		}
	}

	order := make([]int, 0, n)
	for len(ready) > 0 {
		// Stable tie-break: always take the smallest original index
		// currently ready.
		minPos := 0
		for k := 1; k < len(ready); k++ {
			if ready[k] < ready[minPos] {
				minPos = k
			}
		}
		next := ready[minPos]
		ready = append(ready[:minPos], ready[minPos+1:]...)
		order = append(order, next)

		for _, c := range children[next] {
			indegree[c]--
			if indegree[c] == 0 {
				ready = append(ready, c)
			}
		}
	}

	if len(order) != n {
		return nil, vferrors.Internalf("task graph contains a cycle")
	}
	return order, nil
}

// Node returns the node at i, or an Internal error if i is out of range
// (spec.md section 4.F "All out-of-range accesses fail with
// InternalError").
func (g *Graph) Node(i int) (Node, error) {
	if i < 0 || i >= len(g.Nodes) {
		return Node{}, vferrors.Internalf("node index %d out of range (have %d nodes)", i, len(g.Nodes))
	}
	return g.Nodes[i], nil
}

// ParentIndices returns the node index of each of i's incoming edges, in
// edge order; a parent reached by more than one edge appears more than once.
func (g *Graph) ParentIndices(i int) ([]int, error) {
	node, err := g.Node(i)
	if err != nil {
		return nil, err
	}
	out := make([]int, len(node.Incoming))
	for k, e := range node.Incoming {
		out[k] = e.Node
	}
	return out, nil
}

// ChildIndices returns the node indices that depend on i.
func (g *Graph) ChildIndices(i int) ([]int, error) {
	node, err := g.Node(i)
	if err != nil {
		return nil, err
	}
	return append([]int(nil), node.Children...), nil
}

// Fingerprint identifies this exact built graph (its tasks and their
// wiring), letting a wire request name which graph its indices refer to
// without serializing the whole structure over the wire -- the session
// transport keeps the built Graph server-side and only needs to confirm
// the client's view of it hasn't gone stale.
func (g *Graph) Fingerprint() uint64 {
	h := xxhash.New()
	for i := range g.Nodes {
		writeUint64(h, g.Nodes[i].StateFingerprint)
	}
	return h.Sum64()
}

// Lookup resolves a scoped variable to its NodeValueIndex, per the
// TaskGraph's definition-site bijection (spec.md section 3).
func (g *Graph) Lookup(v variable.Scoped) (NodeValueIndex, bool) {
	return g.mapping.Get(v)
}

// DefinedVariables returns every scoped variable the graph maps, in no
// particular order; callers needing determinism should sort with
// variable.Scoped.Less.
func (g *Graph) DefinedVariables() []variable.Scoped {
	return g.mapping.Keys()
}

