package taskgraph

import (
	"testing"

	"github.com/zclconf/go-cty/cty"

	"github.com/vegafusion/vegafusion/internal/scope"
	"github.com/vegafusion/vegafusion/internal/task"
	"github.com/vegafusion/vegafusion/internal/transforms"
	"github.com/vegafusion/vegafusion/internal/variable"
)

func buildSimpleGraph(t *testing.T) (*Graph, *scope.Tree) {
	t.Helper()
	tree := scope.NewTree()
	if err := tree.DefineName(variable.SignalNamespace, "width"); err != nil {
		t.Fatal(err)
	}
	if err := tree.DefineName(variable.DataNamespace, "source"); err != nil {
		t.Fatal(err)
	}
	if err := tree.DefineName(variable.DataNamespace, "filtered"); err != nil {
		t.Fatal(err)
	}

	widthTask := task.NewValueTask(variable.MustSignal("width"), nil, task.NewScalar(cty.NumberIntVal(500)))
	sourceTask := task.NewValueTask(variable.MustData("source"), nil, task.NewScalar(cty.StringVal("placeholder")))
	filteredTask := task.NewDataSourceTask(variable.MustData("filtered"), nil, task.DataSource{
		SourceName: "source",
		Pipeline:   transforms.Pipeline{Transforms: []transforms.Transform{transforms.Project{Fields: []string{"a"}}}},
	})

	graph, err := Build([]task.Task{widthTask, sourceTask, filteredTask}, tree)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	return graph, tree
}

func TestBuildOrdersParentsBeforeChildren(t *testing.T) {
	graph, _ := buildSimpleGraph(t)
	idx, ok := graph.Lookup(variable.NewScoped(variable.MustData("filtered"), nil))
	if !ok {
		t.Fatal("expected filtered to be mapped")
	}
	parents, err := graph.ParentIndices(idx.Node)
	if err != nil {
		t.Fatal(err)
	}
	if len(parents) != 1 {
		t.Fatalf("expected exactly one parent (source), got %d", len(parents))
	}
	if parents[0] >= idx.Node {
		t.Fatalf("expected parent index %d to be less than child index %d", parents[0], idx.Node)
	}
}

func TestUpdateValuePropagatesStateFingerprint(t *testing.T) {
	graph, _ := buildSimpleGraph(t)
	sourceIdx, ok := graph.Lookup(variable.NewScoped(variable.MustData("source"), nil))
	if !ok {
		t.Fatal("expected source to be mapped")
	}
	filteredIdx, ok := graph.Lookup(variable.NewScoped(variable.MustData("filtered"), nil))
	if !ok {
		t.Fatal("expected filtered to be mapped")
	}

	beforeID := graph.Nodes[filteredIdx.Node].IDFingerprint
	beforeState := graph.Nodes[filteredIdx.Node].StateFingerprint

	changed, err := graph.UpdateValue(sourceIdx.Node, task.NewScalar(cty.StringVal("different")))
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	foundFiltered := false
	for _, c := range changed {
		if c.Node == filteredIdx.Node {
			foundFiltered = true
		}
	}
	if !foundFiltered {
		t.Fatal("expected filtered's state fingerprint to be reported changed")
	}
	if graph.Nodes[filteredIdx.Node].IDFingerprint != beforeID {
		t.Fatal("expected identity fingerprint to be unaffected by a value-only update")
	}
	if graph.Nodes[filteredIdx.Node].StateFingerprint == beforeState {
		t.Fatal("expected state fingerprint to change after an ancestor value update")
	}
}

func TestOutOfRangeNodeAccessIsInternalError(t *testing.T) {
	graph, _ := buildSimpleGraph(t)
	if _, err := graph.Node(len(graph.Nodes) + 5); err == nil {
		t.Fatal("expected an error for an out-of-range node index")
	}
}

func TestSelfDependentDataSourceIsRejected(t *testing.T) {
	tree := scope.NewTree()
	if err := tree.DefineName(variable.DataNamespace, "loop"); err != nil {
		t.Fatal(err)
	}
	loopTask := task.NewDataSourceTask(variable.MustData("loop"), nil, task.DataSource{SourceName: "loop"})
	if _, err := Build([]task.Task{loopTask}, tree); err == nil {
		t.Fatal("expected a structural self-dependency to be rejected")
	}
}
