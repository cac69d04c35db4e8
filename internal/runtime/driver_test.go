package runtime

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/zclconf/go-cty/cty"

	"github.com/vegafusion/vegafusion/internal/scope"
	"github.com/vegafusion/vegafusion/internal/task"
	"github.com/vegafusion/vegafusion/internal/taskgraph"
	"github.com/vegafusion/vegafusion/internal/transforms"
	"github.com/vegafusion/vegafusion/internal/variable"
)

// countingEvaluator wraps an underlying evaluation function but counts how
// many times each task variable's Eval was actually invoked, so tests can
// assert on cache/singleflight behavior.
type countingEvaluator struct {
	mu    sync.Mutex
	calls map[string]int
	fn    func(ctx context.Context, t task.Task, parents []task.Value) (task.Value, []task.Value, error)
}

func newCountingEvaluator(fn func(ctx context.Context, t task.Task, parents []task.Value) (task.Value, []task.Value, error)) *countingEvaluator {
	return &countingEvaluator{calls: map[string]int{}, fn: fn}
}

func (c *countingEvaluator) Eval(ctx context.Context, t task.Task, parents []task.Value) (task.Value, []task.Value, error) {
	c.mu.Lock()
	c.calls[t.Variable.Name]++
	c.mu.Unlock()
	return c.fn(ctx, t, parents)
}

func (c *countingEvaluator) count(name string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[name]
}

func buildChainGraph(t *testing.T) *taskgraph.Graph {
	t.Helper()
	tree := scope.NewTree()
	if err := tree.DefineName(variable.DataNamespace, "base"); err != nil {
		t.Fatalf("DefineName base: %v", err)
	}
	if err := tree.DefineName(variable.DataNamespace, "derived"); err != nil {
		t.Fatalf("DefineName derived: %v", err)
	}

	base := task.NewValueTask(variable.MustData("base"), nil, task.NewScalar(cty.NumberIntVal(1)))
	derived := task.NewDataSourceTask(variable.MustData("derived"), nil, task.DataSource{
		SourceName: "base",
		Pipeline:   transforms.Pipeline{},
	})

	tasks := []task.Task{base, derived}
	g, err := taskgraph.Build(tasks, tree)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return g
}

func TestDriverResolvesAndCaches(t *testing.T) {
	g := buildChainGraph(t)

	ev := newCountingEvaluator(func(ctx context.Context, tk task.Task, parents []task.Value) (task.Value, []task.Value, error) {
		return parents[0], nil, nil
	})
	d := NewDriver(g, ev)

	derivedIdx, ok := g.Lookup(variable.NewScoped(variable.MustData("derived"), nil))
	if !ok {
		t.Fatal("expected derived in graph")
	}

	ctx := context.Background()
	results, err := d.Values(ctx, []taskgraph.NodeValueIndex{derivedIdx})
	if err != nil {
		t.Fatalf("Values: %v", err)
	}
	got, _ := results[0].Value.Scalar.AsBigFloat().Int64()
	if got != 1 {
		t.Fatalf("got %d want 1", got)
	}
	if ev.count("derived") != 1 {
		t.Fatalf("expected derived evaluated once, got %d", ev.count("derived"))
	}

	// A second request for the same index, with nothing in the graph
	// having changed, must be served entirely from cache.
	if _, err := d.Values(ctx, []taskgraph.NodeValueIndex{derivedIdx}); err != nil {
		t.Fatalf("second Values: %v", err)
	}
	if ev.count("derived") != 1 {
		t.Fatalf("expected cache hit on second request, evaluator called %d times", ev.count("derived"))
	}
}

func TestDriverCollapsesConcurrentRequests(t *testing.T) {
	g := buildChainGraph(t)

	var inFlight int32
	release := make(chan struct{})
	ev := newCountingEvaluator(func(ctx context.Context, tk task.Task, parents []task.Value) (task.Value, []task.Value, error) {
		atomic.AddInt32(&inFlight, 1)
		<-release
		return parents[0], nil, nil
	})
	d := NewDriver(g, ev)

	derivedIdx, ok := g.Lookup(variable.NewScoped(variable.MustData("derived"), nil))
	if !ok {
		t.Fatal("expected derived in graph")
	}

	ctx := context.Background()
	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := d.Values(ctx, []taskgraph.NodeValueIndex{derivedIdx}); err != nil {
				t.Errorf("Values: %v", err)
			}
		}()
	}
	close(release)
	wg.Wait()

	if ev.count("derived") != 1 {
		t.Fatalf("expected exactly one evaluator call across concurrent requests, got %d", ev.count("derived"))
	}
}

func TestDriverOutOfRangeIndexIsInternalError(t *testing.T) {
	g := buildChainGraph(t)
	ev := newCountingEvaluator(func(ctx context.Context, tk task.Task, parents []task.Value) (task.Value, []task.Value, error) {
		return parents[0], nil, nil
	})
	d := NewDriver(g, ev)

	_, err := d.Values(context.Background(), []taskgraph.NodeValueIndex{{Node: len(g.Nodes) + 5}})
	if err == nil {
		t.Fatal("expected an error for an out-of-range index")
	}
}

func TestDriverEvaluatorErrorDoesNotPopulateCache(t *testing.T) {
	g := buildChainGraph(t)

	fail := true
	ev := newCountingEvaluator(func(ctx context.Context, tk task.Task, parents []task.Value) (task.Value, []task.Value, error) {
		if fail {
			return task.Value{}, nil, context.DeadlineExceeded
		}
		return parents[0], nil, nil
	})
	d := NewDriver(g, ev)

	derivedIdx, ok := g.Lookup(variable.NewScoped(variable.MustData("derived"), nil))
	if !ok {
		t.Fatal("expected derived in graph")
	}

	if _, err := d.Values(context.Background(), []taskgraph.NodeValueIndex{derivedIdx}); err == nil {
		t.Fatal("expected the first (failing) request to return an error")
	}
	if _, ok := d.cached(derivedIdx.Node, g.Nodes[derivedIdx.Node].StateFingerprint); ok {
		t.Fatal("a failed evaluation must not populate the cache")
	}

	fail = false
	if _, err := d.Values(context.Background(), []taskgraph.NodeValueIndex{derivedIdx}); err != nil {
		t.Fatalf("expected the retried request to succeed: %v", err)
	}
	if ev.count("derived") != 2 {
		t.Fatalf("expected two evaluator calls (failed then retried), got %d", ev.count("derived"))
	}
}
