package runtime

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/vegafusion/vegafusion/internal/task"
	"github.com/vegafusion/vegafusion/internal/taskgraph"
	"github.com/vegafusion/vegafusion/internal/vferrors"
)

// ResponseValue is one addressable value the driver produced for a request,
// named by its graph index rather than a scoped variable -- callers that
// need the (scope, variable) pair (spec.md section 4.H step 4 "return
// requested values as (scope, variable, value) triples") look it up via
// Graph.DefinedVariables/Graph.Lookup themselves; wire.NewResponseValue
// takes the scoped variable as an argument and does no lookup.
type ResponseValue struct {
	Index taskgraph.NodeValueIndex
	Value task.Value
}

// cacheEntry is one node's last-computed result, keyed (outside this
// struct) by node index, and guarded against a stale read by comparing the
// node's current StateFingerprint at lookup time -- a node whose upstream
// inputs changed gets a new fingerprint and so never observes another
// node's cached entry, without needing to invalidate anything explicitly
// (spec.md section 4.H step 2, section 5 "value cache is keyed by content
// hash").
type cacheEntry struct {
	fingerprint uint64
	primary     task.Value
	outputs     []task.Value
}

// Driver is the runtime evaluation driver (spec.md section 4.H, component
// H): given a built graph and a collaborator that can actually run a
// task's transform against resolved parent values, it answers requests for
// a set of NodeValueIndex by walking their ancestor closure in topological
// order, reusing cached per-node results whenever a node's state
// fingerprint hasn't changed, and evaluating the rest concurrently.
//
// Grounded on the teacher's execution-graph runner
// (internal/engine/internal/execgraph/compiled.go): that code fans
// independent steps out across goroutines under a sync.WaitGroup and
// collects diagnostics behind a mutex. This driver uses
// golang.org/x/sync/errgroup for the same fan-out (a failing node cancels
// its siblings through the shared context) and
// golang.org/x/sync/singleflight to collapse two concurrent requests that
// need the same (by fingerprint) node into one evaluator call, which the
// teacher's goroutine-per-step design doesn't need since Terraform's graph
// is evaluated by a single planning request at a time.
type Driver struct {
	graph     *taskgraph.Graph
	evaluator TransformEvaluator

	mu    sync.RWMutex
	cache map[int]cacheEntry

	group singleflight.Group
}

// NewDriver constructs a Driver over graph, using evaluator to actually run
// each task's pipeline.
func NewDriver(graph *taskgraph.Graph, evaluator TransformEvaluator) *Driver {
	return &Driver{
		graph:     graph,
		evaluator: evaluator,
		cache:     make(map[int]cacheEntry),
	}
}

// Values resolves every requested index, evaluating exactly the ancestor
// nodes whose cached result is missing or stale, and returns one
// ResponseValue per requested index in the same order (spec.md section
// 4.H steps 1-4).
//
// Cancelling ctx (or a context.DeadlineExceeded timeout) aborts any
// in-flight evaluation; nodes that had already committed a result to the
// cache before the cancellation keep that cached entry (spec.md section 5
// "cancellation ... discards in-flight evaluations while retaining cached
// results").
func (d *Driver) Values(ctx context.Context, indices []taskgraph.NodeValueIndex) ([]ResponseValue, error) {
	for _, idx := range indices {
		if _, err := d.graph.Node(idx.Node); err != nil {
			return nil, err
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, idx := range indices {
		idx := idx
		g.Go(func() error {
			_, err := d.resolve(gctx, idx.Node)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]ResponseValue, len(indices))
	for i, idx := range indices {
		entry, err := d.resolve(ctx, idx.Node)
		if err != nil {
			return nil, err
		}
		v, err := selectSlot(entry, idx.OutputSlot)
		if err != nil {
			return nil, err
		}
		out[i] = ResponseValue{Index: idx, Value: v}
	}
	return out, nil
}

// resolve returns node i's up-to-date cacheEntry, recursively resolving
// its parents first (each node's evaluator is called at most once per
// batch even when several requested indices share an ancestor, because
// concurrent callers for the same node index collapse onto one
// singleflight call below).
func (d *Driver) resolve(ctx context.Context, i int) (cacheEntry, error) {
	node, err := d.graph.Node(i)
	if err != nil {
		return cacheEntry{}, err
	}

	if entry, ok := d.cached(i, node.StateFingerprint); ok {
		return entry, nil
	}

	key := fmt.Sprintf("%d@%x", i, node.StateFingerprint)
	v, err, _ := d.group.Do(key, func() (any, error) {
		// Re-check after acquiring the singleflight slot: another caller
		// may have just committed this exact fingerprint.
		if entry, ok := d.cached(i, node.StateFingerprint); ok {
			return entry, nil
		}

		g, gctx := errgroup.WithContext(ctx)
		parentEntries := make([]cacheEntry, len(node.Incoming))
		for k, e := range node.Incoming {
			k, e := k, e
			g.Go(func() error {
				entry, err := d.resolve(gctx, e.Node)
				if err != nil {
					return err
				}
				parentEntries[k] = entry
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}

		parentValues := make([]task.Value, len(node.Incoming))
		for k, e := range node.Incoming {
			pv, err := selectSlot(parentEntries[k], e.OutputSlot)
			if err != nil {
				return nil, err
			}
			parentValues[k] = pv
		}

		if node.Task.Kind == task.ValueKind {
			value, err := node.Task.ToValue()
			if err != nil {
				return nil, err
			}
			entry := cacheEntry{fingerprint: node.StateFingerprint, primary: value}
			d.commit(i, entry)
			return entry, nil
		}

		primary, outputs, err := d.evaluator.Eval(ctx, node.Task, parentValues)
		if err != nil {
			return nil, vferrors.Wrap(vferrors.External, err).WithContext("evaluating node %d", i)
		}
		entry := cacheEntry{fingerprint: node.StateFingerprint, primary: primary, outputs: outputs}
		d.commit(i, entry)
		return entry, nil
	})
	if err != nil {
		return cacheEntry{}, err
	}
	return v.(cacheEntry), nil
}

func (d *Driver) cached(i int, fingerprint uint64) (cacheEntry, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	entry, ok := d.cache[i]
	if !ok || entry.fingerprint != fingerprint {
		return cacheEntry{}, false
	}
	return entry, true
}

func (d *Driver) commit(i int, entry cacheEntry) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cache[i] = entry
}

func selectSlot(entry cacheEntry, slot *int) (task.Value, error) {
	if slot == nil {
		return entry.primary, nil
	}
	if *slot < 0 || *slot >= len(entry.outputs) {
		return task.Value{}, vferrors.Internalf("output slot %d out of range (have %d)", *slot, len(entry.outputs))
	}
	return entry.outputs[*slot], nil
}
