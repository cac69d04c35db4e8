package planner

import (
	"github.com/vegafusion/vegafusion/internal/chartspec"
	"github.com/vegafusion/vegafusion/internal/colusage"
	"github.com/vegafusion/vegafusion/internal/scope"
	"github.com/vegafusion/vegafusion/internal/transforms"
	"github.com/vegafusion/vegafusion/internal/variable"
)

// applyProjectionPushdown computes each server dataset's downstream column
// usage -- unioning every consumer's demand on it, propagated back through
// each consumer's own pipeline and, recursively, through what that
// consumer's own consumers need from it -- and, when the result is Known,
// appends a transforms.Project selecting exactly those columns to the end
// of its pipeline (spec.md section 4.G step 3). Consumers are other
// extractable datasets whose source is this one, plus mark encode channels
// in the ORIGINAL (pre-stub) spec that read this dataset's fields directly.
func applyProjectionPushdown(
	sites []dataSite,
	extractable map[string]bool,
	pipelines map[string]transforms.Pipeline,
	spec *chartspec.Spec,
	tree *scope.Tree,
) {
	markFieldUsage := collectMarkFieldUsage(spec, tree, nil)

	usageMemo := map[string]colusage.Usage{}
	hasConsumer := map[string]bool{}
	resolving := map[string]bool{}

	// resolvedUsage computes what ds's output must supply to satisfy every
	// consumer that reads it, recursing into a data-to-data consumer's own
	// resolvedUsage rather than seeding its pipeline's backward pass with a
	// blanket Unknown -- otherwise any multi-hop chain whose last transform
	// isn't Aggregate/Project (Filter, Bin, Formula, ...) would collapse to
	// Unknown for the whole chain, since Usage.Union with Unknown absorbs.
	var resolvedUsage func(ds dataSite) colusage.Usage
	resolvedUsage = func(ds dataSite) colusage.Usage {
		key := siteKey(ds)
		if u, ok := usageMemo[key]; ok {
			return u
		}
		if resolving[key] {
			// taskgraph.Build rejects a structurally self-dependent
			// dataset, so a genuine cycle shouldn't reach here; guard
			// against one anyway rather than recurse forever.
			return colusage.Unknown()
		}
		resolving[key] = true
		defer delete(resolving, key)

		usage := colusage.Empty()
		sawConsumer := false

		for _, consumer := range sites {
			if consumer.Data.Source != ds.Data.Name {
				continue
			}
			consumerKey := siteKey(consumer)
			if !extractable[consumerKey] {
				// A client-side sibling still reads ds's unprojected
				// output via the comm plan; conservatively disable
				// pushdown rather than guess its column needs.
				usage = colusage.Unknown()
				sawConsumer = true
				continue
			}
			isKnown := tree.IsKnownNameAt(consumer.Scope)
			ctx := transforms.ResolveContext{
				IsKnownName:    isKnown,
				ResolveDataset: tree.ResolveDatasetAt(consumer.Scope),
			}
			consumerPipeline := pipelines[consumerKey]
			usage = usage.Union(consumerPipeline.DownstreamColumnUsage(ctx, resolvedUsage(consumer)))
			sawConsumer = true
		}

		if fields, ok := markFieldUsage[key]; ok {
			usage = usage.Union(fields)
			sawConsumer = true
		}

		if !sawConsumer {
			// Nothing observed reads ds at all; don't claim to know its
			// demand is empty (the same zero-column-projection hazard
			// collectMarkFieldUsage guards against below).
			usage = colusage.Unknown()
		}

		hasConsumer[key] = sawConsumer
		usageMemo[key] = usage
		return usage
	}

	for _, producer := range sites {
		producerKey := siteKey(producer)
		if !extractable[producerKey] {
			continue
		}

		usage := resolvedUsage(producer)
		if !hasConsumer[producerKey] || usage.IsUnknown() {
			continue
		}

		pipeline := pipelines[producerKey]
		pipeline.Transforms = append(pipeline.Transforms, transforms.Project{Fields: usage.Columns()})
		pipelines[producerKey] = pipeline
	}
}

// collectMarkFieldUsage scans every mark's encode set for field references
// against its backing dataset (mark.from.data), keyed by the producing
// dataset's siteKey. The key is resolved outward through tree from the
// mark's own scope (the same way any other variable reference resolves, per
// spec.md section 4.A), so a mark nested in a group correctly attributes
// its usage to a dataset defined by an ancestor scope instead of building a
// key that can never match that producer's own siteKey.
func collectMarkFieldUsage(spec *chartspec.Spec, tree *scope.Tree, path []uint32) map[string]colusage.Usage {
	out := map[string]colusage.Usage{}
	var walk func(s *chartspec.Spec, path []uint32)
	walk = func(s *chartspec.Spec, path []uint32) {
		for i, m := range s.Marks {
			if m.From != nil && m.From.Data != "" {
				key := resolvedSiteKey(tree, variable.MustData(m.From.Data), path)
				usage := out[key]
				sawField := false
				for _, channels := range m.Encode {
					for _, ch := range channels {
						if ch.Field != "" {
							usage = usage.WithColumn(ch.Field)
							sawField = true
						}
					}
				}
				if !sawField {
					// A mark backed by this dataset with no field-referencing
					// encode channel might still read arbitrary columns (a
					// tooltip expression, say); treat conservatively as
					// Unknown rather than claim zero columns are needed.
					usage = colusage.Unknown()
				}
				out[key] = usage
			}
			if m.IsGroup() {
				childPath := append(append([]uint32(nil), path...), uint32(i))
				childSpec := &chartspec.Spec{Signals: m.Signals, Data: m.Data, Scales: m.Scales, Marks: m.Marks}
				walk(childSpec, childPath)
			}
		}
	}
	walk(spec, path)
	return out
}

// resolvedSiteKey resolves v as referenced from usageScope to its defining
// scope and renders the same (namespace, name, scope) key siteKey produces
// for a dataSite, so a lookup against markFieldUsage matches regardless of
// which scope the reference was made from.
func resolvedSiteKey(tree *scope.Tree, v variable.Variable, usageScope []uint32) string {
	resolved, err := tree.ResolveScope(v, usageScope)
	if err != nil {
		return variable.NewScoped(v, usageScope).UniqueKey()
	}
	return variable.NewScoped(resolved.Var, resolved.Scope).UniqueKey()
}
