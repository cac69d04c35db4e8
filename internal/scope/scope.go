// Package scope implements the TaskScope tree (spec.md section 3 & 4.A): a
// tree mirroring the group-mark hierarchy of a Vega specification, used to
// resolve a name referenced at one scope to the scope that actually
// defines it.
//
// Grounded on vegafusion-core's TaskScope (scope resolution walks outward
// from the usage scope) and on the teacher's addrs package, which models
// scope-qualified name resolution as a read-only tree built once at
// planning time (internal/addrs/scope.go: "the scope tree is built once at
// planning; afterwards it is read-only").
package scope

import (
	"github.com/vegafusion/vegafusion/internal/variable"
	"github.com/vegafusion/vegafusion/internal/vferrors"
)

// Tree is one node of the TaskScope tree. The root Tree corresponds to the
// empty scope; Children[i] corresponds to the i'th group mark nested
// directly under this node.
type Tree struct {
	signals map[string]bool
	data    map[string]bool
	scales  map[string]bool

	// outputSignals maps an output signal name (published by a data
	// transform, e.g. "extent") to the data variable name that defines it.
	outputSignals map[string]string

	Children []*Tree
}

func NewTree() *Tree {
	return &Tree{
		signals:       map[string]bool{},
		data:          map[string]bool{},
		scales:        map[string]bool{},
		outputSignals: map[string]string{},
	}
}

// DefineName records that the given namespace+name is defined at this
// scope node. Returns a Specification error on a name collision within the
// same scope and namespace (spec.md section 4.A).
func (t *Tree) DefineName(ns variable.Namespace, name string) error {
	set := t.setFor(ns)
	if set[name] {
		return vferrors.Specf("name collision: %s %q is already defined in this scope", ns, name)
	}
	set[name] = true
	return nil
}

// DefineOutputSignal records that a data transform at this scope publishes
// an output signal with the given name, backed by the given data variable.
func (t *Tree) DefineOutputSignal(signalName, dataName string) error {
	if t.signals[signalName] {
		return vferrors.Specf("name collision: signal %q is already defined in this scope", signalName)
	}
	if _, exists := t.outputSignals[signalName]; exists {
		return vferrors.Specf("name collision: output signal %q is already defined in this scope", signalName)
	}
	t.outputSignals[signalName] = dataName
	return nil
}

func (t *Tree) setFor(ns variable.Namespace) map[string]bool {
	switch ns {
	case variable.SignalNamespace:
		return t.signals
	case variable.DataNamespace:
		return t.data
	case variable.ScaleNamespace:
		return t.scales
	default:
		panic("unknown namespace")
	}
}

// GetChild traverses to the child at path, creating intermediate children
// as needed. Used while building the tree (MakeTaskScope pass).
func (t *Tree) GetChild(path []uint32) *Tree {
	node := t
	for _, idx := range path {
		for uint32(len(node.Children)) <= idx {
			node.Children = append(node.Children, NewTree())
		}
		node = node.Children[idx]
	}
	return node
}

// GetChildMut traverses to the child at path without creating anything;
// fails with an Internal error if any index is out of range, per spec.md
// section 4.A.
func (t *Tree) GetChildMut(path []uint32) (*Tree, error) {
	node := t
	for _, idx := range path {
		if idx >= uint32(len(node.Children)) {
			return nil, vferrors.Internalf("scope child index %d out of range (have %d children)", idx, len(node.Children))
		}
		node = node.Children[idx]
	}
	return node, nil
}

// Resolved is the outcome of resolving a name reference: the variable
// found, the scope path at which it was defined, and (if the reference hit
// an output-signal mapping) the underlying data variable it names.
type Resolved struct {
	Var         variable.Variable
	Scope       []uint32
	OutputVar   *variable.Variable
}

// ResolveScope walks usageScope from innermost to root looking for a
// definition of v's namespace and name, per spec.md section 4.A. A signal
// reference may additionally match an output-signal mapping at some level,
// in which case the result names the underlying Data variable with
// OutputVar set to the originally requested signal.
func (t *Tree) ResolveScope(v variable.Variable, usageScope []uint32) (Resolved, error) {
	for depth := len(usageScope); depth >= 0; depth-- {
		node, err := t.GetChildMut(usageScope[:depth])
		if err != nil {
			return Resolved{}, err
		}
		if node.setFor(v.Namespace)[v.Name] {
			return Resolved{Var: v, Scope: append([]uint32(nil), usageScope[:depth]...)}, nil
		}
		if v.Namespace == variable.SignalNamespace {
			if dataName, ok := node.outputSignals[v.Name]; ok {
				dataVar := variable.MustData(dataName)
				sig := v
				return Resolved{
					Var:       dataVar,
					Scope:     append([]uint32(nil), usageScope[:depth]...),
					OutputVar: &sig,
				}, nil
			}
		}
	}
	return Resolved{}, vferrors.Specf("unable to resolve %s %q from scope %v", v.Namespace, v.Name, usageScope)
}

// IsKnownNameAt returns a callback resolving a bare identifier to whichever
// kind of variable it names when referenced from usageScope, trying
// Signal first since that's how a bare Vega expression identifier
// resolves, then Data, then Scale. Used to supply
// transforms.ResolveContext.IsKnownName and exprdeps's isKnownName
// parameter from a single scope-tree lookup.
func (t *Tree) IsKnownNameAt(usageScope []uint32) func(string) (variable.Variable, bool) {
	return func(name string) (variable.Variable, bool) {
		for _, v := range []variable.Variable{
			variable.MustSignal(name),
			variable.MustData(name),
			variable.MustScale(name),
		} {
			if _, err := t.ResolveScope(v, usageScope); err == nil {
				return v, true
			}
		}
		return variable.Variable{}, false
	}
}

// ResolveDatasetAt returns a callback resolving a literal dataset name
// (the kind found as the first argument of a Vega expression's data(...)
// accessor) to the scoped Data variable it names when referenced from
// usageScope. Used to supply transforms.ResolveContext.ResolveDataset.
func (t *Tree) ResolveDatasetAt(usageScope []uint32) func(string) (variable.Scoped, bool) {
	return func(name string) (variable.Scoped, bool) {
		resolved, err := t.ResolveScope(variable.MustData(name), usageScope)
		if err != nil {
			return variable.Scoped{}, false
		}
		return variable.NewScoped(resolved.Var, resolved.Scope), true
	}
}
