// Package variable implements the Variable and ScopedVariable identity
// model (spec.md section 3, component A): hierarchical Vega names mapped
// to a flat, hashable, orderable identity.
//
// Grounded on vegafusion-core/src/variable/mod.rs (namespace + name,
// lexicographic ordering by namespace then name, structural equality and
// hashing) and on the teacher's generic addrs.Set[T UniqueKeyer] pattern
// (internal/addrs/set.go) for the collection types built on top.
package variable

import (
	"fmt"
	"strings"

	"github.com/vegafusion/vegafusion/internal/vferrors"
)

// Namespace is one of the three kinds of name a Vega specification can
// define at a given scope.
type Namespace int

const (
	SignalNamespace Namespace = iota
	DataNamespace
	ScaleNamespace
)

func (n Namespace) String() string {
	switch n {
	case SignalNamespace:
		return "signal"
	case DataNamespace:
		return "data"
	case ScaleNamespace:
		return "scale"
	default:
		return "unknown"
	}
}

// Variable is an unscoped (namespace, name) pair. Ordering is
// lexicographic first by namespace then by name; equality and hashing are
// structural (via the UniqueKey method, consumed by Set/Map below).
type Variable struct {
	Namespace Namespace
	Name      string
}

// New constructs a Variable, rejecting colon-containing names the way the
// original implementation panics on construction: here it's a recoverable
// specification error instead, since names can originate from
// user-authored Vega JSON.
func New(ns Namespace, name string) (Variable, error) {
	if name == "" {
		return Variable{}, vferrors.Specf("variable name must not be empty")
	}
	if strings.Contains(name, ":") {
		return Variable{}, vferrors.Specf("variable name %q must not contain ':'", name)
	}
	return Variable{Namespace: ns, Name: name}, nil
}

func Signal(name string) (Variable, error) { return New(SignalNamespace, name) }
func Data(name string) (Variable, error)   { return New(DataNamespace, name) }
func Scale(name string) (Variable, error)  { return New(ScaleNamespace, name) }

// MustSignal/MustData/MustScale panic on invalid names; intended for tests
// and for call sites constructing variables from constants known good at
// compile time.
func MustSignal(name string) Variable { return must(Signal(name)) }
func MustData(name string) Variable   { return must(Data(name)) }
func MustScale(name string) Variable  { return must(Scale(name)) }

func must(v Variable, err error) Variable {
	if err != nil {
		panic(err)
	}
	return v
}

// Less implements the namespace-then-name ordering used for deterministic
// iteration everywhere a Variable set or map must be serialized or hashed.
func (v Variable) Less(other Variable) bool {
	if v.Namespace != other.Namespace {
		return v.Namespace < other.Namespace
	}
	return v.Name < other.Name
}

func (v Variable) String() string {
	return fmt.Sprintf("%s.%s", v.Namespace, v.Name)
}

// UniqueKey satisfies UniqueKeyer so Variable can be used directly as a
// Set[Variable] or Map[Variable, V] element.
func (v Variable) UniqueKey() string {
	return v.Namespace.String() + ":" + v.Name
}

// Scoped pairs a Variable with the scope path at which it was resolved:
// the canonical key used throughout the task graph.
type Scoped struct {
	Var   Variable
	Scope []uint32
}

func NewScoped(v Variable, scope []uint32) Scoped {
	return Scoped{Var: v, Scope: append([]uint32(nil), scope...)}
}

func (s Scoped) String() string {
	return fmt.Sprintf("%s@%v", s.Var, s.Scope)
}

// UniqueKey satisfies UniqueKeyer.
func (s Scoped) UniqueKey() string {
	var buf strings.Builder
	buf.WriteString(s.Var.UniqueKey())
	buf.WriteByte('@')
	for i, idx := range s.Scope {
		if i > 0 {
			buf.WriteByte('.')
		}
		fmt.Fprintf(&buf, "%d", idx)
	}
	return buf.String()
}

// Less orders Scoped variables lexicographically by (namespace, name,
// scope), matching spec.md section 6's comm-plan JSON determinism
// requirement.
func (s Scoped) Less(other Scoped) bool {
	if s.Var != other.Var {
		return s.Var.Less(other.Var)
	}
	n := len(s.Scope)
	if len(other.Scope) < n {
		n = len(other.Scope)
	}
	for i := 0; i < n; i++ {
		if s.Scope[i] != other.Scope[i] {
			return s.Scope[i] < other.Scope[i]
		}
	}
	return len(s.Scope) < len(other.Scope)
}
