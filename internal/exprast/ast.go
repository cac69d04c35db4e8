// Package exprast defines the minimal Vega expression AST surface that the
// planning core needs. The actual expression parser is an external
// collaborator (spec.md section 1): this package never parses expression
// strings itself, only declares the node shapes a parser hands back, the
// way the teacher treats hcl.Expression/hcl.Traversal as an externally
// produced but locally walkable structure (internal/lang/eval).
package exprast

// Node is implemented by every expression AST node kind the core needs to
// recognize while extracting dependencies. It is intentionally a closed,
// small set: identifiers, member access, calls, conditionals, binary/unary
// operators, and literals cover everything input_vars/update_vars/
// column_usage need to see.
type Node interface {
	exprNode()
}

// Identifier is a bare name reference, e.g. `width`.
type Identifier struct {
	Name string
}

func (*Identifier) exprNode() {}

// Member is dotted/bracket member access, e.g. `datum.value` or
// `data('table')[0].field`.
type Member struct {
	Object   Node
	Property Node // Identifier for `.prop`, any Node for `[expr]`
	Computed bool
}

func (*Member) exprNode() {}

// Call is a function call, e.g. `data('table')` or `modify('brush', ...)`.
type Call struct {
	Callee Node
	Args   []Node
}

func (*Call) exprNode() {}

// Conditional is a ternary expression `test ? consequent : alternate`.
type Conditional struct {
	Test, Consequent, Alternate Node
}

func (*Conditional) exprNode() {}

// Binary is a binary operator expression, e.g. `a + b`.
type Binary struct {
	Operator    string
	Left, Right Node
}

func (*Binary) exprNode() {}

// Unary is a unary operator expression, e.g. `!a`.
type Unary struct {
	Operator string
	Argument Node
}

func (*Unary) exprNode() {}

// Literal is a constant value; its content is not inspected by dependency
// analysis but may be inspected by column_usage for calls like
// `data('table_name')` where the table name is literal.
type Literal struct {
	Value any
}

func (*Literal) exprNode() {}

// Array is an array literal, e.g. `[a, b]`.
type Array struct {
	Elements []Node
}

func (*Array) exprNode() {}

// Object is an object literal, e.g. `{a: 1, b: c}`.
type Object struct {
	Keys   []string
	Values []Node
}

func (*Object) exprNode() {}

// Children returns the direct child nodes of n, in evaluation order, for
// use by a generic depth-first walker. Returns nil for leaf nodes
// (Identifier, Literal).
func Children(n Node) []Node {
	switch n := n.(type) {
	case *Identifier, *Literal, nil:
		return nil
	case *Member:
		if n.Computed {
			return []Node{n.Object, n.Property}
		}
		return []Node{n.Object}
	case *Call:
		children := make([]Node, 0, len(n.Args)+1)
		children = append(children, n.Callee)
		children = append(children, n.Args...)
		return children
	case *Conditional:
		return []Node{n.Test, n.Consequent, n.Alternate}
	case *Binary:
		return []Node{n.Left, n.Right}
	case *Unary:
		return []Node{n.Argument}
	case *Array:
		return n.Elements
	case *Object:
		return n.Values
	default:
		return nil
	}
}

// Walk calls visit for n and every descendant, depth-first pre-order.
func Walk(n Node, visit func(Node)) {
	if n == nil {
		return
	}
	visit(n)
	for _, child := range Children(n) {
		Walk(child, visit)
	}
}
