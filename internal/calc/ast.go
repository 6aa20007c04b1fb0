// Package calc implements the FilingIQ expression sandbox — a restricted
// arithmetic calculator with a hand-written lexer, recursive descent parser,
// AST representation, and whitelist-dispatched evaluator. It accepts binary
// arithmetic, a fixed set of math functions, the constants pi and e, and
// list/tuple literals as aggregate-function arguments. Everything else is
// rejected by construction: the evaluator dispatches over a closed set of
// node kinds and fails closed on anything it does not recognize.
package calc

import (
	"fmt"
	"strings"
)

// ════════════════════════════════════════════════════════════════════
// Error Taxonomy
// ════════════════════════════════════════════════════════════════════

// ErrorKind classifies sandbox failures.
type ErrorKind int

const (
	KindSyntax          ErrorKind = iota // unparseable text
	KindDisallowed                       // construct outside the whitelist
	KindDivisionByZero                   // / // % by zero
	KindUnknownFunction                  // call to an unregistered function
	KindUnknownName                      // bare name outside the constant set
)

func (k ErrorKind) String() string {
	switch k {
	case KindSyntax:
		return "SyntaxError"
	case KindDisallowed:
		return "DisallowedConstruct"
	case KindDivisionByZero:
		return "DivisionByZero"
	case KindUnknownFunction:
		return "UnknownFunction"
	case KindUnknownName:
		return "UnknownName"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

// EvalError is the typed error returned by every sandbox failure path.
type EvalError struct {
	Kind     ErrorKind
	Position int // byte offset in source
	Message  string
}

func (e *EvalError) Error() string {
	return fmt.Sprintf("%s at position %d: %s", e.Kind, e.Position, e.Message)
}

func errorf(kind ErrorKind, pos int, format string, args ...interface{}) *EvalError {
	return &EvalError{Kind: kind, Position: pos, Message: fmt.Sprintf(format, args...)}
}

// ════════════════════════════════════════════════════════════════════
// AST Node Types
// ════════════════════════════════════════════════════════════════════

// Node is the interface for all sandbox AST nodes.
type Node interface {
	Pos() int
	String() string
}

// NumberLiteral is a numeric constant, e.g. 42 or 3.14.
type NumberLiteral struct {
	Position int
	Value    float64
	Raw      string
}

func (n *NumberLiteral) Pos() int       { return n.Position }
func (n *NumberLiteral) String() string { return n.Raw }

// NameRef is a bare identifier. Only the whitelisted constants resolve.
type NameRef struct {
	Position int
	Name     string
}

func (n *NameRef) Pos() int       { return n.Position }
func (n *NameRef) String() string { return n.Name }

// CallExpr is a function invocation, e.g. round(3.456, 2).
type CallExpr struct {
	Position int
	Name     string // lower-cased
	Args     []Node
}

func (n *CallExpr) Pos() int { return n.Position }
func (n *CallExpr) String() string {
	parts := make([]string, len(n.Args))
	for i, a := range n.Args {
		parts[i] = a.String()
	}
	return n.Name + "(" + strings.Join(parts, ", ") + ")"
}

// ListLiteral is a [..] or (..,..) sequence, used as an argument to the
// aggregate functions min/max/sum.
type ListLiteral struct {
	Position int
	Elems    []Node
}

func (n *ListLiteral) Pos() int { return n.Position }
func (n *ListLiteral) String() string {
	parts := make([]string, len(n.Elems))
	for i, e := range n.Elems {
		parts[i] = e.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// BinaryExpr is a binary operation: + - * / // % **.
type BinaryExpr struct {
	Position int
	Op       string
	Left     Node
	Right    Node
}

func (n *BinaryExpr) Pos() int { return n.Position }
func (n *BinaryExpr) String() string {
	return fmt.Sprintf("(%s %s %s)", n.Left.String(), n.Op, n.Right.String())
}

// UnaryExpr is a unary + or -.
type UnaryExpr struct {
	Position int
	Op       string
	Operand  Node
}

func (n *UnaryExpr) Pos() int       { return n.Position }
func (n *UnaryExpr) String() string { return fmt.Sprintf("(%s%s)", n.Op, n.Operand.String()) }
