package ast

import (
	"strings"

	"github.com/sandrolain/goformula/pkg/types"
)

// Local is a reference to a script-local variable. It evaluates through the
// closures of its definition, so all references share one compiled tree.
type Local struct {
	strategy
	name string
	def  Node
}

// NewLocal returns a reference to the local variable name defined as def.
func NewLocal(name string, def Node) *Local {
	return &Local{
		strategy: sharedStrategy(def),
		name:     name,
		def:      def,
	}
}

// Name returns the variable name.
func (l *Local) Name() string { return l.name }

// Definition returns the defining expression.
func (l *Local) Definition() Node { return l.def }

func (l *Local) Children() []Node           { return []Node{l.def} }
func (l *Local) ValueType() types.ValueType { return l.def.ValueType() }
func (l *Local) IsConstant() bool           { return false }
func (l *Local) String() string             { return l.name }

// Simplify folds locals with a constant definition.
func (l *Local) Simplify() Node {
	return newSimplifier().simplify(l)
}

// Declaration is one var statement of a script.
type Declaration struct {
	Name  string
	Value Node
}

// Script is a list of local variable declarations followed by the final
// expression, which gives the script its value.
type Script struct {
	strategy
	decls []Declaration
	final Node
}

// NewScript returns a script root.
func NewScript(decls []Declaration, final Node) *Script {
	return &Script{
		strategy: sharedStrategy(final),
		decls:    decls,
		final:    final,
	}
}

// Declarations returns the var statements in order.
func (s *Script) Declarations() []Declaration { return s.decls }

// Final returns the final expression.
func (s *Script) Final() Node { return s.final }

func (s *Script) Children() []Node {
	children := make([]Node, 0, len(s.decls)+1)
	for _, d := range s.decls {
		children = append(children, d.Value)
	}
	return append(children, s.final)
}

func (s *Script) ValueType() types.ValueType { return s.final.ValueType() }
func (s *Script) IsConstant() bool           { return s.final.IsConstant() }

// Simplify simplifies every declaration and the final expression. The
// declarations are kept so the script still prints as written, and locals
// keep sharing one simplified definition.
func (s *Script) Simplify() Node {
	return newSimplifier().simplify(s)
}

func (s *Script) String() string {
	var b strings.Builder
	for _, d := range s.decls {
		b.WriteString("var ")
		b.WriteString(d.Name)
		b.WriteString(" = ")
		b.WriteString(d.Value.String())
		b.WriteString("; ")
	}
	b.WriteString(s.final.String())
	return b.String()
}
