package parser

import (
	"unicode"

	"github.com/sandrolain/goformula/pkg/ast"
	"github.com/sandrolain/goformula/pkg/types"
)

// Scope is the name table of one script: the local variables declared so far.
// Nested parsers borrow it for the duration of one parse and never keep it.
type Scope struct {
	defs map[string]ast.Node
}

func newScope() *Scope {
	return &Scope{defs: make(map[string]ast.Node)}
}

// Lookup returns the definition of a local variable. It is safe on a nil
// Scope.
func (s *Scope) Lookup(name string) (ast.Node, bool) {
	if s == nil {
		return nil, false
	}
	def, ok := s.defs[name]
	return def, ok
}

// Len returns the number of declared variables.
func (s *Scope) Len() int {
	if s == nil {
		return 0
	}
	return len(s.defs)
}

func (s *Scope) declare(name string, def ast.Node) {
	s.defs[name] = def
}

// validVariableName reports whether name is alphanumeric and starts with a
// letter.
func validVariableName(name string) bool {
	for i, r := range name {
		if !unicode.IsLetter(r) && (i == 0 || !unicode.IsDigit(r)) {
			return false
		}
	}
	return name != ""
}

// parseScript parses 'var name = expr;' declarations followed by the final
// expression. Each right-hand side and the final expression are parsed by a
// nested parser from the pool, which sees the declarations before it.
func (p *Parser) parseScript() (ast.Node, error) {
	scope := newScope()
	var decls []ast.Declaration
	for p.atDeclaration() {
		decl, err := p.parseDeclaration(scope)
		if err != nil {
			return nil, err
		}
		decls = append(decls, decl)
	}

	final, err := p.parseStatement(scope, true)
	if err != nil {
		return nil, err
	}
	if len(decls) == 0 {
		return final, nil
	}
	return ast.NewScript(decls, final), nil
}

// atDeclaration reports whether the cursor is on the var keyword of a
// declaration. A lone identifier named var is left to the resolvers.
func (p *Parser) atDeclaration() bool {
	tok := p.tokens.Current()
	if tok.Type != TokenIdentifier || tok.Content != "var" {
		return false
	}
	switch p.tokens.Next(1).Type {
	case TokenIdentifier, TokenInteger, TokenDecimal, TokenScientific, TokenString:
		return true
	}
	return false
}

func (p *Parser) parseDeclaration(scope *Scope) (ast.Declaration, error) {
	p.tokens.Consume()
	tok := p.tokens.Consume()
	name := tok.Content
	if tok.Type != TokenIdentifier || !validVariableName(name) {
		return ast.Declaration{}, types.Errorf(types.ErrInvalidVariableName, tok.Pos, "invalid variable name %q", tok.Trigger)
	}
	if err := p.checkConflict(scope, name, tok.Pos); err != nil {
		return ast.Declaration{}, err
	}
	if err := p.expect("="); err != nil {
		return ast.Declaration{}, err
	}

	def, err := p.parseStatement(scope, false)
	if err != nil {
		return ast.Declaration{}, err
	}
	scope.declare(name, def)
	return ast.Declaration{Name: name, Value: def}, nil
}

// checkConflict rejects names already bound in the script or resolvable as a
// host variable or function.
func (p *Parser) checkConflict(scope *Scope, name string, pos types.Position) error {
	if _, ok := scope.Lookup(name); ok {
		return types.Errorf(types.ErrNamingConflict, pos, "variable %q is already declared", name)
	}
	if _, ok := p.lookupVariable(p.opts.Context, name); ok {
		return types.Errorf(types.ErrNamingConflict, pos, "variable %q conflicts with an existing variable", name)
	}
	if _, ok := p.lookupFunction(p.opts.Context, name); ok {
		return types.Errorf(types.ErrNamingConflict, pos, "variable %q conflicts with function %q", name, name)
	}
	return nil
}

// parseStatement delimits one statement, up to a ';' outside brackets, and
// parses its text with a nested parser. Declarations must end with ';'; the
// final expression may, as long as nothing follows.
func (p *Parser) parseStatement(scope *Scope, final bool) (ast.Node, error) {
	first := p.tokens.Current()
	switch {
	case first.Type == TokenError:
		return nil, p.lexer.Error()
	case first.Type == TokenEOF || first.Is(";"):
		return nil, types.NewError(types.ErrEmptyExpression, "empty expression", first.Pos)
	}

	depth := 0
	var last Token
	for {
		tok := p.tokens.Current()
		if tok.Type == TokenError {
			return nil, p.lexer.Error()
		}
		if tok.Type == TokenEOF || (depth == 0 && tok.Is(";")) {
			break
		}
		if tok.Type == TokenSymbol {
			switch tok.Trigger {
			case "(", "[", "{":
				depth++
			case ")", "]", "}":
				depth--
			}
		}
		last = p.tokens.Consume()
	}

	end := p.tokens.Current()
	switch {
	case !final && !end.Is(";"):
		return nil, types.Errorf(types.ErrExpectedToken, end.Pos, "expected %q but got %s", ";", end.describe())
	case end.Is(";"):
		p.tokens.Consume()
		if after := p.tokens.Current(); final && after.Type != TokenEOF {
			return nil, p.unexpected(after)
		}
	}

	text := p.input[first.Pos.Offset:last.Pos.End()]
	return p.parseNested(text, first.Pos, scope)
}

// parseNested parses text with a pooled parser borrowing scope. Errors are
// moved into the position space of the enclosing input, where text starts at
// base.
func (p *Parser) parseNested(text string, base types.Position, scope *Scope) (ast.Node, error) {
	opts := p.opts
	opts.MultiStatement = false
	opts.Simplify = false

	var node ast.Node
	err := opts.Pool.With(func(nested *Parser) error {
		n, err := nested.parse(text, opts, scope)
		if err != nil {
			return err
		}
		node = n
		return nil
	})
	if err != nil {
		if perr, ok := err.(*types.Error); ok {
			perr.Translate(base)
		}
		return nil, err
	}
	return node, nil
}
