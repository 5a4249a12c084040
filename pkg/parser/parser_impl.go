package parser

import (
	"errors"
	"strconv"
	"strings"

	"github.com/sandrolain/goformula/pkg/ast"
	"github.com/sandrolain/goformula/pkg/lookahead"
	"github.com/sandrolain/goformula/pkg/types"
)

// Parser implements a recursive descent parser for formulas.
// It uses Pratt's "Top Down Operator Precedence" algorithm to handle
// operator precedence correctly.
//
// A Parser holds cursor state and is not safe for concurrent use. Instances
// are normally taken from a Pool.
type Parser struct {
	lexer  *Lexer
	tokens *lookahead.Reader[Token]
	input  string
	opts   CompileOptions
	// scope is borrowed from the enclosing script for one parse.
	scope *Scope
	// pending is the positive half of a negative literal split into binary
	// minus, consumed by the next parsePrefix.
	pending *Token
	depth   int
}

func newParser() *Parser {
	p := &Parser{lexer: NewLexer("", false)}
	p.tokens = lookahead.New(p.fetch, Token{Type: TokenEOF})
	return p
}

func (p *Parser) fetch() (Token, bool) {
	t := p.lexer.Next()
	if t.Type == TokenEOF {
		p.tokens.SetEnd(t)
		return t, false
	}
	return t, true
}

// reset clears all scratch state.
func (p *Parser) reset() {
	p.lexer.Reset("", false)
	p.tokens.Reset(nil)
	p.tokens.SetEnd(Token{Type: TokenEOF})
	p.input = ""
	p.opts = CompileOptions{}
	p.scope = nil
	p.pending = nil
	p.depth = 0
}

// Parse parses input with opts and returns the root node. The parser is reset
// before returning, whether the parse succeeded or not.
func (p *Parser) Parse(input string, opts CompileOptions) (ast.Node, error) {
	return p.parse(input, opts, nil)
}

func (p *Parser) parse(input string, opts CompileOptions, scope *Scope) (ast.Node, error) {
	defer p.reset()
	if opts.Pool == nil {
		opts.Pool = defaultPool
	}
	p.input = input
	p.opts = opts
	p.scope = scope
	p.lexer.Reset(input, opts.MultiStatement)
	p.tokens.Reset(p.fetch)

	var node ast.Node
	var err error
	if opts.MultiStatement {
		node, err = p.parseScript()
	} else {
		node, err = p.parseAll()
	}
	if err != nil {
		return nil, err
	}
	if opts.Simplify {
		node = node.Simplify()
	}
	return node, nil
}

// parseAll parses a single expression spanning the whole input.
func (p *Parser) parseAll() (ast.Node, error) {
	tok := p.tokens.Current()
	switch tok.Type {
	case TokenError:
		return nil, p.lexer.Error()
	case TokenEOF:
		return nil, types.NewError(types.ErrEmptyExpression, "empty expression", tok.Pos)
	}

	node, err := p.parseExpression(0)
	if err != nil {
		return nil, err
	}

	if tok := p.tokens.Current(); tok.Type != TokenEOF {
		return nil, p.unexpected(tok)
	}
	return node, nil
}

// Operator precedence table (binding power)
// Higher values bind more tightly
type operator struct {
	power int
	right bool // right-associative
}

var binaryOperators = map[string]operator{
	"||": {power: 10},
	"&&": {power: 20},
	"==": {power: 30},
	"!=": {power: 30},
	"<>": {power: 30},
	"<":  {power: 40},
	"<=": {power: 40},
	">":  {power: 40},
	">=": {power: 40},
	"+":  {power: 50},
	"-":  {power: 50},
	"*":  {power: 60},
	"/":  {power: 60},
	"%":  {power: 60},
	"**": {power: 70, right: true},
	"^":  {power: 70, right: true},
}

type infix struct {
	symbol string
	operator
	split bool // a negative literal read as minus
}

// infixAt returns the binary operator at the cursor, if any.
func (p *Parser) infixAt() (infix, bool) {
	tok := p.tokens.Current()
	switch {
	case tok.Type == TokenSymbol:
		op, ok := binaryOperators[tok.Trigger]
		return infix{symbol: tok.Trigger, operator: op}, ok
	case tok.IsNumber() && strings.HasPrefix(tok.Content, "-"):
		return infix{symbol: "-", operator: binaryOperators["-"], split: true}, true
	}
	return infix{}, false
}

// parseExpression parses an expression with operator precedence.
// rbp is the right binding power (minimum precedence).
func (p *Parser) parseExpression(rbp int) (ast.Node, error) {
	p.depth++
	defer func() { p.depth-- }()
	if p.opts.MaxDepth > 0 && p.depth > p.opts.MaxDepth {
		return nil, types.NewError(types.ErrTooDeep, "nesting too deep", p.tokens.Current().Pos)
	}

	// Parse prefix expression (nud - null denotation)
	left, err := p.parsePrefix()
	if err != nil {
		return nil, err
	}

	// Parse infix expressions while precedence allows (led - left denotation)
	for {
		op, ok := p.infixAt()
		if !ok || op.power <= rbp {
			break
		}
		left, err = p.parseInfix(left, op)
		if err != nil {
			return nil, err
		}
	}
	return left, nil
}

// parsePrefix parses a prefix expression (nud - null denotation).
// These are expressions that don't require a left-hand side.
func (p *Parser) parsePrefix() (ast.Node, error) {
	if p.pending != nil {
		tok := *p.pending
		p.pending = nil
		return p.parseNumber(tok)
	}

	tok := p.tokens.Current()
	switch tok.Type {
	case TokenError:
		return nil, p.lexer.Error()
	case TokenEOF:
		return nil, types.NewError(types.ErrUnexpectedToken, "unexpected end of input, expected an expression", tok.Pos)
	case TokenInteger, TokenDecimal, TokenScientific:
		p.tokens.Consume()
		return p.parseNumber(tok)
	case TokenString:
		p.tokens.Consume()
		return ast.NewText(tok.Content), nil
	case TokenIdentifier:
		return p.parseName()
	case TokenSymbol:
		switch tok.Trigger {
		case "(":
			return p.parseGroup()
		case "-", "+", "!":
			return p.parseUnary()
		}
	}
	return nil, p.unexpected(tok)
}

// parseInfix parses a binary operator and its right operand.
func (p *Parser) parseInfix(left ast.Node, op infix) (ast.Node, error) {
	tok := p.tokens.Consume()
	pos := tok.Pos
	if op.split {
		rest := tok
		rest.Trigger = tok.Trigger[1:]
		rest.Content = tok.Content[1:]
		rest.Pos.Offset++
		rest.Pos.Column++
		rest.Pos.Length--
		p.pending = &rest
		pos.Length = 1
	}

	fn, err := p.resolveOperator(op.symbol, 2, pos)
	if err != nil {
		return nil, err
	}

	power := op.power
	if op.right {
		power--
	}
	right, err := p.parseExpression(power)
	if err != nil {
		return nil, err
	}
	return ast.NewInfix(fn, op.symbol, op.power, op.right, left, right), nil
}

// parseUnary parses a prefix operator. The operand binds like the power
// operators, so -x**2 is -(x**2) and -x*2 is (-x)*2.
func (p *Parser) parseUnary() (ast.Node, error) {
	tok := p.tokens.Consume()
	fn, err := p.resolveOperator(tok.Trigger, 1, tok.Pos)
	if err != nil {
		return nil, err
	}
	operand, err := p.parseExpression(ast.PrefixPrecedence - 1)
	if err != nil {
		return nil, err
	}
	return ast.NewPrefix(fn, tok.Trigger, operand), nil
}

// parseGroup parses a parenthesized expression.
func (p *Parser) parseGroup() (ast.Node, error) {
	p.tokens.Consume()
	node, err := p.parseExpression(0)
	if err != nil {
		return nil, err
	}
	if err := p.expect(")"); err != nil {
		return nil, err
	}
	return node, nil
}

// parseNumber converts a numeric literal. Integers that do not fit in 64 bits
// become doubles.
func (p *Parser) parseNumber(tok Token) (ast.Node, error) {
	if tok.Type == TokenInteger {
		if v, err := strconv.ParseInt(tok.Content, 10, 64); err == nil {
			return ast.NewInteger(v), nil
		}
	}
	v, err := strconv.ParseFloat(tok.Content, 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return nil, types.Errorf(types.ErrUnexpectedToken, tok.Pos, "invalid number %q", tok.Trigger)
	}
	return ast.NewDouble(v), nil
}

// parseName parses a possibly decorated name: a variable, a call, or a
// variable with an offset suffix.
func (p *Parser) parseName() (ast.Node, error) {
	tok := p.tokens.Consume()
	context, name, qualified := p.opts.Context, tok.Content, false
	if i := strings.LastIndexByte(name, ':'); i >= 0 {
		context, name, qualified = name[:i], name[i+1:], true
		if name == "" {
			return nil, types.Errorf(types.ErrUnexpectedToken, tok.Pos, "invalid qualified name %q", tok.Content)
		}
	}

	if p.tokens.Current().Is("[") {
		offset, err := p.parseOffset()
		if err != nil {
			return nil, err
		}
		return p.resolveOffset(tok, context, name, qualified, offset)
	}
	if p.tokens.Current().Is("(") {
		return p.parseCall(tok, context, name)
	}
	return p.resolveName(tok, context, name, qualified)
}

// parseOffset parses an offset suffix: '[' integer ']'.
func (p *Parser) parseOffset() (int, error) {
	p.tokens.Consume()
	negative := false
	if p.tokens.Current().Is("-") {
		p.tokens.Consume()
		negative = true
	}
	tok := p.tokens.Current()
	if tok.Type != TokenInteger {
		if tok.Type == TokenError {
			return 0, p.lexer.Error()
		}
		return 0, types.Errorf(types.ErrExpectedToken, tok.Pos, "expected integer offset but got %s", tok.describe())
	}
	p.tokens.Consume()
	n, err := strconv.Atoi(tok.Content)
	if err != nil {
		return 0, types.Errorf(types.ErrExpectedToken, tok.Pos, "expected integer offset but got %s", tok.describe()).WithCause(err)
	}
	if negative {
		n = -n
	}
	if err := p.expect("]"); err != nil {
		return 0, err
	}
	return n, nil
}

// resolveName resolves a bare name: a script local, a variable, or a
// function without arguments.
func (p *Parser) resolveName(tok Token, context, name string, qualified bool) (ast.Node, error) {
	if !qualified {
		if def, ok := p.scope.Lookup(name); ok {
			return ast.NewLocal(name, def), nil
		}
	}
	if v, ok := p.lookupVariable(context, name); ok {
		return ast.NewVarRef(v, tok.Content), nil
	}
	if fn, ok := p.lookupFunction(context, name); ok && fn.Arity().Accepts(0) {
		return ast.NewCall(fn, tok.Content, nil), nil
	}
	return nil, types.Errorf(types.ErrUndefinedVariable, tok.Pos, "unknown variable %q", tok.Content)
}

// resolveOffset resolves name[n]. The host may know the decorated name
// itself; otherwise the base variable is shifted by an offset node.
func (p *Parser) resolveOffset(tok Token, context, name string, qualified bool, n int) (ast.Node, error) {
	suffix := "[" + strconv.Itoa(n) + "]"
	if !qualified {
		if def, ok := p.scope.Lookup(name); ok {
			return ast.NewOffset(ast.NewLocal(name, def), n, p.opts.PreviousKey), nil
		}
	}
	if v, ok := p.lookupVariable(context, name+suffix); ok {
		return ast.NewVarRef(v, tok.Content+suffix), nil
	}
	if v, ok := p.lookupVariable(context, name); ok {
		return ast.NewOffset(ast.NewVarRef(v, tok.Content), n, p.opts.PreviousKey), nil
	}
	return nil, types.Errorf(types.ErrUndefinedVariable, tok.Pos, "unknown variable %q", tok.Content+suffix)
}

// parseCall parses the argument list of a function call and checks its
// arity.
func (p *Parser) parseCall(tok Token, context, name string) (ast.Node, error) {
	fn, ok := p.lookupFunction(context, name)
	if !ok {
		return nil, types.Errorf(types.ErrUndefinedFunction, tok.Pos, "unknown function %q", tok.Content)
	}
	p.tokens.Consume()

	var args []ast.Node
	if !p.tokens.Current().Is(")") {
		for {
			arg, err := p.parseExpression(0)
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			if !p.tokens.Current().Is(",") {
				break
			}
			p.tokens.Consume()
		}
	}
	if err := p.expect(")"); err != nil {
		return nil, err
	}

	if arity := fn.Arity(); !arity.Accepts(len(args)) {
		return nil, types.Errorf(types.ErrArgumentCount, tok.Pos,
			"function %q expects %s, got %d", tok.Content, arity, len(args))
	}
	return ast.NewCall(fn, tok.Content, args), nil
}

func (p *Parser) resolveOperator(symbol string, operands int, pos types.Position) (ast.Function, error) {
	fn, ok := p.lookupFunction(p.opts.Context, symbol)
	if !ok {
		return nil, types.Errorf(types.ErrUndefinedOperator, pos, "unknown operator %q", symbol)
	}
	if arity := fn.Arity(); !arity.Accepts(operands) {
		return nil, types.Errorf(types.ErrArgumentCount, pos,
			"operator %q expects %s, got %d", symbol, arity, operands)
	}
	return fn, nil
}

func (p *Parser) lookupFunction(context, name string) (ast.Function, bool) {
	if p.opts.Functions == nil {
		return nil, false
	}
	return p.opts.Functions(context, name)
}

func (p *Parser) lookupVariable(context, name string) (ast.Variable, bool) {
	if p.opts.Variables == nil {
		return nil, false
	}
	return p.opts.Variables(context, name)
}

// expect checks that the current token is symbol and consumes it.
func (p *Parser) expect(symbol string) error {
	tok := p.tokens.Current()
	if tok.Type == TokenError {
		return p.lexer.Error()
	}
	if !tok.Is(symbol) {
		return types.Errorf(types.ErrExpectedToken, tok.Pos, "expected %q but got %s", symbol, tok.describe())
	}
	p.tokens.Consume()
	return nil
}

// unexpected reports tok where an expression was expected.
func (p *Parser) unexpected(tok Token) error {
	if tok.Type == TokenError {
		return p.lexer.Error()
	}
	return types.NewError(types.ErrUnexpectedToken, "unexpected token, expected an expression", tok.Pos)
}
