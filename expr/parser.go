package expr

import (
	"errors"
	"fmt"
	"strings"
)

// ============================================================================
// PARSER — Recursive descent over the token stream
// ============================================================================
// Grammar:
//   expr    := term (('+' | '-') term)*
//   term    := unary (('*' | '/') unary)*
//   unary   := ('-' | '+') unary | primary
//   primary := NUMBER | COLUMN | IDENT | IDENT '(' args ')' | '(' expr ')'
//   args    := expr (',' expr)*
//
// Only the functions in the builtins table can be called. Anything else
// (attribute access, assignment, comparison, strings) is a syntax error.
// ============================================================================

var (
	// ErrSyntax is returned for malformed expressions.
	ErrSyntax = errors.New("expression syntax error")
	// ErrUnknownFunction is returned for calls outside the builtin set.
	ErrUnknownFunction = errors.New("unknown function")
	// ErrArity is returned when a builtin receives the wrong argument count.
	ErrArity = errors.New("wrong number of arguments")
	// ErrUnknownColumn is returned by Resolve for references to absent columns.
	ErrUnknownColumn = errors.New("unknown column")
)

// maxDepth bounds nesting so a hostile formula cannot exhaust the stack.
const maxDepth = 64

// Program is a parsed, ready-to-evaluate formula.
type Program struct {
	source  string
	root    *node
	columns []string
}

// Parse compiles a formula. The returned program is immutable and safe for
// concurrent evaluation.
func Parse(src string) (*Program, error) {
	if strings.TrimSpace(src) == "" {
		return nil, fmt.Errorf("%w: empty expression", ErrSyntax)
	}
	tokens, err := lex(src)
	if err != nil {
		return nil, err
	}

	p := &parser{tokens: tokens}
	root, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if tok := p.peek(); tok.kind != tokEOF {
		return nil, fmt.Errorf("%w: unexpected %s at offset %d", ErrSyntax, tok.kind, tok.pos)
	}

	prog := &Program{source: src, root: root}
	seen := make(map[string]bool)
	root.walk(func(n *node) {
		if n.kind == nodeColumn && !seen[n.name] {
			seen[n.name] = true
			prog.columns = append(prog.columns, n.name)
		}
	})
	return prog, nil
}

// Source returns the formula text the program was parsed from.
func (p *Program) Source() string { return p.source }

// Columns returns the referenced column names in first-use order.
func (p *Program) Columns() []string {
	out := make([]string, len(p.columns))
	copy(out, p.columns)
	return out
}

// Resolve checks every referenced column against known.
func (p *Program) Resolve(known func(column string) bool) error {
	for _, c := range p.columns {
		if !known(c) {
			return fmt.Errorf("%w: %q", ErrUnknownColumn, c)
		}
	}
	return nil
}

func (p *Program) String() string { return p.root.String() }

type parser struct {
	tokens []token
	pos    int
	depth  int
}

func (p *parser) peek() token { return p.tokens[p.pos] }

func (p *parser) next() token {
	tok := p.tokens[p.pos]
	if tok.kind != tokEOF {
		p.pos++
	}
	return tok
}

func (p *parser) expect(kind tokenKind) (token, error) {
	tok := p.next()
	if tok.kind != kind {
		return tok, fmt.Errorf("%w: expected %s, found %s at offset %d", ErrSyntax, kind, tok.kind, tok.pos)
	}
	return tok, nil
}

func (p *parser) enter() error {
	p.depth++
	if p.depth > maxDepth {
		return fmt.Errorf("%w: expression nested too deeply", ErrSyntax)
	}
	return nil
}

func (p *parser) leave() { p.depth-- }

func (p *parser) parseExpr() (*node, error) {
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer p.leave()

	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	for {
		tok := p.peek()
		if tok.kind != tokPlus && tok.kind != tokMinus {
			return left, nil
		}
		p.next()
		right, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		left = &node{kind: nodeBinary, op: tok.kind, left: left, right: right}
	}
}

func (p *parser) parseTerm() (*node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		tok := p.peek()
		if tok.kind != tokStar && tok.kind != tokSlash {
			return left, nil
		}
		p.next()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &node{kind: nodeBinary, op: tok.kind, left: left, right: right}
	}
}

func (p *parser) parseUnary() (*node, error) {
	tok := p.peek()
	if tok.kind != tokMinus && tok.kind != tokPlus {
		return p.parsePrimary()
	}
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer p.leave()

	p.next()
	operand, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	if tok.kind == tokPlus {
		return operand, nil
	}
	return &node{kind: nodeNegate, left: operand}, nil
}

func (p *parser) parsePrimary() (*node, error) {
	tok := p.next()
	switch tok.kind {
	case tokNumber:
		return &node{kind: nodeNumber, num: tok.num}, nil

	case tokColumn:
		return &node{kind: nodeColumn, name: tok.text}, nil

	case tokIdent:
		if p.peek().kind != tokLParen {
			return &node{kind: nodeColumn, name: tok.text}, nil
		}
		return p.parseCall(tok)

	case tokLParen:
		inner, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokRParen); err != nil {
			return nil, err
		}
		return inner, nil
	}
	return nil, fmt.Errorf("%w: unexpected %s at offset %d", ErrSyntax, tok.kind, tok.pos)
}

func (p *parser) parseCall(name token) (*node, error) {
	fn, ok := builtins[strings.ToLower(name.text)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFunction, name.text)
	}
	p.next() // '('

	var args []*node
	if p.peek().kind != tokRParen {
		for {
			arg, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			if p.peek().kind != tokComma {
				break
			}
			p.next()
		}
	}
	if _, err := p.expect(tokRParen); err != nil {
		return nil, err
	}

	if len(args) < fn.minArgs || (fn.maxArgs >= 0 && len(args) > fn.maxArgs) {
		return nil, fmt.Errorf("%w: %s takes %s, got %d", ErrArity, fn.name, fn.arity(), len(args))
	}
	return &node{kind: nodeCall, name: fn.name, fn: fn, args: args}, nil
}
