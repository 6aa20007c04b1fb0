package calc

import "strings"

// ════════════════════════════════════════════════════════════════════
// Parser — Recursive Descent
// ════════════════════════════════════════════════════════════════════

// reservedNames are identifiers that always abort parsing with a
// DisallowedConstruct error, wherever they appear. They correspond to the
// dangerous constructs of the host-language calculators this sandbox
// replaces (imports, dynamic evaluation, file and attribute access).
var reservedNames = map[string]bool{
	"import":     true,
	"__import__": true,
	"eval":       true,
	"exec":       true,
	"compile":    true,
	"open":       true,
	"input":      true,
	"lambda":     true,
	"def":        true,
	"class":      true,
	"getattr":    true,
	"setattr":    true,
	"delattr":    true,
	"globals":    true,
	"locals":     true,
	"vars":       true,
}

// Parser transforms a token stream into an AST.
type Parser struct {
	tokens []Token
	pos    int
}

// NewParser creates a parser from a token slice.
func NewParser(tokens []Token) *Parser {
	return &Parser{tokens: tokens}
}

// ParseExpression tokenizes and parses a sandbox expression string.
func ParseExpression(input string) (Node, error) {
	if strings.TrimSpace(input) == "" {
		return nil, errorf(KindSyntax, 0, "empty expression")
	}
	tokens, err := NewLexer(input).Tokenize()
	if err != nil {
		return nil, err
	}
	return NewParser(tokens).Parse()
}

// Parse parses the full expression and requires the input to be consumed.
func (p *Parser) Parse() (Node, error) {
	node, err := p.parseAddition()
	if err != nil {
		return nil, err
	}
	if tok := p.peek(); tok.Type != TokenEOF {
		// Trailing identifiers indicate statement-like input ("import os");
		// report those as disallowed rather than as a bare syntax error.
		if tok.Type == TokenIdentifier {
			return nil, errorf(KindDisallowed, tok.Position, "unexpected name %q after expression", tok.Value)
		}
		return nil, errorf(KindSyntax, tok.Position, "unexpected token %s after expression", tok)
	}
	return node, nil
}

// ────────────────────────────────────────────────────────────────────
// Token helpers
// ────────────────────────────────────────────────────────────────────

func (p *Parser) peek() Token {
	if p.pos >= len(p.tokens) {
		return Token{Type: TokenEOF}
	}
	return p.tokens[p.pos]
}

func (p *Parser) advance() Token {
	tok := p.peek()
	if tok.Type != TokenEOF {
		p.pos++
	}
	return tok
}

func (p *Parser) expect(typ TokenType) (Token, error) {
	tok := p.peek()
	if tok.Type != typ {
		return tok, errorf(KindSyntax, tok.Position, "expected %s, got %s (%q)", typ, tok.Type, tok.Value)
	}
	return p.advance(), nil
}

// ────────────────────────────────────────────────────────────────────
// Grammar (precedence from lowest to highest):
//   Addition       → Multiplication ( ('+'|'-') Multiplication )*
//   Multiplication → Unary ( ('*'|'/'|'//'|'%') Unary )*
//   Unary          → ('+'|'-') Unary | Power
//   Power          → Postfix ( '**' Unary )?          (right-associative)
//   Postfix        → Primary ( '.' → disallowed )
//   Primary        → Number | '(' Expr (',' Expr)* ')' | '[' list ']'
//                  | Call | Name
// ────────────────────────────────────────────────────────────────────

func (p *Parser) parseAddition() (Node, error) {
	left, err := p.parseMultiplication()
	if err != nil {
		return nil, err
	}
	for {
		tok := p.peek()
		if tok.Type != TokenPlus && tok.Type != TokenMinus {
			return left, nil
		}
		p.advance()
		right, err := p.parseMultiplication()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Position: tok.Position, Op: tok.Value, Left: left, Right: right}
	}
}

func (p *Parser) parseMultiplication() (Node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		tok := p.peek()
		switch tok.Type {
		case TokenStar, TokenSlash, TokenSlashSlash, TokenPercent:
			p.advance()
			right, err := p.parseUnary()
			if err != nil {
				return nil, err
			}
			left = &BinaryExpr{Position: tok.Position, Op: tok.Value, Left: left, Right: right}
		default:
			return left, nil
		}
	}
}

func (p *Parser) parseUnary() (Node, error) {
	tok := p.peek()
	if tok.Type == TokenMinus || tok.Type == TokenPlus {
		p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &UnaryExpr{Position: tok.Position, Op: tok.Value, Operand: operand}, nil
	}
	return p.parsePower()
}

func (p *Parser) parsePower() (Node, error) {
	base, err := p.parsePostfix()
	if err != nil {
		return nil, err
	}
	if tok := p.peek(); tok.Type == TokenStarStar {
		p.advance()
		// Exponent binds right and may carry a unary sign: 2 ** -1.
		exp, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &BinaryExpr{Position: tok.Position, Op: "**", Left: base, Right: exp}, nil
	}
	return base, nil
}

func (p *Parser) parsePostfix() (Node, error) {
	expr, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	if tok := p.peek(); tok.Type == TokenDot {
		return nil, errorf(KindDisallowed, tok.Position, "attribute access is not allowed")
	}
	return expr, nil
}

func (p *Parser) parsePrimary() (Node, error) {
	tok := p.peek()

	switch tok.Type {
	case TokenNumber:
		return p.parseNumberLiteral()

	case TokenString:
		return nil, errorf(KindDisallowed, tok.Position, "string literals are not allowed")

	case TokenLParen:
		return p.parseParenOrTuple()

	case TokenLBracket:
		return p.parseList()

	case TokenIdentifier:
		return p.parseNameOrCall()

	default:
		return nil, errorf(KindSyntax, tok.Position, "unexpected token %s (%q)", tok.Type, tok.Value)
	}
}

func (p *Parser) parseNumberLiteral() (Node, error) {
	tok := p.advance()
	val, err := parseFloat(tok.Value)
	if err != nil {
		return nil, errorf(KindSyntax, tok.Position, "invalid number %q", tok.Value)
	}
	return &NumberLiteral{Position: tok.Position, Value: val, Raw: tok.Value}, nil
}

// parseParenOrTuple parses a parenthesized expression or a tuple literal.
// (a) is grouping; (a, b, ...) is a list value for min/max/sum.
func (p *Parser) parseParenOrTuple() (Node, error) {
	open := p.advance() // consume (

	first, err := p.parseAddition()
	if err != nil {
		return nil, err
	}

	if p.peek().Type != TokenComma {
		if _, err := p.expect(TokenRParen); err != nil {
			return nil, err
		}
		return first, nil
	}

	elems := []Node{first}
	for p.peek().Type == TokenComma {
		p.advance() // consume ,
		if p.peek().Type == TokenRParen {
			break // trailing comma
		}
		e, err := p.parseAddition()
		if err != nil {
			return nil, err
		}
		elems = append(elems, e)
	}
	if _, err := p.expect(TokenRParen); err != nil {
		return nil, err
	}
	return &ListLiteral{Position: open.Position, Elems: elems}, nil
}

func (p *Parser) parseList() (Node, error) {
	open := p.advance() // consume [

	var elems []Node
	if p.peek().Type != TokenRBracket {
		for {
			e, err := p.parseAddition()
			if err != nil {
				return nil, err
			}
			elems = append(elems, e)
			if p.peek().Type != TokenComma {
				break
			}
			p.advance() // consume ,
			if p.peek().Type == TokenRBracket {
				break // trailing comma
			}
		}
	}
	if _, err := p.expect(TokenRBracket); err != nil {
		return nil, err
	}
	return &ListLiteral{Position: open.Position, Elems: elems}, nil
}

func (p *Parser) parseNameOrCall() (Node, error) {
	tok := p.advance()
	name := strings.ToLower(tok.Value)

	if reservedNames[name] {
		return nil, errorf(KindDisallowed, tok.Position, "use of %q is not allowed", tok.Value)
	}

	if p.peek().Type == TokenLParen {
		return p.parseCall(tok)
	}
	return &NameRef{Position: tok.Position, Name: name}, nil
}

func (p *Parser) parseCall(nameTok Token) (Node, error) {
	p.advance() // consume (

	var args []Node
	if p.peek().Type != TokenRParen {
		for {
			arg, err := p.parseAddition()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			if p.peek().Type != TokenComma {
				break
			}
			p.advance() // consume ,
		}
	}
	if _, err := p.expect(TokenRParen); err != nil {
		return nil, err
	}

	return &CallExpr{Position: nameTok.Position, Name: strings.ToLower(nameTok.Value), Args: args}, nil
}
