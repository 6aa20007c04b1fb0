package calc

import (
	"fmt"
	"strings"
	"unicode"
)

// ════════════════════════════════════════════════════════════════════
// Token Types
// ════════════════════════════════════════════════════════════════════

// TokenType enumerates all token kinds produced by the lexer.
type TokenType int

const (
	// Special
	TokenEOF TokenType = iota
	TokenIllegal

	// Literals
	TokenNumber     // 42, 3.14, .5
	TokenString     // "..." — lexed so the parser can reject it as disallowed
	TokenIdentifier // abs, pi, round

	// Operators
	TokenPlus       // +
	TokenMinus      // -
	TokenStar       // *
	TokenSlash      // /
	TokenStarStar   // **
	TokenSlashSlash // //
	TokenPercent    // %
	TokenDot        // . — attribute access, rejected by the parser

	// Delimiters
	TokenLParen   // (
	TokenRParen   // )
	TokenLBracket // [
	TokenRBracket // ]
	TokenComma    // ,
)

var tokenTypeNames = map[TokenType]string{
	TokenEOF:        "EOF",
	TokenIllegal:    "ILLEGAL",
	TokenNumber:     "NUMBER",
	TokenString:     "STRING",
	TokenIdentifier: "IDENT",
	TokenPlus:       "+",
	TokenMinus:      "-",
	TokenStar:       "*",
	TokenSlash:      "/",
	TokenStarStar:   "**",
	TokenSlashSlash: "//",
	TokenPercent:    "%",
	TokenDot:        ".",
	TokenLParen:     "(",
	TokenRParen:     ")",
	TokenLBracket:   "[",
	TokenRBracket:   "]",
	TokenComma:      ",",
}

func (t TokenType) String() string {
	if name, ok := tokenTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Token(%d)", int(t))
}

// Token represents a single lexical token from the input.
type Token struct {
	Type     TokenType
	Value    string
	Position int // byte offset in source
}

func (t Token) String() string {
	return fmt.Sprintf("%s(%q)@%d", t.Type, t.Value, t.Position)
}

// ════════════════════════════════════════════════════════════════════
// Lexer
// ════════════════════════════════════════════════════════════════════

// Lexer tokenizes a sandbox expression string.
type Lexer struct {
	input []rune
	pos   int
}

// NewLexer creates a new Lexer for the given input.
func NewLexer(input string) *Lexer {
	return &Lexer{input: []rune(input)}
}

// Tokenize performs the complete tokenization and returns all tokens.
func (l *Lexer) Tokenize() ([]Token, error) {
	var tokens []Token
	for {
		tok, err := l.nextToken()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
		if tok.Type == TokenEOF {
			break
		}
	}
	return tokens, nil
}

func (l *Lexer) peek() rune {
	if l.pos >= len(l.input) {
		return 0
	}
	return l.input[l.pos]
}

func (l *Lexer) advance() rune {
	if l.pos >= len(l.input) {
		return 0
	}
	ch := l.input[l.pos]
	l.pos++
	return ch
}

func (l *Lexer) skipWhitespace() {
	for l.pos < len(l.input) && unicode.IsSpace(l.input[l.pos]) {
		l.pos++
	}
}

func (l *Lexer) nextToken() (Token, error) {
	l.skipWhitespace()

	if l.pos >= len(l.input) {
		return Token{Type: TokenEOF, Position: l.pos}, nil
	}

	start := l.pos
	ch := l.peek()

	switch ch {
	case '(':
		l.advance()
		return Token{Type: TokenLParen, Value: "(", Position: start}, nil
	case ')':
		l.advance()
		return Token{Type: TokenRParen, Value: ")", Position: start}, nil
	case '[':
		l.advance()
		return Token{Type: TokenLBracket, Value: "[", Position: start}, nil
	case ']':
		l.advance()
		return Token{Type: TokenRBracket, Value: "]", Position: start}, nil
	case ',':
		l.advance()
		return Token{Type: TokenComma, Value: ",", Position: start}, nil
	case '+':
		l.advance()
		return Token{Type: TokenPlus, Value: "+", Position: start}, nil
	case '-':
		l.advance()
		return Token{Type: TokenMinus, Value: "-", Position: start}, nil
	case '%':
		l.advance()
		return Token{Type: TokenPercent, Value: "%", Position: start}, nil
	case '*':
		l.advance()
		if l.peek() == '*' {
			l.advance()
			return Token{Type: TokenStarStar, Value: "**", Position: start}, nil
		}
		return Token{Type: TokenStar, Value: "*", Position: start}, nil
	case '/':
		l.advance()
		if l.peek() == '/' {
			l.advance()
			return Token{Type: TokenSlashSlash, Value: "//", Position: start}, nil
		}
		return Token{Type: TokenSlash, Value: "/", Position: start}, nil
	}

	// String literals are tokenized so the parser can report them as
	// disallowed rather than as a generic syntax error.
	if ch == '"' || ch == '\'' {
		return l.readString(ch, start)
	}

	// Numbers (digits or .digit). A bare '.' is the attribute-access token.
	if unicode.IsDigit(ch) {
		return l.readNumber(start), nil
	}
	if ch == '.' {
		if l.pos+1 < len(l.input) && unicode.IsDigit(l.input[l.pos+1]) {
			return l.readNumber(start), nil
		}
		l.advance()
		return Token{Type: TokenDot, Value: ".", Position: start}, nil
	}

	if unicode.IsLetter(ch) || ch == '_' {
		return l.readIdentifier(start), nil
	}

	l.advance()
	return Token{}, errorf(KindSyntax, start, "unexpected character %q", ch)
}

func (l *Lexer) readString(quote rune, start int) (Token, error) {
	l.advance() // opening quote
	var sb strings.Builder
	for {
		if l.pos >= len(l.input) {
			return Token{}, errorf(KindSyntax, start, "unterminated string literal")
		}
		ch := l.advance()
		if ch == quote {
			break
		}
		sb.WriteRune(ch)
	}
	return Token{Type: TokenString, Value: sb.String(), Position: start}, nil
}

func (l *Lexer) readNumber(start int) Token {
	var sb strings.Builder
	hasDot := false
	hasExp := false

	for l.pos < len(l.input) {
		ch := l.peek()
		switch {
		case unicode.IsDigit(ch):
			sb.WriteRune(l.advance())
		case ch == '.' && !hasDot && !hasExp:
			hasDot = true
			sb.WriteRune(l.advance())
		case (ch == 'e' || ch == 'E') && !hasExp && l.pos+1 < len(l.input) &&
			(unicode.IsDigit(l.input[l.pos+1]) || l.input[l.pos+1] == '+' || l.input[l.pos+1] == '-'):
			hasExp = true
			sb.WriteRune(l.advance())
			if l.peek() == '+' || l.peek() == '-' {
				sb.WriteRune(l.advance())
			}
		default:
			return Token{Type: TokenNumber, Value: sb.String(), Position: start}
		}
	}
	return Token{Type: TokenNumber, Value: sb.String(), Position: start}
}

func (l *Lexer) readIdentifier(start int) Token {
	var sb strings.Builder
	for l.pos < len(l.input) {
		ch := l.peek()
		if unicode.IsLetter(ch) || unicode.IsDigit(ch) || ch == '_' {
			sb.WriteRune(l.advance())
		} else {
			break
		}
	}
	return Token{Type: TokenIdentifier, Value: sb.String(), Position: start}
}
