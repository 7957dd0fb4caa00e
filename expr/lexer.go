package expr

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ============================================================================
// LEXER — Derived-column formula tokens
// ============================================================================
// Tokens: numbers, identifiers, [bracketed column names], operators
// + - * /, parentheses and commas. Whitespace separates tokens and is
// otherwise ignored.
// ============================================================================

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokNumber
	tokIdent
	tokColumn // [Bracketed Name]
	tokPlus
	tokMinus
	tokStar
	tokSlash
	tokLParen
	tokRParen
	tokComma
)

func (k tokenKind) String() string {
	switch k {
	case tokNumber:
		return "number"
	case tokIdent:
		return "identifier"
	case tokColumn:
		return "column"
	case tokPlus:
		return "'+'"
	case tokMinus:
		return "'-'"
	case tokStar:
		return "'*'"
	case tokSlash:
		return "'/'"
	case tokLParen:
		return "'('"
	case tokRParen:
		return "')'"
	case tokComma:
		return "','"
	default:
		return "end of expression"
	}
}

type token struct {
	kind tokenKind
	text string
	num  float64
	pos  int // byte offset in the source
}

func lex(src string) ([]token, error) {
	var tokens []token
	i := 0
	for i < len(src) {
		r, size := utf8.DecodeRuneInString(src[i:])

		switch {
		case unicode.IsSpace(r):
			i += size
			continue
		case r == '+':
			tokens = append(tokens, token{kind: tokPlus, text: "+", pos: i})
		case r == '-':
			tokens = append(tokens, token{kind: tokMinus, text: "-", pos: i})
		case r == '*':
			tokens = append(tokens, token{kind: tokStar, text: "*", pos: i})
		case r == '/':
			tokens = append(tokens, token{kind: tokSlash, text: "/", pos: i})
		case r == '(':
			tokens = append(tokens, token{kind: tokLParen, text: "(", pos: i})
		case r == ')':
			tokens = append(tokens, token{kind: tokRParen, text: ")", pos: i})
		case r == ',':
			tokens = append(tokens, token{kind: tokComma, text: ",", pos: i})

		case r == '[':
			end := strings.IndexByte(src[i+1:], ']')
			if end < 0 {
				return nil, fmt.Errorf("%w: unterminated column reference at offset %d", ErrSyntax, i)
			}
			name := strings.TrimSpace(src[i+1 : i+1+end])
			if name == "" {
				return nil, fmt.Errorf("%w: empty column reference at offset %d", ErrSyntax, i)
			}
			tokens = append(tokens, token{kind: tokColumn, text: name, pos: i})
			i += end + 2
			continue

		case unicode.IsDigit(r) || r == '.':
			start := i
			for i < len(src) && (isDigit(src[i]) || src[i] == '.') {
				i++
			}
			// exponent: 1e3, 2.5E-2
			if i < len(src) && (src[i] == 'e' || src[i] == 'E') {
				j := i + 1
				if j < len(src) && (src[j] == '+' || src[j] == '-') {
					j++
				}
				if j < len(src) && isDigit(src[j]) {
					for j < len(src) && isDigit(src[j]) {
						j++
					}
					i = j
				}
			}
			text := src[start:i]
			f, err := strconv.ParseFloat(text, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: bad number %q at offset %d", ErrSyntax, text, start)
			}
			tokens = append(tokens, token{kind: tokNumber, text: text, num: f, pos: start})
			continue

		case unicode.IsLetter(r) || r == '_':
			start := i
			for i < len(src) {
				c, n := utf8.DecodeRuneInString(src[i:])
				if !(unicode.IsLetter(c) || unicode.IsDigit(c) || c == '_' || c == '.') {
					break
				}
				i += n
			}
			tokens = append(tokens, token{kind: tokIdent, text: src[start:i], pos: start})
			continue

		default:
			return nil, fmt.Errorf("%w: unexpected character %q at offset %d", ErrSyntax, r, i)
		}
		i += size
	}
	tokens = append(tokens, token{kind: tokEOF, pos: len(src)})
	return tokens, nil
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }
