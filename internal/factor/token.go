package factor

import (
	"fmt"
	"strconv"
)

type tokenKind int

const (
	tokenEOF tokenKind = iota
	tokenNumber
	tokenIdent
	tokenLParen
	tokenRParen
	tokenComma
	tokenPlus
	tokenMinus
	tokenStar
	tokenSlash
	tokenPower
	tokenGT
	tokenLT
	tokenGE
	tokenLE
	tokenEQ
	tokenNE
)

func (k tokenKind) String() string {
	switch k {
	case tokenEOF:
		return "end of expression"
	case tokenNumber:
		return "number"
	case tokenIdent:
		return "identifier"
	case tokenLParen:
		return "'('"
	case tokenRParen:
		return "')'"
	case tokenComma:
		return "','"
	case tokenPlus:
		return "'+'"
	case tokenMinus:
		return "'-'"
	case tokenStar:
		return "'*'"
	case tokenSlash:
		return "'/'"
	case tokenPower:
		return "'**'"
	case tokenGT:
		return "'>'"
	case tokenLT:
		return "'<'"
	case tokenGE:
		return "'>='"
	case tokenLE:
		return "'<='"
	case tokenEQ:
		return "'=='"
	case tokenNE:
		return "'!='"
	}
	return "unknown token"
}

type token struct {
	kind  tokenKind
	text  string
	pos   int
	value float64 // set for tokenNumber
}

// lex splits an expression into tokens. Positions are byte offsets into
// the input, used for error messages.
func lex(input string) ([]token, error) {
	var tokens []token
	i := 0
	for i < len(input) {
		c := input[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++

		case c >= '0' && c <= '9' || c == '.':
			start := i
			i = scanNumber(input, i)
			text := input[start:i]
			value, err := strconv.ParseFloat(text, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid number %q at position %d", text, start)
			}
			tokens = append(tokens, token{kind: tokenNumber, text: text, pos: start, value: value})

		case isIdentStart(c):
			start := i
			for i < len(input) && isIdentPart(input[i]) {
				i++
			}
			tokens = append(tokens, token{kind: tokenIdent, text: input[start:i], pos: start})

		case c == '(':
			tokens = append(tokens, token{kind: tokenLParen, text: "(", pos: i})
			i++
		case c == ')':
			tokens = append(tokens, token{kind: tokenRParen, text: ")", pos: i})
			i++
		case c == ',':
			tokens = append(tokens, token{kind: tokenComma, text: ",", pos: i})
			i++
		case c == '+':
			tokens = append(tokens, token{kind: tokenPlus, text: "+", pos: i})
			i++
		case c == '-':
			tokens = append(tokens, token{kind: tokenMinus, text: "-", pos: i})
			i++
		case c == '*':
			if i+1 < len(input) && input[i+1] == '*' {
				tokens = append(tokens, token{kind: tokenPower, text: "**", pos: i})
				i += 2
			} else {
				tokens = append(tokens, token{kind: tokenStar, text: "*", pos: i})
				i++
			}
		case c == '/':
			tokens = append(tokens, token{kind: tokenSlash, text: "/", pos: i})
			i++
		case c == '>':
			if i+1 < len(input) && input[i+1] == '=' {
				tokens = append(tokens, token{kind: tokenGE, text: ">=", pos: i})
				i += 2
			} else {
				tokens = append(tokens, token{kind: tokenGT, text: ">", pos: i})
				i++
			}
		case c == '<':
			if i+1 < len(input) && input[i+1] == '=' {
				tokens = append(tokens, token{kind: tokenLE, text: "<=", pos: i})
				i += 2
			} else {
				tokens = append(tokens, token{kind: tokenLT, text: "<", pos: i})
				i++
			}
		case c == '=':
			if i+1 < len(input) && input[i+1] == '=' {
				tokens = append(tokens, token{kind: tokenEQ, text: "==", pos: i})
				i += 2
			} else {
				return nil, fmt.Errorf("unexpected character '=' at position %d (use '==' for comparison)", i)
			}
		case c == '!':
			if i+1 < len(input) && input[i+1] == '=' {
				tokens = append(tokens, token{kind: tokenNE, text: "!=", pos: i})
				i += 2
			} else {
				return nil, fmt.Errorf("unexpected character '!' at position %d (use '!=' for comparison)", i)
			}

		default:
			return nil, fmt.Errorf("unexpected character %q at position %d", string(c), i)
		}
	}

	tokens = append(tokens, token{kind: tokenEOF, pos: len(input)})
	return tokens, nil
}

// scanNumber consumes digits, an optional fraction and an optional
// exponent starting at i, returning the index after the number.
func scanNumber(input string, i int) int {
	for i < len(input) && isDigit(input[i]) {
		i++
	}
	if i < len(input) && input[i] == '.' {
		i++
		for i < len(input) && isDigit(input[i]) {
			i++
		}
	}
	if i < len(input) && (input[i] == 'e' || input[i] == 'E') {
		j := i + 1
		if j < len(input) && (input[j] == '+' || input[j] == '-') {
			j++
		}
		if j < len(input) && isDigit(input[j]) {
			i = j
			for i < len(input) && isDigit(input[i]) {
				i++
			}
		}
	}
	return i
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isIdentStart(c byte) bool {
	return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || isDigit(c)
}
