package factor

import "fmt"

// parser is a recursive-descent parser over the token stream.
// Precedence, low to high: comparison, additive, multiplicative,
// unary minus, power. Power is right-associative.
type parser struct {
	tokens []token
	pos    int
}

// parse turns an expression string into a tree.
func parse(input string) (node, error) {
	tokens, err := lex(input)
	if err != nil {
		return nil, err
	}

	p := &parser{tokens: tokens}
	root, err := p.parseComparison()
	if err != nil {
		return nil, err
	}
	if tok := p.peek(); tok.kind != tokenEOF {
		return nil, fmt.Errorf("unexpected %s at position %d", tok.kind, tok.pos)
	}
	return root, nil
}

func (p *parser) peek() token {
	return p.tokens[p.pos]
}

func (p *parser) next() token {
	tok := p.tokens[p.pos]
	if tok.kind != tokenEOF {
		p.pos++
	}
	return tok
}

func (p *parser) parseComparison() (node, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	for {
		switch op := p.peek().kind; op {
		case tokenGT, tokenLT, tokenGE, tokenLE, tokenEQ, tokenNE:
			p.next()
			right, err := p.parseAdditive()
			if err != nil {
				return nil, err
			}
			left = binary{op: op, left: left, right: right}
		default:
			return left, nil
		}
	}
}

func (p *parser) parseAdditive() (node, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for {
		switch op := p.peek().kind; op {
		case tokenPlus, tokenMinus:
			p.next()
			right, err := p.parseMultiplicative()
			if err != nil {
				return nil, err
			}
			left = binary{op: op, left: left, right: right}
		default:
			return left, nil
		}
	}
}

func (p *parser) parseMultiplicative() (node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		switch op := p.peek().kind; op {
		case tokenStar, tokenSlash:
			p.next()
			right, err := p.parseUnary()
			if err != nil {
				return nil, err
			}
			left = binary{op: op, left: left, right: right}
		default:
			return left, nil
		}
	}
}

func (p *parser) parseUnary() (node, error) {
	switch p.peek().kind {
	case tokenMinus:
		p.next()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return unary{operand: operand}, nil
	case tokenPlus:
		p.next()
		return p.parseUnary()
	}
	return p.parsePower()
}

func (p *parser) parsePower() (node, error) {
	base, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	if p.peek().kind == tokenPower {
		p.next()
		// Right-associative; the exponent may carry a sign.
		exponent, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return binary{op: tokenPower, left: base, right: exponent}, nil
	}
	return base, nil
}

func (p *parser) parsePrimary() (node, error) {
	tok := p.next()
	switch tok.kind {
	case tokenNumber:
		return literal{value: tok.value}, nil

	case tokenIdent:
		if p.peek().kind != tokenLParen {
			return columnRef{name: tok.text, pos: tok.pos}, nil
		}
		p.next()
		args, err := p.parseArgs()
		if err != nil {
			return nil, err
		}
		return call{name: tok.text, pos: tok.pos, args: args}, nil

	case tokenLParen:
		inner, err := p.parseComparison()
		if err != nil {
			return nil, err
		}
		if closing := p.next(); closing.kind != tokenRParen {
			return nil, fmt.Errorf("expected ')' but found %s at position %d", closing.kind, closing.pos)
		}
		return inner, nil
	}

	return nil, fmt.Errorf("unexpected %s at position %d", tok.kind, tok.pos)
}

func (p *parser) parseArgs() ([]node, error) {
	if p.peek().kind == tokenRParen {
		p.next()
		return nil, nil
	}

	var args []node
	for {
		arg, err := p.parseComparison()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)

		switch tok := p.next(); tok.kind {
		case tokenComma:
			continue
		case tokenRParen:
			return args, nil
		default:
			return nil, fmt.Errorf("expected ',' or ')' but found %s at position %d", tok.kind, tok.pos)
		}
	}
}
