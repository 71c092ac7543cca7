package domain

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// EvaluateCondition runs a step condition against its context. The grammar is
// deliberately tiny: comparison and boolean operators over dot-path variables,
// string/number/bool literals and parentheses. There is no call syntax and no
// access to anything outside the supplied context, so payload-derived
// conditions cannot be escalated into code execution.
//
//	step_a.output.score > 0.5 && input.region == "eu"
//	!(retry_count >= 3) || input.force
func EvaluateCondition(expression string, context map[string]interface{}) (bool, error) {
	tokens, err := tokenizeCondition(expression)
	if err != nil {
		return false, err
	}

	parser := &conditionParser{tokens: tokens}
	node, err := parser.parseOr()
	if err != nil {
		return false, err
	}
	if !parser.atEnd() {
		return false, NewValidationError(fmt.Sprintf("unexpected token %q in condition", parser.peek().text), nil)
	}

	value, err := node.eval(context)
	if err != nil {
		return false, err
	}

	return truthy(value), nil
}

type tokenKind int

const (
	tokenIdent tokenKind = iota
	tokenNumber
	tokenString
	tokenOperator
	tokenLeftParen
	tokenRightParen
)

type conditionToken struct {
	kind tokenKind
	text string
}

func tokenizeCondition(expression string) ([]conditionToken, error) {
	var tokens []conditionToken
	runes := []rune(expression)

	i := 0
	for i < len(runes) {
		r := runes[i]

		switch {
		case unicode.IsSpace(r):
			i++

		case r == '(':
			tokens = append(tokens, conditionToken{kind: tokenLeftParen, text: "("})
			i++

		case r == ')':
			tokens = append(tokens, conditionToken{kind: tokenRightParen, text: ")"})
			i++

		case r == '\'' || r == '"':
			quote := r
			j := i + 1
			for j < len(runes) && runes[j] != quote {
				j++
			}
			if j >= len(runes) {
				return nil, NewValidationError("unterminated string literal in condition", nil)
			}
			tokens = append(tokens, conditionToken{kind: tokenString, text: string(runes[i+1 : j])})
			i = j + 1

		case strings.ContainsRune("=!<>&|", r):
			j := i + 1
			for j < len(runes) && strings.ContainsRune("=&|", runes[j]) {
				j++
			}
			op := string(runes[i:j])
			switch op {
			case "==", "!=", "<", "<=", ">", ">=", "&&", "||", "!":
				tokens = append(tokens, conditionToken{kind: tokenOperator, text: op})
			default:
				return nil, NewValidationError(fmt.Sprintf("unknown operator %q in condition", op), nil)
			}
			i = j

		case unicode.IsDigit(r) || (r == '-' && i+1 < len(runes) && unicode.IsDigit(runes[i+1])):
			j := i + 1
			for j < len(runes) && (unicode.IsDigit(runes[j]) || runes[j] == '.') {
				j++
			}
			tokens = append(tokens, conditionToken{kind: tokenNumber, text: string(runes[i:j])})
			i = j

		case unicode.IsLetter(r) || r == '_':
			j := i + 1
			for j < len(runes) && (unicode.IsLetter(runes[j]) || unicode.IsDigit(runes[j]) || runes[j] == '_' || runes[j] == '.') {
				j++
			}
			tokens = append(tokens, conditionToken{kind: tokenIdent, text: string(runes[i:j])})
			i = j

		default:
			return nil, NewValidationError(fmt.Sprintf("unexpected character %q in condition", string(r)), nil)
		}
	}

	return tokens, nil
}

type conditionNode interface {
	eval(context map[string]interface{}) (interface{}, error)
}

type literalNode struct {
	value interface{}
}

func (n *literalNode) eval(map[string]interface{}) (interface{}, error) {
	return n.value, nil
}

type variableNode struct {
	path string
}

func (n *variableNode) eval(context map[string]interface{}) (interface{}, error) {
	value, ok := ResolvePath(context, n.path)
	if !ok {
		return nil, nil
	}
	return value, nil
}

type notNode struct {
	operand conditionNode
}

func (n *notNode) eval(context map[string]interface{}) (interface{}, error) {
	value, err := n.operand.eval(context)
	if err != nil {
		return nil, err
	}
	return !truthy(value), nil
}

type binaryNode struct {
	operator    string
	left, right conditionNode
}

func (n *binaryNode) eval(context map[string]interface{}) (interface{}, error) {
	left, err := n.left.eval(context)
	if err != nil {
		return nil, err
	}

	switch n.operator {
	case "&&":
		if !truthy(left) {
			return false, nil
		}
		right, err := n.right.eval(context)
		if err != nil {
			return nil, err
		}
		return truthy(right), nil
	case "||":
		if truthy(left) {
			return true, nil
		}
		right, err := n.right.eval(context)
		if err != nil {
			return nil, err
		}
		return truthy(right), nil
	}

	right, err := n.right.eval(context)
	if err != nil {
		return nil, err
	}

	switch n.operator {
	case "==":
		return looseEqual(left, right), nil
	case "!=":
		return !looseEqual(left, right), nil
	}

	leftNum, leftOK := asNumber(left)
	rightNum, rightOK := asNumber(right)
	if !leftOK || !rightOK {
		return nil, NewValidationError(fmt.Sprintf("operator %q needs numeric operands", n.operator), nil)
	}

	switch n.operator {
	case "<":
		return leftNum < rightNum, nil
	case "<=":
		return leftNum <= rightNum, nil
	case ">":
		return leftNum > rightNum, nil
	case ">=":
		return leftNum >= rightNum, nil
	}

	return nil, NewValidationError(fmt.Sprintf("unsupported operator %q", n.operator), nil)
}

type conditionParser struct {
	tokens []conditionToken
	pos    int
}

func (p *conditionParser) atEnd() bool {
	return p.pos >= len(p.tokens)
}

func (p *conditionParser) peek() conditionToken {
	return p.tokens[p.pos]
}

func (p *conditionParser) accept(kind tokenKind, text string) bool {
	if p.atEnd() {
		return false
	}
	token := p.tokens[p.pos]
	if token.kind != kind || (text != "" && token.text != text) {
		return false
	}
	p.pos++
	return true
}

func (p *conditionParser) parseOr() (conditionNode, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.accept(tokenOperator, "||") {
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &binaryNode{operator: "||", left: left, right: right}
	}
	return left, nil
}

func (p *conditionParser) parseAnd() (conditionNode, error) {
	left, err := p.parseComparison()
	if err != nil {
		return nil, err
	}
	for p.accept(tokenOperator, "&&") {
		right, err := p.parseComparison()
		if err != nil {
			return nil, err
		}
		left = &binaryNode{operator: "&&", left: left, right: right}
	}
	return left, nil
}

func (p *conditionParser) parseComparison() (conditionNode, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}

	for _, op := range []string{"==", "!=", "<=", ">=", "<", ">"} {
		if p.accept(tokenOperator, op) {
			right, err := p.parseUnary()
			if err != nil {
				return nil, err
			}
			return &binaryNode{operator: op, left: left, right: right}, nil
		}
	}

	return left, nil
}

func (p *conditionParser) parseUnary() (conditionNode, error) {
	if p.accept(tokenOperator, "!") {
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &notNode{operand: operand}, nil
	}
	return p.parseOperand()
}

func (p *conditionParser) parseOperand() (conditionNode, error) {
	if p.atEnd() {
		return nil, NewValidationError("condition ended unexpectedly", nil)
	}

	if p.accept(tokenLeftParen, "") {
		node, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if !p.accept(tokenRightParen, "") {
			return nil, NewValidationError("missing closing parenthesis in condition", nil)
		}
		return node, nil
	}

	token := p.tokens[p.pos]
	p.pos++

	switch token.kind {
	case tokenString:
		return &literalNode{value: token.text}, nil
	case tokenNumber:
		value, err := strconv.ParseFloat(token.text, 64)
		if err != nil {
			return nil, NewValidationError(fmt.Sprintf("invalid number %q in condition", token.text), err)
		}
		return &literalNode{value: value}, nil
	case tokenIdent:
		switch token.text {
		case "true":
			return &literalNode{value: true}, nil
		case "false":
			return &literalNode{value: false}, nil
		case "null":
			return &literalNode{value: nil}, nil
		}
		return &variableNode{path: token.text}, nil
	}

	return nil, NewValidationError(fmt.Sprintf("unexpected token %q in condition", token.text), nil)
}

func truthy(value interface{}) bool {
	switch v := value.(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		return v != ""
	default:
		if num, ok := asNumber(value); ok {
			return num != 0
		}
		return true
	}
}

func asNumber(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint64:
		return float64(v), true
	}
	return 0, false
}

func looseEqual(left, right interface{}) bool {
	if leftNum, ok := asNumber(left); ok {
		if rightNum, ok := asNumber(right); ok {
			return leftNum == rightNum
		}
	}
	return fmt.Sprintf("%v", left) == fmt.Sprintf("%v", right)
}
