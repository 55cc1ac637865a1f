// Copyright 2020-2021 Dolthub, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package query

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/dolthub/vast/internal/expr"
	"github.com/dolthub/vast/internal/types"
)

// Parse builds an expr.Expr from a query string (§6 "boolean combinations of
// predicates"). This recursive-descent parser is deliberately small: the
// grammar machinery is explicitly out of scope (spec.md §1), and Search
// only needs something that produces a well-formed Expr of schema_extractor
// leaves for the resolver to take over from. now anchors `now[+/-N unit]`
// time literals (§6).
//
//	expr       := orExpr
//	orExpr     := andExpr ( "||" andExpr )*
//	andExpr    := unary ( "&&" unary )*
//	unary      := "!" unary | primary
//	primary    := "(" expr ")" | predicate
//	predicate  := key op literal
func Parse(s string, now time.Time) (expr.Expr, error) {
	p := &parser{toks: tokenize(s), now: now}
	e, err := p.parseOr()
	if err != nil {
		return expr.Expr{}, err
	}
	if p.pos != len(p.toks) {
		return expr.Expr{}, fmt.Errorf("query: unexpected trailing input at %q", p.toks[p.pos].text)
	}
	return e, nil
}

type tokenKind uint8

const (
	tokEOF tokenKind = iota
	tokIdent
	tokString
	tokNumber
	tokOp
	tokLParen
	tokRParen
	tokAnd
	tokOr
	tokNot
)

type token struct {
	kind tokenKind
	text string
}

func tokenize(s string) []token {
	var out []token
	runes := []rune(s)
	for i := 0; i < len(runes); {
		r := runes[i]
		switch {
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			i++
		case r == '(':
			out = append(out, token{tokLParen, "("})
			i++
		case r == ')':
			out = append(out, token{tokRParen, ")"})
			i++
		case strings.HasPrefix(string(runes[i:]), "&&"):
			out = append(out, token{tokAnd, "&&"})
			i += 2
		case strings.HasPrefix(string(runes[i:]), "||"):
			out = append(out, token{tokOr, "||"})
			i += 2
		case strings.HasPrefix(string(runes[i:]), "not in"):
			out = append(out, token{tokOp, "not in"})
			i += 6
		case strings.HasPrefix(string(runes[i:]), "in") &&
			(i+2 >= len(runes) || !isIdentRune(runes[i+2])):
			out = append(out, token{tokOp, "in"})
			i += 2
		case strings.HasPrefix(string(runes[i:]), "!~"):
			out = append(out, token{tokOp, "!~"})
			i += 2
		case strings.HasPrefix(string(runes[i:]), "=="):
			out = append(out, token{tokOp, "=="})
			i += 2
		case strings.HasPrefix(string(runes[i:]), "!="):
			out = append(out, token{tokOp, "!="})
			i += 2
		case strings.HasPrefix(string(runes[i:]), "<="):
			out = append(out, token{tokOp, "<="})
			i += 2
		case strings.HasPrefix(string(runes[i:]), ">="):
			out = append(out, token{tokOp, ">="})
			i += 2
		case r == '<':
			out = append(out, token{tokOp, "<"})
			i++
		case r == '>':
			out = append(out, token{tokOp, ">"})
			i++
		case r == '~':
			out = append(out, token{tokOp, "~"})
			i++
		case r == '!':
			out = append(out, token{tokNot, "!"})
			i++
		case r == '"' || r == '\'':
			j := i + 1
			for j < len(runes) && runes[j] != r {
				j++
			}
			out = append(out, token{tokString, string(runes[i+1 : j])})
			i = j + 1
		case (r >= '0' && r <= '9') || r == '-' || r == '.':
			j := i + 1
			for j < len(runes) && (isIdentRune(runes[j]) || runes[j] == '.' || runes[j] == ':' || runes[j] == '+' || runes[j] == '@') {
				j++
			}
			out = append(out, token{tokNumber, string(runes[i:j])})
			i = j
		case isIdentRune(r) || r == '@':
			j := i + 1
			for j < len(runes) && (isIdentRune(runes[j]) || runes[j] == '.') {
				j++
			}
			out = append(out, token{tokIdent, string(runes[i:j])})
			i = j
		default:
			i++
		}
	}
	return out
}

func isIdentRune(r rune) bool {
	return r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}

type parser struct {
	toks []token
	pos  int
	now  time.Time
}

func (p *parser) peek() token {
	if p.pos >= len(p.toks) {
		return token{kind: tokEOF}
	}
	return p.toks[p.pos]
}

func (p *parser) next() token {
	t := p.peek()
	p.pos++
	return t
}

func (p *parser) parseOr() (expr.Expr, error) {
	lhs, err := p.parseAnd()
	if err != nil {
		return expr.Expr{}, err
	}
	operands := []expr.Expr{lhs}
	for p.peek().kind == tokOr {
		p.next()
		rhs, err := p.parseAnd()
		if err != nil {
			return expr.Expr{}, err
		}
		operands = append(operands, rhs)
	}
	if len(operands) == 1 {
		return operands[0], nil
	}
	return expr.Or(operands...), nil
}

func (p *parser) parseAnd() (expr.Expr, error) {
	lhs, err := p.parseUnary()
	if err != nil {
		return expr.Expr{}, err
	}
	operands := []expr.Expr{lhs}
	for p.peek().kind == tokAnd {
		p.next()
		rhs, err := p.parseUnary()
		if err != nil {
			return expr.Expr{}, err
		}
		operands = append(operands, rhs)
	}
	if len(operands) == 1 {
		return operands[0], nil
	}
	return expr.And(operands...), nil
}

func (p *parser) parseUnary() (expr.Expr, error) {
	if p.peek().kind == tokNot {
		p.next()
		inner, err := p.parseUnary()
		if err != nil {
			return expr.Expr{}, err
		}
		return expr.Not(inner), nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (expr.Expr, error) {
	if p.peek().kind == tokLParen {
		p.next()
		e, err := p.parseOr()
		if err != nil {
			return expr.Expr{}, err
		}
		if p.peek().kind != tokRParen {
			return expr.Expr{}, fmt.Errorf("query: expected ')'")
		}
		p.next()
		return e, nil
	}
	return p.parsePredicate()
}

func (p *parser) parsePredicate() (expr.Expr, error) {
	key := p.next()
	if key.kind != tokIdent {
		return expr.Expr{}, fmt.Errorf("query: expected a key, got %q", key.text)
	}

	opTok := p.next()
	op, err := parseOp(opTok.text)
	if err != nil {
		return expr.Expr{}, err
	}

	rhsTok := p.next()
	rhs, err := p.parseLiteral(rhsTok)
	if err != nil {
		return expr.Expr{}, err
	}

	lhs := expr.SchemaExtractor(strings.Split(key.text, ".")...)
	return expr.Pred(lhs, op, rhs), nil
}

func parseOp(s string) (expr.Op, error) {
	switch s {
	case "==":
		return expr.OpEqual, nil
	case "!=":
		return expr.OpNotEqual, nil
	case "<":
		return expr.OpLess, nil
	case "<=":
		return expr.OpLessEqual, nil
	case ">":
		return expr.OpGreater, nil
	case ">=":
		return expr.OpGreaterEqual, nil
	case "~":
		return expr.OpMatch, nil
	case "!~":
		return expr.OpNotMatch, nil
	case "in":
		return expr.OpIn, nil
	case "not in":
		return expr.OpNotIn, nil
	default:
		return 0, fmt.Errorf("query: unknown operator %q", s)
	}
}

func (p *parser) parseLiteral(t token) (types.Data, error) {
	switch t.kind {
	case tokString:
		return types.String_(t.text), nil
	case tokIdent:
		switch t.text {
		case "true":
			return types.Bool_(true), nil
		case "false":
			return types.Bool_(false), nil
		case "now":
			s := t.text
			for p.peek().kind == tokNumber {
				s += p.next().text
			}
			tm, err := ParseTime(s, p.now)
			if err != nil {
				return types.Data{}, err
			}
			return types.TimePoint(tm), nil
		}
		return types.String_(t.text), nil
	case tokNumber:
		if ip := net.ParseIP(t.text); ip != nil {
			return types.Addr(ip), nil
		}
		if strings.ContainsAny(t.text, "@") || (strings.Contains(t.text, "-") && len(t.text) > 1 && !isNumericStart(t.text)) {
			tm, err := ParseTime(t.text, p.now)
			if err == nil {
				return types.TimePoint(tm), nil
			}
		}
		if strings.ContainsAny(t.text, "nuhmsdwy") {
			d, err := ParseDuration(t.text)
			if err == nil {
				return types.Dur(d), nil
			}
		}
		if i, err := strconv.ParseInt(t.text, 10, 64); err == nil {
			return types.Int_(i), nil
		}
		f, err := strconv.ParseFloat(t.text, 64)
		if err != nil {
			return types.Data{}, fmt.Errorf("query: invalid numeric literal %q: %w", t.text, err)
		}
		return types.Real_(f), nil
	default:
		return types.Data{}, fmt.Errorf("query: expected a literal, got %q", t.text)
	}
}

func isNumericStart(s string) bool {
	return len(s) > 0 && (s[0] >= '0' && s[0] <= '9' || s[0] == '-' || s[0] == '.')
}
