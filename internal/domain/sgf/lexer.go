package sgf

import "fmt"

type tokenType int

const (
	tokenLeftParen tokenType = iota
	tokenRightParen
	tokenSemicolon
	tokenPropIdent
	tokenPropValue
	tokenEOF
)

type token struct {
	typ   tokenType
	value string
}

// lexer режет исходный текст записи на токены. В мягком режиме любой
// неопознанный символ молча пропускается, в строгом — ошибка.
type lexer struct {
	src    string
	pos    int
	strict bool
}

func (l *lexer) next() (token, error) {
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		switch {
		case c == '(':
			l.pos++
			return token{typ: tokenLeftParen}, nil
		case c == ')':
			l.pos++
			return token{typ: tokenRightParen}, nil
		case c == ';':
			l.pos++
			return token{typ: tokenSemicolon}, nil
		case c >= 'A' && c <= 'Z':
			start := l.pos
			for l.pos < len(l.src) && l.src[l.pos] >= 'A' && l.src[l.pos] <= 'Z' {
				l.pos++
			}
			return token{typ: tokenPropIdent, value: l.src[start:l.pos]}, nil
		case c == '[':
			return l.lexValue()
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			l.pos++
		default:
			if l.strict {
				return token{}, fmt.Errorf("unexpected character %q at offset %d", c, l.pos)
			}
			l.pos++
		}
	}
	return token{typ: tokenEOF}, nil
}

// lexValue читает значение в квадратных скобках; `\]` и `\\`
// разэкранируются на месте, прочие обратные слеши остаются как есть.
func (l *lexer) lexValue() (token, error) {
	l.pos++ // '['
	var out []byte
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		if c == '\\' && l.pos+1 < len(l.src) {
			next := l.src[l.pos+1]
			if next == ']' || next == '\\' {
				out = append(out, next)
				l.pos += 2
				continue
			}
			out = append(out, c)
			l.pos++
			continue
		}
		if c == ']' {
			l.pos++
			return token{typ: tokenPropValue, value: string(out)}, nil
		}
		out = append(out, c)
		l.pos++
	}
	if l.strict {
		return token{}, fmt.Errorf("unterminated property value at offset %d", l.pos)
	}
	return token{typ: tokenPropValue, value: string(out)}, nil
}
