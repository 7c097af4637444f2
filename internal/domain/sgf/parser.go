package sgf

import (
	"fmt"
	"regexp"
	"strconv"

	"go_kifu/internal/domain/kifu"
	"go_kifu/internal/domain/rules"
)

const defaultBoardSize = 19

// Мини-синтаксис движковых аннотаций внутри комментариев: при разборе поля
// winrate/score восстанавливаются из текста, при сериализации текст
// остаётся как есть.
var (
	winratePat = regexp.MustCompile(`Winrate:\s*(-?[0-9]+(?:\.[0-9]+)?)%`)
	scorePat   = regexp.MustCompile(`Score:\s*(-?[0-9]+(?:\.[0-9]+)?)`)
)

// Parser — рекурсивный спуск по грамматике
//
//	GameTree := '(' Sequence {GameTree} ')'
//	Sequence := Node*
//	Node     := ';' Property*
//
// В мягком режиме разбор никогда не возвращает ошибку: мусорные символы
// пропускаются, пустые и бессодержательные узлы выбрасываются. В строгом
// режиме первая же неожиданность — ошибка.
type Parser struct {
	Strict bool
}

func NewParser(strict bool) *Parser {
	return &Parser{Strict: strict}
}

// Parse — разбор в мягком режиме.
func Parse(src string) (*kifu.Tree, error) {
	return NewParser(false).Parse(src)
}

type parseRun struct {
	lex    *lexer
	tree   *kifu.Tree
	strict bool

	peeked   *token
	sawFirst bool // первый узел записи уже обработан
}

func (p *Parser) Parse(src string) (*kifu.Tree, error) {
	run := &parseRun{
		lex:    &lexer{src: src, strict: p.Strict},
		tree:   kifu.NewTree(defaultBoardSize),
		strict: p.Strict,
	}

	// До первой '(' всё считается прологом.
	for {
		tok, err := run.next()
		if err != nil {
			return nil, err
		}
		if tok.typ == tokenLeftParen {
			break
		}
		if tok.typ == tokenEOF {
			if p.Strict {
				return nil, fmt.Errorf("expected '(' at start of record")
			}
			run.tree.SealParserIDs()
			return run.tree, nil
		}
		if p.Strict {
			return nil, fmt.Errorf("expected '(' at start of record")
		}
	}

	if err := run.parseGameTree(0); err != nil {
		return nil, err
	}
	run.tree.SealParserIDs()
	return run.tree, nil
}

func (r *parseRun) next() (token, error) {
	if r.peeked != nil {
		t := *r.peeked
		r.peeked = nil
		return t, nil
	}
	return r.lex.next()
}

func (r *parseRun) peek() (token, error) {
	if r.peeked == nil {
		t, err := r.lex.next()
		if err != nil {
			return token{}, err
		}
		r.peeked = &t
	}
	return *r.peeked, nil
}

// parseGameTree разбирает содержимое после '(' до парной ')'. Узлы
// последовательности цепляются друг к другу, вложенные '(' дают
// независимые ветки от текущего узла — вариантов может быть сколько угодно.
func (r *parseRun) parseGameTree(parent kifu.NodeID) error {
	cur := parent
	for {
		tok, err := r.next()
		if err != nil {
			return err
		}
		switch tok.typ {
		case tokenSemicolon:
			next, err := r.parseNode(cur)
			if err != nil {
				return err
			}
			cur = next
		case tokenLeftParen:
			if err := r.parseGameTree(cur); err != nil {
				return err
			}
		case tokenRightParen:
			return nil
		case tokenEOF:
			if r.strict {
				return fmt.Errorf("expected ')' before end of input")
			}
			return nil
		default:
			// Свойство вне узла: в мягком режиме пропускаем.
			if r.strict {
				return fmt.Errorf("property outside of node")
			}
		}
	}
}

// parseNode накапливает свойства до следующего ';', '(' или ')'. Узел без
// хода и без расстановки — структурный шум, он выбрасывается, а следующий
// узел цепляется к тому же родителю.
func (r *parseRun) parseNode(parent kifu.NodeID) (kifu.NodeID, error) {
	props := make(map[string][]string)
	for {
		tok, err := r.peek()
		if err != nil {
			return parent, err
		}
		if tok.typ != tokenPropIdent {
			break
		}
		r.peeked = nil
		ident := tok.value
		var values []string
		for {
			vt, err := r.peek()
			if err != nil {
				return parent, err
			}
			if vt.typ != tokenPropValue {
				break
			}
			r.peeked = nil
			values = append(values, vt.value)
		}
		if len(values) == 0 {
			if r.strict {
				return parent, fmt.Errorf("property %s without value", ident)
			}
			continue
		}
		props[ident] = append(props[ident], values...)
	}
	return r.materialize(parent, props)
}

// materialize превращает набор свойств в узел дерева (или ни во что).
func (r *parseRun) materialize(parent kifu.NodeID, props map[string][]string) (kifu.NodeID, error) {
	isFirst := !r.sawFirst
	r.sawFirst = true

	var mv kifu.Move
	for key, values := range props {
		switch key {
		case "B", "W":
			mv.Player = rules.Black
			if key == "W" {
				mv.Player = rules.White
			}
			mv.Row, mv.Col = decodeCoord(values[0], r.tree.Size())
		case "AB", "AW":
			player := rules.Black
			if key == "AW" {
				player = rules.White
			}
			for _, v := range values {
				row, col, ok := decodeSetupCoord(v)
				if ok {
					mv.Setup = append(mv.Setup, kifu.Stone{Row: row, Col: col, Player: player})
				}
			}
		case "C":
			mv.Comment = values[0]
			if m := winratePat.FindStringSubmatch(mv.Comment); m != nil {
				if wr, err := strconv.ParseFloat(m[1], 64); err == nil {
					mv.Winrate = &wr
				}
			}
			if m := scorePat.FindStringSubmatch(mv.Comment); m != nil {
				if sc, err := strconv.ParseFloat(m[1], 64); err == nil {
					mv.Score = &sc
				}
			}
		default:
			// Метаданные интересны только на первом узле записи, где они
			// складываются в корневой мешок; дальше просто пропускаются.
			if isFirst {
				if key == "SZ" {
					if sz, err := strconv.Atoi(values[0]); err == nil && sz > 0 {
						r.tree.SetSize(sz)
					}
				}
				r.tree.Root().Props[key] = append([]string(nil), values...)
			}
		}
	}

	// Ход с координатой вне доски: в дереве таким узлам не место. Размер
	// проверяется после обработки всех свойств, когда SZ уже учтён.
	if mv.Player != 0 && !mv.IsPass() {
		size := r.tree.Size()
		if mv.Row < 0 || mv.Row >= size || mv.Col < 0 || mv.Col >= size {
			if r.strict {
				return parent, fmt.Errorf("move coordinate outside %dx%d board", size, size)
			}
			return parent, nil
		}
	}

	// Первый узел, несущий только расстановку: камни поднимаются на
	// корень, сам узел из дерева выпадает.
	if isFirst && mv.Player == 0 && len(mv.Setup) > 0 {
		root := r.tree.Root()
		root.Setup = append(root.Setup, mv.Setup...)
		return parent, nil
	}

	if mv.Player == 0 && len(mv.Setup) == 0 {
		return parent, nil
	}

	return r.tree.AddChild(parent, mv), nil
}

// decodeCoord разбирает двухбуквенную координату хода: col = c0-'a',
// row = c1-'a'. Пустое значение и "tt" на досках до 19 — пас.
func decodeCoord(v string, size int) (row, col int) {
	if v == "" || (v == "tt" && size <= 19) {
		return -1, -1
	}
	if len(v) < 2 {
		return -1, -1
	}
	return int(v[1] - 'a'), int(v[0] - 'a')
}

func decodeSetupCoord(v string) (row, col int, ok bool) {
	if len(v) < 2 {
		return 0, 0, false
	}
	return int(v[1] - 'a'), int(v[0] - 'a'), true
}
