package kifu

import "go_kifu/internal/domain/rules"

// NodeID — индекс узла в арене дерева. Корень всегда 0.
type NodeID int

const NoNode NodeID = -1

// Node — запечатанный вариантный тип: узел дерева либо корень, либо ход.
type Node interface {
	isNode()
}

// Root — корень записи партии. Хранит предустановленные камни (AB/AW из
// первого узла записи) и непрозрачный мешок корневых свойств (GM, FF, KM...).
type Root struct {
	ID       NodeID
	Children []NodeID
	Setup    []Stone
	Props    map[string][]string

	state *BoardState // считается один раз из Setup
}

// MoveNode — узел с ходом (или с расстановкой камней при Player == 0).
type MoveNode struct {
	ID       NodeID
	Parent   NodeID
	Children []NodeID
	Move     Move

	state *BoardState // write-once кеш позиции после этого узла
}

func (*Root) isNode()     {}
func (*MoveNode) isNode() {}

// Stone — предустановленный камень (без хода).
type Stone struct {
	Row    int  `json:"row"`
	Col    int  `json:"col"`
	Player int8 `json:"player"`
}

// Move — содержимое узла. Player: 1 чёрные, 2 белые, 0 — узел-расстановка.
// Row == Col == -1 означает пас.
type Move struct {
	Row    int  `json:"row"`
	Col    int  `json:"col"`
	Player int8 `json:"player"`

	Comment  string        `json:"comment,omitempty"`
	Captured []rules.Point `json:"captured,omitempty"`

	Winrate *float64 `json:"winrate,omitempty"`
	Score   *float64 `json:"score,omitempty"`
	Delta   *float64 `json:"delta,omitempty"`
	Visits  int      `json:"visits,omitempty"`

	Alternatives []Suggestion `json:"alternatives,omitempty"`
	Setup        []Stone      `json:"setup,omitempty"`
}

// Suggestion — вариант продолжения от движка анализа. Move в GTP-координатах
// (буква без I, цифра от нижнего края).
type Suggestion struct {
	Move    string   `json:"move"`
	Winrate float64  `json:"winrate"`
	Score   float64  `json:"score"`
	Visits  int      `json:"visits,omitempty"`
	PV      []string `json:"pv,omitempty"`
}

// BoardState — позиция после узла плюс счётчики пленников.
type BoardState struct {
	Board         rules.Board `json:"board"`
	BlackCaptures int         `json:"black_captures"` // камни, снятые чёрными
	WhiteCaptures int         `json:"white_captures"` // камни, снятые белыми
}

func (m Move) IsPass() bool {
	return m.Row == -1 && m.Col == -1
}

func (m Move) IsSetupOnly() bool {
	return m.Player == 0
}

func (r *Root) clone() *Root {
	cp := *r
	cp.Children = append([]NodeID(nil), r.Children...)
	return &cp
}

func (n *MoveNode) clone() *MoveNode {
	cp := *n
	cp.Children = append([]NodeID(nil), n.Children...)
	return &cp
}
