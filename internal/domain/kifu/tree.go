package kifu

// Tree — дерево записи партии. Узлы лежат в плоской арене и ссылаются друг
// на друга индексами, поэтому обход вверх по родителям — O(1) без циклов
// ссылок. Мутации (PlayMove, PromoteVariation, MergeAnalysis) возвращают
// новое дерево: арена копируется поверхностно, клонируются только
// изменённые узлы, нетронутые поддеревья общие.
type Tree struct {
	nodes []Node
	size  int

	// parserMax — последний id, назначенный парсером. Всё, что выше,
	// добавлено после загрузки (ходы пользователя, ветки анализа).
	parserMax NodeID
}

// NewTree создаёт дерево с пустым корнем для доски size x size.
func NewTree(size int) *Tree {
	root := &Root{ID: 0, Props: make(map[string][]string)}
	return &Tree{
		nodes:     []Node{root},
		size:      size,
		parserMax: 0,
	}
}

func (t *Tree) Size() int { return t.size }
func (t *Tree) Len() int  { return len(t.nodes) }

// SetSize задаёт размер доски. Используется парсером, когда встречает SZ
// уже после создания дерева.
func (t *Tree) SetSize(size int) { t.size = size }

func (t *Tree) Root() *Root {
	return t.nodes[0].(*Root)
}

func (t *Tree) Node(id NodeID) (Node, bool) {
	if id < 0 || int(id) >= len(t.nodes) {
		return nil, false
	}
	return t.nodes[id], true
}

func (t *Tree) MoveNode(id NodeID) (*MoveNode, bool) {
	n, ok := t.Node(id)
	if !ok {
		return nil, false
	}
	mn, ok := n.(*MoveNode)
	return mn, ok
}

// IsSynthetic сообщает, что узел добавлен не парсером.
func (t *Tree) IsSynthetic(id NodeID) bool {
	return id > t.parserMax
}

// SealParserIDs фиксирует границу идентификаторов парсера; вызывается
// один раз по окончании разбора.
func (t *Tree) SealParserIDs() {
	t.parserMax = NodeID(len(t.nodes) - 1)
}

func (t *Tree) childrenOf(id NodeID) []NodeID {
	switch n := t.nodes[id].(type) {
	case *Root:
		return n.Children
	case *MoveNode:
		return n.Children
	}
	return nil
}

func (t *Tree) parentOf(id NodeID) NodeID {
	switch n := t.nodes[id].(type) {
	case *Root:
		return NoNode
	case *MoveNode:
		return n.Parent
	}
	return NoNode
}

// Path возвращает путь от корня до узла включительно (корень — первый
// элемент). Для неизвестного id возвращает nil.
func (t *Tree) Path(id NodeID) []NodeID {
	if _, ok := t.Node(id); !ok {
		return nil
	}
	var rev []NodeID
	for cur := id; cur != NoNode; cur = t.parentOf(cur) {
		rev = append(rev, cur)
	}
	path := make([]NodeID, len(rev))
	for i, n := range rev {
		path[len(rev)-1-i] = n
	}
	return path
}

// MainLine — главная линия: от корня всегда первый ребёнок.
func (t *Tree) MainLine() []NodeID {
	line := []NodeID{0}
	for cur := NodeID(0); ; {
		children := t.childrenOf(cur)
		if len(children) == 0 {
			return line
		}
		cur = children[0]
		line = append(line, cur)
	}
}

// InitialPlayer определяет, кто ходит первым: свойство PL, иначе цвет
// первого дочернего хода, иначе расстановка только чёрных означает ход
// белых, по умолчанию — чёрные.
func (t *Tree) InitialPlayer() int8 {
	root := t.Root()
	if pl, ok := root.Props["PL"]; ok && len(pl) > 0 {
		if len(pl[0]) > 0 && (pl[0][0] == 'W' || pl[0][0] == 'w') {
			return 2
		}
		return 1
	}
	for _, c := range root.Children {
		if mn, ok := t.MoveNode(c); ok && mn.Move.Player != 0 {
			return mn.Move.Player
		}
	}
	hasBlack, hasWhite := false, false
	for _, s := range root.Setup {
		switch s.Player {
		case 1:
			hasBlack = true
		case 2:
			hasWhite = true
		}
	}
	if hasBlack && !hasWhite {
		return 2
	}
	return 1
}

// AddChild добавляет ход в арену, мутируя дерево на месте. Используется
// парсером и внутренними шагами мутаций до публикации дерева.
func (t *Tree) AddChild(parent NodeID, mv Move) NodeID {
	id := NodeID(len(t.nodes))
	node := &MoveNode{ID: id, Parent: parent, Move: mv}
	t.nodes = append(t.nodes, node)
	switch p := t.nodes[parent].(type) {
	case *Root:
		p.Children = append(p.Children, id)
	case *MoveNode:
		p.Children = append(p.Children, id)
	}
	return id
}

// shallowClone копирует арену (сами узлы общие) с запасом под extra новых.
func (t *Tree) shallowClone(extra int) *Tree {
	nodes := make([]Node, len(t.nodes), len(t.nodes)+extra)
	copy(nodes, t.nodes)
	return &Tree{nodes: nodes, size: t.size, parserMax: t.parserMax}
}

// mutableRoot и mutableMove подменяют слот арены клоном узла, чтобы правка
// не была видна из прежних версий дерева.
func (t *Tree) mutableRoot() *Root {
	cp := t.nodes[0].(*Root).clone()
	t.nodes[0] = cp
	return cp
}

func (t *Tree) mutableMove(id NodeID) *MoveNode {
	cp := t.nodes[id].(*MoveNode).clone()
	t.nodes[id] = cp
	return cp
}

// PromoteVariation делает узел первым среди детей родителя, меняя его
// местами с прежним первым ребёнком. Для корня или уже первого узла —
// no-op (возвращается то же дерево).
func (t *Tree) PromoteVariation(id NodeID) *Tree {
	node, ok := t.MoveNode(id)
	if !ok {
		return t
	}
	siblings := t.childrenOf(node.Parent)
	idx := -1
	for i, c := range siblings {
		if c == id {
			idx = i
			break
		}
	}
	if idx <= 0 {
		return t
	}

	nt := t.shallowClone(0)
	var children []NodeID
	switch node.Parent {
	case 0:
		children = nt.mutableRoot().Children
	default:
		children = nt.mutableMove(node.Parent).Children
	}
	children[0], children[idx] = children[idx], children[0]
	return nt
}

// FindChild ищет среди детей узла ход с теми же координатами.
func (t *Tree) FindChild(parent NodeID, row, col int) (NodeID, bool) {
	for _, c := range t.childrenOf(parent) {
		if mn, ok := t.MoveNode(c); ok && !mn.Move.IsSetupOnly() &&
			mn.Move.Row == row && mn.Move.Col == col {
			return c, true
		}
	}
	return NoNode, false
}

// PlayMove присоединяет ход к узлу parent и возвращает новое дерево и id
// нового узла. Если такой ход уже есть среди детей, он переиспользуется,
// дерево не меняется.
func (t *Tree) PlayMove(parent NodeID, mv Move) (*Tree, NodeID) {
	if _, ok := t.Node(parent); !ok {
		return t, NoNode
	}
	if !mv.IsPass() {
		if existing, ok := t.FindChild(parent, mv.Row, mv.Col); ok {
			if mn, _ := t.MoveNode(existing); mn.Move.Player == mv.Player {
				return t, existing
			}
		}
	}

	nt := t.shallowClone(1)
	if parent == 0 {
		nt.mutableRoot()
	} else {
		nt.mutableMove(parent)
	}
	id := nt.AddChild(parent, mv)
	return nt, id
}
