package kifu

import "go_kifu/internal/domain/rules"

// Вывод позиции для произвольного узла. Три уровня:
//  1. у узла уже есть кеш — отдаём его;
//  2. кеш есть у родителя (или родитель — корень) — клонируем доску
//     родителя, применяем один ход, кешируем на узле;
//  3. иначе идём от корня по всей цепочке родителей, кешируя каждый
//     промежуточный узел, чтобы дальнейшая навигация была пошаговой.
//
// Кеш на узле пишется один раз и после этого не меняется, поэтому читатель
// никогда не видит полусчитанную доску.

// BoardAt возвращает позицию после узла id. Второе значение false — узла
// нет в дереве.
func (t *Tree) BoardAt(id NodeID) (*BoardState, bool) {
	n, ok := t.Node(id)
	if !ok {
		return nil, false
	}

	switch node := n.(type) {
	case *Root:
		return t.rootState(node), true
	case *MoveNode:
		if node.state != nil {
			return node.state, true
		}
		if parentState := t.cachedState(node.Parent); parentState != nil {
			node.state = applyMove(parentState, node.Move)
			return node.state, true
		}
	}

	// Холодный узел: полный проход от корня с кешированием всего пути.
	path := t.Path(id)
	state := t.rootState(t.Root())
	for _, pid := range path[1:] {
		mn, _ := t.MoveNode(pid)
		if mn.state == nil {
			mn.state = applyMove(state, mn.Move)
		}
		state = mn.state
	}
	return state, true
}

// cachedState отдаёт готовый кеш узла, не провоцируя вычислений.
// Корень считается всегда доступным.
func (t *Tree) cachedState(id NodeID) *BoardState {
	switch node := t.nodes[id].(type) {
	case *Root:
		return t.rootState(node)
	case *MoveNode:
		return node.state
	}
	return nil
}

// rootState один раз строит позицию корня из предустановленных камней.
// Расстановка не запускает взятий: это внешне заданная позиция, а не ход.
func (t *Tree) rootState(root *Root) *BoardState {
	if root.state == nil {
		board := rules.NewBoard(t.size)
		placeSetup(board, root.Setup)
		root.state = &BoardState{Board: board}
	}
	return root.state
}

func placeSetup(board rules.Board, setup []Stone) {
	for _, s := range setup {
		if board.InBounds(s.Row, s.Col) {
			board[s.Row][s.Col] = s.Player
		}
	}
}

// applyMove строит позицию после одного узла поверх позиции родителя.
func applyMove(parent *BoardState, mv Move) *BoardState {
	state := &BoardState{
		Board:         parent.Board.Clone(),
		BlackCaptures: parent.BlackCaptures,
		WhiteCaptures: parent.WhiteCaptures,
	}

	if len(mv.Setup) > 0 {
		placeSetup(state.Board, mv.Setup)
	}
	if mv.IsSetupOnly() || mv.IsPass() || !state.Board.InBounds(mv.Row, mv.Col) {
		return state
	}

	captured := rules.Captures(state.Board, mv.Row, mv.Col, mv.Player)
	for _, p := range captured {
		state.Board[p.Row][p.Col] = rules.Empty
	}
	state.Board[mv.Row][mv.Col] = mv.Player

	switch mv.Player {
	case rules.Black:
		state.BlackCaptures += len(captured)
	case rules.White:
		state.WhiteCaptures += len(captured)
	}
	return state
}
