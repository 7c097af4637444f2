package kifu

import (
	"testing"

	"go_kifu/internal/domain/rules"
)

func TestBoardAtDerivesPosition(t *testing.T) {
	tree := NewTree(5)
	a := tree.AddChild(0, Move{Row: 0, Col: 1, Player: rules.Black})
	b := tree.AddChild(a, Move{Row: 0, Col: 0, Player: rules.White})
	c := tree.AddChild(b, Move{Row: 1, Col: 0, Player: rules.Black})

	state, ok := tree.BoardAt(c)
	if !ok {
		t.Fatalf("node must be found")
	}
	// Белый камень в углу снят.
	if state.Board[0][0] != rules.Empty {
		t.Fatalf("white corner stone must be captured")
	}
	if state.Board[0][1] != rules.Black || state.Board[1][0] != rules.Black {
		t.Fatalf("black stones missing")
	}
	if state.BlackCaptures != 1 || state.WhiteCaptures != 0 {
		t.Fatalf("unexpected capture tallies: %d/%d", state.BlackCaptures, state.WhiteCaptures)
	}

	// Позиция родителя не испорчена взятием.
	parentState, _ := tree.BoardAt(b)
	if parentState.Board[0][0] != rules.White {
		t.Fatalf("parent position must keep the white stone")
	}
}

func TestBoardAtColdWalkMatchesIncremental(t *testing.T) {
	build := func() (*Tree, NodeID) {
		tree := NewTree(5)
		cur := tree.AddChild(0, Move{Row: 2, Col: 2, Player: rules.Black})
		cur = tree.AddChild(cur, Move{Row: 2, Col: 3, Player: rules.White})
		cur = tree.AddChild(cur, Move{Row: 1, Col: 3, Player: rules.Black})
		cur = tree.AddChild(cur, Move{Row: 3, Col: 3, Player: rules.White})
		cur = tree.AddChild(cur, Move{Row: 2, Col: 4, Player: rules.Black})
		cur = tree.AddChild(cur, Move{Row: 4, Col: 4, Player: rules.White})
		cur = tree.AddChild(cur, Move{Row: 3, Col: 4, Player: rules.Black})
		return tree, cur
	}

	// Холодный проход сразу к листу.
	cold, leaf := build()
	coldState, _ := cold.BoardAt(leaf)

	// Пошаговый проход по каждому узлу.
	warm, _ := build()
	var warmState *BoardState
	for _, id := range warm.Path(leaf) {
		warmState, _ = warm.BoardAt(id)
	}

	if rules.Hash(coldState.Board) != rules.Hash(warmState.Board) {
		t.Fatalf("cold and incremental derivation diverge:\n%s\n%s",
			rules.Hash(coldState.Board), rules.Hash(warmState.Board))
	}
	if coldState.BlackCaptures != warmState.BlackCaptures || coldState.WhiteCaptures != warmState.WhiteCaptures {
		t.Fatalf("capture tallies diverge")
	}
}

func TestBoardAtCachesOnce(t *testing.T) {
	tree := NewTree(5)
	a := tree.AddChild(0, Move{Row: 1, Col: 1, Player: rules.Black})

	first, _ := tree.BoardAt(a)
	second, _ := tree.BoardAt(a)
	if first != second {
		t.Fatalf("cached state must be returned as-is")
	}
}

func TestBoardAtRootSetup(t *testing.T) {
	tree := NewTree(5)
	tree.Root().Setup = []Stone{
		{Row: 0, Col: 0, Player: rules.Black},
		{Row: 4, Col: 4, Player: rules.White},
	}

	state, ok := tree.BoardAt(0)
	if !ok {
		t.Fatalf("root must always be derivable")
	}
	if state.Board[0][0] != rules.Black || state.Board[4][4] != rules.White {
		t.Fatalf("setup stones not placed")
	}
	if state.BlackCaptures != 0 || state.WhiteCaptures != 0 {
		t.Fatalf("setup must not produce captures")
	}
}

func TestBoardAtPassKeepsPosition(t *testing.T) {
	tree := NewTree(5)
	a := tree.AddChild(0, Move{Row: 2, Col: 2, Player: rules.Black})
	p := tree.AddChild(a, Move{Row: -1, Col: -1, Player: rules.White})

	before, _ := tree.BoardAt(a)
	after, _ := tree.BoardAt(p)
	if rules.Hash(before.Board) != rules.Hash(after.Board) {
		t.Fatalf("pass must not change the position")
	}
}

func TestBoardAtUnknownNode(t *testing.T) {
	tree := NewTree(5)
	if _, ok := tree.BoardAt(42); ok {
		t.Fatalf("unknown node must not be derivable")
	}
}
