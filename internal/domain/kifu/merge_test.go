package kifu

import (
	"strings"
	"testing"

	"go_kifu/internal/domain/rules"
)

func TestMergeAnalysisAnnotatesTarget(t *testing.T) {
	tree := NewTree(19)
	a := tree.AddChild(0, Move{Row: 3, Col: 15, Player: rules.Black})
	tree.SealParserIDs()

	nt := tree.MergeAnalysis(a, 55.3, 2.1, nil, 0)
	if nt == tree {
		t.Fatalf("merge must produce a new tree")
	}

	mn, _ := nt.MoveNode(a)
	if mn.Move.Winrate == nil || *mn.Move.Winrate != 55.3 {
		t.Fatalf("winrate not set: %v", mn.Move.Winrate)
	}
	if mn.Move.Score == nil || *mn.Move.Score != 2.1 {
		t.Fatalf("score not set: %v", mn.Move.Score)
	}
	if !strings.Contains(mn.Move.Comment, "Winrate: 55.3%, Score: 2.1") {
		t.Fatalf("comment not annotated: %q", mn.Move.Comment)
	}

	// Прежняя версия дерева не тронута.
	old, _ := tree.MoveNode(a)
	if old.Move.Winrate != nil {
		t.Fatalf("original tree must stay unannotated")
	}
}

func TestMergeAnalysisReplacesStaleAnnotation(t *testing.T) {
	tree := NewTree(19)
	a := tree.AddChild(0, Move{
		Row: 3, Col: 15, Player: rules.Black,
		Comment: "good move\nWinrate: 40.0%, Score: -1.0",
	})
	tree.SealParserIDs()

	nt := tree.MergeAnalysis(a, 55.3, 2.1, nil, 0)
	mn, _ := nt.MoveNode(a)
	if strings.Contains(mn.Move.Comment, "40.0") {
		t.Fatalf("stale annotation must be replaced: %q", mn.Move.Comment)
	}
	if !strings.HasPrefix(mn.Move.Comment, "good move") {
		t.Fatalf("user text must survive: %q", mn.Move.Comment)
	}
	if strings.Count(mn.Move.Comment, "Winrate:") != 1 {
		t.Fatalf("exactly one annotation expected: %q", mn.Move.Comment)
	}
}

func TestMergeAnalysisGrowsSyntheticVariation(t *testing.T) {
	tree := NewTree(19)
	a := tree.AddChild(0, Move{Row: 3, Col: 15, Player: rules.Black})
	tree.SealParserIDs()

	sug := Suggestion{
		Move:    "D4",
		Winrate: 48.0,
		Score:   -0.5,
		Visits:  120,
		PV:      []string{"D4", "Q4", "C16"},
	}
	nt := tree.MergeAnalysis(a, 55.0, 2.0, []Suggestion{sug}, 0)

	mn, _ := nt.MoveNode(a)
	if len(mn.Children) != 1 {
		t.Fatalf("expected one variation child, got %d", len(mn.Children))
	}

	// Цепочка D4 -> Q4 -> C16 с чередованием цветов от белых (после
	// чёрного хода в target).
	cur := mn.Children[0]
	wantPlayers := []int8{rules.White, rules.Black, rules.White}
	for i := 0; ; i++ {
		node, ok := nt.MoveNode(cur)
		if !ok {
			t.Fatalf("variation chain broken at step %d", i)
		}
		if node.Move.Player != wantPlayers[i] {
			t.Fatalf("step %d: player %d, want %d", i, node.Move.Player, wantPlayers[i])
		}
		if !nt.IsSynthetic(cur) {
			t.Fatalf("variation node %d must be synthetic", cur)
		}
		if i == 0 {
			if node.Move.Winrate == nil || *node.Move.Winrate != 48.0 {
				t.Fatalf("variation head must carry the suggestion winrate")
			}
			if !strings.Contains(node.Move.Comment, "Var - Win: 48.0%") {
				t.Fatalf("variation head comment missing: %q", node.Move.Comment)
			}
		}
		if len(node.Children) == 0 {
			if i != 2 {
				t.Fatalf("expected chain of 3, ended at %d", i+1)
			}
			break
		}
		cur = node.Children[0]
	}

	head, _ := nt.MoveNode(mn.Children[0])
	row, col, _ := FromGTP("D4", 19)
	if head.Move.Row != row || head.Move.Col != col {
		t.Fatalf("variation head at (%d,%d), want (%d,%d)", head.Move.Row, head.Move.Col, row, col)
	}
}

func TestMergeAnalysisReusesExistingBranch(t *testing.T) {
	tree := NewTree(19)
	a := tree.AddChild(0, Move{Row: 3, Col: 15, Player: rules.Black})
	row, col, _ := FromGTP("D4", 19)
	existing := tree.AddChild(a, Move{Row: row, Col: col, Player: rules.White})
	tree.SealParserIDs()

	sug := Suggestion{Move: "D4", Winrate: 48.0, Score: -0.5}
	nt := tree.MergeAnalysis(a, 55.0, 2.0, []Suggestion{sug}, 0)

	mn, _ := nt.MoveNode(a)
	if len(mn.Children) != 1 || mn.Children[0] != existing {
		t.Fatalf("existing branch must be reused, children=%v", mn.Children)
	}
	reused, _ := nt.MoveNode(existing)
	if reused.Move.Winrate == nil || *reused.Move.Winrate != 48.0 {
		t.Fatalf("reused branch must pick up the evaluation")
	}
	// Переиспользованный узел — не синтетический.
	if nt.IsSynthetic(existing) {
		t.Fatalf("parsed node must stay non-synthetic")
	}
}

func TestMergeAnalysisCapsVariations(t *testing.T) {
	tree := NewTree(19)
	a := tree.AddChild(0, Move{Row: 3, Col: 15, Player: rules.Black})
	tree.SealParserIDs()

	suggestions := []Suggestion{
		{Move: "D4", Winrate: 48},
		{Move: "Q4", Winrate: 47},
		{Move: "C16", Winrate: 46},
		{Move: "E3", Winrate: 45},
		{Move: "F17", Winrate: 44},
	}
	nt := tree.MergeAnalysis(a, 55.0, 2.0, suggestions, 0)

	mn, _ := nt.MoveNode(a)
	if len(mn.Children) != maxMergeVariations {
		t.Fatalf("expected %d variations, got %d", maxMergeVariations, len(mn.Children))
	}
	if len(mn.Move.Alternatives) != maxMergeVariations {
		t.Fatalf("alternatives must be capped, got %d", len(mn.Move.Alternatives))
	}
}

func TestMergeAnalysisDelta(t *testing.T) {
	tree := NewTree(19)
	a := tree.AddChild(0, Move{Row: 3, Col: 15, Player: rules.Black})
	b := tree.AddChild(a, Move{Row: 15, Col: 3, Player: rules.White})
	tree.SealParserIDs()

	nt := tree.MergeAnalysis(a, 50.0, 0.0, nil, 0)
	nt = nt.MergeAnalysis(b, 56.0, 1.5, nil, 0)

	mn, _ := nt.MoveNode(b)
	if mn.Move.Delta == nil || *mn.Move.Delta != 6.0 {
		t.Fatalf("delta must be winrate difference to parent, got %v", mn.Move.Delta)
	}
}

func TestMergeAnalysisUnknownTarget(t *testing.T) {
	tree := NewTree(19)
	tree.AddChild(0, Move{Row: 3, Col: 15, Player: rules.Black})
	tree.SealParserIDs()

	if nt := tree.MergeAnalysis(99, 50.0, 0.0, nil, 0); nt != tree {
		t.Fatalf("unknown target must be a no-op")
	}
}

func TestMergeAnalysisCurrentPlayerSeedsVariation(t *testing.T) {
	tree := NewTree(19)
	tree.Root().Setup = []Stone{{Row: 3, Col: 3, Player: rules.Black}}
	tree.SealParserIDs()

	// Цель — корень: цвет варианта берётся из currentPlayer движка.
	nt := tree.MergeAnalysis(0, 50.0, 0.0, []Suggestion{{Move: "D4", Winrate: 50}}, rules.White)
	root := nt.Root()
	if len(root.Children) != 1 {
		t.Fatalf("expected one variation from root, got %d", len(root.Children))
	}
	head, _ := nt.MoveNode(root.Children[0])
	if head.Move.Player != rules.White {
		t.Fatalf("variation must start with the engine's current player")
	}
}
