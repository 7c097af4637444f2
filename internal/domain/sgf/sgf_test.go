package sgf

import (
	"errors"
	"strings"
	"testing"

	"go_kifu/internal/domain/kifu"
	"go_kifu/internal/domain/rules"
	ownerrors "go_kifu/internal/errors"
)

func TestParseSimpleRecord(t *testing.T) {
	tree, err := Parse("(;FF[4]GM[1]SZ[9];B[aa];W[ab])")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if tree.Size() != 9 {
		t.Fatalf("expected board size 9, got %d", tree.Size())
	}
	if got := tree.Root().Props["GM"]; len(got) != 1 || got[0] != "1" {
		t.Fatalf("expected GM[1] in root props, got %v", got)
	}

	line := tree.MainLine()
	if len(line) != 3 {
		t.Fatalf("expected main line of 3 nodes, got %d", len(line))
	}
	first, _ := tree.MoveNode(line[1])
	if first.Move.Player != rules.Black || first.Move.Row != 0 || first.Move.Col != 0 {
		t.Fatalf("unexpected first move: %+v", first.Move)
	}
	second, _ := tree.MoveNode(line[2])
	if second.Move.Player != rules.White || second.Move.Row != 1 || second.Move.Col != 0 {
		t.Fatalf("unexpected second move: %+v", second.Move)
	}
}

func TestParseStandardOpening(t *testing.T) {
	tree, err := Parse("(;GM[1]FF[4]SZ[19];B[pd];W[dp])")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	line := tree.MainLine()
	if len(line) != 3 {
		t.Fatalf("expected 2 moves, got %d", len(line)-1)
	}
	first, _ := tree.MoveNode(line[1])
	if first.Move.Player != rules.Black || first.Move.Row != 3 || first.Move.Col != 15 {
		t.Fatalf("unexpected first move: %+v", first.Move)
	}
	second, _ := tree.MoveNode(line[2])
	if second.Move.Player != rules.White || second.Move.Row != 15 || second.Move.Col != 3 {
		t.Fatalf("unexpected second move: %+v", second.Move)
	}
}

func TestSerializeRoundTrip(t *testing.T) {
	src := "(;FF[4]GM[1]SZ[9];B[aa];W[ab])"
	tree, err := Parse(src)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	out := Serialize(tree)
	if out != src {
		t.Fatalf("round trip mismatch:\n in: %s\nout: %s", src, out)
	}
}

func TestSerializeIsIdempotent(t *testing.T) {
	src := "(;SZ[9]PB[foo]PW[bar]XX[custom];B[cc]C[hello];W[dd](;B[ee])(;B[ff]))"
	tree, err := Parse(src)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	once := Serialize(tree)

	tree2, err := Parse(once)
	if err != nil {
		t.Fatalf("reparse failed: %v", err)
	}
	twice := Serialize(tree2)
	if once != twice {
		t.Fatalf("serialization not idempotent:\n once: %s\ntwice: %s", once, twice)
	}
}

func TestParseVariations(t *testing.T) {
	tree, err := Parse("(;SZ[9];B[aa](;W[bb];B[cc])(;W[dd]))")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	first := tree.Root().Children
	if len(first) != 1 {
		t.Fatalf("expected 1 root child, got %d", len(first))
	}
	mn, _ := tree.MoveNode(first[0])
	if len(mn.Children) != 2 {
		t.Fatalf("expected 2 variations, got %d", len(mn.Children))
	}

	out := Serialize(tree)
	if out != "(;SZ[9];B[aa](;W[bb];B[cc])(;W[dd]))" {
		t.Fatalf("unexpected serialization: %s", out)
	}
}

func TestSerializeLine(t *testing.T) {
	tree, err := Parse("(;SZ[9];B[aa](;W[bb];B[cc])(;W[dd]))")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	// Узлы нумеруются в порядке разбора: 1 = B[aa], 4 = W[dd].
	out := SerializeLine(tree, 4)
	if out != "(;SZ[9];B[aa];W[dd])" {
		t.Fatalf("unexpected line serialization: %s", out)
	}

	if got := SerializeLine(tree, 99); got != "" {
		t.Fatalf("unknown node must yield empty string, got %s", got)
	}
}

func TestSetupStonesHoistedToRoot(t *testing.T) {
	tree, err := Parse("(;SZ[9]AB[aa][bb]AW[cc];B[dd])")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	root := tree.Root()
	if len(root.Setup) != 3 {
		t.Fatalf("expected 3 setup stones, got %d", len(root.Setup))
	}
	if root.Setup[2].Player != rules.White || root.Setup[2].Row != 2 || root.Setup[2].Col != 2 {
		t.Fatalf("unexpected white setup stone: %+v", root.Setup[2])
	}
	if len(tree.MainLine()) != 2 {
		t.Fatalf("setup-only node must not appear in the tree")
	}

	out := Serialize(tree)
	if out != "(;SZ[9]AB[aa][bb]AW[cc];B[dd])" {
		t.Fatalf("unexpected serialization: %s", out)
	}
}

func TestParsePassMoves(t *testing.T) {
	tree, err := Parse("(;SZ[9];B[];W[tt])")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	line := tree.MainLine()
	if len(line) != 3 {
		t.Fatalf("expected 2 moves, got %d", len(line)-1)
	}
	for _, id := range line[1:] {
		mn, _ := tree.MoveNode(id)
		if !mn.Move.IsPass() {
			t.Fatalf("expected pass, got %+v", mn.Move)
		}
	}

	if out := Serialize(tree); out != "(;SZ[9];B[];W[])" {
		t.Fatalf("pass must serialize as empty value, got %s", out)
	}
}

func TestCommentEscaping(t *testing.T) {
	tree, err := Parse("(;SZ[9];B[aa]C[a\\]b\\\\c])")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	mn, _ := tree.MoveNode(tree.Root().Children[0])
	if mn.Move.Comment != "a]b\\c" {
		t.Fatalf("unexpected comment: %q", mn.Move.Comment)
	}

	out := Serialize(tree)
	if !strings.Contains(out, "C[a\\]b\\\\c]") {
		t.Fatalf("comment not re-escaped: %s", out)
	}
}

func TestWinrateMinedFromComment(t *testing.T) {
	tree, err := Parse("(;SZ[9];B[aa]C[Winrate: 55.3%, Score: -2.1])")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	mn, _ := tree.MoveNode(tree.Root().Children[0])
	if mn.Move.Winrate == nil || *mn.Move.Winrate != 55.3 {
		t.Fatalf("winrate not mined: %v", mn.Move.Winrate)
	}
	if mn.Move.Score == nil || *mn.Move.Score != -2.1 {
		t.Fatalf("score not mined: %v", mn.Move.Score)
	}
}

func TestLenientParserSkipsGarbage(t *testing.T) {
	tree, err := Parse("junk before (;SZ[9]lowercase;B[aa])")
	if err != nil {
		t.Fatalf("lenient parse must not fail: %v", err)
	}
	if len(tree.MainLine()) != 2 {
		t.Fatalf("expected one move, got %d nodes", len(tree.MainLine()))
	}
}

func TestStrictParserRejectsGarbage(t *testing.T) {
	p := NewParser(true)
	if _, err := p.Parse("junk(;B[aa])"); err == nil {
		t.Fatalf("strict parse must reject leading garbage")
	}
	if _, err := p.Parse("(;B[aa"); err == nil {
		t.Fatalf("strict parse must reject unterminated value")
	}
	if _, err := p.Parse("(;B[aa]"); err == nil {
		t.Fatalf("strict parse must reject missing ')'")
	}
}

func TestLenientParserDropsOffBoardMove(t *testing.T) {
	tree, err := Parse("(;SZ[9];B[zz];W[bb])")
	if err != nil {
		t.Fatalf("lenient parse must not fail: %v", err)
	}
	line := tree.MainLine()
	if len(line) != 2 {
		t.Fatalf("off-board move must be dropped, got %d nodes", len(line)-1)
	}
	mn, _ := tree.MoveNode(line[1])
	if mn.Move.Player != rules.White || mn.Move.Row != 1 || mn.Move.Col != 1 {
		t.Fatalf("surviving move wrong: %+v", mn.Move)
	}
	// Все координаты в дереве — в пределах доски.
	size := tree.Size()
	for _, id := range line[1:] {
		node, _ := tree.MoveNode(id)
		if !node.Move.IsPass() && (node.Move.Row >= size || node.Move.Col >= size) {
			t.Fatalf("coordinate outside board: %+v", node.Move)
		}
	}
}

func TestStrictParserRejectsOffBoardMove(t *testing.T) {
	p := NewParser(true)
	if _, err := p.Parse("(;SZ[9];B[zz])"); err == nil {
		t.Fatalf("strict parse must reject off-board coordinate")
	}
}

func TestLenientParserRecoversUnterminated(t *testing.T) {
	tree, err := Parse("(;SZ[9];B[aa")
	if err != nil {
		t.Fatalf("lenient parse must not fail: %v", err)
	}
	mn, _ := tree.MoveNode(tree.Root().Children[0])
	if mn.Move.Row != 0 || mn.Move.Col != 0 {
		t.Fatalf("unexpected move: %+v", mn.Move)
	}
}

func TestParserIDsSealed(t *testing.T) {
	tree, err := Parse("(;SZ[9];B[aa];W[bb])")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if tree.IsSynthetic(2) {
		t.Fatalf("parsed node must not be synthetic")
	}
	nt, id := tree.PlayMove(2, kifu.Move{Row: 2, Col: 2, Player: rules.Black})
	if !nt.IsSynthetic(id) {
		t.Fatalf("played node must be synthetic")
	}
}

func TestValidate(t *testing.T) {
	valid := "(;SZ[9];B[aa])"
	if err := Validate(valid); err != nil {
		t.Fatalf("valid record rejected: %v", err)
	}

	bad := []string{
		"",
		"  ",
		";B[aa]",
		"(;B[aa]",
		"(;B[aa]))",
		"(;B[[aa]])",
		"(;B[aa)",
	}
	for _, src := range bad {
		if err := Validate(src); !errors.Is(err, ownerrors.ErrInvalidRecord) {
			t.Fatalf("expected ErrInvalidRecord for %q, got %v", src, err)
		}
	}

	// Экранированная скобка внутри значения — не конец значения.
	if err := Validate("(;SZ[9];B[aa]C[a\\]b])"); err != nil {
		t.Fatalf("escaped bracket rejected: %v", err)
	}
}

func TestValidateLimits(t *testing.T) {
	huge := "(" + strings.Repeat(";B[aa]", MaxMoves+1) + ")"
	if err := Validate(huge); !errors.Is(err, ownerrors.ErrInvalidRecord) {
		t.Fatalf("expected move limit violation, got %v", err)
	}

	var sb strings.Builder
	sb.WriteString("(;SZ[9]")
	for i := 0; i < MaxVariations+1; i++ {
		sb.WriteString("(;B[aa])")
	}
	sb.WriteString(")")
	if err := Validate(sb.String()); !errors.Is(err, ownerrors.ErrInvalidRecord) {
		t.Fatalf("expected variation limit violation, got %v", err)
	}

	oversized := "(" + strings.Repeat(" ", MaxRecordSize) + ")"
	if err := Validate(oversized); !errors.Is(err, ownerrors.ErrInvalidRecord) {
		t.Fatalf("expected size limit violation, got %v", err)
	}
}
