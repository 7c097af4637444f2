package kifu

import (
	"fmt"
	"regexp"

	"go_kifu/internal/domain/rules"
)

// maxMergeVariations — сколько предложенных продолжений вливается в дерево
// на один проанализированный узел (лучшие первыми).
const maxMergeVariations = 3

var annotationPat = regexp.MustCompile(`Winrate:\s*-?[0-9.]+%,\s*Score:\s*-?[0-9.]+`)

// MergeAnalysis вливает результат анализа в дерево: ставит winrate/score на
// целевой узел и доращивает предложенные продолжения синтетическими
// цепочками. Существующие ветки с теми же координатами переиспользуются,
// дублей не возникает. Неизвестный target — no-op, возвращается прежнее
// дерево. Winrate ожидается в процентах.
func (t *Tree) MergeAnalysis(target NodeID, winrate, score float64, suggestions []Suggestion, currentPlayer int8) *Tree {
	if _, ok := t.Node(target); !ok {
		return t
	}

	nt := t.shallowClone(8)
	fresh := make(map[NodeID]bool)

	firstPlayer := currentPlayer
	if node, ok := nt.MoveNode(target); ok {
		mn := nt.ensureMutable(target, fresh).(*MoveNode)
		mn.Move.Winrate = &winrate
		mn.Move.Score = &score
		if parent, ok := nt.MoveNode(node.Parent); ok && parent.Move.Winrate != nil {
			delta := winrate - *parent.Move.Winrate
			mn.Move.Delta = &delta
		}
		mn.Move.Comment = annotateComment(mn.Move.Comment, winrate, score)
		if len(suggestions) > 0 {
			alts := suggestions
			if len(alts) > maxMergeVariations {
				alts = alts[:maxMergeVariations]
			}
			mn.Move.Alternatives = append([]Suggestion(nil), alts...)
		}
		if firstPlayer == 0 && mn.Move.Player != 0 {
			firstPlayer = rules.Opponent(mn.Move.Player)
		}
	}
	if firstPlayer == 0 {
		firstPlayer = rules.Black
	}

	merged := 0
	for _, s := range suggestions {
		if merged >= maxMergeVariations {
			break
		}
		nt.mergeSuggestion(target, s, firstPlayer, fresh)
		merged++
	}
	return nt
}

// mergeSuggestion ведёт цепочку предложенного продолжения от узла target,
// переиспользуя совпадающие по координатам ветки и создавая синтетические
// узлы с первой точки расхождения.
func (nt *Tree) mergeSuggestion(target NodeID, s Suggestion, firstPlayer int8, fresh map[NodeID]bool) {
	seq := []string{s.Move}
	if len(s.PV) > 1 {
		seq = append(seq, s.PV[1:]...)
	}

	cur := target
	player := firstPlayer
	for i, gtp := range seq {
		row, col, err := FromGTP(gtp, nt.size)
		if err != nil {
			return
		}

		if existing, ok := nt.FindChild(cur, row, col); ok {
			if i == 0 {
				// Голова варианта уже есть в дереве: переиспользуем и
				// дописываем оценку, если её ещё не было.
				if mn, _ := nt.MoveNode(existing); mn.Move.Winrate == nil {
					cp := nt.ensureMutable(existing, fresh).(*MoveNode)
					wr, sc := s.Winrate, s.Score
					cp.Move.Winrate = &wr
					cp.Move.Score = &sc
					cp.Move.Visits = s.Visits
				}
			}
			cur = existing
			player = rules.Opponent(player)
			continue
		}

		nt.ensureMutable(cur, fresh)
		mv := Move{Row: row, Col: col, Player: player}
		if i == 0 {
			wr, sc := s.Winrate, s.Score
			mv.Winrate = &wr
			mv.Score = &sc
			mv.Visits = s.Visits
			mv.Comment = fmt.Sprintf("Var - Win: %.1f%%, Score: %.1f", s.Winrate, s.Score)
		}
		id := nt.AddChild(cur, mv)
		fresh[id] = true
		cur = id
		player = rules.Opponent(player)
	}
}

// ensureMutable подменяет слот арены клоном узла, если в этой версии дерева
// он ещё общий с прежними версиями.
func (nt *Tree) ensureMutable(id NodeID, fresh map[NodeID]bool) Node {
	if fresh[id] {
		return nt.nodes[id]
	}
	fresh[id] = true
	if id == 0 {
		return nt.mutableRoot()
	}
	return nt.mutableMove(id)
}

func annotateComment(comment string, winrate, score float64) string {
	line := fmt.Sprintf("Winrate: %.1f%%, Score: %.1f", winrate, score)
	if annotationPat.MatchString(comment) {
		return annotationPat.ReplaceAllString(comment, line)
	}
	if comment == "" {
		return line
	}
	return comment + "\n" + line
}
