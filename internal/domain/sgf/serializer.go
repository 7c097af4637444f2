package sgf

import (
	"sort"
	"strings"

	"go_kifu/internal/domain/kifu"
	"go_kifu/internal/domain/rules"
)

// Фиксированный порядок корневых свойств, остальные — по алфавиту.
var rootPropOrder = []string{"FF", "GM", "CA", "SZ", "PB", "PW", "DT", "RE", "KM", "RU", "HA"}

// Serialize выписывает всё дерево. Узел с одним ребёнком продолжает
// плоскую последовательность `;ход`, узел с несколькими — даёт каждому
// ребёнку скобочную ветку.
func Serialize(t *kifu.Tree) string {
	var sb strings.Builder
	sb.WriteString("(")
	writeRootNode(&sb, t)
	writeSequence(&sb, t, t.Root().Children)
	sb.WriteString(")")
	return sb.String()
}

// SerializeLine выписывает единственную линию игры: путь от корня до
// target, все боковые ветки игнорируются. Корневая расстановка и
// собственная расстановка первого узла не дублируют друг друга: они
// раздельные списки с момента разбора.
func SerializeLine(t *kifu.Tree, target kifu.NodeID) string {
	path := t.Path(target)
	if path == nil {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("(")
	writeRootNode(&sb, t)
	for _, id := range path[1:] {
		node, _ := t.MoveNode(id)
		writeNode(&sb, node.Move)
	}
	sb.WriteString(")")
	return sb.String()
}

func writeSequence(sb *strings.Builder, t *kifu.Tree, children []kifu.NodeID) {
	for len(children) == 1 {
		node, _ := t.MoveNode(children[0])
		writeNode(sb, node.Move)
		children = node.Children
	}
	for _, c := range children {
		node, _ := t.MoveNode(c)
		sb.WriteString("(")
		writeNode(sb, node.Move)
		writeSequence(sb, t, node.Children)
		sb.WriteString(")")
	}
}

func writeRootNode(sb *strings.Builder, t *kifu.Tree) {
	root := t.Root()
	sb.WriteString(";")

	written := make(map[string]bool)
	for _, key := range rootPropOrder {
		if values, ok := root.Props[key]; ok {
			writeProp(sb, key, values)
			written[key] = true
		}
	}
	rest := make([]string, 0, len(root.Props))
	for key := range root.Props {
		if !written[key] {
			rest = append(rest, key)
		}
	}
	sort.Strings(rest)
	for _, key := range rest {
		writeProp(sb, key, root.Props[key])
	}

	writeSetup(sb, root.Setup)
}

func writeNode(sb *strings.Builder, mv kifu.Move) {
	sb.WriteString(";")
	switch mv.Player {
	case rules.Black:
		sb.WriteString("B[" + encodeCoord(mv.Row, mv.Col) + "]")
	case rules.White:
		sb.WriteString("W[" + encodeCoord(mv.Row, mv.Col) + "]")
	}
	writeSetup(sb, mv.Setup)
	if mv.Comment != "" {
		sb.WriteString("C[" + escapeValue(mv.Comment) + "]")
	}
}

func writeSetup(sb *strings.Builder, setup []kifu.Stone) {
	var black, white []string
	for _, s := range setup {
		coord := encodeCoord(s.Row, s.Col)
		if s.Player == rules.Black {
			black = append(black, coord)
		} else {
			white = append(white, coord)
		}
	}
	if len(black) > 0 {
		writeProp(sb, "AB", black)
	}
	if len(white) > 0 {
		writeProp(sb, "AW", white)
	}
}

func writeProp(sb *strings.Builder, key string, values []string) {
	sb.WriteString(key)
	for _, v := range values {
		sb.WriteString("[" + escapeValue(v) + "]")
	}
}

func encodeCoord(row, col int) string {
	if row == -1 && col == -1 {
		return "" // пас
	}
	return string([]byte{byte('a' + col), byte('a' + row)})
}

func escapeValue(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	return strings.ReplaceAll(v, `]`, `\]`)
}
