package rules

import "strings"

// Цвета пересечений доски.
const (
	Empty int8 = 0
	Black int8 = 1
	White int8 = 2
)

// Board — квадратная доска N x N, строки сверху вниз.
type Board [][]int8

// Point — координата пересечения (нумерация с нуля).
type Point struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

func NewBoard(size int) Board {
	b := make(Board, size)
	for i := range b {
		b[i] = make([]int8, size)
	}
	return b
}

func (b Board) Size() int {
	return len(b)
}

func (b Board) Clone() Board {
	cp := make(Board, len(b))
	for i, row := range b {
		cp[i] = make([]int8, len(row))
		copy(cp[i], row)
	}
	return cp
}

func (b Board) InBounds(row, col int) bool {
	return row >= 0 && row < len(b) && col >= 0 && col < len(b)
}

func Opponent(player int8) int8 {
	if player == Black {
		return White
	}
	return Black
}

var neighbors = [4]Point{{-1, 0}, {1, 0}, {0, -1}, {0, 1}}

// Group собирает 4-связную группу камней того же цвета, что и камень в
// (row, col). Для пустого пересечения возвращает nil.
func Group(b Board, row, col int) []Point {
	if !b.InBounds(row, col) || b[row][col] == Empty {
		return nil
	}
	color := b[row][col]
	visited := make(map[Point]bool)
	stack := []Point{{row, col}}
	var group []Point
	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[p] {
			continue
		}
		visited[p] = true
		group = append(group, p)
		for _, d := range neighbors {
			n := Point{p.Row + d.Row, p.Col + d.Col}
			if b.InBounds(n.Row, n.Col) && !visited[n] && b[n.Row][n.Col] == color {
				stack = append(stack, n)
			}
		}
	}
	return group
}

// Liberties считает число различных пустых пересечений, смежных с группой.
// Общие дыхания соседних камней группы не считаются дважды.
func Liberties(b Board, group []Point) int {
	seen := make(map[Point]bool)
	for _, p := range group {
		for _, d := range neighbors {
			n := Point{p.Row + d.Row, p.Col + d.Col}
			if b.InBounds(n.Row, n.Col) && b[n.Row][n.Col] == Empty {
				seen[n] = true
			}
		}
	}
	return len(seen)
}

// Captures возвращает координаты всех камней противника, которые снимаются
// после постановки камня player в (row, col). Сама доска не меняется,
// постановка моделируется на копии.
func Captures(b Board, row, col int, player int8) []Point {
	if !b.InBounds(row, col) || b[row][col] != Empty {
		return nil
	}
	sim := b.Clone()
	sim[row][col] = player
	opponent := Opponent(player)

	visited := make(map[Point]bool)
	var captured []Point
	for _, d := range neighbors {
		n := Point{row + d.Row, col + d.Col}
		if !sim.InBounds(n.Row, n.Col) || visited[n] || sim[n.Row][n.Col] != opponent {
			continue
		}
		group := Group(sim, n.Row, n.Col)
		for _, p := range group {
			visited[p] = true
		}
		if Liberties(sim, group) == 0 {
			captured = append(captured, group...)
		}
	}
	return captured
}

// IsValid проверяет легальность хода: пересечение свободно, позиция не
// повторяет positionHash (ко на один ход назад), и после снятия захваченных
// камней своя группа имеет хотя бы одно дыхание. Взятие всегда легально.
// Пустой prevHash отключает проверку ко.
func IsValid(b Board, row, col int, player int8, prevHash string) bool {
	if !b.InBounds(row, col) || b[row][col] != Empty {
		return false
	}

	captured := Captures(b, row, col, player)

	sim := b.Clone()
	sim[row][col] = player
	for _, p := range captured {
		sim[p.Row][p.Col] = Empty
	}

	if prevHash != "" && Hash(sim) == prevHash {
		return false
	}

	if len(captured) > 0 {
		return true
	}

	own := Group(sim, row, col)
	return Liberties(sim, own) > 0
}

// Hash — детерминированная кодировка всей доски, используется для сравнения
// позиций (ко) и как отпечаток позиции.
func Hash(b Board) string {
	var sb strings.Builder
	sb.Grow(len(b) * (len(b) + 1))
	for _, row := range b {
		for _, c := range row {
			sb.WriteByte('0' + byte(c))
		}
		sb.WriteByte('/')
	}
	return sb.String()
}
