package kifu

import (
	"fmt"
	"strconv"
	"strings"
)

// GTP-координаты: колонка — буква без I (девятая колонка J), строка —
// число от нижнего края, с единицы. Внутренние строки считаются сверху,
// поэтому row = N - number.
const gtpLetters = "ABCDEFGHJKLMNOPQRSTUVWXYZ"

// FromGTP разбирает координату вида "Q16". "pass" и пустая строка — пас
// (-1, -1). Ошибка — для нечитаемой или выходящей за доску координаты.
func FromGTP(coord string, size int) (row, col int, err error) {
	c := strings.ToUpper(strings.TrimSpace(coord))
	if c == "" || c == "PASS" {
		return -1, -1, nil
	}
	colIdx := strings.IndexByte(gtpLetters, c[0])
	if colIdx < 0 {
		return 0, 0, fmt.Errorf("bad gtp column in %q", coord)
	}
	num, convErr := strconv.Atoi(c[1:])
	if convErr != nil {
		return 0, 0, fmt.Errorf("bad gtp row in %q", coord)
	}
	row = size - num
	if row < 0 || row >= size || colIdx >= size {
		return 0, 0, fmt.Errorf("gtp coord %q outside board %d", coord, size)
	}
	return row, colIdx, nil
}

// ToGTP — обратное преобразование. Пас кодируется как "pass".
func ToGTP(row, col, size int) string {
	if row == -1 && col == -1 {
		return "pass"
	}
	return fmt.Sprintf("%c%d", gtpLetters[col], size-row)
}
