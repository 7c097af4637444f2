package kifu

import "testing"

func TestFromGTP(t *testing.T) {
	cases := []struct {
		coord    string
		size     int
		row, col int
	}{
		{"A1", 9, 8, 0},
		{"J9", 9, 0, 8}, // девятая колонка — J, буквы I нет
		{"Q16", 19, 3, 15},
		{"D4", 19, 15, 3},
		{"t19", 19, 0, 18},
		{"pass", 19, -1, -1},
		{"", 19, -1, -1},
	}
	for _, c := range cases {
		row, col, err := FromGTP(c.coord, c.size)
		if err != nil {
			t.Fatalf("FromGTP(%q, %d): %v", c.coord, c.size, err)
		}
		if row != c.row || col != c.col {
			t.Fatalf("FromGTP(%q, %d) = (%d,%d), want (%d,%d)", c.coord, c.size, row, col, c.row, c.col)
		}
	}
}

func TestFromGTPErrors(t *testing.T) {
	bad := []string{"I5", "5", "Ax", "Z1", "A0", "A20"}
	for _, coord := range bad {
		if _, _, err := FromGTP(coord, 9); err == nil {
			t.Fatalf("FromGTP(%q) must fail", coord)
		}
	}
}

func TestToGTPRoundTrip(t *testing.T) {
	for _, size := range []int{9, 13, 19} {
		for row := 0; row < size; row++ {
			for col := 0; col < size; col++ {
				coord := ToGTP(row, col, size)
				r, c, err := FromGTP(coord, size)
				if err != nil || r != row || c != col {
					t.Fatalf("round trip (%d,%d) on %d: %s -> (%d,%d), err=%v", row, col, size, coord, r, c, err)
				}
			}
		}
	}
	if ToGTP(-1, -1, 19) != "pass" {
		t.Fatalf("pass must encode as \"pass\"")
	}
}
