package game

import (
	"fmt"
	"math/rand"
)

// Grid is a 5x5 bingo card, indexed [row][col]. Column c holds numbers
// from c*15+1 to (c+1)*15 (the B/I/N/G/O ranges). The center cell is
// the free space and holds 0.
type Grid [5][5]int

// Marks is a player's overlay on their card. The center cell is always
// marked; other cells are marked only by explicit player action and are
// never unmarked.
type Marks [5][5]bool

const (
	FreeRow = 2
	FreeCol = 2

	// MaxNumber is the size of the draw pool.
	MaxNumber = 75
)

// Pattern describes the line that completed a card, e.g. "row-0",
// "column-3", "diagonal" or "anti-diagonal".
type Pattern string

// GenerateCard returns a fresh card: five distinct numbers per column
// within the column's range, free center.
func GenerateCard() Grid {
	var g Grid
	for col := 0; col < 5; col++ {
		perm := rand.Perm(15)
		for row := 0; row < 5; row++ {
			g[row][col] = col*15 + perm[row] + 1
		}
	}
	g[FreeRow][FreeCol] = 0
	return g
}

// NewMarks returns an empty marking with the free center pre-marked.
func NewMarks() Marks {
	var m Marks
	m[FreeRow][FreeCol] = true
	return m
}

// Contains reports whether the card holds n, and where.
func (g Grid) Contains(n int) (row, col int, ok bool) {
	for r := 0; r < 5; r++ {
		for c := 0; c < 5; c++ {
			if g[r][c] == n {
				return r, c, true
			}
		}
	}
	return 0, 0, false
}

// Valid checks the structural invariants of a card: column ranges,
// uniqueness within each column and the free center.
func (g Grid) Valid() bool {
	for col := 0; col < 5; col++ {
		seen := make(map[int]bool, 5)
		for row := 0; row < 5; row++ {
			if row == FreeRow && col == FreeCol {
				if g[row][col] != 0 {
					return false
				}
				continue
			}
			n := g[row][col]
			if n <= col*15 || n > (col+1)*15 {
				return false
			}
			if seen[n] {
				return false
			}
			seen[n] = true
		}
	}
	return true
}

// IsWinningMarking reports whether any of the 12 candidate lines on the
// card (5 rows, 5 columns, 2 diagonals) is complete: every non-free
// cell on the line is both called and marked by the player. The free
// center always counts. Pure function; the server-side call is the
// authoritative one.
func IsWinningMarking(card Grid, marks Marks, called []int) (bool, Pattern) {
	calledSet := make(map[int]bool, len(called))
	for _, n := range called {
		calledSet[n] = true
	}

	cellOK := func(row, col int) bool {
		if row == FreeRow && col == FreeCol {
			return true
		}
		return marks[row][col] && calledSet[card[row][col]]
	}

	checkLine := func(cells [5][2]int) bool {
		for _, cell := range cells {
			if !cellOK(cell[0], cell[1]) {
				return false
			}
		}
		return true
	}

	for row := 0; row < 5; row++ {
		var cells [5][2]int
		for col := 0; col < 5; col++ {
			cells[col] = [2]int{row, col}
		}
		if checkLine(cells) {
			return true, Pattern(fmt.Sprintf("row-%d", row))
		}
	}

	for col := 0; col < 5; col++ {
		var cells [5][2]int
		for row := 0; row < 5; row++ {
			cells[row] = [2]int{row, col}
		}
		if checkLine(cells) {
			return true, Pattern(fmt.Sprintf("column-%d", col))
		}
	}

	var diag, anti [5][2]int
	for i := 0; i < 5; i++ {
		diag[i] = [2]int{i, i}
		anti[i] = [2]int{i, 4 - i}
	}
	if checkLine(diag) {
		return true, Pattern("diagonal")
	}
	if checkLine(anti) {
		return true, Pattern("anti-diagonal")
	}

	return false, ""
}
