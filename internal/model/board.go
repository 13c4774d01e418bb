package model

import (
	"encoding/json"
	"fmt"
)

// BoardSize is the number of cells on the grid
const BoardSize = 9

// Mark is the symbol occupying a cell
type Mark uint8

const (
	MarkEmpty Mark = iota
	MarkX          // player1
	MarkO          // player2
)

// String returns "X", "O" or "" for an empty cell
func (m Mark) String() string {
	switch m {
	case MarkX:
		return "X"
	case MarkO:
		return "O"
	default:
		return ""
	}
}

// Opponent returns the other player's mark
func (m Mark) Opponent() Mark {
	switch m {
	case MarkX:
		return MarkO
	case MarkO:
		return MarkX
	default:
		return MarkEmpty
	}
}

// ParseMark converts "X", "O" or "" into a Mark
func ParseMark(s string) (Mark, error) {
	switch s {
	case "X":
		return MarkX, nil
	case "O":
		return MarkO, nil
	case "":
		return MarkEmpty, nil
	default:
		return MarkEmpty, fmt.Errorf("invalid mark %q", s)
	}
}

// MarshalJSON encodes empty cells as null
func (m Mark) MarshalJSON() ([]byte, error) {
	if m == MarkEmpty {
		return []byte("null"), nil
	}
	return json.Marshal(m.String())
}

// UnmarshalJSON accepts "X", "O" or null
func (m *Mark) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*m = MarkEmpty
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseMark(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Board is the 3x3 grid in row-major order
type Board [BoardSize]Mark

// Triple is one of the eight winning lines
type Triple [3]int

// IsValidPosition returns true if the position is within the grid
func IsValidPosition(pos int) bool {
	return pos >= 0 && pos < BoardSize
}

// Get returns the mark at the given position, or MarkEmpty if out of range
func (b Board) Get(pos int) Mark {
	if !IsValidPosition(pos) {
		return MarkEmpty
	}
	return b[pos]
}

// IsEmpty returns true if the cell at the given position is empty
func (b Board) IsEmpty(pos int) bool {
	return IsValidPosition(pos) && b[pos] == MarkEmpty
}

// IsFull returns true if all cells are filled
func (b Board) IsFull() bool {
	return b.EmptyCount() == 0
}

// EmptyCount returns the number of empty cells
func (b Board) EmptyCount() int {
	count := 0
	for _, m := range b {
		if m == MarkEmpty {
			count++
		}
	}
	return count
}

// Count returns how many cells hold the given mark
func (b Board) Count(mark Mark) int {
	count := 0
	for _, m := range b {
		if m == mark {
			count++
		}
	}
	return count
}

// String renders the board as three rows, using '.' for empty cells
func (b Board) String() string {
	buf := make([]byte, 0, BoardSize+2)
	for i, m := range b {
		if i > 0 && i%3 == 0 {
			buf = append(buf, '\n')
		}
		if m == MarkEmpty {
			buf = append(buf, '.')
		} else {
			buf = append(buf, m.String()...)
		}
	}
	return string(buf)
}
