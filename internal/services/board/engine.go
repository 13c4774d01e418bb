// Package board implements the rules of the 3x3 grid as pure functions.
package board

import (
	"fmt"
	"iter"

	"github.com/mcoot/tictactoe-go/internal/model"
)

// Triples are the eight winning lines in scan order: rows, columns, diagonals.
var Triples = [8]model.Triple{
	{0, 1, 2},
	{3, 4, 5},
	{6, 7, 8},
	{0, 3, 6},
	{1, 4, 7},
	{2, 5, 8},
	{0, 4, 8},
	{2, 4, 6},
}

// IllegalMoveError describes why a placement was rejected
type IllegalMoveError struct {
	Position int
	Reason   string
}

func (e *IllegalMoveError) Error() string {
	return fmt.Sprintf("illegal move at position %d: %s", e.Position, e.Reason)
}

// Unwrap lets callers match with errors.Is(err, model.ErrIllegalMove)
func (e *IllegalMoveError) Unwrap() error {
	return model.ErrIllegalMove
}

// IsLegalMove returns true if the position is on the board and empty
func IsLegalMove(b model.Board, pos int) bool {
	return b.IsEmpty(pos)
}

// ApplyMove returns a copy of b with mark placed at pos. The input is never modified.
func ApplyMove(b model.Board, pos int, mark model.Mark) (model.Board, error) {
	switch {
	case !model.IsValidPosition(pos):
		return b, &IllegalMoveError{Position: pos, Reason: "out of range"}
	case b[pos] != model.MarkEmpty:
		return b, &IllegalMoveError{Position: pos, Reason: "cell is occupied"}
	case mark == model.MarkEmpty:
		return b, &IllegalMoveError{Position: pos, Reason: "no mark given"}
	}
	next := b
	next[pos] = mark
	return next, nil
}

// DetectWinner returns the first complete triple in scan order and its mark
func DetectWinner(b model.Board) (model.Triple, model.Mark, bool) {
	for _, t := range Triples {
		m := b[t[0]]
		if m != model.MarkEmpty && b[t[1]] == m && b[t[2]] == m {
			return t, m, true
		}
	}
	return model.Triple{}, model.MarkEmpty, false
}

// IsFull returns true if no empty cells remain
func IsFull(b model.Board) bool {
	return b.IsFull()
}

// Classify reports whether the board is won, drawn or still in play
func Classify(b model.Board) model.Classification {
	if triple, mark, ok := DetectWinner(b); ok {
		return model.Classification{
			Status:        model.MatchStatusFinished,
			Winner:        mark,
			WinningTriple: &triple,
		}
	}
	if b.IsFull() {
		return model.Classification{
			Status: model.MatchStatusFinished,
			IsDraw: true,
		}
	}
	return model.Classification{Status: model.MatchStatusInProgress}
}

// PositionToCoords converts a cell index into its row and column
func PositionToCoords(pos int) (row, col int) {
	return pos / 3, pos % 3
}

// CoordsToPosition converts a row and column into a cell index
func CoordsToPosition(row, col int) int {
	return row*3 + col
}

// AvailableMoves yields the empty positions in ascending order.
// The sequence captures a copy of b and can be ranged over repeatedly.
func AvailableMoves(b model.Board) iter.Seq[int] {
	return func(yield func(int) bool) {
		for pos := range model.BoardSize {
			if b[pos] != model.MarkEmpty {
				continue
			}
			if !yield(pos) {
				return
			}
		}
	}
}

// ValidateBoard checks that a board could have been reached by legal play
// with X moving first.
func ValidateBoard(b model.Board) error {
	x, o := b.Count(model.MarkX), b.Count(model.MarkO)
	if x != o && x != o+1 {
		return fmt.Errorf("%w: %d X marks and %d O marks", model.ErrInvalidBoardState, x, o)
	}

	var xWins, oWins bool
	for _, t := range Triples {
		m := b[t[0]]
		if m == model.MarkEmpty || b[t[1]] != m || b[t[2]] != m {
			continue
		}
		if m == model.MarkX {
			xWins = true
		} else {
			oWins = true
		}
	}
	switch {
	case xWins && oWins:
		return fmt.Errorf("%w: both players have a winning line", model.ErrInvalidBoardState)
	case xWins && x != o+1:
		return fmt.Errorf("%w: X won but O moved after", model.ErrInvalidBoardState)
	case oWins && x != o:
		return fmt.Errorf("%w: O won but X moved after", model.ErrInvalidBoardState)
	}
	return nil
}
