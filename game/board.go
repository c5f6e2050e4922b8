package game

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math/bits"
	"strings"

	"github.com/cespare/xxhash"
)

const (
	Columns = 7
	Rows    = 6
	Cells   = Columns * Rows

	// Each column takes Rows+1 bits, the top one stays empty so that shifts
	// never carry a run from one column into the next.
	height = Rows + 1
)

// Players as returned by Turn
const (
	X = 0
	O = 1
)

const (
	bottomMask uint64 = 0x40810204081
	boardMask  uint64 = bottomMask * ((1 << Rows) - 1)
)

// NoMove marks the absence of a column, e.g. an agent that has not answered yet.
const NoMove = -1

// Empty is the occupant of a cell that holds no piece.
const Empty = -1

var ErrInvalidMove = errors.New("invalid move")

// MoveOrder is the canonical center-out column order used for move generation.
// Alpha-beta pruning relies on it.
var MoveOrder = [Columns]int{3, 2, 4, 1, 5, 0, 6}

var orderIndex = [Columns]int{5, 3, 1, 0, 2, 4, 6}

// OrderIndex returns the position of col in MoveOrder.
func OrderIndex(col int) int {
	return orderIndex[col]
}

// Board is an immutable Connect-4 position. The zero value is the empty board.
// Cell (col, row) is bit col*7+row of the owning player's mask.
type Board struct {
	masks [2]uint64
}

func cellBit(col, row int) uint64 {
	return 1 << (uint(col)*height + uint(row))
}

func columnMask(col int) uint64 {
	return ((1 << Rows) - 1) << (uint(col) * height)
}

func (b Board) occupied() uint64 {
	return b.masks[0] | b.masks[1]
}

// Mask returns the cells owned by player.
func (b Board) Mask(player int) uint64 {
	return b.masks[player]
}

// Count returns the number of pieces on the board.
func (b Board) Count() int {
	return bits.OnesCount64(b.occupied())
}

// Turn returns the player to move: 0 moves first, 1 second.
func (b Board) Turn() int {
	return b.Count() & 1
}

// Height returns the number of pieces in col.
func (b Board) Height(col int) int {
	return bits.OnesCount64(b.occupied() & columnMask(col))
}

// Cell returns the player occupying (col, row), or Empty. Row 0 is the bottom.
func (b Board) Cell(col, row int) int {
	bit := cellBit(col, row)
	switch {
	case b.masks[0]&bit != 0:
		return 0
	case b.masks[1]&bit != 0:
		return 1
	default:
		return Empty
	}
}

// IsValid reports whether col is on the board and has an open top cell.
func (b Board) IsValid(col int) bool {
	return col >= 0 && col < Columns && b.occupied()&cellBit(col, Rows-1) == 0
}

// Play returns the board after the player to move drops a piece into col.
// Playing an invalid column is a programming error and panics.
func (b Board) Play(col int) Board {
	if !b.IsValid(col) {
		panic(fmt.Sprintf("game: play on invalid column %d", col))
	}
	both := b.occupied()
	cell := (both + cellBit(col, 0)) & columnMask(col)
	b.masks[b.Turn()] |= cell
	return b
}

// LegalMoves returns the open columns in canonical order.
func (b Board) LegalMoves() []int {
	moves := make([]int, 0, Columns)
	for _, col := range MoveOrder {
		if b.IsValid(col) {
			moves = append(moves, col)
		}
	}
	return moves
}

// LegalMovesBitmask packs the open columns with bit i set when MoveOrder[i] is
// open.
func (b Board) LegalMovesBitmask() uint8 {
	var mask uint8
	for i, col := range MoveOrder {
		if b.IsValid(col) {
			mask |= 1 << uint(i)
		}
	}
	return mask
}

// IsWon reports whether the player who moved last has four in a row.
func (b Board) IsWon() bool {
	n := b.Count()
	if n == 0 {
		return false
	}
	return connected(b.masks[(n-1)&1])
}

// IsDraw reports whether every cell is filled without a winner.
func (b Board) IsDraw() bool {
	return b.Count() == Cells && !b.IsWon()
}

// IsTerminal reports whether the game is over.
func (b Board) IsTerminal() bool {
	return b.Count() == Cells || b.IsWon()
}

// Reward returns +1 when the first player has won, -1 when the second player
// has won and 0 otherwise.
func (b Board) Reward() float64 {
	if !b.IsWon() {
		return 0
	}
	if b.Turn() == O {
		return 1
	}
	return -1
}

// ThreatCount returns, per player, the number of empty cells that would
// complete four in a row for that player.
func (b Board) ThreatCount() [2]int {
	empty := boardMask &^ b.occupied()
	threats := [2]uint64{winningCells(b.masks[0]), winningCells(b.masks[1])}
	var counts [2]int
	for col := 0; col < Columns; col++ {
		// Empty cells sit above a column's pieces, so the open part of the
		// column is everything from the top cell down to the first piece.
		open := empty & columnMask(col)
		if open == 0 {
			continue
		}
		counts[0] += bits.OnesCount64(threats[0] & open)
		counts[1] += bits.OnesCount64(threats[1] & open)
	}
	return counts
}

// Hash returns a 64-bit digest of the position.
func (b Board) Hash() uint64 {
	var buf [16]byte
	binary.LittleEndian.PutUint64(buf[:8], b.masks[0])
	binary.LittleEndian.PutUint64(buf[8:], b.masks[1])
	return xxhash.Sum64(buf[:])
}

func (b Board) String() string {
	var sb strings.Builder
	for row := Rows - 1; row >= 0; row-- {
		for col := 0; col < Columns; col++ {
			if col > 0 {
				sb.WriteByte(' ')
			}
			sb.WriteByte(glyph(b.Cell(col, row)))
		}
		sb.WriteByte('\n')
	}
	for col := 0; col < Columns; col++ {
		if col > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteByte(byte('0' + col))
	}
	sb.WriteByte('\n')
	return sb.String()
}

func glyph(player int) byte {
	switch player {
	case 0:
		return 'X'
	case 1:
		return 'O'
	default:
		return '.'
	}
}

// FromMoves plays the columns in order from the empty board.
func FromMoves(cols ...int) (Board, error) {
	var b Board
	for i, col := range cols {
		if b.IsWon() || !b.IsValid(col) {
			return Board{}, fmt.Errorf("move %d (column %d): %w", i+1, col, ErrInvalidMove)
		}
		b = b.Play(col)
	}
	return b, nil
}

// ParseMoves builds a board from a string of column digits such as "3342".
func ParseMoves(s string) (Board, error) {
	cols := make([]int, 0, len(s))
	for i, r := range s {
		if r < '0' || r > '6' {
			return Board{}, fmt.Errorf("position %d (%q): %w", i, r, ErrInvalidMove)
		}
		cols = append(cols, int(r-'0'))
	}
	return FromMoves(cols...)
}

func connected(m uint64) bool {
	for _, s := range [...]uint{1, height - 1, height, height + 1} {
		y := m & (m >> s)
		if y&(y>>(2*s)) != 0 {
			return true
		}
	}
	return false
}

// winningCells returns every cell that would give m four in a row.
func winningCells(m uint64) uint64 {
	// vertical
	r := (m << 1) & (m << 2) & (m << 3)

	for _, s := range [...]uint{height - 1, height, height + 1} {
		t := (m << s) & (m << (2 * s))
		r |= t & (m << (3 * s))
		r |= t & (m >> s)
		t = (m >> s) & (m >> (2 * s))
		r |= t & (m << s)
		r |= t & (m >> (3 * s))
	}
	return r & boardMask
}
