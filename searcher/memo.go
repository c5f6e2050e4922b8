package searcher

import (
	"connect4/game"

	"github.com/pbnjay/memory"
)

// Memo caches minimax values by position. Implementations are owned by a
// single engine and are not safe for concurrent use.
type Memo interface {
	Get(b game.Board) (float64, bool)
	Put(b game.Board, value float64)
	Len() int
	Reset()
}

type mapMemo struct {
	values map[game.Board]float64
}

// NewMapMemo returns an unbounded memo. It grows for the lifetime of its
// engine.
func NewMapMemo() Memo {
	return &mapMemo{values: make(map[game.Board]float64)}
}

func (m *mapMemo) Get(b game.Board) (float64, bool) {
	v, ok := m.values[b]
	return v, ok
}

func (m *mapMemo) Put(b game.Board, value float64) {
	m.values[b] = value
}

func (m *mapMemo) Len() int {
	return len(m.values)
}

func (m *mapMemo) Reset() {
	clear(m.values)
}

type memoEntry struct {
	board game.Board
	value float64
	valid bool
}

// BoundedMemo is a direct-mapped table: each position hashes to one slot and
// a newer value replaces whatever the slot held.
type BoundedMemo struct {
	entries []memoEntry
	mask    uint64
	size    int
}

const memoEntryBytes = 32

// NewBoundedMemo returns a table holding at most the largest power of two
// not above capacity (at least 1024 entries).
func NewBoundedMemo(capacity int) *BoundedMemo {
	n := 1024
	for n*2 <= capacity {
		n *= 2
	}
	return &BoundedMemo{
		entries: make([]memoEntry, n),
		mask:    uint64(n - 1),
	}
}

// NewSystemMemo sizes a bounded memo to a fraction of total system memory.
func NewSystemMemo(fraction float64) *BoundedMemo {
	total := memory.TotalMemory()
	if total == 0 || fraction <= 0 {
		return NewBoundedMemo(1 << 20)
	}
	return NewBoundedMemo(int(float64(total) * fraction / memoEntryBytes))
}

func (m *BoundedMemo) Get(b game.Board) (float64, bool) {
	e := &m.entries[b.Hash()&m.mask]
	if !e.valid || e.board != b {
		return 0, false
	}
	return e.value, true
}

func (m *BoundedMemo) Put(b game.Board, value float64) {
	e := &m.entries[b.Hash()&m.mask]
	if !e.valid {
		m.size++
	}
	*e = memoEntry{board: b, value: value, valid: true}
}

func (m *BoundedMemo) Len() int {
	return m.size
}

// Cap returns the number of slots.
func (m *BoundedMemo) Cap() int {
	return len(m.entries)
}

func (m *BoundedMemo) Reset() {
	clear(m.entries)
	m.size = 0
}
