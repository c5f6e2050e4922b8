package searcher

import (
	"connect4/game"

	"golang.org/x/exp/rand"
)

// node is one position of the MCTS tree. Nodes live in an arena and refer to
// each other by index; index 0 is always the root, so a zero child slot means
// the move has not been expanded.
type node struct {
	board     game.Board
	unvisited [game.Columns]int8  // Queue of columns still to expand
	head      int8                // Next queued column
	tail      int8                // End of the queue
	children  [game.Columns]int32 // Slot i holds the child for MoveOrder[i]
	expanded  int8
	q         float64 // Sum of rollout rewards through this node
	n         int     // Rollouts through this node
}

func (nd *node) fullyExplored() bool {
	return nd.head == nd.tail
}

func (nd *node) terminal() bool {
	return nd.fullyExplored() && nd.expanded == 0
}

type tree struct {
	nodes []node
	rng   *rand.Rand
}

// reset discards every node but keeps the arena's capacity.
func (t *tree) reset(b game.Board) {
	t.nodes = t.nodes[:0]
	t.add(b, false)
}

// add appends a node for b. Moves are queued in canonical order, shuffled when
// shuffle is set. Pointers into the arena are invalid after add.
func (t *tree) add(b game.Board, shuffle bool) int32 {
	nd := node{board: b}
	if !b.IsTerminal() {
		for mask, i := b.LegalMovesBitmask(), 0; mask != 0; mask, i = mask>>1, i+1 {
			if mask&1 != 0 {
				nd.unvisited[nd.tail] = int8(game.MoveOrder[i])
				nd.tail++
			}
		}
		if shuffle {
			t.rng.Shuffle(int(nd.tail), func(i, j int) {
				nd.unvisited[i], nd.unvisited[j] = nd.unvisited[j], nd.unvisited[i]
			})
		}
	}
	t.nodes = append(t.nodes, nd)
	return int32(len(t.nodes) - 1)
}

func (t *tree) root() *node {
	return &t.nodes[0]
}

func (t *tree) size() int {
	return len(t.nodes)
}
