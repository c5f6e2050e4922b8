package searcher

import (
	"context"
	"testing"
	"time"

	"connect4/game"

	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
)

// bruteForce searches every line to the end of the game.
func bruteForce(b game.Board, discount float64) float64 {
	if b.IsWon() {
		return b.Reward()
	}
	if b.Count() == game.Cells {
		return 0
	}
	turn := b.Turn()
	best := sentinel(turn)
	for _, col := range b.LegalMoves() {
		v := bruteForce(b.Play(col), discount) * discount
		if (turn == game.X && v > best) || (turn == game.O && v < best) {
			best = v
		}
	}
	return best
}

// nearTerminalBoards plays random games until at most empty cells remain and
// keeps the positions that are still open.
func nearTerminalBoards(t *testing.T, seed uint64, count, empty int) []game.Board {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))
	boards := make([]game.Board, 0, count)
	for attempts := 0; len(boards) < count && attempts < 100*count; attempts++ {
		var b game.Board
		for !b.IsTerminal() && game.Cells-b.Count() > empty {
			moves := b.LegalMoves()
			b = b.Play(moves[rng.Intn(len(moves))])
		}
		if !b.IsTerminal() {
			boards = append(boards, b)
		}
	}
	require.NotEmpty(t, boards, "Should generate open near-terminal boards")
	return boards
}

func mustParse(t *testing.T, moves string) game.Board {
	t.Helper()
	b, err := game.ParseMoves(moves)
	require.NoError(t, err)
	return b
}

func TestMinimaxMatchesBruteForce(t *testing.T) {
	boards := nearTerminalBoards(t, 7, 40, 6)

	t.Run("without discount", func(t *testing.T) {
		for _, b := range boards {
			m := NewMinimax(WithDepth(game.Cells), WithDiscount(1))
			require.Equal(t, bruteForce(b, 1), m.Value(context.Background(), b),
				"Pruning should not change the value of\n%s", b)
		}
	})

	t.Run("with discount", func(t *testing.T) {
		for _, b := range boards {
			m := NewMinimax(WithDepth(game.Cells))
			require.InDelta(t, bruteForce(b, Discount), m.Value(context.Background(), b), 1e-12,
				"Pruning should not change the value of\n%s", b)
		}
	})

	t.Run("with and without pruning", func(t *testing.T) {
		for _, b := range boards {
			pruned := NewMinimax(WithDepth(game.Cells), WithoutMemo())
			full := NewMinimax(WithDepth(game.Cells), WithoutMemo(), WithoutPruning())
			require.Equal(t, full.Value(context.Background(), b), pruned.Value(context.Background(), b),
				"Pruning should only change the work performed")
		}
	})

	t.Run("drawn ending", func(t *testing.T) {
		b := mustParse(t, "43601455115016015510463266046520424222")
		require.Equal(t, 4, game.Cells-b.Count())

		m := NewMinimax(WithDepth(game.Cells), WithDiscount(1))
		require.Equal(t, bruteForce(b, 1), m.Value(context.Background(), b))
	})
}

func TestMinimaxMemo(t *testing.T) {
	positions := []string{"", "3344", "332211", "4433221", "0123456"}

	t.Run("memo does not change values", func(t *testing.T) {
		for _, moves := range positions {
			b := mustParse(t, moves)
			with := NewMinimax(WithDepth(7))
			without := NewMinimax(WithDepth(7), WithoutMemo())
			require.Equal(t, without.Value(context.Background(), b), with.Value(context.Background(), b),
				"Memo should be transparent for %q", moves)
		}
	})

	t.Run("equal boards share memo entries", func(t *testing.T) {
		b1 := mustParse(t, "3344")
		b2, err := game.FromMoves(3, 3, 4, 4)
		require.NoError(t, err)

		m := NewMinimax(WithDepth(8))
		first := m.Value(context.Background(), b1)
		second := m.Value(context.Background(), b2)
		require.Equal(t, first, second, "Repeated evaluation should agree")
	})

	t.Run("bounded memo does not change values", func(t *testing.T) {
		for _, moves := range positions {
			b := mustParse(t, moves)
			bounded := NewMinimax(WithDepth(7), WithMemo(NewBoundedMemo(1024)))
			without := NewMinimax(WithDepth(7), WithoutMemo())
			require.Equal(t, without.Value(context.Background(), b), bounded.Value(context.Background(), b),
				"Memo should be transparent for %q", moves)
		}
	})

	t.Run("only decided values are stored", func(t *testing.T) {
		m := NewMinimax(WithDepth(4))
		m.Value(context.Background(), game.Board{})
		require.Zero(t, m.MemoLen(), "A shallow opening search decides nothing")

		m.Value(context.Background(), mustParse(t, "1626"))
		require.NotZero(t, m.MemoLen(), "Forced results should be memoized")
	})
}

func TestMinimaxSearch(t *testing.T) {
	t.Run("takes a horizontal win for the first player", func(t *testing.T) {
		for depth := 1; depth <= 5; depth++ {
			m := NewMinimax(WithDepth(depth))
			result, _ := m.Search(context.Background(), mustParse(t, "001122"), nil)
			require.Equal(t, 3, result.Move, "Depth %d should take the win", depth)
			require.InDelta(t, Discount, result.Value, 1e-12)
		}
	})

	t.Run("takes a horizontal win for the second player", func(t *testing.T) {
		m := NewMinimax(WithDepth(1))
		result, _ := m.Search(context.Background(), mustParse(t, "6061525"), nil)
		require.Equal(t, 3, result.Move)
		require.InDelta(t, -Discount, result.Value, 1e-12)
	})

	t.Run("blocks an immediate loss", func(t *testing.T) {
		// X threatens column 3, O must block
		m := NewMinimax(WithDepth(2))
		result, _ := m.Search(context.Background(), mustParse(t, "00112"), nil)
		require.Equal(t, 3, result.Move)
	})

	t.Run("reports improvements", func(t *testing.T) {
		var reported []int
		m := NewMinimax(WithDepth(3))
		result, _ := m.Search(context.Background(), game.Board{}, func(move int) {
			reported = append(reported, move)
		})
		require.NotEmpty(t, reported)
		require.Equal(t, result.Move, reported[len(reported)-1], "Last report should be the answer")
		require.True(t, result.Complete)
		require.Equal(t, 3, result.Depth)
	})

	t.Run("terminal board has no move", func(t *testing.T) {
		m := NewMinimax()
		result, _ := m.Search(context.Background(), mustParse(t, "0011223"), nil)
		require.Equal(t, game.NoMove, result.Move)
		require.False(t, result.Complete)
	})

	t.Run("next acts as a rollout policy", func(t *testing.T) {
		m := NewMinimax(WithDepth(2))
		require.Equal(t, 3, m.Next(mustParse(t, "001122")))
	})

	t.Run("iterative deepening stops on a decided value", func(t *testing.T) {
		// X wins in three by opening both ends of the bottom row
		m := NewMinimax(WithDepth(1), WithIterativeDeepening(), WithMinimaxMetrics())
		result, metric := m.Search(context.Background(), mustParse(t, "1626"), nil)
		require.Equal(t, 3, result.Move)
		require.True(t, result.Complete)
		require.Equal(t, 3, result.Depth, "Should stop at the first decided depth")
		require.Equal(t, result.Depth, metric.Depth)
		require.Positive(t, metric.Nodes)
	})

	t.Run("metrics count positions", func(t *testing.T) {
		m := NewMinimax(WithDepth(4), WithMinimaxMetrics())
		_, pruned := m.Search(context.Background(), game.Board{}, nil)

		full := NewMinimax(WithDepth(4), WithoutPruning(), WithMinimaxMetrics())
		_, unpruned := full.Search(context.Background(), game.Board{}, nil)

		require.Positive(t, pruned.Prunes)
		require.Zero(t, unpruned.Prunes)
		require.Less(t, pruned.Nodes, unpruned.Nodes, "Pruning should visit fewer positions")
		require.Equal(t, 7+49+343+2401, unpruned.Nodes)
	})
}

func TestMinimaxDeadline(t *testing.T) {
	t.Run("stops when the context expires", func(t *testing.T) {
		m := NewMinimax(WithDepth(game.Cells), WithoutMemo())
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		start := time.Now()
		result, _ := m.Search(ctx, game.Board{}, nil)
		require.Less(t, time.Since(start), time.Second, "Search should exit soon after the deadline")
		require.False(t, result.Complete)
	})

	t.Run("partial search keeps the reported move", func(t *testing.T) {
		m := NewMinimax(WithDepth(game.Cells), WithoutMemo())
		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		defer cancel()

		last := game.NoMove
		result, _ := m.Search(ctx, mustParse(t, "3"), func(move int) { last = move })
		require.Equal(t, last, result.Move)
	})

	t.Run("cancelled context leaves no answer", func(t *testing.T) {
		m := NewMinimax(WithDepth(game.Cells))
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		result, _ := m.Search(ctx, game.Board{}, nil)
		require.Equal(t, game.NoMove, result.Move)
		require.False(t, result.Complete)
	})
}
