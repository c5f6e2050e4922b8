package engine

import (
	"context"
	"runtime"
	"testing"
	"time"

	"connect4/agent"
	"connect4/experiments/metrics"
	"connect4/game"
	"connect4/searcher"

	"github.com/stretchr/testify/require"
)

const (
	drawnGame = "436014551150160155104632660465204242223333"
	lastCell  = "313463424222363341150005250054604256511661" // O wins with the 42nd move
)

// column always answers the same column.
type column struct {
	col int
}

func (a column) Decide(_ context.Context, _ game.Board, answer *agent.Answer) {
	answer.Set(a.col)
}

func (a column) Name() string { return "Column" }

// script replays a fixed game.
type script struct {
	moves string
}

func (a script) Decide(_ context.Context, b game.Board, answer *agent.Answer) {
	answer.Set(int(a.moves[b.Count()] - '0'))
}

func (a script) Name() string { return "Script" }

type panicking struct{}

func (panicking) Decide(context.Context, game.Board, *agent.Answer) {
	panic("decide failed")
}

func (panicking) Name() string { return "Panicking" }

// sleepy ignores its deadline and answers late.
type sleepy struct {
	delay       time.Duration
	interactive bool
}

func (a sleepy) Decide(_ context.Context, b game.Board, answer *agent.Answer) {
	time.Sleep(a.delay)
	answer.Set(b.LegalMoves()[len(b.LegalMoves())-1])
}

func (a sleepy) Name() string { return "Sleepy" }

func (a sleepy) Interactive() bool { return a.interactive }

func mustParse(t *testing.T, moves string) game.Board {
	t.Helper()
	b, err := game.ParseMoves(moves)
	require.NoError(t, err)
	return b
}

func TestLocalRun(t *testing.T) {
	t.Run("full column is substituted", func(t *testing.T) {
		e := NewLocal(column{col: 3}, column{col: 3})
		outcome, _, moves := e.Run(context.Background())

		for i := 0; i < game.Rows; i++ {
			require.Equal(t, 3, moves[i].Column)
			require.False(t, moves[i].Fallback)
		}
		require.Equal(t, 2, moves[6].Column, "The 7th move should fall back to the next canonical column")
		require.True(t, moves[6].Fallback)
		require.Contains(t, []int{FirstWins, SecondWins, Draw}, outcome)
	})

	t.Run("drawn game", func(t *testing.T) {
		e := NewLocal(script{moves: drawnGame}, script{moves: drawnGame})
		outcome, gameMetric, moves := e.Run(context.Background())

		require.Equal(t, Draw, outcome)
		require.Len(t, moves, game.Cells)
		require.Equal(t, game.Cells, gameMetric.TotalMoves)
		require.Equal(t, [2]string{"Script", "Script"}, gameMetric.Agents)
		for _, m := range moves {
			require.False(t, m.Fallback)
		}
	})

	t.Run("full board with no four in a row is a draw", func(t *testing.T) {
		e := NewLocal(agent.NewNull(), agent.NewNull(), WithBoard(mustParse(t, drawnGame)))
		outcome, gameMetric, moves := e.Run(context.Background())

		require.Equal(t, Draw, outcome)
		require.Empty(t, moves)
		require.Equal(t, Draw, gameMetric.Outcome)
	})

	t.Run("win on the last cell is a win", func(t *testing.T) {
		e := NewLocal(script{moves: lastCell}, script{moves: lastCell})
		outcome, _, moves := e.Run(context.Background())

		require.Equal(t, SecondWins, outcome)
		require.Len(t, moves, game.Cells)
	})

	t.Run("first player win", func(t *testing.T) {
		e := NewLocal(script{moves: "0011223"}, script{moves: "0011223"})
		outcome, gameMetric, moves := e.Run(context.Background())

		require.Equal(t, FirstWins, outcome)
		require.Len(t, moves, 7)
		require.Equal(t, 0, moves[6].Player)
		require.Equal(t, 7, moves[6].Step)
		require.False(t, gameMetric.EndTime.Before(gameMetric.StartTime))
	})

	t.Run("starts from a given board", func(t *testing.T) {
		b := mustParse(t, "001122")
		e := NewLocal(agent.NewNull(), agent.NewNull(), WithBoard(b))
		require.Equal(t, b, e.Board())

		outcome, _, moves := e.Run(context.Background())
		require.Equal(t, FirstWins, outcome, "Null plays the center first, which wins here")
		require.Len(t, moves, 1)
	})

	t.Run("observer sees every move", func(t *testing.T) {
		var boards []game.Board
		e := NewLocal(script{moves: "0011223"}, script{moves: "0011223"},
			WithObserver(func(b game.Board, _ metrics.MoveMetric) {
				boards = append(boards, b)
			}))
		e.Run(context.Background())

		require.Len(t, boards, 7)
		require.Equal(t, mustParse(t, "0011223"), boards[6])
	})
}

func TestLocalRecovery(t *testing.T) {
	t.Run("panicking agent falls back", func(t *testing.T) {
		e := NewLocal(panicking{}, agent.NewNull())
		outcome, _, moves := e.Run(context.Background())

		require.True(t, moves[0].Fallback)
		require.Equal(t, 3, moves[0].Column)
		require.Contains(t, []int{FirstWins, SecondWins, Draw}, outcome)
	})

	t.Run("late answer falls back", func(t *testing.T) {
		e := NewLocal(sleepy{delay: 200 * time.Millisecond}, agent.NewNull(),
			WithBoard(mustParse(t, "001122")), WithBudget(20*time.Millisecond), WithGrace(10*time.Millisecond))

		start := time.Now()
		outcome, _, moves := e.Run(context.Background())
		require.Less(t, time.Since(start), 150*time.Millisecond, "The driver should not wait for the late agent")
		require.True(t, moves[0].Fallback)
		require.Equal(t, FirstWins, outcome, "The substituted center column wins")
	})

	t.Run("late answer does not leak into the next turn", func(t *testing.T) {
		// O is slow and would answer column 6 after the deadline
		e := NewLocal(column{col: 0}, sleepy{delay: 60 * time.Millisecond},
			WithBudget(20*time.Millisecond), WithGrace(0))
		_, _, moves := e.Run(context.Background())

		require.True(t, moves[1].Fallback)
		require.Equal(t, 3, moves[1].Column)
		require.Equal(t, 0, moves[2].Column, "X's turn should read its own answer")
	})

	t.Run("interactive agents are not bound by the budget", func(t *testing.T) {
		e := NewLocal(sleepy{delay: 50 * time.Millisecond, interactive: true}, agent.NewNull(),
			WithBoard(mustParse(t, "304050")), WithBudget(10*time.Millisecond))
		_, _, moves := e.Run(context.Background())

		require.False(t, moves[0].Fallback)
		require.Equal(t, 6, moves[0].Column, "The slow answer should be played")
		require.Greater(t, moves[0].Elapsed, 10*time.Millisecond)
	})

	t.Run("cooperative agent keeps its best move", func(t *testing.T) {
		mcts := agent.NewMCTS(searcher.NewMCTS(searcher.WithSeed(2)))
		e := NewLocal(mcts, agent.NewNull(), WithBoard(mustParse(t, "001122")), WithBudget(50*time.Millisecond))
		outcome, _, moves := e.Run(context.Background())

		require.False(t, moves[0].Fallback)
		require.Equal(t, 3, moves[0].Column)
		require.Equal(t, FirstWins, outcome)
	})

	t.Run("endgame search ends with its turn", func(t *testing.T) {
		baseline := runtime.NumGoroutine()
		mcts := agent.NewMCTS(searcher.NewMCTS(searcher.WithSeed(5)))
		e := NewLocal(mcts, agent.NewNull(), WithBoard(mustParse(t, drawnGame[:36])),
			WithBudget(20*time.Millisecond), WithGrace(20*time.Millisecond))
		_, _, moves := e.Run(context.Background())

		for _, m := range moves {
			require.False(t, m.Fallback, "Move %d should not fall back", m.Step)
		}
		require.Eventually(t, func() bool {
			return runtime.NumGoroutine() <= baseline
		}, 500*time.Millisecond, 10*time.Millisecond, "Searches should not outlive their turns")
	})
}

func TestOutcome(t *testing.T) {
	require.Equal(t, FirstWins, Outcome(mustParse(t, "0011223")))
	require.Equal(t, SecondWins, Outcome(mustParse(t, "60615253")))
	require.Equal(t, Draw, Outcome(mustParse(t, drawnGame)))
	require.Equal(t, SecondWins, Outcome(mustParse(t, lastCell)))
	require.Equal(t, "draw", OutcomeString(Draw))
}
